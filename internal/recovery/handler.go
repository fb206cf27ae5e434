package recovery

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gofiber/fiber/v2"

	"github.com/faceguard/faceguard/internal/auth"
)

// Handler exposes the external signer over HTTP. The account is always the
// authenticated caller.
type Handler struct {
	signer *Signer
	logger *slog.Logger
}

// NewHandler constructs a recovery HTTP handler.
func NewHandler(signer *Signer, logger *slog.Logger) *Handler {
	return &Handler{signer: signer, logger: logger}
}

type verifyRequest struct {
	Digest    string `json:"digest"`
	Signature string `json:"signature"`
	KeyHash   string `json:"key_hash"`
}

type enrollRequest struct {
	FaceKeyHash   string `json:"face_key_hash"`
	LivenessProof string `json:"liveness_proof"`
}

type enrollmentResponse struct {
	Account     string `json:"account"`
	Enrolled    bool   `json:"enrolled"`
	FaceKeyHash string `json:"face_key_hash"`
	EnrolledAt  int64  `json:"enrolled_at,omitempty"`
}

type nonceRequest struct {
	Nonce string `json:"nonce"`
}

type nonceResponse struct {
	Account string `json:"account"`
	Nonce   string `json:"nonce"`
}

// Verify answers isValidSignatureWithKeyHash for the caller. Any malformed
// input yields valid=false rather than an error status.
func (h *Handler) Verify(c *fiber.Ctx) error {
	caller, ok := auth.Caller(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	valid := false
	digest, errD := parseHash(req.Digest)
	keyHash, errK := parseHash(req.KeyHash)
	sig, errS := hexutil.Decode(req.Signature)
	if errD == nil && errK == nil && errS == nil {
		valid = h.signer.IsValidSignatureWithKeyHash(c.UserContext(), caller, digest, sig, keyHash)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"valid": valid})
}

// Enroll handles enrollFace.
func (h *Handler) Enroll(c *fiber.Ctx) error {
	caller, hash, proof, err := h.enrollInput(c)
	if err != nil {
		return err
	}
	rec, err := h.signer.EnrollFace(c.UserContext(), caller, hash, proof)
	if err != nil {
		return h.toHTTPError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(toEnrollmentResponse(rec, true))
}

// Update handles updateFace.
func (h *Handler) Update(c *fiber.Ctx) error {
	caller, hash, proof, err := h.enrollInput(c)
	if err != nil {
		return err
	}
	rec, err := h.signer.UpdateFace(c.UserContext(), caller, hash, proof)
	if err != nil {
		return h.toHTTPError(c, err)
	}
	return c.Status(http.StatusOK).JSON(toEnrollmentResponse(rec, true))
}

// Revoke handles revokeFace.
func (h *Handler) Revoke(c *fiber.Ctx) error {
	caller, ok := auth.Caller(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	rec, err := h.signer.RevokeFace(c.UserContext(), caller)
	if err != nil {
		return h.toHTTPError(c, err)
	}
	resp := toEnrollmentResponse(rec, false)
	return c.Status(http.StatusOK).JSON(resp)
}

// Enrollment returns the caller's enrollment state.
func (h *Handler) Enrollment(c *fiber.Ctx) error {
	caller, ok := auth.Caller(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	rec, found, err := h.signer.Enrollment(c.UserContext(), caller)
	if err != nil {
		return h.toHTTPError(c, err)
	}
	rec.Account = caller
	return c.Status(http.StatusOK).JSON(toEnrollmentResponse(rec, found))
}

// ConsumeNonce handles consumeNonce. The nonce travels as a decimal string
// so that clients holding uint256 values do not lose precision in JSON.
func (h *Handler) ConsumeNonce(c *fiber.Ctx) error {
	caller, ok := auth.Caller(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req nonceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	nonce, err := strconv.ParseUint(req.Nonce, 10, 64)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "nonce must be a decimal uint64")
	}
	if err := h.signer.ConsumeNonce(c.UserContext(), caller, nonce); err != nil {
		return h.toHTTPError(c, err)
	}
	return c.Status(http.StatusOK).JSON(nonceResponse{Account: caller.Hex(), Nonce: strconv.FormatUint(nonce, 10)})
}

// Nonce returns the caller's last consumed nonce.
func (h *Handler) Nonce(c *fiber.Ctx) error {
	caller, ok := auth.Caller(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	nonce, err := h.signer.Nonce(c.UserContext(), caller)
	if err != nil {
		return h.toHTTPError(c, err)
	}
	return c.Status(http.StatusOK).JSON(nonceResponse{Account: caller.Hex(), Nonce: strconv.FormatUint(nonce, 10)})
}

func (h *Handler) enrollInput(c *fiber.Ctx) (common.Address, common.Hash, []byte, error) {
	caller, ok := auth.Caller(c)
	if !ok {
		return common.Address{}, common.Hash{}, nil, fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req enrollRequest
	if err := c.BodyParser(&req); err != nil {
		return common.Address{}, common.Hash{}, nil, fiber.NewError(http.StatusBadRequest, err.Error())
	}
	hash, err := parseHash(req.FaceKeyHash)
	if err != nil {
		return common.Address{}, common.Hash{}, nil, fiber.NewError(http.StatusBadRequest, "face_key_hash must be 32 bytes of 0x-prefixed hex")
	}
	proof, err := hexutil.Decode(req.LivenessProof)
	if err != nil {
		return common.Address{}, common.Hash{}, nil, fiber.NewError(http.StatusBadRequest, "liveness_proof must be 0x-prefixed hex")
	}
	return caller, hash, proof, nil
}

func parseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, errors.New("hash must be 32 bytes")
	}
	return common.BytesToHash(b), nil
}

func toEnrollmentResponse(rec EnrollmentRecord, enrolled bool) enrollmentResponse {
	resp := enrollmentResponse{
		Account:     rec.Account.Hex(),
		Enrolled:    enrolled,
		FaceKeyHash: rec.FaceKeyHash.Hex(),
	}
	if enrolled {
		resp.EnrolledAt = rec.EnrolledAt.Unix()
	}
	return resp
}

func (h *Handler) toHTTPError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrFaceAlreadyEnrolled), errors.Is(err, ErrNonceAlreadyUsed):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrFaceNotEnrolled):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidLivenessProof), errors.Is(err, ErrZeroFaceKeyHash):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrZeroAddress):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("recovery store failure", slog.String("path", c.Path()), slog.Any("error", err))
		return fiber.NewError(http.StatusInternalServerError, "internal error")
	}
}
