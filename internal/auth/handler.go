package auth

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gofiber/fiber/v2"
)

// AccountLocal is the fiber.Ctx locals key holding the authenticated account.
const AccountLocal = "account"

// Caller returns the authenticated account stored by the session middleware.
func Caller(c *fiber.Ctx) (common.Address, bool) {
	account, ok := c.Locals(AccountLocal).(common.Address)
	if !ok || account == (common.Address{}) {
		return common.Address{}, false
	}
	return account, true
}

// Handler exposes challenge/session endpoints.
type Handler struct {
	svc *Service
}

// NewHandler constructs an auth HTTP handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type challengeRequest struct {
	Account string `json:"account"`
}

type challengeResponse struct {
	Account   string `json:"account"`
	Message   string `json:"message"`
	ExpiresAt int64  `json:"expires_at"`
}

// Challenge issues a message for the account to sign.
func (h *Handler) Challenge(c *fiber.Ctx) error {
	var req challengeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if !common.IsHexAddress(req.Account) {
		return fiber.NewError(http.StatusBadRequest, "account must be a hex address")
	}
	ch, err := h.svc.IssueChallenge(c.UserContext(), common.HexToAddress(req.Account))
	if err != nil {
		if errors.Is(err, ErrZeroAccount) {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(challengeResponse{Account: ch.Account.Hex(), Message: ch.Message, ExpiresAt: ch.ExpiresAt.Unix()})
}

type sessionRequest struct {
	Account   string `json:"account"`
	Signature string `json:"signature"`
}

type sessionResponse struct {
	Account     string `json:"account"`
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

// Session exchanges a signed challenge for a session token.
func (h *Handler) Session(c *fiber.Ctx) error {
	var req sessionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if !common.IsHexAddress(req.Account) {
		return fiber.NewError(http.StatusBadRequest, "account must be a hex address")
	}
	sig, err := hexutil.Decode(req.Signature)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "signature must be 0x-prefixed hex")
	}
	sess, err := h.svc.OpenSession(c.UserContext(), common.HexToAddress(req.Account), sig)
	if err != nil {
		switch {
		case errors.Is(err, ErrZeroAccount):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrChallengeNotFound), errors.Is(err, ErrSignatureMismatch):
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusOK).JSON(sessionResponse{Account: sess.Account.Hex(), AccessToken: sess.Token, ExpiresAt: sess.ExpiresAt.Unix()})
}
