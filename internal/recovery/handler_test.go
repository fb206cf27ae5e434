package recovery

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gofiber/fiber/v2"

	"github.com/faceguard/faceguard/internal/auth"
	"github.com/faceguard/faceguard/internal/logging"
)

func newTestApp(t *testing.T, s *Signer, caller common.Address) *fiber.App {
	t.Helper()
	h := NewHandler(s, logging.Discard())
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if caller != (common.Address{}) {
			c.Locals(auth.AccountLocal, caller)
		}
		return c.Next()
	})
	app.Post("/verify", h.Verify)
	app.Post("/enrollment", h.Enroll)
	app.Put("/enrollment", h.Update)
	app.Delete("/enrollment", h.Revoke)
	app.Get("/enrollment", h.Enrollment)
	app.Post("/nonce", h.ConsumeNonce)
	app.Get("/nonce", h.Nonce)
	return app
}

func do(t *testing.T, app *fiber.App, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestHandlerRecoveryFlow(t *testing.T) {
	s, _ := newTestSigner(t, newCountingVerifier(true))
	app := newTestApp(t, s, alice)
	face := newFaceKey(t)

	enroll := map[string]string{"face_key_hash": face.hash.Hex(), "liveness_proof": hexutil.Encode(goodProof)}
	status, body := do(t, app, fiber.MethodPost, "/enrollment", enroll)
	if status != fiber.StatusCreated {
		t.Fatalf("enroll: expected 201 got %d (%v)", status, body)
	}
	if body["face_key_hash"] != face.hash.Hex() {
		t.Fatalf("unexpected hash %v", body["face_key_hash"])
	}

	status, _ = do(t, app, fiber.MethodPost, "/enrollment", enroll)
	if status != fiber.StatusConflict {
		t.Fatalf("second enroll: expected 409 got %d", status)
	}

	status, body = do(t, app, fiber.MethodGet, "/enrollment", nil)
	if status != fiber.StatusOK || body["enrolled"] != true {
		t.Fatalf("enrollment: got %d %v", status, body)
	}

	verify := map[string]string{
		"digest":    testDigest.Hex(),
		"signature": hexutil.Encode(face.pack(t, testDigest, 1, goodProof)),
		"key_hash":  face.hash.Hex(),
	}
	status, body = do(t, app, fiber.MethodPost, "/verify", verify)
	if status != fiber.StatusOK || body["valid"] != true {
		t.Fatalf("verify: got %d %v", status, body)
	}

	status, body = do(t, app, fiber.MethodPost, "/nonce", map[string]string{"nonce": "1"})
	if status != fiber.StatusOK || body["nonce"] != "1" {
		t.Fatalf("consume: got %d %v", status, body)
	}
	status, _ = do(t, app, fiber.MethodPost, "/nonce", map[string]string{"nonce": "1"})
	if status != fiber.StatusConflict {
		t.Fatalf("replay consume: expected 409 got %d", status)
	}

	status, body = do(t, app, fiber.MethodPost, "/verify", verify)
	if status != fiber.StatusOK || body["valid"] != false {
		t.Fatalf("verify after consume: got %d %v", status, body)
	}

	status, body = do(t, app, fiber.MethodGet, "/nonce", nil)
	if status != fiber.StatusOK || body["nonce"] != "1" {
		t.Fatalf("nonce: got %d %v", status, body)
	}

	status, _ = do(t, app, fiber.MethodDelete, "/enrollment", nil)
	if status != fiber.StatusOK {
		t.Fatalf("revoke: expected 200 got %d", status)
	}
	status, _ = do(t, app, fiber.MethodDelete, "/enrollment", nil)
	if status != fiber.StatusNotFound {
		t.Fatalf("second revoke: expected 404 got %d", status)
	}
}

func TestHandlerRejectsBadInput(t *testing.T) {
	s, _ := newTestSigner(t, newCountingVerifier(true))
	app := newTestApp(t, s, alice)
	face := newFaceKey(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"short hash", fiber.MethodPost, "/enrollment", map[string]string{"face_key_hash": "0x1234", "liveness_proof": hexutil.Encode(goodProof)}, fiber.StatusBadRequest},
		{"proof not hex", fiber.MethodPost, "/enrollment", map[string]string{"face_key_hash": face.hash.Hex(), "liveness_proof": "zz"}, fiber.StatusBadRequest},
		{"zero hash", fiber.MethodPost, "/enrollment", map[string]string{"face_key_hash": common.Hash{}.Hex(), "liveness_proof": hexutil.Encode(goodProof)}, fiber.StatusUnprocessableEntity},
		{"short proof", fiber.MethodPut, "/enrollment", map[string]string{"face_key_hash": face.hash.Hex(), "liveness_proof": hexutil.Encode(goodProof[:10])}, fiber.StatusUnprocessableEntity},
		{"nonce not decimal", fiber.MethodPost, "/nonce", map[string]string{"nonce": "abc"}, fiber.StatusBadRequest},
		{"nonce too wide", fiber.MethodPost, "/nonce", map[string]string{"nonce": "18446744073709551616"}, fiber.StatusBadRequest},
		{"zero nonce", fiber.MethodPost, "/nonce", map[string]string{"nonce": "0"}, fiber.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := do(t, app, tc.method, tc.path, tc.body)
			if status != tc.status {
				t.Fatalf("expected %d got %d (%v)", tc.status, status, body)
			}
		})
	}
}

func TestHandlerVerifyMalformedIsFalse(t *testing.T) {
	s, _ := newTestSigner(t, newCountingVerifier(true))
	app := newTestApp(t, s, alice)

	status, body := do(t, app, fiber.MethodPost, "/verify", map[string]string{"digest": "nope", "signature": "0x00", "key_hash": "0x"})
	if status != fiber.StatusOK || body["valid"] != false {
		t.Fatalf("expected 200 valid=false, got %d %v", status, body)
	}
}

func TestHandlerRequiresCaller(t *testing.T) {
	s, _ := newTestSigner(t, newCountingVerifier(true))
	app := newTestApp(t, s, common.Address{})

	for _, path := range []string{"/enrollment", "/nonce"} {
		status, _ := do(t, app, fiber.MethodGet, path, nil)
		if status != fiber.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", path, status)
		}
	}
}
