package middleware

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/faceguard/faceguard/internal/auth"
)

func TestSessionAuth(t *testing.T) {
	svc := auth.NewService(auth.NewMemoryChallengeStore(), "0123456789abcdef0123456789abcdef", time.Minute, time.Minute)

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	account := crypto.PubkeyToAddress(key.PublicKey)
	ch, err := svc.IssueChallenge(context.Background(), account)
	if err != nil {
		t.Fatalf("issue challenge: %v", err)
	}
	sig, err := crypto.Sign(accounts.TextHash([]byte(ch.Message)), key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sess, err := svc.OpenSession(context.Background(), account, sig)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}

	app := fiber.New()
	app.Get("/whoami", SessionAuth(svc), func(c *fiber.Ctx) error {
		caller, ok := auth.Caller(c)
		if !ok {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		return c.SendString(caller.Hex())
	})

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", fiber.StatusUnauthorized},
		{"garbage", "Bearer not-a-token", fiber.StatusUnauthorized},
		{"valid", "Bearer " + sess.Token, fiber.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
			if tc.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tc.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d got %d", tc.status, resp.StatusCode)
			}
			if tc.status == fiber.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				if string(body) != account.Hex() {
					t.Fatalf("expected caller %s got %s", account.Hex(), body)
				}
			}
		})
	}
}

func TestChallengeRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New()
	app.Post("/auth/challenge", ChallengeRateLimit(cache, 2), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	send := func(account string) int {
		req := httptest.NewRequest(fiber.MethodPost, "/auth/challenge", strings.NewReader(`{"account":"`+account+`"}`))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	const a = "0x00000000000000000000000000000000000000a1"
	for i := 0; i < 2; i++ {
		if got := send(a); got != fiber.StatusCreated {
			t.Fatalf("request %d: expected 201 got %d", i, got)
		}
	}
	if got := send(a); got != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", got)
	}
	if got := send("0x00000000000000000000000000000000000000a2"); got != fiber.StatusCreated {
		t.Fatalf("other account should not be limited, got %d", got)
	}
}
