package liveness

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPVerifier calls a remote proof-verification service.
type HTTPVerifier struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPVerifier creates a client for the verifier at baseURL.
func NewHTTPVerifier(baseURL string, timeout time.Duration) *HTTPVerifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPVerifier{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type verifyRequest struct {
	Proof string `json:"proof"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

// Verify posts the proof and returns the service's verdict.
func (c *HTTPVerifier) Verify(ctx context.Context, proof []byte) (bool, error) {
	url := fmt.Sprintf("%s/v1/liveness/verify", c.baseURL)

	payload, err := json.Marshal(verifyRequest{Proof: base64.StdEncoding.EncodeToString(proof)})
	if err != nil {
		return false, fmt.Errorf("marshal verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("create verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("execute verify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return false, fmt.Errorf("verify failed with status %d: %s", resp.StatusCode, string(body))
	}

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("decode verify response: %w", err)
	}
	return out.Valid, nil
}

// HealthCheck verifies the remote service is reachable.
func (c *HTTPVerifier) HealthCheck(ctx context.Context) error {
	url := fmt.Sprintf("%s/healthz", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute health check request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status %d", resp.StatusCode)
	}
	return nil
}
