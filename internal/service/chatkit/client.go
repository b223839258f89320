package chatkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	model "github.com/zoneportal/backend/internal/model/chatkit"
)

const (
	sessionsPath     = "/chatkit/sessions"
	errorBodyLimit   = 4 * 1024
	sessionBodyLimit = 1 << 20
	clientRequestHdr = "X-Client-Request-Id"
)

// upstreamCall is the raw outcome of one POST to the provider.
type upstreamCall struct {
	statusCode int
	body       []byte
}

func (c upstreamCall) ok() bool {
	return c.statusCode >= 200 && c.statusCode < 300
}

func (s *Service) prepareRequest(ctx context.Context, apiKey, requestID string, payload model.UpstreamSessionRequest) (*http.Request, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode session request: %w", err)
	}

	url := strings.TrimRight(s.cfg.BaseURL, "/") + sessionsPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OpenAI-Beta", s.cfg.BetaHeader)
	req.Header.Set("Authorization", "Bearer "+apiKey)
	if requestID != "" {
		req.Header.Set(clientRequestHdr, requestID)
	}
	return req, nil
}

// post sends the request and reads the response body while ctx is still live,
// so a deadline that fires mid-body is reported like one that fires on connect.
func (s *Service) post(req *http.Request) (upstreamCall, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return upstreamCall{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	limit := int64(sessionBodyLimit)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		limit = errorBodyLimit
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return upstreamCall{}, fmt.Errorf("read session response: %w", err)
	}
	return upstreamCall{statusCode: resp.StatusCode, body: body}, nil
}
