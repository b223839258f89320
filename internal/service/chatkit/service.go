package chatkit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zoneportal/backend/internal/config"
	model "github.com/zoneportal/backend/internal/model/chatkit"
	"github.com/zoneportal/backend/pkg/utils"
)

// Service issues ChatKit client secrets on behalf of the browser widget.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	cfg    config.ChatKitConfig
	client *http.Client
	now    func() time.Time
}

// NewService creates a session issuer. A nil client falls back to a plain
// http.Client; the per-call deadline comes from cfg.Timeout, not the client.
func NewService(cfg config.ChatKitConfig, client *http.Client) *Service {
	if client == nil {
		client = &http.Client{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Service{
		cfg:    cfg,
		client: client,
		now:    time.Now,
	}
}

// Timeout reports the bound applied to each upstream call.
func (s *Service) Timeout() time.Duration {
	return s.cfg.Timeout
}

// CreateSession validates secrets, calls the provider once and returns only
// the client secret.
func (s *Service) CreateSession(ctx context.Context, secrets config.Secrets, req model.SessionRequest) (model.SessionCredential, error) {
	if err := secrets.Validate(); err != nil {
		return model.SessionCredential{}, fmt.Errorf("%w: %w", ErrMissingConfiguration, err)
	}

	deviceID := req.ResolveDeviceID(s.now())
	requestID := uuid.NewString()
	logger := log.Ctx(ctx).With().
		Str("component", "chatkit").
		Str("client_request_id", requestID).
		Str("device_id", deviceID).
		Logger()

	logger.Info().
		Str("workflow_id", secrets.WorkflowID).
		Str("api_key", utils.MaskSecret(secrets.APIKey)).
		Msg("creating chatkit session")

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	httpReq, err := s.prepareRequest(callCtx, secrets.APIKey, requestID, model.UpstreamSessionRequest{
		Workflow: model.WorkflowRef{ID: secrets.WorkflowID},
		User:     deviceID,
	})
	if err != nil {
		return model.SessionCredential{}, err
	}

	call, err := s.post(httpReq)
	if err != nil {
		if isTimeout(callCtx, err) {
			logger.Warn().Dur("timeout", s.cfg.Timeout).Msg("chatkit session request timed out")
			return model.SessionCredential{}, fmt.Errorf("%w after %s", ErrTimeout, s.cfg.Timeout)
		}
		return model.SessionCredential{}, fmt.Errorf("call chatkit sessions: %w", err)
	}

	if !call.ok() {
		body := strings.TrimSpace(string(call.body))
		logger.Error().
			Int("status", call.statusCode).
			Str("upstream_body", body).
			Msg("chatkit rejected session request")
		return model.SessionCredential{}, &UpstreamError{StatusCode: call.statusCode, Body: body}
	}

	var decoded model.UpstreamSessionResponse
	if err := json.Unmarshal(call.body, &decoded); err != nil {
		return model.SessionCredential{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if decoded.ClientSecret == "" {
		return model.SessionCredential{}, fmt.Errorf("%w: client_secret missing", ErrInvalidResponse)
	}

	logger.Info().
		Str("client_secret", utils.MaskSecret(decoded.ClientSecret)).
		Msg("chatkit session created")

	return model.SessionCredential{ClientSecret: decoded.ClientSecret}, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
