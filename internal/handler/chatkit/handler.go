package chatkit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/zoneportal/backend/internal/config"
	model "github.com/zoneportal/backend/internal/model/chatkit"
	chatkitsvc "github.com/zoneportal/backend/internal/service/chatkit"
	"github.com/zoneportal/backend/pkg/utils"
)

const (
	msgMissingConfiguration = "ChatKit is not configured: missing API key or workflow id"
	msgUpstreamRejected     = "Failed to create ChatKit session"
	msgTimeout              = "ChatKit session request timeout"
	msgInternal             = "Internal server error"
)

// SessionIssuer 抽象会话签发，便于测试替换
type SessionIssuer interface {
	CreateSession(ctx context.Context, secrets config.Secrets, req model.SessionRequest) (model.SessionCredential, error)
}

// Handler ChatKit 会话的HTTP处理器
type Handler struct {
	issuer       SessionIssuer
	secrets      config.SecretSource
	maxBodyBytes int64
}

// New 创建 ChatKit 处理器
func New(issuer SessionIssuer, secrets config.SecretSource, maxBodyBytes int64) *Handler {
	if secrets == nil {
		secrets = config.EnvSecrets{}
	}
	return &Handler{
		issuer:       issuer,
		secrets:      secrets,
		maxBodyBytes: maxBodyBytes,
	}
}

// RegisterRoutes 注册 ChatKit 相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/chatkit", func(ck chi.Router) {
		ck.Post("/session", h.handleCreateSession)
		ck.Get("/health", h.handleHealth)
	})
}

// handleCreateSession 为前端签发 client_secret
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	req := h.decodeRequest(r)

	// The issuer rejects missing secrets before any upstream call.
	cred, err := h.issuer.CreateSession(r.Context(), h.secrets.Secrets(), req)
	if err != nil {
		status, message := classify(err)
		log.Ctx(r.Context()).Error().Err(err).Int("status", status).Msg("chatkit session creation failed")
		utils.RespondError(w, status, message)
		return
	}

	utils.RespondJSON(w, http.StatusOK, cred)
}

// decodeRequest never fails: a missing, oversize or malformed body yields an
// empty request and the device id is synthesized downstream.
func (h *Handler) decodeRequest(r *http.Request) model.SessionRequest {
	var req model.SessionRequest
	if r.Body == nil {
		return req
	}

	var body io.Reader = r.Body
	if h.maxBodyBytes > 0 {
		body = io.LimitReader(r.Body, h.maxBodyBytes)
	}

	if err := json.NewDecoder(body).Decode(&req); err != nil {
		if !errors.Is(err, io.EOF) {
			log.Ctx(r.Context()).Debug().Err(err).Msg("ignoring unparsable chatkit session body")
		}
		return model.SessionRequest{}
	}
	return req
}

func classify(err error) (int, string) {
	var upstreamErr *chatkitsvc.UpstreamError
	switch {
	case errors.Is(err, chatkitsvc.ErrMissingConfiguration):
		return http.StatusInternalServerError, msgMissingConfiguration
	case errors.Is(err, chatkitsvc.ErrTimeout):
		return http.StatusGatewayTimeout, msgTimeout
	case errors.As(err, &upstreamErr):
		return upstreamErr.StatusCode, msgUpstreamRejected
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// handleHealth 健康检查端点
func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "chatkit",
	})
}
