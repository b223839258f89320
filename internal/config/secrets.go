package config

import (
	"errors"
	"os"
	"strings"
)

const (
	EnvAPIKey     = "OPENAI_API_KEY"
	EnvWorkflowID = "CHATKIT_WORKFLOW_ID"
)

var (
	ErrMissingAPIKey     = errors.New(EnvAPIKey + " is not configured")
	ErrMissingWorkflowID = errors.New(EnvWorkflowID + " is not configured")
)

// Secrets 是单个请求使用的上游凭证。
type Secrets struct {
	APIKey     string
	WorkflowID string
}

// Validate 在发起上游调用前检查两个必需的值。
func (s Secrets) Validate() error {
	if strings.TrimSpace(s.WorkflowID) == "" {
		return ErrMissingWorkflowID
	}
	if strings.TrimSpace(s.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// SecretSource resolves upstream credentials for one request.
type SecretSource interface {
	Secrets() Secrets
}

// SecretSourceFunc adapts a plain function to SecretSource.
type SecretSourceFunc func() Secrets

func (f SecretSourceFunc) Secrets() Secrets { return f() }

// EnvSecrets reads credentials from the process environment on every call so
// that rotating them does not require a restart.
type EnvSecrets struct{}

func (EnvSecrets) Secrets() Secrets {
	return Secrets{
		APIKey:     strings.TrimSpace(os.Getenv(EnvAPIKey)),
		WorkflowID: strings.TrimSpace(os.Getenv(EnvWorkflowID)),
	}
}

// StaticSecrets returns a source that always yields the given values.
func StaticSecrets(apiKey, workflowID string) SecretSource {
	return SecretSourceFunc(func() Secrets {
		return Secrets{APIKey: apiKey, WorkflowID: workflowID}
	})
}
