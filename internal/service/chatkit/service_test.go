package chatkit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoneportal/backend/internal/config"
	model "github.com/zoneportal/backend/internal/model/chatkit"
)

type capturedRequest struct {
	path    string
	headers http.Header
	body    model.UpstreamSessionRequest
}

func newUpstream(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, got capturedRequest)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		got := capturedRequest{path: r.URL.Path, headers: r.Header.Clone()}
		_ = json.NewDecoder(r.Body).Decode(&got.body)
		handler(w, r, got)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestService(baseURL string, timeout time.Duration) *Service {
	return NewService(config.ChatKitConfig{
		BaseURL:    baseURL,
		BetaHeader: "chatkit_beta=v1",
		Timeout:    timeout,
	}, nil)
}

var validSecrets = config.Secrets{APIKey: "sk-test-key", WorkflowID: "wf_tourism"}

func TestCreateSessionForwardsRequest(t *testing.T) {
	captured := make(chan capturedRequest, 1)
	srv, _ := newUpstream(t, func(w http.ResponseWriter, _ *http.Request, got capturedRequest) {
		captured <- got
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cksess_1","client_secret":"abc123","expires_at":1700000000,"workflow":{"id":"wf_tourism"}}`))
	})

	deviceID := "device-from-browser"
	svc := newTestService(srv.URL+"/v1", time.Second)
	cred, err := svc.CreateSession(context.Background(), validSecrets, model.SessionRequest{DeviceID: &deviceID})
	require.NoError(t, err)

	assert.Equal(t, model.SessionCredential{ClientSecret: "abc123"}, cred)

	seen := <-captured
	assert.Equal(t, "/v1/chatkit/sessions", seen.path)
	assert.Equal(t, "application/json", seen.headers.Get("Content-Type"))
	assert.Equal(t, "chatkit_beta=v1", seen.headers.Get("OpenAI-Beta"))
	assert.Equal(t, "Bearer sk-test-key", seen.headers.Get("Authorization"))
	assert.NotEmpty(t, seen.headers.Get("X-Client-Request-Id"))
	assert.Equal(t, "wf_tourism", seen.body.Workflow.ID)
	assert.Equal(t, deviceID, seen.body.User)
}

func TestCreateSessionSynthesizesDeviceID(t *testing.T) {
	users := make(chan string, 1)
	srv, _ := newUpstream(t, func(w http.ResponseWriter, _ *http.Request, got capturedRequest) {
		users <- got.body.User
		_, _ = w.Write([]byte(`{"client_secret":"abc123"}`))
	})

	svc := newTestService(srv.URL, time.Second)
	svc.now = func() time.Time { return time.UnixMilli(1731234567890) }

	_, err := svc.CreateSession(context.Background(), validSecrets, model.SessionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "user_1731234567890", <-users)
}

func TestCreateSessionMissingConfigurationSkipsUpstream(t *testing.T) {
	srv, calls := newUpstream(t, func(w http.ResponseWriter, _ *http.Request, _ capturedRequest) {
		_, _ = w.Write([]byte(`{"client_secret":"abc123"}`))
	})
	svc := newTestService(srv.URL, time.Second)

	cases := map[string]config.Secrets{
		"no api key":     {WorkflowID: "wf_tourism"},
		"no workflow id": {APIKey: "sk-test-key"},
		"nothing":        {},
	}
	for name, secrets := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateSession(context.Background(), secrets, model.SessionRequest{})
			assert.ErrorIs(t, err, ErrMissingConfiguration)
		})
	}
	assert.Equal(t, int32(0), calls.Load())
}

func TestCreateSessionUpstreamRejected(t *testing.T) {
	srv, _ := newUpstream(t, func(w http.ResponseWriter, _ *http.Request, _ capturedRequest) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	})
	svc := newTestService(srv.URL, time.Second)

	_, err := svc.CreateSession(context.Background(), validSecrets, model.SessionRequest{})

	var upstreamErr *UpstreamError
	require.True(t, errors.As(err, &upstreamErr), "expected UpstreamError, got %v", err)
	assert.Equal(t, http.StatusUnauthorized, upstreamErr.StatusCode)
	assert.Contains(t, upstreamErr.Body, "Incorrect API key")
	assert.NotContains(t, err.Error(), "Incorrect API key")
}

func TestCreateSessionTimeout(t *testing.T) {
	srv, _ := newUpstream(t, func(w http.ResponseWriter, r *http.Request, _ capturedRequest) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	svc := newTestService(srv.URL, 50*time.Millisecond)

	start := time.Now()
	_, err := svc.CreateSession(context.Background(), validSecrets, model.SessionRequest{})

	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCreateSessionInvalidUpstreamPayload(t *testing.T) {
	bodies := map[string]string{
		"malformed json": `{"client_secret":`,
		"missing secret": `{"id":"cksess_1"}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv, _ := newUpstream(t, func(w http.ResponseWriter, _ *http.Request, _ capturedRequest) {
				_, _ = w.Write([]byte(body))
			})
			svc := newTestService(srv.URL, time.Second)

			_, err := svc.CreateSession(context.Background(), validSecrets, model.SessionRequest{})
			assert.ErrorIs(t, err, ErrInvalidResponse)
		})
	}
}

func TestCreateSessionNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	svc := newTestService(url, time.Second)
	_, err := svc.CreateSession(context.Background(), validSecrets, model.SessionRequest{})

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.NotErrorIs(t, err, ErrMissingConfiguration)
}

func TestCreateSessionConcurrentCallsAreIndependent(t *testing.T) {
	srv, _ := newUpstream(t, func(w http.ResponseWriter, _ *http.Request, got capturedRequest) {
		_ = json.NewEncoder(w).Encode(map[string]string{"client_secret": "secret-for-" + got.body.User})
	})
	svc := newTestService(srv.URL, time.Second)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			deviceID := fmt.Sprintf("device-%d", i)
			cred, err := svc.CreateSession(context.Background(), validSecrets, model.SessionRequest{DeviceID: &deviceID})
			if err != nil {
				errs <- err
				return
			}
			if cred.ClientSecret != "secret-for-"+deviceID {
				errs <- fmt.Errorf("device %s got %s", deviceID, cred.ClientSecret)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestNewServiceDefaultsTimeout(t *testing.T) {
	svc := NewService(config.ChatKitConfig{BaseURL: "https://api.openai.com/v1"}, nil)
	assert.Equal(t, 10*time.Second, svc.Timeout())
}

func TestSyntheticDeviceIDShape(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^user_\d+$`), model.SyntheticDeviceID(time.Now()))
}

func TestCreateSessionLogsOnlyMaskedSecrets(t *testing.T) {
	const (
		apiKey       = "sk-proj-VERYSECRETKEY"
		clientSecret = "ek_FULLSECRETVALUE_xyz"
	)

	srv, _ := newUpstream(t, func(w http.ResponseWriter, _ *http.Request, got capturedRequest) {
		if got.body.User == "rejected-device" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"client_secret": clientSecret})
	})
	svc := newTestService(srv.URL, time.Second)
	secrets := config.Secrets{APIKey: apiKey, WorkflowID: "wf_tourism"}

	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())

	accepted := "accepted-device"
	cred, err := svc.CreateSession(ctx, secrets, model.SessionRequest{DeviceID: &accepted})
	require.NoError(t, err)
	require.Equal(t, clientSecret, cred.ClientSecret)

	rejected := "rejected-device"
	_, err = svc.CreateSession(ctx, secrets, model.SessionRequest{DeviceID: &rejected})
	require.Error(t, err)

	logs := buf.String()
	assert.NotContains(t, logs, apiKey)
	assert.NotContains(t, logs, clientSecret)
	assert.Contains(t, logs, `"api_key":"sk-p********"`)
	assert.Contains(t, logs, `"client_secret":"ek_F********"`)
	assert.Contains(t, logs, "chatkit rejected session request")
}
