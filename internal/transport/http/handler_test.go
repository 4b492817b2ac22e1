package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboard/internal/domain"
	"onboard/internal/jwttoken"
	"onboard/internal/status"
	"onboard/internal/workflow"
	dErrors "onboard/pkg/domain-errors"
)

type stubWorkflow struct {
	startResult *workflow.StartResult
	startErr    error
	abortState  *domain.ExecutionState
	abortErr    error
}

func (s *stubWorkflow) Start(ctx context.Context, req *workflow.StartRequest) (*workflow.StartResult, error) {
	return s.startResult, s.startErr
}

func (s *stubWorkflow) Abort(ctx context.Context, executionID string) (*domain.ExecutionState, error) {
	return s.abortState, s.abortErr
}

type stubStatus struct {
	resp *status.Response
	err  error
}

func (s *stubStatus) Get(ctx context.Context, executionID string) (*status.Response, error) {
	return s.resp, s.err
}

var testJWT = jwttoken.NewJWTService("test-signing-key", "test-issuer", "test-audience")

func newTestServer(t *testing.T, wf WorkflowService, st StatusService) *httptest.Server {
	t.Helper()
	handler := New(wf, st, slog.New(slog.NewTextHandler(io.Discard, nil)))
	server := httptest.NewServer(NewRouter(handler, testJWT))
	t.Cleanup(server.Close)
	return server
}

func authedRequest(t *testing.T, method, url, body string) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)

	token, err := testJWT.GenerateAccessToken("cust-1", time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

const validStartBody = `{
	"customer_id": "cust-1",
	"profile": {
		"first_name": "Jan",
		"last_name": "Dough",
		"email": "jan@example.com",
		"date_of_birth": "1990-04-12",
		"last4_ssn": "6789"
	}
}`

func TestHandleStart(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		wf := &stubWorkflow{startResult: &workflow.StartResult{
			ExecutionID:   "exec-1",
			ApplicationID: "app-1",
			StartedAt:     time.Now(),
		}}
		server := newTestServer(t, wf, &stubStatus{})

		resp, err := http.DefaultClient.Do(authedRequest(t, http.MethodPost, server.URL+"/onboarding/start", validStartBody))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
		var result workflow.StartResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, "exec-1", result.ExecutionID)
	})

	t.Run("validation failure is 400", func(t *testing.T) {
		server := newTestServer(t, &stubWorkflow{}, &stubStatus{})

		resp, err := http.DefaultClient.Do(authedRequest(t, http.MethodPost, server.URL+"/onboarding/start",
			`{"customer_id": "", "profile": {}}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		server := newTestServer(t, &stubWorkflow{}, &stubStatus{})

		resp, err := http.DefaultClient.Do(authedRequest(t, http.MethodPost, server.URL+"/onboarding/start", "{not json"))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("token for another customer is 401", func(t *testing.T) {
		server := newTestServer(t, &stubWorkflow{}, &stubStatus{})

		body := strings.Replace(validStartBody, "cust-1", "cust-2", 1)
		resp, err := http.DefaultClient.Do(authedRequest(t, http.MethodPost, server.URL+"/onboarding/start", body))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("service failure is translated", func(t *testing.T) {
		wf := &stubWorkflow{startErr: dErrors.New(dErrors.CodeConflict, "execution already exists")}
		server := newTestServer(t, wf, &stubStatus{})

		resp, err := http.DefaultClient.Do(authedRequest(t, http.MethodPost, server.URL+"/onboarding/start", validStartBody))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})
}

func TestHandleStatus(t *testing.T) {
	t.Run("running execution", func(t *testing.T) {
		st := &stubStatus{resp: &status.Response{
			ExecutionID:  "exec-1",
			Status:       domain.StatusRunning,
			CurrentStage: domain.StageParallelVerification,
		}}
		server := newTestServer(t, &stubWorkflow{}, st)

		resp, err := http.DefaultClient.Do(authedRequest(t, http.MethodGet, server.URL+"/onboarding/status/exec-1", ""))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body status.Response
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, domain.StageParallelVerification, body.CurrentStage)
	})

	t.Run("unknown execution is 404", func(t *testing.T) {
		st := &stubStatus{err: dErrors.New(dErrors.CodeNotFound, "execution not found")}
		server := newTestServer(t, &stubWorkflow{}, st)

		resp, err := http.DefaultClient.Do(authedRequest(t, http.MethodGet, server.URL+"/onboarding/status/nope", ""))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("internal errors hide detail", func(t *testing.T) {
		st := &stubStatus{err: errors.New("pq: connection refused")}
		server := newTestServer(t, &stubWorkflow{}, st)

		resp, err := http.DefaultClient.Do(authedRequest(t, http.MethodGet, server.URL+"/onboarding/status/exec-1", ""))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.NotContains(t, string(body), "connection refused")
	})
}

func TestHandleAbort(t *testing.T) {
	t.Run("aborts running execution", func(t *testing.T) {
		wf := &stubWorkflow{abortState: &domain.ExecutionState{
			ID:     "exec-1",
			Status: domain.StatusAborted,
		}}
		server := newTestServer(t, wf, &stubStatus{})

		resp, err := http.DefaultClient.Do(authedRequest(t, http.MethodPost, server.URL+"/onboarding/abort/exec-1", ""))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, string(domain.StatusAborted), body["status"])
	})

	t.Run("finished execution is 409", func(t *testing.T) {
		wf := &stubWorkflow{abortErr: dErrors.New(dErrors.CodeConflict, "execution already finished")}
		server := newTestServer(t, wf, &stubStatus{})

		resp, err := http.DefaultClient.Do(authedRequest(t, http.MethodPost, server.URL+"/onboarding/abort/exec-1", ""))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})
}

func TestAuth(t *testing.T) {
	server := newTestServer(t, &stubWorkflow{}, &stubStatus{})

	t.Run("missing token is 401", func(t *testing.T) {
		resp, err := http.Post(server.URL+"/onboarding/start", "application/json", strings.NewReader(validStartBody))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("garbage token is 401", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, server.URL+"/onboarding/status/exec-1", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer nope")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("healthz needs no token", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
