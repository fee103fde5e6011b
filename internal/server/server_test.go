package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/docflow/apiserver/config"
	"github.com/docflow/apiserver/internal/services"
	"github.com/docflow/apiserver/internal/store"
	"github.com/docflow/apiserver/internal/testutils"
	"github.com/docflow/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *httptest.Server {
	t.Helper()
	cfg := testutils.SQLiteConfig(t)
	if mutate != nil {
		mutate(&cfg)
	}

	seedConn := testutils.MigratedDB(t, cfg)
	ctx, cancel := testutils.ContextWithTimeout(t)
	defer cancel()
	users := services.NewUserService(store.NewUserRepository(seedConn))
	_, _, err := users.Provision(ctx, "admin", "admin123", types.RoleAdministrator)
	require.NoError(t, err)
	_, _, err = users.Provision(ctx, "manager", "manager123", types.RoleManager)
	require.NoError(t, err)

	srv, err := New(ctx, cfg, testutils.TestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func request(t *testing.T, ts *httptest.Server, method, path, token string, payload any) (int, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func loginAs(t *testing.T, ts *httptest.Server, username, password string) string {
	t.Helper()
	status, body := request(t, ts, http.MethodPost, "/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, status, string(body))
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestServerScenario(t *testing.T) {
	ts := newTestServer(t, nil)

	status, _ := request(t, ts, http.MethodPost, "/login", "", map[string]string{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)

	token := loginAs(t, ts, "admin", "admin123")
	document := map[string]any{"code": 1001, "subject": "Тема", "sender": "Иванов", "receiver": "Петров"}

	status, body := request(t, ts, http.MethodPost, "/documents", token, document)
	require.Equal(t, http.StatusCreated, status, string(body))
	var created struct {
		ID     int    `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "draft", created.Status)

	status, _ = request(t, ts, http.MethodPost, "/documents", token, document)
	assert.Equal(t, http.StatusConflict, status)

	path := "/documents/" + strconv.Itoa(created.ID)
	status, _ = request(t, ts, http.MethodPost, path+"/send", token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = request(t, ts, http.MethodPatch, path, token, map[string]any{"message": "x"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = request(t, ts, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = request(t, ts, http.MethodGet, "/documents/99999", token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = request(t, ts, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `docflow_document_operations_total{operation="create",outcome="ok"} 1`)
	assert.Contains(t, string(body), `docflow_document_operations_total{operation="create",outcome="rejected"} 1`)
	assert.Contains(t, string(body), `route="/documents/{documentID}/send"`)
}

func TestServerPolicyFromConfig(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.Documents.SendRequiredRole = string(types.RoleAdministrator)
		cfg.Metrics.Enabled = false
	})

	admin := loginAs(t, ts, "admin", "admin123")
	manager := loginAs(t, ts, "manager", "manager123")

	status, body := request(t, ts, http.MethodPost, "/documents", admin, map[string]any{
		"code": 5, "subject": "Тема", "sender": "Иванов", "receiver": "Петров",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var created struct {
		ID int `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &created))

	status, _ = request(t, ts, http.MethodPost, "/documents/"+strconv.Itoa(created.ID)+"/send", manager, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = request(t, ts, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestNewRejectsBadConfig(t *testing.T) {
	ctx := context.Background()
	logger := testutils.TestLogger(t)

	cfg := testutils.SQLiteConfig(t)
	cfg.Auth.JWTSecret = ""
	_, err := New(ctx, cfg, logger)
	assert.ErrorContains(t, err, "JWT_SECRET")

	cfg = testutils.SQLiteConfig(t)
	cfg.Documents.UpdateRequiredRole = "owner"
	_, err = New(ctx, cfg, logger)
	assert.ErrorContains(t, err, "UPDATE_REQUIRED_ROLE")

	cfg = testutils.SQLiteConfig(t)
	cfg.Storage.Backend = "ftp"
	_, err = New(ctx, cfg, logger)
	assert.ErrorContains(t, err, "unknown storage backend")
}
