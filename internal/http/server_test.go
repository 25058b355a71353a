package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/davidbz/promptdesk/internal/config"
	"github.com/davidbz/promptdesk/internal/domain"
	api "github.com/davidbz/promptdesk/internal/http"
	"github.com/davidbz/promptdesk/internal/http/middleware"
	"github.com/davidbz/promptdesk/internal/provider/echo"
	"github.com/davidbz/promptdesk/internal/provider/registry"
	"github.com/davidbz/promptdesk/internal/queue/redisqueue"
	"github.com/davidbz/promptdesk/internal/storage/gormstore"
)

type testEnv struct {
	handler http.Handler
	store   *gormstore.Store
	redis   *miniredis.Miniredis
	key     *domain.APIKey
}

func newTestEnv(t *testing.T, adminUsers map[string]string) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := gormstore.Open("sqlite", filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	require.NoError(t, gormstore.Migrate(db))
	store := gormstore.NewStore(db)

	reg := registry.NewRegistry(nil, domain.ProviderEcho)
	require.NoError(t, reg.Register(ctx, echo.NewProvider()))
	gateway := domain.NewGatewayService(reg, "")

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	dispatcher := redisqueue.NewDispatcher(client, redisqueue.Config{QueueName: "api"})

	service := domain.NewRequestService(store, store, gateway, dispatcher, domain.Defaults{Engine: echo.ModelName})

	server := api.NewServer(
		&config.ServerConfig{Port: 0},
		&config.AdminConfig{Users: adminUsers},
		api.NewHandler(service, store),
		api.NewAdminHandler(store, service, dispatcher),
		middleware.BuildMiddlewareChain(nil),
	)

	key := &domain.APIKey{Key: "validkey", Active: true}
	require.NoError(t, store.CreateAPIKey(ctx, key))
	require.NoError(t, store.CreateAPIKey(ctx, &domain.APIKey{Key: "inactivekey", Active: false}))

	return &testEnv{handler: server.Routes(), store: store, redis: mr, key: key}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return e.doAs(t, method, path, body, "", "")
}

func (e *testEnv) doAs(t *testing.T, method, path string, body any, user, pass string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.SetBasicAuth(user, pass)
	}

	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (e *testEnv) createAsync(t *testing.T, prompt string) uint {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/request/", map[string]any{"key": "validkey", "request": prompt})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return uint(decode(t, w)["id"].(float64))
}

func TestCreateRequest(t *testing.T) {
	t.Run("should resolve a synchronous request", func(t *testing.T) {
		env := newTestEnv(t, nil)

		w := env.do(t, http.MethodPost, "/api/request/", map[string]any{
			"key":          "validkey",
			"request":      "Hello!",
			"asynchronous": false,
		})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		body := decode(t, w)
		require.Equal(t, true, body["is_completed"])
		require.Equal(t, false, body["is_failed"])
		require.Equal(t, false, body["is_processing"])
		require.Equal(t, "Hello!", body["answer"])
		require.Equal(t, echo.ModelName, body["engine"])
		require.Equal(t, float64(env.key.ID), body["api_key_id"])
		require.NotContains(t, body, "key")
		require.Len(t, body["created_at_ms"], len(domain.MillisLayout))
		require.Equal(t, body["total_tokens"], body["prompt_tokens"].(float64)+body["completion_tokens"].(float64))

		key, err := env.store.GetAPIKey(context.Background(), env.key.ID)
		require.NoError(t, err)
		require.Equal(t, int64(1), key.Usage)
	})

	t.Run("should wrap the answer in JSON mode", func(t *testing.T) {
		env := newTestEnv(t, nil)

		w := env.do(t, http.MethodPost, "/api/request", map[string]any{
			"key":          "validkey",
			"request":      "hi",
			"is_json":      true,
			"asynchronous": false,
		})

		require.Equal(t, http.StatusCreated, w.Code)
		require.JSONEq(t, `{"echo":"hi"}`, decode(t, w)["answer"].(string))
	})

	t.Run("should reject an unknown key", func(t *testing.T) {
		env := newTestEnv(t, nil)

		w := env.do(t, http.MethodPost, "/api/request/", map[string]any{"key": "badkey", "request": "Hello!"})

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.JSONEq(t, `{"key":["API key does not exist"]}`, w.Body.String())
	})

	t.Run("should reject an inactive key", func(t *testing.T) {
		env := newTestEnv(t, nil)

		w := env.do(t, http.MethodPost, "/api/request/", map[string]any{"key": "inactivekey", "request": "Hello!"})

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.JSONEq(t, `{"message":"API key is not active"}`, w.Body.String())
	})

	t.Run("should report missing fields", func(t *testing.T) {
		env := newTestEnv(t, nil)

		w := env.do(t, http.MethodPost, "/api/request/", map[string]any{})

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.JSONEq(t, `{"key":["This field is required."],"request":["This field is required."]}`, w.Body.String())
	})

	t.Run("should reject a malformed body", func(t *testing.T) {
		env := newTestEnv(t, nil)

		w := env.do(t, http.MethodPost, "/api/request/", "{not json")

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Contains(t, decode(t, w)["message"], "invalid request body")
	})

	t.Run("should return 500 when synchronous resolution fails", func(t *testing.T) {
		env := newTestEnv(t, nil)

		w := env.do(t, http.MethodPost, "/api/request/", map[string]any{
			"key":          "validkey",
			"request":      echo.FailurePrompt,
			"asynchronous": false,
		})

		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.JSONEq(t, `{"message":"Failed to resolve request"}`, w.Body.String())

		reqs, err := env.store.ListRequests(context.Background(), domain.RequestFilter{})
		require.NoError(t, err)
		require.Len(t, reqs, 1)
		require.True(t, reqs[0].IsFailed)
	})

	t.Run("should queue asynchronous requests", func(t *testing.T) {
		env := newTestEnv(t, nil)

		w := env.do(t, http.MethodPost, "/api/request/", map[string]any{"key": "validkey", "request": "later"})

		require.Equal(t, http.StatusCreated, w.Code)
		body := decode(t, w)
		require.Equal(t, false, body["is_completed"])
		require.Equal(t, "pending", body["status"])
		require.NotEmpty(t, body["job_id"])

		items, err := env.redis.List("api:jobs")
		require.NoError(t, err)
		require.Len(t, items, 1)
		require.Contains(t, items[0], body["job_id"].(string))
	})
}

func TestRequestLifecycleEndpoints(t *testing.T) {
	t.Run("should cancel an asynchronous request", func(t *testing.T) {
		env := newTestEnv(t, nil)
		id := env.createAsync(t, "later")

		w := env.do(t, http.MethodPost, fmt.Sprintf("/api/request/%d/cancel/", id), nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decode(t, w)
		require.Equal(t, true, body["is_cancelled"])
		require.Equal(t, false, body["is_completed"])
		require.True(t, env.redis.Exists("api:revoked:"+body["job_id"].(string)))
	})

	t.Run("should resolve on demand", func(t *testing.T) {
		env := newTestEnv(t, nil)
		id := env.createAsync(t, "now please")

		w := env.do(t, http.MethodPost, fmt.Sprintf("/api/request/%d/resolve", id), nil)

		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		require.Equal(t, true, body["is_completed"])
		require.Equal(t, "now please", body["answer"])
		require.NotEmpty(t, body["generation_completed_at_ms"])
	})

	t.Run("should get with or without trailing slash", func(t *testing.T) {
		env := newTestEnv(t, nil)
		id := env.createAsync(t, "p")

		for _, path := range []string{fmt.Sprintf("/api/request/%d", id), fmt.Sprintf("/api/request/%d/", id)} {
			w := env.do(t, http.MethodGet, path, nil)
			require.Equal(t, http.StatusOK, w.Code, path)
			require.Equal(t, float64(id), decode(t, w)["id"])
		}
	})

	t.Run("should return 404 for unknown ids", func(t *testing.T) {
		env := newTestEnv(t, nil)

		for _, path := range []string{"/api/request/999/", "/api/request/abc/", "/api/request/999/cancel/"} {
			method := http.MethodGet
			if strings.HasSuffix(path, "cancel/") {
				method = http.MethodPost
			}
			w := env.do(t, method, path, nil)
			require.Equal(t, http.StatusNotFound, w.Code, path)
			require.JSONEq(t, `{"message":"Not found."}`, w.Body.String())
		}
	})

	t.Run("should patch and put input fields", func(t *testing.T) {
		env := newTestEnv(t, nil)
		id := env.createAsync(t, "old")
		path := fmt.Sprintf("/api/request/%d/", id)

		w := env.do(t, http.MethodPatch, path, map[string]any{"request": "new", "temperature": 0.3})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decode(t, w)
		require.Equal(t, "new", body["request"])
		require.InDelta(t, 0.3, body["temperature"], 1e-9)

		w = env.do(t, http.MethodPut, path, map[string]any{"request": "only prompt"})
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.JSONEq(t, `{"key":["This field is required."]}`, w.Body.String())

		w = env.do(t, http.MethodPut, path, map[string]any{"key": "validkey", "request": "full"})
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "full", decode(t, w)["request"])
	})

	t.Run("should delete a request", func(t *testing.T) {
		env := newTestEnv(t, nil)
		id := env.createAsync(t, "p")
		path := fmt.Sprintf("/api/request/%d/", id)

		w := env.do(t, http.MethodDelete, path, nil)
		require.Equal(t, http.StatusNoContent, w.Code)

		w = env.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("should list newest first with paging", func(t *testing.T) {
		env := newTestEnv(t, nil)
		first := env.createAsync(t, "first")
		second := env.createAsync(t, "second")

		w := env.do(t, http.MethodGet, "/api/request/", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var rows []map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
		require.Len(t, rows, 2)
		require.Equal(t, float64(second), rows[0]["id"])
		require.Equal(t, float64(first), rows[1]["id"])

		w = env.do(t, http.MethodGet, "/api/request/?limit=1&offset=1", nil)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
		require.Len(t, rows, 1)
		require.Equal(t, float64(first), rows[0]["id"])

		w = env.do(t, http.MethodGet, "/api/request/?limit=-1", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should reject unsupported methods", func(t *testing.T) {
		env := newTestEnv(t, nil)

		w := env.do(t, http.MethodDelete, "/api/request/", nil)
		require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
	require.NotEmpty(t, w.Header().Get("X-Request-Id"))
}
