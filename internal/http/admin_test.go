package http_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var adminUsers = map[string]string{"admin": "s3cret"}

func (e *testEnv) admin(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return e.doAs(t, method, path, body, "admin", "s3cret")
}

func TestAdmin_Auth(t *testing.T) {
	t.Run("should be disabled without accounts", func(t *testing.T) {
		env := newTestEnv(t, nil)

		w := env.doAs(t, http.MethodGet, "/admin/api-keys", nil, "admin", "s3cret")
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("should require credentials", func(t *testing.T) {
		env := newTestEnv(t, adminUsers)

		w := env.do(t, http.MethodGet, "/admin/api-keys", nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Contains(t, w.Header().Get("WWW-Authenticate"), "Basic")

		w = env.doAs(t, http.MethodGet, "/admin/api-keys", nil, "admin", "wrong")
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAdmin_APIKeys(t *testing.T) {
	t.Run("should list and filter keys", func(t *testing.T) {
		env := newTestEnv(t, adminUsers)

		w := env.admin(t, http.MethodGet, "/admin/api-keys", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var keys []map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &keys))
		require.Len(t, keys, 2)

		w = env.admin(t, http.MethodGet, "/admin/api-keys?active=false", nil)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &keys))
		require.Len(t, keys, 1)
		require.Equal(t, "inactivekey", keys[0]["key"])

		w = env.admin(t, http.MethodGet, "/admin/api-keys?search=VALID", nil)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &keys))
		require.Len(t, keys, 1)
		require.Equal(t, "validkey", keys[0]["key"])

		w = env.admin(t, http.MethodGet, "/admin/api-keys?active=maybe", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should create, update and delete keys", func(t *testing.T) {
		env := newTestEnv(t, adminUsers)

		w := env.admin(t, http.MethodPost, "/admin/api-keys", map[string]any{"openai_api_key": "sk-test"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		created := decode(t, w)
		require.True(t, strings.HasPrefix(created["key"].(string), "pd-"))
		require.Equal(t, true, created["active"])
		require.Equal(t, "sk-test", created["openai_api_key"])

		path := fmt.Sprintf("/admin/api-keys/%d", int(created["id"].(float64)))

		w = env.admin(t, http.MethodPut, path, map[string]any{"active": false, "proxy_url": "http://10.0.0.1:3128"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		updated := decode(t, w)
		require.Equal(t, false, updated["active"])
		require.Equal(t, "http://10.0.0.1:3128", updated["proxy_url"])
		require.Equal(t, created["key"], updated["key"])

		w = env.admin(t, http.MethodPost, "/admin/api-keys", map[string]any{"key": "validkey"})
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.JSONEq(t, `{"key":["API key already exists"]}`, w.Body.String())

		w = env.admin(t, http.MethodDelete, path, nil)
		require.Equal(t, http.StatusNoContent, w.Code)

		w = env.admin(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("should cascade key deletion to requests", func(t *testing.T) {
		env := newTestEnv(t, adminUsers)
		id := env.createAsync(t, "p")

		w := env.admin(t, http.MethodDelete, fmt.Sprintf("/admin/api-keys/%d", env.key.ID), nil)
		require.Equal(t, http.StatusNoContent, w.Code)

		w = env.do(t, http.MethodGet, fmt.Sprintf("/api/request/%d", id), nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAdmin_Requests(t *testing.T) {
	t.Run("should list display rows with previews", func(t *testing.T) {
		env := newTestEnv(t, adminUsers)
		long := strings.Repeat("a", 150)
		env.createAsync(t, long)
		env.createAsync(t, "short")

		w := env.admin(t, http.MethodGet, "/admin/requests?search=aaa", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var rows []map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
		require.Len(t, rows, 1)
		require.Equal(t, strings.Repeat("a", 100)+"...", rows[0]["short_request"])
		require.Equal(t, "validkey", rows[0]["key"])
		require.NotEmpty(t, rows[0]["created_at_ms"])
		require.NotEmpty(t, rows[0]["timestamp_ms"])
		require.Empty(t, rows[0]["generation_started_at_ms"])

		w = env.admin(t, http.MethodGet, "/admin/requests?key=validkey&engine=echo4", nil)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
		require.Len(t, rows, 2)

		w = env.admin(t, http.MethodGet, "/admin/requests?until=2000-01-01", nil)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
		require.Empty(t, rows)

		w = env.admin(t, http.MethodGet, "/admin/requests?since=yesterday", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should show the sectioned detail view", func(t *testing.T) {
		env := newTestEnv(t, adminUsers)
		id := env.createAsync(t, "detail")

		w := env.admin(t, http.MethodGet, fmt.Sprintf("/admin/requests/%d", id), nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := decode(t, w)
		require.Equal(t, "detail", body["main"].(map[string]any)["request"])
		require.NotEmpty(t, body["advanced"].(map[string]any)["job_id"])
		require.Equal(t, false, body["status"].(map[string]any)["is_cancelled"])
		require.Contains(t, body, "extra_options")
	})

	t.Run("should cancel in bulk", func(t *testing.T) {
		env := newTestEnv(t, adminUsers)
		first := env.createAsync(t, "a")
		second := env.createAsync(t, "b")

		w := env.admin(t, http.MethodPost, "/admin/requests/cancel", map[string]any{"ids": []uint{first, second, 999}})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var out struct {
			Updated []map[string]any  `json:"updated"`
			Failed  map[string]string `json:"failed"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		require.Len(t, out.Updated, 2)
		require.Equal(t, "cancelled", out.Updated[0]["status"])
		require.Contains(t, out.Failed, "999")
	})

	t.Run("should resolve in bulk", func(t *testing.T) {
		env := newTestEnv(t, adminUsers)
		first := env.createAsync(t, "a")
		second := env.createAsync(t, "b")

		w := env.admin(t, http.MethodPost, "/admin/requests/resolve", map[string]any{"ids": []uint{first, second}})
		require.Equal(t, http.StatusOK, w.Code)

		var out struct {
			Updated []map[string]any  `json:"updated"`
			Failed  map[string]string `json:"failed"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		require.Len(t, out.Updated, 2)
		require.Empty(t, out.Failed)
		for _, row := range out.Updated {
			require.Equal(t, true, row["is_completed"])
		}
	})

	t.Run("should report the queue backlog", func(t *testing.T) {
		env := newTestEnv(t, adminUsers)
		env.createAsync(t, "a")
		env.createAsync(t, "b")

		w := env.admin(t, http.MethodGet, "/admin/queue", nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"pending":2}`, w.Body.String())
	})
}
