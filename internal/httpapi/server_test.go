package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hollowmap/docdb/internal/docdb"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	engine, err := docdb.OpenMem()
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return New(engine, zap.NewNop(), "")
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestSetAndGet(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/set", map[string]any{
		"key":   "user:1",
		"value": map[string]any{"name": "ana"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Body.Bytes())

	rec = doJSON(t, s, http.MethodPost, "/get", map[string]any{"key": "user:1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]any
	decodeJSON(t, rec, &out)
	require.Equal(t, "ana", out["name"])
}

func TestGetMissingKeyReturns404(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/get", map[string]any{"key": "nope"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetMissingKeyReturns400(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/set", map[string]any{"value": map[string]any{}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPartialProjectsFields(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/set", map[string]any{
		"key": "user:1",
		"value": map[string]any{
			"name":    "ana",
			"secret":  "x",
			"address": map[string]any{"city": "porto", "zip": "4000"},
		},
	})

	rec := doJSON(t, s, http.MethodPost, "/get_partial", map[string]any{
		"key":    "user:1",
		"fields": []string{"name", "address.city"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]any
	decodeJSON(t, rec, &out)
	require.Equal(t, "ana", out["name"])
	require.NotContains(t, out, "secret")
	addr := out["address"].(map[string]any)
	require.Equal(t, "porto", addr["city"])
	require.NotContains(t, addr, "zip")
}

func TestBatchSetBareArray(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/batch_set", []map[string]any{
		{"key": "p:1", "value": map[string]any{"profile": map[string]any{"settings": map[string]any{"enabled": true}}, "tier": "gold"}},
		{"key": "p:2", "value": map[string]any{"profile": map[string]any{"settings": map[string]any{"enabled": false}}, "tier": "gold"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Body.Bytes())

	rec = doJSON(t, s, http.MethodPost, "/get", map[string]any{"key": "p:1"})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestQueryASTNestedAndBoolean(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/batch_set", []map[string]any{
		{"key": "p:1", "value": map[string]any{"profile": map[string]any{"settings": map[string]any{"enabled": true}}, "tier": "gold"}},
		{"key": "p:2", "value": map[string]any{"profile": map[string]any{"settings": map[string]any{"enabled": false}}, "tier": "gold"}},
	})

	ast := map[string]any{
		"And": []any{
			map[string]any{"Eq": []any{"profile.settings.enabled", true, "Bool"}},
			map[string]any{"Eq": []any{"tier", "gold", "String"}},
		},
	}
	astRaw, err := json.Marshal(ast)
	require.NoError(t, err)

	rec := doJSON(t, s, http.MethodPost, "/query/ast", map[string]any{
		"ast": json.RawMessage(astRaw),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var out []map[string]any
	decodeJSON(t, rec, &out)
	require.Len(t, out, 1)
	require.Equal(t, "gold", out[0]["tier"])
}

func TestQueryASTPagination(t *testing.T) {
	s := newTestServer(t)
	items := make([]map[string]any, 0, 6)
	for i := 0; i < 6; i++ {
		items = append(items, map[string]any{"key": "item:" + string(rune('a'+i)), "value": map[string]any{"kind": "widget"}})
	}
	doJSON(t, s, http.MethodPost, "/batch_set", items)

	astRaw, err := json.Marshal(map[string]any{"Eq": []any{"kind", "widget", "String"}})
	require.NoError(t, err)

	rec := doJSON(t, s, http.MethodPost, "/query/ast", map[string]any{
		"ast":    json.RawMessage(astRaw),
		"offset": 2,
		"limit":  2,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var out []map[string]any
	decodeJSON(t, rec, &out)
	require.Len(t, out, 2)
}

func TestQueryRadius(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/batch_set", []map[string]any{
		{"key": "place:near", "value": map[string]any{"loc": map[string]any{"lat": 41.1579, "lon": -8.6291}}},
		{"key": "place:far", "value": map[string]any{"loc": map[string]any{"lat": 38.7223, "lon": -9.1393}}},
	})

	rec := doJSON(t, s, http.MethodPost, "/query/radius", map[string]any{
		"field": "loc", "lat": 41.1579, "lon": -8.6291, "radius": 1000,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var out []map[string]any
	decodeJSON(t, rec, &out)
	require.Len(t, out, 1)
}

func TestQueryBox(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/batch_set", []map[string]any{
		{"key": "place:inside", "value": map[string]any{"loc": map[string]any{"lat": 41.1, "lon": -8.6}}},
		{"key": "place:outside", "value": map[string]any{"loc": map[string]any{"lat": 38.7, "lon": -9.1}}},
	})

	rec := doJSON(t, s, http.MethodPost, "/query/box", map[string]any{
		"field": "loc", "min_lat": 40.0, "min_lon": -9.0, "max_lat": 42.0, "max_lon": -8.0,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var out []map[string]any
	decodeJSON(t, rec, &out)
	require.Len(t, out, 1)
}

func TestTransactionAtomicity(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/set", map[string]any{"key": "a", "value": map[string]any{"v": 1}})

	rec := doJSON(t, s, http.MethodPost, "/transaction", []map[string]any{
		{"type": "set", "key": "b", "value": map[string]any{"v": 2}},
		{"type": "delete", "key": "a"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Body.Bytes())

	rec = doJSON(t, s, http.MethodPost, "/get", map[string]any{"key": "a"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/get", map[string]any{"key": "b"})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestTransactionRejectsUnknownMutationType(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/transaction", []map[string]any{
		{"type": "bogus", "key": "a"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClearPrefixDeletesOnlyMatching(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/batch_set", []map[string]any{
		{"key": "session:1", "value": map[string]any{}},
		{"key": "session:2", "value": map[string]any{}},
		{"key": "user:1", "value": map[string]any{}},
	})

	rec := doJSON(t, s, http.MethodPost, "/clear_prefix", map[string]any{"prefix": "session:"})
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]int
	decodeJSON(t, rec, &out)
	require.Equal(t, 2, out["count"])

	rec = doJSON(t, s, http.MethodPost, "/get", map[string]any{"key": "user:1"})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDropDatabase(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/batch_set", []map[string]any{
		{"key": "a", "value": map[string]any{}},
		{"key": "b", "value": map[string]any{}},
	})

	rec := doJSON(t, s, http.MethodPost, "/drop_database", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]int
	decodeJSON(t, rec, &out)
	require.Equal(t, 2, out["count"])
}

func TestAPIKeyMiddlewareRejectsMissingBearer(t *testing.T) {
	engine, err := docdb.OpenMem()
	require.NoError(t, err)
	defer engine.Close()
	s := New(engine, zap.NewNop(), "secret-key")

	rec := doJSON(t, s, http.MethodPost, "/get", map[string]any{"key": "a"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/get", bytes.NewBufferString(`{"key":"a"}`))
	req.Header.Set("Authorization", "Bearer secret-key")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code) // key absent, but auth passed
}

func TestExportImportRoundTrip(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/batch_set", []map[string]any{
		{"key": "a", "value": map[string]any{"x": 1}},
		{"key": "b", "value": map[string]any{"y": "z"}},
	})

	rec := doJSON(t, s, http.MethodGet, "/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snapshotText string
	decodeJSON(t, rec, &snapshotText)

	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(snapshotText), &items))
	require.Len(t, items, 2)

	rec = doJSON(t, s, http.MethodPost, "/import", items)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Empty(t, rec.Body.Bytes())
}
