package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-user-management/internal/domain/entity"
)

// newTestClient points an Elasticsearch client at handler. The product header
// is required by the client's server check.
func newTestClient(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return es
}

func TestUserIndexer_Index(t *testing.T) {
	var gotPath string
	var gotDoc map[string]any
	es := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotDoc)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	u := &entity.User{ID: "u1", Email: "a@x.io", Username: "a", Password: "hash", Role: entity.RoleUser, CreatedAt: time.Now()}
	require.NoError(t, NewUserIndexer(es, "users").Index(context.Background(), u))
	assert.Equal(t, "/users/_doc/u1", gotPath)
	assert.Equal(t, "a@x.io", gotDoc["email"])
	assert.Equal(t, "USER", gotDoc["role"])
	_, hasPassword := gotDoc["password"]
	assert.False(t, hasPassword)
}

func TestUserIndexer_IndexErrorStatus(t *testing.T) {
	es := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad"}`))
	})
	err := NewUserIndexer(es, "users").Index(context.Background(), &entity.User{ID: "u1"})
	assert.Error(t, err)
}

func TestUserIndexer_Search(t *testing.T) {
	var gotQuery map[string]any
	es := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/users/_search"))
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotQuery)
		_, _ = w.Write([]byte(`{"hits":{"hits":[{"_id":"u1","_source":{"email":"a@x.io"}}]}}`))
	})

	hits, err := NewUserIndexer(es, "users").Search(context.Background(), "a@x.io", 500)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a@x.io", hits[0]["email"])
	assert.EqualValues(t, 10, gotQuery["size"])
}
