package ragapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ragchat-client/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bearer = map[string]string{"Authorization": "Bearer tok"}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 2*time.Second, logger.NewNopLogger())
}

func TestListChats(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rag/chats/", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`[
			{"id": "c1", "name": "Notes", "created_at": "2026-10-01T10:00:00Z"},
			{"id": 42, "name": "Numeric", "created_at": "2026-10-02T10:00:00.123456Z"}
		]`))
	})

	chats, err := client.ListChats(context.Background(), bearer)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.EqualValues(t, "c1", chats[0].Id)
	assert.Equal(t, "Notes", chats[0].Name)
	assert.Equal(t, time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC), chats[0].CreatedAt)
	assert.EqualValues(t, "42", chats[1].Id)
}

func TestListChats_NullBodyIsEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	})

	chats, err := client.ListChats(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, chats)
	assert.Empty(t, chats)
}

func TestCreateChat(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"name": "Project X"}, body)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": "c9", "name": "Project X", "created_at": "2026-10-16T08:00:00Z"}`))
	})

	chat, err := client.CreateChat(context.Background(), bearer, "Project X")
	require.NoError(t, err)
	assert.EqualValues(t, "c9", chat.Id)
	assert.Equal(t, "Project X", chat.Name)
}

func TestCreateChat_MissingId(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name": "x", "created_at": "2026-10-16T08:00:00Z"}`))
	})

	_, err := client.CreateChat(context.Background(), bearer, "x")
	assert.True(t, IsRemote(err))
}

func TestGetKnowledgeGraph(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"graph present", `{"graph_data": {"nodes": [{"id": "a"}], "edges": []}}`, `{"nodes": [{"id": "a"}], "edges": []}`},
		{"graph missing", `{}`, `{}`},
		{"graph null", `{"graph_data": null}`, `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/rag/chats/c%2F1/knowledge_graph/", r.URL.EscapedPath())
				w.Write([]byte(tt.body))
			})

			data, err := client.GetKnowledgeGraph(context.Background(), bearer, "c/1")
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestRemoteErrors(t *testing.T) {
	t.Run("non 2xx", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"detail": "Authentication credentials were not provided."}`, http.StatusUnauthorized)
		})

		_, err := client.ListChats(context.Background(), nil)
		var re *RemoteError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, OpListChats, re.Op)
		assert.Equal(t, http.StatusUnauthorized, re.StatusCode)
		assert.Contains(t, re.Error(), "Authentication credentials")
	})

	t.Run("bad json", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"graph_data":`))
		})

		_, err := client.GetKnowledgeGraph(context.Background(), nil, "c1")
		assert.True(t, IsRemote(err))
		assert.ErrorContains(t, err, "decode response")
	})

	t.Run("transport", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", time.Second, logger.NewNopLogger())
		_, err := client.CreateChat(context.Background(), nil, "x")
		var re *RemoteError
		require.ErrorAs(t, err, &re)
		assert.Zero(t, re.StatusCode)
	})

	t.Run("cancelled context", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.GetKnowledgeGraph(ctx, nil, "c1")
		assert.ErrorIs(t, err, context.Canceled)
	})
}
