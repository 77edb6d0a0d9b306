// ABOUTME: Tests for tool handlers against a stub Discord backend
// ABOUTME: Covers validation, payload shapes, disambiguation, token caching

package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/discord-mcp/internal/config"
	"github.com/2389/discord-mcp/internal/discord"
	"github.com/2389/discord-mcp/internal/tokenstore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, backend http.Handler) *Server {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	store := tokenstore.New(filepath.Join(t.TempDir(), "token"), testLogger())
	client := discord.NewClient(store, nil, testLogger(),
		discord.WithBaseURL(srv.URL), discord.WithSendDelay(0))

	cfg := &config.Config{}
	cfg.Discord.Token = "test-token"
	return New(client, cfg, testLogger(), "test")
}

func callReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText unwraps a successful text tool result.
func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.False(t, res.IsError, "unexpected tool error: %+v", res.Content)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is not text")
	return text.Text
}

// errorText unwraps an error tool result.
func errorText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.True(t, res.IsError, "expected tool error")
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is not text")
	return text.Text
}

func TestGetServers(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/@me/guilds", r.URL.Path)
		w.Write([]byte(`[{"id": "g1", "name": "Alpha"}, {"id": "g2", "name": "Beta"}]`))
	}))

	res, err := s.handleGetServers(context.Background(), callReq(nil))
	require.NoError(t, err)

	var payload []map[string]string
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &payload))
	require.Len(t, payload, 2)
	assert.Equal(t, "g1", payload[0]["id"])
	assert.Equal(t, "Alpha", payload[0]["name"])
}

func TestGetServers_AllowListFilters(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": "g1", "name": "Alpha"}, {"id": "g2", "name": "Beta"}]`))
	}))
	s.cfg.Discord.GuildIDs = []string{"g2"}

	res, err := s.handleGetServers(context.Background(), callReq(nil))
	require.NoError(t, err)

	var payload []map[string]string
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &payload))
	require.Len(t, payload, 1)
	assert.Equal(t, "g2", payload[0]["id"])
}

func TestGetChannels(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/guilds/g1/channels", r.URL.Path)
		w.Write([]byte(`[{"id": "c1", "name": "general", "type": 0}, {"id": "cat", "name": "stuff", "type": 4}]`))
	}))

	res, err := s.handleGetChannels(context.Background(), callReq(map[string]any{"server_id": "g1"}))
	require.NoError(t, err)

	var payload []map[string]string
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &payload))
	require.Len(t, payload, 1, "categories are filtered out")
	assert.Equal(t, "0", payload[0]["type"], "type is rendered as a string")
}

func TestGetChannels_MissingArgument(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called")
	}))

	res, err := s.handleGetChannels(context.Background(), callReq(nil))
	require.NoError(t, err)
	assert.Contains(t, errorText(t, res), "server_id")
}

func TestReadMessages_Validation(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called for invalid arguments")
	}))

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{
			name: "max_messages too small",
			args: map[string]any{"server_id": "g", "channel_id": "c", "max_messages": 0},
			want: "max_messages",
		},
		{
			name: "max_messages too large",
			args: map[string]any{"server_id": "g", "channel_id": "c", "max_messages": 2000},
			want: "max_messages",
		},
		{
			name: "hours_back out of range",
			args: map[string]any{"server_id": "g", "channel_id": "c", "max_messages": 10, "hours_back": 9000},
			want: "hours_back",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.handleReadMessages(context.Background(), callReq(tt.args))
			require.NoError(t, err)
			assert.Contains(t, errorText(t, res), tt.want)
		})
	}
}

func TestReadMessages(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/channels/c1/messages", r.URL.Path)
		w.Write([]byte(`[{
			"id": "m1", "content": "hello",
			"author": {"id": "u1", "username": "alice"},
			"timestamp": "2025-06-01T12:00:00+00:00",
			"attachments": [{"url": "https://cdn.example/file.png"}]
		}]`))
	}))

	res, err := s.handleReadMessages(context.Background(), callReq(map[string]any{
		"server_id": "g1", "channel_id": "c1", "max_messages": 10,
	}))
	require.NoError(t, err)

	var payload []map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &payload))
	require.Len(t, payload, 1)
	assert.Equal(t, "m1", payload[0]["id"])
	assert.Equal(t, "alice", payload[0]["author_name"])
	assert.NotContains(t, payload[0], "conversation_name")
	attachments, ok := payload[0]["attachments"].([]any)
	require.True(t, ok)
	assert.Len(t, attachments, 1)
}

func TestSendMessage_EmptyContent(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called")
	}))

	res, err := s.handleSendMessage(context.Background(), callReq(map[string]any{
		"server_id": "g1", "channel_id": "c1", "content": "",
	}))
	require.NoError(t, err)
	assert.Contains(t, errorText(t, res), "empty")
}

func TestSendMessage_ChunksLongContent(t *testing.T) {
	var sends int
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sends++
		json.NewEncoder(w).Encode(map[string]string{"id": "msg"})
	}))

	content := strings.Repeat("a", discord.MaxMessageLength+1)
	res, err := s.handleSendMessage(context.Background(), callReq(map[string]any{
		"server_id": "g1", "channel_id": "c1", "content": content,
	}))
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &payload))
	assert.Equal(t, float64(2), payload["chunks"])
	assert.Equal(t, float64(len(content)), payload["total_length"])
	assert.Equal(t, "sent", payload["status"])
	assert.Equal(t, 2, sends)
}

func TestSendMessageWithAttachment_ContentTooLong(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called")
	}))

	res, err := s.handleSendMessageWithAttachment(context.Background(), callReq(map[string]any{
		"server_id": "g1", "channel_id": "c1",
		"content":   strings.Repeat("a", discord.MaxMessageLength+1),
		"file_path": "/tmp/whatever.txt",
	}))
	require.NoError(t, err)
	assert.Contains(t, errorText(t, res), "cannot be split")
}

func TestSendMessageWithAttachment(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		json.NewEncoder(w).Encode(map[string]string{"id": "msg-9"})
	}))

	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(path, []byte("12345"), 0644))

	res, err := s.handleSendMessageWithAttachment(context.Background(), callReq(map[string]any{
		"server_id": "g1", "channel_id": "c1", "content": "see attached", "file_path": path,
	}))
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &payload))
	assert.Equal(t, "msg-9", payload["message_id"])
	assert.Equal(t, "sent", payload["status"])
	assert.Equal(t, float64(5), payload["file_size"])
	assert.Equal(t, "report.txt", payload["filename"])
}

func TestGetDMConversations(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id": "d1", "type": 1, "last_message_id": "175928847299117063",
			 "recipients": [{"id": "u1", "username": "alice", "global_name": "Alice Smith"}]},
			{"id": "d2", "type": 3, "recipients": [{"username": "a"}, {"username": "b"}]}
		]`))
	}))

	res, err := s.handleGetDMConversations(context.Background(), callReq(nil))
	require.NoError(t, err)

	var payload []map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &payload))
	require.Len(t, payload, 2)

	assert.Equal(t, "dm", payload[0]["type"])
	assert.Equal(t, "alice", payload[0]["username"])
	assert.NotNil(t, payload[0]["last_message_timestamp"])

	assert.Equal(t, "group_dm", payload[1]["type"])
	assert.Nil(t, payload[1]["username"], "groups carry an explicit null username")
	assert.Nil(t, payload[1]["avatar_url"])
}

func dmBackend(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/users/@me/channels":
			w.Write([]byte(`[
				{"id": "d1", "type": 1, "recipients": [{"username": "bob", "global_name": "Bob Smith"}]},
				{"id": "d2", "type": 1, "recipients": [{"username": "bobby", "global_name": "Bob"}]}
			]`))
		case strings.HasPrefix(r.URL.Path, "/channels/"):
			w.Write([]byte(`[{
				"id": "m1", "content": "hey",
				"author": {"id": "u1", "username": "bob"},
				"timestamp": "2025-06-01T12:00:00+00:00"
			}]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
}

func TestReadDMMessages_NoMatch(t *testing.T) {
	s := newTestServer(t, dmBackend(t))

	res, err := s.handleReadDMMessages(context.Background(), callReq(map[string]any{
		"name": "zed", "max_messages": 10,
	}))
	require.NoError(t, err)
	assert.Contains(t, errorText(t, res), "no DM conversation found")
}

func TestReadDMMessages_MultipleMatches(t *testing.T) {
	s := newTestServer(t, dmBackend(t))

	// "bo" prefixes both usernames, so the result is a disambiguation
	// payload rather than messages.
	res, err := s.handleReadDMMessages(context.Background(), callReq(map[string]any{
		"name": "bo", "max_messages": 10,
	}))
	require.NoError(t, err)

	var payload []map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &payload))
	require.Len(t, payload, 1)

	assert.Equal(t, true, payload[0]["multiple_matches_found"])
	assert.Equal(t, "bo", payload[0]["search_term"])
	options, ok := payload[0]["options"].([]any)
	require.True(t, ok)
	require.Len(t, options, 2)
	first := options[0].(map[string]any)
	assert.Equal(t, "bob", first["suggestion"], "suggestion prefers the username")
}

func TestReadDMMessages_SingleMatch(t *testing.T) {
	s := newTestServer(t, dmBackend(t))

	res, err := s.handleReadDMMessages(context.Background(), callReq(map[string]any{
		"name": "bobby", "max_messages": 10,
	}))
	require.NoError(t, err)

	var payload []map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &payload))
	require.Len(t, payload, 1)
	assert.Equal(t, "hey", payload[0]["content"])
	assert.Equal(t, "Bob", payload[0]["conversation_name"])
}

func TestReadDMMessages_EmptyName(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called")
	}))

	res, err := s.handleReadDMMessages(context.Background(), callReq(map[string]any{
		"name": "   ", "max_messages": 10,
	}))
	require.NoError(t, err)
	assert.Contains(t, errorText(t, res), "name cannot be empty")
}

func TestServe_StopsOnContextCancel(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called")
	}))

	// A reader that never produces input, like an idle MCP client.
	stdin, stdinWriter := io.Pipe()
	t.Cleanup(func() { stdinWriter.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.serve(ctx, stdin, io.Discard)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after context cancellation")
	}
}

func TestWithSession_CachesResolvedToken(t *testing.T) {
	// A server started without a configured token whose store holds a
	// cached one from a previous run: the first call resolves the token
	// from the file and caches it for later invocations.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	store := tokenstore.New(filepath.Join(t.TempDir(), "token"), testLogger())
	store.Save("cached-tok")
	client := discord.NewClient(store, nil, testLogger(),
		discord.WithBaseURL(srv.URL), discord.WithSendDelay(0))
	s := New(client, &config.Config{}, testLogger(), "test")
	require.Empty(t, s.token)

	_, err := s.handleGetServers(context.Background(), callReq(nil))
	require.NoError(t, err)
	assert.Equal(t, "cached-tok", s.token, "token resolved during the call is cached")
}
