package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragbot/internal/models"
	"ragbot/internal/rag"
)

type fakeChat struct {
	reply  string
	err    error
	resets []string
}

func (f *fakeChat) Respond(ctx context.Context, conversationID, text string) (string, []models.Passage, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil, rag.ErrEmptyMessage
	}
	return f.reply, []models.Passage{{Title: "KB", Source: "https://kb/a", Origin: models.OriginRemote, Score: 0.5}}, f.err
}

func (f *fakeChat) Reset(conversationID string) { f.resets = append(f.resets, conversationID) }

type fakeDocs struct {
	docs    []models.DocumentSummary
	deleted []string
}

func (f *fakeDocs) List() []models.DocumentSummary { return f.docs }
func (f *fakeDocs) Delete(id string) error {
	for _, d := range f.docs {
		if d.ID == id {
			f.deleted = append(f.deleted, id)
			return nil
		}
	}
	return errors.New("not found")
}

type fakeHealth struct{ healthy bool }

func (f *fakeHealth) Snapshot() map[string]bool { return map[string]bool{"embedding": f.healthy} }
func (f *fakeHealth) Healthy() bool             { return f.healthy }

func newTestServer(chat *fakeChat, docs *fakeDocs, healthy bool) *httptest.Server {
	srv := New(":0", chat, docs, &fakeHealth{healthy: healthy})
	return httptest.NewServer(srv.Handler)
}

func TestHealthzReflectsReadiness(t *testing.T) {
	srv := newTestServer(&fakeChat{}, &fakeDocs{}, true)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	degraded := newTestServer(&fakeChat{}, &fakeDocs{}, false)
	defer degraded.Close()
	resp2, err := http.Get(degraded.URL + "/healthz")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp2.StatusCode)
}

func TestListAndDeleteDocuments(t *testing.T) {
	docs := &fakeDocs{docs: []models.DocumentSummary{{ID: "d1", Filename: "a.txt"}}}
	srv := newTestServer(&fakeChat{}, docs, true)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/documents")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body struct {
		Documents []models.DocumentSummary `json:"documents"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Documents, 1)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/documents/d1", nil)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)
	assert.Equal(t, []string{"d1"}, docs.deleted)

	req2, _ := http.NewRequest(http.MethodDelete, srv.URL+"/documents/missing", nil)
	missResp, err := http.DefaultClient.Do(req2)
	require.NoError(t, err)
	missResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, missResp.StatusCode)
}

func TestChatEndpoint(t *testing.T) {
	srv := newTestServer(&fakeChat{reply: "answer [#1]"}, &fakeDocs{}, true)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/chat", "application/json",
		strings.NewReader(`{"conversation_id":"c1","message":"hello"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body chatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "answer [#1]", body.Reply)
	require.Len(t, body.Sources, 1)
	assert.Equal(t, "https://kb/a", body.Sources[0].Source)
}

func TestChatEndpointRejectsEmptyMessage(t *testing.T) {
	srv := newTestServer(&fakeChat{}, &fakeDocs{}, true)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/chat", "application/json",
		strings.NewReader(`{"conversation_id":"c1","message":"  "}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatEndpointHidesUpstreamErrors(t *testing.T) {
	srv := newTestServer(&fakeChat{err: errors.New("secret upstream detail")}, &fakeDocs{}, true)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/chat", "application/json",
		strings.NewReader(`{"conversation_id":"c1","message":"hello"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, models.ApologeticReply, body["error"])
	assert.NotContains(t, body["error"], "secret")
}

func TestResetEndpoint(t *testing.T) {
	chat := &fakeChat{}
	srv := newTestServer(chat, &fakeDocs{}, true)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/chat/reset", "application/json",
		strings.NewReader(`{"conversation_id":"c1"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{"c1"}, chat.resets)
}
