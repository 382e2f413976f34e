package gservice_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/inboxtools/gmail-mcp-server/internal/gservice"
)

func testToken() *oauth2.Token {
	return &oauth2.Token{AccessToken: "test-access", TokenType: "Bearer"}
}

func TestListMessages(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/users/me/messages"), "unexpected path %s", r.URL.Path)
		assert.Equal(t, "Bearer test-access", r.Header.Get("Authorization"))
		assert.Equal(t, "is:unread", r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("maxResults"))

		_, _ = w.Write([]byte(`{"messages":[{"id":"m1"},{"id":"m2"}],"resultSizeEstimate":2}`))
	}))
	defer ts.Close()

	svc := gservice.NewGmail(option.WithEndpoint(ts.URL))

	result, err := svc.ListMessages(context.Background(), testToken(), "is:unread", 5)
	require.NoError(t, err)
	require.Len(t, result.Messages, 2)
	assert.Equal(t, "m1", result.Messages[0].Id)
	assert.Equal(t, "m2", result.Messages[1].Id)
}

func TestListMessagesOmitsEmptyQuery(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasQ := r.URL.Query()["q"]
		assert.False(t, hasQ, "empty query must not be sent")
		_, _ = w.Write([]byte(`{"messages":[]}`))
	}))
	defer ts.Close()

	svc := gservice.NewGmail(option.WithEndpoint(ts.URL))

	_, err := svc.ListMessages(context.Background(), testToken(), "", 10)
	require.NoError(t, err)
}

func TestGetMessageMetadata(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/users/me/messages/m1"), "unexpected path %s", r.URL.Path)
		assert.Equal(t, "METADATA", r.URL.Query().Get("format"))
		assert.ElementsMatch(t, []string{"From", "Subject", "Date"}, r.URL.Query()["metadataHeaders"])

		_, _ = w.Write([]byte(`{"id":"m1","snippet":"s","payload":{"headers":[{"name":"Subject","value":"Hi"}]}}`))
	}))
	defer ts.Close()

	svc := gservice.NewGmail(option.WithEndpoint(ts.URL))

	msg, err := svc.GetMessageMetadata(context.Background(), testToken(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.Id)
	assert.Equal(t, "s", msg.Snippet)
	require.NotNil(t, msg.Payload)
	require.Len(t, msg.Payload.Headers, 1)
	assert.Equal(t, "Hi", msg.Payload.Headers[0].Value)
}

func TestSendMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/users/me/messages/send"), "unexpected path %s", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var body struct {
			Raw string `json:"raw"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "cmF3LWVudmVsb3Bl", body.Raw)

		_, _ = w.Write([]byte(`{"id":"sent-1"}`))
	}))
	defer ts.Close()

	svc := gservice.NewGmail(option.WithEndpoint(ts.URL))

	sent, err := svc.SendMessage(context.Background(), testToken(), "cmF3LWVudmVsb3Bl")
	require.NoError(t, err)
	assert.Equal(t, "sent-1", sent.Id)
}

func TestProviderErrorSurfaces(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"quotaExceeded"}}`))
	}))
	defer ts.Close()

	svc := gservice.NewGmail(option.WithEndpoint(ts.URL))

	_, err := svc.ListMessages(context.Background(), testToken(), "", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "messages.List failed")
}
