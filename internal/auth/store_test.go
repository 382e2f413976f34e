package auth_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/inboxtools/gmail-mcp-server/internal/auth"
)

var testScopes = []string{"scope.readonly", "scope.send"}

func TestStoreLoadAbsent(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{name: "missing file"},
		{name: "malformed json", content: "{not json"},
		{name: "empty object", content: "{}"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "token.json")
			if tc.content != "" {
				require.NoError(t, os.WriteFile(path, []byte(tc.content), 0600))
			}

			store := auth.NewStore(path, testScopes)
			assert.Nil(t, store.Load())
		})
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "token.json")
	store := auth.NewStore(path, testScopes)

	tok := &oauth2.Token{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour).Round(time.Second),
	}
	require.NoError(t, store.Save(tok))

	loaded := store.Load()
	require.NotNil(t, loaded)
	assert.Equal(t, tok.AccessToken, loaded.AccessToken)
	assert.Equal(t, tok.RefreshToken, loaded.RefreshToken)
	assert.WithinDuration(t, tok.Expiry, loaded.Expiry, time.Second)
}

func TestStoreSavePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes not enforced on windows")
	}

	path := filepath.Join(t.TempDir(), "token.json")
	store := auth.NewStore(path, testScopes)
	require.NoError(t, store.Save(&oauth2.Token{AccessToken: "access-1"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestStoreSaveRecordsScopes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store := auth.NewStore(path, testScopes)
	require.NoError(t, store.Save(&oauth2.Token{AccessToken: "access-1"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rec struct {
		Scopes []string `json:"scopes"`
	}
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, testScopes, rec.Scopes)
}

func TestStoreScopeMismatchTreatedAsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")

	narrow := auth.NewStore(path, []string{"scope.readonly"})
	require.NoError(t, narrow.Save(&oauth2.Token{AccessToken: "access-1", RefreshToken: "refresh-1"}))

	wide := auth.NewStore(path, testScopes)
	assert.Nil(t, wide.Load(), "record issued for narrower scopes must be treated as absent")

	// The reverse direction still loads: extra granted scopes are fine.
	require.NoError(t, wide.Save(&oauth2.Token{AccessToken: "access-2"}))
	loaded := auth.NewStore(path, []string{"scope.readonly"}).Load()
	require.NotNil(t, loaded)
	assert.Equal(t, "access-2", loaded.AccessToken)
}

func TestStoreDisabled(t *testing.T) {
	store := auth.NewStore("", testScopes)
	assert.NoError(t, store.Save(&oauth2.Token{AccessToken: "access-1"}))
	assert.Nil(t, store.Load())
}
