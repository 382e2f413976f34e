package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// ConfigError indicates the OAuth client configuration is missing or
// unusable. It is fatal for the current operation and will not resolve
// without operator action.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("oauth client config: %v", e.Err)
	}
	return fmt.Sprintf("oauth client config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// AuthError indicates no valid credential could be obtained for the
// current operation. The next operation retries the lifecycle from
// scratch.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed during %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// permanentFailureMarkers are provider responses that mean the refresh
// token itself is dead and only a new interactive authorization helps.
var permanentFailureMarkers = []string{
	"invalid_grant",
	"invalid_client",
	"unauthorized_client",
	"token has been expired or revoked",
	"revoked",
}

// permanentAuthFailure reports whether a refresh failure is terminal
// for the refresh token, as opposed to a transient network or provider
// problem worth retrying on the next call.
func permanentAuthFailure(err error) bool {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		switch rerr.ErrorCode {
		case "invalid_grant", "invalid_client", "unauthorized_client":
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range permanentFailureMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}
