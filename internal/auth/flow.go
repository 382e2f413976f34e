package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// DefaultFlowTimeout bounds how long an interactive authorization
// waits for the user to complete the consent prompt.
const DefaultFlowTimeout = 5 * time.Minute

// InstalledFlow runs the installed-application authorization flow: it
// listens on an ephemeral localhost port, opens the consent URL in a
// browser, waits for the redirect, and exchanges the code.
type InstalledFlow struct {
	// Timeout defaults to DefaultFlowTimeout when zero.
	Timeout time.Duration
	// OpenBrowser defaults to launching the platform browser.
	OpenBrowser func(url string)
}

// Authorize satisfies the Authorizer contract.
func (f *InstalledFlow) Authorize(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	timeout := f.Timeout
	if timeout == 0 {
		timeout = DefaultFlowTimeout
	}
	open := f.OpenBrowser
	if open == nil {
		open = OpenBrowser
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("net.Listen failed: %w", err)
	}

	flowCfg := *cfg
	flowCfg.RedirectURL = fmt.Sprintf("http://%s/callback", ln.Addr().String())

	state, err := randomState()
	if err != nil {
		return nil, err
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	var once sync.Once
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			if r.URL.Query().Get("state") != state {
				errCh <- errors.New("state parameter mismatch")
				http.Error(w, "Invalid state parameter", http.StatusBadRequest)
				return
			}
			code := r.URL.Query().Get("code")
			if code == "" {
				errCh <- fmt.Errorf("authorization declined: %s", r.URL.Query().Get("error"))
				http.Error(w, "Authorization declined", http.StatusBadRequest)
				return
			}
			codeCh <- code
			_, _ = fmt.Fprintln(w, "Authorization complete, you can close this tab.")
		})
	})

	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Callback server stopped: %v", err)
		}
	}()
	defer func() { _ = srv.Close() }()

	authURL := flowCfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
	log.Printf("Waiting for authorization, consent URL: %s", authURL)
	open(authURL)

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, err
	case <-time.After(timeout):
		return nil, errors.New("timed out waiting for authorization callback")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	tok, err := flowCfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("cfg.Exchange failed: %w", err)
	}

	return tok, nil
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand.Read failed: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// OpenBrowser launches the platform browser at url, logging the URL
// for manual use when no browser can be started.
func OpenBrowser(url string) {
	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform")
	}

	if err != nil {
		log.Printf("Could not open browser automatically: %v; please copy and open link in the browser: %s", err, url)
	}
}
