package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

type credentialSlot interface {
	OAuthConfig() (*oauth2.Config, error)
	Current() (*oauth2.Token, bool)
	SetCredential(tok *oauth2.Token)
}

// HTTPHandler serves the manual authorization endpoint: a status page
// with a masked view of the current credential, a redirect into the
// consent flow, and the code callback that completes it.
type HTTPHandler struct {
	slot        credentialSlot
	redirectURL string

	mu         sync.Mutex
	stateStore map[string]time.Time
}

// NewHTTPHandler creates the handler. redirectURL is the externally
// reachable URL of this endpoint, used as the OAuth redirect target.
func NewHTTPHandler(slot credentialSlot, redirectURL string) *HTTPHandler {
	return &HTTPHandler{
		slot:        slot,
		redirectURL: redirectURL,
		stateStore:  make(map[string]time.Time),
	}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("redirect") != "" {
		url, err := h.consentURL()
		if err != nil {
			log.Println("h.consentURL failed", err)
			http.Error(w, "OAuth client config unavailable", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, url, http.StatusMovedPermanently)
		return
	}

	if code := r.URL.Query().Get("code"); code != "" {
		if err := h.authorizeCode(r, code); err != nil {
			log.Println("h.authorizeCode failed", err)
			http.Error(w, "Unable to authorize provided code", http.StatusBadRequest)
			return
		}
		http.Redirect(w, r, r.URL.EscapedPath(), http.StatusFound)
		return
	}

	tok, ok := h.slot.Current()
	if !ok {
		http.Error(w, "No credential, append ?redirect=1 to authorize", http.StatusUnauthorized)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "Token: %s, expires: %s", maskLeft(tok.AccessToken), tok.Expiry.Format(time.RFC3339))
}

func (h *HTTPHandler) consentURL() (string, error) {
	cfg, err := h.slot.OAuthConfig()
	if err != nil {
		return "", err
	}

	state, err := h.generateState()
	if err != nil {
		return "", err
	}

	flowCfg := *cfg
	flowCfg.RedirectURL = h.redirectURL

	return flowCfg.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

func (h *HTTPHandler) authorizeCode(r *http.Request, code string) error {
	if !h.validateState(r.URL.Query().Get("state")) {
		return fmt.Errorf("invalid or expired state parameter")
	}

	cfg, err := h.slot.OAuthConfig()
	if err != nil {
		return err
	}

	flowCfg := *cfg
	flowCfg.RedirectURL = h.redirectURL

	tok, err := flowCfg.Exchange(r.Context(), code)
	if err != nil {
		return fmt.Errorf("cfg.Exchange failed: %w", err)
	}

	h.slot.SetCredential(tok)

	return nil
}

func (h *HTTPHandler) generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand.Read failed: %w", err)
	}
	state := base64.URLEncoding.EncodeToString(b)

	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	h.stateStore[state] = now.Add(5 * time.Minute)

	for s, exp := range h.stateStore {
		if exp.Before(now) {
			delete(h.stateStore, s)
		}
	}

	return state, nil
}

func (h *HTTPHandler) validateState(state string) bool {
	if state == "" {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	expiry, exists := h.stateStore[state]
	if !exists {
		return false
	}

	delete(h.stateStore, state)

	return !time.Now().After(expiry)
}

func maskLeft(s string) string {
	rs := []rune(s)
	for i := 0; i < len(rs)-4; i++ {
		rs[i] = 'X'
	}
	return string(rs)
}
