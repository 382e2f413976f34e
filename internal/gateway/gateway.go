// Package gateway is the authenticated dispatch layer: every mail
// operation goes through the credential lifecycle manager before the
// provider call, and provider failures come back as *ProviderError.
package gateway

import (
	"context"
	"encoding/base64"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
)

type credentialSource interface {
	EnsureValid(ctx context.Context) (*oauth2.Token, error)
	Refresh(ctx context.Context) (*oauth2.Token, error)
}

type mailSvc interface {
	ListMessages(ctx context.Context, tok *oauth2.Token, Q string, maxResults int64) (*gmail.ListMessagesResponse, error)
	GetMessageMetadata(ctx context.Context, tok *oauth2.Token, msgID string) (*gmail.Message, error)
	SendMessage(ctx context.Context, tok *oauth2.Token, raw string) (*gmail.Message, error)
}

// Gateway wraps the Gmail client behind the credential lifecycle.
type Gateway struct {
	creds credentialSource
	svc   mailSvc
}

// New creates a Gateway. creds is borrowed per call; the gateway never
// holds a credential across operations.
func New(creds credentialSource, svc mailSvc) *Gateway {
	return &Gateway{creds: creds, svc: svc}
}

// ListRecent returns summaries of the most recent inbox messages, in
// the provider's own recency order.
func (g *Gateway) ListRecent(ctx context.Context, limit int64) ([]MessageSummary, error) {
	return g.list(ctx, "", limit)
}

// Search returns summaries of messages matching query. The query
// string passes through to the provider unmodified; its syntax is the
// provider's business.
func (g *Gateway) Search(ctx context.Context, query string, limit int64) ([]MessageSummary, error) {
	return g.list(ctx, query, limit)
}

func (g *Gateway) list(ctx context.Context, query string, limit int64) ([]MessageSummary, error) {
	tok, err := g.creds.EnsureValid(ctx)
	if err != nil {
		return nil, err
	}

	result, err := g.svc.ListMessages(ctx, tok, query, limit)
	if err != nil {
		return nil, &ProviderError{Op: "list messages", Err: err}
	}

	// Detail fetches preserve the order of the listing.
	summaries := make([]MessageSummary, 0, len(result.Messages))
	for _, m := range result.Messages {
		msg, err := g.svc.GetMessageMetadata(ctx, tok, m.Id)
		if err != nil {
			return nil, &ProviderError{Op: "get message " + m.Id, Err: err}
		}
		summaries = append(summaries, summarize(msg))
	}

	return summaries, nil
}

// SendRequest describes an outbound plain-text message. CC and BCC
// hold comma-separated address lists and may be empty.
type SendRequest struct {
	To      string
	Subject string
	Body    string
	CC      string
	BCC     string
}

// Send transmits the message and returns the provider-assigned
// message ID. Sending is harder to retry than reading, so it
// force-refreshes the credential first instead of only checking
// validity.
func (g *Gateway) Send(ctx context.Context, req SendRequest) (string, error) {
	tok, err := g.creds.Refresh(ctx)
	if err != nil {
		return "", err
	}

	raw := base64.URLEncoding.EncodeToString([]byte(buildEnvelope(req)))

	sent, err := g.svc.SendMessage(ctx, tok, raw)
	if err != nil {
		return "", &ProviderError{Op: "send message", Err: err}
	}

	return sent.Id, nil
}
