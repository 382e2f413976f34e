// Package gservice performs the raw Gmail API calls. It holds no
// credential state: every call borrows a token from the caller.
package gservice

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const gmailUserID = "me"

// NewGmail creates a Gmail client. Extra options (e.g. an endpoint
// override) are appended to every service construction.
func NewGmail(opts ...option.ClientOption) *GMail {
	return &GMail{opts: opts}
}

type GMail struct {
	opts []option.ClientOption
}

// ListMessages lists message IDs matching Q, capped at maxResults. An
// empty Q lists the most recent messages in provider order.
func (m *GMail) ListMessages(ctx context.Context, tok *oauth2.Token, Q string, maxResults int64) (*gmail.ListMessagesResponse, error) {
	svc, err := m.newSvc(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	call := svc.Users.Messages.List(gmailUserID).MaxResults(maxResults)
	if Q != "" {
		call = call.Q(Q)
	}

	result, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("messages.List failed: %w", err)
	}

	return result, nil
}

// GetMessageMetadata fetches one message in metadata form, restricted
// to the headers the summary projection needs.
func (m *GMail) GetMessageMetadata(ctx context.Context, tok *oauth2.Token, msgID string) (*gmail.Message, error) {
	svc, err := m.newSvc(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	msg, err := svc.Users.Messages.Get(gmailUserID, msgID).
		Format("METADATA").
		MetadataHeaders("From", "Subject", "Date").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("messages.Get failed: %w", err)
	}

	return msg, nil
}

// SendMessage transmits a raw base64url-encoded RFC 2822 message and
// returns the provider-assigned message.
func (m *GMail) SendMessage(ctx context.Context, tok *oauth2.Token, raw string) (*gmail.Message, error) {
	svc, err := m.newSvc(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	sent, err := svc.Users.Messages.Send(gmailUserID, &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("messages.Send failed: %w", err)
	}

	return sent, nil
}

func (m *GMail) newSvc(ctx context.Context, tok *oauth2.Token) (*gmail.Service, error) {
	clt := oauth2.NewClient(ctx, oauth2.StaticTokenSource(tok))

	opts := append([]option.ClientOption{option.WithHTTPClient(clt)}, m.opts...)

	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gmail.NewService failed: %w", err)
	}

	return svc, nil
}
