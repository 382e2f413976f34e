// Package tool exposes the mail operations over MCP. The Dispatcher
// is the single point where every failure becomes error-shaped text
// content; nothing crosses the protocol boundary as a Go error.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/inboxtools/gmail-mcp-server/internal/gateway"
)

// Operation names. SearchEmails and SendEmail are advertised as MCP
// tools; ListRecentEmails backs the inbox resource and stays
// dispatchable by name.
const (
	SearchEmails     = "search_emails"
	SendEmail        = "send_email"
	ListRecentEmails = "list_recent_emails"
)

const (
	defaultMaxResults = 10
	maxMaxResults     = 50
)

// SearchEmailsRequest are the arguments of search_emails.
type SearchEmailsRequest struct {
	Query      string `json:"query"`
	MaxResults int64  `json:"max_results,omitempty"`
}

// SendEmailRequest are the arguments of send_email. CC and BCC are
// comma-separated address lists.
type SendEmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	CC      string `json:"cc,omitempty"`
	BCC     string `json:"bcc,omitempty"`
}

// ListRecentEmailsRequest are the arguments of list_recent_emails.
type ListRecentEmailsRequest struct {
	MaxResults int64 `json:"max_results,omitempty"`
}

type mailGateway interface {
	ListRecent(ctx context.Context, limit int64) ([]gateway.MessageSummary, error)
	Search(ctx context.Context, query string, limit int64) ([]gateway.MessageSummary, error)
	Send(ctx context.Context, req gateway.SendRequest) (string, error)
}

// Dispatcher validates and routes incoming operations to the gateway.
type Dispatcher struct {
	gw mailGateway
}

// NewDispatcher creates a Dispatcher on top of gw.
func NewDispatcher(gw mailGateway) *Dispatcher {
	return &Dispatcher{gw: gw}
}

// Dispatch runs the named operation against args. It always returns a
// result: caller mistakes and downstream failures alike come back as
// content with IsError set.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) *mcp.CallToolResult {
	switch name {
	case SearchEmails:
		return d.searchEmails(ctx, args)
	case SendEmail:
		return d.sendEmail(ctx, args)
	case ListRecentEmails:
		return d.listRecentEmails(ctx, args)
	default:
		return errorResult(fmt.Sprintf("Unknown tool: %s", name))
	}
}

func (d *Dispatcher) searchEmails(ctx context.Context, args map[string]any) *mcp.CallToolResult {
	var req SearchEmailsRequest
	if detail := parseSearchArgs(args, &req); detail != "" {
		return errorResult("Invalid search arguments: " + detail)
	}

	messages, err := d.gw.Search(ctx, req.Query, normalizeMaxResults(req.MaxResults))
	if err != nil {
		log.Printf("search_emails failed: %v", err)
		return errorResult("Error searching emails: " + err.Error())
	}

	return summariesResult(messages)
}

func (d *Dispatcher) listRecentEmails(ctx context.Context, args map[string]any) *mcp.CallToolResult {
	var req ListRecentEmailsRequest
	if detail := parseListArgs(args, &req); detail != "" {
		return errorResult("Invalid list arguments: " + detail)
	}

	messages, err := d.gw.ListRecent(ctx, normalizeMaxResults(req.MaxResults))
	if err != nil {
		log.Printf("list_recent_emails failed: %v", err)
		return errorResult("Error listing emails: " + err.Error())
	}

	return summariesResult(messages)
}

func (d *Dispatcher) sendEmail(ctx context.Context, args map[string]any) *mcp.CallToolResult {
	var req SendEmailRequest
	if detail := parseSendArgs(args, &req); detail != "" {
		return errorResult("Invalid send arguments: " + detail)
	}

	id, err := d.gw.Send(ctx, gateway.SendRequest{
		To:      req.To,
		Subject: req.Subject,
		Body:    req.Body,
		CC:      req.CC,
		BCC:     req.BCC,
	})
	if err != nil {
		log.Printf("send_email failed: %v", err)
		return errorResult("Error: " + err.Error())
	}

	return textResult(fmt.Sprintf("Email sent successfully!\nMessage ID: %s", id))
}

func summariesResult(messages []gateway.MessageSummary) *mcp.CallToolResult {
	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		log.Printf("json.MarshalIndent failed: %v", err)
		return errorResult("Error: " + err.Error())
	}
	return textResult(string(data))
}

func normalizeMaxResults(maxResults int64) int64 {
	if maxResults <= 0 {
		return defaultMaxResults
	}
	if maxResults > maxMaxResults {
		return maxMaxResults
	}
	return maxResults
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
