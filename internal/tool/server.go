package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RecentInboxURI addresses the read-only listing of recent inbox
// messages.
const RecentInboxURI = "gmail://inbox/recent"

// NewServer creates an MCP server advertising the mail tools and the
// recent-inbox resource, all routed through d.
func NewServer(d *Dispatcher) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "gmail-mcp-server", Version: "0.1.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        SearchEmails,
		Description: "Search Gmail messages using Gmail query syntax",
		InputSchema: searchEmailsSchema(),
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
		return d.Dispatch(ctx, SearchEmails, args), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        SendEmail,
		Description: "Send a plain-text email from the authorized account",
		InputSchema: sendEmailSchema(),
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
		return d.Dispatch(ctx, SendEmail, args), nil, nil
	})

	server.AddResource(&mcp.Resource{
		URI:         RecentInboxURI,
		Name:        "Recent Gmail Messages",
		Description: "Recent emails from your Gmail inbox",
		MIMEType:    "application/json",
	}, d.ReadRecentInbox)

	return server
}

// ReadRecentInbox serves the recent-inbox resource: the same JSON
// array as list_recent_emails with the default limit.
func (d *Dispatcher) ReadRecentInbox(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	if req.Params.URI != RecentInboxURI {
		return nil, fmt.Errorf("unknown resource: %s", req.Params.URI)
	}

	messages, err := d.gw.ListRecent(ctx, defaultMaxResults)
	if err != nil {
		log.Printf("resource read failed: %v", err)
		return nil, fmt.Errorf("gw.ListRecent failed: %w", err)
	}

	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json.MarshalIndent failed: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      RecentInboxURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}

func searchEmailsSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"query":       {Type: "string", Description: "Gmail search query"},
			"max_results": {Type: "integer", Description: "Maximum number of results (default 10, max 50)"},
		},
		Required: []string{"query"},
	}
}

func sendEmailSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"to":      {Type: "string", Description: "Recipient email address"},
			"subject": {Type: "string", Description: "Email subject"},
			"body":    {Type: "string", Description: "Plain-text email body"},
			"cc":      {Type: "string", Description: "CC recipients, comma-separated"},
			"bcc":     {Type: "string", Description: "BCC recipients, comma-separated"},
		},
		Required: []string{"to", "subject", "body"},
	}
}
