package gateway

import "google.golang.org/api/gmail/v1"

// MessageSummary is the caller-facing projection of one message.
// Header fields missing from the provider response keep their fixed
// placeholders; this defaulting is part of the output contract.
type MessageSummary struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	From    string `json:"from"`
	Date    string `json:"date"`
	Snippet string `json:"snippet"`
}

func summarize(msg *gmail.Message) MessageSummary {
	summary := MessageSummary{
		ID:      msg.Id,
		Subject: "No Subject",
		From:    "Unknown",
		Date:    "Unknown",
		Snippet: msg.Snippet,
	}

	if msg.Payload == nil {
		return summary
	}

	for _, header := range msg.Payload.Headers {
		switch header.Name {
		case "Subject":
			summary.Subject = header.Value
		case "From":
			summary.From = header.Value
		case "Date":
			summary.Date = header.Value
		}
	}

	return summary
}
