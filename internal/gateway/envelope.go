package gateway

import (
	"mime"
	"strings"
)

// buildEnvelope renders req as an RFC 2822 plain-text message ready
// for base64url encoding.
func buildEnvelope(req SendRequest) string {
	var b strings.Builder

	b.WriteString("To: ")
	b.WriteString(req.To)
	b.WriteString("\r\n")

	if req.CC != "" {
		b.WriteString("Cc: ")
		b.WriteString(req.CC)
		b.WriteString("\r\n")
	}
	if req.BCC != "" {
		b.WriteString("Bcc: ")
		b.WriteString(req.BCC)
		b.WriteString("\r\n")
	}

	b.WriteString("Subject: ")
	b.WriteString(encodeRFC2047(req.Subject))
	b.WriteString("\r\n")

	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("\r\n")
	b.WriteString(req.Body)

	return b.String()
}

// encodeRFC2047 encodes a header value when it carries non-ASCII
// characters; plain ASCII passes through untouched.
func encodeRFC2047(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}
