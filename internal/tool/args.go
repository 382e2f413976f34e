package tool

import (
	"encoding/json"
	"fmt"
)

// Argument maps arrive as raw protocol data; each parse function
// returns an empty string on success or a caller-facing detail
// message. Validation happens here so malformed calls never reach the
// gateway.

func parseSearchArgs(args map[string]any, req *SearchEmailsRequest) string {
	query, detail := requiredString(args, "query")
	if detail != "" {
		return detail
	}
	req.Query = query

	max, detail := optionalInt(args, "max_results")
	if detail != "" {
		return detail
	}
	req.MaxResults = max

	return ""
}

func parseListArgs(args map[string]any, req *ListRecentEmailsRequest) string {
	max, detail := optionalInt(args, "max_results")
	if detail != "" {
		return detail
	}
	req.MaxResults = max

	return ""
}

func parseSendArgs(args map[string]any, req *SendEmailRequest) string {
	for _, field := range []struct {
		key string
		dst *string
	}{
		{"to", &req.To},
		{"subject", &req.Subject},
		{"body", &req.Body},
	} {
		val, detail := requiredString(args, field.key)
		if detail != "" {
			return detail
		}
		*field.dst = val
	}

	for _, field := range []struct {
		key string
		dst *string
	}{
		{"cc", &req.CC},
		{"bcc", &req.BCC},
	} {
		val, detail := optionalString(args, field.key)
		if detail != "" {
			return detail
		}
		*field.dst = val
	}

	return ""
}

func requiredString(args map[string]any, key string) (string, string) {
	raw, ok := args[key]
	if !ok {
		return "", fmt.Sprintf("'%s' is required", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Sprintf("'%s' must be a string", key)
	}
	if s == "" {
		return "", fmt.Sprintf("'%s' is required", key)
	}
	return s, ""
}

func optionalString(args map[string]any, key string) (string, string) {
	raw, ok := args[key]
	if !ok {
		return "", ""
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Sprintf("'%s' must be a string", key)
	}
	return s, ""
}

// optionalInt accepts the numeric shapes JSON decoding produces plus
// plain Go ints from in-process callers.
func optionalInt(args map[string]any, key string) (int64, string) {
	raw, ok := args[key]
	if !ok {
		return 0, ""
	}

	switch v := raw.(type) {
	case float64:
		return int64(v), ""
	case int:
		return int64(v), ""
	case int64:
		return v, ""
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Sprintf("'%s' must be a number", key)
		}
		return n, ""
	default:
		return 0, fmt.Sprintf("'%s' must be a number", key)
	}
}
