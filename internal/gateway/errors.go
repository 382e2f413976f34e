package gateway

import "fmt"

// ProviderError wraps a Gmail API failure that occurred after a valid
// credential was obtained. The gateway never retries these.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("gmail %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
