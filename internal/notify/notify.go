package notify

import (
	"context"
	"net/url"
	"strings"
)

// Result reports a dispatch outcome as data, never as an exception. Link is
// always populated so callers can fall back to manual sharing when delivery
// fails.
type Result struct {
	Delivered bool   `json:"delivered"`
	Reference string `json:"reference,omitempty"`
	Err       string `json:"error,omitempty"`
	Link      string `json:"link"`
}

type Dispatcher interface {
	Send(ctx context.Context, recipient, sessionID, message string) Result
}

// ShareLink builds the link a recipient opens: <base>/?tracking_id=<id>.
// This is the sole wire contract between the sender and recipient flows.
func ShareLink(baseURL, sessionID string) string {
	return strings.TrimRight(baseURL, "/") + "/?tracking_id=" + url.QueryEscape(sessionID)
}
