package capture

import (
	"errors"
	"strings"
)

// ErrListingUnavailable means the records search never rendered a results
// listing. It is the only per-property error that fails the whole capture
// run; everything after a successful listing is isolated per document.
var ErrListingUnavailable = errors.New("records search listing unavailable")

// SentinelSummary replaces the generated summary when a document could not
// be captured or summarized. The document record itself is still written,
// preserving the one-record-per-matched-document invariant.
const SentinelSummary = "SUMMARY UNAVAILABLE: DOCUMENT CAPTURE FAILED"

// sessionLostPatterns identify errors that mean the remote browser
// session or page context died, as opposed to an ordinary timeout. The
// strings come from the error text remote-browser gateways emit.
var sessionLostPatterns = []string{
	"session closed",
	"session expired",
	"session not found",
	"target closed",
	"target crashed",
	"context was destroyed",
	"execution context",
	"browser has disconnected",
	"websocket",
	"detached frame",
}

// IsSessionLost reports whether err indicates the capture session
// terminated unexpectedly. Session-lost errors get the one-shot recovery
// protocol; anything else becomes the document's sentinel failure.
func IsSessionLost(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range sessionLostPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
