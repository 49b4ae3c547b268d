package tools

import (
	"strings"
)

// transportSignatures are the error shapes that indicate the MCP connection
// itself died rather than the tool call being invalid: a closed connection, a
// missing active transport, or a 400-class handshake rejection.
var transportSignatures = []string{
	"connection closed",
	"connection reset",
	"no active transport",
	"transport is closed",
	"broken pipe",
	"handshake failed",
	"400 bad request",
}

// IsTransportError reports whether an error matches a recognized
// transport-failure signature and is therefore worth one reconnect-and-retry.
// Anything else (tool-level errors, bad arguments, context cancellation)
// propagates immediately.
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range transportSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
