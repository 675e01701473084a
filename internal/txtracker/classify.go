package txtracker

import (
	"errors"
	"regexp"
	"strings"

	"github.com/gabapcia/txtracker/internal/action"
)

// reasonPatterns extract a human readable message embedded in provider
// error text. They are tried in order and the first match wins.
var reasonPatterns = []*regexp.Regexp{
	// JSON-RPC error body: {"code":-32000,"message":"insufficient funds."}
	regexp.MustCompile(`"message"\s*:\s*"((?:[^"\\]|\\.)*)"`),
	// go-ethereum style revert dump: reason="Not enough balance"
	regexp.MustCompile(`reason="([^"]*)"`),
	regexp.MustCompile(`execution reverted: ([^"\n]+)`),
	// jsonrpc transport: provider returned an error: [-32000] - nonce too low (data: ...)
	regexp.MustCompile(`(?m)\[-?\d+\] - (.+?)(?: \(data: .*\))?$`),
}

// Classify returns a human readable failure reason for err, or "" when none
// is known. A reason attached by the action itself takes precedence over
// anything scraped from the error text.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var actionErr *action.Error
	if errors.As(err, &actionErr) && actionErr.Reason != "" {
		return actionErr.Reason
	}

	return ClassifyText(err.Error())
}

// ClassifyText extracts the first known failure message from raw error text.
// It returns "" when no pattern matches.
func ClassifyText(text string) string {
	for _, pattern := range reasonPatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		reason := strings.TrimSuffix(strings.TrimSpace(m[1]), ".")
		if reason = strings.TrimSpace(reason); reason != "" {
			return reason
		}
	}

	return ""
}
