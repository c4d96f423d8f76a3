// Package composer builds the single text payload sent to the backend for a
// chat turn: an optional profile block, the current query, and a short
// trailing slice of the conversation.
package composer

import (
	"strings"

	"github.com/agentoven/advisor-desk/pkg/models"
)

// DefaultMaxHistory is how many prior transcript entries accompany a query.
const DefaultMaxHistory = 5

const (
	profileHeading = "USER PROFILE:"
	queryPrefix    = "CURRENT USER QUERY: "
	historyHeading = "HISTORY CONVERSATION:"
)

// Compose renders the outbound message.
//
// transcript may or may not already end with the current user message; a
// trailing user entry whose content equals current is dropped so the query
// never appears twice. At most maxHistory of the remaining entries are kept,
// oldest first. profileText is included verbatim when non-empty. A negative
// maxHistory is treated as zero.
func Compose(transcript []models.Message, current string, profileText string, maxHistory int) string {
	history := Window(transcript, current, maxHistory)

	var b strings.Builder
	if profileText != "" {
		b.WriteString(profileHeading)
		b.WriteString("\n")
		b.WriteString(profileText)
		b.WriteString("\n\n")
	}

	b.WriteString(queryPrefix)
	b.WriteString(current)

	if len(history) > 0 {
		b.WriteString("\n")
		b.WriteString(historyHeading)
		for _, m := range history {
			b.WriteString("\n")
			b.WriteString(m.Role.PromptLabel())
			b.WriteString(": ")
			b.WriteString(m.Content)
		}
	}
	return b.String()
}

// Window returns the history entries Compose would include.
func Window(transcript []models.Message, current string, maxHistory int) []models.Message {
	history := transcript
	if n := len(history); n > 0 {
		last := history[n-1]
		if last.Role == models.RoleUser && last.Content == current {
			history = history[:n-1]
		}
	}

	if maxHistory < 0 {
		maxHistory = 0
	}
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	return history
}
