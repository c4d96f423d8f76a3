// Package reply turns the outcome of a backend run into the single assistant
// message appended to a transcript. Transport failures never escape as
// errors; they become readable notices so the session stays usable.
package reply

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/agentoven/advisor-desk/pkg/models"
)

// Class is the outcome category of a backend call.
type Class string

const (
	ClassSuccess     Class = "success"
	ClassEmpty       Class = "empty"
	ClassTimeout     Class = "timeout"
	ClassUnreachable Class = "unreachable"
	ClassError       Class = "error"
)

// NoResponseText is shown when the backend answered without content.
const NoResponseText = "No response received."

const timeoutText = "⏱️ Request timed out. The agent is taking too long to respond. Please try again."

// Outcome is a classified backend result.
type Outcome struct {
	Class   Class
	Content string
	Tokens  int
}

// Failed reports whether the outcome came from a transport failure.
func (o Outcome) Failed() bool {
	switch o.Class {
	case ClassTimeout, ClassUnreachable, ClassError:
		return true
	}
	return false
}

// Handler classifies backend results. BackendAddr is quoted in the
// connection-failure notice so the user knows what to start.
type Handler struct {
	BackendAddr string
}

// NewHandler creates a Handler for the given backend address.
func NewHandler(backendAddr string) *Handler {
	return &Handler{BackendAddr: backendAddr}
}

// Classify maps (result, err) to an Outcome. The first matching rule wins:
// content, missing content, timeout, unreachable, anything else.
func (h *Handler) Classify(res *models.RunResult, err error) Outcome {
	if err == nil {
		if res == nil || res.Content == nil {
			return Outcome{Class: ClassEmpty, Content: NoResponseText}
		}
		tokens := 0
		if res.Metrics != nil {
			tokens = res.Metrics.TotalTokens
		}
		return Outcome{Class: ClassSuccess, Content: *res.Content, Tokens: tokens}
	}

	switch {
	case isTimeout(err):
		return Outcome{Class: ClassTimeout, Content: timeoutText}
	case isUnreachable(err):
		return Outcome{
			Class:   ClassUnreachable,
			Content: fmt.Sprintf("🔌 Unable to connect to the backend. Please ensure the API is running at %s", h.BackendAddr),
		}
	default:
		return Outcome{
			Class:   ClassError,
			Content: fmt.Sprintf("❌ Error communicating with the agent: %v", err),
		}
	}
}

// Message classifies and wraps the outcome as an assistant transcript entry.
func (h *Handler) Message(res *models.RunResult, err error) (models.Message, Outcome) {
	out := h.Classify(res, err)
	return models.NewMessage(models.RoleAssistant, out.Content, out.Tokens), out
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isUnreachable(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
