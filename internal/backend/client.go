// Package backend is the HTTP client for the agent/team backend service.
//
// The backend exposes:
//
//	GET  /agents              → [{id, name, ...}]
//	GET  /teams               → [{id, name, members, ...}]
//	POST /agents/{id}/runs    → {content, metrics: {total_tokens}}
//	POST /teams/{id}/runs     → same shape
//
// Run bodies are form-encoded (message, stream=false, session_id, user_id).
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentoven/advisor-desk/pkg/models"
)

var tracer = otel.Tracer("advisor-desk/backend")

// maxErrorBody caps how much of a failed response body is kept for messages.
const maxErrorBody = 512

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%d %s for url: %s", e.Code, http.StatusText(e.Code), e.URL)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Client talks to the backend agent service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a backend client. A zero timeout means calls wait until
// the backend answers or the caller's context is cancelled.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// NewClientWithHTTP is used by tests and callers that need a custom transport.
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListAgents fetches the agent catalog.
func (c *Client) ListAgents(ctx context.Context) ([]models.Responder, error) {
	return c.list(ctx, models.KindAgent)
}

// ListTeams fetches the team catalog.
func (c *Client) ListTeams(ctx context.Context) ([]models.Responder, error) {
	return c.list(ctx, models.KindTeam)
}

func (c *Client) list(ctx context.Context, kind models.ResponderKind) ([]models.Responder, error) {
	endpoint := c.baseURL + "/" + kind.Plural()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var items []models.Responder
	if err := c.do(req, "list "+kind.Plural(), &items); err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Kind = kind
	}
	return items, nil
}

// Run posts a composed message to an agent or team and decodes the reply.
func (c *Client) Run(ctx context.Context, ref models.ResponderRef, in models.RunRequest) (*models.RunResult, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/runs", c.baseURL, ref.Kind.Plural(), url.PathEscape(ref.ID))

	form := url.Values{}
	form.Set("message", in.Message)
	form.Set("stream", "false")
	form.Set("session_id", in.SessionID)
	form.Set("user_id", in.UserID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build run request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	var result models.RunResult
	err = c.do(req, "run "+string(ref.Kind), &result)

	event := log.Info()
	if err != nil {
		event = log.Warn().Err(err)
	}
	event.
		Str("responder", ref.ID).
		Str("kind", string(ref.Kind)).
		Str("session_id", in.SessionID).
		Int("message_bytes", len(in.Message)).
		Dur("duration", time.Since(start)).
		Msg("Backend run")

	if err != nil {
		return nil, err
	}
	return &result, nil
}

// do executes req inside a client span, checks the status and decodes the
// JSON body into out. Transport errors are returned unwrapped enough for
// errors.Is / errors.As classification.
func (c *Client) do(req *http.Request, op string, out interface{}) error {
	ctx, span := tracer.Start(req.Context(), "backend "+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", req.URL.String()),
		),
	)
	defer span.End()

	req = req.WithContext(ctx)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		return err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		serr := &StatusError{
			Method: req.Method,
			URL:    req.URL.String(),
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(body)),
		}
		span.SetStatus(codes.Error, serr.Error())
		return serr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode error")
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}
