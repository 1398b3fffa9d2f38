package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/cyberguardian/internal/domain/model"
	"github.com/okian/cyberguardian/pkg/logger"
	"github.com/okian/cyberguardian/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultTimeout  = 30 * time.Second
	maxErrorBody    = 512
	maxResponseBody = 1 << 20
	apiPrefix       = "/api/v1/simulation"
)

// Backend operations.
const (
	opStart    = "start"
	opMessage  = "message"
	opContinue = "continue"
	opRetry    = "retry"
)

type startRequest struct {
	Persona  string `json:"persona"`
	Age      int    `json:"age"`
	Scenario string `json:"scenario"`
}

type messageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

type response struct {
	Mode               Mode    `json:"mode"`
	Message            string  `json:"message"`
	Risk               *string `json:"risk"`
	SessionID          *string `json:"session_id"`
	ManipulationTactic *string `json:"manipulation_tactic"`
	Guidance           *string `json:"guidance"`
}

// HTTPClient implements Client over the backend's JSON API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        logger.Logger
}

// NewHTTPClient creates a client for the backend rooted at baseURL.
func NewHTTPClient(baseURL string, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start implements Client.
func (c *HTTPClient) Start(ctx context.Context, scenario model.ScenarioType, identity model.Identity, age model.AgeGroup) (Opening, error) {
	persona, err := Persona(identity)
	if err != nil {
		return Opening{}, err
	}
	key, err := ScenarioKey(scenario)
	if err != nil {
		return Opening{}, err
	}
	years, err := RepresentativeAge(age)
	if err != nil {
		return Opening{}, err
	}

	resp, err := c.post(ctx, opStart, startRequest{Persona: persona, Age: years, Scenario: key}, false)
	if err != nil {
		return Opening{}, err
	}
	if resp.Mode != ModeSimulator || resp.SessionID == nil || *resp.SessionID == "" {
		return Opening{}, c.fail(ctx, opStart, fmt.Errorf("%w: start returned mode %q without a session id", ErrMalformedResponse, resp.Mode))
	}
	return Opening{Message: resp.Message, Handle: Handle(*resp.SessionID)}, nil
}

// SendMessage implements Client.
func (c *HTTPClient) SendMessage(ctx context.Context, h Handle, text string) (Reply, error) {
	if h == "" {
		return Reply{}, ErrNoSession
	}
	resp, err := c.post(ctx, opMessage, messageRequest{SessionID: string(h), Message: text}, true)
	if err != nil {
		return Reply{}, err
	}
	reply, err := toReply(resp)
	if err != nil {
		return Reply{}, c.fail(ctx, opMessage, err)
	}
	return reply, nil
}

// Continue implements Client.
func (c *HTTPClient) Continue(ctx context.Context, h Handle) (Reply, error) {
	return c.session(ctx, opContinue, h)
}

// Retry implements Client.
func (c *HTTPClient) Retry(ctx context.Context, h Handle) (Reply, error) {
	return c.session(ctx, opRetry, h)
}

func (c *HTTPClient) session(ctx context.Context, op string, h Handle) (Reply, error) {
	if h == "" {
		return Reply{}, ErrNoSession
	}
	resp, err := c.post(ctx, op, sessionRequest{SessionID: string(h)}, true)
	if err != nil {
		return Reply{}, err
	}
	if resp.Mode == ModeMentor {
		return Reply{}, c.fail(ctx, op, fmt.Errorf("%w: %s returned mentor mode", ErrMalformedResponse, op))
	}
	reply, err := toReply(resp)
	if err != nil {
		return Reply{}, c.fail(ctx, op, err)
	}
	return reply, nil
}

func toReply(resp response) (Reply, error) {
	r := Reply{Mode: resp.Mode, Message: resp.Message}
	if resp.Risk != nil {
		r.Risk = *resp.Risk
	}
	switch resp.Mode {
	case ModeSimulator, ModeEnded:
		return r, nil
	case ModeMentor:
		if resp.ManipulationTactic == nil || *resp.ManipulationTactic == "" || resp.Guidance == nil || *resp.Guidance == "" {
			return Reply{}, fmt.Errorf("%w: mentor reply without tactic and guidance", ErrMalformedResponse)
		}
		r.Tactic = *resp.ManipulationTactic
		r.Guidance = *resp.Guidance
		return r, nil
	}
	return Reply{}, fmt.Errorf("%w: unknown mode %q", ErrMalformedResponse, resp.Mode)
}

// post sends one request. withSession makes a 404 mean the handle is gone.
func (c *HTTPClient) post(ctx context.Context, op string, body any, withSession bool) (response, error) {
	start := time.Now()
	defer func() {
		metrics.RecordSimulatorLatency(op, float64(time.Since(start).Milliseconds()))
	}()

	payload, err := json.Marshal(body)
	if err != nil {
		return response{}, fmt.Errorf("encode %s request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiPrefix+"/"+op, bytes.NewReader(payload))
	if err != nil {
		return response{}, c.fail(ctx, op, fmt.Errorf("%w: %v", ErrTransport, err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return response{}, c.fail(ctx, op, fmt.Errorf("%w: %v", ErrTransport, err))
	}
	defer resp.Body.Close()

	if withSession && resp.StatusCode == http.StatusNotFound {
		return response{}, c.fail(ctx, op, ErrSessionEnded)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return response{}, c.fail(ctx, op, fmt.Errorf("%w: %s status %d: %s", ErrTransport, op, resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	var out response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&out); err != nil {
		return response{}, c.fail(ctx, op, fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}
	return out, nil
}

func (c *HTTPClient) fail(ctx context.Context, op string, err error) error {
	metrics.RecordSimulatorError(op, errorKind(err))
	c.log.Warn(ctx, "simulation backend call failed",
		logger.String("operation", op),
		logger.Error(err))
	return err
}
