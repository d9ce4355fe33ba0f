package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/approval"
)

// TicketConfig configures the ticket connector. BaseURL, Identity and
// Credential are all required; Ready fails before any network I/O when one
// is absent.
type TicketConfig struct {
	// BaseURL is the ticket creation endpoint.
	BaseURL string

	// Identity and Credential authenticate the outbound call (basic auth).
	Identity   string
	Credential string

	// ProjectKey is the tracker project tickets are filed under.
	ProjectKey string

	// Timeout bounds each outbound call. Default: 15 seconds.
	Timeout time.Duration
}

// TicketConnector files remediation tickets in an external tracker.
type TicketConnector struct {
	config *TicketConfig
	client *http.Client
	logger *slog.Logger
}

// NewTicketConnector creates the ticket connector. A nil config behaves as
// fully unconfigured.
func NewTicketConnector(cfg *TicketConfig) *TicketConnector {
	if cfg == nil {
		cfg = &TicketConfig{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &TicketConnector{
		config: cfg,
		client: &http.Client{Timeout: timeout},
		logger: slog.Default().With("component", "executor.ticket"),
	}
}

// Ready checks the required configuration without contacting the endpoint.
func (c *TicketConnector) Ready() error {
	var missing []string
	if c.config.BaseURL == "" {
		missing = append(missing, "base_url")
	}
	if c.config.Identity == "" {
		missing = append(missing, "identity")
	}
	if c.config.Credential == "" {
		missing = append(missing, "credential")
	}
	if len(missing) > 0 {
		return &ConnectorUnconfiguredError{Connector: "ticket", Missing: missing}
	}
	return nil
}

type ticketRequest struct {
	ProjectKey  string `json:"projectKey"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
}

type ticketResponse struct {
	TicketKey string `json:"ticketKey"`
}

// Execute files a ticket for the action and returns the created ticket key
// as the outcome reference.
func (c *TicketConnector) Execute(ctx context.Context, action *approval.Action) (*Outcome, error) {
	if err := c.Ready(); err != nil {
		return nil, err
	}

	payload := ticketRequest{
		ProjectKey:  c.config.ProjectKey,
		Summary:     stringField(action.Payload, "summary"),
		Description: stringField(action.Payload, "description"),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &ExecutionError{Connector: "ticket", Retryable: false, Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, &ExecutionError{Connector: "ticket", Retryable: false, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.config.Identity, c.config.Credential)

	resp, err := c.client.Do(req)
	if err != nil {
		// Timeouts and connection failures are worth a deliberate retry.
		return nil, &ExecutionError{Connector: "ticket", Retryable: isTransient(err), Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ExecutionError{
			Connector: "ticket",
			Retryable: resp.StatusCode >= 500,
			Cause:     fmt.Errorf("ticket endpoint returned status %d", resp.StatusCode),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &ExecutionError{Connector: "ticket", Retryable: true, Cause: err}
	}
	var ticket ticketResponse
	if err := json.Unmarshal(raw, &ticket); err != nil || ticket.TicketKey == "" {
		return nil, &ExecutionError{
			Connector: "ticket",
			Retryable: false,
			Cause:     fmt.Errorf("malformed ticket response: %q", string(raw)),
		}
	}

	c.logger.Info("ticket created", "action_id", action.ID, "ticket_key", ticket.TicketKey)
	return &Outcome{
		Reference: ticket.TicketKey,
		Detail:    fmt.Sprintf("created ticket %s in project %s", ticket.TicketKey, c.config.ProjectKey),
	}, nil
}

func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF)
}

func stringField(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}
