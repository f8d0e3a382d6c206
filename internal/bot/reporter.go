package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"arsenal-bot/internal/webpanel"
)

// Reporter pushes command usage and the guild list to the webpanel. Every
// report is best effort: failures are logged and never reach the user.
type Reporter struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
}

// NewReporter creates a Reporter. An empty baseURL returns nil, which
// reports nothing.
func NewReporter(baseURL, apiKey string, timeout time.Duration) *Reporter {
	if baseURL == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Reporter{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		client:  &http.Client{},
	}
}

// ReportCommand sends one command invocation.
func (r *Reporter) ReportCommand(ctx context.Context, e webpanel.CommandEntry) {
	if r == nil {
		return
	}
	if err := r.post(ctx, webpanel.PathCommandLog, e); err != nil {
		log.Debug().Err(err).Str("command", e.Command).Msg("Failed to report command to webpanel")
	}
}

// ReportServers replaces the panel's guild list.
func (r *Reporter) ReportServers(ctx context.Context, servers []webpanel.ServerInfo) {
	if r == nil {
		return
	}
	if err := r.post(ctx, webpanel.PathServersUpdate, webpanel.ServersUpdate{Servers: servers}); err != nil {
		log.Warn().Err(err).Int("servers", len(servers)).Msg("Failed to push server list to webpanel")
	}
}

func (r *Reporter) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(webpanel.APIKeyHeader, r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("report request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webpanel answered %s", resp.Status)
	}
	return nil
}
