package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arsenal-bot/internal/config"
	"arsenal-bot/internal/webpanel"
)

func TestNewReporterDisabled(t *testing.T) {
	r := NewReporter("", "key", time.Second)
	assert.Nil(t, r)

	// A nil reporter is a no-op.
	r.ReportCommand(context.Background(), webpanel.CommandEntry{Command: "balance"})
	r.ReportServers(context.Background(), nil)
}

func TestReporterSendsCommand(t *testing.T) {
	got := make(chan webpanel.CommandEntry, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, webpanel.PathCommandLog, req.URL.Path)
		assert.Equal(t, "secret", req.Header.Get(webpanel.APIKeyHeader))
		var e webpanel.CommandEntry
		assert.NoError(t, json.NewDecoder(req.Body).Decode(&e))
		got <- e
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	r := NewReporter(srv.URL+"/", "secret", time.Second)
	r.ReportCommand(context.Background(), webpanel.CommandEntry{Command: "daily", UserID: "u1", Success: true})

	select {
	case e := <-got:
		assert.Equal(t, "daily", e.Command)
		assert.Equal(t, "u1", e.UserID)
		assert.True(t, e.Success)
	default:
		t.Fatal("no report received")
	}
}

func TestReporterAgainstPanel(t *testing.T) {
	cfg := config.WebpanelConfig{Enabled: true, SecretKey: "s", APIKey: "panel-key", SessionTTL: time.Hour}
	panel := webpanel.New(cfg, func(string) bool { return false }, webpanel.Deps{})
	srv := httptest.NewServer(panel.Handler())
	defer srv.Close()

	ok := NewReporter(srv.URL, "panel-key", time.Second)
	require.NoError(t, ok.post(context.Background(), webpanel.PathServersUpdate, webpanel.ServersUpdate{
		Servers: []webpanel.ServerInfo{{ID: "g1", Name: "Arsenal", MemberCount: 12}},
	}))

	bad := NewReporter(srv.URL, "wrong", time.Second)
	assert.Error(t, bad.post(context.Background(), webpanel.PathCommandLog, webpanel.CommandEntry{Command: "top"}))
}
