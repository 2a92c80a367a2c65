package commands

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forecastnet/roundcast/internal/printer"
	"github.com/forecastnet/roundcast/internal/protocol"
)

type harness struct {
	mr     *miniredis.Miniredis
	client *redis.Client
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

// newHarness points every command at a fresh miniredis and captures
// printer output.
func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	for _, k := range []string{
		"REDIS_ADDR", "ROUNDCAST_AGENT_ID", "ROUNDCAST_AGENT_IDS", "ROUNDCAST_ORACLE", "ROUNDCAST_MODEL",
		"OPENAI_BASE_URL", "ROUNDCAST_LOG_FILE", "ROUNDCAST_SEED_FILE", "ROUNDCAST_ROUNDS",
		"ROUNDCAST_DEBUG", "OPENAI_API_KEY", "GEMINI_API_KEY",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("REDIS_URL", "redis://"+mr.Addr())

	prevColor := color.NoColor
	color.NoColor = true
	var out, errOut bytes.Buffer
	restore := printer.SetOutput(&out, &errOut)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		restore()
		color.NoColor = prevColor
		configPath, agentID = "", ""
	})
	configPath, agentID = "", ""
	return &harness{mr: mr, client: client, out: &out, errOut: &errOut}
}

func run(ctx context.Context, args ...string) error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// start runs a command in the background; the returned channel yields its
// error.
func start(ctx context.Context, args ...string) <-chan error {
	done := make(chan error, 1)
	go func() { done <- run(ctx, args...) }()
	return done
}

func waitSubscribed(t *testing.T, mr *miniredis.Miniredis, channel string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(channel)[channel] >= 1
	}, 2*time.Second, 5*time.Millisecond, "nobody subscribed to %s", channel)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roundcast.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSeedCommand(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, run(context.Background(), "seed"))
	assert.Len(t, h.mr.Keys(), 7)
	v, err := h.mr.Get(protocol.ReferenceKey("agent_1", "Will AI replace 30% of jobs by 2040?"))
	require.NoError(t, err)
	assert.Equal(t, "Agent 1: Automation is projected to replace up to 30% of current jobs.", v)
	assert.False(t, h.mr.Exists(protocol.ReferenceKey("agent_1", "Will quantum computing break modern encryption by 2040?")))
	assert.Contains(t, h.out.String(), "Seeded 7 reference entries for 2 agents")
}

func TestSeedCommandFromFile(t *testing.T) {
	h := newHarness(t)
	seedFile := filepath.Join(t.TempDir(), "seed.yml")
	require.NoError(t, os.WriteFile(seedFile, []byte("agent_9:\n  \"Will it rain?\": \"Clouds are gathering.\"\n"), 0o644))
	t.Setenv("ROUNDCAST_SEED_FILE", seedFile)

	require.NoError(t, run(context.Background(), "seed"))
	v, err := h.mr.Get("vectorized_info:agent_9:Will it rain?")
	require.NoError(t, err)
	assert.Equal(t, "Clouds are gathering.", v)
	assert.Len(t, h.mr.Keys(), 1)
}

func TestCommandFailsWhenRedisIsDown(t *testing.T) {
	h := newHarness(t)
	h.mr.Close()

	err := run(context.Background(), "seed")
	require.Error(t, err)
	assert.Equal(t, "Redis connection failed", err.Error())
	assert.Contains(t, h.errOut.String(), "Could not connect to Redis")
}

func TestInvalidConfigFile(t *testing.T) {
	h := newHarness(t)
	path := writeConfig(t, "rounds: 0\n")

	err := run(context.Background(), "--config", path, "moderator")
	require.Error(t, err)
	assert.Equal(t, "invalid configuration", err.Error())
	assert.Contains(t, h.errOut.String(), "rounds must be positive")
}

func TestModeratorCommand(t *testing.T) {
	h := newHarness(t)
	t.Setenv("ROUNDCAST_ROUNDS", "2")

	sub := h.client.Subscribe(context.Background(), "forecast_event_0")
	defer sub.Close()
	waitSubscribed(t, h.mr, "forecast_event_0")

	require.NoError(t, run(context.Background(), "moderator"))

	msg, err := sub.ReceiveMessage(context.Background())
	require.NoError(t, err)
	assert.True(t, protocol.IsForecastRequest(msg.Payload))
	assert.Contains(t, h.out.String(), "(1 receivers)")
	assert.Contains(t, h.out.String(), "Round 1: nobody was listening on forecast_event_1")
	assert.Contains(t, h.out.String(), "Announced 1 of 2 rounds")
}

func TestAgentCommandRequiresAPIKey(t *testing.T) {
	h := newHarness(t)

	err := run(context.Background(), "agent", "--id", "agent_2")
	require.Error(t, err)
	assert.Equal(t, "missing API key", err.Error())
	assert.Contains(t, h.errOut.String(), "OPENAI_API_KEY")
}

func TestAgentCommandPlaysRound(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"The likelihood of this event happening is 40%"}}]}`))
	}))
	defer srv.Close()
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_BASE_URL", srv.URL)
	path := writeConfig(t, "rounds: 1\nagent:\n  round_delay: 0s\n")

	results := h.client.Subscribe(context.Background(), "forecast_results_0")
	defer results.Close()
	waitSubscribed(t, h.mr, "forecast_results_0")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := start(ctx, "--config", path, "agent", "--id", "agent_2")

	waitSubscribed(t, h.mr, "forecast_event_0")
	require.NoError(t, h.client.Publish(ctx, "forecast_event_0", protocol.FormatAnnouncement("Will it rain?")).Err())

	msg, err := results.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Agent 2: The likelihood of this event happening is 40%", msg.Payload)

	require.NoError(t, <-done)
	assert.Contains(t, h.out.String(), "agent:agent_2 finished 1 rounds")
}

func TestListenerCommand(t *testing.T) {
	h := newHarness(t)
	t.Setenv("ROUNDCAST_ROUNDS", "2")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := start(ctx, "listener")

	waitSubscribed(t, h.mr, "forecast_results_1")
	h.mr.Publish("forecast_results_0", "Agent 1: The likelihood of this event happening is 35%")
	h.mr.Publish("forecast_results_1", "Agent 2: no estimate")

	// Give the listener a moment to drain before stopping it.
	time.Sleep(200 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	out := h.out.String()
	assert.Contains(t, out, "Moderator received: Agent 1: The likelihood of this event happening is 35%")
	assert.Contains(t, out, "Moderator received: Agent 2: no estimate")
	assert.Contains(t, out, "35.0%")
	assert.Regexp(t, `1\s+forecast_results_1\s+1\s+0\s+-`, out)
}
