package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/MohanGuptaKoduru/ServiceLink/config"
	"github.com/MohanGuptaKoduru/ServiceLink/reembed"
)

type cliRun struct {
	t      *testing.T
	dbPath string
	config string
}

func newCLIRun(t *testing.T) *cliRun {
	t.Helper()
	t.Setenv("AZURE_MAPS_KEY", "")
	dir := t.TempDir()
	return &cliRun{
		t:      t,
		dbPath: filepath.Join(dir, "db"),
		config: filepath.Join(dir, "missing.yaml"),
	}
}

// run executes one command against a fresh app and returns stdout.
func (r *cliRun) run(args ...string) (string, error) {
	r.t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr

	argv := append([]string{"servicelink", "--log-level", "error", "--config", r.config, "--db", r.dbPath}, args...)
	err := app.Run(argv)
	return stdout.String(), err
}

func findFlag[T cli.Flag](cmd *cli.Command, name string) T {
	var zero T
	for _, flag := range cmd.Flags {
		if f, ok := flag.(T); ok && flag.Names()[0] == name {
			return f
		}
	}
	return zero
}

func TestAppFlags(t *testing.T) {
	app := newApp()

	t.Run("reembed defaults", func(t *testing.T) {
		cmd := app.Command("reembed")
		require.NotNil(t, cmd)

		batch := findFlag[*cli.IntFlag](cmd, "batch-size")
		require.NotNil(t, batch)
		assert.Equal(t, reembed.DefaultBatchSize, batch.Value)

		force := findFlag[*cli.BoolFlag](cmd, "force")
		require.NotNil(t, force)
		assert.False(t, force.Value)
	})

	t.Run("search limit default", func(t *testing.T) {
		limit := findFlag[*cli.IntFlag](app.Command("search"), "limit")
		require.NotNil(t, limit)
		assert.Equal(t, 5, limit.Value)
	})

	t.Run("every command is registered", func(t *testing.T) {
		for _, name := range []string{"serve", "search", "seed", "reembed", "bookings", "route"} {
			assert.NotNil(t, app.Command(name), name)
		}
	})
}

func TestSetupLogger_InvalidLevel(t *testing.T) {
	r := newCLIRun(t)
	var stdout bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stdout

	err := app.Run([]string{"servicelink", "--log-level", "loud", "--config", r.config, "search", "fan"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestReembed_FlagValidation(t *testing.T) {
	r := newCLIRun(t)
	_, err := r.run("reembed", "--batch-size", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch-size")

	_, err = r.run("reembed", "--workers", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
}

func TestSeedSearchAndBook(t *testing.T) {
	r := newCLIRun(t)

	out, err := r.run("seed")
	require.NoError(t, err)
	assert.Contains(t, out, "Added 7 of 7 technicians")

	ids := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && strings.HasPrefix(line, "  ") {
			ids[fields[1]] = fields[0]
		}
	}
	require.Contains(t, ids, "Aakash")

	out, err = r.run("seed")
	require.NoError(t, err)
	assert.Contains(t, out, "Added 0 of 7 technicians", "seeding twice adds nothing")

	out, err = r.run("search", "--limit", "1", "water", "pump", "not", "working")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 technicians")
	assert.Contains(t, out, "1: Aakash")

	out, err = r.run("reembed")
	require.NoError(t, err)
	assert.Contains(t, out, "embedded=0 skipped=7 failed=0 total=7")

	out, err = r.run("bookings", "create", "--technician", ids["Aakash"], "--customer", "c1", "--name", "Meera")
	require.NoError(t, err)
	fields := strings.Fields(out)
	require.NotEmpty(t, fields)
	bookingID := fields[0]
	assert.Contains(t, out, "pending")

	_, err = r.run("bookings", "rate", "--stars", "5", bookingID)
	require.Error(t, err, "pending bookings cannot be rated")

	_, err = r.run("bookings", "complete", bookingID)
	require.NoError(t, err)

	out, err = r.run("bookings", "rate", "--stars", "5", bookingID)
	require.NoError(t, err)
	assert.Contains(t, out, "rating=5")

	out, err = r.run("bookings", "list", "--customer", "c1")
	require.NoError(t, err)
	assert.Contains(t, out, bookingID)
	assert.Contains(t, out, "completed")
}

func TestSeed_File(t *testing.T) {
	r := newCLIRun(t)
	_, err := r.run("seed", "--file", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load technicians")
}

func TestRoute_RequiresKey(t *testing.T) {
	r := newCLIRun(t)
	_, err := r.run("route", "--from", "MG Road", "--to", "Koramangala")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AZURE_MAPS_KEY")
}

func TestBuildServer(t *testing.T) {
	t.Setenv("AZURE_MAPS_KEY", "")
	cfg := config.Default()
	cfg.Storage.InMemory = true
	cfg.Server.Addr = "127.0.0.1:0"

	m, err := openMarketplace(context.Background(), cfg)
	require.NoError(t, err)
	defer m.Close()

	srv, cleanup, err := buildServer(cfg, m, nil, "")
	require.NoError(t, err)
	defer cleanup()

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/message", strings.NewReader(`{"message":"hi"}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "assistant is disabled by default")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, runServer(ctx, srv, time.Second))
}

func TestAssistantOptions(t *testing.T) {
	assert.Len(t, assistantOptions(config.AssistantConfig{}), 1)
	assert.Len(t, assistantOptions(config.AssistantConfig{HistoryTurns: 4, SystemPrompt: "Be brief."}), 3)
}
