package main

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/group-trips/internal/config"
	"github.com/pkordes/group-trips/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sqliteConfig(t *testing.T, port string) config.Config {
	t.Helper()
	return config.Config{
		Port:         port,
		LogLevel:     "info",
		LogFormat:    "json",
		StoreDriver:  config.DriverSQLite,
		SQLitePath:   testutil.SQLitePath(t),
		MaxBodyBytes: 1 << 20,
	}
}

// TestServe_listenErrorClosesStore occupies the port first so the server
// cannot start. serve must return the error instead of exiting, and the
// store must be closed, which removes SQLite's WAL file.
func TestServe_listenErrorClosesStore(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	_, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	cfg := sqliteConfig(t, port)

	err = serve(context.Background(), cfg, quietLogger())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen")
	assert.NoFileExists(t, cfg.SQLitePath+"-wal")
}

// TestServe_cancelShutsDownCleanly verifies that cancelling the context
// shuts the server down without an error.
func TestServe_cancelShutsDownCleanly(t *testing.T) {
	cfg := sqliteConfig(t, "0")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := serve(ctx, cfg, quietLogger())

	require.NoError(t, err)
	_, statErr := os.Stat(cfg.SQLitePath)
	assert.NoError(t, statErr, "store should have been created")
	assert.NoFileExists(t, cfg.SQLitePath+"-wal")
}

func TestServe_unknownDriver(t *testing.T) {
	cfg := sqliteConfig(t, "0")
	cfg.StoreDriver = "cassandra"

	err := serve(context.Background(), cfg, quietLogger())

	assert.ErrorContains(t, err, "unknown store driver")
}
