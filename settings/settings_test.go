package settings_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frobware/go-fastpath/generic"
	"github.com/frobware/go-fastpath/settings"
)

// testLogger returns a logger for tests. By default it discards all output.
// Set FASTPATH_TEST_VERBOSE=1 to enable logging.
func testLogger() *slog.Logger {
	if os.Getenv("FASTPATH_TEST_VERBOSE") != "" {
		return slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestStore(t *testing.T) *settings.Store {
	t.Helper()
	s, err := settings.Open(context.Background(),
		filepath.Join(t.TempDir(), "db", "settings.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDelayDetachTimeoutDefaultsWhenUnset(t *testing.T) {
	s := openTestStore(t)
	assert.Equal(t, generic.DefaultDelayDetachTimeout, s.DelayDetachTimeout())
}

func TestSetDelayDetachTimeoutRoundTrips(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SetDelayDetachTimeout(30*time.Second))
	assert.Equal(t, 30*time.Second, s.DelayDetachTimeout())

	// Sub-second precision is truncated.
	require.NoError(t, s.SetDelayDetachTimeout(1500*time.Millisecond))
	assert.Equal(t, time.Second, s.DelayDetachTimeout())

	// Zero disables the grace period entirely.
	require.NoError(t, s.SetDelayDetachTimeout(0))
	assert.Equal(t, time.Duration(0), s.DelayDetachTimeout())
}

func TestSetDelayDetachTimeoutRejectsOutOfRange(t *testing.T) {
	s := openTestStore(t)

	require.Error(t, s.SetDelayDetachTimeout(-time.Second))

	// Value unchanged after the rejected write.
	assert.Equal(t, generic.DefaultDelayDetachTimeout, s.DelayDetachTimeout())
}

func TestSettingsSurviveReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "settings.db")

	s, err := settings.Open(context.Background(), dbPath, testLogger())
	require.NoError(t, err)
	require.NoError(t, s.SetDelayDetachTimeout(45*time.Second))
	require.NoError(t, s.Close())

	s, err = settings.Open(context.Background(), dbPath, testLogger())
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, 45*time.Second, s.DelayDetachTimeout())
}
