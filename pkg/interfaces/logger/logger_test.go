package logger_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	ifacelogger "github.com/f0mster/reqrep/interfaces/logger"
	"github.com/f0mster/reqrep/pkg/interfaces/logger"
)

var _ ifacelogger.Logger = (*logger.DefaultLogger)(nil)

func TestFileOutput(t *testing.T) {
	file := filepath.Join(t.TempDir(), "reqrep.log")
	l, err := logger.NewWithOptions(logger.Options{Level: "debug", File: file, MaxSizeMB: 1, JSON: true})
	require.NoError(t, err)

	l.Debug("endpoint created", "/add_two_ints", "rq/add_two_intsRequest")
	l.Error(errors.New("boom"), "send failed", "/add_two_ints", "rr/add_two_intsReply", "42")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"endpoint created"`)
	require.Contains(t, string(data), `"error":"boom"`)
	require.Contains(t, string(data), `"topic":"rr/add_two_intsReply"`)
}

func TestBadLevel(t *testing.T) {
	_, err := logger.NewWithOptions(logger.Options{Level: "loud"})
	require.Error(t, err)
}

var _ ifacelogger.Logger = (*logger.ZeroLogger)(nil)

func TestZerologFileOutput(t *testing.T) {
	file := filepath.Join(t.TempDir(), "reqrep.log")
	l, err := logger.NewZerolog(logger.Options{Level: "info", File: file, JSON: true})
	require.NoError(t, err)

	l.Debug("hidden", "/add_two_ints", "rq/add_two_intsRequest")
	l.Info("service started", "/add_two_ints", "rq/add_two_intsRequest")
	l.Error(errors.New("boom"), "take failed", "/add_two_ints", "rq/add_two_intsRequest", "")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.NotContains(t, string(data), "hidden")
	require.Contains(t, string(data), `"message":"service started"`)
	require.Contains(t, string(data), `"error":"boom"`)
	require.Contains(t, string(data), `"service":"/add_two_ints"`)
}

func TestZerologBadLevel(t *testing.T) {
	_, err := logger.NewZerolog(logger.Options{Level: "loud"})
	require.Error(t, err)
}
