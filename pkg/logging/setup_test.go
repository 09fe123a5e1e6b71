package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/acme/acme-auth/pkg/env"
)

func TestSetup_ProdWritesJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, cleanup := setup(env.Prod, &buf)
	t.Cleanup(func() { _ = cleanup() })

	logger.Debug("hidden")
	logger.Info("code sent", slog.String("email", RedactEmail("someone@acme.com")))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "code sent", rec["msg"])
	assert.Equal(t, "so****@acme.com", rec["email"])
	assert.Equal(t, "acme-auth", rec["service"])
	assert.Equal(t, "prod", rec["mode"])
}

func TestSetup_TestModeIsSilent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, _ := setup(env.Test, &buf)
	logger.Error("nothing to see")

	assert.Zero(t, buf.Len())
}

func TestFanout(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	h := Fanout(
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	logger := slog.New(h).WithGroup("req").With("id", "r1")

	logger.Info("info only")
	logger.Warn("both")

	assert.Contains(t, a.String(), "info only")
	assert.Contains(t, a.String(), "req.id=r1")
	assert.NotContains(t, b.String(), "info only")
	assert.Contains(t, b.String(), "both")
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
}
