package logger

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		debug bool
		info  bool
	}{
		{"production json", Config{Level: "info", Format: "json"}, false, true},
		{"development console", Config{Level: "debug", Format: "console"}, true, true},
		{"warn only", Config{Level: "warn", Format: "json"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(&tt.cfg)
			require.NoError(t, err)
			assert.NotNil(t, l)
			assert.Equal(t, tt.debug, l.Core().Enabled(zapcore.DebugLevel))
			assert.Equal(t, tt.info, l.Core().Enabled(zapcore.InfoLevel))
		})
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	assert.Error(t, err)
}

func TestWithRayID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		WithRayID(base, c).Info("without")
		c.Locals("ray_id", "ray-1")
		WithRayID(base, c).Info("with")
		return c.SendStatus(fiber.StatusOK)
	})

	_, err := app.Test(httptest.NewRequest("GET", "/", nil), 2000)
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Empty(t, entries[0].ContextMap())
	assert.Equal(t, "ray-1", entries[1].ContextMap()["ray_id"])
}

func TestNew_ServiceField(t *testing.T) {
	cfg := Config{Level: "info", Format: "json", Service: "room-mapper"}
	l, err := New(&cfg)
	require.NoError(t, err)
	assert.NotNil(t, l)

	cfg.Service = ""
	l, err = New(&cfg)
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestForFeed(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ForFeed(base, "provider_a", "").Info("posted")
	ForFeed(base, "provider_a", "incoming/provider_a.xml").Info("bucket")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, map[string]any{"source": "provider_a"}, entries[0].ContextMap())
	assert.Equal(t, map[string]any{"source": "provider_a", "object": "incoming/provider_a.xml"}, entries[1].ContextMap())
}
