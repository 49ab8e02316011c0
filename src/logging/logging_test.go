package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/newsdesk-cms/newsdesk/src/config"
	"github.com/newsdesk-cms/newsdesk/src/oops"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSetup(t *testing.T) {
	defer Setup(&bytes.Buffer{}, config.Dev, zerolog.GlobalLevel())

	var buf bytes.Buffer
	Setup(&buf, config.Live, zerolog.InfoLevel)
	Info().Msg("hello")
	Debug().Msg("hidden")

	assert.Contains(t, buf.String(), `"env":"live"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
	assert.NotContains(t, buf.String(), "hidden")
}

func TestExtractLogger(t *testing.T) {
	assert.Same(t, GlobalLogger(), ExtractLogger(context.Background()))

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx := AttachLoggerToContext(&logger, context.Background())
	ExtractLogger(ctx).Warn().Msg("from context")
	assert.Contains(t, buf.String(), "from context")
}

func TestLogPanicValue(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())
	zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	LogPanicValue(&logger, "plain value", "boom")
	assert.Contains(t, buf.String(), `"recovered":"plain value"`)
	assert.Contains(t, buf.String(), `"stack"`)

	buf.Reset()
	LogPanicValue(&logger, oops.New(errors.New("disk full"), "failed to save"), "boom")
	assert.Contains(t, buf.String(), "disk full")
	assert.Contains(t, buf.String(), `"stack"`)
}
