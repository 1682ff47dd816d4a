package console

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsoleLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(ConsoleLoggerParams{Output: &buf})

	l.Debug("hidden detail")
	l.Info("build complete", "documents", 3)
	l.Warn("unparsable lookup text")

	out := buf.String()
	assert.NotContains(t, out, "hidden detail")
	assert.Contains(t, out, "build complete")
	assert.Contains(t, out, "documents=3")
	assert.Contains(t, out, "unparsable lookup text")
}

func TestConsoleLogger_Debug(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(ConsoleLoggerParams{Output: &buf, Debug: true, Prefix: "nedindex"})

	l.Debug("entity indexed", "name", "Apple Inc.")

	assert.Contains(t, buf.String(), "entity indexed")
	assert.Contains(t, buf.String(), "nedindex")
}
