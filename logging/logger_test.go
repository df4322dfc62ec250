package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapturingLoggerKeepsOrder(t *testing.T) {
	var l CapturingLogger
	l.Printf("first %d", 1)
	l.Printf("second %s", "two")

	assert.Equal(t, []string{"first 1", "second two"}, l.Output().Messages())
}

func TestCapturedOutputDump(t *testing.T) {
	var l CapturingLogger
	l.Printf("hello")

	var buf bytes.Buffer
	l.Output().Dump(&buf, "> ")

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "> ["))
	assert.True(t, strings.HasSuffix(out, "] hello\n"))
}

func TestNullLoggerDiscards(t *testing.T) {
	NullLogger().Printf("ignored %v", 42)
}

func TestNewWritesPrefix(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "[engine] ").Printf("started")
	assert.Contains(t, buf.String(), "[engine] ")
	assert.Contains(t, buf.String(), "started")
}
