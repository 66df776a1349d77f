package logs

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/bmizerany/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, Debug, ParseLevel("DEBUG"))
	assert.Equal(t, Warn, ParseLevel("warning"))
	assert.Equal(t, Error, ParseLevel(" error "))
	assert.Equal(t, Info, ParseLevel("whatever"))
	assert.Equal(t, "WARN", Warn.String())
}

func TestDefaultLogger_Level(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewJSONLogger(buf, Warn)
	l.Info(context.Background(), "hidden %v", 1)
	assert.Equal(t, 0, buf.Len())

	l.Error(context.Background(), "item failed, itemId:%v", "A")
	assert.Equal(t, true, strings.Contains(buf.String(), "item failed, itemId:A"))
	assert.Equal(t, true, strings.Contains(buf.String(), `"level":"error"`))
}

func TestWithField(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewJSONLogger(buf, Debug)
	ctx := WithField(context.Background(), "run_id", "r-1")
	ctx2 := WithField(ctx, "action", "send_back")
	l.Debug(ctx2, "hello")
	line := buf.String()
	assert.Equal(t, true, strings.Contains(line, `"run_id":"r-1"`))
	assert.Equal(t, true, strings.Contains(line, `"action":"send_back"`))

	buf.Reset()
	l.Debug(ctx, "parent only")
	assert.Equal(t, false, strings.Contains(buf.String(), "send_back"))
}
