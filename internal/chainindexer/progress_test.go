package chainindexer

import (
	"bytes"
	"testing"

	"github.com/kaspanet/ordindexer/internal/logs"
)

func newCapturingLogger(buf *bytes.Buffer) *logs.Logger {
	backend := logs.NewBackend([]*logs.BackendWriter{logs.NewAllLevelsBackendWriter(buf)})
	l := backend.Logger("TEST")
	l.SetLevel(logs.LevelInfo)
	return l
}

func TestProgressFinishLogsOnlyWhenWorkWasDone(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(newCapturingLogger(&buf), "replaying blocks", 0)
	p.finish()
	if buf.Len() != 0 {
		t.Fatalf("expected no log line for zero completed units, got %q", buf.String())
	}

	p = newProgress(newCapturingLogger(&buf), "replaying blocks", 3)
	p.inc()
	p.inc()
	p.inc()
	p.finish()
	if buf.Len() == 0 {
		t.Fatal("expected a final summary line after processing units")
	}
}

func TestProgressWithNilLoggerDoesNotPanic(t *testing.T) {
	p := newProgress(nil, "replaying blocks", 5)
	p.inc()
	p.finish()
}
