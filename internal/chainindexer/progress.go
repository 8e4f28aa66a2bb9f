package chainindexer

import (
	"time"

	"github.com/kaspanet/ordindexer/internal/logs"
)

// progressLogInterval bounds how often Update logs an in-progress line
// while replaying a long header delta, so a multi-thousand-block
// catch-up doesn't spam one line per block.
const progressLogInterval = 5 * time.Second

// progress is a rate-limited ingest-throughput logger for one Update
// call's block-replay loop, grounded on new_index/progress.rs's
// begin/inc/final-log shape (a progress bar there, a log line here,
// since this indexer has no interactive CLI surface).
type progress struct {
	log     *logs.Logger
	label   string
	total   int
	done    int
	start   time.Time
	lastLog time.Time
}

func newProgress(log *logs.Logger, label string, total int) *progress {
	now := time.Now()
	return &progress{log: log, label: label, total: total, start: now, lastLog: now}
}

// inc records one more unit of work done and logs progress at most
// once per progressLogInterval.
func (p *progress) inc() {
	p.done++
	if p.log == nil {
		return
	}
	now := time.Now()
	if now.Sub(p.lastLog) < progressLogInterval {
		return
	}
	p.lastLog = now
	p.log.Infof("%s: %d/%d blocks, %s elapsed", p.label, p.done, p.total, now.Sub(p.start).Round(time.Second))
}

// finish logs a final summary line. Call once after the loop it tracks
// completes, regardless of how many units were processed.
func (p *progress) finish() {
	if p.log == nil || p.done == 0 {
		return
	}
	p.log.Infof("%s: done, %d blocks in %s", p.label, p.done, time.Since(p.start).Round(time.Second))
}
