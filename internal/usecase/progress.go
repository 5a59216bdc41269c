package usecase

import (
	"sync"

	"github.com/rs/zerolog"
)

// LogProgress reports reconciliation progress as info log lines
type LogProgress struct {
	logger *zerolog.Logger

	mu    sync.Mutex
	total int
	done  int
}

// NewLogProgress creates a progress reporter writing to logger
func NewLogProgress(logger *zerolog.Logger) *LogProgress {
	return &LogProgress{logger: logger}
}

// Start resets the counters
func (p *LogProgress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
	p.done = 0
	p.logger.Info().Int("total", total).Msg("querying part prices")
}

// Advance records n more parts as processed
func (p *LogProgress) Advance(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done += n
	p.logger.Info().Int("done", p.done).Int("total", p.total).Msg("progress")
}

// Finish logs the final count
func (p *LogProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger.Info().Int("done", p.done).Int("total", p.total).Msg("price query finished")
}

// Done returns the number of parts processed so far
func (p *LogProgress) Done() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

type nopProgress struct{}

func (nopProgress) Start(int)   {}
func (nopProgress) Advance(int) {}
func (nopProgress) Finish()     {}
