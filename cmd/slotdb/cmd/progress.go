package cmd

import (
	"context"
	"log/slog"
)

// loadProgress logs table load progress and stops the scan when ctx ends
type loadProgress struct {
	ctx    context.Context
	logger *slog.Logger
	total  int
	step   int
}

func newLoadProgress(ctx context.Context, logger *slog.Logger) *loadProgress {
	return &loadProgress{ctx: ctx, logger: logger}
}

func (p *loadProgress) SetTotal(total int) {
	p.total = total
	p.step = total / 10
	if p.step == 0 {
		p.step = 1
	}
	p.logger.Debug("loading records", "total", total)
}

func (p *loadProgress) Progress(done int) {
	if done%p.step == 0 || done == p.total {
		p.logger.Debug("load progress", "done", done, "total", p.total)
	}
}

func (p *loadProgress) Cancelled() bool {
	return p.ctx.Err() != nil
}
