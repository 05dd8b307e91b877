package testutil

import (
	"context"
	"sync"

	"github.com/Spok95/construction-bot/internal/resolver"
)

// Pusher запоминает выгруженные строки; Fn подменяет результат
type Pusher struct {
	mu    sync.Mutex
	next  int64
	Lines []resolver.Line
	Fn    func(resolver.Line) (resolver.Result, error)
}

func (p *Pusher) Push(_ context.Context, line resolver.Line) (resolver.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Lines = append(p.Lines, line)
	if p.Fn != nil {
		return p.Fn(line)
	}
	if ref, err := resolver.ParseRef(line.Ref); err == nil && !ref.IsZero() {
		return resolver.Result{Ref: ref}, nil
	}
	p.next++
	return resolver.Result{Ref: resolver.Ref{Model: "x_stage_line", ID: p.next}, Created: true}, nil
}

func (p *Pusher) Pushed() []resolver.Line {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]resolver.Line(nil), p.Lines...)
}
