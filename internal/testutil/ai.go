package testutil

import (
	"context"
	"sync"

	"github.com/Spok95/construction-bot/internal/domain/finance"
	"github.com/Spok95/construction-bot/internal/domain/projects"
	"github.com/Spok95/construction-bot/internal/infra/gemini"
)

// Extractor отдаёт заготовленные ответы по очереди; Err возвращается всегда, если задан
type Extractor struct {
	mu     sync.Mutex
	Items  []gemini.Extraction
	Prices [][]gemini.Price
	Err    error
	Calls  int
	Media  []*gemini.Media
}

func (e *Extractor) ExtractItems(_ context.Context, _ string, media *gemini.Media) (gemini.Extraction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Calls++
	e.Media = append(e.Media, media)
	if e.Err != nil {
		return gemini.Extraction{}, e.Err
	}
	if len(e.Items) == 0 {
		return gemini.Extraction{}, nil
	}
	out := e.Items[0]
	e.Items = e.Items[1:]
	return out, nil
}

func (e *Extractor) ExtractPrices(_ context.Context, _ string, media *gemini.Media) ([]gemini.Price, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Calls++
	e.Media = append(e.Media, media)
	if e.Err != nil {
		return nil, e.Err
	}
	if len(e.Prices) == 0 {
		return nil, nil
	}
	out := e.Prices[0]
	e.Prices = e.Prices[1:]
	return out, nil
}

// Finance записи по проекту с фильтром периода
type Finance struct {
	ByProject map[int64][]finance.Record
	Err       error
}

func (f *Finance) Records(_ context.Context, p projects.Project, period finance.Period) ([]finance.Record, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	var out []finance.Record
	for _, r := range f.ByProject[p.ID] {
		if period.Contains(r.Date) {
			out = append(out, r)
		}
	}
	return out, nil
}
