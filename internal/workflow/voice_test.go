package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/construction-bot/internal/domain/batches"
)

func TestMatchLine(t *testing.T) {
	lines := []batches.OpenLine{
		{Line: batches.Line{ID: 1, ProductName: "Гипсокартон Knauf 12.5 (лист)"}},
		{Line: batches.Line{ID: 2, ProductName: "Ротбанд (мешок)"}},
		{Line: batches.Line{ID: 3, ProductName: "Профиль CD 60 (шт)"}},
	}
	tests := []struct {
		spoken string
		want   int64
		found  bool
	}{
		{spoken: "гипсокартон", want: 1, found: true},
		{spoken: "Ротбанд", want: 2, found: true},
		{spoken: "ротбанд (мешок) хороший", want: 2, found: true},
		{spoken: "профиль cd", want: 3, found: true},
		{spoken: "цемент м500", found: false},
		{spoken: "  ", found: false},
	}
	for _, tt := range tests {
		t.Run(tt.spoken, func(t *testing.T) {
			got, ok := MatchLine(lines, tt.spoken)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.want, got.ID)
			}
		})
	}
}

func TestMatchLineOverlapThreshold(t *testing.T) {
	lines := []batches.OpenLine{
		{Line: batches.Line{ID: 1, ProductName: "краска белая матовая интерьерная водная акриловая"}},
	}
	// 1 слово из 6 — ниже порога
	_, ok := MatchLine(lines, "белая эмаль")
	assert.False(t, ok)
	// 2 из 6 — выше
	got, ok := MatchLine(lines, "белая матовая эмаль")
	require.True(t, ok)
	assert.Equal(t, int64(1), got.ID)
}

func TestApplyVoicePricesSubmitsDrafts(t *testing.T) {
	e := newEnv(t)
	b := e.newBatch(t)
	ctx := context.Background()

	res, err := e.svc.ApplyVoicePrices(ctx, e.project.ID, []PriceItem{
		{Name: "гипсокартон", Price: 500},
		{Name: "ротбанд", Price: 0},
		{Name: "шпаклёвка", Price: 300},
	}, e.supply)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, []string{"шпаклёвка (300)"}, res.NotFound)
	assert.Equal(t, []string{b.Name}, res.Submitted)
	assert.Contains(t, res.Text(), "Не найдено")

	got, _ := e.batches.Get(ctx, b.ID)
	assert.Equal(t, batches.StatusPriced, got.Status)
	assert.Equal(t, 500.0, got.Lines[0].UnitPrice)
	assert.True(t, e.sender.Contains(e.customer.ChatID, b.Name))
}
