package dialog

import (
	"context"
	"fmt"

	"github.com/Spok95/construction-bot/internal/infra/metrics"
)

// Watermarks хранилище водяных знаков актёра
type Watermarks interface {
	AdvanceUpdate(ctx context.Context, chatID int64, updateID int) (bool, error)
	MarkMessage(ctx context.Context, chatID int64, messageID int) (bool, error)
}

// Gate пропускает апдейт не более одного раза.
// Блокировка актёра держится только на время сравнения и записи знака.
type Gate struct {
	marks Watermarks
}

func NewGate(marks Watermarks) *Gate { return &Gate{marks: marks} }

// Admit messageID == 0 означает, что апдейт не несёт сообщения (callback)
func (g *Gate) Admit(ctx context.Context, chatID int64, updateID, messageID int) (bool, error) {
	ok, err := g.marks.AdvanceUpdate(ctx, chatID, updateID)
	if err != nil {
		return false, fmt.Errorf("advance update watermark: %w", err)
	}
	if !ok {
		metrics.DuplicatesDropped.WithLabelValues("update").Inc()
		return false, nil
	}
	if messageID == 0 {
		return true, nil
	}
	ok, err = g.marks.MarkMessage(ctx, chatID, messageID)
	if err != nil {
		return false, fmt.Errorf("mark message: %w", err)
	}
	if !ok {
		metrics.DuplicatesDropped.WithLabelValues("message").Inc()
		return false, nil
	}
	return true, nil
}
