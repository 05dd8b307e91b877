package batches

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft    Status = "draft"
	StatusPriced   Status = "priced"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Title() string {
	switch s {
	case StatusDraft:
		return "Черновик"
	case StatusPriced:
		return "Оценено"
	case StatusApproved:
		return "Одобрено"
	case StatusRejected:
		return "Отклонено"
	}
	return string(s)
}

// Line строка заявки. Quantity > 0 всегда, UnitPrice 0 — цена ещё не указана.
type Line struct {
	ID          int64
	BatchID     int64
	Seq         int
	ProductName string
	Quantity    float64
	UnitPrice   float64
	// TargetRef "model,id" записи в учёте, куда выгружена строка
	TargetRef string
}

func (l Line) Priced() bool { return l.UnitPrice > 0 }

func (l Line) Total() decimal.Decimal {
	return decimal.NewFromFloat(l.Quantity).Mul(decimal.NewFromFloat(l.UnitPrice))
}

type Batch struct {
	ID          int64
	Name        string
	ProjectID   int64
	RequesterID int64
	TaskID      int64
	StageID     int64
	Date        time.Time
	Status      Status
	ApproverID  int64
	DecidedAt   *time.Time
	CreatedAt   time.Time
	Lines       []Line
}

func (b *Batch) PricedCount() int {
	n := 0
	for _, l := range b.Lines {
		if l.Priced() {
			n++
		}
	}
	return n
}

func (b *Batch) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range b.Lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

func (b *Batch) Line(id int64) (Line, bool) {
	for _, l := range b.Lines {
		if l.ID == id {
			return l, true
		}
	}
	return Line{}, false
}

// OpenLine строка заявки в статусе draft/priced вместе с заявкой — для голосовой оценки
type OpenLine struct {
	Line
	BatchStatus Status
}
