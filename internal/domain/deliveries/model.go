package deliveries

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPurchased Status = "purchased"
	StatusInTransit Status = "in_transit"
	StatusDelivered Status = "delivered"
)

// Statuses в порядке движения поставки
var Statuses = []Status{StatusPurchased, StatusInTransit, StatusDelivered}

func (s Status) Valid() bool { return s.rank() >= 0 }

func (s Status) rank() int {
	for i, st := range Statuses {
		if st == s {
			return i
		}
	}
	return -1
}

func (s Status) Title() string {
	switch s {
	case StatusPurchased:
		return "Куплено"
	case StatusInTransit:
		return "В пути"
	case StatusDelivered:
		return "Доставлено"
	}
	return string(s)
}

// Source откуда пришло изменение статуса
type Source string

const (
	SourceBot     Source = "telegram"
	SourceBackend Source = "backend"
)

var (
	ErrUnknownStatus      = errors.New("неизвестный статус поставки")
	ErrBackwardTransition = errors.New("статус поставки нельзя вернуть назад")
)

type Delivery struct {
	ID        int64
	BatchID   int64
	Status    Status
	UpdatedBy int64
	UpdatedAt time.Time
	Note      string
}

type LogEntry struct {
	ID         int64
	DeliveryID int64
	Old        Status
	New        Status
	ActorID    int64
	Source     Source
	Note       string
	CreatedAt  time.Time
}

// Policy ограничения на смену статуса
type Policy struct {
	ForwardOnly bool
}

// Change запрос на смену статуса
type Change struct {
	Status  Status
	ActorID int64
	Source  Source
	Note    string
}

// Apply меняет статус поставки в памяти и возвращает запись журнала.
// Тот же статус — nil без ошибки: журнал не пишется.
func Apply(d *Delivery, ch Change, p Policy, now time.Time) (*LogEntry, error) {
	if !ch.Status.Valid() {
		return nil, ErrUnknownStatus
	}
	if d.Status == ch.Status {
		return nil, nil
	}
	if p.ForwardOnly && ch.Status.rank() < d.Status.rank() {
		return nil, ErrBackwardTransition
	}
	entry := &LogEntry{
		DeliveryID: d.ID,
		Old:        d.Status,
		New:        ch.Status,
		ActorID:    ch.ActorID,
		Source:     ch.Source,
		Note:       ch.Note,
		CreatedAt:  now,
	}
	d.Status = ch.Status
	d.UpdatedBy = ch.ActorID
	d.UpdatedAt = now
	if ch.Note != "" {
		d.Note = ch.Note
	}
	return entry, nil
}

// InitialLog запись журнала при заведении поставки
func InitialLog(d *Delivery, actorID int64, src Source) LogEntry {
	return LogEntry{
		DeliveryID: d.ID,
		New:        d.Status,
		ActorID:    actorID,
		Source:     src,
		Note:       "создано",
		CreatedAt:  d.UpdatedAt,
	}
}
