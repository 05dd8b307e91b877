// Package finance — финансовые записи проекта из внешнего учёта.
package finance

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotLinked проект не связан с записью во внешнем учёте
var ErrNotLinked = errors.New("проект не связан с учётом")

type Kind string

const (
	KindIncome   Kind = "income"
	KindMaterial Kind = "material"
	KindService  Kind = "service"
)

// Record одна запись. Amount всегда неотрицательный, знак задаёт Kind.
type Record struct {
	Date        time.Time
	Kind        Kind
	StageID     int64
	StageName   string
	Name        string
	Description string
	Quantity    float64
	UnitPrice   float64
	Amount      float64
	Status      string
}

// Period полуинтервал [From, To); нулевая граница — без ограничения
type Period struct {
	Key  string
	From time.Time
	To   time.Time
}

const (
	PeriodToday = "today"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodAll   = "all"
)

// PeriodFor период по ключу относительно now. Неделя — с понедельника.
func PeriodFor(key string, now time.Time) (Period, error) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch key {
	case PeriodToday:
		return Period{Key: key, From: day, To: day.AddDate(0, 0, 1)}, nil
	case PeriodWeek:
		offset := (int(day.Weekday()) + 6) % 7
		return Period{Key: key, From: day.AddDate(0, 0, -offset), To: day.AddDate(0, 0, 1)}, nil
	case PeriodMonth:
		return Period{Key: key, From: day.AddDate(0, 0, 1-day.Day()), To: day.AddDate(0, 0, 1)}, nil
	case PeriodAll, "":
		return Period{Key: PeriodAll}, nil
	}
	return Period{}, fmt.Errorf("неизвестный период %q", key)
}

// Custom произвольный период по датам включительно
func Custom(from, to time.Time) Period {
	return Period{Key: "custom", From: from, To: to.AddDate(0, 0, 1)}
}

func (p Period) Contains(t time.Time) bool {
	if !p.From.IsZero() && t.Before(p.From) {
		return false
	}
	if !p.To.IsZero() && !t.Before(p.To) {
		return false
	}
	return true
}

func (p Period) Title() string {
	switch p.Key {
	case PeriodToday:
		return "Сегодня"
	case PeriodWeek:
		return "Неделя"
	case PeriodMonth:
		return "Месяц"
	case PeriodAll:
		return "Всё время"
	}
	return fmt.Sprintf("%s — %s", p.From.Format("02.01.2006"), p.To.AddDate(0, 0, -1).Format("02.01.2006"))
}
