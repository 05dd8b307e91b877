package issues

import "time"

type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusCanceled   Status = "canceled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusResolved, StatusCanceled:
		return true
	}
	return false
}

func (s Status) Title() string {
	switch s {
	case StatusNew:
		return "Новая"
	case StatusInProgress:
		return "В работе"
	case StatusResolved:
		return "Решена"
	case StatusCanceled:
		return "Отменена"
	}
	return string(s)
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

func (p Priority) Title() string {
	switch p {
	case PriorityLow:
		return "Низкий"
	case PriorityHigh:
		return "Высокий"
	}
	return "Средний"
}

// MaxPhotos сколько фото можно приложить к проблеме
const MaxPhotos = 5

type Issue struct {
	ID         int64
	ProjectID  int64
	StageID    int64
	TaskID     int64
	ReporterID int64
	Text       string
	Priority   Priority
	Status     Status
	PhotoIDs   []string
	// сообщение-уведомление, которое редактируется при смене статуса
	NotifyChatID    int64
	NotifyMessageID int
	CreatedAt       time.Time
}
