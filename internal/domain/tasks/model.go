package tasks

import "time"

type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

func (s Status) Valid() bool {
	return s == StatusNew || s == StatusInProgress || s == StatusDone
}

func (s Status) Title() string {
	switch s {
	case StatusInProgress:
		return "В работе"
	case StatusDone:
		return "Выполнено"
	}
	return "Новая"
}

type Task struct {
	ID         int64
	ProjectID  int64
	StageID    int64
	Name       string
	AssigneeID int64
	Deadline   *time.Time
	Status     Status
}
