package batches

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
)

type Event string

const (
	EventSubmit  Event = "submit"
	EventApprove Event = "approve"
	EventReject  Event = "reject"
	EventReopen  Event = "reopen"
)

var (
	ErrNoPricedLines = errors.New("в заявке нет ни одной оценённой строки")
	ErrTransition    = errors.New("недопустимый переход статуса заявки")
)

var lifecycle = fsm.Events{
	{Name: string(EventSubmit), Src: []string{string(StatusDraft), string(StatusRejected)}, Dst: string(StatusPriced)},
	{Name: string(EventApprove), Src: []string{string(StatusPriced)}, Dst: string(StatusApproved)},
	{Name: string(EventReject), Src: []string{string(StatusPriced)}, Dst: string(StatusRejected)},
	{Name: string(EventReopen), Src: []string{string(StatusRejected)}, Dst: string(StatusDraft)},
}

var targets = map[Event]Status{
	EventSubmit:  StatusPriced,
	EventApprove: StatusApproved,
	EventReject:  StatusRejected,
	EventReopen:  StatusDraft,
}

// Transition применяет событие к заявке в памяти.
// Повтор уже достигнутого статуса — не ошибка: changed=false, статус не меняется.
// Отправка на согласование каждый раз перепроверяет наличие оценённых строк.
func Transition(ctx context.Context, b *Batch, ev Event) (changed bool, err error) {
	dst, ok := targets[ev]
	if !ok {
		return false, fmt.Errorf("%w: неизвестное событие %q", ErrTransition, ev)
	}
	if ev == EventSubmit && b.PricedCount() == 0 {
		return false, ErrNoPricedLines
	}
	if b.Status == dst {
		return false, nil
	}

	f := fsm.NewFSM(string(b.Status), lifecycle, fsm.Callbacks{})
	if !f.Can(string(ev)) {
		return false, fmt.Errorf("%w: %s → %s", ErrTransition, b.Status, dst)
	}
	if err := f.Event(ctx, string(ev)); err != nil {
		return false, fmt.Errorf("%w: %v", ErrTransition, err)
	}
	b.Status = Status(f.Current())
	return true, nil
}

// ResubmitEvent после отклонения: есть цены — сразу на согласование, иначе обратно в черновик
func ResubmitEvent(b *Batch) Event {
	if b.PricedCount() > 0 {
		return EventSubmit
	}
	return EventReopen
}
