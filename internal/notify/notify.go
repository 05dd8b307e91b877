// Package notify описывает исходящий канал: отправка, редактирование и скачивание
// файлов. Все вызовы best-effort: ошибка логируется на месте вызова и не прерывает
// бизнес-операцию, которая её вызвала.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Spok95/construction-bot/internal/infra/metrics"
)

type Button struct {
	Text string
	Data string
	URL  string
}

type Keyboard [][]Button

// Row удобный конструктор одной строки кнопок
func Row(buttons ...Button) []Button { return buttons }

func Data(text, data string) Button { return Button{Text: text, Data: data} }

type MessageRef struct {
	ChatID    int64
	MessageID int
}

func (r MessageRef) IsZero() bool { return r.ChatID == 0 || r.MessageID == 0 }

type FailureKind string

const (
	Timeout     FailureKind = "timeout"
	Unreachable FailureKind = "unreachable"
	Rejected    FailureKind = "rejected"
)

type SendError struct {
	Op   string
	Kind FailureKind
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// KindOf вид отказа; для чужих ошибок считаем канал недоступным
func KindOf(err error) FailureKind {
	var se *SendError
	if errors.As(err, &se) {
		return se.Kind
	}
	return Unreachable
}

type Sender interface {
	SendText(ctx context.Context, chatID int64, text string, kb Keyboard) (MessageRef, error)
	SendPhoto(ctx context.Context, chatID int64, fileID, caption string, kb Keyboard) (MessageRef, error)
	SendDocument(ctx context.Context, chatID int64, name string, data []byte, caption string, kb Keyboard) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string, kb Keyboard) error
	EditCaption(ctx context.Context, ref MessageRef, caption string, kb Keyboard) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// Report фиксирует проглоченную ошибку исходящего вызова
func Report(log *slog.Logger, op string, err error, attrs ...any) {
	if err == nil {
		return
	}
	kind := KindOf(err)
	metrics.OutboundFailures.WithLabelValues(op, string(kind)).Inc()
	log.Error("outbound call failed", append([]any{"op", op, "kind", string(kind), "err", err}, attrs...)...)
}

// Fanout рассылка одного события нескольким получателям: один chat_id получает
// сообщение не больше одного раза, ошибки не прерывают рассылку.
type Fanout struct {
	sender Sender
	log    *slog.Logger
	sent   map[int64]struct{}
	first  MessageRef
}

func NewFanout(sender Sender, log *slog.Logger) *Fanout {
	return &Fanout{sender: sender, log: log, sent: map[int64]struct{}{}}
}

func (f *Fanout) Text(ctx context.Context, chatID int64, text string, kb Keyboard) {
	if !f.claim(chatID) {
		return
	}
	ref, err := f.sender.SendText(ctx, chatID, text, kb)
	if err != nil {
		Report(f.log, "fanout_text", err, "chat_id", chatID)
		return
	}
	f.remember(ref)
}

func (f *Fanout) Photo(ctx context.Context, chatID int64, fileID, caption string, kb Keyboard) {
	if !f.claim(chatID) {
		return
	}
	ref, err := f.sender.SendPhoto(ctx, chatID, fileID, caption, kb)
	if err != nil {
		Report(f.log, "fanout_photo", err, "chat_id", chatID)
		return
	}
	f.remember(ref)
}

func (f *Fanout) claim(chatID int64) bool {
	if chatID == 0 {
		return false
	}
	if _, ok := f.sent[chatID]; ok {
		return false
	}
	f.sent[chatID] = struct{}{}
	return true
}

func (f *Fanout) remember(ref MessageRef) {
	if f.first.IsZero() {
		f.first = ref
	}
}

// First первое успешно доставленное сообщение (для последующего редактирования)
func (f *Fanout) First() (MessageRef, bool) { return f.first, !f.first.IsZero() }

// Recipients сколько уникальных получателей было затронуто
func (f *Fanout) Recipients() int { return len(f.sent) }
