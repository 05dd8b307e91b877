// Package testutil — потокобезопасные in-memory заменители хранилищ и
// исходящего канала для тестов.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Spok95/construction-bot/internal/notify"
)

type MessageKind string

const (
	KindText     MessageKind = "text"
	KindPhoto    MessageKind = "photo"
	KindDocument MessageKind = "document"
	KindEdit     MessageKind = "edit"
	KindCaption  MessageKind = "caption"
	KindCallback MessageKind = "callback"
)

type Message struct {
	Kind     MessageKind
	Ref      notify.MessageRef
	Text     string
	FileID   string
	FileName string
	Data     []byte
	Keyboard notify.Keyboard
}

// Buttons все callback-данные клавиатуры
func (m Message) Buttons() []string {
	var out []string
	for _, row := range m.Keyboard {
		for _, b := range row {
			if b.Data != "" {
				out = append(out, b.Data)
			}
		}
	}
	return out
}

type Sender struct {
	mu     sync.Mutex
	nextID int
	sent   []Message
	fail   map[int64]error
	files  map[string][]byte
}

func NewSender() *Sender {
	return &Sender{fail: map[int64]error{}, files: map[string][]byte{}}
}

var _ notify.Sender = (*Sender)(nil)

// FailFor все отправки в чат завершаются ошибкой err
func (s *Sender) FailFor(chatID int64, err error) {
	s.mu.Lock()
	s.fail[chatID] = err
	s.mu.Unlock()
}

// PutFile содержимое, которое вернёт Download
func (s *Sender) PutFile(fileID string, data []byte) {
	s.mu.Lock()
	s.files[fileID] = data
	s.mu.Unlock()
}

func (s *Sender) record(m Message) (notify.MessageRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.fail[m.Ref.ChatID]; ok {
		return notify.MessageRef{}, err
	}
	if m.Ref.MessageID == 0 {
		s.nextID++
		m.Ref.MessageID = s.nextID
	}
	s.sent = append(s.sent, m)
	return m.Ref, nil
}

func (s *Sender) SendText(_ context.Context, chatID int64, text string, kb notify.Keyboard) (notify.MessageRef, error) {
	return s.record(Message{Kind: KindText, Ref: notify.MessageRef{ChatID: chatID}, Text: text, Keyboard: kb})
}

func (s *Sender) SendPhoto(_ context.Context, chatID int64, fileID, caption string, kb notify.Keyboard) (notify.MessageRef, error) {
	return s.record(Message{Kind: KindPhoto, Ref: notify.MessageRef{ChatID: chatID}, FileID: fileID, Text: caption, Keyboard: kb})
}

func (s *Sender) SendDocument(_ context.Context, chatID int64, name string, data []byte, caption string, kb notify.Keyboard) (notify.MessageRef, error) {
	return s.record(Message{Kind: KindDocument, Ref: notify.MessageRef{ChatID: chatID}, FileName: name, Data: data, Text: caption, Keyboard: kb})
}

func (s *Sender) EditText(_ context.Context, ref notify.MessageRef, text string, kb notify.Keyboard) error {
	_, err := s.record(Message{Kind: KindEdit, Ref: ref, Text: text, Keyboard: kb})
	return err
}

func (s *Sender) EditCaption(_ context.Context, ref notify.MessageRef, caption string, kb notify.Keyboard) error {
	_, err := s.record(Message{Kind: KindCaption, Ref: ref, Text: caption, Keyboard: kb})
	return err
}

func (s *Sender) AnswerCallback(_ context.Context, callbackID, text string, _ bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, Message{Kind: KindCallback, FileID: callbackID, Text: text})
	return nil
}

func (s *Sender) Download(_ context.Context, fileID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[fileID]
	if !ok {
		return nil, &notify.SendError{Op: "download", Kind: notify.Rejected, Err: fmt.Errorf("file %s not found", fileID)}
	}
	return data, nil
}

// Sent всё отправленное, кроме ответов на callback
func (s *Sender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Message
	for _, m := range s.sent {
		if m.Kind != KindCallback {
			out = append(out, m)
		}
	}
	return out
}

// To сообщения в конкретный чат
func (s *Sender) To(chatID int64) []Message {
	var out []Message
	for _, m := range s.Sent() {
		if m.Ref.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

// Last последнее сообщение в чат
func (s *Sender) Last(chatID int64) (Message, bool) {
	msgs := s.To(chatID)
	if len(msgs) == 0 {
		return Message{}, false
	}
	return msgs[len(msgs)-1], true
}

// Recipients чаты новых сообщений в порядке отправки, без повторов
func (s *Sender) Recipients() []int64 {
	var out []int64
	seen := map[int64]bool{}
	for _, m := range s.Sent() {
		if m.Kind == KindEdit || m.Kind == KindCaption || seen[m.Ref.ChatID] {
			continue
		}
		seen[m.Ref.ChatID] = true
		out = append(out, m.Ref.ChatID)
	}
	return out
}

// Contains есть ли в чате сообщение с подстрокой
func (s *Sender) Contains(chatID int64, substr string) bool {
	for _, m := range s.To(chatID) {
		if strings.Contains(m.Text, substr) {
			return true
		}
	}
	return false
}

func (s *Sender) Reset() {
	s.mu.Lock()
	s.sent = nil
	s.mu.Unlock()
}
