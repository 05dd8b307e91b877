package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Spok95/construction-bot/internal/dialog"
)

type stateRow struct {
	state      dialog.State
	payload    []byte
	lastUpdate int
	lastMsg    *int
}

// States хранит состояние как в БД: payload проходит через JSON
type States struct {
	mu   sync.Mutex
	rows map[int64]*stateRow
}

func NewStates() *States { return &States{rows: map[int64]*stateRow{}} }

var _ dialog.Watermarks = (*States)(nil)

func (s *States) row(chatID int64) *stateRow {
	r, ok := s.rows[chatID]
	if !ok {
		r = &stateRow{state: dialog.StateIdle, payload: []byte("{}")}
		s.rows[chatID] = r
	}
	return r
}

func (s *States) Get(_ context.Context, chatID int64) (*dialog.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[chatID]
	if !ok {
		return &dialog.Item{ChatID: chatID, State: dialog.StateIdle, Payload: dialog.Payload{}}, nil
	}
	p := dialog.Payload{}
	if err := json.Unmarshal(r.payload, &p); err != nil {
		return nil, err
	}
	return &dialog.Item{ChatID: chatID, State: r.state, Payload: p}, nil
}

func (s *States) Set(_ context.Context, chatID int64, state dialog.State, payload dialog.Payload) error {
	if payload == nil {
		payload = dialog.Payload{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.row(chatID)
	r.state, r.payload = state, raw
	return nil
}

func (s *States) Reset(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rows[chatID]; ok {
		r.state, r.payload = dialog.StateIdle, []byte("{}")
	}
	return nil
}

func (s *States) AdvanceUpdate(_ context.Context, chatID int64, updateID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.row(chatID)
	if updateID <= r.lastUpdate {
		return false, nil
	}
	r.lastUpdate = updateID
	return true, nil
}

func (s *States) MarkMessage(_ context.Context, chatID int64, messageID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[chatID]
	if !ok {
		return false, nil
	}
	if r.lastMsg != nil && *r.lastMsg == messageID {
		return false, nil
	}
	id := messageID
	r.lastMsg = &id
	return true, nil
}

// State текущее состояние без payload
func (s *States) State(chatID int64) dialog.State {
	it, _ := s.Get(context.Background(), chatID)
	return it.State
}

// Watermark последний принятый update_id
func (s *States) Watermark(chatID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rows[chatID]; ok {
		return r.lastUpdate
	}
	return 0
}
