package telegram

import (
	"context"
	"errors"
	"fmt"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/construction-bot/internal/notify"
)

func TestMarkup(t *testing.T) {
	m := markup(notify.Keyboard{
		notify.Row(notify.Data("✅", "mr:approve:1"), notify.Button{Text: "Дашборд", URL: "https://example.org"}),
		notify.Row(),
	})
	require.Len(t, m.InlineKeyboard, 1)
	row := m.InlineKeyboard[0]
	require.Len(t, row, 2)
	require.NotNil(t, row[0].CallbackData)
	assert.Equal(t, "mr:approve:1", *row[0].CallbackData)
	require.NotNil(t, row[1].URL)
	assert.Equal(t, "https://example.org", *row[1].URL)

	assert.Empty(t, markup(nil).InlineKeyboard)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want notify.FailureKind
	}{
		{err: context.DeadlineExceeded, want: notify.Timeout},
		{err: fmt.Errorf("post: %w", timeoutErr{}), want: notify.Timeout},
		{err: &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}, want: notify.Rejected},
		{err: errors.New("connection refused"), want: notify.Unreachable},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			err := classify("send_text", tt.err)
			assert.Equal(t, tt.want, notify.KindOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestIgnoreNotModified(t *testing.T) {
	assert.NoError(t, ignoreNotModified(errors.New("Bad Request: message is not modified")))
	assert.Error(t, ignoreNotModified(errors.New("Bad Request: message to edit not found")))
	assert.NoError(t, ignoreNotModified(nil))
}
