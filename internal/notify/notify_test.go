package notify_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/construction-bot/internal/infra/logger"
	"github.com/Spok95/construction-bot/internal/notify"
	"github.com/Spok95/construction-bot/internal/testutil"
)

func TestFanoutDeduplicatesRecipients(t *testing.T) {
	s := testutil.NewSender()
	f := notify.NewFanout(s, logger.Discard())
	ctx := context.Background()

	for _, id := range []int64{10, 20, 10, 0, 20, 30} {
		f.Text(ctx, id, "hello", nil)
	}

	assert.Equal(t, 3, f.Recipients())
	assert.Len(t, s.Sent(), 3)
	assert.Equal(t, []int64{10, 20, 30}, s.Recipients())
}

func TestFanoutSwallowsFailures(t *testing.T) {
	s := testutil.NewSender()
	s.FailFor(20, &notify.SendError{Op: "send", Kind: notify.Rejected, Err: errors.New("blocked")})
	f := notify.NewFanout(s, logger.Discard())
	ctx := context.Background()

	f.Text(ctx, 20, "x", nil)
	f.Text(ctx, 30, "x", nil)

	ref, ok := f.First()
	require.True(t, ok)
	assert.Equal(t, int64(30), ref.ChatID)
	assert.Equal(t, []int64{30}, s.Recipients())
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("notify: %w", &notify.SendError{Op: "edit", Kind: notify.Timeout, Err: context.DeadlineExceeded})
	assert.Equal(t, notify.Timeout, notify.KindOf(wrapped))
	assert.Equal(t, notify.Unreachable, notify.KindOf(errors.New("boom")))
}
