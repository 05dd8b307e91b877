package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/construction-bot/internal/infra/logger"
)

func TestHealth(t *testing.T) {
	s := New(":0", true, logger.Discard())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookAlwaysAcknowledges(t *testing.T) {
	s := New(":0", false, logger.Discard())
	var got []tgbotapi.Update
	s.Webhook("/telegram/webhook", func(u tgbotapi.Update) { got = append(got, u) })

	bodies := []string{
		`{"update_id": 10, "message": {"message_id": 5, "chat": {"id": 77}, "from": {"id": 77}, "text": "/start"}}`,
		`not json`,
		`{}`,
	}
	for _, b := range bodies {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(b))
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, b)
	}

	require.Len(t, got, 1)
	assert.Equal(t, 10, got[0].UpdateID)
	assert.Equal(t, "/start", got[0].Message.Text)
}
