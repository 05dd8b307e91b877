// Package telegram — исходящий канал поверх Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/construction-bot/internal/notify"
)

// NewAPI клиент Bot API; timeout ограничивает каждый HTTP-вызов
func NewAPI(token string, timeout time.Duration, debug bool) (*tgbotapi.BotAPI, error) {
	client := &http.Client{Timeout: timeout}
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, err
	}
	api.Debug = debug
	return api, nil
}

// Sender реализует notify.Sender
type Sender struct {
	api    *tgbotapi.BotAPI
	client *http.Client
}

func NewSender(api *tgbotapi.BotAPI, timeout time.Duration) *Sender {
	return &Sender{api: api, client: &http.Client{Timeout: timeout}}
}

var _ notify.Sender = (*Sender)(nil)

func markup(kb notify.Keyboard) *tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, r := range kb {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			if b.URL != "" {
				row = append(row, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
				continue
			}
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return &tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func (s *Sender) send(ctx context.Context, op string, c tgbotapi.Chattable) (notify.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return notify.MessageRef{}, classify(op, err)
	}
	m, err := s.api.Send(c)
	if err != nil {
		return notify.MessageRef{}, classify(op, err)
	}
	return notify.MessageRef{ChatID: m.Chat.ID, MessageID: m.MessageID}, nil
}

func (s *Sender) SendText(ctx context.Context, chatID int64, text string, kb notify.Keyboard) (notify.MessageRef, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if len(kb) > 0 {
		msg.ReplyMarkup = markup(kb)
	}
	return s.send(ctx, "send_text", msg)
}

func (s *Sender) SendPhoto(ctx context.Context, chatID int64, fileID, caption string, kb notify.Keyboard) (notify.MessageRef, error) {
	msg := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
	msg.Caption = caption
	if len(kb) > 0 {
		msg.ReplyMarkup = markup(kb)
	}
	return s.send(ctx, "send_photo", msg)
}

func (s *Sender) SendDocument(ctx context.Context, chatID int64, name string, data []byte, caption string, kb notify.Keyboard) (notify.MessageRef, error) {
	var file tgbotapi.RequestFileData = tgbotapi.FileBytes{Name: name, Bytes: data}
	// без данных name — это file_id уже загруженного документа
	if len(data) == 0 {
		file = tgbotapi.FileID(name)
	}
	msg := tgbotapi.NewDocument(chatID, file)
	msg.Caption = caption
	if len(kb) > 0 {
		msg.ReplyMarkup = markup(kb)
	}
	return s.send(ctx, "send_document", msg)
}

// EditText без клавиатуры убирает кнопки у сообщения
func (s *Sender) EditText(ctx context.Context, ref notify.MessageRef, text string, kb notify.Keyboard) error {
	edit := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)
	edit.ReplyMarkup = markup(kb)
	_, err := s.send(ctx, "edit_text", edit)
	return ignoreNotModified(err)
}

func (s *Sender) EditCaption(ctx context.Context, ref notify.MessageRef, caption string, kb notify.Keyboard) error {
	edit := tgbotapi.NewEditMessageCaption(ref.ChatID, ref.MessageID, caption)
	edit.ReplyMarkup = markup(kb)
	_, err := s.send(ctx, "edit_caption", edit)
	return ignoreNotModified(err)
}

func (s *Sender) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	if err := ctx.Err(); err != nil {
		return classify("answer_callback", err)
	}
	resp := tgbotapi.NewCallback(callbackID, text)
	resp.ShowAlert = alert
	if _, err := s.api.Request(resp); err != nil {
		return classify("answer_callback", err)
	}
	return nil
}

// Download скачивает файл по FileID через Telegram API
func (s *Sender) Download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := s.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, classify("download", fmt.Errorf("get file url: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, classify("download", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, classify("download", fmt.Errorf("download file: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &notify.SendError{Op: "download", Kind: notify.Rejected, Err: fmt.Errorf("telegram returned status %s", resp.Status)}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify("download", fmt.Errorf("read body: %w", err))
	}
	return data, nil
}

// classify раскладывает ошибку по видам отказа канала
func classify(op string, err error) error {
	kind := notify.Unreachable
	var (
		apiErr *tgbotapi.Error
		netErr net.Error
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = notify.Timeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = notify.Timeout
	case errors.As(err, &apiErr):
		kind = notify.Rejected
	}
	return &notify.SendError{Op: op, Kind: kind, Err: err}
}

func ignoreNotModified(err error) error {
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}
