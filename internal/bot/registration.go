package bot

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/construction-bot/internal/action"
	"github.com/Spok95/construction-bot/internal/dialog"
	"github.com/Spok95/construction-bot/internal/domain/users"
)

const minNameLen = 3

// firstContact новый актёр: создаём пользователя и спрашиваем имя.
// Чат администратора из конфигурации сразу получает роль администратора.
// Водяные знаки первого апдейта фиксируются, чтобы его повтор не стал именем.
func (b *Bot) firstContact(ctx context.Context, chatID int64, from *tgbotapi.User, updateID, messageID int) {
	tg := users.Telegram{ID: from.ID, ChatID: chatID, Username: from.UserName}
	role, status := users.RoleWorker, users.StatusPending
	if b.adminChat != 0 && chatID == b.adminChat {
		role, status = users.RoleAdmin, users.StatusActive
	}
	u, err := b.users.Register(ctx, tg, role, status)
	if err != nil {
		b.log.Error("register failed", "tg_id", from.ID, "err", err)
		return
	}
	b.log.Info("user registered", "user_id", u.ID, "tg_id", from.ID, "role", u.Role)

	if _, err := b.gate.Admit(ctx, chatID, updateID, messageID); err != nil {
		b.log.Error("dedup failed", "chat_id", chatID, "update_id", updateID, "err", err)
	}

	if err := b.states.Set(ctx, chatID, dialog.StateRegistrationName, dialog.Payload{}); err != nil {
		b.log.Error("state save failed", "chat_id", chatID, "err", err)
	}
	b.reply(ctx, chatID, "👋 Добро пожаловать! Введите ваше имя и фамилию:", nil)
}

func (b *Bot) cmdStart(ctx context.Context, r *request) {
	if b.adminChat != 0 && r.chatID == b.adminChat && !r.user.IsAdmin() {
		if err := b.users.Activate(ctx, r.user.ID, users.RoleAdmin); err != nil {
			b.fail(ctx, r, "promote_admin", err)
			return
		}
		r.user.Role, r.user.Status = users.RoleAdmin, users.StatusActive
	}
	if !r.user.Registered() {
		b.continueRegistration(ctx, r)
		return
	}
	b.goHome(ctx, r)
}

// continueRegistration возвращает незарегистрированного актёра на нужный шаг
func (b *Bot) continueRegistration(ctx context.Context, r *request) {
	switch {
	case r.state == dialog.StateRegistrationName && r.msg != nil && !r.msg.IsCommand() && r.msg.Text != "":
		b.regName(ctx, r, strings.TrimSpace(r.msg.Text))
	case r.user.FullName == "":
		b.ask(ctx, r, dialog.StateRegistrationName, dialog.Payload{}, "Введите ваше имя и фамилию:", nil)
	case r.user.IsAdmin():
		b.goHome(ctx, r)
	default:
		b.ask(ctx, r, dialog.StateRegistrationRole, dialog.Payload{}, "Выберите вашу роль:", roleKeyboard())
	}
}

func (b *Bot) regName(ctx context.Context, r *request, name string) {
	if utf8.RuneCountInString(name) < minNameLen {
		b.reply(ctx, r.chatID, fmt.Sprintf("Имя слишком короткое (минимум %d символа). Введите ещё раз:", minNameLen), nil)
		return
	}
	if err := b.users.SetFullName(ctx, r.user.ID, name); err != nil {
		b.fail(ctx, r, "set_name", err)
		return
	}
	r.user.FullName = name
	if r.user.IsAdmin() {
		b.goHome(ctx, r)
		return
	}
	b.ask(ctx, r, dialog.StateRegistrationRole, dialog.Payload{}, "Выберите вашу роль:", roleKeyboard())
}

func (b *Bot) regRole(ctx context.Context, r *request, args action.Args) {
	role := users.Role(args.String(0))
	if role == users.RoleAdmin || !role.Valid() {
		b.show(ctx, r, "Неизвестная роль. Выберите из списка:", roleKeyboard())
		return
	}
	if r.user.FullName == "" {
		b.continueRegistration(ctx, r)
		return
	}
	if r.user.Registered() {
		b.goHome(ctx, r)
		return
	}
	if err := b.users.Activate(ctx, r.user.ID, role); err != nil {
		b.fail(ctx, r, "activate", err)
		return
	}
	b.clearAll(ctx, r)
	b.log.Info("user role chosen", "user_id", r.user.ID, "role", role)
	b.show(ctx, r, fmt.Sprintf("✅ Роль: %s.\nОжидайте назначения на проект администратором.", role.Title()), navKeyboard(false))
}
