package bot

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/Spok95/construction-bot/internal/action"
	"github.com/Spok95/construction-bot/internal/dialog"
	"github.com/Spok95/construction-bot/internal/domain/projects"
	"github.com/Spok95/construction-bot/internal/domain/users"
	"github.com/Spok95/construction-bot/internal/notify"
)

/*** HELPERS ***/

// reply новое сообщение; ошибка отправки логируется и проглатывается
func (b *Bot) reply(ctx context.Context, chatID int64, text string, kb notify.Keyboard) notify.MessageRef {
	ref, err := b.sender.SendText(ctx, chatID, text, kb)
	if err != nil {
		notify.Report(b.log, "send_text", err, "chat_id", chatID)
	}
	return ref
}

// show для нажатой кнопки редактирует её сообщение, иначе шлёт новое
func (b *Bot) show(ctx context.Context, r *request, text string, kb notify.Keyboard) {
	if ref := r.ref(); !ref.IsZero() {
		err := b.sender.EditText(ctx, ref, text, kb)
		if err == nil {
			return
		}
		notify.Report(b.log, "edit_text", err, "chat_id", r.chatID)
	}
	b.reply(ctx, r.chatID, text, kb)
}

func (b *Bot) document(ctx context.Context, chatID int64, name string, data []byte, caption string) {
	if _, err := b.sender.SendDocument(ctx, chatID, name, data, caption, nil); err != nil {
		notify.Report(b.log, "send_document", err, "chat_id", chatID, "name", name)
	}
}

// setState сохраняет шаг диалога и синхронизирует его в request
func (b *Bot) setState(ctx context.Context, r *request, st dialog.State, p dialog.Payload) {
	if p == nil {
		p = dialog.Payload{}
	}
	if err := b.states.Set(ctx, r.chatID, st, p); err != nil {
		b.log.Error("state save failed", "chat_id", r.chatID, "state", st, "err", err)
	}
	r.state, r.p = st, p
}

// ask показывает вопрос и переводит диалог в состояние ожидания ответа
func (b *Bot) ask(ctx context.Context, r *request, st dialog.State, p dialog.Payload, text string, kb notify.Keyboard) {
	b.setState(ctx, r, st, p)
	b.show(ctx, r, text, kb)
}

// clearAll idle и пустой контекст: слоты всех потоков сбрасываются разом
func (b *Bot) clearAll(ctx context.Context, r *request) {
	if err := b.states.Reset(ctx, r.chatID); err != nil {
		b.log.Error("state reset failed", "chat_id", r.chatID, "err", err)
	}
	r.state, r.p = dialog.StateIdle, dialog.Payload{}
}

// deny отказ в доступе: короткое сообщение и выход из потока
func (b *Bot) deny(ctx context.Context, r *request) {
	b.clearAll(ctx, r)
	b.reply(ctx, r.chatID, "⛔ Нет доступа.", navKeyboard(false))
}

// fail внутренняя ошибка: пишем в лог, пользователю коротко
func (b *Bot) fail(ctx context.Context, r *request, op string, err error) {
	b.log.Error("handler failed", "op", op, "chat_id", r.chatID, "state", r.state, "err", err)
	b.reply(ctx, r.chatID, "⚠️ Что-то пошло не так, попробуйте ещё раз.", navKeyboard(false))
}

// only пропускает к обработчику перечисленные роли; админ проходит всегда
func (b *Bot) only(h callbackHandler, roles ...users.Role) callbackHandler {
	return func(ctx context.Context, r *request, args action.Args) {
		if !r.user.IsAdmin() && !slices.Contains(roles, r.user.Role) {
			b.deny(ctx, r)
			return
		}
		h(ctx, r, args)
	}
}

func (b *Bot) today() time.Time {
	n := b.now().In(b.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, b.loc)
}

func (b *Bot) allowedProjects(ctx context.Context, u *users.User) ([]projects.Project, error) {
	all, err := b.projects.List(ctx)
	if err != nil {
		return nil, err
	}
	return projects.Allowed(u, all), nil
}

var errNoAccess = errors.New("нет доступа к проекту")

// project загружает проект и проверяет доступ актёра. При отказе актёр уже
// получил сообщение, вызывающему остаётся только выйти.
func (b *Bot) project(ctx context.Context, r *request, id int64) (*projects.Project, bool) {
	p, err := b.projects.Get(ctx, id)
	if err != nil {
		b.fail(ctx, r, "project_get", err)
		return nil, false
	}
	if p == nil || !projects.CanAccess(r.user, *p) {
		b.log.Warn("project access denied", "chat_id", r.chatID, "project_id", id, "err", errNoAccess)
		b.deny(ctx, r)
		return nil, false
	}
	return p, true
}

// pickProject выбор проекта: нет доступных — уведомление, один — сразу дальше,
// несколько — кнопки с токенами token(id)
func (b *Bot) pickProject(ctx context.Context, r *request, title string, token func(id int64) string, next func(p projects.Project)) {
	list, err := b.allowedProjects(ctx, r.user)
	if err != nil {
		b.fail(ctx, r, "projects_list", err)
		return
	}
	switch len(list) {
	case 0:
		b.clearAll(ctx, r)
		b.show(ctx, r, noProjectText, navKeyboard(false))
	case 1:
		next(list[0])
	default:
		kb := make(notify.Keyboard, 0, len(list)+1)
		for _, p := range list {
			kb = append(kb, notify.Row(notify.Data(p.Name, token(p.ID))))
		}
		kb = append(kb, navRow(true))
		b.ask(ctx, r, dialog.StateSelectProject, r.p, title, kb)
	}
}

// projectFromSlot проект из контекста; если слот потерян — заново через выбор
func (b *Bot) projectFromSlot(ctx context.Context, r *request, slot, title string, token func(id int64) string, next func(p projects.Project)) {
	if id, ok := dialog.GetInt64(r.p, slot); ok && id > 0 {
		if p, ok := b.project(ctx, r, id); ok {
			next(*p)
		}
		return
	}
	b.pickProject(ctx, r, title, token, next)
}

func argID(args action.Args, i int) int64 {
	id, err := args.Int64(i)
	if err != nil {
		return 0
	}
	return id
}

// projectToken токен вида "<prefix>:project:<id>"
func projectToken(prefix string) func(int64) string {
	return func(id int64) string { return action.Encode(prefix+":project", id) }
}
