package bot

import (
	"context"
	"fmt"

	"github.com/Spok95/construction-bot/internal/action"
	"github.com/Spok95/construction-bot/internal/dialog"
	"github.com/Spok95/construction-bot/internal/domain/issues"
	"github.com/Spok95/construction-bot/internal/domain/projects"
	"github.com/Spok95/construction-bot/internal/domain/users"
	"github.com/Spok95/construction-bot/internal/notify"
	"github.com/Spok95/construction-bot/internal/workflow"
)

var issueSlots = []string{dialog.SlotIssueProjectID, dialog.SlotIssueText, dialog.SlotIssuePhotos}

func (b *Bot) issueNew(ctx context.Context, r *request, _ action.Args) {
	b.pickProject(ctx, r, "⚠️ На каком объекте проблема?", projectToken("issue"), func(p projects.Project) {
		b.startIssue(ctx, r, p)
	})
}

func (b *Bot) issueProject(ctx context.Context, r *request, args action.Args) {
	if p, ok := b.project(ctx, r, argID(args, 0)); ok {
		b.startIssue(ctx, r, *p)
	}
}

func (b *Bot) startIssue(ctx context.Context, r *request, p projects.Project) {
	payload := r.p.Without(issueSlots...)
	payload[dialog.SlotIssueProjectID] = p.ID
	b.ask(ctx, r, dialog.StateIssueInputText, payload,
		fmt.Sprintf("⚠️ Объект: %s\nОпишите проблему одним сообщением:", p.Name), navKeyboard(true))
}

func photosKeyboard() notify.Keyboard {
	return notify.Keyboard{notify.Row(notify.Data("➡️ Готово", "issue:photos:done")), navRow(false)}
}

func (b *Bot) issueText(ctx context.Context, r *request, text string) {
	if text == "" {
		b.reply(ctx, r.chatID, "Опишите проблему текстом:", nil)
		return
	}
	payload := r.p.Clone()
	payload[dialog.SlotIssueText] = text
	b.setState(ctx, r, dialog.StateIssueInputPhotos, payload)
	b.reply(ctx, r.chatID, fmt.Sprintf("Пришлите до %d фото или нажмите «Готово».", issues.MaxPhotos), photosKeyboard())
}

func (b *Bot) issuePhoto(ctx context.Context, r *request) {
	if len(r.msg.Photo) == 0 {
		b.reply(ctx, r.chatID, "Нужны фото. Пришлите фото или нажмите «Готово».", photosKeyboard())
		return
	}
	photos := dialog.GetStrings(r.p, dialog.SlotIssuePhotos)
	if len(photos) >= issues.MaxPhotos {
		b.reply(ctx, r.chatID, fmt.Sprintf("Уже %d фото, больше нельзя. Нажмите «Готово».", issues.MaxPhotos), photosKeyboard())
		return
	}
	photos = append(photos, r.msg.Photo[len(r.msg.Photo)-1].FileID)
	payload := r.p.Clone()
	payload[dialog.SlotIssuePhotos] = photos
	b.setState(ctx, r, dialog.StateIssueInputPhotos, payload)
	b.reply(ctx, r.chatID, fmt.Sprintf("📷 Фото %d/%d добавлено.", len(photos), issues.MaxPhotos), photosKeyboard())
}

func (b *Bot) issuePhotosHint(ctx context.Context, r *request, _ string) {
	b.reply(ctx, r.chatID, "Пришлите фото или нажмите «Готово».", photosKeyboard())
}

func (b *Bot) issuePhotosDone(ctx context.Context, r *request, _ action.Args) {
	text, _ := dialog.GetString(r.p, dialog.SlotIssueText)
	pid, _ := dialog.GetInt64(r.p, dialog.SlotIssueProjectID)
	if text == "" || pid == 0 {
		b.goHome(ctx, r)
		return
	}
	p, ok := b.project(ctx, r, pid)
	if !ok {
		return
	}
	photos := dialog.GetStrings(r.p, dialog.SlotIssuePhotos)
	b.show(ctx, r, fmt.Sprintf("Проверьте:\nОбъект: %s\nФото: %d\n\n%s", p.Name, len(photos), text), notify.Keyboard{
		notify.Row(notify.Data("📨 Отправить", "issue:send")),
		navRow(false),
	})
}

func (b *Bot) issueSend(ctx context.Context, r *request, _ action.Args) {
	text, _ := dialog.GetString(r.p, dialog.SlotIssueText)
	pid, _ := dialog.GetInt64(r.p, dialog.SlotIssueProjectID)
	if text == "" || pid == 0 {
		b.goHome(ctx, r)
		return
	}
	p, ok := b.project(ctx, r, pid)
	if !ok {
		return
	}
	is := &issues.Issue{
		ProjectID:  p.ID,
		ReporterID: r.user.ID,
		Text:       text,
		Priority:   issues.PriorityMedium,
		Status:     issues.StatusNew,
		PhotoIDs:   dialog.GetStrings(r.p, dialog.SlotIssuePhotos),
	}
	id, err := b.issues.Create(ctx, is)
	if err != nil {
		b.fail(ctx, r, "issue_create", err)
		return
	}
	is.ID = id
	b.log.Info("issue created", "issue_id", id, "project_id", p.ID, "user_id", r.user.ID)

	b.notifyIssue(ctx, is, p, r.user)
	b.setState(ctx, r, dialog.StateIdle, r.p.Without(issueSlots...))
	b.show(ctx, r, fmt.Sprintf("✅ Проблема #%d отправлена прорабу.", id), navKeyboard(false))
}

// notifyIssue прорабам и админам проекта; первое доставленное сообщение
// запоминается и потом редактируется при смене статуса
func (b *Bot) notifyIssue(ctx context.Context, is *issues.Issue, p *projects.Project, reporter *users.User) {
	list, err := b.users.ListByRole(ctx, users.RoleForeman, users.RoleAdmin)
	if err != nil {
		b.log.Error("issue audience lookup failed", "issue_id", is.ID, "err", err)
	}
	audience := projects.Audience(*p, list)

	text := issueCard(is, p, reporter)
	kb := issueKeyboard(is)
	f := notify.NewFanout(b.sender, b.log)
	send := func(chatID int64) {
		if len(is.PhotoIDs) > 0 {
			f.Photo(ctx, chatID, is.PhotoIDs[0], text, kb)
			return
		}
		f.Text(ctx, chatID, text, kb)
	}
	for i := range audience {
		if audience[i].ID == reporter.ID {
			continue
		}
		send(workflow.ChatOf(&audience[i]))
	}
	if f.Recipients() == 0 && b.adminChat != 0 {
		send(b.adminChat)
	}

	ref, ok := f.First()
	if !ok {
		b.log.Warn("issue notification not delivered", "issue_id", is.ID)
		return
	}
	if err := b.issues.SetNotification(ctx, is.ID, ref.ChatID, ref.MessageID); err != nil {
		b.log.Error("store issue notification failed", "issue_id", is.ID, "err", err)
	}
}

func issueCard(is *issues.Issue, p *projects.Project, reporter *users.User) string {
	return fmt.Sprintf("⚠️ Проблема #%d\nОбъект: %s\nОт: %s\nПриоритет: %s\nСтатус: %s\nФото: %d\n\n%s",
		is.ID, p.Name, reporter.DisplayName(), is.Priority.Title(), is.Status.Title(), len(is.PhotoIDs), is.Text)
}

// issueKeyboard закрытая проблема кнопок не имеет
func issueKeyboard(is *issues.Issue) notify.Keyboard {
	if is.Status == issues.StatusResolved || is.Status == issues.StatusCanceled {
		return nil
	}
	row := []notify.Button{}
	if is.Status != issues.StatusInProgress {
		row = append(row, notify.Data("🔧 В работу", action.Encode("issue:set", string(issues.StatusInProgress), is.ID)))
	}
	row = append(row,
		notify.Data("✅ Решена", action.Encode("issue:set", string(issues.StatusResolved), is.ID)),
		notify.Data("✖️ Отмена", action.Encode("issue:set", string(issues.StatusCanceled), is.ID)),
	)
	return notify.Keyboard{row}
}

// issueSet issue:set:<status>:<id>
func (b *Bot) issueSet(ctx context.Context, r *request, args action.Args) {
	st := issues.Status(args.String(0))
	is, err := b.issues.Get(ctx, argID(args, 1))
	if err != nil {
		b.fail(ctx, r, "issue_get", err)
		return
	}
	if is == nil || !st.Valid() {
		b.show(ctx, r, "Проблема не найдена.", nil)
		return
	}
	p, ok := b.project(ctx, r, is.ProjectID)
	if !ok {
		return
	}
	if is.Status == st {
		return
	}
	if err := b.issues.SetStatus(ctx, is.ID, st); err != nil {
		b.fail(ctx, r, "issue_status", err)
		return
	}
	is.Status = st
	b.log.Info("issue status changed", "issue_id", is.ID, "status", st, "user_id", r.user.ID)

	reporter, err := b.users.GetByID(ctx, is.ReporterID)
	if err != nil {
		b.log.Error("reporter lookup failed", "issue_id", is.ID, "err", err)
	}
	text := issueCard(is, p, reporter) + "\n\nОбновил: " + r.user.DisplayName()
	stored := notify.MessageRef{ChatID: is.NotifyChatID, MessageID: is.NotifyMessageID}
	targets := []notify.MessageRef{stored}
	if ref := r.ref(); ref != stored {
		targets = append(targets, ref)
	}
	for _, ref := range targets {
		if ref.IsZero() {
			continue
		}
		var err error
		if len(is.PhotoIDs) > 0 {
			err = b.sender.EditCaption(ctx, ref, text, issueKeyboard(is))
		} else {
			err = b.sender.EditText(ctx, ref, text, issueKeyboard(is))
		}
		if err != nil {
			notify.Report(b.log, "issue_edit", err, "issue_id", is.ID, "chat_id", ref.ChatID)
		}
	}

	if chat := workflow.ChatOf(reporter); chat != 0 && chat != r.chatID {
		b.reply(ctx, chat, fmt.Sprintf("⚠️ Проблема #%d: %s\nОбъект: %s", is.ID, st.Title(), p.Name), nil)
	}
}
