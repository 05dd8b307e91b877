package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/construction-bot/internal/action"
	"github.com/Spok95/construction-bot/internal/dialog"
	"github.com/Spok95/construction-bot/internal/domain/batches"
	"github.com/Spok95/construction-bot/internal/domain/projects"
	"github.com/Spok95/construction-bot/internal/draft"
	"github.com/Spok95/construction-bot/internal/infra/gemini"
	"github.com/Spok95/construction-bot/internal/notify"
)

var draftSlots = []string{dialog.SlotMRLines, dialog.SlotMRProjectID, dialog.SlotMRTaskID, dialog.SlotAIProjectID}

const (
	manualPrompt = "Введите позицию в формате «Название Количество», по одной в сообщении.\nМожно прислать фото списка или голосовое."
	aiPrompt     = "Пришлите список материалов текстом, фото или голосом. Я распознаю позиции и добавлю их в черновик."
)

func draftKeyboard() notify.Keyboard {
	return notify.Keyboard{
		notify.Row(notify.Data("✅ Отправить заявку", "usta:mr:confirm")),
		notify.Row(notify.Data("🗑 Очистить", "usta:mr:clear")),
		notify.Row(notify.Data("⬅️ Назад", "usta:mr:back"), notify.Data("🏠 Главное меню", "nav:home")),
	}
}

func (b *Bot) mrNew(ctx context.Context, r *request, _ action.Args) {
	b.pickProject(ctx, r, "Для какого объекта заявка?", projectToken("usta:mr"), func(p projects.Project) {
		b.startDraft(ctx, r, p, 0, dialog.StateUstaMRInput, "")
	})
}

func (b *Bot) mrProject(ctx context.Context, r *request, args action.Args) {
	if p, ok := b.project(ctx, r, argID(args, 0)); ok {
		b.startDraft(ctx, r, *p, 0, dialog.StateUstaMRInput, "")
	}
}

func (b *Bot) aiNew(ctx context.Context, r *request, _ action.Args) {
	b.pickProject(ctx, r, "Для какого объекта заявка?", projectToken("usta:ai"), func(p projects.Project) {
		b.startDraft(ctx, r, p, 0, dialog.StateUstaAIInput, "")
	})
}

func (b *Bot) aiProject(ctx context.Context, r *request, args action.Args) {
	if p, ok := b.project(ctx, r, argID(args, 0)); ok {
		b.startDraft(ctx, r, *p, 0, dialog.StateUstaAIInput, "")
	}
}

// startDraft новый черновик: прежние строки заявки сбрасываются, слоты других потоков не трогаем
func (b *Bot) startDraft(ctx context.Context, r *request, p projects.Project, taskID int64, st dialog.State, head string) {
	payload := r.p.Without(draftSlots...)
	payload[dialog.SlotMRProjectID] = p.ID
	if taskID != 0 {
		payload[dialog.SlotMRTaskID] = taskID
	}
	prompt := manualPrompt
	if st == dialog.StateUstaAIInput {
		payload[dialog.SlotAIProjectID] = p.ID
		if b.ai == nil {
			prompt = "Распознавание не настроено, вводите позиции вручную: «Название Количество»."
			st = dialog.StateUstaMRInput
		} else {
			prompt = aiPrompt
		}
	}
	b.ask(ctx, r, st, payload, fmt.Sprintf("🧱 Заявка на материалы\nОбъект: %s\n\n%s%s", p.Name, head, prompt), navKeyboard(true))
}

// showDraft текущий черновик новым сообщением под последним вводом
func (b *Bot) showDraft(ctx context.Context, r *request, added int) {
	lines := draft.Lines(r.p)
	text := fmt.Sprintf("Добавлено позиций: %d\n\n📝 Черновик:\n%s\n\nПродолжайте ввод или отправьте заявку.", added, draft.Render(lines))
	b.reply(ctx, r.chatID, text, draftKeyboard())
}

func (b *Bot) mrText(ctx context.Context, r *request, text string) {
	line, err := draft.ParseManual(text)
	if err != nil {
		b.reply(ctx, r.chatID, "Введите позицию: «Название Количество».", nil)
		return
	}
	b.setState(ctx, r, dialog.StateUstaMRDraftInput, draft.Append(r.p, line))
	b.showDraft(ctx, r, 1)
}

// aiText текст в режиме ИИ разбирается моделью, без неё — вручную
func (b *Bot) aiText(ctx context.Context, r *request, text string) {
	if b.ai == nil {
		b.mrText(ctx, r, text)
		return
	}
	b.extractDraft(ctx, r, text, nil)
}

func (b *Bot) mrMedia(ctx context.Context, r *request) {
	if b.ai == nil {
		b.reply(ctx, r.chatID, "Распознавание фото и голоса не настроено. Введите позиции текстом.", nil)
		return
	}
	media, err := b.mediaOf(ctx, r.msg)
	if err != nil {
		b.reply(ctx, r.chatID, "⚠️ "+err.Error(), nil)
		return
	}
	b.extractDraft(ctx, r, r.msg.Caption, media)
}

// extractDraft ошибки ИИ показываются как есть, состояние не меняется
func (b *Bot) extractDraft(ctx context.Context, r *request, text string, media *gemini.Media) {
	ex, err := b.ai.ExtractItems(ctx, text, media)
	if err != nil {
		b.log.Warn("ai extract failed", "chat_id", r.chatID, "err", err)
		b.reply(ctx, r.chatID, "⚠️ "+err.Error(), nil)
		return
	}
	items := make([]draft.Extracted, 0, len(ex.Items))
	for _, it := range ex.Items {
		items = append(items, draft.Extracted{NameRaw: it.NameRaw, NameClean: it.NameClean, Qty: it.Qty, Unit: it.Unit})
	}
	lines := draft.FromExtracted(items)
	st := r.state
	if st == dialog.StateUstaMRInput {
		st = dialog.StateUstaMRDraftInput
	}
	b.setState(ctx, r, st, draft.Append(r.p, lines...))
	if len(ex.Warnings) > 0 {
		b.reply(ctx, r.chatID, "ℹ️ "+strings.Join(ex.Warnings, "\n"), nil)
	}
	b.showDraft(ctx, r, len(lines))
}

var errUnsupportedMedia = errors.New("пришлите фото или голосовое сообщение")

// mediaOf скачивает фото (наибольший размер) или голосовое
func (b *Bot) mediaOf(ctx context.Context, m *tgbotapi.Message) (*gemini.Media, error) {
	var fileID, mime string
	switch {
	case len(m.Photo) > 0:
		fileID, mime = m.Photo[len(m.Photo)-1].FileID, gemini.MIMEPhoto
	case m.Voice != nil:
		fileID, mime = m.Voice.FileID, gemini.MIMEVoice
	default:
		return nil, errUnsupportedMedia
	}
	data, err := b.sender.Download(ctx, fileID)
	if err != nil {
		notify.Report(b.log, "download", err, "file_id", fileID)
		return nil, errors.New("не удалось скачать файл, попробуйте ещё раз")
	}
	return &gemini.Media{Data: data, MIME: mime}, nil
}

// mrConfirm черновик → заявка draft и рассылка снабженцам.
// Объект берётся из кнопки выбора, затем из контекста; если его нет, спрашиваем заново.
func (b *Bot) mrConfirm(ctx context.Context, r *request, args action.Args) {
	lines := draft.Lines(r.p)
	if len(lines) == 0 {
		b.show(ctx, r, "Черновик пуст. Добавьте хотя бы одну позицию.", navKeyboard(true))
		return
	}
	pid := argID(args, 0)
	if pid == 0 {
		pid, _ = dialog.GetInt64(r.p, dialog.SlotMRProjectID)
	}
	if pid == 0 {
		pid, _ = dialog.GetInt64(r.p, dialog.SlotAIProjectID)
	}
	if pid == 0 {
		b.pickProject(ctx, r, "Для какого объекта отправить заявку?", confirmToken, func(p projects.Project) {
			b.submitDraft(ctx, r, &p, lines)
		})
		return
	}
	if p, ok := b.project(ctx, r, pid); ok {
		b.submitDraft(ctx, r, p, lines)
	}
}

func confirmToken(id int64) string { return action.Encode("usta:mr:confirm", id) }

func (b *Bot) submitDraft(ctx context.Context, r *request, p *projects.Project, lines []draft.Line) {
	taskID, _ := dialog.GetInt64(r.p, dialog.SlotMRTaskID)

	out := make([]batches.Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, batches.Line{ProductName: l.Name, Quantity: l.Qty})
	}

	batch, err := b.saveDraft(ctx, r, p, taskID, out)
	if err != nil {
		b.fail(ctx, r, "batch_create", err)
		return
	}
	b.log.Info("material request created", "batch_id", batch.ID, "project_id", p.ID, "lines", len(out), "user_id", r.user.ID)

	if err := b.flow.NotifyNewBatch(ctx, batch, r.user); err != nil {
		b.log.Error("notify supply failed", "batch_id", batch.ID, "err", err)
	}
	b.setState(ctx, r, dialog.StateIdle, r.p.Without(draftSlots...))
	b.show(ctx, r, fmt.Sprintf("✅ Заявка %s отправлена снабжению.\nПозиций: %d", batch.Name, len(out)), navKeyboard(false))
}

// saveDraft дописывает в сегодняшний черновик задачи или создаёт новую заявку
func (b *Bot) saveDraft(ctx context.Context, r *request, p *projects.Project, taskID int64, lines []batches.Line) (*batches.Batch, error) {
	var stageID int64
	if taskID != 0 {
		existing, err := b.batches.FindDraftForTask(ctx, taskID, b.today())
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.Status == batches.StatusDraft {
			if err := b.batches.AppendLines(ctx, existing.ID, lines); err != nil {
				return nil, err
			}
			return b.batches.Get(ctx, existing.ID)
		}
		if t, err := b.tasks.Get(ctx, taskID); err == nil && t != nil {
			stageID = t.StageID
		}
	}
	batch := &batches.Batch{
		ProjectID:   p.ID,
		RequesterID: r.user.ID,
		TaskID:      taskID,
		StageID:     stageID,
		Date:        b.today(),
		Status:      batches.StatusDraft,
		Lines:       lines,
	}
	id, err := b.batches.Create(ctx, batch)
	if err != nil {
		return nil, err
	}
	return b.batches.Get(ctx, id)
}

func (b *Bot) mrClear(ctx context.Context, r *request, _ action.Args) {
	p := r.p.Without(dialog.SlotMRLines)
	st := r.state
	if st == dialog.StateUstaMRDraftInput {
		st = dialog.StateUstaMRInput
	}
	if !st.IsDraft() {
		st = dialog.StateUstaMRInput
	}
	b.ask(ctx, r, st, p, "🗑 Черновик очищен.\n\n"+manualPrompt, navKeyboard(true))
}

// mrBack выход из черновика: строки сбрасываются
func (b *Bot) mrBack(ctx context.Context, r *request, _ action.Args) {
	b.setState(ctx, r, dialog.StateIdle, r.p.Without(draftSlots...))
	b.showMenu(ctx, r)
}
