package bot

import (
	"context"
	"fmt"

	"github.com/Spok95/construction-bot/internal/action"
	"github.com/Spok95/construction-bot/internal/dialog"
	"github.com/Spok95/construction-bot/internal/domain/projects"
	"github.com/Spok95/construction-bot/internal/notify"
)

var reportSlots = []string{dialog.SlotReportProjectID, dialog.SlotReportText, dialog.SlotReportMedia}

func (b *Bot) reportStart(ctx context.Context, r *request, _ action.Args) {
	b.pickProject(ctx, r, "📝 Отчёт по какому объекту?", projectToken("prorab:report"), func(p projects.Project) {
		b.startReport(ctx, r, p)
	})
}

func (b *Bot) reportProject(ctx context.Context, r *request, args action.Args) {
	if p, ok := b.project(ctx, r, argID(args, 0)); ok {
		b.startReport(ctx, r, *p)
	}
}

func (b *Bot) startReport(ctx context.Context, r *request, p projects.Project) {
	payload := r.p.Without(reportSlots...)
	payload[dialog.SlotReportProjectID] = p.ID
	b.ask(ctx, r, dialog.StateForemanReportText, payload,
		fmt.Sprintf("📝 Дневной отчёт · %s · %s\nОпишите, что сделано за день:", p.Name, b.today().Format("02.01.2006")),
		notify.Keyboard{notify.Row(notify.Data("⏭ Без текста", "prorab:report:skip")), navRow(true)})
}

func mediaKeyboard() notify.Keyboard {
	return notify.Keyboard{notify.Row(notify.Data("✅ Завершить", "prorab:report:done")), navRow(false)}
}

func (b *Bot) reportText(ctx context.Context, r *request, text string) {
	payload := r.p.Clone()
	payload[dialog.SlotReportText] = text
	b.setState(ctx, r, dialog.StateForemanReportMedia, payload)
	b.reply(ctx, r.chatID, "Пришлите фото или видео с объекта, затем нажмите «Завершить».", mediaKeyboard())
}

func (b *Bot) reportSkip(ctx context.Context, r *request, _ action.Args) {
	b.ask(ctx, r, dialog.StateForemanReportMedia, r.p.Without(dialog.SlotReportText),
		"Пришлите фото или видео с объекта, затем нажмите «Завершить».", mediaKeyboard())
}

func (b *Bot) reportMedia(ctx context.Context, r *request) {
	var fileID string
	switch {
	case len(r.msg.Photo) > 0:
		fileID = r.msg.Photo[len(r.msg.Photo)-1].FileID
	case r.msg.Video != nil:
		fileID = r.msg.Video.FileID
	default:
		b.reply(ctx, r.chatID, "Нужны фото или видео.", mediaKeyboard())
		return
	}
	media := append(dialog.GetStrings(r.p, dialog.SlotReportMedia), fileID)
	payload := r.p.Clone()
	payload[dialog.SlotReportMedia] = media
	b.setState(ctx, r, dialog.StateForemanReportMedia, payload)
	b.reply(ctx, r.chatID, fmt.Sprintf("📎 Добавлено файлов: %d", len(media)), mediaKeyboard())
}

func (b *Bot) reportMediaHint(ctx context.Context, r *request, _ string) {
	b.reply(ctx, r.chatID, "Пришлите фото или видео, или нажмите «Завершить».", mediaKeyboard())
}

// reportDone один отчёт на объект и день: повторный ввод дописывается
func (b *Bot) reportDone(ctx context.Context, r *request, _ action.Args) {
	pid, _ := dialog.GetInt64(r.p, dialog.SlotReportProjectID)
	p, ok := b.project(ctx, r, pid)
	if !ok {
		return
	}
	text, _ := dialog.GetString(r.p, dialog.SlotReportText)
	media := dialog.GetStrings(r.p, dialog.SlotReportMedia)
	if text == "" && len(media) == 0 {
		b.show(ctx, r, "Отчёт пуст: добавьте текст или фото.", mediaKeyboard())
		return
	}
	rep, err := b.reports.Append(ctx, p.ID, r.user.ID, b.today(), text, media)
	if err != nil {
		b.fail(ctx, r, "report_append", err)
		return
	}
	b.log.Info("daily report saved", "report_id", rep.ID, "project_id", p.ID, "media", len(media))
	b.setState(ctx, r, dialog.StateIdle, r.p.Without(reportSlots...))
	b.show(ctx, r, fmt.Sprintf("✅ Отчёт за %s сохранён.\nОбъект: %s\nФайлов за день: %d",
		rep.Date.Format("02.01.2006"), p.Name, len(rep.MediaIDs)), navKeyboard(false))
}
