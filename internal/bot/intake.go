package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/construction-bot/internal/action"
	"github.com/Spok95/construction-bot/internal/dialog"
	"github.com/Spok95/construction-bot/internal/notify"
	"github.com/Spok95/construction-bot/internal/resolver"
)

// intakeColumns колонки листа прихода; порядок по умолчанию, если заголовка нет
var intakeColumns = []string{"kind", "name", "qty", "unit", "unit_price", "stage_id"}

var errIntakeEmpty = errors.New("файл не содержит строк прихода")

// intakeRow строка файла вместе с номером для отчёта
type intakeRow struct {
	N    int
	Line resolver.Line
}

// parseIntake читает активный лист. Первая строка — заголовок: колонки ищутся
// по имени, не найденные берутся по позиции из intakeColumns.
// Невалидные строки возвращаются отдельно с причиной.
func parseIntake(data []byte, day time.Time) ([]intakeRow, []string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("не удалось прочитать Excel-файл (повреждён или не .xlsx): %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) < 2 {
		return nil, nil, errIntakeEmpty
	}

	idx := map[string]int{}
	for i, h := range rows[0] {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for i, c := range intakeColumns {
		if _, ok := idx[c]; !ok {
			idx[c] = i
		}
	}
	cell := func(row []string, col string) string {
		if i := idx[col]; i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	num := func(s string) (float64, error) {
		return strconv.ParseFloat(strings.ReplaceAll(strings.ReplaceAll(s, " ", ""), ",", "."), 64)
	}

	var (
		out []intakeRow
		bad []string
	)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		n := i + 1
		name := cell(row, "name")
		if name == "" {
			continue
		}
		kind := resolver.Kind(strings.ToLower(cell(row, "kind")))
		if !kind.Valid() {
			bad = append(bad, fmt.Sprintf("строка %d: тип %q (нужен material или service)", n, cell(row, "kind")))
			continue
		}
		qty, err := num(cell(row, "qty"))
		if err != nil || qty <= 0 {
			bad = append(bad, fmt.Sprintf("строка %d: количество %q", n, cell(row, "qty")))
			continue
		}
		var price float64
		if s := cell(row, "unit_price"); s != "" {
			if price, err = num(s); err != nil || price < 0 {
				bad = append(bad, fmt.Sprintf("строка %d: цена %q", n, s))
				continue
			}
		}
		stageID, err := strconv.ParseInt(cell(row, "stage_id"), 10, 64)
		if err != nil || stageID <= 0 {
			bad = append(bad, fmt.Sprintf("строка %d: этап %q", n, cell(row, "stage_id")))
			continue
		}
		out = append(out, intakeRow{N: n, Line: resolver.Line{
			Kind:    kind,
			StageID: stageID,
			Name:    name,
			Qty:     qty,
			Price:   price,
			Unit:    cell(row, "unit"),
			Date:    day,
		}})
	}
	if len(out) == 0 && len(bad) == 0 {
		return nil, nil, errIntakeEmpty
	}
	return out, bad, nil
}

func (b *Bot) intakeStart(ctx context.Context, r *request, _ action.Args) {
	if b.pusher == nil {
		b.show(ctx, r, "Учёт не подключён, загрузка прихода недоступна.", navKeyboard(false))
		return
	}
	b.ask(ctx, r, dialog.StateIntakeFileWait, r.p.Clone(),
		"📥 Пришлите Excel-файл прихода.\nКолонки: "+strings.Join(intakeColumns, ", ")+".",
		navKeyboard(true))
}

func (b *Bot) intakeHint(ctx context.Context, r *request, _ string) {
	b.reply(ctx, r.chatID, "Жду Excel-файл (.xlsx) документом.", navKeyboard(false))
}

func (b *Bot) intakeFile(ctx context.Context, r *request) {
	doc := r.msg.Document
	if doc == nil || !strings.HasSuffix(strings.ToLower(doc.FileName), ".xlsx") {
		b.reply(ctx, r.chatID, "Нужен файл .xlsx, отправленный документом.", navKeyboard(false))
		return
	}
	if b.pusher == nil {
		b.reply(ctx, r.chatID, "Учёт не подключён.", navKeyboard(false))
		return
	}
	data, err := b.sender.Download(ctx, doc.FileID)
	if err != nil {
		notify.Report(b.log, "download", err, "file_id", doc.FileID)
		b.reply(ctx, r.chatID, "Не удалось скачать файл, попробуйте ещё раз.", nil)
		return
	}
	rows, bad, err := parseIntake(data, b.today())
	if err != nil {
		b.reply(ctx, r.chatID, "⚠️ "+err.Error(), navKeyboard(false))
		return
	}

	var (
		created, updated int
		failed           = bad
	)
	for _, row := range rows {
		res, err := b.pusher.Push(ctx, row.Line)
		var mt *resolver.MissingTaskError
		switch {
		case errors.Is(err, resolver.ErrNoEligibleShape):
			b.log.Error("intake configuration error", "err", err)
			if b.adminChat != 0 && b.adminChat != r.chatID {
				b.reply(ctx, b.adminChat, fmt.Sprintf("⚙️ Ошибка настройки учёта при загрузке прихода от %s:\n%v", r.user.DisplayName(), err), nil)
			}
			b.reply(ctx, r.chatID, "⚙️ Учёт не настроен для приёма строк этапа. Администратор уведомлён.", navKeyboard(false))
			b.setState(ctx, r, dialog.StateIdle, r.p)
			return
		case errors.As(err, &mt):
			failed = append(failed, fmt.Sprintf("строка %d: %s", row.N, mt.Error()))
			continue
		case err != nil:
			b.log.Error("intake push failed", "row", row.N, "err", err)
			failed = append(failed, fmt.Sprintf("строка %d: ошибка записи", row.N))
			continue
		}
		if res.Created {
			created++
		} else {
			updated++
		}
	}
	b.log.Info("intake imported", "user_id", r.user.ID, "created", created, "updated", updated, "failed", len(failed))
	b.setState(ctx, r, dialog.StateIdle, r.p)

	text := fmt.Sprintf("📥 Приход загружен\nНовых: %d\nОбновлено: %d", created, updated)
	if len(failed) > 0 {
		text += fmt.Sprintf("\n\n⚠️ Пропущено: %d\n%s", len(failed), strings.Join(failed, "\n"))
	}
	b.reply(ctx, r.chatID, text, navKeyboard(false))
}
