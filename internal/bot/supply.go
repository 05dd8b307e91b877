package bot

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/Spok95/construction-bot/internal/action"
	"github.com/Spok95/construction-bot/internal/dialog"
	"github.com/Spok95/construction-bot/internal/domain/batches"
	"github.com/Spok95/construction-bot/internal/domain/projects"
	"github.com/Spok95/construction-bot/internal/draft"
	"github.com/Spok95/construction-bot/internal/export"
	"github.com/Spok95/construction-bot/internal/infra/gemini"
	"github.com/Spok95/construction-bot/internal/notify"
	"github.com/Spok95/construction-bot/internal/workflow"
)

const listLimit = 30

var snabSlots = []string{dialog.SlotSnabBatchID, dialog.SlotSnabLineID, dialog.SlotSnabPricedLineIDs, dialog.SlotVoiceProjectID}

// списки снабжения: ключ в callback → статусы заявок
var supplyLists = map[string][]batches.Status{
	"pending":  {batches.StatusDraft, batches.StatusPriced, batches.StatusRejected},
	"approved": {batches.StatusApproved},
}

/*** СПИСКИ ***/

func (b *Bot) snabPending(ctx context.Context, r *request, _ action.Args) {
	b.pickProject(ctx, r, "Выберите объект:", projectToken("snab:pending"), func(p projects.Project) {
		b.showSupplyList(ctx, r, p, "pending")
	})
}

func (b *Bot) snabPendingProject(ctx context.Context, r *request, args action.Args) {
	if p, ok := b.project(ctx, r, argID(args, 0)); ok {
		b.showSupplyList(ctx, r, *p, "pending")
	}
}

func (b *Bot) snabApproved(ctx context.Context, r *request, _ action.Args) {
	b.pickProject(ctx, r, "Выберите объект:", projectToken("snab:approved"), func(p projects.Project) {
		b.showSupplyList(ctx, r, p, "approved")
	})
}

func (b *Bot) snabApprovedProject(ctx context.Context, r *request, args action.Args) {
	if p, ok := b.project(ctx, r, argID(args, 0)); ok {
		b.showSupplyList(ctx, r, *p, "approved")
	}
}

func (b *Bot) showSupplyList(ctx context.Context, r *request, p projects.Project, kind string) {
	list, err := b.batches.ListByProject(ctx, p.ID, supplyLists[kind], listLimit)
	if err != nil {
		b.fail(ctx, r, "batches_list", err)
		return
	}
	title := "💰 Заявки на оценку"
	if kind == "approved" {
		title = "✅ Одобренные заявки"
	}
	kb := notify.Keyboard{}
	for _, bt := range list {
		label := fmt.Sprintf("%s · %s · %s", bt.Name, bt.Date.Format("02.01"), bt.Status.Title())
		token := action.Encode("snab:mr:price_batch", bt.ID)
		if kind == "approved" {
			token = action.Encode("dlv|bat", bt.ID, p.ID)
		}
		kb = append(kb, notify.Row(notify.Data(label, token)))
	}
	if len(list) > 0 {
		kb = append(kb, notify.Row(
			notify.Data("📊 Excel", action.Encode("snab:export", kind, p.ID, "xlsx")),
			notify.Data("📄 PDF", action.Encode("snab:export", kind, p.ID, "pdf")),
		))
	}
	kb = append(kb, navRow(true))

	text := fmt.Sprintf("%s\nОбъект: %s", title, p.Name)
	if len(list) == 0 {
		text += "\n\nЗаявок нет."
	}
	b.show(ctx, r, text, kb)
}

// snabExport snab:export:<pending|approved>:<pid>:<xlsx|pdf>
func (b *Bot) snabExport(ctx context.Context, r *request, args action.Args) {
	kind, format := args.String(0), args.String(2)
	statuses, ok := supplyLists[kind]
	if !ok || (format != "xlsx" && format != "pdf") {
		b.log.Warn("bad export request", "chat_id", r.chatID, "kind", kind, "format", format)
		b.showMenu(ctx, r)
		return
	}
	p, ok := b.project(ctx, r, argID(args, 1))
	if !ok {
		return
	}
	short, err := b.batches.ListByProject(ctx, p.ID, statuses, listLimit)
	if err != nil {
		b.fail(ctx, r, "batches_list", err)
		return
	}
	full := make([]batches.Batch, 0, len(short))
	for _, s := range short {
		bt, err := b.batches.Get(ctx, s.ID)
		if err != nil {
			b.fail(ctx, r, "batch_get", err)
			return
		}
		if bt != nil {
			full = append(full, *bt)
		}
	}

	var data []byte
	if format == "xlsx" {
		data, err = export.BatchesExcel(full)
	} else {
		data, err = export.BatchesPDF(fmt.Sprintf("Заявки · %s", p.Name), full, b.font)
	}
	if err != nil {
		b.fail(ctx, r, "export_batches", err)
		return
	}
	name := fmt.Sprintf("mr_%s_%d_%s.%s", kind, p.ID, b.today().Format("20060102"), format)
	b.document(ctx, r.chatID, name, data, fmt.Sprintf("%s · заявок: %d", p.Name, len(full)))
}

/*** ОЦЕНКА ЗАЯВКИ ***/

// pricedBatch заявка для оценки с проверкой доступа к её проекту
func (b *Bot) pricedBatch(ctx context.Context, r *request, id int64) (*batches.Batch, *projects.Project, bool) {
	bt, err := b.batches.Get(ctx, id)
	if err != nil {
		b.fail(ctx, r, "batch_get", err)
		return nil, nil, false
	}
	if bt == nil {
		b.show(ctx, r, "Заявка не найдена.", navKeyboard(false))
		return nil, nil, false
	}
	p, ok := b.project(ctx, r, bt.ProjectID)
	if !ok {
		return nil, nil, false
	}
	return bt, p, true
}

func (b *Bot) snabPriceBatch(ctx context.Context, r *request, args action.Args) {
	bt, p, ok := b.pricedBatch(ctx, r, argID(args, 0))
	if !ok {
		return
	}
	payload := r.p.Without(snabSlots...)
	if prev, _ := dialog.GetInt64(r.p, dialog.SlotSnabBatchID); prev == bt.ID {
		payload[dialog.SlotSnabPricedLineIDs] = dialog.GetInt64s(r.p, dialog.SlotSnabPricedLineIDs)
	}
	payload[dialog.SlotSnabBatchID] = bt.ID
	b.setState(ctx, r, dialog.StateSnabPriceSelectLine, payload)
	b.show(ctx, r, pricePanelText(bt, p), pricePanelKeyboard(bt))
}

func pricePanelText(bt *batches.Batch, p *projects.Project) string {
	text := fmt.Sprintf("💰 Оценка заявки %s\nОбъект: %s\nСтатус: %s\n\n%s",
		bt.Name, p.Name, bt.Status.Title(), workflow.RenderLines(bt.Lines, true))
	if bt.Status == batches.StatusDraft || bt.Status == batches.StatusRejected {
		text += "\n\nВыберите строку или отправьте цены сообщением: «номер цена», по одной на строку."
	}
	return text
}

func pricePanelKeyboard(bt *batches.Batch) notify.Keyboard {
	kb := notify.Keyboard{}
	if bt.Status == batches.StatusApproved {
		return append(kb, navRow(true))
	}
	for i, l := range bt.Lines {
		price := "❔"
		if l.Priced() {
			price = export.FormatMoney(l.Total())
		}
		label := fmt.Sprintf("%d. %s — %s", i+1, l.ProductName, price)
		kb = append(kb, notify.Row(notify.Data(label, action.Encode("snab:mr:line", bt.ID, l.ID))))
	}
	if bt.Status != batches.StatusPriced {
		kb = append(kb, notify.Row(notify.Data("📨 На согласование", action.Encode("snab:mr:send", bt.ID))))
	}
	return append(kb, navRow(true))
}

func (b *Bot) snabPriceLine(ctx context.Context, r *request, args action.Args) {
	bt, _, ok := b.pricedBatch(ctx, r, argID(args, 0))
	if !ok {
		return
	}
	if bt.Status == batches.StatusApproved {
		b.show(ctx, r, "⚠️ "+workflow.ErrApproved.Error()+".", navKeyboard(false))
		return
	}
	line, ok := bt.Line(argID(args, 1))
	if !ok {
		b.show(ctx, r, "Строка не найдена.", navKeyboard(true))
		return
	}
	payload := r.p.Clone()
	payload[dialog.SlotSnabBatchID] = bt.ID
	payload[dialog.SlotSnabLineID] = line.ID
	b.ask(ctx, r, dialog.StateSnabPriceInputLine, payload,
		fmt.Sprintf("Введите цену за единицу:\n%s — %g", line.ProductName, line.Quantity), navKeyboard(true))
}

func (b *Bot) snabLinePriceText(ctx context.Context, r *request, text string) {
	price, err := draft.ParseAmount(text)
	if err != nil {
		b.reply(ctx, r.chatID, "⚠️ "+err.Error()+". Введите цену числом, например 1250 или 12,5.", nil)
		return
	}
	bid, _ := dialog.GetInt64(r.p, dialog.SlotSnabBatchID)
	lid, _ := dialog.GetInt64(r.p, dialog.SlotSnabLineID)
	bt, err := b.flow.SetLinePrice(ctx, bid, lid, price)
	if errors.Is(err, workflow.ErrNotFound) {
		b.reply(ctx, r.chatID, "Заявка или строка не найдена.", navKeyboard(false))
		return
	}
	if errors.Is(err, workflow.ErrApproved) {
		b.clearAll(ctx, r)
		b.reply(ctx, r.chatID, "⚠️ "+err.Error()+".", navKeyboard(false))
		return
	}
	if err != nil {
		b.fail(ctx, r, "set_price", err)
		return
	}
	b.afterPricing(ctx, r, bt, lid)
}

// snabPriceText цены сообщением: «номер цена» на каждой строке
func (b *Bot) snabPriceText(ctx context.Context, r *request, text string) {
	bid, _ := dialog.GetInt64(r.p, dialog.SlotSnabBatchID)
	bt, _, ok := b.pricedBatch(ctx, r, bid)
	if !ok {
		return
	}
	if bt.Status == batches.StatusApproved {
		b.clearAll(ctx, r)
		b.reply(ctx, r.chatID, "⚠️ "+workflow.ErrApproved.Error()+".", navKeyboard(false))
		return
	}
	var (
		priced []int64
		bad    []string
	)
	for _, row := range strings.Split(text, "\n") {
		row = strings.TrimSpace(row)
		if row == "" {
			continue
		}
		num, rest, _ := strings.Cut(row, " ")
		n, err := strconv.Atoi(strings.TrimSuffix(num, "."))
		if err != nil || n < 1 || n > len(bt.Lines) {
			bad = append(bad, row)
			continue
		}
		price, err := draft.ParseAmount(rest)
		if err != nil {
			bad = append(bad, row)
			continue
		}
		lid := bt.Lines[n-1].ID
		if _, err := b.flow.SetLinePrice(ctx, bt.ID, lid, price); err != nil {
			b.fail(ctx, r, "set_price", err)
			return
		}
		priced = append(priced, lid)
	}
	if len(bad) > 0 {
		b.reply(ctx, r.chatID, "⚠️ Не понял строки:\n"+strings.Join(bad, "\n"), nil)
	}
	if len(priced) == 0 {
		return
	}
	fresh, err := b.batches.Get(ctx, bt.ID)
	if err != nil || fresh == nil {
		b.fail(ctx, r, "batch_get", errors.Join(err, workflow.ErrNotFound))
		return
	}
	b.afterPricing(ctx, r, fresh, priced...)
}

func (b *Bot) afterPricing(ctx context.Context, r *request, bt *batches.Batch, lineIDs ...int64) {
	ids := dialog.GetInt64s(r.p, dialog.SlotSnabPricedLineIDs)
	for _, id := range lineIDs {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	payload := r.p.Without(dialog.SlotSnabLineID)
	payload[dialog.SlotSnabBatchID] = bt.ID
	payload[dialog.SlotSnabPricedLineIDs] = ids
	b.setState(ctx, r, dialog.StateSnabPriceSelectLine, payload)

	p, err := b.projects.Get(ctx, bt.ProjectID)
	if err != nil || p == nil {
		b.fail(ctx, r, "project_get", errors.Join(err, workflow.ErrNotFound))
		return
	}
	b.reply(ctx, r.chatID, "✅ Цена сохранена.\n\n"+pricePanelText(bt, p), pricePanelKeyboard(bt))
}

func (b *Bot) snabSend(ctx context.Context, r *request, args action.Args) {
	bt, _, ok := b.pricedBatch(ctx, r, argID(args, 0))
	if !ok {
		return
	}
	out, err := b.flow.SendForApproval(ctx, bt.ID, r.user)
	switch {
	case errors.Is(err, batches.ErrNoPricedLines):
		b.show(ctx, r, "⚠️ Укажите цену хотя бы для одной строки.", pricePanelKeyboard(bt))
		return
	case errors.Is(err, batches.ErrTransition):
		b.show(ctx, r, "Заявка уже обработана: "+bt.Status.Title()+".", navKeyboard(false))
		return
	case err != nil:
		b.fail(ctx, r, "send_for_approval", err)
		return
	}
	b.setState(ctx, r, dialog.StateIdle, r.p.Without(snabSlots...))
	if !out.Changed {
		b.show(ctx, r, fmt.Sprintf("Заявка %s уже на согласовании.", out.Batch.Name), navKeyboard(false))
		return
	}
	b.show(ctx, r, fmt.Sprintf("📨 Заявка %s отправлена на согласование.\nСумма: %s",
		out.Batch.Name, export.FormatMoney(out.Batch.Total())), navKeyboard(false))
}

/*** ЦЕНЫ ГОЛОСОМ ***/

func (b *Bot) snabVoice(ctx context.Context, r *request, _ action.Args) {
	if b.ai == nil {
		b.show(ctx, r, "Распознавание голоса не настроено.", navKeyboard(false))
		return
	}
	b.pickProject(ctx, r, "Цены для какого объекта?", projectToken("snab:voice"), func(p projects.Project) {
		b.startVoice(ctx, r, p)
	})
}

func (b *Bot) snabVoiceProject(ctx context.Context, r *request, args action.Args) {
	if p, ok := b.project(ctx, r, argID(args, 0)); ok {
		b.startVoice(ctx, r, *p)
	}
}

func (b *Bot) startVoice(ctx context.Context, r *request, p projects.Project) {
	payload := r.p.Without(snabSlots...)
	payload[dialog.SlotVoiceProjectID] = p.ID
	b.ask(ctx, r, dialog.StateSnabVoicePriceWait, payload,
		fmt.Sprintf("🎙 Объект: %s\nНазовите материалы и цены голосом или текстом, например: «гипсокартон 450, ротбанд 520».", p.Name),
		navKeyboard(true))
}

func (b *Bot) snabVoiceText(ctx context.Context, r *request, text string) {
	b.applyVoice(ctx, r, text, nil)
}

func (b *Bot) snabVoiceMedia(ctx context.Context, r *request) {
	media, err := b.mediaOf(ctx, r.msg)
	if err != nil {
		b.reply(ctx, r.chatID, "⚠️ "+err.Error(), nil)
		return
	}
	b.applyVoice(ctx, r, r.msg.Caption, media)
}

func (b *Bot) applyVoice(ctx context.Context, r *request, text string, media *gemini.Media) {
	if b.ai == nil {
		b.reply(ctx, r.chatID, "Распознавание голоса не настроено.", navKeyboard(false))
		return
	}
	pid, _ := dialog.GetInt64(r.p, dialog.SlotVoiceProjectID)
	if _, ok := b.project(ctx, r, pid); !ok {
		return
	}
	prices, err := b.ai.ExtractPrices(ctx, text, media)
	if err != nil {
		b.log.Warn("ai prices failed", "chat_id", r.chatID, "err", err)
		b.reply(ctx, r.chatID, "⚠️ "+err.Error(), nil)
		return
	}
	items := make([]workflow.PriceItem, 0, len(prices))
	for _, pr := range prices {
		items = append(items, workflow.PriceItem{Name: pr.Name, Price: pr.Price})
	}
	res, err := b.flow.ApplyVoicePrices(ctx, pid, items, r.user)
	if err != nil {
		b.fail(ctx, r, "voice_prices", err)
		return
	}
	b.log.Info("voice prices applied", "project_id", pid, "updated", res.Updated, "not_found", len(res.NotFound))
	b.reply(ctx, r.chatID, res.Text()+"\n\nМожно продиктовать ещё.", navKeyboard(false))
}
