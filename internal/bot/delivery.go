package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Spok95/construction-bot/internal/action"
	"github.com/Spok95/construction-bot/internal/domain/batches"
	"github.com/Spok95/construction-bot/internal/domain/deliveries"
	"github.com/Spok95/construction-bot/internal/domain/projects"
	"github.com/Spok95/construction-bot/internal/notify"
	"github.com/Spok95/construction-bot/internal/workflow"
)

const filterAll = "all"

// logTail сколько последних записей журнала показывать в карточке
const logTail = 5

func (b *Bot) dlvStart(ctx context.Context, r *request, _ action.Args) {
	token := func(id int64) string { return action.Encode("dlv|proj", id) }
	b.pickProject(ctx, r, "🚚 Поставки · выберите объект:", token, func(p projects.Project) {
		b.showDeliveries(ctx, r, p, filterAll)
	})
}

// dlvProject dlv|proj|pid
func (b *Bot) dlvProject(ctx context.Context, r *request, args action.Args) {
	if p, ok := b.project(ctx, r, argID(args, 0)); ok {
		b.showDeliveries(ctx, r, *p, filterAll)
	}
}

// dlvFilter dlv|flt|<state|all>|pid
func (b *Bot) dlvFilter(ctx context.Context, r *request, args action.Args) {
	p, ok := b.project(ctx, r, argID(args, 1))
	if !ok {
		return
	}
	filter := args.String(0)
	if filter != filterAll && !deliveries.Status(filter).Valid() {
		filter = filterAll
	}
	b.showDeliveries(ctx, r, *p, filter)
}

func (b *Bot) showDeliveries(ctx context.Context, r *request, p projects.Project, filter string) {
	list, err := b.batches.ListByProject(ctx, p.ID, []batches.Status{batches.StatusApproved}, listLimit)
	if err != nil {
		b.fail(ctx, r, "batches_list", err)
		return
	}

	filters := []notify.Button{notify.Data(mark(filter == filterAll)+"Все", action.Encode("dlv|flt", filterAll, p.ID))}
	for _, st := range deliveries.Statuses {
		filters = append(filters, notify.Data(mark(filter == string(st))+st.Title(), action.Encode("dlv|flt", string(st), p.ID)))
	}
	kb := notify.Keyboard{filters}

	shown := 0
	for _, bt := range list {
		d, err := b.deliveries.GetByBatch(ctx, bt.ID)
		if err != nil {
			b.fail(ctx, r, "delivery_get", err)
			return
		}
		// без записи поставка считается купленной: запись заводится при открытии карточки
		st := deliveries.StatusPurchased
		if d != nil {
			st = d.Status
		}
		if filter != filterAll && string(st) != filter {
			continue
		}
		label := fmt.Sprintf("%s · %s · %s", bt.Name, bt.Date.Format("02.01"), st.Title())
		kb = append(kb, notify.Row(notify.Data(label, action.Encode("dlv|bat", bt.ID, p.ID))))
		shown++
	}
	kb = append(kb, navRow(true))

	text := fmt.Sprintf("🚚 Поставки · %s", p.Name)
	if shown == 0 {
		text += "\n\nНет одобренных заявок."
	}
	b.show(ctx, r, text, kb)
}

func mark(on bool) string {
	if on {
		return "• "
	}
	return ""
}

// dlvBatch dlv|bat|bid|pid; запись поставки заводится при первом открытии
func (b *Bot) dlvBatch(ctx context.Context, r *request, args action.Args) {
	b.showDelivery(ctx, r, argID(args, 0), argID(args, 1), "")
}

func (b *Bot) showDelivery(ctx context.Context, r *request, batchID, backPID int64, head string) {
	bt, p, ok := b.pricedBatch(ctx, r, batchID)
	if !ok {
		return
	}
	if backPID == 0 {
		backPID = p.ID
	}
	back := notify.Row(notify.Data("⬅️ К поставкам", action.Encode("dlv|proj", backPID)))
	if bt.Status != batches.StatusApproved {
		b.show(ctx, r, fmt.Sprintf("Заявка %s ещё не одобрена: %s.", bt.Name, bt.Status.Title()), notify.Keyboard{back, navRow(false)})
		return
	}
	d, created, err := b.deliveries.Ensure(ctx, bt.ID, deliveries.StatusPurchased, r.user.ID, deliveries.SourceBot)
	if err != nil {
		b.fail(ctx, r, "delivery_ensure", err)
		return
	}
	if created {
		b.log.Info("delivery created", "batch_id", bt.ID, "user_id", r.user.ID)
	}
	logs, err := b.deliveries.Logs(ctx, d.ID)
	if err != nil {
		b.fail(ctx, r, "delivery_logs", err)
		return
	}

	var sb strings.Builder
	sb.WriteString(head)
	fmt.Fprintf(&sb, "🚚 %s · %s\nСтатус: %s\n\n%s", bt.Name, p.Name, d.Status.Title(), workflow.RenderLines(bt.Lines, false))
	if d.Note != "" {
		fmt.Fprintf(&sb, "\n\nКомментарий: %s", d.Note)
	}
	if len(logs) > 0 {
		sb.WriteString("\n\nИстория:")
		if len(logs) > logTail {
			logs = logs[len(logs)-logTail:]
		}
		for _, l := range logs {
			from := "—"
			if l.Old != "" {
				from = l.Old.Title()
			}
			fmt.Fprintf(&sb, "\n%s %s → %s", l.CreatedAt.In(b.loc).Format("02.01 15:04"), from, l.New.Title())
		}
	}

	kb := notify.Keyboard{}
	for _, st := range deliveries.Statuses {
		if st == d.Status {
			continue
		}
		kb = append(kb, notify.Row(notify.Data("→ "+st.Title(), action.Encode("dlv|set", bt.ID, string(st), backPID))))
	}
	kb = append(kb, back, navRow(false))
	b.show(ctx, r, sb.String(), kb)
}

// dlvSet dlv|set|bid|state|pid
func (b *Bot) dlvSet(ctx context.Context, r *request, args action.Args) {
	bid, pid := argID(args, 0), argID(args, 2)
	bt, _, ok := b.pricedBatch(ctx, r, bid)
	if !ok {
		return
	}
	_, changed, err := b.flow.SetDelivery(ctx, bt.ID, deliveries.Change{
		Status:  deliveries.Status(args.String(1)),
		ActorID: r.user.ID,
		Source:  deliveries.SourceBot,
	})
	head := ""
	switch {
	case errors.Is(err, deliveries.ErrUnknownStatus):
		head = "⚠️ Неизвестный статус поставки.\n\n"
	case errors.Is(err, deliveries.ErrBackwardTransition):
		head = "⚠️ Статус поставки нельзя вернуть назад.\n\n"
	case errors.Is(err, batches.ErrTransition):
		head = "⚠️ Поставка доступна только для одобренных заявок.\n\n"
	case err != nil:
		b.fail(ctx, r, "delivery_set", err)
		return
	case changed:
		b.log.Info("delivery status changed", "batch_id", bt.ID, "status", args.String(1), "user_id", r.user.ID)
		head = "✅ Статус обновлён.\n\n"
	}
	b.showDelivery(ctx, r, bt.ID, pid, head)
}
