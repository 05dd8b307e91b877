package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/Spok95/construction-bot/internal/action"
	"github.com/Spok95/construction-bot/internal/domain/batches"
	"github.com/Spok95/construction-bot/internal/domain/projects"
	"github.com/Spok95/construction-bot/internal/domain/users"
	"github.com/Spok95/construction-bot/internal/export"
	"github.com/Spok95/construction-bot/internal/notify"
	"github.com/Spok95/construction-bot/internal/workflow"
)

func (b *Bot) mrApprove(ctx context.Context, r *request, args action.Args) {
	b.decide(ctx, r, argID(args, 0), true)
}

func (b *Bot) mrReject(ctx context.Context, r *request, args action.Args) {
	b.decide(ctx, r, argID(args, 0), false)
}

func (b *Bot) decide(ctx context.Context, r *request, id int64, approve bool) {
	out, err := b.flow.Decide(ctx, id, r.user, approve)
	if b.transitionFailed(ctx, r, "decide", err) {
		return
	}
	if !out.Changed {
		b.show(ctx, r, fmt.Sprintf("Заявка %s уже: %s.", out.Batch.Name, out.Batch.Status.Title()), nil)
		return
	}
	verdict := "❌ Заявка отклонена"
	if approve {
		verdict = "✅ Заявка одобрена"
	}
	text := fmt.Sprintf("%s\n%s · %s\nСумма: %s", verdict, out.Batch.Name, out.Project.Name, export.FormatMoney(out.Batch.Total()))
	if s := out.Push.Summary(); s != "" {
		text += "\n\n" + s
	}
	b.log.Info("batch decided", "batch_id", out.Batch.ID, "approve", approve, "user_id", r.user.ID)
	b.show(ctx, r, text, nil)
}

// mrResubmit повторная отправка: автор заявки, снабженец или админ
func (b *Bot) mrResubmit(ctx context.Context, r *request, args action.Args) {
	id := argID(args, 0)
	bt, err := b.batches.Get(ctx, id)
	if err != nil {
		b.fail(ctx, r, "batch_get", err)
		return
	}
	if bt == nil {
		b.show(ctx, r, "Заявка не найдена.", navKeyboard(false))
		return
	}
	if bt.RequesterID != r.user.ID && r.user.Role != users.RoleSupply && !r.user.IsAdmin() {
		b.deny(ctx, r)
		return
	}
	if _, ok := b.project(ctx, r, bt.ProjectID); !ok {
		return
	}
	out, err := b.flow.Resubmit(ctx, id, r.user)
	if b.transitionFailed(ctx, r, "resubmit", err) {
		return
	}
	if !out.Changed {
		b.show(ctx, r, fmt.Sprintf("Заявка %s уже: %s.", out.Batch.Name, out.Batch.Status.Title()), nil)
		return
	}
	text := fmt.Sprintf("🔁 Заявка %s снова на согласовании.", out.Batch.Name)
	if out.Batch.Status == batches.StatusDraft {
		text = fmt.Sprintf("🔁 Заявка %s возвращена снабжению на оценку.", out.Batch.Name)
	}
	b.show(ctx, r, text, nil)
}

// transitionFailed ошибки переходов заявки в понятные сообщения
func (b *Bot) transitionFailed(ctx context.Context, r *request, op string, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, workflow.ErrForbidden):
		b.deny(ctx, r)
	case errors.Is(err, workflow.ErrNotFound):
		b.show(ctx, r, "Заявка не найдена.", navKeyboard(false))
	case errors.Is(err, batches.ErrNoPricedLines):
		b.show(ctx, r, "⚠️ В заявке нет оценённых строк.", navKeyboard(false))
	case errors.Is(err, batches.ErrTransition):
		b.show(ctx, r, "Заявку в текущем статусе нельзя изменить.", navKeyboard(false))
	default:
		b.fail(ctx, r, op, err)
	}
	return true
}

/*** СОГЛАСОВАНИЕ ДЛЯ ЗАКАЗЧИКА ***/

var approvalStatuses = []batches.Status{batches.StatusPriced, batches.StatusDraft, batches.StatusApproved, batches.StatusRejected}

func (b *Bot) clientApprovals(ctx context.Context, r *request, _ action.Args) {
	b.pickProject(ctx, r, "Выберите объект:", projectToken("client:approvals"), func(p projects.Project) {
		b.showApprovalFilters(ctx, r, p)
	})
}

func (b *Bot) clientApprovalsProject(ctx context.Context, r *request, args action.Args) {
	if p, ok := b.project(ctx, r, argID(args, 0)); ok {
		b.showApprovalFilters(ctx, r, *p)
	}
}

func (b *Bot) showApprovalFilters(ctx context.Context, r *request, p projects.Project) {
	kb := notify.Keyboard{}
	for _, st := range approvalStatuses {
		kb = append(kb, notify.Row(notify.Data(st.Title(), action.Encode("client:approvals:list", p.ID, string(st)))))
	}
	kb = append(kb, navRow(true))
	b.show(ctx, r, fmt.Sprintf("🗳 Заявки · %s\nВыберите статус:", p.Name), kb)
}

// clientApprovalsList client:approvals:list:<pid>:<status>; оценённые можно решить прямо из списка
func (b *Bot) clientApprovalsList(ctx context.Context, r *request, args action.Args) {
	p, ok := b.project(ctx, r, argID(args, 0))
	if !ok {
		return
	}
	st := batches.Status(args.String(1))
	known := false
	for _, s := range approvalStatuses {
		known = known || s == st
	}
	if !known {
		b.showApprovalFilters(ctx, r, *p)
		return
	}
	short, err := b.batches.ListByProject(ctx, p.ID, []batches.Status{st}, listLimit)
	if err != nil {
		b.fail(ctx, r, "batches_list", err)
		return
	}

	text := fmt.Sprintf("🗳 %s · %s", st.Title(), p.Name)
	if len(short) == 0 {
		text += "\n\nЗаявок нет."
	}
	kb := notify.Keyboard{}
	for _, s := range short {
		bt, err := b.batches.Get(ctx, s.ID)
		if err != nil || bt == nil {
			b.log.Error("batch load failed", "batch_id", s.ID, "err", err)
			continue
		}
		text += fmt.Sprintf("\n\n%s от %s\n%s", bt.Name, bt.Date.Format("02.01.2006"), workflow.RenderLines(bt.Lines, true))
		if st == batches.StatusPriced && workflow.CanDecide(r.user, p) {
			kb = append(kb, notify.Row(
				notify.Data("✅ "+bt.Name, action.Encode("mr:approve", bt.ID)),
				notify.Data("❌ "+bt.Name, action.Encode("mr:reject", bt.ID)),
			))
		}
	}
	kb = append(kb, notify.Row(notify.Data("⬅️ К статусам", action.Encode("client:approvals:project", p.ID))), navRow(false))
	b.show(ctx, r, text, kb)
}
