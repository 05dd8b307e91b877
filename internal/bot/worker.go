package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/Spok95/construction-bot/internal/action"
	"github.com/Spok95/construction-bot/internal/dialog"
	"github.com/Spok95/construction-bot/internal/domain/batches"
	"github.com/Spok95/construction-bot/internal/domain/projects"
	"github.com/Spok95/construction-bot/internal/domain/tasks"
	"github.com/Spok95/construction-bot/internal/draft"
	"github.com/Spok95/construction-bot/internal/notify"
)

const (
	scopeToday = "today"
	scopeAll   = "all"
)

func (b *Bot) workerTasks(ctx context.Context, r *request, _ action.Args) {
	b.pickProject(ctx, r, "Выберите объект:", projectToken("worker:tasks"), func(p projects.Project) {
		b.showTasks(ctx, r, p, scopeToday)
	})
}

func (b *Bot) workerTasksProject(ctx context.Context, r *request, args action.Args) {
	if p, ok := b.project(ctx, r, argID(args, 0)); ok {
		b.showTasks(ctx, r, *p, scopeToday)
	}
}

func (b *Bot) workerTasksList(ctx context.Context, r *request, args action.Args) {
	p, ok := b.project(ctx, r, argID(args, 0))
	if !ok {
		return
	}
	scope := args.String(1)
	if scope != scopeAll {
		scope = scopeToday
	}
	b.showTasks(ctx, r, *p, scope)
}

func (b *Bot) showTasks(ctx context.Context, r *request, p projects.Project, scope string) {
	b.setState(ctx, r, dialog.StateIdle, r.p.Clone())

	var list []tasks.Task
	var err error
	if scope == scopeAll {
		list, err = b.tasks.ListForAssignee(ctx, r.user.ID, p.ID, nil)
	} else {
		day := b.today()
		list, err = b.tasks.ListForAssignee(ctx, r.user.ID, p.ID, &day)
	}
	if err != nil {
		b.fail(ctx, r, "tasks_list", err)
		return
	}

	title := "на сегодня"
	toggle := notify.Data("📅 Все задачи", action.Encode("worker:tasks:list", p.ID, scopeAll))
	if scope == scopeAll {
		title = "все"
		toggle = notify.Data("📅 На сегодня", action.Encode("worker:tasks:list", p.ID, scopeToday))
	}

	kb := notify.Keyboard{}
	for _, t := range list {
		kb = append(kb, notify.Row(notify.Data(fmt.Sprintf("%s · %s", t.Name, t.Status.Title()), action.Encode("tasks:card", t.ID))))
	}
	kb = append(kb, notify.Row(toggle), navRow(true))

	text := fmt.Sprintf("📋 Задачи (%s)\nОбъект: %s", title, p.Name)
	if len(list) == 0 {
		text += "\n\nЗадач нет."
	}
	b.show(ctx, r, text, kb)
}

// ownTask задача актёра; чужую видит только админ
func (b *Bot) ownTask(ctx context.Context, r *request, id int64) (*tasks.Task, bool) {
	t, err := b.tasks.Get(ctx, id)
	if err != nil {
		b.fail(ctx, r, "task_get", err)
		return nil, false
	}
	if t == nil || (t.AssigneeID != r.user.ID && !r.user.IsAdmin()) {
		b.deny(ctx, r)
		return nil, false
	}
	return t, true
}

func (b *Bot) taskCard(ctx context.Context, r *request, args action.Args) {
	t, ok := b.ownTask(ctx, r, argID(args, 0))
	if !ok {
		return
	}
	b.showTaskCard(ctx, r, t)
}

func (b *Bot) showTaskCard(ctx context.Context, r *request, t *tasks.Task) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🔧 %s\nСтатус: %s", t.Name, t.Status.Title())
	if t.Deadline != nil {
		fmt.Fprintf(&sb, "\nСрок: %s", t.Deadline.Format("02.01.2006"))
	}

	kb := notify.Keyboard{}
	if t.Status != tasks.StatusInProgress && t.Status != tasks.StatusDone {
		kb = append(kb, notify.Row(notify.Data("▶️ В работу", action.Encode("tasks:set", t.ID, string(tasks.StatusInProgress)))))
	}
	if t.Status != tasks.StatusDone {
		kb = append(kb, notify.Row(notify.Data("✅ Выполнено", action.Encode("tasks:set", t.ID, string(tasks.StatusDone)))))
	}
	kb = append(kb,
		notify.Row(notify.Data("🧱 Заявка на материалы", action.Encode("tasks:mr", t.ID))),
		notify.Row(notify.Data("⬅️ К задачам", action.Encode("worker:tasks:list", t.ProjectID, scopeAll))),
		navRow(false),
	)
	b.show(ctx, r, sb.String(), kb)
}

func (b *Bot) taskSetStatus(ctx context.Context, r *request, args action.Args) {
	t, ok := b.ownTask(ctx, r, argID(args, 0))
	if !ok {
		return
	}
	st := tasks.Status(args.String(1))
	if !st.Valid() {
		b.log.Warn("bad task status", "chat_id", r.chatID, "status", st)
		b.showTaskCard(ctx, r, t)
		return
	}
	if st != t.Status {
		if err := b.tasks.SetStatus(ctx, t.ID, st); err != nil {
			b.fail(ctx, r, "task_status", err)
			return
		}
		b.log.Info("task status changed", "task_id", t.ID, "status", st, "user_id", r.user.ID)
		t.Status = st
	}
	b.showTaskCard(ctx, r, t)
}

// taskMR заявка из задачи. Сегодняшний черновик по задаче продолжается:
// новые строки допишутся в него при подтверждении.
func (b *Bot) taskMR(ctx context.Context, r *request, args action.Args) {
	t, ok := b.ownTask(ctx, r, argID(args, 0))
	if !ok {
		return
	}
	p, ok := b.project(ctx, r, t.ProjectID)
	if !ok {
		return
	}
	existing, err := b.batches.FindDraftForTask(ctx, t.ID, b.today())
	if err != nil {
		b.fail(ctx, r, "draft_lookup", err)
		return
	}
	head := ""
	if existing != nil && existing.Status == batches.StatusDraft {
		head = fmt.Sprintf("Продолжаем заявку %s:\n%s\n\n", existing.Name, renderBatchLines(existing.Lines))
	}
	b.startDraft(ctx, r, *p, t.ID, dialog.StateUstaMRInput, head)
}

func renderBatchLines(lines []batches.Line) string {
	out := make([]draft.Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, draft.Line{Name: l.ProductName, Qty: l.Quantity})
	}
	return draft.Render(out)
}
