package bot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Spok95/construction-bot/internal/action"
	"github.com/Spok95/construction-bot/internal/domain/batches"
	"github.com/Spok95/construction-bot/internal/domain/finance"
	"github.com/Spok95/construction-bot/internal/domain/projects"
	"github.com/Spok95/construction-bot/internal/export"
	"github.com/Spok95/construction-bot/internal/notify"
)

const dashboardPath = "/webapp/api/report"

var cashPeriods = []string{finance.PeriodToday, finance.PeriodWeek, finance.PeriodMonth, finance.PeriodAll}

/*** СТАТУС ОБЪЕКТА ***/

func (b *Bot) clientStatus(ctx context.Context, r *request, _ action.Args) {
	b.pickProject(ctx, r, "Выберите объект:", projectToken("client:status"), func(p projects.Project) {
		b.showStatus(ctx, r, p)
	})
}

func (b *Bot) clientStatusProject(ctx context.Context, r *request, args action.Args) {
	if p, ok := b.project(ctx, r, argID(args, 0)); ok {
		b.showStatus(ctx, r, *p)
	}
}

func (b *Bot) showStatus(ctx context.Context, r *request, p projects.Project) {
	list, err := b.batches.ListByProject(ctx, p.ID, nil, 0)
	if err != nil {
		b.fail(ctx, r, "batches_list", err)
		return
	}
	counts := map[batches.Status]int{}
	for _, bt := range list {
		counts[bt.Status]++
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 %s", p.Name)
	if p.Address != "" {
		fmt.Fprintf(&sb, "\n%s", p.Address)
	}
	sb.WriteString("\n\nЗаявки на материалы:")
	for _, st := range approvalStatuses {
		fmt.Fprintf(&sb, "\n• %s: %d", st.Title(), counts[st])
	}

	if b.finance != nil {
		recs, err := b.finance.Records(ctx, p, finance.Period{Key: finance.PeriodAll})
		switch {
		case errors.Is(err, finance.ErrNotLinked):
			sb.WriteString("\n\nФинансы: объект не связан с учётом.")
		case err != nil:
			b.log.Error("finance records failed", "project_id", p.ID, "err", err)
			sb.WriteString("\n\nФинансы временно недоступны.")
		default:
			rep := export.Build(p.Name, p.Address, finance.Period{Key: finance.PeriodAll}, recs)
			fmt.Fprintf(&sb, "\n\nПоступления: %s\nРасходы: %s\nБаланс: %s",
				export.FormatMoney(rep.Income), export.FormatMoney(rep.Expense), export.FormatMoney(rep.Balance))
		}
	}
	b.show(ctx, r, sb.String(), navKeyboard(true))
}

/*** ДВИЖЕНИЕ ДЕНЕГ ***/

func (b *Bot) clientCash(ctx context.Context, r *request, _ action.Args) {
	if b.finance == nil {
		b.show(ctx, r, "Финансовый учёт не подключён.", navKeyboard(false))
		return
	}
	b.pickProject(ctx, r, "Выберите объект:", projectToken("client:cash"), func(p projects.Project) {
		b.showCashPeriods(ctx, r, p)
	})
}

func (b *Bot) clientCashProject(ctx context.Context, r *request, args action.Args) {
	if p, ok := b.project(ctx, r, argID(args, 0)); ok {
		b.showCashPeriods(ctx, r, *p)
	}
}

func (b *Bot) showCashPeriods(ctx context.Context, r *request, p projects.Project) {
	kb := notify.Keyboard{}
	for _, key := range cashPeriods {
		title := finance.Period{Key: key}.Title()
		kb = append(kb, notify.Row(
			notify.Data(title+" · PDF", action.Encode("client:cash:get", p.ID, key, "pdf")),
			notify.Data(title+" · Excel", action.Encode("client:cash:get", p.ID, key, "xlsx")),
		))
	}
	kb = append(kb, navRow(true))
	b.show(ctx, r, fmt.Sprintf("💵 Движение денег · %s\nВыберите период и формат:", p.Name), kb)
}

// clientCashGet client:cash:get:<pid>:<period>:<pdf|xlsx>
func (b *Bot) clientCashGet(ctx context.Context, r *request, args action.Args) {
	if b.finance == nil {
		b.show(ctx, r, "Финансовый учёт не подключён.", navKeyboard(false))
		return
	}
	p, ok := b.project(ctx, r, argID(args, 0))
	if !ok {
		return
	}
	period, err := finance.PeriodFor(args.String(1), b.now().In(b.loc))
	format := args.String(2)
	if err != nil || (format != "pdf" && format != "xlsx") {
		b.showCashPeriods(ctx, r, *p)
		return
	}
	recs, err := b.finance.Records(ctx, *p, period)
	if errors.Is(err, finance.ErrNotLinked) {
		b.show(ctx, r, "Объект не связан с финансовым учётом. Обратитесь к администратору.", navKeyboard(true))
		return
	}
	if err != nil {
		b.fail(ctx, r, "finance_records", err)
		return
	}
	rep := export.Build(p.Name, p.Address, period, recs)

	var data []byte
	if format == "pdf" {
		data, err = export.ReportPDF(rep, b.font)
	} else {
		data, err = export.ReportExcel(rep)
	}
	if err != nil {
		b.fail(ctx, r, "export_report", err)
		return
	}
	name := fmt.Sprintf("cashflow_%d_%s_%s.%s", p.ID, period.Key, b.today().Format("20060102"), format)
	caption := fmt.Sprintf("%s · %s\nБаланс: %s", p.Name, period.Title(), export.FormatMoney(rep.Balance))
	b.document(ctx, r.chatID, name, data, caption)
}

/*** ДАШБОРД ***/

func (b *Bot) clientDash(ctx context.Context, r *request, _ action.Args) {
	if b.sessions == nil || b.publicURL == "" {
		b.show(ctx, r, "Дашборд не настроен.", navKeyboard(false))
		return
	}
	b.pickProject(ctx, r, "Выберите объект:", projectToken("client:dash"), func(p projects.Project) {
		b.showDashLink(ctx, r, p)
	})
}

func (b *Bot) clientDashProject(ctx context.Context, r *request, args action.Args) {
	if p, ok := b.project(ctx, r, argID(args, 0)); ok {
		b.showDashLink(ctx, r, *p)
	}
}

func (b *Bot) showDashLink(ctx context.Context, r *request, p projects.Project) {
	if b.sessions == nil || b.publicURL == "" {
		b.show(ctx, r, "Дашборд не настроен.", navKeyboard(false))
		return
	}
	token, err := b.sessions.Issue(r.user.ID)
	if err != nil {
		b.fail(ctx, r, "session_issue", err)
		return
	}
	b.show(ctx, r, fmt.Sprintf("🌐 Дашборд · %s\nСсылка действует ограниченное время, при истечении получите новую.", p.Name), notify.Keyboard{
		notify.Row(notify.Button{Text: "Открыть дашборд", URL: dashboardURL(b.publicURL, token, p.ID)}),
		navRow(true),
	})
}

func dashboardURL(base, token string, projectID int64) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("project", strconv.FormatInt(projectID, 10))
	q.Set("period", finance.PeriodMonth)
	return base + dashboardPath + "?" + q.Encode()
}
