// Package workflow — согласование заявок на материалы, поставки и рассылка
// уведомлений участникам проекта.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Spok95/construction-bot/internal/action"
	"github.com/Spok95/construction-bot/internal/domain/batches"
	"github.com/Spok95/construction-bot/internal/domain/deliveries"
	"github.com/Spok95/construction-bot/internal/domain/projects"
	"github.com/Spok95/construction-bot/internal/domain/users"
	"github.com/Spok95/construction-bot/internal/infra/metrics"
	"github.com/Spok95/construction-bot/internal/notify"
	"github.com/Spok95/construction-bot/internal/resolver"
)

var (
	ErrNotFound  = errors.New("запись не найдена")
	ErrForbidden = errors.New("нет прав на это действие")
	ErrApproved  = errors.New("заявка уже одобрена, цены не меняются")
)

type BatchStore interface {
	Get(ctx context.Context, id int64) (*batches.Batch, error)
	UpdateStatus(ctx context.Context, id int64, st batches.Status, approverID int64, decidedAt *time.Time) error
	SetLinePrice(ctx context.Context, lineID int64, price float64) error
	SetLineTarget(ctx context.Context, lineID int64, ref string) error
	ListOpenLines(ctx context.Context, projectID int64) ([]batches.OpenLine, error)
}

type DeliveryStore interface {
	Ensure(ctx context.Context, batchID int64, status deliveries.Status, actorID int64, src deliveries.Source) (*deliveries.Delivery, bool, error)
	SetStatus(ctx context.Context, batchID int64, ch deliveries.Change, p deliveries.Policy) (*deliveries.Delivery, bool, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id int64) (*users.User, error)
	ListByRole(ctx context.Context, roles ...users.Role) ([]users.User, error)
}

type ProjectStore interface {
	Get(ctx context.Context, id int64) (*projects.Project, error)
}

// Pusher выгрузка строк в учёт
type Pusher interface {
	Push(ctx context.Context, line resolver.Line) (resolver.Result, error)
}

type Deps struct {
	Batches     BatchStore
	Deliveries  DeliveryStore
	Users       UserStore
	Projects    ProjectStore
	Sender      notify.Sender
	Pusher      Pusher
	Log         *slog.Logger
	Policy      deliveries.Policy
	AdminChatID int64
	Now         func() time.Time
}

type Service struct {
	batches     BatchStore
	deliveries  DeliveryStore
	users       UserStore
	projects    ProjectStore
	sender      notify.Sender
	pusher      Pusher
	log         *slog.Logger
	policy      deliveries.Policy
	adminChatID int64
	now         func() time.Time
}

func New(d Deps) *Service {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		batches:     d.Batches,
		deliveries:  d.Deliveries,
		users:       d.Users,
		projects:    d.Projects,
		sender:      d.Sender,
		pusher:      d.Pusher,
		log:         d.Log,
		policy:      d.Policy,
		adminChatID: d.AdminChatID,
		now:         now,
	}
}

// Outcome результат перехода. Changed=false — статус уже был таким, уведомлений нет.
type Outcome struct {
	Batch   *batches.Batch
	Project *projects.Project
	Changed bool
	Push    *PushReport
}

// ChatOf чат пользователя для личных сообщений
func ChatOf(u *users.User) int64 {
	if u == nil {
		return 0
	}
	if u.ChatID != 0 {
		return u.ChatID
	}
	return u.TelegramID
}

// CanDecide одобрять может админ или заказчик этого проекта
func CanDecide(u *users.User, p *projects.Project) bool {
	if u == nil || p == nil {
		return false
	}
	return u.IsAdmin() || (p.CustomerID != 0 && p.CustomerID == u.ID)
}

func (s *Service) load(ctx context.Context, batchID int64) (*batches.Batch, *projects.Project, error) {
	b, err := s.batches.Get(ctx, batchID)
	if err != nil {
		return nil, nil, err
	}
	if b == nil {
		return nil, nil, ErrNotFound
	}
	p, err := s.projects.Get(ctx, b.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		return nil, nil, ErrNotFound
	}
	return b, p, nil
}

// Audience пользователи с ролями, у которых есть доступ к проекту
func (s *Service) Audience(ctx context.Context, p *projects.Project, roles ...users.Role) ([]users.User, error) {
	list, err := s.users.ListByRole(ctx, roles...)
	if err != nil {
		return nil, err
	}
	return projects.Audience(*p, list), nil
}

// NotifyNewBatch снабженцам проекта: новая заявка ждёт оценки
func (s *Service) NotifyNewBatch(ctx context.Context, b *batches.Batch, requester *users.User) error {
	p, err := s.projects.Get(ctx, b.ProjectID)
	if err != nil || p == nil {
		return fmt.Errorf("project %d: %w", b.ProjectID, errors.Join(err, ErrNotFound))
	}
	supply, err := s.Audience(ctx, p, users.RoleSupply)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("🆕 Новая заявка %s\nОбъект: %s\nОт: %s\n\n%s",
		b.Name, p.Name, requester.DisplayName(), RenderLines(b.Lines, false))
	kb := notify.Keyboard{notify.Row(notify.Data("💰 Оценить", action.Encode("snab:mr:price_batch", b.ID)))}

	f := notify.NewFanout(s.sender, s.log)
	for i := range supply {
		f.Text(ctx, ChatOf(&supply[i]), text, kb)
	}
	return nil
}

// SetLinePrice цена строки; заявка остаётся в своём статусе.
// Одобренная заявка закрыта для оценки.
func (s *Service) SetLinePrice(ctx context.Context, batchID, lineID int64, price float64) (*batches.Batch, error) {
	b, err := s.batches.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotFound
	}
	if b.Status == batches.StatusApproved {
		return nil, ErrApproved
	}
	if _, ok := b.Line(lineID); !ok {
		return nil, ErrNotFound
	}
	if price <= 0 {
		return nil, fmt.Errorf("цена должна быть больше нуля")
	}
	if err := s.batches.SetLinePrice(ctx, lineID, price); err != nil {
		return nil, err
	}
	for i := range b.Lines {
		if b.Lines[i].ID == lineID {
			b.Lines[i].UnitPrice = price
		}
	}
	return b, nil
}

// SendForApproval переводит заявку в priced и зовёт согласующих.
// Наличие оценённых строк проверяется заново по свежим данным.
func (s *Service) SendForApproval(ctx context.Context, batchID int64, actor *users.User) (*Outcome, error) {
	b, p, err := s.load(ctx, batchID)
	if err != nil {
		return nil, err
	}
	from := b.Status
	changed, err := batches.Transition(ctx, b, batches.EventSubmit)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Batch: b, Project: p, Changed: changed}
	if !changed {
		return out, nil
	}
	if err := s.persist(ctx, b, 0, nil); err != nil {
		return nil, err
	}
	s.notifyApprovers(ctx, b, p, actor, from == batches.StatusRejected)
	return out, nil
}

// Decide одобрение или отклонение оценённой заявки
func (s *Service) Decide(ctx context.Context, batchID int64, actor *users.User, approve bool) (*Outcome, error) {
	b, p, err := s.load(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if !CanDecide(actor, p) {
		return nil, ErrForbidden
	}
	ev := batches.EventReject
	if approve {
		ev = batches.EventApprove
	}
	changed, err := batches.Transition(ctx, b, ev)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Batch: b, Project: p, Changed: changed}
	if !changed {
		return out, nil
	}

	now := s.now()
	if err := s.persist(ctx, b, actor.ID, &now); err != nil {
		return nil, err
	}
	b.ApproverID, b.DecidedAt = actor.ID, &now

	if approve {
		if _, _, err := s.deliveries.Ensure(ctx, b.ID, deliveries.StatusPurchased, actor.ID, deliveries.SourceBot); err != nil {
			s.log.Error("delivery ensure failed", "batch_id", b.ID, "err", err)
		}
		out.Push = s.pushLines(ctx, b)
	}
	s.notifyDecision(ctx, b, p, actor, approve)
	return out, nil
}

// Resubmit после отклонения: с ценами — снова согласующим, без цен — снабженцам
func (s *Service) Resubmit(ctx context.Context, batchID int64, actor *users.User) (*Outcome, error) {
	b, p, err := s.load(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if b.Status != batches.StatusRejected {
		return &Outcome{Batch: b, Project: p}, nil
	}
	ev := batches.ResubmitEvent(b)
	changed, err := batches.Transition(ctx, b, ev)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Batch: b, Project: p, Changed: changed}
	if !changed {
		return out, nil
	}
	if err := s.persist(ctx, b, 0, nil); err != nil {
		return nil, err
	}
	if b.Status == batches.StatusPriced {
		s.notifyApprovers(ctx, b, p, actor, true)
		return out, nil
	}
	requester, err := s.users.GetByID(ctx, b.RequesterID)
	if err != nil {
		s.log.Error("requester lookup failed", "batch_id", b.ID, "err", err)
	}
	if err := s.NotifyNewBatch(ctx, b, requester); err != nil {
		s.log.Error("notify supply failed", "batch_id", b.ID, "err", err)
	}
	return out, nil
}

func (s *Service) persist(ctx context.Context, b *batches.Batch, approverID int64, at *time.Time) error {
	if err := s.batches.UpdateStatus(ctx, b.ID, b.Status, approverID, at); err != nil {
		return err
	}
	metrics.BatchTransitions.WithLabelValues(string(b.Status)).Inc()
	s.log.Info("batch status changed", "batch_id", b.ID, "status", b.Status)
	return nil
}

func (s *Service) notifyApprovers(ctx context.Context, b *batches.Batch, p *projects.Project, actor *users.User, resubmitted bool) {
	head := "📨 Заявка на согласование"
	if resubmitted {
		head = "🔁 Заявка повторно отправлена на согласование"
	}
	text := fmt.Sprintf("%s\n%s\nОбъект: %s\nОценил: %s\n\n%s",
		head, b.Name, p.Name, actor.DisplayName(), RenderLines(b.Lines, true))
	kb := notify.Keyboard{notify.Row(
		notify.Data("✅ Одобрить", action.Encode("mr:approve", b.ID)),
		notify.Data("❌ Отклонить", action.Encode("mr:reject", b.ID)),
	)}

	f := notify.NewFanout(s.sender, s.log)
	admins, err := s.Audience(ctx, p, users.RoleAdmin)
	if err != nil {
		s.log.Error("approvers lookup failed", "batch_id", b.ID, "err", err)
	}
	for i := range admins {
		f.Text(ctx, ChatOf(&admins[i]), text, kb)
	}
	if p.CustomerID != 0 {
		customer, err := s.users.GetByID(ctx, p.CustomerID)
		if err != nil {
			s.log.Error("customer lookup failed", "project_id", p.ID, "err", err)
		}
		f.Text(ctx, ChatOf(customer), text, kb)
	}
	if f.Recipients() == 0 && s.adminChatID != 0 {
		f.Text(ctx, s.adminChatID, text, kb)
	}
}

func (s *Service) notifyDecision(ctx context.Context, b *batches.Batch, p *projects.Project, actor *users.User, approved bool) {
	verdict := "❌ отклонена"
	if approved {
		verdict = "✅ одобрена"
	}
	text := fmt.Sprintf("Заявка %s %s\nОбъект: %s\nРешение: %s\nСумма: %s",
		b.Name, verdict, p.Name, actor.DisplayName(), money(b.Total()))

	f := notify.NewFanout(s.sender, s.log)
	if requester, err := s.users.GetByID(ctx, b.RequesterID); err != nil {
		s.log.Error("requester lookup failed", "batch_id", b.ID, "err", err)
	} else if ChatOf(requester) != ChatOf(actor) {
		var kb notify.Keyboard
		if !approved {
			kb = notify.Keyboard{notify.Row(notify.Data("🔁 Отправить повторно", action.Encode("mr:resubmit", b.ID)))}
		}
		f.Text(ctx, ChatOf(requester), text, kb)
	}
	supply, err := s.Audience(ctx, p, users.RoleSupply)
	if err != nil {
		s.log.Error("supply lookup failed", "batch_id", b.ID, "err", err)
	}
	for i := range supply {
		if supply[i].ID == actor.ID {
			continue
		}
		f.Text(ctx, ChatOf(&supply[i]), text, nil)
	}
}

// SetDelivery смена статуса поставки. Прораб проекта получает уведомление
// только при реальном изменении.
func (s *Service) SetDelivery(ctx context.Context, batchID int64, ch deliveries.Change) (*deliveries.Delivery, bool, error) {
	b, p, err := s.load(ctx, batchID)
	if err != nil {
		return nil, false, err
	}
	if b.Status != batches.StatusApproved {
		return nil, false, fmt.Errorf("%w: поставка только для одобренных заявок", batches.ErrTransition)
	}
	d, changed, err := s.deliveries.SetStatus(ctx, batchID, ch, s.policy)
	if err != nil || !changed {
		return d, false, err
	}
	if p.ForemanID != 0 {
		foreman, err := s.users.GetByID(ctx, p.ForemanID)
		if err != nil {
			s.log.Error("foreman lookup failed", "project_id", p.ID, "err", err)
		}
		if chat := ChatOf(foreman); chat != 0 {
			text := fmt.Sprintf("🚚 Поставка по заявке %s: %s\nОбъект: %s", b.Name, ch.Status.Title(), p.Name)
			if ch.Note != "" {
				text += "\n" + ch.Note
			}
			if _, err := s.sender.SendText(ctx, chat, text, nil); err != nil {
				notify.Report(s.log, "delivery_notify", err, "chat_id", chat)
			}
		}
	}
	return d, true, nil
}
