package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/construction-bot/internal/domain/batches"
	"github.com/Spok95/construction-bot/internal/domain/deliveries"
	"github.com/Spok95/construction-bot/internal/domain/projects"
	"github.com/Spok95/construction-bot/internal/domain/users"
	"github.com/Spok95/construction-bot/internal/infra/logger"
	"github.com/Spok95/construction-bot/internal/resolver"
	"github.com/Spok95/construction-bot/internal/testutil"
)

const adminChat = 999

type env struct {
	svc        *Service
	sender     *testutil.Sender
	users      *testutil.Users
	batches    *testutil.Batches
	deliveries *testutil.Deliveries
	pusher     *testutil.Pusher

	worker, foreman, supply, customer, admin *users.User
	project                                  projects.Project
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		sender:     testutil.NewSender(),
		users:      testutil.NewUsers(),
		batches:    testutil.NewBatches(),
		deliveries: testutil.NewDeliveries(),
		pusher:     &testutil.Pusher{},
	}
	e.worker = e.users.Add(101, "Мастер Али", users.RoleWorker)
	e.foreman = e.users.Add(102, "Прораб Бек", users.RoleForeman)
	e.supply = e.users.Add(103, "Снабженец Вали", users.RoleSupply)
	e.customer = e.users.Add(104, "Заказчик Гани", users.RoleClient)
	e.admin = e.users.Add(105, "Админ", users.RoleAdmin)
	e.project = projects.Project{
		ID: 1, Name: "Дом на Садовой",
		ForemanID: e.foreman.ID, SupplyID: e.supply.ID, CustomerID: e.customer.ID,
		WorkerIDs: []int64{e.worker.ID},
	}
	e.svc = New(Deps{
		Batches:     e.batches,
		Deliveries:  e.deliveries,
		Users:       e.users,
		Projects:    testutil.NewProjects(e.project),
		Sender:      e.sender,
		Pusher:      e.pusher,
		Log:         logger.Discard(),
		AdminChatID: adminChat,
		Now:         func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) },
	})
	return e
}

func (e *env) newBatch(t *testing.T, prices ...float64) *batches.Batch {
	t.Helper()
	b := &batches.Batch{
		ProjectID:   e.project.ID,
		RequesterID: e.worker.ID,
		StageID:     7,
		Date:        time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Status:      batches.StatusDraft,
		Lines: []batches.Line{
			{ProductName: "Гипсокартон (лист)", Quantity: 10},
			{ProductName: "Ротбанд (мешок)", Quantity: 3},
		},
	}
	_, err := e.batches.Create(context.Background(), b)
	require.NoError(t, err)
	for i, p := range prices {
		require.NoError(t, e.batches.SetLinePrice(context.Background(), b.Lines[i].ID, p))
	}
	got, err := e.batches.Get(context.Background(), b.ID)
	require.NoError(t, err)
	return got
}

func TestSendForApprovalRequiresPricedLine(t *testing.T) {
	e := newEnv(t)
	b := e.newBatch(t)

	_, err := e.svc.SendForApproval(context.Background(), b.ID, e.supply)
	assert.ErrorIs(t, err, batches.ErrNoPricedLines)
	assert.Empty(t, e.sender.Sent())

	got, _ := e.batches.Get(context.Background(), b.ID)
	assert.Equal(t, batches.StatusDraft, got.Status)
}

func TestSendForApprovalNotifiesAdminsAndCustomerOnce(t *testing.T) {
	e := newEnv(t)
	b := e.newBatch(t, 50000)
	ctx := context.Background()

	out, err := e.svc.SendForApproval(ctx, b.ID, e.supply)
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, batches.StatusPriced, out.Batch.Status)
	assert.ElementsMatch(t, []int64{e.admin.ChatID, e.customer.ChatID}, e.sender.Recipients())

	last, ok := e.sender.Last(e.customer.ChatID)
	require.True(t, ok)
	assert.Equal(t, []string{"mr:approve:1", "mr:reject:1"}, last.Buttons())

	// повторная отправка ничего не меняет и никого не тревожит
	e.sender.Reset()
	out, err = e.svc.SendForApproval(ctx, b.ID, e.supply)
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Empty(t, e.sender.Sent())
}

func TestSendForApprovalFallsBackToAdminChat(t *testing.T) {
	e := newEnv(t)
	e.project.CustomerID = 0
	e.svc.projects = testutil.NewProjects(e.project)
	e.svc.users = testutil.NewUsers()

	b := e.newBatch(t, 100)
	_, err := e.svc.SendForApproval(context.Background(), b.ID, e.supply)
	require.NoError(t, err)
	assert.Equal(t, []int64{adminChat}, e.sender.Recipients())
}

func TestDecidePermissions(t *testing.T) {
	e := newEnv(t)
	b := e.newBatch(t, 100)
	ctx := context.Background()
	_, err := e.svc.SendForApproval(ctx, b.ID, e.supply)
	require.NoError(t, err)

	for _, u := range []*users.User{e.worker, e.foreman, e.supply, nil} {
		_, err := e.svc.Decide(ctx, b.ID, u, true)
		assert.ErrorIs(t, err, ErrForbidden)
	}

	outsider := e.users.Add(200, "Чужой заказчик", users.RoleClient)
	_, err = e.svc.Decide(ctx, b.ID, outsider, true)
	assert.ErrorIs(t, err, ErrForbidden)

	out, err := e.svc.Decide(ctx, b.ID, e.customer, true)
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, batches.StatusApproved, out.Batch.Status)
}

func TestDecideApproveCreatesDeliveryAndPushes(t *testing.T) {
	e := newEnv(t)
	b := e.newBatch(t, 500, 250)
	ctx := context.Background()
	_, err := e.svc.SendForApproval(ctx, b.ID, e.supply)
	require.NoError(t, err)
	e.sender.Reset()

	out, err := e.svc.Decide(ctx, b.ID, e.admin, true)
	require.NoError(t, err)
	require.NotNil(t, out.Push)
	assert.Equal(t, 2, out.Push.Created)

	got, _ := e.batches.Get(ctx, b.ID)
	assert.Equal(t, e.admin.ID, got.ApproverID)
	require.NotNil(t, got.DecidedAt)
	assert.Equal(t, "x_stage_line,1", got.Lines[0].TargetRef)

	d, err := e.deliveries.GetByBatch(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, deliveries.StatusPurchased, d.Status)
	logs, _ := e.deliveries.Logs(ctx, d.ID)
	assert.Len(t, logs, 1)

	assert.ElementsMatch(t, []int64{e.worker.ChatID, e.supply.ChatID}, e.sender.Recipients())

	// повторное одобрение: без изменений, без уведомлений и без второй выгрузки
	e.sender.Reset()
	out, err = e.svc.Decide(ctx, b.ID, e.admin, true)
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Empty(t, e.sender.Sent())
	assert.Len(t, e.pusher.Pushed(), 2)
}

func TestDecideApprovePersistsWhenNotifyFails(t *testing.T) {
	e := newEnv(t)
	b := e.newBatch(t, 500)
	ctx := context.Background()
	_, err := e.svc.SendForApproval(ctx, b.ID, e.supply)
	require.NoError(t, err)
	e.sender.Reset()
	e.sender.FailFor(e.worker.ChatID, errors.New("bot was blocked by the user"))

	out, err := e.svc.Decide(ctx, b.ID, e.customer, true)
	require.NoError(t, err)
	assert.True(t, out.Changed)

	got, _ := e.batches.Get(ctx, b.ID)
	assert.Equal(t, batches.StatusApproved, got.Status)
	assert.Equal(t, e.customer.ID, got.ApproverID)

	d, err := e.deliveries.GetByBatch(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, deliveries.StatusPurchased, d.Status)

	assert.Equal(t, []int64{e.supply.ChatID}, e.sender.Recipients())
}

func TestDecideRejectOffersResubmit(t *testing.T) {
	e := newEnv(t)
	b := e.newBatch(t, 100)
	ctx := context.Background()
	_, err := e.svc.SendForApproval(ctx, b.ID, e.supply)
	require.NoError(t, err)
	e.sender.Reset()

	out, err := e.svc.Decide(ctx, b.ID, e.customer, false)
	require.NoError(t, err)
	assert.Equal(t, batches.StatusRejected, out.Batch.Status)
	assert.Nil(t, out.Push)
	assert.Empty(t, e.pusher.Pushed())

	msg, ok := e.sender.Last(e.worker.ChatID)
	require.True(t, ok)
	assert.Equal(t, "mr:resubmit:1", msg.Keyboard[0][0].Data)

	d, _ := e.deliveries.GetByBatch(ctx, b.ID)
	assert.Nil(t, d)

	// решение по отклонённой заявке не принимается
	_, err = e.svc.Decide(ctx, b.ID, e.customer, true)
	assert.ErrorIs(t, err, batches.ErrTransition)
}

func TestResubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("with prices goes back to approvers", func(t *testing.T) {
		e := newEnv(t)
		b := e.newBatch(t, 100)
		_, err := e.svc.SendForApproval(ctx, b.ID, e.supply)
		require.NoError(t, err)
		_, err = e.svc.Decide(ctx, b.ID, e.admin, false)
		require.NoError(t, err)
		e.sender.Reset()

		out, err := e.svc.Resubmit(ctx, b.ID, e.worker)
		require.NoError(t, err)
		assert.True(t, out.Changed)
		assert.Equal(t, batches.StatusPriced, out.Batch.Status)
		assert.True(t, e.sender.Contains(e.customer.ChatID, "повторно"))
	})

	t.Run("without prices goes back to supply", func(t *testing.T) {
		e := newEnv(t)
		b := e.newBatch(t, 100)
		_, err := e.svc.SendForApproval(ctx, b.ID, e.supply)
		require.NoError(t, err)
		_, err = e.svc.Decide(ctx, b.ID, e.admin, false)
		require.NoError(t, err)
		require.NoError(t, e.batches.SetLinePrice(ctx, b.Lines[0].ID, 0))
		e.sender.Reset()

		out, err := e.svc.Resubmit(ctx, b.ID, e.worker)
		require.NoError(t, err)
		assert.Equal(t, batches.StatusDraft, out.Batch.Status)
		assert.Equal(t, []int64{e.supply.ChatID}, e.sender.Recipients())
		msg, _ := e.sender.Last(e.supply.ChatID)
		assert.Equal(t, "snab:mr:price_batch:1", msg.Keyboard[0][0].Data)
	})

	t.Run("not rejected is a no-op", func(t *testing.T) {
		e := newEnv(t)
		b := e.newBatch(t)
		out, err := e.svc.Resubmit(ctx, b.ID, e.worker)
		require.NoError(t, err)
		assert.False(t, out.Changed)
		assert.Empty(t, e.sender.Sent())
	})
}

func TestSetDelivery(t *testing.T) {
	e := newEnv(t)
	b := e.newBatch(t, 100)
	ctx := context.Background()

	_, _, err := e.svc.SetDelivery(ctx, b.ID, deliveries.Change{Status: deliveries.StatusInTransit, ActorID: e.supply.ID, Source: deliveries.SourceBot})
	assert.ErrorIs(t, err, batches.ErrTransition)

	_, err = e.svc.SendForApproval(ctx, b.ID, e.supply)
	require.NoError(t, err)
	_, err = e.svc.Decide(ctx, b.ID, e.admin, true)
	require.NoError(t, err)
	e.sender.Reset()

	ch := deliveries.Change{Status: deliveries.StatusInTransit, ActorID: e.supply.ID, Source: deliveries.SourceBot}
	d, changed, err := e.svc.SetDelivery(ctx, b.ID, ch)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, deliveries.StatusInTransit, d.Status)
	assert.Equal(t, []int64{e.foreman.ChatID}, e.sender.Recipients())
	assert.True(t, e.sender.Contains(e.foreman.ChatID, "В пути"))

	e.sender.Reset()
	_, changed, err = e.svc.SetDelivery(ctx, b.ID, ch)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, e.sender.Sent())

	logs, _ := e.deliveries.Logs(ctx, d.ID)
	assert.Len(t, logs, 2)

	_, _, err = e.svc.SetDelivery(ctx, b.ID, deliveries.Change{Status: "lost", Source: deliveries.SourceBackend})
	assert.ErrorIs(t, err, deliveries.ErrUnknownStatus)
}

func TestSetDeliveryForwardOnly(t *testing.T) {
	e := newEnv(t)
	e.svc.policy = deliveries.Policy{ForwardOnly: true}
	b := e.newBatch(t, 100)
	ctx := context.Background()
	_, err := e.svc.SendForApproval(ctx, b.ID, e.supply)
	require.NoError(t, err)
	_, err = e.svc.Decide(ctx, b.ID, e.admin, true)
	require.NoError(t, err)

	_, _, err = e.svc.SetDelivery(ctx, b.ID, deliveries.Change{Status: deliveries.StatusDelivered, Source: deliveries.SourceBackend})
	require.NoError(t, err)
	_, _, err = e.svc.SetDelivery(ctx, b.ID, deliveries.Change{Status: deliveries.StatusPurchased, Source: deliveries.SourceBackend})
	assert.ErrorIs(t, err, deliveries.ErrBackwardTransition)
}

func TestPushLinesErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("configuration error goes to admin chat", func(t *testing.T) {
		e := newEnv(t)
		e.pusher.Fn = func(resolver.Line) (resolver.Result, error) {
			return resolver.Result{}, resolver.ErrNoEligibleShape
		}
		b := e.newBatch(t, 100, 200)
		_, err := e.svc.SendForApproval(ctx, b.ID, e.supply)
		require.NoError(t, err)

		out, err := e.svc.Decide(ctx, b.ID, e.admin, true)
		require.NoError(t, err)
		assert.Equal(t, batches.StatusApproved, out.Batch.Status)
		assert.ErrorIs(t, out.Push.ConfigError, resolver.ErrNoEligibleShape)
		assert.Equal(t, 2, out.Push.Failed)
		assert.True(t, e.sender.Contains(adminChat, "Ошибка настройки"))
	})

	t.Run("missing task is a user error", func(t *testing.T) {
		e := newEnv(t)
		e.pusher.Fn = func(l resolver.Line) (resolver.Result, error) {
			return resolver.Result{}, &resolver.MissingTaskError{Task: "Материалы для работы", StageID: l.StageID}
		}
		b := e.newBatch(t, 100)
		_, err := e.svc.SendForApproval(ctx, b.ID, e.supply)
		require.NoError(t, err)

		out, err := e.svc.Decide(ctx, b.ID, e.admin, true)
		require.NoError(t, err)
		assert.Contains(t, out.Push.UserError, "Материалы для работы")
		assert.Contains(t, out.Push.Summary(), "⚠️")
		assert.False(t, e.sender.Contains(adminChat, "Ошибка настройки"))
	})

	t.Run("other errors skip the line", func(t *testing.T) {
		e := newEnv(t)
		calls := 0
		e.pusher.Fn = func(resolver.Line) (resolver.Result, error) {
			calls++
			if calls == 1 {
				return resolver.Result{}, errors.New("timeout")
			}
			return resolver.Result{Ref: resolver.Ref{Model: "x_line", ID: 5}, Created: true}, nil
		}
		b := e.newBatch(t, 100, 200)
		_, err := e.svc.SendForApproval(ctx, b.ID, e.supply)
		require.NoError(t, err)
		out, err := e.svc.Decide(ctx, b.ID, e.admin, true)
		require.NoError(t, err)
		assert.Equal(t, 1, out.Push.Failed)
		assert.Equal(t, 1, out.Push.Created)
	})

	t.Run("no stage skips push", func(t *testing.T) {
		e := newEnv(t)
		b := e.newBatch(t, 100)
		b.StageID = 0
		assert.Nil(t, e.svc.pushLines(ctx, b))
		assert.Empty(t, e.pusher.Pushed())
	})
}

func TestSetLinePrice(t *testing.T) {
	e := newEnv(t)
	b := e.newBatch(t)
	ctx := context.Background()

	got, err := e.svc.SetLinePrice(ctx, b.ID, b.Lines[1].ID, 3200)
	require.NoError(t, err)
	assert.Equal(t, 3200.0, got.Lines[1].UnitPrice)
	assert.Equal(t, batches.StatusDraft, got.Status)

	_, err = e.svc.SetLinePrice(ctx, b.ID, 9999, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.svc.SetLinePrice(ctx, b.ID, b.Lines[0].ID, 0)
	assert.Error(t, err)

	// после одобрения цены закрыты
	_, err = e.svc.SendForApproval(ctx, b.ID, e.supply)
	require.NoError(t, err)
	_, err = e.svc.Decide(ctx, b.ID, e.customer, true)
	require.NoError(t, err)
	_, err = e.svc.SetLinePrice(ctx, b.ID, b.Lines[0].ID, 999)
	assert.ErrorIs(t, err, ErrApproved)
	got, _ = e.batches.Get(ctx, b.ID)
	assert.Zero(t, got.Lines[0].UnitPrice)
}

func TestNotifyNewBatchOnlyProjectSupply(t *testing.T) {
	e := newEnv(t)
	e.users.Add(300, "Снабженец другого объекта", users.RoleSupply, 42)
	b := e.newBatch(t)

	require.NoError(t, e.svc.NotifyNewBatch(context.Background(), b, e.worker))
	assert.Equal(t, []int64{e.supply.ChatID}, e.sender.Recipients())
	assert.True(t, e.sender.Contains(e.supply.ChatID, "Гипсокартон"))
}
