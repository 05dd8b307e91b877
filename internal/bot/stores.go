package bot

import (
	"context"
	"time"

	"github.com/Spok95/construction-bot/internal/dialog"
	"github.com/Spok95/construction-bot/internal/domain/batches"
	"github.com/Spok95/construction-bot/internal/domain/dailyreports"
	"github.com/Spok95/construction-bot/internal/domain/deliveries"
	"github.com/Spok95/construction-bot/internal/domain/files"
	"github.com/Spok95/construction-bot/internal/domain/finance"
	"github.com/Spok95/construction-bot/internal/domain/issues"
	"github.com/Spok95/construction-bot/internal/domain/projects"
	"github.com/Spok95/construction-bot/internal/domain/tasks"
	"github.com/Spok95/construction-bot/internal/domain/users"
	"github.com/Spok95/construction-bot/internal/infra/gemini"
	"github.com/Spok95/construction-bot/internal/resolver"
)

type StateStore interface {
	dialog.Watermarks
	Get(ctx context.Context, chatID int64) (*dialog.Item, error)
	Set(ctx context.Context, chatID int64, state dialog.State, payload dialog.Payload) error
	Reset(ctx context.Context, chatID int64) error
}

type UserStore interface {
	GetByTelegramID(ctx context.Context, tgID int64) (*users.User, error)
	GetByID(ctx context.Context, id int64) (*users.User, error)
	Register(ctx context.Context, tg users.Telegram, role users.Role, status users.Status) (*users.User, error)
	SetFullName(ctx context.Context, id int64, name string) error
	Activate(ctx context.Context, id int64, role users.Role) error
	ListByRole(ctx context.Context, roles ...users.Role) ([]users.User, error)
}

type ProjectStore interface {
	Get(ctx context.Context, id int64) (*projects.Project, error)
	List(ctx context.Context) ([]projects.Project, error)
}

type TaskStore interface {
	Get(ctx context.Context, id int64) (*tasks.Task, error)
	ListForAssignee(ctx context.Context, userID, projectID int64, day *time.Time) ([]tasks.Task, error)
	SetStatus(ctx context.Context, id int64, st tasks.Status) error
}

type BatchStore interface {
	Create(ctx context.Context, b *batches.Batch) (int64, error)
	AppendLines(ctx context.Context, batchID int64, lines []batches.Line) error
	Get(ctx context.Context, id int64) (*batches.Batch, error)
	FindDraftForTask(ctx context.Context, taskID int64, day time.Time) (*batches.Batch, error)
	ListByProject(ctx context.Context, projectID int64, statuses []batches.Status, limit int) ([]batches.Batch, error)
}

type DeliveryStore interface {
	GetByBatch(ctx context.Context, batchID int64) (*deliveries.Delivery, error)
	Ensure(ctx context.Context, batchID int64, status deliveries.Status, actorID int64, src deliveries.Source) (*deliveries.Delivery, bool, error)
	Logs(ctx context.Context, deliveryID int64) ([]deliveries.LogEntry, error)
}

type IssueStore interface {
	Create(ctx context.Context, is *issues.Issue) (int64, error)
	Get(ctx context.Context, id int64) (*issues.Issue, error)
	SetStatus(ctx context.Context, id int64, st issues.Status) error
	SetNotification(ctx context.Context, id, chatID int64, messageID int) error
}

type ReportStore interface {
	Append(ctx context.Context, projectID, foremanID int64, day time.Time, text string, media []string) (*dailyreports.Report, error)
}

type FileStore interface {
	Rooms(ctx context.Context, projectID int64) ([]string, error)
	Categories(ctx context.Context, projectID int64, room string) ([]files.Category, error)
	Latest(ctx context.Context, projectID int64, room string, categoryID int64) ([]files.File, error)
	Get(ctx context.Context, id int64) (*files.File, error)
}

// Extractor распознавание позиций и цен из текста, фото или голоса
type Extractor interface {
	ExtractItems(ctx context.Context, text string, media *gemini.Media) (gemini.Extraction, error)
	ExtractPrices(ctx context.Context, text string, media *gemini.Media) ([]gemini.Price, error)
}

type FinanceSource interface {
	Records(ctx context.Context, p projects.Project, period finance.Period) ([]finance.Record, error)
}

// Pusher выгрузка строк прихода в этап
type Pusher interface {
	Push(ctx context.Context, line resolver.Line) (resolver.Result, error)
}

// SessionIssuer токены веб-дашборда
type SessionIssuer interface {
	Issue(userID int64) (string, error)
}
