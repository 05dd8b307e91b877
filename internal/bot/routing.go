package bot

import (
	"context"

	"github.com/Spok95/construction-bot/internal/action"
	"github.com/Spok95/construction-bot/internal/dialog"
	"github.com/Spok95/construction-bot/internal/domain/users"
)

type (
	callbackHandler func(ctx context.Context, r *request, args action.Args)
	textHandler     func(ctx context.Context, r *request, text string)
	mediaHandler    func(ctx context.Context, r *request)
)

var (
	staff     = []users.Role{users.RoleWorker, users.RoleForeman}
	buyers    = []users.Role{users.RoleSupply}
	deciders  = []users.Role{users.RoleClient}
	logistics = []users.Role{users.RoleSupply, users.RoleForeman}
	reporters = []users.Role{users.RoleWorker, users.RoleForeman, users.RoleDesigner}
	browsers  = []users.Role{users.RoleWorker, users.RoleForeman, users.RoleClient, users.RoleDesigner, users.RoleSupply}
)

// callbackRoutes порядок важен: навигация, регистрация, затем разделы.
// Более длинные префиксы раздела идут раньше коротких.
func (b *Bot) callbackRoutes() *action.Router[callbackHandler] {
	return action.NewRouter[callbackHandler]().
		Exact("nav:home", b.navHome).
		Exact("nav:back", b.navBack).
		Exact("menu", b.navBack).
		Prefix("reg:role", b.regRole).

		// мастер: задачи
		Exact("worker:tasks", b.only(b.workerTasks, users.RoleWorker)).
		Prefix("worker:tasks:project", b.only(b.workerTasksProject, users.RoleWorker)).
		Prefix("worker:tasks:list", b.only(b.workerTasksList, users.RoleWorker)).
		Prefix("tasks:card", b.only(b.taskCard, users.RoleWorker)).
		Prefix("tasks:set", b.only(b.taskSetStatus, users.RoleWorker)).
		Prefix("tasks:mr", b.only(b.taskMR, users.RoleWorker)).

		// заявка на материалы
		Exact("usta:mr:new", b.only(b.mrNew, staff...)).
		Prefix("usta:mr:project", b.only(b.mrProject, staff...)).
		Exact("usta:ai:new", b.only(b.aiNew, staff...)).
		Prefix("usta:ai:project", b.only(b.aiProject, staff...)).
		Prefix("usta:mr:confirm", b.only(b.mrConfirm, staff...)).
		Exact("usta:mr:clear", b.only(b.mrClear, staff...)).
		Exact("usta:mr:back", b.only(b.mrBack, staff...)).

		// снабжение
		Exact("snab:list:pending", b.only(b.snabPending, buyers...)).
		Prefix("snab:pending:project", b.only(b.snabPendingProject, buyers...)).
		Exact("snab:list:approved", b.only(b.snabApproved, buyers...)).
		Prefix("snab:approved:project", b.only(b.snabApprovedProject, buyers...)).
		Prefix("snab:mr:price_batch", b.only(b.snabPriceBatch, buyers...)).
		Prefix("snab:mr:line", b.only(b.snabPriceLine, buyers...)).
		Prefix("snab:mr:send", b.only(b.snabSend, buyers...)).
		Exact("snab:voice", b.only(b.snabVoice, buyers...)).
		Prefix("snab:voice:project", b.only(b.snabVoiceProject, buyers...)).
		Prefix("snab:export", b.only(b.snabExport, buyers...)).

		// согласование: права на проект проверяет workflow
		Prefix("mr:approve", b.only(b.mrApprove, deciders...)).
		Prefix("mr:reject", b.only(b.mrReject, deciders...)).
		Prefix("mr:resubmit", b.mrResubmit).

		// заказчик
		Exact("client:status", b.only(b.clientStatus, deciders...)).
		Prefix("client:status:project", b.only(b.clientStatusProject, deciders...)).
		Exact("client:approvals", b.only(b.clientApprovals, deciders...)).
		Prefix("client:approvals:project", b.only(b.clientApprovalsProject, deciders...)).
		Prefix("client:approvals:list", b.only(b.clientApprovalsList, deciders...)).
		Exact("client:cash", b.only(b.clientCash, deciders...)).
		Prefix("client:cash:project", b.only(b.clientCashProject, deciders...)).
		Prefix("client:cash:get", b.only(b.clientCashGet, deciders...)).
		Exact("client:dash", b.only(b.clientDash, deciders...)).
		Prefix("client:dash:project", b.only(b.clientDashProject, deciders...)).

		// прораб: дневной отчёт
		Exact("prorab:report", b.only(b.reportStart, users.RoleForeman)).
		Prefix("prorab:report:project", b.only(b.reportProject, users.RoleForeman)).
		Exact("prorab:report:skip", b.only(b.reportSkip, users.RoleForeman)).
		Exact("prorab:report:done", b.only(b.reportDone, users.RoleForeman)).

		// проблемы на объекте
		Exact("issue:new", b.only(b.issueNew, reporters...)).
		Prefix("issue:project", b.only(b.issueProject, reporters...)).
		Exact("issue:photos:done", b.only(b.issuePhotosDone, reporters...)).
		Exact("issue:send", b.only(b.issueSend, reporters...)).
		Prefix("issue:set", b.only(b.issueSet, users.RoleForeman)).

		// поставки
		Exact("dlv|start", b.only(b.dlvStart, logistics...)).
		Prefix("dlv|proj", b.only(b.dlvProject, logistics...)).
		Prefix("dlv|flt", b.only(b.dlvFilter, logistics...)).
		Prefix("dlv|bat", b.only(b.dlvBatch, logistics...)).
		Prefix("dlv|set", b.only(b.dlvSet, logistics...)).

		// файлы проекта
		Exact("files:start", b.only(b.filesStart, browsers...)).
		Prefix("files:project", b.only(b.filesProject, browsers...)).
		Prefix("files:room", b.only(b.filesRoom, browsers...)).
		Prefix("files:cat", b.only(b.filesCategory, browsers...)).
		Prefix("files:get", b.only(b.filesGet, browsers...)).

		// приход из Excel
		Exact("intake:start", b.only(b.intakeStart, buyers...))
}

// textRoutes обработчики текстового ввода по текущему шагу диалога
func (b *Bot) textRoutes() map[dialog.State]textHandler {
	return map[dialog.State]textHandler{
		dialog.StateUstaMRInput:         b.mrText,
		dialog.StateUstaMRDraftInput:    b.mrText,
		dialog.StateUstaAIInput:         b.aiText,
		dialog.StateSnabPriceSelectLine: b.snabPriceText,
		dialog.StateSnabPriceInputLine:  b.snabLinePriceText,
		dialog.StateSnabVoicePriceWait:  b.snabVoiceText,
		dialog.StateIssueInputText:      b.issueText,
		dialog.StateIssueInputPhotos:    b.issuePhotosHint,
		dialog.StateForemanReportText:   b.reportText,
		dialog.StateForemanReportMedia:  b.reportMediaHint,
		dialog.StateIntakeFileWait:      b.intakeHint,
	}
}

// mediaRoutes обработчики фото, голоса и документов
func (b *Bot) mediaRoutes() map[dialog.State]mediaHandler {
	return map[dialog.State]mediaHandler{
		dialog.StateUstaMRInput:        b.mrMedia,
		dialog.StateUstaMRDraftInput:   b.mrMedia,
		dialog.StateUstaAIInput:        b.mrMedia,
		dialog.StateSnabVoicePriceWait: b.snabVoiceMedia,
		dialog.StateIssueInputPhotos:   b.issuePhoto,
		dialog.StateForemanReportMedia: b.reportMedia,
		dialog.StateIntakeFileWait:     b.intakeFile,
	}
}
