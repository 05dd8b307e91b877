package bot

import (
	"context"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/construction-bot/internal/action"
	"github.com/Spok95/construction-bot/internal/dialog"
	"github.com/Spok95/construction-bot/internal/domain/users"
	"github.com/Spok95/construction-bot/internal/export"
	"github.com/Spok95/construction-bot/internal/infra/metrics"
	"github.com/Spok95/construction-bot/internal/notify"
	"github.com/Spok95/construction-bot/internal/workflow"
)

type Deps struct {
	Sender     notify.Sender
	Log        *slog.Logger
	States     StateStore
	Users      UserStore
	Projects   ProjectStore
	Tasks      TaskStore
	Batches    BatchStore
	Deliveries DeliveryStore
	Issues     IssueStore
	Reports    ReportStore
	Files      FileStore
	Workflow   *workflow.Service
	// AI, Finance, Pusher и Sessions необязательны: без них пункты меню
	// отвечают, что функция не настроена
	AI       Extractor
	Finance  FinanceSource
	Pusher   Pusher
	Sessions SessionIssuer

	AdminChatID int64
	PublicURL   string
	Font        export.Font
	Location    *time.Location
	// Timeout ограничивает обработку одного апдейта
	Timeout time.Duration
	Now     func() time.Time
}

type Bot struct {
	sender     notify.Sender
	log        *slog.Logger
	states     StateStore
	gate       *dialog.Gate
	users      UserStore
	projects   ProjectStore
	tasks      TaskStore
	batches    BatchStore
	deliveries DeliveryStore
	issues     IssueStore
	reports    ReportStore
	files      FileStore
	flow       *workflow.Service
	ai         Extractor
	finance    FinanceSource
	pusher     Pusher
	sessions   SessionIssuer

	adminChat int64
	publicURL string
	font      export.Font
	loc       *time.Location
	timeout   time.Duration
	now       func() time.Time

	callbacks *action.Router[callbackHandler]
	texts     map[dialog.State]textHandler
	media     map[dialog.State]mediaHandler
}

func New(d Deps) *Bot {
	b := &Bot{
		sender: d.Sender, log: d.Log, states: d.States, gate: dialog.NewGate(d.States),
		users: d.Users, projects: d.Projects, tasks: d.Tasks, batches: d.Batches,
		deliveries: d.Deliveries, issues: d.Issues, reports: d.Reports, files: d.Files,
		flow: d.Workflow, ai: d.AI, finance: d.Finance, pusher: d.Pusher, sessions: d.Sessions,
		adminChat: d.AdminChatID, publicURL: strings.TrimRight(d.PublicURL, "/"),
		font: d.Font, loc: d.Location, timeout: d.Timeout, now: d.Now,
	}
	if b.loc == nil {
		b.loc = time.UTC
	}
	if b.now == nil {
		b.now = time.Now
	}
	b.callbacks = b.callbackRoutes()
	b.texts = b.textRoutes()
	b.media = b.mediaRoutes()
	return b
}

// request один входящий апдейт вместе с актёром и его состоянием
type request struct {
	chatID int64
	user   *users.User
	state  dialog.State
	p      dialog.Payload
	msg    *tgbotapi.Message
	cb     *tgbotapi.CallbackQuery
}

// ref сообщение с кнопкой, на которую нажали
func (r *request) ref() notify.MessageRef {
	if r.cb == nil || r.cb.Message == nil {
		return notify.MessageRef{}
	}
	return notify.MessageRef{ChatID: r.cb.Message.Chat.ID, MessageID: r.cb.Message.MessageID}
}

func actorOf(upd tgbotapi.Update) (chatID int64, from *tgbotapi.User, messageID int) {
	switch {
	case upd.Message != nil:
		return upd.Message.Chat.ID, upd.Message.From, upd.Message.MessageID
	case upd.CallbackQuery != nil:
		cb := upd.CallbackQuery
		if cb.Message != nil {
			return cb.Message.Chat.ID, cb.From, 0
		}
		if cb.From != nil {
			return cb.From.ID, cb.From, 0
		}
	}
	return 0, nil, 0
}

// HandleUpdate единая точка входа для polling и вебхука.
// Неизвестный актёр регистрируется без проверки водяных знаков, но знак первого
// апдейта записывается. Для остальных знак фиксируется до запуска обработчика,
// повторы молча отбрасываются.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	chatID, from, messageID := actorOf(upd)
	if from == nil || chatID == 0 {
		metrics.UpdatesProcessed.WithLabelValues("ignored").Inc()
		return
	}

	u, err := b.users.GetByTelegramID(ctx, from.ID)
	if err != nil {
		b.log.Error("user lookup failed", "tg_id", from.ID, "err", err)
		return
	}
	if u == nil {
		metrics.UpdatesProcessed.WithLabelValues("registration").Inc()
		b.firstContact(ctx, chatID, from, upd.UpdateID, messageID)
		return
	}

	ok, err := b.gate.Admit(ctx, chatID, upd.UpdateID, messageID)
	if err != nil {
		b.log.Error("dedup failed", "chat_id", chatID, "update_id", upd.UpdateID, "err", err)
		return
	}
	if !ok {
		b.log.Debug("duplicate update dropped", "chat_id", chatID, "update_id", upd.UpdateID)
		return
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	st, err := b.states.Get(ctx, chatID)
	if err != nil {
		b.log.Error("state load failed", "chat_id", chatID, "err", err)
		return
	}
	r := &request{chatID: chatID, user: u, state: st.State, p: st.Payload}
	if r.p == nil {
		r.p = dialog.Payload{}
	}

	switch {
	case upd.CallbackQuery != nil:
		r.cb = upd.CallbackQuery
		metrics.UpdatesProcessed.WithLabelValues("callback").Inc()
		b.onCallback(ctx, r)
	case upd.Message != nil:
		r.msg = upd.Message
		metrics.UpdatesProcessed.WithLabelValues("message").Inc()
		b.onMessage(ctx, r)
	}
}

func (b *Bot) onMessage(ctx context.Context, r *request) {
	msg := r.msg
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.cmdStart(ctx, r)
			return
		case "menu", "cancel":
			b.goHome(ctx, r)
			return
		}
	}

	if !r.user.Registered() {
		b.continueRegistration(ctx, r)
		return
	}

	if hasMedia(msg) {
		if h, ok := b.media[r.state]; ok {
			h(ctx, r)
			return
		}
		b.reply(ctx, r.chatID, "Сейчас я не жду файлов. Выберите действие в меню.", nil)
		return
	}

	if h, ok := b.texts[r.state]; ok {
		h(ctx, r, strings.TrimSpace(msg.Text))
		return
	}
	b.showMenu(ctx, r)
}

func (b *Bot) onCallback(ctx context.Context, r *request) {
	cb := r.cb
	if err := b.sender.AnswerCallback(ctx, cb.ID, "", false); err != nil {
		notify.Report(b.log, "answer_callback", err, "chat_id", r.chatID)
	}

	a, err := action.Parse(cb.Data)
	if err != nil {
		b.log.Warn("bad callback data", "chat_id", r.chatID, "data", cb.Data, "err", err)
		return
	}
	if !r.user.Registered() && a.NS() != "reg" && a.NS() != "nav" {
		b.continueRegistration(ctx, r)
		return
	}
	h, args, ok := b.callbacks.Match(a)
	if !ok {
		b.log.Warn("unknown callback", "chat_id", r.chatID, "data", cb.Data)
		b.showMenu(ctx, r)
		return
	}
	h(ctx, r, args)
}

func hasMedia(m *tgbotapi.Message) bool {
	return len(m.Photo) > 0 || m.Voice != nil || m.Video != nil || m.Document != nil || m.Audio != nil
}
