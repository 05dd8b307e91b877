package webapp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/Spok95/construction-bot/internal/domain/finance"
	"github.com/Spok95/construction-bot/internal/domain/projects"
	"github.com/Spok95/construction-bot/internal/domain/users"
	"github.com/Spok95/construction-bot/internal/export"
)

type UserStore interface {
	GetByID(ctx context.Context, id int64) (*users.User, error)
}

type ProjectStore interface {
	Get(ctx context.Context, id int64) (*projects.Project, error)
}

type FinanceSource interface {
	Records(ctx context.Context, p projects.Project, period finance.Period) ([]finance.Record, error)
}

type Handler struct {
	sessions *Sessions
	users    UserStore
	projects ProjectStore
	finance  FinanceSource
	log      *slog.Logger
	loc      *time.Location
	now      func() time.Time
}

func NewHandler(s *Sessions, us UserStore, ps ProjectStore, fin FinanceSource, log *slog.Logger, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{sessions: s, users: us, projects: ps, finance: fin, log: log, loc: loc, now: time.Now}
}

// Routes маршруты под /webapp
func (h *Handler) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/webapp/api/report", h.report).Methods(http.MethodGet)
	return r
}

type reportResponse struct {
	export.Report
	MaterialShare decimal.Decimal `json:"material_share"`
	ServiceShare  decimal.Decimal `json:"service_share"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	userID, err := h.sessions.Verify(q.Get("token"))
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "сессия истекла, откройте дашборд из бота заново"})
		return
	}
	u, err := h.users.GetByID(ctx, userID)
	if err != nil {
		h.fail(w, "user lookup", err)
		return
	}
	projectID, _ := strconv.ParseInt(q.Get("project"), 10, 64)
	p, err := h.projects.Get(ctx, projectID)
	if err != nil {
		h.fail(w, "project lookup", err)
		return
	}
	if u == nil || p == nil || !projects.CanAccess(u, *p) {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "нет доступа к проекту"})
		return
	}
	period, err := finance.PeriodFor(q.Get("period"), h.now().In(h.loc))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	recs, err := h.finance.Records(ctx, *p, period)
	if errors.Is(err, finance.ErrNotLinked) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		h.fail(w, "finance records", err)
		return
	}
	rep := export.Build(p.Name, p.Address, period, recs)
	writeJSON(w, http.StatusOK, reportResponse{
		Report:        rep,
		MaterialShare: rep.MaterialShare(),
		ServiceShare:  rep.ServiceShare(),
	})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.log.Error("webapp report failed", "op", op, "err", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "внутренняя ошибка"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
