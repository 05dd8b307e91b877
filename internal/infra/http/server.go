package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Spok95/construction-bot/internal/infra/metrics"
)

type Server struct {
	srv    *http.Server
	router *mux.Router
	log    *slog.Logger
}

func New(addr string, exposeMetrics bool, log *slog.Logger) *Server {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	if exposeMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	return &Server{srv: &http.Server{Addr: addr, Handler: r}, router: r, log: log}
}

// Webhook принимает апдейты Telegram. Ответ всегда 200: иначе Telegram будет
// повторять доставку. Невалидное тело логируется и отбрасывается.
func (s *Server) Webhook(path string, handle func(tgbotapi.Update)) {
	s.router.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		var upd tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil || upd.UpdateID == 0 {
			metrics.MalformedUpdates.Inc()
			s.log.Warn("malformed webhook body", "err", err, "remote", r.RemoteAddr)
			w.WriteHeader(http.StatusOK)
			return
		}
		handle(upd)
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodPost)
}

// Mount подключает обработчик под префиксом пути
func (s *Server) Mount(prefix string, h http.Handler) {
	s.router.PathPrefix(prefix).Handler(h)
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
