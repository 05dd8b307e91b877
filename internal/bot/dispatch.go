package bot

import (
	"context"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/semaphore"

	"github.com/Spok95/construction-bot/internal/infra/metrics"
)

// Dispatcher раздаёт апдейты обработчику. Апдейты одного чата идут строго по
// очереди, разные чаты — параллельно, но не больше workers одновременно.
type Dispatcher struct {
	handle func(ctx context.Context, upd tgbotapi.Update)
	sem    *semaphore.Weighted
	log    *slog.Logger

	mu     sync.Mutex
	queues map[int64][]tgbotapi.Update
	wg     sync.WaitGroup
}

func NewDispatcher(handle func(ctx context.Context, upd tgbotapi.Update), workers int64, log *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		handle: handle,
		sem:    semaphore.NewWeighted(workers),
		log:    log,
		queues: map[int64][]tgbotapi.Update{},
	}
}

// Dispatch ставит апдейт в очередь его чата и не блокируется
func (d *Dispatcher) Dispatch(ctx context.Context, upd tgbotapi.Update) {
	chatID, _, _ := actorOf(upd)

	d.mu.Lock()
	q, busy := d.queues[chatID]
	d.queues[chatID] = append(q, upd)
	if !busy {
		d.wg.Add(1)
		go d.drain(ctx, chatID)
	}
	d.mu.Unlock()
}

func (d *Dispatcher) drain(ctx context.Context, chatID int64) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		q := d.queues[chatID]
		if len(q) == 0 {
			delete(d.queues, chatID)
			d.mu.Unlock()
			return
		}
		upd := q[0]
		d.queues[chatID] = q[1:]
		d.mu.Unlock()

		if err := d.sem.Acquire(ctx, 1); err != nil {
			d.mu.Lock()
			dropped := len(d.queues[chatID]) + 1
			delete(d.queues, chatID)
			d.mu.Unlock()
			d.log.Warn("updates dropped on shutdown", "chat_id", chatID, "count", dropped)
			return
		}
		d.run(ctx, upd)
		d.sem.Release(1)
	}
}

func (d *Dispatcher) run(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.UpdatesProcessed.WithLabelValues("panic").Inc()
			d.log.Error("handler panic", "update_id", upd.UpdateID, "panic", rec)
		}
	}()
	d.handle(ctx, upd)
}

// Wait ждёт, пока разберутся все принятые очереди
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Poll long polling до отмены контекста
func Poll(ctx context.Context, api *tgbotapi.BotAPI, timeoutSec int, d *Dispatcher) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSec
	updates := api.GetUpdatesChan(u)
	defer api.StopReceivingUpdates()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			d.Dispatch(ctx, upd)
		}
	}
}
