// Package resolver находит модель внешнего учёта, куда складываются строки
// материалов и услуг, и пишет в неё идемпотентно.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Spok95/construction-bot/internal/infra/metrics"
)

// ErrNoEligibleShape ни одна модель не ссылается одновременно на этап и задачу.
// Ошибка конфигурации учёта, а не пользователя.
var ErrNoEligibleShape = errors.New("не найдена модель для строк этапа")

// MissingTaskError на этапе нет обязательной задачи
type MissingTaskError struct {
	Task    string
	StageID int64
}

func (e *MissingTaskError) Error() string {
	return fmt.Sprintf("на этапе %d нет задачи «%s»", e.StageID, e.Task)
}

// Store обобщённое хранилище записей
type Store interface {
	// Models имена моделей, содержащие подстроку, в порядке обнаружения
	Models(ctx context.Context, contains string) ([]string, error)
	Fields(ctx context.Context, model string) ([]Field, error)
	Search(ctx context.Context, model string, domain []any, limit int) ([]int64, error)
	Exists(ctx context.Context, model string, id int64) (bool, error)
	Create(ctx context.Context, model string, values map[string]any) (int64, error)
	Write(ctx context.Context, model string, id int64, values map[string]any) error
}

// Line строка для выгрузки
type Line struct {
	Kind    Kind
	StageID int64
	Name    string
	Qty     float64
	Price   float64
	Unit    string
	Date    time.Time
	// Ref ранее сохранённая ссылка на запись, пусто — первая выгрузка
	Ref string
}

type Result struct {
	Ref     Ref
	Created bool
}

type Resolver struct {
	store  Store
	naming Naming
	log    *slog.Logger

	group  singleflight.Group
	mu     sync.RWMutex
	shapes map[Kind]Shape
}

func New(store Store, naming Naming, log *slog.Logger) *Resolver {
	return &Resolver{store: store, naming: naming, log: log, shapes: map[Kind]Shape{}}
}

// Register задаёт модель вручную, минуя обнаружение
func (r *Resolver) Register(kind Kind, sh Shape) {
	r.mu.Lock()
	r.shapes[kind] = sh
	r.mu.Unlock()
}

// Invalidate сбрасывает найденные модели, следующий вызов обнаружит заново
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.shapes = map[Kind]Shape{}
	r.mu.Unlock()
}

// Shape модель для вида строк: из кэша или через обнаружение.
// Параллельные обнаружения одного вида схлопываются в один запрос.
func (r *Resolver) Shape(ctx context.Context, kind Kind) (Shape, error) {
	r.mu.RLock()
	sh, ok := r.shapes[kind]
	r.mu.RUnlock()
	if ok {
		return sh, nil
	}

	v, err, _ := r.group.Do(string(kind), func() (any, error) {
		sh, err := r.discover(ctx, kind)
		if err != nil {
			return Shape{}, err
		}
		r.Register(kind, sh)
		return sh, nil
	})
	if err != nil {
		return Shape{}, err
	}
	return v.(Shape), nil
}

func (r *Resolver) discover(ctx context.Context, kind Kind) (Shape, error) {
	names, err := r.store.Models(ctx, r.naming.marker(kind))
	if err != nil {
		return Shape{}, fmt.Errorf("discover %s: %w", kind, err)
	}
	shapes := make([]Shape, 0, len(names))
	for _, name := range names {
		fields, err := r.store.Fields(ctx, name)
		if err != nil {
			return Shape{}, fmt.Errorf("fields %s: %w", name, err)
		}
		shapes = append(shapes, Classify(kind, name, fields, r.naming))
	}
	best, ok := Best(shapes)
	if !ok {
		return Shape{}, fmt.Errorf("%w (%s)", ErrNoEligibleShape, kind)
	}
	r.log.Info("resolver shape selected", "kind", kind, "model", best.Model, "score", best.Score)
	return best, nil
}

// Push создаёт или обновляет запись для строки. Повторный вызов с сохранённой
// ссылкой обновляет ту же запись, а не плодит дубликаты.
func (r *Resolver) Push(ctx context.Context, line Line) (res Result, err error) {
	defer func() {
		outcome := "updated"
		switch {
		case errors.Is(err, ErrNoEligibleShape):
			outcome = "no_shape"
		case err != nil:
			var mt *MissingTaskError
			if errors.As(err, &mt) {
				outcome = "missing_task"
			} else {
				outcome = "error"
			}
		case res.Created:
			outcome = "created"
		}
		metrics.ResolverPushes.WithLabelValues(outcome).Inc()
	}()

	if !line.Kind.Valid() {
		return Result{}, fmt.Errorf("неизвестный вид строки %q", line.Kind)
	}
	sh, err := r.Shape(ctx, line.Kind)
	if err != nil {
		return Result{}, err
	}
	taskID, err := r.task(ctx, line.Kind, line.StageID)
	if err != nil {
		return Result{}, err
	}
	values, err := r.values(ctx, sh, line, taskID)
	if err != nil {
		return Result{}, err
	}

	prev, err := ParseRef(line.Ref)
	if err != nil {
		r.log.Warn("resolver stored ref unreadable", "ref", line.Ref, "err", err)
		prev = Ref{}
	}
	if !prev.IsZero() && prev.Model == sh.Model {
		ok, err := r.store.Exists(ctx, sh.Model, prev.ID)
		if err != nil {
			return Result{}, err
		}
		if ok {
			if err := r.store.Write(ctx, sh.Model, prev.ID, values); err != nil {
				return Result{}, fmt.Errorf("write %s: %w", prev, err)
			}
			return Result{Ref: prev}, nil
		}
	}

	id, err := r.store.Create(ctx, sh.Model, values)
	if err != nil {
		return Result{}, fmt.Errorf("create %s: %w", sh.Model, err)
	}
	return Result{Ref: Ref{Model: sh.Model, ID: id}, Created: true}, nil
}

func (r *Resolver) task(ctx context.Context, kind Kind, stageID int64) (int64, error) {
	name := r.naming.TaskName(kind)
	ids, err := r.store.Search(ctx, r.naming.TaskModel, []any{
		[]any{r.naming.TaskStageField, "=", stageID},
		[]any{"name", "=", name},
	}, 1)
	if err != nil {
		return 0, fmt.Errorf("task search: %w", err)
	}
	if len(ids) == 0 {
		return 0, &MissingTaskError{Task: name, StageID: stageID}
	}
	return ids[0], nil
}

func (r *Resolver) values(ctx context.Context, sh Shape, line Line, taskID int64) (map[string]any, error) {
	v := map[string]any{
		sh.Fields[RoleStage].Name: line.StageID,
		sh.Fields[RoleTask].Name:  taskID,
	}
	if f, ok := sh.Fields[RoleQty]; ok {
		v[f.Name] = line.Qty
	}
	if f, ok := sh.Fields[RolePrice]; ok {
		v[f.Name] = line.Price
	}
	if f, ok := sh.Fields[RoleDate]; ok && !line.Date.IsZero() {
		v[f.Name] = line.Date.Format("2006-01-02")
	}
	if f, ok := sh.Fields[RoleDescription]; ok {
		v[f.Name] = line.Name
	}
	if f, ok := sh.Fields[RoleProduct]; ok {
		pid, err := r.product(ctx, f, line)
		if err != nil {
			return nil, err
		}
		v[f.Name] = pid
	}
	if f, ok := sh.Fields[RoleUnit]; ok && strings.TrimSpace(line.Unit) != "" {
		uid, err := r.unit(ctx, f, line.Unit)
		if err != nil {
			return nil, err
		}
		if uid != 0 {
			v[f.Name] = uid
		}
	}
	return v, nil
}

// product ищет товар по точному имени и создаёт при отсутствии
func (r *Resolver) product(ctx context.Context, f Field, line Line) (int64, error) {
	model := f.Relation
	if model == "" {
		model = r.naming.ProductModel
	}
	name := strings.TrimSpace(line.Name)
	ids, err := r.store.Search(ctx, model, []any{[]any{"name", "=", name}}, 1)
	if err != nil {
		return 0, fmt.Errorf("product search: %w", err)
	}
	if len(ids) > 0 {
		return ids[0], nil
	}
	typ := "consu"
	if line.Kind == KindService {
		typ = "service"
	}
	id, err := r.store.Create(ctx, model, map[string]any{"name": name, "type": typ})
	if err != nil {
		return 0, fmt.Errorf("product create: %w", err)
	}
	return id, nil
}

// unit сопоставляет единицу по точному имени; не нашли — поле не заполняется
func (r *Resolver) unit(ctx context.Context, f Field, unit string) (int64, error) {
	model := f.Relation
	if model == "" {
		model = r.naming.UnitModel
	}
	ids, err := r.store.Search(ctx, model, []any{[]any{"name", "=", strings.TrimSpace(unit)}}, 1)
	if err != nil {
		return 0, fmt.Errorf("unit search: %w", err)
	}
	if len(ids) == 0 {
		r.log.Debug("resolver unit not found", "unit", unit, "model", model)
		return 0, nil
	}
	return ids[0], nil
}
