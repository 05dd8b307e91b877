package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/construction-bot/internal/infra/logger"
)

type fakeStore struct {
	mu         sync.Mutex
	models     []string
	fields     map[string][]Field
	records    map[string]map[int64]map[string]any
	nextID     int64
	modelCalls atomic.Int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{fields: map[string][]Field{}, records: map[string]map[int64]map[string]any{}}
}

func (s *fakeStore) addModel(name string, fields ...Field) {
	s.models = append(s.models, name)
	s.fields[name] = fields
}

func (s *fakeStore) add(model string, values map[string]any) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	if s.records[model] == nil {
		s.records[model] = map[int64]map[string]any{}
	}
	s.records[model][s.nextID] = values
	return s.nextID
}

func (s *fakeStore) Models(_ context.Context, contains string) ([]string, error) {
	s.modelCalls.Add(1)
	var out []string
	for _, m := range s.models {
		if strings.Contains(m, contains) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) Fields(_ context.Context, model string) ([]Field, error) {
	return s.fields[model], nil
}

func (s *fakeStore) Search(_ context.Context, model string, domain []any, limit int) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int64
	for id := int64(1); id <= s.nextID; id++ {
		vals, ok := s.records[model][id]
		if !ok {
			continue
		}
		match := true
		for _, cond := range domain {
			c := cond.([]any)
			if fmt.Sprint(vals[c[0].(string)]) != fmt.Sprint(c[2]) {
				match = false
				break
			}
		}
		if match {
			out = append(out, id)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *fakeStore) Exists(_ context.Context, model string, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[model][id]
	return ok, nil
}

func (s *fakeStore) Create(_ context.Context, model string, values map[string]any) (int64, error) {
	return s.add(model, values), nil
}

func (s *fakeStore) Write(_ context.Context, model string, id int64, values map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[model][id]
	if !ok {
		return errors.New("missing record")
	}
	for k, v := range values {
		rec[k] = v
	}
	return nil
}

func (s *fakeStore) count(model string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records[model])
}

var (
	stageField = Field{Name: "stage_id", Type: "many2one", Relation: "construction.stage"}
	taskField  = Field{Name: "task_id", Type: "many2one", Relation: "construction.stage.task"}
	qtyField   = Field{Name: "quantity", Type: "float"}
	priceField = Field{Name: "price", Type: "float"}
	dateField  = Field{Name: "date", Type: "date"}
	uomField   = Field{Name: "uom_id", Type: "many2one", Relation: "uom.uom"}
	prodField  = Field{Name: "product_id", Type: "many2one", Relation: "product.product"}
)

const nativeMaterial = "construction.stage.material"

func seeded() *fakeStore {
	s := newFakeStore()
	s.addModel(nativeMaterial, stageField, taskField, qtyField, priceField, dateField, uomField, prodField)
	s.add("construction.stage.task", map[string]any{"stage_id": int64(5), "name": "Материалы для работы"})
	s.add("construction.stage.task", map[string]any{"stage_id": int64(5), "name": "Оплата мастерам за работы"})
	s.add("uom.uom", map[string]any{"name": "м2"})
	return s
}

func newResolver(s Store) *Resolver {
	return New(s, DefaultNaming(), logger.Discard())
}

func gips() Line {
	return Line{
		Kind: KindMaterial, StageID: 5, Name: "Gipsokarton", Qty: 10, Price: 50000, Unit: "м2",
		Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestClassifyAndScore(t *testing.T) {
	n := DefaultNaming()

	native := Classify(KindMaterial, nativeMaterial, []Field{stageField, taskField, qtyField, priceField}, n)
	foreign := Classify(KindMaterial, "x_custom.stage.material", []Field{stageField, taskField, qtyField, priceField}, n)
	bare := Classify(KindMaterial, "construction.stage.material.bare", []Field{stageField, taskField}, n)
	noTask := Classify(KindMaterial, "construction.stage.material.old", []Field{stageField, qtyField, priceField}, n)

	assert.Equal(t, 81, native.Score)
	assert.Equal(t, 71, foreign.Score)
	assert.Equal(t, 61, bare.Score)
	assert.False(t, noTask.Eligible())
	assert.Equal(t, 0, noTask.Score)

	best, ok := Best([]Shape{noTask, foreign, native, bare})
	require.True(t, ok)
	assert.Equal(t, nativeMaterial, best.Model)
}

func TestBestTieKeepsFirstDiscovered(t *testing.T) {
	n := DefaultNaming()
	a := Classify(KindMaterial, "construction.stage.material.a", []Field{stageField, taskField}, n)
	b := Classify(KindMaterial, "construction.stage.material.b", []Field{stageField, taskField}, n)
	best, ok := Best([]Shape{a, b})
	require.True(t, ok)
	assert.Equal(t, "construction.stage.material.a", best.Model)
}

func TestClassifyPrefersKnownNamesInOrder(t *testing.T) {
	// поля приходят отсортированными по имени: amount раньше unit_price
	sh := Classify(KindMaterial, "m", []Field{
		{Name: "amount"}, {Name: "qty"}, {Name: "quantity"}, stageField, taskField, {Name: "unit_price"},
	}, DefaultNaming())
	assert.Equal(t, "unit_price", sh.Fields[RolePrice].Name)
	assert.Equal(t, "quantity", sh.Fields[RoleQty].Name)

	sh = Classify(KindMaterial, "m", []Field{{Name: "amount"}, {Name: "price"}, {Name: "unit_price"}}, DefaultNaming())
	assert.Equal(t, "price", sh.Fields[RolePrice].Name)
}

func TestClassifyServiceDescription(t *testing.T) {
	sh := Classify(KindService, "construction.stage.service", []Field{
		stageField, taskField, {Name: "description", Type: "text"}, {Name: "service_id", Type: "many2one", Relation: "product.product"},
	}, DefaultNaming())
	assert.True(t, sh.Has(RoleDescription))
	assert.Equal(t, "service_id", sh.Fields[RoleProduct].Name)

	mat := Classify(KindMaterial, "construction.stage.material", []Field{{Name: "description"}}, DefaultNaming())
	assert.False(t, mat.Has(RoleDescription))
}

func TestPushIsIdempotentWithStoredRef(t *testing.T) {
	s := seeded()
	r := newResolver(s)
	ctx := context.Background()

	first, err := r.Push(ctx, gips())
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, nativeMaterial, first.Ref.Model)

	line := gips()
	line.Ref = first.Ref.String()
	line.Qty = 12
	second, err := r.Push(ctx, line)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Ref, second.Ref)
	assert.Equal(t, 1, s.count(nativeMaterial))

	s.mu.Lock()
	rec := s.records[nativeMaterial][first.Ref.ID]
	s.mu.Unlock()
	assert.Equal(t, 12.0, rec["quantity"])
	assert.Equal(t, "2025-03-01", rec["date"])
}

func TestPushStaleRefCreatesNew(t *testing.T) {
	s := seeded()
	r := newResolver(s)
	ctx := context.Background()

	line := gips()
	line.Ref = nativeMaterial + ",999"
	res, err := r.Push(ctx, line)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.NotEqual(t, int64(999), res.Ref.ID)

	line.Ref = "x_old.stage.material,1"
	res, err = r.Push(ctx, line)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, nativeMaterial, res.Ref.Model)
}

func TestPushMissingTask(t *testing.T) {
	s := seeded()
	r := newResolver(s)

	line := gips()
	line.StageID = 6
	_, err := r.Push(context.Background(), line)
	var mt *MissingTaskError
	require.ErrorAs(t, err, &mt)
	assert.Equal(t, "Материалы для работы", mt.Task)
	assert.Contains(t, err.Error(), "Материалы для работы")
	assert.Equal(t, 0, s.count(nativeMaterial))
}

func TestPushNoEligibleShape(t *testing.T) {
	s := newFakeStore()
	s.addModel("construction.stage.material", stageField, qtyField, priceField)
	_, err := newResolver(s).Push(context.Background(), gips())
	assert.ErrorIs(t, err, ErrNoEligibleShape)
}

func TestPushUnitNormalization(t *testing.T) {
	s := seeded()
	r := newResolver(s)
	ctx := context.Background()

	res, err := r.Push(ctx, gips())
	require.NoError(t, err)
	s.mu.Lock()
	assert.Equal(t, int64(3), s.records[nativeMaterial][res.Ref.ID]["uom_id"])
	s.mu.Unlock()

	line := gips()
	line.Unit = "рулон"
	res, err = r.Push(ctx, line)
	require.NoError(t, err)
	s.mu.Lock()
	_, has := s.records[nativeMaterial][res.Ref.ID]["uom_id"]
	s.mu.Unlock()
	assert.False(t, has)
}

func TestPushReusesProductByName(t *testing.T) {
	s := seeded()
	r := newResolver(s)
	ctx := context.Background()

	_, err := r.Push(ctx, gips())
	require.NoError(t, err)
	_, err = r.Push(ctx, gips())
	require.NoError(t, err)
	assert.Equal(t, 1, s.count("product.product"))
	assert.Equal(t, 2, s.count(nativeMaterial))
}

func TestDiscoveryIsCachedAndShared(t *testing.T) {
	s := seeded()
	r := newResolver(s)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Shape(ctx, KindMaterial)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	_, err := r.Shape(ctx, KindMaterial)
	require.NoError(t, err)
	assert.LessOrEqual(t, s.modelCalls.Load(), int32(20))

	calls := s.modelCalls.Load()
	_, err = r.Shape(ctx, KindMaterial)
	require.NoError(t, err)
	assert.Equal(t, calls, s.modelCalls.Load())

	r.Invalidate()
	_, err = r.Shape(ctx, KindMaterial)
	require.NoError(t, err)
	assert.Equal(t, calls+1, s.modelCalls.Load())
}

func TestRegisterSkipsDiscovery(t *testing.T) {
	s := seeded()
	r := newResolver(s)
	r.Register(KindMaterial, Classify(KindMaterial, nativeMaterial, s.fields[nativeMaterial], DefaultNaming()))
	_, err := r.Push(context.Background(), gips())
	require.NoError(t, err)
	assert.Equal(t, int32(0), s.modelCalls.Load())
}

func TestRef(t *testing.T) {
	ref, err := ParseRef("construction.stage.material,42")
	require.NoError(t, err)
	assert.Equal(t, Ref{Model: "construction.stage.material", ID: 42}, ref)
	assert.Equal(t, "construction.stage.material,42", ref.String())

	for _, bad := range []string{"nocomma", ",5", "m,x", "m,0"} {
		_, err := ParseRef(bad)
		assert.Error(t, err, bad)
	}
	empty, err := ParseRef("")
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
}
