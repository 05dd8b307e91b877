package odoo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Spok95/construction-bot/internal/domain/finance"
	"github.com/Spok95/construction-bot/internal/resolver"
)

func TestMany2one(t *testing.T) {
	id, name := many2one([]any{int64(5), "Черновые работы"})
	assert.Equal(t, int64(5), id)
	assert.Equal(t, "Черновые работы", name)

	id, name = many2one(false)
	assert.Zero(t, id)
	assert.Empty(t, name)
}

func TestFalseIsEmpty(t *testing.T) {
	assert.Equal(t, "", toString(false))
	assert.Equal(t, 0.0, toFloat(false))
	assert.True(t, toDate(false).IsZero())
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), toDate("2025-03-01"))
}

func TestRecordsMapping(t *testing.T) {
	inc := incomeRecord(map[string]any{"date": "2025-03-01", "description": false, "amount": 1000.0})
	assert.Equal(t, finance.KindIncome, inc.Kind)
	assert.Empty(t, inc.Description)

	mat := materialRecord(map[string]any{
		"date": "2025-03-02", "stage_id": []any{int64(5), "Этап"}, "product_id": []any{int64(9), "Gipsokarton"},
		"quantity": 10.0, "price": 50000.0, "total_cost": 500000.0, "state": "approved",
	})
	assert.Equal(t, int64(5), mat.StageID)
	assert.Equal(t, "Gipsokarton", mat.Name)
	assert.Equal(t, 500000.0, mat.Amount)

	svc := serviceRecord(map[string]any{"date": "2025-03-02", "stage_id": false, "service_id": []any{int64(3), "Монтаж"}, "is_done": true})
	assert.Zero(t, svc.StageID)
	assert.Equal(t, "done", svc.Status)
}

func TestWithPeriod(t *testing.T) {
	p := finance.Custom(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC))
	d := withPeriod([]any{}, p)
	assert.Equal(t, []any{[]any{"date", ">=", "2025-03-01"}, []any{"date", "<", "2025-04-01"}}, d)
	assert.Empty(t, withPeriod([]any{}, finance.Period{Key: finance.PeriodAll}))
}

func TestFieldsFromRawSorted(t *testing.T) {
	got := fieldsFromRaw(map[string]any{
		"task_id":  map[string]any{"type": "many2one", "relation": "construction.stage.task"},
		"quantity": map[string]any{"type": "float", "relation": false},
		"stage_id": map[string]any{"type": "many2one", "relation": "construction.stage"},
	})
	assert.Equal(t, []resolver.Field{
		{Name: "quantity", Type: "float"},
		{Name: "stage_id", Type: "many2one", Relation: "construction.stage"},
		{Name: "task_id", Type: "many2one", Relation: "construction.stage.task"},
	}, got)
}
