package odoo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Spok95/construction-bot/internal/domain/finance"
	"github.com/Spok95/construction-bot/internal/domain/projects"
)

const (
	modelIncome   = "construction.project.income"
	modelMaterial = "construction.stage.material"
	modelService  = "construction.stage.service"
)

// Finance финансовые записи проекта
type Finance struct {
	c *Client
}

func NewFinance(c *Client) *Finance { return &Finance{c: c} }

func (f *Finance) Records(ctx context.Context, p projects.Project, period finance.Period) ([]finance.Record, error) {
	if p.OdooID == 0 {
		return nil, finance.ErrNotLinked
	}

	incomes, err := f.c.SearchRead(ctx, modelIncome,
		withPeriod([]any{[]any{"project_id", "=", p.OdooID}}, period),
		[]string{"date", "description", "amount"}, "date desc", 0)
	if err != nil {
		return nil, fmt.Errorf("income: %w", err)
	}
	materials, err := f.c.SearchRead(ctx, modelMaterial,
		withPeriod([]any{[]any{"stage_id.project_id", "=", p.OdooID}}, period),
		[]string{"date", "stage_id", "product_id", "quantity", "price", "total_cost", "state"}, "date desc", 0)
	if err != nil {
		return nil, fmt.Errorf("materials: %w", err)
	}
	services, err := f.c.SearchRead(ctx, modelService,
		withPeriod([]any{[]any{"stage_id.project_id", "=", p.OdooID}}, period),
		[]string{"date", "stage_id", "service_id", "description", "total_cost", "is_done"}, "date desc", 0)
	if err != nil {
		return nil, fmt.Errorf("services: %w", err)
	}

	out := make([]finance.Record, 0, len(incomes)+len(materials)+len(services))
	for _, r := range incomes {
		out = append(out, incomeRecord(r))
	}
	for _, r := range materials {
		out = append(out, materialRecord(r))
	}
	for _, r := range services {
		out = append(out, serviceRecord(r))
	}
	return out, nil
}

func withPeriod(domain []any, p finance.Period) []any {
	if !p.From.IsZero() {
		domain = append(domain, []any{"date", ">=", p.From.Format("2006-01-02")})
	}
	if !p.To.IsZero() {
		domain = append(domain, []any{"date", "<", p.To.Format("2006-01-02")})
	}
	return domain
}

func incomeRecord(r map[string]any) finance.Record {
	return finance.Record{
		Date:        toDate(r["date"]),
		Kind:        finance.KindIncome,
		Description: toString(r["description"]),
		Amount:      toFloat(r["amount"]),
	}
}

func materialRecord(r map[string]any) finance.Record {
	stageID, stageName := many2one(r["stage_id"])
	_, product := many2one(r["product_id"])
	return finance.Record{
		Date:      toDate(r["date"]),
		Kind:      finance.KindMaterial,
		StageID:   stageID,
		StageName: stageName,
		Name:      product,
		Quantity:  toFloat(r["quantity"]),
		UnitPrice: toFloat(r["price"]),
		Amount:    toFloat(r["total_cost"]),
		Status:    toString(r["state"]),
	}
}

func serviceRecord(r map[string]any) finance.Record {
	stageID, stageName := many2one(r["stage_id"])
	_, service := many2one(r["service_id"])
	status := "planned"
	if toBool(r["is_done"]) {
		status = "done"
	}
	return finance.Record{
		Date:        toDate(r["date"]),
		Kind:        finance.KindService,
		StageID:     stageID,
		StageName:   stageName,
		Name:        service,
		Description: strings.TrimSpace(toString(r["description"])),
		Amount:      toFloat(r["total_cost"]),
		Status:      status,
	}
}
