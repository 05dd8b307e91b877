// Package export строит финансовый отчёт проекта и рендерит его в Excel/PDF.
package export

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Spok95/construction-bot/internal/domain/finance"
)

const (
	NoStageName       = "Этап не указан"
	IncomePlaceholder = "Поступление"
)

type IncomeItem struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type IncomeDay struct {
	Date  string          `json:"date"`
	Total decimal.Decimal `json:"total"`
	Items []IncomeItem    `json:"items"`
}

type ExpenseItem struct {
	Kind   finance.Kind    `json:"type"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date"`
	Status string          `json:"status"`
}

type StageExpense struct {
	StageID int64           `json:"stage_id"`
	Name    string          `json:"name"`
	Total   decimal.Decimal `json:"total"`
	Items   []ExpenseItem   `json:"items"`
}

// Tx строка сводного списка: поступления со знаком плюс, расходы со знаком минус
type Tx struct {
	Date   time.Time       `json:"date"`
	Kind   finance.Kind    `json:"type"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

func (t Tx) Income() bool { return t.Kind == finance.KindIncome }

type Report struct {
	Project      string          `json:"project"`
	Address      string          `json:"address"`
	Period       string          `json:"period"`
	Income       decimal.Decimal `json:"income"`
	Material     decimal.Decimal `json:"material"`
	Service      decimal.Decimal `json:"service"`
	Expense      decimal.Decimal `json:"expense"`
	Balance      decimal.Decimal `json:"balance"`
	IncomeByDay  []IncomeDay     `json:"income_grouped"`
	ByStage      []StageExpense  `json:"expense_by_stage"`
	Transactions []Tx            `json:"transactions"`
}

// Build группирует записи. Порядок групп — порядок первого появления в recs.
func Build(project, address string, period finance.Period, recs []finance.Record) Report {
	r := Report{
		Project: project,
		Address: address,
		Period:  period.Title(),
	}
	days := map[string]int{}
	stages := map[int64]int{}

	for _, rec := range recs {
		amount := decimal.NewFromFloat(rec.Amount)
		switch rec.Kind {
		case finance.KindIncome:
			desc := incomeDescription(rec.Description)
			key := rec.Date.Format("2006-01-02")
			i, ok := days[key]
			if !ok {
				i = len(r.IncomeByDay)
				days[key] = i
				r.IncomeByDay = append(r.IncomeByDay, IncomeDay{Date: key, Total: decimal.Zero})
			}
			r.IncomeByDay[i].Total = r.IncomeByDay[i].Total.Add(amount)
			r.IncomeByDay[i].Items = append(r.IncomeByDay[i].Items, IncomeItem{Description: desc, Amount: amount})
			r.Income = r.Income.Add(amount)
			r.Transactions = append(r.Transactions, Tx{Date: rec.Date, Kind: rec.Kind, Name: desc, Amount: amount})

		case finance.KindMaterial, finance.KindService:
			if rec.Kind == finance.KindMaterial {
				r.Material = r.Material.Add(amount)
			} else {
				r.Service = r.Service.Add(amount)
			}
			i, ok := stages[rec.StageID]
			if !ok {
				i = len(r.ByStage)
				stages[rec.StageID] = i
				r.ByStage = append(r.ByStage, StageExpense{StageID: rec.StageID, Name: stageName(rec), Total: decimal.Zero})
			}
			r.ByStage[i].Total = r.ByStage[i].Total.Add(amount)
			r.ByStage[i].Items = append(r.ByStage[i].Items, ExpenseItem{
				Kind:   rec.Kind,
				Name:   expenseName(rec),
				Amount: amount,
				Date:   rec.Date.Format("2006-01-02"),
				Status: rec.Status,
			})
			r.Transactions = append(r.Transactions, Tx{Date: rec.Date, Kind: rec.Kind, Name: rec.Name, Amount: amount.Neg()})
		}
	}

	r.Expense = r.Material.Add(r.Service)
	r.Balance = r.Income.Sub(r.Expense)
	sort.SliceStable(r.Transactions, func(i, j int) bool {
		return r.Transactions[i].Date.After(r.Transactions[j].Date)
	})
	return r
}

func incomeDescription(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "false") {
		return IncomePlaceholder
	}
	return s
}

func stageName(rec finance.Record) string {
	if rec.StageID == 0 || strings.TrimSpace(rec.StageName) == "" {
		return NoStageName
	}
	return rec.StageName
}

func expenseName(rec finance.Record) string {
	if rec.Kind == finance.KindService && strings.TrimSpace(rec.Description) != "" {
		return rec.Name + " (" + strings.TrimSpace(rec.Description) + ")"
	}
	return rec.Name
}

var hundred = decimal.NewFromInt(100)

// Percent доля part в total в процентах; при нулевом total — 0
func Percent(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Div(total).Mul(hundred)
}

// MaterialShare и ServiceShare — доли в общем расходе
func (r Report) MaterialShare() decimal.Decimal { return Percent(r.Material, r.Expense) }
func (r Report) ServiceShare() decimal.Decimal  { return Percent(r.Service, r.Expense) }

// FormatMoney целое с пробелом между тысячами: 1234567.5 → "1 234 568"
func FormatMoney(d decimal.Decimal) string {
	s := d.RoundBank(0).StringFixed(0)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(c)
	}
	if neg && s != "0" {
		return "-" + b.String()
	}
	return b.String()
}

// FormatSigned сумма со знаком, плюс для поступлений
func FormatSigned(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + FormatMoney(d)
	}
	return FormatMoney(d)
}

// FormatPercent одна цифра после запятой
func FormatPercent(d decimal.Decimal) string {
	return d.StringFixed(1) + "%"
}

func decimalOf(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }
