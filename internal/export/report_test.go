package export

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Spok95/construction-bot/internal/domain/batches"
	"github.com/Spok95/construction-bot/internal/domain/finance"
)

func day(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }

func sample() []finance.Record {
	return []finance.Record{
		{Date: day(1), Kind: finance.KindIncome, Description: "Аванс", Amount: 1000000},
		{Date: day(1), Kind: finance.KindIncome, Description: "false", Amount: 500000},
		{Date: day(3), Kind: finance.KindIncome, Amount: 250000},
		{Date: day(2), Kind: finance.KindMaterial, StageID: 5, StageName: "Черновые работы", Name: "Gipsokarton", Amount: 500000},
		{Date: day(3), Kind: finance.KindService, StageID: 5, StageName: "Черновые работы", Name: "Монтаж", Description: "ГКЛ", Amount: 300000},
		{Date: day(2), Kind: finance.KindMaterial, Name: "Саморезы", Amount: 200000},
	}
}

func TestBuildTotals(t *testing.T) {
	r := Build("Дом", "", finance.Period{Key: finance.PeriodAll}, sample())

	assert.Equal(t, "1750000", r.Income.String())
	assert.Equal(t, "700000", r.Material.String())
	assert.Equal(t, "300000", r.Service.String())
	assert.True(t, r.Expense.Equal(r.Material.Add(r.Service)))
	assert.True(t, r.Balance.Equal(r.Income.Sub(r.Expense)))
	assert.Equal(t, "750000", r.Balance.String())
}

func TestBuildGroups(t *testing.T) {
	r := Build("Дом", "", finance.Period{Key: finance.PeriodAll}, sample())

	require.Len(t, r.IncomeByDay, 2)
	assert.Equal(t, "2025-03-01", r.IncomeByDay[0].Date)
	assert.Equal(t, "1500000", r.IncomeByDay[0].Total.String())
	assert.Equal(t, IncomePlaceholder, r.IncomeByDay[0].Items[1].Description)
	assert.Equal(t, IncomePlaceholder, r.IncomeByDay[1].Items[0].Description)

	require.Len(t, r.ByStage, 2)
	assert.Equal(t, "Черновые работы", r.ByStage[0].Name)
	assert.Equal(t, "800000", r.ByStage[0].Total.String())
	assert.Equal(t, "Монтаж (ГКЛ)", r.ByStage[0].Items[1].Name)
	assert.Equal(t, NoStageName, r.ByStage[1].Name)
}

func TestTransactionsSignedAndSortedStable(t *testing.T) {
	r := Build("Дом", "", finance.Period{Key: finance.PeriodAll}, sample())

	require.Len(t, r.Transactions, 6)
	for i := 1; i < len(r.Transactions); i++ {
		assert.False(t, r.Transactions[i].Date.After(r.Transactions[i-1].Date))
	}
	// 3 марта: поступление раньше услуги во входных данных
	assert.Equal(t, finance.KindIncome, r.Transactions[0].Kind)
	assert.Equal(t, finance.KindService, r.Transactions[1].Kind)
	assert.True(t, r.Transactions[1].Amount.IsNegative())
	// 1 марта: порядок «Аванс», затем запись без описания
	assert.Equal(t, "Аванс", r.Transactions[4].Name)
	assert.Equal(t, IncomePlaceholder, r.Transactions[5].Name)

	sum := decimal.Zero
	for _, tx := range r.Transactions {
		sum = sum.Add(tx.Amount)
	}
	assert.True(t, sum.Equal(r.Balance))
}

func TestBuildEmpty(t *testing.T) {
	r := Build("Дом", "", finance.Period{Key: finance.PeriodAll}, nil)
	assert.True(t, r.Income.IsZero())
	assert.True(t, r.Expense.IsZero())
	assert.True(t, r.Balance.IsZero())
	assert.True(t, r.MaterialShare().IsZero())
	assert.True(t, r.ServiceShare().IsZero())
	assert.Empty(t, r.Transactions)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "70.0%", FormatPercent(Percent(decimal.NewFromInt(700), decimal.NewFromInt(1000))))
	assert.Equal(t, "33.3%", FormatPercent(Percent(decimal.NewFromInt(1), decimal.NewFromInt(3))))
	assert.True(t, Percent(decimal.NewFromInt(5), decimal.Zero).IsZero())
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"999", "999"},
		{"1000", "1 000"},
		{"1234567.4", "1 234 567"},
		{"1234567.5", "1 234 568"},
		{"2.5", "2"},
		{"-50000", "-50 000"},
		{"-0.4", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMoney(decimal.RequireFromString(tt.in)))
		})
	}
	assert.Equal(t, "+1 000", FormatSigned(decimal.NewFromInt(1000)))
	assert.Equal(t, "-1 000", FormatSigned(decimal.NewFromInt(-1000)))
}

func TestReportExcel(t *testing.T) {
	r := Build("Дом", "ул. Навои", finance.Period{Key: finance.PeriodAll}, sample())
	data, err := ReportExcel(r)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytesReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(sheetTx)
	require.NoError(t, err)
	assert.Len(t, rows, 7)
	assert.Equal(t, []string{"Дата", "Тип", "Название", "Сумма"}, rows[0])

	v, err := f.GetCellValue(sheetSummary, "B1")
	require.NoError(t, err)
	assert.Equal(t, "Дом", v)
}

func TestBatchesExcelAndPDF(t *testing.T) {
	list := []batches.Batch{{
		Name: "MR/2025/00001", Date: day(1), Status: batches.StatusApproved,
		Lines: []batches.Line{{ProductName: "Gipsokarton", Quantity: 10, UnitPrice: 50000}},
	}}
	data, err := BatchesExcel(list)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytesReader(data))
	require.NoError(t, err)
	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	require.NoError(t, err)
	_ = f.Close()
	require.Len(t, rows, 2)
	assert.Equal(t, "Gipsokarton", rows[1][3])

	pdf, err := BatchesPDF("Approved", list, Font{})
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

func TestReportPDF(t *testing.T) {
	pdf, err := ReportPDF(Build("Dom", "", finance.Period{Key: finance.PeriodAll}, sample()), Font{})
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}
