package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/construction-bot/internal/domain/batches"
)

const (
	sheetSummary = "Сводка"
	sheetTx      = "Операции"
)

// ReportExcel книга с двумя листами: сводка и операции
func ReportExcel(r Report) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheetSummary); err != nil {
		return nil, err
	}
	summary := [][]any{
		{"Объект", r.Project},
		{"Адрес", r.Address},
		{"Период", r.Period},
		{},
		{"Поступления", r.Income.InexactFloat64()},
		{"Расходы", r.Expense.InexactFloat64()},
		{"Баланс", r.Balance.InexactFloat64()},
		{},
		{"Категория", "Сумма", "Доля"},
		{"Материалы", r.Material.InexactFloat64(), FormatPercent(r.MaterialShare())},
		{"Услуги", r.Service.InexactFloat64(), FormatPercent(r.ServiceShare())},
		{"Итого", r.Expense.InexactFloat64(), "100%"},
	}
	if err := writeRows(f, sheetSummary, 1, summary); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(sheetTx); err != nil {
		return nil, err
	}
	rows := [][]any{{"Дата", "Тип", "Название", "Сумма"}}
	for _, tx := range r.Transactions {
		rows = append(rows, []any{tx.Date.Format("02.01.2006"), kindTitle(tx.Kind), tx.Name, tx.Amount.InexactFloat64()})
	}
	if err := writeRows(f, sheetTx, 1, rows); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(sheetTx, "C", "C", 40)
	_ = f.SetColWidth(sheetSummary, "A", "B", 22)

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BatchesExcel заявки построчно: одна строка файла на строку заявки
func BatchesExcel(list []batches.Batch) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows := [][]any{{"Заявка", "Дата", "Статус", "Материал", "Количество", "Цена", "Сумма"}}
	for _, b := range list {
		for _, l := range b.Lines {
			rows = append(rows, []any{
				b.Name,
				b.Date.Format("02.01.2006"),
				b.Status.Title(),
				l.ProductName,
				l.Quantity,
				l.UnitPrice,
				l.Total().InexactFloat64(),
			})
		}
	}
	if err := writeRows(f, sheet, 1, rows); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(sheet, "D", "D", 40)

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, start int, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, start+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", start+i, err)
		}
	}
	return nil
}
