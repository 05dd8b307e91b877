package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/Spok95/construction-bot/internal/domain/batches"
	"github.com/Spok95/construction-bot/internal/domain/finance"
)

// Font TTF-шрифт с кириллицей. Пустой Path — встроенный Arial (только латиница).
type Font struct {
	Family string
	Path   string
}

type pdfDoc struct {
	*gofpdf.Fpdf
	tr func(string) string
}

func newPDF(font Font) *pdfDoc {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.SetAutoPageBreak(true, 12)
	d := &pdfDoc{Fpdf: pdf, tr: func(s string) string { return s }}
	if font.Path != "" {
		family := font.Family
		if family == "" {
			family = "main"
		}
		pdf.AddUTF8Font(family, "", font.Path)
		pdf.AddUTF8Font(family, "B", font.Path)
		pdf.SetFont(family, "", 10)
	} else {
		pdf.SetFont("Arial", "", 10)
		d.tr = pdf.UnicodeTranslatorFromDescriptor("")
	}
	pdf.AddPage()
	return d
}

func (d *pdfDoc) line(w, h float64, text string, border string, ln int, align string) {
	d.CellFormat(w, h, d.tr(text), border, ln, align, false, 0, "")
}

func (d *pdfDoc) render() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReportPDF финансовый отчёт: шапка, карточки, структура расходов, операции
func ReportPDF(r Report, font Font) ([]byte, error) {
	d := newPDF(font)

	d.SetFontSize(14)
	d.line(0, 8, r.Project, "", 1, "L")
	d.SetFontSize(10)
	if r.Address != "" {
		d.line(0, 6, "Адрес: "+r.Address, "", 1, "L")
	}
	d.line(0, 6, "Период: "+r.Period, "", 1, "L")
	d.Ln(4)

	d.line(60, 7, "Поступления", "1", 0, "L")
	d.line(60, 7, "Расходы", "1", 0, "L")
	d.line(60, 7, "Баланс", "1", 1, "L")
	d.line(60, 7, FormatSigned(r.Income), "1", 0, "R")
	d.line(60, 7, FormatMoney(r.Expense), "1", 0, "R")
	d.line(60, 7, FormatMoney(r.Balance), "1", 1, "R")
	d.Ln(4)

	d.line(80, 7, "Категория", "1", 0, "L")
	d.line(60, 7, "Сумма", "1", 0, "R")
	d.line(40, 7, "Доля", "1", 1, "R")
	for _, row := range [][3]string{
		{"Материалы", FormatMoney(r.Material), FormatPercent(r.MaterialShare())},
		{"Услуги", FormatMoney(r.Service), FormatPercent(r.ServiceShare())},
		{"Итого", FormatMoney(r.Expense), "100%"},
	} {
		d.line(80, 7, row[0], "1", 0, "L")
		d.line(60, 7, row[1], "1", 0, "R")
		d.line(40, 7, row[2], "1", 1, "R")
	}
	d.Ln(4)

	d.line(0, 7, "Операции", "", 1, "L")
	d.line(25, 7, "Дата", "1", 0, "L")
	d.line(25, 7, "Тип", "1", 0, "L")
	d.line(95, 7, "Название", "1", 0, "L")
	d.line(41, 7, "Сумма", "1", 1, "R")
	for _, tx := range r.Transactions {
		d.line(25, 6, tx.Date.Format("02.01.2006"), "1", 0, "L")
		d.line(25, 6, kindTitle(tx.Kind), "1", 0, "L")
		d.line(95, 6, truncate(tx.Name, 60), "1", 0, "L")
		d.line(41, 6, FormatSigned(tx.Amount), "1", 1, "R")
	}
	return d.render()
}

// BatchesPDF список заявок с итогами
func BatchesPDF(title string, list []batches.Batch, font Font) ([]byte, error) {
	d := newPDF(font)
	d.SetFontSize(14)
	d.line(0, 8, title, "", 1, "L")
	d.SetFontSize(10)

	for _, b := range list {
		d.Ln(3)
		d.line(0, 7, fmt.Sprintf("%s от %s — %s", b.Name, b.Date.Format("02.01.2006"), b.Status.Title()), "", 1, "L")
		for i, l := range b.Lines {
			d.line(10, 6, fmt.Sprintf("%d", i+1), "1", 0, "L")
			d.line(90, 6, truncate(l.ProductName, 55), "1", 0, "L")
			d.line(25, 6, fmt.Sprintf("%g", l.Quantity), "1", 0, "R")
			d.line(30, 6, FormatMoney(decimalOf(l.UnitPrice)), "1", 0, "R")
			d.line(31, 6, FormatMoney(l.Total()), "1", 1, "R")
		}
		d.line(155, 6, "Итого", "1", 0, "R")
		d.line(31, 6, FormatMoney(b.Total()), "1", 1, "R")
	}
	return d.render()
}

func kindTitle(k finance.Kind) string {
	switch k {
	case finance.KindIncome:
		return "Приход"
	case finance.KindMaterial:
		return "Материал"
	case finance.KindService:
		return "Услуга"
	}
	return string(k)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
