package workflow

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Spok95/construction-bot/internal/domain/batches"
	"github.com/Spok95/construction-bot/internal/export"
)

func money(d decimal.Decimal) string { return export.FormatMoney(d) }

// RenderLines строки заявки для сообщения; withPrices добавляет цены и итог
func RenderLines(lines []batches.Line, withPrices bool) string {
	if len(lines) == 0 {
		return "Список пуст."
	}
	var b strings.Builder
	total := decimal.Zero
	for i, l := range lines {
		fmt.Fprintf(&b, "%d. %s — %g", i+1, l.ProductName, l.Quantity)
		if withPrices {
			if l.Priced() {
				fmt.Fprintf(&b, " × %s = %s", money(decimal.NewFromFloat(l.UnitPrice)), money(l.Total()))
			} else {
				b.WriteString(" × —")
			}
			total = total.Add(l.Total())
		}
		b.WriteByte('\n')
	}
	if withPrices {
		fmt.Fprintf(&b, "\nИтого: %s", money(total))
	}
	return strings.TrimRight(b.String(), "\n")
}
