// Package draft — черновик заявки на материалы, живущий в контексте диалога.
package draft

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Spok95/construction-bot/internal/dialog"
)

var (
	ErrEmptyInput  = errors.New("пустой ввод")
	ErrInvalidNum  = errors.New("некорректное число")
	ErrNonPositive = errors.New("число должно быть больше нуля")
)

// DefaultUnit единица, если ИИ её не вернул
const DefaultUnit = "шт"

type Line struct {
	Name string  `json:"name"`
	Qty  float64 `json:"qty"`
}

// ParseManual разбирает «Название Количество».
// Последний токен — количество, если это положительное число; иначе весь текст
// считается названием с количеством 1. Ошибка только для пустого ввода.
func ParseManual(text string) (Line, error) {
	trimmed := strings.TrimSpace(text)
	parts := strings.Fields(trimmed)
	switch {
	case len(parts) == 0:
		return Line{}, ErrEmptyInput
	case len(parts) >= 2:
		if qty, ok := parseQty(parts[len(parts)-1]); ok {
			return Line{Name: strings.Join(parts[:len(parts)-1], " "), Qty: qty}, nil
		}
	}
	return Line{Name: trimmed, Qty: 1}, nil
}

func parseQty(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	return f, true
}

// ParseAmount цена/сумма: пробелы убираем, запятая как десятичный разделитель
func ParseAmount(text string) (float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(text), " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return 0, ErrEmptyInput
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidNum
	}
	if f <= 0 {
		return 0, ErrNonPositive
	}
	return f, nil
}

// Extracted позиция, распознанная ИИ
type Extracted struct {
	NameRaw   string
	NameClean string
	Qty       float64
	Unit      string
}

// FromExtracted приводит распознанные позиции к строкам черновика «Название (ед.)»
func FromExtracted(items []Extracted) []Line {
	out := make([]Line, 0, len(items))
	for _, it := range items {
		name := strings.TrimSpace(it.NameClean)
		if name == "" {
			name = strings.TrimSpace(it.NameRaw)
		}
		if name == "" {
			name = "Без названия"
		}
		unit := strings.TrimSpace(it.Unit)
		if unit == "" {
			unit = DefaultUnit
		}
		qty := it.Qty
		if qty <= 0 || math.IsNaN(qty) || math.IsInf(qty, 0) {
			qty = 1
		}
		out = append(out, Line{Name: fmt.Sprintf("%s (%s)", name, unit), Qty: qty})
	}
	return out
}

// Lines читает черновик из payload (в памяти или после JSON)
func Lines(p dialog.Payload) []Line {
	switch v := p[dialog.SlotMRLines].(type) {
	case []Line:
		return append([]Line(nil), v...)
	case []any:
		out := make([]Line, 0, len(v))
		for _, e := range v {
			m, ok := e.(map[string]any)
			if !ok {
				continue
			}
			name, _ := m["name"].(string)
			qty, _ := m["qty"].(float64)
			if name == "" {
				continue
			}
			if qty <= 0 {
				qty = 1
			}
			out = append(out, Line{Name: name, Qty: qty})
		}
		return out
	}
	return nil
}

// Append дописывает строки к черновику, ничего не затирая
func Append(p dialog.Payload, lines ...Line) dialog.Payload {
	out := p.Clone()
	out[dialog.SlotMRLines] = append(Lines(p), lines...)
	return out
}

// Render текст черновика для пользователя
func Render(lines []Line) string {
	if len(lines) == 0 {
		return "Список пуст."
	}
	var b strings.Builder
	for i, l := range lines {
		fmt.Fprintf(&b, "%d. %s — %s\n", i+1, l.Name, FormatQty(l.Qty))
	}
	return strings.TrimRight(b.String(), "\n")
}

func FormatQty(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}
