package draft

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/construction-bot/internal/dialog"
)

func TestParseManual(t *testing.T) {
	tests := []struct {
		in      string
		want    Line
		wantErr error
	}{
		{in: "Gipsokarton 12", want: Line{Name: "Gipsokarton", Qty: 12}},
		{in: "Gipsokarton", want: Line{Name: "Gipsokarton", Qty: 1}},
		{in: "Oq bo'yoq 5.5", want: Line{Name: "Oq bo'yoq", Qty: 5.5}},
		{in: "Oq bo'yoq 5,5", want: Line{Name: "Oq bo'yoq", Qty: 5.5}},
		{in: "  Rotband   3  ", want: Line{Name: "Rotband", Qty: 3}},
		{in: "Kabel NYM 3x2.5", want: Line{Name: "Kabel NYM 3x2.5", Qty: 1}},
		{in: "Profil 0", want: Line{Name: "Profil 0", Qty: 1}},
		{in: "Beton NaN", want: Line{Name: "Beton NaN", Qty: 1}},
		{in: "12", want: Line{Name: "12", Qty: 1}},
		{in: "   ", wantErr: ErrEmptyInput},
		{in: "", wantErr: ErrEmptyInput},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseManual(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr error
	}{
		{in: "50000", want: 50000},
		{in: "50 000", want: 50000},
		{in: "12,5", want: 12.5},
		{in: "0", wantErr: ErrNonPositive},
		{in: "-3", wantErr: ErrNonPositive},
		{in: "abc", wantErr: ErrInvalidNum},
		{in: "", wantErr: ErrEmptyInput},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromExtracted(t *testing.T) {
	got := FromExtracted([]Extracted{
		{NameRaw: "gips", NameClean: "Gipsokarton", Qty: 10, Unit: "dona"},
		{NameRaw: "rotband", Qty: 0},
		{},
	})
	assert.Equal(t, []Line{
		{Name: "Gipsokarton (dona)", Qty: 10},
		{Name: "rotband (шт)", Qty: 1},
		{Name: "Без названия (шт)", Qty: 1},
	}, got)
}

func TestAppendAccumulatesAcrossJSONRoundTrips(t *testing.T) {
	batches := [][]Extracted{
		{{NameClean: "A", Qty: 1}, {NameClean: "B", Qty: 2}},
		{{NameClean: "C", Qty: 3}},
		{},
		{{NameClean: "D", Qty: 4}, {NameClean: "E", Qty: 5}, {NameClean: "F", Qty: 6}},
	}

	p := dialog.Payload{}
	total := 0
	for _, items := range batches {
		p = Append(p, FromExtracted(items)...)
		total += len(items)

		// каждое сообщение — отдельный запрос, контекст проходит через JSON
		raw, err := json.Marshal(p)
		require.NoError(t, err)
		p = dialog.Payload{}
		require.NoError(t, json.Unmarshal(raw, &p))
	}
	lines := Lines(p)
	assert.Len(t, lines, total)
	assert.Equal(t, "A (шт)", lines[0].Name)
	assert.Equal(t, "F (шт)", lines[len(lines)-1].Name)
}

func TestRender(t *testing.T) {
	assert.Equal(t, "Список пуст.", Render(nil))
	assert.Equal(t, "1. Gipsokarton — 10\n2. Kraska — 2.5", Render([]Line{{"Gipsokarton", 10}, {"Kraska", 2.5}}))
}
