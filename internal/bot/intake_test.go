package bot

import (
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Spok95/construction-bot/internal/dialog"
	"github.com/Spok95/construction-bot/internal/resolver"
)

func intakeFileBytes(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseIntake(t *testing.T) {
	data := intakeFileBytes(t,
		[]any{"Name", "Kind", "Qty", "Unit", "Unit_Price", "Stage_ID"},
		[]any{"Гипсокартон", "material", "10", "лист", "450,5", "7"},
		[]any{"Монтаж", "SERVICE", "1", "", "", "8"},
		[]any{"", "material", "1", "", "", "7"},
		[]any{"Ротбанд", "tool", "3", "", "", "7"},
		[]any{"Краска", "material", "0", "", "", "7"},
		[]any{"Грунт", "material", "2", "", "-1", "7"},
		[]any{"Шпаклёвка", "material", "2", "", "", "x"},
	)

	rows, bad, err := parseIntake(data, testNow)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, intakeRow{N: 2, Line: resolver.Line{
		Kind: resolver.KindMaterial, StageID: 7, Name: "Гипсокартон", Qty: 10, Price: 450.5, Unit: "лист", Date: testNow,
	}}, rows[0])
	assert.Equal(t, resolver.KindService, rows[1].Line.Kind)
	assert.Equal(t, 3, rows[1].N)

	require.Len(t, bad, 4)
	assert.Contains(t, bad[0], "строка 5")
	assert.Contains(t, bad[1], "количество")
	assert.Contains(t, bad[2], "цена")
	assert.Contains(t, bad[3], "этап")
}

func TestParseIntakePositionalFallback(t *testing.T) {
	data := intakeFileBytes(t,
		[]any{"Тип", "Наименование", "Кол-во", "Ед", "Цена", "Этап"},
		[]any{"material", "Профиль", "20", "шт", "120", "3"},
	)
	rows, bad, err := parseIntake(data, testNow)
	require.NoError(t, err)
	assert.Empty(t, bad)
	require.Len(t, rows, 1)
	assert.Equal(t, "Профиль", rows[0].Line.Name)
	assert.Equal(t, 120.0, rows[0].Line.Price)
	assert.Equal(t, int64(3), rows[0].Line.StageID)
}

func TestParseIntakeEmpty(t *testing.T) {
	_, _, err := parseIntake(intakeFileBytes(t, []any{"kind", "name"}), testNow)
	assert.ErrorIs(t, err, errIntakeEmpty)

	_, _, err = parseIntake([]byte("not a workbook"), testNow)
	assert.Error(t, err)
}

func TestIntakeUpload(t *testing.T) {
	e := newEnv(t)
	e.pusher.Fn = func(l resolver.Line) (resolver.Result, error) {
		if l.StageID == 99 {
			return resolver.Result{}, &resolver.MissingTaskError{StageID: 99}
		}
		return resolver.Result{Ref: resolver.Ref{Model: "x_stage_line", ID: 1}, Created: l.Name == "Гипсокартон"}, nil
	}
	e.sender.PutFile("xlsx-1", intakeFileBytes(t,
		intakeColumnsRow(),
		[]any{"material", "Гипсокартон", "10", "лист", "450", "7"},
		[]any{"material", "Ротбанд", "3", "меш", "520", "7"},
		[]any{"service", "Монтаж", "1", "", "", "99"},
	))

	e.click(tgSupply, "intake:start")
	assert.Equal(t, dialog.StateIntakeFileWait, e.states.State(tgSupply))

	e.message(tgSupply, &tgbotapi.Message{Document: &tgbotapi.Document{FileID: "xlsx-1", FileName: "prihod.XLSX"}})
	assert.Len(t, e.pusher.Pushed(), 3)
	assert.Equal(t, dialog.StateIdle, e.states.State(tgSupply))
	last, _ := e.sender.Last(tgSupply)
	assert.Contains(t, last.Text, "Новых: 1\nОбновлено: 1")
	assert.Contains(t, last.Text, "Пропущено: 1")
}

func TestIntakeConfigErrorGoesToAdmin(t *testing.T) {
	e := newEnv(t)
	e.pusher.Fn = func(resolver.Line) (resolver.Result, error) {
		return resolver.Result{}, errors.Join(resolver.ErrNoEligibleShape, errors.New("x_stage_line"))
	}
	e.sender.PutFile("xlsx-2", intakeFileBytes(t,
		intakeColumnsRow(),
		[]any{"material", "Гипсокартон", "10", "лист", "450", "7"},
		[]any{"material", "Ротбанд", "3", "меш", "520", "7"},
	))

	e.click(tgSupply, "intake:start")
	e.message(tgSupply, &tgbotapi.Message{Document: &tgbotapi.Document{FileID: "xlsx-2", FileName: "prihod.xlsx"}})
	assert.Len(t, e.pusher.Pushed(), 1)
	assert.True(t, e.sender.Contains(adminChat, "Ошибка настройки учёта"))
	assert.True(t, e.sender.Contains(tgSupply, "Администратор уведомлён"))
}

func intakeColumnsRow() []any {
	out := make([]any, len(intakeColumns))
	for i, c := range intakeColumns {
		out[i] = c
	}
	return out
}
