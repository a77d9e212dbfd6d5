package roster

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/sanmon-backend/internal/model"
	"github.com/stemsi/sanmon-backend/internal/repository"
	"github.com/stemsi/sanmon-backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParse(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{"Класс", "Классный руководитель", "Количество учеников"},
		{"5а", "Иванова", 25},
		{"10б", "", 30},
		{"", "", ""},
		{"7в", "Петров", "много"},
		{"  ", "Сидоров", 20},
		{"8а", "Орлова", 0},
	})

	rosters, bad, err := Parse(buf)
	require.NoError(t, err)
	assert.Equal(t, []model.ClassRoster{
		{NameClass: "5а", ManClass: "Иванова", CountClass: 25},
		{NameClass: "10б", CountClass: 30},
	}, rosters)

	require.Len(t, bad, 3)
	assert.Equal(t, 5, bad[0].Row)
	assert.Contains(t, bad[0].Reason, "not a number")
	assert.Equal(t, 6, bad[1].Row)
	assert.Contains(t, bad[1].Reason, "name_class")
	assert.Equal(t, 7, bad[2].Row)
	assert.Contains(t, bad[2].Reason, "count_class")
}

func TestParseMissingColumn(t *testing.T) {
	buf := workbook(t, [][]interface{}{{"Класс", "Руководитель"}, {"5а", "Иванова"}})
	_, _, err := Parse(buf)
	assert.ErrorContains(t, err, "count_class")
}

func TestParseNotAWorkbook(t *testing.T) {
	_, _, err := Parse(strings.NewReader("name_class,count_class\n5а,25\n"))
	assert.Error(t, err)
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := service.NewClassService(store, service.DefaultThresholdRule, time.UTC, zerolog.Nop())

	rosters := []model.ClassRoster{
		{NameClass: "5а", ManClass: "Иванова", CountClass: 25},
		{NameClass: "5б", ManClass: "Петров", CountClass: 24},
	}
	res, err := Import(ctx, svc, rosters, false, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 2}, res)

	rosters[0].CountClass = 27
	res, err = Import(ctx, svc, rosters, false, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, Result{Skipped: 2}, res)

	res, err = Import(ctx, svc, rosters[:1], true, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, Result{Updated: 1}, res)

	c, err := store.GetClass(ctx, "5а")
	require.NoError(t, err)
	assert.Equal(t, 27, c.CountClass)
}
