// Package roster reads class rosters from spreadsheets and registers them.
package roster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/sanmon-backend/internal/model"
	"github.com/stemsi/sanmon-backend/internal/service"
	"github.com/xuri/excelize/v2"
)

// Header names accepted for each column, compared case-insensitively.
var headerAliases = map[string]string{
	"класс":                 "name_class",
	"name_class":            "name_class",
	"классный руководитель": "man_class",
	"man_class":             "man_class",
	"количество учеников":   "count_class",
	"count_class":           "count_class",
}

// RowError describes a spreadsheet row that could not be used.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Parse reads the first sheet of an .xlsx workbook. The first row is the
// header; rows with every cell blank are ignored.
func Parse(r io.Reader) ([]model.ClassRoster, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	cols := make(map[string]int)
	for i, h := range rows[0] {
		if field, ok := headerAliases[strings.ToLower(strings.TrimSpace(h))]; ok {
			cols[field] = i
		}
	}
	for _, field := range []string{"name_class", "count_class"} {
		if _, ok := cols[field]; !ok {
			return nil, nil, fmt.Errorf("missing %s column", field)
		}
	}

	var (
		rosters []model.ClassRoster
		bad     []RowError
	)
	for i, row := range rows[1:] {
		line := i + 2
		cell := func(field string) string {
			idx, ok := cols[field]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		if blank(row) {
			continue
		}

		count, err := strconv.Atoi(cell("count_class"))
		if err != nil {
			bad = append(bad, RowError{Row: line, Reason: fmt.Sprintf("count_class %q is not a number", cell("count_class"))})
			continue
		}
		ros := model.ClassRoster{NameClass: cell("name_class"), ManClass: cell("man_class"), CountClass: count}
		if fields := ros.Validate(); fields != nil {
			bad = append(bad, RowError{Row: line, Reason: (&service.ValidationError{Fields: fields}).Error()})
			continue
		}
		rosters = append(rosters, ros)
	}
	return rosters, bad, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Registrar is the part of the class service an import needs.
type Registrar interface {
	RegisterClass(ctx context.Context, roster model.ClassRoster) (*model.ClassRecord, error)
	UpdateRoster(ctx context.Context, roster model.ClassRoster) (*model.ClassRecord, error)
}

// Result counts what an import did.
type Result struct {
	Created int
	Updated int
	Skipped int
}

// Import registers each roster. Existing classes are updated when update is
// true and skipped otherwise. Storage errors stop the import.
func Import(ctx context.Context, reg Registrar, rosters []model.ClassRoster, update bool, log zerolog.Logger) (Result, error) {
	var res Result
	for _, ros := range rosters {
		_, err := reg.RegisterClass(ctx, ros)
		switch {
		case err == nil:
			res.Created++
		case errors.Is(err, service.ErrConflict) && update:
			if _, err := reg.UpdateRoster(ctx, ros); err != nil {
				return res, fmt.Errorf("update %s: %w", ros.NameClass, err)
			}
			res.Updated++
		case errors.Is(err, service.ErrConflict):
			log.Info().Str("class", ros.NameClass).Msg("class exists, skipping")
			res.Skipped++
		default:
			return res, fmt.Errorf("register %s: %w", ros.NameClass, err)
		}
	}
	return res, nil
}
