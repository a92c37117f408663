// Package importer loads company/person rows into the company cache table.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/applyo/prospector/internal/persistence"
	"github.com/applyo/prospector/pkg/log"
)

const DefaultBatchSize = 500

// Upserter is the write side of the company table.
type Upserter interface {
	UpsertCompanyPeople(ctx context.Context, people []persistence.CompanyPerson) (int, error)
}

type Stats struct {
	Rows     int `json:"rows"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

var columns = []string{"company_name", "website", "employee_name", "employee_title"}

// ImportCSV reads a header row naming company_name, website, employee_name and
// employee_title in any order, then upserts rows in batches. Rows without a
// company or employee name are skipped.
func ImportCSV(ctx context.Context, r io.Reader, store Upserter, batchSize int) (Stats, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Stats{}, fmt.Errorf("csv is empty")
	}
	if err != nil {
		return Stats{}, fmt.Errorf("read header: %w", err)
	}
	index, err := headerIndex(header)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	batch := make([]persistence.CompanyPerson, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := store.UpsertCompanyPeople(ctx, batch)
		if err != nil {
			return fmt.Errorf("upsert batch ending at row %d: %w", stats.Rows, err)
		}
		stats.Imported += n
		batch = batch[:0]
		return nil
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read row %d: %w", stats.Rows+1, err)
		}
		stats.Rows++

		row := persistence.CompanyPerson{
			CompanyName:   field(record, index["company_name"]),
			Website:       field(record, index["website"]),
			EmployeeName:  field(record, index["employee_name"]),
			EmployeeTitle: field(record, index["employee_title"]),
		}
		if row.CompanyName == "" || row.EmployeeName == "" {
			stats.Skipped++
			log.Debug("Import: skipping row %d without company or employee name", stats.Rows)
			continue
		}

		batch = append(batch, row)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}

	log.Info("Import: %d rows, %d imported, %d skipped", stats.Rows, stats.Imported, stats.Skipped)
	return stats, nil
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(columns))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, c := range []string{"company_name", "employee_name"} {
		if _, ok := index[c]; !ok {
			return nil, fmt.Errorf("csv header is missing %q", c)
		}
	}
	ret := make(map[string]int, len(columns))
	for _, c := range columns {
		if i, ok := index[c]; ok {
			ret[c] = i
		} else {
			ret[c] = -1
		}
	}
	return ret, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
