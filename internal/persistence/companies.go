package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// CompanyKey folds a company name for case-insensitive matching.
func CompanyKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// FindCompanyPeople returns every cached person of the company, matching the
// name in any letter casing. No rows is not an error.
func (s *SQLiteStore) FindCompanyPeople(ctx context.Context, company string) ([]CompanyPerson, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT company_name, website, employee_name, employee_title
		 FROM companies
		 WHERE company_key = ?
		 ORDER BY id ASC`,
		CompanyKey(company),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]CompanyPerson, 0)
	for rows.Next() {
		var item CompanyPerson
		var website, title sql.NullString
		if err := rows.Scan(&item.CompanyName, &website, &item.EmployeeName, &title); err != nil {
			return nil, err
		}
		item.Website = website.String
		item.EmployeeTitle = title.String
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

// UpsertCompanyPeople writes rows in one transaction. A person already
// stored for the company gets its title and website refreshed.
func (s *SQLiteStore) UpsertCompanyPeople(ctx context.Context, people []CompanyPerson) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO companies (company_name, company_key, website, employee_name, employee_title)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(company_key, employee_name) DO UPDATE SET
			company_name=excluded.company_name,
			website=excluded.website,
			employee_title=excluded.employee_title`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	written := 0
	for _, p := range people {
		name := strings.TrimSpace(p.CompanyName)
		person := strings.TrimSpace(p.EmployeeName)
		if name == "" || person == "" {
			return 0, fmt.Errorf("row %d: company and employee name are required", written+1)
		}
		if _, err := stmt.ExecContext(ctx, name, CompanyKey(name), nullIfEmpty(p.Website), person, nullIfEmpty(p.EmployeeTitle)); err != nil {
			return 0, fmt.Errorf("row %d: %w", written+1, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return written, nil
}

func nullIfEmpty(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}
