// Package cache answers people-discovery requests from stored company rows.
package cache

import (
	"context"
	"net/url"
	"strings"

	"github.com/applyo/prospector/internal/persistence"
	"github.com/applyo/prospector/pkg/log"
)

// Store is the read side of the company table.
type Store interface {
	FindCompanyPeople(ctx context.Context, company string) ([]persistence.CompanyPerson, error)
}

type Person struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// Hit has the same shape as a generated people-discovery result.
type Hit struct {
	Company string   `json:"company"`
	Website string   `json:"website"`
	People  []Person `json:"people"`
}

// Companies looks companies up case-insensitively. It never writes.
type Companies struct {
	store Store
}

func NewCompanies(store Store) *Companies {
	return &Companies{store: store}
}

// Lookup returns the cached people of company. A store error is logged and
// reported as a miss so the caller falls through to generation.
func (c *Companies) Lookup(ctx context.Context, company string) (*Hit, bool) {
	if c == nil || c.store == nil || strings.TrimSpace(company) == "" {
		return nil, false
	}

	rows, err := c.store.FindCompanyPeople(ctx, company)
	if err != nil {
		log.Error("Company cache lookup for %q failed: %v", company, err)
		return nil, false
	}
	if len(rows) == 0 {
		return nil, false
	}

	hit := &Hit{
		Company: rows[0].CompanyName,
		Website: NormalizeURL(rows[0].Website),
		People:  make([]Person, 0, len(rows)),
	}
	for _, row := range rows {
		hit.People = append(hit.People, Person{Name: row.EmployeeName, Role: row.EmployeeTitle})
	}
	return hit, true
}

// NormalizeURL adds https:// when no scheme is given, lower-cases the host
// and drops a trailing slash. Unparseable input is returned trimmed.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimSpace(raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String()
}
