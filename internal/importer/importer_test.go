package importer

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applyo/prospector/internal/persistence"
)

type recordingUpserter struct {
	batches [][]persistence.CompanyPerson
	err     error
}

func (r *recordingUpserter) UpsertCompanyPeople(_ context.Context, people []persistence.CompanyPerson) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.batches = append(r.batches, append([]persistence.CompanyPerson(nil), people...))
	return len(people), nil
}

func TestImportCSV_BatchesAndSkips(t *testing.T) {
	t.Parallel()

	input := "\ufeffEmployee_Name,Company_Name,Website,Employee_Title\n" +
		"Jane Doe,Acme,acme.com,CEO\n" +
		"John Roe,Acme,acme.com,CTO\n" +
		",Acme,acme.com,Intern\n" +
		"Ann Lee,Globex,,VP Sales\n"

	store := &recordingUpserter{}
	stats, err := ImportCSV(context.Background(), strings.NewReader(input), store, 2)
	require.NoError(t, err)

	assert.Equal(t, Stats{Rows: 4, Imported: 3, Skipped: 1}, stats)
	require.Len(t, store.batches, 2)
	assert.Len(t, store.batches[0], 2)
	assert.Equal(t, persistence.CompanyPerson{CompanyName: "Globex", EmployeeName: "Ann Lee", EmployeeTitle: "VP Sales"}, store.batches[1][0])
}

func TestImportCSV_HeaderErrors(t *testing.T) {
	t.Parallel()

	_, err := ImportCSV(context.Background(), strings.NewReader(""), &recordingUpserter{}, 0)
	require.Error(t, err)

	_, err = ImportCSV(context.Background(), strings.NewReader("company_name,website\nAcme,acme.com\n"), &recordingUpserter{}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "employee_name")
}

func TestImportCSV_StoreError(t *testing.T) {
	t.Parallel()

	store := &recordingUpserter{err: errors.New("disk full")}
	_, err := ImportCSV(context.Background(), strings.NewReader("company_name,employee_name\nAcme,Jane\n"), store, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestImportCSV_IntoSQLite(t *testing.T) {
	t.Parallel()

	store, err := persistence.NewSQLiteStore(filepath.Join(t.TempDir(), "import.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	input := "company_name,website,employee_name,employee_title\n" +
		"Acme,acme.com,Jane Doe,CEO\n" +
		"ACME,acme.com,Jane Doe,Chief Executive\n"
	_, err = ImportCSV(context.Background(), strings.NewReader(input), store, 0)
	require.NoError(t, err)

	rows, err := store.FindCompanyPeople(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Chief Executive", rows[0].EmployeeTitle)
}
