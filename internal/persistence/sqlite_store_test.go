package persistence

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "prospector.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewSQLiteStore_RequiresPath(t *testing.T) {
	t.Parallel()

	_, err := NewSQLiteStore("  ")
	require.Error(t, err)
}

func TestSQLiteStore_ReopenKeepsMigrations(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prospector.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	_, err = store.UpsertCompanyPeople(context.Background(), []CompanyPerson{{CompanyName: "Acme", EmployeeName: "Jane Doe"}})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	require.NoError(t, reopened.Ping(context.Background()))

	people, err := reopened.FindCompanyPeople(context.Background(), "acme")
	require.NoError(t, err)
	assert.Len(t, people, 1)
}

func TestMigrationVersion(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, migrationVersion("001_init.sql"))
	assert.Equal(t, 12, migrationVersion("012_more.sql"))
	assert.Equal(t, 0, migrationVersion("init.sql"))
}

func TestSQLiteStore_CompanyPeopleCaseInsensitive(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	n, err := store.UpsertCompanyPeople(ctx, []CompanyPerson{
		{CompanyName: "Acme", Website: "acme.com", EmployeeName: "Jane Doe", EmployeeTitle: "CEO"},
		{CompanyName: "ACME", Website: "acme.com", EmployeeName: "John Roe"},
		{CompanyName: "École Ouverte", EmployeeName: "Eva Berg", EmployeeTitle: "CTO"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, name := range []string{"acme", "ACME", " Acme "} {
		people, err := store.FindCompanyPeople(ctx, name)
		require.NoError(t, err)
		require.Len(t, people, 2, name)
		assert.Equal(t, "Jane Doe", people[0].EmployeeName)
		assert.Equal(t, "CEO", people[0].EmployeeTitle)
		assert.Equal(t, "acme.com", people[0].Website)
		assert.Empty(t, people[1].EmployeeTitle)
	}

	folded, err := store.FindCompanyPeople(ctx, "ÉCOLE OUVERTE")
	require.NoError(t, err)
	assert.Len(t, folded, 1)

	none, err := store.FindCompanyPeople(ctx, "Globex")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = store.UpsertCompanyPeople(ctx, []CompanyPerson{{CompanyName: "acme", EmployeeName: "Jane Doe", EmployeeTitle: "Chair"}})
	require.NoError(t, err)
	people, err := store.FindCompanyPeople(ctx, "Acme")
	require.NoError(t, err)
	require.Len(t, people, 2)
	assert.Equal(t, "Chair", people[0].EmployeeTitle)

	_, err = store.UpsertCompanyPeople(ctx, []CompanyPerson{{CompanyName: "Acme"}})
	assert.Error(t, err)
}

func TestSQLiteStore_UsersAndSessions(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	user := &User{ID: "u1", Email: "Jo@Example.com", Name: "Jo", PasswordHash: "hash", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.CreateUser(ctx, user))
	assert.ErrorIs(t, store.CreateUser(ctx, &User{ID: "u2", Email: "jo@example.com", CreatedAt: now, UpdatedAt: now}), ErrDuplicate)

	got, err := store.GetUserByEmail(ctx, "JO@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.False(t, got.IsAnonymous)

	anon := &User{ID: "anon", IsAnonymous: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.CreateUser(ctx, anon))
	gotAnon, err := store.GetUser(ctx, "anon")
	require.NoError(t, err)
	assert.True(t, gotAnon.IsAnonymous)
	assert.Empty(t, gotAnon.Email)

	_, err = store.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.CreateSession(ctx, &Session{Token: "live", UserID: "u1", ExpiresAt: now.Add(time.Hour), CreatedAt: now}))
	require.NoError(t, store.CreateSession(ctx, &Session{Token: "old", UserID: "u1", ExpiresAt: now.Add(-time.Hour), CreatedAt: now}))

	sess, sessUser, err := store.GetSession(ctx, "live", now)
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.UserID)
	assert.Equal(t, "Jo", sessUser.Name)

	_, _, err = store.GetSession(ctx, "old", now)
	assert.ErrorIs(t, err, ErrNotFound)

	purged, err := store.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	require.NoError(t, store.DeleteSession(ctx, "live"))
	_, _, err = store.GetSession(ctx, "live", now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_ChatsOwnershipAndPaging(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for i := 0; i < 25; i++ {
		require.NoError(t, store.CreateChat(ctx, &Chat{
			ID:        fmt.Sprintf("c%02d", i),
			UserID:    "u1",
			Title:     fmt.Sprintf("Chat %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, store.CreateChat(ctx, &Chat{ID: "other", UserID: "u2", Title: "Theirs", CreatedAt: base}))

	page1, total, err := store.ListChats(ctx, "u1", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	require.Len(t, page1, 20)
	assert.Equal(t, "c24", page1[0].ID)

	page2, _, err := store.ListChats(ctx, "u1", 20, 20)
	require.NoError(t, err)
	require.Len(t, page2, 5)
	assert.Equal(t, "c00", page2[4].ID)

	_, err = store.GetChat(ctx, "u1", "other")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.AddMessage(ctx, &Message{ID: "m1", ChatID: "c00", Role: "user", Content: "hi", CreatedAt: base}))
	require.NoError(t, store.AddMessage(ctx, &Message{ID: "m2", ChatID: "c00", Role: "assistant", Content: "hello", CreatedAt: base}))

	msgs, err := store.ListMessages(ctx, "c00")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "assistant", msgs[1].Role)

	assert.ErrorIs(t, store.DeleteChat(ctx, "u2", "c00"), ErrNotFound)
	require.NoError(t, store.DeleteChat(ctx, "u1", "c00"))

	_, err = store.GetChat(ctx, "u1", "c00")
	assert.ErrorIs(t, err, ErrNotFound)
	msgs, err = store.ListMessages(ctx, "c00")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
