package session

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"

	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/defs"
	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/userdb"
)

func createTestRegistry(t *testing.T) (*Registry, *userdb.UserDB) {
	users, err := userdb.NewUserDB(logs.NewTestingLog(t), dbh.MakeSqliteConfig(filepath.Join(t.TempDir(), "users.sqlite")), 0)
	require.NoError(t, err)
	return NewRegistry(logs.NewTestingLog(t), NewMemStore(), users), users
}

func TestCreateAndGet(t *testing.T) {
	reg, _ := createTestRegistry(t)
	id1 := reg.Create(1, "a@b.com", "a", defs.RoleViewer, "", AuthTypeSession)
	id2 := reg.Create(1, "a@b.com", "a", defs.RoleViewer, "", AuthTypeSession)
	require.NotEmpty(t, id1)
	require.NotEqual(t, id1, id2)

	data := reg.Get(id1)
	require.NotNil(t, data)
	require.Equal(t, int64(1), data.UserID)
	require.Nil(t, reg.Get("no-such-session"))

	require.True(t, reg.Destroy(id2))
	require.False(t, reg.Destroy(id2))
	require.Nil(t, reg.Get(id2))
}

func TestGetBumpsLastAccessed(t *testing.T) {
	reg, _ := createTestRegistry(t)
	id := reg.Create(1, "a@b.com", "a", defs.RoleViewer, "", AuthTypeSession)
	first := reg.Get(id)
	require.NotNil(t, first)
	time.Sleep(5 * time.Millisecond)
	second := reg.Get(id)
	require.True(t, second.LastAccessedAt.After(first.LastAccessedAt) || second.LastAccessedAt.Equal(first.LastAccessedAt))
	require.True(t, second.LastAccessedAt.After(first.CreatedAt))
}

func TestTouchDoesNotResurrect(t *testing.T) {
	store := NewMemStore()
	store.Set("s1", &Data{SessionID: "s1", UserID: 1})
	require.NotNil(t, store.Touch("s1", time.Now()))
	require.True(t, store.Delete("s1"))

	// Touching a deleted session must not re-insert it
	require.Nil(t, store.Touch("s1", time.Now()))
	require.Nil(t, store.Get("s1"))
	require.Empty(t, store.Snapshot())
}

func TestConcurrentGetAndDestroy(t *testing.T) {
	reg, _ := createTestRegistry(t)
	for i := 0; i < 100; i++ {
		id := reg.Create(1, "a@b.com", "a", defs.RoleViewer, "", AuthTypeSession)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg.Get(id)
		}()
		go func() {
			defer wg.Done()
			reg.Destroy(id)
		}()
		wg.Wait()
		// Whatever the interleaving, a lookup after destroy finds nothing
		reg.Destroy(id)
		require.Nil(t, reg.Get(id))
	}
}

func TestValidateDestroysStaleUsers(t *testing.T) {
	reg, users := createTestRegistry(t)

	alive, err := users.CreateUser("alive", "alive@example.com", "pw", "", "", defs.RoleEditor)
	require.NoError(t, err)
	blocked, err := users.CreateUser("blocked", "blocked@example.com", "pw", "", "", defs.RoleViewer)
	require.NoError(t, err)

	aliveSession := reg.Create(alive.ID, alive.Email, alive.Username, defs.RoleEditor, "", AuthTypeSession)
	blockedSession := reg.Create(blocked.ID, blocked.Email, blocked.Username, defs.RoleViewer, "", AuthTypeSession)
	deletedSession := reg.Create(999, "ghost@example.com", "ghost", defs.RoleViewer, "", AuthTypeSession)

	require.NotNil(t, reg.Validate(aliveSession))

	// A session whose user was deleted is destroyed at validation time
	require.Nil(t, reg.Validate(deletedSession))
	require.Empty(t, reg.UserSessions(999))

	// Same for a blocked user
	require.NoError(t, users.DB.Model(&userdb.User{}).Where("id = ?", blocked.ID).Update("blocked", true).Error)
	require.Nil(t, reg.Validate(blockedSession))
	require.Empty(t, reg.UserSessions(blocked.ID))
}

func TestValidateRefreshesRole(t *testing.T) {
	reg, users := createTestRegistry(t)
	user, err := users.CreateUser("dan", "dan@example.com", "pw", "", "", defs.RoleViewer)
	require.NoError(t, err)
	id := reg.Create(user.ID, user.Email, user.Username, defs.RoleViewer, "", AuthTypeSession)

	// A role change takes effect without re-login
	require.NoError(t, users.DB.Model(&userdb.User{}).Where("id = ?", user.ID).Update("role", "editor").Error)
	data := reg.Validate(id)
	require.NotNil(t, data)
	require.Equal(t, defs.RoleEditor, data.Role)
}

func TestDestroyAllForUser(t *testing.T) {
	reg, users := createTestRegistry(t)
	u1, err := users.CreateUser("u1", "u1@example.com", "pw", "", "", defs.RoleViewer)
	require.NoError(t, err)
	u2, err := users.CreateUser("u2", "u2@example.com", "pw", "", "", defs.RoleViewer)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		reg.Create(u1.ID, u1.Email, u1.Username, defs.RoleViewer, "", AuthTypeSession)
	}
	other := reg.Create(u2.ID, u2.Email, u2.Username, defs.RoleViewer, "", AuthTypeSession)

	require.Equal(t, 3, reg.DestroyAllForUser(u1.ID))
	require.Empty(t, reg.UserSessions(u1.ID))
	require.NotNil(t, reg.Get(other))
}

func TestSweepExpired(t *testing.T) {
	reg, _ := createTestRegistry(t)
	store := reg.store

	fresh := reg.Create(1, "a@b.com", "a", defs.RoleViewer, "", AuthTypeSession)
	stale := reg.Create(2, "b@b.com", "b", defs.RoleViewer, "", AuthTypeSession)

	// Age the second session past the idle limit
	data := store.Get(stale)
	data.LastAccessedAt = time.Now().UTC().Add(-25 * time.Hour)
	store.Set(stale, data)

	require.Equal(t, 1, reg.SweepExpired())
	require.NotNil(t, reg.Get(fresh))
	require.Nil(t, reg.Get(stale))
}

func TestStats(t *testing.T) {
	reg, _ := createTestRegistry(t)
	reg.Create(1, "a@b.com", "a", defs.RoleViewer, "", AuthTypeSession)
	reg.Create(1, "a@b.com", "a", defs.RoleViewer, "", AuthTypePlatformHeader)
	reg.Create(2, "b@b.com", "b", defs.RoleViewer, "", AuthTypeSession)

	stats := reg.Stats()
	require.Equal(t, 3, stats.TotalSessions)
	require.Equal(t, 2, stats.ActiveUsers)
}
