// Package session tracks logical user sessions in memory. Sessions are
// process-lifetime state: they are created on register/login/platform
// authentication, refreshed on every lookup, and swept after 24 hours of
// inactivity.
package session

import (
	"fmt"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/google/uuid"

	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/defs"
	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/userdb"
)

// MaxIdleTime is how long a session survives without being touched.
const MaxIdleTime = 24 * time.Hour

// AuthType records which mechanism authenticated the session's creator.
type AuthType string

const (
	AuthTypeSession        AuthType = "SESSION"
	AuthTypePlatformHeader AuthType = "PLATFORM_HEADER"
)

// Data is one logical session. A user may hold any number of concurrent
// sessions (one per device/tab).
type Data struct {
	SessionID      string
	UserID         int64
	Email          string
	Username       string
	Role           defs.Role
	AuthKey        string
	AuthType       AuthType
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

type Stats struct {
	TotalSessions int `json:"totalSessions"`
	ActiveUsers   int `json:"activeUsers"`
}

type Registry struct {
	log   logs.Log
	store Store
	users *userdb.UserDB

	shutdown         chan bool // Closed when it's time to shut down
	sweepThreadClose chan bool // The sweep thread closes this channel when it exits
}

func NewRegistry(log logs.Log, store Store, users *userdb.UserDB) *Registry {
	return &Registry{
		log:   log,
		store: store,
		users: users,
	}
}

// newSessionID combines a timestamp with a random component, so ids are
// unique and not guessable from a counter.
func newSessionID(now time.Time) string {
	return fmt.Sprintf("%x-%v", now.UnixMilli(), uuid.NewString())
}

// Create registers a new session and returns its id.
func (r *Registry) Create(userID int64, email, username string, role defs.Role, authKey string, authType AuthType) string {
	now := time.Now().UTC()
	data := Data{
		SessionID:      newSessionID(now),
		UserID:         userID,
		Email:          email,
		Username:       username,
		Role:           role,
		AuthKey:        authKey,
		AuthType:       authType,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	r.store.Set(data.SessionID, &data)
	return data.SessionID
}

// Get returns the session, bumping LastAccessedAt, or nil if it doesn't exist.
func (r *Registry) Get(sessionID string) *Data {
	return r.store.Touch(sessionID, time.Now().UTC())
}

// Validate returns the session only if its backing user still exists and is
// not blocked. A session whose user is gone or blocked is destroyed eagerly.
// The session's role is refreshed from the current user record, so a role
// change takes effect without re-login.
func (r *Registry) Validate(sessionID string) *Data {
	data := r.Get(sessionID)
	if data == nil {
		return nil
	}
	user, err := r.users.GetUser(data.UserID)
	if err != nil || user.Blocked {
		r.store.Delete(sessionID)
		return nil
	}
	if role := user.EffectiveRole(); role != data.Role {
		data.Role = role
		r.store.Set(sessionID, data)
	}
	return data
}

// Destroy removes one session. Returns true if it existed.
func (r *Registry) Destroy(sessionID string) bool {
	return r.store.Delete(sessionID)
}

// DestroyAllForUser removes every session of the given user (logout on all
// devices), and returns the number destroyed. Other users are untouched.
func (r *Registry) DestroyAllForUser(userID int64) int {
	destroyed := 0
	for _, data := range r.store.Snapshot() {
		if data.UserID == userID && r.store.Delete(data.SessionID) {
			destroyed++
		}
	}
	return destroyed
}

// UserSessions returns all sessions belonging to the given user.
func (r *Registry) UserSessions(userID int64) []*Data {
	sessions := []*Data{}
	for _, data := range r.store.Snapshot() {
		if data.UserID == userID {
			sessions = append(sessions, data)
		}
	}
	return sessions
}

// SweepExpired removes sessions idle for longer than MaxIdleTime.
func (r *Registry) SweepExpired() int {
	removed := r.store.Sweep(time.Now().UTC().Add(-MaxIdleTime))
	if removed != 0 {
		r.log.Infof("Session sweep removed %v expired sessions", removed)
	}
	return removed
}

// Stats returns the session count and the number of distinct users holding
// at least one session.
func (r *Registry) Stats() Stats {
	all := r.store.Snapshot()
	users := map[int64]bool{}
	for _, data := range all {
		users[data.UserID] = true
	}
	return Stats{
		TotalSessions: len(all),
		ActiveUsers:   len(users),
	}
}

// StartSweeper launches the periodic background sweep. Call Close to stop it.
func (r *Registry) StartSweeper(interval time.Duration) {
	if interval <= 0 || interval > MaxIdleTime {
		interval = time.Hour
	}
	r.shutdown = make(chan bool)
	r.sweepThreadClose = make(chan bool)
	go func() {
		defer close(r.sweepThreadClose)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.SweepExpired()
			case <-r.shutdown:
				return
			}
		}
	}()
}

func (r *Registry) Close() {
	if r.shutdown != nil {
		close(r.shutdown)
		<-r.sweepThreadClose
		r.shutdown = nil
	}
}
