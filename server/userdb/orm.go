package userdb

import (
	"github.com/cyclopcam/dbh"

	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/defs"
)

// BaseModel is our base class for a GORM model.
// The default GORM Model uses int, but we prefer int64.
type BaseModel struct {
	ID int64 `gorm:"primaryKey" json:"id"`
}

type User struct {
	BaseModel
	Username        string      `json:"username"`
	Email           string      `json:"email"`
	EmailNormalized string      `json:"-"`
	Password        []byte      `json:"-" gorm:"default:null"`
	Firstname       string      `json:"firstname" gorm:"default:null"`
	Lastname        string      `json:"lastname" gorm:"default:null"`
	Role            string      `json:"role"`
	Blocked         bool        `json:"blocked"`
	Confirmed       bool        `json:"confirmed"`
	AuthKey         string      `json:"-" gorm:"default:null"` // External-identity correlation key. Set once, never overwritten.
	CreatedAt       dbh.IntTime `json:"createdAt"`
	UpdatedAt       dbh.IntTime `json:"updatedAt"`
}

// EffectiveRole collapses the stored role string onto the four known roles.
func (u *User) EffectiveRole() defs.Role {
	return defs.ParseRole(u.Role)
}

// Audit actions
const (
	AuditActionCreated = "created"
	AuditActionUpdated = "updated"
	AuditActionDeleted = "deleted"
)

// AuditLogEntry is append-only. Entries are never updated or deleted; the
// ownership of a content item is decided by its earliest "created" entry.
type AuditLogEntry struct {
	BaseModel
	ContentID    string      `json:"contentId"`
	Action       string      `json:"action"`
	CustomUserID int64       `json:"customUserId" gorm:"default:null"`
	ContentType  string      `json:"contentType" gorm:"default:null"`
	ContentName  string      `json:"contentName" gorm:"default:null"`
	Timestamp    dbh.IntTime `json:"timestamp"`
}

func NormalizeEmail(email string) string {
	return normalizeLower(email)
}
