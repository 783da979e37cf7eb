package userdb

import (
	"time"

	"github.com/cyclopcam/dbh"
)

// AppendAudit writes one audit entry. Callers treat this as fire-and-forget:
// a failed audit write is logged and discarded, and must never fail or delay
// the operation that triggered it.
func (u *UserDB) AppendAudit(contentID, action string, customUserID int64, contentType, contentName string) {
	entry := AuditLogEntry{
		ContentID:    contentID,
		Action:       action,
		CustomUserID: customUserID,
		ContentType:  contentType,
		ContentName:  contentName,
		Timestamp:    dbh.MakeIntTime(time.Now().UTC()),
	}
	if err := u.DB.Create(&entry).Error; err != nil {
		u.Log.Errorf("Failed to write audit entry (%v %v): %v", action, contentID, err)
	}
}

// ContentOwner returns the user id of the earliest "created" entry for the
// given content id, or zero if no such entry exists. Later updates and
// deletes never change ownership.
func (u *UserDB) ContentOwner(contentID string) int64 {
	entry := AuditLogEntry{}
	u.DB.Where("content_id = ? AND action = ?", contentID, AuditActionCreated).
		Order("timestamp ASC, id ASC").
		Limit(1).
		Find(&entry)
	return entry.CustomUserID
}

// IsOwner reports whether userID created the given content item.
// If the item has no creation entry, nobody owns it.
func (u *UserDB) IsOwner(contentID string, userID int64) bool {
	owner := u.ContentOwner(contentID)
	return owner != 0 && owner == userID
}

// AuditActionTotals returns the number of audit entries per action.
func (u *UserDB) AuditActionTotals() (map[string]int64, error) {
	type row struct {
		Action string
		N      int64
	}
	rows := []row{}
	err := u.DB.Model(&AuditLogEntry{}).
		Select("action, COUNT(*) AS n").
		Group("action").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	totals := map[string]int64{}
	for _, r := range rows {
		totals[r.Action] = r.N
	}
	return totals, nil
}
