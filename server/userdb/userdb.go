// Package userdb owns the persisted state of the proxy: application users and
// the append-only content audit log.
package userdb

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"gorm.io/gorm"

	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/defs"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUserExists    = errors.New("a user with that email or username already exists")
	ErrEmptyPassword = errors.New("password may not be empty")
)

type UserDB struct {
	Log logs.Log
	DB  *gorm.DB
}

func NewUserDB(logger logs.Log, config dbh.DBConfig, flags dbh.DBConnectFlags) (*UserDB, error) {
	if config.Driver == dbh.DriverSqlite {
		os.MkdirAll(filepath.Dir(config.Database), 0770)
	}
	db, err := dbh.OpenDB(logger, config, Migrations(logger), flags)
	if err != nil {
		return nil, fmt.Errorf("Failed to open user database: %w", err)
	}
	return &UserDB{
		Log: logger,
		DB:  db,
	}, nil
}

func normalizeLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CreateUser creates a new user with the given plaintext password.
// The role is stored as one of the four known role strings.
func (u *UserDB) CreateUser(username, email, password string, firstname, lastname string, role defs.Role) (*User, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	existing := int64(0)
	if err := u.DB.Model(&User{}).Where("email_normalized = ? OR username = ?", NormalizeEmail(email), username).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing != 0 {
		return nil, ErrUserExists
	}
	now := time.Now().UTC()
	user := User{
		Username:        username,
		Email:           email,
		EmailNormalized: NormalizeEmail(email),
		Password:        HashPassword(password),
		Firstname:       firstname,
		Lastname:        lastname,
		Role:            string(defs.ParseRole(string(role))),
		Confirmed:       true,
		CreatedAt:       dbh.MakeIntTime(now),
		UpdatedAt:       dbh.MakeIntTime(now),
	}
	if err := u.DB.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser returns the user with the given id, or ErrUserNotFound.
func (u *UserDB) GetUser(id int64) (*User, error) {
	user := User{}
	u.DB.Where("id = ?", id).Find(&user)
	if user.ID == 0 {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

// FindByIdentifier looks a user up by email or username (login identifier).
func (u *UserDB) FindByIdentifier(identifier string) (*User, error) {
	user := User{}
	u.DB.Where("email_normalized = ? OR username = ?", normalizeLower(identifier), identifier).Find(&user)
	if user.ID == 0 {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

// FindByEmail looks a user up by normalized email.
func (u *UserDB) FindByEmail(email string) (*User, error) {
	user := User{}
	u.DB.Where("email_normalized = ?", normalizeLower(email)).Find(&user)
	if user.ID == 0 {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

// FindByAuthKey looks a user up by the external-identity correlation key.
func (u *UserDB) FindByAuthKey(authKey string) (*User, error) {
	if authKey == "" {
		return nil, ErrUserNotFound
	}
	user := User{}
	u.DB.Where("auth_key = ?", authKey).Find(&user)
	if user.ID == 0 {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

// BindAuthKey stores the external-identity key on a user that does not have
// one yet. The binding happens at most once; a user whose auth_key is already
// set is left untouched and no error is returned.
func (u *UserDB) BindAuthKey(userID int64, authKey string) error {
	if authKey == "" {
		return nil
	}
	return u.DB.Model(&User{}).
		Where("id = ? AND (auth_key IS NULL OR auth_key = '')", userID).
		Update("auth_key", authKey).Error
}

// VerifyPassword returns the user if identifier+password match, else an error.
func (u *UserDB) VerifyPassword(identifier, password string) (*User, error) {
	user, err := u.FindByIdentifier(identifier)
	if err != nil {
		return nil, err
	}
	if !VerifyHash(password, user.Password) {
		return nil, ErrUserNotFound
	}
	return user, nil
}
