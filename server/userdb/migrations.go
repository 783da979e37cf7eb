package userdb

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
)

func Migrations(log logs.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE user(
			id INTEGER PRIMARY KEY,
			username TEXT NOT NULL,
			email TEXT NOT NULL,
			email_normalized TEXT NOT NULL,
			password BLOB,
			firstname TEXT,
			lastname TEXT,
			role TEXT NOT NULL,
			blocked INT NOT NULL DEFAULT 0,
			confirmed INT NOT NULL DEFAULT 0,
			auth_key TEXT,
			created_at INT NOT NULL,
			updated_at INT NOT NULL
		);
		CREATE UNIQUE INDEX idx_user_email_normalized ON user (email_normalized);
		CREATE UNIQUE INDEX idx_user_username ON user (username);
		CREATE INDEX idx_user_auth_key ON user (auth_key);

		CREATE TABLE audit_log_entry(
			id INTEGER PRIMARY KEY,
			content_id TEXT NOT NULL,
			action TEXT NOT NULL,
			custom_user_id INT,
			content_type TEXT,
			content_name TEXT,
			timestamp INT NOT NULL
		);
		CREATE INDEX idx_audit_log_entry_content_id ON audit_log_entry (content_id);
	`))

	return migs
}
