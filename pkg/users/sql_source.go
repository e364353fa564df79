package users

import (
	"database/sql"
	"fmt"

	"github.com/mmcdole/campuschat/pkg/logging"
	"github.com/mmcdole/campuschat/pkg/storage"
)

// SQLSource implements Source on the users table of a storage database
type SQLSource struct {
	db *sql.DB
}

// NewSQLSource creates a new SQLSource; db must come from storage.OpenSQLite
func NewSQLSource(db *sql.DB) *SQLSource {
	return &SQLSource{db: db}
}

// LoadUsers implements Source
func (s *SQLSource) LoadUsers() ([]*User, error) {
	rows, err := s.db.Query(`SELECT username, password, role, attribute FROM users ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var username, password, roleName, attribute string
		if err := rows.Scan(&username, &password, &roleName, &attribute); err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		role, err := ParseRole(roleName)
		if err != nil {
			logging.App.Warn("Skipping user row with unknown role", "username", username, "role", roleName)
			continue
		}
		if role.RequiresAttribute() && attribute == "" {
			logging.App.Warn("Skipping user row without attribute", "username", username, "role", roleName)
			continue
		}
		if !role.RequiresAttribute() {
			attribute = ""
		}
		users = append(users, &User{Username: username, Password: password, Role: role, Attribute: attribute})
	}
	return users, rows.Err()
}

// SaveUsers implements Source
func (s *SQLSource) SaveUsers(users []*User) error {
	return storage.ReplaceAll(s.db, "users", func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO users (position, username, password, role, attribute) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing user insert: %w", err)
		}
		defer stmt.Close()

		for i, u := range users {
			if _, err := stmt.Exec(i, u.Username, u.Password, u.Role.String(), u.Attribute); err != nil {
				return fmt.Errorf("inserting user %s: %w", u.Username, err)
			}
		}
		return nil
	})
}
