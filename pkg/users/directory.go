package users

import (
	"fmt"
	"sync"

	"github.com/mmcdole/campuschat/pkg/logging"
)

// Directory is the process-wide registry of user accounts. Every mutation
// is written through to its Source before the call returns.
type Directory struct {
	source Source

	mu    sync.RWMutex
	users map[string]*User
	order []string
}

// NewDirectory creates a Directory and loads the users stored in source.
// Later duplicates of a username already loaded are ignored.
func NewDirectory(source Source) (*Directory, error) {
	if source == nil {
		return nil, fmt.Errorf("user source is required")
	}

	loaded, err := source.LoadUsers()
	if err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}

	d := &Directory{
		source: source,
		users:  make(map[string]*User, len(loaded)),
	}
	for _, u := range loaded {
		if _, exists := d.users[u.Username]; exists {
			logging.App.Warn("Ignoring duplicate stored user", "username", u.Username)
			continue
		}
		d.users[u.Username] = u
		d.order = append(d.order, u.Username)
	}

	logging.App.Info("User directory loaded", "users", len(d.order))
	return d, nil
}

// Register creates a new user on behalf of a requester with the given role.
// Technician records never carry an attribute.
func (d *Directory) Register(requester Role, username, password, roleName, attribute string) (*User, error) {
	if username == "" || password == "" || roleName == "" {
		return nil, ErrInvalidFormat
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.users[username]; exists {
		return nil, ErrDuplicateUser
	}
	if !requester.CanRegister() {
		return nil, ErrUnauthorized
	}

	role, err := ParseRole(roleName)
	if err != nil {
		return nil, err
	}
	if role.RequiresAttribute() && attribute == "" {
		return nil, fmt.Errorf("%w: %s requires %s", ErrInvalidFormat, role, role.AttributeLabel())
	}
	if !role.RequiresAttribute() {
		attribute = ""
	}

	u := &User{
		Username:  username,
		Password:  password,
		Role:      role,
		Attribute: attribute,
	}
	d.users[username] = u
	d.order = append(d.order, username)

	if err := d.saveLocked(); err != nil {
		logging.App.Error("Failed to persist user directory", "username", username, "error", err)
	}

	logging.App.Info("Registered user", "username", username, "role", role)
	c := *u
	return &c, nil
}

// Authenticate checks the credentials and returns the matching user
func (d *Directory) Authenticate(username, password string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[username]
	if !ok || u.Password != password {
		return nil, ErrInvalidCredentials
	}
	c := *u
	return &c, nil
}

// Lookup returns a copy of the named user
func (d *Directory) Lookup(username string) (*User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[username]
	if !ok {
		return nil, false
	}
	c := *u
	return &c, true
}

// List returns all users in registration order
func (d *Directory) List() []User {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]User, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, *d.users[name])
	}
	return out
}

// Len returns the number of registered users
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.order)
}

// Flush writes the current directory to the source
func (d *Directory) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saveLocked()
}

func (d *Directory) saveLocked() error {
	users := make([]*User, 0, len(d.order))
	for _, name := range d.order {
		users = append(users, d.users[name])
	}
	return d.source.SaveUsers(users)
}
