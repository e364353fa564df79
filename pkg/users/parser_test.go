package users

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"Technician", RoleTechnician, false},
		{"Tecnico", RoleTechnician, false},
		{"Professor", RoleProfessor, false},
		{"Student", RoleStudent, false},
		{"Aluno", RoleStudent, false},
		{"student", 0, true},
		{"", 0, true},
		{"Admin", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidRole))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoleCapabilities(t *testing.T) {
	assert.True(t, RoleTechnician.CanRegister())
	assert.True(t, RoleTechnician.CanKill())
	assert.False(t, RoleTechnician.RequiresAttribute())

	for _, r := range []Role{RoleProfessor, RoleStudent} {
		assert.False(t, r.CanRegister(), r.String())
		assert.False(t, r.CanKill(), r.String())
		assert.True(t, r.RequiresAttribute(), r.String())
	}

	assert.Equal(t, "Qualification", RoleProfessor.AttributeLabel())
	assert.Equal(t, "Enrollment year", RoleStudent.AttributeLabel())
	assert.False(t, Role(0).Valid())
}

func TestParseRecord_Errors(t *testing.T) {
	_, err := ParseRecord("alice pw")
	assert.True(t, errors.Is(err, ErrInvalidFormat))

	_, err = ParseRecord("alice pw Student")
	assert.True(t, errors.Is(err, ErrInvalidFormat))

	_, err = ParseRecord("alice pw Dean x")
	assert.True(t, errors.Is(err, ErrInvalidRole))
}

var tokenGen = rapid.StringMatching(`[A-Za-z0-9_.-]{1,12}`)

func userGen() *rapid.Generator[*User] {
	return rapid.Custom(func(t *rapid.T) *User {
		role := rapid.SampledFrom([]Role{RoleTechnician, RoleProfessor, RoleStudent}).Draw(t, "role")
		u := &User{
			Username: tokenGen.Draw(t, "username"),
			Password: tokenGen.Draw(t, "password"),
			Role:     role,
		}
		if role.RequiresAttribute() {
			u.Attribute = tokenGen.Draw(t, "attribute")
		}
		return u
	})
}

// Saving then loading reproduces the same records in the same order
func TestFileSource_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		users := rapid.SliceOfNDistinct(userGen(), 0, 20, func(u *User) string { return u.Username }).Draw(t, "users")

		source := NewFileSource(afero.NewMemMapFs(), "/users.txt")
		if err := source.SaveUsers(users); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		loaded, err := source.LoadUsers()
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if len(loaded) != len(users) {
			t.Fatalf("loaded %d users, saved %d", len(loaded), len(users))
		}
		for i := range users {
			if *loaded[i] != *users[i] {
				t.Fatalf("record %d: got %+v, want %+v", i, *loaded[i], *users[i])
			}
		}
	})
}
