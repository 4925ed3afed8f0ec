package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPasswordPolicy(t *testing.T) {
	cases := []struct {
		name     string
		password string
		wantErr  string
	}{
		{"valid", "Str0ng!Pass1", ""},
		{"boundary length", "LongPass1!", ""},
		{"one under boundary", "LongPas1!", "at least 10 characters"},
		{"empty", "", "at least 10 characters"},
		{"no uppercase", "l0ng!enough", "uppercase"},
		{"no lowercase", "L0NG!ENOUGH", "lowercase"},
		{"no digit", "LongEnough!!", "digit"},
		{"no special", "LongEnough11", "special character"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := PasswordPolicy(tc.password)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestRegisterRequestValidate(t *testing.T) {
	valid := RegisterRequest{Username: "alice", Email: "a@x.com", Password: "Str0ng!Pass1"}
	assert.NoError(t, valid.Validate())

	badEmail := valid
	badEmail.Email = "not-an-email"
	assert.Error(t, badEmail.Validate())

	noUsername := valid
	noUsername.Username = ""
	assert.Error(t, noUsername.Validate())
}

func TestUpdateUserRequestValidate(t *testing.T) {
	assert.NoError(t, UpdateUserRequest{}.Validate())

	name := "alice"
	assert.NoError(t, UpdateUserRequest{Username: &name}.Validate())

	empty := ""
	assert.Error(t, UpdateUserRequest{Username: &empty}.Validate())

	badEmail := "nope"
	assert.Error(t, UpdateUserRequest{Email: &badEmail}.Validate())
}
