package user

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/kragdb/internal/kragdb/perm"
)

func TestParseEmail(t *testing.T) {
	_, err := ParseEmail("default@gmail.com")
	require.NoError(t, err)

	for _, bad := range []string{
		"bruh",
		"",
		"Bob <bob@example.com>",
		" bob@example.com",
		"bob@",
		string(bytes.Repeat([]byte("a"), 65)) + "@example.com",
		"a@localhost",
		"a@[127.0.0.1]",
		"a@.example.com",
		"a@example.com.",
		"a@example..com",
	} {
		_, err := ParseEmail(bad)
		assert.ErrorIs(t, err, ErrInvalidEmail, bad)
	}
}

func TestEmailJSONValidates(t *testing.T) {
	var q QueryUser
	err := json.Unmarshal([]byte(`{"email":"bruh"}`), &q)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidEmail))

	require.NoError(t, json.Unmarshal([]byte(`{"email":"a@b.io"}`), &q))
	require.NotNil(t, q.Email)
	assert.Equal(t, "a@b.io", q.Email.String())
}

func TestPasswordHash(t *testing.T) {
	h, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, h.Verify("correct horse"))
	assert.False(t, h.Verify("battery staple"))

	h2, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, h.Bytes(), h2.Bytes(), "salted hashes must differ")

	_, err = HashPassword("")
	assert.ErrorIs(t, err, ErrEmptyPassword)

	assert.False(t, PasswordHash{encoded: "$argon2id$garbage"}.Verify("x"))
}

func TestPasswordHashZeroCostRejected(t *testing.T) {
	for _, params := range []string{"m=0,t=1,p=2", "m=65536,t=0,p=2", "m=65536,t=1,p=0"} {
		var h PasswordHash
		require.NoError(t, h.Scan("$argon2id$v=19$"+params+"$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5"))

		_, err := parsePHC(h.encoded)
		assert.ErrorIs(t, err, ErrMalformedHash, params)
		assert.NotPanics(t, func() { assert.False(t, h.Verify("x")) }, params)
	}
}

func TestSessionAuthHashTracksPassword(t *testing.T) {
	h1, err := HashPassword("first-password")
	require.NoError(t, err)
	h2, err := HashPassword("second-password")
	require.NoError(t, err)

	u := User{ID: 7, Password: h1}
	before := u.SessionAuthHash()
	u.Password = h2
	assert.NotEqual(t, before, u.SessionAuthHash())
}

func TestUserJSONRedactsPassword(t *testing.T) {
	h, err := HashPassword("hunter2hunter2")
	require.NoError(t, err)
	u := User{
		ID:          1,
		Username:    "root",
		Email:       MustParseEmail("root@example.com"),
		Password:    h,
		Permissions: perm.Root,
	}

	b, err := json.Marshal(u)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"password":"[REDACTED]"`)
	assert.Contains(t, string(b), `"permissions":4294967295`)
	assert.NotContains(t, string(b), "argon2id")
}

func TestCreateUserJSONHashesPassword(t *testing.T) {
	var c CreateUser
	require.NoError(t, json.Unmarshal([]byte(
		`{"username":"ann","email":"ann@example.com","password":"s3cret-pass","permissions":48}`), &c))
	assert.True(t, c.Password.Verify("s3cret-pass"))
	assert.Equal(t, perm.PassCreate|perm.PassRead, c.Permissions)
	assert.Nil(t, c.ID)
}

func TestUserLogObjectRedactsPassword(t *testing.T) {
	h, err := HashPassword("hunter2hunter2")
	require.NoError(t, err)
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	log.Info().Object("user", User{ID: 3, Username: "ann", Password: h}).Msg("x")

	assert.Contains(t, buf.String(), `"password":"[REDACTED]"`)
	assert.NotContains(t, buf.String(), "argon2id")
}

func TestBindValuesSkipsUnsetOptional(t *testing.T) {
	c := CreateUser{
		Username:    "ann",
		Email:       MustParseEmail("ann@example.com"),
		Permissions: perm.None,
	}
	cols := c.BoundColumns()
	vals := c.BindValues(nil)

	assert.Equal(t, []string{"username", "email", "password", "permissions"}, cols)
	require.Len(t, vals, len(cols))
	assert.Equal(t, "ann", vals[0])

	n := PhoneNumber(5551234)
	c.Number = &n
	assert.Equal(t, []string{"username", "email", "number", "password", "permissions"}, c.BoundColumns())
	assert.Equal(t, n, c.BindValues(nil)[2])
}

func TestQueryUserIsEmpty(t *testing.T) {
	assert.True(t, QueryUser{}.IsEmpty())
	name := "ann"
	assert.False(t, QueryUser{Username: &name}.IsEmpty())
}
