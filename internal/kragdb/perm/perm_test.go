package perm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMasks(t *testing.T) {
	assert.Equal(t, uint32(0), None.Bits())
	assert.Equal(t, ^uint32(0), Root.Bits())
	assert.Equal(t, uint32(0x0f), UserCRUD.Bits())
	assert.Equal(t, uint32(0xf0), PassCRUD.Bits())
	assert.Equal(t, uint32(0xff), Admin.Bits())
	assert.Equal(t, UserCRUD|PassCRUD, Admin)
}

func TestContains(t *testing.T) {
	assert.True(t, Root.Contains(Admin))
	assert.True(t, Admin.Contains(PassDelete))
	assert.False(t, UserCRUD.Contains(PassRead))
	assert.True(t, None.Contains(None))
	assert.True(t, UserRead.Union(PassRead).Intersects(PassCRUD))
	assert.Equal(t, UserRead, UserCRUD.Intersection(UserRead))
	assert.Equal(t, UserCreate|UserUpdate|UserDelete, UserCRUD.Difference(UserRead))
}

func TestParse(t *testing.T) {
	cases := map[string]Set{
		"":                     None,
		"NONE":                 None,
		"root":                 Root,
		"ADMIN":                Admin,
		"USER_READ|PASS_READ":  UserRead | PassRead,
		"user_crud, pass_read": UserCRUD | PassRead,
		"255":                  Admin,
		"0x10":                 PassCreate,
	}
	for in, want := range cases {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := Parse("FLY")
	assert.Error(t, err)
}

func TestString(t *testing.T) {
	assert.Equal(t, "ROOT", Root.String())
	assert.Equal(t, "NONE", None.String())
	assert.Equal(t, "ADMIN", Admin.String())
	assert.Equal(t, "USER_READ|PASS_READ", (UserRead | PassRead).String())
	assert.Equal(t, "USER_CREATE|0x100", (UserCreate | Set(1<<8)).String())
}

func TestJSONIsPlainInteger(t *testing.T) {
	b, err := json.Marshal(Admin)
	require.NoError(t, err)
	assert.Equal(t, "255", string(b))

	var s Set
	require.NoError(t, json.Unmarshal([]byte("4294967295"), &s))
	assert.Equal(t, Root, s)
}

func TestScanValue(t *testing.T) {
	v, err := Root.Value()
	require.NoError(t, err)
	assert.Equal(t, int64(4294967295), v)

	var s Set
	require.NoError(t, s.Scan(v))
	assert.Equal(t, Root, s)
	require.NoError(t, s.Scan([]byte("48")))
	assert.Equal(t, PassCreate|PassRead, s)
	require.NoError(t, s.Scan("16"))
	assert.Equal(t, PassCreate, s)
	assert.Error(t, s.Scan(1.5))
}

func TestFromBits(t *testing.T) {
	assert.Equal(t, None, FromBits(0))
	assert.Equal(t, Admin, FromBits(Admin.Bits()))
	assert.Equal(t, Root, FromBits(^uint32(0)))
}
