// Package perm defines which actions a user of the database may perform.
//
// Members can read the passes on their own account and read or change their
// own username and password. Topping up or extending a pass needs
// PassUpdate even for the holder. Admins can create, read, update and delete any user or pass.
// Root can do everything.
package perm

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// Set is a bitset of permissions, stored as a plain unsigned integer.
type Set uint32

const (
	UserCreate Set = 1 << iota // create users
	UserRead                   // read any user
	UserUpdate                 // update any user
	UserDelete                 // delete any user except root
	PassCreate                 // create passes for any user
	PassRead                   // read passes of any user
	PassUpdate                 // update passes of any user
	PassDelete                 // delete passes of any user
)

const (
	None     Set = 0
	UserCRUD     = UserCreate | UserRead | UserUpdate | UserDelete
	PassCRUD     = PassCreate | PassRead | PassUpdate | PassDelete
	Admin        = UserCRUD | PassCRUD
	Root     Set = ^Set(0)
)

var names = []struct {
	name string
	set  Set
}{
	{"USER_CREATE", UserCreate},
	{"USER_READ", UserRead},
	{"USER_UPDATE", UserUpdate},
	{"USER_DELETE", UserDelete},
	{"PASS_CREATE", PassCreate},
	{"PASS_READ", PassRead},
	{"PASS_UPDATE", PassUpdate},
	{"PASS_DELETE", PassDelete},
}

var composites = map[string]Set{
	"NONE":      None,
	"ROOT":      Root,
	"ADMIN":     Admin,
	"USER_CRUD": UserCRUD,
	"PASS_CRUD": PassCRUD,
}

// FromBits converts raw bits. Every bit pattern is valid because Root
// covers all 32 bits.
func FromBits(bits uint32) Set { return Set(bits) }

func (s Set) Bits() uint32 { return uint32(s) }

// Contains reports whether every bit of o is set in s.
func (s Set) Contains(o Set) bool { return s&o == o }

// Intersects reports whether s and o share at least one bit.
func (s Set) Intersects(o Set) bool { return s&o != 0 }

func (s Set) Union(o Set) Set        { return s | o }
func (s Set) Intersection(o Set) Set { return s & o }
func (s Set) Difference(o Set) Set   { return s &^ o }

func (s Set) String() string {
	switch s {
	case None:
		return "NONE"
	case Root:
		return "ROOT"
	case Admin:
		return "ADMIN"
	}

	var parts []string
	rest := s
	for _, n := range names {
		if s.Contains(n.set) {
			parts = append(parts, n.name)
			rest &^= n.set
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// Parse accepts a decimal or 0x-prefixed number, or permission names
// joined by '|' or ',' (for example "ADMIN" or "USER_READ|PASS_READ").
func Parse(s string) (Set, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return None, nil
	}
	if n, err := strconv.ParseUint(s, 0, 32); err == nil {
		return Set(n), nil
	}

	var out Set
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		tok = strings.ToUpper(strings.TrimSpace(tok))
		if v, ok := composites[tok]; ok {
			out |= v
			continue
		}
		found := false
		for _, n := range names {
			if n.name == tok {
				out |= n.set
				found = true
				break
			}
		}
		if !found {
			return None, fmt.Errorf("perm: unknown permission %q", tok)
		}
	}
	return out, nil
}

func (s Set) Value() (driver.Value, error) {
	return int64(s), nil
}

func (s *Set) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*s = FromBits(uint32(v))
	case []byte:
		n, err := strconv.ParseUint(string(v), 10, 32)
		if err != nil {
			return fmt.Errorf("perm: scan %q: %w", v, err)
		}
		*s = FromBits(uint32(n))
	case string:
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("perm: scan %q: %w", v, err)
		}
		*s = FromBits(uint32(n))
	default:
		return fmt.Errorf("perm: cannot scan %T", src)
	}
	return nil
}
