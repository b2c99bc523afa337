package user

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

var ErrInvalidEmail = errors.New("invalid email address")

const (
	maxEmailLen = 254
	maxLocalLen = 64
)

// Email is a syntactically validated email address. The zero value is
// empty and only appears before a value has been parsed or scanned.
type Email struct {
	addr string
}

// ParseEmail accepts a bare RFC 5321 addr-spec. Display names, angle
// brackets and surrounding whitespace are rejected.
func ParseEmail(s string) (Email, error) {
	if len(s) > maxEmailLen {
		return Email{}, fmt.Errorf("%w: longer than %d bytes", ErrInvalidEmail, maxEmailLen)
	}
	a, err := mail.ParseAddress(s)
	if err != nil {
		return Email{}, fmt.Errorf("%w: %q: %v", ErrInvalidEmail, s, err)
	}
	if a.Name != "" || a.Address != s {
		return Email{}, fmt.Errorf("%w: %q is not a bare address", ErrInvalidEmail, s)
	}
	at := strings.LastIndexByte(s, '@')
	if at > maxLocalLen {
		return Email{}, fmt.Errorf("%w: local part longer than %d bytes", ErrInvalidEmail, maxLocalLen)
	}
	if err := checkDomain(s[at+1:]); err != nil {
		return Email{}, fmt.Errorf("%w: %q: %v", ErrInvalidEmail, s, err)
	}
	return Email{addr: s}, nil
}

// checkDomain wants a dotted host name. Address literals are refused.
func checkDomain(d string) error {
	if strings.HasPrefix(d, "[") {
		return errors.New("address literal domain")
	}
	if !strings.Contains(d, ".") {
		return errors.New("domain has no dot")
	}
	for _, label := range strings.Split(d, ".") {
		if label == "" {
			return errors.New("empty domain label")
		}
	}
	return nil
}

// MustParseEmail is ParseEmail for constants; it panics on bad input.
func MustParseEmail(s string) Email {
	e, err := ParseEmail(s)
	if err != nil {
		panic(err)
	}
	return e
}

func (e Email) String() string { return e.addr }

func (e Email) IsZero() bool { return e.addr == "" }

func (e Email) MarshalText() ([]byte, error) {
	return []byte(e.addr), nil
}

func (e *Email) UnmarshalText(b []byte) error {
	v, err := ParseEmail(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

func (e Email) Value() (driver.Value, error) {
	return e.addr, nil
}

// Scan trusts the stored value; it was validated when written.
func (e *Email) Scan(src any) error {
	switch v := src.(type) {
	case string:
		e.addr = v
	case []byte:
		e.addr = string(v)
	default:
		return fmt.Errorf("user: cannot scan %T into Email", src)
	}
	return nil
}
