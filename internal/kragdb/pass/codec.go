package pass

import (
	"database/sql/driver"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Stored pass layout, all big-endian:
//
//	TimePass     [0:8] expiry Unix seconds (int64)  [8:12] nanoseconds (uint32)
//	SessionPass  [0:8] last use Unix seconds (int64) [8:12] nanoseconds (uint32)
//	             [12:16] sessions left (uint32)
const (
	TimePassSize    = 12
	SessionPassSize = 16
)

// ErrDecode marks stored pass bytes that cannot be a pass. It means the row
// is corrupt or was written by an incompatible schema.
var ErrDecode = errors.New("pass: corrupt encoding")

type DecodeError struct {
	Type   string
	Length int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v: %s (%d bytes): %s", ErrDecode, e.Type, e.Length, e.Reason)
}

func (e *DecodeError) Unwrap() error { return ErrDecode }

func appendInstant(b []byte, t time.Time) []byte {
	b = binary.BigEndian.AppendUint64(b, uint64(t.Unix()))
	return binary.BigEndian.AppendUint32(b, uint32(t.Nanosecond()))
}

func readInstant(b []byte) (time.Time, bool) {
	sec := int64(binary.BigEndian.Uint64(b[0:8]))
	nsec := binary.BigEndian.Uint32(b[8:12])
	if nsec >= uint32(time.Second) {
		return time.Time{}, false
	}
	return time.Unix(sec, int64(nsec)).UTC(), true
}

// ── TimePass ──

func (p TimePass) AppendBinary(b []byte) ([]byte, error) {
	return appendInstant(b, p.Expiry), nil
}

func (p TimePass) MarshalBinary() ([]byte, error) {
	return p.AppendBinary(make([]byte, 0, TimePassSize))
}

func (p *TimePass) UnmarshalBinary(b []byte) error {
	if len(b) != TimePassSize {
		return &DecodeError{Type: "TimePass", Length: len(b), Reason: fmt.Sprintf("want %d bytes", TimePassSize)}
	}
	t, ok := readInstant(b)
	if !ok {
		return &DecodeError{Type: "TimePass", Length: len(b), Reason: "nanoseconds out of range"}
	}
	p.Expiry = t
	return nil
}

func (p TimePass) Value() (driver.Value, error) { return p.MarshalBinary() }

func (p *TimePass) Scan(src any) error {
	b, err := scanBytes("TimePass", src)
	if err != nil {
		return err
	}
	return p.UnmarshalBinary(b)
}

// ── SessionPass ──

func (p SessionPass) AppendBinary(b []byte) ([]byte, error) {
	b = appendInstant(b, p.LastTimeUsed)
	return binary.BigEndian.AppendUint32(b, p.SessionsLeft), nil
}

func (p SessionPass) MarshalBinary() ([]byte, error) {
	return p.AppendBinary(make([]byte, 0, SessionPassSize))
}

func (p *SessionPass) UnmarshalBinary(b []byte) error {
	if len(b) != SessionPassSize {
		return &DecodeError{Type: "SessionPass", Length: len(b), Reason: fmt.Sprintf("want %d bytes", SessionPassSize)}
	}
	t, ok := readInstant(b)
	if !ok {
		return &DecodeError{Type: "SessionPass", Length: len(b), Reason: "nanoseconds out of range"}
	}
	p.LastTimeUsed = t
	p.SessionsLeft = binary.BigEndian.Uint32(b[12:16])
	return nil
}

func (p SessionPass) Value() (driver.Value, error) { return p.MarshalBinary() }

func (p *SessionPass) Scan(src any) error {
	b, err := scanBytes("SessionPass", src)
	if err != nil {
		return err
	}
	return p.UnmarshalBinary(b)
}

func scanBytes(typ string, src any) ([]byte, error) {
	switch v := src.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("pass: cannot scan %T into %s", src, typ)
	}
}
