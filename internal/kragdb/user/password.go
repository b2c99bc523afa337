package user

import (
	"crypto/rand"
	"crypto/subtle"
	"database/sql/driver"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrEmptyPassword = errors.New("password must not be empty")
	ErrMalformedHash = errors.New("malformed password hash")
)

// argon2id parameters. Encoded hashes carry their own parameters, so
// these only apply to new hashes.
const (
	argonTime    uint32 = 1
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 2
	argonSaltLen        = 16
	argonKeyLen  uint32 = 32
)

const redacted = "[REDACTED]"

// PasswordHash is a one-way argon2id hash in PHC string form:
//
//	$argon2id$v=19$m=65536,t=1,p=2$<salt>$<key>
type PasswordHash struct {
	encoded string
}

// HashPassword hashes a plain password with a fresh random salt.
func HashPassword(raw string) (PasswordHash, error) {
	if raw == "" {
		return PasswordHash{}, ErrEmptyPassword
	}
	salt := make([]byte, argonSaltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return PasswordHash{}, fmt.Errorf("HashPassword salt: %w", err)
	}
	key := argon2.IDKey([]byte(raw), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	b64 := base64.RawStdEncoding
	return PasswordHash{encoded: fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		b64.EncodeToString(salt), b64.EncodeToString(key))}, nil
}

// Verify reports whether raw hashes to h. Malformed hashes never verify.
func (h PasswordHash) Verify(raw string) bool {
	p, err := parsePHC(h.encoded)
	if err != nil {
		return false
	}
	key := argon2.IDKey([]byte(raw), p.salt, p.time, p.memory, p.threads, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(key, p.key) == 1
}

// Bytes exposes the encoded hash. It changes whenever the password does,
// which is what makes it usable as a session fingerprint.
func (h PasswordHash) Bytes() []byte { return []byte(h.encoded) }

func (h PasswordHash) IsZero() bool { return h.encoded == "" }

func (h PasswordHash) String() string { return redacted }

func (h PasswordHash) MarshalJSON() ([]byte, error) {
	return json.Marshal(redacted)
}

// UnmarshalJSON takes a plain password and stores its hash.
func (h *PasswordHash) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v, err := HashPassword(raw)
	if err != nil {
		return err
	}
	*h = v
	return nil
}

func (h PasswordHash) Value() (driver.Value, error) {
	return h.encoded, nil
}

func (h *PasswordHash) Scan(src any) error {
	switch v := src.(type) {
	case string:
		h.encoded = v
	case []byte:
		h.encoded = string(v)
	default:
		return fmt.Errorf("user: cannot scan %T into PasswordHash", src)
	}
	return nil
}

type phc struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func parsePHC(s string) (phc, error) {
	parts := strings.Split(s, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return phc{}, ErrMalformedHash
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return phc{}, ErrMalformedHash
	}
	var p phc
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return phc{}, ErrMalformedHash
	}
	// argon2 panics on zero cost parameters.
	if p.memory == 0 || p.time == 0 || p.threads == 0 {
		return phc{}, ErrMalformedHash
	}
	var err error
	if p.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return phc{}, ErrMalformedHash
	}
	if p.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(p.key) == 0 {
		return phc{}, ErrMalformedHash
	}
	return p, nil
}
