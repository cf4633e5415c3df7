package id

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// PositionID is an opaque 128-bit random position identifier. It is only
// rendered to a string at the boundary (logs, events, journal rows).
type PositionID [16]byte

var ErrInvalidPositionID = errors.New("invalid position id")

// NewPositionID draws 16 bytes from crypto/rand.
func NewPositionID() (PositionID, error) {
	return readPositionID(rand.Reader)
}

func readPositionID(r io.Reader) (PositionID, error) {
	var p PositionID
	if _, err := io.ReadFull(r, p[:]); err != nil {
		return PositionID{}, fmt.Errorf("position id entropy: %w", err)
	}
	return p, nil
}

// String renders the id as base64url without padding (22 characters).
func (p PositionID) String() string {
	return base64.RawURLEncoding.EncodeToString(p[:])
}

func (p PositionID) IsZero() bool {
	return p == PositionID{}
}

// ParsePositionID is the inverse of String.
func ParsePositionID(s string) (PositionID, error) {
	var p PositionID
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return p, fmt.Errorf("%w: %q: %v", ErrInvalidPositionID, s, err)
	}
	if len(b) != len(p) {
		return p, fmt.Errorf("%w: %q: want %d bytes, got %d", ErrInvalidPositionID, s, len(p), len(b))
	}
	copy(p[:], b)
	return p, nil
}

func (p PositionID) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PositionID) UnmarshalText(b []byte) error {
	v, err := ParsePositionID(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
