// Package values contains domain value objects shared by the profiling and
// lifecycle layers.
package values

import (
	"fmt"

	"github.com/google/uuid"
)

// UnitID uniquely identifies a monitor unit for its lifetime.
type UnitID struct {
	value uuid.UUID
}

// NewUnitID creates a new random unit ID.
func NewUnitID() UnitID {
	return UnitID{value: uuid.New()}
}

// ParseUnitID parses a string into a UnitID.
func ParseUnitID(s string) (UnitID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UnitID{}, fmt.Errorf("invalid unit ID: %w", err)
	}
	return UnitID{value: id}, nil
}

// MustParseUnitID parses a string or panics (for tests only)
func MustParseUnitID(s string) UnitID {
	id, err := ParseUnitID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (u UnitID) String() string {
	return u.value.String()
}

// IsZero returns true if this is the zero value
func (u UnitID) IsZero() bool {
	return u.value == uuid.Nil
}

// MarshalText implements encoding.TextMarshaler so IDs serialize as strings
// in JSON, YAML and msgpack snapshots alike.
func (u UnitID) MarshalText() ([]byte, error) {
	return []byte(u.value.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *UnitID) UnmarshalText(data []byte) error {
	id, err := ParseUnitID(string(data))
	if err != nil {
		return err
	}
	*u = id
	return nil
}
