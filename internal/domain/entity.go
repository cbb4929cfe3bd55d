package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// EntityRef refers to an entity either by display name or by identifier.
// Exactly one of the two forms is set; use ByName or ByID to construct.
type EntityRef struct {
	name  string
	id    int64
	named bool
}

// ByName references an entity by display name (e.g. "owner/repo").
func ByName(name string) EntityRef {
	return EntityRef{name: name, named: true}
}

// ByID references an entity by numeric identifier.
func ByID(id int64) EntityRef {
	return EntityRef{id: id}
}

// Name returns the display name and true for name references.
func (r EntityRef) Name() (string, bool) {
	return r.name, r.named
}

// ID returns the identifier and true for id references.
func (r EntityRef) ID() (int64, bool) {
	return r.id, !r.named
}

func (r EntityRef) String() string {
	if r.named {
		return r.name
	}
	return strconv.FormatInt(r.id, 10)
}

// ParseEntityRef interprets user input: anything containing "/" is a
// repository name, anything else must be a numeric id.
func ParseEntityRef(s string) (EntityRef, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		return ByName(s), nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return EntityRef{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	return ByID(id), nil
}
