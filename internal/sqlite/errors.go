package sqlite

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// Constraint names the kind of constraint a failed statement violated.
type Constraint int

const (
	NoConstraint Constraint = iota
	UniqueConstraint
	CheckConstraint
	NotNullConstraint
	OtherConstraint
)

func (c Constraint) String() string {
	switch c {
	case UniqueConstraint:
		return "unique"
	case CheckConstraint:
		return "check"
	case NotNullConstraint:
		return "not null"
	case OtherConstraint:
		return "constraint"
	}
	return "none"
}

// ConstraintOf classifies err. Primary key violations count as unique.
func ConstraintOf(err error) Constraint {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.Code != sqlite3.ErrConstraint {
		return NoConstraint
	}
	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return UniqueConstraint
	case sqlite3.ErrConstraintCheck:
		return CheckConstraint
	case sqlite3.ErrConstraintNotNull:
		return NotNullConstraint
	}
	return OtherConstraint
}

// IsUniqueConstraintError reports a UNIQUE or PRIMARY KEY violation, the
// signal that a concurrent writer created the row first.
func IsUniqueConstraintError(err error) bool {
	return ConstraintOf(err) == UniqueConstraint
}
