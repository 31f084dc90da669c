// internal/errors/store.go
package appErrors

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
)

// FromStore translates a backing-store error into the domain taxonomy.
// entity names the row kind the caller was working on and is used in messages.
// Errors that are already domain errors pass through untouched.
func FromStore(err error, entity string) error {
	if err == nil {
		return nil
	}
	if isDomain(err) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return NewNotFound(entity, "")
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "23505":
			return NewValidation(entity, "already exists")
		case pqErr.Code == "23503":
			return foreignKey(entity, pqErr.Message)
		case pqErr.Code == "23514", pqErr.Code == "22P02", pqErr.Code == "23502":
			return NewValidation(entity, "contains an invalid value")
		case pqErr.Code.Class() == "08", pqErr.Code.Class() == "57", pqErr.Code.Class() == "53":
			return ErrUnavailable
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "duplicate key"):
		return NewValidation(entity, "already exists")
	case strings.Contains(msg, "foreign key"):
		return foreignKey(entity, msg)
	case strings.Contains(msg, "connection"), strings.Contains(msg, "timeout"), strings.Contains(msg, "bad conn"):
		return ErrUnavailable
	}
	return err
}

// A violated foreign key on insert/update means the referenced row is gone;
// on delete it means something still points at the row.
func foreignKey(entity, msg string) error {
	if strings.Contains(strings.ToLower(msg), "delete") {
		return &DependencyError{Entity: entity}
	}
	return NewNotFound("referenced record", "")
}

func isDomain(err error) bool {
	return IsValidation(err) || IsNotFound(err) || IsDependency(err) ||
		IsInvalidState(err) || IsScheduling(err) || errors.Is(err, ErrUnavailable)
}

// Message returns the text that may be shown to an end user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if isDomain(err) {
		return err.Error()
	}
	return "something went wrong, please try again"
}
