package store

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

// Class groups raw store failures by how the index manager must react.
type Class int

const (
	// ClassOther is any failure that is neither corruption nor cancellation.
	ClassOther Class = iota

	// ClassCorruption means the on-disk store is unreadable and must be
	// wiped or restored.
	ClassCorruption

	// ClassCancellation means the caller gave up; it always propagates.
	ClassCancellation
)

func (c Class) String() string {
	switch c {
	case ClassCorruption:
		return "corruption"
	case ClassCancellation:
		return "cancellation"
	default:
		return "other"
	}
}

// Classify maps an error returned by a Collection to its Class.
// Cancellation wins over corruption when both are present.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassOther
	case amerrors.IsCancellation(err):
		return ClassCancellation
	case amerrors.GetCode(err) == amerrors.ErrCodeStoreCorrupt:
		return ClassCorruption
	case isSQLiteCorruption(err):
		return ClassCorruption
	default:
		return ClassOther
	}
}

// isSQLiteCorruption recognises SQLITE_CORRUPT and SQLITE_NOTADB, including
// their extended codes.
func isSQLiteCorruption(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_CORRUPT, sqlite3.SQLITE_NOTADB:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database disk image is malformed") ||
		strings.Contains(msg, "file is not a database")
}

// wrapErr tags err from operation op so that Classify sees corruption
// through AmanError codes. Cancellation is returned unchanged.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	switch Classify(err) {
	case ClassCancellation:
		return err
	case ClassCorruption:
		if amerrors.GetCode(err) == amerrors.ErrCodeStoreCorrupt {
			return err
		}
		return amerrors.StoreCorruptError("store "+op+" failed", err)
	default:
		return amerrors.New(amerrors.ErrCodeIndexFailed, "store "+op+" failed", err)
	}
}

// Guard runs fn and turns a panic inside it into a corruption error.
// The SQLite driver, gob decoding and the HNSW import can all panic on
// damaged input.
func Guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = amerrors.StoreCorruptError(fmt.Sprintf("store %s panicked: %v", op, r), nil)
		}
	}()
	return fn()
}
