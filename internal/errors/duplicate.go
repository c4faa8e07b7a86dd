package errors

import (
	"fmt"
	"strings"
)

// Collision describes two documents that produced the same id.
type Collision struct {
	ID               string
	FirstProject     string
	FirstPath        string
	DuplicateProject string
	DuplicatePath    string
}

func (c Collision) String() string {
	return fmt.Sprintf("%s: %s/%s <-> %s/%s", c.ID, c.FirstProject, c.FirstPath, c.DuplicateProject, c.DuplicatePath)
}

// DuplicateIDError aborts an ingestion batch whose document ids are not unique.
// It lists every collision, not just the first one found.
type DuplicateIDError struct {
	Collisions []Collision
}

func (e *DuplicateIDError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d duplicate document id(s) in ingestion batch", ErrCodeDuplicateID, len(e.Collisions))
	for _, c := range e.Collisions {
		sb.WriteString("\n  ")
		sb.WriteString(c.String())
	}
	return sb.String()
}

// Unwrap exposes the coded error so errors.Is(err, New(ErrCodeDuplicateID, ...)) holds.
func (e *DuplicateIDError) Unwrap() error {
	ae := New(ErrCodeDuplicateID, fmt.Sprintf("%d duplicate document id(s)", len(e.Collisions)), nil)
	for i, c := range e.Collisions {
		ae.WithDetail(fmt.Sprintf("collision_%d", i), c.String())
	}
	return ae.WithSuggestion("Check repository names and folder settings for overlapping sources")
}
