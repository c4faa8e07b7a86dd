package ingest

import (
	"github.com/Aman-CERP/amandocs/internal/document"
	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

// ValidateUniqueIDs fails with an *errors.DuplicateIDError listing every
// document whose id was already taken by an earlier one.
func ValidateUniqueIDs(docs []*document.Document) error {
	seen := make(map[string]*document.Document, len(docs))
	var collisions []amerrors.Collision
	for _, d := range docs {
		first, ok := seen[d.ID]
		if !ok {
			seen[d.ID] = d
			continue
		}
		collisions = append(collisions, amerrors.Collision{
			ID:               d.ID,
			FirstProject:     first.Project,
			FirstPath:        first.SourcePath,
			DuplicateProject: d.Project,
			DuplicatePath:    d.SourcePath,
		})
	}
	if len(collisions) > 0 {
		return &amerrors.DuplicateIDError{Collisions: collisions}
	}
	return nil
}
