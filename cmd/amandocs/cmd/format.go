package cmd

import (
	"fmt"

	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

// Output formats accepted by --format.
const (
	formatText = "text"
	formatJSON = "json"
)

func validateFormat(format string) error {
	switch format {
	case formatText, formatJSON:
		return nil
	}
	return amerrors.ValidationError(fmt.Sprintf("unknown output format %q", format), nil).
		WithSuggestion("Use --format text or --format json")
}
