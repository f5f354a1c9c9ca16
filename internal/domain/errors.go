// backend-go/internal/domain/errors.go
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyResult signals that a load, join or filter produced zero rows.
// It is a warning condition: the session state is untouched and the
// operator is expected to widen filters or supply richer input.
var ErrEmptyResult = errors.New("no rows match the requested scope")

// SchemaError reports required columns missing from an input table. It
// aborts the current load; nothing downstream runs until corrected
// input is supplied.
type SchemaError struct {
	Table   string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s table is missing required columns: %s", e.Table, strings.Join(e.Missing, ", "))
}

// UnknownKeyError reports a (warehouse, product) combination that has
// no inventory record, either on purchase registration (no lead time
// available) or on forecast rows with no inventory match.
type UnknownKeyError struct {
	Warehouse string
	Product   string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("no inventory record for warehouse %q product %q", e.Warehouse, e.Product)
}
