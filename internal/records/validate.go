package records

import (
	"fmt"

	"aecvision/internal/services"
)

// ValidationError reports a row that is missing a required cell.
type ValidationError struct {
	Kind  string
	Index int
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s row %d: missing required field %q", e.Kind, e.Index, e.Field)
}

// ErrorKind classifies the error for summaries.
func (e *ValidationError) ErrorKind() string {
	return "validation"
}

// Unwrap lets errors.Is match services.ErrValidation.
func (e *ValidationError) Unwrap() error {
	return services.ErrValidation
}

// ValidateDetail converts a raw row into a Detail. Number and Title must be
// present; Link and FileName default to empty.
func ValidateDetail(index int, row Row) (Detail, error) {
	if row.Number == nil {
		return Detail{}, &ValidationError{Kind: "detail", Index: index, Field: "number"}
	}
	if row.Title == nil {
		return Detail{}, &ValidationError{Kind: "detail", Index: index, Field: "title"}
	}
	return Detail{
		FileName: deref(row.FileName),
		Number:   *row.Number,
		Title:    *row.Title,
		Link:     deref(row.Link),
	}, nil
}

// ValidateSpecification converts a raw row into a Specification. Number and
// Title must be present; Body and Link default to empty.
func ValidateSpecification(index int, row Row) (Specification, error) {
	if row.Number == nil {
		return Specification{}, &ValidationError{Kind: "specification", Index: index, Field: "number"}
	}
	if row.Title == nil {
		return Specification{}, &ValidationError{Kind: "specification", Index: index, Field: "title"}
	}
	return Specification{
		Number: *row.Number,
		Title:  *row.Title,
		Body:   deref(row.Body),
		Link:   deref(row.Link),
	}, nil
}

// ValidateDetails validates every row, returning the valid details in input
// order and one error per dropped row.
func ValidateDetails(rows []Row) ([]Detail, []error) {
	out := make([]Detail, 0, len(rows))
	var errs []error
	for i, row := range rows {
		detail, err := ValidateDetail(i, row)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, detail)
	}
	return out, errs
}

// ValidateSpecifications validates every row, returning the valid
// specifications in input order and one error per dropped row.
func ValidateSpecifications(rows []Row) ([]Specification, []error) {
	out := make([]Specification, 0, len(rows))
	var errs []error
	for i, row := range rows {
		spec, err := ValidateSpecification(i, row)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, spec)
	}
	return out, errs
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
