package records_test

import (
	"errors"
	"testing"

	"aecvision/internal/records"
	"aecvision/internal/services"
)

func TestValidateDetailRequiresNumberAndTitle(t *testing.T) {
	tests := []struct {
		name  string
		row   records.Row
		field string
	}{
		{"missing number", records.Row{Title: records.Str("Flashing")}, "number"},
		{"missing title", records.Row{Number: records.Str("SD-072100-26")}, "title"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := records.ValidateDetail(3, tc.row)
			var verr *records.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tc.field || verr.Index != 3 {
				t.Fatalf("unexpected error detail: %+v", verr)
			}
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected ErrValidation marker, got %v", err)
			}
		})
	}
}

func TestValidateDetailAllowsEmptyStrings(t *testing.T) {
	detail, err := records.ValidateDetail(0, records.Row{Number: records.Str(""), Title: records.Str("")})
	if err != nil {
		t.Fatalf("expected empty strings to be accepted, got %v", err)
	}
	if detail.Rasterized() {
		t.Fatal("expected detail without file name to report not rasterized")
	}
}

func TestValidateSpecificationsDropsInvalidRows(t *testing.T) {
	rows := []records.Row{
		{Number: records.Str("07 21 00"), Title: records.Str("Thermal Insulation"), Body: records.Str("Part 1")},
		{Number: records.Str("08 11 13")},
		{Number: records.Str("09 29 00"), Title: records.Str("Gypsum Board")},
	}
	specs, errs := records.ValidateSpecifications(rows)
	if len(specs) != 2 {
		t.Fatalf("expected 2 valid specs, got %d", len(specs))
	}
	if specs[0].Number != "07 21 00" || specs[1].Number != "09 29 00" {
		t.Fatalf("unexpected order: %+v", specs)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
}
