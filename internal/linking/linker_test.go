package linking_test

import (
	"reflect"
	"testing"

	"aecvision/internal/linking"
	"aecvision/internal/records"
)

func TestLinkInnerJoin(t *testing.T) {
	details := []records.Detail{
		{FileName: "SD-072100-26_1.png", Number: "SD-072100-26", Title: "Roof Insulation"},
		{FileName: "SD-000000_1.png", Number: "SD-NOSPEC", Title: "No Spec"},
		{FileName: "SD-099999-01_1.png", Number: "SD-099999-01", Title: "Orphan"},
		{FileName: "SD-081113-01_1.png", Number: "SD-081113-01", Title: "Door Frame"},
	}
	specs := []records.Specification{
		{Number: "08 11 13", Title: "Hollow Metal Doors"},
		{Number: "07 21 00", Title: "Thermal Insulation"},
		{Number: "03 30 00", Title: "Cast-in-Place Concrete"},
	}

	linked, report := linking.Link(details, specs)
	if len(linked) != 2 {
		t.Fatalf("expected 2 linked records, got %d", len(linked))
	}
	for _, rec := range linked {
		if linking.Normalize(rec.Detail.Number).String() != rec.Spec.Number {
			t.Fatalf("record joined on mismatched key: %+v", rec)
		}
		if rec.Description != nil {
			t.Fatal("expected no description before enrichment")
		}
	}
	if linked[0].Detail.Number != "SD-072100-26" || linked[1].Detail.Number != "SD-081113-01" {
		t.Fatalf("expected detail input order, got %q then %q", linked[0].Detail.Number, linked[1].Detail.Number)
	}
	if report.UnmatchedDetails != 2 {
		t.Fatalf("expected 2 unmatched details, got %d", report.UnmatchedDetails)
	}
	if report.UnmatchedSpecs != 1 {
		t.Fatalf("expected 1 unmatched spec, got %d", report.UnmatchedSpecs)
	}
	if report.Linked != 2 || report.Details != 4 || report.Specs != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestLinkPreservesFanOut(t *testing.T) {
	details := []records.Detail{
		{FileName: "AB-123456-1_1.png", Number: "AB-123456-1", Title: "Sheet"},
		{FileName: "AB-123456-1_2.png", Number: "AB-123456-1", Title: "Sheet"},
		{FileName: "AB-123456-1_3.png", Number: "AB-123456-1", Title: "Sheet"},
	}
	specs := []records.Specification{{Number: "12 34 56", Title: "Spec"}}

	linked, _ := linking.Link(details, specs)
	if len(linked) != 3 {
		t.Fatalf("expected 3 linked records, got %d", len(linked))
	}
	for i, rec := range linked {
		if rec.Detail.FileName != details[i].FileName {
			t.Fatalf("record %d out of order: %q", i, rec.Detail.FileName)
		}
	}
}

func TestLinkDuplicateSpecNumbersCrossProduct(t *testing.T) {
	details := []records.Detail{
		{Number: "SD-072100-1", Title: "A"},
		{Number: "SD-072100-2", Title: "B"},
	}
	specs := []records.Specification{
		{Number: "07 21 00", Title: "First"},
		{Number: "07 21 00", Title: "Second"},
		{Number: "07 21 00", Title: "Third"},
	}

	linked, report := linking.Link(details, specs)
	if len(linked) != 6 {
		t.Fatalf("expected cross product of 6, got %d", len(linked))
	}
	var got []string
	for _, rec := range linked {
		got = append(got, rec.Detail.Title+"/"+rec.Spec.Title)
	}
	want := []string{"A/First", "A/Second", "A/Third", "B/First", "B/Second", "B/Third"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected order: %v", got)
	}
	if !reflect.DeepEqual(report.DuplicateSpecNumbers, []string{"07 21 00"}) {
		t.Fatalf("expected duplicate number reported once, got %v", report.DuplicateSpecNumbers)
	}
}

func TestLinkUnmatchedNeverJoinsSentinelLookingSpec(t *testing.T) {
	details := []records.Detail{{Number: "SD-NONE", Title: "x"}}
	specs := []records.Specification{{Number: linking.UnmatchedText, Title: "bogus"}}
	linked, report := linking.Link(details, specs)
	if len(linked) != 0 {
		t.Fatalf("expected no link for unmatched key, got %d", len(linked))
	}
	if report.UnmatchedDetails != 1 || report.UnmatchedSpecs != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestLinkEmptyInputs(t *testing.T) {
	linked, report := linking.Link(nil, nil)
	if len(linked) != 0 || report.Linked != 0 {
		t.Fatalf("expected empty output, got %d", len(linked))
	}
}
