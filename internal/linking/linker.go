package linking

import (
	"aecvision/internal/records"
)

// TurnPair is a user prompt and the assistant reply attached to a record by
// the enricher.
type TurnPair struct {
	User      string
	Assistant string
}

// LinkedRecord pairs a detail with the specification its number refers to.
// SpecIndex is the position of Spec in the slice passed to Link, so records
// linked to different specifications sharing a number stay distinguishable.
// Description stays nil until an enricher completes a caption for it.
type LinkedRecord struct {
	Key         Key
	Detail      records.Detail
	Spec        records.Specification
	SpecIndex   int
	Description *TurnPair
}

// Report summarizes one Link call. DuplicateSpecNumbers lists specification
// numbers that occurred more than once; every detail matching such a number is
// paired with each duplicate, which usually points to a catalog problem.
type Report struct {
	Details              int
	Specs                int
	Linked               int
	UnmatchedDetails     int
	UnmatchedSpecs       int
	DuplicateSpecNumbers []string
}

// Link inner-joins details to specifications on Normalize(detail.Number) ==
// spec.Number. Output follows detail input order; a detail matching several
// specifications yields one record per specification in specification input
// order. Details and specifications without a partner are dropped.
func Link(details []records.Detail, specs []records.Specification) ([]*LinkedRecord, Report) {
	report := Report{Details: len(details), Specs: len(specs)}

	index := make(map[string][]int, len(specs))
	for i, spec := range specs {
		positions := index[spec.Number]
		if len(positions) == 1 {
			report.DuplicateSpecNumbers = append(report.DuplicateSpecNumbers, spec.Number)
		}
		index[spec.Number] = append(positions, i)
	}

	used := make([]bool, len(specs))
	linked := make([]*LinkedRecord, 0, len(details))
	for _, detail := range details {
		key := Normalize(detail.Number)
		if !key.Matched() {
			report.UnmatchedDetails++
			continue
		}
		positions, ok := index[key.String()]
		if !ok {
			report.UnmatchedDetails++
			continue
		}
		for _, pos := range positions {
			used[pos] = true
			linked = append(linked, &LinkedRecord{
				Key:       key,
				Detail:    detail,
				Spec:      specs[pos],
				SpecIndex: pos,
			})
		}
	}

	for _, u := range used {
		if !u {
			report.UnmatchedSpecs++
		}
	}
	report.Linked = len(linked)
	return linked, report
}
