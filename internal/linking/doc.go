// Package linking derives specification keys from free-text detail numbers and
// joins details to specifications on those keys.
//
// Normalize extracts the first six-digit run of a detail number ("SD-072100-26")
// and regroups it the way the specification catalog numbers its documents
// ("07 21 00"). Numbers without such a run get the Unmatched key, which is a
// distinct value rather than a string that merely happens not to match.
//
// Link performs an inner join with fan-out: every page of a multi-page detail
// joins independently, and duplicate specification numbers produce a cross
// product that is surfaced in the Report instead of being silently collapsed.
package linking
