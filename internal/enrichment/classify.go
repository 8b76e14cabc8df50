package enrichment

import (
	"errors"
	"strings"
)

type diagnosticError interface {
	DiagnosticLogs() string
}

type requestIDError interface {
	RequestID() string
}

// IsKnownBenignFailure reports whether err is a captioning failure the model
// flags as safe to skip. The error text and any diagnostic logs attached to it
// are scanned for each marker substring.
func IsKnownBenignFailure(err error, markers []string) bool {
	if err == nil || len(markers) == 0 {
		return false
	}
	texts := []string{err.Error()}
	var diag diagnosticError
	if errors.As(err, &diag) {
		texts = append(texts, diag.DiagnosticLogs())
	}
	for _, marker := range markers {
		if marker == "" {
			continue
		}
		for _, text := range texts {
			if strings.Contains(text, marker) {
				return true
			}
		}
	}
	return false
}

// RequestIDOf returns the opaque request identifier carried by err, if any.
func RequestIDOf(err error) string {
	var rid requestIDError
	if errors.As(err, &rid) {
		return rid.RequestID()
	}
	return ""
}
