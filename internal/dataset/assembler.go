package dataset

import (
	"fmt"

	"aecvision/internal/config"
	"aecvision/internal/linking"
)

// UserQuestion is the fixed question appended to every user turn.
const UserQuestion = "Can you explain what this drawing shows?"

// Options configures an Assembler. Empty fields take the config defaults.
type Options struct {
	ImagePolicy    string
	FallbackSource string
	IDPrefix       string
	ImageBaseURL   string
}

// Assembler turns linked records into dataset entries.
type Assembler struct {
	opts Options
}

// NewAssembler constructs an Assembler.
func NewAssembler(opts Options) *Assembler {
	if opts.ImagePolicy == "" {
		opts.ImagePolicy = config.ImagePolicyPerImage
	}
	if opts.FallbackSource == "" {
		opts.FallbackSource = config.FallbackLink
	}
	if opts.IDPrefix == "" {
		opts.IDPrefix = "construction"
	}
	return &Assembler{opts: opts}
}

// Select returns the records the image policy keeps, in link order. Under
// per_image every record (one page image) is kept. Under first_image only the
// first record of each pairing of a detail number with one specification is
// kept; specifications sharing a number are separate pairings.
func (a *Assembler) Select(records []*linking.LinkedRecord) []*linking.LinkedRecord {
	type pairing struct {
		detail string
		spec   int
	}
	out := make([]*linking.LinkedRecord, 0, len(records))
	seen := map[pairing]struct{}{}
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if a.opts.ImagePolicy == config.ImagePolicyFirstImage {
			key := pairing{rec.Detail.Number, rec.SpecIndex}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, rec)
	}
	return out
}

// Assemble builds one entry per record kept by Select, in link order. IDs are
// "{prefix}_{n}" with n counting emitted entries from 0.
func (a *Assembler) Assemble(records []*linking.LinkedRecord) []Entry {
	selected := a.Select(records)
	entries := make([]Entry, 0, len(selected))
	for _, rec := range selected {
		entries = append(entries, Entry{
			ID: fmt.Sprintf("%s_%d", a.opts.IDPrefix, len(entries)),
			Conversations: []Turn{
				{From: FromUser, Value: a.userTurn(rec)},
				{From: FromAssistant, Value: a.assistantTurn(rec)},
			},
		})
	}
	return entries
}

func (a *Assembler) userTurn(rec *linking.LinkedRecord) string {
	ref := rec.Detail.ImageURL(a.opts.ImageBaseURL)
	if ref == "" {
		ref = rec.Detail.Link
	}
	return fmt.Sprintf("Drawing: <img src='%s'></img>\n%s", ref, UserQuestion)
}

func (a *Assembler) assistantTurn(rec *linking.LinkedRecord) string {
	if rec.Description != nil {
		return rec.Description.Assistant
	}
	source := rec.Spec.Link
	if a.opts.FallbackSource == config.FallbackBody {
		source = rec.Spec.Body
	}
	return fmt.Sprintf("The specification %s for %s can be found in the following document: %s",
		rec.Spec.Title, rec.Detail.Title, source)
}
