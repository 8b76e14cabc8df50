package dataset

import (
	"encoding/json"
	"fmt"
	"io"

	"aecvision/internal/config"
	"aecvision/internal/fileutil"
	"aecvision/internal/services"
)

// Write serializes entries to path in the given format, replacing any existing
// file atomically. jsonl emits one entry per line; json emits a single
// indented array. An existing file is left untouched when Write fails.
func Write(path, format string, entries []Entry) error {
	if format == "" {
		format = config.FormatJSONL
	}
	var encode func(w io.Writer) error
	switch format {
	case config.FormatJSONL:
		encode = func(w io.Writer) error { return encodeLines(w, entries) }
	case config.FormatJSON:
		encode = func(w io.Writer) error { return encodeArray(w, entries) }
	default:
		return services.Wrap(services.ErrValidation, "write", "format", fmt.Sprintf("unsupported format %q", format), nil)
	}

	if err := fileutil.WriteAtomic(path, 0o644, wrapWriter(encode)); err != nil {
		return services.Wrap(services.ErrIO, "write", "dataset", path, err)
	}
	return nil
}

func encodeLines(w io.Writer, entries []Entry) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := range entries {
		if err := enc.Encode(&entries[i]); err != nil {
			return fmt.Errorf("encode entry %s: %w", entries[i].ID, err)
		}
	}
	return nil
}

func encodeArray(w io.Writer, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// wrapWriter lets tests inject a failing writer between the encoder and the
// temporary file.
var wrapWriter = func(encode func(io.Writer) error) func(io.Writer) error {
	return encode
}
