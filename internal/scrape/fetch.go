package scrape

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

const maxDocumentBytes = 256 << 20

// fetch GETs target and returns the body when the response is 200 and its
// media type satisfies accept. An empty accept allows any type.
func (s *Scraper) fetch(ctx context.Context, target string, accept func(mediaType string) bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	if accept != nil {
		mediaType := contentType(resp.Header.Get("Content-Type"))
		if !accept(mediaType) {
			return nil, fmt.Errorf("unexpected content type %q", mediaType)
		}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func contentType(header string) string {
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(header))
	}
	return mediaType
}

func isPDF(mediaType string) bool {
	return strings.Contains(mediaType, "application/pdf")
}

func isDocx(mediaType string) bool {
	return mediaType == docxContentType
}
