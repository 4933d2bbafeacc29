package subtitle

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Decoding is pure: no network calls, no retries. The transcript
// orchestrator decides what to do with a failed or empty decode.

var (
	timestampRe  = regexp.MustCompile(`\d{2}:\d{2}:\d{2}[.,]\d{3}\s*-->\s*\d{2}:\d{2}:\d{2}[.,]\d{3}.*`)
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	cueIndexRe   = regexp.MustCompile(`^\d+$`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Decode parses a raw subtitle payload into plain spoken text with no
// timestamps or markup. The result is whitespace-normalized; it may be
// empty when the payload is valid but carries no text.
func Decode(payload []byte, format Format) (string, error) {
	switch format {
	case FormatJSON3:
		return decodeJSON3(payload)
	default:
		return decodeTimedText(payload), nil
	}
}

// json3Doc mirrors the segmented JSON caption encoding. Only the fields we
// read are declared; events without segments are ignored.
type json3Doc struct {
	Events []struct {
		Segs []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

func decodeJSON3(payload []byte) (string, error) {
	var doc json3Doc
	if err := json.Unmarshal(payload, &doc); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var b strings.Builder
	for _, event := range doc.Events {
		for _, seg := range event.Segs {
			if seg.UTF8 == "" {
				continue
			}
			b.WriteString(seg.UTF8)
			b.WriteString(" ")
		}
	}

	return Normalize(b.String()), nil
}

func decodeTimedText(payload []byte) string {
	lines := strings.Split(string(payload), "\n")

	var kept []string
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if i == 0 && strings.HasPrefix(trimmed, "WEBVTT") {
			continue
		}
		if strings.HasPrefix(trimmed, "Kind:") || strings.HasPrefix(trimmed, "Language:") {
			continue
		}
		if timestampRe.MatchString(trimmed) {
			continue
		}
		if cueIndexRe.MatchString(trimmed) {
			continue
		}
		kept = append(kept, tagRe.ReplaceAllString(trimmed, ""))
	}

	return Normalize(strings.Join(kept, " "))
}

// Normalize collapses whitespace runs to single spaces and trims the ends.
// Feeding already-decoded text back through the decoder is a no-op beyond
// this normalization.
func Normalize(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
