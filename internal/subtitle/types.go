package subtitle

import "errors"

// Format identifies the wire encoding of a raw subtitle payload.
type Format int

const (
	// FormatJSON3 is the segmented JSON encoding: an ordered list of timed
	// events, each carrying ordered text segments.
	FormatJSON3 Format = iota
	// FormatTimedText is the WebVTT-like markup encoding: sequential caption
	// blocks with timestamp ranges and free text.
	FormatTimedText
)

func (f Format) String() string {
	switch f {
	case FormatJSON3:
		return "json3"
	case FormatTimedText:
		return "timedtext"
	default:
		return "unknown"
	}
}

// FormatFromExtension maps a caption track extension to a Format.
// Anything that is not the segmented JSON encoding is treated as timed text.
func FormatFromExtension(ext string) Format {
	if ext == "json3" {
		return FormatJSON3
	}
	return FormatTimedText
}

// ErrMalformedPayload is returned when a payload does not parse in its
// declared format. An empty decode result is not an error at this layer;
// callers treat empty text as acquisition failure.
var ErrMalformedPayload = errors.New("malformed subtitle payload")
