package transcript

import "strings"

// Classification is best-effort string matching on the exact phrases the
// upstream is known to emit. Keep the marker lists tight; do not
// generalize beyond what the upstream actually sends.

var blockedMarkers = []string{
	"sign in",
	"bot",
	"captcha",
	"too many requests",
}

var disabledMarkers = []string{
	"transcripts disabled",
	"captions disabled",
	"subtitles are disabled",
}

var noCaptionsMarkers = []string{
	"no transcript",
	"no caption",
}

var unavailableMarkers = []string{
	"video unavailable",
	"video is unavailable",
	"video is private",
	"not playable",
}

// Classify maps upstream error text onto the closed taxonomy.
// Anything unrecognized is Unknown.
func Classify(message string) Kind {
	m := strings.ToLower(message)

	for _, marker := range blockedMarkers {
		if strings.Contains(m, marker) {
			return KindBlocked
		}
	}
	for _, marker := range disabledMarkers {
		if strings.Contains(m, marker) {
			return KindCaptionsDisabled
		}
	}
	for _, marker := range noCaptionsMarkers {
		if strings.Contains(m, marker) {
			return KindNoCaptions
		}
	}
	for _, marker := range unavailableMarkers {
		if strings.Contains(m, marker) {
			return KindVideoUnavailable
		}
	}

	return KindUnknown
}

// IsRetryable reports whether a failure of this kind may succeed on a
// later attempt of the same strategy. Definitive upstream answers
// (disabled, missing, unavailable) never are.
func IsRetryable(kind Kind) bool {
	return kind == KindBlocked || kind == KindUnknown
}
