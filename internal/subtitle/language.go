package subtitle

import (
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// DetectLanguage guesses the language of decoded transcript text.
// Detection runs per sentence-sized chunk and the majority wins, which is
// more stable than a single pass over mixed-language transcripts.
func DetectLanguage(text string) language.Tag {
	text = strings.TrimSpace(text)
	if text == "" {
		return language.Und
	}

	langMap := make(map[string]int)
	for _, chunk := range chunkText(text, 200) {
		lang := whatlanggo.DetectLang(chunk).Iso6391()
		if _, ok := langMap[lang]; !ok {
			langMap[lang] = 0
		}
		langMap[lang]++
	}

	// Get top language
	var topLang string
	var topCount int
	for lang, count := range langMap {
		if count > topCount {
			topLang = lang
			topCount = count
		}
	}

	if topLang == "" {
		return language.Und
	}
	return language.Make(topLang)
}

// chunkText splits text into word-aligned chunks of roughly size runes.
func chunkText(text string, size int) []string {
	words := strings.Fields(text)
	var chunks []string
	var current strings.Builder
	for _, word := range words {
		if current.Len() > 0 && current.Len()+len(word)+1 > size {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
