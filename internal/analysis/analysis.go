// Package analysis implements the text-normalization pipeline shared by the
// index builder and the query engine. Both sides must tokenize through this
// package; any divergence between the two silently breaks recall.
//
// The pipeline is a fixed, ordered sequence of pure transformation steps:
// lowercase, strip URLs, strip hashtags/mentions, strip digit runs, strip
// non-ASCII, strip punctuation, split on whitespace, then drop stopwords,
// non-alphabetic tokens, and tokens of length <= 2 before stemming.
package analysis

import (
	"regexp"
	"strings"
)

var (
	urlPattern = regexp.MustCompile(`https?://\S+|www\.\S+`)
	tagPattern = regexp.MustCompile(`[@#]\w+`)
	digitRun   = regexp.MustCompile(`\d+`)

	rawURLPattern = regexp.MustCompile(`http\S+|www\S+`)
)

// MinTokenLength is the shortest token (exclusive) that survives filtering.
const MinTokenLength = 2

// Normalize applies the full pipeline and returns the ordered sequence of
// stemmed tokens. It is a pure function: identical input always yields
// identical output.
func Normalize(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ToLower(text)
	text = StripURLs(text)
	text = StripTags(text)
	text = StripDigits(text)
	text = StripNonASCII(text)
	text = StripPunctuation(text)

	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, word := range fields {
		if IsStopword(word) {
			continue
		}
		if !isAlpha(word) {
			continue
		}
		if len(word) <= MinTokenLength {
			continue
		}
		tokens = append(tokens, Stem(word))
	}
	return tokens
}

// CleanText returns the normalized token sequence joined with single spaces,
// the form persisted back into the document store as clean_text.
func CleanText(text string) string {
	return strings.Join(Normalize(text), " ")
}

// ExtractURLs returns the raw URL-like substrings of text in order of
// appearance. It feeds the extracted_urls audit column and plays no part in
// scoring.
func ExtractURLs(text string) []string {
	if text == "" {
		return nil
	}
	return rawURLPattern.FindAllString(text, -1)
}

// StripURLs removes http://, https://, and www. prefixed spans.
func StripURLs(text string) string {
	return urlPattern.ReplaceAllString(text, "")
}

// StripTags removes hashtag and mention tokens (leading @ or # plus the
// following word characters).
func StripTags(text string) string {
	return tagPattern.ReplaceAllString(text, "")
}

// StripDigits removes runs of decimal digits.
func StripDigits(text string) string {
	return digitRun.ReplaceAllString(text, "")
}

// StripNonASCII removes every rune outside the printable ASCII range,
// dropping emoji and other symbols.
func StripNonASCII(text string) string {
	return strings.Map(func(r rune) rune {
		if r > 127 {
			return -1
		}
		return r
	}, text)
}

// StripPunctuation removes ASCII punctuation characters.
func StripPunctuation(text string) string {
	return strings.Map(func(r rune) rune {
		if isPunct(r) {
			return -1
		}
		return r
	}, text)
}

func isPunct(r rune) bool {
	return strings.ContainsRune("!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~", r)
}

func isAlpha(word string) bool {
	for _, r := range word {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return len(word) > 0
}
