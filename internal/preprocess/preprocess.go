// Package preprocess normalizes raw article text before vectorization.
// Clean is a pure function: the same input always yields the same output, and
// both the trainer and the inference engine must run text through it so that
// the vocabulary seen at training time matches what is seen at request time.
package preprocess

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	urlRe        = regexp.MustCompile(`https?://\S+|www\.\S+`)
	nonLetterRe  = regexp.MustCompile(`[^a-z\s]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// stopwords is a compact English list. Words this common carry no class signal
// and only inflate the vocabulary.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(
		"a about above after again against all am an and any are as at be because " +
			"been before being below between both but by could did do does doing down " +
			"during each few for from further had has have having he her here hers " +
			"herself him himself his how i if in into is it its itself just me more " +
			"most my myself no nor not now of off on once only or other our ours " +
			"ourselves out over own s same she should so some such t than that the " +
			"their theirs them themselves then there these they this those through to " +
			"too under until up very was we were what when where which while who whom " +
			"why will with you your yours yourself yourselves") {
		stopwords[w] = struct{}{}
	}
}

// Clean lowercases, strips markup/URLs/punctuation, removes stopwords and
// applies light suffix stemming. The result is a space-joined token stream.
func Clean(text string) string {
	return strings.Join(Tokens(text), " ")
}

// Tokens returns the normalized token stream for text.
func Tokens(text string) []string {
	if looksLikeHTML(text) {
		text = stripHTML(text)
	}
	text = strings.ToLower(text)
	text = urlRe.ReplaceAllString(text, " ")
	text = nonLetterRe.ReplaceAllString(text, " ")
	text = whitespaceRe.ReplaceAllString(text, " ")

	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	for _, w := range fields {
		if len(w) < 2 {
			continue
		}
		if _, skip := stopwords[w]; skip {
			continue
		}
		out = append(out, stem(w))
	}
	return out
}

func looksLikeHTML(s string) bool {
	return strings.Contains(s, "</") || strings.Contains(s, "/>") ||
		strings.Contains(s, "<p>") || strings.Contains(s, "<div") ||
		strings.Contains(s, "<br")
}

// stripHTML extracts the text content of markup-bearing input. Articles pasted
// from a browser frequently carry tags.
func stripHTML(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	doc.Find("script, style").Remove()
	return doc.Text()
}

// stem trims the most common English inflection suffixes. This is not a full
// Porter stemmer; it only needs to fold obvious variants onto one vocabulary
// entry ("reporting"/"reported" -> "report").
func stem(w string) string {
	switch {
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "sses") && len(w) > 5:
		return w[:len(w)-2]
	case strings.HasSuffix(w, "ing") && len(w) > 5:
		return w[:len(w)-3]
	case strings.HasSuffix(w, "edly") && len(w) > 6:
		return w[:len(w)-4]
	case strings.HasSuffix(w, "ed") && len(w) > 4:
		return w[:len(w)-2]
	case strings.HasSuffix(w, "ly") && len(w) > 4:
		return w[:len(w)-2]
	case strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") && len(w) > 3:
		return w[:len(w)-1]
	}
	return w
}
