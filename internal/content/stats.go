// Package content derives reading statistics (word count and read time)
// from post bodies. Creating and updating a post use different derivation
// policies, so both are exposed and callers pick one explicitly.
package content

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// WordsPerMinute is the average reading speed used for read time estimates.
const WordsPerMinute = 220

// Source is the text a post's statistics can be derived from.
type Source struct {
	Title    string
	Excerpt  string
	HTML     string
	Markdown string
}

// Stats is the derived pair stored on a post.
type Stats struct {
	WordCount int
	ReadTime  *string
}

// StripTags removes markup and comments from s, keeping only text content
// with entities decoded. Adjacent text nodes are joined without a separator.
func StripTags(s string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a malformed tail; either way the text so far is the result.
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}

// CountWords counts words the way editors usually do for prose: a word is
// a run of letters that may contain apostrophes and hyphens but does not
// start with one or end with a hyphen. Digits are not words.
func CountWords(s string) int {
	count := 0
	inRun := false
	var run []rune
	flush := func() {
		if isWord(run) {
			count++
		}
		run = run[:0]
		inRun = false
	}
	for _, r := range s {
		if unicode.IsLetter(r) || r == '\'' || r == '-' {
			run = append(run, r)
			inRun = true
			continue
		}
		if inRun {
			flush()
		}
	}
	if inRun {
		flush()
	}
	return count
}

func isWord(run []rune) bool {
	start, end := 0, len(run)
	for start < end && (run[start] == '\'' || run[start] == '-') {
		start++
	}
	for end > start && run[end-1] == '-' {
		end--
	}
	for _, r := range run[start:end] {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// ReadTime formats the estimated reading time for a word count, rounding
// up to whole minutes with a minimum of one.
func ReadTime(words int) string {
	mins := int(math.Ceil(float64(words) / WordsPerMinute))
	if mins < 1 {
		mins = 1
	}
	return fmt.Sprintf("%d min read", mins)
}

// CreateStats applies the creation policy. A missing or zero word count is
// derived from the markdown source, or the HTML when there is no markdown.
// A missing read time is derived only when the word count is non-zero.
func CreateStats(src Source, wordCount *int, readTime *string) Stats {
	st := Stats{}
	if wordCount != nil && *wordCount > 0 {
		st.WordCount = *wordCount
	} else {
		switch {
		case strings.TrimSpace(src.Markdown) != "":
			st.WordCount = CountWords(StripTags(src.Markdown))
		case strings.TrimSpace(src.HTML) != "":
			st.WordCount = CountWords(StripTags(src.HTML))
		}
	}

	if readTime != nil && strings.TrimSpace(*readTime) != "" {
		rt := *readTime
		st.ReadTime = &rt
	} else if st.WordCount > 0 {
		rt := ReadTime(st.WordCount)
		st.ReadTime = &rt
	}
	return st
}

// UpdateStats applies the update policy. A missing or non-positive word
// count is recomputed from html, markdown, title and excerpt together, and
// the read time is always set.
func UpdateStats(src Source, wordCount *int, readTime *string) Stats {
	st := Stats{}
	if wordCount != nil && *wordCount > 0 {
		st.WordCount = *wordCount
	} else {
		joined := src.HTML + " " + src.Markdown + " " + src.Title + " " + src.Excerpt
		st.WordCount = CountWords(StripTags(joined))
	}

	rt := ReadTime(st.WordCount)
	if readTime != nil && strings.TrimSpace(*readTime) != "" {
		rt = *readTime
	}
	st.ReadTime = &rt
	return st
}
