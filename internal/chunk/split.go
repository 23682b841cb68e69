package chunk

import (
	"strings"
	"unicode/utf8"
)

// TokenCounter approximates the number of tokens in a text.
type TokenCounter func(text string) int

// CharCounter counts one token per character (rune). With this counter every
// budget is a character budget.
func CharCounter(text string) int {
	return utf8.RuneCountInString(text)
}

// WordCounter counts whitespace-delimited words.
func WordCounter(text string) int {
	return len(strings.Fields(text))
}

// Splitter bounds text by a token budget.
type Splitter interface {
	// Count returns the token estimate the splitter budgets with.
	Count(text string) int
	// SplitLines splits text into non-empty lines of at most maxTokens each.
	SplitLines(text string, maxTokens int) []string
	// SplitParagraphs packs consecutive lines, newline-joined, into paragraphs of at
	// most maxTokens each. A single line over the budget becomes its own paragraph.
	SplitParagraphs(lines []string, maxTokens int) []string
}

// lineSeparators are tried in order when a line is over budget.
var lineSeparators = []string{". ", "! ", "? ", "; ", ": ", ", ", " "}

// TextSplitter is the default Splitter. Over-budget lines are broken at sentence
// punctuation first, then clause punctuation, then spaces, and finally between runes.
type TextSplitter struct {
	counter TokenCounter
}

// NewTextSplitter creates a TextSplitter. A nil counter means CharCounter.
func NewTextSplitter(counter TokenCounter) *TextSplitter {
	if counter == nil {
		counter = CharCounter
	}
	return &TextSplitter{counter: counter}
}

// Count implements Splitter.
func (s *TextSplitter) Count(text string) int {
	return s.counter(text)
}

// SplitLines implements Splitter.
func (s *TextSplitter) SplitLines(text string, maxTokens int) []string {
	maxTokens = max(maxTokens, 1)

	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		lines = append(lines, s.splitLine(line, maxTokens, lineSeparators)...)
	}
	return lines
}

// SplitParagraphs implements Splitter.
func (s *TextSplitter) SplitParagraphs(lines []string, maxTokens int) []string {
	var (
		paragraphs []string
		cur        string
	)
	for _, line := range lines {
		if cur == "" {
			cur = line
			continue
		}
		candidate := cur + "\n" + line
		if s.counter(candidate) > maxTokens {
			paragraphs = append(paragraphs, cur)
			cur = line
			continue
		}
		cur = candidate
	}
	if cur != "" {
		paragraphs = append(paragraphs, cur)
	}
	return paragraphs
}

// splitLine breaks a single line until every piece fits maxTokens.
func (s *TextSplitter) splitLine(line string, maxTokens int, seps []string) []string {
	if s.counter(line) <= maxTokens {
		return []string{line}
	}
	if len(seps) == 0 {
		return s.hardSplit(line, maxTokens)
	}

	parts := strings.SplitAfter(line, seps[0])
	if len(parts) == 1 {
		return s.splitLine(line, maxTokens, seps[1:])
	}

	var (
		out []string
		cur string
	)
	flush := func() {
		if piece := strings.TrimSpace(cur); piece != "" {
			out = append(out, s.splitLine(piece, maxTokens, seps[1:])...)
		}
		cur = ""
	}
	for _, p := range parts {
		if strings.TrimSpace(cur) != "" && s.counter(strings.TrimSpace(cur+p)) > maxTokens {
			flush()
		}
		cur += p
	}
	flush()
	return out
}

// hardSplit cuts between runes as a last resort.
func (s *TextSplitter) hardSplit(line string, maxTokens int) []string {
	var (
		out   []string
		start int
	)
	for i, r := range line {
		end := i + utf8.RuneLen(r)
		if i > start && s.counter(line[start:end]) > maxTokens {
			if piece := strings.TrimSpace(line[start:i]); piece != "" {
				out = append(out, piece)
			}
			start = i
		}
	}
	if piece := strings.TrimSpace(line[start:]); piece != "" {
		out = append(out, piece)
	}
	return out
}
