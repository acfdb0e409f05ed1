// Package markdown pulls structured fields out of loosely formatted quest
// journals and briefs. Every extractor returns a usable zero value instead
// of an error when the document does not have the expected shape.
package markdown

import (
	"regexp"
	"strings"
)

const frontmatterDelimiter = "---"

// TitlePrefixes are stripped from the leading "# " heading.
var TitlePrefixes = []string{"Quest Journal:", "Quest Brief:"}

var (
	headingRE   = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*$`)
	metaLineRE  = regexp.MustCompile(`^\*\*[^*]+:\s*\*\*|^\*\*[^*]+\*\*\s*:`)
	linkRE      = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	codeFenceRE = regexp.MustCompile("(?s)```[^\\n]*\\n?(.*?)```")
)

// StripFrontmatter drops a leading YAML frontmatter block, if any, and
// returns the remaining body. An unclosed block is left untouched.
func StripFrontmatter(content string) string {
	trimmed := strings.TrimLeft(content, "\ufeff \t\r\n")
	if !strings.HasPrefix(trimmed, frontmatterDelimiter) {
		return content
	}
	rest := trimmed[len(frontmatterDelimiter):]
	idx := strings.Index(rest, "\n"+frontmatterDelimiter)
	if idx == -1 {
		return content
	}
	body := rest[idx+len("\n"+frontmatterDelimiter):]
	return strings.TrimLeft(body, "\r\n")
}

func splitLines(content string) []string {
	return strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
}

// heading reports the level and text of a markdown ATX heading line.
func heading(line string) (int, string, bool) {
	m := headingRE.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return 0, "", false
	}
	return len(m[1]), m[2], true
}

// headings calls fn for every heading outside fenced code blocks until fn
// returns false.
func headings(lines []string, fn func(i, level int, text string) bool) {
	inFence := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if level, text, ok := heading(line); ok && !fn(i, level, text) {
			return
		}
	}
}

// Title returns the text of the first level-1 heading with any known
// prefix removed, or "" when the document has none.
func Title(content string) string {
	title := ""
	headings(splitLines(StripFrontmatter(content)), func(_, level int, text string) bool {
		if level != 1 {
			return true
		}
		title = text
		for _, prefix := range TitlePrefixes {
			if len(text) >= len(prefix) && strings.EqualFold(text[:len(prefix)], prefix) {
				title = strings.TrimSpace(text[len(prefix):])
				break
			}
		}
		return false
	})
	return title
}

// FieldRaw returns the trimmed value of a "**Key:** value" or
// "**Key**: value" line, matched case-insensitively. The field must open
// its line and lines inside fenced code blocks are ignored. The
// colon-inside form wins when both are present. No markdown cleanup is
// applied.
func FieldRaw(content, key string) (string, bool) {
	k := strings.ReplaceAll(regexp.QuoteMeta(strings.TrimSpace(key)), " ", `[ _-]`)
	lines := proseLines(splitLines(content))
	for _, pattern := range []string{
		`(?i)^[ \t]*\*\*` + k + `:[ \t]*\*\*[ \t]*(.+?)[ \t]*$`,
		`(?i)^[ \t]*\*\*` + k + `\*\*[ \t]*:[ \t]*(.+?)[ \t]*$`,
	} {
		re := regexp.MustCompile(pattern)
		for _, line := range lines {
			if m := re.FindStringSubmatch(line); m != nil {
				if v := strings.TrimSpace(m[1]); v != "" {
					return v, true
				}
			}
		}
	}
	return "", false
}

// proseLines drops fenced code blocks, fence markers included.
func proseLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	inFence := false
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if !inFence {
			out = append(out, line)
		}
	}
	return out
}

// Field is FieldRaw followed by CleanValue.
func Field(content, key string) string {
	raw, ok := FieldRaw(content, key)
	if !ok {
		return ""
	}
	return CleanValue(raw)
}

// CleanValue strips surrounding backticks and emphasis markers and reduces
// markdown links to their text.
func CleanValue(v string) string {
	v = linkRE.ReplaceAllString(strings.TrimSpace(v), "$1")
	for {
		before := v
		for _, marker := range []string{"`", "**", "__", "*", "_"} {
			if len(v) >= 2*len(marker) && strings.HasPrefix(v, marker) && strings.HasSuffix(v, marker) {
				v = strings.TrimSpace(v[len(marker) : len(v)-len(marker)])
			}
		}
		if v == before {
			return v
		}
	}
}

// Section returns the lines under the first heading named name (any level,
// case-insensitive) up to the next heading of equal or shallower level.
func Section(content, name string) (string, bool) {
	lines := splitLines(content)
	target := strings.TrimSpace(name)
	start, end, level := -1, len(lines), 0
	headings(lines, func(i, lv int, text string) bool {
		if start == -1 {
			if strings.EqualFold(text, target) {
				start, level = i+1, lv
			}
			return true
		}
		if lv <= level {
			end = i
			return false
		}
		return true
	})
	if start == -1 {
		return "", false
	}
	return strings.Join(lines[start:end], "\n"), true
}

// FirstParagraph returns the first run of prose lines in content, joined by
// single spaces. Code fences are flattened first; headings, tables and
// metadata lines are never part of a paragraph. A list item on its own is a
// one-line paragraph.
func FirstParagraph(content string) string {
	text := codeFenceRE.ReplaceAllStringFunc(content, func(block string) string {
		m := codeFenceRE.FindStringSubmatch(block)
		return strings.TrimSpace(m[1])
	})

	var para []string
	for _, raw := range splitLines(text) {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "|") || metaLineRE.MatchString(line) {
			if len(para) > 0 {
				break
			}
			continue
		}
		if item, ok := listItem(line); ok {
			if len(para) > 0 {
				break
			}
			return item
		}
		para = append(para, line)
	}
	return strings.Join(para, " ")
}

func listItem(line string) (string, bool) {
	for _, marker := range []string{"- ", "* "} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(line[len(marker):]), true
		}
	}
	return "", false
}

// SectionParagraph returns the first paragraph of the first named section
// that yields any prose.
func SectionParagraph(content string, names ...string) string {
	for _, name := range names {
		body, ok := Section(content, name)
		if !ok {
			continue
		}
		if p := FirstParagraph(body); p != "" {
			return p
		}
	}
	return ""
}

// BodyAfterTitle drops frontmatter and everything up to and including the
// first level-1 heading.
func BodyAfterTitle(content string) string {
	lines := splitLines(StripFrontmatter(content))
	start := 0
	headings(lines, func(i, level int, _ string) bool {
		if level == 1 {
			start = i + 1
			return false
		}
		return true
	})
	return strings.Join(lines[start:], "\n")
}
