// Package markdown renders the small markdown subset used in assistant replies
// into sanitized HTML.
package markdown

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	codeBlockRe  = regexp.MustCompile("(?s)```(?:[\\w+-]*\\n)?(.*?)```")
	inlineCodeRe = regexp.MustCompile("`([^`\\n]+)`")
	boldRe       = regexp.MustCompile(`\*\*([^\n]+?)\*\*`)
	italicRe     = regexp.MustCompile(`\*([^*\s](?:[^*\n]*?[^*\s])?)\*`)
	linkRe       = regexp.MustCompile(`\[([^\]\n]+)\]\(([^)\s"]+)\)`)
	schemeRe     = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)
	bulletRe     = regexp.MustCompile(`^\s*[*-] (.*)$`)
	orderedRe    = regexp.MustCompile(`^\s*\d+\. (.*)$`)
	blockSlotRe  = regexp.MustCompile("^\x00B\\d+\x00$")
	slotRe       = regexp.MustCompile("\x00([BI])(\\d+)\x00")
)

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "strong", "em", "code", "pre", "ul", "ol", "li")
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
	p.AllowAttrs("rel").Matching(regexp.MustCompile(`^noopener noreferrer$`)).OnElements("a")
	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowRelativeURLs(true)
	return p
}

// stash holds fragments that later rewrite rules must not touch. Each fragment
// is replaced by a NUL delimited slot until the final restore.
type stash struct {
	blocks  []string
	inlines []string
}

func (s *stash) block(html string) string {
	s.blocks = append(s.blocks, html)
	return fmt.Sprintf("\n\n\x00B%d\x00\n\n", len(s.blocks)-1)
}

func (s *stash) inline(html string) string {
	s.inlines = append(s.inlines, html)
	return fmt.Sprintf("\x00I%d\x00", len(s.inlines)-1)
}

func (s *stash) restore(text string) string {
	return slotRe.ReplaceAllStringFunc(text, func(m string) string {
		parts := slotRe.FindStringSubmatch(m)
		idx, _ := strconv.Atoi(parts[2])
		if parts[1] == "B" {
			return s.blocks[idx]
		}
		return s.inlines[idx]
	})
}

// Format converts assistant text into safe HTML. The result is always wrapped
// in at least one block element. The transform is one-way.
func Format(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.ReplaceAll(text, "\r\n", "\n")

	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")

	var s stash

	text = codeBlockRe.ReplaceAllStringFunc(text, func(m string) string {
		body := codeBlockRe.FindStringSubmatch(m)[1]
		return s.block("<pre><code>" + strings.TrimSuffix(body, "\n") + "</code></pre>")
	})

	text = inlineCodeRe.ReplaceAllStringFunc(text, func(m string) string {
		return s.inline("<code>" + inlineCodeRe.FindStringSubmatch(m)[1] + "</code>")
	})

	text = boldRe.ReplaceAllString(text, "<strong>$1</strong>")
	text = italicRe.ReplaceAllString(text, "<em>$1</em>")

	text = linkRe.ReplaceAllStringFunc(text, func(m string) string {
		parts := linkRe.FindStringSubmatch(m)
		label, url := parts[1], parts[2]
		if !allowedURL(url) {
			return m
		}
		return fmt.Sprintf(`<a href="%s" target="_blank" rel="noopener noreferrer">%s</a>`, url, label)
	})

	html := s.restore(renderBlocks(text))
	return policy.Sanitize(html)
}

func allowedURL(url string) bool {
	lower := strings.ToLower(url)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "mailto:") {
		return true
	}
	return !schemeRe.MatchString(url)
}

// renderBlocks groups lines into paragraphs and lists.
func renderBlocks(text string) string {
	var (
		out       strings.Builder
		paragraph []string
		listTag   string
	)

	flushParagraph := func() {
		if len(paragraph) > 0 {
			out.WriteString("<p>" + strings.Join(paragraph, "<br>") + "</p>")
			paragraph = nil
		}
	}
	closeList := func() {
		if listTag != "" {
			out.WriteString("</" + listTag + ">")
			listTag = ""
		}
	}
	openList := func(tag string) {
		if listTag == tag {
			return
		}
		closeList()
		out.WriteString("<" + tag + ">")
		listTag = tag
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			flushParagraph()
			closeList()
		case blockSlotRe.MatchString(trimmed):
			flushParagraph()
			closeList()
			out.WriteString(trimmed)
		case bulletRe.MatchString(line):
			flushParagraph()
			openList("ul")
			out.WriteString("<li>" + strings.TrimSpace(bulletRe.FindStringSubmatch(line)[1]) + "</li>")
		case orderedRe.MatchString(line):
			flushParagraph()
			openList("ol")
			out.WriteString("<li>" + strings.TrimSpace(orderedRe.FindStringSubmatch(line)[1]) + "</li>")
		default:
			closeList()
			paragraph = append(paragraph, trimmed)
		}
	}
	flushParagraph()
	closeList()

	if out.Len() == 0 {
		return "<p></p>"
	}
	return out.String()
}
