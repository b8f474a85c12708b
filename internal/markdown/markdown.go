// Package markdown converts between Markdown text and saved block documents.
package markdown

import (
	"bytes"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/starford/tessera/internal/models"
)

var (
	headingRe  = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	listRe     = regexp.MustCompile(`^([ \t]*)([-*+]|\d+[.)])\s+(.*)$`)
	checkRe    = regexp.MustCompile(`^\[([ xX])\]\s+(.*)$`)
	ruleRe     = regexp.MustCompile(`^(\*\s*){3,}$|^(-\s*){3,}$|^(_\s*){3,}$`)
	boldRe     = regexp.MustCompile(`\*\*(.+?)\*\*|__(.+?)__`)
	italicRe   = regexp.MustCompile(`\*([^*]+?)\*|\b_([^_]+?)_\b`)
	codeRe     = regexp.MustCompile("`([^`]+)`")
	linkRe     = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	codeHoldRe = regexp.MustCompile("\x00(\\d+)\x00")
)

// Result holds a parsed Markdown file.
type Result struct {
	Frontmatter map[string]any
	Title       string
	Blocks      []models.SavedBlock
}

// Parse splits off YAML frontmatter and turns the body into blocks: headings,
// quotes, list items (nested by indentation), delimiters, and paragraphs.
func Parse(data []byte) (*Result, error) {
	fm, body := splitFrontmatter(data)
	p := &parser{}
	for _, line := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n") {
		p.line(line)
	}
	p.flush()
	return &Result{
		Frontmatter: fm,
		Title:       deriveTitle(fm, p.blocks),
		Blocks:      p.blocks,
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the body. Missing or invalid frontmatter leaves everything as body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}
	var fm map[string]any
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return nil, string(data)
	}
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")
	return fm, body
}

// deriveTitle returns the frontmatter "title", else the first level-1
// heading, else "".
func deriveTitle(fm map[string]any, blocks []models.SavedBlock) string {
	if s, ok := fm["title"].(string); ok && s != "" {
		return s
	}
	for _, b := range blocks {
		if b.Tool == "header" && b.Data["level"] == 1 {
			return plain(b.Data["text"])
		}
	}
	return ""
}

type listFrame struct {
	level int
	index int
}

type parser struct {
	blocks []models.SavedBlock
	para   []string
	quote  []string
	stack  []listFrame
}

func (p *parser) add(tool string, data map[string]any) int {
	p.blocks = append(p.blocks, models.SavedBlock{ID: uuid.NewString(), Tool: tool, Data: data})
	return len(p.blocks) - 1
}

func (p *parser) line(raw string) {
	trimmed := strings.TrimSpace(raw)
	switch {
	case trimmed == "":
		p.flush()
		p.stack = nil
	case ruleRe.MatchString(trimmed):
		p.flush()
		p.stack = nil
		p.add("delimiter", map[string]any{})
	case headingRe.MatchString(trimmed):
		p.flush()
		p.stack = nil
		m := headingRe.FindStringSubmatch(trimmed)
		p.add("header", map[string]any{"text": Inline(m[2]), "level": len(m[1])})
	case strings.HasPrefix(trimmed, ">"):
		p.flushPara()
		p.stack = nil
		p.quote = append(p.quote, strings.TrimSpace(strings.TrimPrefix(trimmed, ">")))
	case listRe.MatchString(raw):
		p.flush()
		m := listRe.FindStringSubmatch(raw)
		p.item(indentLevel(m[1]), m[2], m[3])
	default:
		p.flushQuote()
		p.stack = nil
		p.para = append(p.para, trimmed)
	}
}

// item appends a list block, parenting it under the nearest shallower item
// on the stack.
func (p *parser) item(level int, marker, text string) {
	data := map[string]any{"style": "unordered"}
	if marker[0] >= '0' && marker[0] <= '9' {
		data["style"] = "ordered"
	} else if m := checkRe.FindStringSubmatch(text); m != nil {
		data["style"] = "checklist"
		data["checked"] = m[1] != " "
		text = m[2]
	}
	data["text"] = Inline(text)

	for len(p.stack) > 0 && p.stack[len(p.stack)-1].level >= level {
		p.stack = p.stack[:len(p.stack)-1]
	}
	i := p.add("list", data)
	if len(p.stack) > 0 {
		parent := p.stack[len(p.stack)-1].index
		p.blocks[i].ParentID = p.blocks[parent].ID
		p.blocks[parent].ContentIDs = append(p.blocks[parent].ContentIDs, p.blocks[i].ID)
	}
	p.stack = append(p.stack, listFrame{level: level, index: i})
}

func (p *parser) flush() {
	p.flushPara()
	p.flushQuote()
}

func (p *parser) flushPara() {
	if len(p.para) == 0 {
		return
	}
	p.add("paragraph", map[string]any{"text": Inline(strings.Join(p.para, " "))})
	p.para = nil
}

func (p *parser) flushQuote() {
	if len(p.quote) == 0 {
		return
	}
	p.add("quote", map[string]any{"text": Inline(strings.Join(p.quote, " ")), "caption": "", "alignment": "left"})
	p.quote = nil
}

func indentLevel(ws string) int {
	n := 0
	for _, r := range ws {
		if r == '\t' {
			n += 2
		} else {
			n++
		}
	}
	return n / 2
}

// Inline converts inline Markdown (bold, italic, code, links) into the HTML
// subset the text tools store. Other text is escaped.
func Inline(s string) string {
	var codes []string
	s = codeRe.ReplaceAllStringFunc(s, func(m string) string {
		codes = append(codes, html.EscapeString(codeRe.FindStringSubmatch(m)[1]))
		return "\x00" + strconv.Itoa(len(codes)-1) + "\x00"
	})
	s = html.EscapeString(s)
	s = linkRe.ReplaceAllString(s, `<a href="$2">$1</a>`)
	s = boldRe.ReplaceAllString(s, "<b>$1$2</b>")
	s = italicRe.ReplaceAllString(s, "<i>$1$2</i>")
	return codeHoldRe.ReplaceAllStringFunc(s, func(m string) string {
		i, _ := strconv.Atoi(codeHoldRe.FindStringSubmatch(m)[1])
		return "<code>" + codes[i] + "</code>"
	})
}
