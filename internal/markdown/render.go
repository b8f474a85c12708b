package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"

	"github.com/starford/tessera/internal/depth"
	"github.com/starford/tessera/internal/models"
)

// Render writes doc as Markdown. List items are indented by hierarchy depth
// and ordered items are numbered within their sibling run.
func Render(doc models.Document) ([]byte, error) {
	var buf bytes.Buffer
	if doc.Title != "" {
		fm, err := yaml.Marshal(map[string]string{"title": doc.Title})
		if err != nil {
			return nil, fmt.Errorf("marshal frontmatter: %w", err)
		}
		buf.WriteString("---\n")
		buf.Write(fm)
		buf.WriteString("---\n\n")
	}

	entries := Entries(doc.Blocks)
	prevList := false
	for i, b := range doc.Blocks {
		isList := b.Tool == "list"
		if i > 0 && !(isList && prevList) {
			buf.WriteString("\n")
		}
		prevList = isList

		text := Text(fmt.Sprint(valueOr(b.Data["text"], "")))
		switch b.Tool {
		case "header":
			level := max(1, min(6, intOf(b.Data["level"], 2)))
			fmt.Fprintf(&buf, "%s %s\n", strings.Repeat("#", level), text)
		case "quote":
			fmt.Fprintf(&buf, "> %s\n", text)
			if c := Text(fmt.Sprint(valueOr(b.Data["caption"], ""))); c != "" {
				fmt.Fprintf(&buf, ">\n> %s\n", c)
			}
		case "delimiter":
			buf.WriteString("---\n")
		case "list":
			e := entries[i]
			fmt.Fprintf(&buf, "%s%s %s\n", strings.Repeat("  ", e.Depth), marker(b, entries, i), text)
		default:
			if text == "" {
				continue
			}
			buf.WriteString(text + "\n")
		}
	}
	return buf.Bytes(), nil
}

func marker(b models.SavedBlock, entries depth.Entries, i int) string {
	e := entries[i]
	switch e.Kind {
	case "ordered":
		return fmt.Sprintf("%d.", depth.SiblingIndex(entries, i, e.Depth, e.Kind)+1)
	case "checklist":
		if checked, _ := b.Data["checked"].(bool); checked {
			return "- [x]"
		}
		return "- [ ]"
	default:
		return "-"
	}
}

// Entries derives depth markers from the saved parent links.
func Entries(blocks []models.SavedBlock) depth.Entries {
	parents := make(map[string]string, len(blocks))
	for _, b := range blocks {
		parents[b.ID] = b.ParentID
	}
	out := make(depth.Entries, len(blocks))
	for i, b := range blocks {
		e := depth.Entry{Depth: depth.Of(parents, b.ID)}
		if b.Tool == "list" {
			e.Family = "list"
			e.Kind, _ = b.Data["style"].(string)
			if e.Kind == "" {
				e.Kind = "unordered"
			}
		}
		out[i] = e
	}
	return out
}

// Text converts the stored inline HTML back to Markdown.
func Text(s string) string {
	var out strings.Builder
	var hrefs []string
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(out.String())
		case html.TextToken:
			out.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "b", "strong":
				out.WriteString("**")
			case "i", "em":
				out.WriteString("_")
			case "code":
				out.WriteString("`")
			case "br":
				out.WriteString(" ")
			case "a":
				hrefs = append(hrefs, attr(tok, "href"))
				out.WriteString("[")
			}
		case html.EndTagToken:
			tok := z.Token()
			switch tok.Data {
			case "b", "strong":
				out.WriteString("**")
			case "i", "em":
				out.WriteString("_")
			case "code":
				out.WriteString("`")
			case "a":
				if n := len(hrefs); n > 0 {
					fmt.Fprintf(&out, "](%s)", hrefs[n-1])
					hrefs = hrefs[:n-1]
				}
			}
		}
	}
}

func plain(v any) string {
	s, _ := v.(string)
	return html.UnescapeString(stripTags(s))
}

func stripTags(s string) string {
	var out strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return out.String()
		case html.TextToken:
			out.Write(z.Raw())
		}
	}
}

func attr(t html.Token, key string) string {
	for _, a := range t.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func valueOr(v, def any) any {
	if v == nil {
		return def
	}
	return v
}

func intOf(v any, def int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}
