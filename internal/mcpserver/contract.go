package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/tessera/internal/block"
)

// BlockFormatContract describes the saved block format that LLM consumers
// should follow when creating or editing documents.
const BlockFormatContract = `# Tessera Block Format Contract

A document is an ordered list of blocks. Every block has an id, a type naming
the tool that renders it, and a data object whose fields depend on the type.

## Saved shape

` + "```" + `json
{
  "id": "3f0c...",
  "title": "Meeting notes",
  "time": 1736935200000,
  "version": "2.31.0",
  "blocks": [
    {"id": "a1", "type": "header", "data": {"text": "Agenda", "level": 2}},
    {"id": "a2", "type": "list", "data": {"text": "Budget", "style": "ordered"}, "content": ["a3"]},
    {"id": "a3", "type": "list", "data": {"text": "Q3 numbers", "style": "ordered"}, "parent": "a2"},
    {"id": "a4", "type": "paragraph", "data": {"text": "See <b>notes</b>."}, "tunes": {"alignment": {"alignment": "center"}}}
  ]
}
` + "```" + `

## Block types

| type | data fields |
|------|-------------|
| paragraph | ` + "`text`" + ` inline HTML (b, i, a href) |
| header | ` + "`text`" + `, ` + "`level`" + ` 1 to 6 |
| quote | ` + "`text`" + `, ` + "`caption`" + ` |
| list | ` + "`text`" + `, ` + "`style`" + ` unordered, ordered or checklist, ` + "`checked`" + ` |
| delimiter | none |

## Rules

1. **Ids are stable.** Editing, converting or moving a block keeps its id.
   Omit the id on insert and one is generated.
2. **Nesting** uses ` + "`parent`" + ` on the child and ` + "`content`" + ` on the parent.
   Only list items nest under list items. A child always follows its parent.
3. **Markup** is sanitized on write: tags outside the per-field allow list are
   stripped, script and style content is dropped.
4. **Unknown types** are preserved as-is and round-trip unchanged.
5. **Blank paragraphs** are dropped on save.
6. Block tools save immediately; there is no separate save step.

## Markdown import

` + "`import_markdown`" + ` accepts headings, paragraphs, ` + "`>`" + ` quotes, ` + "`---`" + `
rules and lists (` + "`-`" + `, ` + "`1.`" + `, ` + "`- [ ]`" + `), nested by two spaces per level.
YAML frontmatter ` + "`title`" + ` names a new document.
`

// toolTable lists the tools registered in reg.
func toolTable(reg *block.Registry) string {
	var b strings.Builder
	b.WriteString("\n## Registered tools\n\n| type | nests | converts |\n|------|-------|----------|\n")
	for _, spec := range reg.Tools() {
		if spec.Name == block.StubName {
			continue
		}
		nests := "no"
		if spec.Family != "" {
			nests = spec.Family
		}
		converts := "no"
		if spec.Conversion.CanExport() && spec.Conversion.CanImport() {
			converts = "yes"
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", spec.Name, nests, converts)
	}
	return b.String()
}
