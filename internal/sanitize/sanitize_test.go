package sanitize

import (
	"strings"
	"testing"
)

func TestStringRules(t *testing.T) {
	tests := []struct {
		name string
		in   string
		rule Rule
		want string
	}{
		{"strip all", "<b>bold</b> &amp; <i>it</i>", Rule{}, "bold & it"},
		{"keep all", "<b>x</b><script>y</script>", KeepAll(), "<b>x</b><script>y</script>"},
		{"allow b", "<b>x</b><i>y</i>", Allow("b"), "<b>x</b>y"},
		{"drop script", "ok<script>alert(1)</script>", Allow("b"), "ok"},
		{"escaped script", "&lt;script&gt;alert(1)&lt;/script&gt;", Rule{}, ""},
		{"escaped tag keeps text", "&lt;b&gt;x&lt;/b&gt;", Rule{}, "x"},
		{"double escaped", "&amp;lt;i&amp;gt;y&amp;lt;/i&amp;gt;", Rule{}, "y"},
		{"literal less than", "a &lt; b", Rule{}, "a < b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := String(tt.in, tt.rule); got != tt.want {
				t.Errorf("String(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLinkAttrs(t *testing.T) {
	got := String(`<a href="https://x.io" onclick="z">l</a>`, Allow().With("a", "href"))
	if !strings.Contains(got, `href="https://x.io"`) || strings.Contains(got, "onclick") {
		t.Errorf("String = %q", got)
	}
}

func TestDataUsesFieldRule(t *testing.T) {
	cfg := Config{
		Rule:   Rule{},
		Fields: map[string]Rule{"text": Allow("b")},
	}
	out := Data(map[string]any{
		"text":    "<b>a</b><i>b</i>",
		"caption": "<b>c</b>",
		"items":   []any{"<b>d</b>", 3},
		"level":   2,
	}, cfg)

	if out["text"] != "<b>a</b>b" {
		t.Errorf("text = %q", out["text"])
	}
	if out["caption"] != "c" {
		t.Errorf("caption = %q", out["caption"])
	}
	items := out["items"].([]any)
	if items[0] != "d" || items[1] != 3 {
		t.Errorf("items = %v", items)
	}
	if out["level"] != 2 {
		t.Errorf("level = %v", out["level"])
	}
}

func TestDataEscapedMarkupStaysInert(t *testing.T) {
	out := Data(map[string]any{"caption": "&lt;script&gt;alert(1)&lt;/script&gt;ok"}, Config{})
	if got := out["caption"].(string); strings.Contains(got, "<") || got != "ok" {
		t.Errorf("caption = %q", got)
	}
}

func TestPlainText(t *testing.T) {
	if got := PlainText("<p>hello\n  <b>world</b></p>"); got != "hello world" {
		t.Errorf("PlainText = %q", got)
	}
}
