package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// RenderMarkdown renders src for a plain terminal outside the full-screen view.
func RenderMarkdown(src string, width int, theme UITheme) string {
	return strings.Join(renderMarkdown(src, width, withDefaults(theme)), "\n")
}

// renderMarkdown flattens a markdown document into styled terminal lines
// wrapped to width.
func renderMarkdown(src string, width int, theme UITheme) []string {
	source := []byte(src)
	doc := goldmark.New(goldmark.WithExtensions(extension.GFM)).Parser().Parse(text.NewReader(source))
	r := mdRenderer{source: source, width: max(width, 10), theme: theme}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		r.block(n, "")
	}
	for len(r.lines) > 0 && r.lines[len(r.lines)-1] == "" {
		r.lines = r.lines[:len(r.lines)-1]
	}
	return r.lines
}

type mdRenderer struct {
	source []byte
	width  int
	theme  UITheme
	lines  []string
}

func (r *mdRenderer) block(n ast.Node, indent string) {
	switch n := n.(type) {
	case *ast.Heading:
		style := fg(r.theme.HeaderText).Bold(true)
		for _, l := range wrap(r.inline(n), r.width-len(indent)) {
			r.lines = append(r.lines, indent+style.Render(l))
		}
		r.lines = append(r.lines, "")
	case *ast.Paragraph, *ast.TextBlock:
		r.text(r.inline(n), indent, indent, fg(r.theme.TextPrimary))
		if _, tight := n.(*ast.TextBlock); !tight {
			r.lines = append(r.lines, "")
		}
	case *ast.List:
		num := n.Start
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			bullet := "• "
			if n.IsOrdered() {
				bullet = fmt.Sprintf("%d. ", num)
				num++
			}
			r.listItem(item, indent, bullet)
		}
		r.lines = append(r.lines, "")
	case *ast.ThematicBreak:
		r.lines = append(r.lines, indent+fg(r.theme.TextMuted).Render(strings.Repeat("─", r.width-len(indent))), "")
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			line := strings.TrimRight(string(seg.Value(r.source)), "\n")
			r.lines = append(r.lines, indent+"  "+fg(r.theme.DetailsValue).Render(clip(line, r.width-len(indent)-2)))
		}
		r.lines = append(r.lines, "")
	case *extast.Table:
		for row := n.FirstChild(); row != nil; row = row.NextSibling() {
			var cells []string
			for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
				cells = append(cells, r.inline(cell))
			}
			style := fg(r.theme.TextPrimary)
			if _, ok := row.(*extast.TableHeader); ok {
				style = fg(r.theme.TableHeader).Bold(true)
			}
			r.text(strings.Join(cells, " │ "), indent, indent, style)
		}
		r.lines = append(r.lines, "")
	case *ast.Blockquote:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			r.block(c, indent+"│ ")
		}
	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			r.block(c, indent)
		}
	}
}

func (r *mdRenderer) listItem(item ast.Node, indent, bullet string) {
	first := true
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		switch c.(type) {
		case *ast.Paragraph, *ast.TextBlock:
			lead := indent + strings.Repeat(" ", len([]rune(bullet)))
			head := lead
			if first {
				head = indent + bullet
			}
			r.text(r.inline(c), head, lead, fg(r.theme.TextPrimary))
		default:
			r.block(c, indent+"  ")
		}
		first = false
	}
}

// text wraps s so the first line starts with head and the rest with lead.
func (r *mdRenderer) text(s, head, lead string, style lipgloss.Style) {
	width := r.width - len([]rune(lead))
	for i, l := range wrap(s, width) {
		prefix := lead
		if i == 0 {
			prefix = head
		}
		r.lines = append(r.lines, prefix+style.Render(l))
	}
}

func (r *mdRenderer) inline(n ast.Node) string {
	var b strings.Builder
	r.collect(&b, n)
	return strings.TrimSpace(b.String())
}

func (r *mdRenderer) collect(b *strings.Builder, n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(r.source))
			if c.SoftLineBreak() || c.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(c.Value)
		case *ast.CodeSpan:
			b.WriteByte('`')
			r.collect(b, c)
			b.WriteByte('`')
		case *ast.Link:
			r.collect(b, c)
			if dest := string(c.Destination); dest != "" {
				fmt.Fprintf(b, " (%s)", dest)
			}
		case *ast.Image:
			b.WriteString("[image: ")
			r.collect(b, c)
			fmt.Fprintf(b, "] %s", c.Destination)
		case *ast.AutoLink:
			b.Write(c.URL(r.source))
		case *extast.TaskCheckBox:
			if c.IsChecked {
				b.WriteString("[x] ")
			} else {
				b.WriteString("[ ] ")
			}
		default:
			r.collect(b, c)
		}
	}
}

// wrap breaks s on word boundaries into lines of at most width cells,
// splitting words that are longer than a line.
func wrap(s string, width int) []string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" || width <= 0 {
		return []string{""}
	}
	lines := strings.Split(ansi.Wrap(s, width, ""), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return lines
}

func wrapAll(lines []string, width int) []string {
	var out []string
	for _, l := range lines {
		out = append(out, wrap(l, width)...)
	}
	return out
}
