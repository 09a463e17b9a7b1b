package slide

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// markdown parses the inline subset the model may emit in replacement text:
// bold, italic, code, strikethrough and links. List markup is flattened to
// plain text rather than rendered.
var markdown = goldmark.New(goldmark.WithExtensions(extension.Strikethrough))

// ParseRuns converts replacement text with inline markdown into styled runs.
// Plain text comes back as a single run.
func ParseRuns(source string) []TextRun {
	src := []byte(source)
	doc := markdown.Parser().Parse(text.NewReader(src))
	var runs []TextRun

	var visit func(n ast.Node, style TextRun)
	visitChildren := func(n ast.Node, style TextRun) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			visit(c, style)
		}
	}
	visit = func(n ast.Node, style TextRun) {
		switch t := n.(type) {
		case *ast.Text:
			if value := t.Segment.Value(src); len(value) > 0 {
				style.Text = string(value)
				runs = append(runs, style)
			}
			if t.SoftLineBreak() || t.HardLineBreak() {
				style.Text = "\n"
				runs = append(runs, style)
			}
		case *ast.String:
			if len(t.Value) > 0 {
				style.Text = string(t.Value)
				runs = append(runs, style)
			}
		case *ast.CodeSpan:
			style.Code = true
			visitChildren(n, style)
		case *ast.Emphasis:
			if t.Level >= 2 {
				style.Bold = true
			} else {
				style.Italic = true
			}
			visitChildren(n, style)
		case *east.Strikethrough:
			style.Strikethrough = true
			visitChildren(n, style)
		case *ast.Link:
			style.Href = string(t.Destination)
			visitChildren(n, style)
		case *ast.AutoLink:
			style.Href = string(t.URL(src))
			style.Text = string(t.Label(src))
			runs = append(runs, style)
		default:
			visitChildren(n, style)
		}
	}

	first := true
	for block := doc.FirstChild(); block != nil; block = block.NextSibling() {
		if !first {
			runs = append(runs, TextRun{Text: "\n"})
		}
		first = false
		visit(block, TextRun{})
	}
	return mergeRuns(runs)
}

// mergeRuns coalesces adjacent runs that share a style so a plain sentence
// stays one run.
func mergeRuns(runs []TextRun) []TextRun {
	if len(runs) == 0 {
		return nil
	}
	out := runs[:1]
	for _, r := range runs[1:] {
		last := &out[len(out)-1]
		if last.Bold == r.Bold && last.Italic == r.Italic && last.Code == r.Code &&
			last.Strikethrough == r.Strikethrough && last.Href == r.Href {
			last.Text += r.Text
			continue
		}
		out = append(out, r)
	}
	return out
}
