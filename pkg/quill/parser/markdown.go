package parser

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/jamesainslie/quill/pkg/quill/types"
)

type markdownParser struct {
	ctx     Context
	content []byte
	md      goldmark.Markdown
}

// NewMarkdown creates a parser for CommonMark documents. Each heading opens
// a section and the first level-1 heading becomes the title.
func NewMarkdown(ctx Context, content []byte, _ Options) Parser {
	return &markdownParser{ctx: ctx, content: content, md: goldmark.New()}
}

func (p *markdownParser) Scan() (*types.Artifact, error) {
	a := newArtifact(p.ctx, "markdown", p.content)
	root := p.md.Parser().Parse(text.NewReader(p.content))

	var (
		titled   bool
		current  *types.Section
		preamble []string
		body     []string
	)
	flush := func() {
		if current != nil {
			current.Body = strings.Join(body, "\n\n")
			a.Sections = append(a.Sections, *current)
		}
		body = nil
	}

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*gmast.Heading); ok {
			title := inlineText(h, p.content)
			if h.Level == 1 && !titled {
				a.Title = title
				titled = true
			}
			flush()
			current = &types.Section{Title: title, Level: h.Level}
			continue
		}

		block := strings.TrimSpace(blockText(n, p.content))
		if block == "" {
			continue
		}
		if a.Summary == "" && n.Kind() == gmast.KindParagraph {
			a.Summary = block
		}
		if current == nil {
			preamble = append(preamble, block)
		} else {
			body = append(body, block)
		}
	}
	flush()

	if len(preamble) > 0 {
		a.Sections = append([]types.Section{{Title: a.Title, Level: 1, Body: strings.Join(preamble, "\n\n")}}, a.Sections...)
	}

	return a, nil
}

// inlineText concatenates the text of an inline container such as a heading.
func inlineText(n gmast.Node, source []byte) string {
	var buf bytes.Buffer
	var walk func(gmast.Node)
	walk = func(n gmast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *gmast.Text:
				buf.Write(t.Segment.Value(source))
				if t.SoftLineBreak() || t.HardLineBreak() {
					buf.WriteByte(' ')
				}
			case *gmast.String:
				buf.Write(t.Value)
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return strings.TrimSpace(buf.String())
}

// blockText returns the source lines of a block node, descending into
// containers such as lists and block quotes.
func blockText(n gmast.Node, source []byte) string {
	if lines := n.Lines(); lines != nil && lines.Len() > 0 {
		var buf bytes.Buffer
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(source))
		}
		return strings.TrimRight(buf.String(), "\n")
	}

	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t := blockText(c, source); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}
