package parser

import (
	"strings"

	"github.com/jamesainslie/quill/pkg/quill/types"
)

// maxSectionTitle bounds section titles taken from paragraph first lines.
const maxSectionTitle = 60

type simpleParser struct {
	ctx     Context
	content []byte
}

// NewSimple creates a parser for plain text. The first line is the title
// and each blank-line separated paragraph is a section. It is also the
// fallback for files no other entry accepts.
func NewSimple(ctx Context, content []byte, _ Options) Parser {
	return &simpleParser{ctx: ctx, content: content}
}

func (p *simpleParser) Scan() (*types.Artifact, error) {
	a := newArtifact(p.ctx, FallbackKind, p.content)

	paragraphs := splitParagraphs(strings.ReplaceAll(string(p.content), "\r\n", "\n"))
	if len(paragraphs) == 0 {
		return a, nil
	}

	first := paragraphs[0]
	title, rest, _ := strings.Cut(first, "\n")
	a.Title = strings.TrimSpace(title)
	if rest = strings.TrimSpace(rest); rest != "" {
		paragraphs[0] = rest
	} else {
		paragraphs = paragraphs[1:]
	}

	for _, para := range paragraphs {
		if a.Summary == "" {
			a.Summary = para
		}
		head, _, _ := strings.Cut(para, "\n")
		a.Sections = append(a.Sections, types.Section{
			Title: truncate(strings.TrimSpace(head), maxSectionTitle),
			Level: 2,
			Body:  para,
		})
	}

	return a, nil
}

func splitParagraphs(s string) []string {
	var out, cur []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(cur) > 0 {
				out = append(out, strings.Join(cur, "\n"))
				cur = nil
			}
			continue
		}
		cur = append(cur, strings.TrimRight(line, " \t"))
	}
	if len(cur) > 0 {
		out = append(out, strings.Join(cur, "\n"))
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
