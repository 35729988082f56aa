package parser

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/quill/pkg/quill/types"
)

type yamlParser struct {
	ctx     Context
	content []byte
}

// NewYAML creates a parser for YAML documents. Each top-level key becomes
// a section described by its head comment.
func NewYAML(ctx Context, content []byte, _ Options) Parser {
	return &yamlParser{ctx: ctx, content: content}
}

func (p *yamlParser) Scan() (*types.Artifact, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(p.content, &root); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	a := newArtifact(p.ctx, "yaml", p.content)
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return a, nil
	}

	a.Summary = commentText(root.HeadComment)

	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return a, nil
	}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key, value := mapping.Content[i], mapping.Content[i+1]

		comment := commentText(key.HeadComment)
		if i == 0 && a.Summary == "" {
			// A comment above the first key is also the document comment.
			a.Summary = comment
		}

		var body []string
		if comment != "" {
			body = append(body, comment)
		}
		if value.Kind == yaml.ScalarNode && value.Value != "" {
			body = append(body, fmt.Sprintf("Default: %s", value.Value))
		}
		line := key.LineComment
		if line == "" {
			line = value.LineComment
		}
		if line = commentText(line); line != "" {
			body = append(body, line)
		}

		a.Sections = append(a.Sections, types.Section{
			Title: key.Value,
			Level: 2,
			Body:  strings.Join(body, "\n\n"),
		})
	}

	return a, nil
}

// commentText strips comment markers from a yaml comment block.
func commentText(comment string) string {
	if comment == "" {
		return ""
	}
	lines := strings.Split(comment, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		l = strings.TrimSpace(strings.TrimPrefix(l, "#"))
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
