package generator

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/jamesainslie/quill/pkg/quill/types"
)

// IndexHTML is the index page the html generator writes.
const IndexHTML = "index.html"

// HTMLGenerator writes one page per artifact plus an index page.
type HTMLGenerator struct {
	cfg Options
	md  goldmark.Markdown
}

// NewHTML creates an html generator.
func NewHTML(cfg Options) Generator {
	return &HTMLGenerator{
		cfg: cfg,
		md:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

type htmlPage struct {
	Title    string
	SetTitle string
	Root     string
	Artifact *types.Artifact
	Content  template.HTML
}

type htmlIndexEntry struct {
	Href     string
	Artifact *types.Artifact
}

type htmlIndex struct {
	Title   string
	Entries []htmlIndexEntry
}

// Generate writes index.html and a page for each artifact.
func (g *HTMLGenerator) Generate(ctx context.Context, artifacts []*types.Artifact) error {
	entries := make([]htmlIndexEntry, 0, len(artifacts))

	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			return err
		}

		page := PagePath(a.Name, ".html")
		content, err := g.render(a)
		if err != nil {
			return err
		}

		data := htmlPage{
			Title:    a.Title,
			SetTitle: g.cfg.title(),
			Root:     strings.Repeat("../", strings.Count(page, "/")),
			Artifact: a,
			Content:  content,
		}
		if err := writeFile(page, func(w io.Writer) error {
			return pageTemplate.Execute(w, data)
		}); err != nil {
			return err
		}

		entries = append(entries, htmlIndexEntry{Href: page, Artifact: a})
	}

	log.Debug("html pages written", "count", len(entries))

	return writeFile(IndexHTML, func(w io.Writer) error {
		return indexTemplate.Execute(w, htmlIndex{Title: g.cfg.title(), Entries: entries})
	})
}

// render returns the page body. Markdown is rendered from its source;
// every other kind is laid out from its sections.
func (g *HTMLGenerator) render(a *types.Artifact) (template.HTML, error) {
	if a.Kind == "markdown" {
		var buf bytes.Buffer
		if err := g.md.Convert([]byte(a.Body), &buf); err != nil {
			return "", err
		}
		return template.HTML(buf.String()), nil
	}

	var buf bytes.Buffer
	if err := sectionsTemplate.Execute(&buf, a); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// PagePath maps an artifact name to a slash-separated output path with ext
// appended. Leading slashes and ".." elements are neutralized so every page
// lands inside the working directory.
func PagePath(name, ext string) string {
	clean := path.Clean("/" + strings.ReplaceAll(name, "\\", "/"))
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	for i, p := range parts {
		if p == ".." || p == "" {
			parts[i] = "_"
		}
	}
	return strings.Join(parts, "/") + ext
}

var funcs = template.FuncMap{
	// Page titles take h1; sections start at h2.
	"openHeading": func(level int) template.HTML {
		return template.HTML(fmt.Sprintf("<h%d>", headingLevel(level)))
	},
	"closeHeading": func(level int) template.HTML {
		return template.HTML(fmt.Sprintf("</h%d>", headingLevel(level)))
	},
	"bytes": types.FormatSize,
}

func headingLevel(level int) int {
	return max(2, min(level+1, 6))
}

var pageTemplate = template.Must(template.New("page").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} - {{.SetTitle}}</title>
</head>
<body>
<nav><a href="{{.Root}}index.html">{{.SetTitle}}</a></nav>
<header>
<h1>{{.Title}}</h1>
<p class="meta">{{.Artifact.Name}} &middot; {{.Artifact.Kind}} &middot; {{bytes .Artifact.Size}}</p>
</header>
<main>
{{.Content}}
</main>
</body>
</html>
`))

var sectionsTemplate = template.Must(template.New("sections").Funcs(funcs).Parse(`{{if .Summary}}<p class="summary">{{.Summary}}</p>
{{end}}{{range .Sections}}<section>
{{openHeading .Level}}{{.Title}}{{closeHeading .Level}}
{{if .Body}}<pre>{{.Body}}</pre>
{{end}}</section>
{{end}}`))

var indexTemplate = template.Must(template.New("index").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Title}}</h1>
<table>
<thead><tr><th>Name</th><th>Title</th><th>Kind</th><th>Summary</th></tr></thead>
<tbody>
{{range .Entries}}<tr><td><a href="{{.Href}}">{{.Artifact.Name}}</a></td><td>{{.Artifact.Title}}</td><td>{{.Artifact.Kind}}</td><td>{{.Artifact.Summary}}</td></tr>
{{end}}</tbody>
</table>
</body>
</html>
`))

var _ Generator = (*HTMLGenerator)(nil)
