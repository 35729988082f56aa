package generator

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/quill/pkg/quill/types"
)

// TemplateExt is the extension of discovered template generators.
const TemplateExt = ".tmpl"

// OutputExt is appended to a template generator's name to form its output file.
const OutputExt = ".out"

// TemplateGenerator renders a user-supplied text/template over all
// artifacts into <name>.out.
type TemplateGenerator struct {
	name string
	tmpl *template.Template
	cfg  Options
}

// templateData is the data passed to a template.
type templateData struct {
	Title     string
	Generated time.Time
	Artifacts []*types.Artifact
	TotalSize int64
}

// templateFuncs returns the functions available to generator templates.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		// date formats a time.Time using the provided layout.
		// Usage: {{date .ModTime "2006-01-02"}}
		"date": func(t time.Time, layout string) string {
			if t.IsZero() {
				return ""
			}
			return t.Format(layout)
		},

		// bytes formats a size in bytes as a human-readable string.
		// Usage: {{bytes .Size}}
		"bytes": func(size int64) string {
			return humanize.IBytes(uint64(size))
		},

		// ago formats a time relative to now.
		// Usage: {{ago .ModTime}}
		"ago": humanize.Time,

		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"join":  strings.Join,
	}
}

// ParseTemplate compiles a template generator from its source.
func ParseTemplate(name, src string) (*TemplateGenerator, error) {
	tmpl, err := template.New(name).Funcs(templateFuncs()).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", name, err)
	}
	return &TemplateGenerator{name: name, tmpl: tmpl}, nil
}

// Name returns the generator name.
func (g *TemplateGenerator) Name() string {
	return g.name
}

// Generate executes the template into <name>.out.
func (g *TemplateGenerator) Generate(ctx context.Context, artifacts []*types.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data := templateData{
		Title:     g.cfg.title(),
		Generated: time.Now(),
		Artifacts: artifacts,
	}
	for _, a := range artifacts {
		data.TotalSize += a.Size
	}

	return writeFile(g.name+OutputExt, func(w io.Writer) error {
		return g.tmpl.Execute(w, data)
	})
}

// Discover registers a template generator for every *.tmpl file in dir,
// named after the file without its extension. A missing dir registers
// nothing. Templates that fail to parse are skipped with a warning. The
// registered names are returned sorted.
func Discover(r *Registry, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading generators dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != TemplateExt {
			continue
		}

		path := filepath.Join(dir, e.Name())
		src, err := os.ReadFile(path)
		if err != nil {
			log.Warn("skipping unreadable template", "path", path, "error", err)
			continue
		}

		name := strings.TrimSuffix(e.Name(), TemplateExt)
		base, err := ParseTemplate(name, string(src))
		if err != nil {
			log.Warn("skipping invalid template", "path", path, "error", err)
			continue
		}

		r.Register(name, func(cfg Options) Generator {
			return &TemplateGenerator{name: base.name, tmpl: base.tmpl, cfg: cfg}
		})
		names = append(names, name)
		log.Debug("registered template generator", "name", name, "path", path)
	}

	sort.Strings(names)
	return names, nil
}

var _ Generator = (*TemplateGenerator)(nil)
