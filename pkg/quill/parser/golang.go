package parser

import (
	"fmt"
	"go/ast"
	"go/doc"
	"go/parser"
	"go/token"
	"path"
	"strings"

	"github.com/jamesainslie/quill/pkg/quill/types"
)

type golangParser struct {
	ctx     Context
	content []byte
	cfg     Options
}

// NewGolang creates a parser for Go source files. The package comment
// becomes the summary; each type and function becomes a section.
func NewGolang(ctx Context, content []byte, cfg Options) Parser {
	return &golangParser{ctx: ctx, content: content, cfg: cfg}
}

func (p *golangParser) Scan() (*types.Artifact, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, p.ctx.Path, p.content, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parsing go source: %w", err)
	}

	var mode doc.Mode
	if p.cfg.Unexported {
		mode = doc.AllDecls
	}

	importPath := path.Dir(p.ctx.Name)
	pkg, err := doc.NewFromFiles(fset, []*ast.File{file}, importPath, mode)
	if err != nil {
		return nil, fmt.Errorf("reading go docs: %w", err)
	}

	a := newArtifact(p.ctx, "golang", p.content)
	// go/doc treats _test.go files as example sources and leaves the
	// package empty.
	a.Title = "package " + file.Name.Name
	a.Summary = pkg.Synopsis(pkg.Doc)

	if pkg.Doc != "" {
		a.Sections = append(a.Sections, types.Section{Title: "Overview", Level: 1, Body: strings.TrimSpace(pkg.Doc)})
	}

	for _, v := range append(pkg.Consts, pkg.Vars...) {
		if v.Doc == "" {
			continue
		}
		a.Sections = append(a.Sections, types.Section{
			Title: strings.Join(v.Names, ", "),
			Level: 2,
			Body:  strings.TrimSpace(v.Doc),
		})
	}

	for _, f := range pkg.Funcs {
		a.Sections = append(a.Sections, funcSection(f, 2))
	}

	for _, t := range pkg.Types {
		a.Sections = append(a.Sections, types.Section{
			Title: "type " + t.Name,
			Level: 2,
			Body:  strings.TrimSpace(t.Doc),
		})
		for _, f := range t.Funcs {
			a.Sections = append(a.Sections, funcSection(f, 3))
		}
		for _, m := range t.Methods {
			a.Sections = append(a.Sections, funcSection(m, 3))
		}
	}

	return a, nil
}

func funcSection(f *doc.Func, level int) types.Section {
	title := "func " + f.Name
	if f.Recv != "" {
		title = fmt.Sprintf("func (%s) %s", f.Recv, f.Name)
	}
	return types.Section{Title: title, Level: level, Body: strings.TrimSpace(f.Doc)}
}
