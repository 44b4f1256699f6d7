package extractor

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/platinummonkey/chainload/pkg/hostapi"
	"github.com/platinummonkey/chainload/pkg/plugins"
)

// sourceUnit is a struct type in a plugin source that embeds the host base type
type sourceUnit struct {
	typeName      string // bare type name, used for the factory symbol
	qualifiedName string // package.Type, used in diagnostics
	decl          *plugins.Declaration
	directiveErr  error
}

// sourceModule is what parsing a module directory's Go files yields
type sourceModule struct {
	packageName    string
	referencesHost bool
	units          []sourceUnit
}

// goSourceFiles lists the non-test Go files of dir in name order
func goSourceFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read module directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".go" || strings.HasSuffix(name, "_test.go") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	return files, nil
}

// parseSourceModule inspects the Go files of a module without compiling them
func parseSourceModule(files []string, hostImport string) (*sourceModule, error) {
	fset := token.NewFileSet()
	mod := &sourceModule{}

	for _, file := range files {
		f, err := parser.ParseFile(fset, file, nil, parser.ParseComments|parser.SkipObjectResolution)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(file), err)
		}
		if mod.packageName == "" {
			mod.packageName = f.Name.Name
		}

		alias, ok := hostImportName(f, hostImport)
		if !ok {
			continue
		}
		mod.referencesHost = true

		for _, d := range f.Decls {
			gd, ok := d.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, spec := range gd.Specs {
				ts := spec.(*ast.TypeSpec)
				unit, ok := inspectTypeSpec(f.Name.Name, gd, ts, alias)
				if ok {
					mod.units = append(mod.units, unit)
				}
			}
		}
	}

	return mod, nil
}

// hostImportName returns the identifier under which f imports the host package.
// "." means a dot import.
func hostImportName(f *ast.File, hostImport string) (string, bool) {
	for _, imp := range f.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil || p != hostImport {
			continue
		}
		if imp.Name == nil {
			return path.Base(p), true
		}
		if imp.Name.Name == "_" {
			continue
		}
		return imp.Name.Name, true
	}
	return "", false
}

// inspectTypeSpec decides whether ts is a concrete plugin unit. Interfaces,
// generic types and aliases are abstract and skipped without a diagnostic.
func inspectTypeSpec(pkgName string, gd *ast.GenDecl, ts *ast.TypeSpec, hostAlias string) (sourceUnit, bool) {
	if ts.Assign.IsValid() {
		return sourceUnit{}, false
	}
	if ts.TypeParams != nil && len(ts.TypeParams.List) > 0 {
		return sourceUnit{}, false
	}
	st, ok := ts.Type.(*ast.StructType)
	if !ok || !embedsBase(st, hostAlias) {
		return sourceUnit{}, false
	}

	doc := ts.Doc
	if doc == nil && len(gd.Specs) == 1 {
		doc = gd.Doc
	}

	unit := sourceUnit{
		typeName:      ts.Name.Name,
		qualifiedName: pkgName + "." + ts.Name.Name,
	}
	unit.decl = &plugins.Declaration{TypeName: unit.qualifiedName}
	unit.directiveErr = parseDirectives(unit.decl, commentLines(doc))

	return unit, true
}

func embedsBase(st *ast.StructType, hostAlias string) bool {
	if st.Fields == nil {
		return false
	}
	for _, field := range st.Fields.List {
		if len(field.Names) != 0 {
			continue
		}
		expr := field.Type
		if star, ok := expr.(*ast.StarExpr); ok {
			expr = star.X
		}
		switch t := expr.(type) {
		case *ast.SelectorExpr:
			if x, ok := t.X.(*ast.Ident); ok && x.Name == hostAlias && t.Sel.Name == hostapi.BaseTypeName {
				return true
			}
		case *ast.Ident:
			if hostAlias == "." && t.Name == hostapi.BaseTypeName {
				return true
			}
		}
	}
	return false
}

func commentLines(doc *ast.CommentGroup) []string {
	if doc == nil {
		return nil
	}
	lines := make([]string, 0, len(doc.List))
	for _, c := range doc.List {
		lines = append(lines, strings.TrimRight(c.Text, " \t"))
	}
	return lines
}
