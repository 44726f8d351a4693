package core_test

import (
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"
	"testing"
)

// TestCoreImports keeps pkg/core at the bottom of the dependency graph:
// standard library only, so no internal or third-party packages.
func TestCoreImports(t *testing.T) {
	files, err := filepath.Glob("*.go")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}

	fset := token.NewFileSet()
	for _, path := range files {
		if strings.HasSuffix(path, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			t.Errorf("parse %s: %v", path, err)
			continue
		}
		for _, imp := range f.Imports {
			importPath := strings.Trim(imp.Path.Value, `"`)
			switch {
			case strings.Contains(importPath, "/internal/"):
				t.Errorf("%s imports internal package %s", path, importPath)
			case strings.Contains(importPath, "."):
				t.Errorf("%s imports non-stdlib package %s", path, importPath)
			}
		}
	}
}
