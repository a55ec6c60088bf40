package architecture_test

import (
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const modulePath = "duck-pgcatalog"

type layerRule struct {
	sourcePrefix string
	forbidden    []string
	hint         string
}

func internalPkgs(names ...string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = modulePath + "/internal/" + n
	}
	return out
}

// architectureRules lists the forbidden import directions per layer.
var architectureRules = []layerRule{
	{
		sourcePrefix: modulePath + "/internal/domain",
		forbidden: append(internalPkgs("catalog", "pgcatalog", "engine", "sqlrewrite", "service", "api", "ui",
			"app", "pgwire", "flightsql", "middleware", "probe", "config"), modulePath+"/cmd", modulePath+"/pkg"),
		hint: "domain may only import domain",
	},
	{
		sourcePrefix: modulePath + "/internal/catalog",
		forbidden:    internalPkgs("pgcatalog", "engine", "sqlrewrite", "service", "api", "ui", "app", "pgwire", "flightsql", "middleware", "probe"),
		hint:         "catalog backends depend on domain only",
	},
	{
		sourcePrefix: modulePath + "/internal/pgcatalog",
		forbidden:    internalPkgs("engine", "service", "api", "ui", "app", "pgwire", "flightsql", "middleware", "probe", "config"),
		hint:         "pgcatalog builds snapshots from domain catalogs and must not know who serves them",
	},
	{
		sourcePrefix: modulePath + "/internal/sqlrewrite",
		forbidden:    internalPkgs("catalog", "pgcatalog", "engine", "service", "api", "ui", "app", "pgwire", "flightsql", "middleware"),
		hint:         "sqlrewrite works on parse trees and domain errors only",
	},
	{
		sourcePrefix: modulePath + "/internal/engine",
		forbidden:    internalPkgs("service", "api", "ui", "app", "pgwire", "flightsql", "middleware", "probe"),
		hint:         "engine should depend on pgcatalog, sqlrewrite, catalog and domain",
	},
	{
		sourcePrefix: modulePath + "/internal/service",
		forbidden:    internalPkgs("api", "ui", "app", "pgwire", "flightsql", "middleware", "probe"),
		hint:         "service should depend on engine, pgcatalog and domain",
	},
	{
		sourcePrefix: modulePath + "/internal/api",
		forbidden:    append(internalPkgs("app", "pgwire", "flightsql", "probe", "config"), modulePath+"/cmd", modulePath+"/pkg"),
		hint:         "api should depend on service/domain/middleware packages",
	},
	{
		sourcePrefix: modulePath + "/internal/ui",
		forbidden:    append(internalPkgs("app", "api", "pgwire", "flightsql", "probe", "config"), modulePath+"/cmd", modulePath+"/pkg"),
		hint:         "ui should depend on service/domain/middleware packages",
	},
	{
		sourcePrefix: modulePath + "/internal/pgwire",
		forbidden:    internalPkgs("service", "api", "ui", "app", "flightsql", "middleware", "probe"),
		hint:         "wire listeners take an executor and must not reach into HTTP layers",
	},
	{
		sourcePrefix: modulePath + "/internal/flightsql",
		forbidden:    internalPkgs("service", "api", "ui", "app", "pgwire", "middleware", "probe"),
		hint:         "wire listeners take an executor and must not reach into HTTP layers",
	},
	{
		sourcePrefix: modulePath + "/internal/middleware",
		forbidden:    internalPkgs("catalog", "pgcatalog", "engine", "service", "api", "ui", "app", "pgwire", "flightsql"),
		hint:         "middleware should depend on domain and middleware-local packages",
	},
}

func collectGoFiles(root string) ([]string, error) {
	files := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".go") {
			files = append(files, filepath.ToSlash(path))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func repoRootDir() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "."
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}

func internalRootDir() string {
	return filepath.Join(repoRootDir(), "internal")
}

func findRule(sourcePkg string) (layerRule, bool) {
	for _, rule := range architectureRules {
		if hasPathPrefix(sourcePkg, rule.sourcePrefix) {
			return rule, true
		}
	}
	return layerRule{}, false
}

func violatesRule(importPath string, forbidden []string) bool {
	for _, prefix := range forbidden {
		if hasPathPrefix(importPath, prefix) {
			return true
		}
	}
	return false
}

func matchingForbiddenPrefix(importPath string, forbidden []string) string {
	for _, prefix := range forbidden {
		if hasPathPrefix(importPath, prefix) {
			return prefix
		}
	}
	return ""
}

func hasPathPrefix(value string, prefix string) bool {
	return value == prefix || strings.HasPrefix(value, prefix+"/")
}

func packageImportPath(file string) string {
	dir := filepath.ToSlash(filepath.Dir(file))
	idx := strings.Index(dir, "/internal/")
	if idx >= 0 {
		return modulePath + dir[idx:]
	}
	return modulePath + "/" + dir
}

func shouldSkipGeneratedFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasSuffix(base, ".gen.go") || strings.HasSuffix(base, "_gen.go") || strings.HasSuffix(base, ".sql.go") {
		return true
	}
	return false
}

func isTestFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, "_test.go")
}

func shouldSkipProductionGovernanceFile(path string) bool {
	if isTestFile(path) {
		return true
	}
	return shouldSkipGeneratedFile(path)
}

func parseImports(t *testing.T, file string) []string {
	t.Helper()

	fset := token.NewFileSet()
	parsed, err := parser.ParseFile(fset, file, nil, parser.ImportsOnly)
	require.NoErrorf(t, err, "parse imports for %s", file)

	imports := make([]string, 0, len(parsed.Imports))
	for _, imp := range parsed.Imports {
		imports = append(imports, strings.Trim(imp.Path.Value, "\""))
	}
	return imports
}

func relToRepoRoot(path string) string {
	rel, err := filepath.Rel(repoRootDir(), path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
