package architecture_test

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestImportBoundaries(t *testing.T) {
	files, err := collectGoFiles(internalRootDir())
	require.NoError(t, err)
	require.NotEmpty(t, files)

	violations := make([]string, 0)
	for _, file := range files {
		if shouldSkipProductionGovernanceFile(file) {
			continue
		}

		sourcePkg := packageImportPath(file)
		rule, ok := findRule(sourcePkg)
		if !ok {
			continue
		}

		relPath := relToRepoRoot(file)
		for _, importPath := range parseImports(t, file) {
			if !strings.HasPrefix(importPath, modulePath+"/") {
				continue
			}
			if violatesRule(importPath, rule.forbidden) {
				violations = append(violations,
					"governance: "+sourcePkg+" imports "+importPath+" via "+relPath+"; allowed direction: "+rule.hint,
				)
			}
		}
	}

	if len(violations) > 0 {
		sort.Strings(violations)
		t.Fatalf("%s", strings.Join(violations, "\n"))
	}
}

func TestFindRule_MatchesWholePathSegments(t *testing.T) {
	_, ok := findRule(modulePath + "/internal/catalog/memory")
	require.True(t, ok)

	rule, ok := findRule(modulePath + "/internal/pgcatalog")
	require.True(t, ok)
	require.Equal(t, modulePath+"/internal/pgcatalog", rule.sourcePrefix)

	_, ok = findRule(modulePath + "/internal/architecture")
	require.False(t, ok)
}
