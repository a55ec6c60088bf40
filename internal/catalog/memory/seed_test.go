package memory

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duck-pgcatalog/internal/domain"
)

const sampleSeed = `
catalogs:
  - name: c1
    schemas:
      - name: s1
        tables:
          - name: t1
            columns:
              - {name: a, type: int4, nullable: false}
              - {name: b, type: text}
              - {name: tags, type: "varchar[]"}
  - name: c2
`

func TestParseSeed(t *testing.T) {
	seed, err := ParseSeed(strings.NewReader(sampleSeed))
	require.NoError(t, err)
	require.Len(t, seed.Catalogs, 2)
	assert.Equal(t, "c1", seed.Catalogs[0].Name)
	cols := seed.Catalogs[0].Schemas[0].Tables[0].Columns
	require.Len(t, cols, 3)
	require.NotNil(t, cols[0].Nullable)
	assert.False(t, *cols[0].Nullable)
	assert.Nil(t, cols[1].Nullable)
}

func TestParseSeed_Empty(t *testing.T) {
	seed, err := ParseSeed(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, seed.Catalogs)
}

func TestParseSeed_UnknownField(t *testing.T) {
	_, err := ParseSeed(strings.NewReader("catalogs:\n  - name: c\n    owner: bob\n"))
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSeed_Apply(t *testing.T) {
	ctx := context.Background()
	seed, err := ParseSeed(strings.NewReader(sampleSeed))
	require.NoError(t, err)

	list := NewCatalogList()
	require.NoError(t, seed.Apply(list))

	names, err := list.CatalogNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, names)

	cat, err := list.Catalog(ctx, "c1")
	require.NoError(t, err)
	s, err := cat.Schema(ctx, "s1")
	require.NoError(t, err)
	tbl, err := s.Table(ctx, "t1")
	require.NoError(t, err)

	fields := tbl.Schema().Fields()
	require.Len(t, fields, 3)
	assert.Equal(t, arrow.Field{Name: "a", Type: arrow.PrimitiveTypes.Int32}, fields[0])
	assert.True(t, fields[1].Nullable)
	assert.True(t, arrow.TypeEqual(arrow.ListOf(arrow.BinaryTypes.String), fields[2].Type))

	err = seed.Apply(list)
	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict, "tables are not replaced")
}

func TestSeed_ApplyBadType(t *testing.T) {
	seed := &Seed{Catalogs: []SeedCatalog{{
		Name: "c",
		Schemas: []SeedSchema{{Name: "s", Tables: []SeedTable{{
			Name:    "t",
			Columns: []SeedColumn{{Name: "g", Type: "geometry"}},
		}}}},
	}}}
	err := seed.Apply(NewCatalogList())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "c.s.t: column g")
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleSeed), 0o600))

	list := NewCatalogList()
	require.NoError(t, LoadSeedFile(path, list))
	names, _ := list.CatalogNames(context.Background())
	assert.Equal(t, []string{"c1", "c2"}, names)

	assert.Error(t, LoadSeedFile(filepath.Join(t.TempDir(), "missing.yaml"), list))
}
