package memory

import (
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"gopkg.in/yaml.v3"

	"duck-pgcatalog/internal/catalog"
	"duck-pgcatalog/internal/domain"
)

// Seed is the YAML description of a catalog hierarchy:
//
//	catalogs:
//	  - name: c1
//	    schemas:
//	      - name: s1
//	        tables:
//	          - name: t1
//	            columns:
//	              - {name: a, type: int4, nullable: false}
type Seed struct {
	Catalogs []SeedCatalog `yaml:"catalogs"`
}

type SeedCatalog struct {
	Name    string       `yaml:"name"`
	Schemas []SeedSchema `yaml:"schemas"`
}

type SeedSchema struct {
	Name   string      `yaml:"name"`
	Tables []SeedTable `yaml:"tables"`
}

type SeedTable struct {
	Name    string       `yaml:"name"`
	Columns []SeedColumn `yaml:"columns"`
}

// SeedColumn is nullable unless it says otherwise.
type SeedColumn struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable *bool  `yaml:"nullable"`
}

// ParseSeed decodes a seed document.
func ParseSeed(r io.Reader) (*Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		if err == io.EOF {
			return &seed, nil
		}
		return nil, domain.ErrValidation("invalid catalog seed: %v", err)
	}
	return &seed, nil
}

// LoadSeedFile reads and applies a seed file to list.
func LoadSeedFile(path string, list *CatalogList) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed: %w", err)
	}
	defer f.Close() //nolint:errcheck

	seed, err := ParseSeed(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return seed.Apply(list)
}

// Apply creates every catalog, schema and table of the seed. Existing
// catalogs and schemas are reused; existing tables are a conflict.
func (s *Seed) Apply(list *CatalogList) error {
	for _, sc := range s.Catalogs {
		cat, err := list.EnsureCatalog(sc.Name)
		if err != nil {
			return err
		}
		for _, ss := range sc.Schemas {
			schema, err := cat.EnsureSchema(ss.Name)
			if err != nil {
				return err
			}
			for _, st := range ss.Tables {
				columns, err := st.arrowSchema()
				if err != nil {
					return fmt.Errorf("%s.%s.%s: %w", sc.Name, ss.Name, st.Name, err)
				}
				if _, err := schema.AddTable(st.Name, columns); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (t SeedTable) arrowSchema() (*arrow.Schema, error) {
	fields := make([]arrow.Field, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" {
			return nil, domain.ErrValidation("column name is required")
		}
		dt, err := catalog.ParseType(c.Type)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
		nullable := true
		if c.Nullable != nil {
			nullable = *c.Nullable
		}
		fields = append(fields, arrow.Field{Name: c.Name, Type: dt, Nullable: nullable})
	}
	return arrow.NewSchema(fields, nil), nil
}
