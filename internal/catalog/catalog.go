// Package catalog holds helpers shared by the catalog backends: combining
// several catalog lists and parsing SQL type names into Arrow types.
package catalog

import (
	"context"
	"errors"
	"slices"

	"duck-pgcatalog/internal/domain"
)

type chain struct {
	lists []domain.CatalogList
}

// Chain combines catalog lists. Names are listed in list order; when two
// lists expose the same catalog name the first one wins.
func Chain(lists ...domain.CatalogList) domain.CatalogList {
	return &chain{lists: lists}
}

func (c *chain) CatalogNames(ctx context.Context) ([]string, error) {
	var names []string
	for _, l := range c.lists {
		part, err := l.CatalogNames(ctx)
		if err != nil {
			return nil, err
		}
		for _, n := range part {
			if !slices.Contains(names, n) {
				names = append(names, n)
			}
		}
	}
	return names, nil
}

func (c *chain) Catalog(ctx context.Context, name string) (domain.Catalog, error) {
	for _, l := range c.lists {
		cat, err := l.Catalog(ctx, name)
		if err == nil {
			return cat, nil
		}
		var nf *domain.NotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
	}
	return nil, domain.ErrNotFound("catalog %q not found", name)
}
