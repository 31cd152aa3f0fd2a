package scoreimport

import (
	"fmt"
	"sort"

	"encore/internal/sources"
)

// Registry maps import types to their source implementations. It is built
// once at startup and read-only afterwards.
type Registry struct {
	byType map[string]sources.Source
}

func NewRegistry(srcs ...sources.Source) (*Registry, error) {
	byType := make(map[string]sources.Source, len(srcs))
	for _, src := range srcs {
		importType := src.ImportType()
		if _, dup := byType[importType]; dup {
			return nil, fmt.Errorf("duplicate source registered for %s", importType)
		}
		byType[importType] = src
	}
	return &Registry{byType: byType}, nil
}

func (r *Registry) Get(importType string) (sources.Source, error) {
	src, ok := r.byType[importType]
	if !ok {
		return nil, fmt.Errorf("unknown import type %q", importType)
	}
	return src, nil
}

// ImportTypes lists the registered types, sorted for stable output.
func (r *Registry) ImportTypes() []string {
	types := make([]string, 0, len(r.byType))
	for t := range r.byType {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
