// Package adapter wires backend engines to the names callers select them by.
package adapter

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"tabaudit/internal/adapter/postgres"
	"tabaudit/internal/adapter/sqlite"
	"tabaudit/internal/config"
	"tabaudit/internal/core/domain"
	"tabaudit/internal/core/port"
)

type factory func(ctx context.Context, cfg *config.Config) (port.Engine, error)

var factories = map[string]factory{
	"sqlite": func(_ context.Context, _ *config.Config) (port.Engine, error) {
		return sqlite.NewEngine(), nil
	},
	"postgres": func(ctx context.Context, cfg *config.Config) (port.Engine, error) {
		return postgres.NewEngine(ctx, cfg.DatabaseURL, cfg.QueryTimeout)
	},
}

// NewEngine resolves an engine name to a backend. Unknown names fail here,
// before any dataset is registered or query issued.
func NewEngine(ctx context.Context, name string, cfg *config.Config) (port.Engine, error) {
	f, ok := factories[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("engine %q: %w (available: %s)", name, domain.ErrUnknownEngine, strings.Join(Engines(), ", "))
	}
	return f(ctx, cfg)
}

// Engines lists the registered engine names, sorted.
func Engines() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
