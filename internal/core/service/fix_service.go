package service

import (
	"context"
	"fmt"
	"log/slog"

	"tabaudit/internal/core/port"
	"tabaudit/internal/dataset"
)

// FixService runs an engine's repair pass. Whether anything is repaired is
// up to the engine: the sqlite engine is a documented pass-through, the
// postgres engine reports domain.ErrFixUnsupported.
type FixService struct {
	engine port.Engine
	logger *slog.Logger
}

func NewFixService(engine port.Engine, logger *slog.Logger) *FixService {
	return &FixService{engine: engine, logger: logger}
}

func (s *FixService) Fix(ctx context.Context, ds *dataset.Dataset) (*dataset.Dataset, error) {
	fixed, err := s.engine.Fix(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("fixing with %s: %w", s.engine.Name(), err)
	}
	s.logger.InfoContext(ctx, "fix complete",
		slog.String("engine", s.engine.Name()),
		slog.Int("rows", fixed.NumRows()),
	)
	return fixed, nil
}
