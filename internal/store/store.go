package store

import (
	"context"

	"github.com/agenthands/evidence/internal/core/model"
)

// Store persists sources and their evidence units. The engine never
// assumes persistence succeeds and stays callable purely in-memory.
type Store interface {
	SaveSource(ctx context.Context, source model.Source) error
	SaveUnits(ctx context.Context, units []model.EvidenceUnit) error
	GetSource(ctx context.Context, uuid string) (*model.Source, error)
	GetUnitsBySource(ctx context.Context, sourceUUID string) ([]model.EvidenceUnit, error)
	Close(ctx context.Context) error
}
