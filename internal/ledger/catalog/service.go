package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/singleflight"
)

// Service owns snapshot lifecycle: load-through-cache, explicit refresh,
// and counterparty create-and-attach. Snapshots are replaced wholesale;
// nothing here mutates a snapshot already handed out.
type Service struct {
	source Source
	cache  *Cache
	logger *slog.Logger
	group  singleflight.Group
}

func NewService(source Source, cache *Cache, logger *slog.Logger) *Service {
	return &Service{source: source, cache: cache, logger: logger}
}

// Snapshot returns the catalog snapshot for a company, consulting the cache
// first. Concurrent callers for the same company share one store load.
func (s *Service) Snapshot(ctx context.Context, companyID int64) (*Snapshot, error) {
	if snap, err := s.cache.Get(ctx, companyID); err != nil {
		s.logger.Warn("catalog cache read failed", slog.Any("error", err))
	} else if snap != nil {
		return snap, nil
	}
	return s.load(ctx, companyID)
}

// Refresh drops the cached snapshot and rebuilds it from the store.
func (s *Service) Refresh(ctx context.Context, companyID int64) (*Snapshot, error) {
	if err := s.cache.Invalidate(ctx, companyID); err != nil {
		s.logger.Warn("catalog cache invalidate failed", slog.Any("error", err))
	}
	return s.load(ctx, companyID)
}

func (s *Service) load(ctx context.Context, companyID int64) (*Snapshot, error) {
	v, err, _ := s.group.Do(strconv.FormatInt(companyID, 10), func() (any, error) {
		snap, err := s.source.Load(ctx, companyID)
		if err != nil {
			return nil, fmt.Errorf("catalog: load snapshot: %w", err)
		}
		if err := s.cache.Put(ctx, snap); err != nil {
			s.logger.Warn("catalog cache write failed", slog.Any("error", err))
		}
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// CreateCounterparty inserts a counterparty the user explicitly asked to
// create for an unmatched identifier, then rebuilds the snapshot so the new
// record resolves immediately.
func (s *Service) CreateCounterparty(ctx context.Context, companyID int64, in NewCounterpartyInput) (Counterparty, *Snapshot, error) {
	cp, err := s.source.InsertCounterparty(ctx, companyID, in)
	if err != nil {
		return Counterparty{}, nil, err
	}
	snap, err := s.Refresh(ctx, companyID)
	if err != nil {
		return Counterparty{}, nil, err
	}
	return cp, snap, nil
}
