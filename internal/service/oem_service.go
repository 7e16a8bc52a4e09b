package service

import (
	"context"
	"fmt"

	"oem-seo-api/internal/oemref"
)

// RefSource loads the raw OEM refs of a combination
type RefSource interface {
	ListRefs(ctx context.Context, typeID, gammeID int, marque string) ([]string, error)
}

type OemService struct {
	refs     RefSource
	pipeline *oemref.Pipeline
}

func NewOemService(refs RefSource, pipeline *oemref.Pipeline) *OemService {
	return &OemService{
		refs:     refs,
		pipeline: pipeline,
	}
}

// FilterForVehicle loads the refs of a combination and filters them down to
// the dominant prefixes of the platform
func (s *OemService) FilterForVehicle(ctx context.Context, typeID, gammeID int, marque string) (*oemref.Result, error) {
	refs, err := s.refs.ListRefs(ctx, typeID, gammeID, marque)
	if err != nil {
		return nil, fmt.Errorf("load oem refs for %d/%d/%s: %w", typeID, gammeID, marque, err)
	}

	result := s.pipeline.Filter(refs, oemref.NewCacheKey(typeID, gammeID, marque))
	return &result, nil
}

// Filter runs the pipeline on refs the caller already fetched
func (s *OemService) Filter(refs []string, typeID, gammeID int, marque string) oemref.Result {
	return s.pipeline.Filter(refs, oemref.NewCacheKey(typeID, gammeID, marque))
}

// FilterByPrefixes keeps the refs matching prefixes, without discovery
func (s *OemService) FilterByPrefixes(refs, prefixes []string) []string {
	filtered := s.pipeline.FilterByPrefixes(refs, prefixes)
	if filtered == nil {
		return []string{}
	}
	return filtered
}

func (s *OemService) CacheStats() oemref.CacheStats {
	return s.pipeline.CacheStats()
}

func (s *OemService) ClearCache() {
	s.pipeline.ClearCache()
}
