package memory

import (
	"context"
	"sort"
	"time"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/google/uuid"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/domain/valueobject"
)

// На уровне 13 сторона ячейки около километра.
const clearedCellLevel = 13

type clearedEntry struct {
	location  valueobject.Location
	clearedAt time.Time
}

// clearedIndex раскладывает убранные отчёты по ячейкам S2.
type clearedIndex struct {
	cells map[s2.CellID]map[uuid.UUID]clearedEntry
}

func newClearedIndex() *clearedIndex {
	return &clearedIndex{cells: make(map[s2.CellID]map[uuid.UUID]clearedEntry)}
}

func cellOf(loc valueobject.Location) s2.CellID {
	return s2.CellIDFromLatLng(loc.LatLng()).Parent(clearedCellLevel)
}

func (ix *clearedIndex) sync(prev, next *entity.Report) {
	if prev != nil && prev.ClearedAt != nil {
		c := cellOf(prev.Location)
		delete(ix.cells[c], prev.ID)
		if len(ix.cells[c]) == 0 {
			delete(ix.cells, c)
		}
	}
	if next != nil && next.ClearedAt != nil {
		c := cellOf(next.Location)
		if _, ok := ix.cells[c]; !ok {
			ix.cells[c] = make(map[uuid.UUID]clearedEntry)
		}
		ix.cells[c][next.ID] = clearedEntry{location: next.Location, clearedAt: *next.ClearedAt}
	}
}

func (ix *clearedIndex) within(point valueobject.Location, radiusKm float64, since time.Time) []uuid.UUID {
	region := s2.CapFromCenterAngle(s2.PointFromLatLng(point.LatLng()), s1.Angle(radiusKm/valueobject.EarthRadiusKm))
	coverer := &s2.RegionCoverer{MinLevel: clearedCellLevel, MaxLevel: clearedCellLevel, MaxCells: 64}

	var ids []uuid.UUID
	for _, c := range coverer.Covering(region) {
		for id, e := range ix.cells[c] {
			if e.clearedAt.After(since) && point.DistanceKm(e.location) <= radiusKm {
				ids = append(ids, id)
			}
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

type SpatialIndex struct {
	s *Store
}

func NewSpatialIndex(s *Store) *SpatialIndex {
	return &SpatialIndex{s: s}
}

func (x *SpatialIndex) NearbyClearedWithin(ctx context.Context, point valueobject.Location, radiusKm float64, since time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := x.s.exec(ctx, func(_ *txState) error {
		ids = x.s.cleared.within(point, radiusKm, since)
		return nil
	})
	return ids, err
}
