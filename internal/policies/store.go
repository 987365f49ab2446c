package policies

import (
	"context"
	"fmt"
	"time"

	"github.com/covidamp/amp-backend/internal/policystatus"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// placeFilterFields are filter fields that live on the place relation and
// are applied through the policy→place association.
var placeFilterFields = map[string]bool{
	"level":        true,
	"iso3":         true,
	"area1":        true,
	"area2":        true,
	"ansi_fips":    true,
	"country_name": true,
}

// policyFilterFields are the policy columns that may be filtered directly.
// Anything outside this allowlist (and the special fields) is rejected
// rather than interpolated into SQL.
var policyFilterFields = map[string]bool{
	"policy_name":        true,
	"group_number":       true,
	"primary_ph_measure": true,
	"ph_measure_details": true,
	"authority":          true,
}

// GormStore implements policystatus.Store on top of the relational schema.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// policyQuery builds a *gorm.DB over policy with the filters applied using
// AND logic: IN-lists per field, effective-range overlap for
// dates_in_effect, array overlap for subtarget, and place-field filters via
// an EXISTS over the association.
func (s *GormStore) policyQuery(ctx context.Context, f policystatus.Filters) (*gorm.DB, error) {
	q := s.db.WithContext(ctx).Model(&Policy{})
	for field, vals := range f {
		if len(vals) == 0 {
			continue
		}
		switch {
		case field == policystatus.FieldDatesInEffect:
			if len(vals) != 2 {
				return nil, fmt.Errorf("dates_in_effect filter needs [start, end], got %d values", len(vals))
			}
			from, err := time.Parse("2006-01-02", vals[0])
			if err != nil {
				return nil, fmt.Errorf("dates_in_effect start: %w", err)
			}
			to, err := time.Parse("2006-01-02", vals[1])
			if err != nil {
				return nil, fmt.Errorf("dates_in_effect end: %w", err)
			}
			q = q.Where("date_start_effective <= ? AND date_end_effective >= ?", to, from)
		case field == "subtarget":
			q = q.Where("subtarget && ?", pq.Array(vals))
		case placeFilterFields[field]:
			q = q.Where(
				"EXISTS (SELECT 1 FROM policy_place pp JOIN place pl ON pl.id = pp.place_id"+
					" WHERE pp.policy_id = policy.id AND pl."+field+" IN ?)", vals)
		case policyFilterFields[field]:
			q = q.Where(field+" IN ?", vals)
		default:
			return nil, fmt.Errorf("unsupported filter field: %q", field)
		}
	}
	return q, nil
}

// Policies returns the records matching the filters with all associated
// places attached. When subgeoOf is set, the level filter is replaced by the
// levels strictly beneath that resolution.
func (s *GormStore) Policies(ctx context.Context, f policystatus.Filters, subgeoOf policystatus.GeoRes) ([]policystatus.Record, error) {
	if subgeoOf != "" {
		levels, err := subgeoOf.SubgeoLevels()
		if err != nil {
			return nil, err
		}
		f = f.Clone()
		f[policystatus.FieldLevel] = levels
	}

	q, err := s.policyQuery(ctx, f)
	if err != nil {
		return nil, err
	}

	var rows []Policy
	if err := q.Preload("Places").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query policies: %w", err)
	}

	recs := make([]policystatus.Record, len(rows))
	for i, p := range rows {
		recs[i] = p.toRecord()
	}
	return recs, nil
}

// toRecord converts a policy row into the engine's record type, normalizing
// effective dates to UTC midnight.
func (p Policy) toRecord() policystatus.Record {
	rec := policystatus.Record{
		ID:          p.ID,
		GroupNumber: p.GroupNumber,
		StartDate:   toUTCDate(p.DateStartEffective),
		EndDate:     toUTCDate(p.DateEndEffective),
		Places:      make([]policystatus.RecordPlace, len(p.Places)),
	}
	for i, pl := range p.Places {
		rec.Places[i] = policystatus.RecordPlace{
			Level:    pl.Level,
			Iso3:     pl.Iso3,
			Area1:    pl.Area1,
			Area2:    pl.Area2,
			AnsiFips: pl.AnsiFips,
		}
	}
	return rec
}

func toUTCDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MinPolicyIDsByGroup returns the lowest policy id per distinct group number
// across all policies, the index the engine's deduplicator joins against.
func (s *GormStore) MinPolicyIDsByGroup(ctx context.Context) (map[int64]int64, error) {
	var rows []struct {
		ID          int64
		GroupNumber int64
	}
	err := s.db.WithContext(ctx).Model(&Policy{}).
		Select("MIN(id) AS id, group_number").
		Where("group_number IS NOT NULL").
		Group("group_number").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query group index: %w", err)
	}

	index := make(map[int64]int64, len(rows))
	for _, r := range rows {
		index[r.GroupNumber] = r.ID
	}
	return index, nil
}

// PlacesWithAnyPolicy returns the distinct place tuples that have at least
// one policy matching the filters. Date filters are dropped defensively:
// this fetch feeds zero-fill, which is explicitly all-time.
func (s *GormStore) PlacesWithAnyPolicy(ctx context.Context, f policystatus.Filters) ([]policystatus.PlaceTuple, error) {
	q, err := s.policyQuery(ctx, f.Without(policystatus.FieldDatesInEffect))
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Iso3     string
		Area1    string
		AnsiFips string
		Level    string
	}
	err = q.
		Joins("JOIN policy_place pp ON pp.policy_id = policy.id").
		Joins("JOIN place pl ON pl.id = pp.place_id").
		Select("DISTINCT pl.iso3, pl.area1, COALESCE(pl.ansi_fips, '') AS ansi_fips, pl.level").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query zero-fill places: %w", err)
	}

	tuples := make([]policystatus.PlaceTuple, len(rows))
	for i, r := range rows {
		tuples[i] = policystatus.PlaceTuple{
			Iso3:     r.Iso3,
			Area1:    r.Area1,
			AnsiFips: r.AnsiFips,
			Level:    r.Level,
		}
	}
	return tuples, nil
}

// ListPolicies returns policy rows matching the filters for the read API,
// capped at limit (0 means no cap).
func (s *GormStore) ListPolicies(ctx context.Context, f policystatus.Filters, limit int) ([]Policy, error) {
	q, err := s.policyQuery(ctx, f)
	if err != nil {
		return nil, err
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []Policy
	if err := q.Preload("Places").Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query policies: %w", err)
	}
	return rows, nil
}
