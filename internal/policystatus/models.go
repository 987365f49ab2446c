// Package policystatus implements the policy-status geographic aggregation
// engine: given policy records matching arbitrary filters, it computes how
// many policies are in effect at each location for a chosen geographic
// resolution, corrects for near-duplicate policies sharing a group number,
// fills in zero-valued observations for locations with historical but no
// currently-matching policies, and reports the all-time min/max active-policy
// count per resolution for baselining.
//
// The engine is pure computation over already-fetched records: persistence
// and filter evaluation live behind the Store interface, implemented by
// internal/policies on top of GORM.
package policystatus

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for the engine's programmer-error taxonomy. These signal
// misuse or unsupported configurations, never bad user data.
var (
	ErrSubgeoNotSupported = errors.New("cannot count sub-geography policies for counties")
	ErrMultipleLevels     = errors.New("min/max counts support exactly one place level")
	ErrUnknownGeoRes      = errors.New("unknown geographic resolution")
)

// Filter field names with special handling.
const (
	FieldDatesInEffect = "dates_in_effect"
	FieldLevel         = "level"
	FieldIso3          = "iso3"
	FieldArea1         = "area1"
	FieldAnsiFips      = "ansi_fips"
)

// unspecifiedLoc is the sentinel location value that must never be counted.
const unspecifiedLoc = "Unspecified"

// Filters maps field names to lists of allowed values (AND across fields,
// OR within a field). FieldDatesInEffect holds a [start, end] date pair and
// is interpreted as an effective-range overlap by the Store.
type Filters map[string][]string

// Clone returns a deep copy so the engine can inject level and iso3 entries
// without mutating the caller's map.
func (f Filters) Clone() Filters {
	out := make(Filters, len(f))
	for k, v := range f {
		vals := make([]string, len(v))
		copy(vals, v)
		out[k] = vals
	}
	return out
}

// Without returns a copy of f with the named fields removed.
func (f Filters) Without(fields ...string) Filters {
	out := f.Clone()
	for _, field := range fields {
		delete(out, field)
	}
	return out
}

// RecordPlace is one location affected by a policy record.
type RecordPlace struct {
	Level    string
	Iso3     string
	Area1    string
	Area2    string
	AnsiFips string
}

// LocValue returns the place attribute identified by locField, or "" if the
// field is not a recognized location field.
func (p RecordPlace) LocValue(locField string) string {
	switch locField {
	case "iso3":
		return p.Iso3
	case "area1":
		return p.Area1
	case "ansi_fips":
		return p.AnsiFips
	}
	return ""
}

// Record is a policy record as consumed by the engine. A record may affect
// zero or more places; a record with no places contributes nothing to any
// count.
type Record struct {
	ID          int64
	GroupNumber *int64 // nil when the policy carries no group assignment
	StartDate   time.Time
	EndDate     time.Time
	Places      []RecordPlace
}

// ActiveOn reports whether the record's effective date range contains day.
func (r Record) ActiveOn(day time.Time) bool {
	return !day.Before(r.StartDate) && !day.After(r.EndDate)
}

// PlaceTuple identifies a place that has ever had at least one policy
// matching a filter set, as returned by the zero-fill fetch. AnsiFips is ""
// when the place has no FIPS code.
type PlaceTuple struct {
	Iso3     string
	Area1    string
	AnsiFips string
	Level    string
}

// Store is the filter-and-query collaborator the engine depends on. All
// methods are read-only; implementations must not retain the filter maps.
type Store interface {
	// Policies returns the records matching the filters, with every
	// associated place attached. When subgeoOf is non-empty the level filter
	// is replaced by the levels strictly beneath that resolution.
	Policies(ctx context.Context, f Filters, subgeoOf GeoRes) ([]Record, error)

	// MinPolicyIDsByGroup returns the lowest policy id for each distinct
	// group number across all policies, ignoring any filters.
	MinPolicyIDsByGroup(ctx context.Context) (map[int64]int64, error)

	// PlacesWithAnyPolicy returns the place tuples for every place that has
	// ever had at least one policy matching the (date-free) filters.
	PlacesWithAnyPolicy(ctx context.Context, f Filters) ([]PlaceTuple, error)
}

// PlaceObs is a single observation: the number of policies in effect at one
// location, optionally pinned to a date.
type PlaceObs struct {
	PlaceName string     `json:"place_name"`
	Value     int        `json:"value"`
	Datestamp *time.Time `json:"datestamp,omitempty"`
}

// PlaceObsList is the engine's response: observations plus descriptive
// metadata and optional all-time min/max baselines.
type PlaceObsList struct {
	Data       []PlaceObs `json:"data"`
	Success    bool       `json:"success"`
	Message    string     `json:"message"`
	MinAllTime *PlaceObs  `json:"min_all_time,omitempty"`
	MaxAllTime *PlaceObs  `json:"max_all_time,omitempty"`
}
