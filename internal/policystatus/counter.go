package policystatus

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// CountOptions tune a single GetPolicyStatusCounts call.
type CountOptions struct {
	// ByGroupNumber counts only the lowest-id policy of each group number,
	// correcting for near-duplicate policies.
	ByGroupNumber bool

	// FilterBySubgeo counts policies affecting locations strictly beneath
	// the requested resolution instead of at it. Not supported for the
	// county resolutions.
	FilterBySubgeo bool

	// IncludeZeros adds zero-valued observations for locations with
	// historical but no currently-matching policies.
	IncludeZeros bool

	// IncludeMinMax attaches the all-time min/max observations.
	IncludeMinMax bool

	// CountMinMaxByCat keeps category/subcategory filters when computing
	// the all-time min/max instead of stripping them.
	CountMinMaxByCat bool

	// One trims the response to a single observation: the one matching an
	// explicitly filtered location value if present, else the highest.
	One bool

	// CountedParentGeos lists parent resolutions whose policies are counted
	// in addition to the requested resolution.
	CountedParentGeos []GeoRes
}

// Category filter fields stripped from min/max computation unless
// CountMinMaxByCat is set.
var categoryFields = []string{"primary_ph_measure", "ph_measure_details"}

// Counter runs the full aggregation pipeline: validate, fetch, deduplicate,
// aggregate, zero-fill, sort/trim, assemble, and attach min/max. It is
// stateless apart from an optional injected cache and safe for concurrent
// use.
type Counter struct {
	store Store
	cache Cache
	now   func() time.Time
}

// CounterOption configures a Counter.
type CounterOption func(*Counter)

// WithCache memoizes fully-assembled responses keyed by the literal
// argument set.
func WithCache(c Cache) CounterOption {
	return func(ct *Counter) { ct.cache = c }
}

// WithClock overrides the current-date source for the min/max scan window.
func WithClock(now func() time.Time) CounterOption {
	return func(ct *Counter) { ct.now = now }
}

// NewCounter creates a Counter over the given store.
func NewCounter(store Store, opts ...CounterOption) *Counter {
	c := &Counter{store: store, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// validate rejects unsupported argument combinations before any fetch.
func (c *Counter) validate(geoRes GeoRes, opt CountOptions) error {
	if _, err := ParseGeoRes(string(geoRes)); err != nil {
		return fmt.Errorf("%w: %q", ErrUnknownGeoRes, geoRes)
	}
	if opt.FilterBySubgeo && (geoRes == GeoResCounty || geoRes == GeoResCountyPlusState) {
		return ErrSubgeoNotSupported
	}
	return nil
}

// GetPolicyStatusCounts returns the number of active policies matching the
// filters at each location of the requested geographic resolution.
func (c *Counter) GetPolicyStatusCounts(ctx context.Context, geoRes GeoRes, filters Filters, opt CountOptions) (*PlaceObsList, error) {
	if err := c.validate(geoRes, opt); err != nil {
		return nil, err
	}

	key := cacheKey(geoRes, filters, opt)
	if c.cache != nil {
		if res, ok := c.cache.Get(key); ok {
			return res, nil
		}
	}

	// Allowed place levels: the resolution's own level plus any counted
	// parent resolutions'. Under sub-geography counting the places counted
	// are the ones beneath the resolution, not at it.
	allowedLevels := []string{geoRes.Level()}
	for _, parent := range opt.CountedParentGeos {
		allowedLevels = append(allowedLevels, parent.Level())
	}
	if opt.FilterBySubgeo {
		levels, err := geoRes.SubgeoLevels()
		if err != nil {
			return nil, err
		}
		allowedLevels = levels
	}

	// Inject location scoping without touching the caller's map. State and
	// county resolutions only ever count USA places.
	f := filters.Clone()
	if geoRes.ForUSAOnly() {
		f[FieldIso3] = []string{"USA"}
	}
	subgeoOf := GeoRes("")
	if opt.FilterBySubgeo {
		subgeoOf = geoRes
	} else {
		f[FieldLevel] = allowedLevels
	}

	recs, err := c.store.Policies(ctx, f, subgeoOf)
	if err != nil {
		return nil, fmt.Errorf("fetch policies: %w", err)
	}

	if opt.ByGroupNumber {
		minIDs, err := c.store.MinPolicyIDsByGroup(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch group index: %w", err)
		}
		recs = Deduplicate(recs, minIDs)
	}

	byLoc := AggregateByLocation(recs, geoRes, allowedLevels)
	data := make([]PlaceObs, 0, len(byLoc))
	for _, obs := range byLoc {
		data = append(data, *obs)
	}

	if opt.IncludeZeros {
		fz := f.Without(FieldDatesInEffect)
		if opt.FilterBySubgeo {
			fz[FieldLevel] = allowedLevels
		}
		tuples, err := c.store.PlacesWithAnyPolicy(ctx, fz)
		if err != nil {
			return nil, fmt.Errorf("fetch zero-fill places: %w", err)
		}
		data, err = ZeroFill(data, byLoc, geoRes, tuples)
		if err != nil {
			return nil, err
		}
	}

	// Order by descending value; ties are unordered.
	sort.Slice(data, func(i, j int) bool { return data[i].Value > data[j].Value })

	if opt.One && len(data) > 0 {
		data = trimToOne(data, f, geoRes.LocField())
	}

	res := &PlaceObsList{
		Data:    data,
		Success: true,
		Message: countMessage(len(data), geoRes, opt),
	}

	if opt.IncludeMinMax {
		if err := c.attachMinMax(ctx, res, geoRes, f, opt); err != nil {
			return nil, err
		}
	}

	if c.cache != nil {
		c.cache.Put(key, res)
	}
	return res, nil
}

// trimToOne reduces data to a single observation, preferring the one that
// matches an explicitly filtered location value.
func trimToOne(data []PlaceObs, f Filters, locField string) []PlaceObs {
	if wanted, ok := f[locField]; ok && len(wanted) > 0 {
		for _, obs := range data {
			if obs.PlaceName == wanted[0] {
				return []PlaceObs{obs}
			}
		}
	}
	return data[:1]
}

// attachMinMax computes the all-time min/max for the resolution, ignoring
// date-range and location filters so the result is a time-independent
// ceiling, and merges it into res. Nothing is attached when the scan is
// empty.
func (c *Counter) attachMinMax(ctx context.Context, res *PlaceObsList, geoRes GeoRes, f Filters, opt CountOptions) error {
	fm := f.Without(FieldDatesInEffect, FieldIso3, FieldArea1, FieldAnsiFips)
	if !opt.CountMinMaxByCat {
		fm = fm.Without(categoryFields...)
	}
	// The scan supports exactly one level: the requested resolution's own,
	// even when sub-geography counting was requested for the main data.
	fm[FieldLevel] = []string{geoRes.Level()}

	recs, err := c.store.Policies(ctx, fm, "")
	if err != nil {
		return fmt.Errorf("fetch min/max policies: %w", err)
	}
	if opt.ByGroupNumber {
		minIDs, err := c.store.MinPolicyIDsByGroup(ctx)
		if err != nil {
			return fmt.Errorf("fetch group index: %w", err)
		}
		recs = Deduplicate(recs, minIDs)
	}

	max, err := AllTimeMax(recs, geoRes, []string{geoRes.Level()}, c.now())
	if err != nil {
		return err
	}
	if max == nil {
		return nil
	}
	res.MaxAllTime = max
	res.MinAllTime = AllTimeMin()
	return nil
}

// countMessage describes the observation count, the resolution counted
// (prefixed "sub-" when sub-geography counting was requested), and any
// additionally included parent resolutions.
func countMessage(n int, geoRes GeoRes, opt CountOptions) string {
	counted := string(geoRes)
	if opt.FilterBySubgeo {
		counted = "sub-" + counted
	}
	parents := ""
	if len(opt.CountedParentGeos) > 0 {
		quoted := make([]string, len(opt.CountedParentGeos))
		for i, g := range opt.CountedParentGeos {
			quoted[i] = "'" + string(g) + "'"
		}
		parents = ", including parent geographies at resolution(s) " + strings.Join(quoted, ", ") + ","
	}
	return fmt.Sprintf("Found %d values counting %s policies%s grouped by %s", n, counted, parents, geoRes)
}
