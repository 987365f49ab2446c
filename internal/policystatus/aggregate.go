package policystatus

import (
	"log"
	"sort"
)

// fipsWidth is the fixed width of county ANSI/FIPS identifiers. Four-digit
// values are codes that lost a leading zero upstream.
const fipsWidth = 5

// padLocValue left-pads 4-character FIPS-like values to 5 with a leading
// zero when the location field is ansi_fips. Other widths and fields pass
// through unchanged.
func padLocValue(val, locField string) string {
	if locField == "ansi_fips" && len(val) == fipsWidth-1 {
		return "0" + val
	}
	return val
}

// AggregateByLocation counts (record, place) pairs per location value for
// the resolution's location field. Only places whose level is in
// allowedLevels are counted; location values that are empty or the
// "Unspecified" sentinel are rejected. A record with no matching places
// contributes nothing.
//
// The result maps the (padded) location value to its observation. If two
// raw location values collapse onto the same padded value, the count of the
// lower raw value wins; that indicates inconsistent source data and is
// logged, not fatal.
func AggregateByLocation(recs []Record, geoRes GeoRes, allowedLevels []string) map[string]*PlaceObs {
	locField := geoRes.LocField()
	allowed := make(map[string]bool, len(allowedLevels))
	for _, lv := range allowedLevels {
		allowed[lv] = true
	}

	counts := make(map[string]int)
	for _, r := range recs {
		for _, pl := range r.Places {
			if !allowed[pl.Level] {
				continue
			}
			val := pl.LocValue(locField)
			if val == "" || val == unspecifiedLoc {
				continue
			}
			counts[val]++
		}
	}

	// Resolve pad collisions in ascending raw-value order so repeated runs
	// over the same data agree.
	vals := make([]string, 0, len(counts))
	for val := range counts {
		vals = append(vals, val)
	}
	sort.Strings(vals)

	out := make(map[string]*PlaceObs, len(counts))
	for _, val := range vals {
		padded := padLocValue(val, locField)
		if _, dup := out[padded]; dup {
			log.Printf("[policystatus] duplicate location value %q after padding; keeping first count", padded)
			continue
		}
		out[padded] = &PlaceObs{PlaceName: padded, Value: counts[val]}
	}
	return out
}
