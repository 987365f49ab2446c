package policystatus

import "fmt"

// ZeroFill appends a zero-valued observation for every place tuple whose
// location value at the given resolution is not already present in byLoc.
// Tuples come from the date-free zero-fill fetch, so they identify locations
// that have had matching policies at some point even if none match the
// current filters: reporting them as 0 distinguishes "currently zero" from
// "no data ever".
//
// Appended zeros are registered in byLoc, which makes the operation
// idempotent: a second pass over the same tuples adds nothing and never
// alters existing non-zero entries.
func ZeroFill(data []PlaceObs, byLoc map[string]*PlaceObs, geoRes GeoRes, tuples []PlaceTuple) ([]PlaceObs, error) {
	for _, t := range tuples {
		var loc string
		switch geoRes {
		case GeoResCountry:
			loc = t.Iso3
		case GeoResState:
			if t.Iso3 != "USA" {
				continue
			}
			loc = t.Area1
		case GeoResCounty, GeoResCountyPlusState:
			// A county without a FIPS code cannot be identified.
			if t.AnsiFips == "" {
				continue
			}
			if t.Iso3 != "USA" {
				continue
			}
			loc = padLocValue(t.AnsiFips, "ansi_fips")
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownGeoRes, geoRes)
		}
		if loc == "" || loc == unspecifiedLoc {
			continue
		}
		if _, ok := byLoc[loc]; ok {
			continue
		}
		obs := PlaceObs{PlaceName: loc, Value: 0}
		data = append(data, obs)
		byLoc[loc] = &obs
	}
	return data, nil
}
