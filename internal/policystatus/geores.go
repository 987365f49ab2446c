package policystatus

import "fmt"

// GeoRes is a geographic resolution at which policy status counts can be
// reported: by country, by state/province, by county, or by county blended
// with its parent state.
type GeoRes string

const (
	GeoResCountry         GeoRes = "country"
	GeoResState           GeoRes = "state"
	GeoResCounty          GeoRes = "county"
	GeoResCountyPlusState GeoRes = "county_plus_state"
)

// Place levels as stored on the place relation.
const (
	LevelCountry        = "Country"
	LevelState          = "State / Province"
	LevelLocal          = "Local"
	LevelLocalPlusState = "Local plus state/province"
)

// AllGeoRes lists every supported resolution, coarsest first.
var AllGeoRes = []GeoRes{GeoResCountry, GeoResState, GeoResCounty, GeoResCountyPlusState}

// ParseGeoRes converts a request string into a GeoRes, or returns an error
// for anything outside the supported set. Use this at the HTTP boundary;
// the methods below treat unknown values as programmer error and panic.
func ParseGeoRes(s string) (GeoRes, error) {
	g := GeoRes(s)
	switch g {
	case GeoResCountry, GeoResState, GeoResCounty, GeoResCountyPlusState:
		return g, nil
	}
	return "", fmt.Errorf("unknown geographic resolution: %q", s)
}

// Level returns the place level counted at this resolution.
func (g GeoRes) Level() string {
	switch g {
	case GeoResCountry:
		return LevelCountry
	case GeoResState:
		return LevelState
	case GeoResCounty:
		return LevelLocal
	case GeoResCountyPlusState:
		return LevelLocalPlusState
	default:
		panic("no level defined for geographic resolution: " + string(g))
	}
}

// LocField returns the place field that identifies a location at this
// resolution.
func (g GeoRes) LocField() string {
	switch g {
	case GeoResCountry:
		return "iso3"
	case GeoResState:
		return "area1"
	case GeoResCounty, GeoResCountyPlusState:
		return "ansi_fips"
	default:
		panic("no location field defined for geographic resolution: " + string(g))
	}
}

// MapType returns the display map identifier for this resolution.
func (g GeoRes) MapType() string {
	switch g {
	case GeoResCountry:
		return "global"
	case GeoResState:
		return "us"
	case GeoResCounty:
		return "us-county"
	case GeoResCountyPlusState:
		return "us-county-plus-state"
	default:
		panic("no map type defined for geographic resolution: " + string(g))
	}
}

// MapTypeFromLevel returns the display map identifier for a place level.
func MapTypeFromLevel(level string) (string, error) {
	switch level {
	case LevelCountry:
		return "global", nil
	case LevelState:
		return "us", nil
	case LevelLocal:
		return "us-county", nil
	case LevelLocalPlusState:
		return "us-county-plus-state", nil
	}
	return "", fmt.Errorf("unexpected level: %q", level)
}

// IsChildOf reports whether g is a strictly finer resolution than other in
// the fixed order country > state > county. Equal or coarser resolutions
// return false.
func (g GeoRes) IsChildOf(other GeoRes) bool {
	if g == GeoResCountry || g == other {
		return false
	}
	switch g {
	case GeoResState:
		return other == GeoResCountry
	case GeoResCounty:
		return other == GeoResCountry || other == GeoResState
	default:
		panic("child ordering not defined for geographic resolution: " + string(g))
	}
}

// ForUSAOnly reports whether counts at this resolution are restricted to
// places inside the United States.
func (g GeoRes) ForUSAOnly() bool {
	return g == GeoResState || g == GeoResCounty || g == GeoResCountyPlusState
}

// SubgeoLevels returns the place levels strictly beneath this resolution,
// used when counting sub-geography policies. Counting below the county
// resolutions is not supported.
func (g GeoRes) SubgeoLevels() ([]string, error) {
	switch g {
	case GeoResCountry:
		return []string{LevelState, LevelLocal, LevelLocalPlusState}, nil
	case GeoResState:
		return []string{LevelLocal, LevelLocalPlusState}, nil
	}
	return nil, ErrSubgeoNotSupported
}
