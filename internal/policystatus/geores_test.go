package policystatus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseGeoRes(t *testing.T) {
	for _, g := range AllGeoRes {
		parsed, err := ParseGeoRes(string(g))
		assert.NoError(t, err)
		assert.Equal(t, g, parsed)
	}

	_, err := ParseGeoRes("continent")
	assert.Error(t, err)
	_, err = ParseGeoRes("")
	assert.Error(t, err)
}

// The resolution getters are total over the defined set and fail only for
// values outside it.
func TestGeoResGetters(t *testing.T) {
	assert.Equal(t, "iso3", GeoResCountry.LocField())
	assert.Equal(t, "area1", GeoResState.LocField())
	assert.Equal(t, "ansi_fips", GeoResCounty.LocField())
	assert.Equal(t, "ansi_fips", GeoResCountyPlusState.LocField())

	assert.Equal(t, LevelCountry, GeoResCountry.Level())
	assert.Equal(t, LevelState, GeoResState.Level())
	assert.Equal(t, LevelLocal, GeoResCounty.Level())
	assert.Equal(t, LevelLocalPlusState, GeoResCountyPlusState.Level())

	assert.Equal(t, "global", GeoResCountry.MapType())
	assert.Equal(t, "us", GeoResState.MapType())
	assert.Equal(t, "us-county", GeoResCounty.MapType())
	assert.Equal(t, "us-county-plus-state", GeoResCountyPlusState.MapType())

	assert.Panics(t, func() { GeoRes("continent").Level() })
	assert.Panics(t, func() { GeoRes("continent").LocField() })
	assert.Panics(t, func() { GeoRes("continent").MapType() })
}

func TestMapTypeFromLevel(t *testing.T) {
	for _, g := range AllGeoRes {
		mt, err := MapTypeFromLevel(g.Level())
		assert.NoError(t, err)
		assert.Equal(t, g.MapType(), mt)
	}
	_, err := MapTypeFromLevel("Continent")
	assert.Error(t, err)
}

func TestIsChildOf(t *testing.T) {
	assert.True(t, GeoResState.IsChildOf(GeoResCountry))
	assert.True(t, GeoResCounty.IsChildOf(GeoResState))
	assert.True(t, GeoResCounty.IsChildOf(GeoResCountry))
	assert.False(t, GeoResState.IsChildOf(GeoResState))
	assert.False(t, GeoResState.IsChildOf(GeoResCounty))
	assert.False(t, GeoResCountry.IsChildOf(GeoResState))
	assert.False(t, GeoResCountry.IsChildOf(GeoResCountry))
}

func TestSubgeoLevels(t *testing.T) {
	levels, err := GeoResCountry.SubgeoLevels()
	assert.NoError(t, err)
	assert.Equal(t, []string{LevelState, LevelLocal, LevelLocalPlusState}, levels)

	levels, err = GeoResState.SubgeoLevels()
	assert.NoError(t, err)
	assert.Equal(t, []string{LevelLocal, LevelLocalPlusState}, levels)

	_, err = GeoResCounty.SubgeoLevels()
	assert.ErrorIs(t, err, ErrSubgeoNotSupported)
	_, err = GeoResCountyPlusState.SubgeoLevels()
	assert.ErrorIs(t, err, ErrSubgeoNotSupported)
}
