package policies

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/covidamp/amp-backend/internal/policystatus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// fakeStore serves canned records so handlers can be exercised without a
// database.
type fakeStore struct {
	recs   []policystatus.Record
	minIDs map[int64]int64
	tuples []policystatus.PlaceTuple
}

func (f *fakeStore) Policies(ctx context.Context, _ policystatus.Filters, _ policystatus.GeoRes) ([]policystatus.Record, error) {
	return f.recs, nil
}

func (f *fakeStore) MinPolicyIDsByGroup(ctx context.Context) (map[int64]int64, error) {
	return f.minIDs, nil
}

func (f *fakeStore) PlacesWithAnyPolicy(ctx context.Context, _ policystatus.Filters) ([]policystatus.PlaceTuple, error) {
	return f.tuples, nil
}

// setupTestModule swaps the package collaborators for fakes and returns the
// public router.
func setupTestModule(t *testing.T, adminKeyHash string) http.Handler {
	t.Helper()

	group := int64(10)
	fake := &fakeStore{
		recs: []policystatus.Record{
			{
				ID:          1,
				GroupNumber: &group,
				StartDate:   time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC),
				EndDate:     time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
				Places: []policystatus.RecordPlace{
					{Level: policystatus.LevelCountry, Iso3: "USA"},
				},
			},
			{
				ID:        2,
				StartDate: time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
				Places: []policystatus.RecordPlace{
					{Level: policystatus.LevelCountry, Iso3: "FRA"},
				},
			},
		},
		minIDs: map[int64]int64{group: 1},
		tuples: []policystatus.PlaceTuple{
			{Iso3: "USA", Level: policystatus.LevelCountry},
			{Iso3: "FRA", Level: policystatus.LevelCountry},
			{Iso3: "GBR", Level: policystatus.LevelCountry},
		},
	}

	cache = policystatus.NewMemoryCache(0)
	counter = policystatus.NewCounter(fake, policystatus.WithCache(cache))
	return SetupRoutes(adminKeyHash)
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPolicyStatusCountsHandler(t *testing.T) {
	h := setupTestModule(t, "")

	rec := postJSON(t, h, "/status/country", `{"by_group_number": true, "include_zeros": true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var res policystatus.PlaceObsList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Contains(t, res.Message, "grouped by country")
	assert.Len(t, res.Data, 3)
}

func TestPolicyStatusCountsHandlerRejectsBadResolution(t *testing.T) {
	h := setupTestModule(t, "")

	rec := postJSON(t, h, "/status/planet", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPolicyStatusCountsHandlerRejectsSubgeoForCounty(t *testing.T) {
	h := setupTestModule(t, "")

	rec := postJSON(t, h, "/status/county", `{"filter_by_subgeo": true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPolicyStatusCountsHandlerRejectsBadParentGeo(t *testing.T) {
	h := setupTestModule(t, "")

	rec := postJSON(t, h, "/status/state", `{"counted_parent_geos": ["continent"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPolicyStatusMapHandler(t *testing.T) {
	h := setupTestModule(t, "")

	req := httptest.NewRequest(http.MethodGet, "/status/country/map?date=2020-06-01", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var res policystatus.PlaceObsList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.NotNil(t, res.MaxAllTime)
	assert.NotNil(t, res.MinAllTime)
}

func TestPolicyStatusMapHandlerRejectsBadDate(t *testing.T) {
	h := setupTestModule(t, "")

	req := httptest.NewRequest(http.MethodGet, "/status/country/map?date=June+1st", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFlushCacheHandlerRequiresAdminKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	require.NoError(t, err)
	h := setupTestModule(t, string(hash))

	// Warm the cache with one response.
	rec := postJSON(t, h, "/status/country", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, cache.Len())

	// No key.
	req := httptest.NewRequest(http.MethodPost, "/admin/cache/flush", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong key.
	req = httptest.NewRequest(http.MethodPost, "/admin/cache/flush", nil)
	req.Header.Set("X-Admin-Key", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Correct key flushes.
	req = httptest.NewRequest(http.MethodPost, "/admin/cache/flush", nil)
	req.Header.Set("X-Admin-Key", "letmein")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, cache.Len())
}

func TestFlushCacheDisabledWithoutHash(t *testing.T) {
	h := setupTestModule(t, "")

	req := httptest.NewRequest(http.MethodPost, "/admin/cache/flush", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
