package policies

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/covidamp/amp-backend/internal/policystatus"
	"github.com/go-chi/chi/v5"
)

// statusCountRequest is the JSON body of the status-count endpoint. All
// option flags default to false; filters default to empty.
type statusCountRequest struct {
	Filters           policystatus.Filters `json:"filters"`
	ByGroupNumber     bool                 `json:"by_group_number"`
	FilterBySubgeo    bool                 `json:"filter_by_subgeo"`
	IncludeZeros      bool                 `json:"include_zeros"`
	IncludeMinMax     bool                 `json:"include_min_max"`
	CountMinMaxByCat  bool                 `json:"count_min_max_by_cat"`
	One               bool                 `json:"one"`
	CountedParentGeos []string             `json:"counted_parent_geos"`
}

// PolicyStatusCountsHandler counts active policies per location at the
// resolution in the URL.
func PolicyStatusCountsHandler(w http.ResponseWriter, r *http.Request) {
	geoRes, err := policystatus.ParseGeoRes(chi.URLParam(r, "geo_res"))
	if err != nil {
		http.Error(w, "Invalid geographic resolution", http.StatusBadRequest)
		return
	}

	var req statusCountRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	opt := policystatus.CountOptions{
		ByGroupNumber:    req.ByGroupNumber,
		FilterBySubgeo:   req.FilterBySubgeo,
		IncludeZeros:     req.IncludeZeros,
		IncludeMinMax:    req.IncludeMinMax,
		CountMinMaxByCat: req.CountMinMaxByCat,
		One:              req.One,
	}
	for _, g := range req.CountedParentGeos {
		parent, err := policystatus.ParseGeoRes(g)
		if err != nil {
			http.Error(w, "Invalid counted parent geography: "+g, http.StatusBadRequest)
			return
		}
		opt.CountedParentGeos = append(opt.CountedParentGeos, parent)
	}

	res, err := counter.GetPolicyStatusCounts(r.Context(), geoRes, req.Filters, opt)
	if err != nil {
		writeCountError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

// PolicyStatusMapHandler serves the map view: deduplicated counts with zeros
// and the all-time min/max, active on a single date (today by default).
func PolicyStatusMapHandler(w http.ResponseWriter, r *http.Request) {
	geoRes, err := policystatus.ParseGeoRes(chi.URLParam(r, "geo_res"))
	if err != nil {
		http.Error(w, "Invalid geographic resolution", http.StatusBadRequest)
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		http.Error(w, "Invalid date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	filters := policystatus.Filters{
		policystatus.FieldDatesInEffect: {date, date},
	}
	if cat := r.URL.Query().Get("primary_ph_measure"); cat != "" {
		filters["primary_ph_measure"] = []string{cat}
	}

	opt := policystatus.CountOptions{
		ByGroupNumber: true,
		IncludeZeros:  true,
		IncludeMinMax: true,
	}

	res, err := counter.GetPolicyStatusCounts(r.Context(), geoRes, filters, opt)
	if err != nil {
		writeCountError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

// ListPoliciesHandler returns raw policy rows matching simple query-string
// filters, capped at 500 rows unless a smaller limit is given.
func ListPoliciesHandler(w http.ResponseWriter, r *http.Request) {
	filters := policystatus.Filters{}
	for field, vals := range r.URL.Query() {
		if field == "limit" {
			continue
		}
		filters[field] = vals
	}

	limit := 500
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		if n < limit {
			limit = n
		}
	}

	rows, err := store.ListPolicies(r.Context(), filters, limit)
	if err != nil {
		http.Error(w, "Failed to fetch policies: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rows)
}

// FlushCacheHandler drops all memoized status-count responses. Used after
// dataset reloads.
func FlushCacheHandler(w http.ResponseWriter, r *http.Request) {
	n := cache.Len()
	cache.Flush()
	log.Printf("[policies] flushed %d cached responses", n)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"flushed": n})
}

// writeCountError maps engine errors onto HTTP statuses.
func writeCountError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, policystatus.ErrUnknownGeoRes),
		errors.Is(err, policystatus.ErrSubgeoNotSupported),
		errors.Is(err, policystatus.ErrMultipleLevels):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Printf("[policies] status count failed: %v", err)
		http.Error(w, "Failed to compute policy status counts", http.StatusInternalServerError)
	}
}
