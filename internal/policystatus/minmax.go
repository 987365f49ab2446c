package policystatus

import (
	"sort"
	"time"
)

// minMaxWindowStart is the first day of the fixed historical scan window.
// No tracked policy predates 2019.
var minMaxWindowStart = time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC)

// minMaxRow is one (date, location) cell of the day-range scan.
type minMaxRow struct {
	date  time.Time
	loc   string
	count int
}

// AllTimeMax scans every day from 2019-01-01 through today crossed with the
// given (already filtered, optionally deduplicated) records and their places
// at the single allowed level, and returns the observation with the highest
// active-policy count across all of history. Ties are broken by the natural
// ascending order of (count, date, location), so the last row after an
// ascending sort wins.
//
// The records must have been fetched without any date-range filter: the
// result is a time-independent ceiling for baselining. A nil observation
// (not an error) is returned when the scan produces no rows.
func AllTimeMax(recs []Record, geoRes GeoRes, levels []string, today time.Time) (*PlaceObs, error) {
	if len(levels) != 1 {
		return nil, ErrMultipleLevels
	}
	level := levels[0]
	locField := geoRes.LocField()
	today = today.UTC().Truncate(24 * time.Hour)

	// Count active policies per (day, location) over the fixed window.
	counts := make(map[time.Time]map[string]int)
	for _, r := range recs {
		start, end := r.StartDate, r.EndDate
		if start.Before(minMaxWindowStart) {
			start = minMaxWindowStart
		}
		if end.After(today) {
			end = today
		}
		for _, pl := range r.Places {
			if pl.Level != level {
				continue
			}
			loc := pl.LocValue(locField)
			if loc == "" || loc == unspecifiedLoc {
				continue
			}
			loc = padLocValue(loc, locField)
			for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
				byLoc, ok := counts[day]
				if !ok {
					byLoc = make(map[string]int)
					counts[day] = byLoc
				}
				byLoc[loc]++
			}
		}
	}

	rows := make([]minMaxRow, 0, len(counts))
	for day, byLoc := range counts {
		for loc, n := range byLoc {
			rows = append(rows, minMaxRow{date: day, loc: loc, count: n})
		}
	}
	if len(rows) == 0 {
		return nil, nil
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.count != b.count {
			return a.count < b.count
		}
		if !a.date.Equal(b.date) {
			return a.date.Before(b.date)
		}
		return a.loc < b.loc
	})

	max := rows[len(rows)-1]
	datestamp := max.date
	return &PlaceObs{PlaceName: max.loc, Value: max.count, Datestamp: &datestamp}, nil
}

// AllTimeMin returns the fixed floor observation: at least one policy in
// effect is the practical minimum at any resolution.
func AllTimeMin() *PlaceObs {
	return &PlaceObs{Value: 1}
}
