package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/lib/pq"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CLI flags
var (
	csvPath     = flag.String("csv", "", "Path to the source CSV (required)")
	dsn         = flag.String("dsn", os.Getenv("DATABASE_URL"), "Postgres DSN (default: env DATABASE_URL)")
	dryRun      = flag.Bool("dry-run", false, "Parse + validate only; no DB writes")
	confirm     = flag.Bool("confirm", false, "Required to perform destructive replace")
	advisoryKey = flag.Int64("advisory-lock", 0, "Optional Postgres advisory lock key (e.g., 424242). 0 = disabled")
)

// CSV contract
// policy_id,policy_name,group_number,primary_ph_measure,ph_measure_details,subtarget,authority,date_start_effective,date_end_effective,level,iso3,area1,area2,ansi_fips,country_name
// One row per policy-place link; rows sharing policy_id accumulate places.
// subtarget is semicolon-separated; dates are YYYY-MM-DD.

type PolicyCSV struct {
	ID               int64
	PolicyName       string
	GroupNumber      *int64
	PrimaryPhMeasure string
	PhMeasureDetails string
	Subtarget        []string
	Authority        string
	DateStart        string
	DateEnd          string
	Places           []PlaceCSV
}

type PlaceCSV struct {
	Level       string
	Iso3        string
	Area1       string
	Area2       string
	AnsiFips    string
	CountryName string
}

type Counts struct {
	Policies    int64
	Places      int64
	PolicyPlace int64
}

// titleCaser normalizes country names exported in inconsistent casing.
var titleCaser = cases.Title(language.English)

func main() {
	_ = godotenv.Load(".env.local")
	flag.Parse()
	if *csvPath == "" {
		fatalf("--csv is required")
	}
	if *dsn == "" {
		fatalf("--dsn not provided and DATABASE_URL not set")
	}

	policies, err := loadCSV(*csvPath)
	if err != nil {
		fatalf("CSV error: %v", err)
	}

	if err := validatePolicies(policies); err != nil {
		fatalf("CSV validation failed: %v", err)
	}

	fmt.Printf("Loaded %d policies from %s\n", len(policies), *csvPath)

	if *dryRun {
		printPlan(policies)
		fmt.Println("Dry run complete. No changes made.")
		return
	}

	if !*confirm {
		fatalf("Refusing to run without --confirm. Add --dry-run to preview.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		fatalf("ping: %v", err)
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		fatalf("begin tx: %v", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op if already committed
	}()

	// Optional advisory lock to avoid concurrent runs
	if *advisoryKey != 0 {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, *advisoryKey); err != nil {
			fatalf("advisory lock: %v", err)
		}
	}

	before, err := countAll(ctx, tx)
	if err != nil {
		fatalf("pre-count: %v", err)
	}
	fmt.Printf("Before: policies=%d places=%d links=%d\n",
		before.Policies, before.Places, before.PolicyPlace)

	// Destructive replace (explicit order; no ON DELETE CASCADE assumed)
	if err := wipeDataset(ctx, tx); err != nil {
		fatalf("wipe data: %v", err)
	}

	// Upsert places first, build key->id map
	placeIDs, err := upsertAllPlaces(ctx, tx, policies)
	if err != nil {
		fatalf("upsert places: %v", err)
	}
	fmt.Printf("Upserted %d distinct places\n", len(placeIDs))

	if err := insertAll(ctx, tx, policies, placeIDs); err != nil {
		fatalf("insert data: %v", err)
	}

	after, err := countAll(ctx, tx)
	if err != nil {
		fatalf("post-count: %v", err)
	}
	fmt.Printf("After:  policies=%d places=%d links=%d\n",
		after.Policies, after.Places, after.PolicyPlace)

	// sanity: every policy keeps at least one place link
	if after.PolicyPlace < after.Policies {
		fatalf("sanity check failed: links=%d policies=%d (expected links >= policies)", after.PolicyPlace, after.Policies)
	}

	if err := tx.Commit(); err != nil {
		fatalf("commit: %v", err)
	}
	fmt.Println("Seed complete ✅")
}

func loadCSV(path string) ([]PolicyCSV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	r := csv.NewReader(br)
	r.TrimLeadingSpace = true

	headers, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := map[string]int{}
	for i, h := range headers {
		idx[strings.TrimSpace(h)] = i
	}
	required := []string{
		"policy_id", "policy_name", "group_number", "primary_ph_measure",
		"ph_measure_details", "subtarget", "authority",
		"date_start_effective", "date_end_effective",
		"level", "iso3", "area1", "area2", "ansi_fips", "country_name",
	}
	for _, k := range required {
		if _, ok := idx[k]; !ok {
			return nil, fmt.Errorf("missing required column: %s", k)
		}
	}

	byID := map[int64]*PolicyCSV{}
	var order []int64
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv read: %w", err)
		}

		get := func(col string) string { return strings.TrimSpace(rec[idx[col]]) }

		id, err := strconv.ParseInt(get("policy_id"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad policy_id %q: %w", get("policy_id"), err)
		}

		p, ok := byID[id]
		if !ok {
			p = &PolicyCSV{
				ID:               id,
				PolicyName:       get("policy_name"),
				PrimaryPhMeasure: get("primary_ph_measure"),
				PhMeasureDetails: get("ph_measure_details"),
				Authority:        get("authority"),
				DateStart:        get("date_start_effective"),
				DateEnd:          get("date_end_effective"),
			}
			if g := get("group_number"); g != "" {
				gn, err := strconv.ParseInt(g, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("bad group_number %q for policy %d: %w", g, id, err)
				}
				p.GroupNumber = &gn
			}
			for _, s := range strings.Split(get("subtarget"), ";") {
				if s = strings.TrimSpace(s); s != "" {
					p.Subtarget = append(p.Subtarget, s)
				}
			}
			byID[id] = p
			order = append(order, id)
		}

		p.Places = append(p.Places, PlaceCSV{
			Level:       get("level"),
			Iso3:        strings.ToUpper(get("iso3")),
			Area1:       get("area1"),
			Area2:       get("area2"),
			AnsiFips:    get("ansi_fips"),
			CountryName: titleCaser.String(strings.ToLower(get("country_name"))),
		})
	}

	out := make([]PolicyCSV, len(order))
	for i, id := range order {
		out[i] = *byID[id]
	}
	return out, nil
}

func validatePolicies(policies []PolicyCSV) error {
	if len(policies) == 0 {
		return fmt.Errorf("CSV has no data rows")
	}
	for _, p := range policies {
		if p.PolicyName == "" {
			return fmt.Errorf("policy %d: policy_name is empty", p.ID)
		}
		if _, err := time.Parse("2006-01-02", p.DateStart); err != nil {
			return fmt.Errorf("policy %d: bad date_start_effective %q", p.ID, p.DateStart)
		}
		if _, err := time.Parse("2006-01-02", p.DateEnd); err != nil {
			return fmt.Errorf("policy %d: bad date_end_effective %q", p.ID, p.DateEnd)
		}
		for _, pl := range p.Places {
			if pl.Level == "" || pl.Iso3 == "" {
				return fmt.Errorf("policy %d: place missing level or iso3", p.ID)
			}
			if pl.AnsiFips != "" && len(pl.AnsiFips) != 4 && len(pl.AnsiFips) != 5 {
				return fmt.Errorf("policy %d: ansi_fips %q must be 4 or 5 digits", p.ID, pl.AnsiFips)
			}
		}
	}
	return nil
}

func printPlan(policies []PolicyCSV) {
	distinctPlaces := map[PlaceCSV]struct{}{}
	links := 0
	for _, p := range policies {
		for _, pl := range p.Places {
			distinctPlaces[pl] = struct{}{}
			links++
		}
	}
	fmt.Println("Plan preview:")
	fmt.Printf("  Policies to insert: %d\n", len(policies))
	fmt.Printf("  Distinct places: %d\n", len(distinctPlaces))
	fmt.Printf("  Policy-place links: %d\n", links)
	fmt.Println("  Tables affected (destructive): policy_place, policy, place")
}

func countAll(ctx context.Context, tx *sql.Tx) (Counts, error) {
	var c Counts
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM policy`).Scan(&c.Policies); err != nil {
		return c, err
	}
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM place`).Scan(&c.Places); err != nil {
		return c, err
	}
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM policy_place`).Scan(&c.PolicyPlace); err != nil {
		return c, err
	}
	return c, nil
}

func wipeDataset(ctx context.Context, tx *sql.Tx) error {
	tables := []string{"policy_place", "policy", "place"}
	for _, t := range tables {
		q := fmt.Sprintf("DELETE FROM %s", t)
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("delete %s: %w", t, err)
		}
	}
	return nil
}

func upsertAllPlaces(ctx context.Context, tx *sql.Tx, policies []PolicyCSV) (map[PlaceCSV]int64, error) {
	distinct := map[PlaceCSV]struct{}{}
	for _, p := range policies {
		for _, pl := range p.Places {
			distinct[pl] = struct{}{}
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO place
	      (level, iso3, area1, area2, ansi_fips, country_name)
	      VALUES ($1,$2,$3,$4,$5,$6)
	      RETURNING id`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	res := make(map[PlaceCSV]int64, len(distinct))
	for pl := range distinct {
		var id int64
		if err := stmt.QueryRowContext(ctx,
			pl.Level, pl.Iso3, pl.Area1, pl.Area2, pl.AnsiFips, pl.CountryName,
		).Scan(&id); err != nil {
			return nil, fmt.Errorf("insert place %s/%s/%s: %w", pl.Level, pl.Iso3, pl.Area1, err)
		}
		res[pl] = id
	}
	return res, nil
}

func insertAll(ctx context.Context, tx *sql.Tx, policies []PolicyCSV, placeIDs map[PlaceCSV]int64) error {
	// prepared statements for speed & safety
	policyStmt, err := tx.PrepareContext(ctx, `INSERT INTO policy
	      (id, policy_name, group_number, primary_ph_measure, ph_measure_details,
	       subtarget, authority, date_start_effective, date_end_effective)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`)
	if err != nil {
		return err
	}
	defer policyStmt.Close()

	joinStmt, err := tx.PrepareContext(ctx, `INSERT INTO policy_place (policy_id, place_id) VALUES ($1,$2)`)
	if err != nil {
		return err
	}
	defer joinStmt.Close()

	for _, p := range policies {
		var group any
		if p.GroupNumber != nil {
			group = *p.GroupNumber
		}
		if _, err := policyStmt.ExecContext(ctx,
			p.ID, p.PolicyName, group, p.PrimaryPhMeasure, p.PhMeasureDetails,
			pq.Array(p.Subtarget), p.Authority, p.DateStart, p.DateEnd,
		); err != nil {
			return fmt.Errorf("insert policy %d: %w", p.ID, err)
		}

		// join to places (dedupe per-policy)
		seen := map[int64]struct{}{}
		for _, pl := range p.Places {
			placeID, ok := placeIDs[pl]
			if !ok {
				return fmt.Errorf("place ID not found for policy %d (internal)", p.ID)
			}
			if _, dup := seen[placeID]; dup {
				continue
			}
			seen[placeID] = struct{}{}
			if _, err := joinStmt.ExecContext(ctx, p.ID, placeID); err != nil {
				return fmt.Errorf("insert policy_place %d -> %d: %w", p.ID, placeID, err)
			}
		}
	}
	return nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
