package policies

import (
	"log"
	"time"

	"github.com/covidamp/amp-backend/internal/db"
	"github.com/covidamp/amp-backend/internal/policystatus"
)

// Package-level collaborators wired by Init and used by the handlers.
var (
	store   *GormStore
	cache   *policystatus.MemoryCache
	counter *policystatus.Counter
)

func Init(cacheTTL time.Duration) {
	// Auto-migrate the dataset tables
	if err := db.DB.AutoMigrate(
		&Place{},
		&Policy{},
	); err != nil {
		log.Fatal("Failed to auto-migrate policy tables: ", err)
	}

	store = NewGormStore(db.DB)
	cache = policystatus.NewMemoryCache(cacheTTL)
	counter = policystatus.NewCounter(store, policystatus.WithCache(cache))

	log.Println("Policies module initialized")
}
