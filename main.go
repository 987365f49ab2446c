package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/covidamp/amp-backend/internal/config"
	"github.com/covidamp/amp-backend/internal/db"
	"github.com/covidamp/amp-backend/internal/middleware"
	"github.com/covidamp/amp-backend/internal/policies"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	db.Connect()
	policies.Init(cfg.CacheTTL)

	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))
	r.Get("/", RootHandler)

	r.Mount("/policies", policies.SetupRoutes(cfg.AdminKeyHash))

	fmt.Println("Server listening on port :" + cfg.Port + "...")

	http.ListenAndServe("0.0.0.0:"+cfg.Port, r)
}
