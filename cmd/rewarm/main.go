package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Warms the server's status-count cache by requesting the map view for every
// geographic resolution. Run after a dataset reload plus cache flush.
func main() {
	godotenv.Load(".env.local")

	base := os.Getenv("BASE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}

	resolutions := []string{"country", "state", "county", "county_plus_state"}
	body := `{"by_group_number": true, "include_zeros": true, "include_min_max": true}`

	client := &http.Client{Timeout: 5 * time.Minute}
	for _, res := range resolutions {
		url := base + "/policies/status/" + res
		start := time.Now()

		resp, err := client.Post(url, "application/json", strings.NewReader(body))
		if err != nil {
			log.Fatalf("Warming %s failed: %v", res, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			log.Fatalf("Warming %s failed: status %d", res, resp.StatusCode)
		}

		fmt.Printf("✓ Warmed %s in %s\n", res, time.Since(start).Round(time.Millisecond))
	}

	fmt.Println("\nAll resolutions warmed. Map loads will now be served from cache.")
}
