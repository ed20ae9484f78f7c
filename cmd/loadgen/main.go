// =============================================================================
// CANVAS INDEX - LOAD GENERATOR
// =============================================================================
// This standalone process exercises a running index server over HTTP:
// - Seeds random rectangles across the universe
// - Issues a mixed read workload (region, point, nearest, collision queries)
// - Reports throughput once per second
//
// USAGE:
//   1. Start the index server first: go run ./cmd/server
//   2. Then start this generator:    go run ./cmd/loadgen
// =============================================================================
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

type boxPayload struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type itemPayload struct {
	ID  string     `json:"id"`
	Box boxPayload `json:"box"`
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	log.Println("================================")
	log.Println("  CANVAS INDEX - LOAD GENERATOR")
	log.Println("================================")

	baseURL := getEnvWithDefault("TARGET_URL", "http://localhost:3000")
	seedCount := getEnvInt("SEED_ITEMS", 5000)
	workers := getEnvInt("QUERY_WORKERS", 4)
	width := getEnvFloat("INDEX_WIDTH", 2000)
	height := getEnvFloat("INDEX_HEIGHT", 2000)

	client := &http.Client{Timeout: 5 * time.Second}

	log.Printf("Target: %s", baseURL)
	log.Printf("Seeding %d items over %.0fx%.0f...", seedCount, width, height)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	// Seed in batches to keep request counts reasonable
	const batchSize = 200
	for seeded := 0; seeded < seedCount; seeded += batchSize {
		n := batchSize
		if seedCount-seeded < n {
			n = seedCount - seeded
		}

		batch := make([]itemPayload, n)
		for i := range batch {
			w := 10 + rng.Float64()*190
			h := 10 + rng.Float64()*190
			batch[i] = itemPayload{
				ID: fmt.Sprintf("load-%d", seeded+i),
				Box: boxPayload{
					X:      rng.Float64() * (width - w),
					Y:      rng.Float64() * (height - h),
					Width:  w,
					Height: h,
				},
			}
		}

		if err := postJSON(client, baseURL+"/api/index/items/batch", map[string]interface{}{"items": batch}); err != nil {
			log.Fatalf("Seed batch failed: %v", err)
		}
	}
	log.Printf("Seeded %d items", seedCount)

	var queries atomic.Uint64
	var errors atomic.Uint64

	for i := 0; i < workers; i++ {
		go func(seed int64) {
			r := rand.New(rand.NewSource(seed))
			for {
				var url string
				switch r.Intn(4) {
				case 0:
					x := r.Float64() * width
					y := r.Float64() * height
					url = fmt.Sprintf("%s/api/index/query/region?x=%.1f&y=%.1f&width=300&height=300", baseURL, x, y)
				case 1:
					url = fmt.Sprintf("%s/api/index/query/point?x=%.1f&y=%.1f", baseURL, r.Float64()*width, r.Float64()*height)
				case 2:
					url = fmt.Sprintf("%s/api/index/query/nearest?x=%.1f&y=%.1f&maxDistance=500", baseURL, r.Float64()*width, r.Float64()*height)
				case 3:
					url = fmt.Sprintf("%s/api/index/collisions/load-%d", baseURL, r.Intn(seedCount))
				}

				resp, err := client.Get(url)
				if err != nil {
					errors.Add(1)
					time.Sleep(100 * time.Millisecond)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				queries.Add(1)
			}
		}(time.Now().UnixNano() + int64(i))
	}

	// Throughput reporter
	go func() {
		ticker := time.NewTicker(time.Second)
		var last uint64
		for range ticker.C {
			total := queries.Load()
			log.Printf("%d queries/sec (%d total, %d errors)", total-last, total, errors.Load())
			last = total
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Load generator stopped")
}

func postJSON(client *http.Client, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}

func getEnvWithDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
