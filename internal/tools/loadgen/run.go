package loadgen

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sandeepkv93/product-catalog-demo/internal/observability"
	"github.com/sandeepkv93/product-catalog-demo/internal/tools/common"
)

type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        int64
}

type Result struct {
	TotalRequests int64
	Failures      int64
	Status2xx     int64
	Status4xx     int64
	Status5xx     int64
}

// step is one generated request. Body and headers are optional.
type step struct {
	method  string
	path    string
	body    any
	headers map[string]string
}

type stepFunc func(r *rand.Rand) step

func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = common.DefaultBaseURL()
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 15
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	profile := strings.ToLower(strings.TrimSpace(cfg.Profile))
	if profile == "" {
		profile = "mixed"
	}
	steps := stepsForProfile(profile)
	if len(steps) == 0 {
		return Result{}, fmt.Errorf("unknown profile: %s", cfg.Profile)
	}

	client := common.NewProductClient(cfg.BaseURL, &http.Client{Timeout: 5 * time.Second})

	runCtx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var total, failures, s2xx, s4xx, s5xx atomic.Int64
	jobs := make(chan step, cfg.Concurrency*2)

	g, gctx := errgroup.WithContext(runCtx)
	for i := 0; i < cfg.Concurrency; i++ {
		g.Go(func() error {
			for s := range jobs {
				status, err := client.Do(gctx, s.method, s.path, s.body, s.headers)
				var apiErr *common.APIError
				if err != nil && !errors.As(err, &apiErr) {
					if gctx.Err() != nil {
						continue
					}
					failures.Add(1)
					observability.RecordLoadgenRequest(gctx, "transport_error", profile)
					continue
				}
				total.Add(1)
				class := statusClass(status)
				observability.RecordLoadgenRequest(gctx, class, profile)
				switch class {
				case "2xx":
					s2xx.Add(1)
				case "4xx":
					s4xx.Add(1)
				case "5xx":
					s5xx.Add(1)
				}
			}
			return nil
		})
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	ticker := time.NewTicker(time.Second / time.Duration(cfg.RPS))
	defer ticker.Stop()
	i := 0
produce:
	for {
		select {
		case <-runCtx.Done():
			break produce
		case <-ticker.C:
			s := steps[i%len(steps)](rng)
			i++
			select {
			case jobs <- s:
			case <-runCtx.Done():
				break produce
			}
		}
	}
	close(jobs)
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	return Result{
		TotalRequests: total.Load(),
		Failures:      failures.Load(),
		Status2xx:     s2xx.Load(),
		Status4xx:     s4xx.Load(),
		Status5xx:     s5xx.Load(),
	}, nil
}

func statusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "other"
	}
}

func stepsForProfile(profile string) []stepFunc {
	switch profile {
	case "mixed":
		return []stepFunc{listProducts, getProduct, createProduct, countProducts, updateProduct, getProduct, health}
	case "read-heavy":
		return []stepFunc{listProducts, getProduct, getProduct, countProducts, health}
	case "error-heavy":
		return []stepFunc{missingProduct, invalidPrice, blankName, malformedID, listProducts}
	default:
		return nil
	}
}

func randomID(r *rand.Rand) string {
	id := r.Intn(8) + 1
	return strconv.Itoa(id)
}

// randomPrice returns a two-decimal price in [1, upper).
func randomPrice(r *rand.Rand, upper int) float64 {
	span := (upper - 1) * 100
	cents := r.Intn(span) + 100
	return float64(cents) / 100
}

func listProducts(*rand.Rand) step { return step{method: http.MethodGet, path: "/products"} }

func countProducts(*rand.Rand) step { return step{method: http.MethodGet, path: "/products/count"} }

func health(*rand.Rand) step { return step{method: http.MethodGet, path: "/health"} }

func getProduct(r *rand.Rand) step {
	return step{method: http.MethodGet, path: "/products/" + randomID(r)}
}

func createProduct(r *rand.Rand) step {
	return step{
		method: http.MethodPost,
		path:   "/products",
		body: common.ProductPayload{
			Name:        fmt.Sprintf("Loadgen Item %04d", r.Intn(10000)),
			Description: "generated by loadgen",
			Price:       randomPrice(r, 1000),
			Quantity:    r.Intn(50),
		},
		headers: map[string]string{"Idempotency-Key": uuid.NewString()},
	}
}

func updateProduct(r *rand.Rand) step {
	return step{
		method: http.MethodPut,
		path:   "/products/" + randomID(r),
		body: common.ProductPayload{
			Name:        "Loadgen Update",
			Description: "updated by loadgen",
			Price:       randomPrice(r, 100),
			Quantity:    r.Intn(50),
		},
	}
}

func missingProduct(r *rand.Rand) step {
	return step{method: http.MethodGet, path: "/products/" + strconv.Itoa(r.Intn(1000)+100000)}
}

func invalidPrice(*rand.Rand) step {
	return step{method: http.MethodPost, path: "/products", body: common.ProductPayload{Name: "Broken", Description: "zero price"}}
}

func blankName(*rand.Rand) step {
	return step{method: http.MethodPost, path: "/products", body: common.ProductPayload{Name: " ", Description: "blank name", Price: 1}}
}

func malformedID(*rand.Rand) step { return step{method: http.MethodGet, path: "/products/not-a-number"} }
