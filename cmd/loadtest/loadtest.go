// Command loadtest posts messages concurrently against a running API and
// checks that every created message comes back from the list endpoint.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/voyas/api/internal/logger"
	"github.com/voyas/api/internal/model"
)

type options struct {
	baseURL     string
	count       int
	concurrency int
	rps         float64
}

func main() {
	var opts options
	flag.StringVar(&opts.baseURL, "url", "http://localhost:3000/api/v1", "API base URL including the prefix")
	flag.IntVar(&opts.count, "n", 100, "number of messages to create")
	flag.IntVar(&opts.concurrency, "c", 8, "concurrent requests")
	flag.Float64Var(&opts.rps, "rps", 0, "request rate cap, 0 for unlimited")
	flag.Parse()

	log := logger.New(os.Stderr, "info", false)

	if err := run(context.Background(), log, http.DefaultClient, opts); err != nil {
		log.Fatal().Err(err).Msg("loadtest failed")
	}
}

func run(ctx context.Context, log zerolog.Logger, client *http.Client, opts options) error {
	endpoint := strings.TrimRight(opts.baseURL, "/") + "/messages"

	limit := rate.Inf
	if opts.rps > 0 {
		limit = rate.Limit(opts.rps)
	}
	pacer := rate.NewLimiter(limit, 1)

	var (
		mu      sync.Mutex
		created = make(map[uuid.UUID]string, opts.count)
	)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.concurrency, 1))
	for i := range opts.count {
		g.Go(func() error {
			if err := pacer.Wait(gctx); err != nil {
				return err
			}
			text := fmt.Sprintf("loadtest %d", i)
			msg, err := create(gctx, client, endpoint, text)
			if err != nil {
				return fmt.Errorf("message %d: %w", i, err)
			}
			mu.Lock()
			created[msg.ID] = text
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	log.Info().
		Int("created", len(created)).
		Dur("elapsed", elapsed).
		Float64("rps", float64(len(created))/elapsed.Seconds()).
		Msg("create phase done")

	listed, err := list(ctx, client, endpoint)
	if err != nil {
		return err
	}
	seen := make(map[uuid.UUID]bool, len(listed))
	for _, m := range listed {
		seen[m.ID] = true
		if want, ok := created[m.ID]; ok && want != m.Text {
			return fmt.Errorf("message %s: text %q, want %q", m.ID, m.Text, want)
		}
	}
	for id := range created {
		if !seen[id] {
			return fmt.Errorf("message %s missing from list", id)
		}
	}

	log.Info().Int("listed", len(listed)).Msg("all created messages listed")
	return nil
}

func create(ctx context.Context, client *http.Client, endpoint, text string) (model.Message, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return model.Message{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return model.Message{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return model.Message{}, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusCreated {
		return model.Message{}, fmt.Errorf("POST %s: status %d", endpoint, res.StatusCode)
	}

	var msg model.Message
	if err := json.NewDecoder(res.Body).Decode(&msg); err != nil {
		return model.Message{}, err
	}
	return msg, nil
}

func list(ctx context.Context, client *http.Client, endpoint string) ([]model.Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", endpoint, res.StatusCode)
	}

	var msgs []model.Message
	if err := json.NewDecoder(res.Body).Decode(&msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}
