package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"

	"payment-gateway/internal/config"
	"payment-gateway/internal/observability"
)

// Check describes one diagnostic check.
type Check struct {
	Name     string
	Func     func(ctx context.Context) error
	Error    error
	Duration time.Duration
}

func main() {
	logger := observability.SetupLogger("development")
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	checks := []Check{
		{Name: "Payment Gateway", Func: func(ctx context.Context) error {
			return checkHTTPHealth(ctx, "localhost"+cfg.Server.Port+"/health")
		}},
	}
	if cfg.Postgres.DSN != "" {
		checks = append(checks, Check{Name: "PostgreSQL", Func: func(ctx context.Context) error {
			return checkPostgres(ctx, cfg.Postgres.DSN)
		}})
	}
	if cfg.Redis.Addr != "" {
		checks = append(checks, Check{Name: "Redis", Func: func(ctx context.Context) error {
			return checkRedis(ctx, cfg.Redis.Addr)
		}})
	}
	if cfg.Kafka.BootstrapServers != "" {
		checks = append(checks, Check{Name: "Kafka Cluster", Func: func(ctx context.Context) error {
			return checkKafka(ctx, strings.Split(cfg.Kafka.BootstrapServers, ","))
		}})
	}

	var wg sync.WaitGroup
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	fmt.Println("Running gateway diagnostics...")

	for i := range checks {
		wg.Add(1)
		go func(c *Check) {
			defer wg.Done()
			start := time.Now()
			c.Error = c.Func(ctx)
			c.Duration = time.Since(start)
		}(&checks[i])
	}

	wg.Wait()

	ok := color.New(color.FgGreen).SprintFunc()
	failed := color.New(color.FgRed).SprintFunc()

	fmt.Println("\n--- Diagnostics report ---")
	hasErrors := false
	for _, c := range checks {
		if c.Error == nil {
			fmt.Printf("[%s] %-20s (%v)\n", ok("OK"), c.Name, c.Duration.Round(time.Millisecond))
		} else {
			hasErrors = true
			fmt.Printf("[%s] %-20s (%v) - %v\n", failed("FAILED"), c.Name, c.Duration.Round(time.Millisecond), c.Error)
		}
	}

	if hasErrors {
		fmt.Println("\nDiagnostics found problems.")
		os.Exit(1)
	}
	fmt.Println("\nAll systems healthy!")
}

func checkHTTPHealth(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, "http") {
		url = "http://" + url
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return nil
}

func checkPostgres(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	return conn.Ping(ctx)
}

func checkRedis(ctx context.Context, addr string) error {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	return rdb.Ping(ctx).Err()
}

func checkKafka(ctx context.Context, brokers []string) error {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DialTimeout(5*time.Second),
	)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.Ping(ctx)
}
