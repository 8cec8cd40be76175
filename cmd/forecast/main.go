// Command forecast runs one Monte Carlo forecast for a coin and prints it as json.
//
//	forecast -coin ethereum -simulations 5000 -steps 30 -seed 42 -chart eth.png
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/guregu/null/v6"

	cg "mc.forecast/api/coingecko"
	"mc.forecast/charts"
	"mc.forecast/config"
	m "mc.forecast/models"
	r "mc.forecast/repos"
	"mc.forecast/service"
)

type options struct {
	coin        string
	simulations int
	steps       int
	seed        null.Int
	chartPath   string
	useStore    bool
	verbose     bool
}

func main() {
	opts := parseFlags()

	if !opts.verbose {
		log.SetOutput(io.Discard)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := run(ctx, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "forecast failed: %v\n", err)
		os.Exit(1)
	}

	os.Stdout.Write(out)
}

func parseFlags() options {
	var opts options
	var seed int64

	flag.StringVar(&opts.coin, "coin", "bitcoin", "coingecko coin id")
	flag.IntVar(&opts.simulations, "simulations", 1000, "number of simulated paths")
	flag.IntVar(&opts.steps, "steps", 7, "points per path, the first one is today")
	flag.Int64Var(&seed, "seed", 0, "seed for reproducible runs, random when not given")
	flag.StringVar(&opts.chartPath, "chart", "", "also write the bands as a png chart to this path")
	flag.BoolVar(&opts.useStore, "store", false, "read history through postgres and record the run (needs DATABASE_URL)")
	flag.BoolVar(&opts.verbose, "v", false, "log progress to stderr")
	flag.Parse()

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			opts.seed = null.IntFrom(seed)
		}
	})

	return opts
}

// run returns the complete output, nothing is printed unless every step succeeded
func run(ctx context.Context, opts options) ([]byte, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	client := cg.GetClient(cfg.MarketData)
	sc := &service.ServiceContext{
		Context:    ctx,
		MarketData: &client,
		Settings:   cfg,
	}

	if opts.useStore {
		if cfg.Database.URL == "" {
			return nil, fmt.Errorf("-store needs a database url (DATABASE_URL)")
		}

		pg, err := r.GetPostgresConnection(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		defer pg.Close()

		if err := pg.Migrate(ctx); err != nil {
			return nil, err
		}
		sc.Store = pg
	}

	res, err := sc.RunForecast(m.ForecastRequest{
		Coin:        opts.coin,
		Simulations: opts.simulations,
		Steps:       opts.steps,
		Seed:        opts.seed,
	})
	if err != nil {
		return nil, err
	}

	if opts.chartPath != "" {
		img, err := charts.RenderForecastChart(opts.coin, res.Result)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(opts.chartPath, img, 0o644); err != nil {
			return nil, fmt.Errorf("error writing chart: %w", err)
		}
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("error marshaling forecast: %w", err)
	}
	return append(out, '\n'), nil
}
