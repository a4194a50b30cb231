package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/agenthands/resolve/internal/config"
	"github.com/agenthands/resolve/internal/core"
	"github.com/agenthands/resolve/internal/ingest"
	"github.com/agenthands/resolve/internal/store"
)

func main() {
	cfgPath := flag.String("config", "config/config.toml", "path to the TOML configuration file")
	out := flag.String("out", "", "write the full result as JSON to this file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	cfg, err := config.LoadOrDefault(*cfgPath)
	if err != nil {
		log.Fatalf("Invalid configuration %s: %v", *cfgPath, err)
	}
	cfg.ApplyEnv()

	src, err := ingest.New(cfg.Ingest)
	if err != nil {
		log.Fatalf("Failed to build record source: %v", err)
	}

	pipeline, err := core.NewPipeline(cfg)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()
	result, err := pipeline.Run(ctx, src)
	if err != nil {
		log.Fatalf("Resolution run failed: %v", err)
	}

	for _, w := range result.Warnings {
		log.Printf("Warning: %s", w)
	}
	for _, rej := range result.Rejections {
		log.Printf("Rejected record at index %d: %s", rej.Index, rej.Reason)
	}
	log.Printf("Resolved %d records into %d clusters (%d masters, %d unclustered, mode %s)",
		len(result.Records), len(result.Clusters), len(result.Masters), len(result.Unclustered), result.Mode)

	st, err := store.FromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to open result store: %v", err)
	}
	defer st.Close(ctx)

	if err := st.Persist(ctx, result); err != nil {
		log.Fatalf("Failed to persist result: %v", err)
	}

	if *out != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Fatalf("Failed to encode result: %v", err)
		}
		if err := os.WriteFile(*out, data, 0644); err != nil {
			log.Fatalf("Failed to write %s: %v", *out, err)
		}
		log.Printf("Wrote result to %s", *out)
	}
}
