// Command engine-run drives one supervised-recursion task end to end: it
// resolves configuration, executes the fan-out program through
// engine.Entry, persists the resulting proof artifact, prints a single
// indented JSON result object to stdout, and exits with one of four codes (0 ok, 1
// orchestration failed, 2 tool missing in strict mode, 5
// asleep/force-sleep).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/kestrel-run/recursion-engine/adapter"
	"github.com/kestrel-run/recursion-engine/ai"
	"github.com/kestrel-run/recursion-engine/core"
	"github.com/kestrel-run/recursion-engine/engine"
	"github.com/kestrel-run/recursion-engine/registry"
	"github.com/kestrel-run/recursion-engine/resilience"
	"github.com/kestrel-run/recursion-engine/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	os.Exit(run())
}

// run does the actual work and returns the process exit code rather than
// calling os.Exit itself, so deferred cleanup (telemetry shutdown, Redis
// connection close) always runs before the process exits.
func run() int {
	task := flag.String("task", "", "the task description handed to the depth-1 orchestrator agent")
	strict := flag.Bool("strict", false, "fail instead of simulating when no host capability is wired")
	proofPath := flag.String("proof-path", "", "override the proof artifact path (defaults to config)")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall run timeout")
	serve := flag.String("serve", "", "optional addr (e.g. :8090) to expose the last proof artifact over HTTP instead of exiting after one run")
	flag.Parse()

	if *task == "" {
		log.Fatal("engine-run: -task is required")
	}

	opts := []core.Option{core.WithStrictMode(*strict)}
	if *proofPath != "" {
		opts = append(opts, core.WithProofPath(*proofPath))
	}

	cfg, err := core.NewConfig(opts...)
	if err != nil {
		log.Fatalf("engine-run: resolving configuration: %v", err)
	}
	logger := cfg.Logger()

	entry := &engine.Entry{Logger: logger, Telemetry: &core.NoOpTelemetry{}}
	if prompts, err := adapter.NewPromptBuilder(cfg.Prompt.TemplateDir); err == nil {
		entry.Prompts = prompts
	} else {
		logger.Warn("engine-run: falling back to built-in prompt templates", map[string]interface{}{"error": err.Error()})
		entry.Prompts, _ = adapter.NewPromptBuilder("")
	}

	var breakerMetrics resilience.MetricsCollector
	if cfg.Telemetry.Enabled {
		provider, err := telemetry.NewOTelProvider(cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			logger.Warn("engine-run: telemetry disabled, provider construction failed", map[string]interface{}{"error": err.Error()})
		} else {
			entry.Telemetry = provider
			core.SetMetricsRegistry(provider)
			breakerMetrics = &adapter.TelemetryMetricsCollector{Telemetry: provider}
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := provider.Shutdown(shutdownCtx); err != nil {
					logger.Warn("engine-run: telemetry shutdown failed", map[string]interface{}{"error": err.Error()})
				}
			}()
		}
	}

	if cfg.Redis.Enabled {
		client, err := core.NewRedisClient(core.RedisClientOptions{RedisURL: cfg.Redis.URL, Namespace: cfg.Redis.Namespace, Logger: logger})
		if err != nil {
			logger.Warn("engine-run: redis audit store disabled, connection failed", map[string]interface{}{"error": err.Error()})
		} else {
			defer client.Close()
			entry.Store = registry.NewRedisStore(client, logger)
		}
	}

	if cfg.AI.Enabled && cfg.AI.APIKey != "" {
		client := ai.NewOpenAIClient(cfg.AI.APIKey, logger)
		breakerCfg := resilience.DefaultConfig()
		if breakerMetrics != nil {
			breakerCfg.Metrics = breakerMetrics
		}
		breaker, err := resilience.NewCircuitBreaker(breakerCfg)
		if err != nil {
			log.Fatalf("engine-run: constructing circuit breaker: %v", err)
		}
		entry.Adapter = adapter.NewLLMAdapter(client, entry.Prompts, breaker, logger)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result := entry.Run(ctx, *task, cfg)

	if err := engine.WriteProofArtifact(cfg.ProofPath, result.Artifact); err != nil {
		logger.Error("engine-run: failed to persist proof artifact", map[string]interface{}{"error": err.Error()})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "engine-run: failed to encode result: %v\n", err)
	}

	if *serve != "" {
		serveProofArtifact(*serve, cfg.ProofPath, logger)
		return 0
	}

	return result.ExitCode
}

// serveProofArtifact exposes the last persisted proof artifact at GET /proof
// so a host that prefers polling over reading the file directly can do so.
// The file on disk remains the canonical artifact; this is a read-only
// convenience view and never replaces it. Blocks until the server errors
// or the process is killed.
func serveProofArtifact(addr, proofPath string, logger core.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/proof", func(w http.ResponseWriter, r *http.Request) {
		artifact, err := engine.ReadProofArtifact(proofPath)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(artifact)
	})

	handler := otelhttp.NewHandler(mux, "engine-run.serve")
	logger.Info("engine-run: serving last proof artifact", map[string]interface{}{"addr": addr, "path": "/proof"})
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("engine-run: serve failed: %v", err)
	}
}
