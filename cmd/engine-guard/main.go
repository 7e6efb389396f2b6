// Command engine-guard checks a previously persisted proof artifact
// before letting a privileged action proceed: freshness, run success,
// and (when the agentic contract is required) runtime mode and
// engagement-flag completeness. It exits 0 when the guard is satisfied
// and 5 otherwise, printing a single JSON verdict either way.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/kestrel-run/recursion-engine/core"
	"github.com/kestrel-run/recursion-engine/engine"
)

func main() {
	path := flag.String("proof-path", "", "path to the proof artifact (defaults to config)")
	agentic := flag.Bool("agentic", false, "require the agentic contract (runtime=real plus full engagement)")
	flag.Parse()

	cfg, err := core.NewConfig()
	if err != nil {
		log.Fatalf("engine-guard: resolving configuration: %v", err)
	}

	proofPath := cfg.ProofPath
	if *path != "" {
		proofPath = *path
	}

	agenticRequired := *agentic || cfg.EffectiveContractMode() == "agentic"

	verdict := engine.CheckGuard(proofPath, cfg.ProofMaxAgeMin, agenticRequired)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if verdict.OK {
		if err := enc.Encode(map[string]interface{}{"ok": true, "artifact": verdict.Artifact}); err != nil {
			fmt.Fprintf(os.Stderr, "engine-guard: failed to encode verdict: %v\n", err)
		}
		os.Exit(0)
	}

	if err := enc.Encode(map[string]interface{}{"ok": false, "error": verdict.Error}); err != nil {
		fmt.Fprintf(os.Stderr, "engine-guard: failed to encode verdict: %v\n", err)
	}
	os.Exit(5)
}
