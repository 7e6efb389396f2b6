package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/kestrel-run/recursion-engine/core"
)

const supervisorSecretEnv = "SUPERVISOR_SECRET"

// minSecretBytes is the minimum decoded length the engine accepts from
// SUPERVISOR_SECRET. Anything shorter is treated as absent.
const minSecretBytes = 32

// LoadSupervisorSecret reads SUPERVISOR_SECRET as base64 and requires at
// least 32 decoded bytes. When the variable is absent or too short, it
// generates 32 random bytes instead and logs a single warning through
// logger (a nil logger is fine; no warning is then observable, but the
// ephemeral secret is still generated).
func LoadSupervisorSecret(logger core.Logger) ([]byte, error) {
	if raw := os.Getenv(supervisorSecretEnv); raw != "" {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err == nil && len(decoded) >= minSecretBytes {
			return decoded, nil
		}
	}

	secret := make([]byte, minSecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral supervisor secret: %w", err)
	}
	if logger != nil {
		logger.Warn("no valid SUPERVISOR_SECRET found; generated an ephemeral secret for this process", map[string]interface{}{
			"fingerprint": fingerprint(secret),
		})
	}
	return secret, nil
}

// fingerprint returns a short, non-reversible identifier for log lines so
// operators can tell two process secrets apart without ever logging the
// secret itself.
func fingerprint(secret []byte) string {
	sum, err := HashHex(hex.EncodeToString(secret))
	if err != nil || len(sum) < 8 {
		return "unknown"
	}
	return sum[:8]
}
