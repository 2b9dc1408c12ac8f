package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override. Keys are section and field
// names in upper snake case, e.g. VOCALRANGE_EXTRACT_CHUNK_SECONDS or
// VOCALRANGE_LOG_LEVEL.
const EnvPrefix = "vocalrange"

// ApplyEnv overwrites cfg with values set in the environment. Unset
// variables leave the file values alone.
func ApplyEnv(cfg *FileConfig) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	return nil
}
