package manifest

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "DISPATCHGEN_"

// EnvLoader reads target overrides from environment variables.
type EnvLoader struct {
	lookup  func(string) (string, bool)
	mapping map[string]string // Env var -> target field
}

// NewEnvLoader creates a loader reading the process environment.
func NewEnvLoader() *EnvLoader {
	return NewEnvLoaderWithLookup(os.LookupEnv)
}

// NewEnvLoaderWithLookup creates a loader reading variables through lookup.
func NewEnvLoaderWithLookup(lookup func(string) (string, bool)) *EnvLoader {
	return &EnvLoader{
		lookup:  lookup,
		mapping: defaultEnvMapping(),
	}
}

func defaultEnvMapping() map[string]string {
	return map[string]string{
		EnvPrefix + "TABLE_SIZE":  "table_size",
		EnvPrefix + "PREFIX":      "prefix",
		EnvPrefix + "TARGET":      "target",
		EnvPrefix + "ENUM_PREFIX": "enum_prefix",
		EnvPrefix + "PACKAGE":     "package",
	}
}

// Load returns a Target holding the set variables. Empty values count as
// unset.
func (l *EnvLoader) Load() (Target, error) {
	var t Target
	for env, field := range l.mapping {
		val, ok := l.lookup(env)
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		if val == "" {
			continue
		}
		switch field {
		case "table_size":
			n, err := strconv.ParseUint(val, 10, 32)
			if err != nil || n == 0 {
				return Target{}, fmt.Errorf("%s: expected a positive integer, got %q", env, val)
			}
			t.TableSize = uint32(n)
		case "prefix":
			t.Prefix = val
		case "target":
			t.Target = val
		case "enum_prefix":
			t.EnumPrefix = val
		case "package":
			t.Package = val
		}
	}
	if err := ValidateTarget(t); err != nil {
		return Target{}, fmt.Errorf("environment: %w", err)
	}
	return t, nil
}
