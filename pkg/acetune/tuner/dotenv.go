package tuner

import (
	"fmt"
	"maps"
	"slices"

	"github.com/joho/godotenv"
)

// Marshal renders the plan as dotenv text, one KEY="value" per line.
func Marshal(p Plan) (string, error) {
	return MarshalVars(p.Vars())
}

// MarshalVars renders vars as dotenv text, sorted by key.
func MarshalVars(vars map[string]string) (string, error) {
	return godotenv.Marshal(vars)
}

// WriteFile writes the plan as a dotenv file that can be sourced by the
// generation pipeline's launcher.
func WriteFile(p Plan, path string) error {
	return WriteVars(p.Vars(), path)
}

// WriteVars writes vars as a dotenv file.
func WriteVars(vars map[string]string, path string) error {
	if err := godotenv.Write(vars, path); err != nil {
		return fmt.Errorf("writing env file: %w", err)
	}
	return nil
}

// LoadFile reads a dotenv file into env. Keys env already defines are left
// alone, so explicit settings keep precedence over the file. It returns the
// keys it set, sorted. Load env files before Apply so the tuner treats
// their values as preset.
func LoadFile(env Environment, path string) ([]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading env file: %w", err)
	}

	var set []string
	for _, key := range slices.Sorted(maps.Keys(vars)) {
		if _, ok := env.Lookup(key); ok {
			continue
		}
		if err := env.Set(key, vars[key]); err != nil {
			return set, fmt.Errorf("setting %s: %w", key, err)
		}
		set = append(set, key)
	}
	return set, nil
}
