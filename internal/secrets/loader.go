package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source describes where an API credential comes from.
type Source struct {
	// Name is used in error messages, e.g. "adzuna app key".
	Name string
	// Value is an inline secret from the config file.
	Value string
	// File points to a file holding the secret. Takes precedence over Env and Value.
	File string
	// Env names an environment variable holding the secret. Takes precedence over Value.
	Env string
}

// Load resolves the secret from File, then Env, then Value. The result is
// trimmed; an empty result is an error.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	if file := strings.TrimSpace(src.File); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	if env := strings.TrimSpace(src.Env); env != "" {
		if secret := strings.TrimSpace(os.Getenv(env)); secret != "" {
			return secret, nil
		}
	}

	secret := strings.TrimSpace(src.Value)
	if secret == "" {
		if src.Env != "" {
			return "", fmt.Errorf("%s is not configured (set %s)", name, src.Env)
		}
		return "", fmt.Errorf("%s is not configured", name)
	}

	return secret, nil
}
