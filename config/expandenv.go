package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

// ExpandEnvStrict replaces $VAR and ${VAR} in a configured value with the
// variable's value, and $$ with a literal $. Every referenced variable
// must be set: the error wraps ErrMissingEnv and lists all missing names,
// so one failed resolution reports the whole fix.
func ExpandEnvStrict(s string) (string, error) {
	if !strings.Contains(s, "$") {
		return s, nil
	}

	var missing []string
	out := os.Expand(s, func(name string) string {
		if name == "$" {
			return "$"
		}
		v, ok := os.LookupEnv(name)
		if !ok {
			missing = append(missing, name)
		}
		return v
	})
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(slices.Compact(missing), ", "))
	}
	return out, nil
}
