// Package flagx holds small helpers for the layered config loaders:
// pre-scanning argv for the config-file flag and reading typed
// environment variables.
package flagx

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

// ConfigEnvVar names the environment variable consulted when no
// -c/-config flag was given.
const ConfigEnvVar = "CONFIG"

// FilterArgs keeps only the allowed flags from args, together with
// their values. Both "-c conf.json" and "-config=conf.json" forms are
// recognised; a following token that starts with "-" is not taken as
// a value.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if _, keep := allowed[name]; keep {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, keep := allowed[arg]; !keep {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// JsonConfigFlags returns the config file path given with -c or -config.
// Other flags are ignored so callers can parse their own set afterwards.
// When neither flag is present the CONFIG environment variable is used.
func JsonConfigFlags() string {
	var config string

	args := FilterArgs(os.Args[1:], []string{"-c", "-config"})

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(args)

	if config == "" {
		config = os.Getenv(ConfigEnvVar)
	}

	return config
}

// EnvString sets *dst when key is present and non-empty.
func EnvString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// EnvInt64 sets *dst when key holds a valid integer.
func EnvInt64(key string, dst *int64) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

// EnvDuration sets *dst when key holds a time.ParseDuration string.
func EnvDuration(key string, dst *time.Duration) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

// EnvFlag reports whether key is set to "1" or a strconv true value.
func EnvFlag(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "1" {
		return true
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
