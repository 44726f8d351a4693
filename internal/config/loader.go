package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/leapqa/pkg/core"
)

// EnvPrefix prefixes environment variables read by Load. A double
// underscore separates nested keys: LEAPQA_TARGET__PASSWORD sets
// target.password.
const EnvPrefix = "LEAPQA_"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// Options controls Load.
type Options struct {
	// File is an explicit config path. Empty searches upward from Dir.
	File string
	// Dir is the directory to search from. Empty uses the working directory.
	Dir string
	// Environment selects an environments entry, overriding the configured one.
	Environment string
	// Flags are applied last. Only flags that were set override values.
	Flags *pflag.FlagSet
}

// Load loads configuration.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]any{
		"state_path":  DefaultStateFile,
		"environment": DefaultEnv,
		"verbose":     false,
		"output":      DefaultOutput,
		"threads":     DefaultThreads,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	dir := opts.Dir
	if dir == "" {
		dir, _ = os.Getwd()
	}
	cfgFile := opts.File
	if cfgFile == "" {
		if root := FindProjectRoot(dir); root != "" {
			cfgFile = findConfigFile(root)
		}
	}

	projectRoot := dir
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
		if abs, err := filepath.Abs(cfgFile); err == nil {
			projectRoot = filepath.Dir(abs)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if opts.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			switch key {
			case "state":
				key = "state_path"
			case "env":
				key = "environment"
			}
			return key, posflag.FlagVal(opts.Flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectRoot = projectRoot

	envName := cfg.Environment
	if opts.Environment != "" {
		envName = opts.Environment
	}
	if envCfg, ok := cfg.Environments[envName]; ok {
		cfg.Target = MergeTargetConfig(cfg.Target, envCfg.Target)
		if envCfg.StatePath != "" {
			cfg.StatePath = envCfg.StatePath
		}
	} else if opts.Environment != "" {
		return nil, fmt.Errorf("unknown environment %q", opts.Environment)
	}
	cfg.Environment = envName

	if cfg.Target == nil {
		cfg.Target = &core.TargetConfig{Type: "duckdb"}
	}
	ApplyTargetDefaults(cfg.Target)
	expandTargetEnvVars(cfg.Target)

	cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, projectRoot)
	if cfg.Target.Type == "duckdb" || cfg.Target.Type == "sqlite" {
		if cfg.Target.Database != ":memory:" {
			cfg.Target.Database = resolvePathRelativeTo(cfg.Target.Database, projectRoot)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FindProjectRoot walks up from startDir to the nearest directory holding a
// config file. Returns empty string if not found.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for range maxUpwardSearchLevels {
		if findConfigFile(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func findConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ApplyTargetDefaults applies defaults based on the target type.
func ApplyTargetDefaults(t *core.TargetConfig) {
	if t == nil {
		return
	}
	switch t.Type {
	case "postgres":
		if t.Port == 0 {
			t.Port = 5432
		}
		if t.Schema == "" {
			t.Schema = "public"
		}
	case "duckdb":
		if t.Schema == "" {
			t.Schema = "main"
		}
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns. Unset variables are left as is.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}

func expandTargetEnvVars(t *core.TargetConfig) {
	t.Password = expandEnvVars(t.Password)
	t.User = expandEnvVars(t.User)
	t.Host = expandEnvVars(t.Host)
	t.Database = expandEnvVars(t.Database)
	for k, v := range t.Options {
		t.Options[k] = expandEnvVars(v)
	}
}

// MergeTargetConfig merges two target configs, with override taking precedence.
func MergeTargetConfig(base, override *core.TargetConfig) *core.TargetConfig {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	merged := *base
	merged.Options = make(map[string]string, len(base.Options)+len(override.Options))
	merged.Params = make(map[string]any, len(base.Params)+len(override.Params))
	for k, v := range base.Options {
		merged.Options[k] = v
	}
	for k, v := range base.Params {
		merged.Params[k] = v
	}

	if override.Type != "" {
		merged.Type = override.Type
	}
	if override.Database != "" {
		merged.Database = override.Database
	}
	if override.Host != "" {
		merged.Host = override.Host
	}
	if override.Port != 0 {
		merged.Port = override.Port
	}
	if override.User != "" {
		merged.User = override.User
	}
	if override.Password != "" {
		merged.Password = override.Password
	}
	if override.Schema != "" {
		merged.Schema = override.Schema
	}
	for k, v := range override.Options {
		merged.Options[k] = v
	}
	for k, v := range override.Params {
		merged.Params[k] = v
	}
	return &merged
}
