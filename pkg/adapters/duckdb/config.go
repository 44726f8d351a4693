package duckdb

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Params holds DuckDB-specific target configuration, decoded from
// adapter.Config.Params.
type Params struct {
	// Extensions to install and load before reading (e.g. "httpfs", "json").
	Extensions []string `mapstructure:"extensions"`

	// Secrets for reading from cloud storage.
	Secrets []SecretConfig `mapstructure:"secrets"`

	// Settings applied with SET at connect time (e.g. memory_limit, threads).
	Settings map[string]string `mapstructure:"settings"`
}

// SecretConfig defines a DuckDB secret.
type SecretConfig struct {
	Type     string `mapstructure:"type"`
	Provider string `mapstructure:"provider"`
	Region   string `mapstructure:"region,omitempty"`
	// Scope is a single path prefix or a list of them.
	Scope    any    `mapstructure:"scope,omitempty"`
	KeyID    string `mapstructure:"key_id,omitempty"`
	Secret   string `mapstructure:"secret,omitempty"`
	Endpoint string `mapstructure:"endpoint,omitempty"`
	URLStyle string `mapstructure:"url_style,omitempty"`
	UseSSL   *bool  `mapstructure:"use_ssl,omitempty"`
}

func parseParams(raw map[string]any) (*Params, error) {
	p := &Params{}
	if len(raw) == 0 {
		return p, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           p,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid duckdb params: %w", err)
	}
	return p, nil
}

// statements returns the SQL run after connecting: extensions first, then
// settings in key order, then secrets.
func (p *Params) statements() ([]string, error) {
	var stmts []string
	for _, ext := range p.Extensions {
		stmts = append(stmts, "INSTALL "+ext, "LOAD "+ext)
	}

	keys := make([]string, 0, len(p.Settings))
	for k := range p.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		stmts = append(stmts, fmt.Sprintf("SET %s = %s", k, quote(p.Settings[k])))
	}

	for i, s := range p.Secrets {
		stmt, err := s.statement(i)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func (s SecretConfig) statement(i int) (string, error) {
	if s.Type == "" {
		return "", fmt.Errorf("secret %d: type is required", i)
	}
	opts := []string{"TYPE " + s.Type}
	add := func(key, val string) {
		if val != "" {
			opts = append(opts, key+" "+quote(val))
		}
	}
	if s.Provider != "" {
		opts = append(opts, "PROVIDER "+s.Provider)
	}
	add("REGION", s.Region)
	add("KEY_ID", s.KeyID)
	add("SECRET", s.Secret)
	add("ENDPOINT", s.Endpoint)
	add("URL_STYLE", s.URLStyle)
	if s.UseSSL != nil {
		opts = append(opts, fmt.Sprintf("USE_SSL %t", *s.UseSSL))
	}

	switch scope := s.Scope.(type) {
	case nil:
	case string:
		add("SCOPE", scope)
	case []any:
		for _, v := range scope {
			add("SCOPE", fmt.Sprint(v))
		}
	default:
		return "", fmt.Errorf("secret %d: scope must be a string or a list", i)
	}
	return fmt.Sprintf("CREATE OR REPLACE SECRET leapqa_secret_%d (%s)", i, strings.Join(opts, ", ")), nil
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
