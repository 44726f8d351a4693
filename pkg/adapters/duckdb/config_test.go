package duckdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		want    *Params
		wantErr bool
	}{
		{
			name:  "nil params",
			input: nil,
			want:  &Params{},
		},
		{
			name: "extensions and settings",
			input: map[string]any{
				"extensions": []any{"httpfs", "json"},
				"settings":   map[string]any{"threads": 4, "memory_limit": "2GB"},
			},
			want: &Params{
				Extensions: []string{"httpfs", "json"},
				Settings:   map[string]string{"threads": "4", "memory_limit": "2GB"},
			},
		},
		{
			name: "secret with list scope",
			input: map[string]any{
				"secrets": []any{
					map[string]any{
						"type":     "s3",
						"provider": "credential_chain",
						"scope":    []any{"s3://raw", "s3://curated"},
						"use_ssl":  false,
					},
				},
			},
			want: &Params{
				Secrets: []SecretConfig{{
					Type:     "s3",
					Provider: "credential_chain",
					Scope:    []any{"s3://raw", "s3://curated"},
					UseSSL:   boolPtr(false),
				}},
			},
		},
		{
			name:    "unknown key",
			input:   map[string]any{"extension": []any{"httpfs"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParams_Statements(t *testing.T) {
	p := &Params{
		Extensions: []string{"httpfs"},
		Settings:   map[string]string{"threads": "4", "memory_limit": "2GB"},
		Secrets: []SecretConfig{{
			Type:   "s3",
			Region: "eu-west-1",
			KeyID:  "key",
			Secret: "it's",
			Scope:  "s3://raw",
			UseSSL: boolPtr(true),
		}},
	}

	stmts, err := p.statements()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"INSTALL httpfs",
		"LOAD httpfs",
		"SET memory_limit = '2GB'",
		"SET threads = '4'",
		"CREATE OR REPLACE SECRET leapqa_secret_0 (TYPE s3, REGION 'eu-west-1', KEY_ID 'key', SECRET 'it''s', USE_SSL true, SCOPE 's3://raw')",
	}, stmts)
}

func TestParams_StatementsErrors(t *testing.T) {
	_, err := (&Params{Secrets: []SecretConfig{{Provider: "config"}}}).statements()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type is required")

	_, err = (&Params{Secrets: []SecretConfig{{Type: "s3", Scope: 42}}}).statements()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scope")
}

func boolPtr(b bool) *bool {
	return &b
}
