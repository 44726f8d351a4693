package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNewInitCommand(t *testing.T) {
	tests := []struct {
		name     string
		setupDir func(t *testing.T, dir string)
		args     []string
		wantErr  string
		wantType string
	}{
		{
			name:     "init empty directory",
			wantType: "duckdb",
		},
		{
			name:     "postgres target",
			args:     []string{"--target", "postgres"},
			wantType: "postgres",
		},
		{
			name: "existing config without force",
			setupDir: func(_ *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "leapqa.yaml"), []byte("existing"), 0600)
			},
			wantErr: "already exists",
		},
		{
			name: "existing config with force",
			setupDir: func(_ *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "leapqa.yaml"), []byte("existing"), 0600)
			},
			args:     []string{"--force"},
			wantType: "duckdb",
		},
		{
			name:    "unknown target",
			args:    []string{"--target", "oracle"},
			wantErr: "unsupported target",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.setupDir != nil {
				tt.setupDir(t, dir)
			}

			cmd := NewInitCommand()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetErr(&out)
			cmd.SetArgs(append([]string{dir}, tt.args...))

			err := cmd.Execute()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out.String(), "Next steps")

			body, err := os.ReadFile(filepath.Join(dir, "leapqa.yaml"))
			require.NoError(t, err)
			assert.Contains(t, string(body), "# LeapQA project configuration.")

			var doc struct {
				Target struct {
					Type string `yaml:"type"`
				} `yaml:"target"`
				Schemas []struct {
					Name      string `yaml:"name"`
					Partition struct {
						Start string `yaml:"start"`
					} `yaml:"partition"`
				} `yaml:"schemas"`
			}
			require.NoError(t, yaml.Unmarshal(body, &doc))
			assert.Equal(t, tt.wantType, doc.Target.Type)
			require.Len(t, doc.Schemas, 1)
			assert.Equal(t, "orders", doc.Schemas[0].Name)
			assert.Equal(t, "2024-01-01", doc.Schemas[0].Partition.Start)
		})
	}
}
