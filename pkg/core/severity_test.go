package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in     string
		want   Severity
		wantOK bool
	}{
		{"", SeverityError, true},
		{"error", SeverityError, true},
		{"Warning", SeverityWarning, true},
		{"warn", SeverityWarning, true},
		{"info", SeverityInfo, true},
		{"fatal", SeverityError, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseSeverity(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestSeverity_Blocking(t *testing.T) {
	assert.True(t, SeverityError.Blocking())
	assert.False(t, SeverityWarning.Blocking())
	assert.Equal(t, "warning", SeverityWarning.String())
	assert.Equal(t, "unknown", Severity(9).String())
}
