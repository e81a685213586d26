package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "rekam/pkg/domain-errors"
)

func TestParseNIK(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{"sixteen digits", "1234567890123456", true},
		{"fifteen digits", "123456789012345", false},
		{"seventeen digits", "12345678901234567", false},
		{"trailing letter", "123456789012345a", false},
		{"leading space", " 234567890123456", false},
		{"empty", "", false},
		{"fullwidth digits", "１２３４５６７８９０１２３４５６", false},
		{"arabic-indic digits", "١٢٣٤٥٦٧٨٩٠١٢٣٤٥٦", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nik, err := ParseNIK(tt.input)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.input, nik.String())
				return
			}
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}
