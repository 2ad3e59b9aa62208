package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Level
		wantErr bool
	}{
		{name: "known level", raw: "admin", want: LevelAdmin},
		{name: "uppercase input", raw: "ADMIN", want: LevelAdmin},
		{name: "surrounding whitespace", raw: "  guest \n", want: LevelGuest},
		{name: "unknown level", raw: "root", wantErr: true},
		{name: "empty string", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := ParseLevel(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPermissionLevel)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, level)
			}
		})
	}
}

func TestParseLevels(t *testing.T) {
	t.Run("empty list is rejected", func(t *testing.T) {
		_, err := ParseLevels(nil)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("one invalid level poisons the list", func(t *testing.T) {
		_, err := ParseLevels([]string{"admin", "root"})
		assert.ErrorIs(t, err, ErrInvalidPermissionLevel)
	})

	t.Run("valid list", func(t *testing.T) {
		levels, err := ParseLevels([]string{"Admin", "user"})
		require.NoError(t, err)
		assert.Equal(t, []Level{LevelAdmin, LevelUser}, levels)
	})
}

func TestValidName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "simple name", input: "Maria Silva", want: true},
		{name: "single word", input: "Maria", want: true},
		{name: "digits rejected", input: "Maria 2", want: false},
		{name: "punctuation rejected", input: "Maria-Silva", want: false},
		{name: "empty rejected", input: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidName(tt.input))
		})
	}
}

func TestFormatName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lowercase words", input: "maria silva", want: "Maria Silva"},
		{name: "mixed case", input: "mARIA sILVA", want: "Maria Silva"},
		{name: "extra spacing collapsed", input: "  maria   silva ", want: "Maria Silva"},
		{name: "single word", input: "maria", want: "Maria"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatName(tt.input))
		})
	}
}

func TestLevels(t *testing.T) {
	levels := Levels()
	assert.Len(t, levels, 5)
	assert.Contains(t, levels, LevelSuperadmin)
	assert.Contains(t, levels, LevelGuest)
}
