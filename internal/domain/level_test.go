package domain

import (
	"errors"
	"testing"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"A1", LevelA1, false},
		{"b2", LevelB2, false},
		{" c2 ", LevelC2, false},
		{"D1", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidLevel) {
				t.Errorf("ParseLevel(%q): expected ErrInvalidLevel, got %v", tt.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLevel(%q): unexpected error %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLevelTierMapping(t *testing.T) {
	t.Parallel()

	for i, level := range Levels() {
		if got := level.Tier(); got != i+1 {
			t.Errorf("%s.Tier() = %d, want %d", level, got, i+1)
		}
		if got := LevelForTier(i + 1); got != level {
			t.Errorf("LevelForTier(%d) = %s, want %s", i+1, got, level)
		}
	}
}

func TestLevelClamping(t *testing.T) {
	t.Parallel()

	if got := LevelForTier(0); got != LevelA1 {
		t.Errorf("LevelForTier(0) = %s, want A1", got)
	}
	if got := LevelForTier(9); got != LevelC2 {
		t.Errorf("LevelForTier(9) = %s, want C2", got)
	}
	if got := Level("Z9").Clamp(); got != LevelA1 {
		t.Errorf("unknown level clamps to %s, want A1", got)
	}
	if got := Level("Z9").Tier(); got != MinTier {
		t.Errorf("unknown level tier = %d, want %d", got, MinTier)
	}
}

func TestLevelClampNormalisesSpelling(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   Level
		want Level
		tier int
	}{
		{"c2", LevelC2, MaxTier},
		{" b1 ", LevelB1, 3},
		{"a2", LevelA2, 2},
		{"", LevelA1, MinTier},
	}

	for _, tt := range tests {
		if got := tt.in.Clamp(); got != tt.want {
			t.Errorf("Level(%q).Clamp() = %s, want %s", tt.in, got, tt.want)
		}
		if got := tt.in.Tier(); got != tt.tier {
			t.Errorf("Level(%q).Tier() = %d, want %d", tt.in, got, tt.tier)
		}
	}
	if !Level("c2").IsTop() {
		t.Error("lowercase c2 is the top level")
	}
}

func TestLevelSteps(t *testing.T) {
	t.Parallel()

	if got := LevelB1.Next(); got != LevelB2 {
		t.Errorf("B1.Next() = %s", got)
	}
	if got := LevelB1.Prev(); got != LevelA2 {
		t.Errorf("B1.Prev() = %s", got)
	}
	if got := LevelC2.Next(); got != LevelC2 {
		t.Errorf("top level must not promote, got %s", got)
	}
	if got := LevelA1.Prev(); got != LevelA1 {
		t.Errorf("bottom level must not demote, got %s", got)
	}
	if !LevelC2.IsTop() || LevelC1.IsTop() {
		t.Error("IsTop mismatch")
	}
	if !LevelA1.IsBottom() || LevelA2.IsBottom() {
		t.Error("IsBottom mismatch")
	}
}
