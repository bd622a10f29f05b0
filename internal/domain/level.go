package domain

import (
	"fmt"
	"strings"
)

// Level is a CEFR proficiency level. Each level maps to exactly one
// difficulty tier: A1 is tier 1 and C2 is tier 6.
type Level string

// Proficiency levels from easiest to hardest.
const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
	LevelC2 Level = "C2"
)

// Tier bounds of the difficulty scale.
const (
	MinTier = 1
	MaxTier = 6
)

var levels = [...]Level{LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2}

// Levels returns all levels in ascending order.
func Levels() []Level {
	out := make([]Level, len(levels))
	copy(out, levels[:])
	return out
}

// ParseLevel parses a level name case-insensitively.
func ParseLevel(s string) (Level, error) {
	candidate := Level(strings.ToUpper(strings.TrimSpace(s)))
	if candidate.Valid() {
		return candidate, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// Valid reports whether l is on the A1..C2 scale.
func (l Level) Valid() bool {
	for _, known := range levels {
		if l == known {
			return true
		}
	}
	return false
}

// Tier returns the difficulty tier of l. Unknown levels are clamped:
// anything that does not parse maps to the bottom tier.
func (l Level) Tier() int {
	clamped := l.Clamp()
	for i, known := range levels {
		if clamped == known {
			return i + 1
		}
	}
	return MinTier
}

// LevelForTier returns the level of a tier, clamping out-of-range tiers to
// the nearest end of the scale.
func LevelForTier(tier int) Level {
	return levels[ClampTier(tier)-1]
}

// ClampTier limits tier to [MinTier, MaxTier].
func ClampTier(tier int) int {
	if tier < MinTier {
		return MinTier
	}
	if tier > MaxTier {
		return MaxTier
	}
	return tier
}

// Clamp returns l normalised by ParseLevel, or the bottom level when it
// does not parse.
func (l Level) Clamp() Level {
	if l.Valid() {
		return l
	}
	if parsed, err := ParseLevel(string(l)); err == nil {
		return parsed
	}
	return LevelA1
}

// Next returns the level one step harder. The top level returns itself.
func (l Level) Next() Level {
	return LevelForTier(l.Clamp().Tier() + 1)
}

// Prev returns the level one step easier. The bottom level returns itself.
func (l Level) Prev() Level {
	return LevelForTier(l.Clamp().Tier() - 1)
}

// IsTop reports whether l is the hardest level.
func (l Level) IsTop() bool {
	return l.Clamp() == LevelC2
}

// IsBottom reports whether l is the easiest level.
func (l Level) IsBottom() bool {
	return l.Clamp() == LevelA1
}

// String implements fmt.Stringer.
func (l Level) String() string {
	return string(l)
}
