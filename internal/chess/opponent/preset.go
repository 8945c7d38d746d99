package opponent

import (
	"errors"
	"fmt"
	"sync"

	"github.com/park285/cheese-chess/internal/chess"
)

// Preset describes how a difficulty level picks its move.
type Preset struct {
	Name chess.Difficulty
	// Depth > 0 switches to minimax search with that many plies.
	Depth          int
	PreferChecks   bool
	PreferCaptures bool
}

var presetMu sync.RWMutex

var DefaultPresets = map[chess.Difficulty]Preset{
	chess.Easy: {
		Name: chess.Easy,
	},
	chess.Medium: {
		Name:           chess.Medium,
		PreferChecks:   true,
		PreferCaptures: true,
	},
	chess.Hard: {
		Name:  chess.Hard,
		Depth: 3,
	},
}

const maxDepth = 5

// PresetFor resolves a difficulty; empty means Medium.
func PresetFor(d chess.Difficulty) (Preset, error) {
	if d == "" {
		d = chess.Medium
	}
	presetMu.RLock()
	p, ok := DefaultPresets[d]
	presetMu.RUnlock()
	if !ok {
		return Preset{}, fmt.Errorf("unknown difficulty %q", d)
	}
	return p, nil
}

// SetPresetDepth overrides the search depth of a difficulty.
func SetPresetDepth(d chess.Difficulty, depth int) error {
	presetMu.Lock()
	defer presetMu.Unlock()
	p, ok := DefaultPresets[d]
	if !ok {
		return fmt.Errorf("unknown difficulty %q", d)
	}
	p.Depth = depth
	if err := ValidatePreset(p); err != nil {
		return err
	}
	DefaultPresets[d] = p
	return nil
}

func ValidatePreset(p Preset) error {
	if p.Name == "" {
		return errors.New("preset name required")
	}
	if p.Depth < 0 || p.Depth > maxDepth {
		return fmt.Errorf("preset %s: depth %d out of range [0,%d]", p.Name, p.Depth, maxDepth)
	}
	if p.Depth > 0 && (p.PreferChecks || p.PreferCaptures) {
		return fmt.Errorf("preset %s: search presets cannot also use move preferences", p.Name)
	}
	return nil
}
