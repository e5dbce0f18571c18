package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Presets are the button grids offered for the role and program prompts.
type Presets struct {
	Roles    [][]string `yaml:"roles"`
	Programs [][]string `yaml:"programs"`
}

func DefaultPresets() Presets {
	return Presets{
		Roles: [][]string{
			{"РЕЖ", "ЭКРАНЫ", "EVS"},
			{"VMIX", "ОПЕРАТОР", "ОПЕРПОСТ"},
			{"СВЕТ", "ГРИМ"},
		},
		Programs: [][]string{
			{"ЛЧ", "ЛЕ", "ЛК"},
			{"ЛИГА 1", "БУНДЕСЛИГА", "ММА"},
			{"КУБОГНЯ", "ФИГУРКА", "БИАТЛОН"},
			{"РПЛ", "LALIGA", "ТУРДЕФРАНС"},
		},
	}
}

// LoadPresets reads a YAML presets file. An empty path yields the defaults; a file that omits
// one of the grids keeps the default for it.
func LoadPresets(path string) (Presets, error) {
	presets := DefaultPresets()
	if path == "" {
		return presets, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Presets{}, fmt.Errorf("read presets: %w", err)
	}

	var loaded Presets
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Presets{}, fmt.Errorf("parse presets: %w", err)
	}
	if len(loaded.Roles) > 0 {
		presets.Roles = loaded.Roles
	}
	if len(loaded.Programs) > 0 {
		presets.Programs = loaded.Programs
	}
	return presets, nil
}

// Flatten returns every label of a grid in reading order.
func Flatten(grid [][]string) []string {
	out := make([]string, 0)
	for _, row := range grid {
		out = append(out, row...)
	}
	return out
}
