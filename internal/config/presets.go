package config

import (
	"sort"

	"github.com/san-kum/frapfit/internal/frap"
)

// ThreeGroups is the reference three-condition experiment.
var ThreeGroups = []frap.ParameterSet{
	{THalf: 11, F0: 0.1, FInf: 2.1},
	{THalf: 12, F0: 0.3, FInf: 3.7},
	{THalf: 14, F0: 0.2, FInf: 5.8},
}

var Presets = map[string]*GenerateConfig{
	"three-groups": {
		Groups: ThreeGroups, NumObs: 50, TMax: 8 * 14, Noise: 0, Seed: 1,
	},
	"noisy": {
		Groups: ThreeGroups, NumObs: 50, TMax: 8 * 14, Noise: 0.1, Seed: 1,
	},
	"single": {
		Groups: ThreeGroups[:1], NumObs: 50, TMax: 8 * 14, Noise: 0.05, Seed: 1,
	},
	"identical": {
		Groups: []frap.ParameterSet{ThreeGroups[0], ThreeGroups[0], ThreeGroups[0]},
		NumObs: 50, TMax: 8 * 14, Noise: 0.05, Seed: 1,
	},
}

func GetPreset(name string) *GenerateConfig {
	return Presets[name]
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
