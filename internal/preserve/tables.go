package preserve

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Intervention is one preservation action and the life it buys.
type Intervention struct {
	Name           string  `yaml:"name" json:"name"`
	Cost           float64 `yaml:"cost" json:"cost"`
	ExtensionYears float64 `yaml:"extension_years" json:"extension_years"`
}

// Bracket is an intervention bundle for an age range. Range is "min-max"
// (inclusive) or "N+".
type Bracket struct {
	Range         string         `yaml:"range"`
	Interventions []Intervention `yaml:"interventions"`
}

// Tables is the static reference data the engine computes from.
type Tables struct {
	Lifespans              map[string]int       `yaml:"lifespans"`
	ReplacementCosts       map[string]float64   `yaml:"replacement_costs"`
	Strategies             map[string][]Bracket `yaml:"strategies"`
	DefaultLifespan        int                  `yaml:"default_lifespan"`
	DefaultReplacementCost float64              `yaml:"default_replacement_cost"`
}

// DefaultTables returns the built-in lifespan, cost and strategy data.
func DefaultTables() Tables {
	return Tables{
		Lifespans: map[string]int{
			"HVAC":           15,
			"Water Heater":   12,
			"Roof":           25,
			"Plumbing":       50,
			"Electrical":     40,
			"Windows":        25,
			"Siding":         30,
			"Foundation":     100,
			"Gutters":        20,
			"Deck":           20,
			"Appliances":     13,
			"Garage Door":    20,
			"Sump Pump":      10,
			"Water Softener": 15,
		},
		ReplacementCosts: map[string]float64{
			"HVAC":           8000,
			"Water Heater":   1500,
			"Roof":           15000,
			"Plumbing":       12000,
			"Electrical":     10000,
			"Windows":        12000,
			"Siding":         14000,
			"Foundation":     25000,
			"Gutters":        2000,
			"Deck":           9000,
			"Appliances":     3000,
			"Garage Door":    1500,
			"Sump Pump":      900,
			"Water Softener": 2000,
		},
		Strategies: map[string][]Bracket{
			"HVAC": {
				{Range: "7-10", Interventions: []Intervention{
					{Name: "Professional tune-up and coil cleaning", Cost: 200, ExtensionYears: 2},
					{Name: "Replace capacitor and contactor", Cost: 250, ExtensionYears: 1},
				}},
				{Range: "11+", Interventions: []Intervention{
					{Name: "Blower motor service", Cost: 400, ExtensionYears: 2},
					{Name: "Refrigerant leak repair", Cost: 600, ExtensionYears: 2},
				}},
			},
			"Water Heater": {
				{Range: "6-8", Interventions: []Intervention{
					{Name: "Flush tank", Cost: 150, ExtensionYears: 1},
					{Name: "Replace anode rod", Cost: 150, ExtensionYears: 1},
				}},
				{Range: "9+", Interventions: []Intervention{
					{Name: "Replace anode rod and thermocouple", Cost: 300, ExtensionYears: 2},
				}},
			},
			"Roof": {
				{Range: "12-18", Interventions: []Intervention{
					{Name: "Reseal flashing and penetrations", Cost: 600, ExtensionYears: 3},
					{Name: "Replace damaged shingles", Cost: 800, ExtensionYears: 2},
				}},
				{Range: "19+", Interventions: []Intervention{
					{Name: "Roof coating", Cost: 3000, ExtensionYears: 5},
				}},
			},
			"Plumbing": {
				{Range: "25-40", Interventions: []Intervention{
					{Name: "Replace supply lines and shutoffs", Cost: 500, ExtensionYears: 5},
					{Name: "Install pressure regulator", Cost: 400, ExtensionYears: 5},
				}},
				{Range: "41+", Interventions: []Intervention{
					{Name: "Camera inspection and spot repipe", Cost: 2500, ExtensionYears: 8},
				}},
			},
			"Electrical": {
				{Range: "20+", Interventions: []Intervention{
					{Name: "Panel inspection and breaker replacement", Cost: 800, ExtensionYears: 8},
					{Name: "Add GFCI/AFCI protection", Cost: 600, ExtensionYears: 4},
				}},
			},
			"Windows": {
				{Range: "12+", Interventions: []Intervention{
					{Name: "Reglaze and recaulk", Cost: 900, ExtensionYears: 5},
					{Name: "Replace weatherstripping", Cost: 300, ExtensionYears: 2},
				}},
			},
			"Siding": {
				{Range: "15+", Interventions: []Intervention{
					{Name: "Repaint and seal", Cost: 4000, ExtensionYears: 8},
				}},
			},
			"Gutters": {
				{Range: "10+", Interventions: []Intervention{
					{Name: "Reseal seams and rehang", Cost: 300, ExtensionYears: 4},
				}},
			},
			"Deck": {
				{Range: "10+", Interventions: []Intervention{
					{Name: "Clean, sand and reseal", Cost: 800, ExtensionYears: 4},
					{Name: "Replace failing boards and fasteners", Cost: 600, ExtensionYears: 2},
				}},
			},
			"Sump Pump": {
				{Range: "5+", Interventions: []Intervention{
					{Name: "Replace check valve and float switch", Cost: 150, ExtensionYears: 2},
				}},
			},
		},
		DefaultLifespan:        20,
		DefaultReplacementCost: 5000,
	}
}

// LoadTables reads YAML table overrides from path and merges them onto
// the defaults. Entries in the file replace defaults of the same type.
func LoadTables(path string) (Tables, error) {
	t := DefaultTables()
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read preservation tables: %w", err)
	}

	var override Tables
	if err := yaml.Unmarshal(data, &override); err != nil {
		return t, fmt.Errorf("parse preservation tables: %w", err)
	}
	for k, v := range override.Lifespans {
		t.Lifespans[k] = v
	}
	for k, v := range override.ReplacementCosts {
		t.ReplacementCosts[k] = v
	}
	for k, v := range override.Strategies {
		for _, b := range v {
			if _, _, err := parseRange(b.Range); err != nil {
				return t, fmt.Errorf("strategy %s: %w", k, err)
			}
		}
		t.Strategies[k] = v
	}
	if override.DefaultLifespan > 0 {
		t.DefaultLifespan = override.DefaultLifespan
	}
	if override.DefaultReplacementCost > 0 {
		t.DefaultReplacementCost = override.DefaultReplacementCost
	}
	return t, nil
}

// parseRange decodes "min-max" or "N+"; max is -1 for open ranges.
func parseRange(r string) (lo, hi int, err error) {
	r = strings.TrimSpace(r)
	if n, ok := strings.CutSuffix(r, "+"); ok {
		lo, err = strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, 0, fmt.Errorf("bad bracket %q", r)
		}
		return lo, -1, nil
	}
	a, b, ok := strings.Cut(r, "-")
	if !ok {
		return 0, 0, fmt.Errorf("bad bracket %q", r)
	}
	lo, err1 := strconv.Atoi(strings.TrimSpace(a))
	hi, err2 := strconv.Atoi(strings.TrimSpace(b))
	if err1 != nil || err2 != nil {
		return 0, 0, fmt.Errorf("bad bracket %q", r)
	}
	return lo, hi, nil
}

// bundleFor returns the first bracket of the system type covering age.
func (t Tables) bundleFor(systemType string, age int) ([]Intervention, bool) {
	for _, b := range t.Strategies[systemType] {
		lo, hi, err := parseRange(b.Range)
		if err != nil {
			continue
		}
		if age >= lo && (hi < 0 || age <= hi) {
			return b.Interventions, true
		}
	}
	return nil, false
}

func (t Tables) lifespan(systemType string) int {
	if n, ok := t.Lifespans[systemType]; ok && n > 0 {
		return n
	}
	if t.DefaultLifespan > 0 {
		return t.DefaultLifespan
	}
	return 20
}

func (t Tables) replacementCost(systemType string) float64 {
	if c, ok := t.ReplacementCosts[systemType]; ok {
		return c
	}
	if t.DefaultReplacementCost > 0 {
		return t.DefaultReplacementCost
	}
	return 5000
}
