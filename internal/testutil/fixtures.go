package testutil

import (
	"encoding/json"
	"fmt"
)

// Creature is a fixture record rendered into a catalog creature payload.
type Creature struct {
	ID        int
	Name      string
	Types     []string
	Abilities []string
	Stats     [6]int
}

// StatNames are the six stat names in payload order.
var StatNames = [6]string{"hp", "attack", "defense", "special-attack", "special-defense", "speed"}

// Creatures is the fixture catalog, ordered by id.
var Creatures = []Creature{
	{1, "bulbasaur", []string{"grass", "poison"}, []string{"overgrow", "chlorophyll"}, [6]int{45, 49, 49, 65, 65, 45}},
	{2, "ivysaur", []string{"grass", "poison"}, []string{"overgrow", "chlorophyll"}, [6]int{60, 62, 63, 80, 80, 60}},
	{3, "venusaur", []string{"grass", "poison"}, []string{"overgrow", "chlorophyll"}, [6]int{80, 82, 83, 100, 100, 80}},
	{4, "charmander", []string{"fire"}, []string{"blaze", "solar-power"}, [6]int{39, 52, 43, 60, 50, 65}},
	{5, "charmeleon", []string{"fire"}, []string{"blaze", "solar-power"}, [6]int{58, 64, 58, 80, 65, 80}},
	{6, "charizard", []string{"fire", "flying"}, []string{"blaze", "solar-power"}, [6]int{78, 84, 78, 109, 85, 100}},
	{7, "squirtle", []string{"water"}, []string{"torrent", "rain-dish"}, [6]int{44, 48, 65, 50, 64, 43}},
	{25, "pikachu", []string{"electric"}, []string{"static", "lightning-rod"}, [6]int{35, 55, 40, 50, 50, 90}},
	{150, "mewtwo", []string{"psychic"}, []string{"pressure", "unnerve"}, [6]int{106, 110, 90, 154, 90, 130}},
}

// AbilityNames maps ability identifiers to their German and English labels.
var AbilityNames = map[string][2]string{
	"overgrow":      {"Notdünger", "Overgrow"},
	"chlorophyll":   {"Chlorophyll", "Chlorophyll"},
	"blaze":         {"Großbrand", "Blaze"},
	"solar-power":   {"Solarkraft", "Solar Power"},
	"torrent":       {"Sturzbach", "Torrent"},
	"rain-dish":     {"Regengenuss", "Rain Dish"},
	"static":        {"Statik", "Static"},
	"lightning-rod": {"Blitzfänger", "Lightning Rod"},
	"pressure":      {"Erzwinger", "Pressure"},
	"unnerve":       {"Anspannung", "Unnerve"},
}

// FindCreature returns the fixture with the given id or name.
func FindCreature(idOrName string) (Creature, bool) {
	for _, c := range Creatures {
		if c.Name == idOrName || fmt.Sprint(c.ID) == idOrName {
			return c, true
		}
	}
	return Creature{}, false
}

// CreatureJSON renders c as a catalog creature payload. baseURL prefixes
// resource links.
func CreatureJSON(baseURL string, c Creature) string {
	types := make([]map[string]any, len(c.Types))
	for i, t := range c.Types {
		types[i] = map[string]any{
			"slot": i + 1,
			"type": map[string]string{"name": t, "url": fmt.Sprintf("%s/type/%s/", baseURL, t)},
		}
	}

	abilities := make([]map[string]any, len(c.Abilities))
	for i, a := range c.Abilities {
		abilities[i] = map[string]any{
			"slot":      i + 1,
			"is_hidden": i > 0,
			"ability":   map[string]string{"name": a, "url": fmt.Sprintf("%s/ability/%s/", baseURL, a)},
		}
	}

	stats := make([]map[string]any, len(c.Stats))
	for i, v := range c.Stats {
		stats[i] = map[string]any{
			"base_stat": v,
			"effort":    0,
			"stat":      map[string]string{"name": StatNames[i]},
		}
	}

	payload := map[string]any{
		"id":              c.ID,
		"name":            c.Name,
		"height":          7,
		"weight":          69,
		"base_experience": 64,
		"types":           types,
		"abilities":       abilities,
		"stats":           stats,
		"sprites": map[string]any{
			"front_default": fmt.Sprintf("https://img.example.test/%d.png", c.ID),
			"other": map[string]any{
				"official-artwork": map[string]any{
					"front_default": fmt.Sprintf("https://img.example.test/artwork/%d.png", c.ID),
				},
			},
		},
		"cries": map[string]string{
			"latest": fmt.Sprintf("https://cries.example.test/%d.ogg", c.ID),
		},
	}
	return mustJSON(payload)
}

// ListJSON renders a listing page over the fixture catalog.
func ListJSON(baseURL string, limit, offset int) string {
	results := []map[string]string{}
	for i := offset; i < offset+limit && i < len(Creatures); i++ {
		c := Creatures[i]
		results = append(results, map[string]string{
			"name": c.Name,
			"url":  fmt.Sprintf("%s/pokemon/%d/", baseURL, c.ID),
		})
	}
	return mustJSON(map[string]any{
		"count":    len(Creatures),
		"next":     nil,
		"previous": nil,
		"results":  results,
	})
}

// CategoryJSON renders the membership listing for a type, or false if no
// fixture has that type.
func CategoryJSON(baseURL, name string) (string, bool) {
	members := []map[string]any{}
	for _, c := range Creatures {
		for slot, t := range c.Types {
			if t == name {
				members = append(members, map[string]any{
					"slot":    slot + 1,
					"pokemon": map[string]string{"name": c.Name, "url": fmt.Sprintf("%s/pokemon/%d/", baseURL, c.ID)},
				})
			}
		}
	}
	if len(members) == 0 {
		return "", false
	}
	return mustJSON(map[string]any{"id": len(name), "name": name, "pokemon": members}), true
}

// CategoryListJSON renders the category listing.
func CategoryListJSON(baseURL string) string {
	seen := map[string]bool{}
	results := []map[string]string{}
	for _, c := range Creatures {
		for _, t := range c.Types {
			if !seen[t] {
				seen[t] = true
				results = append(results, map[string]string{"name": t, "url": fmt.Sprintf("%s/type/%s/", baseURL, t)})
			}
		}
	}
	return mustJSON(map[string]any{"count": len(results), "results": results})
}

// AbilityJSON renders an ability detail payload, or false if unknown.
func AbilityJSON(name string) (string, bool) {
	labels, ok := AbilityNames[name]
	if !ok {
		return "", false
	}
	return mustJSON(map[string]any{
		"id":   len(name),
		"name": name,
		"names": []map[string]any{
			{"name": labels[0], "language": map[string]string{"name": "de"}},
			{"name": labels[1], "language": map[string]string{"name": "en"}},
		},
		"effect_entries": []map[string]any{
			{"short_effect": "Fixture effect.", "language": map[string]string{"name": "en"}},
		},
	}), true
}

// EvolutionChainJSON renders the starter chain bulbasaur -> ivysaur -> venusaur as chain 1
// and the eevee-style branching chain as chain 67.
func EvolutionChainJSON(id int) (string, bool) {
	species := func(name string) map[string]string {
		return map[string]string{"name": name, "url": "https://example.test/pokemon-species/" + name + "/"}
	}
	switch id {
	case 1:
		return mustJSON(map[string]any{
			"id": 1,
			"chain": map[string]any{
				"species": species("bulbasaur"),
				"evolves_to": []any{map[string]any{
					"species": species("ivysaur"),
					"evolution_details": []any{map[string]any{
						"min_level": 16,
						"trigger":   map[string]string{"name": "level-up"},
					}},
					"evolves_to": []any{map[string]any{
						"species": species("venusaur"),
						"evolution_details": []any{map[string]any{
							"min_level": 32,
							"trigger":   map[string]string{"name": "level-up"},
						}},
						"evolves_to": []any{},
					}},
				}},
			},
		}), true
	case 67:
		branch := func(name, item string) map[string]any {
			return map[string]any{
				"species": species(name),
				"evolution_details": []any{map[string]any{
					"item":    map[string]string{"name": item},
					"trigger": map[string]string{"name": "use-item"},
				}},
				"evolves_to": []any{},
			}
		}
		return mustJSON(map[string]any{
			"id": 67,
			"chain": map[string]any{
				"species": species("eevee"),
				"evolves_to": []any{
					branch("vaporeon", "water-stone"),
					branch("jolteon", "thunder-stone"),
					branch("flareon", "fire-stone"),
				},
			},
		}), true
	default:
		return "", false
	}
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
