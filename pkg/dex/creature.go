// Package dex turns untrusted catalog JSON into validated, immutable domain
// values. Build is the entity factory: it either returns a fully populated
// Creature, derived fields included, or a ValidationError naming the first
// offending field.
package dex

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
)

// NamedResource is the {name, url} reference used throughout the catalog.
type NamedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// TypeSlot is one elemental type of a creature.
type TypeSlot struct {
	Slot int    `json:"slot"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// AbilitySlot is one ability reference of a creature.
type AbilitySlot struct {
	Slot     int    `json:"slot"`
	Name     string `json:"name"`
	URL      string `json:"url,omitempty"`
	IsHidden bool   `json:"is_hidden"`
}

// Stat is one base stat of a creature.
type Stat struct {
	Name     string `json:"name"`
	BaseStat int    `json:"base_stat"`
	Effort   int    `json:"effort"`
}

// Sprites holds the image URLs the catalog publishes. Empty strings mean absent.
type Sprites struct {
	FrontDefault    string `json:"front_default,omitempty"`
	FrontShiny      string `json:"front_shiny,omitempty"`
	BackDefault     string `json:"back_default,omitempty"`
	BackShiny       string `json:"back_shiny,omitempty"`
	OfficialArtwork string `json:"official_artwork,omitempty"`
	DreamWorld      string `json:"dream_world,omitempty"`
}

// Cries holds audio URLs.
type Cries struct {
	Latest string `json:"latest,omitempty"`
	Legacy string `json:"legacy,omitempty"`
}

// Creature is a validated catalog entity. Values returned by Build are shared
// between the cache and every caller and must be treated as read-only.
type Creature struct {
	ID             int           `json:"id"`
	Name           string        `json:"name"`
	Height         int           `json:"height"`
	Weight         int           `json:"weight"`
	BaseExperience int           `json:"base_experience"`
	Types          []TypeSlot    `json:"types"`
	Abilities      []AbilitySlot `json:"abilities"`
	Stats          []Stat        `json:"stats"`
	Sprites        Sprites       `json:"sprites"`
	Cries          Cries         `json:"cries"`

	// Derived at construction.
	ImageURL    string `json:"image_url"`
	PrimaryType string `json:"primary_type"`
	StatTotal   int    `json:"stat_total"`
	Rarity      Rarity `json:"rarity"`
	TypeColor   string `json:"type_color"`
}

// TypeNames returns the creature's type names in slot order.
func (c *Creature) TypeNames() []string {
	names := make([]string, 0, len(c.Types))
	for _, t := range c.Types {
		names = append(names, t.Name)
	}
	return names
}

// HasType reports whether the creature carries the given type.
func (c *Creature) HasType(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, t := range c.Types {
		if t.Name == name {
			return true
		}
	}
	return false
}

// identity carries the rules for id and name. The field helpers only check
// wire shape; a zero id or blank name is rejected by these tags.
type identity struct {
	ID   int    `json:"id" validate:"gt=0"`
	Name string `json:"name" validate:"required"`
}

type rawTypeSlot struct {
	Slot int           `json:"slot"`
	Type NamedResource `json:"type"`
}

type rawAbilitySlot struct {
	Slot     int           `json:"slot"`
	IsHidden bool          `json:"is_hidden"`
	Ability  NamedResource `json:"ability"`
}

type rawStat struct {
	BaseStat float64       `json:"base_stat"`
	Effort   float64       `json:"effort"`
	Stat     NamedResource `json:"stat"`
}

type rawSprites struct {
	FrontDefault string `json:"front_default"`
	FrontShiny   string `json:"front_shiny"`
	BackDefault  string `json:"back_default"`
	BackShiny    string `json:"back_shiny"`
	Other        struct {
		OfficialArtwork struct {
			FrontDefault string `json:"front_default"`
		} `json:"official-artwork"`
		DreamWorld struct {
			FrontDefault string `json:"front_default"`
		} `json:"dream_world"`
	} `json:"other"`
}

// Build validates a raw creature payload and constructs a Creature with all
// derived fields populated.
//
// id must be a positive integer and name a non-blank string. types, abilities
// and stats must be arrays and sprites and cries objects when present; absent
// or null containers default to empty. Numeric extras that are missing,
// negative or not numbers default to 0.
func Build(data []byte) (*Creature, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return nil, err
	}

	id, err := integerField(fields, "id")
	if err != nil {
		return nil, err
	}
	name, err := stringField(fields, "name")
	if err != nil {
		return nil, err
	}
	if err := checkStruct(identity{ID: id, Name: name}); err != nil {
		return nil, err
	}

	var (
		rawTypes     []rawTypeSlot
		rawAbilities []rawAbilitySlot
		rawStats     []rawStat
		sprites      rawSprites
		cries        Cries
	)
	for _, c := range []struct {
		field string
		kind  byte
		dest  any
	}{
		{"types", '[', &rawTypes},
		{"abilities", '[', &rawAbilities},
		{"stats", '[', &rawStats},
		{"sprites", '{', &sprites},
		{"cries", '{', &cries},
	} {
		if err := decodeContainer(fields, c.field, c.kind, c.dest); err != nil {
			return nil, err
		}
	}

	creature := &Creature{
		ID:             id,
		Name:           name,
		Height:         optionalCount(fields, "height"),
		Weight:         optionalCount(fields, "weight"),
		BaseExperience: optionalCount(fields, "base_experience"),
		Types:          make([]TypeSlot, 0, len(rawTypes)),
		Abilities:      make([]AbilitySlot, 0, len(rawAbilities)),
		Stats:          make([]Stat, 0, len(rawStats)),
		Sprites: Sprites{
			FrontDefault:    sprites.FrontDefault,
			FrontShiny:      sprites.FrontShiny,
			BackDefault:     sprites.BackDefault,
			BackShiny:       sprites.BackShiny,
			OfficialArtwork: sprites.Other.OfficialArtwork.FrontDefault,
			DreamWorld:      sprites.Other.DreamWorld.FrontDefault,
		},
		Cries: cries,
	}
	for _, t := range rawTypes {
		creature.Types = append(creature.Types, TypeSlot{Slot: t.Slot, Name: strings.ToLower(t.Type.Name), URL: t.Type.URL})
	}
	for _, a := range rawAbilities {
		creature.Abilities = append(creature.Abilities, AbilitySlot{Slot: a.Slot, Name: a.Ability.Name, URL: a.Ability.URL, IsHidden: a.IsHidden})
	}
	for _, s := range rawStats {
		creature.Stats = append(creature.Stats, Stat{Name: s.Stat.Name, BaseStat: nonNegative(s.BaseStat), Effort: nonNegative(s.Effort)})
	}

	creature.ImageURL = imageURL(creature.Sprites)
	creature.PrimaryType = primaryType(creature.Types)
	creature.StatTotal = statTotal(creature.Stats)
	creature.Rarity = RarityFor(creature.StatTotal)
	creature.TypeColor = TypeColor(creature.PrimaryType)

	return creature, nil
}

// decodeObject parses data as a JSON object without decoding its members.
func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, NewValidationError("payload", "expected a JSON object")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, NewValidationError("payload", "malformed JSON: %v", err)
	}
	return fields, nil
}

func present(fields map[string]json.RawMessage, field string) (json.RawMessage, bool) {
	raw, ok := fields[field]
	if !ok {
		return nil, false
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false
	}
	return raw, true
}

// integerField reads a required integral number. Range rules are left to the
// caller's struct tags.
func integerField(fields map[string]json.RawMessage, field string) (int, error) {
	raw, ok := present(fields, field)
	if !ok {
		return 0, NewValidationError(field, "missing")
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, NewValidationError(field, "not a number")
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
		return 0, NewValidationError(field, "not a finite integer")
	}
	return int(n), nil
}

// stringField reads an optional string and trims it. Absent and null fields
// read as "".
func stringField(fields map[string]json.RawMessage, field string) (string, error) {
	raw, ok := present(fields, field)
	if !ok {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", NewValidationError(field, "not a string")
	}
	return strings.TrimSpace(s), nil
}

// decodeContainer decodes an optional array ('[') or object ('{') field.
// Absent and null fields leave dest untouched.
func decodeContainer(fields map[string]json.RawMessage, field string, kind byte, dest any) error {
	raw, ok := present(fields, field)
	if !ok {
		return nil
	}
	if raw[0] != kind {
		want := "an array"
		if kind == '{' {
			want = "an object"
		}
		return NewValidationError(field, "expected %s", want)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return NewValidationError(field, "malformed entry: %v", err)
	}
	return nil
}

func optionalCount(fields map[string]json.RawMessage, field string) int {
	raw, ok := present(fields, field)
	if !ok {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	return nonNegative(n)
}

func nonNegative(n float64) int {
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return 0
	}
	return int(n)
}
