package dex

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ListPage is one page of the paginated creature listing.
type ListPage struct {
	Count    int             `json:"count"`
	Next     string          `json:"next,omitempty"`
	Previous string          `json:"previous,omitempty"`
	Results  []NamedResource `json:"results"`
}

// Category is an elemental type together with its member creatures.
type Category struct {
	ID      int             `json:"id"`
	Name    string          `json:"name"`
	Members []NamedResource `json:"members"`
}

// Contains reports whether a creature name belongs to the category.
func (c *Category) Contains(name string) bool {
	for _, m := range c.Members {
		if m.Name == name {
			return true
		}
	}
	return false
}

// Ability is an ability detail record with its localized names.
type Ability struct {
	ID          int               `json:"id"`
	Name        string            `json:"name"`
	Names       map[string]string `json:"names"`
	ShortEffect string            `json:"short_effect,omitempty"`
}

// Label returns the ability's name in lang, then English, then its identifier.
func (a *Ability) Label(lang string) string {
	if n := a.Names[lang]; n != "" {
		return n
	}
	if n := a.Names["en"]; n != "" {
		return n
	}
	return a.Name
}

// EvolutionDetail describes how a species evolves into the next one.
type EvolutionDetail struct {
	Trigger  string `json:"trigger,omitempty"`
	MinLevel int    `json:"min_level,omitempty"`
	Item     string `json:"item,omitempty"`
}

// ChainLink is one node of an evolution tree.
type ChainLink struct {
	Species   NamedResource     `json:"species"`
	Details   []EvolutionDetail `json:"details,omitempty"`
	EvolvesTo []ChainLink       `json:"evolves_to,omitempty"`
}

// EvolutionChain is a rooted evolution tree.
type EvolutionChain struct {
	ID    int       `json:"id"`
	Chain ChainLink `json:"chain"`
}

// Stages flattens the tree into breadth levels: the root species first, then
// every species one evolution away, and so on.
func (e *EvolutionChain) Stages() [][]string {
	var stages [][]string
	level := []ChainLink{e.Chain}
	for len(level) > 0 {
		names := make([]string, 0, len(level))
		var next []ChainLink
		for _, link := range level {
			names = append(names, link.Species.Name)
			next = append(next, link.EvolvesTo...)
		}
		stages = append(stages, names)
		level = next
	}
	return stages
}

// Species lists every species in the tree depth-first.
func (e *EvolutionChain) Species() []string {
	var names []string
	var walk func(ChainLink)
	walk = func(link ChainLink) {
		names = append(names, link.Species.Name)
		for _, child := range link.EvolvesTo {
			walk(child)
		}
	}
	walk(e.Chain)
	return names
}

// IDFromURL extracts the trailing numeric id of a catalog resource URL such
// as ".../pokemon/25/". It returns 0 when there is none.
func IDFromURL(rawURL string) int {
	seg := LastSegment(rawURL)
	id, err := strconv.Atoi(seg)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

// LastSegment returns the last non-empty path segment of a URL or path.
func LastSegment(rawURL string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(rawURL), "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// ParseListPage validates a pagination envelope.
func ParseListPage(data []byte) (*ListPage, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	page := &ListPage{Count: optionalCount(fields, "count")}
	if err := decodeContainer(fields, "results", '[', &page.Results); err != nil {
		return nil, err
	}
	if page.Results == nil {
		page.Results = []NamedResource{}
	}
	decodeOptionalString(fields, "next", &page.Next)
	decodeOptionalString(fields, "previous", &page.Previous)
	return page, nil
}

type rawCategoryMember struct {
	Slot    int           `json:"slot"`
	Pokemon NamedResource `json:"pokemon"`
}

// ParseCategory validates a type membership payload.
func ParseCategory(data []byte) (*Category, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	name, err := stringField(fields, "name")
	if err != nil {
		return nil, err
	}
	if err := checkStruct(struct {
		Name string `json:"name" validate:"required"`
	}{name}); err != nil {
		return nil, err
	}
	var members []rawCategoryMember
	if err := decodeContainer(fields, "pokemon", '[', &members); err != nil {
		return nil, err
	}
	cat := &Category{
		ID:      optionalCount(fields, "id"),
		Name:    strings.ToLower(name),
		Members: make([]NamedResource, 0, len(members)),
	}
	for _, m := range members {
		if m.Pokemon.Name == "" {
			continue
		}
		cat.Members = append(cat.Members, m.Pokemon)
	}
	return cat, nil
}

type rawAbility struct {
	ID    int    `json:"id" validate:"gt=0"`
	Name  string `json:"name" validate:"required"`
	Names []struct {
		Name     string        `json:"name"`
		Language NamedResource `json:"language"`
	} `json:"names"`
	EffectEntries []struct {
		ShortEffect string        `json:"short_effect"`
		Language    NamedResource `json:"language"`
	} `json:"effect_entries"`
}

// ParseAbility validates an ability detail payload.
func ParseAbility(data []byte) (*Ability, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	for _, field := range []string{"names", "effect_entries"} {
		if raw, ok := present(fields, field); ok && raw[0] != '[' {
			return nil, NewValidationError(field, "expected an array")
		}
	}
	var raw rawAbility
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, NewValidationError("payload", "malformed JSON: %v", err)
	}
	if err := checkStruct(raw); err != nil {
		return nil, err
	}
	ability := &Ability{ID: raw.ID, Name: raw.Name, Names: make(map[string]string, len(raw.Names))}
	for _, n := range raw.Names {
		if n.Language.Name != "" && n.Name != "" {
			ability.Names[n.Language.Name] = n.Name
		}
	}
	for _, e := range raw.EffectEntries {
		if e.Language.Name == "en" {
			ability.ShortEffect = e.ShortEffect
			break
		}
	}
	return ability, nil
}

type rawChainLink struct {
	Species          NamedResource  `json:"species"`
	EvolutionDetails []rawEvoDetail `json:"evolution_details"`
	EvolvesTo        []rawChainLink `json:"evolves_to"`
}

type rawEvoDetail struct {
	MinLevel *int          `json:"min_level"`
	Trigger  NamedResource `json:"trigger"`
	Item     *struct {
		Name string `json:"name"`
	} `json:"item"`
}

// ParseEvolutionChain validates an evolution chain payload.
func ParseEvolutionChain(data []byte) (*EvolutionChain, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	id, err := integerField(fields, "id")
	if err != nil {
		return nil, err
	}
	if err := checkStruct(struct {
		ID int `json:"id" validate:"gt=0"`
	}{id}); err != nil {
		return nil, err
	}
	raw, ok := present(fields, "chain")
	if !ok {
		return nil, NewValidationError("chain", "missing")
	}
	if raw[0] != '{' {
		return nil, NewValidationError("chain", "expected an object")
	}
	var root rawChainLink
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, NewValidationError("chain", "malformed: %v", err)
	}
	if root.Species.Name == "" {
		return nil, NewValidationError("species", "missing")
	}
	return &EvolutionChain{ID: id, Chain: convertLink(root)}, nil
}

func convertLink(raw rawChainLink) ChainLink {
	link := ChainLink{Species: raw.Species}
	for _, d := range raw.EvolutionDetails {
		detail := EvolutionDetail{Trigger: d.Trigger.Name}
		if d.MinLevel != nil {
			detail.MinLevel = *d.MinLevel
		}
		if d.Item != nil {
			detail.Item = d.Item.Name
		}
		link.Details = append(link.Details, detail)
	}
	for _, child := range raw.EvolvesTo {
		link.EvolvesTo = append(link.EvolvesTo, convertLink(child))
	}
	return link
}

func decodeOptionalString(fields map[string]json.RawMessage, field string, dest *string) {
	raw, ok := present(fields, field)
	if !ok {
		return
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		*dest = s
	}
}
