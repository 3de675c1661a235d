package dex

// Rarity is the tier derived from a creature's stat total.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityLegendary Rarity = "legendary"
)

const (
	// PlaceholderImage is used when the catalog publishes no artwork at all.
	PlaceholderImage = "/images/placeholder.png"

	// UnknownType is the primary type of a creature without types.
	UnknownType = "unknown"

	// NeutralColor is the color of unrecognized or missing types.
	NeutralColor = "#A8A8A8"
)

var typeColors = map[string]string{
	"normal":   "#A8A77A",
	"fire":     "#EE8130",
	"water":    "#6390F0",
	"electric": "#F7D02C",
	"grass":    "#7AC74C",
	"ice":      "#96D9D6",
	"fighting": "#C22E28",
	"poison":   "#A33EA1",
	"ground":   "#E2BF65",
	"flying":   "#A98FF3",
	"psychic":  "#F95587",
	"bug":      "#A6B91A",
	"rock":     "#B6A136",
	"ghost":    "#735797",
	"dragon":   "#6F35FC",
	"dark":     "#705746",
	"steel":    "#B7B7CE",
	"fairy":    "#D685AD",
}

// TypeColor returns the display color for an elemental type.
func TypeColor(typeName string) string {
	if c, ok := typeColors[typeName]; ok {
		return c
	}
	return NeutralColor
}

// KnownTypes returns the number of elemental types with a defined color.
func KnownTypes() int {
	return len(typeColors)
}

// RarityFor maps a stat total to its tier.
func RarityFor(total int) Rarity {
	switch {
	case total >= 600:
		return RarityLegendary
	case total >= 500:
		return RarityRare
	case total >= 400:
		return RarityUncommon
	default:
		return RarityCommon
	}
}

// imageURL walks official artwork, dream world, default sprite, placeholder.
func imageURL(s Sprites) string {
	for _, candidate := range []string{s.OfficialArtwork, s.DreamWorld, s.FrontDefault} {
		if candidate != "" {
			return candidate
		}
	}
	return PlaceholderImage
}

func primaryType(types []TypeSlot) string {
	if len(types) == 0 || types[0].Name == "" {
		return UnknownType
	}
	return types[0].Name
}

func statTotal(stats []Stat) int {
	total := 0
	for _, s := range stats {
		total += s.BaseStat
	}
	return total
}
