package models

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var aglomeradoNames = map[int]string{
	2:  "Gran La Plata",
	3:  "Bahía Blanca - Cerri",
	4:  "Gran Rosario",
	5:  "Gran Santa Fé",
	6:  "Gran Paraná",
	7:  "Posadas",
	8:  "Gran Resistencia",
	9:  "Comodoro Rivadavia - Rada Tilly",
	10: "Gran Mendoza",
	12: "Corrientes",
	13: "Gran Córdoba",
	14: "Concordia",
	15: "Formosa",
	17: "Neuquén - Plottier",
	18: "Santiago del Estero - La Banda",
	19: "Jujuy - Palpalá",
	20: "Río Gallegos",
	22: "Gran Catamarca",
	23: "Gran Salta",
	25: "La Rioja",
	26: "Gran San Luis",
	27: "Gran San Juan",
	29: "Gran Tucumán - Tafí Viejo",
	30: "Santa Rosa - Toay",
	31: "Ushuaia - Río Grande",
	32: "Ciudad Autónoma de Buenos Aires",
	33: "Partidos del GBA",
	34: "Mar del Plata",
	36: "Río Cuarto",
	38: "San Nicolás - Villa Constitución",
	91: "Rawson - Trelew",
	93: "Viedma - Carmen de Patagones",
}

var regionNames = map[int]string{
	1:  "Gran Buenos Aires",
	40: "Noroeste",
	41: "Noreste",
	42: "Cuyo",
	43: "Pampeana",
	44: "Patagonia",
}

// Catalog is the read-only aglomerado/region reference. Build it once with
// NewCatalog and pass it to whatever needs display names.
type Catalog struct {
	aglomerados map[int]Aglomerado
	regions     map[int]string
}

// NewCatalog merges the built-in name table with extra entries, typically
// loaded from the coordinates file. Extra entries win on conflicts.
func NewCatalog(extra []Aglomerado) *Catalog {
	c := &Catalog{
		aglomerados: make(map[int]Aglomerado, len(aglomeradoNames)),
		regions:     make(map[int]string, len(regionNames)),
	}
	for code, name := range aglomeradoNames {
		c.aglomerados[code] = Aglomerado{Code: code, Name: name}
	}
	for code, name := range regionNames {
		c.regions[code] = name
	}
	for _, a := range extra {
		if a.Name == "" {
			a.Name = c.AglomeradoName(a.Code)
		}
		c.aglomerados[a.Code] = a
	}
	return c
}

// Aglomerado returns the entry for code.
func (c *Catalog) Aglomerado(code int) (Aglomerado, bool) {
	a, ok := c.aglomerados[code]
	return a, ok
}

// AglomeradoName returns the display name, or a placeholder for unknown codes.
func (c *Catalog) AglomeradoName(code int) string {
	if a, ok := c.aglomerados[code]; ok {
		return a.Name
	}
	return fmt.Sprintf("Aglomerado %d", code)
}

// RegionName returns the display name of a survey region.
func (c *Catalog) RegionName(code int) string {
	if name, ok := c.regions[code]; ok {
		return name
	}
	return fmt.Sprintf("Region %d", code)
}

// Aglomerados lists every entry ordered by code.
func (c *Catalog) Aglomerados() []Aglomerado {
	out := make([]Aglomerado, 0, len(c.aglomerados))
	for _, a := range c.aglomerados {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Search returns the aglomerados whose name contains query, ignoring case
// and accents ("cordoba" finds "Gran Córdoba").
func (c *Catalog) Search(query string) []Aglomerado {
	q := foldName(query)
	var out []Aglomerado
	for _, a := range c.Aglomerados() {
		if strings.Contains(foldName(a.Name), q) {
			out = append(out, a)
		}
	}
	return out
}

func foldName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		folded = s
	}
	return cases.Fold().String(folded)
}
