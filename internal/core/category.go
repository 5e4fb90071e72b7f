package core

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CategoryKey identifies one of the fixed spending categories.
type CategoryKey string

const (
	Food          CategoryKey = "comida"
	Transport     CategoryKey = "transporte"
	Entertainment CategoryKey = "entretenimiento"
	Health        CategoryKey = "salud"
	Education     CategoryKey = "educacion"
	Housing       CategoryKey = "vivienda"
	Clothing      CategoryKey = "ropa"
	Other         CategoryKey = "otros"
)

var ErrUnknownCategory = errors.New("unknown category")

// CategoryInfo is the display metadata of a category.
type CategoryInfo struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

var categoryInfo = map[CategoryKey]CategoryInfo{
	Food:          {Name: "Comida", Color: "#FF6B6B", Icon: "🍽️"},
	Transport:     {Name: "Transporte", Color: "#4ECDC4", Icon: "🚗"},
	Entertainment: {Name: "Entretenimiento", Color: "#45B7D1", Icon: "🎮"},
	Health:        {Name: "Salud", Color: "#96CEB4", Icon: "💊"},
	Education:     {Name: "Educación", Color: "#FFEAA7", Icon: "📚"},
	Housing:       {Name: "Vivienda", Color: "#DDA0DD", Icon: "🏠"},
	Clothing:      {Name: "Ropa", Color: "#98D8C8", Icon: "👕"},
	Other:         {Name: "Otros", Color: "#F7DC6F", Icon: "📦"},
}

type keywordRule struct {
	category CategoryKey
	keywords []string
}

// classifierTable is evaluated top to bottom; first match wins.
var classifierTable = []keywordRule{
	{Food, []string{"comida", "alimento", "restaurante", "café", "cafe", "supermercado", "mercado"}},
	{Transport, []string{"transporte", "uber", "taxi", "bus", "gasolina", "gas", "metro"}},
	{Entertainment, []string{"entretenimiento", "cine", "película", "pelicula", "netflix", "spotify", "juego"}},
	{Health, []string{"salud", "médico", "medico", "farmacia", "medicina", "doctor"}},
	{Education, []string{"educación", "educacion", "curso", "libro", "universidad", "escuela"}},
	{Housing, []string{"vivienda", "renta", "alquiler", "casa", "departamento", "servicios"}},
	{Clothing, []string{"ropa", "zapatos", "vestido", "camisa", "pantalón", "pantalon"}},
}

// Classify returns the category of a free-text description.
func Classify(description string) CategoryKey {
	d := Fold(description)
	for _, rule := range classifierTable {
		for _, kw := range rule.keywords {
			if strings.Contains(d, Fold(kw)) {
				return rule.category
			}
		}
	}
	return Other
}

// Fold lower-cases s and strips combining marks, so "Película" and "pelicula"
// compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}

// Categories returns the ordered list of category keys, fallback last.
func Categories() []CategoryKey {
	return []CategoryKey{Food, Transport, Entertainment, Health, Education, Housing, Clothing, Other}
}

// CategoryTable returns a copy of the display metadata for every category.
func CategoryTable() map[CategoryKey]CategoryInfo {
	out := make(map[CategoryKey]CategoryInfo, len(categoryInfo))
	for k, v := range categoryInfo {
		out[k] = v
	}
	return out
}

// Info returns display metadata, falling back to "otros" for unknown keys.
func (k CategoryKey) Info() CategoryInfo {
	if info, ok := categoryInfo[k]; ok {
		return info
	}
	return categoryInfo[Other]
}

func (k CategoryKey) IsKnown() bool {
	_, ok := categoryInfo[k]
	return ok
}

// Normalize maps empty or unknown keys to "otros".
func (k CategoryKey) Normalize() CategoryKey {
	if k.IsKnown() {
		return k
	}
	return Other
}
