package shipping

import "strings"

// Method is a static shipping option. PriceCents is the base cost used
// whenever a live rate is unavailable; Provinces lists where the method
// can deliver.
type Method struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	PriceCents       int64    `json:"price_cents"`
	DeliveryEstimate string   `json:"delivery_estimate"`
	Provinces        []string `json:"provinces"`
}

// EligibleFor reports whether the method delivers to the province.
func (m Method) EligibleFor(province string) bool {
	province = normalizeProvince(province)
	if province == "" {
		return false
	}
	for _, p := range m.Provinces {
		if normalizeProvince(p) == province {
			return true
		}
	}
	return false
}

// Quote is the outcome of a shipping cost computation. Source is "live"
// when the rate lookup answered and "fallback" when the method's base
// price was used instead.
type Quote struct {
	MethodID  string `json:"method_id"`
	CostCents int64  `json:"cost_cents"`
	Free      bool   `json:"free"`
	Source    string `json:"source"`
}

// Quote sources.
const (
	SourceLive     = "live"
	SourceFallback = "fallback"
	SourceFree     = "free"
)

func normalizeProvince(province string) string {
	return strings.ToLower(strings.TrimSpace(province))
}

var allProvinces = []string{
	"Buenos Aires",
	"Ciudad Autónoma de Buenos Aires",
	"Catamarca",
	"Chaco",
	"Chubut",
	"Córdoba",
	"Corrientes",
	"Entre Ríos",
	"Formosa",
	"Jujuy",
	"La Pampa",
	"La Rioja",
	"Mendoza",
	"Misiones",
	"Neuquén",
	"Río Negro",
	"Salta",
	"San Juan",
	"San Luis",
	"Santa Cruz",
	"Santa Fe",
	"Santiago del Estero",
	"Tierra del Fuego",
	"Tucumán",
}

func defaultMethods() []Method {
	return []Method{
		{
			ID:               "estandar",
			Name:             "Envío Estándar",
			Description:      "Entrega a domicilio por correo en todo el país.",
			PriceCents:       550000,
			DeliveryEstimate: "5 a 8 días hábiles",
			Provinces:        allProvinces,
		},
		{
			ID:               "expres",
			Name:             "Envío Exprés",
			Description:      "Entrega prioritaria a domicilio.",
			PriceCents:       980000,
			DeliveryEstimate: "24 a 48 horas",
			Provinces: []string{
				"Buenos Aires",
				"Ciudad Autónoma de Buenos Aires",
				"Córdoba",
				"Mendoza",
				"Santa Fe",
			},
		},
		{
			ID:               "sucursal",
			Name:             "Retiro en Sucursal",
			Description:      "Retiro en la sucursal de correo más cercana.",
			PriceCents:       390000,
			DeliveryEstimate: "4 a 7 días hábiles",
			Provinces:        allProvinces,
		},
	}
}
