package model

// ProductKind identifies which fulfillment variant an order runs.
type ProductKind string

const (
	ProductNatalChart    ProductKind = "natal_chart"
	ProductCompatibility ProductKind = "compatibility"
	ProductDailyTarot    ProductKind = "daily_tarot"
	ProductZodiacWeekly  ProductKind = "zodiac_weekly"
)

// Product describes a sellable report variant.
type Product struct {
	Kind               ProductKind
	Name               string
	PriceUSD           float64
	RequiresEnrichment bool
}

var catalog = map[ProductKind]Product{
	ProductNatalChart: {
		Kind:               ProductNatalChart,
		Name:               "Natal Chart Reading",
		PriceUSD:           29.99,
		RequiresEnrichment: true,
	},
	ProductCompatibility: {
		Kind:               ProductCompatibility,
		Name:               "Compatibility Report",
		PriceUSD:           19.99,
		RequiresEnrichment: true,
	},
	ProductDailyTarot: {
		Kind:               ProductDailyTarot,
		Name:               "Daily Tarot Draw",
		PriceUSD:           4.99,
		RequiresEnrichment: false,
	},
	ProductZodiacWeekly: {
		Kind:               ProductZodiacWeekly,
		Name:               "Weekly Zodiac Forecast",
		PriceUSD:           9.99,
		RequiresEnrichment: false,
	},
}

// ProductByKind resolves a catalog entry by its kind.
func ProductByKind(kind ProductKind) (Product, bool) {
	p, ok := catalog[kind]
	return p, ok
}

// Products returns the full catalog.
func Products() []Product {
	result := make([]Product, 0, len(catalog))
	for _, p := range catalog {
		result = append(result, p)
	}
	return result
}
