package plan

import (
	"errors"
	"fmt"
)

// Catalog is an immutable lookup table of plan definitions.
// The zero value is not usable; construct it with New or Default.
type Catalog struct {
	defs  map[ID]Definition
	byRef map[string]ID
}

// New builds a catalog from the given definitions.
// Every tier must be defined exactly once, prices must share one currency and
// quotas must be non-decreasing along the tier order.
func New(defs ...Definition) (*Catalog, error) {
	c := &Catalog{
		defs:  make(map[ID]Definition, len(defs)),
		byRef: make(map[string]ID, len(defs)),
	}

	for _, d := range defs {
		if !d.ID.Valid() {
			return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("unknown plan id %q", d.ID))
		}
		if _, exists := c.defs[d.ID]; exists {
			return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("plan %s defined twice", d.ID))
		}
		if d.Price.Amount < 0 {
			return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("plan %s has negative price", d.ID))
		}
		if d.PriceRef != "" {
			if other, taken := c.byRef[d.PriceRef]; taken {
				return nil, errors.Join(ErrInvalidCatalog,
					fmt.Errorf("price ref %q shared by %s and %s", d.PriceRef, other, d.ID))
			}
			c.byRef[d.PriceRef] = d.ID
		}
		c.defs[d.ID] = d.clone()
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNew is like New but panics on an invalid catalog.
func MustNew(defs ...Definition) *Catalog {
	c, err := New(defs...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) validate() error {
	var currency string
	for i, id := range Tiers {
		d, ok := c.defs[id]
		if !ok {
			return errors.Join(ErrInvalidCatalog, fmt.Errorf("plan %s is missing", id))
		}

		if currency == "" {
			currency = d.Price.Currency
		} else if d.Price.Currency != currency {
			return errors.Join(ErrInvalidCatalog,
				fmt.Errorf("plan %s priced in %s, expected %s", id, d.Price.Currency, currency))
		}

		if i == 0 {
			continue
		}
		prev := c.defs[Tiers[i-1]]
		for _, res := range Resources {
			if !lessOrEqual(prev.Quotas.Limit(res), d.Quotas.Limit(res)) {
				return errors.Join(ErrInvalidCatalog,
					fmt.Errorf("%s quota decreases from %s to %s", res, prev.ID, id))
			}
		}
	}
	return nil
}

// Lookup returns the definition for id.
func (c *Catalog) Lookup(id ID) (Definition, bool) {
	d, ok := c.defs[id]
	if !ok {
		return Definition{}, false
	}
	return d.clone(), true
}

// Get returns the definition for id and panics if it is unknown.
func (c *Catalog) Get(id ID) Definition {
	d, ok := c.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("plan: unknown plan %q", id))
	}
	return d
}

// QuotasFor returns the quota set for id. Panics on unknown plans.
func (c *Catalog) QuotasFor(id ID) Quotas {
	return c.Get(id).Quotas
}

// FeaturesFor returns a copy of the feature flags for id. Panics on unknown plans.
func (c *Catalog) FeaturesFor(id ID) map[Feature]bool {
	return c.Get(id).Features
}

// PriceFor returns the monthly price of id. Panics on unknown plans.
func (c *Catalog) PriceFor(id ID) Money {
	return c.Get(id).Price
}

// ByPriceRef maps a billing processor price identifier back to a plan.
func (c *Catalog) ByPriceRef(ref string) (ID, bool) {
	id, ok := c.byRef[ref]
	return id, ok
}

// All returns every definition in tier order.
func (c *Catalog) All() []Definition {
	out := make([]Definition, 0, len(Tiers))
	for _, id := range Tiers {
		out = append(out, c.Get(id))
	}
	return out
}

// Default returns the built-in tiers.
func Default() *Catalog {
	return MustNew(
		Definition{
			ID:       Solo,
			Name:     "Solo",
			Price:    Money{Amount: 2900, Currency: "EUR"},
			PriceRef: "pri_solo_monthly",
			Quotas:   Quotas{MaxLocations: 1, MaxUsers: 1, MaxStorageGB: 5},
			Features: map[Feature]bool{
				FeatureCRM:      true,
				FeatureEmailing: true,
			},
		},
		Definition{
			ID:       Duo,
			Name:     "Duo",
			Price:    Money{Amount: 4900, Currency: "EUR"},
			PriceRef: "pri_duo_monthly",
			Quotas:   Quotas{MaxLocations: 1, MaxUsers: 3, MaxStorageGB: 10},
			Features: map[Feature]bool{
				FeatureCRM:      true,
				FeatureEmailing: true,
				FeatureShop:     true,
				FeatureSMS:      true,
			},
		},
		Definition{
			ID:       Team,
			Name:     "Team",
			Price:    Money{Amount: 8900, Currency: "EUR"},
			PriceRef: "pri_team_monthly",
			Quotas:   Quotas{MaxLocations: 3, MaxUsers: 10, MaxStorageGB: 50},
			Features: map[Feature]bool{
				FeatureCRM:         true,
				FeatureEmailing:    true,
				FeatureShop:        true,
				FeatureSMS:         true,
				FeatureWhatsApp:    true,
				FeatureSocialMedia: true,
			},
		},
		Definition{
			ID:       Premium,
			Name:     "Premium",
			Price:    Money{Amount: 14900, Currency: "EUR"},
			PriceRef: "pri_premium_monthly",
			Quotas:   Quotas{MaxLocations: 10, MaxUsers: Unlimited, MaxStorageGB: 200},
			Features: map[Feature]bool{
				FeatureCRM:           true,
				FeatureEmailing:      true,
				FeatureShop:          true,
				FeatureSMS:           true,
				FeatureWhatsApp:      true,
				FeatureSocialMedia:   true,
				FeatureAdvancedStock: true,
			},
		},
	)
}
