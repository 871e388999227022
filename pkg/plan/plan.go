package plan

import (
	"fmt"
	"strings"
)

// ID identifies a plan tier.
type ID string

const (
	Solo    ID = "SOLO"
	Duo     ID = "DUO"
	Team    ID = "TEAM"
	Premium ID = "PREMIUM"
)

// Tiers lists every plan in ascending order.
var Tiers = []ID{Solo, Duo, Team, Premium}

// Rank returns the position of the plan in the tier order, or -1 if unknown.
func (id ID) Rank() int {
	for i, t := range Tiers {
		if t == id {
			return i
		}
	}
	return -1
}

// Valid reports whether id is one of the four known tiers.
func (id ID) Valid() bool {
	return id.Rank() >= 0
}

func (id ID) String() string {
	return string(id)
}

// Parse converts user input into a plan ID. Matching is case-insensitive.
func Parse(s string) (ID, error) {
	id := ID(strings.ToUpper(strings.TrimSpace(s)))
	if !id.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlan, s)
	}
	return id, nil
}

// Resource is a countable organization resource capped by a plan quota.
type Resource string

const (
	ResourceLocations Resource = "locations"
	ResourceUsers     Resource = "users"
	ResourceStorageGB Resource = "storage_gb"
)

// Resources lists every quota-bound resource.
var Resources = []Resource{ResourceLocations, ResourceUsers, ResourceStorageGB}

// Unlimited marks a quota without ceiling (-1 chosen for SQL compatibility).
const Unlimited int64 = -1

// Quotas holds the resource ceilings granted by a plan.
type Quotas struct {
	MaxLocations int64 `yaml:"max_locations" json:"max_locations"`
	MaxUsers     int64 `yaml:"max_users" json:"max_users"`
	MaxStorageGB int64 `yaml:"max_storage_gb" json:"max_storage_gb"`
}

// Limit returns the quota for a single resource.
func (q Quotas) Limit(res Resource) int64 {
	switch res {
	case ResourceLocations:
		return q.MaxLocations
	case ResourceUsers:
		return q.MaxUsers
	case ResourceStorageGB:
		return q.MaxStorageGB
	default:
		return 0
	}
}

// Allows reports whether a resource currently at used may grow by one more unit.
func (q Quotas) Allows(res Resource, used int64) bool {
	limit := q.Limit(res)
	if limit == Unlimited {
		return true
	}
	return used < limit
}

// Exceeded lists the resources whose usage is above the quota.
// Existing resources over quota are tolerated; only growth is blocked.
func (q Quotas) Exceeded(usage map[Resource]int64) []Resource {
	var over []Resource
	for _, res := range Resources {
		limit := q.Limit(res)
		if limit != Unlimited && usage[res] > limit {
			over = append(over, res)
		}
	}
	return over
}

// Feature is a capability toggled per plan.
type Feature string

const (
	FeatureCRM           Feature = "crm"
	FeatureEmailing      Feature = "emailing"
	FeatureShop          Feature = "shop"
	FeatureWhatsApp      Feature = "whatsapp"
	FeatureSMS           Feature = "sms"
	FeatureSocialMedia   Feature = "social_media"
	FeatureAdvancedStock Feature = "advanced_stock"
)

// Features lists every known capability.
var Features = []Feature{
	FeatureCRM,
	FeatureEmailing,
	FeatureShop,
	FeatureWhatsApp,
	FeatureSMS,
	FeatureSocialMedia,
	FeatureAdvancedStock,
}

// Definition is the immutable description of a plan tier.
type Definition struct {
	ID       ID
	Name     string
	Price    Money
	PriceRef string // billing processor price identifier
	Quotas   Quotas
	Features map[Feature]bool
}

// Has reports whether the plan enables a feature.
func (d Definition) Has(f Feature) bool {
	return d.Features[f]
}

// clone copies the feature map so callers cannot mutate the catalog.
func (d Definition) clone() Definition {
	features := make(map[Feature]bool, len(Features))
	for _, f := range Features {
		features[f] = d.Features[f]
	}
	d.Features = features
	return d
}

// lessOrEqual compares two quota values where Unlimited is the greatest.
func lessOrEqual(a, b int64) bool {
	if b == Unlimited {
		return true
	}
	if a == Unlimited {
		return false
	}
	return a <= b
}
