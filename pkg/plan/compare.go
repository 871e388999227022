package plan

import "fmt"

// ChangeKind classifies a move between two plans.
type ChangeKind string

const (
	Upgrade   ChangeKind = "upgrade"
	Downgrade ChangeKind = "downgrade"
)

// QuotaChange records a quota moving between plans.
type QuotaChange struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// Change describes the differences between the current and the target plan.
// Used to decide when a plan change takes effect and to explain it to users.
type Change struct {
	From             ID                       `json:"from"`
	To               ID                       `json:"to"`
	Kind             ChangeKind               `json:"kind"`
	NewFeatures      []Feature                `json:"new_features,omitempty"`
	LostFeatures     []Feature                `json:"lost_features,omitempty"`
	IncreasedQuotas  map[Resource]QuotaChange `json:"increased_quotas,omitempty"`
	DecreasedQuotas  map[Resource]QuotaChange `json:"decreased_quotas,omitempty"`
}

// Compare classifies the move from one plan to another.
// A higher monthly price is an upgrade and a lower one a downgrade; equal
// prices fall back to the tier order. Comparing a plan with itself is an error.
func (c *Catalog) Compare(from, to ID) (Change, error) {
	current, ok := c.Lookup(from)
	if !ok {
		return Change{}, fmt.Errorf("%w: %q", ErrUnknownPlan, from)
	}
	target, ok := c.Lookup(to)
	if !ok {
		return Change{}, fmt.Errorf("%w: %q", ErrUnknownPlan, to)
	}
	if from == to {
		return Change{}, fmt.Errorf("plan: %s compared with itself", from)
	}

	change := Change{
		From:            from,
		To:              to,
		IncreasedQuotas: make(map[Resource]QuotaChange),
		DecreasedQuotas: make(map[Resource]QuotaChange),
	}

	switch {
	case target.Price.Amount > current.Price.Amount:
		change.Kind = Upgrade
	case target.Price.Amount < current.Price.Amount:
		change.Kind = Downgrade
	case to.Rank() > from.Rank():
		change.Kind = Upgrade
	default:
		change.Kind = Downgrade
	}

	for _, f := range Features {
		switch {
		case target.Has(f) && !current.Has(f):
			change.NewFeatures = append(change.NewFeatures, f)
		case current.Has(f) && !target.Has(f):
			change.LostFeatures = append(change.LostFeatures, f)
		}
	}

	for _, res := range Resources {
		was, now := current.Quotas.Limit(res), target.Quotas.Limit(res)
		if was == now {
			continue
		}
		// unlimited-to-limited counts as a decrease
		if lessOrEqual(was, now) {
			change.IncreasedQuotas[res] = QuotaChange{From: was, To: now}
		} else {
			change.DecreasedQuotas[res] = QuotaChange{From: was, To: now}
		}
	}

	return change, nil
}

// HasQuotaDecreases reports whether any quota shrinks.
func (c Change) HasQuotaDecreases() bool {
	return len(c.DecreasedQuotas) > 0
}
