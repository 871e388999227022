// Package plan defines the subscription tiers offered to organizations and the
// quotas and feature flags each tier grants.
//
// A Catalog is an immutable lookup table constructed once at startup and passed
// explicitly to the components that need it. It is never stored in package
// state, so tests can substitute their own tiers.
//
// # Tiers
//
// Four tiers exist and are ordered SOLO < DUO < TEAM < PREMIUM. New refuses a
// catalog whose quotas decrease along that order:
//
//	cat, err := plan.New(defs...)
//	if errors.Is(err, plan.ErrInvalidCatalog) {
//		// misconfigured tiers
//	}
//
// Default returns the built-in tiers. LoadYAML reads the same structure from a
// YAML document so prices and quotas can be changed without a release.
//
// # Lookups
//
// QuotasFor, FeaturesFor and PriceFor are total over the four known tiers and
// panic on anything else, since an unknown tier identifier reaching them is a
// programming error. Untrusted input (webhook payloads, admin forms) must go
// through Lookup, Parse or ByPriceRef first.
//
// # Plan changes
//
// Compare classifies a move between two tiers as an upgrade or a downgrade by
// monthly price and reports the features and quotas that change.
package plan
