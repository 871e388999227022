package plan

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type yamlCatalog struct {
	Plans []yamlPlan `yaml:"plans"`
}

type yamlPlan struct {
	ID       string    `yaml:"id"`
	Name     string    `yaml:"name"`
	Price    Money     `yaml:"price"`
	PriceRef string    `yaml:"price_ref"`
	Quotas   Quotas    `yaml:"quotas"`
	Features []Feature `yaml:"features"`
}

// LoadYAML reads a catalog document:
//
//	plans:
//	  - id: SOLO
//	    name: Solo
//	    price: {amount: 2900, currency: EUR}
//	    price_ref: pri_solo_monthly
//	    quotas: {max_locations: 1, max_users: 1, max_storage_gb: 5}
//	    features: [crm, emailing]
//
// The result is validated by New.
func LoadYAML(r io.Reader) (*Catalog, error) {
	var doc yamlCatalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Join(ErrFailedToLoad, err)
	}

	defs := make([]Definition, 0, len(doc.Plans))
	for _, p := range doc.Plans {
		id, err := Parse(p.ID)
		if err != nil {
			return nil, errors.Join(ErrFailedToLoad, err)
		}

		features := make(map[Feature]bool, len(p.Features))
		for _, f := range p.Features {
			if !knownFeature(f) {
				return nil, errors.Join(ErrFailedToLoad, fmt.Errorf("plan %s: unknown feature %q", id, f))
			}
			features[f] = true
		}

		defs = append(defs, Definition{
			ID:       id,
			Name:     p.Name,
			Price:    p.Price,
			PriceRef: p.PriceRef,
			Quotas:   p.Quotas,
			Features: features,
		})
	}

	c, err := New(defs...)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoad, err)
	}
	return c, nil
}

// LoadFile is LoadYAML over a file path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoad, err)
	}
	defer f.Close()
	return LoadYAML(f)
}

func knownFeature(f Feature) bool {
	for _, known := range Features {
		if known == f {
			return true
		}
	}
	return false
}
