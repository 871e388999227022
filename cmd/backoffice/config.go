package main

import (
	"time"

	"golang.org/x/text/language"

	"github.com/beautydesk/backoffice/pkg/plan"
	"github.com/beautydesk/backoffice/pkg/sweep"
)

type appConfig struct {
	DashboardURL string `env:"APP_DASHBOARD_URL" envDefault:"https://app.beautydesk.io"`
	Language     string `env:"APP_LANGUAGE" envDefault:"fr"`
	TrialDays    int    `env:"APP_TRIAL_DAYS" envDefault:"30"`
	// PlanCatalog is a YAML file replacing the built-in catalog.
	PlanCatalog string `env:"APP_PLAN_CATALOG"`
}

func (c appConfig) language() language.Tag {
	tag, err := language.Parse(c.Language)
	if err != nil {
		return language.French
	}
	return tag
}

func (c appConfig) catalog() (*plan.Catalog, error) {
	if c.PlanCatalog == "" {
		return plan.Default(), nil
	}
	return plan.LoadFile(c.PlanCatalog)
}

type sweepConfig struct {
	InProcess   bool          `env:"SWEEP_IN_PROCESS" envDefault:"false"`
	Hour        int           `env:"SWEEP_HOUR" envDefault:"6"`
	Minute      int           `env:"SWEEP_MINUTE" envDefault:"0"`
	Timezone    string        `env:"SWEEP_TIMEZONE" envDefault:"Europe/Paris"`
	Concurrency int           `env:"SWEEP_CONCURRENCY" envDefault:"8"`
	PageSize    int           `env:"SWEEP_PAGE_SIZE" envDefault:"500"`
	LeaseTTL    time.Duration `env:"SWEEP_LEASE_TTL" envDefault:"30m"`
}

func (c sweepConfig) schedule() (sweep.Daily, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return sweep.Daily{}, err
	}
	d := sweep.Daily{Hour: c.Hour, Minute: c.Minute, Location: loc}
	return d, d.Validate()
}
