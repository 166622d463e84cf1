package strategy

import "fmt"

type FactoryConfig struct {
	Strategy            string // "emacross" (default)
	EMAFast             int
	EMASlow             int
	RequireConfirmation bool
}

func NewEngine(cfg FactoryConfig) (Engine, error) {
	switch cfg.Strategy {
	case "emacross", "":
		return NewEMACross(EMACrossConfig{
			Fast:                cfg.EMAFast,
			Slow:                cfg.EMASlow,
			RequireConfirmation: cfg.RequireConfirmation,
		})
	default:
		return nil, fmt.Errorf("unknown strategy %q", cfg.Strategy)
	}
}
