// Command savium runs the pooled-vault accounting engine with the
// vaults defined in a YAML configuration file. Each vault escrows
// deposits on hold, deploys them to its configured yield strategy on a
// cron schedule and distributes harvested gains to share holders.
//
// Usage:
//
//	savium --config config.yaml
package main

import (
	"log"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/savium/savium/config"
	"github.com/savium/savium/internal/domain"
	"github.com/savium/savium/internal/savings"
	"github.com/savium/savium/internal/scheduler"
	"github.com/savium/savium/internal/shares"
	"github.com/savium/savium/internal/storage/journal"
	"github.com/savium/savium/internal/strategy"
	"github.com/savium/savium/internal/transfer"
	"github.com/savium/savium/internal/vault"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	jnl, err := journal.Open(cfg.WalDir)
	if err != nil {
		log.Fatal(err)
	}
	defer jnl.Close()

	operator := domain.NewOperatorToken()
	orch := savings.New(logger, operator, jnl)
	sched := scheduler.New(logger, orch, operator)

	for _, vc := range cfg.Vaults {
		custody := domain.AccountFromHex(vc.ID)
		agents := make(map[domain.Asset]transfer.Agent, len(vc.Assets))
		weights := make(map[domain.Asset]decimal.Decimal, len(vc.Assets))
		for _, a := range vc.Assets {
			bank := transfer.NewBank(a.Name)
			agents[a.Name] = bank.AgentFor(custody)
			weights[a.Name] = a.Weight
		}

		v, err := vault.New(vc.ID, logger, operator, agents, buildStrategy(vc.Strategy, logger), jnl)
		if err != nil {
			log.Fatal(err)
		}
		if err := orch.Register(v, shares.New(), weights); err != nil {
			log.Fatal(err)
		}
		if err := sched.Register(vc.ID, vc.Schedule); err != nil {
			log.Fatal(err)
		}
		logger.Info("vault registered",
			zap.String("vault", vc.ID),
			zap.String("strategy", vc.Strategy),
			zap.String("schedule", vc.Schedule))
	}

	sched.Start()
	defer sched.Stop()

	select {}
}

func buildStrategy(kind string, logger *zap.Logger) strategy.Strategy {
	switch kind {
	case "none":
		return strategy.NewNone()
	default:
		return strategy.NewSim(logger)
	}
}
