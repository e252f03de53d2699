// Package config loads vault definitions from a YAML file.
package config

import (
	"flag"
	"os"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/savium/savium/internal/domain"
)

// AssetConfig describes one accepted asset and its normalization
// weight (how many share units one asset unit is worth).
type AssetConfig struct {
	Name   domain.Asset
	Weight decimal.Decimal
}

// VaultConfig describes one pooled vault.
type VaultConfig struct {
	ID       string
	Strategy string // "none" or "sim"
	Schedule string // cron spec for the operator run
	Assets   []AssetConfig
}

// Config is the full runtime configuration.
type Config struct {
	WalDir string
	Vaults []VaultConfig
}

type assetTmp struct {
	Name   string `yaml:"name"`
	Weight string `yaml:"weight"`
}

type vaultTmp struct {
	ID       string     `yaml:"id"`
	Strategy string     `yaml:"strategy"`
	Schedule string     `yaml:"schedule"`
	Assets   []assetTmp `yaml:"assets"`
}

type configTmp struct {
	WalDir string     `yaml:"wal_dir"`
	Vaults []vaultTmp `yaml:"vaults"`
}

// Get reads the configuration from the file named by --config.
func Get() (Config, error) {
	path := flag.String("config", "config.yaml", "path to yaml config")
	flag.Parse()
	return Load(*path)
}

// Load reads and validates a configuration file.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}

	var tmp configTmp
	if err := yaml.Unmarshal(raw, &tmp); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if len(tmp.Vaults) == 0 {
		return Config{}, errors.New("config defines no vaults")
	}

	cfg := Config{WalDir: tmp.WalDir}
	if cfg.WalDir == "" {
		cfg.WalDir = "./wal/events"
	}
	for _, v := range tmp.Vaults {
		if v.ID == "" {
			return Config{}, errors.New("vault id is required")
		}
		vc := VaultConfig{ID: v.ID, Strategy: v.Strategy, Schedule: v.Schedule}
		if vc.Strategy == "" {
			vc.Strategy = "sim"
		}
		if vc.Schedule == "" {
			vc.Schedule = "0 */10 * * * *"
		}
		if len(v.Assets) == 0 {
			return Config{}, errors.Errorf("vault %s defines no assets", v.ID)
		}
		for _, a := range v.Assets {
			weight := decimal.NewFromInt(1)
			if a.Weight != "" {
				weight, err = decimal.NewFromString(a.Weight)
				if err != nil {
					return Config{}, errors.Wrapf(err, "weight of %s in vault %s", a.Name, v.ID)
				}
			}
			if !weight.IsPositive() {
				return Config{}, errors.Errorf("weight of %s in vault %s must be positive", a.Name, v.ID)
			}
			vc.Assets = append(vc.Assets, AssetConfig{Name: domain.Asset(a.Name), Weight: weight})
		}
		cfg.Vaults = append(cfg.Vaults, vc)
	}
	return cfg, nil
}
