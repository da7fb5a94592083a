// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"

	"github.com/adeavid/degenie/internal/curve"
)

type Config struct {
	ProgramID      string `mapstructure:"program_id"`
	PlatformWallet string `mapstructure:"platform_wallet"`
	DatabasePath   string `mapstructure:"database_path"`
	MetricsAddr    string `mapstructure:"metrics_addr"`
	LogFile        string `mapstructure:"log_file"`
	DebugLogging   bool   `mapstructure:"debug_logging"`

	// RPCEndpoint and AuthorityKey select on-chain custody; leaving them
	// empty runs the engine against the in-memory simulation custody.
	RPCEndpoint     string `mapstructure:"rpc_endpoint"`
	AuthorityKey    string `mapstructure:"authority_key"`
	MetadataProgram string `mapstructure:"metadata_program"`

	Fees  FeesConfig  `mapstructure:"fees"`
	Guard GuardConfig `mapstructure:"guard"`

	// GraduationThreshold overrides the 500-SOL default, for test networks.
	GraduationThreshold uint64 `mapstructure:"graduation_threshold"`
}

type FeesConfig struct {
	CreationFee       uint64 `mapstructure:"creation_fee"`
	TransactionFeeBps uint64 `mapstructure:"transaction_fee_bps"`
	CreatorFeeBps     uint64 `mapstructure:"creator_fee_bps"`
	PlatformFeeBps    uint64 `mapstructure:"platform_fee_bps"`
}

type GuardConfig struct {
	LaunchProtectionPeriod int64  `mapstructure:"launch_protection_period"`
	MaxBuyDuringProtection uint64 `mapstructure:"max_buy_during_protection"`
	TransactionCooldown    int64  `mapstructure:"transaction_cooldown"`
	MaxPriceImpactBps      uint64 `mapstructure:"max_price_impact_bps"`
}

const (
	DefaultDatabasePath        = "degenie.db"
	DefaultMetricsAddr         = ":9090"
	DefaultTransactionFeeBps   = 100 // 1%
	DefaultCreatorFeeBps       = 50
	DefaultPlatformFeeBps      = 50
	DefaultCooldownSeconds     = 30
	DefaultLaunchWindowSeconds = 3600
	DefaultLaunchBuyCap        = 5 * curve.LamportsPerSOL
	DefaultMaxPriceImpactBps   = 500 // 5%
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"database_path":                   DefaultDatabasePath,
		"metrics_addr":                    DefaultMetricsAddr,
		"fees.transaction_fee_bps":        DefaultTransactionFeeBps,
		"fees.creator_fee_bps":            DefaultCreatorFeeBps,
		"fees.platform_fee_bps":           DefaultPlatformFeeBps,
		"guard.transaction_cooldown":      DefaultCooldownSeconds,
		"guard.launch_protection_period":  DefaultLaunchWindowSeconds,
		"guard.max_buy_during_protection": DefaultLaunchBuyCap,
		"guard.max_price_impact_bps":      DefaultMaxPriceImpactBps,
		"graduation_threshold":            uint64(curve.DefaultGraduationThreshold),
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.ProgramID == "" {
		return errors.New("missing program_id in configuration")
	}
	if _, err := solana.PublicKeyFromBase58(cfg.ProgramID); err != nil {
		return errors.New("invalid program_id")
	}
	if cfg.PlatformWallet == "" {
		return errors.New("missing platform_wallet in configuration")
	}
	if _, err := solana.PublicKeyFromBase58(cfg.PlatformWallet); err != nil {
		return errors.New("invalid platform_wallet")
	}
	if cfg.DatabasePath == "" {
		return errors.New("database_path is empty")
	}
	if cfg.RPCEndpoint != "" {
		if _, err := solana.PrivateKeyFromBase58(cfg.AuthorityKey); err != nil {
			return errors.New("invalid authority_key")
		}
		if _, err := solana.PublicKeyFromBase58(cfg.MetadataProgram); err != nil {
			return errors.New("invalid metadata_program")
		}
	}
	if err := curve.ValidateFees(cfg.Fees.Curve()); err != nil {
		return err
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.Guard.TransactionCooldown < 0 {
		return errors.New("invalid transaction_cooldown")
	}
	if cfg.Guard.LaunchProtectionPeriod < 0 {
		return errors.New("invalid launch_protection_period")
	}
	if cfg.Guard.MaxPriceImpactBps == 0 {
		return errors.New("invalid max_price_impact_bps")
	}
	if cfg.GraduationThreshold == 0 {
		return errors.New("invalid graduation_threshold")
	}
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("DEGENIE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if envProgram := v.GetString("PROGRAM_ID"); envProgram != "" {
		cfg.ProgramID = envProgram
	}
	if envWallet := v.GetString("PLATFORM_WALLET"); envWallet != "" {
		cfg.PlatformWallet = envWallet
	}
	if envDB := v.GetString("DATABASE_PATH"); envDB != "" {
		cfg.DatabasePath = envDB
	}
	return nil
}

// Curve converts the fee section into the engine's fee schedule.
func (f FeesConfig) Curve() curve.FeeConfig {
	return curve.FeeConfig{
		CreationFee:       f.CreationFee,
		TransactionFeeBps: f.TransactionFeeBps,
		CreatorFeeBps:     f.CreatorFeeBps,
		PlatformFeeBps:    f.PlatformFeeBps,
	}
}

// Curve converts the guard section into per-curve guard parameters; the
// creation timestamp is stamped at initialization.
func (g GuardConfig) Curve() curve.GuardConfig {
	return curve.GuardConfig{
		LaunchProtectionPeriod: g.LaunchProtectionPeriod,
		MaxBuyDuringProtection: g.MaxBuyDuringProtection,
		TransactionCooldown:    g.TransactionCooldown,
		MaxPriceImpactBps:      g.MaxPriceImpactBps,
	}
}
