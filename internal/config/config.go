package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Kafka      KafkaConfig
	Logging    LoggingConfig
	Backtest   BacktestDefaults
	ServiceKey string
}

// ServerConfig holds server specific configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds database specific configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// KafkaConfig holds Kafka specific configuration. An empty broker list
// disables event publishing.
type KafkaConfig struct {
	Brokers string
	Topics  map[string]string
}

// LoggingConfig holds logging specific configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// BacktestDefaults holds the default strategy, risk and execution parameters
// applied to runs that do not override them
type BacktestDefaults struct {
	InitialCapital        float64
	ATRPeriod             int
	MAPeriod              int
	MASlopePeriod         int
	BreakoutPeriod        int
	ExitPeriod            int
	StopATRMultiple       float64
	CooldownDays          int
	RiskPerTrade          float64
	SlippageTicks         float64
	CommissionPerContract float64
	DrawdownWarningPct    float64
	DrawdownHaltPct       float64
	DailyLossLimitPct     float64
}

// LoadConfig loads the configuration from file and environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8085")
	v.SetDefault("server.readTimeout", "10s")
	v.SetDefault("server.writeTimeout", "30s")
	v.SetDefault("server.idleTimeout", "120s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.dbname", "volatility_edge")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", "30m")

	// Kafka topic defaults
	v.SetDefault("kafka.topics.backtests", "backtest-events")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Backtest parameter defaults
	v.SetDefault("backtest.initialCapital", 100000.0)
	v.SetDefault("backtest.atrPeriod", 20)
	v.SetDefault("backtest.maPeriod", 50)
	v.SetDefault("backtest.maSlopePeriod", 10)
	v.SetDefault("backtest.breakoutPeriod", 20)
	v.SetDefault("backtest.exitPeriod", 10)
	v.SetDefault("backtest.stopATRMultiple", 2.0)
	v.SetDefault("backtest.cooldownDays", 3)
	v.SetDefault("backtest.riskPerTrade", 0.005)
	v.SetDefault("backtest.slippageTicks", 1.0)
	v.SetDefault("backtest.commissionPerContract", 2.50)
	v.SetDefault("backtest.drawdownWarningPct", 0.10)
	v.SetDefault("backtest.drawdownHaltPct", 0.15)
	v.SetDefault("backtest.dailyLossLimitPct", 0.02)
}
