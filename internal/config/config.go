package config

import (
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	MongoDB MongoDBConfig `mapstructure:"mongodb"`
	Redis   RedisConfig   `mapstructure:"redis"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	Game    GameConfig    `mapstructure:"game"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Host         string `mapstructure:"host"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// MongoDBConfig holds MongoDB connection configuration
type MongoDBConfig struct {
	URI       string `mapstructure:"uri"`
	Database  string `mapstructure:"database"`
	GamesColl string `mapstructure:"games_collection"`
	CardColl  string `mapstructure:"card_collection"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	URI      string `mapstructure:"uri"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret     string `mapstructure:"secret"`
	Expiration int    `mapstructure:"expiration"` // in hours
}

// GameConfig holds the default rule set and session housekeeping knobs.
// Per-game overrides arrive through the create-game request.
type GameConfig struct {
	MaxPlayers             int `mapstructure:"max_players"`
	MinimumPlayersToStart  int `mapstructure:"minimum_players_to_start"`
	StartingCash           int `mapstructure:"starting_cash"`
	WinningNetWorth        int `mapstructure:"winning_net_worth"`
	MaxTurns               int `mapstructure:"max_turns"`
	DebtCeiling            int `mapstructure:"debt_ceiling"`
	InterestPercent        int `mapstructure:"interest_percent"`
	LoanFeePercent         int `mapstructure:"loan_fee_percent"`
	LoanIncrement          int `mapstructure:"loan_increment"`
	SideJobPay             int `mapstructure:"side_job_pay"`
	AuctionCashFloor       int `mapstructure:"auction_cash_floor"`
	TurnTimeout            int `mapstructure:"turn_timeout"`          // in seconds
	DisconnectionTimeout   int `mapstructure:"disconnection_timeout"` // in seconds
	IdleGameExpiryDuration int `mapstructure:"idle_game_expiry"`      // in hours
}

// Load reads configuration from a file or environment variables
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/farmline-backend")

	// Environment variables
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found; we'll just use environment and defaults
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default values for configuration
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", 15)
	viper.SetDefault("server.write_timeout", 15)

	// MongoDB defaults
	viper.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongodb.database", "farmline")
	viper.SetDefault("mongodb.games_collection", "games")
	viper.SetDefault("mongodb.card_collection", "cards")

	// Redis defaults
	viper.SetDefault("redis.uri", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// JWT defaults
	viper.SetDefault("jwt.secret", "replace-with-secure-secret")
	viper.SetDefault("jwt.expiration", 24)

	// Game rule defaults
	viper.SetDefault("game.max_players", 6)
	viper.SetDefault("game.minimum_players_to_start", 2)
	viper.SetDefault("game.starting_cash", 5000)
	viper.SetDefault("game.winning_net_worth", 250000)
	viper.SetDefault("game.max_turns", 0) // 0 means no turn limit
	viper.SetDefault("game.debt_ceiling", 50000)
	viper.SetDefault("game.interest_percent", 10)
	viper.SetDefault("game.loan_fee_percent", 20)
	viper.SetDefault("game.loan_increment", 5000)
	viper.SetDefault("game.side_job_pay", 5000)
	viper.SetDefault("game.auction_cash_floor", 5000)
	viper.SetDefault("game.turn_timeout", 120)
	viper.SetDefault("game.disconnection_timeout", 180) // 3 minutes
	viper.SetDefault("game.idle_game_expiry", 24)
}
