package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Twitter  TwitterConfig
	Solana   SolanaConfig
	OpenAI   OpenAIConfig
	Scoring  ScoringConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// KafkaConfig holds Kafka/Redpanda configuration
type KafkaConfig struct {
	Brokers       []string
	CallsTopic    string
	AlertsTopic   string
	ConsumerGroup string
}

// TwitterConfig holds Twitter API configuration
type TwitterConfig struct {
	BearerToken string
	BaseURL     string
}

// SolanaConfig holds blockchain RPC configuration
type SolanaConfig struct {
	RPCURL     string
	JupiterURL string
}

// OpenAIConfig holds language-model configuration
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// ScoringConfig holds the trust and risk heuristic thresholds.
// Components receive this struct at construction so tests can run
// against alternate threshold sets.
type ScoringConfig struct {
	MinLiquiditySOL     float64
	MinTokenAgeDays     int
	MinHolderCount      int
	ScamThreshold       float64
	ScamPenalty         int
	MinCredibilityScore float64
	MinAccountAgeDays   int
	MinFollowers        int
	ReportWindowDays    int
	MonitorMinAgeHours  int
	WatchScanSchedule   string
	PerformanceSchedule string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8082"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "postgres"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "koltracker"),
			Password: getEnv("DB_PASSWORD", "koltracker"),
			DBName:   getEnv("DB_NAME", "kol_trust"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       0,
		},
		Kafka: KafkaConfig{
			Brokers:       parseBrokers(getEnv("KAFKA_BROKERS", "localhost:19092")),
			CallsTopic:    getEnv("KAFKA_CALLS_TOPIC", "kol.token-calls"),
			AlertsTopic:   getEnv("KAFKA_ALERTS_TOPIC", "kol.alerts"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "kol-trust-service"),
		},
		Twitter: TwitterConfig{
			BearerToken: getEnv("TWITTER_BEARER_TOKEN", ""),
			BaseURL:     getEnv("TWITTER_BASE_URL", "https://api.twitter.com/2"),
		},
		Solana: SolanaConfig{
			RPCURL:     getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
			JupiterURL: getEnv("JUPITER_API_URL", "https://price.jup.ag/v4"),
		},
		OpenAI: OpenAIConfig{
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			Model:       getEnv("OPENAI_MODEL", "gpt-4-turbo-preview"),
			MaxTokens:   getEnvInt("OPENAI_MAX_TOKENS", 500),
			Temperature: getEnvFloat("OPENAI_TEMPERATURE", 0.3),
		},
		Scoring: ScoringConfig{
			MinLiquiditySOL:     getEnvFloat("MIN_LIQUIDITY_SOL", 10),
			MinTokenAgeDays:     getEnvInt("MIN_TOKEN_AGE_DAYS", 3),
			MinHolderCount:      getEnvInt("MIN_HOLDER_COUNT", 100),
			ScamThreshold:       getEnvFloat("SCAM_DETECTION_THRESHOLD", 0.7),
			ScamPenalty:         getEnvInt("SCAM_PENALTY", 10),
			MinCredibilityScore: getEnvFloat("MIN_CREDIBILITY_SCORE", 0.7),
			MinAccountAgeDays:   getEnvInt("TWITTER_MIN_ACCOUNT_AGE_DAYS", 90),
			MinFollowers:        getEnvInt("TWITTER_MIN_FOLLOWERS", 100),
			ReportWindowDays:    getEnvInt("REPORT_WINDOW_DAYS", 30),
			MonitorMinAgeHours:  getEnvInt("MONITOR_MIN_AGE_HOURS", 24),
			WatchScanSchedule:   getEnv("WATCH_SCAN_SCHEDULE", "@every 1h"),
			PerformanceSchedule: getEnv("PERFORMANCE_SCHEDULE", "@every 24h"),
		},
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Address returns the Redis address in host:port format
func (r *RedisConfig) Address() string {
	return r.Host + ":" + r.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// parseBrokers splits a comma-separated broker list
func parseBrokers(brokers string) []string {
	parts := strings.Split(brokers, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
