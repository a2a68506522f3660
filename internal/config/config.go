package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// IstLoc is the timezone used for user-facing timestamps (NSE trading hours).
var IstLoc = time.FixedZone("IST", 5*3600+1800)

// Benchmark providers.
const (
	BenchmarkYahoo  = "yahoo"
	BenchmarkAlpaca = "alpaca"
)

// Config holds every tunable of the tracker.
type Config struct {
	Version string

	LedgerPath string // .csv (default) or .db/.sqlite
	Currency   string // display only, no conversion

	LogLevel      string
	LogFile       string
	MaxLogSizeMB  int64
	MaxLogBackups int

	NAVBaseURL     string
	AMFIURL        string
	HTTPTimeoutSec int

	BenchmarkProvider string
	BenchmarkSymbol   string
	BenchmarkDays     int // history requested from the provider
	DipWindowDays     int // closes scanned for the peak
	DipThresholdPct   float64

	PollIntervalMins int
	TelegramBotToken string
	TelegramChatID   string
}

// secretVars are masked when the .env content is echoed.
var secretVars = map[string]bool{
	"APCA_API_KEY_ID":     true,
	"APCA_API_SECRET_KEY": true,
	"TELEGRAM_BOT_TOKEN":  true,
}

// Load reads a .env file if present, then the process environment, and
// applies defaults for everything unset.
func Load() *Config {
	// Load .env variables into the process environment
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, using system environment variables")
	}

	cfg := &Config{
		LedgerPath: getEnv("LEDGER_PATH", "portfolio.csv"),
		Currency:   strings.ToUpper(getEnv("DISPLAY_CURRENCY", "INR")),

		LogLevel:      strings.ToUpper(getEnv("LOG_LEVEL", "INFO")),
		LogFile:       getEnv("LOG_FILE", "mf_tracker.log"),
		MaxLogSizeMB:  int64(getEnvAsInt("MAX_LOG_SIZE_MB", 10)),
		MaxLogBackups: getEnvAsInt("MAX_LOG_BACKUPS", 3),

		NAVBaseURL:     getEnv("NAV_BASE_URL", "https://api.mfapi.in"),
		AMFIURL:        getEnv("AMFI_NAV_URL", "https://www.amfiindia.com/spages/NAVAll.txt"),
		HTTPTimeoutSec: getEnvAsInt("HTTP_TIMEOUT_SEC", 15),

		BenchmarkProvider: strings.ToLower(getEnv("BENCHMARK_PROVIDER", BenchmarkYahoo)),
		BenchmarkSymbol:   getEnv("BENCHMARK_SYMBOL", "^NSEI"),
		BenchmarkDays:     getEnvAsInt("BENCHMARK_DAYS", 60),
		DipWindowDays:     getEnvAsInt("DIP_WINDOW_DAYS", 30),
		DipThresholdPct:   getEnvAsFloat64("DIP_BUY_THRESHOLD_PCT", 5.0),

		PollIntervalMins: getEnvAsInt("POLL_INTERVAL_MINS", 60),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
	}

	if cfg.LogLevel == "DEBUG" {
		printEnvFile()
	}
	return cfg
}

// Validate reports settings that would make the selected providers unusable.
func (c *Config) Validate() error {
	var problems []string

	switch c.BenchmarkProvider {
	case BenchmarkYahoo:
	case BenchmarkAlpaca:
		for _, key := range []string{"APCA_API_KEY_ID", "APCA_API_SECRET_KEY"} {
			if os.Getenv(key) == "" {
				problems = append(problems, "missing "+key)
			}
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown BENCHMARK_PROVIDER %q", c.BenchmarkProvider))
	}
	if c.PollIntervalMins <= 0 {
		problems = append(problems, "POLL_INTERVAL_MINS must be positive")
	}
	if c.HTTPTimeoutSec <= 0 {
		problems = append(problems, "HTTP_TIMEOUT_SEC must be positive")
	}
	if c.DipThresholdPct <= 0 {
		problems = append(problems, "DIP_BUY_THRESHOLD_PCT must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// HTTPTimeout is HTTPTimeoutSec as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// printEnvFile logs the variables defined in .env with secrets masked.
func printEnvFile() {
	envMap, err := godotenv.Read()
	if err != nil {
		return
	}
	log.Println("--- .env File Variables ---")
	for key, val := range envMap {
		log.Printf("%s=%s", key, mask(key, val))
	}
	log.Println("---------------------------")
}

func mask(key, val string) string {
	if !secretVars[key] {
		return val
	}
	// Mask secret values: show only last 4 chars
	if len(val) > 4 {
		return "***" + val[len(val)-4:]
	}
	return "***"
}
