package params

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type API struct {
	Addr string
	// CORSOrigins lists allowed browser origins; "*" allows all.
	CORSOrigins []string
	// WriteTimeout bounds how long a slow websocket client can stall a
	// broadcast before being dropped.
	WriteTimeout time.Duration
}

type Store struct {
	// Persist enables the Pebble snapshot store; off, ledgers live only
	// in memory and vanish on restart.
	Persist bool
	DataDir string
}

type Config struct {
	API     API
	Store   Store
	LogFile string
}

func Default() Config {
	return Config{
		API: API{
			Addr:         ":8080",
			CORSOrigins:  []string{"*"},
			WriteTimeout: 10 * time.Second,
		},
		Store: Store{
			Persist: true,
			DataDir: "./data",
		},
		LogFile: "",
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// .env is optional; missing file is not an error
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if addr := os.Getenv("LEDGER_API_ADDR"); addr != "" {
		cfg.API.Addr = addr
	}
	if origins := os.Getenv("LEDGER_CORS_ORIGINS"); origins != "" {
		cfg.API.CORSOrigins = strings.Split(origins, ",")
	}
	if persist := os.Getenv("LEDGER_PERSIST"); persist != "" {
		cfg.Store.Persist = persist == "true"
	}
	if dir := os.Getenv("LEDGER_DATA_DIR"); dir != "" {
		cfg.Store.DataDir = dir
	}
	if logFile := os.Getenv("LEDGER_LOG_FILE"); logFile != "" {
		cfg.LogFile = logFile
	}

	return cfg
}
