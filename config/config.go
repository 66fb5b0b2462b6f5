package config

import (
	"log"
	"time"

	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HTTP        HTTP
	Postgres    Postgres
	Redis       Redis
	API         API
	Breaker     Breaker
	Cache       Cache
	Jobs        Jobs
	Valuation   Valuation
	Persist     Persist
	Auth        Auth
	GoogleDrive GoogleDrive
}

type HTTP struct {
	Port            int           `env:"HTTP_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	CookieName      string        `env:"HTTP_COOKIE_NAME" envDefault:"token"`
	CookieSecure    bool          `env:"HTTP_COOKIE_SECURE" envDefault:"false"`
	ClientUrl       string        `env:"CLIENT_URL" envDefault:"*"`
}

type Postgres struct {
	Host            string `env:"PG_HOST"`
	Port            int    `env:"PG_PORT"`
	DbName          string `env:"PG_DB_NAME"`
	Password        string `env:"PG_PASSWORD"`
	User            string `env:"PG_USER"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME" envDefault:"300"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"60"`
	MigrationDir    string `env:"PG_MIGRATION_DIR" envDefault:"migrations"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST"`
	Port     int    `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type API struct {
	Debug         bool          `env:"API_DEBUG" envDefault:"false"`
	Timeout       time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	CoinMarketCap CoinMarketCap
	ApiNinjas     ApiNinjas
}

type CoinMarketCap struct {
	Url    string  `env:"COINMARKETCAP_API_URL" envDefault:"https://pro-api.coinmarketcap.com"`
	ApiKey string  `env:"COINMARKETCAP_API_KEY"`
	RPS    float64 `env:"COINMARKETCAP_RPS" envDefault:"0.5"`
}

type ApiNinjas struct {
	Url    string  `env:"API_NINJAS_URL" envDefault:"https://api.api-ninjas.com"`
	ApiKey string  `env:"API_NINJAS_KEY"`
	RPS    float64 `env:"API_NINJAS_RPS" envDefault:"1"`
}

type Breaker struct {
	MaxFailures uint32        `env:"BREAKER_MAX_FAILURES" envDefault:"3"`
	OpenTimeout time.Duration `env:"BREAKER_OPEN_TIMEOUT" envDefault:"5m"`
}

type Cache struct {
	LatestPortfolioExpiration time.Duration `env:"CACHE_LATEST_PORTFOLIO_EXPIRATION" envDefault:"2m"`
}

type Jobs struct {
	TickInterval   time.Duration `env:"TICK_JOB_INTERVAL" envDefault:"1m"`
	TickStartDelay time.Duration `env:"TICK_JOB_START_DELAY" envDefault:"5s"`
	// DriveCleanupInterval only applies when Google Drive is configured.
	DriveCleanupInterval time.Duration `env:"DRIVE_CLEANUP_JOB_INTERVAL" envDefault:"24h"`
}

type Valuation struct {
	InitialNav decimal.Decimal `env:"VALUATION_INITIAL_NAV" envDefault:"482216.56"`
	// ElapsedFraction scales 24h percent changes down to one tick; zero means derive from TickInterval.
	ElapsedFraction decimal.Decimal         `env:"VALUATION_ELAPSED_FRACTION" envDefault:"0"`
	StableYield     decimal.Decimal         `env:"VALUATION_STABLE_DAILY_YIELD" envDefault:"0.014"`
	ChartWindow     int                     `env:"VALUATION_CHART_WINDOW" envDefault:"60"`
	Allocations     model.AllocationConfigs `env:"VALUATION_ALLOCATIONS" envDefault:"A|Bitcoin Allocation|0.49|BTC;B|Ethereum Allocation|0.267|ETH;C|Stablecoin Allocation|0.243|STABLE"`
}

type Persist struct {
	MaxAttempts int           `env:"PERSIST_MAX_ATTEMPTS" envDefault:"3"`
	MinBackoff  time.Duration `env:"PERSIST_MIN_BACKOFF" envDefault:"100ms"`
	MaxBackoff  time.Duration `env:"PERSIST_MAX_BACKOFF" envDefault:"2s"`
}

type Auth struct {
	TokenSecret   string        `env:"TOKEN_SECRET"`
	TokenTTL      time.Duration `env:"TOKEN_EXPIRES_TIME" envDefault:"168h"`
	AdminEmail    string        `env:"SUPER_ADMIN_EMAIL"`
	AdminPassword string        `env:"SUPER_ADMIN_PASS"`
	AdminFullName string        `env:"SUPER_ADMIN_NAME" envDefault:"Super Admin"`
}

type GoogleDrive struct {
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE" envDefault:""`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL" envDefault:"168h"`
}

// TickElapsedFraction is the number of ticks in 24 hours unless set explicitly.
func (c *Config) TickElapsedFraction() decimal.Decimal {
	if c.Valuation.ElapsedFraction.IsPositive() {
		return c.Valuation.ElapsedFraction
	}
	if c.Jobs.TickInterval <= 0 {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(int64(24 * time.Hour)).Div(decimal.NewFromInt(int64(c.Jobs.TickInterval)))
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg, err := Load()
	if err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}

func Load() (*Config, error) {
	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, err
	}

	return cfg, nil
}
