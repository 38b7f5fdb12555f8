package config

import (
	"fmt"
	"log"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"mongo"`

	MongoURI           string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017/"`
	MongoDB            string `env:"MONGO_DB" envDefault:"amazon_scraper"`
	ScheduleCollection string `env:"SCHEDULE_COLLECTION" envDefault:"scrape_schedules"`

	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"scraper"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"scraper123"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"amazon_scraper"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	Scraper   Scraper
	Scheduler Scheduler
	Alerts    Alerts

	HTTPAddr       string `env:"HTTP_ADDR" envDefault:":8000"`
	CSVOutputPath  string `env:"CSV_OUTPUT_PATH"`
	DiagnosticsDir string `env:"DIAGNOSTICS_DIR" envDefault:"./diagnostics"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string `env:"LOG_FORMAT" envDefault:"console"`
}

// Scraper holds browser and crawl settings.
type Scraper struct {
	BrowserDriver string `env:"BROWSER_DRIVER" envDefault:"chromedp"`
	Headless      bool   `env:"HEADLESS" envDefault:"true"`
	ChromeBin     string `env:"CHROME_BIN"`
	UserAgent     string `env:"USER_AGENT" envDefault:"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"`

	SearchURL string `env:"SEARCH_URL" envDefault:"https://www.amazon.in/s?k=%s"`
	BaseURL   string `env:"BASE_URL" envDefault:"https://www.amazon.in"`

	MaxPages    int           `env:"MAX_PAGES" envDefault:"5"`
	MaxProducts int           `env:"MAX_PRODUCTS" envDefault:"5"`
	NavTimeout  time.Duration `env:"NAV_TIMEOUT" envDefault:"60s"`
	WaitTimeout time.Duration `env:"WAIT_TIMEOUT" envDefault:"10s"`
	MaxRetries  int           `env:"MAX_RETRIES" envDefault:"3"`
	RateLimitMs int           `env:"RATE_LIMIT_MS" envDefault:"2000"`

	ItemDelayMin time.Duration `env:"ITEM_DELAY_MIN" envDefault:"2s"`
	ItemDelayMax time.Duration `env:"ITEM_DELAY_MAX" envDefault:"4s"`
	PageDelayMin time.Duration `env:"PAGE_DELAY_MIN" envDefault:"3s"`
	PageDelayMax time.Duration `env:"PAGE_DELAY_MAX" envDefault:"6s"`
}

// Scheduler holds polling and run coordination settings.
type Scheduler struct {
	PollInterval      time.Duration `env:"POLL_INTERVAL" envDefault:"1m"`
	MaxConcurrentRuns int           `env:"MAX_CONCURRENT_RUNS" envDefault:"4"`
	IsolateCategories bool          `env:"ISOLATE_CATEGORY_FAILURES" envDefault:"false"`

	// ResetStaleRuns fails schedules still flagged running at startup. Disable when several instances share a store.
	ResetStaleRuns bool `env:"RESET_STALE_RUNS" envDefault:"true"`

	RecentWindow   time.Duration `env:"RECENT_RUN_WINDOW" envDefault:"5m"`
	RecentDelayMin time.Duration `env:"RECENT_DELAY_MIN" envDefault:"30s"`
	RecentDelayMax time.Duration `env:"RECENT_DELAY_MAX" envDefault:"90s"`
	StartDelayMin  time.Duration `env:"START_DELAY_MIN" envDefault:"1s"`
	StartDelayMax  time.Duration `env:"START_DELAY_MAX" envDefault:"5s"`

	Categories map[string]string `env:"CATEGORIES" envDefault:"mobile:mobiles,laptop:laptops,sofa:sofas,toys:toys,shirts:shirts"`
}

// Alerts holds failure notification settings. Empty hosts/urls disable a channel.
type Alerts struct {
	SMTPHost     string   `env:"SMTP_HOST"`
	SMTPPort     int      `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string   `env:"SMTP_USER"`
	SMTPPassword string   `env:"SMTP_PASSWORD"`
	From         string   `env:"ALERT_FROM"`
	To           []string `env:"ALERT_TO" envSeparator:","`

	RabbitMQURL        string `env:"RABBITMQ_URL"`
	RabbitMQExchange   string `env:"RABBITMQ_EXCHANGE" envDefault:"scraper-alerts"`
	RabbitMQRoutingKey string `env:"RABBITMQ_ROUTING_KEY" envDefault:"scrape.failed"`
}

// Load reads the .env file and returns a populated Config struct.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	var cfg Config
	funcs := map[reflect.Type]env.ParserFunc{
		reflect.TypeOf(map[string]string{}): parseCategories,
	}
	if err := env.ParseWithFuncs(&cfg, funcs); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	return &cfg, nil
}

// parseCategories reads "query:collection" pairs separated by commas.
func parseCategories(raw string) (interface{}, error) {
	categories := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		query, collection, ok := strings.Cut(pair, ":")
		query, collection = strings.TrimSpace(query), strings.TrimSpace(collection)
		if !ok || query == "" || collection == "" {
			return nil, fmt.Errorf("invalid category %q, want query:collection", pair)
		}
		categories[query] = collection
	}
	return categories, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// RateLimit returns the minimum spacing between browser navigations.
func (s Scraper) RateLimit() time.Duration {
	return time.Duration(s.RateLimitMs) * time.Millisecond
}
