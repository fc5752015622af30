package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"mailpilot/models"
)

var (
	DB        *gorm.DB
	AppConfig Config
	envLoaded bool
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

type IMAPConfig struct {
	Enabled      bool          `json:"enabled"`
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	Username     string        `json:"username"`
	Password     string        `json:"-"`
	Mailbox      string        `json:"mailbox"`
	Encryption   string        `json:"encryption"` // SSL, STARTTLS or plain
	PollInterval time.Duration `json:"poll_interval"`
}

type Config struct {
	Environment       string      `json:"environment"`
	ServerPort        string      `json:"server_port"`
	ServiceAuthSecret string      `json:"-"`
	SentryDSN         string      `json:"-"`
	DBHost            string      `json:"db_host"`
	DBPort            string      `json:"db_port"`
	DBUser            string      `json:"db_user"`
	DBPassword        string      `json:"-"`
	DBName            string      `json:"db_name"`
	DBSSLMode         string      `json:"db_ssl_mode"`
	DBMaxIdleConns    int         `json:"db_max_idle_conns"`
	DBMaxOpenConns    int         `json:"db_max_open_conns"`
	Redis             RedisConfig `json:"redis"`
	IMAP              IMAPConfig  `json:"imap"`

	// Outbound transport
	SMTPHost           string `json:"smtp_host"`
	SMTPPort           string `json:"smtp_port"`
	SMTPUsername       string `json:"smtp_username"`
	SMTPPassword       string `json:"-"`
	FromEmail          string `json:"from_email"`
	NotifyEmail        string `json:"notify_email"`
	CalendarWebhookURL string `json:"calendar_webhook_url"`
	NotifyAgentURL     string `json:"notify_agent_url"`

	// Scheduler
	SchedulerTick time.Duration `json:"scheduler_tick"`

	// Sender directory for category resolution
	InternalDomain     string   `json:"internal_domain"`
	PeerDomains        []string `json:"peer_domains"`
	LeaderAddresses    []string `json:"leader_addresses"`
	AllowlistAddresses []string `json:"allowlist_addresses"`

	RateLimitIntake int `json:"rate_limit_intake"`
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
	envLoaded = true
}

func LoadConfig() error {
	AppConfig = Config{
		Environment:       getEnv("ENVIRONMENT", "development"),
		ServerPort:        getEnv("SERVER_PORT", "5000"),
		ServiceAuthSecret: getEnv("SERVICE_AUTH_SECRET", ""),
		SentryDSN:         getEnv("SENTRY_DSN", ""),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBName:            getEnv("DB_NAME", "mailpilot"),
		DBSSLMode:         getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ADDRESS", "") != "",
			Address:  getEnv("REDIS_ADDRESS", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		IMAP: IMAPConfig{
			Enabled:      getEnv("IMAP_HOST", "") != "",
			Host:         getEnv("IMAP_HOST", ""),
			Port:         getEnvAsInt("IMAP_PORT", 993),
			Username:     getEnv("IMAP_USERNAME", ""),
			Password:     getEnv("IMAP_PASSWORD", ""),
			Mailbox:      getEnv("IMAP_MAILBOX", "INBOX"),
			Encryption:   getEnv("IMAP_ENCRYPTION", "SSL"),
			PollInterval: getEnvAsDuration("IMAP_POLL_INTERVAL", 2*time.Minute),
		},
		SMTPHost:           getEnv("SMTP_HOST", ""),
		SMTPPort:           getEnv("SMTP_PORT", "587"),
		SMTPUsername:       getEnv("SMTP_USERNAME", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		FromEmail:          getEnv("FROM_EMAIL", "mailpilot@localhost"),
		NotifyEmail:        getEnv("NOTIFY_EMAIL", ""),
		CalendarWebhookURL: getEnv("CALENDAR_WEBHOOK_URL", ""),
		NotifyAgentURL:     getEnv("NOTIFY_AGENT_URL", ""),
		SchedulerTick:      getEnvAsDuration("SCHEDULER_TICK", time.Minute),
		InternalDomain:     getEnv("INTERNAL_DOMAIN", ""),
		PeerDomains:        getEnvAsList("PEER_DOMAINS"),
		LeaderAddresses:    getEnvAsList("LEADER_ADDRESSES"),
		AllowlistAddresses: getEnvAsList("ALLOWLIST_ADDRESSES"),
		RateLimitIntake:    getEnvAsInt("RATE_LIMIT_INTAKE", 120),
	}

	// Validate required configurations
	if AppConfig.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if AppConfig.ServiceAuthSecret == "" {
		return fmt.Errorf("SERVICE_AUTH_SECRET is required")
	}
	if AppConfig.Environment == "production" {
		if AppConfig.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required in production for forward and notification delivery")
		}
	}

	logConfig()
	return nil
}

func ConnectDB() error {
	log.Println("Attempting to connect to database...")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBSSLMode,
	)
	log.Println("Using connection string:", maskPassword(dsn))

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	log.Println("Successfully connected to the database")
	log.Println("Starting database migration...")
	if err := migrateDB(DB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Println("Database migration completed")
	return nil
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if !envLoaded && fallback == "" {
		log.Printf("Environment variable %s not found and no fallback provided", key)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsList(key string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return nil
	}
	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			values = append(values, v)
		}
	}
	return values
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}

	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig() {
	log.Println("Loaded configuration:")
	log.Printf("Environment: %s", AppConfig.Environment)
	log.Printf("Server Port: %s", AppConfig.ServerPort)
	log.Printf("Database: %s@%s:%s/%s",
		AppConfig.DBUser,
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBName)
	log.Printf("IMAP intake: %t, Redis: %t, Scheduler tick: %s",
		AppConfig.IMAP.Enabled,
		AppConfig.Redis.Enabled,
		AppConfig.SchedulerTick)
}

func migrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Email{},
		&models.Rule{},
		&models.NotificationRule{},
		&models.NotificationSettings{},
		&models.ProcessingLogEntry{},
		&models.ActionMarker{},
	)
}
