package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"qwesade/internal/parsing"
)

const (
	StorageSheets = "sheets"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"

	ModePolling = "polling"
	ModeWebhook = "webhook"

	BusyPolicyLedger   = "ledger"
	BusyPolicyStatuses = "statuses"
)

type Config struct {
	App         AppConfig      `yaml:"app"`
	Telegram    TelegramConfig `yaml:"telegram"`
	Google      GoogleConfig   `yaml:"google"`
	Storage     StorageConfig  `yaml:"storage"`
	Redis       RedisConfig    `yaml:"redis"`
	Backup      BackupConfig   `yaml:"backup"`
	Logging     LoggingConfig  `yaml:"logging"`
	API         APIConfig      `yaml:"api"`
	Admins      []int64        `yaml:"admins"`
	AdminChatID int64          `yaml:"admin_chat_id"`
	Booking     BookingConfig  `yaml:"booking"`
	Bot         BotConfig      `yaml:"bot"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken      string `yaml:"bot_token"`
	Debug         bool   `yaml:"debug"`
	Mode          string `yaml:"mode"`
	WebhookURL    string `yaml:"webhook_url"`
	WebhookSecret string `yaml:"webhook_secret"`
}

type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	CredentialsJSON string `yaml:"credentials_json"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	BookingsSheet   string `yaml:"bookings_sheet"`
	CalendarSheet   string `yaml:"calendar_sheet"`
}

type StorageConfig struct {
	Driver     string `yaml:"driver"`
	SQLitePath string `yaml:"sqlite_path"`
}

type RedisConfig struct {
	Address    string `yaml:"address"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	PoolSize   int    `yaml:"pool_size"`
	SessionTTL string `yaml:"session_ttl"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	Port      int                `yaml:"port"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key   string `yaml:"key"`
	Extra string `yaml:"extra"`
	Name  string `yaml:"name"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// BookingConfig справочники и правила заявок
type BookingConfig struct {
	Services      []string `yaml:"services"`
	TimeSlots     []string `yaml:"time_slots"`
	WholeDayLabel string   `yaml:"whole_day_label"`
	BusyPolicy    string   `yaml:"busy_policy"`
	BusyStatuses  []string `yaml:"busy_statuses"`
	AgendaDays    int      `yaml:"agenda_days"`
	AgendaLimit   int      `yaml:"agenda_limit"`
	RecentLimit   int      `yaml:"recent_limit"`
}

type BotConfig struct {
	RateLimitMessages int  `yaml:"rate_limit_messages"`
	RateLimitWindow   int  `yaml:"rate_limit_window"`
	RemindersEnabled  bool `yaml:"reminders_enabled"`
	ReminderHour      int  `yaml:"reminder_hour"`
}

var (
	DefaultServices  = []string{"Прогулка", "Кафе", "Кино", "Спорт/зал/активность", "Выезд на природу", "Разговор по душам", "Другое"}
	DefaultTimeSlots = []string{"Весь день", "10:00–12:00", "13:00–15:00", "16:00–18:00", "19:00–21:00"}
)

func Load(configPath string) (*Config, error) {
	// Загружаем .env файл если существует
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		return errors.New("telegram bot token is required")
	}

	switch c.Telegram.Mode {
	case ModePolling:
	case ModeWebhook:
		if c.Telegram.WebhookURL == "" || c.Telegram.WebhookSecret == "" {
			return errors.New("webhook mode requires webhook_url and webhook_secret")
		}
	default:
		return fmt.Errorf("unknown telegram mode %q", c.Telegram.Mode)
	}

	switch c.Storage.Driver {
	case StorageSheets:
		if c.Google.SpreadsheetID == "" {
			return errors.New("google spreadsheet_id is required")
		}
		if c.Google.CredentialsFile == "" && c.Google.CredentialsJSON == "" {
			return errors.New("google credentials are required")
		}
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			return errors.New("storage sqlite_path is required")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Google.BookingsSheet == c.Google.CalendarSheet {
		return errors.New("bookings and calendar sheets must differ")
	}

	if err := c.Booking.Validate(); err != nil {
		return err
	}

	for name, d := range map[string]string{"redis.session_ttl": c.Redis.SessionTTL, "backup.schedule": c.Backup.Schedule} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	if c.Bot.ReminderHour < 0 || c.Bot.ReminderHour > 23 {
		return fmt.Errorf("bot.reminder_hour must be 0..23, got %d", c.Bot.ReminderHour)
	}
	return nil
}

func (b *BookingConfig) Validate() error {
	if len(b.Services) == 0 {
		return errors.New("booking services are required")
	}
	seen := make(map[string]bool)
	for _, s := range b.Services {
		if strings.TrimSpace(s) == "" {
			return errors.New("empty service name")
		}
		if seen[s] {
			return fmt.Errorf("duplicate service %q", s)
		}
		seen[s] = true
	}

	switch b.BusyPolicy {
	case BusyPolicyLedger, BusyPolicyStatuses:
	default:
		return fmt.Errorf("unknown busy policy %q", b.BusyPolicy)
	}
	return nil
}

// IsAdmin входит ли пользователь в список администраторов
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admins {
		if id == userID {
			return true
		}
	}
	return c.AdminChatID != 0 && c.AdminChatID == userID
}

// AdminRecipients получатели уведомлений о новых заявках
func (c *Config) AdminRecipients() []int64 {
	if len(c.Admins) > 0 {
		return c.Admins
	}
	if c.AdminChatID != 0 {
		return []int64{c.AdminChatID}
	}
	return nil
}

// SessionTTL время жизни сессии диалога
func (c *Config) SessionTTL() time.Duration {
	d, err := time.ParseDuration(c.Redis.SessionTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "qwesade"
	}
	if c.Telegram.Mode == "" {
		c.Telegram.Mode = ModePolling
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageSheets
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/qwesade.db"
	}
	if c.Google.BookingsSheet == "" {
		c.Google.BookingsSheet = "Bookings"
	}
	if c.Google.CalendarSheet == "" {
		c.Google.CalendarSheet = "Calendar"
	}
	if c.Redis.SessionTTL == "" {
		c.Redis.SessionTTL = "24h"
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "backups"
	}

	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if len(c.API.Auth.APIKeys) > 0 {
		c.API.Auth.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}

	if len(c.Booking.Services) == 0 {
		c.Booking.Services = DefaultServices
	}
	if len(c.Booking.TimeSlots) == 0 {
		c.Booking.TimeSlots = DefaultTimeSlots
	}
	if c.Booking.WholeDayLabel == "" {
		c.Booking.WholeDayLabel = "Весь день"
		for _, s := range c.Booking.TimeSlots {
			if parsing.IsWholeDay(s) {
				c.Booking.WholeDayLabel = s
				break
			}
		}
	}
	if c.Booking.BusyPolicy == "" {
		c.Booking.BusyPolicy = BusyPolicyLedger
	}
	if len(c.Booking.BusyStatuses) == 0 {
		c.Booking.BusyStatuses = []string{"New", "Confirmed"}
	}
	if c.Booking.AgendaDays == 0 {
		c.Booking.AgendaDays = 60
	}
	if c.Booking.AgendaLimit == 0 {
		c.Booking.AgendaLimit = 20
	}
	if c.Booking.RecentLimit == 0 {
		c.Booking.RecentLimit = 5
	}

	if c.Bot.RateLimitMessages == 0 {
		c.Bot.RateLimitMessages = 20
	}
	if c.Bot.RateLimitWindow == 0 {
		c.Bot.RateLimitWindow = 60
	}
	if c.Bot.ReminderHour == 0 {
		c.Bot.ReminderHour = 9
	}
}
