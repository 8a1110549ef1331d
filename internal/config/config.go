package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Auth          AuthConfig
	CORS          CORSConfig
	Compliance    ComplianceConfig
	Notifications NotificationsConfig
	Email         EmailConfig
	WhatsApp      WhatsAppConfig
	Reminder      ReminderConfig
	WebSocket     WebSocketConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
	// TrustedProxies: адреса/подсети обратных прокси, чьим X-Forwarded-For можно верить.
	// От них зависит IP, который попадает в подпись.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	// Пул соединений
	MaxOpenConns       int `mapstructure:"max_open_conns"`
	MaxIdleConns       int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMin int `mapstructure:"conn_max_lifetime_min"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт).
	Addrs []string `mapstructure:"addrs"`

	// Addr: Адрес для режима 'single', используется если Addrs пустой.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// AuthConfig содержит настройки проверки токенов внешнего провайдера идентификации
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
	Audience  string `mapstructure:"audience"`
	// ProfileCacheTTL: время жизни профиля в кеше (секунды)
	ProfileCacheTTL int `mapstructure:"profile_cache_ttl"`
}

// CORSConfig содержит список разрешённых origin для браузерных клиентов
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// ComplianceConfig содержит настройки сценария обязательного контента
type ComplianceConfig struct {
	// StatusCacheTTL: время жизни закешированного статуса (секунды)
	StatusCacheTTL int `mapstructure:"status_cache_ttl"`
	// SessionTTL: время жизни состояния прохождения контента (секунды)
	SessionTTL int `mapstructure:"session_ttl"`
	// ConfirmLockTTL: максимальное время удержания блокировки подтверждения (секунды)
	ConfirmLockTTL int `mapstructure:"confirm_lock_ttl"`
	// ScrollTolerancePx: допуск в пикселях для определения конца текста
	ScrollTolerancePx int `mapstructure:"scroll_tolerance_px"`
	// RedirectDelayMs: задержка перед возвратом на главную после подтверждения
	RedirectDelayMs int `mapstructure:"redirect_delay_ms"`
}

// NotificationsConfig содержит значения каналов по умолчанию (до переопределения в админке)
type NotificationsConfig struct {
	PushEnabled     bool `mapstructure:"push_enabled"`
	EmailEnabled    bool `mapstructure:"email_enabled"`
	WhatsAppEnabled bool `mapstructure:"whatsapp_enabled"`
}

// EmailConfig содержит настройки отправки писем через Resend
type EmailConfig struct {
	ResendAPIKey string `mapstructure:"resend_api_key"`
	From         string `mapstructure:"from"`
	AppBaseURL   string `mapstructure:"app_base_url"`
}

// WhatsAppConfig содержит настройки HTTP-шлюза WhatsApp
type WhatsAppConfig struct {
	GatewayURL string `mapstructure:"gateway_url"`
	Token      string `mapstructure:"token"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

// ReminderConfig содержит расписание напоминаний о непройденном контенте
type ReminderConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
	Timezone string `mapstructure:"timezone"`
}

// WebSocketConfig содержит настройки realtime-канала
type WebSocketConfig struct {
	ClusterEnabled bool   `mapstructure:"cluster_enabled"`
	Channel        string `mapstructure:"channel"`
	SendBuffer     int    `mapstructure:"send_buffer"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// PostgresURL формирует URL подключения (используется CLI миграций)
func (d *DatabaseConfig) PostgresURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// StatusTTL возвращает время жизни статуса соответствия
func (c ComplianceConfig) StatusTTL() time.Duration {
	return time.Duration(c.StatusCacheTTL) * time.Second
}

// SessionDuration возвращает время жизни сессии прохождения контента
func (c ComplianceConfig) SessionDuration() time.Duration {
	return time.Duration(c.SessionTTL) * time.Second
}

// LockDuration возвращает TTL блокировки подтверждения
func (c ComplianceConfig) LockDuration() time.Duration {
	return time.Duration(c.ConfirmLockTTL) * time.Second
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.read_timeout", 15)
	vip.SetDefault("server.write_timeout", 15)
	vip.SetDefault("server.trusted_proxies", []string{"127.0.0.1", "::1"})
	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.max_open_conns", 25)
	vip.SetDefault("database.max_idle_conns", 10)
	vip.SetDefault("database.conn_max_lifetime_min", 60)
	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("auth.profile_cache_ttl", 300)
	vip.SetDefault("cors.allow_origins", []string{"http://localhost:5173", "http://localhost:3000"})

	vip.SetDefault("compliance.status_cache_ttl", 600)
	vip.SetDefault("compliance.session_ttl", 86400)
	vip.SetDefault("compliance.confirm_lock_ttl", 30)
	vip.SetDefault("compliance.scroll_tolerance_px", 10)
	vip.SetDefault("compliance.redirect_delay_ms", 2000)

	vip.SetDefault("notifications.push_enabled", true)
	vip.SetDefault("notifications.email_enabled", false)
	vip.SetDefault("notifications.whatsapp_enabled", false)

	vip.SetDefault("whatsapp.timeout_sec", 10)

	vip.SetDefault("reminder.enabled", false)
	vip.SetDefault("reminder.schedule", "0 9 * * 1-5")
	vip.SetDefault("reminder.timezone", "America/Sao_Paulo")

	vip.SetDefault("websocket.channel", "intranet:ws:events")
	vip.SetDefault("websocket.send_buffer", 64)
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	// .env не обязателен: в контейнере переменные приходят из окружения
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Предупреждение: не удалось прочитать .env: %v", err)
	}

	vip := viper.New()
	setDefaults(vip)

	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET")
	vip.BindEnv("auth.issuer", "AUTH_ISSUER")
	vip.BindEnv("auth.audience", "AUTH_AUDIENCE")

	vip.BindEnv("server.port", "SERVER_PORT")
	vip.BindEnv("server.trusted_proxies", "SERVER_TRUSTED_PROXIES")

	vip.BindEnv("email.resend_api_key", "RESEND_API_KEY")
	vip.BindEnv("email.from", "EMAIL_FROM")
	vip.BindEnv("email.app_base_url", "APP_BASE_URL")

	vip.BindEnv("whatsapp.gateway_url", "WHATSAPP_GATEWAY_URL")
	vip.BindEnv("whatsapp.token", "WHATSAPP_TOKEN")

	vip.BindEnv("reminder.enabled", "REMINDER_ENABLED")
	vip.BindEnv("websocket.cluster_enabled", "WEBSOCKET_CLUSTER_ENABLED")

	if configPath != "" {
		vip.SetConfigFile(configPath)
		// Файла может не быть: тогда работаем на переменных окружения и умолчаниях
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Redis Mode: %s", cfg.Redis.Mode)
		log.Printf("JWT Secret Set: %t", cfg.Auth.JWTSecret != "")
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("Trusted Proxies: %v", cfg.Server.TrustedProxies)
		log.Printf("Reminder Enabled: %t (%s)", cfg.Reminder.Enabled, cfg.Reminder.Schedule)
		log.Printf("-----------------------------------------")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth jwt secret is required (check AUTH_JWT_SECRET env var)")
	}
	if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
		return fmt.Errorf("database configuration (host, dbname, user) is incomplete (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if c.Compliance.ScrollTolerancePx < 0 {
		return fmt.Errorf("compliance.scroll_tolerance_px must not be negative")
	}
	return nil
}
