package database

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cresciperdi/intranet-api/internal/config"
	migrateV4 "github.com/golang-migrate/migrate/v4"
	migratePostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PoolOptions - параметры пула соединений database/sql
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultPoolOptions рассчитаны на одну реплику API и PgBouncer перед базой
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{MaxOpenConns: 25, MaxIdleConns: 10, ConnMaxLifetime: time.Hour}
}

// PoolOptionsFromConfig берёт значения из конфигурации, незаданные заменяет умолчаниями.
// Простаивающих соединений не бывает больше, чем открытых.
func PoolOptionsFromConfig(cfg config.DatabaseConfig) PoolOptions {
	opts := DefaultPoolOptions()
	if cfg.MaxOpenConns > 0 {
		opts.MaxOpenConns = cfg.MaxOpenConns
	}
	if cfg.MaxIdleConns > 0 {
		opts.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.ConnMaxLifetimeMin > 0 {
		opts.ConnMaxLifetime = time.Duration(cfg.ConnMaxLifetimeMin) * time.Minute
	}
	if opts.MaxIdleConns > opts.MaxOpenConns {
		opts.MaxIdleConns = opts.MaxOpenConns
	}
	return opts
}

// NewPostgresDB создает новое подключение к PostgreSQL.
// В release режиме gorm логирует только предупреждения и ошибки.
func NewPostgresDB(cfg config.DatabaseConfig, release bool) (*gorm.DB, error) {
	logLevel := logger.Info
	if release {
		logLevel = logger.Warn
	}
	db, err := gorm.Open(gormPostgres.Open(cfg.PostgresConnectionString()), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database %s@%s/%s: %w", cfg.User, cfg.Host, cfg.DBName, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	pool := PoolOptionsFromConfig(cfg)
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	log.Printf("[Postgres] Пул соединений: open=%d idle=%d lifetime=%s", pool.MaxOpenConns, pool.MaxIdleConns, pool.ConnMaxLifetime)

	return db, nil
}

// MigrationsSource - путь к SQL-миграциям относительно рабочего каталога
const MigrationsSource = "file://migrations"

// MigrateDB применяет SQL-миграции из папки 'migrations'
func MigrateDB(db *gorm.DB) error {
	log.Println("Запуск применения миграций базы данных...")

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("не удалось получить *sql.DB из *gorm.DB: %w", err)
	}

	// Убедимся, что подключение к БД активно
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("не удалось проверить подключение к БД перед миграцией: %w", err)
	}

	// Создаем драйвер базы данных для migrate
	driver, err := migratePostgres.WithInstance(sqlDB, &migratePostgres.Config{})
	if err != nil {
		return fmt.Errorf("не удалось создать драйвер postgres для migrate: %w", err)
	}

	// Папка migrations в рабочем каталоге (в Docker это /root/migrations)
	m, err := migrateV4.NewWithDatabaseInstance(
		MigrationsSource,
		"postgres", // Имя базы данных (для логирования в migrate)
		driver,
	)
	if err != nil {
		return fmt.Errorf("не удалось создать экземпляр migrate: %w", err)
	}

	// Применяем миграции "вверх"
	log.Println("Применяем миграции 'up'...")
	err = m.Up()
	if err != nil && !errors.Is(err, migrateV4.ErrNoChange) {
		// Если ошибка НЕ "нет изменений", то это реальная проблема
		log.Printf("Ошибка применения миграций: %v", err)
		return fmt.Errorf("ошибка применения миграций 'up': %w", err)
	} else if errors.Is(err, migrateV4.ErrNoChange) {
		log.Println("Изменений в миграциях не найдено, база данных уже актуальна.")
	} else {
		log.Println("Миграции успешно применены.")
	}

	log.Println("Миграции базы данных завершены.")
	return nil
}
