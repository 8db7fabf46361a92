package db

import (
	"context"
	"fmt"
	"folio/internal/config"
	"folio/internal/models"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open 按配置连接数据库（postgres 或 sqlite），执行迁移并写入初始分类
func Open(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	level := LevelFor(cfg.Env)
	var db *gorm.DB
	b := backoff{maxRetries: 5, delay: 500 * time.Millisecond, maxDelay: 5 * time.Second}
	for attempt := 0; ; attempt++ {
		db, err = gorm.Open(dialector, &gorm.Config{
			Logger:         NewLogger(log, level),
			TranslateError: true,
		})
		if err == nil {
			break
		}
		if attempt >= b.maxRetries {
			return nil, fmt.Errorf("open %s failed after retries: %w", cfg.DBDriver, err)
		}
		log.WithError(err).WithField("attempt", attempt+1).Warn("database not ready, retrying")
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("open %s canceled: %w", cfg.DBDriver, ctx.Err())
		case <-time.After(b.nextDelay(attempt)):
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db db() error: %w", err)
	}
	if cfg.DBDriver == "sqlite" {
		// sqlite 单写者
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.DBMaxConns)
		sqlDB.SetMaxIdleConns(cfg.DBMaxConns)
	}
	sqlDB.SetConnMaxLifetime(cfg.DBConnLife)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	log.WithField("driver", cfg.DBDriver).Info("Database connection established")

	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("Database migration completed")

	if n, err := SeedCategories(db); err != nil {
		log.WithError(err).Warn("seed categories failed")
	} else if n > 0 {
		log.WithField("count", n).Info("Initial categories created")
	}
	return db, nil
}

// OpenMemory 打开一个独立的内存 sqlite 库并完成迁移，name 区分不同的库
func OpenMemory(name string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         NewLogger(logrus.StandardLogger(), LevelFor("test")),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "postgres":
		return postgres.Open(dsn), nil
	case "sqlite":
		if dsn == "" {
			dsn = "folio.db"
		}
		return sqlite.Open(sqliteDSN(dsn)), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
}

// sqliteDSN 打开外键约束，保留 DSN 里已有的参数
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=1"
}

// Migrate 自动迁移全部表
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Skill{},
		&models.UserSkill{},
		&models.Experience{},
		&models.Certification{},
		&models.Category{},
		&models.Technology{},
		&models.Project{},
		&models.ProjectImage{},
		&models.ProjectFile{},
		&models.Comment{},
		&models.Vote{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// SeedCategories 空库时创建预设分类，返回创建数量
func SeedCategories(db *gorm.DB) (int, error) {
	var count int64
	if err := db.Model(&models.Category{}).Count(&count).Error; err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	categories := []models.Category{
		{Name: "Data Analysis", Slug: "data-analysis", Description: "Exploratory analysis and reporting", Color: "#0d6efd"},
		{Name: "Machine Learning", Slug: "machine-learning", Description: "Models, pipelines and experiments", Color: "#6f42c1"},
		{Name: "Web Development", Slug: "web-development", Description: "Sites, services and APIs", Color: "#198754"},
		{Name: "Dashboards", Slug: "dashboards", Description: "BI dashboards and visualisation", Color: "#fd7e14"},
	}
	if err := db.Create(&categories).Error; err != nil {
		return 0, err
	}
	return len(categories), nil
}

type backoff struct {
	maxRetries int
	delay      time.Duration
	maxDelay   time.Duration
}

func (b backoff) nextDelay(attempt int) time.Duration {
	d := b.delay << attempt
	if d > b.maxDelay {
		return b.maxDelay
	}
	return d
}
