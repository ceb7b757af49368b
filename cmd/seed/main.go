package main

import (
	"time"

	"github.com/payguard-next/internal/config"
	"github.com/payguard-next/internal/logger"
	"github.com/payguard-next/internal/models"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	now := time.Now()
	rules := []models.PaymentRule{
		{
			Name:     "single-transfer-cap",
			Priority: 100,
			Enabled:  true,
			Conditions: models.JSON(map[string]interface{}{
				"max_amount": "50000",
			}),
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			Name:     "minimum-transfer",
			Priority: 50,
			Enabled:  true,
			Conditions: models.JSON(map[string]interface{}{
				"min_amount": "0.01",
			}),
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			Name:     "usd-only",
			Priority: 10,
			Enabled:  false,
			Conditions: models.JSON(map[string]interface{}{
				"currency": "USD",
			}),
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	for i := range rules {
		var existing models.PaymentRule
		result := models.DB.Where("name = ?", rules[i].Name).Limit(1).Find(&existing)
		if result.Error != nil {
			stdLog.Fatalf("Failed to query rule %s: %v", rules[i].Name, result.Error)
		}
		if result.RowsAffected > 0 {
			stdLog.Printf("Rule %s already exists, skipped", rules[i].Name)
			continue
		}
		if err := models.DB.Create(&rules[i]).Error; err != nil {
			stdLog.Fatalf("Failed to create rule %s: %v", rules[i].Name, err)
		}
		stdLog.Printf("Created rule %s (priority %d)", rules[i].Name, rules[i].Priority)
	}

	stdLog.Println("Seed completed")
}
