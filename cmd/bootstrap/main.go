// Package main 初始化默认租户并检查行级安全配置
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"linkhub-api/internal/config"
	"linkhub-api/internal/domain/entity"
	"linkhub-api/internal/wire"
	"linkhub-api/pkg/logger"
	"linkhub-api/pkg/utils"
)

func main() {
	printToken := flag.Bool("print-token", false, "print an access token for the default tenant")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the printed access token")
	flag.Parse()

	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	ctx := context.Background()

	// 2. 初始化数据层（仅 PostgreSQL）
	dataLayer, cleanup, err := wire.InitializeDataLayer(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize data layer: %v", err)
	}
	defer cleanup()

	// 3. 检查受保护表的 RLS
	if err := dataLayer.PgClient.VerifyRowSecurity(ctx, cfg.Database.Postgres.GuardedTables); err != nil {
		log.Fatalf("row level security check failed: %v", err)
	}
	fmt.Printf("Row level security verified for %v\n", cfg.Database.Postgres.GuardedTables)

	// 4. 创建默认租户
	slug := cfg.Tenant.DefaultTenantSlug
	tenant, err := dataLayer.TenantRepo.GetBySlug(ctx, slug)
	if err != nil {
		log.Fatalf("failed to get default tenant: %v", err)
	}
	if tenant == nil {
		fmt.Printf("Creating default tenant: %s...\n", slug)
		tenant = entity.NewTenant(cfg.Tenant.DefaultTenantName, slug)
		tenant.ID = cfg.Tenant.DefaultTenantID
		if err := dataLayer.TenantRepo.Create(ctx, tenant); err != nil {
			log.Fatalf("failed to create default tenant: %v", err)
		}
		fmt.Printf("Default tenant created with ID: %s\n", tenant.ID)
	} else {
		fmt.Printf("Default tenant already exists with ID: %s\n", tenant.ID)
	}

	// 5. 开发用访问令牌
	if *printToken {
		if cfg.Security.JWT.Secret == "" {
			log.Fatalf("security.jwt.secret is empty, cannot sign a token")
		}
		token, err := utils.NewJWTManager(cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer).
			GenerateAccessToken(tenant.ID, "bootstrap", "admin", *tokenTTL)
		if err != nil {
			log.Fatalf("failed to sign access token: %v", err)
		}
		fmt.Printf("Access token for tenant %s:\n%s\n", tenant.ID, token)
	}

	fmt.Println("Bootstrap completed successfully.")
}
