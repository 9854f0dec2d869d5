package main

import (
	"log"
	"os"
	"time"

	v1 "satvault/api/v1"
	"satvault/internal/auth"
	"satvault/internal/cache"
	"satvault/internal/config"
	"satvault/internal/db"
	"satvault/internal/vault"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
		os.Exit(1)
	}
	log.Println("✓ Configuration loaded")

	auth.InitJWT(cfg.JWT.Secret)

	// 2. Initialize MySQL
	if err := db.InitMySQL(cfg.MySQL.DSN); err != nil {
		log.Fatalf("Failed to initialize MySQL: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Migrate {
		if err := db.Migrate(db.Get()); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
			os.Exit(1)
		}
	}

	// 3. Initialize Redis (per-tenant activation locks)
	if err := cache.InitRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
		os.Exit(1)
	}
	defer cache.Close()

	// 4. Initialize Gin router
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()
	r.MaxMultipartMemory = cfg.Upload.MaxBytes

	v1.SetupRouter(r, db.Get(), cfg, vaultOptions(cfg)...)

	log.Printf("✓ Server starting on %s", cfg.HTTPAddr)

	// Start server
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
		os.Exit(1)
	}
}

// vaultOptions wires the production converter, locker and conversion pool.
func vaultOptions(cfg *config.Config) []vault.Option {
	var converter vault.FormatConverter = vault.X509Converter{}
	if cfg.Conversion.OpenSSLFallback {
		converter = vault.ChainConverter{
			Primary: converter,
			Fallback: vault.NewOpenSSLConverter(
				cfg.Conversion.OpenSSLPath,
				cfg.Conversion.TempDir,
				time.Duration(cfg.Conversion.TimeoutSec)*time.Second,
			),
		}
	}

	return []vault.Option{
		vault.WithConverter(converter),
		vault.WithLocker(vault.NewRedisLocker(cache.Client)),
		vault.WithPool(vault.NewConversionPool(cfg.Conversion.PoolSize)),
	}
}
