package service

import (
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/config"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/repository"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/shared/fx"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/shared/telegram"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Services is the service collection wired into the handlers.
type Services struct {
	Catalog      *CatalogService
	Locks        *LockRegistry
	Inventory    *InventoryService
	Orders       *OrderService
	PaymentProof *PaymentProofStore
	Rates        *fx.Client
}

// NewServices wires the full service graph from repositories and config.
func NewServices(repos *repository.Repositories, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) *Services {
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		var err error
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			logger.Warn("minio unavailable, payment uploads disabled", zap.Error(err))
			minioClient = nil
		}
	}

	rates := fx.NewClient(cfg.FX.Endpoint, cfg.FX.FallbackRate, cfg.FX.CacheTTL, rdb, logger)
	tg := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID)
	notifier := NewNotifier(tg, logger)

	catalog := NewCatalogService(repos.Product, rdb, cfg.Order.CatalogCacheTTL, logger)
	locks := NewLockRegistry(repos.Settings, logger)
	inventory := NewInventoryService(repos.Order, repos.Product, cfg.Order.VialsPerKit, cfg.Order.MaxKitsDefault)
	orders := NewOrderService(repos.Order, catalog, locks, inventory, rates, notifier, cfg.Order.AdminFeePHP, logger)

	return &Services{
		Catalog:      catalog,
		Locks:        locks,
		Inventory:    inventory,
		Orders:       orders,
		PaymentProof: NewPaymentProofStore(minioClient, cfg.MinIO.Bucket),
		Rates:        rates,
	}
}
