package provider

import (
	"github.com/payguard-next/internal/biometric"
	"github.com/payguard-next/internal/cache"
	"github.com/payguard-next/internal/config"
	"github.com/payguard-next/internal/fraud"
	"github.com/payguard-next/internal/gateway"
	"github.com/payguard-next/internal/logger"
	"github.com/payguard-next/internal/models"
	"github.com/payguard-next/internal/processor"
	"github.com/payguard-next/internal/queue"
	"github.com/payguard-next/internal/repository"
	"github.com/payguard-next/internal/rules"
	"github.com/payguard-next/internal/service"
	"github.com/payguard-next/internal/token"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	PaymentRepo  repository.PaymentRepository
	RuleRepo     repository.RuleRepository
	TokenRepo    repository.TokenRepository
	EventLogRepo repository.EventLogRepository

	// 领域组件
	Ledger        gateway.Ledger
	Blacklist     fraud.Blacklist
	RuleEngine    *rules.Engine
	FraudDetector *fraud.Detector
	TokenService  *token.Service
	Verifier      *biometric.Verifier
	Dispatcher    *processor.Dispatcher

	// Services
	PaymentService        *service.PaymentService
	RuleAdminService      *service.RuleAdminService
	BlacklistAdminService *service.BlacklistAdminService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化领域组件与 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.PaymentRepo = repository.NewPaymentRepository(db)
	c.RuleRepo = repository.NewRuleRepository(db)
	c.TokenRepo = repository.NewTokenRepository(db)
	c.EventLogRepo = repository.NewEventLogRepository(db)
}

func (c *Container) initServices() {
	c.Ledger = gateway.NewHTTPLedger(c.Config.Ledger.BaseURL, c.Config.Ledger.Timeout())
	c.Blacklist = fraud.NewBlacklist()
	c.RuleEngine = rules.NewEngine(c.RuleRepo)
	c.FraudDetector = fraud.NewDetector(c.Blacklist, c.PaymentRepo, c.Config.Fraud)
	c.TokenService = token.NewService(c.TokenRepo, c.Config.QRToken)
	c.Verifier = biometric.NewVerifier(c.TokenService, c.Config.Biometric.Enabled)
	c.Dispatcher = processor.NewDispatcher(c.PaymentRepo, c.Config.Retry, processor.DefaultHandlers()...)

	c.PaymentService = service.NewPaymentService(
		c.PaymentRepo,
		c.RuleEngine,
		c.FraudDetector,
		c.TokenService,
		c.Verifier,
		c.Dispatcher,
		c.Ledger,
		c.QueueClient,
	)
	c.RuleAdminService = service.NewRuleAdminService(c.RuleRepo)
	c.BlacklistAdminService = service.NewBlacklistAdminService(c.Blacklist)
}
