package main

import (
	"context"
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	httpadp "peerfund-backend/internal/adapter/http"
	appmw "peerfund-backend/internal/adapter/middleware"
	"peerfund-backend/internal/adapter/repository/mysql"
	"peerfund-backend/internal/config"
	auditDomain "peerfund-backend/internal/domain/audit"
	loanDomain "peerfund-backend/internal/domain/loan"
	"peerfund-backend/internal/domain/params"
	userDomain "peerfund-backend/internal/domain/user"
	"peerfund-backend/internal/infrastructure/cache"
	"peerfund-backend/internal/infrastructure/db"
	auditLog "peerfund-backend/internal/usecase/audit"
	"peerfund-backend/internal/usecase/fraud"
	loanUC "peerfund-backend/internal/usecase/loan"
	userUC "peerfund-backend/internal/usecase/user"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("config invalid", zap.Error(err))
	}

	gdb, err := db.OpenGorm(cfg.MySQLDSN(), log)
	if err != nil {
		log.Fatal("mysql open failed", zap.Error(err))
	}
	if err := migrate(gdb); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Fatal("redis open failed", zap.Error(err))
	}
	log.Info("redis connected", zap.String("addr", cfg.RedisAddr))

	paramsRepo := mysql.NewParamsRepository(gdb)
	if err := seedDefaultParams(context.Background(), paramsRepo, log); err != nil {
		log.Fatal("parameter seed failed", zap.Error(err))
	}

	txm := mysql.NewGormUoW(gdb)
	events := auditLog.NewEventLog()
	decisions := auditLog.NewDecisionLog()
	detector := fraud.NewDetector(
		time.Duration(cfg.FraudWindowSecs)*time.Second,
		cfg.FraudBurstThreshold,
		nil, // velocity-only correlation
	)

	users := userUC.NewUsecase(txm, events, decisions, detector)
	loans := loanUC.NewUsecase(txm, events, decisions)

	h := httpadp.NewHandler()
	uh := httpadp.NewUserHandler(users, log)
	lh := httpadp.NewLoanHandler(loans, log)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(echomw.Logger(), echomw.Recover())

	idem := appmw.Idempotency(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second, log)

	e.GET("/health", h.Health)

	e.POST("/users", uh.Register, idem)
	e.POST("/auth/login", uh.Login)
	e.GET("/users/:user_id", uh.GetUser)

	e.POST("/loans", lh.CreateLoan, idem)
	e.GET("/loans/:loan_id", lh.GetLoan)
	e.POST("/loans/:loan_id/endorsements", lh.AddEndorsement, idem)
	e.POST("/loans/:loan_id/payments", lh.RecordPayment, idem)

	e.GET("/events/:reference_id", lh.ListEvents)
	e.GET("/decisions/:decision_id/verify", lh.VerifyDecision)

	addr := ":" + cfg.AppPort
	log.Info("listening", zap.String("addr", addr))
	if err := e.Start(addr); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&userDomain.User{},
		&params.SystemParameters{},
		&params.PricingTier{},
		&loanDomain.Loan{},
		&loanDomain.Installment{},
		&loanDomain.Endorsement{},
		&auditDomain.Event{},
		&auditDomain.DecisionLogEntry{},
		&auditDomain.FraudFlag{},
	)
}

// seedDefaultParams publishes the v1 pricing table on a fresh database.
// An existing active version, whatever its name, wins.
func seedDefaultParams(ctx context.Context, repo *mysql.ParamsRepository, log *zap.Logger) error {
	_, err := repo.GetActive(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	v1 := &params.SystemParameters{
		Version:                "v1",
		GracePeriodSecs:        86400,
		InstallmentCadenceSecs: 30 * 24 * 3600,
		DefaultOverdueStreak:   3,
		Active:                 true,
		Tiers: []params.PricingTier{
			{Position: 1, Name: "starter", MinScore: 0, MaxScore: 39, RateBps: 2200, MaxPrincipal: decimal.NewFromInt(500_000), MinCoveragePct: 100},
			{Position: 2, Name: "builder", MinScore: 40, MaxScore: 69, RateBps: 1800, MaxPrincipal: decimal.NewFromInt(2_000_000), MinCoveragePct: 50},
			{Position: 3, Name: "trusted", MinScore: 70, MaxScore: 89, RateBps: 1400, MaxPrincipal: decimal.NewFromInt(5_000_000), MinCoveragePct: 25},
			{Position: 4, Name: "prime", MinScore: 90, MaxScore: 100, RateBps: 900, MaxPrincipal: decimal.NewFromInt(10_000_000), MinCoveragePct: 0},
		},
	}
	if err := repo.Create(ctx, v1); err != nil {
		return err
	}
	log.Info("seeded default parameter version", zap.String("version", v1.Version))
	return nil
}
