package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raushankrgupta/temple-connect/account"
	"github.com/raushankrgupta/temple-connect/api"
	"github.com/raushankrgupta/temple-connect/config"
	"github.com/raushankrgupta/temple-connect/followup"
	"github.com/raushankrgupta/temple-connect/models"
	"github.com/raushankrgupta/temple-connect/notify"
	"github.com/raushankrgupta/temple-connect/otp"
	"github.com/raushankrgupta/temple-connect/outreach"
	"github.com/raushankrgupta/temple-connect/program"
	"github.com/raushankrgupta/temple-connect/roles"
	"github.com/raushankrgupta/temple-connect/store"
	"github.com/raushankrgupta/temple-connect/store/memstore"
	"github.com/raushankrgupta/temple-connect/store/mongostore"
	"github.com/raushankrgupta/temple-connect/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()

	logger, err := utils.InitLogger(config.LogLevel, config.LogDev)
	if err != nil {
		log.Fatalf("Failed to initialise logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck
	utils.ShowInternalDetails = config.Debug

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx)
	if err != nil {
		zap.S().Fatalw("Failed to open store", "store", config.Store, "error", err)
	}
	defer closeStore()

	if config.JWTSecret == "" {
		if config.Store != "memory" {
			zap.S().Fatal("JWT_SECRET is not set in environment variables")
		}
		config.JWTSecret = "dev-only-secret"
		zap.S().Warn("JWT_SECRET is not set, using an insecure development secret")
	}

	notifiers, err := notify.Build(notify.Options{
		Mode:             config.NotifyMode,
		SendgridAPIKey:   config.SendgridAPIKey,
		EmailFromName:    config.EmailFromName,
		EmailFromAddress: config.EmailFromAddress,
		MSG91AuthKey:     config.MSG91AuthKey,
		MSG91TemplateID:  config.MSG91TemplateID,
		MSG91BaseURL:     config.MSG91BaseURL,
	})
	if err != nil {
		zap.S().Fatalw("Failed to configure notifiers", "error", err)
	}

	metrics := api.NewMetrics()
	tokens := utils.NewTokens(config.JWTSecret, config.JWTTTL, config.ResetTokenTTL)

	codes := otp.NewService(st.OTPs, notifiers, newLimiter(), otp.Config{
		TTL:         config.OTPTTL,
		MaxAttempts: config.OTPMaxAttempts,
	})
	codes.SetObserver(metrics)

	accounts := account.NewService(st.Accounts, codes, tokens)
	accounts.OnActivated(func(_ context.Context, u *models.User) error {
		zap.S().Infow("Account activated", "user", u.ID.Hex(), "role", u.Role)
		return nil
	})

	followUps := followup.NewService(st.Accounts, st.Outreach, st.FollowUps, st.Programs)
	followUps.SetObserver(metrics)
	if config.AWSBucketName != "" {
		exporter, err := utils.InitS3(ctx, config.AWSRegion, config.AWSBucketName)
		if err != nil {
			zap.S().Fatalw("Failed to initialise S3", "error", err)
		}
		followUps.SetExporter(exporter)
	}

	router := api.NewRouter(&api.Handler{
		Accounts:      accounts,
		Roles:         roles.NewService(st.Accounts, st.Outreach, st.FollowUps),
		FollowUps:     followUps,
		Programs:      program.NewService(st.Programs, st.Accounts),
		Outreach:      outreach.NewService(st.Outreach),
		Users:         st.Accounts,
		Tokens:        tokens,
		Metrics:       metrics,
		CookieName:    config.CookieName,
		SessionTTL:    config.JWTTTL,
		SecureCookies: !config.Debug,
		CORSOrigins:   config.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zap.S().Infof("Server starting on port %s...", config.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.S().Fatalw("Server failed to start", "error", err)
		}
	}()

	<-ctx.Done()
	zap.S().Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.S().Errorw("Graceful shutdown failed", "error", err)
	}
}

// openStore connects to MongoDB unless STORE=memory.
func openStore(ctx context.Context) (*store.Store, func(), error) {
	if config.Store == "memory" {
		zap.S().Warn("Using in-memory store, data is lost on restart")
		return memstore.New(), func() {}, nil
	}

	db, err := mongostore.Connect(ctx, config.MongoURI, config.DBName)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}
	if err := db.EnsureIndexes(ctx); err != nil {
		return nil, nil, fmt.Errorf("creating indexes: %w", err)
	}

	return db.Store(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Disconnect(ctx); err != nil {
			zap.S().Errorw("Failed to disconnect from MongoDB", "error", err)
		}
	}, nil
}

func newLimiter() otp.Limiter {
	if config.RedisAddr == "" {
		return otp.NewMemoryLimiter(config.OTPWindow, config.OTPMaxPerWindow, config.OTPCooldown)
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
	})
	zap.S().Infow("Rate limiting OTP requests in Redis", "addr", config.RedisAddr)
	return otp.NewRedisLimiter(rdb, config.OTPWindow, config.OTPMaxPerWindow, config.OTPCooldown)
}
