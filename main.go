package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/joho/godotenv"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"contrack/api"
	"contrack/reminders"
	"contrack/storage"
)

func main() {
	_ = godotenv.Load()

	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "contrack.db"
	}
	filesBase := os.Getenv("FILES_BASE_PATH")
	if filesBase == "" {
		filesBase = "./uploads"
	}

	store, err := storage.Open(dbPath)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer store.Close()

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "1234"
	}
	if err := store.Seed(context.Background(), adminPassword); err != nil {
		log.Fatalf("seed: %v", err)
	}

	// No exporter is registered here; spans stay in-process and the
	// structured observability events carry the timings to the logs.
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}()

	auth := buildAuth()
	deduper := buildDeduper()

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Idempotency-Key"},
	}))
	e.Use(api.GzipRequestMiddleware())
	e.Use(echoprometheus.NewMiddleware("contrack"))
	e.GET("/metrics", echoprometheus.NewHandler())

	logger := log.New()
	api.Register(e, store, auth, deduper, filesBase, logger)

	sweepInterval := 15 * time.Minute
	if v := os.Getenv("REMINDER_SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid REMINDER_SWEEP_INTERVAL: %v", err)
		}
		sweepInterval = d
	}
	checker := reminders.NewChecker(store, logger)
	if err := checker.Start(sweepInterval); err != nil {
		log.Fatalf("reminder checker: %v", err)
	}
	defer checker.Stop()

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}

// buildAuth picks HS256 shared-secret validation for local deployments or a
// remote JWKS otherwise. Token issuance happens at the identity provider;
// this process only validates.
func buildAuth() *api.Auth {
	if strings.EqualFold(os.Getenv("LOCAL_AUTH_MODE"), "hs256") {
		secret := os.Getenv("LOCAL_AUTH_SHARED_SECRET")
		if secret == "" {
			log.Fatal("LOCAL_AUTH_SHARED_SECRET must be set when LOCAL_AUTH_MODE=hs256")
		}
		return api.NewLocalAuth([]byte(secret))
	}

	domainName := os.Getenv("AUTH_DOMAIN")
	audience := os.Getenv("AUTH_AUDIENCE")
	if domainName == "" || audience == "" {
		log.Fatal("missing auth config: set AUTH_DOMAIN and AUTH_AUDIENCE, or LOCAL_AUTH_MODE=hs256")
	}
	jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", domainName)
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
	if err != nil {
		log.Fatalf("jwks: %v", err)
	}
	return api.NewAuth(jwks, audience, "https://"+domainName+"/")
}

// buildDeduper returns nil when no Redis is configured, which disables
// Idempotency-Key handling entirely.
func buildDeduper() api.Deduper {
	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		return nil
	}
	redisOpts, err := redis.ParseURL(redisConn)
	if err != nil {
		parts := strings.Split(redisConn, ",")
		redisOpts = &redis.Options{Addr: parts[0]}
		for _, p := range parts[1:] {
			kv := strings.SplitN(p, "=", 2)
			if len(kv) != 2 {
				continue
			}
			switch strings.ToLower(kv[0]) {
			case "password":
				redisOpts.Password = kv[1]
			case "ssl":
				if strings.ToLower(kv[1]) == "true" {
					redisOpts.TLSConfig = &tls.Config{}
				}
			}
		}
	}
	ttl := 24 * time.Hour
	if v := os.Getenv("IDEMPOTENCY_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid IDEMPOTENCY_TTL: %v", err)
		}
		ttl = d
	}
	return api.NewRedisDeduper(redis.NewClient(redisOpts), ttl)
}
