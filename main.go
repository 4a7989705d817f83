package main

import (
	"crypto/tls"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"kanban-api/api"
	"kanban-api/engine"
	"kanban-api/storage"
)

func main() {
	debug := os.Getenv("DEBUG") == "1"
	if debug {
		log.SetLevel(log.DebugLevel)
	}

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	tables := storage.Tables{
		Tasks:   os.Getenv("TASKS_TABLE"),
		Columns: os.Getenv("COLUMNS_TABLE"),
		Boards:  os.Getenv("BOARDS_TABLE"),
		Fields:  os.Getenv("FIELDS_TABLE"),
	}
	eventQueueName := os.Getenv("EVENT_QUEUE")
	if connStr == "" || tables.Tasks == "" || tables.Columns == "" || tables.Boards == "" || tables.Fields == "" || eventQueueName == "" {
		log.Fatal("missing storage config")
	}
	store, err := storage.New(connStr, tables, eventQueueName)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		log.Fatal("missing redis config")
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
	rc := redis.NewClient(redisOpts)

	dedupeTTL := 24 * time.Hour
	if v := os.Getenv("DEDUPER_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid DEDUPER_TTL: %v", err)
		}
		dedupeTTL = d
	}
	deduper := api.NewRedisDeduper(rc, dedupeTTL)

	fieldCacheTTL := 5 * time.Minute
	if v := os.Getenv("FIELD_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			log.Fatalf("invalid FIELD_CACHE_TTL: %v", err)
		}
		fieldCacheTTL = d
	}
	fields := storage.NewFieldCache(store, rc, fieldCacheTTL)

	var auth *api.Auth
	if os.Getenv("AUTH_TEST_MODE") == "1" {
		auth = api.NewAuth(nil, "", "")
	} else {
		jwtAudience := os.Getenv("AUTH0_AUDIENCE")
		domainName := os.Getenv("AUTH0_DOMAIN")
		if jwtAudience == "" || domainName == "" {
			log.Fatal("missing Auth0 config")
		}
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", domainName)
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		auth = api.NewAuth(jwks, jwtAudience, "https://"+domainName+"/")
	}

	logger := log.New()
	publisher := api.NewPublisher(store, logger)
	defer publisher.Close()

	svc := api.Services{
		Mover:  engine.NewMover(store, store),
		Tasks:  engine.NewTaskService(store, store, engine.NewFieldEngine(fields)),
		Reader: store,
		Boards: store,
	}

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Idempotency-Key"},
	}))
	e.Use(api.GzipRequestMiddleware())
	e.Use(echoprometheus.NewMiddleware("kanban_api"))
	e.GET("/metrics", echoprometheus.NewHandler())
	if debug {
		pprof.Register(e)
	}

	api.Register(e, svc, publisher, auth, deduper, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}
