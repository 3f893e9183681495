package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dataagentjp.io/querycore/common/arangodb"
	"dataagentjp.io/querycore/common/id"
	"dataagentjp.io/querycore/common/llm"
	"dataagentjp.io/querycore/common/logger"
	"dataagentjp.io/querycore/common/otel"
	"dataagentjp.io/querycore/common/qdrant"
	"dataagentjp.io/querycore/core/config"
	"dataagentjp.io/querycore/core/db"
	"dataagentjp.io/querycore/internal/catalog"
	"dataagentjp.io/querycore/internal/executor"
	"dataagentjp.io/querycore/internal/http/middleware"
	httprouter "dataagentjp.io/querycore/internal/http/router"
	"dataagentjp.io/querycore/internal/masterdata"
	"dataagentjp.io/querycore/internal/nlq"
	"dataagentjp.io/querycore/internal/prevalidate"
	"dataagentjp.io/querycore/internal/resolver"
	"dataagentjp.io/querycore/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Logger is not up yet, so write straight to stderr
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "querycore starting",
		"env", cfg.Env,
		"datasource", string(cfg.Datasource),
		"system_id", cfg.SystemID)
	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	// Catalog sources are consulted in priority order: the vector store,
	// then the schema graph, then the bundled metadata files.
	loaderParams := catalog.LoaderParams{
		SystemID: cfg.SystemID,
		Dialect:  cfg.Datasource,
	}

	if cfg.Qdrant.Enabled() {
		qdrantClient, err := qdrant.New(qdrant.Config{
			Host:             cfg.Qdrant.Host,
			Port:             cfg.Qdrant.Port,
			APIKey:           cfg.Qdrant.APIKey,
			CollectionPrefix: cfg.Qdrant.CollectionPrefix,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to build qdrant client", "error", err)
			os.Exit(1)
		}
		vector := catalog.NewVectorSource(qdrantClient)
		loaderParams.ConceptSources = append(loaderParams.ConceptSources, vector)
		loaderParams.IntentSources = append(loaderParams.IntentSources, vector)
		slog.InfoContext(ctx, "qdrant catalog source enabled", "host", cfg.Qdrant.Host)
	}

	if cfg.ArangoDB.Enabled() {
		arangoClient, err := arangodb.New(ctx, arangodb.Config{
			URL:              cfg.ArangoDB.URL,
			Username:         cfg.ArangoDB.Username,
			Password:         cfg.ArangoDB.Password,
			Database:         cfg.ArangoDB.Database,
			CollectionPrefix: cfg.ArangoDB.CollectionPrefix,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to connect to arangodb", "error", err)
			os.Exit(1)
		}
		graph := catalog.NewGraphSource(arangoClient)
		loaderParams.ConceptSources = append(loaderParams.ConceptSources, graph)
		loaderParams.BindingSources = append(loaderParams.BindingSources, graph)
		slog.InfoContext(ctx, "arangodb catalog source enabled", "database", cfg.ArangoDB.Database)
	}

	fileSource := catalog.NewFileSource(cfg.MetadataPath)
	loaderParams.ConceptSources = append(loaderParams.ConceptSources, fileSource)
	loaderParams.IntentSources = append(loaderParams.IntentSources, fileSource)
	loaderParams.BindingSources = append(loaderParams.BindingSources, fileSource)
	loaderParams.TableSources = append(loaderParams.TableSources, fileSource)

	catalogHolder := catalog.NewHolder(catalog.NewLoader(loaderParams))
	if err := catalogHolder.Load(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to load catalog", "error", err)
		os.Exit(1)
	}

	var masterSources []masterdata.Source
	if cfg.MasterData.Enabled() {
		database, err := db.New(ctx, db.Config{DSN: cfg.MasterData.DatabaseURL})
		if err != nil {
			slog.ErrorContext(ctx, "failed to connect to master data database", "error", err)
			os.Exit(1)
		}
		defer database.Close()
		masterSources = append(masterSources, masterdata.NewPostgresSource(database))
		slog.InfoContext(ctx, "master data database connected")
	}
	masterSources = append(masterSources, masterdata.NewFileSource(cfg.MetadataPath))

	masterHolder := masterdata.NewHolder(masterdata.NewLoader(masterSources...))
	if err := masterHolder.Load(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to load master data", "error", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			// The shared cache tier is optional; the in-process LRU still works
			slog.WarnContext(ctx, "redis unreachable, parser cache is in-process only", "error", err)
			redisClient = nil
		} else {
			slog.InfoContext(ctx, "redis connected")
		}
	}

	var llmClient llm.Client
	if cfg.LLM.Enabled() {
		llmClient, err = llm.New(llm.Config{
			Provider: cfg.LLM.Provider,
			BaseURL:  cfg.LLM.BaseURL,
			APIKey:   cfg.LLM.APIKey,
			Model:    cfg.LLM.Model,
			Timeout:  cfg.LLM.Timeout,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to build llm client", "error", err)
			os.Exit(1)
		}
		slog.InfoContext(ctx, "llm parser stage enabled",
			"provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
	} else {
		slog.InfoContext(ctx, "llm parser stage disabled, cascade stops at the rule pass")
	}

	aliases := resolver.DefaultAliases()
	for name, target := range cfg.Parser.IntentAliases {
		aliases[name] = target
	}

	parser := nlq.New(nlq.Params{
		Catalog:        catalogHolder,
		LLM:            llmClient,
		Redis:          redisClient,
		RuleThreshold:  cfg.Parser.RuleThreshold,
		ConfidenceGate: cfg.Parser.ConfidenceGate,
		CacheSize:      cfg.Parser.CacheSize,
		CacheTTL:       cfg.Parser.CacheTTL,
		MaxResults:     cfg.MaxResults,
		Temperature:    cfg.LLM.Temperature,
		NumPredict:     cfg.LLM.NumPredict,
	})

	validator := prevalidate.New(prevalidate.Params{
		Catalog:        catalogHolder,
		Master:         masterHolder,
		Aliases:        aliases,
		ConfidenceGate: cfg.Parser.ConfidenceGate,
	})

	res := resolver.New(resolver.Params{
		Catalog:        catalogHolder,
		Dialect:        cfg.Datasource,
		Aliases:        aliases,
		ConfidenceGate: cfg.Parser.ConfidenceGate,
		MaxLimit:       cfg.MaxResults,
		FallbackBucket: cfg.DuckDB.S3Bucket,
	})

	defaultTimeout := time.Duration(cfg.DefaultTimeout) * time.Second

	exec, err := executor.New(executor.Params{
		Dialect:        cfg.Datasource,
		Catalog:        catalogHolder,
		DuckDB:         cfg.DuckDB,
		Oracle:         cfg.Oracle,
		Cache:          cfg.Executor,
		DefaultTimeout: defaultTimeout,
		MaxRows:        cfg.MaxResults,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to build query executor", "error", err)
		os.Exit(1)
	}

	services := service.NewServices(service.ServicesParams{
		Parser:           parser,
		Validator:        validator,
		Resolver:         res,
		Executor:         exec,
		CatalogHolder:    catalogHolder,
		MasterDataHolder: masterHolder,
		Debug:            cfg.Debug,
		Logger:           slog.Default(),
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if err := exec.Close(); err != nil {
		slog.ErrorContext(shutdownCtx, "executor shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, services *service.Services) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services, httprouter.RouterConfig{
		DefaultTimeout: time.Duration(cfg.DefaultTimeout) * time.Second,
	})

	return router
}

const banner = `
 ██████╗ ██╗   ██╗███████╗██████╗ ██╗   ██╗     ██████╗ ██████╗ ██████╗ ███████╗
██╔═══██╗██║   ██║██╔════╝██╔══██╗╚██╗ ██╔╝    ██╔════╝██╔═══██╗██╔══██╗██╔════╝
██║   ██║██║   ██║█████╗  ██████╔╝ ╚████╔╝     ██║     ██║   ██║██████╔╝█████╗
██║▄▄ ██║██║   ██║██╔══╝  ██╔══██╗  ╚██╔╝      ██║     ██║   ██║██╔══██╗██╔══╝
╚██████╔╝╚██████╔╝███████╗██║  ██║   ██║       ╚██████╗╚██████╔╝██║  ██║███████╗
 ╚══▀▀═╝  ╚═════╝ ╚══════╝╚═╝  ╚═╝   ╚═╝        ╚═════╝ ╚═════╝ ╚═╝  ╚═╝╚══════╝
`
