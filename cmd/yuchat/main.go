package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sony/sonyflake"
	"go.uber.org/zap"

	"yuchat/internal/auth"
	"yuchat/internal/chat"
	"yuchat/internal/config"
	"yuchat/internal/db"
	"yuchat/internal/event"
	"yuchat/internal/httpapi"
	"yuchat/internal/hub"
	"yuchat/internal/memcache"
	"yuchat/internal/metrics"
	"yuchat/internal/repo"
	"yuchat/internal/ws"
)

var (
	// Version is injected via -ldflags "-X main.Version=..."
	Version = "dev"
)

func main() {
	var cfgPaths string
	flag.StringVar(&cfgPaths, "c", "./config.yml", "config file path (supports: a.yml,b.yml)")
	flag.Parse()

	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg, err := config.Load(cfgPaths)
	if err != nil {
		log.Fatal("load config failed", zap.Error(err))
	}
	log.Info("yuchat starting", zap.String("version", Version), zap.String("addr", cfg.HTTP.Addr))

	metrics.Register()

	dbx, err := db.Open(db.Options{
		DSN:          cfg.MySQL.DSN,
		MaxOpenConns: cfg.MySQL.MaxOpenConns,
		MaxIdleConns: cfg.MySQL.MaxIdleConns,
		ConnMaxLife:  cfg.MySQL.ConnMaxLife,
		ConnMaxIdle:  cfg.MySQL.ConnMaxIdle,
	})
	if err != nil {
		log.Fatal("mysql init failed", zap.Error(err))
	}
	defer dbx.Close()

	if err := repo.EnsureSchema(context.Background(), dbx); err != nil {
		log.Fatal("schema init failed", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
		})
		defer rdb.Close()
	}

	sf := sonyflake.NewSonyflake(sonyflake.Settings{})
	if sf == nil {
		log.Fatal("sonyflake init failed")
	}

	users := repo.NewUserRepo(dbx, sf)
	convs := repo.NewConversationRepo(dbx, sf)
	msgs := repo.NewMessageRepo(dbx, sf)
	calls := repo.NewCallRepo(dbx, sf)

	var cursors chat.ReadCursors = chat.NopCursors{}
	if rdb != nil {
		cursors = chat.NewRedisCursors(rdb, "")
	}

	h := hub.New()
	members := memcache.New(cfg.Chat.MemberCacheTTL)
	router := event.NewRouter(convs, members, h, log)

	resolver := chat.NewResolver(users, convs, msgs, cursors, log)
	messages := chat.NewMessages(users, msgs, router, cfg.Chat.HistoryLimit, cfg.Chat.HistoryMaxLimit, log)
	callSvc := chat.NewCalls(users, calls, router, log)

	sessions := &auth.SessionStore{
		RedisPrefix: cfg.Auth.Token.RedisPrefix,
		TTLDays:     cfg.Auth.Token.TTLDays,
		Client:      rdb,
	}

	api := &httpapi.Server{
		Users:       users,
		Resolver:    resolver,
		Messages:    messages,
		Calls:       callSvc,
		Sessions:    sessions,
		TokenSecret: cfg.Auth.Token.Secret,
		Log:         log,
	}

	wsHandler := &ws.Handler{
		Hub:          h,
		Presence:     users,
		Log:          log,
		WriteTimeout: cfg.WS.WriteTimeout,
		PongWait:     cfg.WS.PongWait,
		SendQueue:    cfg.WS.SendQueue,
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(204) })
	mux.Handle("/ws", wsHandler)
	api.Routes(mux)

	handler := auth.Wrap(auth.Config{
		Enabled:      cfg.Auth.Enabled,
		Header:       cfg.Auth.Token.Header,
		BearerPrefix: cfg.Auth.Token.BearerPrefix,
		QueryKey:     cfg.Auth.Token.QueryKey,
		Secret:       cfg.Auth.Token.Secret,
		PublicPaths:  []string{"/healthz", "/metrics", "/v1/auth/register", "/v1/auth/login"},
	}, sessions, mux)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		log.Info("yuchat listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	log.Info("yuchat shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
