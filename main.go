package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"game-hunter/pkg/aggregate"
	"game-hunter/pkg/cache"
	"game-hunter/pkg/config"
	"game-hunter/pkg/httpclient"
	"game-hunter/pkg/logger"
	"game-hunter/pkg/render"
	"game-hunter/pkg/scrapers/cheapshark"
	"game-hunter/pkg/scrapers/greenmangaming"
	"game-hunter/pkg/scrapers/instantgaming"
	"game-hunter/pkg/scrapers/nuuvem"
	"game-hunter/pkg/scrapers/steam"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.LogLevel, cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openCache(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize cache: %v", err)
	}
	defer store.Close()

	client := httpclient.New(cfg.HTTPTimeout)
	defer client.Close()

	var renderer render.Renderer
	if cfg.RenderEnabled {
		renderer = render.NewChrome(cfg.RenderTimeout)
		logrus.Info("Headless rendering enabled for GreenManGaming")
	}

	srv := newServer(newEngine(cfg, client, store, renderer), cfg.MaxConcurrentSearches, cfg.DefaultRegion)

	if ip := GetOutboundIP(); ip != nil {
		fmt.Printf("Local Network URL: http://%s:%s\n", ip.String(), cfg.Port)
	} else {
		fmt.Println("Could not determine local IP address.")
	}
	fmt.Printf("Access URL: http://localhost:%s\n", cfg.Port)
	fmt.Printf("API Docs: http://localhost:%s/\n", cfg.Port)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("Graceful shutdown failed")
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.Fatalf("Server failed: %v", err)
	}
	logrus.Info("Server stopped")
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	switch cfg.CacheBackend {
	case "redis":
		store, err := cache.NewRedis(ctx, cfg.RedisURL, cfg.CacheTTL())
		if err != nil {
			return nil, err
		}
		logrus.Infof("Cache initialized on redis with TTL %s", cfg.CacheTTL())
		return store, nil
	case "none":
		logrus.Info("Cache disabled")
		return cache.Nop{}, nil
	default:
		store, err := cache.NewSQLite(cfg.CacheDBPath, cfg.CacheTTL())
		if err != nil {
			return nil, err
		}
		logrus.Infof("Cache initialized at %s with TTL %s", cfg.CacheDBPath, cfg.CacheTTL())
		return store, nil
	}
}

func newEngine(cfg *config.Config, client *httpclient.Client, store cache.Store, renderer render.Renderer) *aggregate.Engine {
	st := steam.NewScraper(client)
	st.Region = cfg.DefaultRegion
	st.Timeout = cfg.APITimeout

	fanatical := cheapshark.NewScraper(client, store)
	fanatical.Timeout = cfg.APITimeout

	ig := instantgaming.NewScraper(client)
	ig.Timeout = cfg.HTTPTimeout

	gmg := greenmangaming.NewScraper(client, renderer)
	gmg.Timeout = cfg.HTTPTimeout

	nv := nuuvem.NewScraper(client)
	nv.Region = cfg.DefaultRegion
	nv.Timeout = cfg.HTTPTimeout

	return &aggregate.Engine{
		Primary:        st,
		InstantGaming:  ig,
		Fanatical:      fanatical,
		GreenManGaming: gmg,
		Nuuvem:         nv,
	}
}

func GetOutboundIP() net.IP {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		addrs, _ := net.InterfaceAddrs()
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					return ipnet.IP
				}
			}
		}
		return nil
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)

	return localAddr.IP
}
