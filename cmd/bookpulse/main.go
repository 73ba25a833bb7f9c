package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"bookpulse/internal/application/usecase/monitor"
	"bookpulse/internal/infrastructure/config"
	"bookpulse/internal/infrastructure/logger"
	"bookpulse/internal/infrastructure/metrics"
	"bookpulse/internal/infrastructure/svc"

	// 交易所适配器通过 init() 注册
	_ "bookpulse/internal/infrastructure/exchange/binance"
	_ "bookpulse/internal/infrastructure/exchange/bitget"
	_ "bookpulse/internal/infrastructure/exchange/bybit"
	_ "bookpulse/internal/infrastructure/exchange/okx"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// .env 可选
	_ = godotenv.Load()

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	logger.Setup(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := svc.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("service context initialization failed")
	}
	defer sc.Close()

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
				log.Error().Err(err).Msg("metrics server exited")
			}
		}()
	}

	mon := monitor.NewService(sc.BuildMonitorServiceDeps())

	log.Info().
		Str("config", *configPath).
		Str("symbol", cfg.PairSymbol()).
		Strs("venues", sc.Venues()).
		Str("run_id", mon.RunID()).
		Msg("bookpulse started")

	if err := mon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("monitor service exited")
	}
}
