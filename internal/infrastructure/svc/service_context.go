package svc

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"bookpulse/internal/application/port"
	"bookpulse/internal/application/usecase/monitor"
	"bookpulse/internal/infrastructure/bookfeed"
	"bookpulse/internal/infrastructure/config"
	"bookpulse/internal/infrastructure/feed"
	"bookpulse/internal/infrastructure/storage/composite"
	kafkarepo "bookpulse/internal/infrastructure/storage/kafka"
	pgrepo "bookpulse/internal/infrastructure/storage/postgres"
	redisrepo "bookpulse/internal/infrastructure/storage/redis"
	sqliterepo "bookpulse/internal/infrastructure/storage/sqlite"
	"bookpulse/internal/infrastructure/websocket"
	"bookpulse/internal/interfaces/console"
)

type ServiceContext struct {
	Ctx      context.Context
	Config   *config.Config
	Settings config.Settings

	// 行情核心
	Registry *feed.Registry
	venues   []string

	// 信号仓储，多个存储时为 composite
	Repo port.Repository

	// 输出端口
	Sink port.Sink

	// 资源管理
	closerChain []func() error
}

// New 创建并初始化 ServiceContext
// 这是应用启动的唯一入口点，所有依赖初始化都在这里完成
func New(ctx context.Context, cfg *config.Config) (*ServiceContext, error) {
	return NewWithDialer(ctx, cfg, websocket.NewGorillaDialer(cfg.ReadTimeout()))
}

// NewWithDialer 允许替换 ws 拨号器
func NewWithDialer(ctx context.Context, cfg *config.Config, dialer websocket.Dialer) (*ServiceContext, error) {
	var out io.Writer = os.Stdout
	if !cfg.App.Render {
		out = io.Discard
	}

	sc := &ServiceContext{
		Ctx:         ctx,
		Config:      cfg,
		Settings:    cfg.Settings(),
		Sink:        console.NewSink(out),
		closerChain: make([]func() error, 0),
	}

	// 初始化所有组件，按依赖顺序
	if err := sc.initializeComponents(dialer); err != nil {
		// 清理已初始化的资源
		_ = sc.Close()
		return nil, err
	}
	return sc, nil
}

func (sc *ServiceContext) initializeComponents(dialer websocket.Dialer) error {
	// 0. 存储层
	if err := sc.initializeStorage(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInitFailed, err)
	}

	// 1. 交易所适配器，由各 exchange 包的 init() 注册
	var venues []feed.Venue
	for _, name := range sc.Settings.EnabledVenues {
		factory, ok := bookfeed.Get(name)
		if !ok {
			log.Warn().Str("exchange", name).Msg("no order book adapter registered, skipping")
			continue
		}
		venues = append(venues, feed.Venue{
			Adapter: factory(sc.Config.Feed.Quote),
			BaseURL: sc.Config.Exchanges[name].WsURL,
		})
		sc.venues = append(sc.venues, name)
	}
	if len(venues) == 0 {
		return ErrNoVenuesEnabled
	}

	// 2. 通道注册表
	opts := sc.Config.FeedOptions()
	opts.HistoryLength = sc.Settings.HistoryLength
	sc.Registry = feed.NewRegistry(opts, dialer, nil, venues...)
	sc.closerChain = append(sc.closerChain, func() error {
		sc.Registry.DisconnectAll()
		return nil
	})

	log.Info().
		Strs("venues", sc.venues).
		Str("symbol", sc.Settings.Symbol).
		Msg("✓ All components initialized")
	return nil
}

// initializeStorage 初始化存储层 (SQLite / Postgres / Redis / Kafka)
func (sc *ServiceContext) initializeStorage() error {
	var repos []port.Repository
	st := sc.Config.Storage

	if st.SQLite.Enabled {
		repo, err := sqliterepo.New(st.SQLite.Path)
		if err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
		repos = append(repos, repo)
		log.Info().Str("path", st.SQLite.Path).Msg("✓ SQLite initialized")
	}

	if st.Postgres.Enabled {
		repo, err := pgrepo.New(st.Postgres.DSN)
		if err != nil {
			closeAll(repos)
			return fmt.Errorf("postgres: %w", err)
		}
		repos = append(repos, repo)
		log.Info().Msg("✓ Postgres initialized")
	}

	if st.Redis.Enabled {
		rdb := redisrepo.NewClient(st.Redis.Addr, st.Redis.Pass, st.Redis.DB)
		repo := redisrepo.New(rdb, st.Redis.Prefix, 0, st.Redis.MaxLen)

		// 测试连接
		ctx, cancel := context.WithTimeout(sc.Ctx, 5*time.Second)
		err := repo.Ping(ctx)
		cancel()
		if err != nil {
			_ = repo.Close()
			closeAll(repos)
			return fmt.Errorf("redis ping failed: %w", err)
		}
		repos = append(repos, repo)
		log.Info().Str("addr", st.Redis.Addr).Int("db", st.Redis.DB).Msg("✓ Redis initialized")
	}

	if st.Kafka.Enabled {
		repos = append(repos, kafkarepo.New(st.Kafka.Brokers, st.Kafka.Topic))
		log.Info().Strs("brokers", st.Kafka.Brokers).Str("topic", st.Kafka.Topic).Msg("✓ Kafka initialized")
	}

	switch len(repos) {
	case 0:
		sc.Repo = monitor.NewNoopRepo()
	case 1:
		sc.Repo = repos[0]
	default:
		sc.Repo = composite.New(repos...)
	}

	repo := sc.Repo
	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing signal repositories")
		return repo.Close()
	})
	return nil
}

func closeAll(repos []port.Repository) {
	for _, r := range repos {
		_ = r.Close()
	}
}

// Venues 已成功装配适配器的交易所
func (sc *ServiceContext) Venues() []string {
	return sc.venues
}

// BuildMonitorServiceDeps 构建 Monitor Service 所需的所有依赖
func (sc *ServiceContext) BuildMonitorServiceDeps() monitor.ServiceDeps {
	return monitor.ServiceDeps{
		Market:        sc.Registry,
		Venues:        sc.venues,
		Symbol:        sc.Settings.Symbol,
		AnalysisEvery: sc.Config.AnalysisEvery(),
		SnapshotEvery: time.Duration(sc.Config.App.SnapshotEveryS) * time.Second,
		Sink:          sc.Sink,
		Repo:          sc.Repo,
		Limiter:       rate.NewLimiter(rate.Limit(sc.Config.Publish.PerSecond), sc.Config.Publish.Burst),
	}
}

// Close 按照相反的顺序关闭所有资源
// 应该在应用退出时调用
func (sc *ServiceContext) Close() error {
	for i := len(sc.closerChain) - 1; i >= 0; i-- {
		if err := sc.closerChain[i](); err != nil {
			log.Error().Err(err).Msg("error closing resource")
		}
	}
	sc.closerChain = nil
	return nil
}
