package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tokmz/relay/internal/collab"
	"github.com/tokmz/relay/internal/server"
	"github.com/tokmz/relay/pkg/config"
	"github.com/tokmz/relay/pkg/hub"
	"github.com/tokmz/relay/pkg/logger"
	"github.com/tokmz/relay/pkg/protocol"
)

func main() {
	configFile := flag.String("config", "", "配置文件路径（可选，缺省用内置默认值与环境变量）")
	flag.Parse()

	if err := run(*configFile); err != nil {
		fmt.Fprintf(os.Stderr, "relay: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	loader := config.NewLoader(config.WithFile(configFile))
	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	logCfg := &logger.Config{
		Level:   logger.ParseLevel(cfg.Log.Level),
		Format:  logger.Format(cfg.Log.Format),
		Console: cfg.Log.Console,
	}
	if cfg.Log.File != "" {
		logCfg.Rotate = &logger.RotateConfig{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSize,
			MaxAge:     cfg.Log.MaxAge,
			MaxBackups: cfg.Log.MaxBackups,
		}
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	h, err := hub.New(
		hub.WithSessionTimeout(cfg.Hub.SessionTimeout),
		hub.WithTypingTimeout(cfg.Hub.TypingTimeout),
		hub.WithSweepInterval(cfg.Hub.SweepInterval),
		hub.WithHistoryLimit(cfg.Hub.HistoryLimit),
		hub.WithLogger(log.Named("hub")),
	)
	if err != nil {
		return err
	}

	dispatcher := protocol.NewDispatcher(
		h,
		collab.TokenAuthenticator{},
		collab.OpenRoomDirectory{},
		collab.NewMemoryMessageStore(),
		protocol.WithSendQueueSize(cfg.Hub.SendQueueSize),
		protocol.WithLogger(log.Named("protocol")),
	)

	srv := server.New(&cfg.Server, h, dispatcher, log.Named("server"))

	// 配置热更新目前只提示，运行中的参数重启后生效
	loader.Watch(func(*config.Config) {
		log.Info("配置文件已变更，重启后生效")
	})
	defer loader.StopWatch()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h.Start()
	defer h.Stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})

	log.Info("relay 已启动", zap.String("addr", cfg.Server.Addr))
	return g.Wait()
}
