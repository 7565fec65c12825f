package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nishanth-sairam/whatsup-clone/internal/auth"
	"github.com/nishanth-sairam/whatsup-clone/internal/client"
	"github.com/nishanth-sairam/whatsup-clone/internal/config"
	"github.com/nishanth-sairam/whatsup-clone/internal/session"
)

func main() {
	// 初始化日志
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// 加载配置
	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化凭证提供者
	tokens, err := auth.NewStaticProvider(cfg.Auth)
	if err != nil {
		logger.Error("Failed to initialize credentials", "error", err)
		os.Exit(1)
	}
	logger.Info("Authenticated", "user_id", tokens.Subject())

	// 创建上下文
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 创建客户端核心
	c := client.New(cfg, tokens, logger)
	c.Store().OnStateChanged(func(state session.SessionState) {
		var unread int64
		for _, chat := range state.Chats {
			unread += chat.UnreadCount
		}
		logger.Info("Session state changed",
			"chats", len(state.Chats),
			"open_chat", state.OpenChatId,
			"loaded_messages", len(state.Messages.Content),
			"total_unread", unread)
	})

	// 启动核心（快照加载 + 实时订阅）
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Run(ctx)
	}()

	logger.Info("Client core started",
		"server", cfg.Server.BaseURL,
		"nats_bridge", cfg.NATS.Enabled)

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutting down...")
		c.Stop()
		cancel()
	case err := <-errCh:
		if err != nil {
			logger.Error("Client core failed", "error", err)
			os.Exit(1)
		}
	}
	logger.Info("Client stopped")
}
