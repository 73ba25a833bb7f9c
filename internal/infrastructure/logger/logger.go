package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"bookpulse/internal/infrastructure/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup 控制台彩色输出；配置了 file 时同时写入按大小滚动的 JSON 日志
func Setup(cfg config.LogConfig) {
	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}

	var out io.Writer = console
	if path := strings.TrimSpace(cfg.File); path != "" {
		out = zerolog.MultiLevelWriter(console, &lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.MaxSizeMB,
			MaxAge:     cfg.MaxAgeDays,
			MaxBackups: cfg.MaxBackups,
			Compress:   cfg.Compress,
		})
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))
}

// ParseLevel 未知级别按 info 处理
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
