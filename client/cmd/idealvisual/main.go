package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

const (
	logDir             = "logs"
	logFileName        = "client.log"
	logFilePermissions = 0o666
	dotEnvFile         = ".env"
)

// Переменные для версии и даты сборки, устанавливаются через ldflags.
var (
	version = "dev"
	//nolint:gochecknoglobals // Устанавливается через ldflags при сборке
	buildDate = "unknown"
	//nolint:gochecknoglobals // Устанавливается через ldflags при сборке
	commitHash = "N/A"
)

// setupLogging направляет slog в файл logs/client.log, чтобы не смешивать
// диагностику с выводом команд.
func setupLogging() (*os.File, error) {
	if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию для логов: %w", err)
	}
	logPath := filepath.Join(logDir, logFileName)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть лог-файл: %w", err)
	}

	logHandler := slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(logHandler))
	slog.Info("Логгер инициализирован", "path", logPath)
	return logFile, nil
}

func main() {
	logFile, err := setupLogging()
	if err != nil {
		// Без файла логов продолжаем с выводом slog в stderr
		fmt.Fprintln(os.Stderr, err)
	} else {
		defer logFile.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(os.Stdout)
	if err = root.ExecuteContext(ctx); err != nil {
		slog.Error("Команда завершилась с ошибкой", "error", err)
		fmt.Fprintln(os.Stderr, err)
		stop()
		if logFile != nil {
			logFile.Close()
		}
		os.Exit(1)
	}
}
