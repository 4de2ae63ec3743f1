package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"room-editor/backend/internal/adapter/in/ws"
	"room-editor/backend/internal/adapter/out/memory"
	"room-editor/backend/internal/adapter/out/sqlite"
	"room-editor/backend/internal/config"
	"room-editor/backend/internal/core/domain/service"
	"room-editor/backend/internal/core/port/out/storage"
	"room-editor/backend/internal/persistence"
	"room-editor/backend/internal/telemetry"
	"room-editor/backend/internal/world"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := log.New(os.Stderr, "", log.LstdFlags)

	flags := config.NewFlags("room-editor")
	cfg, err := flags.Load(os.Args[1:], os.Getenv)
	if err != nil {
		return err
	}
	world.SetEditorConfig(cfg.EditorSettings())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	tm := telemetry.NewTelemetryManager(logger)
	tm.SetEnabled(cfg.Telemetry.Enabled)

	scene := world.NewScene(world.NewRegistry(), logger)
	if cfg.Editor.SampleScene {
		world.NewSampleSceneCreator(scene, logger).CreateAll()
	}

	gateway := persistence.NewGateway(store, logger)
	editor := service.NewEditorService(scene, gateway, service.Config{
		MaxHistory:        cfg.Editor.MaxHistory,
		InitialStateDelay: cfg.Editor.InitialStateDelay,
	}, logger)
	editor.SetTelemetry(tm)

	if cfg.Editor.LoadAutoSave {
		restoreAutoSave(ctx, editor, logger)
	}
	editor.Start()
	defer editor.Stop()

	autoSaver := persistence.NewAutoSaver(editor, cfg.Editor.AutoSaveInterval, logger)
	autoSaver.Start(ctx)
	defer autoSaver.Stop()

	go printTelemetry(ctx, tm, cfg.Telemetry.SummaryInterval)

	adapter := ws.NewWSAdapter(editor, tm, logger)
	defer adapter.Close()

	mux := http.NewServeMux()
	adapter.RegisterRoutes(mux)
	if dir := cfg.Server.StaticDir; dir != "" {
		if _, err := os.Stat(dir); err != nil {
			logger.Printf("[Server] Каталог статики %s недоступен: %v", dir, err)
		} else {
			mux.Handle("/", http.FileServer(http.Dir(dir)))
			logger.Printf("[Server] Статические файлы из %s", dir)
		}
	}

	server := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("[Server] Запуск на %s", cfg.Server.Listen)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http-сервер: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Printf("[Server] Остановка...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// websocket-соединения захвачены и не учитываются Shutdown
	adapter.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("остановка http-сервера: %w", err)
	}

	if _, err := editor.AutoSave(shutdownCtx); err != nil {
		logger.Printf("[Server] Финальное автосохранение не удалось: %v", err)
	}
	tm.PrintSummary()
	return nil
}

// openStore открывает слот автосохранения согласно конфигурации
func openStore(ctx context.Context, cfg config.StorageConfig, logger *log.Logger) (storage.SlotStore, func(), error) {
	if cfg.Driver == config.StorageMemory {
		logger.Printf("[Server] Автосохранение в памяти")
		return memory.NewSlotStore(), func() {}, nil
	}

	db, err := sqlite.Open(cfg.Path)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			logger.Printf("[Server] Ошибка закрытия базы: %v", err)
		}
	}

	store := sqlite.New(db)
	if err := store.Init(ctx); err != nil {
		closeDB()
		return nil, nil, err
	}
	logger.Printf("[Server] Автосохранение в %s", cfg.Path)
	return store, closeDB, nil
}

// restoreAutoSave загружает автосохранение, если оно есть. Начальное
// состояние записывается до загрузки и остается нижней границей отмены.
func restoreAutoSave(ctx context.Context, editor *service.EditorService, logger *log.Logger) {
	if err := editor.SaveInitialState(); err != nil {
		logger.Printf("[Server] Ошибка записи начального состояния: %v", err)
	}

	loadCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := editor.LoadAutoSave(loadCtx)
	switch {
	case err == nil:
		logger.Printf("[Server] Сцена восстановлена из автосохранения")
	case errors.Is(err, persistence.ErrNoAutoSave):
		logger.Printf("[Server] Автосохранение не найдено, используется новая сцена")
	default:
		logger.Printf("[Server] Ошибка загрузки автосохранения: %v", err)
	}
}

// printTelemetry периодически выводит сводку операций
func printTelemetry(ctx context.Context, tm *telemetry.TelemetryManager, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tm.PrintSummary()
		}
	}
}
