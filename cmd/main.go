package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vision-batch/config"
	telegram "vision-batch/internal/api"
	"vision-batch/internal/container"
	"vision-batch/internal/domain/entity"
	"vision-batch/internal/domain/port"
	"vision-batch/internal/infrastructure/filesystem"
	"vision-batch/internal/infrastructure/imageio"
	"vision-batch/internal/infrastructure/storage"
	"vision-batch/internal/infrastructure/vision"
	"vision-batch/internal/infrastructure/websocket"
	"vision-batch/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var (
		confidence    = float64(cfg.ConfidenceThreshold)
		nms           = float64(cfg.NMSThreshold)
		classesFilter string
	)
	flag.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "model file (.onnx, .weights, .pb)")
	flag.StringVar(&cfg.ModelConfigPath, "config", cfg.ModelConfigPath, "model config file (.cfg for darknet)")
	flag.StringVar(&cfg.ClassesPath, "classes", cfg.ClassesPath, "class names file, one per line")
	flag.StringVar(&cfg.InputFolder, "folder", cfg.InputFolder, "root folder with images")
	flag.BoolVar(&cfg.Recursive, "recursive", cfg.Recursive, "scan subfolders")
	flag.Float64Var(&confidence, "conf", confidence, "confidence threshold")
	flag.Float64Var(&nms, "nms", nms, "NMS IoU threshold")
	flag.IntVar(&cfg.InputWidth, "width", cfg.InputWidth, "network input width")
	flag.IntVar(&cfg.InputHeight, "height", cfg.InputHeight, "network input height")
	flag.StringVar(&classesFilter, "classes-filter", "", "comma separated class names to keep")
	flag.StringVar(&cfg.AnnotatedDir, "annotated-dir", cfg.AnnotatedDir, "directory for annotated copies")
	flag.StringVar(&cfg.ResultsDB, "db", cfg.ResultsDB, "SQLite file for run results")
	flag.StringVar(&cfg.WSAddr, "ws-addr", cfg.WSAddr, "address for the /events websocket endpoint")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flag.Parse()

	cfg.ConfidenceThreshold = float32(confidence)
	cfg.NMSThreshold = float32(nms)
	if classesFilter != "" {
		cfg.TargetClasses = config.SplitList(classesFilter)
	}

	logg := logger.New(cfg.LogLevel)
	if err := run(cfg, logg); err != nil {
		logg.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *slog.Logger) error {
	if cfg.ModelPath == "" || cfg.InputFolder == "" {
		flag.Usage()
		return errors.New("-model and -folder are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Собираем детектор, обработчик и воркер
	engine := vision.NewGoCVEngine()
	c := container.New(engine, filesystem.NewScanner(logg), imageio.NewCodec(), logg)
	defer c.Detector.Close()

	if err := c.Detector.SetConfig(cfg.DetectionConfig()); err != nil {
		return err
	}
	if err := c.Detector.LoadModel(cfg.ModelPath, cfg.ModelConfigPath, cfg.ClassesPath); err != nil {
		return err
	}
	logg.Info("detector ready", "info", c.Detector.ModelInfo())

	if cfg.AnnotatedDir != "" {
		c.Processor.SetAnnotatedDir(cfg.AnnotatedDir)
	}

	var repo port.ResultRepository = storage.NewMemoryResultRepository()
	if cfg.ResultsDB != "" {
		db, err := storage.OpenSQLite(cfg.ResultsDB)
		if err != nil {
			return err
		}
		defer db.Close()
		repo = storage.NewSQLiteResultRepository(db, logg.With("component", "storage"))
	}
	c.Worker.SetRepository(repo)

	if cfg.TelegramEnabled() {
		bot, err := telegram.NewBot(cfg.TelegramToken, cfg.TelegramChatID, repo, logg.With("component", "telegram"))
		if err != nil {
			return fmt.Errorf("create telegram bot: %w", err)
		}
		c.Worker.SetNotifier(bot)
		go func() {
			if err := bot.Run(ctx); err != nil {
				logg.Error("telegram bot stopped", "error", err)
			}
		}()
	}

	if cfg.WSAddr != "" {
		srv := startEventServer(ctx, cfg.WSAddr, c, logg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	c.Worker.Subscribe(port.EventListenerFunc(func(e entity.Event) {
		switch e.Kind {
		case entity.EventErrorOccurred:
			logg.Warn(e.String())
		case entity.EventImageProcessed:
			logg.Debug(e.String())
		default:
			logg.Info(e.String())
		}
	}))

	if !c.Worker.StartProcessing(ctx, cfg.InputFolder, c.Detector, cfg.Recursive) {
		return errors.New("processing did not start")
	}
	if err := c.Worker.Wait(context.Background()); err != nil {
		return err
	}

	for _, folder := range c.Worker.Results() {
		fmt.Println(folder.Summary())
	}
	fmt.Println(c.Worker.Stats().Summary())

	return c.Worker.Close(cfg.ShutdownTimeout)
}

// startEventServer поднимает /events и подписывает хаб на события воркера
func startEventServer(ctx context.Context, addr string, c *container.Container, logg *slog.Logger) *http.Server {
	hub := websocket.NewHub(logg.With("component", "hub"))
	go hub.Run(ctx)
	c.Worker.Subscribe(hub)

	mux := http.NewServeMux()
	mux.Handle("/events", hub.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logg.Info("event server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error("event server failed", "error", err)
		}
	}()
	return srv
}
