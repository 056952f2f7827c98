package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v3"

	"copper_crm/internal/ai"
	"copper_crm/internal/global"
	"copper_crm/internal/logger"
	"copper_crm/internal/runtime"
	"copper_crm/internal/worker"
)

// initLogger khởi tạo và cấu hình logger cho toàn bộ ứng dụng
func initLogger() {
	// Khởi tạo logger với cấu hình mặc định
	// Logger sẽ tự động đọc environment variables để cấu hình
	if err := logger.Init(nil); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	// Log thông tin khởi tạo bằng logger mới
	log := logger.GetAppLogger()
	log.Info("Logger system initialized successfully")
}

// initEngine khởi tạo Engine điều phối chiến dịch với các adapter thật:
// MongoStore cho dữ liệu, SMTP/IMAP cho email và LLM client cho sinh nội dung.
func initEngine() *runtime.Engine {
	log := logger.GetAppLogger()
	cfg := global.ServerConfig

	store, err := runtime.NewMongoStore()
	if err != nil {
		log.Fatalf("❌ [INIT] Không thể khởi tạo store cho engine: %v", err)
	}

	engine := runtime.NewEngine(
		store,
		runtime.SMTPMailer{},
		runtime.IMAPMailbox{},
		ai.NewClient(cfg),
		runtime.Options{
			PublicBaseURL:     cfg.PublicBaseURL,
			UnsubscribeSecret: cfg.UnsubscribeSecret,
			DefaultModel:      cfg.LLMDefaultModel,
		},
		log,
	)

	log.Info("✅ [INIT] Campaign engine initialized successfully")
	return engine
}

// main_thread khởi tạo và chạy Fiber server
func main_thread(engine *runtime.Engine) {
	// Khởi tạo app với cấu hình
	app := InitFiberApp(engine)

	// Khởi động server với cấu hình listen
	cfg := global.ServerConfig
	address := cfg.Address

	log := logger.GetAppLogger()
	log.Info("Starting Fiber server...")

	// Helper function để resolve đường dẫn tương đối từ thư mục gốc dự án
	resolvePath := func(path string) string {
		if filepath.IsAbs(path) {
			return path
		}
		currentDir, err := os.Getwd()
		if err != nil {
			return path
		}
		for {
			envDir := filepath.Join(currentDir, "config", "env")
			if _, err := os.Stat(envDir); err == nil {
				return filepath.Join(currentDir, path)
			}
			parentDir := filepath.Dir(currentDir)
			if parentDir == currentDir {
				return path
			}
			currentDir = parentDir
		}
	}

	// Kiểm tra xem có bật TLS không
	if cfg.EnableTLS && cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		// Resolve đường dẫn certificate và key
		certPath := resolvePath(cfg.TLSCertFile)
		keyPath := resolvePath(cfg.TLSKeyFile)

		// Kiểm tra file certificate và key tồn tại
		if _, err := os.Stat(certPath); os.IsNotExist(err) {
			log.Fatalf("TLS certificate file not found: %s (resolved from: %s)", certPath, cfg.TLSCertFile)
		}
		if _, err := os.Stat(keyPath); os.IsNotExist(err) {
			log.Fatalf("TLS key file not found: %s (resolved from: %s)", keyPath, cfg.TLSKeyFile)
		}

		// Load certificate và key
		cert, err := tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			log.Fatalf("Error loading TLS certificate: %v", err)
		}

		// Tạo listener với TLS
		ln, err := net.Listen("tcp", address)
		if err != nil {
			log.Fatalf("Error creating listener: %v", err)
		}

		// Cấu hình TLS
		tlsConfig := &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}

		// Wrap listener với TLS
		tlsListener := tls.NewListener(ln, tlsConfig)

		log.WithFields(map[string]interface{}{
			"address": address,
			"cert":    certPath,
			"key":     keyPath,
		}).Info("Starting server with HTTPS/TLS")

		// Khởi động server với TLS listener
		if err := app.Listener(tlsListener); err != nil {
			log.Fatalf("Error in Fiber Listener with TLS: %v", err)
		}
	} else {
		// Khởi động server HTTP thông thường
		log.WithFields(map[string]interface{}{
			"address":  address,
			"protocol": "HTTP",
		}).Info("Starting server with HTTP")

		listenConfig := fiber.ListenConfig{}
		if err := app.Listen(address, listenConfig); err != nil {
			log.Fatalf("Error in Fiber Listen: %v", err)
		}
	}
}

// Hàm main
func main() {
	// Khởi tạo logger
	initLogger()

	// Khởi tạo các biến toàn cục
	InitGlobal()

	// Khởi tạo registry
	InitRegistry()

	// Khởi tạo dữ liệu mặc định
	InitDefaultData()

	// Khởi tạo engine điều phối chiến dịch
	engine := initEngine()

	// Khởi tạo và chạy Campaign Tick Worker (background worker, tắt mặc định,
	// dùng khi deployment không có cron ngoài gọi endpoint tick)
	log := logger.GetAppLogger()
	cfg := global.ServerConfig
	if cfg.TickWorkerEnabled {
		interval := time.Duration(cfg.TickIntervalSeconds) * time.Second
		tickWorker := worker.NewCampaignTickWorker(engine, interval)

		// Tạo context với cancel để có thể dừng worker khi cần
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Chạy worker trong goroutine riêng với recover
		go func() {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(map[string]interface{}{
						"panic": r,
					}).Error("⚙️ [TICK_WORKER] Worker goroutine panic")
				}
			}()

			tickWorker.Start(ctx)
		}()

		log.Info("⚙️ [TICK_WORKER] Campaign Tick Worker started successfully")
	} else {
		log.Info("⚙️ [TICK_WORKER] Tick worker disabled, expecting external cron to call tick endpoint")
	}

	// Chạy Fiber server trên main thread
	main_thread(engine)
}
