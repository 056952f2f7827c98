package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

// Configuration chứa thông tin tĩnh cần thiết để chạy ứng dụng
// Nó chứa thông tin cơ sở dữ liệu, hộp thư và dịch vụ sinh nội dung
type Configuration struct {
	InitMode              bool   `env:"INITMODE" envDefault:"false"`               // Chế độ khởi tạo
	Address               string `env:"ADDRESS" envDefault:":8080"`                // Địa chỉ server
	MongoDB_ConnectionURI string `env:"MONGODB_CONNECTION_URI,required"`           // URL kết nối cơ sở dữ liệu
	MongoDB_DBName_Data   string `env:"MONGODB_DBNAME_DATA,required"`              // Tên cơ sở dữ liệu data
	CORS_Origins          string `env:"CORS_ORIGINS" envDefault:"*"`               // Các origins được phép (phân cách bởi dấu phẩy, * = tất cả)
	CORS_AllowCredentials bool   `env:"CORS_ALLOW_CREDENTIALS" envDefault:"false"` // Cho phép gửi credentials
	RateLimit_Max         int    `env:"RATE_LIMIT_MAX" envDefault:"100"`           // Số request tối đa trong window (0 = disable rate limit)
	RateLimit_Window      int    `env:"RATE_LIMIT_WINDOW" envDefault:"60"`         // Thời gian window (giây)
	RateLimit_Enabled     bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`      // Bật/tắt rate limiting

	// Public URL Configuration
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"` // URL public của server (dùng cho tracking pixel và unsubscribe link)

	// Cron / Tick Configuration
	CronSecret          string `env:"CRON_SECRET"`                            // Bí mật xác thực endpoint tick (header X-Cron-Secret)
	TickWorkerEnabled   bool   `env:"TICK_WORKER_ENABLED" envDefault:"false"` // Bật worker tick nội bộ (mặc định dùng cron ngoài)
	TickIntervalSeconds int    `env:"TICK_INTERVAL_SECONDS" envDefault:"300"` // Chu kỳ tick của worker nội bộ (giây)

	// Unsubscribe Configuration
	UnsubscribeSecret string `env:"UNSUBSCRIBE_SECRET,required"` // Bí mật ký token unsubscribe (HMAC-SHA256)

	// LLM Configuration (OpenAI-compatible API)
	LLMAPIKey       string `env:"LLM_API_KEY"`                                         // API key của dịch vụ sinh nội dung
	LLMBaseURL      string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"` // Base URL của API
	LLMDefaultModel string `env:"LLM_DEFAULT_MODEL" envDefault:"gpt-4o-mini"`          // Model mặc định khi bước không chỉ định
	LLMTimeout      int    `env:"LLM_TIMEOUT" envDefault:"60"`                         // Timeout gọi API (giây)

	// SMTP Configuration (gửi email khi inbox không có cấu hình riêng)
	SMTPHost     string `env:"SMTP_HOST"`                  // SMTP host mặc định
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"` // SMTP port mặc định
	SMTPUsername string `env:"SMTP_USERNAME"`              // SMTP username mặc định
	SMTPPassword string `env:"SMTP_PASSWORD"`              // SMTP password mặc định

	// IMAP Configuration (đọc phản hồi khi inbox không có cấu hình riêng)
	IMAPHost     string `env:"IMAP_HOST"`                  // IMAP host mặc định
	IMAPPort     int    `env:"IMAP_PORT" envDefault:"993"` // IMAP port mặc định
	IMAPUsername string `env:"IMAP_USERNAME"`              // IMAP username mặc định
	IMAPPassword string `env:"IMAP_PASSWORD"`              // IMAP password mặc định

	// TLS/HTTPS Configuration
	EnableTLS   bool   `env:"ENABLE_TLS" envDefault:"false"` // Bật HTTPS
	TLSCertFile string `env:"TLS_CERT_FILE"`                 // Đường dẫn đến file certificate (.crt hoặc .pem)
	TLSKeyFile  string `env:"TLS_KEY_FILE"`                  // Đường dẫn đến file private key (.key)
}

// getEnvPath trả về đường dẫn đến file env dựa trên môi trường
func getEnvPath() string {
	// Mặc định sử dụng môi trường development
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Tìm thư mục config
	currentDir, err := os.Getwd()
	if err != nil {
		// Sử dụng fmt.Printf vì logger có thể chưa được init ở đây
		fmt.Printf("Không thể lấy được thư mục hiện tại: %v\n", err)
		return ""
	}

	// Tìm thư mục config/env
	for {
		envDir := filepath.Join(currentDir, "config", "env")
		if _, err := os.Stat(envDir); err == nil {
			// Tìm thấy thư mục config/env
			envPath := filepath.Join(envDir, fmt.Sprintf("%s.env", env))
			return envPath
		}

		// Đi lên thư mục cha
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return ""
		}
		currentDir = parentDir
	}
}

// NewConfig sẽ đọc dữ liệu cấu hình từ file env được cung cấp
func NewConfig(files ...string) *Configuration {
	envPath := getEnvPath()
	if envPath == "" {
		// Sử dụng fmt.Printf vì logger có thể chưa được init ở đây
		fmt.Printf("Không tìm thấy thư mục config/env\n")
		return nil
	}

	err := godotenv.Load(envPath)
	if err != nil {
		// Sử dụng fmt.Printf vì logger có thể chưa được init ở đây
		fmt.Printf("Không thể load file env tại %s: %v\n", envPath, err)
		return nil
	}

	cfg := Configuration{}
	err = env.Parse(&cfg)
	if err != nil {
		fmt.Printf("Lỗi khi parse config: %+v\n", err)
		return nil
	}

	return &cfg
}
