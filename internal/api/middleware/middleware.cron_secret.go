package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v3"

	"copper_crm/internal/common"
	"copper_crm/internal/global"
)

// CronSecretMiddleware chặn các endpoint dành cho cron/scheduler bên ngoài.
// Request phải mang header X-Cron-Secret khớp với cấu hình CRON_SECRET.
// Nếu CRON_SECRET không được cấu hình thì từ chối tất cả để tránh mở endpoint công khai.
func CronSecretMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		secret := global.ServerConfig.CronSecret
		provided := c.Get("X-Cron-Secret")
		if secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(provided)) != 1 {
			HandleErrorResponse(c, common.NewError(common.ErrCodeAuth, "Sai hoặc thiếu X-Cron-Secret", common.StatusUnauthorized, nil))
			return nil
		}
		return c.Next()
	}
}
