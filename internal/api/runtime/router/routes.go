// Package router đăng ký các route thuộc domain runtime:
// điều khiển engine (tick/enroll/duyệt nháp), hộp thư gửi đi và hai endpoint tracking công khai.
package router

import (
	"fmt"

	"github.com/gofiber/fiber/v3"

	"copper_crm/internal/api/middleware"
	apirouter "copper_crm/internal/api/router"
	runtimehdl "copper_crm/internal/api/runtime/handler"
	"copper_crm/internal/runtime"
)

// Register đăng ký tất cả route runtime. Tracking đăng ký ở root (không qua /api/v1)
// vì URL nhúng trong email phải càng ngắn và ổn định càng tốt.
func Register(app *fiber.App, v1 fiber.Router, r *apirouter.Router, engine *runtime.Engine) error {
	runtimeHandler, err := runtimehdl.NewCampaignRuntimeHandler(engine)
	if err != nil {
		return fmt.Errorf("create campaign runtime handler: %w", err)
	}
	inboxHandler, err := runtimehdl.NewOutboundInboxHandler()
	if err != nil {
		return fmt.Errorf("create outbound inbox handler: %w", err)
	}
	trackingHandler, err := runtimehdl.NewTrackingHandler()
	if err != nil {
		return fmt.Errorf("create tracking handler: %w", err)
	}

	r.RegisterCRUDRoutes(v1, "/outbound-inboxes", inboxHandler, apirouter.ReadWriteConfig)

	// Tick chỉ cho cron ngoài gọi, chặn bằng X-Cron-Secret (xem warning về middleware Fiber v3 ở apirouter).
	// Group riêng theo đúng path tick để middleware không dính sang các route /campaign-runtime khác.
	cronSecret := middleware.CronSecretMiddleware()
	apirouter.RegisterRouteWithMiddleware(v1, "/campaign-runtime/tick", "POST", "/", []fiber.Handler{cronSecret}, runtimeHandler.Tick)

	campaignRuntime := v1.Group("/campaign-runtime")
	campaignRuntime.Post("/enroll", runtimeHandler.Enroll)
	campaignRuntime.Get("/drafts/next", runtimeHandler.NextDraft)
	campaignRuntime.Post("/drafts/decision", runtimeHandler.DecideDraft)
	campaignRuntime.Get("/drafts/stats", runtimeHandler.DraftStats)

	// Endpoint công khai nhúng trong email gửi đi
	app.Get("/tracking/pixel/:trackingId", trackingHandler.Pixel)
	app.Get("/unsubscribe/:token", trackingHandler.Unsubscribe)

	return nil
}
