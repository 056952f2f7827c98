package worker

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"copper_crm/internal/logger"
	"copper_crm/internal/runtime"
)

// CampaignTickWorker chạy engine tick định kỳ trong tiến trình server.
// Mặc định tick được gọi từ cron ngoài qua endpoint /campaign-runtime/tick,
// worker này chỉ bật khi TICK_WORKER_ENABLED=true (vd: môi trường dev hoặc
// deployment đơn lẻ không có cron).
type CampaignTickWorker struct {
	engine   *runtime.Engine
	interval time.Duration // Khoảng thời gian giữa các lần tick
}

// NewCampaignTickWorker tạo mới CampaignTickWorker.
// Tham số:
//   - engine: Engine điều phối chiến dịch
//   - interval: Khoảng thời gian giữa các lần tick (tối thiểu 30 giây, mặc định 5 phút)
func NewCampaignTickWorker(engine *runtime.Engine, interval time.Duration) *CampaignTickWorker {
	if interval < 30*time.Second {
		interval = 5 * time.Minute
	}
	return &CampaignTickWorker{
		engine:   engine,
		interval: interval,
	}
}

// Start chạy worker trong vòng lặp: mỗi interval gọi engine.Tick một lần.
// Mỗi lần tick được bọc recover để panic không làm chết worker.
func (w *CampaignTickWorker) Start(ctx context.Context) {
	log := logger.GetAppLogger()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.WithFields(map[string]interface{}{
		"interval": w.interval.String(),
	}).Info("⚙️ [TICK_WORKER] Starting Campaign Tick Worker...")

	for {
		select {
		case <-ctx.Done():
			log.Info("⚙️ [TICK_WORKER] Campaign Tick Worker stopped")
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.WithFields(map[string]interface{}{
							"panic": r,
						}).Error("⚙️ [TICK_WORKER] Panic khi tick, sẽ tiếp tục ở lần chạy tiếp theo")
					}
				}()

				result, err := w.engine.Tick(ctx, primitive.NilObjectID)
				if err != nil {
					log.WithError(err).Error("⚙️ [TICK_WORKER] Lỗi khi chạy tick")
					return
				}

				log.WithFields(map[string]interface{}{
					"campaigns": result.Campaigns,
					"enrolled":  result.Enrolled,
					"processed": result.Processed,
					"replies":   result.Replies,
				}).Info("⚙️ [TICK_WORKER] Tick hoàn tất")
			}()
		}
	}
}
