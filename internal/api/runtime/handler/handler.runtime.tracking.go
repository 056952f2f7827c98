package runtimehdl

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"

	crmsvc "copper_crm/internal/api/crm/service"
	runtimemodels "copper_crm/internal/api/runtime/models"
	runtimesvc "copper_crm/internal/api/runtime/service"
	"copper_crm/internal/global"
	"copper_crm/internal/tracking"
	"copper_crm/internal/utility"
)

// TrackingHandler xử lý pixel mở email và link unsubscribe.
// Hai endpoint này công khai, người nhận email gọi trực tiếp nên không trả JSON envelope.
type TrackingHandler struct {
	messageService  *runtimesvc.OutboundMessageService
	activityService *runtimesvc.LeadActivityService
	leadService     *crmsvc.LeadService
	stateService    *runtimesvc.LeadCampaignStateService
}

// NewTrackingHandler tạo mới TrackingHandler
func NewTrackingHandler() (*TrackingHandler, error) {
	messageService, err := runtimesvc.NewOutboundMessageService()
	if err != nil {
		return nil, fmt.Errorf("failed to create message service: %v", err)
	}
	activityService, err := runtimesvc.NewLeadActivityService()
	if err != nil {
		return nil, fmt.Errorf("failed to create activity service: %v", err)
	}
	leadService, err := crmsvc.NewLeadService()
	if err != nil {
		return nil, fmt.Errorf("failed to create lead service: %v", err)
	}
	stateService, err := runtimesvc.NewLeadCampaignStateService()
	if err != nil {
		return nil, fmt.Errorf("failed to create state service: %v", err)
	}

	return &TrackingHandler{
		messageService:  messageService,
		activityService: activityService,
		leadService:     leadService,
		stateService:    stateService,
	}, nil
}

// Pixel ghi nhận một lần mở email theo trackingId và trả về GIF 1x1.
// Luôn trả pixel kể cả khi trackingId không tồn tại, tránh lộ thông tin cho client lạ.
func (h *TrackingHandler) Pixel(c fiber.Ctx) error {
	trackingID := strings.TrimSuffix(c.Params("trackingId"), ".gif")
	nowMilli := utility.CurrentTimeInMilli()

	msg, found, err := h.messageService.RecordOpen(c.Context(), trackingID, nowMilli)
	if err == nil && found && msg.OpenCount == 1 {
		// Chỉ lần mở đầu tiên mới ghi activity và cộng điểm
		_, actErr := h.activityService.Record(c.Context(), runtimemodels.LeadActivity{
			LeadID:       msg.LeadID,
			CampaignID:   msg.CampaignID,
			InboxID:      msg.InboxID,
			ActivityType: runtimemodels.ActivityEmailOpen,
			Metadata: map[string]interface{}{
				"messageId":  msg.MessageID,
				"trackingId": trackingID,
			},
			OccurredAt: nowMilli,
		})
		if actErr == nil {
			_ = h.leadService.AddPoints(c.Context(), msg.LeadID, runtimemodels.ActivityPoints(runtimemodels.ActivityEmailOpen), runtimemodels.ActivityEmailOpen, nowMilli)
		}
	}

	c.Set("Content-Type", "image/gif")
	c.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	return c.Send(tracking.PixelGIF)
}

// Unsubscribe xác minh token HMAC, opt-out lead và dừng mọi state của lead.
// Trả về trang HTML xác nhận tối giản cho người nhận email.
func (h *TrackingHandler) Unsubscribe(c fiber.Ctx) error {
	token := c.Params("token")
	nowMilli := utility.CurrentTimeInMilli()

	leadID, email, err := tracking.ParseUnsubscribeToken(global.ServerConfig.UnsubscribeSecret, token)
	if err != nil {
		c.Set("Content-Type", "text/html; charset=utf-8")
		return c.Status(400).SendString("<html><body><p>Link hủy đăng ký không hợp lệ hoặc đã hết hạn.</p></body></html>")
	}

	if err := h.leadService.MarkOptedOut(c.Context(), leadID); err != nil {
		c.Set("Content-Type", "text/html; charset=utf-8")
		return c.Status(500).SendString("<html><body><p>Có lỗi xảy ra, vui lòng thử lại sau.</p></body></html>")
	}
	// Dừng state là best-effort: lead đã opt-out thì engine cũng tự chặn
	_, _ = h.stateService.StopForLead(c.Context(), leadID)

	_, _ = h.activityService.Record(c.Context(), runtimemodels.LeadActivity{
		LeadID:       leadID,
		ActivityType: runtimemodels.ActivityUnsubscribe,
		Metadata: map[string]interface{}{
			"email":  email,
			"source": "link",
		},
		OccurredAt: nowMilli,
	})

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.SendString("<html><body><p>Bạn đã hủy đăng ký thành công. Chúng tôi sẽ không gửi thêm email nào tới " + email + ".</p></body></html>")
}
