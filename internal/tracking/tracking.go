// Package tracking sinh và xác thực các định danh theo dõi email:
// tracking pixel, Message-ID và token unsubscribe có ký HMAC.
package tracking

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"copper_crm/internal/common"
)

// PixelGIF là ảnh GIF trong suốt 1x1 trả về cho tracking pixel.
var PixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
	0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0xFF, 0xFF, 0xFF, 0x21,
	0xF9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2C, 0x00, 0x00,
	0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44,
	0x01, 0x00, 0x3B,
}

// NewTrackingID sinh định danh duy nhất gắn vào pixel của một email.
func NewTrackingID() string {
	return uuid.NewString()
}

// NewMessageID sinh Message-ID chuẩn RFC 5322 theo domain gửi.
func NewMessageID(domain string) string {
	if domain == "" {
		domain = "mail.local"
	}
	return fmt.Sprintf("<%s@%s>", strings.ReplaceAll(uuid.NewString(), "-", ""), domain)
}

// PixelURL trả về URL tuyệt đối của tracking pixel.
func PixelURL(baseURL, trackingID string) string {
	return fmt.Sprintf("%s/tracking/pixel/%s.gif", strings.TrimRight(baseURL, "/"), trackingID)
}

// UnsubscribeURL trả về URL tuyệt đối của trang unsubscribe.
func UnsubscribeURL(baseURL, token string) string {
	return fmt.Sprintf("%s/unsubscribe/%s", strings.TrimRight(baseURL, "/"), token)
}

// BuildUnsubscribeToken tạo token unsubscribe dạng base64url của "leadId:email:sig",
// sig là HMAC-SHA256 của "leadId:email" với secret của hệ thống.
func BuildUnsubscribeToken(secret string, leadID primitive.ObjectID, email string) string {
	payload := leadID.Hex() + ":" + email
	sig := signPayload(secret, payload)
	return base64.RawURLEncoding.EncodeToString([]byte(payload + ":" + sig))
}

// ParseUnsubscribeToken xác thực token và trả về leadId cùng email bên trong.
// Token sai định dạng hoặc sai chữ ký đều trả về ErrInvalidInput, không phân biệt
// lý do để tránh lộ thông tin.
func ParseUnsubscribeToken(secret, token string) (primitive.ObjectID, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return primitive.NilObjectID, "", common.ErrInvalidInput
	}

	// Email có thể chứa dấu ":" trong phần local, tách từ hai đầu
	parts := strings.Split(string(raw), ":")
	if len(parts) < 3 {
		return primitive.NilObjectID, "", common.ErrInvalidInput
	}
	leadHex := parts[0]
	sig := parts[len(parts)-1]
	email := strings.Join(parts[1:len(parts)-1], ":")

	expected := signPayload(secret, leadHex+":"+email)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return primitive.NilObjectID, "", common.ErrInvalidInput
	}

	leadID, err := primitive.ObjectIDFromHex(leadHex)
	if err != nil {
		return primitive.NilObjectID, "", common.ErrInvalidInput
	}
	return leadID, email, nil
}

func signPayload(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
