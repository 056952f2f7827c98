// Test render thread thành text phẳng cho prompt.
package mailbox

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderThreadText_Format(t *testing.T) {
	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	text := RenderThreadText([]InboundEmail{
		{
			FromAddress: "sales@mail.io", ToAddress: "an@corp.vn",
			Subject: "Quick hello", BodyText: "Hi An, short pitch.\n", ReceivedAt: at,
		},
		{
			FromAddress: "an@corp.vn", ToAddress: "sales@mail.io",
			Subject: "Re: Quick hello", BodyText: "Tell me about pricing.", ReceivedAt: at.Add(time.Hour),
		},
	}, 8000)

	assert.Contains(t, text, "From: sales@mail.io")
	assert.Contains(t, text, "Subject: Re: Quick hello")
	assert.Contains(t, text, "Tell me about pricing.")
	assert.Contains(t, text, "\n\n---\n\n", "các message phân tách bằng dòng ---")
	assert.Contains(t, text, "Date: 2025-06-01T09:00:00Z")
}

func TestRenderThreadText_KeepsNewestTailWithinLimit(t *testing.T) {
	old := InboundEmail{FromAddress: "a@x.vn", BodyText: strings.Repeat("cũ ", 200)}
	fresh := InboundEmail{FromAddress: "b@x.vn", BodyText: "mới nhất"}

	text := RenderThreadText([]InboundEmail{old, fresh}, 120)
	assert.LessOrEqual(t, len(text), 120)
	assert.Contains(t, text, "mới nhất", "vượt giới hạn thì giữ phần trao đổi mới nhất")

	// Biên cắt không được rơi giữa một rune UTF-8
	for _, r := range text {
		assert.NotEqual(t, '�', r)
	}
}

func TestRenderThreadText_Empty(t *testing.T) {
	assert.Empty(t, RenderThreadText(nil, 100))
}
