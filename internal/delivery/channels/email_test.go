// Test dựng message SMTP: header threading và unsubscribe một chạm.
package channels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	runtimemodels "copper_crm/internal/api/runtime/models"
)

func TestBuildMessage_UnsubscribeHeaders(t *testing.T) {
	inbox := &runtimemodels.OutboundInbox{EmailAddress: "sales@mail.io", DisplayName: "Sales"}
	email := &OutgoingEmail{
		To: "an@corp.vn", Subject: "Quick question", BodyText: "Hi",
		UnsubscribeURL: "https://crm.example.com/unsubscribe/tok",
	}

	m := buildMessage(inbox, email)

	unsub := m.GetHeader("List-Unsubscribe")
	require.Len(t, unsub, 1)
	assert.Equal(t, "<https://crm.example.com/unsubscribe/tok>", unsub[0], "URL phải bọc trong ngoặc nhọn theo RFC 2369")

	post := m.GetHeader("List-Unsubscribe-Post")
	require.Len(t, post, 1)
	assert.Equal(t, "List-Unsubscribe=One-Click", post[0], "one-click unsubscribe theo RFC 8058")
}

func TestBuildMessage_NoUnsubscribeURLNoHeader(t *testing.T) {
	inbox := &runtimemodels.OutboundInbox{EmailAddress: "sales@mail.io"}
	m := buildMessage(inbox, &OutgoingEmail{To: "an@corp.vn", Subject: "s", BodyText: "b"})

	assert.Empty(t, m.GetHeader("List-Unsubscribe"))
	assert.Empty(t, m.GetHeader("List-Unsubscribe-Post"))
}

func TestBuildMessage_ThreadingHeaders(t *testing.T) {
	inbox := &runtimemodels.OutboundInbox{EmailAddress: "sales@mail.io", ReplyTo: "replies@mail.io"}
	email := &OutgoingEmail{
		To: "an@corp.vn", Subject: "Re: Quick question", BodyText: "thân gửi",
		MessageID: "<second@mail.io>", InReplyTo: "<first@mail.io>",
		References: "<first@mail.io>",
	}

	m := buildMessage(inbox, email)

	assert.Equal(t, []string{"<second@mail.io>"}, m.GetHeader("Message-ID"))
	assert.Equal(t, []string{"<first@mail.io>"}, m.GetHeader("In-Reply-To"))
	assert.Equal(t, []string{"<first@mail.io>"}, m.GetHeader("References"))
	assert.Equal(t, []string{"replies@mail.io"}, m.GetHeader("Reply-To"))
}
