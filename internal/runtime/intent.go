// Nhận diện unsubscribe và phân loại intent của hội thoại với lead.
package runtime

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"copper_crm/internal/ai"
)

// UnsubscribeRegex bắt các cụm từ chối nhận email trong reply.
// Match ở bất kỳ đâu trong subject hoặc body, không phân biệt hoa thường.
var UnsubscribeRegex = regexp.MustCompile(`(?i)\b(unsubscribe|stop|opt\s?out|remove me)\b`)

// Các nhãn intent mặc định khi bước ai_decision không khai báo cạnh intent nào.
const (
	IntentMeetingRequest = "meeting_request"
	IntentQuestion       = "question"
	IntentNegative       = "negative"
	IntentNoInterest     = "no_interest"
	IntentOther          = "other"
	IntentUnsubscribe    = "unsubscribe"
)

// DefaultIntentLabels là tập nhãn mặc định của classifier, không gồm other
// vì other là fallback cho mọi output không khớp.
var DefaultIntentLabels = []string{
	IntentMeetingRequest,
	IntentQuestion,
	IntentNegative,
	IntentNoInterest,
}

// IsUnsubscribeText kiểm tra text có chứa yêu cầu unsubscribe không.
func IsUnsubscribeText(text string) bool {
	return UnsubscribeRegex.MatchString(text)
}

// classifyIntent phân loại hội thoại với lead thành một nhãn intent.
// allowedLabels lấy từ các cạnh intent của bước ai_decision; rỗng thì dùng
// tập nhãn mặc định. Unsubscribe được bắt bằng regex trước khi gọi LLM.
// LLM lỗi hoặc trả nhãn ngoài tập cho phép thì trả về other.
func (e *Engine) classifyIntent(ctx context.Context, threadText string, allowedLabels []string, model string) string {
	if IsUnsubscribeText(threadText) {
		return IntentUnsubscribe
	}
	if e.completer == nil {
		return IntentOther
	}

	labels := allowedLabels
	if len(labels) == 0 {
		labels = DefaultIntentLabels
	}
	system := "Classify the reply intent into one label: " + strings.Join(labels, ", ") +
		". If none fit, return " + IntentOther + "."
	user := "Thread:\n" + truncate(threadText, 8000) + "\n\nReturn only the label."

	if model == "" {
		model = e.opts.DefaultModel
	}
	output, err := e.completer.Complete(ctx, model, []ai.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	})
	if err != nil {
		e.log.WithError(err).Warn("🤖 [ENGINE] Phân loại intent thất bại, coi như other")
		return IntentOther
	}

	normalized := strings.ToLower(strings.TrimSpace(output))
	for _, label := range labels {
		if normalized == strings.ToLower(label) {
			return label
		}
	}
	return IntentOther
}

// truncate cắt chuỗi về tối đa n byte, không cắt giữa một rune UTF-8.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
