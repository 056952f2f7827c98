// Test nhận diện unsubscribe, phân loại intent và cắt chuỗi an toàn UTF-8.
package runtime

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUnsubscribeText(t *testing.T) {
	positives := []string{
		"Please unsubscribe me from this list",
		"UNSUBSCRIBE",
		"stop emailing me",
		"I want to opt out now",
		"optout please", // opt\s?out bắt cả dạng viết liền
		"remove me from your list",
		"Subject says STOP",
	}
	for _, text := range positives {
		assert.True(t, IsUnsubscribeText(text), "phải bắt được: %q", text)
	}

	negatives := []string{
		"I can't stop by the office this week, let's call instead",
		"We never stopped growing since 2020",
		"Interested, tell me more",
		"Your product looks stoppable", // stop nằm trong từ khác, không qua word boundary
		"",
	}
	assert.True(t, IsUnsubscribeText(negatives[0]), "stop đứng riêng vẫn match dù ngữ cảnh vô hại")
	for _, text := range negatives[1:] {
		assert.False(t, IsUnsubscribeText(text), "không được bắt nhầm: %q", text)
	}
}

func TestClassifyIntent_MatchesAllowedLabelCaseInsensitive(t *testing.T) {
	store := newFakeStore()

	cases := []struct {
		output string
		want   string
	}{
		{"meeting_request", IntentMeetingRequest},
		{"  Meeting_Request \n", IntentMeetingRequest},
		{"QUESTION", IntentQuestion},
		{"no_interest", IntentNoInterest},
		{"negative", IntentNegative},
		{"other", IntentOther},
		{"something else entirely", IntentOther},
		{"", IntentOther},
	}
	for _, tc := range cases {
		completer := &fakeCompleter{output: tc.output}
		engine := newTestEngine(store, nil, nil, completer)
		got := engine.classifyIntent(context.Background(), "Lead: can we talk?", nil, "")
		assert.Equal(t, tc.want, got, "output %q", tc.output)
	}
}

func TestClassifyIntent_RestrictsToStepLabels(t *testing.T) {
	store := newFakeStore()
	completer := &fakeCompleter{output: "question"}
	engine := newTestEngine(store, nil, nil, completer)

	// Bước chỉ khai báo hai nhãn, prompt và kết quả phải gói trong hai nhãn đó
	labels := []string{"meeting_request", "negative"}
	got := engine.classifyIntent(context.Background(), "Lead: maybe later", labels, "")
	assert.Equal(t, IntentOther, got, "nhãn ngoài tập cho phép phải rơi về other")

	require.NotEmpty(t, completer.calls)
	system := completer.calls[0][0].Content
	assert.Contains(t, system, "meeting_request, negative")
	assert.NotContains(t, system, IntentQuestion, "prompt không được chứa nhãn bước không khai báo")
}

func TestClassifyIntent_UnsubscribeShortCircuitsLLM(t *testing.T) {
	store := newFakeStore()
	completer := &fakeCompleter{output: "meeting_request"}
	engine := newTestEngine(store, nil, nil, completer)

	got := engine.classifyIntent(context.Background(), "Please unsubscribe me", nil, "")
	assert.Equal(t, IntentUnsubscribe, got)
	assert.Empty(t, completer.calls, "unsubscribe bắt bằng regex, không tốn một lượt gọi LLM")
}

func TestClassifyIntent_ErrorFallsBackToOther(t *testing.T) {
	store := newFakeStore()
	completer := &fakeCompleter{err: errors.New("llm down")}
	engine := newTestEngine(store, nil, nil, completer)

	got := engine.classifyIntent(context.Background(), "Lead: tell me more", nil, "")
	assert.Equal(t, IntentOther, got, "LLM lỗi thì coi như other, không chặn pipeline")
}

func TestClassifyIntent_NoCompleter(t *testing.T) {
	engine := newTestEngine(newFakeStore(), nil, nil, nil)
	assert.Equal(t, IntentOther, engine.classifyIntent(context.Background(), "body", nil, ""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "", truncate("", 3))
}

func TestTruncate_DoesNotSplitRune(t *testing.T) {
	s := strings.Repeat("x", 3) + "é" // é chiếm 2 byte, cắt tại byte 4 rơi giữa rune
	got := truncate(s, 4)
	assert.Equal(t, "xxx", got)
	assert.True(t, strings.HasPrefix(s, got))

	viet := "chào anh"
	cut := truncate(viet, 5) // "chào" có à 2 byte, biên 5 nằm giữa rune
	for _, r := range cut {
		assert.NotEqual(t, '�', r, "không được sinh rune lỗi khi cắt")
	}
}
