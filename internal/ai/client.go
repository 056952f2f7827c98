// Package ai cung cấp client chat completion tương thích OpenAI API.
// Dùng cho cả sinh nội dung email lẫn phân loại intent của reply.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"copper_crm/config"
	"copper_crm/internal/common"
	"copper_crm/internal/logger"
)

// Message là một message trong hội thoại chat completion.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest là payload gửi lên endpoint /chat/completions.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
}

// chatResponse là phần response cần đọc từ API.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Client gọi API chat completion tương thích OpenAI.
type Client struct {
	baseURL      string
	apiKey       string
	defaultModel string
	httpClient   *http.Client
}

// NewClient tạo Client từ cấu hình server.
func NewClient(cfg *config.Configuration) *Client {
	timeout := time.Duration(cfg.LLMTimeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.LLMBaseURL, "/"),
		apiKey:       cfg.LLMAPIKey,
		defaultModel: cfg.LLMDefaultModel,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// DefaultModel trả về model mặc định của client.
func (c *Client) DefaultModel() string {
	return c.defaultModel
}

// Complete gọi chat completion và trả về nội dung của choice đầu tiên.
// model rỗng thì dùng model mặc định.
func (c *Client) Complete(ctx context.Context, model string, messages []Message) (string, error) {
	log := logger.GetAppLogger()

	if model == "" {
		model = c.defaultModel
	}
	payload := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: 0.7,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", common.NewError(common.ErrCodeGeneration, "Sinh nội dung email thất bại", common.StatusBadGateway, err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", common.NewError(common.ErrCodeGeneration, "Sinh nội dung email thất bại", common.StatusBadGateway, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).WithFields(map[string]interface{}{
			"model": model,
			"url":   url,
		}).Error("🤖 [LLM] Lỗi khi gọi chat completion API")
		return "", common.ErrGenerationFailed
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", common.ErrGenerationFailed
	}

	if resp.StatusCode != http.StatusOK {
		log.WithFields(map[string]interface{}{
			"model":      model,
			"statusCode": resp.StatusCode,
			"response":   string(bodyBytes),
		}).Error("🤖 [LLM] Chat completion API trả về lỗi")
		return "", common.NewError(
			common.ErrCodeGeneration,
			fmt.Sprintf("LLM API trả về status %d", resp.StatusCode),
			common.StatusBadGateway,
			string(bodyBytes),
		)
	}

	var parsed chatResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return "", common.ErrGenerationFailed
	}
	if parsed.Error != nil {
		return "", common.NewError(common.ErrCodeGeneration, parsed.Error.Message, common.StatusBadGateway, nil)
	}
	if len(parsed.Choices) == 0 {
		return "", common.ErrGenerationFailed
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	log.WithFields(map[string]interface{}{
		"model":         model,
		"contentLength": len(content),
	}).Debug("🤖 [LLM] Chat completion thành công")
	return content, nil
}
