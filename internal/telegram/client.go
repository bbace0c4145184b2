// Package telegram is a thin Telegram Bot API client covering the calls the
// intake pipeline needs: sending chat replies and downloading voice files.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bricks_crm_backend/platform/config"
	"bricks_crm_backend/platform/logger"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *logger.Logger
}

type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

func NewClient(cfg config.TelegramConfig, log *logger.Logger) *Client {
	if cfg.GetTelegramBotToken() == "" {
		return nil
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.GetTelegramAPIBaseURL(), "/"),
		token:   cfg.GetTelegramBotToken(),
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

// SendMessage posts a plain-text reply to the chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	if c == nil {
		return nil
	}

	payload := sendMessageRequest{ChatID: chatID, Text: text}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if _, err := decodeAPIResponse(resp); err != nil {
		return err
	}

	c.log.TelegramSend(chatID, true, "")
	return nil
}

// GetFile resolves a file id to a downloadable file path.
func (c *Client) GetFile(ctx context.Context, fileID string) (File, error) {
	if c == nil {
		return File{}, fmt.Errorf("telegram client not configured")
	}

	url := fmt.Sprintf("%s/bot%s/getFile?file_id=%s", c.baseURL, c.token, fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return File{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return File{}, fmt.Errorf("telegram request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	result, err := decodeAPIResponse(resp)
	if err != nil {
		return File{}, err
	}

	var file File
	if err := json.Unmarshal(result, &file); err != nil {
		return File{}, fmt.Errorf("decode getFile result: %w", err)
	}
	return file, nil
}

// DownloadFile streams the file contents for a path returned by GetFile.
// The caller must close the reader.
func (c *Client) DownloadFile(ctx context.Context, filePath string) (io.ReadCloser, int64, error) {
	if c == nil {
		return nil, 0, fmt.Errorf("telegram client not configured")
	}

	url := fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, filePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("telegram download failed: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, 0, fmt.Errorf("telegram file endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	return resp.Body, resp.ContentLength, nil
}

func decodeAPIResponse(resp *http.Response) (json.RawMessage, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read telegram response: %w", err)
	}

	var decoded apiResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("telegram returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if !decoded.OK {
		return nil, fmt.Errorf("telegram api error: %s", decoded.Description)
	}
	return decoded.Result, nil
}
