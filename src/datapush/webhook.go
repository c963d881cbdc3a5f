package datapush

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// 常量定义
const (
	RETRY_TIMES     = 5
	RETRY_INTERVAL  = 2 * time.Second
	REQUEST_TIMEOUT = 30 * time.Second
)

// WebhookResponse 兼容钉钉/企业微信机器人的返回格式, 非JSON返回只看状态码
type WebhookResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Pusher 把报表摘要和图表推送到 webhook
type Pusher struct {
	url      string
	client   *http.Client
	times    int
	interval time.Duration
}

func NewPusher(url string) *Pusher {
	return &Pusher{
		url:      url,
		client:   &http.Client{Timeout: REQUEST_TIMEOUT},
		times:    RETRY_TIMES,
		interval: RETRY_INTERVAL,
	}
}

// WithRetry 调整重试次数和间隔
func (p *Pusher) WithRetry(times int, interval time.Duration) *Pusher {
	if times < 1 {
		times = 1
	}
	p.times = times
	p.interval = interval
	return p
}

// Push 以 multipart 表单发送: summary 字段为JSON, chart 为PNG文件(可为空)
func (p *Pusher) Push(ctx context.Context, summary Summary, chart []byte) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("序列化报表摘要失败: %w", err)
	}

	return retry(ctx, func() error {
		body, contentType, err := buildForm(payload, chart)
		if err != nil {
			return err
		}
		return p.post(ctx, body, contentType)
	}, p.times, p.interval)
}

func buildForm(summary, chart []byte) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("summary", string(summary)); err != nil {
		return nil, "", fmt.Errorf("写入表单字段失败: %w", err)
	}
	if len(chart) > 0 {
		part, err := writer.CreateFormFile("chart", "lead_time.png")
		if err != nil {
			return nil, "", fmt.Errorf("创建表单文件失败: %w", err)
		}
		if _, err := part.Write(chart); err != nil {
			return nil, "", fmt.Errorf("复制图片内容失败: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("关闭写入器失败: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

func (p *Pusher) post(ctx context.Context, body io.Reader, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, body)
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook 返回 %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}

	var result WebhookResponse
	if json.Unmarshal(respBody, &result) == nil && result.ErrCode != 0 {
		return fmt.Errorf("webhook 拒绝: %d %s", result.ErrCode, result.ErrMsg)
	}
	return nil
}

// retry 失败后等待 interval 再试, ctx 结束时立即返回
func retry(ctx context.Context, fn func() error, times int, interval time.Duration) error {
	var err error
	for i := 0; i < times; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return errors.Join(err, ctx.Err())
		}
		if i < times-1 {
			select {
			case <-time.After(interval):
			case <-ctx.Done():
				return errors.Join(err, ctx.Err())
			}
		}
	}
	return fmt.Errorf("重试 %d 次后失败: %w", times, err)
}
