// renderpush.go
package datapush

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-gota/gota/dataframe"

	"PostsAnalytics/src/processor"
	"PostsAnalytics/src/storage"
)

const (
	RetryTimes    = 3
	RetryInterval = 2 * time.Second
	PushTimeout   = 10 * time.Second
)

// RenderResponse 渲染服务统一响应结构
type RenderResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// RenderClient 外部图表渲染服务的推送客户端
// 数据重新加载后把各聚合序列推给渲染端
type RenderClient struct {
	endpoint      string
	token         string
	httpClient    *http.Client
	retryInterval time.Duration
}

func NewRenderClient(endpoint, token string) *RenderClient {
	return &RenderClient{
		endpoint:      endpoint,
		token:         token,
		httpClient:    &http.Client{Timeout: PushTimeout},
		retryInterval: RetryInterval,
	}
}

// PushSeries 推送一个图表序列，失败时重试
func (c *RenderClient) PushSeries(kind string, payload interface{}) error {
	body, err := json.Marshal(map[string]interface{}{
		"chart":  kind,
		"series": payload,
	})
	if err != nil {
		return fmt.Errorf("序列化图表数据失败: %w", err)
	}

	return retry(func() error {
		return c.post(body)
	}, RetryTimes, c.retryInterval)
}

func (c *RenderClient) post(body []byte) error {
	req, err := http.NewRequest(http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("X-Render-Token", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("渲染服务返回状态 %d", resp.StatusCode)
	}

	var result RenderResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	if result.Code != 0 {
		return fmt.Errorf("渲染服务拒绝推送: %s", result.Msg)
	}
	return nil
}

// retry 重试函数
func retry(fn func() error, times int, interval time.Duration) error {
	var err error
	for i := 0; i < times; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < times-1 {
			time.Sleep(interval)
		}
	}
	return fmt.Errorf("重试 %d 次后失败: %w", times, err)
}

// PushAll 推送全部图表序列
// 单个图表数据不足或推送失败只记日志，不影响其它图表
func PushAll(c *RenderClient, df dataframe.DataFrame, logger *storage.Logger) {
	push := func(kind string, build func() (interface{}, error)) {
		payload, err := build()
		if err != nil {
			logger.Warning(fmt.Sprintf("图表 %s 数据不足，跳过推送: %v", kind, err))
			return
		}
		if err := c.PushSeries(kind, payload); err != nil {
			logger.Error(fmt.Sprintf("推送图表 %s 失败: %v", kind, err))
			return
		}
		logger.Info("已推送图表: " + kind)
	}

	push("yearly", func() (interface{}, error) { return processor.YearlyCounts(df) })
	push("hourly", func() (interface{}, error) { return processor.HourlyCounts(df) })
	push("heatmap", func() (interface{}, error) { return processor.Heatmap(df) })
	push("monthly", func() (interface{}, error) { return processor.Monthly(df) })
	push("pandemic", func() (interface{}, error) { return processor.SplitByPandemic(df) })
	push("weekday", func() (interface{}, error) { return processor.WeekdayCounts(df) })
}
