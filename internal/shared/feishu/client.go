package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// 飞书开放平台API基础地址
const DefaultBaseURL = "https://open.feishu.cn"

// FeishuClient 飞书客户端，负责token缓存和通用请求
type FeishuClient struct {
	appID       string
	appSecret   string
	baseURL     string
	tokenCache  string
	tokenExpire time.Time
	mu          sync.RWMutex
	httpClient  *http.Client
}

// NewClient 创建飞书客户端实例
func NewClient(appID, appSecret string) *FeishuClient {
	return &FeishuClient{
		appID:     appID,
		appSecret: appSecret,
		baseURL:   DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithBaseURL 替换API地址（私有化部署或测试）
func (c *FeishuClient) WithBaseURL(baseURL string) *FeishuClient {
	c.baseURL = baseURL
	return c
}

// GetAppAccessToken 获取应用访问令牌，提前60秒刷新
func (c *FeishuClient) GetAppAccessToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	if c.tokenCache != "" && time.Now().Before(c.tokenExpire) {
		token := c.tokenCache
		c.mu.RUnlock()
		return token, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// 双重检查：其他goroutine可能已经刷新了token
	if c.tokenCache != "" && time.Now().Before(c.tokenExpire) {
		return c.tokenCache, nil
	}

	bodyBytes, _ := json.Marshal(map[string]string{
		"app_id":     c.appID,
		"app_secret": c.appSecret,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/open-apis/auth/v3/app_access_token/internal",
		bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request feishu token: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Code           int    `json:"code"`
		Msg            string `json:"msg"`
		AppAccessToken string `json:"app_access_token"`
		Expire         int    `json:"expire"` // 秒
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if result.Code != 0 {
		return "", fmt.Errorf("feishu token error [%d]: %s", result.Code, result.Msg)
	}

	c.tokenCache = result.AppAccessToken
	c.tokenExpire = time.Now().Add(time.Duration(result.Expire-60) * time.Second)

	return result.AppAccessToken, nil
}

// doRequest 执行飞书API请求，自动附带token并检查统一错误码
func (c *FeishuClient) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	token, err := c.GetAppAccessToken(ctx)
	if err != nil {
		return fmt.Errorf("get access token: %w", err)
	}

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	var baseResp BaseResponse
	if err := json.Unmarshal(respBody, &baseResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if baseResp.Code != 0 {
		return fmt.Errorf("feishu api error [%d]: %s (path=%s)", baseResp.Code, baseResp.Msg, path)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decode response body: %w", err)
		}
	}
	return nil
}
