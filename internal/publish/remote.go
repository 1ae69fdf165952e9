package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/content-pipeline/internal/logging"
	"github.com/jonathan/content-pipeline/internal/types"
	"go.uber.org/zap"
)

const maxResponseBody = 4096

// maxLoggedBody bounds response excerpts in debug logs.
const maxLoggedBody = 256

// RemoteResult is what a successful remote publish reports back.
type RemoteResult struct {
	Reference string
	Message   string
}

// RemoteClient publishes one content item to a remote platform. Any
// returned error marks the attempt as a remote failure.
type RemoteClient interface {
	Publish(ctx context.Context, desc PlatformDescriptor, content types.FormattedContent) (*RemoteResult, error)
}

// NewHTTPClient returns a client with the given per-request timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// DefaultRemotes returns the clients for the seeded remote platforms.
func DefaultRemotes(client *http.Client, logger *zap.Logger) map[string]RemoteClient {
	api := &JSONAPIClient{HTTPClient: client, Logger: logger}
	return map[string]RemoteClient{
		"wechat":      &WeChatClient{HTTPClient: client},
		"feishu":      &FeishuWebhook{HTTPClient: client},
		"xiaohongshu": &GenericWebhook{HTTPClient: client},
		"zhihu":       api,
		"toutiao":     api,
	}
}

// DefaultMethodClients returns the per-method clients used for platforms
// without a dedicated client.
func DefaultMethodClients(client *http.Client, logger *zap.Logger) map[PublishMethod]RemoteClient {
	return map[PublishMethod]RemoteClient{
		MethodWebhook: &GenericWebhook{HTTPClient: client},
		MethodAPI:     &JSONAPIClient{HTTPClient: client, Logger: logger},
	}
}

func requireSettings(desc PlatformDescriptor, keys ...string) error {
	var missing []string
	for _, k := range keys {
		if strings.TrimSpace(desc.Settings[k]) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return &RemoteError{
			Platform: desc.Name,
			Message:  fmt.Sprintf("missing required settings: %s", strings.Join(missing, ", ")),
		}
	}
	return nil
}

func httpClientOr(c *http.Client) *http.Client {
	if c == nil {
		return NewHTTPClient(0)
	}
	return c
}

// doJSON sends payload and returns status and body. Non-2xx responses are
// returned as *RemoteError with the body text unchanged.
func doJSON(ctx context.Context, client *http.Client, platform, method, url string, headers map[string]string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &RemoteError{Platform: platform, Message: "failed to encode request", Cause: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, &RemoteError{Platform: platform, Message: "failed to build request", Cause: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClientOr(client).Do(req)
	if err != nil {
		return nil, &RemoteError{Platform: platform, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &RemoteError{Platform: platform, StatusCode: resp.StatusCode, Message: "failed to read response", Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RemoteError{Platform: platform, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}
	return respBody, nil
}

// FeishuWebhook posts a text message to a Feishu bot. Success requires a
// 2xx status and code 0 in the response.
type FeishuWebhook struct {
	HTTPClient *http.Client
}

type feishuMessage struct {
	MsgType string `json:"msg_type"`
	Content struct {
		Text string `json:"text"`
	} `json:"content"`
}

type feishuResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Publish implements RemoteClient.
func (f *FeishuWebhook) Publish(ctx context.Context, desc PlatformDescriptor, content types.FormattedContent) (*RemoteResult, error) {
	if err := requireSettings(desc, "webhook_url"); err != nil {
		return nil, err
	}

	var msg feishuMessage
	msg.MsgType = "text"
	msg.Content.Text = fmt.Sprintf("New content published: %s\n%s", content.Content.FormattedTitle, content.Content.Summary)

	body, err := doJSON(ctx, f.HTTPClient, desc.Name, http.MethodPost, desc.Settings["webhook_url"], nil, msg)
	if err != nil {
		return nil, err
	}

	var resp feishuResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &RemoteError{Platform: desc.Name, Message: strings.TrimSpace(string(body)), Cause: err}
	}
	if resp.Code != 0 {
		return nil, &RemoteError{Platform: desc.Name, Message: fmt.Sprintf("code %d: %s", resp.Code, resp.Msg)}
	}
	return &RemoteResult{Message: resp.Msg}, nil
}

// GenericWebhook posts the formatted content as JSON to webhook_url.
type GenericWebhook struct {
	HTTPClient *http.Client
}

// Publish implements RemoteClient.
func (g *GenericWebhook) Publish(ctx context.Context, desc PlatformDescriptor, content types.FormattedContent) (*RemoteResult, error) {
	if err := requireSettings(desc, "webhook_url"); err != nil {
		return nil, err
	}
	if _, err := doJSON(ctx, g.HTTPClient, desc.Name, http.MethodPost, desc.Settings["webhook_url"], nil, content); err != nil {
		return nil, err
	}
	return &RemoteResult{Message: "webhook accepted"}, nil
}

// JSONAPIClient posts an article payload to endpoint, with an optional
// bearer token.
type JSONAPIClient struct {
	HTTPClient *http.Client
	Logger     *zap.Logger
}

type apiArticle struct {
	Platform string   `json:"platform"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Summary  string   `json:"summary"`
	Tags     []string `json:"tags"`
}

// Publish implements RemoteClient.
func (a *JSONAPIClient) Publish(ctx context.Context, desc PlatformDescriptor, content types.FormattedContent) (*RemoteResult, error) {
	if err := requireSettings(desc, "endpoint"); err != nil {
		return nil, err
	}

	headers := map[string]string{}
	if token := desc.Settings["token"]; token != "" {
		headers["Authorization"] = "Bearer " + token
	}

	body, err := doJSON(ctx, a.HTTPClient, desc.Name, http.MethodPost, desc.Settings["endpoint"], headers, apiArticle{
		Platform: desc.Name,
		Title:    content.Content.FormattedTitle,
		Content:  content.Content.FormattedContent,
		Summary:  content.Content.Summary,
		Tags:     content.Content.Tags,
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil && len(bytes.TrimSpace(body)) > 0 {
		logging.OrNop(a.Logger).Debug("Remote response is not JSON",
			zap.String("platform", desc.Name),
			zap.String("body", excerpt(body)),
			zap.Error(err))
	}
	return &RemoteResult{Reference: resp.ID, Message: "api accepted"}, nil
}

func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxLoggedBody {
		return s[:maxLoggedBody] + "..."
	}
	return s
}
