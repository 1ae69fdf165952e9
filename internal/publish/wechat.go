package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jonathan/content-pipeline/internal/types"
	"github.com/yuin/goldmark"
)

const (
	wechatBaseURL   = "https://api.weixin.qq.com"
	wechatDigestLen = 120
)

// WeChatClient creates a draft in a WeChat Official Account. It needs the
// app_id, app_secret and thumb_media_id settings; author is optional.
type WeChatClient struct {
	HTTPClient *http.Client
	BaseURL    string
}

type wechatTokenResp struct {
	AccessToken string `json:"access_token"`
	ErrCode     int    `json:"errcode"`
	ErrMsg      string `json:"errmsg"`
}

type wechatArticle struct {
	Title              string `json:"title"`
	Author             string `json:"author"`
	Digest             string `json:"digest"`
	Content            string `json:"content"`
	ThumbMediaID       string `json:"thumb_media_id"`
	NeedOpenComment    int    `json:"need_open_comment"`
	OnlyFansCanComment int    `json:"only_fans_can_comment"`
}

type wechatDraftPayload struct {
	Articles []wechatArticle `json:"articles"`
}

type wechatDraftResp struct {
	MediaID string `json:"media_id"`
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Publish implements RemoteClient.
func (w *WeChatClient) Publish(ctx context.Context, desc PlatformDescriptor, content types.FormattedContent) (*RemoteResult, error) {
	if err := requireSettings(desc, "app_id", "app_secret", "thumb_media_id"); err != nil {
		return nil, err
	}

	token, err := w.accessToken(ctx, desc)
	if err != nil {
		return nil, err
	}

	html, err := markdownToHTML(content.Content.FormattedContent)
	if err != nil {
		return nil, &RemoteError{Platform: desc.Name, Message: "failed to render markdown", Cause: err}
	}

	title := content.Content.FormattedTitle
	if title == "" {
		title = "Draft"
	}
	payload := wechatDraftPayload{Articles: []wechatArticle{{
		Title:        title,
		Author:       desc.Settings["author"],
		Digest:       digest(content.Content.Summary, wechatDigestLen),
		Content:      html,
		ThumbMediaID: desc.Settings["thumb_media_id"],
	}}}

	body, err := doJSON(ctx, w.HTTPClient, desc.Name, http.MethodPost,
		w.base()+"/cgi-bin/draft/add?"+url.Values{"access_token": {token}}.Encode(), nil, payload)
	if err != nil {
		return nil, err
	}

	var resp wechatDraftResp
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &RemoteError{Platform: desc.Name, Message: strings.TrimSpace(string(body)), Cause: err}
	}
	if resp.MediaID == "" {
		return nil, &RemoteError{Platform: desc.Name, Message: fmt.Sprintf("draft/add failed: %d %s", resp.ErrCode, resp.ErrMsg)}
	}
	return &RemoteResult{Reference: resp.MediaID, Message: "draft created"}, nil
}

func (w *WeChatClient) accessToken(ctx context.Context, desc PlatformDescriptor) (string, error) {
	q := url.Values{
		"grant_type": {"client_credential"},
		"appid":      {desc.Settings["app_id"]},
		"secret":     {desc.Settings["app_secret"]},
	}
	body, err := doJSON(ctx, w.HTTPClient, desc.Name, http.MethodGet, w.base()+"/cgi-bin/token?"+q.Encode(), nil, nil)
	if err != nil {
		return "", err
	}

	var resp wechatTokenResp
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &RemoteError{Platform: desc.Name, Message: strings.TrimSpace(string(body)), Cause: err}
	}
	if resp.AccessToken == "" {
		return "", &RemoteError{Platform: desc.Name, Message: fmt.Sprintf("failed to get access_token: %d %s", resp.ErrCode, resp.ErrMsg)}
	}
	return resp.AccessToken, nil
}

func (w *WeChatClient) base() string {
	if w.BaseURL != "" {
		return strings.TrimSuffix(w.BaseURL, "/")
	}
	return wechatBaseURL
}

func markdownToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func digest(s string, n int) string {
	joined := strings.Join(strings.Fields(s), " ")
	r := []rune(joined)
	if len(r) <= n {
		return joined
	}
	return string(r[:n])
}
