package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	apiBase        = "https://i.instagram.com/api/v1"
	requestTimeout = 60 * time.Second
)

// apiClient talks to the private mobile API with the session's cookie
// jar. It implements Client.
type apiClient struct {
	http   *http.Client
	sess   *AuthSession
	appID  string
	device string
}

// NewClient builds an API client over a loaded session. proxyURL is
// optional.
func NewClient(sess *AuthSession, proxyURL string) (Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		proxy, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	return &apiClient{
		http: &http.Client{
			Jar:       sess.Jar,
			Timeout:   requestTimeout,
			Transport: transport,
		},
		sess:   sess,
		appID:  "567067343352427",
		device: uuid.NewSHA1(uuid.NameSpaceURL, []byte(sess.UserID)).String(),
	}, nil
}

type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (r *apiResponse) ok() bool { return r.Status == "ok" }

func (c *apiClient) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, apiBase+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.sess.UserAgent)
	req.Header.Set("X-IG-App-ID", c.appID)
	req.Header.Set("X-IG-Device-ID", c.device)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr apiResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("instagram: %s %s: %d %s", method, path, resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("instagram: %s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("instagram: decode %s response: %w", path, err)
		}
	}
	return nil
}

func (c *apiClient) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

func (c *apiClient) postForm(ctx context.Context, path string, form url.Values, out any) error {
	return c.do(ctx, http.MethodPost, path, strings.NewReader(form.Encode()),
		"application/x-www-form-urlencoded", out)
}

func (c *apiClient) UserInfo(ctx context.Context, userID string) (*User, error) {
	var resp struct {
		apiResponse
		User *User `json:"user"`
	}
	if err := c.get(ctx, fmt.Sprintf("/users/%s/info/", url.PathEscape(userID)), &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, fmt.Errorf("instagram: no user in info response for %s", userID)
	}
	return resp.User, nil
}

func (c *apiClient) UserByName(ctx context.Context, username string) (*User, error) {
	var resp struct {
		apiResponse
		User *User `json:"user"`
	}
	if err := c.get(ctx, fmt.Sprintf("/users/%s/usernameinfo/", url.PathEscape(username)), &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, fmt.Errorf("instagram: unknown username %s", username)
	}
	return resp.User, nil
}

func (c *apiClient) SendText(ctx context.Context, threadID, text string) error {
	form := url.Values{}
	form.Set("action", "send_item")
	form.Set("thread_ids", fmt.Sprintf("[%s]", threadID))
	form.Set("text", text)
	form.Set("client_context", uuid.NewString())

	var resp apiResponse
	if err := c.postForm(ctx, "/direct_v2/threads/broadcast/text/", form, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return fmt.Errorf("instagram: send text: %s", resp.Message)
	}
	return nil
}

func (c *apiClient) SendPhoto(ctx context.Context, threadID string, jpeg []byte) error {
	uploadID, err := c.upload(ctx, "photo", "image/jpeg", jpeg)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("action", "send_item")
	form.Set("thread_ids", fmt.Sprintf("[%s]", threadID))
	form.Set("upload_id", uploadID)
	form.Set("client_context", uuid.NewString())

	var resp apiResponse
	if err := c.postForm(ctx, "/direct_v2/threads/broadcast/configure_photo/", form, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return fmt.Errorf("instagram: send photo: %s", resp.Message)
	}
	return nil
}

func (c *apiClient) SendVideo(ctx context.Context, threadID string, mp4 []byte) error {
	uploadID, err := c.upload(ctx, "video", "video/mp4", mp4)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("action", "send_item")
	form.Set("thread_ids", fmt.Sprintf("[%s]", threadID))
	form.Set("upload_id", uploadID)
	form.Set("video_result", "")
	form.Set("client_context", uuid.NewString())

	var resp apiResponse
	if err := c.postForm(ctx, "/direct_v2/threads/broadcast/configure_video/", form, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return fmt.Errorf("instagram: send video: %s", resp.Message)
	}
	return nil
}

func (c *apiClient) SendVoice(ctx context.Context, threadID string, audio []byte) error {
	uploadID, err := c.upload(ctx, "audio", "audio/mp4", audio)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("action", "send_item")
	form.Set("thread_ids", fmt.Sprintf("[%s]", threadID))
	form.Set("upload_id", uploadID)
	form.Set("client_context", uuid.NewString())

	var resp apiResponse
	if err := c.postForm(ctx, "/direct_v2/threads/broadcast/share_voice/", form, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return fmt.Errorf("instagram: send voice: %s", resp.Message)
	}
	return nil
}

// upload pushes media bytes to the resumable upload endpoint and
// returns the upload id the broadcast configure call references.
func (c *apiClient) upload(ctx context.Context, kind, contentType string, data []byte) (string, error) {
	uploadID := fmt.Sprintf("%d", time.Now().UnixMilli())

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("upload_id", uploadID); err != nil {
		return "", err
	}
	part, err := w.CreateFormFile(kind, fmt.Sprintf("%s.%s", uploadID, kind))
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	var resp apiResponse
	path := fmt.Sprintf("/rupload_ig%s/%s", kind, uploadID)
	if err := c.do(ctx, http.MethodPost, path, &body, w.FormDataContentType(), &resp); err != nil {
		return "", fmt.Errorf("upload %s: %w", kind, err)
	}
	if !resp.ok() {
		return "", fmt.Errorf("instagram: upload %s: %s", kind, resp.Message)
	}
	return uploadID, nil
}

func (c *apiClient) friendshipAction(ctx context.Context, action, userID string) error {
	form := url.Values{}
	form.Set("user_id", userID)
	form.Set("_uid", c.sess.UserID)
	form.Set("device_id", c.device)

	var resp apiResponse
	path := fmt.Sprintf("/friendships/%s/%s/", action, url.PathEscape(userID))
	if err := c.postForm(ctx, path, form, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return fmt.Errorf("instagram: friendship %s %s: %s", action, userID, resp.Message)
	}
	return nil
}

func (c *apiClient) Follow(ctx context.Context, userID string) error {
	return c.friendshipAction(ctx, "create", userID)
}

func (c *apiClient) Unfollow(ctx context.Context, userID string) error {
	return c.friendshipAction(ctx, "destroy", userID)
}

func (c *apiClient) ApproveRequest(ctx context.Context, userID string) error {
	return c.friendshipAction(ctx, "approve", userID)
}

func (c *apiClient) PendingRequests(ctx context.Context) ([]User, error) {
	var resp struct {
		apiResponse
		Users []User `json:"users"`
	}
	if err := c.get(ctx, "/friendships/pending/", &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

func (c *apiClient) FollowerCount(ctx context.Context) (int, error) {
	u, err := c.UserInfo(ctx, c.sess.UserID)
	if err != nil {
		return 0, err
	}
	return u.FollowerCount, nil
}

var _ Client = (*apiClient)(nil)
