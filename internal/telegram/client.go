package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultAPIURL is the public Bot API endpoint.
	DefaultAPIURL = "https://api.telegram.org"
	// ParseModeHTML selects Telegram's HTML message formatting.
	ParseModeHTML = "HTML"

	maxErrorBody = 4 << 10
)

// Client talks to the Bot API on behalf of one bot token.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout bounds every request, including long polls. Zero leaves the
// transport defaults in place.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout, Transport: c.httpClient.Transport}
		}
	}
}

// New creates a Bot API client.
func New(token, baseURL string, opts ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("telegram bot token required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	client := &Client{
		token:      token,
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SendOptions tunes how a text message is rendered.
type SendOptions struct {
	ParseMode             string
	DisableWebPagePreview bool
	ReplyToMessageID      int64
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters,omitempty"`
}

// GetMe returns the bot's own account.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var user User
	if err := c.call(ctx, "getMe", struct{}{}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUpdates long-polls for new updates after offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]Update, error) {
	payload := map[string]any{
		"offset":          offset,
		"timeout":         timeoutSeconds,
		"allowed_updates": []string{"message"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage posts text to chatID.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, opts SendOptions) (*Message, error) {
	payload := textPayload(chatID, text, opts)
	if opts.ReplyToMessageID != 0 {
		payload["reply_to_message_id"] = opts.ReplyToMessageID
	}
	var msg Message
	if err := c.call(ctx, "sendMessage", payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EditMessageText replaces the text of an existing message.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, opts SendOptions) error {
	payload := textPayload(chatID, text, opts)
	payload["message_id"] = messageID
	var ignored json.RawMessage
	return c.call(ctx, "editMessageText", payload, &ignored)
}

// SendMedia re-sends an existing attachment (by file_id) to chatID using the
// send method matching kind.
func (c *Client) SendMedia(ctx context.Context, chatID int64, kind MediaKind, fileID, caption string) (*Message, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("telegram: unsupported media kind %q", kind)
	}
	method := "send" + strings.ToUpper(string(kind[:1])) + string(kind[1:])
	payload := map[string]any{
		"chat_id":    chatID,
		string(kind): fileID,
	}
	if caption != "" {
		payload["caption"] = caption
	}
	var msg Message
	if err := c.call(ctx, method, payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// UploadDocument uploads data as a new document in chatID.
func (c *Client) UploadDocument(ctx context.Context, chatID int64, fileName string, data []byte, caption string) (*Message, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return nil, fmt.Errorf("telegram sendDocument: build form: %w", err)
	}
	if caption != "" {
		if err := writer.WriteField("caption", caption); err != nil {
			return nil, fmt.Errorf("telegram sendDocument: build form: %w", err)
		}
	}
	part, err := writer.CreateFormFile("document", fileName)
	if err != nil {
		return nil, fmt.Errorf("telegram sendDocument: build form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("telegram sendDocument: build form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("telegram sendDocument: build form: %w", err)
	}

	var msg Message
	if err := c.do(ctx, "sendDocument", writer.FormDataContentType(), &body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetFile resolves a file_id to a downloadable path.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	var file File
	if err := c.call(ctx, "getFile", map[string]any{"file_id": fileID}, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// DownloadFile fetches the bytes behind a path returned by GetFile.
func (c *Client) DownloadFile(ctx context.Context, filePath string) ([]byte, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, errors.New("telegram download: empty file path")
	}
	endpoint := fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, strings.TrimLeft(filePath, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("telegram download: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram download: %w", redactToken(err, c.token))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{Method: "download", Code: resp.StatusCode, Description: strings.TrimSpace(string(snippet))}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("telegram download: read body: %w", err)
	}
	return data, nil
}

// SetMyCommands publishes the bot's command menu.
func (c *Client) SetMyCommands(ctx context.Context, commands []BotCommand) error {
	var ignored json.RawMessage
	return c.call(ctx, "setMyCommands", map[string]any{"commands": commands}, &ignored)
}

func textPayload(chatID int64, text string, opts SendOptions) map[string]any {
	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if opts.ParseMode != "" {
		payload["parse_mode"] = opts.ParseMode
	}
	if opts.DisableWebPagePreview {
		payload["disable_web_page_preview"] = true
	}
	return payload
}

func (c *Client) call(ctx context.Context, method string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram %s: encode request: %w", method, err)
	}
	return c.do(ctx, method, "application/json", bytes.NewReader(body), out)
}

func (c *Client) do(ctx context.Context, method, contentType string, body io.Reader, out any) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("telegram %s: build request: %w", method, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, redactToken(err, c.token))
	}
	defer resp.Body.Close()

	var decoded apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &APIError{Method: method, Code: resp.StatusCode, Description: resp.Status}
		}
		return fmt.Errorf("telegram %s: decode response: %w", method, err)
	}
	if !decoded.OK {
		apiErr := &APIError{Method: method, Code: decoded.ErrorCode, Description: decoded.Description}
		if apiErr.Code == 0 {
			apiErr.Code = resp.StatusCode
		}
		if decoded.Parameters != nil && decoded.Parameters.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(decoded.Parameters.RetryAfter) * time.Second
		}
		return apiErr
	}
	if out == nil || len(decoded.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(decoded.Result, out); err != nil {
		return fmt.Errorf("telegram %s: decode result: %w", method, err)
	}
	return nil
}

// redactToken strips the bot token from transport errors, which embed the
// request URL. The original error stays reachable through errors.Is/As.
func redactToken(err error, token string) error {
	if err == nil || token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), token, "<token>"), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Unwrap() error { return e.err }
