package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/quic-go/quic-go/http3"

	"github.com/nishanth-sairam/whatsup-clone/internal/auth"
	"github.com/nishanth-sairam/whatsup-clone/internal/config"
	"github.com/nishanth-sairam/whatsup-clone/internal/errors"
	"github.com/nishanth-sairam/whatsup-clone/internal/model"
)

// 服务端 REST 路径
const (
	pathChats       = "/api/v1/chats"
	pathMessages    = "/api/v1/messages"
	pathChatPage    = "/api/v1/messages/chats/"
	pathUploadMedia = "/api/v1/messages/upload-media"
)

// Client whatsup 服务端 REST 客户端
// 快照读取是幂等的；401 响应触发一次 token 刷新后重试，再失败则上抛
type Client struct {
	baseURL string
	http    *http.Client
	tokens  auth.TokenProvider
	logger  *slog.Logger
}

// MessageRequest 发送消息请求体
type MessageRequest struct {
	ChatId     string            `json:"chatId"`
	SenderId   string            `json:"senderId"`
	ReceiverId string            `json:"receiverId"`
	Content    string            `json:"content"`
	Type       model.MessageType `json:"type"`
}

// savedMessage 服务端持久化后的消息实体
type savedMessage struct {
	Id        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// stringResponse 单字符串响应包装
type stringResponse struct {
	Response string `json:"response"`
}

// NewClient 创建 REST 客户端
func NewClient(cfg config.ServerConfig, tokens auth.TokenProvider, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.HTTP3 {
		httpClient.Transport = &http3.RoundTripper{}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		tokens:  tokens,
		logger:  logger,
	}
}

// FetchChats 拉取会话列表快照
func (c *Client) FetchChats(ctx context.Context) ([]model.Chat, error) {
	body, err := c.do(ctx, http.MethodGet, pathChats, nil, nil, "")
	if err != nil {
		return nil, err
	}

	var chats []model.Chat
	if err := json.Unmarshal(body, &chats); err != nil {
		return nil, errors.ErrRequestFailed.Wrap(err)
	}
	return chats, nil
}

// FetchMessages 拉取指定会话的消息页快照
func (c *Client) FetchMessages(ctx context.Context, chatId string, page, size int) (model.Page, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))

	body, err := c.do(ctx, http.MethodGet, pathChatPage+chatId, query, nil, "")
	if err != nil {
		return model.Page{}, err
	}

	var result model.Page
	if err := json.Unmarshal(body, &result); err != nil {
		return model.Page{}, errors.ErrRequestFailed.Wrap(err)
	}
	return result, nil
}

// SaveMessage 发送消息，返回服务端持久化后的消息
func (c *Client) SaveMessage(ctx context.Context, req MessageRequest) (model.ChatMessage, error) {
	payload, err := json.Marshal(&req)
	if err != nil {
		return model.ChatMessage{}, errors.ErrRequestFailed.Wrap(err)
	}

	body, err := c.do(ctx, http.MethodPost, pathMessages, nil, bytes.NewReader(payload), "application/json")
	if err != nil {
		return model.ChatMessage{}, err
	}

	var saved savedMessage
	if err := json.Unmarshal(body, &saved); err != nil {
		return model.ChatMessage{}, errors.ErrRequestFailed.Wrap(err)
	}

	return model.ChatMessage{
		MessageId:  saved.Id,
		SenderId:   req.SenderId,
		ReceiverId: req.ReceiverId,
		Content:    req.Content,
		Type:       req.Type,
		State:      model.MessageStateSent,
		CreatedAt:  saved.CreatedAt,
	}, nil
}

// MarkSeen 将会话内发给当前用户的消息标记为已读
func (c *Client) MarkSeen(ctx context.Context, chatId string) error {
	query := url.Values{}
	query.Set("chatId", chatId)

	_, err := c.do(ctx, http.MethodPatch, pathMessages, query, nil, "")
	return err
}

// UploadMedia 上传媒体文件作为图片消息
func (c *Client) UploadMedia(ctx context.Context, chatId, filename string, data []byte) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return errors.ErrRequestFailed.Wrap(err)
	}
	if _, err := part.Write(data); err != nil {
		return errors.ErrRequestFailed.Wrap(err)
	}
	if err := writer.Close(); err != nil {
		return errors.ErrRequestFailed.Wrap(err)
	}

	query := url.Values{}
	query.Set("chatId", chatId)

	_, err = c.do(ctx, http.MethodPost, pathUploadMedia, query, &buf, writer.FormDataContentType())
	return err
}

// CreateChat 创建与指定用户的会话，返回会话 Id
func (c *Client) CreateChat(ctx context.Context, senderId, receiverId string) (string, error) {
	query := url.Values{}
	query.Set("senderId", senderId)
	query.Set("receiverId", receiverId)

	body, err := c.do(ctx, http.MethodPost, pathChats, query, nil, "")
	if err != nil {
		return "", err
	}

	var resp stringResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", errors.ErrRequestFailed.Wrap(err)
	}
	return resp.Response, nil
}

// do 执行一次带凭证的请求；401 时刷新 token 并重试一次
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) ([]byte, error) {
	// 重试需要重放请求体
	var payload []byte
	if body != nil {
		var err error
		payload, err = io.ReadAll(body)
		if err != nil {
			return nil, errors.ErrRequestFailed.Wrap(err)
		}
	}

	respBody, status, err := c.doOnce(ctx, method, path, query, payload, contentType)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		refreshed, refreshErr := c.tokens.Refresh(ctx)
		if refreshErr != nil {
			return nil, refreshErr
		}
		if !refreshed {
			return nil, errors.ErrTokenExpired
		}
		c.logger.Debug("Token refreshed, retrying request", "method", method, "path", path)
		respBody, status, err = c.doOnce(ctx, method, path, query, payload, contentType)
		if err != nil {
			return nil, err
		}
	}

	if status < 200 || status > 299 {
		if status == http.StatusUnauthorized {
			return nil, errors.ErrAuthRequired
		}
		return nil, errors.ErrRequestFailed.Wrap(fmt.Errorf("%s %s: status %d", method, path, status))
	}

	return respBody, nil
}

func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, payload []byte, contentType string) ([]byte, int, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, 0, err
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, 0, errors.ErrRequestFailed.Wrap(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, errors.ErrRequestFailed.Wrap(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, errors.ErrRequestFailed.Wrap(err)
	}

	return respBody, resp.StatusCode, nil
}
