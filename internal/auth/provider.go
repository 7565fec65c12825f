package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nishanth-sairam/whatsup-clone/internal/config"
	"github.com/nishanth-sairam/whatsup-clone/internal/errors"
)

// TokenProvider 凭证提供者
// 身份系统（登录跳转、token 签发）是外部协作方，本包只定义边界
type TokenProvider interface {
	// Token 返回当前有效的 access token
	Token(ctx context.Context) (string, error)
	// Refresh 尝试刷新凭证，返回是否刷新成功
	Refresh(ctx context.Context) (bool, error)
	// Subject 返回 token 的 subject 声明（当前用户 Id）
	Subject() string
}

// StaticProvider 包装一对预签发的 token，走标准的
// grant_type=refresh_token 表单端点做刷新
type StaticProvider struct {
	tokenURL string
	clientID string
	http     *http.Client

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	subject      string
	expiresAt    time.Time
}

// tokenResponse token 端点的响应体
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// NewStaticProvider 创建凭证提供者
// 不验证签名，只解析 claims 提取 subject 和过期时间
func NewStaticProvider(cfg config.AuthConfig) (*StaticProvider, error) {
	if cfg.AccessToken == "" {
		return nil, errors.ErrAuthRequired
	}

	sub, exp, err := parseClaims(cfg.AccessToken)
	if err != nil {
		return nil, errors.ErrAuthRequired.Wrap(err)
	}

	return &StaticProvider{
		tokenURL:     cfg.TokenURL,
		clientID:     cfg.ClientID,
		http:         &http.Client{Timeout: 10 * time.Second},
		accessToken:  cfg.AccessToken,
		refreshToken: cfg.RefreshToken,
		subject:      sub,
		expiresAt:    exp,
	}, nil
}

// Token 返回当前 access token；临近过期时先尝试刷新
func (p *StaticProvider) Token(ctx context.Context) (string, error) {
	p.mu.RLock()
	token := p.accessToken
	expired := !p.expiresAt.IsZero() && time.Until(p.expiresAt) < 30*time.Second
	p.mu.RUnlock()

	if !expired {
		return token, nil
	}

	refreshed, err := p.Refresh(ctx)
	if err != nil {
		return "", err
	}
	if !refreshed {
		return "", errors.ErrTokenExpired
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.accessToken, nil
}

// Refresh 调用 token 端点刷新凭证
func (p *StaticProvider) Refresh(ctx context.Context) (bool, error) {
	p.mu.RLock()
	refreshToken := p.refreshToken
	p.mu.RUnlock()

	if p.tokenURL == "" || refreshToken == "" {
		return false, errors.ErrAuthRequired
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", p.clientID)
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, errors.ErrRefreshFailed.Wrap(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.http.Do(req)
	if err != nil {
		return false, errors.ErrRefreshFailed.Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, errors.ErrRefreshFailed
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return false, errors.ErrRefreshFailed.Wrap(err)
	}

	sub, exp, err := parseClaims(tr.AccessToken)
	if err != nil {
		return false, errors.ErrRefreshFailed.Wrap(err)
	}

	p.mu.Lock()
	p.accessToken = tr.AccessToken
	if tr.RefreshToken != "" {
		p.refreshToken = tr.RefreshToken
	}
	p.subject = sub
	p.expiresAt = exp
	if exp.IsZero() && tr.ExpiresIn > 0 {
		p.expiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	p.mu.Unlock()

	return true, nil
}

// Subject 返回 token 的 subject 声明
func (p *StaticProvider) Subject() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.subject
}

// parseClaims 使用 ParseUnverified 解析 subject 和过期时间（不验证签名）
func parseClaims(tokenString string) (string, time.Time, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return "", time.Time{}, err
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", time.Time{}, err
	}

	var expiresAt time.Time
	if exp, err := token.Claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}

	return sub, expiresAt, nil
}
