package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/jobhunt/pkg/api"
)

//go:generate moq -out client_mock.go . ClientAPI

// ClientAPI - эндпоинты сервиса авторизации, которые потребляет клиент
type ClientAPI interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.TokenResponse, error)
	Refresh(ctx context.Context, req api.RefreshRequest) (*api.TokenResponse, error)
	Me(ctx context.Context) (*api.User, error)
}

// Пути эндпоинтов относительно baseURL
const (
	PathLogin    = "/auth/login"
	PathRegister = "/auth/register"
	PathRefresh  = "/auth/refresh"
	PathMe       = "/auth/me"
)

// PublicPaths - эндпоинты, к которым никогда не прикладывается bearer token
var PublicPaths = []string{PathLogin, PathRegister, PathRefresh}

// RequestIDHeader - заголовок с идентификатором запроса
const RequestIDHeader = "X-Request-ID"

// DefaultTimeout - таймаут HTTP клиента по умолчанию
const DefaultTimeout = 30 * time.Second

var (
	// ErrUnauthorized - сервер ответил 401
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTransport - запрос не дошел до сервера или ответ не прочитан
	ErrTransport = errors.New("transport failure")
)

// ServerError - неуспешный ответ сервера (не-2xx или success=false)
type ServerError struct {
	Message    string
	Code       string
	StatusCode int
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// Unwrap позволяет errors.Is(err, ErrUnauthorized) для ответов 401
func (e *ServerError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// Client представляет HTTP клиент для взаимодействия с сервисом авторизации
type Client struct {
	httpClient *http.Client
	baseURL    string
}

var _ ClientAPI = (*Client)(nil)

// NewClient создает новый API клиент.
// transport - цепочка RoundTripper (авторизация, логирование); nil означает http.DefaultTransport.
func NewClient(baseURL string, transport http.RoundTripper, timeout time.Duration) *Client {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовок Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// Login выполняет вход по email и паролю
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, PathLogin, req, &resp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// Register регистрирует нового пользователя
func (c *Client) Register(ctx context.Context, req api.RegisterRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, PathRegister, req, &resp); err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	return &resp, nil
}

// Refresh обменивает refresh token на новую пару
func (c *Client) Refresh(ctx context.Context, req api.RefreshRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, PathRefresh, req, &resp); err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	return &resp, nil
}

// Me получает текущего пользователя. Bearer token прикладывает транспорт.
func (c *Client) Me(ctx context.Context) (*api.User, error) {
	var user api.User
	if err := c.doRequest(ctx, http.MethodGet, PathMe, nil, &user); err != nil {
		return nil, fmt.Errorf("get current user failed: %w", err)
	}
	return &user, nil
}

// doRequest выполняет HTTP запрос и разбирает конверт { success, data, error }
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %w", ErrTransport, err)
	}

	var envelope api.Envelope
	envErr := json.Unmarshal(respBody, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		serverErr := &ServerError{StatusCode: resp.StatusCode}
		switch {
		case envErr == nil && envelope.Error != nil:
			serverErr.Message = envelope.Error.Message
			serverErr.Code = envelope.Error.Code
		case len(respBody) > 0 && envErr != nil:
			serverErr.Message = string(bytes.TrimSpace(respBody))
		}
		return serverErr
	}

	if envErr != nil {
		return fmt.Errorf("failed to decode response: %w", envErr)
	}

	if !envelope.Success {
		serverErr := &ServerError{StatusCode: resp.StatusCode, Message: "request was not successful"}
		if envelope.Error != nil {
			serverErr.Message = envelope.Error.Message
			serverErr.Code = envelope.Error.Code
		}
		return serverErr
	}

	if result == nil {
		return nil
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return fmt.Errorf("response has no data")
	}
	if err := json.Unmarshal(envelope.Data, result); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}

	return nil
}
