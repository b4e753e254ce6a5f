package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/maynagashev/idealvisual/client/internal/diag"
	"github.com/maynagashev/idealvisual/models"
)

// Пути эндпоинтов относительно базового URL сервера.
const (
	accountPath = "/api/account"
	sessionPath = "/api/session"
)

// AccountClient определяет операции с учетной записью пользователя.
// Каждый вызов выполняет ровно один HTTP запрос и возвращает либо
// пользователя, либо *OperationError, но не то и другое сразу.
type AccountClient interface {
	// Create регистрирует нового пользователя.
	Create(ctx context.Context, user models.User) (*models.User, error)
	// Login открывает сессию пользователя.
	Login(ctx context.Context, user models.User) (*models.User, error)
	// Update изменяет данные пользователя, которому принадлежит токен.
	Update(ctx context.Context, token string, user models.User) (*models.User, error)
	// Logout закрывает сессию, которой принадлежит токен.
	Logout(ctx context.Context, token string) error
}

// Endpoints содержит адреса ресурсов учетной записи и сессии.
type Endpoints struct {
	AccountURL string // POST - создание, PUT - изменение
	SessionURL string // POST - вход, DELETE - выход
}

// EndpointsFromBase строит адреса эндпоинтов от базового URL сервера,
// например "http://localhost:8080".
func EndpointsFromBase(baseURL string) (Endpoints, error) {
	accountURL, err := url.JoinPath(baseURL, accountPath)
	if err != nil {
		return Endpoints{}, fmt.Errorf("ошибка формирования URL учетной записи: %w", err)
	}
	sessionURL, err := url.JoinPath(baseURL, sessionPath)
	if err != nil {
		return Endpoints{}, fmt.Errorf("ошибка формирования URL сессии: %w", err)
	}
	return Endpoints{AccountURL: accountURL, SessionURL: sessionURL}, nil
}

// Option настраивает клиент.
type Option func(*httpClient)

// WithDoer подменяет HTTP транспорт.
func WithDoer(d Doer) Option {
	return func(c *httpClient) {
		if d != nil {
			c.doer = d
		}
	}
}

// WithLogger задает диагностический логгер.
func WithLogger(l diag.Logger) Option {
	return func(c *httpClient) {
		if l != nil {
			c.log = l
		}
	}
}

// httpClient реализует AccountClient поверх HTTP. Состояния между вызовами не хранит.
type httpClient struct {
	endpoints Endpoints
	doer      Doer
	log       diag.Logger
}

// NewHTTPClient создает клиент учетных записей.
func NewHTTPClient(endpoints Endpoints, opts ...Option) AccountClient {
	c := &httpClient{
		endpoints: endpoints,
		doer:      &http.Client{},
		log:       diag.NewSlog(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create отправляет POST на эндпоинт учетной записи.
func (c *httpClient) Create(ctx context.Context, user models.User) (*models.User, error) {
	op := diag.Caller(0).Func
	body, err := encodeUser(user)
	if err != nil {
		c.logf(op, "ошибка подготовки запроса: %v", err)
		return nil, unknownError(err.Error())
	}

	resp := c.send(ctx, request{
		method:   http.MethodPost,
		url:      c.endpoints.AccountURL,
		body:     body,
		validate: true,
	})
	if resp.err != nil && resp.status == 0 {
		return nil, c.transportError(op, resp.err)
	}
	return c.userResponse(op, resp, nil)
}

// Login отправляет POST на эндпоинт сессии и сразу декодирует ответ.
// Код ответа разбирается только если декодировать не удалось.
func (c *httpClient) Login(ctx context.Context, user models.User) (*models.User, error) {
	op := diag.Caller(0).Func
	body, err := encodeUser(user)
	if err != nil {
		c.logf(op, "ошибка подготовки запроса: %v", err)
		return nil, unknownError(err.Error())
	}

	resp := c.send(ctx, request{
		method:   http.MethodPost,
		url:      c.endpoints.SessionURL,
		body:     body,
		validate: true,
	})

	var loggedIn *models.User
	err = resp.err
	if err == nil {
		loggedIn, err = decodeUser(resp.body)
		// Тело с кодом ошибки не считается пользователем, даже если декодировалось.
		if err == nil && !isSuccess(resp.status) {
			err = fmt.Errorf("недопустимый код ответа: %d", resp.status)
		}
	}

	if err != nil {
		if resp.status != 0 {
			if resp.status == http.StatusForbidden {
				return nil, ErrForbidden
			}
			c.logf(op, "unknown status code: %d: %v", resp.status, err)
			return nil, unknownStatusError(resp.status)
		}
		return nil, c.transportError(op, err)
	}

	if loggedIn == nil {
		c.logf(op, "ошибка данных: %s", ErrNoData)
		return nil, ErrNoData
	}
	return loggedIn, nil
}

// Update отправляет PUT на эндпоинт учетной записи с bearer токеном.
// Ответ разбирается так же, как при создании, но 401 и 404 имеют свои виды
// ошибок при любом теле ответа.
func (c *httpClient) Update(ctx context.Context, token string, user models.User) (*models.User, error) {
	op := diag.Caller(0).Func
	body, err := encodeUser(user)
	if err != nil {
		c.logf(op, "ошибка подготовки запроса: %v", err)
		return nil, unknownError(err.Error())
	}

	resp := c.send(ctx, request{
		method:   http.MethodPut,
		url:      c.endpoints.AccountURL,
		token:    token,
		body:     body,
		validate: true,
	})
	if resp.err != nil && resp.status == 0 {
		return nil, c.transportError(op, resp.err)
	}

	return c.userResponse(op, resp, map[int]error{
		http.StatusUnauthorized: ErrUnauthorized,
		http.StatusNotFound:     ErrNotFound,
	})
}

// Logout отправляет DELETE на эндпоинт сессии. Тело ответа не проверяется.
func (c *httpClient) Logout(ctx context.Context, token string) error {
	op := diag.Caller(0).Func
	resp := c.send(ctx, request{
		method: http.MethodDelete,
		url:    c.endpoints.SessionURL,
		token:  token,
	})
	if resp.err != nil && resp.status == 0 {
		return c.transportError(op, resp.err)
	}

	if resp.status == http.StatusOK {
		return nil
	}
	c.logf(op, "unknown status code: %d", resp.status)
	return unknownStatusError(resp.status)
}

// userResponse разбирает ответ по коду: 200 - пользователь, 422 - ошибки полей.
// statusErrors задает дополнительные коды, у которых есть свой вид ошибки.
// op - имя операции для диагностики.
func (c *httpClient) userResponse(op string, resp response, statusErrors map[int]error) (*models.User, error) {
	switch resp.status {
	case http.StatusOK:
		if len(resp.body) == 0 {
			c.logf(op, "ошибка данных: %s", ErrNoData)
			return nil, ErrNoData
		}
		if resp.err != nil {
			c.logf(op, "неизвестная сетевая ошибка: %v", resp.err)
			return nil, unknownError(resp.err.Error())
		}
		user, err := decodeUser(resp.body)
		if err != nil {
			c.logf(op, "неизвестная сетевая ошибка: %v", err)
			return nil, unknownError(err.Error())
		}
		if user == nil {
			c.logf(op, "ошибка данных: %s", ErrNoData)
			return nil, ErrNoData
		}
		return user, nil

	case http.StatusUnprocessableEntity:
		if len(resp.body) == 0 {
			c.logf(op, "ошибка данных: %s", ErrNoData)
			return nil, ErrNoData
		}
		if resp.err != nil {
			c.logf(op, "неизвестная сетевая ошибка: %v", resp.err)
			return nil, unknownError(resp.err.Error())
		}
		fields, err := decodeFieldErrors(resp.body)
		if err != nil {
			c.logf(op, "неизвестная сетевая ошибка: %v", err)
			return nil, unknownError(err.Error())
		}
		return nil, wrongFieldsError(fields)

	default:
		if err, ok := statusErrors[resp.status]; ok {
			return nil, err
		}
		c.logf(op, "unknown status code: %d", resp.status)
		return nil, unknownStatusError(resp.status)
	}
}

// transportError классифицирует ошибку, при которой ответ сервера не получен.
func (c *httpClient) transportError(op string, err error) error {
	if isNotConnected(err) {
		return ErrNoConnection
	}
	c.logf(op, "неизвестная ошибка: %v", err)
	return unknownError(err.Error())
}

// logf пишет диагностику: файл и строка - место вызова logf,
// функция - операция клиента, в которой возникла ситуация.
func (c *httpClient) logf(op string, format string, args ...any) {
	site := diag.Caller(1)
	site.Func = op
	c.log.Log(site, fmt.Sprintf(format, args...))
}

func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}
