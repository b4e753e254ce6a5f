package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"syscall"
)

const (
	mimeJSON = "application/json"
	// Ограничение на размер читаемого тела ответа.
	maxBodySize = 1 << 20
)

var (
	// ErrUnacceptableContentType возвращается, если сервер ответил непустым телом не в JSON.
	ErrUnacceptableContentType = errors.New("недопустимый тип содержимого ответа")
	// ErrBodyTooLarge возвращается, если тело ответа больше maxBodySize.
	ErrBodyTooLarge = errors.New("слишком большое тело ответа")
)

// Doer выполняет HTTP запрос. *http.Client удовлетворяет этому интерфейсу.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// request описывает один запрос к серверу.
type request struct {
	method   string
	url      string
	token    string // Пустой токен - без заголовка Authorization
	body     []byte // nil - без тела
	validate bool   // Проверять Content-Type ответа
}

// response - результат одного обмена с сервером.
// status == 0 означает, что ответ от сервера не был получен.
type response struct {
	status int
	body   []byte
	err    error // Транспортная ошибка либо ошибка проверки ответа
}

// send выполняет запрос и читает ответ целиком.
func (c *httpClient) send(ctx context.Context, r request) response {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return response{err: fmt.Errorf("ошибка создания запроса %s %q: %w", r.method, r.url, err)}
	}
	req.Header.Set("Accept", mimeJSON)
	if r.body != nil {
		req.Header.Set("Content-Type", mimeJSON)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return response{err: err}
	}
	defer resp.Body.Close()

	// Читаем на байт больше лимита, чтобы отличить обрезанное тело от полного
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return response{status: resp.StatusCode, err: fmt.Errorf("ошибка чтения тела ответа: %w", err)}
	}
	if len(data) > maxBodySize {
		return response{
			status: resp.StatusCode,
			body:   data,
			err:    fmt.Errorf("%w: более %d байт", ErrBodyTooLarge, maxBodySize),
		}
	}

	res := response{status: resp.StatusCode, body: data}
	if r.validate {
		res.err = validateContentType(resp.Header.Get("Content-Type"), data)
	}
	return res
}

// validateContentType проверяет, что непустое тело ответа пришло в JSON.
func validateContentType(contentType string, body []byte) error {
	if len(body) == 0 {
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != mimeJSON {
		return fmt.Errorf("%w: %q", ErrUnacceptableContentType, contentType)
	}
	return nil
}

// isNotConnected определяет, что запрос не ушел из-за отсутствия сети:
// не разрешилось имя хоста либо сеть или хост недоступны.
// Таймауты и отказ в соединении означают, что сеть есть, и к ним не относятся.
func isNotConnected(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETDOWN)
}
