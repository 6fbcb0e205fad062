// Package api knows the backend's endpoints and its response envelope.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"StrategyDesk/internal/model"
	"StrategyDesk/internal/remote"
)

// ErrEmptyData is returned when a successful envelope carries no data.
var ErrEmptyData = errors.New("response carried no data")

// LogicalError is a failure reported by the backend inside the envelope.
type LogicalError struct {
	Message string
}

func (e *LogicalError) Error() string { return e.Message }

func UserURL(base string, userID int) string {
	return join(base, "/user/"+strconv.Itoa(userID))
}

func UserStrategiesURL(base string) string {
	return join(base, "/user/strategies/")
}

func StrategiesURL(base string) string {
	return join(base, "/strategies")
}

func StrategyURL(base string, id int) string {
	return join(base, "/strategies/"+strconv.Itoa(id))
}

func LoginURL(base string) string {
	return join(base, "/login")
}

func RegisterURL(base string) string {
	return join(base, "/register")
}

func InvestURL(base string) string {
	return join(base, "/strategies/invest")
}

func WithdrawURL(base string) string {
	return join(base, "/strategies/withdraw")
}

func join(base, path string) string {
	return strings.TrimRight(base, "/") + path
}

// BearerHeaders returns the Authorization header for token.
func BearerHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// Get issues a GET and decodes the envelope. An empty token sends no
// Authorization header. defaultMsg is used when the backend flags an error
// without a message.
func Get[T any](ctx context.Context, c remote.Client, url, token, defaultMsg string) (T, error) {
	opts := remote.Options{Method: http.MethodGet}
	if token != "" {
		opts.Headers = BearerHeaders(token)
	}
	return do[T](ctx, c, url, opts, defaultMsg)
}

// Post sends body as JSON and decodes the envelope. An empty token sends no
// Authorization header.
func Post[T any](ctx context.Context, c remote.Client, url, token string, body any, defaultMsg string) (T, error) {
	var zero T
	opts, err := postOptions(token, body)
	if err != nil {
		return zero, err
	}
	return do[T](ctx, c, url, opts, defaultMsg)
}

// Send posts body as JSON and only checks the envelope's error flag. It is
// for commands whose success envelope carries no data.
func Send(ctx context.Context, c remote.Client, url, token string, body any, defaultMsg string) error {
	opts, err := postOptions(token, body)
	if err != nil {
		return err
	}
	resp, err := c.Request(ctx, url, opts)
	if err != nil {
		return err
	}
	return Check(resp, defaultMsg)
}

func postOptions(token string, body any) (remote.Options, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return remote.Options{}, fmt.Errorf("marshal request: %w", err)
	}
	opts := remote.Options{Method: http.MethodPost, Body: payload}
	if token != "" {
		opts.Headers = BearerHeaders(token)
	}
	return opts, nil
}

func do[T any](ctx context.Context, c remote.Client, url string, opts remote.Options, defaultMsg string) (T, error) {
	var zero T
	body, err := c.Request(ctx, url, opts)
	if err != nil {
		return zero, err
	}
	return Decode[T](body, defaultMsg)
}

// Decode validates an envelope as a whole before returning its data: the
// error flag is checked first, then the data is decoded in one step.
func Decode[T any](body []byte, defaultMsg string) (T, error) {
	var zero T
	raw, err := unwrap(body, defaultMsg)
	if err != nil {
		return zero, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return zero, ErrEmptyData
	}
	var data T
	if err := json.Unmarshal(raw, &data); err != nil {
		return zero, fmt.Errorf("decode data: %w", err)
	}
	return data, nil
}

// Check reports the envelope's error, if any, and ignores its data.
func Check(body []byte, defaultMsg string) error {
	_, err := unwrap(body, defaultMsg)
	return err
}

func unwrap(body []byte, defaultMsg string) (json.RawMessage, error) {
	var env model.Envelope[json.RawMessage]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.IsError {
		msg := env.Message
		if msg == "" {
			msg = defaultMsg
		}
		return nil, &LogicalError{Message: msg}
	}
	return env.Data, nil
}
