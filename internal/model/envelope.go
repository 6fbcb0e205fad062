package model

// Envelope is the fixed wrapper every backend response uses.
type Envelope[T any] struct {
	IsError   bool   `json:"is_error"`
	Message   string `json:"message"`
	IsSuccess bool   `json:"is_success"`
	Data      T      `json:"data"`
}
