// Package apperr 定义跨包共享的错误分类
// Package apperr defines the error taxonomy shared across packages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误类别 / error category
type Kind string

const (
	KindValidation Kind = "validation"
	KindGateway    Kind = "gateway"
	KindStream     Kind = "stream"
	KindStorage    Kind = "storage"
	KindNotFound   Kind = "not_found"
	KindInternal   Kind = "internal"
)

// Error 带分类的应用错误
// Error is a classified application error.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation 本地校验失败（不会触达网络）
// Validation reports a local precondition failure; no network call was made.
func Validation(op, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

// Gateway 包装 AI 网关失败（网络、非 2xx、响应结构不匹配）
// Gateway wraps an AI gateway failure: network, non-2xx, or response-shape mismatch.
func Gateway(op string, err error) *Error {
	return &Error{Kind: KindGateway, Op: op, Err: err}
}

// Stream 包装流式响应中途失败
// Stream wraps a failure in the middle of a streamed response.
func Stream(op string, err error) *Error {
	return &Error{Kind: KindStream, Op: op, Err: err}
}

// Storage 包装持久化失败 / wraps a persistence failure
func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Op: op, Err: err}
}

// NotFound 资源不存在 / resource does not exist
func NotFound(op, resource string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: resource + " not found"}
}

// KindOf 返回错误链中第一个 *Error 的类别，未分类返回 KindInternal
// KindOf returns the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func IsValidation(err error) bool { return err != nil && KindOf(err) == KindValidation }

func IsGateway(err error) bool {
	k := KindOf(err)
	return err != nil && (k == KindGateway || k == KindStream)
}

// HTTPStatus 将错误映射到 HTTP 状态码
// HTTPStatus maps an error onto an HTTP status code.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindGateway, KindStream:
		return http.StatusBadGateway
	case KindStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
