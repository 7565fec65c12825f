package errors

import (
	"errors"
	"fmt"
)

// AppError 应用错误类型
// 用于统一管理客户端核心的错误，包含错误码和错误消息
type AppError struct {
	Code    int    // 错误码
	Message string // 用户可见的错误消息
	Err     error  // 原始错误（可选，用于调试）
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewError 创建新错误
func NewError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装原始错误
func (e *AppError) Wrap(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// Is 判断是否为指定错误
func Is(err error, target *AppError) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == target.Code
	}
	return false
}

// GetCode 获取错误码，如果不是 AppError 返回默认错误码
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeServerError // 默认返回服务器错误
}

// GetMessage 获取错误消息
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "服务器内部错误"
}

// ============== 错误码定义 ==============

const (
	CodeSuccess = 0

	// 认证相关 10000-10999
	CodeAuthRequired  = 10001
	CodeTokenExpired  = 10002
	CodeRefreshFailed = 10003

	// 通知解码相关 20000-20999
	CodeDecodeFailed        = 20001
	CodeUnknownNotification = 20002

	// 传输相关 30000-30999
	CodeConnectFailed   = 30001
	CodeSubscribeFailed = 30002
	CodeTransportClosed = 30003

	// 快照加载相关 31000-31999
	CodeStaleResponse = 31001

	// 系统错误 50000-50999
	CodeServerError   = 50001
	CodeRequestFailed = 50002
)

// ============== 预定义错误 ==============

// 认证相关
var (
	ErrAuthRequired  = NewError(CodeAuthRequired, "凭证缺失，请重新登录")
	ErrTokenExpired  = NewError(CodeTokenExpired, "Token 已过期")
	ErrRefreshFailed = NewError(CodeRefreshFailed, "Token 刷新失败")
)

// 通知解码相关
var (
	ErrDecodeFailed        = NewError(CodeDecodeFailed, "通知解析失败")
	ErrUnknownNotification = NewError(CodeUnknownNotification, "未知通知类型")
)

// 传输相关
var (
	ErrConnectFailed   = NewError(CodeConnectFailed, "实时通道连接失败")
	ErrSubscribeFailed = NewError(CodeSubscribeFailed, "订阅通知频道失败")
	ErrTransportClosed = NewError(CodeTransportClosed, "实时通道已关闭")
)

// 快照加载相关
var (
	ErrStaleResponse = NewError(CodeStaleResponse, "快照响应已过期")
)

// 系统相关
var (
	ErrServerError   = NewError(CodeServerError, "服务器内部错误")
	ErrRequestFailed = NewError(CodeRequestFailed, "请求失败")
)
