package stomp

import (
	"bytes"
	"fmt"
	"strings"
)

// STOMP 1.2 帧命令
const (
	CmdConnect     = "CONNECT"
	CmdConnected   = "CONNECTED"
	CmdSubscribe   = "SUBSCRIBE"
	CmdUnsubscribe = "UNSUBSCRIBE"
	CmdMessage     = "MESSAGE"
	CmdDisconnect  = "DISCONNECT"
	CmdReceipt     = "RECEIPT"
	CmdError       = "ERROR"
)

// Frame STOMP 帧
// Headers 保持插入顺序；Body 以 NUL 结尾写出
type Frame struct {
	Command string
	Headers []Header
	Body    []byte
}

// Header 单个头部键值对
type Header struct {
	Key   string
	Value string
}

// NewFrame 创建帧，headers 以 key, value 对传入
func NewFrame(command string, headers ...string) *Frame {
	f := &Frame{Command: command}
	for i := 0; i+1 < len(headers); i += 2 {
		f.Headers = append(f.Headers, Header{Key: headers[i], Value: headers[i+1]})
	}
	return f
}

// Get 返回第一个同名头部的值
func (f *Frame) Get(key string) string {
	for _, h := range f.Headers {
		if h.Key == key {
			return h.Value
		}
	}
	return ""
}

// headerEscaper CONNECT/CONNECTED 之外的帧头部需要转义
var headerEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"\r", "\\r",
	"\n", "\\n",
	":", "\\c",
)

var headerUnescaper = strings.NewReplacer(
	"\\r", "\r",
	"\\n", "\n",
	"\\c", ":",
	"\\\\", "\\",
)

// escaped CONNECT 和 CONNECTED 帧的头部不做转义（STOMP 1.2 规定）
func (f *Frame) escaped() bool {
	return f.Command != CmdConnect && f.Command != CmdConnected
}

// Marshal 序列化为线上格式
func (f *Frame) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteString(f.Command)
	buf.WriteByte('\n')

	for _, h := range f.Headers {
		key, value := h.Key, h.Value
		if f.escaped() {
			key = headerEscaper.Replace(key)
			value = headerEscaper.Replace(value)
		}
		buf.WriteString(key)
		buf.WriteByte(':')
		buf.WriteString(value)
		buf.WriteByte('\n')
	}

	buf.WriteByte('\n')
	buf.Write(f.Body)
	buf.WriteByte(0)
	return buf.Bytes()
}

// Parse 解析线上格式的帧
// 空载荷（服务端心跳，单独的换行）返回 nil, nil
func Parse(raw []byte) (*Frame, error) {
	raw = bytes.TrimLeft(raw, "\r\n")
	if len(raw) == 0 {
		return nil, nil
	}

	head, body, found := bytes.Cut(raw, []byte("\n\n"))
	if !found {
		return nil, fmt.Errorf("stomp: frame missing header terminator")
	}

	lines := strings.Split(strings.ReplaceAll(string(head), "\r\n", "\n"), "\n")
	f := &Frame{Command: lines[0]}
	if f.Command == "" {
		return nil, fmt.Errorf("stomp: empty command")
	}

	for _, line := range lines[1:] {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("stomp: malformed header %q", line)
		}
		if f.escaped() {
			key = headerUnescaper.Replace(key)
			value = headerUnescaper.Replace(value)
		}
		f.Headers = append(f.Headers, Header{Key: key, Value: value})
	}

	// 去掉结尾 NUL
	if i := bytes.IndexByte(body, 0); i >= 0 {
		body = body[:i]
	}
	if len(body) > 0 {
		f.Body = body
	}
	return f, nil
}
