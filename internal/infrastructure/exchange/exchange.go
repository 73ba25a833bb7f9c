package exchange

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrIgnored 控制帧 (订阅确认、pong、增量等) 不产生快照，直接丢弃
var ErrIgnored = errors.New("message ignored")

// ParseJSON 去掉首尾空白后解码到 v
// 空消息返回 ErrIgnored，解码失败返回包装后的 json 错误
func ParseJSON(data []byte, v interface{}) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ErrIgnored
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json unmarshal: %w", err)
	}
	return nil
}

// IsPong 部分交易所用纯文本 "pong" 回应心跳
func IsPong(data []byte) bool {
	return strings.EqualFold(string(bytes.TrimSpace(data)), "pong")
}

// BuildQueryURL builds a URL with query parameters
func BuildQueryURL(base, path, query string) (string, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return "", errors.New("base url is empty")
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if path != "" {
		u.Path = path
	}
	u.RawQuery = query
	return u.String(), nil
}

// TrimURL 校验并清理基础地址
func TrimURL(base string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", errors.New("base url is empty")
	}
	if _, err := url.Parse(base); err != nil {
		return "", err
	}
	return base, nil
}
