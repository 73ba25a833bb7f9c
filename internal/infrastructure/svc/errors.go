package svc

import "errors"

// ErrNoVenuesEnabled 错误：没有启用任何可用的交易所
var ErrNoVenuesEnabled = errors.New("no exchange venues enabled")

// ErrStorageInitFailed 错误：存储初始化失败
var ErrStorageInitFailed = errors.New("storage initialization failed")
