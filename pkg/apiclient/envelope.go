package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Page 归一化后的列表结果
type Page[T any] struct {
	Items   []T   `json:"items"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"has_more"`
}

// 列表字段在不同资源中的名称
var listKeys = []string{"items", "notifications", "results", "rows", "data"}

// envelope 上游的 {success, data, message} 包装
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

// unwrap 去掉包装，返回 data 部分；裸数组或裸对象原样返回
func unwrap(resource string, raw []byte) (json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if raw[0] != '{' {
		return raw, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	if env.Success == nil {
		return raw, nil
	}
	if !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		return nil, &APIError{Resource: resource, Status: 200, Message: msg}
	}
	return env.Data, nil
}

// decodeOne 解码单个对象
func decodeOne(resource string, raw []byte, out interface{}) error {
	if out == nil {
		return nil
	}
	data, err := unwrap(resource, raw)
	if err != nil {
		return err
	}
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadEnvelope, resource, err)
	}
	return nil
}

// decodePage 解码列表，兼容裸数组与 {success, data:{items,total,hasMore}} 两种形态
func decodePage[T any](resource string, raw []byte) (*Page[T], error) {
	page := &Page[T]{Items: []T{}}

	// 顶层分页字段，部分接口放在 data 外层
	var outer map[string]json.RawMessage
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		_ = json.Unmarshal(trimmed, &outer)
	}

	data, err := unwrap(resource, raw)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)

	switch {
	case len(data) == 0 || string(data) == "null":
	case data[0] == '[':
		if err := json.Unmarshal(data, &page.Items); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrBadEnvelope, resource, err)
		}
	case data[0] == '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrBadEnvelope, resource, err)
		}
		found := false
		for _, key := range listKeys {
			list, ok := fields[key]
			if !ok || len(bytes.TrimSpace(list)) == 0 || bytes.TrimSpace(list)[0] != '[' {
				continue
			}
			if err := json.Unmarshal(list, &page.Items); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrBadEnvelope, resource, err)
			}
			found = true
			break
		}
		if !found {
			return nil, fmt.Errorf("%w: %s: no list field", ErrBadEnvelope, resource)
		}
		outer = mergeMeta(outer, fields)
	default:
		return nil, fmt.Errorf("%w: %s: unexpected payload", ErrBadEnvelope, resource)
	}

	page.Total = int64(len(page.Items))
	if v, ok := lookupInt(outer, "total", "count", "totalCount", "total_count"); ok {
		page.Total = v
	}
	if v, ok := lookupBool(outer, "hasMore", "has_more"); ok {
		page.HasMore = v
	}
	return page, nil
}

// mergeMeta 合并内外层的分页元数据，内层优先
func mergeMeta(outer, inner map[string]json.RawMessage) map[string]json.RawMessage {
	merged := make(map[string]json.RawMessage, len(outer)+len(inner))
	for k, v := range outer {
		merged[k] = v
	}
	for k, v := range inner {
		merged[k] = v
	}
	return merged
}

func lookupInt(m map[string]json.RawMessage, keys ...string) (int64, bool) {
	for _, k := range keys {
		raw, ok := m[k]
		if !ok {
			continue
		}
		var v int64
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, true
		}
	}
	return 0, false
}

func lookupBool(m map[string]json.RawMessage, keys ...string) (bool, bool) {
	for _, k := range keys {
		raw, ok := m[k]
		if !ok {
			continue
		}
		var v bool
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, true
		}
	}
	return false, false
}
