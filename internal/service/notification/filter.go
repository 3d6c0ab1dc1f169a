package notification

import (
	"strings"

	"github.com/dumeirei/agency-portal/internal/common/errors"
	"github.com/dumeirei/agency-portal/pkg/apiclient"
)

// FilterKind 筛选方式
type FilterKind string

const (
	FilterAll    FilterKind = "all"
	FilterUnread FilterKind = "unread"
	FilterRead   FilterKind = "read"
	FilterType   FilterKind = "type"
)

// Filter 通知列表筛选条件
type Filter struct {
	Kind FilterKind
	Type apiclient.NotificationType
}

// AllFilter 不筛选
var AllFilter = Filter{Kind: FilterAll}

// ParseFilter 解析筛选条件：all / unread / read / type:NEW_QUOTE / NEW_QUOTE
func ParseFilter(raw string) (Filter, error) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "", string(FilterAll):
		return AllFilter, nil
	case string(FilterUnread):
		return Filter{Kind: FilterUnread}, nil
	case string(FilterRead):
		return Filter{Kind: FilterRead}, nil
	}

	name := strings.TrimPrefix(raw, string(FilterType)+":")
	t := apiclient.NotificationType(strings.ToUpper(name))
	if !t.Valid() {
		return Filter{}, errors.ErrNotificationFilter
	}
	return Filter{Kind: FilterType, Type: t}, nil
}

// String 筛选条件的文本形式，可被 ParseFilter 解析
func (f Filter) String() string {
	if f.Kind == FilterType {
		return string(FilterType) + ":" + string(f.Type)
	}
	if f.Kind == "" {
		return string(FilterAll)
	}
	return string(f.Kind)
}

// Query 生成上游分页查询
func (f Filter) Query(page, limit int) apiclient.NotificationQuery {
	q := apiclient.NotificationQuery{Page: page, Limit: limit}
	switch f.Kind {
	case FilterUnread, FilterRead:
		q.Status = string(f.Kind)
	case FilterType:
		q.Type = f.Type
	}
	return q
}

// Match 通知是否满足筛选条件
func (f Filter) Match(n apiclient.Notification) bool {
	switch f.Kind {
	case FilterUnread:
		return !n.Read
	case FilterRead:
		return n.Read
	case FilterType:
		return n.Type == f.Type
	}
	return true
}
