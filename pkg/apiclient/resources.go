package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Resource 通用 REST 资源
type Resource[T any] struct {
	c    *Client
	name string
	path string
}

func newResource[T any](c *Client, name, path string) *Resource[T] {
	return &Resource[T]{c: c, name: name, path: path}
}

// Name 资源名，用于日志与指标
func (r *Resource[T]) Name() string {
	return r.name
}

// List 查询列表
func (r *Resource[T]) List(ctx context.Context, query url.Values) (*Page[T], error) {
	body, err := r.c.do(ctx, call{method: http.MethodGet, path: r.path, query: query, resource: r.name})
	if err != nil {
		return nil, err
	}
	return decodePage[T](r.name, body)
}

// Get 查询单个
func (r *Resource[T]) Get(ctx context.Context, id int64) (*T, error) {
	out := new(T)
	err := r.c.getJSON(ctx, call{method: http.MethodGet, path: r.item(id), resource: r.name}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Create 创建
func (r *Resource[T]) Create(ctx context.Context, fields interface{}) (*T, error) {
	out := new(T)
	err := r.c.getJSON(ctx, call{method: http.MethodPost, path: r.path, body: fields, resource: r.name}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update 部分更新
func (r *Resource[T]) Update(ctx context.Context, id int64, fields interface{}) (*T, error) {
	out := new(T)
	err := r.c.getJSON(ctx, call{method: http.MethodPut, path: r.item(id), body: fields, resource: r.name}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete 删除
func (r *Resource[T]) Delete(ctx context.Context, id int64) error {
	_, err := r.c.do(ctx, call{method: http.MethodDelete, path: r.item(id), resource: r.name})
	return err
}

func (r *Resource[T]) item(id int64) string {
	return r.path + "/" + strconv.FormatInt(id, 10)
}

// SubmitContact 提交公开联系表单
func (c *Client) SubmitContact(ctx context.Context, req ContactRequest) error {
	_, err := c.do(ctx, call{method: http.MethodPost, path: "/contact", body: req, resource: "contact", anonymous: true})
	return err
}

// SubscribeNewsletter 订阅通讯
func (c *Client) SubscribeNewsletter(ctx context.Context, email string) error {
	_, err := c.do(ctx, call{
		method:    http.MethodPost,
		path:      "/newsletter",
		body:      map[string]string{"email": email},
		resource:  "newsletter",
		anonymous: true,
	})
	return err
}

// AuthAPI /auth 资源组
type AuthAPI struct {
	c *Client
}

// Login 登录并保存令牌
func (a *AuthAPI) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	return a.authenticate(ctx, "/auth/login", req)
}

// Register 注册并保存令牌
func (a *AuthAPI) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	return a.authenticate(ctx, "/auth/register", req)
}

func (a *AuthAPI) authenticate(ctx context.Context, path string, body interface{}) (*Session, error) {
	var payload tokenPayload
	err := a.c.getJSON(ctx, call{method: http.MethodPost, path: path, body: body, resource: "auth", anonymous: true}, &payload)
	if err != nil {
		return nil, err
	}

	s := &Session{Tokens: payload.tokens()}
	if s.Tokens.Access == "" {
		return nil, &APIError{Resource: "auth", Status: http.StatusOK, Message: "login response has no token"}
	}
	if payload.User != nil {
		s.User = *payload.User
	}
	if err := a.c.tokens.Save(ctx, s.Tokens); err != nil {
		return nil, err
	}
	return s, nil
}

// Me 当前用户
func (a *AuthAPI) Me(ctx context.Context) (*User, error) {
	var payload struct {
		User
		Nested *User `json:"user"`
	}
	if err := a.c.getJSON(ctx, call{method: http.MethodGet, path: "/auth/me", resource: "auth"}, &payload); err != nil {
		return nil, err
	}
	if payload.Nested != nil {
		return payload.Nested, nil
	}
	return &payload.User, nil
}

// Users 用户列表
func (a *AuthAPI) Users(ctx context.Context, query url.Values) (*Page[User], error) {
	body, err := a.c.do(ctx, call{method: http.MethodGet, path: "/auth/users", query: query, resource: "auth"})
	if err != nil {
		return nil, err
	}
	return decodePage[User]("auth", body)
}

// Stats 用户统计
func (a *AuthAPI) Stats(ctx context.Context) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if err := a.c.getJSON(ctx, call{method: http.MethodGet, path: "/auth/stats", resource: "auth"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AdminAPI /admin 资源组
type AdminAPI struct {
	c *Client

	Articles     *Resource[Article]
	Contacts     *Resource[Contact]
	Quotes       *Resource[Quote]
	Tickets      *Resource[Ticket]
	Users        *Resource[User]
	Clients      *Resource[User]
	Services     *Resource[Service]
	Testimonials *Resource[Testimonial]
}

func newAdminAPI(c *Client) *AdminAPI {
	return &AdminAPI{
		c:            c,
		Articles:     newResource[Article](c, "admin.articles", "/admin/articles"),
		Contacts:     newResource[Contact](c, "admin.contacts", "/admin/contacts"),
		Quotes:       newResource[Quote](c, "admin.quotes", "/admin/quotes"),
		Tickets:      newResource[Ticket](c, "admin.tickets", "/admin/support-tickets"),
		Users:        newResource[User](c, "admin.users", "/admin/users"),
		Clients:      newResource[User](c, "admin.clients", "/admin/clients"),
		Services:     newResource[Service](c, "admin.services", "/admin/services"),
		Testimonials: newResource[Testimonial](c, "admin.testimonials", "/admin/testimonials"),
	}
}

// Dashboard 仪表盘统计
func (a *AdminAPI) Dashboard(ctx context.Context) (*DashboardStats, error) {
	out := &DashboardStats{}
	if err := a.c.getJSON(ctx, call{method: http.MethodGet, path: "/admin/dashboard", resource: "admin.dashboard"}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddPoints 为用户增加积分
func (a *AdminAPI) AddPoints(ctx context.Context, userID int64, req PointsRequest) (*User, error) {
	out := &User{}
	path := "/admin/users/" + strconv.FormatInt(userID, 10) + "/points"
	if err := a.c.getJSON(ctx, call{method: http.MethodPost, path: path, body: req, resource: "admin.users"}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddTicketMessage 追加工单消息，返回更新后的工单
func (a *AdminAPI) AddTicketMessage(ctx context.Context, ticketID int64, message string) (*Ticket, error) {
	out := &Ticket{}
	path := "/admin/support-tickets/" + strconv.FormatInt(ticketID, 10) + "/messages"
	body := map[string]interface{}{"message": message, "is_admin": true}
	if err := a.c.getJSON(ctx, call{method: http.MethodPost, path: path, body: body, resource: "admin.tickets"}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// NotificationQuery 通知列表查询
type NotificationQuery struct {
	Page   int
	Limit  int
	Status string // unread / read，空为全部
	Type   NotificationType
}

// Values 转为查询参数
func (q NotificationQuery) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.Type != "" {
		v.Set("type", string(q.Type))
	}
	return v
}

// NotificationsAPI /notifications 资源组
type NotificationsAPI struct {
	c *Client
}

const notificationsResource = "notifications"

// List 分页查询
func (n *NotificationsAPI) List(ctx context.Context, q NotificationQuery) (*Page[Notification], error) {
	body, err := n.c.do(ctx, call{method: http.MethodGet, path: "/notifications", query: q.Values(), resource: notificationsResource})
	if err != nil {
		return nil, err
	}
	return decodePage[Notification](notificationsResource, body)
}

// UnreadCount 未读数量
func (n *NotificationsAPI) UnreadCount(ctx context.Context) (int, error) {
	body, err := n.c.do(ctx, call{method: http.MethodGet, path: "/notifications/unread-count", resource: notificationsResource})
	if err != nil {
		return 0, err
	}

	var count int
	if err := decodeOne(notificationsResource, body, &count); err == nil {
		return count, nil
	}
	var payload struct {
		Count       *int `json:"count"`
		UnreadCount *int `json:"unreadCount"`
		Unread      *int `json:"unread_count"`
	}
	if err := decodeOne(notificationsResource, body, &payload); err != nil {
		return 0, err
	}
	switch {
	case payload.Count != nil:
		return *payload.Count, nil
	case payload.UnreadCount != nil:
		return *payload.UnreadCount, nil
	case payload.Unread != nil:
		return *payload.Unread, nil
	}
	return 0, ErrBadEnvelope
}

// MarkRead 标记已读
func (n *NotificationsAPI) MarkRead(ctx context.Context, id int64) error {
	path := "/notifications/" + strconv.FormatInt(id, 10) + "/read"
	_, err := n.c.do(ctx, call{method: http.MethodPut, path: path, resource: notificationsResource})
	return err
}

// MarkAllRead 全部标记已读
func (n *NotificationsAPI) MarkAllRead(ctx context.Context) error {
	_, err := n.c.do(ctx, call{method: http.MethodPut, path: "/notifications/read-all", resource: notificationsResource})
	return err
}

// Delete 删除通知
func (n *NotificationsAPI) Delete(ctx context.Context, id int64) error {
	path := "/notifications/" + strconv.FormatInt(id, 10)
	_, err := n.c.do(ctx, call{method: http.MethodDelete, path: path, resource: notificationsResource})
	return err
}

// DeleteOld 删除 N 天前的通知
func (n *NotificationsAPI) DeleteOld(ctx context.Context, days int) error {
	q := url.Values{"days": []string{strconv.Itoa(days)}}
	_, err := n.c.do(ctx, call{method: http.MethodDelete, path: "/notifications/old", query: q, resource: notificationsResource})
	return err
}

// Create 创建通知
func (n *NotificationsAPI) Create(ctx context.Context, req NewNotification) (*Notification, error) {
	out := &Notification{}
	if err := n.c.getJSON(ctx, call{method: http.MethodPost, path: "/notifications", body: req, resource: notificationsResource}, out); err != nil {
		return nil, err
	}
	return out, nil
}
