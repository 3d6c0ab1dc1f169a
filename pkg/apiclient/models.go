package apiclient

import "time"

// Article 新闻文章
type Article struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Excerpt   string    `json:"excerpt"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"image_url"`
	Author    string    `json:"author"`
	ReadTime  string    `json:"read_time"`
	Tags      []string  `json:"tags"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"created_at"`
}

// ContactStatus 联系消息状态
type ContactStatus string

const (
	ContactNew     ContactStatus = "new"
	ContactRead    ContactStatus = "read"
	ContactReplied ContactStatus = "replied"
)

// Contact 联系表单消息
type Contact struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Subject   string        `json:"subject"`
	Message   string        `json:"message"`
	Service   string        `json:"service"`
	Status    ContactStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// ContactRequest 公开联系表单
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
	Service string `json:"service,omitempty"`
}

// QuoteStatus 报价状态，任意状态之间可互相转换
type QuoteStatus string

const (
	QuotePending   QuoteStatus = "pending"
	QuoteInReview  QuoteStatus = "in_review"
	QuoteApproved  QuoteStatus = "approved"
	QuoteRejected  QuoteStatus = "rejected"
	QuoteCompleted QuoteStatus = "completed"
)

// QuoteStatuses 报价状态全集
var QuoteStatuses = []QuoteStatus{QuotePending, QuoteInReview, QuoteApproved, QuoteRejected, QuoteCompleted}

// Valid 是否为合法状态
func (s QuoteStatus) Valid() bool {
	for _, v := range QuoteStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Priority 优先级
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Quote 报价请求
type Quote struct {
	ID                int64       `json:"id"`
	Title             string      `json:"title"`
	Description       string      `json:"description"`
	ClientName        string      `json:"client_name"`
	ServiceCategory   string      `json:"service_category"`
	BudgetRange       string      `json:"budget_range"`
	Deadline          string      `json:"deadline"`
	Priority          Priority    `json:"priority"`
	Status            QuoteStatus `json:"status"`
	EstimatedPrice    *float64    `json:"estimated_price"`
	EstimatedDuration string      `json:"estimated_duration"`
	AdminNotes        string      `json:"admin_notes"`
	CreatedAt         time.Time   `json:"created_at"`
}

// TicketStatus 工单状态
type TicketStatus string

const (
	TicketOpen            TicketStatus = "open"
	TicketInProgress      TicketStatus = "in_progress"
	TicketWaitingResponse TicketStatus = "waiting_response"
	TicketResolved        TicketStatus = "resolved"
	TicketClosed          TicketStatus = "closed"
)

// TicketStatuses 工单状态全集
var TicketStatuses = []TicketStatus{TicketOpen, TicketInProgress, TicketWaitingResponse, TicketResolved, TicketClosed}

// Valid 是否为合法状态
func (s TicketStatus) Valid() bool {
	for _, v := range TicketStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// TicketMessage 工单会话消息，只追加
type TicketMessage struct {
	ID         int64     `json:"id"`
	IsAdmin    bool      `json:"is_admin"`
	AuthorName string    `json:"author_name"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// Ticket 支持工单
type Ticket struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Status      TicketStatus    `json:"status"`
	Priority    Priority        `json:"priority"`
	ClientName  string          `json:"client_name"`
	AssignedTo  string          `json:"assigned_to"`
	Messages    []TicketMessage `json:"messages"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Role 用户角色
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleClient    Role = "client"
	RoleProspect  Role = "prospect"
)

// Valid 是否为合法角色
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleClient, RoleProspect:
		return true
	}
	return false
}

// LoyaltyTier 忠诚度等级
type LoyaltyTier string

const (
	TierBronze   LoyaltyTier = "bronze"
	TierSilver   LoyaltyTier = "silver"
	TierGold     LoyaltyTier = "gold"
	TierPlatinum LoyaltyTier = "platinum"
)

// User 用户（客户与后台账号共用）
type User struct {
	ID              int64       `json:"id"`
	Username        string      `json:"username"`
	FullName        string      `json:"full_name"`
	Email           string      `json:"email"`
	Phone           string      `json:"phone"`
	Company         string      `json:"company,omitempty"`
	Role            Role        `json:"role"`
	IsActive        bool        `json:"is_active"`
	LoyaltyTier     LoyaltyTier `json:"loyalty_tier"`
	TotalPoints     int         `json:"total_points"`
	AvailablePoints int         `json:"available_points"`
	QuotesCount     int         `json:"quotes_count"`
	TicketsCount    int         `json:"tickets_count"`
	CreatedAt       time.Time   `json:"created_at"`
	LastLogin       *time.Time  `json:"last_login"`
}

// PointsRequest 加积分请求
type PointsRequest struct {
	Points      int    `json:"points"`
	Description string `json:"description"`
}

// NotificationType 通知类型
type NotificationType string

const (
	NotifyNewUser       NotificationType = "NEW_USER"
	NotifyNewContact    NotificationType = "NEW_CONTACT"
	NotifyNewQuote      NotificationType = "NEW_QUOTE"
	NotifyNewTicket     NotificationType = "NEW_TICKET"
	NotifySystemUpdate  NotificationType = "SYSTEM_UPDATE"
	NotifySecurityAlert NotificationType = "SECURITY_ALERT"
	NotifyMaintenance   NotificationType = "MAINTENANCE"
)

// NotificationTypes 通知类型全集
var NotificationTypes = []NotificationType{
	NotifyNewUser, NotifyNewContact, NotifyNewQuote, NotifyNewTicket,
	NotifySystemUpdate, NotifySecurityAlert, NotifyMaintenance,
}

// Valid 是否为合法类型
func (t NotificationType) Valid() bool {
	for _, v := range NotificationTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Notification 后台通知
type Notification struct {
	ID        int64            `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Link      string           `json:"link,omitempty"`
	Read      bool             `json:"read"`
	ReadAt    *time.Time       `json:"read_at"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewNotification 创建通知请求
type NewNotification struct {
	Type    NotificationType `json:"type"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	Link    string           `json:"link,omitempty"`
}

// Service 服务项目
type Service struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Features    []string `json:"features"`
	Order       int      `json:"order"`
	IsActive    bool     `json:"is_active"`
}

// Testimonial 客户评价
type Testimonial struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Company   string `json:"company"`
	Position  string `json:"position"`
	Content   string `json:"content"`
	Rating    int    `json:"rating"`
	AvatarURL string `json:"avatar_url"`
	IsActive  bool   `json:"is_active"`
}

// Competence 能力项
type Competence struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Level       int    `json:"level"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// FAQItem 常见问题
type FAQItem struct {
	ID       int64  `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
	Order    int    `json:"order"`
}

// DashboardStats 后台仪表盘统计
type DashboardStats struct {
	TotalUsers          int `json:"total_users"`
	TotalClients        int `json:"total_clients"`
	TotalArticles       int `json:"total_articles"`
	TotalQuotes         int `json:"total_quotes"`
	PendingQuotes       int `json:"pending_quotes"`
	OpenTickets         int `json:"open_tickets"`
	NewContacts         int `json:"new_contacts"`
	UnreadNotifications int `json:"unread_notifications"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone,omitempty"`
	Company  string `json:"company,omitempty"`
}

// Session 登录结果
type Session struct {
	Tokens Tokens
	User   User
}
