package admin

import (
	"context"
	"strings"

	"github.com/dumeirei/agency-portal/internal/common/errors"
	"github.com/dumeirei/agency-portal/internal/service/remote"
	"github.com/dumeirei/agency-portal/internal/service/richtext"
	"github.com/dumeirei/agency-portal/pkg/apiclient"
)

// Options 界面参数
type Options struct {
	PerPage int
}

// Screens 单个管理会话的全部 CRUD 界面
type Screens struct {
	api *apiclient.AdminAPI

	Articles     *Screen[apiclient.Article]
	Contacts     *Screen[apiclient.Contact]
	Quotes       *Screen[apiclient.Quote]
	Tickets      *Screen[apiclient.Ticket]
	Users        *Screen[apiclient.User]
	Clients      *Screen[apiclient.User]
	Services     *Screen[apiclient.Service]
	Testimonials *Screen[apiclient.Testimonial]
}

func quoteStatuses() []string {
	out := make([]string, 0, len(apiclient.QuoteStatuses))
	for _, s := range apiclient.QuoteStatuses {
		out = append(out, string(s))
	}
	return out
}

func ticketStatuses() []string {
	out := make([]string, 0, len(apiclient.TicketStatuses))
	for _, s := range apiclient.TicketStatuses {
		out = append(out, string(s))
	}
	return out
}

var (
	priorities = []string{
		string(apiclient.PriorityLow), string(apiclient.PriorityMedium),
		string(apiclient.PriorityHigh), string(apiclient.PriorityUrgent),
	}
	roles = []string{
		string(apiclient.RoleAdmin), string(apiclient.RoleModerator),
		string(apiclient.RoleClient), string(apiclient.RoleProspect),
	}
	tiers = []string{
		string(apiclient.TierBronze), string(apiclient.TierSilver),
		string(apiclient.TierGold), string(apiclient.TierPlatinum),
	}
)

// NewScreens 基于上游 /admin 资源组创建界面
func NewScreens(api *apiclient.AdminAPI, opts Options) *Screens {
	per := opts.PerPage
	return &Screens{
		api: api,
		Articles: NewScreen[apiclient.Article](api.Articles, Spec[apiclient.Article]{
			Name:       "articles",
			ID:         func(a apiclient.Article) int64 { return a.ID },
			NotFound:   errors.ErrArticleNotFound,
			PerPage:    per,
			Required:   []string{"title", "category", "excerpt", "content"},
			ListFields: []string{"tags"},
			HTMLFields: []string{"content"},
			Sanitizer:  richtext.Sanitize,
		}),
		Contacts: NewScreen[apiclient.Contact](api.Contacts, Spec[apiclient.Contact]{
			Name:     "contacts",
			ID:       func(c apiclient.Contact) int64 { return c.ID },
			NotFound: errors.ErrContactNotFound,
			PerPage:  per,
			ReadOnly: true,
		}),
		Quotes: NewScreen[apiclient.Quote](api.Quotes, Spec[apiclient.Quote]{
			Name:     "quotes",
			ID:       func(q apiclient.Quote) int64 { return q.ID },
			NotFound: errors.ErrQuoteNotFound,
			PerPage:  per,
			NoCreate: true,
			Enums:    map[string][]string{"status": quoteStatuses(), "priority": priorities},
		}),
		Tickets: NewScreen[apiclient.Ticket](api.Tickets, Spec[apiclient.Ticket]{
			Name:     "tickets",
			ID:       func(t apiclient.Ticket) int64 { return t.ID },
			NotFound: errors.ErrTicketNotFound,
			PerPage:  per,
			NoCreate: true,
			NoDelete: true,
			Enums:    map[string][]string{"status": ticketStatuses(), "priority": priorities},
		}),
		Users: NewScreen[apiclient.User](api.Users, Spec[apiclient.User]{
			Name:     "users",
			ID:       func(u apiclient.User) int64 { return u.ID },
			NotFound: errors.ErrUserNotFound,
			PerPage:  per,
			Required: []string{"username", "email", "full_name", "role"},
			Enums:    map[string][]string{"role": roles, "loyalty_tier": tiers},
		}),
		Clients: NewScreen[apiclient.User](api.Clients, Spec[apiclient.User]{
			Name:     "clients",
			ID:       func(u apiclient.User) int64 { return u.ID },
			NotFound: errors.ErrUserNotFound,
			PerPage:  per,
			ReadOnly: true,
		}),
		Services: NewScreen[apiclient.Service](api.Services, Spec[apiclient.Service]{
			Name:       "services",
			ID:         func(s apiclient.Service) int64 { return s.ID },
			PerPage:    per,
			Required:   []string{"title", "description"},
			ListFields: []string{"features"},
		}),
		Testimonials: NewScreen[apiclient.Testimonial](api.Testimonials, Spec[apiclient.Testimonial]{
			Name:     "testimonials",
			ID:       func(t apiclient.Testimonial) int64 { return t.ID },
			PerPage:  per,
			Required: []string{"name", "content"},
		}),
	}
}

// Dashboard 仪表盘统计
func (s *Screens) Dashboard(ctx context.Context) (*apiclient.DashboardStats, error) {
	stats, err := s.api.Dashboard(ctx)
	if err != nil {
		return nil, remote.Error(err, nil)
	}
	return stats, nil
}

// AddPoints 为用户增加积分，积分只增不减且必须附带说明
func (s *Screens) AddPoints(ctx context.Context, userID int64, req apiclient.PointsRequest) (*apiclient.User, error) {
	if req.Points <= 0 {
		return nil, errors.ErrInvalidPoints
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, errors.ErrValidation.WithMessage("缺少必填字段: description")
	}

	user, err := s.api.AddPoints(ctx, userID, req)
	if err != nil {
		return nil, remote.Error(err, errors.ErrUserNotFound)
	}
	s.Users.Patch(userID, *user)
	s.Clients.Patch(userID, *user)
	return user, nil
}

// AddTicketMessage 以管理员身份追加工单消息
func (s *Screens) AddTicketMessage(ctx context.Context, ticketID int64, message string) (*apiclient.Ticket, error) {
	if strings.TrimSpace(message) == "" {
		return nil, errors.ErrValidation.WithMessage("缺少必填字段: message")
	}

	ticket, err := s.api.AddTicketMessage(ctx, ticketID, message)
	if err != nil {
		return nil, remote.Error(err, errors.ErrTicketNotFound)
	}
	s.Tickets.Patch(ticketID, *ticket)
	return ticket, nil
}
