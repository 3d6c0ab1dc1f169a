// Package admin 管理端 CRUD 界面：筛选状态、分页、乐观更新与必填校验
package admin

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dumeirei/agency-portal/internal/common/errors"
	"github.com/dumeirei/agency-portal/internal/common/utils"
	"github.com/dumeirei/agency-portal/internal/service/remote"
	"github.com/dumeirei/agency-portal/pkg/apiclient"
)

// DefaultPerPage 默认每页条数
const DefaultPerPage = 10

// Store 实体的上游存储，*apiclient.Resource[T] 满足该接口
type Store[T any] interface {
	List(ctx context.Context, query url.Values) (*apiclient.Page[T], error)
	Get(ctx context.Context, id int64) (*T, error)
	Create(ctx context.Context, fields interface{}) (*T, error)
	Update(ctx context.Context, id int64, fields interface{}) (*T, error)
	Delete(ctx context.Context, id int64) error
}

// Fields 表单字段
type Fields map[string]interface{}

// Filters 列表筛选条件
type Filters struct {
	Search   string `json:"search" form:"search"`
	Category string `json:"category" form:"category"`
	Status   string `json:"status" form:"status"`
	Role     string `json:"role" form:"role"`
	Priority string `json:"priority" form:"priority"`
	Sort     string `json:"sort" form:"sort"`
	Page     int    `json:"page" form:"page"`
}

// sameCriteria 除页码外的条件是否一致
func (f Filters) sameCriteria(o Filters) bool {
	f.Page, o.Page = 0, 0
	return f == o
}

// Values 生成上游查询参数，空条件不出现
func (f Filters) Values(perPage int) url.Values {
	p := utils.NewPagination(f.Page, perPage)
	v := url.Values{}
	set := func(k, val string) {
		if val = strings.TrimSpace(val); val != "" {
			v.Set(k, val)
		}
	}
	set("search", f.Search)
	set("category", f.Category)
	set("status", f.Status)
	set("role", f.Role)
	set("priority", f.Priority)
	set("sort", f.Sort)
	v.Set("limit", strconv.Itoa(p.GetLimit()))
	v.Set("offset", strconv.Itoa(p.GetOffset()))
	return v
}

// Row 列表行；Pending 表示本地已修改、等待下一次拉取确认
type Row[T any] struct {
	Record  T    `json:"record"`
	Pending bool `json:"pending"`
}

// View 界面当前视图
type View[T any] struct {
	Filters    Filters              `json:"filters"`
	State      remote.State[Row[T]] `json:"state"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	PerPage    int                  `json:"per_page"`
	TotalPages int                  `json:"total_pages"`
	Offset     int                  `json:"offset"`
}

// Spec 实体界面的配置
type Spec[T any] struct {
	Name     string
	ID       func(T) int64
	NotFound *errors.AppError
	PerPage  int

	// 必填字段，仅检查是否存在且非空
	Required []string
	// 逗号分隔的列表字段
	ListFields []string
	// 需要清洗的富文本字段
	HTMLFields []string
	// 枚举字段的取值范围
	Enums map[string][]string

	ReadOnly  bool
	NoCreate  bool
	NoDelete  bool
	Sanitizer func(string) (string, error)
}

// Screen 单个实体的管理界面状态
type Screen[T any] struct {
	spec  Spec[T]
	store Store[T]

	mu      sync.Mutex
	filters Filters
	rows    []Row[T]
	total   int64
	phase   remote.Phase
	reason  string
	seq     remote.Sequence
}

// NewScreen 创建界面
func NewScreen[T any](store Store[T], spec Spec[T]) *Screen[T] {
	if spec.PerPage <= 0 {
		spec.PerPage = DefaultPerPage
	}
	// 与查询参数使用同一套分页上限
	spec.PerPage = utils.NewPagination(1, spec.PerPage).PageSize
	if spec.NotFound == nil {
		spec.NotFound = errors.ErrNotFound
	}
	return &Screen[T]{
		spec:    spec,
		store:   store,
		filters: Filters{Page: 1},
		phase:   remote.PhaseIdle,
	}
}

// Name 实体名
func (s *Screen[T]) Name() string {
	return s.spec.Name
}

// Query 应用筛选条件并拉取一次列表；任一条件变化时页码回到 1
func (s *Screen[T]) Query(ctx context.Context, want Filters) (View[T], error) {
	s.mu.Lock()
	if want.Page < 1 || !want.sameCriteria(s.filters) {
		want.Page = 1
	}
	s.filters = want
	s.mu.Unlock()

	return s.fetch(ctx)
}

// Goto 切换页码
func (s *Screen[T]) Goto(ctx context.Context, page int) (View[T], error) {
	s.mu.Lock()
	f := s.filters
	s.mu.Unlock()

	f.Page = page
	return s.Query(ctx, f)
}

// Refresh 按当前条件重新拉取
func (s *Screen[T]) Refresh(ctx context.Context) (View[T], error) {
	return s.fetch(ctx)
}

// View 当前视图
func (s *Screen[T]) View() View[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Screen[T]) fetch(ctx context.Context) (View[T], error) {
	s.mu.Lock()
	filters := s.filters
	s.phase = remote.PhaseLoading
	s.reason = ""
	seq := s.seq.Next()
	s.mu.Unlock()

	page, err := s.store.List(ctx, filters.Values(s.spec.PerPage))

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seq.IsLatest(seq) {
		return s.viewLocked(), nil
	}
	if err != nil {
		appErr := remote.Error(err, s.spec.NotFound)
		s.rows = nil
		s.total = 0
		s.phase = remote.PhaseFailed
		s.reason = errors.GetAppError(appErr).Message
		return s.viewLocked(), appErr
	}

	// 拉取结果覆盖本地修改，清除 pending 标记
	s.rows = make([]Row[T], 0, len(page.Items))
	for _, rec := range page.Items {
		s.rows = append(s.rows, Row[T]{Record: rec})
	}
	s.total = page.Total
	s.phase = remote.PhaseLoaded
	return s.viewLocked(), nil
}

// Get 查询详情
func (s *Screen[T]) Get(ctx context.Context, id int64) (*T, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, remote.Error(err, s.spec.NotFound)
	}
	return rec, nil
}

// Create 校验后创建，新记录插入当前页头部并标记 pending
func (s *Screen[T]) Create(ctx context.Context, fields Fields) (*T, error) {
	if s.spec.ReadOnly || s.spec.NoCreate {
		return nil, errors.ErrPermissionDenied.WithMessage(s.spec.Name + " 不支持创建")
	}
	payload, err := s.prepare(fields, true)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.Create(ctx, payload)
	if err != nil {
		return nil, remote.Error(err, s.spec.NotFound)
	}

	s.mu.Lock()
	if s.phase == remote.PhaseLoaded {
		s.rows = append([]Row[T]{{Record: *rec, Pending: true}}, s.rows...)
		s.total++
	}
	s.mu.Unlock()
	return rec, nil
}

// Update 部分更新，只校验提交的字段
func (s *Screen[T]) Update(ctx context.Context, id int64, fields Fields) (*T, error) {
	if s.spec.ReadOnly {
		return nil, errors.ErrPermissionDenied.WithMessage(s.spec.Name + " 为只读")
	}
	payload, err := s.prepare(fields, false)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.Update(ctx, id, payload)
	if err != nil {
		return nil, remote.Error(err, s.spec.NotFound)
	}
	s.Patch(id, *rec)
	return rec, nil
}

// Delete 删除并从当前页移除
func (s *Screen[T]) Delete(ctx context.Context, id int64) error {
	if s.spec.ReadOnly || s.spec.NoDelete {
		return errors.ErrPermissionDenied.WithMessage(s.spec.Name + " 不支持删除")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return remote.Error(err, s.spec.NotFound)
	}

	s.mu.Lock()
	for i, row := range s.rows {
		if s.spec.ID(row.Record) == id {
			s.rows = append(s.rows[:i:i], s.rows[i+1:]...)
			if s.total > 0 {
				s.total--
			}
			break
		}
	}
	s.mu.Unlock()
	return nil
}

// Patch 用新记录替换当前页中的同 ID 行并标记 pending
func (s *Screen[T]) Patch(id int64, rec T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.spec.ID(s.rows[i].Record) == id {
			s.rows[i] = Row[T]{Record: rec, Pending: true}
			return
		}
	}
}

// prepare 必填校验、列表字段拆分、枚举校验与富文本清洗；失败时不发送任何请求
func (s *Screen[T]) prepare(fields Fields, creating bool) (Fields, error) {
	if len(fields) == 0 && !creating {
		return nil, errors.ErrInvalidParams.WithMessage("没有需要更新的字段")
	}

	var missing []string
	for _, name := range s.spec.Required {
		v, ok := fields[name]
		if (creating && !ok) || (ok && !present(v)) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.ErrValidation.WithMessage("缺少必填字段: " + strings.Join(missing, ", "))
	}

	out := make(Fields, len(fields))
	for k, v := range fields {
		out[k] = v
	}

	for _, name := range s.spec.ListFields {
		if v, ok := out[name]; ok {
			out[name] = splitListValue(v)
		}
	}

	enumNames := make([]string, 0, len(s.spec.Enums))
	for name := range s.spec.Enums {
		enumNames = append(enumNames, name)
	}
	sort.Strings(enumNames)
	for _, name := range enumNames {
		v, ok := out[name]
		if !ok {
			continue
		}
		str, _ := v.(string)
		if !utils.Contains(s.spec.Enums[name], str) {
			return nil, errors.ErrInvalidStatus.WithMessage("无效的 " + name + ": " + str)
		}
	}

	if s.spec.Sanitizer != nil {
		for _, name := range s.spec.HTMLFields {
			str, ok := out[name].(string)
			if !ok {
				continue
			}
			clean, err := s.spec.Sanitizer(str)
			if err != nil {
				return nil, errors.ErrContentUnsafe.WithError(err)
			}
			out[name] = clean
		}
	}
	return out, nil
}

func (s *Screen[T]) viewLocked() View[T] {
	p := utils.NewPagination(s.filters.Page, s.spec.PerPage)
	p.Total = s.total
	v := View[T]{
		Filters:    s.filters,
		Total:      s.total,
		Page:       p.Page,
		PerPage:    p.PageSize,
		TotalPages: p.GetTotalPages(),
		Offset:     p.GetOffset(),
	}
	switch s.phase {
	case remote.PhaseLoaded:
		v.State = remote.Loaded(append([]Row[T](nil), s.rows...))
	case remote.PhaseFailed:
		v.State = remote.State[Row[T]]{Phase: remote.PhaseFailed, Reason: s.reason}
	case remote.PhaseLoading:
		v.State = remote.Loading[Row[T]]()
	default:
		v.State = remote.Idle[Row[T]]()
	}
	return v
}

// present 值是否存在且非空
func present(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(x) != ""
	case []interface{}:
		return len(x) > 0
	case []string:
		return len(x) > 0
	}
	return true
}

// splitListValue 将字符串或数组规范为去空白、去空项的字符串列表
func splitListValue(v interface{}) []string {
	switch x := v.(type) {
	case string:
		return utils.SplitList(x)
	case []string:
		return utils.SplitList(strings.Join(x, ","))
	case []interface{}:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if str, ok := item.(string); ok {
				if str = strings.TrimSpace(str); str != "" {
					out = append(out, str)
				}
			}
		}
		return out
	}
	return []string{}
}
