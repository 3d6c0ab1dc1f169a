// Package media 媒体库：检索/排序管线、上传进度与文件管理
package media

import (
	"sort"
	"strings"

	"github.com/dumeirei/agency-portal/internal/common/utils"
	"github.com/dumeirei/agency-portal/internal/models"
)

// PageSize 媒体库每页条数
const PageSize = 24

// 类型筛选
const (
	TypeAll      = "all"
	TypeImage    = "image"
	TypeVideo    = "video"
	TypeDocument = "document"
)

// 排序字段
const (
	SortName = "name"
	SortSize = "size"
	SortDate = "date"
	SortType = "type"
)

// 排序方向
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Query 检索条件
type Query struct {
	Search  string `form:"search" json:"search"`
	Type    string `form:"type" json:"type"`
	SortKey string `form:"sort" json:"sort"`
	Order   string `form:"order" json:"order"`
	Folder  string `form:"folder" json:"folder"`
	Page    int    `form:"page" json:"page"`
}

// Normalize 填充默认值：全部类型、按日期倒序、第 1 页
func (q Query) Normalize() Query {
	q.Search = strings.TrimSpace(q.Search)
	q.Type = strings.ToLower(strings.TrimSpace(q.Type))
	if !utils.Contains([]string{TypeImage, TypeVideo, TypeDocument}, q.Type) {
		q.Type = TypeAll
	}
	q.SortKey = strings.ToLower(strings.TrimSpace(q.SortKey))
	if !utils.Contains([]string{SortName, SortSize, SortDate, SortType}, q.SortKey) {
		q.SortKey = SortDate
	}
	q.Order = strings.ToLower(strings.TrimSpace(q.Order))
	if q.Order != OrderAsc && q.Order != OrderDesc {
		if q.SortKey == SortDate {
			q.Order = OrderDesc
		} else {
			q.Order = OrderAsc
		}
	}
	q.Folder = strings.TrimSpace(q.Folder)
	if q.Page < 1 {
		q.Page = 1
	}
	return q
}

// Result 检索结果
type Result struct {
	Query      Query              `json:"query"`
	Items      []models.MediaFile `json:"items"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
	HasMore    bool               `json:"has_more"`
}

// Apply 对文件列表执行检索、筛选、排序与分页。
// 输入切片不会被修改，相同输入总是得到相同输出。
func Apply(files []models.MediaFile, q Query) Result {
	q = q.Normalize()
	search := strings.ToLower(q.Search)

	matched := make([]models.MediaFile, 0, len(files))
	for _, f := range files {
		if q.Folder != "" && f.Folder != q.Folder {
			continue
		}
		if q.Type != TypeAll && f.Type != q.Type {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(f.Name), search) {
			continue
		}
		matched = append(matched, f)
	}

	less := lessFor(q.SortKey)
	desc := q.Order == OrderDesc
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if desc {
			a, b = b, a
		}
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		// 主键相同的记录按 ID 排列，保证与输入顺序无关
		return matched[i].ID < matched[j].ID
	})

	p := utils.Pagination{Page: q.Page, PageSize: PageSize, Total: int64(len(matched))}
	start := p.GetOffset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + PageSize
	if end > len(matched) {
		end = len(matched)
	}

	return Result{
		Query:      q,
		Items:      matched[start:end:end],
		Total:      p.Total,
		Page:       p.Page,
		PageSize:   PageSize,
		TotalPages: p.GetTotalPages(),
		HasMore:    p.HasNext(),
	}
}

func lessFor(key string) func(a, b models.MediaFile) bool {
	switch key {
	case SortName:
		return func(a, b models.MediaFile) bool {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	case SortSize:
		return func(a, b models.MediaFile) bool { return a.Size < b.Size }
	case SortType:
		return func(a, b models.MediaFile) bool { return a.Type < b.Type }
	}
	return func(a, b models.MediaFile) bool { return a.CreatedAt.Before(b.CreatedAt) }
}
