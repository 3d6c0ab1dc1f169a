package media

import (
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// 上传状态
const (
	StatusUploading = "uploading"
	StatusDone      = "done"
	StatusFailed    = "failed"
)

// Progress 上传进度快照
type Progress struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Total     int64     `json:"total"`
	Received  int64     `json:"received"`
	Percent   int       `json:"percent"`
	Status    string    `json:"status"`
	FileID    string    `json:"file_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type upload struct {
	name     string
	total    int64
	received atomic.Int64

	mu        sync.Mutex
	status    string
	fileID    string
	errMsg    string
	updatedAt time.Time
}

// Tracker 按上传 ID 记录进度，进度来自实际读取的字节数
type Tracker struct {
	mu      sync.RWMutex
	uploads map[string]*upload
	now     func() time.Time
}

// NewTracker 创建进度跟踪器
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{uploads: make(map[string]*upload), now: now}
}

// Begin 登记一次上传，返回计数读取器
func (t *Tracker) Begin(id, name string, total int64, r io.Reader) io.Reader {
	u := &upload{name: name, total: total, status: StatusUploading, updatedAt: t.now()}
	t.mu.Lock()
	t.uploads[id] = u
	t.mu.Unlock()
	return &countingReader{r: r, n: &u.received}
}

// Active 上传是否仍在进行
func (t *Tracker) Active(id string) bool {
	t.mu.RLock()
	u, ok := t.uploads[id]
	t.mu.RUnlock()
	if !ok {
		return false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.status == StatusUploading
}

// Rename 文件名在请求体解析到文件分段后才能确定
func (t *Tracker) Rename(id, name string) {
	t.mu.RLock()
	u, ok := t.uploads[id]
	t.mu.RUnlock()
	if !ok {
		return
	}
	u.mu.Lock()
	u.name = name
	u.updatedAt = t.now()
	u.mu.Unlock()
}

// Finish 标记完成
func (t *Tracker) Finish(id, fileID string) {
	t.settle(id, StatusDone, fileID, "")
}

// Fail 标记失败
func (t *Tracker) Fail(id string, err error) {
	t.settle(id, StatusFailed, "", err.Error())
}

func (t *Tracker) settle(id, status, fileID, errMsg string) {
	t.mu.RLock()
	u, ok := t.uploads[id]
	t.mu.RUnlock()
	if !ok {
		return
	}
	u.mu.Lock()
	u.status = status
	u.fileID = fileID
	u.errMsg = errMsg
	u.updatedAt = t.now()
	u.mu.Unlock()
}

// Get 查询进度
func (t *Tracker) Get(id string) (Progress, bool) {
	t.mu.RLock()
	u, ok := t.uploads[id]
	t.mu.RUnlock()
	if !ok {
		return Progress{}, false
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	p := Progress{
		ID:        id,
		Name:      u.name,
		Total:     u.total,
		Received:  u.received.Load(),
		Status:    u.status,
		FileID:    u.fileID,
		Error:     u.errMsg,
		UpdatedAt: u.updatedAt,
	}
	switch {
	case u.status == StatusDone:
		p.Percent = 100
	case p.Total > 0:
		p.Percent = int(p.Received * 100 / p.Total)
		if p.Percent > 99 {
			p.Percent = 99
		}
	}
	return p, true
}

// Purge 清理结束超过 ttl 的记录，返回清理数量
func (t *Tracker) Purge(ttl time.Duration) int {
	cutoff := t.now().Add(-ttl)
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for id, u := range t.uploads {
		u.mu.Lock()
		finished := u.status != StatusUploading
		stale := u.updatedAt.Before(cutoff)
		u.mu.Unlock()
		if finished && stale {
			delete(t.uploads, id)
			n++
		}
	}
	return n
}

// Len 当前记录数
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.uploads)
}

type countingReader struct {
	r io.Reader
	n *atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}
