// Package richtext 富文本文档模型：工具栏操作生成类型化节点，渲染时转义文本并过滤链接
package richtext

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Kind 节点类型
type Kind string

const (
	KindParagraph Kind = "paragraph"
	KindHeading   Kind = "heading"
	KindLink      Kind = "link"
	KindImage     Kind = "image"
	KindCodeBlock Kind = "code_block"
	KindQuote     Kind = "quote"
	KindList      Kind = "list"
)

// MaxHeadingLevel 支持的最大标题级别
const MaxHeadingLevel = 3

// Run 带格式的行内文本
type Run struct {
	Text      string `json:"text"`
	Bold      bool   `json:"bold,omitempty"`
	Italic    bool   `json:"italic,omitempty"`
	Underline bool   `json:"underline,omitempty"`
	Code      bool   `json:"code,omitempty"`
	Href      string `json:"href,omitempty"`
}

func (r Run) sameFormat(o Run) bool {
	return r.Bold == o.Bold && r.Italic == o.Italic && r.Underline == o.Underline &&
		r.Code == o.Code && r.Href == o.Href
}

// Node 文档块节点
type Node struct {
	Kind    Kind     `json:"kind"`
	Level   int      `json:"level,omitempty"`
	Runs    []Run    `json:"runs,omitempty"`
	Text    string   `json:"text,omitempty"`
	Href    string   `json:"href,omitempty"`
	Src     string   `json:"src,omitempty"`
	Alt     string   `json:"alt,omitempty"`
	Ordered bool     `json:"ordered,omitempty"`
	Items   []string `json:"items,omitempty"`
}

// Document 富文本文档
type Document struct {
	Nodes []Node `json:"nodes"`
}

// New 创建空文档
func New() *Document {
	return &Document{Nodes: []Node{}}
}

// Paragraph 追加段落
func (d *Document) Paragraph(runs ...Run) *Document {
	d.Nodes = append(d.Nodes, Node{Kind: KindParagraph, Runs: mergeRuns(runs)})
	return d
}

// Heading 追加标题，级别限制在 1 到 3
func (d *Document) Heading(level int, text string) *Document {
	d.Nodes = append(d.Nodes, Node{Kind: KindHeading, Level: clampLevel(level), Runs: []Run{{Text: text}}})
	return d
}

// Link 追加链接
func (d *Document) Link(href, text string) *Document {
	d.Nodes = append(d.Nodes, Node{Kind: KindLink, Href: href, Text: text})
	return d
}

// Image 追加图片
func (d *Document) Image(src, alt string) *Document {
	d.Nodes = append(d.Nodes, Node{Kind: KindImage, Src: src, Alt: alt})
	return d
}

// CodeBlock 追加代码块
func (d *Document) CodeBlock(text string) *Document {
	d.Nodes = append(d.Nodes, Node{Kind: KindCodeBlock, Text: text})
	return d
}

// Quote 追加引用
func (d *Document) Quote(text string) *Document {
	d.Nodes = append(d.Nodes, Node{Kind: KindQuote, Text: text})
	return d
}

// List 追加列表
func (d *Document) List(ordered bool, items ...string) *Document {
	d.Nodes = append(d.Nodes, Node{Kind: KindList, Ordered: ordered, Items: append([]string(nil), items...)})
	return d
}

// Text 普通文本
func Text(s string) Run { return Run{Text: s} }

// Bold 粗体
func Bold(s string) Run { return Run{Text: s, Bold: true} }

// Italic 斜体
func Italic(s string) Run { return Run{Text: s, Italic: true} }

// Underline 下划线
func Underline(s string) Run { return Run{Text: s, Underline: true} }

// Code 行内代码
func Code(s string) Run { return Run{Text: s, Code: true} }

// LinkRun 行内链接
func LinkRun(href, s string) Run { return Run{Text: s, Href: href} }

// Validate 校验文档结构
func (d *Document) Validate() error {
	for i, n := range d.Nodes {
		switch n.Kind {
		case KindParagraph, KindLink, KindImage, KindCodeBlock, KindQuote, KindList:
		case KindHeading:
			if n.Level < 1 || n.Level > MaxHeadingLevel {
				return fmt.Errorf("node %d: heading level %d out of range", i, n.Level)
			}
		default:
			return fmt.Errorf("node %d: unknown kind %q", i, n.Kind)
		}
	}
	return nil
}

// SafeURL 只允许 http、https、mailto 与相对地址，其余返回 "#"
func SafeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "#"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "#"
	}
	switch strings.ToLower(u.Scheme) {
	case "":
		// 首段带冒号的相对地址不可信
		if strings.Contains(strings.SplitN(raw, "/", 2)[0], ":") {
			return "#"
		}
		return raw
	case "http", "https", "mailto":
		return raw
	}
	return "#"
}

// Render 渲染为 HTML，所有文本均转义
func (d *Document) Render() string {
	var b strings.Builder
	for _, n := range d.Nodes {
		renderNode(&b, n)
	}
	return b.String()
}

func renderNode(b *strings.Builder, n Node) {
	switch n.Kind {
	case KindParagraph:
		b.WriteString("<p>")
		renderRuns(b, n.Runs)
		b.WriteString("</p>")
	case KindHeading:
		level := clampLevel(n.Level)
		fmt.Fprintf(b, "<h%d>", level)
		renderRuns(b, n.Runs)
		fmt.Fprintf(b, "</h%d>", level)
	case KindLink:
		b.WriteString("<p>")
		writeAnchor(b, n.Href, html.EscapeString(n.Text))
		b.WriteString("</p>")
	case KindImage:
		fmt.Fprintf(b, `<img src="%s" alt="%s">`, html.EscapeString(SafeURL(n.Src)), html.EscapeString(n.Alt))
	case KindCodeBlock:
		b.WriteString("<pre><code>")
		b.WriteString(html.EscapeString(n.Text))
		b.WriteString("</code></pre>")
	case KindQuote:
		b.WriteString("<blockquote>")
		b.WriteString(html.EscapeString(n.Text))
		b.WriteString("</blockquote>")
	case KindList:
		tag := "ul"
		if n.Ordered {
			tag = "ol"
		}
		b.WriteString("<" + tag + ">")
		for _, item := range n.Items {
			b.WriteString("<li>")
			b.WriteString(html.EscapeString(item))
			b.WriteString("</li>")
		}
		b.WriteString("</" + tag + ">")
	}
}

func renderRuns(b *strings.Builder, runs []Run) {
	for _, r := range runs {
		inner := html.EscapeString(r.Text)
		if r.Code {
			inner = "<code>" + inner + "</code>"
		}
		if r.Underline {
			inner = "<u>" + inner + "</u>"
		}
		if r.Italic {
			inner = "<em>" + inner + "</em>"
		}
		if r.Bold {
			inner = "<strong>" + inner + "</strong>"
		}
		if r.Href != "" {
			writeAnchor(b, r.Href, inner)
			continue
		}
		b.WriteString(inner)
	}
}

func writeAnchor(b *strings.Builder, href, inner string) {
	fmt.Fprintf(b, `<a href="%s" rel="noopener noreferrer">%s</a>`, html.EscapeString(SafeURL(href)), inner)
}

// mergeRuns 合并相邻且格式相同的文本
func mergeRuns(runs []Run) []Run {
	merged := make([]Run, 0, len(runs))
	for _, r := range runs {
		if r.Text == "" {
			continue
		}
		if last := len(merged) - 1; last >= 0 && merged[last].sameFormat(r) {
			merged[last].Text += r.Text
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > MaxHeadingLevel {
		return MaxHeadingLevel
	}
	return level
}
