package richtext

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// 连同内容一起丢弃的元素
var droppedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Iframe:   true,
	atom.Object:   true,
	atom.Embed:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Head:     true,
	atom.Title:    true,
	atom.Meta:     true,
	atom.Link:     true,
	atom.Svg:      true,
	atom.Math:     true,
	atom.Form:     true,
	atom.Input:    true,
	atom.Button:   true,
	atom.Select:   true,
	atom.Textarea: true,
}

// Parse 将任意 HTML 解析为文档模型；未知标签只保留文本，事件属性与样式全部丢弃
func Parse(source string) (*Document, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(source), body)
	if err != nil {
		return nil, err
	}

	p := &parser{doc: New()}
	for _, n := range nodes {
		p.block(n)
	}
	p.flush()
	return p.doc, nil
}

// Sanitize 解析后重新渲染
func Sanitize(source string) (string, error) {
	doc, err := Parse(source)
	if err != nil {
		return "", err
	}
	return doc.Render(), nil
}

type parser struct {
	doc     *Document
	pending []Run
	images  []Node
}

// flush 结束当前段落
func (p *parser) flush() {
	runs := mergeRuns(p.pending)
	p.pending = nil
	if hasText(runs) {
		p.doc.Nodes = append(p.doc.Nodes, Node{Kind: KindParagraph, Runs: runs})
	}
	p.doc.Nodes = append(p.doc.Nodes, p.images...)
	p.images = nil
}

func (p *parser) block(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		p.pending = append(p.pending, Run{Text: n.Data})
		return
	case html.ElementNode:
	case html.DocumentNode:
		p.children(n)
		return
	default:
		return
	}
	if droppedElements[n.DataAtom] {
		return
	}

	switch n.DataAtom {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Header, atom.Footer, atom.Main, atom.Aside:
		p.flush()
		p.children(n)
		p.flush()
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		p.flush()
		level := int(n.Data[1] - '0')
		runs := mergeRuns(inlineRuns(n, Run{}, &p.images))
		if hasText(runs) {
			p.doc.Nodes = append(p.doc.Nodes, Node{Kind: KindHeading, Level: clampLevel(level), Runs: runs})
		}
		p.flush()
	case atom.Pre:
		p.flush()
		p.doc.CodeBlock(textContent(n))
	case atom.Blockquote:
		p.flush()
		p.doc.Quote(strings.TrimSpace(textContent(n)))
	case atom.Ul, atom.Ol:
		p.flush()
		var items []string
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.Li {
				items = append(items, strings.TrimSpace(textContent(c)))
			}
		}
		p.doc.List(n.DataAtom == atom.Ol, items...)
	case atom.Img:
		p.flush()
		p.doc.Image(attr(n, "src"), attr(n, "alt"))
	case atom.Hr, atom.Br:
		p.flush()
	default:
		p.pending = append(p.pending, inlineRuns(n, Run{}, &p.images)...)
	}
}

func (p *parser) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.block(c)
	}
}

// inlineRuns 收集行内文本，行内图片放入 images
func inlineRuns(n *html.Node, format Run, images *[]Node) []Run {
	switch n.Type {
	case html.TextNode:
		r := format
		r.Text = n.Data
		return []Run{r}
	case html.ElementNode:
	default:
		return nil
	}
	if droppedElements[n.DataAtom] {
		return nil
	}

	switch n.DataAtom {
	case atom.Strong, atom.B:
		format.Bold = true
	case atom.Em, atom.I:
		format.Italic = true
	case atom.U, atom.Ins:
		format.Underline = true
	case atom.Code, atom.Kbd, atom.Samp:
		format.Code = true
	case atom.A:
		format.Href = SafeURL(attr(n, "href"))
	case atom.Br:
		r := format
		r.Text = "\n"
		return []Run{r}
	case atom.Img:
		*images = append(*images, Node{Kind: KindImage, Src: attr(n, "src"), Alt: attr(n, "alt")})
		return nil
	}

	var runs []Run
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		runs = append(runs, inlineRuns(c, format, images)...)
	}
	return runs
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && droppedElements[n.DataAtom] {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func hasText(runs []Run) bool {
	for _, r := range runs {
		if strings.TrimSpace(r.Text) != "" {
			return true
		}
	}
	return false
}
