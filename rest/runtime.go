package rest

import (
	"fmt"
	"net/url"
	"strings"
)

// RuntimeDelegate 运行时对象工厂
type RuntimeDelegate struct {
	// BaseURL 为 URLBuilder 提供默认的 scheme 与 host，可以为空
	BaseURL *url.URL
}

func NewRuntimeDelegate() *RuntimeDelegate {
	return &RuntimeDelegate{}
}

func (d *RuntimeDelegate) CreateResponseBuilder() *ResponseBuilder {
	return NewResponseBuilder()
}

func (d *RuntimeDelegate) CreateURLBuilder() *URLBuilder {
	b := &URLBuilder{query: url.Values{}}
	if d != nil && d.BaseURL != nil {
		b.scheme = d.BaseURL.Scheme
		b.host = d.BaseURL.Host
		b.path = d.BaseURL.Path
	}
	return b
}

func (d *RuntimeDelegate) CreateVariantListBuilder() *VariantListBuilder {
	return &VariantListBuilder{}
}

// URLBuilder 构造 URL，路径中的 {name} 模板在 Build 时替换
type URLBuilder struct {
	scheme string
	host   string
	path   string
	query  url.Values
}

func (b *URLBuilder) Scheme(scheme string) *URLBuilder {
	b.scheme = scheme
	return b
}

func (b *URLBuilder) Host(host string) *URLBuilder {
	b.host = host
	return b
}

// Path 追加路径片段
func (b *URLBuilder) Path(segment string) *URLBuilder {
	b.path = joinPath(b.path, segment)
	return b
}

func (b *URLBuilder) QueryParam(name string, values ...string) *URLBuilder {
	for _, v := range values {
		b.query.Add(name, v)
	}
	return b
}

// Build 用 values 替换路径模板，缺少的模板变量返回错误
func (b *URLBuilder) Build(values map[string]string) (*url.URL, error) {
	path, err := expandTemplate(b.path, values, func(s string) string { return s })
	if err != nil {
		return nil, err
	}
	rawPath, _ := expandTemplate(b.path, values, url.PathEscape)
	u := &url.URL{Scheme: b.scheme, Host: b.host, Path: path, RawPath: rawPath}
	if len(b.query) > 0 {
		u.RawQuery = b.query.Encode()
	}
	return u, nil
}

func expandTemplate(path string, values map[string]string, escape func(string) string) (string, error) {
	var sb strings.Builder
	for {
		start := strings.IndexByte(path, '{')
		if start < 0 {
			sb.WriteString(path)
			return sb.String(), nil
		}
		end := strings.IndexByte(path[start:], '}')
		if end < 0 {
			return "", fmt.Errorf("rest: unterminated template in %q", path)
		}
		end += start
		name := path[start+1 : end]
		// chi 风格的 {id:[0-9]+}
		if colon := strings.IndexByte(name, ':'); colon >= 0 {
			name = name[:colon]
		}
		value, ok := values[name]
		if !ok {
			return "", fmt.Errorf("rest: missing value for template %q", name)
		}
		sb.WriteString(path[:start])
		sb.WriteString(escape(value))
		path = path[end+1:]
	}
}

// Variant 内容协商的候选表示
type Variant struct {
	MediaType string
	Language  string
	Encoding  string
}

// VariantListBuilder 构造候选表示列表
// 每次 Add 把当前的媒体类型、语言、编码做笛卡尔积后加入列表
type VariantListBuilder struct {
	mediaTypes []string
	languages  []string
	encodings  []string
	variants   []Variant
}

func (b *VariantListBuilder) MediaTypes(types ...string) *VariantListBuilder {
	b.mediaTypes = append(b.mediaTypes, types...)
	return b
}

func (b *VariantListBuilder) Languages(languages ...string) *VariantListBuilder {
	b.languages = append(b.languages, languages...)
	return b
}

func (b *VariantListBuilder) Encodings(encodings ...string) *VariantListBuilder {
	b.encodings = append(b.encodings, encodings...)
	return b
}

func (b *VariantListBuilder) Add() *VariantListBuilder {
	if len(b.mediaTypes)+len(b.languages)+len(b.encodings) == 0 {
		return b
	}
	for _, mt := range orEmpty(b.mediaTypes) {
		for _, lang := range orEmpty(b.languages) {
			for _, enc := range orEmpty(b.encodings) {
				b.variants = append(b.variants, Variant{MediaType: mt, Language: lang, Encoding: enc})
			}
		}
	}
	b.mediaTypes, b.languages, b.encodings = nil, nil, nil
	return b
}

// Build 隐式执行一次 Add
func (b *VariantListBuilder) Build() []Variant {
	b.Add()
	out := b.variants
	b.variants = nil
	return out
}

func orEmpty(values []string) []string {
	if len(values) == 0 {
		return []string{""}
	}
	return values
}
