package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
)

const (
	MediaTypeJSON = "application/json"
	MediaTypeText = "text/plain; charset=utf-8"
)

// Response 处理方法返回的完整响应
// Status 为 0 时按 200 处理
type Response struct {
	Status    int
	Header    http.Header
	Entity    any
	MediaType string
}

// ResponseBuilder 链式构造 Response
type ResponseBuilder struct {
	resp Response
}

// NewResponseBuilder 状态码默认为 200
func NewResponseBuilder() *ResponseBuilder {
	return &ResponseBuilder{resp: Response{Status: http.StatusOK, Header: http.Header{}}}
}

// Status 以状态码开始构造响应
func Status(code int) *ResponseBuilder {
	return NewResponseBuilder().Status(code)
}

// OK 200 响应
func OK(entity any) *Response {
	return NewResponseBuilder().Entity(entity).Build()
}

// NoContent 204 响应
func NoContent() *Response {
	return Status(http.StatusNoContent).Build()
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.resp.Status = code
	return b
}

func (b *ResponseBuilder) Entity(entity any) *ResponseBuilder {
	b.resp.Entity = entity
	return b
}

func (b *ResponseBuilder) Type(mediaType string) *ResponseBuilder {
	b.resp.MediaType = mediaType
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.resp.Header.Add(name, value)
	return b
}

func (b *ResponseBuilder) Location(u *url.URL) *ResponseBuilder {
	if u != nil {
		b.resp.Header.Set("Location", u.String())
	}
	return b
}

// Build 返回响应的副本，构造器可以继续复用
func (b *ResponseBuilder) Build() *Response {
	resp := b.resp
	resp.Header = b.resp.Header.Clone()
	return &resp
}

// Error 携带 HTTP 状态码的错误
// Response 不为空时原样写出，不经过 ExceptionMapper
type Error struct {
	Status   int
	Response *Response
	Err      error
}

// NewError 以状态码包装 err
func NewError(status int, err error) *Error {
	return &Error{Status: status, Err: err}
}

// ErrorFor 以完整响应中止处理
func ErrorFor(resp *Response) *Error {
	status := http.StatusInternalServerError
	if resp != nil && resp.Status != 0 {
		status = resp.Status
	}
	return &Error{Status: status, Response: resp}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rest: %d %s: %v", e.Status, http.StatusText(e.Status), e.Err)
	}
	return fmt.Sprintf("rest: %d %s", e.Status, http.StatusText(e.Status))
}

func (e *Error) Unwrap() error { return e.Err }

// message 写给客户端的文本
func (e *Error) message() string {
	if e.Err != nil && e.Status < http.StatusInternalServerError {
		return e.Err.Error()
	}
	return http.StatusText(e.Status)
}

// toResponse 把处理方法的返回值规范化为响应
func toResponse(v any, produces string) *Response {
	var resp *Response
	switch r := v.(type) {
	case nil:
		resp = &Response{Status: http.StatusNoContent}
	case *Response:
		resp = r
	case Response:
		resp = &r
	default:
		resp = &Response{Status: http.StatusOK, Entity: v}
	}
	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}
	if resp.MediaType == "" {
		resp.MediaType = produces
	}
	return resp
}

func defaultMediaType(entity any) string {
	switch entity.(type) {
	case string, []byte:
		return MediaTypeText
	}
	return MediaTypeJSON
}

// writeResponse 序列化到缓冲区后再写出，序列化失败时调用方仍可以返回 500
func writeResponse(w http.ResponseWriter, resp *Response, writers []MessageBodyWriter) error {
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	header := resp.Header.Clone()
	if header == nil {
		header = http.Header{}
	}

	var body bytes.Buffer
	if resp.Entity != nil {
		mediaType := resp.MediaType
		if mediaType == "" {
			mediaType = defaultMediaType(resp.Entity)
		}
		writer := selectWriter(reflect.TypeOf(resp.Entity), mediaType, writers)
		if writer == nil {
			return fmt.Errorf("rest: no MessageBodyWriter for %T as %s", resp.Entity, mediaType)
		}
		if err := writer.WriteTo(&body, resp.Entity, mediaType, header); err != nil {
			return fmt.Errorf("rest: writing %T as %s: %w", resp.Entity, mediaType, err)
		}
		if header.Get("Content-Type") == "" {
			header.Set("Content-Type", mediaType)
		}
	}

	dst := w.Header()
	for name, values := range header {
		dst[name] = append(dst[name], values...)
	}
	w.WriteHeader(status)
	if body.Len() > 0 {
		if _, err := w.Write(body.Bytes()); err != nil {
			logDebug("[iocrest] 写出响应失败: %v", err)
		}
	}
	return nil
}

// selectWriter 自定义 Writer 优先，其次内置的文本与 JSON Writer
func selectWriter(t reflect.Type, mediaType string, writers []MessageBodyWriter) MessageBodyWriter {
	for _, w := range writers {
		if w.IsWriteable(t, mediaType) {
			return w
		}
	}
	for _, w := range builtinWriters {
		if w.IsWriteable(t, mediaType) {
			return w
		}
	}
	return nil
}

var builtinWriters = []MessageBodyWriter{textWriter{}, jsonWriter{}}

var stringerType = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()

type textWriter struct{}

func (textWriter) IsWriteable(t reflect.Type, mediaType string) bool {
	if !strings.HasPrefix(mediaType, "text/") {
		return false
	}
	return t.Kind() == reflect.String ||
		(t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8) ||
		t.Implements(stringerType) || t.Implements(errorType)
}

func (textWriter) WriteTo(w io.Writer, entity any, _ string, _ http.Header) error {
	var err error
	switch v := entity.(type) {
	case string:
		_, err = io.WriteString(w, v)
	case []byte:
		_, err = w.Write(v)
	case fmt.Stringer:
		_, err = io.WriteString(w, v.String())
	case error:
		_, err = io.WriteString(w, v.Error())
	default:
		rv := reflect.ValueOf(entity)
		switch rv.Kind() {
		case reflect.String:
			_, err = io.WriteString(w, rv.String())
		case reflect.Slice:
			_, err = w.Write(rv.Bytes())
		default:
			err = errors.New("unsupported text entity")
		}
	}
	return err
}

type jsonWriter struct{}

func (jsonWriter) IsWriteable(_ reflect.Type, mediaType string) bool {
	return strings.Contains(mediaType, "json")
}

func (jsonWriter) WriteTo(w io.Writer, entity any, _ string, _ http.Header) error {
	return json.NewEncoder(w).Encode(entity)
}
