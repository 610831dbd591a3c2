package rest

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sync"
)

// ExceptionMapper 把处理过程中的错误转换为响应；不处理的错误返回 false
type ExceptionMapper interface {
	ToResponse(err error) (*Response, bool)
}

// ContainerRequestFilter 在创建资源之前执行，可以替换请求或通过 AbortWith 直接响应
type ContainerRequestFilter interface {
	FilterRequest(rc *RequestContext) error
}

// ContainerResponseFilter 在写出响应之前执行，可以修改响应
type ContainerResponseFilter interface {
	FilterResponse(r *http.Request, resp *Response) error
}

// MessageBodyWriter 序列化响应实体
type MessageBodyWriter interface {
	IsWriteable(t reflect.Type, mediaType string) bool
	WriteTo(w io.Writer, entity any, mediaType string, header http.Header) error
}

// Middleware 包装资源分发的 http.Handler
type Middleware interface {
	Middleware(next http.Handler) http.Handler
}

// RequestContext 请求过滤器的上下文
type RequestContext struct {
	Request *http.Request
	aborted *Response
}

// AbortWith 中止请求，直接返回 resp
func (rc *RequestContext) AbortWith(resp *Response) {
	rc.aborted = resp
}

// Aborted 是否已中止
func (rc *RequestContext) Aborted() bool { return rc.aborted != nil }

var providerTypes = []reflect.Type{
	reflect.TypeOf((*ExceptionMapper)(nil)).Elem(),
	reflect.TypeOf((*ContainerRequestFilter)(nil)).Elem(),
	reflect.TypeOf((*ContainerResponseFilter)(nil)).Elem(),
	reflect.TypeOf((*MessageBodyWriter)(nil)).Elem(),
	reflect.TypeOf((*Middleware)(nil)).Elem(),
}

// IsProvider 类型是否实现了任意一种 Provider 接口
func IsProvider(t reflect.Type) bool {
	if t == nil {
		return false
	}
	for _, pt := range providerTypes {
		if t.Implements(pt) {
			return true
		}
	}
	return false
}

// errorMapperFunc MapErrorsOf 的返回值
type errorMapperFunc[E error] struct {
	fn func(E) *Response
}

func (m errorMapperFunc[E]) ToResponse(err error) (*Response, bool) {
	var target E
	if !errors.As(err, &target) {
		return nil, false
	}
	resp := m.fn(target)
	return resp, resp != nil
}

// MapErrorsOf 把只处理错误类型 E 的函数适配为 ExceptionMapper
//
//	rest.MapErrorsOf(func(err *NotFoundError) *rest.Response {
//		return rest.Status(http.StatusNotFound).Entity(err.Error()).Build()
//	})
func MapErrorsOf[E error](fn func(E) *Response) ExceptionMapper {
	return errorMapperFunc[E]{fn: fn}
}

// ProviderFactory 保存已注册的 Provider 与按类型缓存的 PropertyInjector
type ProviderFactory struct {
	mutex sync.RWMutex

	providers       []any
	mappers         []ExceptionMapper
	requestFilters  []ContainerRequestFilter
	responseFilters []ContainerResponseFilter
	writers         []MessageBodyWriter
	middlewares     []Middleware

	injectors map[reflect.Type]*PropertyInjector
}

func NewProviderFactory() *ProviderFactory {
	return &ProviderFactory{injectors: make(map[reflect.Type]*PropertyInjector)}
}

// RegisterProviderInstance 注册 Provider 实例
// 一个实例可以同时实现多种 Provider 接口，按实现的每一种分别登记
func (pf *ProviderFactory) RegisterProviderInstance(p any) error {
	if p == nil {
		return errors.New("rest: nil provider")
	}
	pf.mutex.Lock()
	defer pf.mutex.Unlock()

	matched := false
	if m, ok := p.(ExceptionMapper); ok {
		pf.mappers = append(pf.mappers, m)
		matched = true
	}
	if f, ok := p.(ContainerRequestFilter); ok {
		pf.requestFilters = append(pf.requestFilters, f)
		matched = true
	}
	if f, ok := p.(ContainerResponseFilter); ok {
		pf.responseFilters = append(pf.responseFilters, f)
		matched = true
	}
	if w, ok := p.(MessageBodyWriter); ok {
		pf.writers = append(pf.writers, w)
		matched = true
	}
	if m, ok := p.(Middleware); ok {
		pf.middlewares = append(pf.middlewares, m)
		matched = true
	}
	if !matched {
		return fmt.Errorf("rest: %T implements no provider interface", p)
	}
	pf.providers = append(pf.providers, p)
	logDebug("[iocrest] 注册 Provider 实例: %T", p)
	return nil
}

// Providers 已注册的 Provider，按注册顺序
func (pf *ProviderFactory) Providers() []any {
	pf.mutex.RLock()
	defer pf.mutex.RUnlock()
	return append([]any(nil), pf.providers...)
}

// PropertyInjectorFor 返回 t 的属性注入器，结果按类型缓存
func (pf *ProviderFactory) PropertyInjectorFor(t reflect.Type) (*PropertyInjector, error) {
	pf.mutex.RLock()
	pi, ok := pf.injectors[t]
	pf.mutex.RUnlock()
	if ok {
		return pi, nil
	}

	pi, err := NewPropertyInjector(t)
	if err != nil {
		return nil, err
	}
	pf.mutex.Lock()
	defer pf.mutex.Unlock()
	if cached, ok := pf.injectors[t]; ok {
		return cached, nil
	}
	pf.injectors[t] = pi
	return pi, nil
}

// Wrap 用已注册的 Middleware 包装 h；每次请求时读取最新的列表，先注册的在最外层
func (pf *ProviderFactory) Wrap(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pf.mutex.RLock()
		mws := append([]Middleware(nil), pf.middlewares...)
		pf.mutex.RUnlock()

		var next = h
		for idx := len(mws) - 1; idx >= 0; idx-- {
			next = mws[idx].Middleware(next)
		}
		next.ServeHTTP(w, r)
	})
}

func (pf *ProviderFactory) snapshot() providerSnapshot {
	pf.mutex.RLock()
	defer pf.mutex.RUnlock()
	return providerSnapshot{
		mappers:         append([]ExceptionMapper(nil), pf.mappers...),
		requestFilters:  append([]ContainerRequestFilter(nil), pf.requestFilters...),
		responseFilters: append([]ContainerResponseFilter(nil), pf.responseFilters...),
		writers:         append([]MessageBodyWriter(nil), pf.writers...),
	}
}

type providerSnapshot struct {
	mappers         []ExceptionMapper
	requestFilters  []ContainerRequestFilter
	responseFilters []ContainerResponseFilter
	writers         []MessageBodyWriter
}
