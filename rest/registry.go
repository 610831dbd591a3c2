package rest

import (
	"cmp"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type routeKey struct {
	method  string
	pattern string
}

type boundRoute struct {
	owner    reflect.Type
	resource string
	factory  ResourceFactory
	method   resourceMethod
}

type registration struct {
	factory ResourceFactory
	meta    *resourceMetadata
}

// RouteInfo 路由表中的一项
type RouteInfo struct {
	Method   string
	Pattern  string
	Resource string
	Produces string
}

// Registry 资源注册表
//
// 每个 method+pattern 只在 chi 中挂载一次，请求时通过可变的路由表找到当前的资源工厂，
// 因此移除后返回 404，重新注册会替换处理者。
// 注册应在开始服务之前完成，chi 的路由树不支持与请求并发修改。
type Registry struct {
	mutex     sync.RWMutex
	router    chi.Router
	providers *ProviderFactory
	observer  Observer
	rootPath  string

	mounted       map[routeKey]bool
	routes        map[routeKey]*boundRoute
	registrations map[reflect.Type]*registration
	order         []reflect.Type
}

func NewRegistry(router chi.Router, providers *ProviderFactory, observer Observer, rootPath string) *Registry {
	if observer == nil {
		observer = NopObserver{}
	}
	if providers == nil {
		providers = NewProviderFactory()
	}
	return &Registry{
		router:        router,
		providers:     providers,
		observer:      observer,
		rootPath:      rootPath,
		mounted:       make(map[routeKey]bool),
		routes:        make(map[routeKey]*boundRoute),
		registrations: make(map[reflect.Type]*registration),
	}
}

// AddResourceFactory 注册资源工厂
// 同一 ScannableType 重复注册、或路由已被其他资源占用时返回错误
func (r *Registry) AddResourceFactory(f ResourceFactory) error {
	if f == nil {
		return errors.New("rest: nil resource factory")
	}
	t := f.ScannableType()
	if t == nil {
		return errors.New("rest: resource factory has no scannable type")
	}
	metaType := t
	if t.Kind() == reflect.Interface {
		it, ok := f.(ImplementationTyper)
		if !ok || it.ImplementationType() == nil {
			return fmt.Errorf("rest: %s is an interface and its factory does not name an implementation", t)
		}
		metaType = it.ImplementationType()
		if !metaType.Implements(t) {
			return fmt.Errorf("rest: %s does not implement %s", metaType, t)
		}
	}
	if !IsRootResource(metaType) {
		return fmt.Errorf("rest: %s is not a root resource", metaType)
	}
	meta, err := scanResource(metaType, r.rootPath)
	if err != nil {
		return err
	}

	r.mutex.Lock()
	if _, dup := r.registrations[t]; dup {
		r.mutex.Unlock()
		return fmt.Errorf("rest: %s is already registered", t)
	}
	for _, m := range meta.methods {
		if br, taken := r.routes[routeKey{m.method, m.pattern}]; taken {
			r.mutex.Unlock()
			return fmt.Errorf("rest: %s %s of %s is already served by %s", m.method, m.pattern, meta.name, br.resource)
		}
	}
	for _, m := range meta.methods {
		key := routeKey{m.method, m.pattern}
		if !r.mounted[key] {
			if err := r.mount(key); err != nil {
				r.dropRoutes(t)
				r.mutex.Unlock()
				return err
			}
			r.mounted[key] = true
		}
		r.routes[key] = &boundRoute{owner: t, resource: meta.name, factory: f, method: m}
	}
	r.registrations[t] = &registration{factory: f, meta: meta}
	r.order = append(r.order, t)
	r.mutex.Unlock()

	f.Registered(r.providers)
	r.observer.ResourceRegistered(meta.name, len(meta.methods))
	logInfo("[iocrest] 注册资源: %s path=%s routes=%d", meta.name, meta.path, len(meta.methods))
	return nil
}

func (r *Registry) mount(key routeKey) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("rest: mounting %s %s: %v", key.method, key.pattern, rec)
		}
	}()
	r.router.MethodFunc(key.method, key.pattern, r.dispatcher(key))
	return nil
}

// dropRoutes 调用方持有写锁
func (r *Registry) dropRoutes(t reflect.Type) {
	for key, br := range r.routes {
		if br.owner == t {
			delete(r.routes, key)
		}
	}
}

// RemoveRegistrations 移除类型 t 的注册，t 未注册时返回 false
func (r *Registry) RemoveRegistrations(t reflect.Type) bool {
	r.mutex.Lock()
	reg, ok := r.registrations[t]
	if !ok {
		r.mutex.Unlock()
		return false
	}
	r.dropRoutes(t)
	delete(r.registrations, t)
	r.order = slices.DeleteFunc(r.order, func(x reflect.Type) bool { return x == t })
	r.mutex.Unlock()

	reg.factory.Unregistered()
	r.observer.ResourceUnregistered(reg.meta.name)
	logInfo("[iocrest] 移除资源: %s", reg.meta.name)
	return true
}

// IsRegistered 类型 t 是否已注册
func (r *Registry) IsRegistered(t reflect.Type) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	_, ok := r.registrations[t]
	return ok
}

// ResourceTypes 已注册的 ScannableType，按注册顺序
func (r *Registry) ResourceTypes() []reflect.Type {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return slices.Clone(r.order)
}

// Size 已注册的资源数量
func (r *Registry) Size() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.registrations)
}

// Routes 当前路由表，按 pattern、method 排序
func (r *Registry) Routes() []RouteInfo {
	r.mutex.RLock()
	out := make([]RouteInfo, 0, len(r.routes))
	for key, br := range r.routes {
		out = append(out, RouteInfo{
			Method:   key.method,
			Pattern:  key.pattern,
			Resource: br.resource,
			Produces: br.method.produces,
		})
	}
	r.mutex.RUnlock()

	slices.SortFunc(out, func(a, b RouteInfo) int {
		if c := cmp.Compare(a.Pattern, b.Pattern); c != 0 {
			return c
		}
		return cmp.Compare(a.Method, b.Method)
	})
	return out
}

func (r *Registry) dispatcher(key routeKey) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		r.mutex.RLock()
		br := r.routes[key]
		r.mutex.RUnlock()
		if br == nil {
			http.NotFound(w, req)
			return
		}

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		req = withDispatch(ww, req)
		r.providers.Wrap(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.handle(br, w, req)
		})).ServeHTTP(ww, req)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		r.observer.RequestHandled(br.resource, key.method, key.pattern, status, time.Since(start))
	}
}

// handle 请求过滤器 -> 创建资源 -> 调用处理方法 -> 响应过滤器 -> 写出
func (r *Registry) handle(br *boundRoute, w http.ResponseWriter, req *http.Request) {
	snap := r.providers.snapshot()
	produces := br.method.produces

	rc := &RequestContext{Request: req}
	for _, f := range snap.requestFilters {
		if err := f.FilterRequest(rc); err != nil {
			r.fail(w, rc.Request, err, produces, snap)
			return
		}
		if rc.aborted != nil {
			r.respond(w, rc.Request, toResponse(rc.aborted, produces), snap)
			return
		}
	}
	req = rc.Request
	updateDispatch(w, req)

	resource, err := br.factory.CreateResource(w, req, r.providers)
	if err != nil {
		r.fail(w, req, err, produces, snap)
		return
	}
	defer br.factory.RequestFinished(w, req, resource)

	result, err := br.method.invoker.invoke(resource, w, req)
	if err != nil {
		r.fail(w, req, err, produces, snap)
		return
	}
	if result == nil && br.method.invoker.writesDirectly {
		return
	}
	r.respond(w, req, toResponse(result, produces), snap)
}

// fail 带完整响应的 *Error 原样写出，否则依次尝试 ExceptionMapper，最后返回状态码或 500
func (r *Registry) fail(w http.ResponseWriter, req *http.Request, err error, produces string, snap providerSnapshot) {
	var webErr *Error
	isWebErr := errors.As(err, &webErr)
	if isWebErr && webErr.Response != nil {
		r.respond(w, req, toResponse(webErr.Response, produces), snap)
		return
	}
	for _, m := range snap.mappers {
		if resp, ok := m.ToResponse(err); ok && resp != nil {
			r.respond(w, req, toResponse(resp, produces), snap)
			return
		}
	}

	status := http.StatusInternalServerError
	message := http.StatusText(status)
	if isWebErr {
		status, message = webErr.Status, webErr.message()
	}
	if status >= http.StatusInternalServerError {
		logError("[iocrest] 请求处理失败: %s %s: %v", req.Method, req.URL.Path, err)
	} else {
		logDebug("[iocrest] 请求被拒绝: %s %s: %v", req.Method, req.URL.Path, err)
	}
	r.respond(w, req, &Response{Status: status, Entity: message, MediaType: MediaTypeText}, snap)
}

func (r *Registry) respond(w http.ResponseWriter, req *http.Request, resp *Response, snap providerSnapshot) {
	for _, f := range snap.responseFilters {
		if err := f.FilterResponse(req, resp); err != nil {
			logError("[iocrest] 响应过滤器失败: %T: %v", f, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}
	if err := writeResponse(w, resp, snap.writers); err != nil {
		logError("[iocrest] 写出响应失败: %s %s: %v", req.Method, req.URL.Path, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
