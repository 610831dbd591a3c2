package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
)

// Resource 根资源
//
// Path 与 Routes 只描述元数据，注册时在零值原型上调用，实现中不要依赖任何字段。
//
//	type UserAPI struct {
//		Users UserService `inject:""`
//	}
//
//	func (*UserAPI) Path() string { return "/users" }
//	func (*UserAPI) Routes() []rest.Route {
//		return []rest.Route{
//			{Method: http.MethodGet, Path: "/{id}", Handler: (*UserAPI).Get},
//		}
//	}
type Resource interface {
	Path() string
	Routes() []Route
}

// Route 单条路由
// Handler 必须是方法表达式，第一个参数为资源本身，其余参数可以是
// context.Context、*http.Request、http.ResponseWriter；
// 返回值可以为空、error、T 或 (T, error)
type Route struct {
	Method   string
	Path     string
	Handler  any
	Produces string
}

var (
	resourceType       = reflect.TypeOf((*Resource)(nil)).Elem()
	contextType        = reflect.TypeOf((*context.Context)(nil)).Elem()
	requestType        = reflect.TypeOf((*http.Request)(nil))
	responseWriterType = reflect.TypeOf((*http.ResponseWriter)(nil)).Elem()
	errorType          = reflect.TypeOf((*error)(nil)).Elem()
)

// IsRootResource 类型是否为根资源
func IsRootResource(t reflect.Type) bool {
	return t != nil && t.Implements(resourceType)
}

var allowedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
	http.MethodConnect: true,
	http.MethodTrace:   true,
}

type resourceMethod struct {
	method   string
	pattern  string
	produces string
	invoker  *invoker
}

type resourceMetadata struct {
	name    string
	path    string
	methods []resourceMethod
}

// prototype 构造 t 的零值原型，用于读取元数据
func prototype(t reflect.Type) (Resource, error) {
	var v reflect.Value
	switch {
	case t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct:
		v = reflect.New(t.Elem())
	case t.Kind() == reflect.Interface:
		return nil, fmt.Errorf("rest: cannot build a prototype of interface %s", t)
	default:
		v = reflect.New(t).Elem()
	}
	res, ok := v.Interface().(Resource)
	if !ok {
		return nil, fmt.Errorf("rest: %s is not a root resource", t)
	}
	return res, nil
}

// scanResource 读取资源元数据；Path/Routes 的 panic 会被转换为错误
func scanResource(t reflect.Type, rootPath string) (meta *resourceMetadata, err error) {
	res, err := prototype(t)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rec := recover(); rec != nil {
			meta, err = nil, fmt.Errorf("rest: reading metadata of %s panicked: %v", t, rec)
		}
	}()

	meta = &resourceMetadata{name: typeName(t), path: res.Path()}
	seen := make(map[string]bool)
	var errs []error
	for idx, route := range res.Routes() {
		method := strings.ToUpper(strings.TrimSpace(route.Method))
		if !allowedMethods[method] {
			errs = append(errs, fmt.Errorf("rest: %s route %d: unsupported method %q", meta.name, idx, route.Method))
			continue
		}
		pattern := joinPath(rootPath, meta.path, route.Path)
		if seen[method+" "+pattern] {
			errs = append(errs, fmt.Errorf("rest: %s route %d: %s %s declared twice", meta.name, idx, method, pattern))
			continue
		}
		inv, err := newInvoker(route.Handler, t)
		if err != nil {
			errs = append(errs, fmt.Errorf("rest: %s route %d (%s %s): %w", meta.name, idx, method, pattern, err))
			continue
		}
		seen[method+" "+pattern] = true
		meta.methods = append(meta.methods, resourceMethod{
			method:   method,
			pattern:  pattern,
			produces: route.Produces,
			invoker:  inv,
		})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if len(meta.methods) == 0 {
		return nil, fmt.Errorf("rest: %s declares no routes", meta.name)
	}
	return meta, nil
}

// joinPath 拼接路径片段，结果总是以 "/" 开头且不含重复的 "/"
func joinPath(parts ...string) string {
	var sb strings.Builder
	for _, part := range parts {
		part = strings.Trim(part, "/")
		if part == "" {
			continue
		}
		sb.WriteByte('/')
		sb.WriteString(part)
	}
	if sb.Len() == 0 {
		return "/"
	}
	return sb.String()
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.Kind() == reflect.Ptr && t.Name() == "" {
		return t.Elem().Name()
	}
	return t.Name()
}

type paramKind int

const (
	paramContext paramKind = iota
	paramRequest
	paramResponseWriter
)

// invoker 通过反射调用路由处理方法
type invoker struct {
	fn       reflect.Value
	recv     reflect.Type
	params   []paramKind
	hasValue bool
	hasError bool
	// 没有返回值并接收 ResponseWriter 时由处理方法自行写响应
	writesDirectly bool
}

func newInvoker(handler any, resource reflect.Type) (*invoker, error) {
	fn := reflect.ValueOf(handler)
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		return nil, fmt.Errorf("handler must be a method expression, got %T", handler)
	}
	ft := fn.Type()
	if ft.IsVariadic() || ft.NumIn() == 0 {
		return nil, fmt.Errorf("handler %s must take the resource as first parameter", ft)
	}
	if !resource.AssignableTo(ft.In(0)) {
		return nil, fmt.Errorf("handler receiver %s does not accept %s", ft.In(0), resource)
	}

	inv := &invoker{fn: fn, recv: ft.In(0)}
	for idx := 1; idx < ft.NumIn(); idx++ {
		switch ft.In(idx) {
		case contextType:
			inv.params = append(inv.params, paramContext)
		case requestType:
			inv.params = append(inv.params, paramRequest)
		case responseWriterType:
			inv.params = append(inv.params, paramResponseWriter)
		default:
			return nil, fmt.Errorf("handler parameter %d has unsupported type %s", idx, ft.In(idx))
		}
	}

	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errorType {
			inv.hasError = true
		} else {
			inv.hasValue = true
		}
	case 2:
		if ft.Out(1) != errorType {
			return nil, fmt.Errorf("handler %s must return (T, error)", ft)
		}
		inv.hasValue, inv.hasError = true, true
	default:
		return nil, fmt.Errorf("handler %s returns too many values", ft)
	}

	if !inv.hasValue {
		for _, p := range inv.params {
			if p == paramResponseWriter {
				inv.writesDirectly = true
			}
		}
	}
	return inv, nil
}

func (inv *invoker) invoke(resource any, w http.ResponseWriter, r *http.Request) (any, error) {
	rv := reflect.ValueOf(resource)
	if !rv.IsValid() || !rv.Type().AssignableTo(inv.recv) {
		return nil, fmt.Errorf("rest: resource %T does not match handler receiver %s", resource, inv.recv)
	}
	args := make([]reflect.Value, 0, len(inv.params)+1)
	args = append(args, rv)
	for _, p := range inv.params {
		switch p {
		case paramContext:
			args = append(args, reflect.ValueOf(r.Context()))
		case paramRequest:
			args = append(args, reflect.ValueOf(r))
		case paramResponseWriter:
			args = append(args, reflect.ValueOf(&w).Elem())
		}
	}

	out := inv.fn.Call(args)
	var (
		value any
		err   error
	)
	if inv.hasValue {
		if !isNil(out[0]) {
			value = out[0].Interface()
		}
	}
	if inv.hasError {
		if e := out[len(out)-1]; !e.IsNil() {
			err = e.Interface().(error)
		}
	}
	return value, err
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return !v.IsValid()
}
