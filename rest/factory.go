package rest

import (
	"fmt"
	"net/http"
	"reflect"
)

// ResourceFactory 资源工厂：Registry 为每个资源保存一个工厂，每次请求由它提供资源实例
type ResourceFactory interface {
	// ScannableType 用于读取元数据与去重的类型
	ScannableType() reflect.Type
	// Registered 注册到 Registry 之后调用
	Registered(providers *ProviderFactory)
	CreateResource(w http.ResponseWriter, r *http.Request, providers *ProviderFactory) (any, error)
	RequestFinished(w http.ResponseWriter, r *http.Request, resource any)
	Unregistered()
}

// ImplementationTyper 可选接口：ScannableType 为接口时，由它给出读取元数据用的实现类型
type ImplementationTyper interface {
	ImplementationType() reflect.Type
}

// POJOResourceFactory 每次请求用 reflect.New 创建新的资源实例
type POJOResourceFactory struct {
	typ      reflect.Type
	injector *PropertyInjector
}

// NewPOJOResourceFactory t 必须是结构体指针类型
func NewPOJOResourceFactory(t reflect.Type) (*POJOResourceFactory, error) {
	if t == nil || t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("rest: %s is not a pointer to struct", t)
	}
	return &POJOResourceFactory{typ: t}, nil
}

func (f *POJOResourceFactory) ScannableType() reflect.Type { return f.typ }

func (f *POJOResourceFactory) Registered(providers *ProviderFactory) {
	pi, err := providers.PropertyInjectorFor(f.typ)
	if err != nil {
		logWarn("[iocrest] 资源 %s 的属性注入器无效: %v", f.typ, err)
		return
	}
	f.injector = pi
}

func (f *POJOResourceFactory) CreateResource(w http.ResponseWriter, r *http.Request, providers *ProviderFactory) (any, error) {
	resource := reflect.New(f.typ.Elem()).Interface()
	pi := f.injector
	if pi == nil {
		var err error
		if pi, err = providers.PropertyInjectorFor(f.typ); err != nil {
			return nil, err
		}
	}
	if err := pi.Inject(w, r, resource); err != nil {
		return nil, err
	}
	return resource, nil
}

func (f *POJOResourceFactory) RequestFinished(http.ResponseWriter, *http.Request, any) {}

func (f *POJOResourceFactory) Unregistered() {}
