package bootstrap

import (
	"fmt"
	"net/http"
	"reflect"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neko233-com/iocrest-go/ioc"
	"github.com/neko233-com/iocrest-go/rest"
)

const tracerName = "github.com/neko233-com/iocrest-go/bootstrap"

// InjectorResourceFactory 每次请求通过绑定的 Provider 获取资源实例
// 实例的作用域由绑定决定：无作用域每次新建，Singleton 共享，RequestScoped 每请求一个
type InjectorResourceFactory struct {
	provider  ioc.Provider
	scannable reflect.Type
	impl      reflect.Type
	tracer    trace.Tracer
}

func NewInjectorResourceFactory(provider ioc.Provider, scannable reflect.Type) *InjectorResourceFactory {
	return &InjectorResourceFactory{
		provider:  provider,
		scannable: scannable,
		tracer:    otel.Tracer(tracerName),
	}
}

// WithImplementationType 绑定键为接口时，用实现类型读取资源元数据
func (f *InjectorResourceFactory) WithImplementationType(t reflect.Type) *InjectorResourceFactory {
	f.impl = t
	return f
}

func (f *InjectorResourceFactory) ScannableType() reflect.Type { return f.scannable }

func (f *InjectorResourceFactory) ImplementationType() reflect.Type { return f.impl }

func (f *InjectorResourceFactory) Registered(*rest.ProviderFactory) {}

func (f *InjectorResourceFactory) CreateResource(w http.ResponseWriter, r *http.Request, providers *rest.ProviderFactory) (any, error) {
	ctx, span := f.tracer.Start(r.Context(), "iocrest.CreateResource",
		trace.WithAttributes(attribute.String("iocrest.resource", f.scannable.String())),
	)
	defer span.End()

	instance, err := f.provider.Get(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("bootstrap: creating resource %s: %w", f.scannable, err)
	}

	pi, err := providers.PropertyInjectorFor(reflect.TypeOf(instance))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := pi.Inject(w, r, instance); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return instance, nil
}

func (f *InjectorResourceFactory) RequestFinished(http.ResponseWriter, *http.Request, any) {}

func (f *InjectorResourceFactory) Unregistered() {}
