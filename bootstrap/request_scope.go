package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/neko233-com/iocrest-go/ioc"
	"github.com/neko233-com/iocrest-go/rest"
)

// RequestScopeModuleName RequestScopeModule 的注册名
const RequestScopeModuleName = "bootstrap.request-scope"

func init() {
	RegisterModule(RequestScopeModuleName, func() ioc.Module { return RequestScopeModule{} })
}

var errNoDispatch = errors.New("bootstrap: no request is being dispatched")

// RequestScopeMiddleware 为每个请求进入 ioc 请求作用域
type RequestScopeMiddleware struct{}

func (RequestScopeMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(ioc.EnterRequestScope(r.Context())))
	})
}

// installRequestScope 每个部署只安装一次
func installRequestScope(providers *rest.ProviderFactory) error {
	installed := slices.ContainsFunc(providers.Providers(), func(p any) bool {
		_, ok := p.(RequestScopeMiddleware)
		return ok
	})
	if installed {
		return nil
	}
	return providers.RegisterProviderInstance(RequestScopeMiddleware{})
}

// RequestScopeModule 在请求作用域内绑定当前请求的 *http.Request、http.ResponseWriter 与 context.Context
type RequestScopeModule struct{}

func (RequestScopeModule) Configure(b *ioc.Binder) {
	ioc.Bind[*http.Request](b).ToProviderFunc(func(ctx context.Context) (any, error) {
		r, ok := rest.RequestFromContext(ctx)
		if !ok {
			return nil, errNoDispatch
		}
		return r, nil
	}).In(ioc.RequestScoped)

	ioc.Bind[http.ResponseWriter](b).ToProviderFunc(func(ctx context.Context) (any, error) {
		w, ok := rest.ResponseWriterFromContext(ctx)
		if !ok {
			return nil, errNoDispatch
		}
		return w, nil
	}).In(ioc.RequestScoped)

	ioc.Bind[context.Context](b).ToProviderFunc(func(ctx context.Context) (any, error) {
		r, ok := rest.RequestFromContext(ctx)
		if !ok {
			return nil, errNoDispatch
		}
		return r.Context(), nil
	}).In(ioc.RequestScoped)
}
