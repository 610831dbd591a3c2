package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deployment chi 路由 + Registry + ProviderFactory
type Deployment struct {
	router    *chi.Mux
	registry  *Registry
	providers *ProviderFactory
	rootPath  string
}

type deploymentOptions struct {
	rootPath    string
	observer    Observer
	middlewares []func(http.Handler) http.Handler
}

// Option 部署选项
type Option func(*deploymentOptions)

// WithRootPath 所有资源路由的公共前缀
func WithRootPath(path string) Option {
	return func(o *deploymentOptions) { o.rootPath = path }
}

func WithObserver(observer Observer) Option {
	return func(o *deploymentOptions) { o.observer = observer }
}

// WithRouterMiddleware 追加 chi 全局中间件，位于默认的 RequestID、RealIP、Recoverer 之后
func WithRouterMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(o *deploymentOptions) { o.middlewares = append(o.middlewares, mw...) }
}

func NewDeployment(opts ...Option) *Deployment {
	o := deploymentOptions{observer: NopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	for _, mw := range o.middlewares {
		router.Use(mw)
	}

	providers := NewProviderFactory()
	// 路径存在但方法未声明的请求（如 CORS 预检）同样经过 Provider 中间件
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		providers.Wrap(http.HandlerFunc(methodNotAllowed)).ServeHTTP(w, r)
	})
	return &Deployment{
		router:    router,
		registry:  NewRegistry(router, providers, o.observer, o.rootPath),
		providers: providers,
		rootPath:  joinPath(o.rootPath),
	}
}

func (d *Deployment) Registry() *Registry { return d.registry }

func (d *Deployment) Providers() *ProviderFactory { return d.providers }

func (d *Deployment) Router() chi.Router { return d.router }

func (d *Deployment) RootPath() string { return d.rootPath }

// Mount 挂载资源体系之外的处理器，例如 /metrics
func (d *Deployment) Mount(pattern string, h http.Handler) {
	d.router.Handle(pattern, h)
}

func (d *Deployment) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.router.ServeHTTP(w, r)
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
