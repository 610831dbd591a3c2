package ext

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"

	"github.com/neko233-com/iocrest-go/ioc"
)

// DefaultCORSOptions 未指定选项时使用
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           int((5 * time.Minute).Seconds()),
	}
}

// CORSFilter rest.Middleware 形式的 CORS 处理
type CORSFilter struct {
	handler func(http.Handler) http.Handler
}

func NewCORSFilter(opts cors.Options) *CORSFilter {
	return &CORSFilter{handler: cors.Handler(opts)}
}

func (f *CORSFilter) Middleware(next http.Handler) http.Handler {
	return f.handler(next)
}

// CORSModule 绑定 *CORSFilter；Options 为空时使用 DefaultCORSOptions
type CORSModule struct {
	Options *cors.Options
}

func (m *CORSModule) Configure(b *ioc.Binder) {
	opts := DefaultCORSOptions()
	if m.Options != nil {
		opts = *m.Options
	}
	ioc.Bind[*CORSFilter](b).ToInstance(NewCORSFilter(opts))
}
