// Package ext 常用的标准绑定模块。
package ext

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/neko233-com/iocrest-go/bootstrap"
	"github.com/neko233-com/iocrest-go/ioc"
	"github.com/neko233-com/iocrest-go/rest"
)

// 模块注册名
const (
	JaxrsModuleName = "ext.jaxrs"
	CORSModuleName  = "ext.cors"
)

func init() {
	bootstrap.RegisterModule(JaxrsModuleName, func() ioc.Module { return &JaxrsModule{} })
	bootstrap.RegisterModule(CORSModuleName, func() ioc.Module { return &CORSModule{} })
}

// DefaultClientTimeout NewClientEngine 的默认超时
const DefaultClientTimeout = 30 * time.Second

// JaxrsModule 绑定出站 HTTP 客户端与运行时对象工厂
//
//	*http.Client              每次注入新建，共享一个 Transport
//	*rest.RuntimeDelegate     实例
//	*rest.ResponseBuilder     由 ResponseBuilderProvider 提供
//	*rest.URLBuilder          由 URLBuilderProvider 提供
//	*rest.VariantListBuilder  由 VariantListBuilderProvider 提供
type JaxrsModule struct {
	// BaseURL 非空时作为 URLBuilder 的默认 scheme/host/path
	BaseURL string
	// ClientTimeout 为 0 时使用 DefaultClientTimeout
	ClientTimeout time.Duration
}

func (m *JaxrsModule) Configure(b *ioc.Binder) {
	delegate := rest.NewRuntimeDelegate()
	if m.BaseURL != "" {
		u, err := url.Parse(m.BaseURL)
		if err != nil {
			b.AddError(err)
			return
		}
		delegate.BaseURL = u
	}

	timeout := m.ClientTimeout
	if timeout <= 0 {
		timeout = DefaultClientTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()

	ioc.Bind[*http.Client](b).ToConstructor(func() *http.Client {
		return NewClientEngine(transport, timeout)
	})
	ioc.Bind[*rest.RuntimeDelegate](b).ToInstance(delegate)
	ioc.Bind[*rest.ResponseBuilder](b).ToProviderKey(ioc.KeyOf[*ResponseBuilderProvider]())
	ioc.Bind[*rest.URLBuilder](b).ToProviderKey(ioc.KeyOf[*URLBuilderProvider]())
	ioc.Bind[*rest.VariantListBuilder](b).ToProviderKey(ioc.KeyOf[*VariantListBuilderProvider]())
}

// NewClientEngine 出站请求使用的 HTTP 客户端
func NewClientEngine(transport http.RoundTripper, timeout time.Duration) *http.Client {
	return &http.Client{Transport: transport, Timeout: timeout}
}

type ResponseBuilderProvider struct {
	Delegate *rest.RuntimeDelegate `inject:""`
}

func (p *ResponseBuilderProvider) Get(context.Context) (any, error) {
	return p.Delegate.CreateResponseBuilder(), nil
}

type URLBuilderProvider struct {
	Delegate *rest.RuntimeDelegate `inject:""`
}

func (p *URLBuilderProvider) Get(context.Context) (any, error) {
	return p.Delegate.CreateURLBuilder(), nil
}

type VariantListBuilderProvider struct {
	Delegate *rest.RuntimeDelegate `inject:""`
}

func (p *VariantListBuilderProvider) Get(context.Context) (any, error) {
	return p.Delegate.CreateVariantListBuilder(), nil
}
