package bootstrap_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/neko233-com/iocrest-go/bootstrap"
	"github.com/neko233-com/iocrest-go/ioc"
	"github.com/neko233-com/iocrest-go/rest"
)

func TestMain(m *testing.M) {
	ioc.SetLogger(ioc.NopLogger{})
	goleak.VerifyTestMain(m)
}

// testResource 绑定键为接口，路由元数据来自实现类型
type testResource interface {
	rest.Resource
	GetName() string
}

type testResourceRoutes struct{}

func (testResourceRoutes) Path() string { return "test" }

func (testResourceRoutes) Routes() []rest.Route {
	return []rest.Route{
		{Method: http.MethodGet, Handler: testResource.GetName, Produces: rest.MediaTypeText},
	}
}

type testResourceSimple struct {
	testResourceRoutes
}

func (*testResourceSimple) GetName() string { return "name" }

type testResourceInjected struct {
	testResourceRoutes
	name string
}

func newTestResourceInjected(name string) *testResourceInjected {
	return &testResourceInjected{name: name}
}

func (r *testResourceInjected) GetName() string { return r.name }

var errTest = errors.New("test exception")

type testResourceException struct {
	testResourceRoutes
}

func (*testResourceException) GetName() string { panic("unreachable") }

func (*testResourceException) Routes() []rest.Route {
	return []rest.Route{
		{Method: http.MethodGet, Handler: (*testResourceException).Fail, Produces: rest.MediaTypeText},
	}
}

func (*testResourceException) Fail() (string, error) { return "", errTest }

type testExceptionMapper struct{}

func (*testExceptionMapper) ToResponse(err error) (*rest.Response, bool) {
	if !errors.Is(err, errTest) {
		return nil, false
	}
	return rest.OK("exception"), true
}

func processModule(t *testing.T, d *rest.Deployment, m ioc.Module) *ioc.Injector {
	t.Helper()
	injector, err := ioc.CreateInjector(m)
	require.NoError(t, err)
	processor := bootstrap.NewModuleProcessor(d.Registry(), d.Providers())
	require.NoError(t, processor.ProcessInjector(context.Background(), injector))
	return injector
}

func getBody(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestResourceRegistered(t *testing.T) {
	d := rest.NewDeployment()
	server := httptest.NewServer(d)
	defer server.Close()

	processModule(t, d, ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[testResource](b).To(ioc.KeyOf[*testResourceSimple]())
	}))

	status, body := getBody(t, server.URL+"/test")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "name", body)

	key := reflect.TypeOf((*testResource)(nil)).Elem()
	assert.True(t, d.Registry().RemoveRegistrations(key))
	status, _ = getBody(t, server.URL+"/test")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestResourceInjected(t *testing.T) {
	d := rest.NewDeployment()
	server := httptest.NewServer(d)
	defer server.Close()

	processModule(t, d, ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[string](b).ToInstance("injected-name")
		ioc.Bind[testResource](b).ToConstructor(newTestResourceInjected)
	}))

	status, body := getBody(t, server.URL+"/test")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "injected-name", body)

	assert.True(t, d.Registry().RemoveRegistrations(reflect.TypeOf((*testResource)(nil)).Elem()))
}

func TestProviderFromUntargettedBinding(t *testing.T) {
	d := rest.NewDeployment()
	server := httptest.NewServer(d)
	defer server.Close()

	processModule(t, d, ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[*testExceptionMapper](b)
		ioc.Bind[testResource](b).To(ioc.KeyOf[*testResourceException]())
	}))

	require.Len(t, d.Providers().Providers(), 1)
	status, body := getBody(t, server.URL+"/test")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "exception", body)
}

type countingAPI struct {
	ID string `rest:"path=id"`
}

func (*countingAPI) Path() string { return "/count" }

func (*countingAPI) Routes() []rest.Route {
	return []rest.Route{
		{Method: http.MethodGet, Path: "/{id}", Handler: (*countingAPI).Get, Produces: rest.MediaTypeText},
	}
}

func (a *countingAPI) Get() string { return a.ID }

func TestResourceScopeFollowsBinding(t *testing.T) {
	tests := []struct {
		name     string
		scope    ioc.Scope
		wantHits int64
		requests int
	}{
		{name: "无作用域每次请求新建", scope: ioc.NoScope, wantHits: 3, requests: 3},
		{name: "单例只创建一次", scope: ioc.Singleton, wantHits: 1, requests: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := rest.NewDeployment()
			server := httptest.NewServer(d)
			defer server.Close()

			hits := new(atomic.Int64)
			processModule(t, d, ioc.ModuleFunc(func(b *ioc.Binder) {
				ioc.Bind[*countingAPI](b).ToConstructor(func(h *atomic.Int64) *countingAPI {
					h.Add(1)
					return &countingAPI{}
				}).In(tt.scope)
				ioc.Bind[*atomic.Int64](b).ToInstance(hits)
			}))

			for i := 0; i < tt.requests; i++ {
				status, body := getBody(t, server.URL+"/count/abc")
				assert.Equal(t, http.StatusOK, status)
				assert.Equal(t, "abc", body)
			}
			assert.Equal(t, tt.wantHits, hits.Load())
		})
	}
}

type searchAPI struct {
	Q string `rest:"query=q"`
}

func (*searchAPI) Path() string { return "/search" }

func (*searchAPI) Routes() []rest.Route {
	return []rest.Route{{Method: http.MethodGet, Handler: (*searchAPI).Get, Produces: rest.MediaTypeText}}
}

func (a *searchAPI) Get() string { return "q=" + a.Q }

func TestSingletonResourceDoesNotLeakParams(t *testing.T) {
	d := rest.NewDeployment()
	server := httptest.NewServer(d)
	defer server.Close()

	processModule(t, d, ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[*searchAPI](b).In(ioc.Singleton)
	}))

	status, body := getBody(t, server.URL+"/search?q=alice")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "q=alice", body)

	status, body = getBody(t, server.URL+"/search")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "q=", body, "缺失的查询参数不应沿用上一次请求的值")
}

type failingProvider struct{}

func (*failingProvider) FilterRequest(*rest.RequestContext) error { return nil }

func TestProviderInstantiationFailure(t *testing.T) {
	d := rest.NewDeployment()
	injector, err := ioc.CreateInjector(ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[*failingProvider](b).ToProviderFunc(func(context.Context) (any, error) {
			return nil, errors.New("boom")
		})
	}))
	require.NoError(t, err)

	err = bootstrap.NewModuleProcessor(d.Registry(), d.Providers()).ProcessInjector(context.Background(), injector)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Empty(t, d.Providers().Providers())
}

type filterAndResource struct{}

func (*filterAndResource) Path() string { return "/both" }

func (*filterAndResource) Routes() []rest.Route {
	return []rest.Route{{Method: http.MethodGet, Handler: (*filterAndResource).Get, Produces: rest.MediaTypeText}}
}

func (*filterAndResource) Get() string { return "both" }

func (*filterAndResource) FilterResponse(_ *http.Request, resp *rest.Response) error {
	if resp.Header == nil {
		resp.Header = http.Header{}
	}
	resp.Header.Set("X-Both", "yes")
	return nil
}

func TestBindingIsProviderAndResource(t *testing.T) {
	d := rest.NewDeployment()
	server := httptest.NewServer(d)
	defer server.Close()

	processModule(t, d, ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[*filterAndResource](b).In(ioc.Singleton)
	}))

	resp, err := http.Get(server.URL + "/both")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "yes", resp.Header.Get("X-Both"))
	assert.True(t, d.Registry().IsRegistered(reflect.TypeOf(&filterAndResource{})))
}

func TestResourceCreationErrorIsServerError(t *testing.T) {
	d := rest.NewDeployment()
	server := httptest.NewServer(d)
	defer server.Close()

	processModule(t, d, ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[*countingAPI](b).ToConstructor(func() (*countingAPI, error) {
			return nil, errors.New("no database")
		})
	}))

	status, _ := getBody(t, server.URL+"/count/1")
	assert.Equal(t, http.StatusInternalServerError, status)
}
