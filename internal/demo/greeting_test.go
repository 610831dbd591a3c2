package demo_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neko233-com/iocrest-go/bootstrap"
	"github.com/neko233-com/iocrest-go/internal/demo"
	"github.com/neko233-com/iocrest-go/ioc"
)

func init() {
	ioc.SetLogger(ioc.NopLogger{})
}

func newDeployment(t *testing.T) (*bootstrap.Listener, *bootstrap.Context) {
	t.Helper()
	sc := &bootstrap.Context{InitParams: map[string]string{
		bootstrap.ParamModules: demo.ModuleName,
		bootstrap.ParamStage:   "PRODUCTION",
	}}
	l := bootstrap.NewListener()
	require.NoError(t, l.ContextInitialized(context.Background(), sc))
	t.Cleanup(func() { l.ContextDestroyed(context.Background(), sc) })
	return l, sc
}

func TestGreetingAPI(t *testing.T) {
	_, sc := newDeployment(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   any
	}{
		{
			name:       "列表",
			path:       "/greetings",
			wantStatus: http.StatusOK,
			wantBody: []any{
				map[string]any{"name": "gopher", "message": "Hello, gopher!"},
				map[string]any{"name": "neko", "message": "Hello, neko!"},
			},
		},
		{
			name:       "认识的名字",
			path:       "/greetings/neko",
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"name": "neko", "message": "Hello, neko!"},
		},
		{
			name:       "不认识的名字",
			path:       "/greetings/alice",
			wantStatus: http.StatusNotFound,
			wantBody:   map[string]any{"error": `demo: unknown name: "alice"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			sc.Deployment.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

			var got any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.wantBody, got)
		})
	}
}

func TestGreeterIsSingleton(t *testing.T) {
	l, _ := newDeployment(t)
	ctx := context.Background()
	g1 := ioc.MustGet[*demo.Greeter](ctx, l.Injector())
	g2 := ioc.MustGet[*demo.Greeter](ctx, l.Injector())
	assert.Same(t, g1, g2)
	assert.Equal(t, "Hello, %s!", g1.Template)

	g1.Learn("neko", "rust")
	assert.Equal(t, []string{"gopher", "neko", "rust"}, g2.Names())
}
