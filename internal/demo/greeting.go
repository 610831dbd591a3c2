// Package demo 示例模块 demo.greeting，供命令行与测试使用
package demo

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/neko233-com/iocrest-go/bootstrap"
	"github.com/neko233-com/iocrest-go/ioc"
	"github.com/neko233-com/iocrest-go/rest"
)

const ModuleName = "demo.greeting"

// TemplateKey 问候模板的绑定名
const TemplateKey = "greeting.template"

var ErrUnknownName = errors.New("demo: unknown name")

func init() {
	bootstrap.RegisterModule(ModuleName, func() ioc.Module { return NewGreetingModule() })
}

type Greeting struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Greeter 单例，只问候认识的名字
type Greeter struct {
	Template string `inject:"greeting.template"`

	mutex sync.RWMutex
	names []string
}

func NewGreeter() *Greeter {
	return &Greeter{}
}

func (g *Greeter) Learn(names ...string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	for _, name := range names {
		if !slices.Contains(g.names, name) {
			g.names = append(g.names, name)
		}
	}
}

func (g *Greeter) Names() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return slices.Clone(g.names)
}

func (g *Greeter) Greet(name string) (Greeting, error) {
	g.mutex.RLock()
	known := slices.Contains(g.names, name)
	g.mutex.RUnlock()
	if !known {
		return Greeting{}, fmt.Errorf("%w: %q", ErrUnknownName, name)
	}
	return Greeting{Name: name, Message: fmt.Sprintf(g.Template, name)}, nil
}

// GreetingAPI /greetings
type GreetingAPI struct {
	Greeter *Greeter `inject:""`
	Name    string   `rest:"path=name"`
}

func (*GreetingAPI) Path() string { return "/greetings" }

func (*GreetingAPI) Routes() []rest.Route {
	return []rest.Route{
		{Method: http.MethodGet, Path: "/", Handler: (*GreetingAPI).List},
		{Method: http.MethodGet, Path: "/{name}", Handler: (*GreetingAPI).Get},
	}
}

func (a *GreetingAPI) List() ([]Greeting, error) {
	names := a.Greeter.Names()
	out := make([]Greeting, 0, len(names))
	for _, name := range names {
		g, err := a.Greeter.Greet(name)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (a *GreetingAPI) Get() (Greeting, error) {
	return a.Greeter.Greet(a.Name)
}

// UnknownNameMapper ErrUnknownName -> 404
type UnknownNameMapper struct{}

func (*UnknownNameMapper) ToResponse(err error) (*rest.Response, bool) {
	if !errors.Is(err, ErrUnknownName) {
		return nil, false
	}
	return rest.Status(http.StatusNotFound).
		Entity(map[string]string{"error": err.Error()}).
		Type(rest.MediaTypeJSON).
		Build(), true
}

// GreetingModule 绑定 GreetingAPI、单例 Greeter、问候模板与异常映射
type GreetingModule struct {
	Template string
	Names    []string

	greeter atomic.Pointer[Greeter]
}

func NewGreetingModule() *GreetingModule {
	return &GreetingModule{
		Template: "Hello, %s!",
		Names:    []string{"gopher", "neko"},
	}
}

func (m *GreetingModule) Configure(b *ioc.Binder) {
	ioc.BindNamed[string](b, TemplateKey).ToInstance(m.Template)
	ioc.Bind[*Greeter](b).ToConstructor(func() *Greeter {
		g := NewGreeter()
		g.Learn(m.Names...)
		m.greeter.Store(g)
		return g
	}).In(ioc.Singleton)
	ioc.Bind[*UnknownNameMapper](b)
	ioc.Bind[*GreetingAPI](b)
}

func (m *GreetingModule) PostConstruct() {
	ioc.GetLogger().Info("[iocrest] demo.greeting 已就绪: names=%v", m.Names)
}

func (m *GreetingModule) PreDestroy() {
	if g := m.greeter.Load(); g != nil {
		ioc.GetLogger().Info("[iocrest] demo.greeting 关闭: names=%v", g.Names())
	}
}
