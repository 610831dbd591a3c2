package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/neko233-com/iocrest-go/ioc"
	"github.com/neko233-com/iocrest-go/rest"
)

// 初始化参数
const (
	// ParamModules 逗号分隔的模块注册名
	ParamModules = "iocrest.modules"
	// ParamStage DEVELOPMENT / PRODUCTION / TOOL
	ParamStage = "iocrest.stage"
)

// Context 部署上下文：初始化参数与要接入的部署
// Deployment 为空时 ContextInitialized 会创建一个
type Context struct {
	InitParams map[string]string
	Deployment *rest.Deployment
}

// InitParameter 读取初始化参数，不存在时返回空串
func (c *Context) InitParameter(name string) string {
	if c == nil || c.InitParams == nil {
		return ""
	}
	return c.InitParams[name]
}

// Listener 部署生命周期监听器
//
// ParentInjector 可以由上层注入器通过 InjectMembers 注入；设置后创建子注入器，
// 子注入器沿用父注入器的阶段，iocrest.stage 参数被忽略。
type Listener struct {
	ParentInjector *ioc.Injector `inject:"optional"`

	modulesFunc  func(sc *Context) ([]ioc.Module, error)
	stageFunc    func(sc *Context) (ioc.Stage, error)
	withInjector func(sc *Context, injector *ioc.Injector) error

	mutex    sync.Mutex
	modules  []ioc.Module
	injector *ioc.Injector
}

// ListenerOption 监听器选项
type ListenerOption func(*Listener)

// ModulesFunc 替换模块来源，默认为 DefaultModules
func ModulesFunc(fn func(sc *Context) ([]ioc.Module, error)) ListenerOption {
	return func(l *Listener) { l.modulesFunc = fn }
}

// StageFunc 替换阶段来源，默认为 DefaultStage
func StageFunc(fn func(sc *Context) (ioc.Stage, error)) ListenerOption {
	return func(l *Listener) { l.stageFunc = fn }
}

// WithInjector 注入器创建之后、注册资源之前调用
func WithInjector(fn func(sc *Context, injector *ioc.Injector) error) ListenerOption {
	return func(l *Listener) { l.withInjector = fn }
}

// WithModules 固定的模块列表
func WithModules(modules ...ioc.Module) ListenerOption {
	return ModulesFunc(func(*Context) ([]ioc.Module, error) { return modules, nil })
}

// WithParentInjector 等价于直接设置 ParentInjector
func WithParentInjector(parent *ioc.Injector) ListenerOption {
	return func(l *Listener) { l.ParentInjector = parent }
}

func NewListener(opts ...ListenerOption) *Listener {
	l := &Listener{
		modulesFunc: DefaultModules,
		stageFunc:   DefaultStage,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DefaultModules 从 iocrest.modules 参数读取模块名并通过 LookupModule 创建
func DefaultModules(sc *Context) ([]ioc.Module, error) {
	raw := sc.InitParameter(ParamModules)
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var modules []ioc.Module
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		logInfo("[iocrest] 发现模块: %s", name)
		m, err := LookupModule(name)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return modules, nil
}

// ErrInvalidStage 阶段参数无效；错误链中同时包含 ioc.ErrInvalidStage
var ErrInvalidStage = errors.New("bootstrap: injector stage not properly defined")

// DefaultStage 从 iocrest.stage 参数读取阶段，未设置时为 DEVELOPMENT
func DefaultStage(sc *Context) (ioc.Stage, error) {
	raw := sc.InitParameter(ParamStage)
	if strings.TrimSpace(raw) == "" {
		return ioc.StageDevelopment, nil
	}
	stage, err := ioc.ParseStage(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is wrong value, possible values are PRODUCTION, DEVELOPMENT, TOOL: %w", ErrInvalidStage, raw, err)
	}
	return stage, nil
}

// ContextInitialized 创建注入器并把 Provider 与资源注册到部署，最后调用 PostConstruct 方法
func (l *Listener) ContextInitialized(ctx context.Context, sc *Context) error {
	if sc == nil {
		return errors.New("bootstrap: nil context")
	}
	if sc.Deployment == nil {
		sc.Deployment = rest.NewDeployment()
	}
	deployment := sc.Deployment
	if err := installRequestScope(deployment.Providers()); err != nil {
		return err
	}

	modules, err := l.modulesFunc(sc)
	if err != nil {
		return err
	}
	stage, err := l.stageFunc(sc)
	if err != nil {
		return err
	}

	var injector *ioc.Injector
	if l.ParentInjector != nil {
		logInfo("[iocrest] 使用父注入器创建子注入器: modules=%d", len(modules))
		injector, err = l.ParentInjector.CreateChildInjector(modules...)
	} else {
		injector, err = ioc.CreateInjectorWithStage(stage, modules...)
	}
	if err != nil {
		return err
	}

	if l.withInjector != nil {
		if err := l.withInjector(sc, injector); err != nil {
			return err
		}
	}

	processor := NewModuleProcessor(deployment.Registry(), deployment.Providers())
	for inj := injector; inj != nil; inj = inj.Parent() {
		if err := processor.ProcessInjector(ctx, inj); err != nil {
			return err
		}
	}

	l.mutex.Lock()
	l.modules = modules
	l.injector = injector
	l.mutex.Unlock()

	triggerAnnotatedMethods(modules, PostConstruct)
	logInfo("[iocrest] ✅ 部署初始化完成: stage=%s resources=%d", injector.Stage(), deployment.Registry().Size())
	return nil
}

// ContextDestroyed 调用 PreDestroy 方法
func (l *Listener) ContextDestroyed(ctx context.Context, sc *Context) {
	l.mutex.Lock()
	modules := l.modules
	l.mutex.Unlock()

	triggerAnnotatedMethods(modules, PreDestroy)
	logInfo("[iocrest] 部署已销毁: modules=%d", len(modules))
}

// Injector 初始化后创建的注入器
func (l *Listener) Injector() *ioc.Injector {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.injector
}

// Modules 初始化时使用的模块
func (l *Listener) Modules() []ioc.Module {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return append([]ioc.Module(nil), l.modules...)
}
