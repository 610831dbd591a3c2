package ioc

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// Injector 注入器
// 设计目标：
//   - 只负责"绑定解析 + 依赖注入"，不关心对象的业务用途
//   - 资源、Provider 的识别与注册交由 bootstrap 包遍历 Bindings() 完成
//   - 查找顺序：自身显式绑定 -> 父注入器显式绑定 -> 即时绑定（结构体/结构体指针）
type Injector struct {
	mutex sync.RWMutex

	parent *Injector
	stage  Stage

	// 显式绑定（创建后只读）
	bindings map[Key]*Binding
	order    []*Binding

	// 即时绑定缓存
	jit map[Key]*Binding
}

// CreateInjector 以 DEVELOPMENT 阶段创建注入器
func CreateInjector(modules ...Module) (*Injector, error) {
	return createInjector(nil, StageDevelopment, modules)
}

// CreateInjectorWithStage 以指定阶段创建注入器
func CreateInjectorWithStage(stage Stage, modules ...Module) (*Injector, error) {
	return createInjector(nil, stage, modules)
}

// CreateChildInjector 创建子注入器，继承父注入器的阶段与全部绑定
// 子注入器不能重新绑定父注入器已显式绑定的键
func (i *Injector) CreateChildInjector(modules ...Module) (*Injector, error) {
	return createInjector(i, i.stage, modules)
}

func createInjector(parent *Injector, stage Stage, modules []Module) (*Injector, error) {
	logInfo("[iocrest] 🚀 正在创建注入器: stage=%s modules=%d child=%t", stage, len(modules), parent != nil)

	inj := &Injector{
		parent:   parent,
		stage:    stage,
		bindings: make(map[Key]*Binding),
		order:    make([]*Binding, 0, 16),
		jit:      make(map[Key]*Binding),
	}
	inj.addBuiltin(KeyOf[*Injector](), inj)
	inj.addBuiltin(KeyOf[Stage](), stage)

	binder := &Binder{stage: stage}
	for _, m := range modules {
		binder.Install(m)
	}
	errs := append([]error(nil), binder.errs...)

	for _, b := range binder.bindings {
		if b.key.Type == nil {
			continue
		}
		if existing, ok := inj.bindings[b.key]; ok {
			if existing.builtin {
				errs = append(errs, fmt.Errorf("ioc: %s is bound by the injector itself", b.key))
			} else {
				errs = append(errs, fmt.Errorf("ioc: %s is already bound (first in %s, again in %s)", b.key, existing.source, b.source))
			}
			continue
		}
		if parent != nil {
			if pb := parent.explicitBinding(b.key); pb != nil && !pb.builtin {
				errs = append(errs, fmt.Errorf("ioc: %s is already bound in a parent injector (%s)", b.key, pb.source))
				continue
			}
		}
		if b.kind == KindUntargetted && !constructible(b.key.Type) {
			errs = append(errs, fmt.Errorf("ioc: %s has no implementation bound", b.key))
			continue
		}
		b.injector = inj
		inj.bindings[b.key] = b
		inj.order = append(inj.order, b)
	}
	if len(errs) > 0 {
		return nil, &CreationError{Errors: errs}
	}

	for _, b := range inj.order {
		b.scoped = b.Scope().Scope(b.key, inj.unscoped(b))
	}

	for _, b := range inj.order {
		if b.kind != KindLinked && b.kind != KindProviderKey {
			continue
		}
		if !inj.resolvable(b.linked) {
			errs = append(errs, fmt.Errorf("ioc: %s links to %w", b.key, &MissingBindingError{Key: b.linked}))
		}
	}

	ctx := context.Background()

	// 实例绑定的字段注入
	for _, b := range inj.order {
		if b.kind != KindInstance || b.builtin {
			continue
		}
		if err := inj.injectInstance(ctx, b.instance); err != nil {
			errs = append(errs, fmt.Errorf("ioc: injecting members of %s: %w", b.key, err))
		}
	}
	if len(errs) > 0 {
		return nil, &CreationError{Errors: errs}
	}

	// 预先实例化单例
	if stage != StageTool {
		for _, b := range inj.order {
			if !b.eager && (stage != StageProduction || b.Scope() != Singleton) {
				continue
			}
			if _, err := inj.resolve(ctx, b); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return nil, &CreationError{Errors: errs}
	}

	// 注入完成回调
	for _, b := range inj.order {
		if b.kind != KindInstance || b.builtin {
			continue
		}
		if obj, ok := b.instance.(IObject); ok {
			logInfo("[iocrest] 注入完成回调: %s", b.key)
			obj.OnInjectComplete()
		}
	}

	logInfo("[iocrest] ✅ 注入器创建完成: stage=%s bindings=%d", stage, len(inj.order))
	return inj, nil
}

func (i *Injector) addBuiltin(key Key, v any) {
	b := &Binding{
		key:      key,
		kind:     KindInstance,
		source:   "builtin",
		instance: v,
		target:   reflect.TypeOf(v),
		builtin:  true,
		injector: i,
	}
	b.scoped = NoScope.Scope(key, i.unscoped(b))
	i.bindings[key] = b
	i.order = append(i.order, b)
}

// Parent 父注入器，根注入器返回 nil
func (i *Injector) Parent() *Injector { return i.parent }

// Stage 注入器阶段
func (i *Injector) Stage() Stage { return i.stage }

// Bindings 本注入器的显式绑定（内置绑定在前，其余按声明顺序），不包含父注入器与即时绑定
func (i *Injector) Bindings() []*Binding {
	i.mutex.RLock()
	defer i.mutex.RUnlock()
	out := make([]*Binding, len(i.order))
	copy(out, i.order)
	return out
}

// Binding 查找显式绑定（含父注入器）
func (i *Injector) Binding(key Key) (*Binding, bool) {
	b := i.explicitBinding(key)
	return b, b != nil
}

// GetInstance 按键获取实例
func (i *Injector) GetInstance(ctx context.Context, key Key) (any, error) {
	return i.getInstance(ctx, key)
}

// GetProvider 按键获取 Provider；键无法解析时立即返回错误
func (i *Injector) GetProvider(key Key) (Provider, error) {
	b, err := i.lookup(key)
	if err != nil {
		return nil, err
	}
	return b.Provider(), nil
}

// InjectMembers 为已有对象注入带 inject/autowire 标签的字段
func (i *Injector) InjectMembers(ctx context.Context, target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("ioc: InjectMembers needs a non-nil pointer to struct, got %T", target)
	}
	return i.injectInstance(ctx, target)
}

// Get 泛型获取：ioc.Get[*UserService](ctx, injector)
func Get[T any](ctx context.Context, i *Injector) (T, error) {
	return getTyped[T](ctx, i, KeyOf[T]())
}

// GetNamed 泛型按名称获取
func GetNamed[T any](ctx context.Context, i *Injector, name string) (T, error) {
	return getTyped[T](ctx, i, NamedKey[T](name))
}

// MustGet 获取失败时 panic，适合在启动代码与测试中使用
func MustGet[T any](ctx context.Context, i *Injector) T {
	v, err := Get[T](ctx, i)
	if err != nil {
		panic(err)
	}
	return v
}

func getTyped[T any](ctx context.Context, i *Injector, key Key) (T, error) {
	var zero T
	v, err := i.getInstance(ctx, key)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, &ProvisionError{Key: key, Err: fmt.Errorf("got %T", v)}
	}
	return typed, nil
}

// ==================== 解析 ====================

func (i *Injector) getInstance(ctx context.Context, key Key) (any, error) {
	b, err := i.lookup(key)
	if err != nil {
		return nil, err
	}
	return b.injector.resolve(ctx, b)
}

func (i *Injector) lookup(key Key) (*Binding, error) {
	if b := i.explicitBinding(key); b != nil {
		return b, nil
	}
	if !key.jitEligible() {
		return nil, &MissingBindingError{Key: key}
	}
	return i.jitBinding(key), nil
}

func (i *Injector) explicitBinding(key Key) *Binding {
	for inj := i; inj != nil; inj = inj.parent {
		inj.mutex.RLock()
		b := inj.bindings[key]
		inj.mutex.RUnlock()
		if b != nil {
			return b
		}
	}
	return nil
}

func (i *Injector) jitBinding(key Key) *Binding {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	if b, ok := i.jit[key]; ok {
		return b
	}
	b := &Binding{key: key, kind: KindJIT, source: "just-in-time", target: key.Type, injector: i}
	b.scoped = NoScope.Scope(key, i.unscoped(b))
	i.jit[key] = b
	logDebug("[iocrest] 创建即时绑定: %s", key)
	return b
}

func (i *Injector) resolvable(key Key) bool {
	return i.explicitBinding(key) != nil || key.jitEligible()
}

type pathCtxKey struct{}

// resolutionPath 当前解析链，用于循环依赖检测
type resolutionPath struct {
	key  Key
	prev *resolutionPath
}

func (i *Injector) resolve(ctx context.Context, b *Binding) (any, error) {
	path, _ := ctx.Value(pathCtxKey{}).(*resolutionPath)
	for p := path; p != nil; p = p.prev {
		if p.key == b.key {
			return nil, &CycleError{Path: cyclePath(path, b.key)}
		}
	}
	ctx = context.WithValue(ctx, pathCtxKey{}, &resolutionPath{key: b.key, prev: path})
	v, err := b.scoped.Get(ctx)
	if err != nil {
		var ce *CycleError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, &ProvisionError{Key: b.key, Err: err}
	}
	return v, nil
}

func cyclePath(path *resolutionPath, key Key) []Key {
	var reversed []Key
	for p := path; p != nil; p = p.prev {
		reversed = append(reversed, p.key)
		if p.key == key {
			break
		}
	}
	out := make([]Key, 0, len(reversed)+1)
	for idx := len(reversed) - 1; idx >= 0; idx-- {
		out = append(out, reversed[idx])
	}
	return append(out, key)
}

// unscoped 生成未作用域化的 Provider，闭包捕获所属注入器，依赖在所属注入器内解析
func (i *Injector) unscoped(b *Binding) Provider {
	switch b.kind {
	case KindInstance:
		return ProviderFunc(func(context.Context) (any, error) {
			return b.instance, nil
		})
	case KindLinked:
		return ProviderFunc(func(ctx context.Context) (any, error) {
			return i.getInstance(ctx, b.linked)
		})
	case KindProvider:
		return ProviderFunc(func(ctx context.Context) (any, error) {
			v, err := b.raw.Get(ctx)
			if err != nil {
				return nil, err
			}
			return checkProvided(b.key, v)
		})
	case KindProviderKey:
		return ProviderFunc(func(ctx context.Context) (any, error) {
			pv, err := i.getInstance(ctx, b.linked)
			if err != nil {
				return nil, err
			}
			p, ok := pv.(Provider)
			if !ok {
				return nil, fmt.Errorf("%s is not an ioc.Provider", b.linked)
			}
			v, err := p.Get(ctx)
			if err != nil {
				return nil, err
			}
			return checkProvided(b.key, v)
		})
	case KindConstructor:
		return ProviderFunc(func(ctx context.Context) (any, error) {
			return i.construct(ctx, b.constructor)
		})
	default:
		return ProviderFunc(func(ctx context.Context) (any, error) {
			return i.newStruct(ctx, b.key.Type)
		})
	}
}

func checkProvided(key Key, v any) (any, error) {
	if v == nil {
		return nil, errors.New("provider returned nil")
	}
	if t := reflect.TypeOf(v); !t.AssignableTo(key.Type) {
		return nil, fmt.Errorf("provider returned %s, not assignable to %s", t, key.Type)
	}
	return v, nil
}

func (i *Injector) construct(ctx context.Context, fn reflect.Value) (any, error) {
	ft := fn.Type()
	args := make([]reflect.Value, ft.NumIn())
	for idx := 0; idx < ft.NumIn(); idx++ {
		pt := ft.In(idx)
		if pt == contextType {
			args[idx] = reflect.ValueOf(ctx)
			continue
		}
		v, err := i.getInstance(ctx, KeyForType(pt))
		if err != nil {
			return nil, fmt.Errorf("constructor parameter %d (%s): %w", idx, pt, err)
		}
		if v == nil {
			args[idx] = reflect.Zero(pt)
		} else {
			args[idx] = reflect.ValueOf(v)
		}
	}
	out := fn.Call(args)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	if isNilValue(out[0]) {
		return nil, errors.New("constructor returned nil")
	}
	result := out[0].Interface()
	if err := i.injectInstance(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (i *Injector) newStruct(ctx context.Context, t reflect.Type) (any, error) {
	elemType := t
	if t.Kind() == reflect.Ptr {
		elemType = t.Elem()
	}
	pv := reflect.New(elemType)
	initBasicFields(pv)
	if err := i.injectInstance(ctx, pv.Interface()); err != nil {
		return nil, err
	}
	if t.Kind() == reflect.Ptr {
		return pv.Interface(), nil
	}
	return pv.Elem().Interface(), nil
}

func constructible(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

func isNilValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return !v.IsValid()
}
