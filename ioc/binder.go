package ioc

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

// Module 模块：向 Binder 声明绑定
type Module interface {
	Configure(b *Binder)
}

// ModuleFunc 函数适配器
type ModuleFunc func(b *Binder)

func (f ModuleFunc) Configure(b *Binder) { f(b) }

// ModuleName 模块的展示名（类型名，不含包名）
func ModuleName(m Module) string {
	if m == nil {
		return "<nil>"
	}
	return typeDisplayName(reflect.TypeOf(m))
}

// Binder 收集模块声明的绑定与配置错误
// 配置错误不会立即中断，而是在创建注入器时统一返回
type Binder struct {
	stage    Stage
	source   string
	bindings []*Binding
	errs     []error
}

// Stage 当前注入器的阶段，模块可以据此调整绑定
func (b *Binder) Stage() Stage { return b.stage }

// AddError 记录配置错误
func (b *Binder) AddError(err error) {
	if err != nil {
		b.errs = append(b.errs, err)
	}
}

// Install 安装子模块
func (b *Binder) Install(m Module) {
	if m == nil {
		b.AddError(errors.New("ioc: install of nil module"))
		return
	}
	prev := b.source
	b.source = ModuleName(m)
	defer func() { b.source = prev }()
	m.Configure(b)
}

// Bind 声明一条绑定；不指定目标时为未指定目标绑定（由注入器直接构造键类型）
func (b *Binder) Bind(key Key) *BindingBuilder {
	binding := &Binding{key: key, kind: KindUntargetted, source: b.source, target: key.Type}
	if key.Type == nil {
		b.AddError(errors.New("ioc: bind of nil type"))
	}
	b.bindings = append(b.bindings, binding)
	return &BindingBuilder{binder: b, binding: binding}
}

// Bind 泛型便捷方法：Bind[T](b) 等价于 b.Bind(KeyOf[T]())
func Bind[T any](b *Binder) *BindingBuilder {
	return b.Bind(KeyOf[T]())
}

// BindNamed 泛型便捷方法：按名称绑定
func BindNamed[T any](b *Binder, name string) *BindingBuilder {
	return b.Bind(NamedKey[T](name))
}

// BindingBuilder 链式配置绑定目标与作用域
type BindingBuilder struct {
	binder  *Binder
	binding *Binding
}

func (bb *BindingBuilder) fail(format string, args ...any) *BindingBuilder {
	bb.binder.AddError(fmt.Errorf("ioc: %s: "+format, append([]any{bb.binding.key}, args...)...))
	return bb
}

// To 链接到另一个键，目标类型必须可赋值给绑定类型
func (bb *BindingBuilder) To(target Key) *BindingBuilder {
	key := bb.binding.key
	if target.Type == nil || key.Type == nil {
		return bb.fail("link target has nil type")
	}
	if target == key {
		return bb.fail("binding points to itself")
	}
	if !target.Type.AssignableTo(key.Type) {
		return bb.fail("%s is not assignable to %s", target.Type, key.Type)
	}
	bb.binding.kind = KindLinked
	bb.binding.linked = target
	bb.binding.target = target.Type
	return bb
}

// ToType 链接到某个实现类型
func (bb *BindingBuilder) ToType(t reflect.Type) *BindingBuilder {
	return bb.To(KeyForType(t))
}

// ToInstance 绑定到已有实例；实例字段会在注入器创建时注入
func (bb *BindingBuilder) ToInstance(instance any) *BindingBuilder {
	if instance == nil {
		bb.binder.AddError(fmt.Errorf("%w for %s", ErrNilInstance, bb.binding.key))
		return bb
	}
	t := reflect.TypeOf(instance)
	if bb.binding.key.Type != nil && !t.AssignableTo(bb.binding.key.Type) {
		return bb.fail("instance of %s is not assignable", t)
	}
	bb.binding.kind = KindInstance
	bb.binding.instance = instance
	bb.binding.target = t

	// 触发绑定后回调
	if obj, ok := instance.(IProvideAfter); ok {
		logInfo("[iocrest] 触发绑定后回调: %v", t)
		obj.OnProvideAfter()
	}
	return bb
}

// ToProvider 绑定到 Provider，实现类型在运行时才可知
func (bb *BindingBuilder) ToProvider(p Provider) *BindingBuilder {
	if p == nil {
		return bb.fail("nil provider")
	}
	bb.binding.kind = KindProvider
	bb.binding.raw = p
	bb.binding.target = nil
	return bb
}

// ToProviderFunc 绑定到函数形式的 Provider
func (bb *BindingBuilder) ToProviderFunc(fn func(ctx context.Context) (any, error)) *BindingBuilder {
	if fn == nil {
		return bb.fail("nil provider func")
	}
	return bb.ToProvider(ProviderFunc(fn))
}

// ToProviderKey 绑定到由注入器提供的 Provider 类型，Provider 自身的字段同样会被注入
func (bb *BindingBuilder) ToProviderKey(providerKey Key) *BindingBuilder {
	if providerKey.Type == nil || !providerKey.Type.Implements(providerType) {
		return bb.fail("%s does not implement ioc.Provider", providerKey.Type)
	}
	bb.binding.kind = KindProviderKey
	bb.binding.linked = providerKey
	bb.binding.target = nil
	return bb
}

// ToConstructor 绑定到构造函数：func(deps...) T 或 func(deps...) (T, error)
// 每个参数按类型从注入器解析
func (bb *BindingBuilder) ToConstructor(fn any) *BindingBuilder {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return bb.fail("constructor must be a non-nil func, got %T", fn)
	}
	ft := v.Type()
	if ft.IsVariadic() {
		return bb.fail("variadic constructor %s is not supported", ft)
	}
	switch {
	case ft.NumOut() == 1:
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
	default:
		return bb.fail("constructor %s must return T or (T, error)", ft)
	}
	if bb.binding.key.Type != nil && !ft.Out(0).AssignableTo(bb.binding.key.Type) {
		return bb.fail("constructor result %s is not assignable", ft.Out(0))
	}
	bb.binding.kind = KindConstructor
	bb.binding.constructor = v
	bb.binding.target = ft.Out(0)
	return bb
}

// In 指定作用域
func (bb *BindingBuilder) In(scope Scope) *BindingBuilder {
	if scope == nil {
		scope = NoScope
	}
	bb.binding.scope = scope
	return bb
}

// AsEagerSingleton 单例，并且在非 TOOL 阶段创建注入器时立即实例化
func (bb *BindingBuilder) AsEagerSingleton() *BindingBuilder {
	bb.binding.scope = Singleton
	bb.binding.eager = true
	return bb
}

var (
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
	providerType = reflect.TypeOf((*Provider)(nil)).Elem()
	contextType  = reflect.TypeOf((*context.Context)(nil)).Elem()
)
