package ioc

import (
	"context"
	"reflect"
)

// BindingKind 绑定的目标种类
type BindingKind int

const (
	KindUntargetted BindingKind = iota
	KindInstance
	KindLinked
	KindProvider
	KindProviderKey
	KindConstructor
	KindJIT
)

var kindNames = [...]string{
	KindUntargetted: "untargetted",
	KindInstance:    "instance",
	KindLinked:      "linked",
	KindProvider:    "provider",
	KindProviderKey: "provider-key",
	KindConstructor: "constructor",
	KindJIT:         "just-in-time",
}

func (k BindingKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Binding 一条绑定：键 -> 实例来源 + 作用域
type Binding struct {
	key    Key
	kind   BindingKind
	scope  Scope
	source string
	// 实现类型，静态可知时记录（实例、构造函数、链接、未指定目标）
	target      reflect.Type
	linked      Key
	instance    any
	raw         Provider
	constructor reflect.Value
	eager       bool
	builtin     bool

	injector *Injector
	// 已按作用域包装的 provider，由注入器在创建阶段生成
	scoped Provider
}

func (b *Binding) Key() Key              { return b.key }
func (b *Binding) Kind() BindingKind     { return b.kind }
func (b *Binding) Source() string        { return b.source }
func (b *Binding) Injector() *Injector   { return b.injector }
func (b *Binding) IsBuiltin() bool       { return b.builtin }
func (b *Binding) IsEagerSingleton() bool { return b.eager }

// Scope 绑定的作用域，未指定时为 NoScope
func (b *Binding) Scope() Scope {
	if b.scope == nil {
		return NoScope
	}
	return b.scope
}

// ImplementationType 返回实现类型；provider 绑定无法静态得知时返回 nil
func (b *Binding) ImplementationType() reflect.Type {
	return b.target
}

// Provider 返回通过所属注入器解析此绑定的 Provider（带循环依赖检测与作用域）
func (b *Binding) Provider() Provider {
	return ProviderFunc(func(ctx context.Context) (any, error) {
		return b.injector.resolve(ctx, b)
	})
}

func (b *Binding) String() string {
	s := b.key.String() + " (" + b.kind.String() + ", " + b.Scope().String()
	if b.source != "" {
		s += ", source=" + b.source
	}
	return s + ")"
}
