package ioc

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Provider 提供实例
type Provider interface {
	Get(ctx context.Context) (any, error)
}

// ProviderFunc 函数适配器
type ProviderFunc func(ctx context.Context) (any, error)

func (f ProviderFunc) Get(ctx context.Context) (any, error) { return f(ctx) }

// Scope 作用域：包装未作用域化的 Provider，决定实例的复用方式
type Scope interface {
	Scope(key Key, unscoped Provider) Provider
	String() string
}

var (
	// NoScope 每次获取都创建新实例
	NoScope Scope = noScope{}
	// Singleton 每个绑定只创建一次
	Singleton Scope = singletonScope{}
	// RequestScoped 每个请求作用域内只创建一次
	RequestScoped Scope = requestScope{}
)

type noScope struct{}

func (noScope) Scope(_ Key, unscoped Provider) Provider { return unscoped }
func (noScope) String() string                            { return "NoScope" }

type singletonScope struct{}

func (singletonScope) Scope(key Key, unscoped Provider) Provider {
	return &singletonProvider{key: key, unscoped: unscoped}
}
func (singletonScope) String() string { return "Singleton" }

// singletonProvider 创建失败不缓存，下次获取会重试
type singletonProvider struct {
	mutex    sync.Mutex
	key      Key
	unscoped Provider
	done     bool
	value    any
}

func (p *singletonProvider) Get(ctx context.Context) (any, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.done {
		return p.value, nil
	}
	v, err := p.unscoped.Get(ctx)
	if err != nil {
		return nil, err
	}
	p.value = v
	p.done = true
	logDebug("[iocrest] 单例已创建: %s", p.key)
	return v, nil
}

// ==================== 请求作用域 ====================

type requestScopeCtxKey struct{}

type requestScopeState struct {
	id     string
	mutex  sync.Mutex
	values map[Key]any
}

// EnterRequestScope 返回带有新请求作用域的 context
// 已处于请求作用域内时原样返回
func EnterRequestScope(ctx context.Context) context.Context {
	if _, ok := ctx.Value(requestScopeCtxKey{}).(*requestScopeState); ok {
		return ctx
	}
	state := &requestScopeState{id: uuid.NewString(), values: make(map[Key]any)}
	logDebug("[iocrest] 进入请求作用域: id=%s", state.id)
	return context.WithValue(ctx, requestScopeCtxKey{}, state)
}

// RequestScopeID 返回当前请求作用域的 ID
func RequestScopeID(ctx context.Context) (string, bool) {
	state, ok := ctx.Value(requestScopeCtxKey{}).(*requestScopeState)
	if !ok {
		return "", false
	}
	return state.id, true
}

type requestScope struct{}

func (requestScope) String() string { return "RequestScoped" }

func (requestScope) Scope(key Key, unscoped Provider) Provider {
	return ProviderFunc(func(ctx context.Context) (any, error) {
		state, ok := ctx.Value(requestScopeCtxKey{}).(*requestScopeState)
		if !ok {
			return nil, ErrOutOfScope
		}
		state.mutex.Lock()
		v, cached := state.values[key]
		state.mutex.Unlock()
		if cached {
			return v, nil
		}

		// 创建期间不持锁：同一请求内的其他请求作用域依赖也需要获取锁
		v, err := unscoped.Get(ctx)
		if err != nil {
			return nil, err
		}

		state.mutex.Lock()
		defer state.mutex.Unlock()
		if existing, ok := state.values[key]; ok {
			return existing, nil
		}
		state.values[key] = v
		return v, nil
	})
}
