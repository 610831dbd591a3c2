package bootstrap

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/neko233-com/iocrest-go/ioc"
)

// ErrUnknownModule 模块名未注册
var ErrUnknownModule = errors.New("bootstrap: unknown module")

// ModuleFactory 每次调用返回一个新的模块实例
type ModuleFactory func() ioc.Module

var (
	moduleRegistry     = make(map[string]ModuleFactory)
	moduleRegistryLock sync.RWMutex
)

// RegisterModule 以名称注册模块，通常在包的 init 中调用
// 名称为空、factory 为 nil 或重复注册时 panic
func RegisterModule(name string, factory ModuleFactory) {
	if name == "" {
		panic("bootstrap: RegisterModule with empty name")
	}
	if factory == nil {
		panic("bootstrap: RegisterModule factory is nil for " + name)
	}
	moduleRegistryLock.Lock()
	defer moduleRegistryLock.Unlock()
	if _, dup := moduleRegistry[name]; dup {
		panic("bootstrap: RegisterModule called twice for " + name)
	}
	moduleRegistry[name] = factory
}

// LookupModule 按名称创建模块
func LookupModule(name string) (ioc.Module, error) {
	moduleRegistryLock.RLock()
	factory, ok := moduleRegistry[name]
	moduleRegistryLock.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModule, name)
	}
	m := factory()
	if m == nil {
		return nil, fmt.Errorf("bootstrap: module factory %q returned nil", name)
	}
	return m, nil
}

// ModuleNames 已注册的模块名，按字母排序
func ModuleNames() []string {
	moduleRegistryLock.RLock()
	defer moduleRegistryLock.RUnlock()
	names := make([]string, 0, len(moduleRegistry))
	for name := range moduleRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
