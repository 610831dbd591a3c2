package bootstrap

import (
	"context"
	"fmt"

	"github.com/neko233-com/iocrest-go/ioc"
	"github.com/neko233-com/iocrest-go/rest"
)

// ModuleProcessor 把注入器中的 Provider 与根资源注册到部署
type ModuleProcessor struct {
	registry  *rest.Registry
	providers *rest.ProviderFactory
}

func NewModuleProcessor(registry *rest.Registry, providers *rest.ProviderFactory) *ModuleProcessor {
	return &ModuleProcessor{registry: registry, providers: providers}
}

// ProcessInjector 遍历注入器自身的显式绑定
//
// Provider 立即实例化并注册；根资源延后到全部 Provider 注册完成后再注册，
// 注册的是 InjectorResourceFactory，每次请求都通过绑定的 Provider 获取实例。
// 同时实现 Provider 与根资源的类型两边都会注册。
func (p *ModuleProcessor) ProcessInjector(ctx context.Context, injector *ioc.Injector) error {
	var resources []*ioc.Binding
	for _, binding := range injector.Bindings() {
		if binding.IsBuiltin() {
			continue
		}
		keyType := binding.Key().Type
		if rest.IsRootResource(keyType) {
			resources = append(resources, binding)
		}
		if rest.IsProvider(keyType) {
			logInfo("[iocrest] 注册 Provider 实例: %s", binding.Key())
			instance, err := binding.Provider().Get(ctx)
			if err != nil {
				return fmt.Errorf("bootstrap: instantiating provider %s: %w", binding.Key(), err)
			}
			if err := p.providers.RegisterProviderInstance(instance); err != nil {
				return fmt.Errorf("bootstrap: registering provider %s: %w", binding.Key(), err)
			}
		}
	}

	for _, binding := range resources {
		keyType := binding.Key().Type
		logInfo("[iocrest] 注册资源工厂: %s", binding.Key())
		factory := NewInjectorResourceFactory(binding.Provider(), keyType).
			WithImplementationType(binding.ImplementationType())
		if err := p.registry.AddResourceFactory(factory); err != nil {
			return fmt.Errorf("bootstrap: registering resource %s: %w", binding.Key(), err)
		}
	}
	return nil
}
