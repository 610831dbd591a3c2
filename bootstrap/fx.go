package bootstrap

import (
	"context"

	"go.uber.org/fx"

	"github.com/neko233-com/iocrest-go/ioc"
)

// ListenerOptionGroup fx 值组名，AsListenerOption 提供的选项都会交给 NewFxListener
const ListenerOptionGroup = "iocrest.listener_options"

// ListenerParams NewFxListener 的依赖
type ListenerParams struct {
	fx.In

	Options []ListenerOption `group:"iocrest.listener_options"`
	Parent  *ioc.Injector    `optional:"true"`
}

func NewFxListener(p ListenerParams) *Listener {
	l := NewListener(p.Options...)
	if p.Parent != nil && l.ParentInjector == nil {
		l.ParentInjector = p.Parent
	}
	return l
}

// AsListenerOption 把选项加入 ListenerOptionGroup
func AsListenerOption(opt ListenerOption) any {
	return fx.Annotated{Group: ListenerOptionGroup, Target: func() ListenerOption { return opt }}
}

// FxModule 把 Listener 接入 fx 生命周期，应用需要提供 *Context
var FxModule = fx.Module("iocrest.bootstrap",
	fx.Provide(NewFxListener),
	fx.Invoke(registerListenerLifecycle),
)

func registerListenerLifecycle(lc fx.Lifecycle, l *Listener, sc *Context) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return l.ContextInitialized(ctx, sc)
		},
		OnStop: func(ctx context.Context) error {
			l.ContextDestroyed(ctx, sc)
			return nil
		},
	})
}
