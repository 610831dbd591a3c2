// Package ioc 是一个基于反射的依赖注入容器。
//
// 模块（Module）通过 Binder 声明绑定，CreateInjector 校验全部绑定并生成注入器。
// 注入器支持父子层级、Singleton / RequestScoped 作用域、构造函数注入与字段注入：
//
//	type OrderService struct {
//		Users UserService `inject:""`
//		Tag   string      `inject:"order.tag,optional"`
//	}
//
//	injector, err := ioc.CreateInjector(ioc.ModuleFunc(func(b *ioc.Binder) {
//		ioc.Bind[UserService](b).To(ioc.KeyOf[*UserServiceImpl]()).In(ioc.Singleton)
//		ioc.Bind[*OrderService](b)
//	}))
//
// Bindings() 返回注入器的显式绑定，供上层（例如 bootstrap 包）扫描并注册 HTTP 资源。
package ioc
