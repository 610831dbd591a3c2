// Package bootstrap 把 ioc 注入器接入 rest 部署。
//
// 启动时 Listener 根据初始化参数创建注入器，ModuleProcessor 遍历注入器的绑定：
// Provider 类型的绑定实例化一次后注册到 ProviderFactory，根资源类型的绑定包装为
// InjectorResourceFactory 注册到 Registry，每次请求都向注入器要一个实例。
// 模块上名为 PostConstruct / PreDestroy 的方法在启动与关闭时被调用。
package bootstrap
