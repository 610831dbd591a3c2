// Package rest 是一个基于 chi 的资源式 HTTP 框架。
//
// 资源（Resource）通过 Path / Routes 描述自身的路由；Registry 为每个资源保存一个
// ResourceFactory，每次请求由工厂创建资源实例，再通过反射调用路由处理方法。
// ExceptionMapper、请求/响应过滤器、MessageBodyWriter 与 Middleware 统称 Provider，
// 由 ProviderFactory 统一管理。
package rest
