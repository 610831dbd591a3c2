package rest

import "time"

// Observer 注册与请求事件的观察者，metrics 包基于它统计指标
type Observer interface {
	ResourceRegistered(resource string, routes int)
	ResourceUnregistered(resource string)
	RequestHandled(resource, method, pattern string, status int, elapsed time.Duration)
}

// NopObserver 不做任何事
type NopObserver struct{}

func (NopObserver) ResourceRegistered(string, int)                             {}
func (NopObserver) ResourceUnregistered(string)                                {}
func (NopObserver) RequestHandled(string, string, string, int, time.Duration) {}
