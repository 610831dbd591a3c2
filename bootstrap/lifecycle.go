package bootstrap

import (
	"reflect"
	"slices"

	"github.com/neko233-com/iocrest-go/ioc"
)

// Annotation 生命周期阶段
type Annotation string

const (
	// PostConstruct 注入器创建并注册完成后调用
	PostConstruct Annotation = "PostConstruct"
	// PreDestroy 部署关闭时调用
	PreDestroy Annotation = "PreDestroy"
)

// LifecycleAnnotated 可选接口：模块列出除同名方法之外还需要在各阶段调用的方法
//
//	func (m *CacheModule) AnnotatedMethods() map[bootstrap.Annotation][]string {
//		return map[bootstrap.Annotation][]string{
//			bootstrap.PostConstruct: {"Warmup"},
//			bootstrap.PreDestroy:    {"Flush", "Close"},
//		}
//	}
type LifecycleAnnotated interface {
	AnnotatedMethods() map[Annotation][]string
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// annotatedMethods 与阶段同名的方法在前，其余按声明顺序，去重
func annotatedMethods(m ioc.Module, a Annotation) []string {
	var names []string
	if reflect.ValueOf(m).MethodByName(string(a)).IsValid() {
		names = append(names, string(a))
	}
	if la, ok := m.(LifecycleAnnotated); ok {
		for _, name := range la.AnnotatedMethods()[a] {
			if !slices.Contains(names, name) {
				names = append(names, name)
			}
		}
	}
	return names
}

// triggerAnnotatedMethods 调用所有模块上标注为 a 的方法
// 调用失败只记录警告，不影响其余方法
func triggerAnnotatedMethods(modules []ioc.Module, a Annotation) {
	for _, m := range modules {
		for _, name := range annotatedMethods(m, a) {
			invokeAnnotated(m, name, a)
		}
	}
}

func invokeAnnotated(m ioc.Module, name string, a Annotation) {
	moduleName := ioc.ModuleName(m)
	defer func() {
		if rec := recover(); rec != nil {
			logWarn("[iocrest] ⚠️ 调用 %s.%s (%s) 时 panic: %v", moduleName, name, a, rec)
		}
	}()

	method := reflect.ValueOf(m).MethodByName(name)
	if !method.IsValid() {
		logWarn("[iocrest] ⚠️ 模块 %s 没有可导出的方法 %s (%s)", moduleName, name, a)
		return
	}
	if method.Type().NumIn() != 0 {
		logWarn("[iocrest] ⚠️ 跳过 %s.%s (%s)：生命周期方法不能有参数", moduleName, name, a)
		return
	}

	logDebug("[iocrest] 调用生命周期方法: %s.%s (%s)", moduleName, name, a)
	for _, out := range method.Call(nil) {
		if out.Type() == errorType && !out.IsNil() {
			logWarn("[iocrest] ⚠️ %s.%s (%s) 返回错误: %v", moduleName, name, a, out.Interface())
		}
	}
}
