package ioc_test

import (
	"context"
	"sync"
	"testing"

	"github.com/neko233-com/iocrest-go/ioc"
)

// ==================== 生命周期测试结构体 ====================

type LifecycleTracker struct {
	ProvideAfterCalled   bool
	InjectBeforeCalled   bool
	InjectAfterCalled    bool
	InjectCompleteCalled bool
	order                []string
	mu                   sync.Mutex
}

func (l *LifecycleTracker) record(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order = append(l.order, name)
}

func (l *LifecycleTracker) OnProvideAfter() {
	l.ProvideAfterCalled = true
	l.record("OnProvideAfter")
}

func (l *LifecycleTracker) OnInjectBefore() {
	l.InjectBeforeCalled = true
	l.record("OnInjectBefore")
}

func (l *LifecycleTracker) OnInjectAfter() {
	l.InjectAfterCalled = true
	l.record("OnInjectAfter")
}

func (l *LifecycleTracker) OnInjectComplete() {
	l.InjectCompleteCalled = true
	l.record("OnInjectComplete")
}

func TestLifecycle_InstanceBindingCallbacks(t *testing.T) {
	tracker := &LifecycleTracker{}
	mustCreate(t, ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[*LifecycleTracker](b).ToInstance(tracker)
	}))

	if !tracker.ProvideAfterCalled {
		t.Fatal("OnProvideAfter 应该被调用")
	}
	if !tracker.InjectBeforeCalled {
		t.Fatal("OnInjectBefore 应该被调用")
	}
	if !tracker.InjectAfterCalled {
		t.Fatal("OnInjectAfter 应该被调用")
	}
	if !tracker.InjectCompleteCalled {
		t.Fatal("OnInjectComplete 应该被调用")
	}

	expected := []string{"OnProvideAfter", "OnInjectBefore", "OnInjectAfter", "OnInjectComplete"}
	if len(tracker.order) != len(expected) {
		t.Fatalf("回调次数期望 %d, 得到 %d (%v)", len(expected), len(tracker.order), tracker.order)
	}
	for i, name := range expected {
		if tracker.order[i] != name {
			t.Errorf("第 %d 个回调期望 %s, 得到 %s", i, name, tracker.order[i])
		}
	}
}

func TestLifecycle_JITInstanceCallbacks(t *testing.T) {
	injector := mustCreate(t)

	tracker := ioc.MustGet[*LifecycleTracker](context.Background(), injector)
	if tracker.ProvideAfterCalled || tracker.InjectCompleteCalled {
		t.Error("即时绑定的对象不应该触发实例绑定专属回调")
	}
	if !tracker.InjectBeforeCalled || !tracker.InjectAfterCalled {
		t.Error("即时绑定的对象应该触发注入前后回调")
	}
}

func TestLifecycle_InjectMembers(t *testing.T) {
	type target struct {
		Users UserService `inject:""`
		Tags  map[string]string
	}

	injector := mustCreate(t, ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[UserService](b).ToInstance(&UserServiceImpl{ID: 9})
	}))

	tg := &target{}
	if err := injector.InjectMembers(context.Background(), tg); err != nil {
		t.Fatalf("InjectMembers 应该成功, 错误: %v", err)
	}
	if tg.Users == nil {
		t.Fatal("字段应该被注入")
	}
	if err := injector.InjectMembers(context.Background(), target{}); err == nil {
		t.Fatal("非指针目标应该返回错误")
	}

	// 即时绑定会初始化 map 字段
	jit := ioc.MustGet[*target](context.Background(), injector)
	if jit.Tags == nil {
		t.Error("即时绑定应该初始化 nil map 字段")
	}
}
