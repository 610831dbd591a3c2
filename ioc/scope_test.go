package ioc_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/neko233-com/iocrest-go/ioc"
)

type session struct {
	ID int
}

func TestScope_SingletonReturnsSameInstance(t *testing.T) {
	injector := mustCreate(t, ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[*session](b).In(ioc.Singleton)
	}))

	ctx := context.Background()
	var wg sync.WaitGroup
	results := make([]*session, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = ioc.MustGet[*session](ctx, injector)
		}(i)
	}
	wg.Wait()
	for _, s := range results {
		if s != results[0] {
			t.Fatal("单例作用域应该总是返回同一个实例")
		}
	}
}

func TestScope_NoScopeReturnsNewInstances(t *testing.T) {
	injector := mustCreate(t, ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[*session](b)
	}))

	ctx := context.Background()
	if ioc.MustGet[*session](ctx, injector) == ioc.MustGet[*session](ctx, injector) {
		t.Fatal("无作用域绑定每次都应该创建新实例")
	}
}

func TestScope_SingletonRetriesAfterFailure(t *testing.T) {
	calls := 0
	injector := mustCreate(t, ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[*session](b).ToProviderFunc(func(context.Context) (any, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("first call fails")
			}
			return &session{ID: calls}, nil
		}).In(ioc.Singleton)
	}))

	ctx := context.Background()
	if _, err := ioc.Get[*session](ctx, injector); err == nil {
		t.Fatal("第一次获取应该失败")
	}
	s := ioc.MustGet[*session](ctx, injector)
	if s.ID != 2 || ioc.MustGet[*session](ctx, injector) != s {
		t.Fatal("失败不应该被缓存，成功后应该复用实例")
	}
}

func TestScope_RequestScoped(t *testing.T) {
	injector := mustCreate(t, ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[*session](b).In(ioc.RequestScoped)
	}))

	if _, err := ioc.Get[*session](context.Background(), injector); !errors.Is(err, ioc.ErrOutOfScope) {
		t.Fatalf("请求作用域之外获取应该返回 ErrOutOfScope, 得到: %v", err)
	}

	req1 := ioc.EnterRequestScope(context.Background())
	req2 := ioc.EnterRequestScope(context.Background())

	a := ioc.MustGet[*session](req1, injector)
	b := ioc.MustGet[*session](req1, injector)
	c := ioc.MustGet[*session](req2, injector)
	if a != b {
		t.Error("同一请求内应该复用实例")
	}
	if a == c {
		t.Error("不同请求应该得到不同实例")
	}

	id1, ok := ioc.RequestScopeID(req1)
	id2, _ := ioc.RequestScopeID(req2)
	if !ok || id1 == "" || id1 == id2 {
		t.Errorf("每个请求作用域应该有唯一 ID, 得到 %q %q", id1, id2)
	}
	if ioc.EnterRequestScope(req1) != req1 {
		t.Error("已在请求作用域内时应该原样返回 context")
	}
}
