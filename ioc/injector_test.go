package ioc_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/neko233-com/iocrest-go/ioc"
)

// ==================== 测试用的接口和实现 ====================

type UserService interface {
	GetUser(id int) string
}

type UserServiceImpl struct {
	ID int
}

func (s *UserServiceImpl) GetUser(id int) string {
	return "User"
}

type OrderService interface {
	GetOrder(id int) string
}

type OrderServiceImpl struct {
	UserService UserService `inject:""`
}

func (s *OrderServiceImpl) GetOrder(id int) string {
	return "Order"
}

func init() {
	ioc.SetLogger(ioc.NopLogger{})
}

func mustCreate(t *testing.T, modules ...ioc.Module) *ioc.Injector {
	t.Helper()
	injector, err := ioc.CreateInjector(modules...)
	if err != nil {
		t.Fatalf("创建注入器应该成功, 错误: %v", err)
	}
	return injector
}

// ==================== 基本功能测试 ====================

func TestInjector_LinkedBinding(t *testing.T) {
	injector := mustCreate(t, ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[UserService](b).To(ioc.KeyOf[*UserServiceImpl]())
	}))

	svc, err := ioc.Get[UserService](context.Background(), injector)
	if err != nil {
		t.Fatalf("获取 UserService 应该成功, 错误: %v", err)
	}
	if _, ok := svc.(*UserServiceImpl); !ok {
		t.Fatalf("期望 *UserServiceImpl, 得到 %T", svc)
	}
}

func TestInjector_InstanceBinding(t *testing.T) {
	service := &UserServiceImpl{ID: 1}
	injector := mustCreate(t, ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[UserService](b).ToInstance(service)
	}))

	svc := ioc.MustGet[UserService](context.Background(), injector)
	if svc != service {
		t.Fatal("实例绑定应该返回同一个对象")
	}
}

func TestInjector_FieldInjectionByType(t *testing.T) {
	injector := mustCreate(t, ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[UserService](b).ToInstance(&UserServiceImpl{ID: 7})
		ioc.Bind[OrderService](b).To(ioc.KeyOf[*OrderServiceImpl]())
	}))

	order := ioc.MustGet[OrderService](context.Background(), injector).(*OrderServiceImpl)
	if order.UserService == nil {
		t.Fatal("UserService 应该被注入")
	}
	if order.UserService.(*UserServiceImpl).ID != 7 {
		t.Errorf("注入的 UserService ID 应该为 7, 得到: %d", order.UserService.(*UserServiceImpl).ID)
	}
}

func TestInjector_FieldInjectionByName(t *testing.T) {
	type Greeter struct {
		Prefix string `inject:"prefix"`
		Suffix string `autowire:"suffix,optional"`
	}

	injector := mustCreate(t, ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.BindNamed[string](b, "prefix").ToInstance("Hello")
	}))

	g := ioc.MustGet[*Greeter](context.Background(), injector)
	if g.Prefix != "Hello" {
		t.Errorf("期望 Prefix=Hello, 得到 %q", g.Prefix)
	}
	if g.Suffix != "" {
		t.Errorf("可选注入未找到时应该保持零值, 得到 %q", g.Suffix)
	}
}

func TestInjector_OptionalMissingDependency(t *testing.T) {
	type ServiceA struct {
		Optional UserService `inject:"optional"`
	}

	injector := mustCreate(t)
	a := ioc.MustGet[*ServiceA](context.Background(), injector)
	if a.Optional != nil {
		t.Fatal("可选注入未找到时应该保持 nil")
	}
}

func TestInjector_MandatoryMissingDependency(t *testing.T) {
	injector := mustCreate(t)

	_, err := ioc.Get[*OrderServiceImpl](context.Background(), injector)
	if err == nil {
		t.Fatal("缺少必须依赖时应该返回错误")
	}
	if !errors.Is(err, ioc.ErrNoBinding) {
		t.Fatalf("错误应该包含 ErrNoBinding, 得到: %v", err)
	}
}

func TestInjector_UnexportedTaggedField(t *testing.T) {
	type broken struct {
		users UserService `inject:""`
	}

	injector := mustCreate(t, ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[UserService](b).ToInstance(&UserServiceImpl{})
	}))
	if _, err := ioc.Get[*broken](context.Background(), injector); err == nil {
		t.Fatal("不可导出的注入字段应该返回错误")
	}
}

func TestInjector_Constructor(t *testing.T) {
	type Repo struct{ DSN string }
	type Service struct {
		Repo *Repo
		Ctx  bool
	}

	injector := mustCreate(t, ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[*Repo](b).ToInstance(&Repo{DSN: "mem://"})
		ioc.Bind[*Service](b).ToConstructor(func(ctx context.Context, r *Repo) (*Service, error) {
			return &Service{Repo: r, Ctx: ctx != nil}, nil
		})
	}))

	svc := ioc.MustGet[*Service](context.Background(), injector)
	if svc.Repo == nil || svc.Repo.DSN != "mem://" {
		t.Fatalf("构造函数参数应该被注入, 得到 %+v", svc.Repo)
	}
	if !svc.Ctx {
		t.Error("context.Context 参数应该被传入")
	}
}

func TestInjector_ConstructorError(t *testing.T) {
	boom := errors.New("boom")
	injector := mustCreate(t, ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[*UserServiceImpl](b).ToConstructor(func() (*UserServiceImpl, error) {
			return nil, boom
		})
	}))

	_, err := ioc.Get[*UserServiceImpl](context.Background(), injector)
	if !errors.Is(err, boom) {
		t.Fatalf("构造函数错误应该被透传, 得到: %v", err)
	}
	var pe *ioc.ProvisionError
	if !errors.As(err, &pe) {
		t.Fatalf("错误应该是 ProvisionError, 得到: %T", err)
	}
}

type userProvider struct {
	Seed int `inject:"seed"`
}

func (p *userProvider) Get(context.Context) (any, error) {
	return &UserServiceImpl{ID: p.Seed}, nil
}

func TestInjector_ProviderKey(t *testing.T) {
	injector := mustCreate(t, ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.BindNamed[int](b, "seed").ToInstance(42)
		ioc.Bind[UserService](b).ToProviderKey(ioc.KeyOf[*userProvider]())
	}))

	svc := ioc.MustGet[UserService](context.Background(), injector)
	if svc.(*UserServiceImpl).ID != 42 {
		t.Errorf("Provider 的字段应该被注入, 得到 ID=%d", svc.(*UserServiceImpl).ID)
	}
}

func TestInjector_ProviderReturnsWrongType(t *testing.T) {
	injector := mustCreate(t, ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[UserService](b).ToProviderFunc(func(context.Context) (any, error) {
			return "not a service", nil
		})
	}))

	if _, err := ioc.Get[UserService](context.Background(), injector); err == nil {
		t.Fatal("Provider 返回不兼容类型时应该报错")
	}
}

// ==================== 创建期错误 ====================

func TestInjector_DuplicateBinding(t *testing.T) {
	_, err := ioc.CreateInjector(ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[UserService](b).ToInstance(&UserServiceImpl{ID: 1})
		ioc.Bind[UserService](b).ToInstance(&UserServiceImpl{ID: 2})
	}))
	var ce *ioc.CreationError
	if !errors.As(err, &ce) {
		t.Fatalf("重复绑定应该返回 CreationError, 得到: %v", err)
	}
	if len(ce.Errors) != 1 {
		t.Errorf("期望 1 个错误, 得到 %d", len(ce.Errors))
	}
}

func TestInjector_UntargettedInterface(t *testing.T) {
	_, err := ioc.CreateInjector(ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[UserService](b)
	}))
	if err == nil {
		t.Fatal("接口类型的未指定目标绑定应该失败")
	}
}

func TestInjector_LinkToUnboundInterface(t *testing.T) {
	_, err := ioc.CreateInjector(ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[any](b).To(ioc.KeyOf[UserService]())
	}))
	if !errors.Is(err, ioc.ErrNoBinding) {
		t.Fatalf("链接到未绑定接口应该失败, 得到: %v", err)
	}
}

func TestInjector_CollectsAllErrors(t *testing.T) {
	_, err := ioc.CreateInjector(ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[UserService](b).ToInstance(nil)
		ioc.Bind[OrderService](b).ToConstructor("not a func")
		b.AddError(errors.New("custom"))
	}))
	var ce *ioc.CreationError
	if !errors.As(err, &ce) {
		t.Fatalf("应该返回 CreationError, 得到: %v", err)
	}
	// 两个绑定都没有有效目标，会再各报告一次
	if len(ce.Errors) != 5 {
		t.Errorf("期望 5 个错误, 得到 %d: %v", len(ce.Errors), err)
	}
	if !errors.Is(err, ioc.ErrNilInstance) {
		t.Error("错误中应该包含 ErrNilInstance")
	}
}

func TestInjector_BindInjectorItself(t *testing.T) {
	_, err := ioc.CreateInjector(ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[*ioc.Injector](b).ToInstance(&ioc.Injector{})
	}))
	if err == nil {
		t.Fatal("不允许重新绑定内置的 *Injector")
	}
}

// ==================== 父子注入器 ====================

func TestInjector_ChildSeesParentBindings(t *testing.T) {
	parent := mustCreate(t, ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[UserService](b).ToInstance(&UserServiceImpl{ID: 3})
	}))
	child, err := parent.CreateChildInjector(ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[OrderService](b).To(ioc.KeyOf[*OrderServiceImpl]())
	}))
	if err != nil {
		t.Fatalf("创建子注入器应该成功, 错误: %v", err)
	}
	if child.Parent() != parent {
		t.Fatal("子注入器的 Parent 应该是父注入器")
	}

	order := ioc.MustGet[OrderService](context.Background(), child).(*OrderServiceImpl)
	if order.UserService.(*UserServiceImpl).ID != 3 {
		t.Error("子注入器应该能解析父注入器的绑定")
	}
	if _, err := ioc.Get[OrderService](context.Background(), parent); err == nil {
		t.Error("父注入器不应该看到子注入器的绑定")
	}
	if ioc.MustGet[*ioc.Injector](context.Background(), child) != child {
		t.Error("子注入器的内置 *Injector 绑定应该指向自身")
	}
}

func TestInjector_ChildCannotRebindParentKey(t *testing.T) {
	parent := mustCreate(t, ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[UserService](b).ToInstance(&UserServiceImpl{ID: 1})
	}))
	_, err := parent.CreateChildInjector(ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[UserService](b).ToInstance(&UserServiceImpl{ID: 2})
	}))
	if err == nil {
		t.Fatal("子注入器重新绑定父注入器的键应该失败")
	}
}

func TestInjector_BindingsOrder(t *testing.T) {
	injector := mustCreate(t, ioc.ModuleFunc(func(b *ioc.Binder) {
		ioc.Bind[OrderService](b).To(ioc.KeyOf[*OrderServiceImpl]())
		ioc.Bind[UserService](b).To(ioc.KeyOf[*UserServiceImpl]())
	}))

	bindings := injector.Bindings()
	if len(bindings) != 4 {
		t.Fatalf("期望 4 个绑定（含 2 个内置）, 得到 %d", len(bindings))
	}
	if !bindings[0].IsBuiltin() || !bindings[1].IsBuiltin() {
		t.Error("内置绑定应该排在最前")
	}
	if bindings[2].Key() != ioc.KeyOf[OrderService]() || bindings[3].Key() != ioc.KeyOf[UserService]() {
		t.Error("绑定应该保持声明顺序")
	}
	if bindings[2].ImplementationType() != ioc.KeyOf[*OrderServiceImpl]().Type {
		t.Error("链接绑定的实现类型应该是目标类型")
	}
	if bindings[2].Source() != "ModuleFunc" {
		t.Errorf("绑定来源应该是模块名, 得到 %q", bindings[2].Source())
	}
}

// ==================== 循环依赖 ====================

type cycleA struct {
	B *cycleB `inject:""`
}

type cycleB struct {
	A *cycleA `inject:""`
}

func TestInjector_CycleDetected(t *testing.T) {
	injector := mustCreate(t)

	_, err := ioc.Get[*cycleA](context.Background(), injector)
	var ce *ioc.CycleError
	if !errors.As(err, &ce) {
		t.Fatalf("应该检测到循环依赖, 得到: %v", err)
	}
	if len(ce.Path) != 3 || ce.Path[0] != ce.Path[2] {
		t.Errorf("循环路径应该首尾相同, 得到 %v", ce.Path)
	}
}

// ==================== 阶段 ====================

type counted struct{}

func countingModule(counter *atomic.Int32, eager bool) ioc.Module {
	return ioc.ModuleFunc(func(b *ioc.Binder) {
		bb := ioc.Bind[*counted](b).ToConstructor(func() *counted {
			counter.Add(1)
			return &counted{}
		})
		if eager {
			bb.AsEagerSingleton()
		} else {
			bb.In(ioc.Singleton)
		}
	})
}

func TestStage_EagerSingletons(t *testing.T) {
	cases := []struct {
		name  string
		stage ioc.Stage
		eager bool
		want  int32
	}{
		{"development lazy", ioc.StageDevelopment, false, 0},
		{"development eager", ioc.StageDevelopment, true, 1},
		{"production", ioc.StageProduction, false, 1},
		{"tool eager", ioc.StageTool, true, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var counter atomic.Int32
			injector, err := ioc.CreateInjectorWithStage(tc.stage, countingModule(&counter, tc.eager))
			if err != nil {
				t.Fatalf("创建注入器应该成功, 错误: %v", err)
			}
			if got := counter.Load(); got != tc.want {
				t.Errorf("创建后实例化次数期望 %d, 得到 %d", tc.want, got)
			}
			if injector.Stage() != tc.stage {
				t.Errorf("阶段应该为 %s", tc.stage)
			}
		})
	}
}

func TestParseStage(t *testing.T) {
	stage, err := ioc.ParseStage(" production ")
	if err != nil || stage != ioc.StageProduction {
		t.Fatalf("期望 PRODUCTION, 得到 %v %v", stage, err)
	}
	if _, err := ioc.ParseStage("STAGING"); !errors.Is(err, ioc.ErrInvalidStage) {
		t.Fatalf("未知阶段应该返回 ErrInvalidStage, 得到: %v", err)
	}
}
