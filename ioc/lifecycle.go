package ioc

// IProvideAfter 绑定后生命周期接口
// 通过 ToInstance 绑定的对象在绑定完成后会调用 OnProvideAfter 方法
type IProvideAfter interface {
	// OnProvideAfter 对象绑定到注入器后的回调方法
	OnProvideAfter()
}

// IInjectBefore 注入前生命周期接口
// 实现此接口的对象在字段注入开始前会调用 OnInjectBefore 方法
type IInjectBefore interface {
	// OnInjectBefore 字段注入开始前的回调方法
	OnInjectBefore()
}

// IInjectAfter 注入后生命周期接口
// 实现此接口的对象在字段注入完成后会调用 OnInjectAfter 方法
// 注意：这是在单个对象的字段注入完成后调用，而不是注入器创建完成后
type IInjectAfter interface {
	// OnInjectAfter 字段注入完成后的回调方法（单个对象）
	OnInjectAfter()
}

// IObject 对象生命周期接口
// 通过 ToInstance 绑定的对象在注入器创建完成后会调用 OnInjectComplete 方法
type IObject interface {
	// OnInjectComplete 注入器创建完成后的回调方法
	OnInjectComplete()
}
