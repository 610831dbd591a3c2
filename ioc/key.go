package ioc

import (
	"reflect"
	"strconv"
)

// Key 绑定键：类型 + 可选名称
// 同一类型可以通过不同名称绑定多个实现
type Key struct {
	Type reflect.Type
	Name string
}

// KeyOf 返回类型 T 的无名键
func KeyOf[T any]() Key {
	return Key{Type: reflect.TypeOf((*T)(nil)).Elem()}
}

// NamedKey 返回类型 T 的具名键
func NamedKey[T any](name string) Key {
	return Key{Type: reflect.TypeOf((*T)(nil)).Elem(), Name: name}
}

// KeyForType 返回反射类型的无名键
func KeyForType(t reflect.Type) Key {
	return Key{Type: t}
}

func (k Key) String() string {
	typeName := "<nil>"
	if k.Type != nil {
		typeName = k.Type.String()
	}
	if k.Name == "" {
		return typeName
	}
	return typeName + "[name=" + strconv.Quote(k.Name) + "]"
}

// jitEligible 是否允许即时（just-in-time）绑定
func (k Key) jitEligible() bool {
	if k.Type == nil || k.Name != "" {
		return false
	}
	switch k.Type.Kind() {
	case reflect.Struct:
		return true
	case reflect.Ptr:
		return k.Type.Elem().Kind() == reflect.Struct
	}
	return false
}

// typeDisplayName 结构体名（不含包名），与日志里的展示保持一致
func typeDisplayName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	name := t.Name()
	if name == "" && t.Kind() == reflect.Ptr {
		name = t.Elem().Name()
	}
	if name == "" {
		name = t.String()
	}
	return name
}
