package ioc

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// injectTag 字段注入标签
// 注入语义说明：
//
//	inject:"" / inject:"true"      -> 必须注入，按字段类型查找绑定；找不到返回错误
//	inject:"optional" / "false"    -> 可选注入，键未绑定时保持零值
//	inject:"名称"                   -> 名称注入，按 (字段类型, 名称) 查找
//	inject:"名称,optional"          -> 可选的名称注入
//
// autowire 标签与 inject 等价
type injectTag struct {
	name     string
	optional bool
}

func parseInjectTag(field reflect.StructField) (injectTag, bool) {
	raw, ok := field.Tag.Lookup("inject")
	if !ok {
		raw, ok = field.Tag.Lookup("autowire")
		if !ok {
			return injectTag{}, false
		}
	}
	var tag injectTag
	for idx, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "" || part == "true":
		case part == "false" || part == "optional":
			tag.optional = true
		case idx == 0:
			tag.name = part
		}
	}
	return tag, true
}

// injectInstance 触发注入前后回调并注入字段；非结构体指针直接忽略
func (i *Injector) injectInstance(ctx context.Context, instance any) error {
	v := reflect.ValueOf(instance)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return nil
	}

	// 触发注入前回调
	if obj, ok := instance.(IInjectBefore); ok {
		logDebug("[iocrest] 触发注入前回调: %v", v.Type())
		obj.OnInjectBefore()
	}

	if err := i.injectMembers(ctx, v); err != nil {
		return err
	}

	// 触发注入后回调
	if obj, ok := instance.(IInjectAfter); ok {
		logDebug("[iocrest] 触发注入后回调: %v", v.Type())
		obj.OnInjectAfter()
	}
	return nil
}

// injectMembers 执行字段注入（核心）
// 所有字段都会尝试，错误合并返回
func (i *Injector) injectMembers(ctx context.Context, pv reflect.Value) error {
	elem := pv.Elem()
	t := elem.Type()
	structName := typeDisplayName(t)

	var errs []error
	for idx := 0; idx < t.NumField(); idx++ {
		field := t.Field(idx)
		tag, ok := parseInjectTag(field)
		if !ok {
			continue
		}
		fv := elem.Field(idx)
		if !fv.CanSet() {
			logError("[iocrest] 字段 %s.%s 带有 inject 标签但不可导出，跳过注入", structName, field.Name)
			errs = append(errs, fmt.Errorf("ioc: field %s.%s is tagged for injection but not exported", structName, field.Name))
			continue
		}

		key := Key{Type: field.Type, Name: tag.name}
		logDebug("[iocrest] 尝试注入: struct=%s field=%s key=%s optional=%t", structName, field.Name, key, tag.optional)

		val, err := i.getInstance(ctx, key)
		if err != nil {
			if tag.optional && isMissing(err, key) {
				logInfo("[iocrest] 可选注入: 未找到绑定，保持零值 (struct=%s field=%s key=%s)", structName, field.Name, key)
				continue
			}
			errs = append(errs, fmt.Errorf("ioc: field %s.%s: %w", structName, field.Name, err))
			continue
		}
		if val == nil {
			continue
		}
		rv := reflect.ValueOf(val)
		if !rv.Type().AssignableTo(field.Type) {
			errs = append(errs, fmt.Errorf("ioc: field %s.%s: %s is not assignable to %s", structName, field.Name, rv.Type(), field.Type))
			continue
		}
		fv.Set(rv)
	}
	return errors.Join(errs...)
}

// initBasicFields 初始化基础字段（map、slice）
// 规则：
// - 跳过携带 inject/autowire 标签的字段，避免与注入阶段冲突
// - 只处理可导出且为 nil 的字段
func initBasicFields(pv reflect.Value) {
	elem := pv.Elem()
	t := elem.Type()
	for idx := 0; idx < t.NumField(); idx++ {
		field := t.Field(idx)
		fv := elem.Field(idx)
		if !fv.CanSet() {
			continue
		}
		if _, tagged := parseInjectTag(field); tagged {
			continue
		}
		if applyDefaultProviders(field, fv) {
			logDebug("[iocrest] 字段默认值提供器应用: struct=%s field=%s type=%s", t.Name(), field.Name, field.Type)
		}
	}
}

func applyDefaultProviders(field reflect.StructField, fv reflect.Value) bool {
	switch field.Type.Kind() {
	case reflect.Map:
		if fv.IsNil() {
			fv.Set(reflect.MakeMap(field.Type))
			return true
		}
	case reflect.Slice:
		if fv.IsNil() {
			fv.Set(reflect.MakeSlice(field.Type, 0, 0))
			return true
		}
	}
	return false
}
