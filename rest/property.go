package rest

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// 属性注入标签
//
//	rest:"context"       -> *http.Request / http.ResponseWriter / context.Context / http.Header / *url.URL
//	rest:"path=id"       -> 路径参数
//	rest:"query=q"       -> 查询参数（[]string 接收全部值）
//	rest:"header=X-Name" -> 请求头
const propertyTag = "rest"

type propertySource int

const (
	sourceContext propertySource = iota
	sourcePath
	sourceQuery
	sourceHeader
)

var (
	headerType = reflect.TypeOf(http.Header{})
	urlType    = reflect.TypeOf((*url.URL)(nil))
)

type propertyField struct {
	index  int
	name   string
	source propertySource
	param  string
	typ    reflect.Type
}

// PropertyInjector 每次请求把请求信息注入资源字段
type PropertyInjector struct {
	typ    reflect.Type
	fields []propertyField
}

// NewPropertyInjector 解析 t 的 rest 标签；t 不是结构体指针时返回空注入器
func NewPropertyInjector(t reflect.Type) (*PropertyInjector, error) {
	pi := &PropertyInjector{typ: t}
	if t == nil || t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		return pi, nil
	}
	st := t.Elem()
	var errs []error
	for idx := 0; idx < st.NumField(); idx++ {
		field := st.Field(idx)
		raw, ok := field.Tag.Lookup(propertyTag)
		if !ok {
			continue
		}
		if !field.IsExported() {
			errs = append(errs, fmt.Errorf("rest: field %s.%s is tagged but not exported", st.Name(), field.Name))
			continue
		}
		pf, err := parsePropertyField(idx, field, raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("rest: field %s.%s: %w", st.Name(), field.Name, err))
			continue
		}
		pi.fields = append(pi.fields, pf)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return pi, nil
}

func parsePropertyField(idx int, field reflect.StructField, raw string) (propertyField, error) {
	pf := propertyField{index: idx, name: field.Name, typ: field.Type}
	kind, param, _ := strings.Cut(strings.TrimSpace(raw), "=")
	pf.param = strings.TrimSpace(param)
	switch kind {
	case "context":
		pf.source = sourceContext
		switch field.Type {
		case requestType, responseWriterType, contextType, headerType, urlType:
		default:
			return pf, fmt.Errorf("unsupported context type %s", field.Type)
		}
		return pf, nil
	case "path":
		pf.source = sourcePath
	case "query":
		pf.source = sourceQuery
	case "header":
		pf.source = sourceHeader
	default:
		return pf, fmt.Errorf("unknown rest tag %q", raw)
	}
	if pf.param == "" {
		return pf, fmt.Errorf("rest tag %q needs a parameter name", raw)
	}
	if pf.source == sourceQuery && field.Type == reflect.TypeOf([]string(nil)) {
		return pf, nil
	}
	if !convertible(field.Type) {
		return pf, fmt.Errorf("unsupported parameter type %s", field.Type)
	}
	return pf, nil
}

// Inject 注入 target 的字段；target 的类型必须与注入器一致
// 缺失的参数重置为零值，复用的实例不会保留上一次请求的数据
// 参数转换失败返回 400 错误
func (pi *PropertyInjector) Inject(w http.ResponseWriter, r *http.Request, target any) error {
	if len(pi.fields) == 0 {
		return nil
	}
	v := reflect.ValueOf(target)
	if !v.IsValid() || v.Type() != pi.typ || v.IsNil() {
		return fmt.Errorf("rest: property injector for %s cannot inject %T", pi.typ, target)
	}
	elem := v.Elem()
	for _, pf := range pi.fields {
		fv := elem.Field(pf.index)
		switch pf.source {
		case sourceContext:
			fv.Set(contextValue(pf.typ, w, r))
		case sourceQuery:
			values, ok := r.URL.Query()[pf.param]
			if !ok {
				fv.Set(reflect.Zero(pf.typ))
				continue
			}
			if pf.typ.Kind() == reflect.Slice {
				fv.Set(reflect.ValueOf(values))
				continue
			}
			if err := setConverted(fv, values[0]); err != nil {
				return badParam("query", pf.param, err)
			}
		case sourcePath:
			raw := chi.URLParam(r, pf.param)
			if raw == "" {
				fv.Set(reflect.Zero(pf.typ))
				continue
			}
			if err := setConverted(fv, raw); err != nil {
				return badParam("path", pf.param, err)
			}
		case sourceHeader:
			raw := r.Header.Get(pf.param)
			if raw == "" {
				fv.Set(reflect.Zero(pf.typ))
				continue
			}
			if err := setConverted(fv, raw); err != nil {
				return badParam("header", pf.param, err)
			}
		}
	}
	return nil
}

func badParam(source, name string, err error) error {
	return NewError(http.StatusBadRequest, fmt.Errorf("invalid %s parameter %q: %w", source, name, err))
}

func contextValue(t reflect.Type, w http.ResponseWriter, r *http.Request) reflect.Value {
	switch t {
	case responseWriterType:
		return reflect.ValueOf(&w).Elem()
	case contextType:
		ctx := r.Context()
		return reflect.ValueOf(&ctx).Elem()
	case headerType:
		return reflect.ValueOf(r.Header)
	case urlType:
		return reflect.ValueOf(r.URL)
	}
	return reflect.ValueOf(r)
}

func convertible(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func setConverted(fv reflect.Value, raw string) error {
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetFloat(f)
	default:
		return fmt.Errorf("unsupported type %s", fv.Type())
	}
	return nil
}
