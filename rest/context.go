package rest

import (
	"context"
	"net/http"
)

type dispatchCtxKey struct{}

// dispatchState 当前正在分发的请求
type dispatchState struct {
	w http.ResponseWriter
	r *http.Request
}

func withDispatch(w http.ResponseWriter, r *http.Request) *http.Request {
	state := &dispatchState{w: w}
	r = r.WithContext(context.WithValue(r.Context(), dispatchCtxKey{}, state))
	state.r = r
	return r
}

// updateDispatch 记录经过中间件与请求过滤器之后的最终请求
func updateDispatch(w http.ResponseWriter, r *http.Request) {
	if state, ok := r.Context().Value(dispatchCtxKey{}).(*dispatchState); ok {
		state.w, state.r = w, r
	}
}

// RequestFromContext 返回正在分发的请求
func RequestFromContext(ctx context.Context) (*http.Request, bool) {
	state, ok := ctx.Value(dispatchCtxKey{}).(*dispatchState)
	if !ok {
		return nil, false
	}
	return state.r, true
}

// ResponseWriterFromContext 返回正在分发的请求的 ResponseWriter
func ResponseWriterFromContext(ctx context.Context) (http.ResponseWriter, bool) {
	state, ok := ctx.Value(dispatchCtxKey{}).(*dispatchState)
	if !ok {
		return nil, false
	}
	return state.w, true
}
