package binding

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ErrorHandler turns a failed binding into an HTTP response.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, res Result)

// Middleware binds the given route parameters before the handler runs,
// attaching each resolved value to the request context under its
// attachment name. Parameters are resolved strictly in the order given;
// the first hard failure short-circuits the pipeline with the default
// error handler. Optional bindings that found nothing simply leave the
// context untouched.
//
//	r := chi.NewRouter()
//	r.With(binding.Middleware(b,
//		binding.Spec{Param: "user", Model: "users"},
//		binding.Spec{Param: "post", Model: "posts", Options: binding.Options{Optional: true}},
//	)).Get("/users/{user}/posts/{post}", handler)
func Middleware(b *Binder, specs ...Spec) func(http.Handler) http.Handler {
	return MiddlewareWithErrorHandler(b, DefaultErrorHandler, specs...)
}

// MiddlewareWithErrorHandler is Middleware with a custom failure
// response. A nil handler falls back to DefaultErrorHandler.
func MiddlewareWithErrorHandler(b *Binder, onError ErrorHandler, specs ...Spec) func(http.Handler) http.Handler {
	if onError == nil {
		onError = DefaultErrorHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			for _, spec := range specs {
				raw := chi.URLParam(r, spec.Param)

				// Pass the accumulating context so Validate callbacks
				// see previously bound values.
				res := b.Bind(ctx, spec.Param, raw, spec.Model, spec.Options)
				if !res.OK() {
					onError(w, r, res)
					return
				}
				if res.Value != nil {
					ctx = Attach(ctx, res.Name, res.Value)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Param   string `json:"param,omitempty"`
	Value   string `json:"value,omitempty"`
	Model   string `json:"model,omitempty"`
}

// DefaultErrorHandler writes a structured JSON payload carrying the
// error kind, message, status code and, for not-found failures, the
// offending parameter, value and model. The status comes from the
// error's declared status code; errors without one map to 500.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, res Result) {
	payload := errorPayload{
		Error:   ErrorKind(res.Err),
		Message: res.Err.Error(),
		Status:  StatusCode(res.Err),
	}

	var nf NotFoundError
	if errors.As(res.Err, &nf) {
		payload.Param = nf.Param
		payload.Value = nf.Value
		payload.Model = nf.Model
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(payload.Status)
	_ = json.NewEncoder(w).Encode(payload)
}
