package guard

import (
	"context"
	"net/http"

	"github.com/hwsystem/hwsystem/internal/platform/httpx"
)

// Rejection is a terminal pipeline outcome surfaced to the caller as a
// structured error. None of the rejections trigger server-side retries.
type Rejection struct {
	Status  int
	Code    httpx.Code
	Message string
	Header  http.Header
}

// Write sends the rejection as an enveloped response.
func (rej *Rejection) Write(w http.ResponseWriter) {
	for key, values := range rej.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	httpx.Error(w, rej.Status, rej.Code, rej.Message)
}

// Guard is one pipeline stage: it inspects the request and either enriches
// the context for downstream stages or rejects. Guards never write to the
// response themselves; the chain runner does.
type Guard func(r *http.Request) (context.Context, *Rejection)

// Chain composes guards into middleware. Stages run strictly in order within
// a request; the first rejection short-circuits and no later stage runs. The
// handler only ever sees a context every stage has passed, so a request that
// never reaches it leaks no partial-auth state.
func Chain(guards ...Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, g := range guards {
				ctx, rej := g(r)
				if rej != nil {
					rej.Write(w)
					return
				}
				if ctx != nil {
					r = r.WithContext(ctx)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
