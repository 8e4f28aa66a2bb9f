// Package restapi exposes the read-only query surface named in
// SPEC_FULL.md's peripheral-adapters section over HTTP, using
// gorilla/mux the way apiserver/server/routes.go wires its own router:
// one makeHandler wrapper turning a (routeParams, queryParams) ->
// (interface{}, *HandlerError) function into an http.HandlerFunc, so
// individual handlers never touch *http.Request directly.
package restapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kaspanet/ordindexer/internal/headerlist"
	"github.com/kaspanet/ordindexer/internal/logs"
	"github.com/kaspanet/ordindexer/internal/ordmempool"
	"github.com/kaspanet/ordindexer/internal/store"
)

// Deps bundles every read-only dependency a handler may need.
type Deps struct {
	Store   *store.Store
	Headers *headerlist.List
	Mempool *ordmempool.Mempool
	Log     *logs.Logger
}

// Start builds the router, begins serving listenAddr in the
// background, and returns a function that gracefully shuts the server
// down. Mirrors the teacher's server.Start(listenAddr)/shutdownServer
// idiom (see apiserver/main.go's deferred shutdownServer()).
func Start(listenAddr string, deps *Deps) func() {
	router := mux.NewRouter()
	addRoutes(router, deps)

	srv := &http.Server{Addr: listenAddr, Handler: router}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if deps.Log != nil {
				deps.Log.Errorf("rest api: %s", err)
			}
		}
	}()

	return func() {
		if err := srv.Shutdown(context.Background()); err != nil && deps.Log != nil {
			deps.Log.Warnf("rest api: shutdown: %s", err)
		}
	}
}

type handlerFunc func(routeParams map[string]string, queryParams map[string][]string, deps *Deps) (interface{}, *HandlerError)

func makeHandler(deps *Deps, handler handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response, hErr := handler(mux.Vars(r), r.URL.Query(), deps)
		if hErr != nil {
			if deps.Log != nil {
				deps.Log.Warnf("rest api: %s", hErr.Message)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(hErr.Code)
			json.NewEncoder(w).Encode(hErr)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}
