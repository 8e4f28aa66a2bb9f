package grpcapi

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/kaspanet/ordindexer/internal/headerlist"
	"github.com/kaspanet/ordindexer/internal/logs"
	"github.com/kaspanet/ordindexer/internal/ordmempool"
	"github.com/kaspanet/ordindexer/internal/store"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// Deps bundles every read-only dependency a method handler may need.
// Mirrors internal/restapi.Deps so both adapters can be wired from the
// same constructed indexer state.
type Deps struct {
	Store   *store.Store
	Headers *headerlist.List
	Mempool *ordmempool.Mempool
	Log     *logs.Logger
}

// Start listens on listenAddr and serves the query service in the
// background, returning a function that stops the server gracefully.
// Mirrors internal/restapi.Start's Start(addr, deps) -> shutdown()
// calling convention.
func Start(listenAddr string, deps *Deps) (func(), error) {
	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, err
	}

	srv := grpc.NewServer()
	srv.RegisterService(&queryServiceDesc, &queryServer{deps: deps})

	go func() {
		if err := srv.Serve(lis); err != nil {
			if deps.Log != nil {
				deps.Log.Errorf("grpc api: %s", err)
			}
		}
	}()

	return srv.GracefulStop, nil
}
