package grpcapi

import (
	"context"

	"google.golang.org/grpc"
)

// queryServiceDesc registers queryServer's methods by hand, in the
// shape protoc-gen-go-grpc would otherwise generate: each MethodDesc
// decodes its request with the dec callback, runs it through the
// interceptor chain if one is installed, and otherwise calls straight
// through to the matching queryServer method.
var queryServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*interface{})(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Token", Handler: tokenHandler},
		{MethodName: "Balance", Handler: balanceHandler},
		{MethodName: "AccountBalances", Handler: accountBalancesHandler},
		{MethodName: "OutstandingTransfers", Handler: outstandingTransfersHandler},
		{MethodName: "InscriptionAtOutpoint", Handler: inscriptionAtOutpointHandler},
		{MethodName: "OwnerHistory", Handler: ownerHistoryHandler},
		{MethodName: "UserStats", Handler: userStatsHandler},
		{MethodName: "ScriptStats", Handler: scriptStatsHandler},
		{MethodName: "MempoolTx", Handler: mempoolTxHandler},
		{MethodName: "MempoolRecent", Handler: mempoolRecentHandler},
		{MethodName: "MempoolBacklog", Handler: mempoolBacklogHandler},
	},
	Metadata: "ordindexer/query.proto",
}

func tokenHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(TokenRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*queryServer).Token(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Token"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*queryServer).Token(ctx, req.(*TokenRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func balanceHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(BalanceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*queryServer).Balance(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Balance"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*queryServer).Balance(ctx, req.(*BalanceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func accountBalancesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(OwnerRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*queryServer).AccountBalances(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/AccountBalances"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*queryServer).AccountBalances(ctx, req.(*OwnerRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func outstandingTransfersHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(OwnerRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*queryServer).OutstandingTransfers(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/OutstandingTransfers"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*queryServer).OutstandingTransfers(ctx, req.(*OwnerRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func inscriptionAtOutpointHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(OutpointRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*queryServer).InscriptionAtOutpoint(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/InscriptionAtOutpoint"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*queryServer).InscriptionAtOutpoint(ctx, req.(*OutpointRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func ownerHistoryHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(OwnerRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*queryServer).OwnerHistory(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/OwnerHistory"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*queryServer).OwnerHistory(ctx, req.(*OwnerRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func userStatsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(OwnerRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*queryServer).UserStats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/UserStats"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*queryServer).UserStats(ctx, req.(*OwnerRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func scriptStatsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ScriptHashRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*queryServer).ScriptStats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ScriptStats"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*queryServer).ScriptStats(ctx, req.(*ScriptHashRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func mempoolTxHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(MempoolTxRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*queryServer).MempoolTx(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/MempoolTx"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*queryServer).MempoolTx(ctx, req.(*MempoolTxRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func mempoolRecentHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*queryServer).MempoolRecent(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/MempoolRecent"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*queryServer).MempoolRecent(ctx, req.(*Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func mempoolBacklogHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*queryServer).MempoolBacklog(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/MempoolBacklog"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*queryServer).MempoolBacklog(ctx, req.(*Empty))
	}
	return interceptor(ctx, in, info, handler)
}
