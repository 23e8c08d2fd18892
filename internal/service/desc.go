package service

import (
	"context"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "fleet.FleetTracker"

// FleetTrackerServer is the gRPC surface of the tracker. Requests and responses are
// google.protobuf.Struct messages, field names follow the JSON names of the records.
type FleetTrackerServer interface {
	RegisterGameServer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RegisterProxyServer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateGameServer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateProxyServer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetGameServer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetProxyServer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetOnlineGameServers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetOnlineProxyServers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetServerPlayers(context.Context, *structpb.Struct) (*structpb.Struct, error)

	UpsertPlayer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPlayer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PingPlayers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	JoinGameServer(context.Context, *structpb.Struct) (*structpb.Struct, error)

	GetKpis(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BroadcastMessage(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryHandler func(FleetTrackerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

var FleetTrackerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FleetTrackerServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("RegisterGameServer", FleetTrackerServer.RegisterGameServer),
		unaryMethod("RegisterProxyServer", FleetTrackerServer.RegisterProxyServer),
		unaryMethod("UpdateGameServer", FleetTrackerServer.UpdateGameServer),
		unaryMethod("UpdateProxyServer", FleetTrackerServer.UpdateProxyServer),
		unaryMethod("GetGameServer", FleetTrackerServer.GetGameServer),
		unaryMethod("GetProxyServer", FleetTrackerServer.GetProxyServer),
		unaryMethod("GetOnlineGameServers", FleetTrackerServer.GetOnlineGameServers),
		unaryMethod("GetOnlineProxyServers", FleetTrackerServer.GetOnlineProxyServers),
		unaryMethod("GetServerPlayers", FleetTrackerServer.GetServerPlayers),
		unaryMethod("UpsertPlayer", FleetTrackerServer.UpsertPlayer),
		unaryMethod("GetPlayer", FleetTrackerServer.GetPlayer),
		unaryMethod("PingPlayers", FleetTrackerServer.PingPlayers),
		unaryMethod("JoinGameServer", FleetTrackerServer.JoinGameServer),
		unaryMethod("GetKpis", FleetTrackerServer.GetKpis),
		unaryMethod("BroadcastMessage", FleetTrackerServer.BroadcastMessage),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fleet/fleet_tracker.proto",
}

func RegisterFleetTrackerServer(s grpc.ServiceRegistrar, srv FleetTrackerServer) {
	s.RegisterService(&FleetTrackerServiceDesc, srv)
}

func unaryMethod(name string, h unaryHandler) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return h(srv.(FleetTrackerServer), ctx, in)
			}

			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return h(srv.(FleetTrackerServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
