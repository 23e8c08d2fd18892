package service

import (
	"context"
	"errors"
	"fleet-tracker/internal/fleet"
	"fleet-tracker/internal/repository/model"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"net"
)

type fleetTrackerService struct {
	liveness     *fleet.Liveness
	gate         *fleet.AdmissionGate
	kpis         *fleet.KPIs
	registration *fleet.Registration
	notifier     *fleet.Notifier
}

func NewFleetTrackerService(liveness *fleet.Liveness, gate *fleet.AdmissionGate, kpis *fleet.KPIs,
	registration *fleet.Registration, notifier *fleet.Notifier) FleetTrackerServer {

	return &fleetTrackerService{
		liveness:     liveness,
		gate:         gate,
		kpis:         kpis,
		registration: registration,
		notifier:     notifier,
	}
}

func (s *fleetTrackerService) RegisterGameServer(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	server, err := s.registration.RegisterGameServer(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to register game server: %v", err)
	}
	return newStruct(map[string]any{"id": server.Id, "name": server.Name})
}

func (s *fleetTrackerService) RegisterProxyServer(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	server, err := s.registration.RegisterProxyServer(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to register proxy server: %v", err)
	}
	return newStruct(map[string]any{"id": server.Id, "name": server.Name})
}

func (s *fleetTrackerService) UpdateGameServer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "id")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "missing server id")
	}

	successful, err := s.registration.UpdateGameServer(ctx, id, peerAddr(ctx), intField(req, "port"), intField(req, "maximumPlayers"))
	if err != nil {
		return nil, registrationError(err)
	}
	return newStruct(map[string]any{"ping": "pong", "successful": successful})
}

func (s *fleetTrackerService) UpdateProxyServer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "id")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "missing server id")
	}

	successful, err := s.registration.UpdateProxyServer(ctx, id, peerAddr(ctx), intField(req, "port"))
	if err != nil {
		return nil, registrationError(err)
	}
	return newStruct(map[string]any{"ping": "pong", "successful": successful})
}

func (s *fleetTrackerService) GetGameServer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	server, presence, err := s.liveness.GetGameServerIfOnline(ctx, stringField(req, "id"))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to get game server from repository: %v", err)
	}
	if presence == fleet.NotFound {
		return nil, status.Error(codes.NotFound, "could not find server")
	}

	fields := gameServerFields(server)
	fields["online"] = presence == fleet.Online
	return newStruct(fields)
}

func (s *fleetTrackerService) GetProxyServer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	server, presence, err := s.liveness.GetProxyServerIfOnline(ctx, stringField(req, "id"))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to get proxy server from repository: %v", err)
	}
	if presence == fleet.NotFound {
		return nil, status.Error(codes.NotFound, "could not find server")
	}

	fields := proxyServerFields(server)
	fields["online"] = presence == fleet.Online
	return newStruct(fields)
}

func (s *fleetTrackerService) GetOnlineGameServers(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	servers, err := s.liveness.ListOnlineGameServers(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to get online game servers from repository: %v", err)
	}

	list := make([]any, len(servers))
	for i, server := range servers {
		list[i] = gameServerFields(server)
	}
	return newStruct(map[string]any{"servers": list})
}

func (s *fleetTrackerService) GetOnlineProxyServers(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	servers, err := s.liveness.ListOnlineProxyServers(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to get online proxy servers from repository: %v", err)
	}

	list := make([]any, len(servers))
	for i, server := range servers {
		list[i] = proxyServerFields(server)
	}
	return newStruct(map[string]any{"servers": list})
}

func (s *fleetTrackerService) GetServerPlayers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	players, err := s.liveness.ServerPlayers(ctx, stringField(req, "serverId"))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to get server players from repository: %v", err)
	}

	list := make([]any, len(players))
	for i, p := range players {
		list[i] = playerFields(p)
	}
	return newStruct(map[string]any{"players": list})
}

func (s *fleetTrackerService) UpsertPlayer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	pId, err := uuid.Parse(stringField(req, "id"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid player id")
	}

	p, err := s.registration.UpsertPlayer(ctx, pId, stringField(req, "name"))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to upsert player: %v", err)
	}
	return newStruct(playerFields(p))
}

func (s *fleetTrackerService) GetPlayer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	pId, err := uuid.Parse(stringField(req, "id"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid player id")
	}

	p, presence, err := s.liveness.GetPlayerIfOnline(ctx, pId)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to get player from repository: %v", err)
	}
	if presence == fleet.NotFound {
		return nil, status.Error(codes.NotFound, "could not find player")
	}

	fields := playerFields(p)
	fields["online"] = presence == fleet.Online
	return newStruct(fields)
}

func (s *fleetTrackerService) PingPlayers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ids := req.GetFields()["playerIds"].GetListValue().GetValues()
	pIds := make([]uuid.UUID, len(ids))
	for i, id := range ids {
		parsed, err := uuid.Parse(id.GetStringValue())
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, "invalid player id")
		}
		pIds[i] = parsed
	}

	if err := s.registration.PingPlayers(ctx, pIds); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to ping players: %v", err)
	}
	return newStruct(map[string]any{"done": true})
}

// JoinGameServer reports refused joins in the result field, they are not RPC errors.
func (s *fleetTrackerService) JoinGameServer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	pId, err := uuid.Parse(stringField(req, "playerId"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid player id")
	}

	res, err := s.gate.Assign(ctx, pId, stringField(req, "serverId"))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to assign player: %v", err)
	}
	return newStruct(map[string]any{"result": res.String(), "assigned": res == fleet.Assigned})
}

func (s *fleetTrackerService) GetKpis(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	fields := make(map[string]any, len(fleet.Kinds))
	for _, kind := range fleet.Kinds {
		kpi, err := s.kpis.For(ctx, kind)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "failed to get kpis: %v", err)
		}
		fields[kind.String()] = map[string]any{"total": kpi.Total, "online": kpi.Online}
	}
	return newStruct(fields)
}

func (s *fleetTrackerService) BroadcastMessage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.notifier.BroadcastMessage(ctx, stringField(req, "message")); err != nil {
		return nil, status.Errorf(codes.Unavailable, "failed to broadcast message: %v", err)
	}
	return newStruct(map[string]any{"done": true})
}

func registrationError(err error) error {
	if errors.Is(err, fleet.ErrInvalidProfile) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.Errorf(codes.Internal, "failed to update server: %v", err)
}

func peerAddr(ctx context.Context) net.Addr {
	p, ok := peer.FromContext(ctx)
	if !ok {
		return nil
	}
	return p.Addr
}

func playerFields(p *model.Player) map[string]any {
	return map[string]any{
		"id":           p.Id.String(),
		"name":         p.Name,
		"gameServerId": p.GameServerId,
		"lastContact":  p.LastContact.UnixMilli(),
	}
}

func gameServerFields(s *model.GameServer) map[string]any {
	return map[string]any{
		"id":             s.Id,
		"name":           s.Name,
		"ip":             s.Ip,
		"port":           s.Port,
		"maximumPlayers": s.MaximumPlayers,
		"lastContact":    s.LastContact.UnixMilli(),
	}
}

func proxyServerFields(s *model.ProxyServer) map[string]any {
	return map[string]any{
		"id":          s.Id,
		"name":        s.Name,
		"ip":          s.Ip,
		"port":        s.Port,
		"lastContact": s.LastContact.UnixMilli(),
	}
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	res, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to build response: %v", err)
	}
	return res, nil
}

func stringField(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

func intField(req *structpb.Struct, key string) int {
	return int(req.GetFields()[key].GetNumberValue())
}
