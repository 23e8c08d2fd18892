package fleet

import (
	"context"
	"fleet-tracker/internal/liveness"
	"fleet-tracker/internal/repository"
	"fleet-tracker/internal/repository/model"
	"fmt"
)

type KPI struct {
	Total  int64
	Online int64
}

// KPIs counts records per kind straight from the repository, nothing is cached.
type KPIs struct {
	repo   repository.Repository
	policy liveness.Policy
}

func NewKPIs(repo repository.Repository, policy liveness.Policy) *KPIs {
	return &KPIs{repo: repo, policy: policy}
}

func (k *KPIs) For(ctx context.Context, kind Kind) (KPI, error) {
	var count func(context.Context, model.Filter) (int64, error)
	switch kind {
	case KindPlayer:
		count = k.repo.CountPlayers
	case KindGameServer:
		count = k.repo.CountGameServers
	case KindProxyServer:
		count = k.repo.CountProxyServers
	default:
		return KPI{}, fmt.Errorf("unknown kind %v", kind)
	}

	// Online is counted first: a record registered between the two queries can only raise Total.
	online, err := count(ctx, model.Filter{ContactedSince: k.policy.Cutoff()})
	if err != nil {
		return KPI{}, fmt.Errorf("failed to count online %v: %w", kind, err)
	}

	total, err := count(ctx, model.Filter{})
	if err != nil {
		return KPI{}, fmt.Errorf("failed to count %v: %w", kind, err)
	}

	return KPI{Total: total, Online: min(online, total)}, nil
}
