package account

import (
	"context"

	"go.uber.org/zap"

	"StrategyDesk/internal/api"
	"StrategyDesk/internal/model"
	"StrategyDesk/internal/persist"
	"StrategyDesk/internal/remote"
	"StrategyDesk/internal/store"
)

// StrategiesState is the public strategy catalogue. It is persisted.
type StrategiesState struct {
	Strategies []model.Strategy `json:"strategies"`
}

func initialStrategiesState() StrategiesState {
	return StrategiesState{Strategies: []model.Strategy{}}
}

// StrategiesHandle hands out the singleton strategies store.
type StrategiesHandle struct {
	h    *store.Handle[StrategiesState]
	deps Deps
}

// DefineStrategiesStore registers the strategies store in reg.
func DefineStrategiesStore(reg *store.Registry, deps Deps) (*StrategiesHandle, error) {
	h, err := store.Define(reg, StrategiesStoreName, store.Spec[StrategiesState]{
		Initial: initialStrategiesState,
		Persist: &store.PersistencePolicy{
			Resolve: persist.ClientOnly(deps.Backend),
			Fields:  []string{"strategies"},
		},
	})
	if err != nil {
		return nil, err
	}
	return &StrategiesHandle{h: h, deps: deps}, nil
}

func (sh *StrategiesHandle) Use() *StrategiesStore {
	return &StrategiesStore{
		s:       sh.h.Use(),
		client:  sh.deps.Client,
		baseURL: sh.deps.BaseURL,
		log:     sh.deps.logger().With(zap.String("store", StrategiesStoreName)),
	}
}

// StrategiesStore carries the actions of the strategies store.
type StrategiesStore struct {
	s       *store.Store[StrategiesState]
	client  remote.Client
	baseURL string
	log     *zap.Logger
}

func (st *StrategiesStore) Strategies() []model.Strategy { return st.s.State().Strategies }

// FetchStrategies replaces the catalogue with GET /strategies. No
// authentication is sent.
func (st *StrategiesStore) FetchStrategies(ctx context.Context) {
	url := api.StrategiesURL(st.baseURL)
	list, err := api.Get[[]model.Strategy](ctx, st.client, url, "", "Error fetching strategies")
	if err != nil {
		st.log.Error("error fetching strategies", zap.String("action", "fetchStrategies"), zap.String("url", url), zap.Error(err))
		return
	}
	st.s.Update(func(s *StrategiesState) { s.Strategies = list })
}

// FetchStrategy looks up one strategy with GET /strategies/{id}. The
// catalogue is left as is; the result is only returned. Returns nil on any
// failure.
func (st *StrategiesStore) FetchStrategy(ctx context.Context, id int) *model.Strategy {
	if id <= 0 {
		st.log.Error("cannot fetch strategy", zap.String("action", "fetchStrategy"), zap.Int("strategy_id", id))
		return nil
	}
	url := api.StrategyURL(st.baseURL, id)
	s, err := api.Get[model.Strategy](ctx, st.client, url, "", "Error fetching strategy")
	if err != nil {
		st.log.Error("error fetching strategy", zap.String("action", "fetchStrategy"), zap.String("url", url), zap.Error(err))
		return nil
	}
	return &s
}
