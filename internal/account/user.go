package account

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"StrategyDesk/internal/api"
	"StrategyDesk/internal/model"
	"StrategyDesk/internal/persist"
	"StrategyDesk/internal/remote"
	"StrategyDesk/internal/store"
)

// UserState is the identity, profile and holdings of the signed-in user.
// Only id and token are persisted.
type UserState struct {
	ID         int              `json:"id"`
	Token      string           `json:"token"`
	Profile    *model.Profile   `json:"profile"`
	Strategies []model.Strategy `json:"strategies"`
}

// Identity returns the id and token as an Identity.
func (s UserState) Identity() model.Identity {
	return model.Identity{UserID: s.ID, Token: s.Token}
}

func initialUserState() UserState {
	return UserState{ID: model.UnsetUserID}
}

// UserHandle hands out the singleton user store.
type UserHandle struct {
	h    *store.Handle[UserState]
	deps Deps
}

// DefineUserStore registers the user store in reg.
func DefineUserStore(reg *store.Registry, deps Deps) (*UserHandle, error) {
	h, err := store.Define(reg, UserStoreName, store.Spec[UserState]{
		Initial: initialUserState,
		Persist: &store.PersistencePolicy{
			Resolve: persist.ClientOnly(deps.Backend),
			Fields:  []string{"id", "token"},
		},
	})
	if err != nil {
		return nil, err
	}
	return &UserHandle{h: h, deps: deps}, nil
}

// Use returns the user store. Every call shares the same state.
func (u *UserHandle) Use() *UserStore {
	return &UserStore{
		s:       u.h.Use(),
		client:  u.deps.Client,
		baseURL: u.deps.BaseURL,
		log:     u.deps.logger().With(zap.String("store", UserStoreName)),
	}
}

// UserStore carries the actions of the user store.
type UserStore struct {
	s       *store.Store[UserState]
	client  remote.Client
	baseURL string
	log     *zap.Logger
}

func (u *UserStore) State() UserState { return u.s.State() }

func (u *UserStore) Identity() model.Identity { return u.s.State().Identity() }

// Profile is nil until the first successful FetchUser.
func (u *UserStore) Profile() *model.Profile { return u.s.State().Profile }

func (u *UserStore) Strategies() []model.Strategy { return u.s.State().Strategies }

func (u *UserStore) SetUserID(id int) {
	u.s.Update(func(s *UserState) { s.ID = id })
}

func (u *UserStore) SetToken(token string) {
	u.s.Update(func(s *UserState) { s.Token = token })
}

// Reset returns the store to its signed-out state.
func (u *UserStore) Reset() {
	u.s.Update(func(s *UserState) { *s = initialUserState() })
}

// Login exchanges credentials for an identity and stores it. Unlike the
// hydration actions it reports failure to the caller.
func (u *UserStore) Login(ctx context.Context, username, password string) error {
	url := api.LoginURL(u.baseURL)
	body := map[string]string{"username": username, "password": password}
	data, err := api.Post[model.LoginData](ctx, u.client, url, "", body, "Error logging in")
	if err == nil && (data.UserID <= 0 || data.Token == "") {
		err = fmt.Errorf("login response for %q has no identity", username)
	}
	if err != nil {
		u.log.Error("login failed", zap.String("action", "login"), zap.String("url", url), zap.Error(err))
		return err
	}
	u.SetUserID(data.UserID)
	u.SetToken(data.Token)
	u.log.Info("logged in", zap.Int("user_id", data.UserID))
	return nil
}

// FetchUser replaces the profile with GET /user/{id}.
func (u *UserStore) FetchUser(ctx context.Context) {
	id := u.Identity()
	if !id.Ready() {
		u.log.Error("cannot fetch user", zap.String("action", "fetchUser"), zap.Error(ErrNotReady),
			zap.Int("user_id", id.UserID), zap.Bool("has_token", id.HasToken()))
		return
	}

	url := api.UserURL(u.baseURL, id.UserID)
	profile, err := api.Get[model.Profile](ctx, u.client, url, id.Token, "Error fetching user data")
	if err != nil {
		u.log.Error("error fetching user", zap.String("action", "fetchUser"), zap.String("url", url), zap.Error(err))
		return
	}
	u.s.Update(func(s *UserState) { s.Profile = &profile })
}

// FetchUserStrategies replaces the user's holdings with GET
// /user/strategies/ and returns them. It returns nil on any failure.
func (u *UserStore) FetchUserStrategies(ctx context.Context) []model.Strategy {
	id := u.Identity()
	if !id.HasToken() {
		u.log.Error("cannot fetch user strategies", zap.String("action", "fetchUserStrategies"), zap.Error(ErrNotReady))
		return nil
	}

	url := api.UserStrategiesURL(u.baseURL)
	list, err := api.Get[[]model.Strategy](ctx, u.client, url, id.Token, "Error fetching user strategies")
	if err != nil {
		u.log.Error("error fetching user strategies", zap.String("action", "fetchUserStrategies"), zap.String("url", url), zap.Error(err))
		return nil
	}
	u.s.Update(func(s *UserState) { s.Strategies = list })
	return list
}

// Register creates an account. It does not sign in; call Login afterwards.
func (u *UserStore) Register(ctx context.Context, name, username, password string) (model.RegisteredUser, error) {
	url := api.RegisterURL(u.baseURL)
	body := map[string]string{"name": name, "username": username, "password": password}
	created, err := api.Post[model.RegisteredUser](ctx, u.client, url, "", body, "Error registering user")
	if err != nil {
		u.log.Error("register failed", zap.String("action", "register"), zap.String("url", url), zap.Error(err))
		return model.RegisteredUser{}, err
	}
	u.log.Info("registered", zap.Int("user_id", created.ID), zap.String("username", created.Username))
	return created, nil
}

// Invest moves amount of the user's free capital into a strategy, then
// re-hydrates the profile and holdings.
func (u *UserStore) Invest(ctx context.Context, strategyID int, amount float64) error {
	return u.transfer(ctx, "invest", api.InvestURL(u.baseURL), model.Transfer{StrategyID: strategyID, Amount: amount})
}

// Withdraw moves amount out of a held strategy, then re-hydrates the profile
// and holdings.
func (u *UserStore) Withdraw(ctx context.Context, strategyID int, amount float64) error {
	return u.transfer(ctx, "withdraw", api.WithdrawURL(u.baseURL), model.Transfer{StrategyID: strategyID, Amount: amount})
}

func (u *UserStore) transfer(ctx context.Context, action, url string, t model.Transfer) error {
	id := u.Identity()
	if !id.Ready() {
		u.log.Error("cannot "+action, zap.String("action", action), zap.Error(ErrNotReady))
		return ErrNotReady
	}
	if err := api.Send(ctx, u.client, url, id.Token, t, "Error processing "+action); err != nil {
		u.log.Error(action+" failed", zap.String("action", action), zap.String("url", url),
			zap.Int("strategy_id", t.StrategyID), zap.Float64("amount", t.Amount), zap.Error(err))
		return err
	}
	u.log.Info(action+" accepted", zap.Int("strategy_id", t.StrategyID), zap.Float64("amount", t.Amount))

	u.FetchUser(ctx)
	u.FetchUserStrategies(ctx)
	return nil
}
