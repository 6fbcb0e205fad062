// Package stubapi is an in-memory stand-in for the trading backend. It
// speaks the same envelope and endpoints so the stores can be exercised end
// to end without the real service.
package stubapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"StrategyDesk/internal/model"
)

type userRecord struct {
	id           int
	passwordHash []byte
	profile      model.Profile
	holdings     []int
	invested     map[int]float64
}

// Server holds the stub's data and routes.
type Server struct {
	mu         sync.RWMutex
	users      map[int]*userRecord
	byName     map[string]int
	strategies map[int]model.Strategy
	nextUserID int

	tokens *TokenIssuer
	log    *zap.Logger
	router chi.Router
}

// New returns an empty stub signing tokens with secret.
func New(secret string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		users:      make(map[int]*userRecord),
		byName:     make(map[string]int),
		strategies: make(map[int]model.Strategy),
		nextUserID: 1,
		tokens:     NewTokenIssuer(secret, 24*time.Hour),
		log:        logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, map[string]string{"status": "healthy"})
	})
	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)
	r.Get("/user/strategies", s.handleUserStrategies)
	r.Get("/user/strategies/", s.handleUserStrategies)
	r.Get("/user/{userID}", s.handleUser)
	r.Get("/strategies", s.handleStrategies)
	r.Get("/strategies/{strategyID}", s.handleStrategy)
	r.Post("/strategies/invest", s.handleTransfer(s.invest, "Amount added to strategy successfully"))
	r.Post("/strategies/withdraw", s.handleTransfer(s.withdraw, "Amount withdrawn from strategy successfully"))
	return r
}

// Handler returns the HTTP handler serving the stub API.
func (s *Server) Handler() http.Handler { return s.router }

// Tokens returns the issuer used to sign and verify bearer tokens.
func (s *Server) Tokens() *TokenIssuer { return s.tokens }

// AddUser registers a user and returns its id.
func (s *Server) AddUser(password string, p model.Profile) (int, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[p.Username]; ok {
		return 0, errors.New("User already exists")
	}
	id := s.nextUserID
	s.nextUserID++
	s.users[id] = &userRecord{id: id, passwordHash: hash, profile: p, invested: make(map[int]float64)}
	s.byName[p.Username] = id
	return id, nil
}

// PutStrategy inserts or replaces a catalogue entry.
func (s *Server) PutStrategy(st model.Strategy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strategies[st.ID] = st
}

// Hold records that a user holds amount of a strategy. It does not touch the
// user's capital.
func (s *Server) Hold(userID, strategyID int, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return errors.New("User not found")
	}
	if _, ok := s.strategies[strategyID]; !ok {
		return errors.New("Strategy not found")
	}
	if _, held := u.invested[strategyID]; !held {
		u.holdings = append(u.holdings, strategyID)
	}
	u.invested[strategyID] += amount
	return nil
}

func (s *Server) invest(userID int, t model.Transfer) error {
	if t.Amount <= 0 {
		return errors.New("Amount must be greater than 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return errors.New("User not found")
	}
	if _, ok := s.strategies[t.StrategyID]; !ok {
		return errors.New("Strategy not found")
	}
	if u.profile.CapitalRemaining < t.Amount {
		return errors.New("Insufficient capital")
	}
	u.profile.CapitalRemaining -= t.Amount
	u.profile.CapitalUsed += t.Amount
	if _, held := u.invested[t.StrategyID]; !held {
		u.holdings = append(u.holdings, t.StrategyID)
	}
	u.invested[t.StrategyID] += t.Amount
	return nil
}

func (s *Server) withdraw(userID int, t model.Transfer) error {
	if t.Amount <= 0 {
		return errors.New("Amount must be greater than 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return errors.New("User not found")
	}
	if _, ok := s.strategies[t.StrategyID]; !ok {
		return errors.New("Strategy not found")
	}
	held, ok := u.invested[t.StrategyID]
	if !ok {
		return errors.New("User strategy not found")
	}
	if t.Amount > held {
		return errors.New("Insufficient units to withdraw")
	}
	u.profile.CapitalRemaining += t.Amount
	u.profile.CapitalUsed -= t.Amount
	if held == t.Amount {
		delete(u.invested, t.StrategyID)
		u.holdings = slices.DeleteFunc(u.holdings, func(id int) bool { return id == t.StrategyID })
		return nil
	}
	u.invested[t.StrategyID] = held - t.Amount
	return nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid register request")
		return
	}
	if req.Name == "" || req.Username == "" || req.Password == "" {
		s.writeError(w, "Name, username and password are required")
		return
	}
	id, err := s.AddUser(req.Password, model.Profile{
		Username: req.Username,
		Name:     req.Name,
		IsActive: true,
	})
	if err != nil {
		s.writeError(w, err.Error())
		return
	}
	s.writeOK(w, "User created successfully", model.RegisteredUser{
		ID:       id,
		Name:     req.Name,
		Username: req.Username,
	})
}

// handleTransfer authenticates the caller and applies a capital movement.
// Success carries no data.
func (s *Server) handleTransfer(apply func(userID int, t model.Transfer) error, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.tokens.FromRequest(r)
		if err != nil {
			s.writeError(w, err.Error())
			return
		}
		var t model.Transfer
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			s.writeError(w, "invalid transfer request")
			return
		}
		if err := apply(claims.UserID, t); err != nil {
			s.writeError(w, err.Error())
			return
		}
		s.writeOK(w, message, nil)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid login request")
		return
	}
	if req.Username == "" || req.Password == "" {
		s.writeError(w, "Username and password are required")
		return
	}

	s.mu.RLock()
	u, ok := s.users[s.byName[req.Username]]
	s.mu.RUnlock()
	if !ok || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(req.Password)) != nil {
		s.writeError(w, "Invalid User or Credentials")
		return
	}

	token, err := s.tokens.Issue(u.id, u.profile.Username)
	if err != nil {
		s.writeError(w, err.Error())
		return
	}
	var data model.LoginData
	data.UserID = u.id
	data.Token = token
	data.User.ID = u.id
	data.User.Name = u.profile.Name
	data.User.Username = u.profile.Username
	data.User.Capital = u.profile.Capital
	s.writeOK(w, "Login successful", data)
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	claims, err := s.tokens.FromRequest(r)
	if err != nil {
		s.writeError(w, err.Error())
		return
	}
	pathID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil || pathID != claims.UserID {
		s.writeError(w, "User not found")
		return
	}

	s.mu.RLock()
	u, ok := s.users[claims.UserID]
	s.mu.RUnlock()
	if !ok {
		s.writeError(w, "User not found")
		return
	}
	s.writeOK(w, "User Details fetched successfully", u.profile)
}

func (s *Server) handleUserStrategies(w http.ResponseWriter, r *http.Request) {
	claims, err := s.tokens.FromRequest(r)
	if err != nil {
		s.writeError(w, err.Error())
		return
	}

	s.mu.RLock()
	var list []model.Strategy
	if u, ok := s.users[claims.UserID]; ok {
		for _, id := range u.holdings {
			list = append(list, s.strategies[id])
		}
	}
	s.mu.RUnlock()

	if len(list) == 0 {
		s.writeError(w, "No strategies found for the user")
		return
	}
	s.writeOK(w, "User strategies fetched successfully", list)
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	list := make([]model.Strategy, 0, len(s.strategies))
	for _, st := range s.strategies {
		list = append(list, st)
	}
	s.mu.RUnlock()

	if len(list) == 0 {
		s.writeError(w, "Strategies not found")
		return
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	s.writeOK(w, "Strategies fetched successfully", list)
}

func (s *Server) handleStrategy(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "strategyID"))
	if err != nil {
		s.writeError(w, "Strategy not found")
		return
	}
	s.mu.RLock()
	st, ok := s.strategies[id]
	s.mu.RUnlock()
	if !ok {
		s.writeError(w, "Strategy not found")
		return
	}
	s.writeOK(w, "Strategy fetched successfully", st)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("stub request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("took", time.Since(start)))
	})
}
