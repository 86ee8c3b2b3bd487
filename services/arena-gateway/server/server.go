package server

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"arenachain/crypto"
	"arenachain/native/authz"
	"arenachain/services/arena-gateway/auth"
	"arenachain/services/arena-gateway/models"
)

// Config bundles the dependencies the gateway server needs.
type Config struct {
	DB        *gorm.DB
	Signer    *crypto.PrivateKey
	Domain    authz.Domain
	JWTSecret []byte
	AuthTTL   time.Duration
	RateLimit float64
	RateBurst int
	Now       func() time.Time
}

// Server signs operation authorizations with the arena authority key and
// keeps an audit trail of everything it hands out.
type Server struct {
	DB      *gorm.DB
	Signer  *crypto.PrivateKey
	Domain  authz.Domain
	AuthTTL time.Duration
	Now     func() time.Time

	jwtSecret []byte
	limit     rate.Limit
	burst     int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	router http.Handler
}

// New constructs a configured HTTP router with authentication and
// per-caller rate limiting.
func New(cfg Config) *Server {
	if cfg.AuthTTL <= 0 {
		cfg.AuthTTL = 5 * time.Minute
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 10
	}
	srv := &Server{
		DB:        cfg.DB,
		Signer:    cfg.Signer,
		Domain:    cfg.Domain,
		AuthTTL:   cfg.AuthTTL,
		Now:       cfg.Now,
		jwtSecret: cfg.JWTSecret,
		limit:     rate.Limit(cfg.RateLimit),
		burst:     cfg.RateBurst,
		limiters:  make(map[string]*rate.Limiter),
	}
	if srv.Now == nil {
		srv.Now = time.Now
	}
	srv.router = srv.buildRouter()
	return srv
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/v1/authority", s.GetAuthority)

	r.Group(func(protected chi.Router) {
		protected.Use(auth.Authenticate(s.jwtSecret))
		protected.Use(s.throttle)
		protected.Post("/v1/authorizations", s.IssueAuthorization)
	})

	return r
}

func (s *Server) limiterFor(subject string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	limiter, ok := s.limiters[subject]
	if !ok {
		limiter = rate.NewLimiter(s.limit, s.burst)
		s.limiters[subject] = limiter
	}
	return limiter
}

func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := auth.Subject(r.Context())
		if err != nil {
			http.Error(w, "missing identity", http.StatusUnauthorized)
			return
		}
		if !s.limiterFor(subject).Allow() {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type authorizationRequest struct {
	Kind     string `json:"kind"`
	Account  string `json:"account"`
	Nonce    uint64 `json:"nonce"`
	Deadline int64  `json:"deadline,omitempty"`

	Collection string   `json:"collection,omitempty"`
	TokenID    uint64   `json:"tokenId,omitempty"`
	Quality    uint8    `json:"quality,omitempty"`
	Types      []uint8  `json:"types,omitempty"`
	Items      []uint64 `json:"items,omitempty"`
	OrbIDs     []uint64 `json:"orbIds,omitempty"`
	Index      uint64   `json:"index,omitempty"`
	From       string   `json:"from,omitempty"`
	Season     uint64   `json:"season,omitempty"`
	Amount     string   `json:"amount,omitempty"`
	Capacity   uint8    `json:"capacity,omitempty"`
	Level      uint8    `json:"level,omitempty"`
}

type authorizationResponse struct {
	RequestID string `json:"requestId"`
	Digest    string `json:"digest"`
	Signature string `json:"signature"`
	Nonce     uint64 `json:"nonce"`
	Deadline  int64  `json:"deadline"`
	Authority string `json:"authority"`
}

// IssueAuthorization signs a canonical operation message for the requested
// account and records the grant before returning it.
func (s *Server) IssueAuthorization(w http.ResponseWriter, r *http.Request) {
	subject, err := auth.Subject(r.Context())
	if err != nil {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	var req authorizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	account, err := decodeAccount(req.Account)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	payload, err := buildPayload(&req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	deadline := req.Deadline
	if deadline == 0 {
		deadline = s.Now().Add(s.AuthTTL).Unix()
	}
	if deadline <= s.Now().Unix() {
		http.Error(w, "deadline already passed", http.StatusBadRequest)
		return
	}

	msg := authz.Message{
		Account:  account,
		Nonce:    req.Nonce,
		Deadline: deadline,
		Payload:  payload,
	}

	sig, digest, err := authz.Sign(s.Domain, msg, s.Signer)
	if err != nil {
		http.Error(w, "signing failed", http.StatusInternalServerError)
		return
	}

	record := models.Authorization{
		ID:        uuid.New(),
		Caller:    subject,
		Kind:      payload.Kind().String(),
		Account:   req.Account,
		Nonce:     req.Nonce,
		Digest:    "0x" + hex.EncodeToString(digest[:]),
		Signature: "0x" + hex.EncodeToString(sig),
		Deadline:  deadline,
	}
	if err := s.DB.Create(&record).Error; err != nil {
		http.Error(w, "audit write failed", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusCreated, authorizationResponse{
		RequestID: record.ID.String(),
		Digest:    record.Digest,
		Signature: record.Signature,
		Nonce:     req.Nonce,
		Deadline:  deadline,
		Authority: s.Signer.PubKey().Address().String(),
	})
}

// GetAuthority reports the address whose signatures the chain currently
// expects from this gateway.
func (s *Server) GetAuthority(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"authority": s.Signer.PubKey().Address().String(),
	})
}

func decodeAccount(raw string) ([20]byte, error) {
	var out [20]byte
	if raw == "" {
		return out, errors.New("account is required")
	}
	addr, err := crypto.DecodeAddress(raw)
	if err != nil {
		return out, fmt.Errorf("invalid account: %w", err)
	}
	copy(out[:], addr.Bytes())
	return out, nil
}

func buildPayload(req *authorizationRequest) (authz.Payload, error) {
	switch req.Kind {
	case authz.KindMint.String():
		return authz.MintPayload{Collection: req.Collection, TokenID: req.TokenID, Quality: req.Quality}, nil
	case authz.KindOpenChest.String():
		if len(req.Types) != len(req.Items) {
			return nil, errors.New("types and items must align")
		}
		return authz.ChestPayload{Types: req.Types, Items: req.Items}, nil
	case authz.KindCraftOrb.String():
		if len(req.OrbIDs) != 5 {
			return nil, errors.New("crafting requires exactly five orbs")
		}
		var ids [5]uint64
		copy(ids[:], req.OrbIDs)
		return authz.CraftPayload{OrbIDs: ids}, nil
	case authz.KindStakeOrbs.String():
		return authz.StakePayload{Index: req.Index, OrbIDs: req.OrbIDs}, nil
	case authz.KindUnstakeOrbs.String():
		return authz.UnstakePayload{Index: req.Index}, nil
	case authz.KindDuelStart.String(), authz.KindDuelFinish.String():
		from, err := decodeAccount(req.From)
		if err != nil {
			return nil, fmt.Errorf("invalid from: %w", err)
		}
		phase := authz.KindDuelStart
		if req.Kind == authz.KindDuelFinish.String() {
			phase = authz.KindDuelFinish
		}
		return authz.DuelPayload{Phase: phase, From: from, TokenID: req.TokenID}, nil
	case authz.KindSeasonWithdraw.String():
		amount, ok := new(big.Int).SetString(req.Amount, 10)
		if !ok || amount.Sign() <= 0 {
			return nil, errors.New("amount must be a positive decimal string")
		}
		return authz.SeasonPayload{Season: req.Season, Amount: amount}, nil
	case authz.KindSetHouseParams.String():
		return authz.HousePayload{TokenID: req.TokenID, Capacity: req.Capacity, Level: req.Level}, nil
	default:
		return nil, fmt.Errorf("unknown kind %q", req.Kind)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
