package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"arenachain/core"
	"arenachain/crypto"
	"arenachain/native/authz"
	"arenachain/native/common"
	"arenachain/native/nft"
)

type api struct {
	processor *core.Processor
	logger    *slog.Logger
}

func newAPI(processor *core.Processor, logger *slog.Logger) *api {
	return &api{processor: processor, logger: logger}
}

func (a *api) router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/v1/ops", a.submitOp)
	r.Get("/v1/nonce/{account}", a.getNonce)
	r.Get("/v1/tokens/{collection}/{id}", a.getToken)

	return r
}

type opRequest struct {
	Kind      string `json:"kind"`
	Account   string `json:"account"`
	Deadline  int64  `json:"deadline"`
	Signature string `json:"signature"`

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

func (a *api) submitOp(w http.ResponseWriter, r *http.Request) {
	var req opRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	sig, err := decodeSignature(req.Signature)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.dispatch(&req, sig); err != nil {
		a.logger.Info("operation rejected",
			slog.String("kind", req.Kind),
			slog.String("account", req.Account),
			slog.Any("error", err))
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}

func (a *api) dispatch(req *opRequest, sig []byte) error {
	switch req.Kind {
	case authz.KindDuelStart.String(), authz.KindDuelFinish.String():
		from, err := decodeAccount(req.From)
		if err != nil {
			return err
		}
		payload := authz.DuelPayload{From: from, TokenID: req.TokenID}
		if req.Kind == authz.KindDuelStart.String() {
			return a.processor.StartDuel(payload, req.Deadline, sig)
		}
		return a.processor.FinishDuel(payload, req.Deadline, sig)
	}

	account, err := decodeAccount(req.Account)
	if err != nil {
		return err
	}

	switch req.Kind {
	case authz.KindMint.String():
		payload := authz.MintPayload{Collection: req.Collection, TokenID: req.TokenID, Quality: req.Quality}
		return a.processor.MintToken(account, payload, req.Deadline, sig)
	case authz.KindOpenChest.String():
		payload := authz.ChestPayload{Types: req.Types, Items: req.Items}
		return a.processor.OpenChest(account, payload, req.Deadline, sig)
	case authz.KindCraftOrb.String():
		if len(req.OrbIDs) != 5 {
			return errors.New("crafting requires exactly five orbs")
		}
		var ids [5]uint64
		copy(ids[:], req.OrbIDs)
		return a.processor.CraftOrb(account, authz.CraftPayload{OrbIDs: ids}, req.Deadline, sig)
	case authz.KindStakeOrbs.String():
		payload := authz.StakePayload{Index: req.Index, OrbIDs: req.OrbIDs}
		return a.processor.StakeOrbs(account, payload, req.Deadline, sig)
	case authz.KindUnstakeOrbs.String():
		return a.processor.UnstakeOrbs(account, authz.UnstakePayload{Index: req.Index}, req.Deadline, sig)
	case authz.KindSeasonWithdraw.String():
		amount, ok := new(big.Int).SetString(req.Amount, 10)
		if !ok || amount.Sign() <= 0 {
			return errors.New("amount must be a positive decimal string")
		}
		payload := authz.SeasonPayload{Season: req.Season, Amount: amount}
		return a.processor.WithdrawSeason(account, payload, req.Deadline, sig)
	case authz.KindSetHouseParams.String():
		payload := authz.HousePayload{TokenID: req.TokenID, Capacity: req.Capacity, Level: req.Level}
		return a.processor.SetHouseParams(account, payload, req.Deadline, sig)
	default:
		return fmt.Errorf("unknown kind %q", req.Kind)
	}
}

func (a *api) getNonce(w http.ResponseWriter, r *http.Request) {
	account, err := decodeAccount(chi.URLParam(r, "account"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	nonce, err := a.processor.Nonce(account)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "nonce lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"nonce": nonce})
}

func (a *api) getToken(w http.ResponseWriter, r *http.Request) {
	collection := nft.Collection(chi.URLParam(r, "collection"))
	if !collection.Valid() {
		writeError(w, http.StatusBadRequest, "unknown collection")
		return
	}
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return
	}

	owner, err := a.processor.Ledger().OwnerOf(collection, id)
	if err != nil {
		if errors.Is(err, nft.ErrTokenNotFound) {
			writeError(w, http.StatusNotFound, "token not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "token lookup failed")
		return
	}
	quality, err := a.processor.Ledger().QualityOf(collection, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"collection": string(collection),
		"tokenId":    id,
		"owner":      crypto.NewAddress(crypto.HeroPrefix, owner[:]).String(),
		"quality":    quality,
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

func decodeSignature(raw string) ([]byte, error) {
	trimmed := strings.TrimPrefix(raw, "0x")
	if trimmed == "" {
		return nil, errors.New("signature is required")
	}
	sig, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid signature: %w", err)
	}
	return sig, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, authz.ErrBadSignature):
		return http.StatusUnauthorized
	case errors.Is(err, authz.ErrExpired):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrModulePaused):
		return http.StatusServiceUnavailable
	case errors.Is(err, common.ErrReentrancy):
		return http.StatusConflict
	case errors.Is(err, common.ErrQuotaRequestsExceeded):
		return http.StatusTooManyRequests
	default:
		return http.StatusUnprocessableEntity
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
