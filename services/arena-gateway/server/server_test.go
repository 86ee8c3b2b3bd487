package server

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"arenachain/crypto"
	"arenachain/native/authz"
	"arenachain/services/arena-gateway/auth"
	"arenachain/services/arena-gateway/models"
)

var testSecret = []byte("test-gateway-secret")

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	return db
}

func newTestServer(t *testing.T, mutate func(*Config)) (*Server, *crypto.PrivateKey) {
	t.Helper()
	signer, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	var contract [20]byte
	copy(contract[:], bytes.Repeat([]byte{0xAA}, 20))

	cfg := Config{
		DB:        setupTestDB(t),
		Signer:    signer,
		Domain:    authz.Domain{ChainID: 7, Contract: contract},
		JWTSecret: testSecret,
		AuthTTL:   5 * time.Minute,
		RateLimit: 100,
		RateBurst: 100,
		Now:       func() time.Time { return time.Unix(1_700_000_000, 0) },
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg), signer
}

func bearerToken(t *testing.T, subject string) string {
	t.Helper()
	token, err := auth.IssueToken(testSecret, subject, time.Now().Add(time.Hour))
	require.NoError(t, err)
	return "Bearer " + token
}

func postAuthorization(t *testing.T, srv *Server, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/authorizations", strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	recorder := httptest.NewRecorder()
	srv.Handler().ServeHTTP(recorder, req)
	return recorder
}

func TestIssueMintAuthorization(t *testing.T) {
	srv, signer := newTestServer(t, nil)
	player, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	account := player.PubKey().Address().String()

	body := fmt.Sprintf(`{"kind":"mint","account":%q,"nonce":3,"collection":"hero","tokenId":42,"quality":2}`, account)
	recorder := postAuthorization(t, srv, bearerToken(t, "game-backend"), body)
	require.Equal(t, http.StatusCreated, recorder.Code)

	var resp struct {
		RequestID string `json:"requestId"`
		Digest    string `json:"digest"`
		Signature string `json:"signature"`
		Nonce     uint64 `json:"nonce"`
		Deadline  int64  `json:"deadline"`
		Authority string `json:"authority"`
	}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	require.Equal(t, uint64(3), resp.Nonce)
	require.Equal(t, srv.Now().Add(srv.AuthTTL).Unix(), resp.Deadline)
	require.Equal(t, signer.PubKey().Address().String(), resp.Authority)

	sig, err := hex.DecodeString(strings.TrimPrefix(resp.Signature, "0x"))
	require.NoError(t, err)

	msg := authz.Message{
		Account:  player.PubKey().RawAddress(),
		Nonce:    3,
		Deadline: resp.Deadline,
		Payload:  authz.MintPayload{Collection: "hero", TokenID: 42, Quality: 2},
	}
	digest := authz.Digest(srv.Domain, msg)
	require.Equal(t, "0x"+hex.EncodeToString(digest[:]), resp.Digest)

	verifier := authz.NewVerifier(signer.PubKey().RawAddress())
	require.NoError(t, verifier.Verify(digest, sig))

	var record models.Authorization
	require.NoError(t, srv.DB.First(&record, "digest = ?", resp.Digest).Error)
	require.Equal(t, "game-backend", record.Caller)
	require.Equal(t, "mint", record.Kind)
	require.Equal(t, account, record.Account)
}

func TestIssueDuelAuthorization(t *testing.T) {
	srv, signer := newTestServer(t, nil)
	attacker, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	defender, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	body := fmt.Sprintf(`{"kind":"duelStart","account":%q,"nonce":0,"from":%q,"tokenId":9}`,
		defender.PubKey().Address().String(), attacker.PubKey().Address().String())
	recorder := postAuthorization(t, srv, bearerToken(t, "game-backend"), body)
	require.Equal(t, http.StatusCreated, recorder.Code)

	var resp struct {
		Signature string `json:"signature"`
		Deadline  int64  `json:"deadline"`
	}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))

	msg := authz.Message{
		Account:  defender.PubKey().RawAddress(),
		Deadline: resp.Deadline,
		Payload: authz.DuelPayload{
			Phase:   authz.KindDuelStart,
			From:    attacker.PubKey().RawAddress(),
			TokenID: 9,
		},
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(resp.Signature, "0x"))
	require.NoError(t, err)
	verifier := authz.NewVerifier(signer.PubKey().RawAddress())
	require.NoError(t, verifier.Verify(authz.Digest(srv.Domain, msg), sig))
}

func TestRejectsMissingToken(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	recorder := postAuthorization(t, srv, "", `{"kind":"mint"}`)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestRejectsForgedToken(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	forged, err := auth.IssueToken([]byte("wrong-secret"), "intruder", time.Now().Add(time.Hour))
	require.NoError(t, err)
	recorder := postAuthorization(t, srv, "Bearer "+forged, `{"kind":"mint"}`)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestRejectsUnknownKind(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	player, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	body := fmt.Sprintf(`{"kind":"teleport","account":%q,"nonce":0}`, player.PubKey().Address().String())
	recorder := postAuthorization(t, srv, bearerToken(t, "game-backend"), body)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRejectsBadCraftBatch(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	player, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	body := fmt.Sprintf(`{"kind":"craftOrb","account":%q,"nonce":0,"orbIds":[1,2,3]}`, player.PubKey().Address().String())
	recorder := postAuthorization(t, srv, bearerToken(t, "game-backend"), body)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRejectsExpiredDeadline(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	player, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	stale := srv.Now().Add(-time.Minute).Unix()
	body := fmt.Sprintf(`{"kind":"unstakeOrbs","account":%q,"nonce":1,"index":0,"deadline":%d}`,
		player.PubKey().Address().String(), stale)
	recorder := postAuthorization(t, srv, bearerToken(t, "game-backend"), body)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestThrottlesPerCaller(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *Config) {
		cfg.RateLimit = 1
		cfg.RateBurst = 1
	})
	player, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	body := fmt.Sprintf(`{"kind":"unstakeOrbs","account":%q,"nonce":0,"index":0}`, player.PubKey().Address().String())

	first := postAuthorization(t, srv, bearerToken(t, "hot-caller"), body)
	require.Equal(t, http.StatusCreated, first.Code)

	second := postAuthorization(t, srv, bearerToken(t, "hot-caller"), body)
	require.Equal(t, http.StatusTooManyRequests, second.Code)

	fresh := fmt.Sprintf(`{"kind":"unstakeOrbs","account":%q,"nonce":1,"index":0}`, player.PubKey().Address().String())
	other := postAuthorization(t, srv, bearerToken(t, "other-caller"), fresh)
	require.Equal(t, http.StatusCreated, other.Code)
}

func TestAuthorityEndpoint(t *testing.T) {
	srv, signer := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/authority", nil)
	recorder := httptest.NewRecorder()
	srv.Handler().ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	require.Equal(t, signer.PubKey().Address().String(), resp["authority"])
}
