package service

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/helixdao/dao-app/dao"
	"github.com/helixdao/dao-app/index"
	"github.com/helixdao/dao-app/ledger"
	"github.com/helixdao/dao-app/policy"
	"github.com/helixdao/dao-app/state"
	"github.com/helixdao/dao-app/types"
)

func newTestService(t *testing.T, key ed25519.PrivKey) *Service {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := cmtlog.NewNopLogger()
	actor := key.PubKey().Address().String()

	store, err := state.NewStore(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := types.DefaultConfig("testdao")
	pol := policy.DefaultPolicy([]string{actor})
	require.NoError(t, dao.Bootstrap(store, cfg, pol))

	lg := ledger.New("org", map[string]*big.Int{
		"org": big.NewInt(1000),
		actor: big.NewInt(100),
	}, logger)

	ix, err := index.NewIndexer(logger, filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })

	d, err := dao.New(store, nil, lg, lg, ix, logger)
	require.NoError(t, err)
	return NewService("127.0.0.1:0", d, ix, logger)
}

func signedBody(t *testing.T, key ed25519.PrivKey, payload any) []byte {
	t.Helper()
	dat, err := json.Marshal(payload)
	require.NoError(t, err)
	sig, err := key.Sign(dat)
	require.NoError(t, err)
	body, err := json.Marshal(Envelope{
		PubKey:    hex.EncodeToString(key.PubKey().Bytes()),
		Signature: hex.EncodeToString(sig),
		Payload:   dat,
	})
	require.NoError(t, err)
	return body
}

func post(t *testing.T, s *Service, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func TestSubmitProposalSigned(t *testing.T) {
	key := ed25519.GenPrivKey()
	s := newTestService(t, key)

	body := signedBody(t, key, SubmitProposalReq{
		Description: "poll",
		Kind:        json.RawMessage(`{"label":"vote","kind":{}}`),
		Bond:        "1",
	})
	w := post(t, s, "/submitProposal", body)
	require.Equal(t, http.StatusOK, w.Code)

	var res SubmitProposalResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Equal(t, uint64(1), res.ProposalId)

	// The indexer saw it too.
	w = post(t, s, "/getProposals", []byte(`{"page":0,"pageSize":10}`))
	require.Equal(t, http.StatusOK, w.Code)
	var list GetProposalsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, uint64(1), list.Total)
}

func TestBadSignatureRejected(t *testing.T) {
	key := ed25519.GenPrivKey()
	s := newTestService(t, key)

	body := signedBody(t, key, SubmitProposalReq{Kind: json.RawMessage(`{"label":"vote"}`), Bond: "1"})
	env := Envelope{}
	require.NoError(t, json.Unmarshal(body, &env))
	env.Payload = json.RawMessage(`{"description":"tampered"}`)
	tampered, err := json.Marshal(env)
	require.NoError(t, err)

	w := post(t, s, "/submitProposal", tampered)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetStateReportsRoot(t *testing.T) {
	key := ed25519.GenPrivKey()
	s := newTestService(t, key)

	w := post(t, s, "/submitProposal", signedBody(t, key, SubmitProposalReq{
		Kind: json.RawMessage(`{"label":"vote","kind":{}}`),
		Bond: "1",
	}))
	require.Equal(t, http.StatusOK, w.Code)

	w = post(t, s, "/getState", []byte(`{}`))
	require.Equal(t, http.StatusOK, w.Code)
	var res GetStateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Equal(t, uint64(1), res.LastProposalId)
	require.NotEmpty(t, res.StateRoot)
	require.NotEqual(t, "0x0000000000000000000000000000000000000000000000000000000000000000", res.StateRoot)
	// Bootstrap committed once, the submit once more.
	require.Equal(t, int64(2), res.StateVersion)
}

func TestActProposalFlow(t *testing.T) {
	key := ed25519.GenPrivKey()
	s := newTestService(t, key)

	w := post(t, s, "/submitProposal", signedBody(t, key, SubmitProposalReq{
		Kind: json.RawMessage(`{"label":"vote","kind":{}}`),
		Bond: "1",
	}))
	require.Equal(t, http.StatusOK, w.Code)

	// Single-member council: one approval settles it.
	w = post(t, s, "/actProposal", signedBody(t, key, ActProposalReq{
		ProposalId: 1,
		Action:     string(types.ActionVoteApprove),
	}))
	require.Equal(t, http.StatusOK, w.Code)
	var res ActProposalResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Equal(t, uint64(types.ProposalStatusApproved), res.Status)
}
