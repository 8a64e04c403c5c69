package service

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/gin-gonic/gin"

	"github.com/helixdao/dao-app/dao"
	"github.com/helixdao/dao-app/index"
	"github.com/helixdao/dao-app/types"
)

// Service exposes the engine over HTTP. Mutating endpoints take a signed
// envelope; the signer's address is the acting account, so the transport
// never decides who may do what.
type Service struct {
	engine     *gin.Engine
	logger     cmtlog.Logger
	dao        *dao.DAO
	indexer    *index.Indexer
	listenAddr string
}

func NewService(listenAddr string, d *dao.DAO, ix *index.Indexer, logger cmtlog.Logger) *Service {
	r := gin.Default()
	s := &Service{
		engine:     r,
		logger:     logger.With("module", "service"),
		dao:        d,
		indexer:    ix,
		listenAddr: listenAddr,
	}
	s.engine.POST("/submitProposal", s.handleSubmitProposal)
	s.engine.POST("/actProposal", s.handleActProposal)
	s.engine.POST("/claimBounty", s.handleClaimBounty)
	s.engine.POST("/giveupBounty", s.handleGiveupBounty)
	s.engine.POST("/doneBounty", s.handleDoneBounty)
	s.engine.POST("/getProposals", s.handleGetProposals)
	s.engine.POST("/getBounties", s.handleGetBounties)
	s.engine.POST("/getClaims", s.handleGetClaims)
	s.engine.POST("/getPolicy", s.handleGetPolicy)
	s.engine.POST("/getConfig", s.handleGetConfig)
	s.engine.POST("/getState", s.handleGetState)
	return s
}

func (s *Service) Start() error {
	s.logger.Info("service listening", "addr", s.listenAddr)
	return s.engine.Run(s.listenAddr)
}

// Envelope is a signed request body. Payload holds the endpoint-specific
// request, signed as raw bytes by the ed25519 key in PubKey.
type Envelope struct {
	PubKey    string          `json:"pubKey"`
	Signature string          `json:"signature"`
	Payload   json.RawMessage `json:"payload"`
}

// openEnvelope verifies the signature and returns the signer's address
// together with the payload bytes.
func openEnvelope(c *gin.Context) (actor string, payload []byte, ok bool) {
	var env Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pub, err := hex.DecodeString(env.PubKey)
	if err != nil || len(pub) != ed25519.PubKeySize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad pubKey"})
		return
	}
	sig, err := hex.DecodeString(env.Signature)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad signature"})
		return
	}
	pk := ed25519.PubKey(pub)
	if !pk.VerifySignature(env.Payload, sig) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "signature verify fail"})
		return
	}
	return pk.Address().String(), env.Payload, true
}

func parseAmount(s string) (*big.Int, bool) {
	if s == "" {
		return big.NewInt(0), true
	}
	return new(big.Int).SetString(s, 10)
}

type SubmitProposalReq struct {
	Description string          `json:"description"`
	Kind        json.RawMessage `json:"kind"`
	Bond        string          `json:"bond"`
}

type SubmitProposalResponse struct {
	ProposalId uint64 `json:"proposalId"`
}

func (s *Service) handleSubmitProposal(c *gin.Context) {
	actor, payload, ok := openEnvelope(c)
	if !ok {
		return
	}
	var requestData SubmitProposalReq
	if err := json.Unmarshal(payload, &requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kind, err := types.UnmarshalKind(requestData.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bond, ok := parseAmount(requestData.Bond)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad bond"})
		return
	}
	id, err := s.dao.AddProposal(actor, bond, dao.ProposalInput{
		Description: requestData.Description,
		Kind:        kind,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, SubmitProposalResponse{ProposalId: id})
}

type ActProposalReq struct {
	ProposalId uint64 `json:"proposalId"`
	Action     string `json:"action"`
}

type ActProposalResponse struct {
	Status uint64 `json:"status"`
}

func (s *Service) handleActProposal(c *gin.Context) {
	actor, payload, ok := openEnvelope(c)
	if !ok {
		return
	}
	var requestData ActProposalReq
	if err := json.Unmarshal(payload, &requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := s.dao.ActProposal(actor, requestData.ProposalId, types.Action(requestData.Action))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ActProposalResponse{Status: uint64(status)})
}

type ClaimBountyReq struct {
	BountyId uint64 `json:"bountyId"`
	Deadline uint64 `json:"deadline"`
}

func (s *Service) handleClaimBounty(c *gin.Context) {
	actor, payload, ok := openEnvelope(c)
	if !ok {
		return
	}
	var requestData ClaimBountyReq
	if err := json.Unmarshal(payload, &requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.dao.ClaimBounty(actor, requestData.BountyId, requestData.Deadline); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

type GiveupBountyReq struct {
	BountyId uint64 `json:"bountyId"`
}

func (s *Service) handleGiveupBounty(c *gin.Context) {
	actor, payload, ok := openEnvelope(c)
	if !ok {
		return
	}
	var requestData GiveupBountyReq
	if err := json.Unmarshal(payload, &requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.dao.GiveupBounty(actor, requestData.BountyId); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

type DoneBountyReq struct {
	BountyId uint64 `json:"bountyId"`
	Bond     string `json:"bond"`
}

type DoneBountyResponse struct {
	ProposalId uint64 `json:"proposalId"`
}

func (s *Service) handleDoneBounty(c *gin.Context) {
	actor, payload, ok := openEnvelope(c)
	if !ok {
		return
	}
	var requestData DoneBountyReq
	if err := json.Unmarshal(payload, &requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bond, ok := parseAmount(requestData.Bond)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad bond"})
		return
	}
	id, err := s.dao.DoneBounty(actor, requestData.BountyId, bond)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, DoneBountyResponse{ProposalId: id})
}

type GetProposalsReq struct {
	ProposalId uint64 `json:"proposalId"`
	Proposer   string `json:"proposer"`
	Status     uint64 `json:"status"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
}

type ProposalInfo struct {
	Proposal *types.Proposal `json:"proposal"`
	Votes    []index.Vote    `json:"votes"`
}

type GetProposalsResponse struct {
	Proposals []index.Proposal `json:"proposals"`
	Total     uint64           `json:"total"`
}

func (s *Service) handleGetProposals(c *gin.Context) {
	var requestData GetProposalsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if requestData.ProposalId != 0 {
		p, err := s.dao.GetProposal(requestData.ProposalId)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		votes, _, err := s.indexer.VotesByProposal(requestData.ProposalId, 0, 1000)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, ProposalInfo{Proposal: p, Votes: votes})
		return
	}

	var (
		rows  []index.Proposal
		total uint64
		err   error
	)
	switch {
	case requestData.Proposer != "":
		rows, total, err = s.indexer.ProposalsByProposer(requestData.Proposer, requestData.Page, requestData.PageSize)
	case requestData.Status != 0:
		rows, total, err = s.indexer.ProposalsByStatus(requestData.Status, requestData.Page, requestData.PageSize)
	default:
		rows, total, err = s.indexer.Proposals(requestData.Page, requestData.PageSize)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, GetProposalsResponse{Proposals: rows, Total: total})
}

type GetBountiesReq struct {
	BountyId uint64 `json:"bountyId"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

type BountyInfo struct {
	Bounty         *types.Bounty `json:"bounty"`
	NumberOfClaims uint64        `json:"numberOfClaims"`
}

type GetBountiesResponse struct {
	Bounties []index.Bounty `json:"bounties"`
	Total    uint64         `json:"total"`
}

func (s *Service) handleGetBounties(c *gin.Context) {
	var requestData GetBountiesReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if requestData.BountyId != 0 {
		b, err := s.dao.GetBounty(requestData.BountyId)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, BountyInfo{
			Bounty:         b,
			NumberOfClaims: s.dao.BountyNumberOfClaims(requestData.BountyId),
		})
		return
	}

	rows, total, err := s.indexer.Bounties(requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, GetBountiesResponse{Bounties: rows, Total: total})
}

type GetClaimsReq struct {
	Account string `json:"account"`
}

type GetClaimsResponse struct {
	Claims []types.BountyClaim `json:"claims"`
}

func (s *Service) handleGetClaims(c *gin.Context) {
	var requestData GetClaimsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, GetClaimsResponse{Claims: s.dao.BountyClaims(requestData.Account)})
}

func (s *Service) handleGetPolicy(c *gin.Context) {
	c.JSON(http.StatusOK, s.dao.GetPolicy())
}

func (s *Service) handleGetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"config":          s.dao.GetConfig(),
		"stakingContract": s.dao.StakingContract(),
	})
}

type GetStateResponse struct {
	StateRoot      string `json:"stateRoot"`
	StateVersion   int64  `json:"stateVersion"`
	LastProposalId uint64 `json:"lastProposalId"`
	LastBountyId   uint64 `json:"lastBountyId"`
}

func (s *Service) handleGetState(c *gin.Context) {
	c.JSON(http.StatusOK, GetStateResponse{
		StateRoot:      s.dao.StateRoot().Hex(),
		StateVersion:   s.dao.StateVersion(),
		LastProposalId: s.dao.LastProposalID(),
		LastBountyId:   s.dao.LastBountyID(),
	})
}
