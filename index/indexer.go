package index

import (
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"

	"github.com/helixdao/dao-app/types"
)

// Proposal is the query-side row; the engine record in the state store
// stays authoritative.
type Proposal struct {
	Id             uint64 `json:"id" gorm:"primary_key"`
	Proposer       string `json:"proposer" gorm:"index"`
	Label          string `json:"label"`
	Description    string `json:"description"`
	Status         uint64 `json:"status" gorm:"index"`
	SubmissionTime uint64 `json:"submissionTime"`
}

type Vote struct {
	Id         uint64 `json:"id" gorm:"primary_key;auto_increment"`
	ProposalId uint64 `json:"proposalId" gorm:"index"`
	Voter      string `json:"voter" gorm:"index"`
	Choice     uint64 `json:"choice"`
}

type Bounty struct {
	Id     uint64 `json:"id" gorm:"primary_key"`
	Token  string `json:"token"`
	Amount string `json:"amount"`
	Times  uint64 `json:"times"`
}

type BountyClaim struct {
	Id       uint64 `json:"id" gorm:"primary_key;auto_increment"`
	BountyId uint64 `json:"bountyId" gorm:"index"`
	Claimer  string `json:"claimer" gorm:"index"`
	Deadline uint64 `json:"deadline"`
	Kind     string `json:"kind"`
}

type TransferIntent struct {
	Id         uint64 `json:"id" gorm:"primary_key;auto_increment"`
	ProposalId uint64 `json:"proposalId" gorm:"index"`
	Token      string `json:"token"`
	Receiver   string `json:"receiver"`
	Amount     string `json:"amount"`
	Memo       string `json:"memo"`
}

// Indexer mirrors engine events into sqlite for the list queries the
// service serves.
type Indexer struct {
	logger cmtlog.Logger
	db     *gorm.DB
}

var _ types.EventSink = (*Indexer)(nil)

func NewIndexer(logger cmtlog.Logger, dbPath string) (*Indexer, error) {
	logger = logger.With("module", "indexer")
	logger.Info("NewIndexer", "dbPath", dbPath)
	db, err := gorm.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Proposal{}, &Vote{}, &Bounty{}, &BountyClaim{}, &TransferIntent{}).Error; err != nil {
		return nil, err
	}
	return &Indexer{logger: logger, db: db}, nil
}

func (ix *Indexer) Close() error {
	return ix.db.Close()
}

// Publish applies one engine event to the read model. Events arrive
// synchronously in apply order, so a plain upsert per event suffices.
func (ix *Indexer) Publish(ev types.Event) {
	var err error
	switch e := ev.(type) {
	case types.EventProposal:
		row := Proposal{
			Id:             e.ProposalID,
			Proposer:       e.Proposer,
			Label:          e.Label,
			Description:    e.Description,
			Status:         e.Status,
			SubmissionTime: e.SubmissionTime,
		}
		err = ix.db.Save(&row).Error
	case types.EventVote:
		err = ix.db.Create(&Vote{
			ProposalId: e.ProposalID,
			Voter:      e.Voter,
			Choice:     e.Choice,
		}).Error
		if err == nil {
			err = ix.db.Model(&Proposal{}).Where("id = ?", e.ProposalID).
				Update("status", e.Status).Error
		}
	case types.EventBounty:
		// Zero remaining slots means the bounty was consumed and deleted.
		if e.Times == 0 {
			err = ix.db.Delete(&Bounty{Id: e.BountyID}).Error
		} else {
			err = ix.db.Save(&Bounty{
				Id:     e.BountyID,
				Token:  e.Token,
				Amount: e.Amount,
				Times:  e.Times,
			}).Error
		}
	case types.EventBountyClaim:
		err = ix.db.Create(&BountyClaim{
			BountyId: e.BountyID,
			Claimer:  e.Claimer,
			Deadline: e.Deadline,
			Kind:     e.Kind,
		}).Error
	case types.EventTransferIntent:
		err = ix.db.Create(&TransferIntent{
			ProposalId: e.ProposalID,
			Token:      e.Token,
			Receiver:   e.Receiver,
			Amount:     e.Amount,
			Memo:       e.Memo,
		}).Error
	}
	if err != nil {
		ix.logger.Error("index event fail", "type", ev.Type(), "err", err)
	}
}

func pageScope(page, pageSize int) (offset, limit int) {
	if pageSize <= 0 || pageSize > 1000 {
		pageSize = 20
	}
	if page < 0 {
		page = 0
	}
	return page * pageSize, pageSize
}

func (ix *Indexer) Proposals(page, pageSize int) (rows []Proposal, total uint64, err error) {
	rows = make([]Proposal, 0)
	if err = ix.db.Model(&Proposal{}).Count(&total).Error; err != nil {
		return
	}
	offset, limit := pageScope(page, pageSize)
	err = ix.db.Order("id desc").Offset(offset).Limit(limit).Find(&rows).Error
	return
}

func (ix *Indexer) ProposalsByProposer(proposer string, page, pageSize int) (rows []Proposal, total uint64, err error) {
	rows = make([]Proposal, 0)
	q := ix.db.Model(&Proposal{}).Where("proposer = ?", proposer)
	if err = q.Count(&total).Error; err != nil {
		return
	}
	offset, limit := pageScope(page, pageSize)
	err = q.Order("id desc").Offset(offset).Limit(limit).Find(&rows).Error
	return
}

func (ix *Indexer) ProposalsByStatus(status uint64, page, pageSize int) (rows []Proposal, total uint64, err error) {
	rows = make([]Proposal, 0)
	q := ix.db.Model(&Proposal{}).Where("status = ?", status)
	if err = q.Count(&total).Error; err != nil {
		return
	}
	offset, limit := pageScope(page, pageSize)
	err = q.Order("id desc").Offset(offset).Limit(limit).Find(&rows).Error
	return
}

func (ix *Indexer) VotesByProposal(proposalId uint64, page, pageSize int) (rows []Vote, total uint64, err error) {
	rows = make([]Vote, 0)
	q := ix.db.Model(&Vote{}).Where("proposal_id = ?", proposalId)
	if err = q.Count(&total).Error; err != nil {
		return
	}
	offset, limit := pageScope(page, pageSize)
	err = q.Order("id asc").Offset(offset).Limit(limit).Find(&rows).Error
	return
}

func (ix *Indexer) Bounties(page, pageSize int) (rows []Bounty, total uint64, err error) {
	rows = make([]Bounty, 0)
	if err = ix.db.Model(&Bounty{}).Count(&total).Error; err != nil {
		return
	}
	offset, limit := pageScope(page, pageSize)
	err = ix.db.Order("id desc").Offset(offset).Limit(limit).Find(&rows).Error
	return
}

func (ix *Indexer) ClaimsByAccount(claimer string, page, pageSize int) (rows []BountyClaim, total uint64, err error) {
	rows = make([]BountyClaim, 0)
	q := ix.db.Model(&BountyClaim{}).Where("claimer = ?", claimer)
	if err = q.Count(&total).Error; err != nil {
		return
	}
	offset, limit := pageScope(page, pageSize)
	err = q.Order("id desc").Offset(offset).Limit(limit).Find(&rows).Error
	return
}
