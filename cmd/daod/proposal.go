package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixdao/dao-app/service"
)

type proposalArguments struct {
	Url         string
	Skey        string
	Description string
	Kind        string
	Bond        string
}

var proposalArgs proposalArguments

var proposalCmd = &cobra.Command{
	Use:   "proposal",
	Short: "Submit a proposal",
	Long: `Submit a proposal. The kind is a JSON document, e.g.
  {"label":"transfer","kind":{"tokenId":"","receiverId":"acc","amount":"100"}}
  {"label":"vote","kind":{}}`,
	Run: proposalRun,
}

func init() {
	urlFlag(proposalCmd, &proposalArgs.Url)
	keyFlag(proposalCmd, &proposalArgs.Skey)
	proposalCmd.Flags().StringVarP(&proposalArgs.Description, "description", "m", "", "proposal description")
	proposalCmd.Flags().StringVarP(&proposalArgs.Kind, "kind", "k", `{"label":"vote","kind":{}}`, "proposal kind json")
	proposalCmd.Flags().StringVarP(&proposalArgs.Bond, "bond", "b", "1", "bond amount")
}

func proposalRun(cmd *cobra.Command, args []string) {
	req := service.SubmitProposalReq{
		Description: proposalArgs.Description,
		Kind:        json.RawMessage(proposalArgs.Kind),
		Bond:        proposalArgs.Bond,
	}
	if err := postSigned(proposalArgs.Url, "/submitProposal", proposalArgs.Skey, req); err != nil {
		fmt.Println(err)
	}
}

type actArguments struct {
	Url        string
	Skey       string
	ProposalId uint64
	Action     string
}

var actArgs actArguments

var actCmd = &cobra.Command{
	Use:   "act",
	Short: "Act on a proposal",
	Long: `Act on a proposal. Actions: VoteApprove, VoteReject, VoteRemove,
Finalize, RemoveProposal, MoveToHub.`,
	Run: actRun,
}

func init() {
	urlFlag(actCmd, &actArgs.Url)
	keyFlag(actCmd, &actArgs.Skey)
	actCmd.Flags().Uint64VarP(&actArgs.ProposalId, "proposal", "p", 0, "proposal id")
	actCmd.Flags().StringVarP(&actArgs.Action, "action", "a", "VoteApprove", "action name")
}

func actRun(cmd *cobra.Command, args []string) {
	req := service.ActProposalReq{
		ProposalId: actArgs.ProposalId,
		Action:     actArgs.Action,
	}
	if err := postSigned(actArgs.Url, "/actProposal", actArgs.Skey, req); err != nil {
		fmt.Println(err)
	}
}
