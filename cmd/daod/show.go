package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixdao/dao-app/service"
)

type showArguments struct {
	Url      string
	Id       uint64
	Account  string
	Page     int
	PageSize int
}

var showArgs showArguments

var showCmd = &cobra.Command{
	Use:   "show [proposals|bounties|claims|policy|config|state]",
	Short: "Query the organization",
	Args:  cobra.ExactArgs(1),
	Run:   showRun,
}

func init() {
	urlFlag(showCmd, &showArgs.Url)
	showCmd.Flags().Uint64VarP(&showArgs.Id, "id", "i", 0, "proposal or bounty id")
	showCmd.Flags().StringVarP(&showArgs.Account, "account", "a", "", "account filter")
	showCmd.Flags().IntVar(&showArgs.Page, "page", 0, "page")
	showCmd.Flags().IntVar(&showArgs.PageSize, "pageSize", 20, "page size")
}

func showRun(cmd *cobra.Command, args []string) {
	var err error
	switch args[0] {
	case "proposals":
		err = post(showArgs.Url, "/getProposals", service.GetProposalsReq{
			ProposalId: showArgs.Id,
			Proposer:   showArgs.Account,
			Page:       showArgs.Page,
			PageSize:   showArgs.PageSize,
		})
	case "bounties":
		err = post(showArgs.Url, "/getBounties", service.GetBountiesReq{
			BountyId: showArgs.Id,
			Page:     showArgs.Page,
			PageSize: showArgs.PageSize,
		})
	case "claims":
		err = post(showArgs.Url, "/getClaims", service.GetClaimsReq{Account: showArgs.Account})
	case "policy":
		err = post(showArgs.Url, "/getPolicy", struct{}{})
	case "config":
		err = post(showArgs.Url, "/getConfig", struct{}{})
	case "state":
		err = post(showArgs.Url, "/getState", struct{}{})
	default:
		err = fmt.Errorf("unknown subcommand %q", args[0])
	}
	if err != nil {
		fmt.Println(err)
	}
}
