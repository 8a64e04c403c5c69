package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixdao/dao-app/service"
)

type bountyArguments struct {
	Url      string
	Skey     string
	BountyId uint64
	Deadline uint64
	Bond     string
}

var bountyArgs bountyArguments

var bountyCmd = &cobra.Command{
	Use:   "bounty [claim|giveup|done]",
	Short: "Claim, give up or complete a bounty",
	Args:  cobra.ExactArgs(1),
	Run:   bountyRun,
}

func init() {
	urlFlag(bountyCmd, &bountyArgs.Url)
	keyFlag(bountyCmd, &bountyArgs.Skey)
	bountyCmd.Flags().Uint64VarP(&bountyArgs.BountyId, "bounty", "b", 0, "bounty id")
	bountyCmd.Flags().Uint64Var(&bountyArgs.Deadline, "deadline", 0, "claim deadline in nanoseconds from now")
	bountyCmd.Flags().StringVar(&bountyArgs.Bond, "bond", "1", "proposal bond for done")
}

func bountyRun(cmd *cobra.Command, args []string) {
	var err error
	switch args[0] {
	case "claim":
		err = postSigned(bountyArgs.Url, "/claimBounty", bountyArgs.Skey, service.ClaimBountyReq{
			BountyId: bountyArgs.BountyId,
			Deadline: bountyArgs.Deadline,
		})
	case "giveup":
		err = postSigned(bountyArgs.Url, "/giveupBounty", bountyArgs.Skey, service.GiveupBountyReq{
			BountyId: bountyArgs.BountyId,
		})
	case "done":
		err = postSigned(bountyArgs.Url, "/doneBounty", bountyArgs.Skey, service.DoneBountyReq{
			BountyId: bountyArgs.BountyId,
			Bond:     bountyArgs.Bond,
		})
	default:
		err = fmt.Errorf("unknown subcommand %q", args[0])
	}
	if err != nil {
		fmt.Println(err)
	}
}
