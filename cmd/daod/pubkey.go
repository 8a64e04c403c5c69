package main

import (
	"github.com/spf13/cobra"

	"github.com/helixdao/dao-app/crypto"
)

type pubkeyArguments struct {
	Skey string
}

var pubkeyArgs pubkeyArguments

var pubkeyCmd = &cobra.Command{
	Use:   "pubkey",
	Short: "Print the node key's public key and address",
	Run:   pubkeyRun,
}

func init() {
	keyFlag(pubkeyCmd, &pubkeyArgs.Skey)
}

func pubkeyRun(cmd *cobra.Command, args []string) {
	pv := crypto.LoadFilePV(pubkeyArgs.Skey)
	println("pubkey:", pv.PublicKeyHex())
	println("address:", pv.Address())
}
