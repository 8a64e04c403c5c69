package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	app_config "github.com/helixdao/dao-app/config"
	"github.com/helixdao/dao-app/crypto"
)

type initArguments struct {
	Home       string
	OrgAccount string
	Council    []string
	Overwrite  bool
}

var initArgs initArguments

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize node key, genesis and configuration files",
	Args:  cobra.ExactArgs(0),
	RunE:  initRun,
}

func init() {
	initCmd.Flags().StringVar(&initArgs.Home, "home", "", "home directory")
	initCmd.Flags().StringVar(&initArgs.OrgAccount, "org", "", "organization treasury account; defaults to the node key address")
	initCmd.Flags().StringSliceVar(&initArgs.Council, "council", nil, "council member accounts")
	initCmd.Flags().BoolVarP(&initArgs.Overwrite, "overwrite", "o", false, "overwrite existing genesis.json")
}

type printInfo struct {
	Home       string `json:"home"`
	Address    string `json:"address"`
	PubKey     string `json:"pub_key"`
	OrgAccount string `json:"org_account"`
}

func displayInfo(info printInfo) error {
	out, err := json.MarshalIndent(info, "", " ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(os.Stderr, "%s\n", out)
	return err
}

func initRun(cmd *cobra.Command, args []string) error {
	cfg := app_config.DefaultConfig(initArgs.Home)
	if err := os.MkdirAll(cfg.ConfigDir(), app_config.DefaultDirPerm); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDir(), app_config.DefaultDirPerm); err != nil {
		return err
	}

	var pv *crypto.PV
	if _, err := os.Stat(cfg.KeyFile()); err == nil {
		pv = crypto.LoadFilePV(cfg.KeyFile())
	} else {
		pv, err = crypto.GenFilePV(cfg.KeyFile())
		if err != nil {
			return err
		}
	}

	org := initArgs.OrgAccount
	if org == "" {
		org = pv.Address()
	}
	council := initArgs.Council
	if len(council) == 0 {
		council = []string{pv.Address()}
	}

	genFile := cfg.GenesisFile()
	if _, err := os.Stat(genFile); err == nil && !initArgs.Overwrite {
		return fmt.Errorf("genesis.json already exists at %v, use -o to overwrite", genFile)
	}
	genDoc := app_config.DefaultGenesisDoc(org, council)
	if err := app_config.ExportGenesisFile(genDoc, genFile); err != nil {
		return fmt.Errorf("failed to export genesis file: %v", err)
	}

	app_config.WriteConfigFile(filepath.Join(cfg.ConfigDir(), app_config.DefaultConfigFile), cfg)

	return displayInfo(printInfo{
		Home:       cfg.Home,
		Address:    pv.Address(),
		PubKey:     pv.PublicKeyHex(),
		OrgAccount: org,
	})
}
