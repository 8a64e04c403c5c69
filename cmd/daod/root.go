package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	cmtconfig "github.com/cometbft/cometbft/config"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/spf13/cobra"

	app_config "github.com/helixdao/dao-app/config"
	"github.com/helixdao/dao-app/dao"
	"github.com/helixdao/dao-app/index"
	"github.com/helixdao/dao-app/ledger"
	"github.com/helixdao/dao-app/service"
	"github.com/helixdao/dao-app/state"
)

var homeDir string

var rootCmd = &cobra.Command{
	Use:   "daod",
	Short: "daod runs a decentralized organization",
	Long: `A governance daemon: proposals, weighted voting,
role-based policy and bounties over a signed HTTP interface.`,
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, args)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&homeDir, "homedir", "d", "", "home directory")
}

func run(cmd *cobra.Command, args []string) {
	if homeDir == "" {
		homeDir = os.ExpandEnv("$HOME/.daod")
	}

	appConfig, err := app_config.Load(homeDir)
	if err != nil {
		log.Fatalf("Reading config: %v", err)
	}

	logger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout))
	logger, err = cmtflags.ParseLogLevel(appConfig.LogLevel, logger, cmtconfig.DefaultLogLevel)
	if err != nil {
		log.Fatalf("failed to parse log level: %v", err)
	}

	genDoc, err := app_config.LoadGenesisDoc(appConfig.GenesisFile())
	if err != nil {
		log.Fatalf("load genesis err: %v", err)
	}

	store, err := state.NewStore(appConfig.DataDir(), logger)
	if err != nil {
		log.Fatalf("open state store err: %v", err)
	}
	defer store.Close()

	if store.Version() == 0 {
		cfg, err := genDoc.Config.Upgrade()
		if err != nil {
			log.Fatalf("genesis config err: %v", err)
		}
		pol, err := genDoc.Policy.Upgrade()
		if err != nil {
			log.Fatalf("genesis policy err: %v", err)
		}
		if err := dao.Bootstrap(store, cfg, pol); err != nil {
			log.Fatalf("bootstrap err: %v", err)
		}
		logger.Info("genesis written", "org", genDoc.OrgAccount)
	}

	lg := ledger.New(genDoc.OrgAccount, genDoc.Balances, logger)

	indexer, err := index.NewIndexer(logger, appConfig.IndexDBFile())
	if err != nil {
		log.Fatalf("new indexer err: %v", err)
	}
	defer indexer.Close()

	d, err := dao.New(store, nil, lg, lg, indexer, logger)
	if err != nil {
		log.Fatalf("new dao err: %v", err)
	}

	svc := service.NewService(appConfig.ListenAddr, d, indexer, logger)
	go func() {
		if err := svc.Start(); err != nil {
			log.Fatalf("service err: %v", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Info("shutting down")
}
