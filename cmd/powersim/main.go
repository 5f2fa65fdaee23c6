package main

import (
	"context"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	cbor "github.com/ipfs/go-ipld-cbor"
	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/worlddbs/power-actor/support/agent"
	"github.com/worlddbs/power-actor/support/ipld"
)

var log = logging.Logger("powersim")

func main() {
	app := &cli.App{
		Name:                 "powersim",
		Usage:                "run randomised miner populations against the storage power actor",
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "log level for the simulation and vm loggers",
			},
		},
		Before: func(c *cli.Context) error {
			for _, name := range []string{"powersim", "vm"} {
				if err := logging.SetLogLevel(name, c.String("log-level")); err != nil {
					return err
				}
			}
			return nil
		},
		Commands: []*cli.Command{
			runCmd,
			defaultConfigCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ERR: %v\n", err) // nolint: errcheck
		os.Exit(1)
	}
}

var defaultConfigCmd = &cli.Command{
	Name:  "default-config",
	Usage: "print the default configuration as TOML",
	Action: func(c *cli.Context) error {
		return toml.NewEncoder(c.App.Writer).Encode(DefaultConfig())
	},
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run a simulation and print power totals as it progresses",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to a TOML configuration file",
		},
		&cli.IntFlag{
			Name:  "epochs",
			Usage: "number of epochs to run (overrides the config)",
		},
		&cli.Int64Flag{
			Name:  "seed",
			Usage: "random seed; zero picks one",
		},
		&cli.Int64Flag{
			Name:  "policy-version",
			Usage: "threshold policy version (overrides the config)",
		},
		&cli.Uint64Flag{
			Name:  "check-every",
			Usage: "check state invariants every this many epochs (overrides the config)",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := LoadConfig(c.String("config"))
		if err != nil {
			return err
		}
		if c.IsSet("epochs") {
			cfg.Epochs = c.Int("epochs")
		}
		if c.IsSet("seed") {
			cfg.Seed = c.Int64("seed")
		}
		if c.IsSet("policy-version") {
			cfg.Policy.Version = c.Int64("policy-version")
		}
		if c.IsSet("check-every") {
			cfg.CheckInvariantEpochs = c.Uint64("check-every")
		}
		if cfg.Seed == 0 {
			cfg.Seed = agent.NewRandomSeed()
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return runSim(c.Context, cfg)
	},
}

func runSim(ctx context.Context, cfg Config) error {
	log.Infow("starting simulation", "seed", cfg.Seed, "epochs", cfg.Epochs, "policy", cfg.Policy.Version)

	sim, err := agent.NewSim(ctx, func() cbor.IpldBlockstore { return ipld.NewBlockStoreInMemory() }, cfg.SimConfig())
	if err != nil {
		return err
	}
	accounts, err := sim.CreateAccounts(cfg.Accounts, fil(cfg.AccountBalanceFIL))
	if err != nil {
		return err
	}
	minerCfg, err := cfg.MinerAgentConfig()
	if err != nil {
		return err
	}
	sim.AddAgent(agent.NewMinerGenerator(accounts, minerCfg, cfg.MinerCreateRate, cfg.Seed))

	report := func(s *agent.Sim) error {
		epoch := int(s.GetEpoch())
		if cfg.ReportEvery <= 0 || epoch%cfg.ReportEvery != 0 {
			return nil
		}
		stats, err := s.NetworkStats()
		if err != nil {
			return xerrors.Errorf("failed to read power totals: %w", err)
		}
		fmt.Printf("epoch %d: raw %v  qa %v  committed %v  pledge %v  miners %d  qualifying %d  belowMin %t  wins %d  msgs %d  rejected %d\n",
			epoch, stats.TotalRawBytePower, stats.TotalQualityAdjPower, stats.TotalBytesCommitted, stats.TotalPledgeCollateral,
			stats.MinerCount, stats.MinerAboveMinPowerCount, stats.BelowMinimum, s.WinCount, s.MessageCount, s.RejectedCount)
		return nil
	}

	if err := sim.Run(cfg.Epochs, report); err != nil {
		return xerrors.Errorf("simulation failed: %w", err)
	}
	log.Infow("simulation complete", "epoch", sim.GetEpoch(), "messages", sim.MessageCount, "wins", sim.WinCount)
	return nil
}
