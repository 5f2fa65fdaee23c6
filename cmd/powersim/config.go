package main

import (
	"github.com/BurntSushi/toml"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"golang.org/x/xerrors"

	"github.com/worlddbs/power-actor/actors/builtin/power"
	"github.com/worlddbs/power-actor/support/agent"
	"github.com/worlddbs/power-actor/support/vm"
)

// Config is the TOML layout of a simulation run.
type Config struct {
	Epochs      int
	ReportEvery int
	Seed        int64

	Accounts          int
	AccountBalanceFIL int64
	MinerCreateRate   float64

	CheckpointEpochs     uint64
	CheckInvariantEpochs uint64

	Policy PolicyConfig
	Miner  MinerConfig
}

type PolicyConfig struct {
	Version     int64
	Numerator   int64
	Denominator int64
}

type MinerConfig struct {
	ProofType          string
	ProveCommitRate    float64
	StartingBalanceFIL int64
	FaultRate          float64
	PledgePerSectorFIL int64
	CronInterval       int64
	ConsensusFaultRate float64
}

func DefaultConfig() Config {
	return Config{
		Epochs:               1000,
		ReportEvery:          100,
		Accounts:             20,
		AccountBalanceFIL:    1000,
		MinerCreateRate:      0.5,
		CheckInvariantEpochs: 10,
		Policy: PolicyConfig{
			Version: int64(power.PolicyVersion1),
		},
		Miner: MinerConfig{
			ProofType:          "2KiB",
			ProveCommitRate:    1.0,
			StartingBalanceFIL: 100,
			FaultRate:          0.001,
			PledgePerSectorFIL: 1,
			CronInterval:       60,
			ConsensusFaultRate: 0.0001,
		},
	}
}

// LoadConfig overlays a TOML file on the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, xerrors.Errorf("failed to decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, xerrors.Errorf("unknown keys in %s: %v", path, undecoded)
	}
	return cfg, nil
}

func (c Config) SimConfig() agent.SimConfig {
	return agent.SimConfig{
		Seed:                 c.Seed,
		CheckpointEpochs:     c.CheckpointEpochs,
		CheckInvariantEpochs: c.CheckInvariantEpochs,
		PolicyVersion:        power.PolicyVersion(c.Policy.Version),
		PolicyNumerator:      c.Policy.Numerator,
		PolicyDenominator:    c.Policy.Denominator,
	}
}

func (c Config) MinerAgentConfig() (agent.MinerAgentConfig, error) {
	proof, err := parseProofType(c.Miner.ProofType)
	if err != nil {
		return agent.MinerAgentConfig{}, err
	}
	return agent.MinerAgentConfig{
		ProveCommitRate:    c.Miner.ProveCommitRate,
		ProofType:          proof,
		StartingBalance:    fil(c.Miner.StartingBalanceFIL),
		FaultRate:          c.Miner.FaultRate,
		PledgePerSector:    fil(c.Miner.PledgePerSectorFIL),
		CronInterval:       abi.ChainEpoch(c.Miner.CronInterval),
		ConsensusFaultRate: c.Miner.ConsensusFaultRate,
	}, nil
}

func (c Config) Validate() error {
	if c.Epochs < 0 {
		return xerrors.Errorf("negative epoch count %d", c.Epochs)
	}
	if c.Accounts <= 0 {
		return xerrors.Errorf("at least one account is required, got %d", c.Accounts)
	}
	if c.Miner.StartingBalanceFIL > c.AccountBalanceFIL {
		return xerrors.Errorf("miner starting balance %d exceeds account balance %d", c.Miner.StartingBalanceFIL, c.AccountBalanceFIL)
	}
	if _, err := c.SimConfig().Policy(); err != nil {
		return err
	}
	_, err := c.MinerAgentConfig()
	return err
}

var proofTypes = map[string]abi.RegisteredSealProof{
	"2KiB":   abi.RegisteredSealProof_StackedDrg2KiBV1,
	"8MiB":   abi.RegisteredSealProof_StackedDrg8MiBV1,
	"512MiB": abi.RegisteredSealProof_StackedDrg512MiBV1,
	"32GiB":  abi.RegisteredSealProof_StackedDrg32GiBV1,
	"64GiB":  abi.RegisteredSealProof_StackedDrg64GiBV1,
}

func parseProofType(s string) (abi.RegisteredSealProof, error) {
	p, ok := proofTypes[s]
	if !ok {
		return 0, xerrors.Errorf("unknown sector size %q", s)
	}
	return p, nil
}

func fil(n int64) abi.TokenAmount {
	return big.Mul(big.NewInt(n), vm.FIL)
}
