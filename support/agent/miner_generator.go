package agent

import (
	"math/rand"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/cbor"
	"github.com/pkg/errors"

	"github.com/worlddbs/power-actor/actors/builtin"
	"github.com/worlddbs/power-actor/actors/builtin/power"
)

// MinerGenerator turns a pool of funded accounts into miners, one CreateMiner message per account,
// at an average rate per epoch. Each successful creation registers a MinerAgent with the sim.
type MinerGenerator struct {
	config  MinerAgentConfig
	arrival *RateIterator
	owners  []address.Address
	created int
	rnd     *rand.Rand
}

func NewMinerGenerator(accounts []address.Address, config MinerAgentConfig, createMinerRate float64, rndSeed int64) *MinerGenerator {
	rnd := rand.New(rand.NewSource(rndSeed))
	return &MinerGenerator{
		config:  config,
		arrival: NewRateIterator(createMinerRate, rnd.Int63()),
		owners:  accounts,
		rnd:     rnd,
	}
}

func (mg *MinerGenerator) Tick(s SimState) ([]message, error) {
	var msgs []message
	err := mg.arrival.Tick(func() error {
		if mg.created == len(mg.owners) {
			return nil
		}
		owner := mg.owners[mg.created]
		mg.created++
		msgs = append(msgs, mg.createMiner(s, owner))
		return nil
	})
	return msgs, err
}

// MinersCreated is the number of CreateMiner messages sent so far.
func (mg *MinerGenerator) MinersCreated() int {
	return mg.created
}

// createMiner has owner create a miner it also works. The agent is only added once the power actor
// returns the new miner's addresses.
func (mg *MinerGenerator) createMiner(s SimState, owner address.Address) message {
	cfg := mg.config
	return message{
		From:   owner,
		To:     builtin.StoragePowerActorAddr,
		Value:  cfg.StartingBalance,
		Method: builtin.MethodsPower.CreateMiner,
		Params: s.CreateMinerParams(owner, owner, cfg.ProofType),
		ReturnHandler: func(s SimState, msg message, ret cbor.Marshaler) error {
			addrs, ok := ret.(*power.CreateMinerReturn)
			if !ok {
				return errors.Errorf("CreateMiner returned %T, expected *power.CreateMinerReturn", ret)
			}
			params := msg.Params.(*power.CreateMinerParams)
			s.AddAgent(NewMinerAgent(params.Owner, params.Worker, addrs.IDAddress, addrs.RobustAddress, mg.rnd.Int63(), cfg))
			return nil
		},
	}
}
