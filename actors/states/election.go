package states

import (
	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/big"

	"github.com/worlddbs/power-actor/actors/builtin/power"
	"github.com/worlddbs/power-actor/actors/util/adt"
)

// Checks for miner election eligibility.
// A miner must satisfy conditions on both the immediate parent state, as well as state at the
// Winning PoSt election lookback.

// Tests whether a miner is eligible to win an election given the immediately prior state of the
// power actor. A miner without a claim, or with no quality-adjusted power, is never eligible.
func MinerEligibleForElection(store adt.Store, pstate *power.State, maddr addr.Address) (bool, error) {
	claim, found, err := pstate.GetClaim(store, maddr)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return claim.QualityAdjPower.GreaterThan(big.Zero()), nil
}

// Tests whether a miner is eligible for election given a Winning PoSt lookback state.
// The power state must be the state of the power actor at Winning PoSt lookback epoch.
func MinerPoStLookbackEligibleForElection(store adt.Store, pstate *power.State, mAddr addr.Address) (bool, error) {
	// Minimum power requirements.
	return pstate.MinerNominalPowerMeetsConsensusMinimum(store, mAddr)
}
