package power

import (
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"golang.org/x/xerrors"

	"github.com/worlddbs/power-actor/actors/builtin"
)

// The number of miners that must meet the consensus minimum miner power before that minimum power is enforced
// as a condition of leader election.
// This ensures a network still functions before any miners reach that threshold.
var ConsensusMinerMinMiners int64 = 4 // PARAM_SPEC

// Maximum number of prove-commits that may be submitted, across all miners, in one epoch.
//
// This limits the number of proofs we may need to verify in the cron call path.
var MaxMinerProveCommitsPerEpoch int64 = 200 // PARAM_SPEC

// GasOnSubmitVerifySeal is amount of gas charged for SubmitPoRepForBulkVerify
// This number is empirically determined
const GasOnSubmitVerifySeal = 34721049

// PolicyVersion identifies a threshold policy revision.
type PolicyVersion int64

const (
	PolicyVersion1 PolicyVersion = iota + 1
	PolicyVersion2
)

// PowerTotals are the aggregates a policy may consult when computing a miner's threshold.
type PowerTotals struct {
	RawBytesCommitted abi.StoragePower
	QABytesCommitted  abi.StoragePower
	MinerCount        int64
}

// A ThresholdPolicy computes the minimum quality-adjusted power a miner needs to count
// towards consensus. Implementations must be pure functions of their arguments.
type ThresholdPolicy interface {
	Version() PolicyVersion
	MinerMinPower(totals PowerTotals, proof abi.RegisteredSealProof) (abi.StoragePower, error)
	// DependsOnTotals reports whether the threshold may move when other miners' power changes.
	DependsOnTotals() bool
}

// DefaultThresholdPolicy is used by an Actor with no policy configured.
var DefaultThresholdPolicy ThresholdPolicy = PolicyV1FixedFloor{}

// PolicyV1FixedFloor uses the per-seal-proof consensus floor.
type PolicyV1FixedFloor struct{}

var _ ThresholdPolicy = PolicyV1FixedFloor{}

func (PolicyV1FixedFloor) Version() PolicyVersion {
	return PolicyVersion1
}

func (PolicyV1FixedFloor) MinerMinPower(_ PowerTotals, proof abi.RegisteredSealProof) (abi.StoragePower, error) {
	return builtin.ConsensusMinerMinPower(proof)
}

func (PolicyV1FixedFloor) DependsOnTotals() bool {
	return false
}

// PolicyV2FractionOfTotal raises the per-proof floor to a fraction of the committed network QA power.
type PolicyV2FractionOfTotal struct {
	Numerator   int64
	Denominator int64
}

var _ ThresholdPolicy = PolicyV2FractionOfTotal{}

func (p PolicyV2FractionOfTotal) Version() PolicyVersion {
	return PolicyVersion2
}

func (p PolicyV2FractionOfTotal) MinerMinPower(totals PowerTotals, proof abi.RegisteredSealProof) (abi.StoragePower, error) {
	if p.Numerator < 0 || p.Denominator <= 0 {
		return big.Zero(), xerrors.Errorf("invalid threshold fraction %d/%d", p.Numerator, p.Denominator)
	}
	floor, err := builtin.ConsensusMinerMinPower(proof)
	if err != nil {
		return big.Zero(), err
	}
	fraction := big.Div(big.Mul(totals.QABytesCommitted, big.NewInt(p.Numerator)), big.NewInt(p.Denominator))
	return big.Max(floor, fraction), nil
}

func (p PolicyV2FractionOfTotal) DependsOnTotals() bool {
	return true
}
