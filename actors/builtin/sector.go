package builtin

import (
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/pkg/errors"
)

// Policy values associated with a seal proof type.
type SealProofPolicy struct {
	ConsensusMinerMinPower abi.StoragePower
}

// The per-proof minimum power floors may be overridden by networks and tests before any actor runs.
var SealProofPolicies = map[abi.RegisteredSealProof]*SealProofPolicy{
	abi.RegisteredSealProof_StackedDrg2KiBV1: {
		ConsensusMinerMinPower: abi.NewStoragePower(0),
	},
	abi.RegisteredSealProof_StackedDrg8MiBV1: {
		ConsensusMinerMinPower: abi.NewStoragePower(16 << 20),
	},
	abi.RegisteredSealProof_StackedDrg512MiBV1: {
		ConsensusMinerMinPower: abi.NewStoragePower(1 << 30),
	},
	abi.RegisteredSealProof_StackedDrg32GiBV1: {
		ConsensusMinerMinPower: abi.NewStoragePower(10 << 40),
	},
	abi.RegisteredSealProof_StackedDrg64GiBV1: {
		ConsensusMinerMinPower: abi.NewStoragePower(20 << 40),
	},
}

// The minimum power of an individual miner to meet the threshold for leader election (in bytes).
// Motivation:
// - Limits sybil generation
// - Improves consensus fault detection
// - Guarantees a minimum fee for consensus faults
func ConsensusMinerMinPower(p abi.RegisteredSealProof) (abi.StoragePower, error) {
	info, ok := SealProofPolicies[p]
	if !ok {
		return abi.NewStoragePower(0), errors.Errorf("unsupported proof type: %v", p)
	}
	return info.ConsensusMinerMinPower, nil
}

// SupportedSealProof reports whether a miner may register with the given proof type.
func SupportedSealProof(p abi.RegisteredSealProof) bool {
	_, ok := SealProofPolicies[p]
	return ok
}
