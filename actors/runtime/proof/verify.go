package proof

import (
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/ipfs/go-cid"
)

// Information needed to verify a seal proof.
// The power actor batches these per miner and verifies them once per epoch.
type SealVerifyInfo struct {
	SealProof             abi.RegisteredSealProof
	SectorID              abi.SectorID
	DealIDs               []abi.DealID
	Randomness            abi.SealRandomness
	InteractiveRandomness abi.InteractiveSealRandomness
	Proof                 []byte

	// Safe because we get those from the miner actor
	SealedCID   cid.Cid `checked:"true"` // CommR
	UnsealedCID cid.Cid `checked:"true"` // CommD
}
