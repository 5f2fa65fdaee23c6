package vm

import (
	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/minio/blake2b-simd"

	"github.com/worlddbs/power-actor/actors/runtime"
	"github.com/worlddbs/power-actor/actors/runtime/proof"
)

// SealVerifier stands in for the batch seal verification syscall.
type SealVerifier func(vis map[address.Address][]proof.SealVerifyInfo) (map[address.Address][]bool, error)

// AcceptAllSeals verifies every proof it is given.
func AcceptAllSeals(vis map[address.Address][]proof.SealVerifyInfo) (map[address.Address][]bool, error) {
	return RejectSectors(nil)(vis)
}

// RejectSectors returns a verifier that fails the listed sector numbers of each miner and accepts the rest.
func RejectSectors(rejected map[address.Address][]abi.SectorNumber) SealVerifier {
	return func(vis map[address.Address][]proof.SealVerifyInfo) (map[address.Address][]bool, error) {
		res := make(map[address.Address][]bool, len(vis))
		for miner, infos := range vis { //nolint:nomaprange
			bad := make(map[abi.SectorNumber]struct{}, len(rejected[miner]))
			for _, n := range rejected[miner] {
				bad[n] = struct{}{}
			}
			verified := make([]bool, len(infos))
			for i, info := range infos {
				_, isBad := bad[info.SectorID.Number]
				verified[i] = !isBad
			}
			res[miner] = verified
		}
		return res, nil
	}
}

var _ runtime.Syscalls = (*invocationContext)(nil)

func (ic *invocationContext) HashBlake2b(data []byte) [32]byte {
	return blake2b.Sum256(data)
}

func (ic *invocationContext) BatchVerifySeals(vis map[address.Address][]proof.SealVerifyInfo) (map[address.Address][]bool, error) {
	return ic.vm.sealVerifier(vis)
}
