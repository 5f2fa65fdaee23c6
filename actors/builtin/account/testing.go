package account

import (
	"github.com/filecoin-project/go-address"

	"github.com/worlddbs/power-actor/actors/builtin"
)

type StateSummary struct {
	PubKeyAddr address.Address
}

// Checks internal invariants of account state.
func CheckStateInvariants(st *State, idAddr address.Address) (*StateSummary, *builtin.MessageAccumulator) {
	acc := &builtin.MessageAccumulator{}
	summary := &StateSummary{PubKeyAddr: st.Address}

	id, err := address.IDFromAddress(idAddr)
	if err != nil {
		acc.Addf("error extracting actor ID from address: %v", err)
		return summary, acc
	}
	// Singletons below the first non-singleton ID may be accounts without keys.
	if id >= builtin.FirstNonSingletonActorId {
		acc.Require(IsKeyAddress(st.Address), "actor address %v must be BLS or SECP256K1 protocol", st.Address)
	}
	return summary, acc
}
