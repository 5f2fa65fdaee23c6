package account

import (
	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/cbor"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/ipfs/go-cid"

	"github.com/worlddbs/power-actor/actors/builtin"
	"github.com/worlddbs/power-actor/actors/runtime"
)

// Actor is a signing principal. Miner owners and workers are accounts, and only
// signable callers may ask the power actor to create a miner.
type Actor struct{}

func (a Actor) Exports() []interface{} {
	return []interface{}{
		builtin.MethodConstructor: a.Constructor,
		2:                         a.PubkeyAddress,
	}
}

func (a Actor) Code() cid.Cid {
	return builtin.AccountActorCodeID
}

func (a Actor) IsSingleton() bool {
	return false
}

func (a Actor) State() cbor.Er {
	return new(State)
}

var _ runtime.VMActor = Actor{}

type State struct {
	Address addr.Address
}

// Accounts are created implicitly by the system when value is first sent to a key address.
func (a Actor) Constructor(rt runtime.Runtime, address *addr.Address) *abi.EmptyValue {
	rt.ValidateImmediateCallerIs(builtin.SystemActorAddr)
	if !IsKeyAddress(*address) {
		rt.Abortf(exitcode.ErrIllegalArgument, "address must use BLS or SECP protocol, got %v", address.Protocol())
	}
	rt.StateCreate(&State{Address: *address})
	return nil
}

// Fetches the key address this account signs with.
func (a Actor) PubkeyAddress(rt runtime.Runtime, _ *abi.EmptyValue) *addr.Address {
	rt.ValidateImmediateCallerAcceptAny()
	var st State
	rt.StateReadonly(&st)
	return &st.Address
}

func IsKeyAddress(a addr.Address) bool {
	return a.Protocol() == addr.BLS || a.Protocol() == addr.SECP256K1
}
