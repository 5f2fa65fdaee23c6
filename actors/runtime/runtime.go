package runtime

import (
	"context"

	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/cbor"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/filecoin-project/go-state-types/rt"
	cid "github.com/ipfs/go-cid"

	"github.com/worlddbs/power-actor/actors/runtime/proof"
)

// Runtime is everything an actor method can see of the chain besides its parameters.
// Implementations: the message-executing VM in support/vm and the mock in support/mock.
type Runtime interface {
	Message
	StateHandle
	Store
	Syscalls

	// Epoch of the tipset the message executes in.
	CurrEpoch() abi.ChainEpoch

	// Every exported method calls exactly one of the ValidateImmediateCaller* methods before
	// returning. The AcceptAny form asserts nothing about the caller.
	ValidateImmediateCallerAcceptAny()
	// Aborts with ErrForbidden unless the caller is one of addrs. Callers are ID addresses, so
	// addrs should be too.
	ValidateImmediateCallerIs(addrs ...addr.Address)
	// Aborts with ErrForbidden unless the caller's code is one of types.
	ValidateImmediateCallerType(types ...cid.Cid)

	// Maps any address to its ID address through the init actor's table. ID addresses map to themselves.
	ResolveAddress(address addr.Address) (addr.Address, bool)

	// Code CID of the actor at an address, if one exists.
	GetActorCodeCID(addr addr.Address) (ret cid.Cid, ok bool)

	// Invokes a method on another actor and decodes its return value into out.
	// A non-zero exit code means every state change made by the callee was rolled back; the caller
	// decides whether that is fatal.
	Send(toAddr addr.Address, methodNum abi.MethodNum, params cbor.Marshaler, value abi.TokenAmount, out cbor.Er) exitcode.ExitCode

	// Ends the current method with an error code, discarding its state changes. Never returns.
	Abortf(errExitCode exitcode.ExitCode, msg string, args ...interface{})

	// A fresh robust (actor protocol) address, stable across re-orgs, for an actor about to be created.
	NewActorAddress() addr.Address

	// Installs an actor with empty state. Only the init actor creates actors.
	CreateActor(codeId cid.Cid, address addr.Address)

	// Context for collection code (HAMT/AMT). Actors do not use it directly.
	Context() context.Context

	// Charges gas for work the runtime cannot meter itself.
	ChargeGas(name string, gas int64, virtual int64)

	// Records a diagnostic line. Not persisted.
	Log(level rt.LogLevel, msg string, args ...interface{})
}

// Store is the actor's view of the content-addressed block store.
type Store interface {
	// Loads the object at c into o, returning false if the block is absent.
	StoreGet(c cid.Cid, o cbor.Unmarshaler) bool
	StorePut(x cbor.Marshaler) cid.Cid
}

// Message describes the invocation being executed. For a nested send these are the values of the
// inner call.
type Message interface {
	// Immediate caller, always an ID address.
	Caller() addr.Address
	// Receiving actor, always an ID address.
	Receiver() addr.Address
	// Value transferred with the message, already credited to the receiver.
	ValueReceived() abi.TokenAmount
}

// Syscalls are the primitives the runtime computes on the actor's behalf.
type Syscalls interface {
	HashBlake2b(data []byte) [32]byte
	// Verifies seal proofs grouped by miner. Each result slice lines up with the miner's input slice.
	BatchVerifySeals(vis map[addr.Address][]proof.SealVerifyInfo) (map[addr.Address][]bool, error)
}

// StateHandle gives the receiving actor exclusive access to its state object.
//
// State loaded through StateReadonly must not be modified, and state loaded through
// StateTransaction may only be modified inside the callback, which must not send messages:
//
//	var st State
//	rt.StateTransaction(&st, func() {
//		st.MinerCount++
//	})
type StateHandle interface {
	// Sets the initial state. Constructors only.
	StateCreate(obj cbor.Marshaler)
	StateReadonly(obj cbor.Unmarshaler)
	// Loads state into obj, runs f, and saves obj as the new state.
	StateTransaction(obj cbor.Er, f func())
}

// VMActor is an actor implementation installable in a VM.
type VMActor = rt.VMActor
