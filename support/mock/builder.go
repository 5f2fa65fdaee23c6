package mock

import (
	"context"
	"testing"

	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/ipfs/go-cid"
	"github.com/minio/blake2b-simd"
)

// RuntimeBuilder configures a mock runtime before it is built.
type RuntimeBuilder struct {
	receiver addr.Address
	options  []func(rt *Runtime)
}

func NewBuilder(receiver addr.Address) RuntimeBuilder {
	return RuntimeBuilder{receiver: receiver}
}

// Build returns a runtime at epoch zero with no state, no balance, and the configured options applied.
// Its context is cancelled when the test ends.
func (b RuntimeBuilder) Build(t testing.TB) *Runtime {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	m := &Runtime{
		t:             t,
		ctx:           ctx,
		receiver:      b.receiver,
		callerType:    cid.Undef,
		valueReceived: big.Zero(),
		balance:       big.Zero(),
		idAddresses:   map[addr.Address]addr.Address{},
		actorCodeCIDs: map[addr.Address]cid.Cid{},
		newActorAddr:  addr.Undef,
		hashfunc:      blake2b.Sum256,
		state:         cid.Undef,
		blocks:        map[cid.Cid][]byte{},
	}
	for _, opt := range b.options {
		opt(m)
	}
	return m
}

// with returns a copy of the builder with one more option, so shared builders are never mutated.
func (b RuntimeBuilder) with(opt func(*Runtime)) RuntimeBuilder {
	options := make([]func(*Runtime), len(b.options), len(b.options)+1)
	copy(options, b.options)
	b.options = append(options, opt)
	return b
}

func (b RuntimeBuilder) WithEpoch(epoch abi.ChainEpoch) RuntimeBuilder {
	return b.with(func(rt *Runtime) { rt.epoch = epoch })
}

func (b RuntimeBuilder) WithCaller(address addr.Address, code cid.Cid) RuntimeBuilder {
	return b.with(func(rt *Runtime) {
		rt.caller = address
		rt.callerType = code
	})
}

func (b RuntimeBuilder) WithBalance(balance, received abi.TokenAmount) RuntimeBuilder {
	return b.with(func(rt *Runtime) {
		rt.balance = balance
		rt.valueReceived = received
	})
}

func (b RuntimeBuilder) WithActorType(address addr.Address, code cid.Cid) RuntimeBuilder {
	return b.with(func(rt *Runtime) { rt.actorCodeCIDs[address] = code })
}

func (b RuntimeBuilder) WithHasher(f func(data []byte) [32]byte) RuntimeBuilder {
	return b.with(func(rt *Runtime) { rt.hashfunc = f })
}
