package vm

import (
	"context"
	"fmt"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/go-state-types/cbor"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/filecoin-project/go-state-types/rt"
	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	"github.com/pkg/errors"

	"github.com/worlddbs/power-actor/actors/builtin"
	init_ "github.com/worlddbs/power-actor/actors/builtin/init"
	"github.com/worlddbs/power-actor/actors/runtime"
	"github.com/worlddbs/power-actor/actors/states"
	"github.com/worlddbs/power-actor/actors/util/adt"
)

var log = logging.Logger("vm")

// VM applies messages to a state tree holding the power actor, its collaborators and scripted miners.
// Each top-level message and each nested send either completes or leaves no trace in state.
// There is no gas accounting, nonce checking or signature verification, and seal verification is
// delegated to a replaceable SealVerifier.
type VM struct {
	ctx   context.Context
	store adt.Store

	currentEpoch abi.ChainEpoch
	ActorImpls   ActorImplLookup

	stateRoot cid.Cid  // last committed root
	actors    *adt.Map // working tree, possibly ahead of stateRoot

	emptyObject  cid.Cid
	callSequence uint64

	logs  []string
	trace invocationTrace

	statsSource   StatsSource
	statsByMethod StatsByCall

	sealVerifier SealVerifier
	// Balances placed in the tree by genesis or account setup rather than by messages.
	issued abi.TokenAmount
}

type ActorImplLookup map[cid.Cid]runtime.VMActor

// InternalMessage is a top-level message or a send between actors.
type InternalMessage struct {
	from   address.Address
	to     address.Address
	value  abi.TokenAmount
	method abi.MethodNum
	params interface{}
}

var _ runtime.Message = (*InternalMessage)(nil)

func (msg InternalMessage) ValueReceived() abi.TokenAmount { return msg.value }
func (msg InternalMessage) Caller() address.Address        { return msg.from }
func (msg InternalMessage) Receiver() address.Address      { return msg.to }

// Invocation records a message, its outcome, and the sends it made.
type Invocation struct {
	Msg            *InternalMessage
	Exitcode       exitcode.ExitCode
	Ret            cbor.Marshaler
	SubInvocations []*Invocation
}

// NewVM returns a VM over an empty state tree at epoch zero.
func NewVM(ctx context.Context, actorImpls ActorImplLookup, store adt.Store) *VM {
	root, err := adt.MakeEmptyMap(store).Root()
	if err != nil {
		panic(err)
	}
	vm, err := NewVMAtEpoch(ctx, actorImpls, store, root, 0)
	if err != nil {
		panic(err)
	}
	return vm
}

// NewVMAtEpoch returns a VM over an existing state tree.
// The VM has no record of issued funds, so balance invariants must be given the expected total explicitly.
func NewVMAtEpoch(ctx context.Context, actorImpls ActorImplLookup, store adt.Store, stateRoot cid.Cid, epoch abi.ChainEpoch) (*VM, error) {
	actors, err := adt.AsMap(store, stateRoot)
	if err != nil {
		return nil, err
	}
	emptyObject, err := store.Put(ctx, []struct{}{})
	if err != nil {
		return nil, err
	}
	return &VM{
		ctx:           ctx,
		store:         store,
		currentEpoch:  epoch,
		ActorImpls:    actorImpls,
		stateRoot:     stateRoot,
		actors:        actors,
		emptyObject:   emptyObject,
		statsByMethod: make(StatsByCall),
		sealVerifier:  AcceptAllSeals,
		issued:        big.Zero(),
	}, nil
}

// WithEpoch commits the current state and returns a VM over it at another epoch.
// Logs, invocation records and call stats start empty; everything else carries over.
func (vm *VM) WithEpoch(epoch abi.ChainEpoch) (*VM, error) {
	root, err := vm.checkpoint()
	if err != nil {
		return nil, err
	}
	next, err := NewVMAtEpoch(vm.ctx, vm.ActorImpls, vm.store, root, epoch)
	if err != nil {
		return nil, err
	}
	next.emptyObject = vm.emptyObject
	next.callSequence = vm.callSequence
	next.statsSource = vm.statsSource
	next.sealVerifier = vm.sealVerifier
	next.issued = vm.issued
	return next, nil
}

//
// state tree
//

// checkpoint commits the working tree.
func (vm *VM) checkpoint() (cid.Cid, error) {
	root, err := vm.actors.Root()
	if err != nil {
		return cid.Undef, err
	}
	vm.stateRoot = root
	return root, nil
}

// rollback discards the working tree in favour of an earlier root.
func (vm *VM) rollback(root cid.Cid) error {
	actors, err := adt.AsMap(vm.store, root)
	if err != nil {
		return errors.Wrapf(err, "failed to load state tree at %s", root)
	}
	vm.actors = actors
	vm.stateRoot = root
	return nil
}

func (vm *VM) GetActor(a address.Address) (*states.Actor, bool, error) {
	id, found := vm.NormalizeAddress(a)
	if !found {
		return nil, false, nil
	}
	var act states.Actor
	found, err := vm.actors.Get(abi.AddrKey(id), &act)
	return &act, found, err
}

// mustGetActor panics unless the actor exists; for addresses the VM itself has resolved.
func (vm *VM) mustGetActor(a address.Address) *states.Actor {
	act, found, err := vm.GetActor(a)
	if err != nil {
		panic(err)
	}
	if !found {
		panic(fmt.Errorf("actor %s not found", a))
	}
	return act
}

func (vm *VM) setActor(key address.Address, a *states.Actor) error {
	return errors.Wrapf(vm.actors.Put(abi.AddrKey(key), a), "failed to set actor %s", key)
}

// SetActorState writes new state for an existing actor outside of any message.
func (vm *VM) SetActorState(ctx context.Context, key address.Address, state cbor.Marshaler) error {
	head, err := vm.store.Put(ctx, state)
	if err != nil {
		return err
	}
	a, found, err := vm.GetActor(key)
	if err != nil {
		return err
	}
	if !found {
		return errors.Errorf("could not find actor %s to set state", key)
	}
	a.Head = head
	return vm.setActor(key, a)
}

// NormalizeAddress resolves an address to its ID address using the init actor's table.
func (vm *VM) NormalizeAddress(addr address.Address) (address.Address, bool) {
	if addr.Protocol() == address.ID {
		return addr, true
	}
	st := vm.initState()
	idAddr, found, err := st.ResolveAddress(vm.store, addr)
	if err != nil {
		panic(err)
	}
	return idAddr, found
}

func (vm *VM) initState() *init_.State {
	var initActor states.Actor
	found, err := vm.actors.Get(abi.AddrKey(builtin.InitActorAddr), &initActor)
	if err != nil {
		panic(errors.Wrap(err, "failed to load init actor"))
	}
	if !found {
		panic(errors.New("no init actor"))
	}
	var st init_.State
	if err := vm.store.Get(vm.ctx, initActor.Head, &st); err != nil {
		panic(err)
	}
	return &st
}

// transfer moves funds between two existing actors. The caller has checked the amount is
// non-negative and covered by the sender's balance.
func (vm *VM) transfer(from, to address.Address, amount abi.TokenAmount) (toActor, fromActor *states.Actor) {
	fromActor = vm.mustGetActor(from)
	if amount.LessThan(big.Zero()) || fromActor.Balance.LessThan(amount) {
		panic(fmt.Errorf("invalid transfer of %v from %s with balance %v", amount, from, fromActor.Balance))
	}
	fromActor.Balance = big.Sub(fromActor.Balance, amount)
	if err := vm.setActor(from, fromActor); err != nil {
		panic(err)
	}

	toActor = vm.mustGetActor(to)
	toActor.Balance = big.Add(toActor.Balance, amount)
	if err := vm.setActor(to, toActor); err != nil {
		panic(err)
	}
	return toActor, fromActor
}

func (vm *VM) getActorImpl(code cid.Cid) runtime.VMActor {
	impl, ok := vm.ActorImpls[code]
	if !ok {
		vm.Abortf(exitcode.SysErrInvalidReceiver, "actor implementation not found for code %v", code)
	}
	return impl
}

//
// message application
//

// ApplyMessage applies a top-level message. If it fails, the only lasting effect is the sender's
// call sequence number increment.
func (vm *VM) ApplyMessage(from, to address.Address, value abi.TokenAmount, method abi.MethodNum, params interface{}) (cbor.Marshaler, exitcode.ExitCode) {
	fromID, ok := vm.NormalizeAddress(from)
	if !ok {
		return nil, exitcode.SysErrSenderInvalid
	}
	fromActor, found, err := vm.GetActor(fromID)
	if err != nil {
		panic(err)
	}
	if !found {
		return nil, exitcode.SysErrSenderInvalid
	}

	fromActor.CallSeqNum++
	if err := vm.setActor(fromID, fromActor); err != nil {
		panic(err)
	}
	priorRoot, err := vm.checkpoint()
	if err != nil {
		panic(err)
	}

	// The sequence counter only has to make new actor addresses unique.
	origin := &topLevelContext{
		originatorStableAddress: from,
		originatorCallSeq:       vm.callSequence,
		statsSource:             vm.statsSource,
	}
	vm.callSequence++

	msg := InternalMessage{from: fromID, to: to, value: value, method: method, params: params}
	call := newInvocationContext(vm, origin, msg, fromActor)
	ret, code := call.invoke()

	if call.toActor != nil {
		vm.statsByMethod.MergeStats(call.toActor.Code, msg.method, call.stats)
	}

	// Nested failures are already rolled back by invoke; this covers failures before dispatch.
	if code != exitcode.Ok {
		err = vm.rollback(priorRoot)
	} else {
		_, err = vm.checkpoint()
	}
	if err != nil {
		panic(err)
	}
	return ret.inner, code
}

//
// inspection
//

func (vm *VM) StateRoot() cid.Cid {
	return vm.stateRoot
}

func (vm *VM) GetState(addr address.Address, out cbor.Unmarshaler) error {
	act, found, err := vm.GetActor(addr)
	if err != nil {
		return err
	}
	if !found {
		return errors.Errorf("actor %v not found", addr)
	}
	return vm.store.Get(vm.ctx, act.Head, out)
}

// GetStateTree commits the working tree and returns it as a states.Tree.
func (vm *VM) GetStateTree() (*states.Tree, error) {
	root, err := vm.checkpoint()
	if err != nil {
		return nil, err
	}
	return states.LoadTree(vm.store, root)
}

func (vm *VM) GetTotalActorBalance() (abi.TokenAmount, error) {
	tree, err := vm.GetStateTree()
	if err != nil {
		return big.Zero(), err
	}
	total := big.Zero()
	err = tree.ForEach(func(_ address.Address, actor *states.Actor) error {
		total = big.Add(total, actor.Balance)
		return nil
	})
	return total, err
}

func (vm *VM) Store() adt.Store {
	return vm.store
}

func (vm *VM) GetEpoch() abi.ChainEpoch {
	return vm.currentEpoch
}

// GetCallStats returns the store traffic of every message applied at this epoch, by method.
func (vm *VM) GetCallStats() StatsByCall {
	return vm.statsByMethod
}

func (vm *VM) GetActorImpls() ActorImplLookup {
	return vm.ActorImpls
}

// SetSealVerifier replaces the batch seal verification syscall.
func (vm *VM) SetSealVerifier(v SealVerifier) {
	vm.sealVerifier = v
}

func (vm *VM) SetStatsSource(s StatsSource) {
	vm.statsSource = s
}

func (vm *VM) StoreReads() uint64 {
	return readCounters(vm.statsSource).reads
}

func (vm *VM) StoreWrites() uint64 {
	return readCounters(vm.statsSource).writes
}

func (vm *VM) Invocations() []*Invocation {
	return vm.trace.roots
}

func (vm *VM) LastInvocation() *Invocation {
	return vm.trace.roots[len(vm.trace.roots)-1]
}

// invocationTrace builds the tree of invocations as calls start and end.
type invocationTrace struct {
	roots []*Invocation
	stack []*Invocation
}

func (t *invocationTrace) start(msg *InternalMessage) {
	inv := &Invocation{Msg: msg}
	if n := len(t.stack); n > 0 {
		t.stack[n-1].SubInvocations = append(t.stack[n-1].SubInvocations, inv)
	} else {
		t.roots = append(t.roots, inv)
	}
	t.stack = append(t.stack, inv)
}

func (t *invocationTrace) end(code exitcode.ExitCode, ret cbor.Marshaler) {
	n := len(t.stack) - 1
	t.stack[n].Exitcode = code
	t.stack[n].Ret = ret
	t.stack = t.stack[:n]
}

//
// logging and aborts
//

// Log records an actor log line and mirrors it to the "vm" logger.
func (vm *VM) Log(level rt.LogLevel, msg string, args ...interface{}) {
	line := fmt.Sprintf(msg, args...)
	vm.logs = append(vm.logs, line)
	switch level {
	case rt.DEBUG:
		log.Debug(line)
	case rt.INFO:
		log.Info(line)
	case rt.WARN:
		log.Warn(line)
	default:
		log.Error(line)
	}
}

func (vm *VM) GetLogs() []string {
	return vm.logs
}

func (vm *VM) ClearLogs() {
	vm.logs = nil
}

type abort struct {
	code exitcode.ExitCode
	msg  string
}

func (a abort) String() string {
	return fmt.Sprintf("abort(%v): %s", a.code, a.msg)
}

func (vm *VM) Abortf(errExitCode exitcode.ExitCode, msg string, args ...interface{}) {
	panic(abort{errExitCode, fmt.Sprintf(msg, args...)})
}
