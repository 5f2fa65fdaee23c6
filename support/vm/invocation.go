package vm

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"reflect"
	"runtime/debug"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/go-state-types/cbor"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/filecoin-project/go-state-types/rt"
	"github.com/ipfs/go-cid"
	"github.com/pkg/errors"

	"github.com/worlddbs/power-actor/actors/builtin"
	"github.com/worlddbs/power-actor/actors/runtime"
	"github.com/worlddbs/power-actor/actors/states"
	"github.com/worlddbs/power-actor/support/ipld"
)

// invocationContext is the runtime seen by one actor method call. Sends between actors get a
// context of their own sharing the top-level context.
type invocationContext struct {
	InternalMessage

	vm        *VM
	topLevel  *topLevelContext
	fromActor *states.Actor
	toActor   *states.Actor // loaded by invoke

	inTransaction   bool
	callerValidated bool
	// State objects handed to the actor, with the CID they had when handed out.
	stateUsedObjs map[cbor.Marshaler]cid.Cid
	stats         *CallStats
}

// topLevelContext is shared by every call made while applying one top-level message.
type topLevelContext struct {
	originatorStableAddress address.Address
	originatorCallSeq       uint64
	newActorAddressCount    uint64
	statsSource             StatsSource
}

func newInvocationContext(vm *VM, topLevel *topLevelContext, msg InternalMessage, fromActor *states.Actor) *invocationContext {
	return &invocationContext{
		InternalMessage: msg,
		vm:              vm,
		topLevel:        topLevel,
		fromActor:       fromActor,
		stateUsedObjs:   map[cbor.Marshaler]cid.Cid{},
		stats:           NewCallStats(topLevel.statsSource),
	}
}

type returnWrapper struct {
	inner cbor.Marshaler
}

func (r returnWrapper) Into(o cbor.Unmarshaler) error {
	if r.inner == nil {
		return fmt.Errorf("failed to unmarshal nil return (did you mean abi.Empty?)")
	}
	var buf bytes.Buffer
	if err := r.inner.MarshalCBOR(&buf); err != nil {
		return err
	}
	return o.UnmarshalCBOR(&buf)
}

// invoke runs the message to completion. An abort anywhere inside rolls back every state change
// made by this call and the calls it made, and becomes the returned exit code.
func (ic *invocationContext) invoke() (ret returnWrapper, code exitcode.ExitCode) {
	priorRoot, err := ic.vm.checkpoint()
	if err != nil {
		panic(err)
	}
	ic.vm.trace.start(&ic.InternalMessage)

	defer func() {
		ic.stats.Capture()
		r := recover()
		if r == nil {
			return
		}
		a, ok := r.(abort)
		if !ok {
			debug.PrintStack()
			panic(r)
		}
		if err := ic.vm.rollback(priorRoot); err != nil {
			panic(err)
		}
		ic.vm.Log(rt.WARN, "abort during actor execution: %s, sender %v receiver %v method %d value %v",
			a.msg, ic.from, ic.to, ic.method, ic.value)
		ic.vm.trace.end(a.code, abi.Empty)
		ret, code = returnWrapper{abi.Empty}, a.code
	}()

	if ic.from.Protocol() != address.ID {
		panic("sender address must be an ID address at invocation time")
	}
	ic.toActor, ic.to = ic.resolveTarget(ic.to)
	ic.transferValue()

	if ic.method == builtin.MethodSend {
		ic.vm.trace.end(exitcode.Ok, abi.Empty)
		return returnWrapper{abi.Empty}, exitcode.Ok
	}

	out := ic.dispatch(ic.vm.getActorImpl(ic.toActor.Code))
	ic.checkStateObjectsUnmodified()
	ic.vm.trace.end(exitcode.Ok, out)
	return returnWrapper{out}, exitcode.Ok
}

func (ic *invocationContext) transferValue() {
	if ic.value.NilOrZero() {
		return
	}
	if ic.value.LessThan(big.Zero()) {
		ic.Abortf(exitcode.SysErrForbidden, "attempt to transfer negative value %s from %s to %s", ic.value, ic.from, ic.to)
	}
	if ic.fromActor.Balance.LessThan(ic.value) {
		ic.Abortf(exitcode.SysErrInsufficientFunds, "sender %s insufficient balance %s to transfer %s to %s",
			ic.from, ic.fromActor.Balance, ic.value, ic.to)
	}
	ic.toActor, ic.fromActor = ic.vm.transfer(ic.from, ic.to, ic.value)
}

// dispatch calls the exported method the message names, decoding raw parameters if needed.
func (ic *invocationContext) dispatch(actor runtime.VMActor) cbor.Marshaler {
	exports := actor.Exports()
	if int(ic.method) >= len(exports) || exports[ic.method] == nil {
		ic.Abortf(exitcode.SysErrInvalidMethod, "method %d undefined for actor %s", ic.method, builtin.ActorNameByCode(actor.Code()))
	}
	method := reflect.ValueOf(exports[ic.method])
	paramType := method.Type().In(1)

	var arg reflect.Value
	switch p := ic.params.(type) {
	case nil:
		arg = reflect.Zero(paramType)
	case []byte:
		arg = ic.decodeParams(paramType, p)
	case builtin.CBORBytes:
		arg = ic.decodeParams(paramType, p)
	default:
		arg = reflect.ValueOf(p)
	}

	out := method.Call([]reflect.Value{reflect.ValueOf(ic), arg})
	if len(out) == 0 {
		return abi.Empty
	}
	switch out[0].Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		if out[0].IsNil() {
			return abi.Empty
		}
	}
	ret, ok := out[0].Interface().(cbor.Marshaler)
	if !ok {
		ic.Abortf(exitcode.SysErrorIllegalActor, "method %d returned a value that cannot be serialized", ic.method)
	}
	return ret
}

func (ic *invocationContext) decodeParams(paramType reflect.Type, raw []byte) reflect.Value {
	if paramType.Kind() != reflect.Ptr {
		ic.Abortf(exitcode.SysErrInvalidMethod, "method parameter %v is not a pointer", paramType)
	}
	v := reflect.New(paramType.Elem())
	u, ok := v.Interface().(cbor.Unmarshaler)
	if !ok {
		ic.Abortf(exitcode.SysErrInvalidMethod, "method parameter %v cannot be decoded", paramType)
	}
	if err := u.UnmarshalCBOR(bytes.NewReader(raw)); err != nil {
		ic.Abortf(exitcode.ErrSerialization, "failed to decode parameters: %v", err)
	}
	return v
}

// resolveTarget loads the receiving actor, creating an account actor if the target is an
// unknown key address.
func (ic *invocationContext) resolveTarget(target address.Address) (*states.Actor, address.Address) {
	id, found := ic.vm.NormalizeAddress(target)
	if !found {
		return ic.createAccount(target)
	}
	act, found, err := ic.vm.GetActor(id)
	if err != nil {
		panic(err)
	}
	if !found {
		ic.Abortf(exitcode.SysErrInvalidReceiver, "actor at address %s registered but not found", id)
	}
	return act, id
}

func (ic *invocationContext) createAccount(target address.Address) (*states.Actor, address.Address) {
	if target.Protocol() != address.SECP256K1 && target.Protocol() != address.BLS {
		ic.Abortf(exitcode.SysErrInvalidReceiver, "cannot create account for address type %d", target.Protocol())
	}

	initActor := ic.vm.mustGetActor(builtin.InitActorAddr)
	st := ic.vm.initState()
	id, err := st.MapAddressToNewID(ic.vm.store, target)
	if err != nil {
		panic(err)
	}
	if initActor.Head, err = ic.vm.store.Put(ic.vm.ctx, st); err != nil {
		panic(err)
	}
	if err := ic.vm.setActor(builtin.InitActorAddr, initActor); err != nil {
		panic(err)
	}

	ic.CreateActor(builtin.AccountActorCodeID, id)
	ctor := newInvocationContext(ic.vm, ic.topLevel, InternalMessage{
		from:   builtin.SystemActorAddr,
		to:     id,
		value:  big.Zero(),
		method: builtin.MethodsAccount.Constructor,
		params: &target,
	}, nil)
	_, code := ctor.invoke()
	ic.stats.MergeSubStat(builtin.AccountActorCodeID, builtin.MethodsAccount.Constructor, ctor.stats)
	if code.IsError() {
		ic.Abortf(code, "failed to construct account actor for %s", target)
	}
	return ic.vm.mustGetActor(id), id
}

//
// state handle
//

var _ runtime.StateHandle = (*invocationContext)(nil)

func (ic *invocationContext) loadState(obj cbor.Unmarshaler) cid.Cid {
	// Reload the actor every time: a nested call may have changed its head.
	head := ic.vm.mustGetActor(ic.to).Head
	if !head.Defined() {
		ic.Abortf(exitcode.SysErrorIllegalActor, "failed to load undefined state, must construct first")
	}
	if err := ic.vm.store.Get(ic.vm.ctx, head, obj); err != nil {
		panic(errors.Wrapf(err, "failed to load state for actor %s, CID %s", ic.to, head))
	}
	return head
}

func (ic *invocationContext) saveState(obj cbor.Marshaler) cid.Cid {
	head, err := ic.vm.store.Put(ic.vm.ctx, obj)
	if err != nil {
		ic.Abortf(exitcode.ErrIllegalState, "could not save new state: %v", err)
	}
	act := ic.vm.mustGetActor(ic.to)
	act.Head = head
	if err := ic.vm.setActor(ic.to, act); err != nil {
		panic(err)
	}
	ic.stateUsedObjs[obj] = head
	return head
}

func (ic *invocationContext) StateCreate(obj cbor.Marshaler) {
	head := ic.vm.mustGetActor(ic.to).Head
	if head.Defined() && !head.Equals(ic.vm.emptyObject) {
		ic.Abortf(exitcode.SysErrorIllegalActor, "failed to construct actor state: already initialized")
	}
	ic.saveState(obj)
}

func (ic *invocationContext) StateReadonly(obj cbor.Unmarshaler) {
	head := ic.loadState(obj)
	ic.stateUsedObjs[obj.(cbor.Marshaler)] = head
}

func (ic *invocationContext) StateTransaction(obj cbor.Er, f func()) {
	if obj == nil {
		ic.Abortf(exitcode.SysErrorIllegalActor, "must not pass nil to StateTransaction")
	}
	if ic.inTransaction {
		ic.Abortf(exitcode.SysErrorIllegalActor, "nested transaction")
	}
	ic.checkStateObjectsUnmodified()
	ic.loadState(obj)

	ic.inTransaction = true
	f()
	ic.inTransaction = false

	ic.saveState(obj)
}

// checkStateObjectsUnmodified aborts if any state object handed out was changed outside a transaction.
func (ic *invocationContext) checkStateObjectsUnmodified() {
	for obj, expected := range ic.stateUsedObjs { // nolint:nomaprange
		actual, _, err := ipld.MarshalCBOR(obj)
		if err != nil {
			ic.Abortf(exitcode.SysErrorIllegalActor, "error marshalling state object for validation: %v", err)
		}
		if actual != expected {
			ic.Abortf(exitcode.SysErrorIllegalActor, "State mutated outside of transaction scope")
		}
	}
}

//
// runtime
//

var _ runtime.Runtime = (*invocationContext)(nil)

func (ic *invocationContext) StoreGet(c cid.Cid, o cbor.Unmarshaler) bool {
	// Any error counts as absent.
	return ic.vm.store.Get(ic.vm.ctx, c, o) == nil
}

func (ic *invocationContext) StorePut(x cbor.Marshaler) cid.Cid {
	c, err := ic.vm.store.Put(ic.vm.ctx, x)
	if err != nil {
		ic.Abortf(exitcode.ErrIllegalState, "could not put object in store: %v", err)
	}
	return c
}

func (ic *invocationContext) CurrEpoch() abi.ChainEpoch {
	return ic.vm.currentEpoch
}

func (ic *invocationContext) validateOnce() {
	if ic.callerValidated {
		panic(fmt.Errorf("caller validated twice in method %d of %s", ic.method, ic.to))
	}
	ic.callerValidated = true
}

func (ic *invocationContext) ValidateImmediateCallerAcceptAny() {
	ic.validateOnce()
}

func (ic *invocationContext) ValidateImmediateCallerIs(addrs ...address.Address) {
	ic.validateOnce()
	for _, a := range addrs {
		if ic.from == a {
			return
		}
	}
	ic.Abortf(exitcode.ErrForbidden, "caller address %v forbidden, allowed: %v", ic.from, addrs)
}

func (ic *invocationContext) ValidateImmediateCallerType(types ...cid.Cid) {
	ic.validateOnce()
	for _, t := range types {
		if t.Equals(ic.fromActor.Code) {
			return
		}
	}
	ic.Abortf(exitcode.ErrForbidden, "caller type %v forbidden, allowed: %v", ic.fromActor.Code, types)
}

func (ic *invocationContext) ResolveAddress(a address.Address) (address.Address, bool) {
	return ic.vm.NormalizeAddress(a)
}

func (ic *invocationContext) GetActorCodeCID(a address.Address) (cid.Cid, bool) {
	act, found, err := ic.vm.GetActor(a)
	if err != nil {
		panic(err)
	}
	if !found {
		return cid.Undef, false
	}
	return act.Code, true
}

func (ic *invocationContext) Send(toAddr address.Address, methodNum abi.MethodNum, params cbor.Marshaler, value abi.TokenAmount, out cbor.Er) exitcode.ExitCode {
	if ic.inTransaction {
		ic.Abortf(exitcode.SysErrorIllegalActor, "side effect inside a state transaction")
	}
	msg := InternalMessage{from: ic.to, to: toAddr, value: value, method: methodNum, params: params}
	callee := newInvocationContext(ic.vm, ic.topLevel, msg, ic.vm.mustGetActor(ic.to))
	ret, code := callee.invoke()

	if callee.toActor != nil {
		ic.stats.MergeSubStat(callee.toActor.Code, methodNum, callee.stats)
	}
	if err := ret.Into(out); err != nil {
		ic.Abortf(exitcode.ErrSerialization, "failed to decode return value of method %d on %s: %v", methodNum, toAddr, err)
	}
	return code
}

func (ic *invocationContext) Abortf(errExitCode exitcode.ExitCode, msg string, args ...interface{}) {
	ic.vm.Abortf(errExitCode, msg, args...)
}

// NewActorAddress derives an address from the originating message and the number of addresses
// it has derived so far.
func (ic *invocationContext) NewActorAddress() address.Address {
	var seed bytes.Buffer
	origin, err := ic.topLevel.originatorStableAddress.Marshal()
	if err != nil {
		panic(err)
	}
	seed.Write(origin)
	for _, n := range []uint64{ic.topLevel.originatorCallSeq, ic.topLevel.newActorAddressCount} {
		if err := binary.Write(&seed, binary.BigEndian, n); err != nil {
			panic(err)
		}
	}
	ic.topLevel.newActorAddressCount++

	a, err := address.NewActorAddress(seed.Bytes())
	if err != nil {
		panic(err)
	}
	return a
}

func (ic *invocationContext) CreateActor(codeID cid.Cid, addr address.Address) {
	impl, ok := ic.vm.ActorImpls[codeID]
	if !ok {
		ic.Abortf(exitcode.SysErrorIllegalArgument, "no implementation for actor code %s", codeID)
	}
	if rt.IsSingletonActor(impl) {
		ic.Abortf(exitcode.SysErrorIllegalArgument, "cannot create another %s", builtin.ActorNameByCode(codeID))
	}
	if _, found, err := ic.vm.GetActor(addr); err != nil {
		panic(err)
	} else if found {
		ic.Abortf(exitcode.SysErrorIllegalArgument, "actor address %s already exists", addr)
	}

	ic.vm.Log(rt.DEBUG, "creating actor %s at %s", builtin.ActorNameByCode(codeID), addr)
	if err := ic.vm.setActor(addr, &states.Actor{
		Code:    codeID,
		Head:    ic.vm.emptyObject,
		Balance: big.Zero(),
	}); err != nil {
		panic(err)
	}
}

func (ic *invocationContext) Context() context.Context {
	return ic.vm.ctx
}

// ChargeGas is a no-op: the VM does not meter gas.
func (ic *invocationContext) ChargeGas(_ string, _ int64, _ int64) {}

func (ic *invocationContext) Log(level rt.LogLevel, msg string, args ...interface{}) {
	ic.vm.Log(level, msg, args...)
}
