package mock

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"testing"

	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/go-state-types/cbor"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/filecoin-project/go-state-types/rt"
	cid "github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"

	"github.com/worlddbs/power-actor/actors/runtime"
	"github.com/worlddbs/power-actor/actors/runtime/proof"
	"github.com/worlddbs/power-actor/actors/util/adt"
	"github.com/worlddbs/power-actor/support/ipld"
)

// Runtime runs a single actor's methods against scripted collaborators.
// Tests set the message context directly, declare the sends, syscalls and caller checks they expect
// with the Expect* methods, and call Verify after each method call.
type Runtime struct {
	t   testing.TB
	ctx context.Context

	// message context
	epoch         abi.ChainEpoch
	receiver      addr.Address
	caller        addr.Address
	callerType    cid.Cid
	valueReceived abi.TokenAmount
	balance       abi.TokenAmount
	idAddresses   map[addr.Address]addr.Address
	actorCodeCIDs map[addr.Address]cid.Cid
	newActorAddr  addr.Address
	hashfunc      func(data []byte) [32]byte

	// actor state and blocks
	state  cid.Cid
	blocks map[cid.Cid][]byte

	inCall        bool
	inTransaction bool
	// State objects handed to the actor in this call, with the CID they had when handed out.
	stateUsedObjs map[cbor.Marshaler]cid.Cid

	expect     expectations
	logs       []string
	gasCharged int64
}

var _ runtime.Runtime = (*Runtime)(nil)

type abort struct {
	code exitcode.ExitCode
	msg  string
}

func (a abort) String() string {
	return fmt.Sprintf("abort(%v): %s", a.code, a.msg)
}

//
// message
//

func (rt *Runtime) Caller() addr.Address            { return rt.caller }
func (rt *Runtime) Receiver() addr.Address          { return rt.receiver }
func (rt *Runtime) ValueReceived() abi.TokenAmount { return rt.valueReceived }

func (rt *Runtime) CurrEpoch() abi.ChainEpoch {
	rt.requireInCall()
	return rt.epoch
}

// Context is usable outside a call so the runtime can double as a store in tests.
func (rt *Runtime) Context() context.Context {
	return rt.ctx
}

//
// caller validation
//

func (rt *Runtime) ValidateImmediateCallerAcceptAny() {
	rt.requireInCall()
	if !rt.expect.validateCallerAny {
		rt.failTest("actor validated any caller without an expectation")
	}
	rt.expect.validateCallerAny = false
}

func (rt *Runtime) ValidateImmediateCallerIs(addrs ...addr.Address) {
	rt.requireInCall()
	rt.checkArgument(len(addrs) > 0, "no caller addresses to validate against")
	expected := rt.expect.validateCallerAddr
	rt.expect.validateCallerAddr = nil
	if !reflect.DeepEqual(expected, addrs) {
		rt.failTest("unexpected validate caller addrs %v, expected %+v", addrs, expected)
		return
	}
	for _, a := range addrs {
		if rt.caller == a {
			return
		}
	}
	rt.Abortf(exitcode.ErrForbidden, "caller address %v forbidden, allowed: %v", rt.caller, addrs)
}

func (rt *Runtime) ValidateImmediateCallerType(types ...cid.Cid) {
	rt.requireInCall()
	rt.checkArgument(len(types) > 0, "no caller types to validate against")
	expected := rt.expect.validateCallerType
	rt.expect.validateCallerType = nil
	if !reflect.DeepEqual(expected, types) {
		rt.failTest("unexpected validate caller code %v, expected %+v", types, expected)
	}
	for _, code := range types {
		if rt.callerType.Equals(code) {
			return
		}
	}
	rt.Abortf(exitcode.ErrForbidden, "caller type %v forbidden, allowed: %v", rt.callerType, types)
}

//
// addresses and actors
//

func (rt *Runtime) ResolveAddress(address addr.Address) (addr.Address, bool) {
	rt.requireInCall()
	if address.Protocol() == addr.ID {
		return address, true
	}
	id, known := rt.idAddresses[address]
	return id, known
}

func (rt *Runtime) GetActorCodeCID(a addr.Address) (cid.Cid, bool) {
	rt.requireInCall()
	code, ok := rt.actorCodeCIDs[a]
	return code, ok
}

func (rt *Runtime) NewActorAddress() addr.Address {
	rt.requireInCall()
	if rt.newActorAddr == addr.Undef {
		rt.failTestNow("actor requested a new address but none was set with SetNewActorAddress")
	}
	a := rt.newActorAddr
	rt.newActorAddr = addr.Undef
	return a
}

func (rt *Runtime) CreateActor(codeID cid.Cid, address addr.Address) {
	rt.requireInCall()
	if rt.inTransaction {
		rt.Abortf(exitcode.SysErrorIllegalActor, "actor attempted a side effect inside a state transaction")
	}
	exp := rt.expect.createActor
	if exp == nil {
		rt.failTestNow("unexpected call to create actor %s at %s", codeID, address)
		return
	}
	rt.expect.createActor = nil
	if !exp.codeID.Equals(codeID) || exp.address != address {
		rt.failTest("created actor %s at %s, expected %s at %s",
			codeID, address, exp.codeID, exp.address)
	}
}

//
// sends and aborts
//

func (rt *Runtime) Send(toAddr addr.Address, methodNum abi.MethodNum, params cbor.Marshaler, value abi.TokenAmount, out cbor.Er) exitcode.ExitCode {
	rt.requireInCall()
	if rt.inTransaction {
		rt.Abortf(exitcode.SysErrorIllegalActor, "actor attempted a side effect inside a state transaction")
	}
	if len(rt.expect.sends) == 0 {
		rt.failTestNow("no send expected, actor sent method %d to %v with value %v and params %v", methodNum, toAddr, value, params)
	}
	exp := rt.expect.sends[0]
	if !exp.matches(toAddr, methodNum, params, value) {
		rt.failTestNow("send mismatch\n"+
			"  sent:     %s (%s) method %d (%s) value %v params %v\n"+
			"  expected: %s (%s) method %d (%s) value %v params %v",
			toAddr, rt.actorName(toAddr), methodNum, rt.methodName(toAddr, methodNum), value, params,
			exp.to, rt.actorName(exp.to), exp.method, rt.methodName(exp.to, exp.method), exp.value, exp.params)
	}
	if value.GreaterThan(rt.balance) {
		rt.Abortf(exitcode.SysErrSenderStateInvalid, "send of %v exceeds balance %v", value, rt.balance)
	}
	rt.expect.sends = rt.expect.sends[1:]
	rt.balance = big.Sub(rt.balance, value)

	var buf bytes.Buffer
	if err := exp.reply.MarshalCBOR(&buf); err != nil {
		rt.failTestNow("failed to encode scripted send return: %v", err)
	}
	if err := out.UnmarshalCBOR(&buf); err != nil {
		rt.failTestNow("failed to decode scripted send return into %T: %v", out, err)
	}
	return exp.exitCode
}

func (rt *Runtime) Abortf(errExitCode exitcode.ExitCode, msg string, args ...interface{}) {
	rt.requireInCall()
	formatted := fmt.Sprintf(msg, args...)
	rt.t.Logf("Mock Runtime Abort ExitCode: %v Reason: %s", errExitCode, formatted)
	panic(abort{errExitCode, formatted})
}

func (rt *Runtime) checkArgument(predicate bool, msg string, args ...interface{}) {
	if !predicate {
		rt.Abortf(exitcode.SysErrorIllegalArgument, msg, args...)
	}
}

//
// syscalls
//

func (rt *Runtime) HashBlake2b(data []byte) [32]byte {
	return rt.hashfunc(data)
}

func (rt *Runtime) BatchVerifySeals(vis map[addr.Address][]proof.SealVerifyInfo) (map[addr.Address][]bool, error) {
	exp := rt.expect.batchVerifySeals
	if exp == nil {
		rt.failTestNow("no seal batch verification expected, got %v", vis)
		return nil, nil
	}
	rt.expect.batchVerifySeals = nil
	exp.check(rt, vis)
	return exp.out, exp.err
}

func (rt *Runtime) ChargeGas(_ string, gas, _ int64) {
	rt.gasCharged += gas
}

func (rt *Runtime) Log(_ rt.LogLevel, msg string, args ...interface{}) {
	rt.logs = append(rt.logs, fmt.Sprintf(msg, args...))
}

//
// store
//

// blockData returns a block's bytes, reading identity CIDs inline.
func (rt *Runtime) blockData(c cid.Cid) ([]byte, bool) {
	prefix := c.Prefix()
	if prefix.Codec != cid.DagCBOR {
		rt.Abortf(exitcode.ErrSerialization, "block %s is not dag-cbor", c)
	}
	if prefix.MhType == mh.IDENTITY {
		decoded, err := mh.Decode(c.Hash())
		if err != nil {
			rt.Abortf(exitcode.ErrSerialization, "malformed identity cid %s: %s", c, err)
		}
		return decoded.Digest, true
	}
	data, found := rt.blocks[c]
	return data, found
}

// StoreGet may be called outside a method so tests can read collections through AdtStore.
func (rt *Runtime) StoreGet(c cid.Cid, o cbor.Unmarshaler) bool {
	data, found := rt.blockData(c)
	if !found {
		return false
	}
	if err := o.UnmarshalCBOR(bytes.NewReader(data)); err != nil {
		rt.Abortf(exitcode.ErrSerialization, err.Error())
	}
	return true
}

func (rt *Runtime) StorePut(o cbor.Marshaler) cid.Cid {
	key, data, err := ipld.MarshalCBOR(o)
	if err != nil {
		rt.Abortf(exitcode.ErrSerialization, err.Error())
	}
	if key.Prefix().MhType != mh.IDENTITY {
		rt.blocks[key] = data
	}
	return key
}

//
// state handle
//

func (rt *Runtime) StateCreate(obj cbor.Marshaler) {
	if rt.state.Defined() {
		rt.Abortf(exitcode.SysErrorIllegalActor, "actor state already created at %v", rt.state)
	}
	rt.state = rt.StorePut(obj)
	rt.stateUsedObjs[obj] = rt.state
}

func (rt *Runtime) StateReadonly(st cbor.Unmarshaler) {
	if !rt.StoreGet(rt.state, st) {
		rt.Abortf(exitcode.SysErrorIllegalActor, "no actor state at %v", rt.state)
	}
	rt.stateUsedObjs[st.(cbor.Marshaler)] = rt.state
}

func (rt *Runtime) StateTransaction(st cbor.Er, f func()) {
	if rt.inTransaction {
		rt.Abortf(exitcode.SysErrorIllegalActor, "nested transaction")
	}
	rt.checkStateObjectsUnmodified()
	rt.StateReadonly(st)

	rt.inTransaction = true
	f()
	rt.inTransaction = false

	rt.state = rt.StorePut(st)
	rt.stateUsedObjs[st] = rt.state
}

// checkStateObjectsUnmodified aborts if any state object handed out was changed outside a transaction.
func (rt *Runtime) checkStateObjectsUnmodified() {
	for obj, expected := range rt.stateUsedObjs { // nolint:nomaprange
		actual, _, err := ipld.MarshalCBOR(obj)
		if err != nil {
			rt.Abortf(exitcode.SysErrorIllegalActor, "failed to re-encode state object: %v", err)
		}
		if actual != expected {
			rt.Abortf(exitcode.SysErrorIllegalActor, "state object %T changed outside a transaction", obj)
		}
	}
}

//
// invoking methods
//

// Call invokes an exported actor method with the runtime's current context. Aborts are not recovered
// here: wrap the call in ExpectAbort when one is expected.
func (rt *Runtime) Call(method interface{}, params interface{}) interface{} {
	meth := reflect.ValueOf(method)
	if problem := methodTypeProblem(meth.Type()); problem != "" {
		rt.failTestNow("cannot call %v: %s", meth.Type(), problem)
	}

	rt.inCall = true
	rt.stateUsedObjs = map[cbor.Marshaler]cid.Cid{}
	defer func() {
		rt.inCall = false
		rt.stateUsedObjs = nil
	}()

	arg := reflect.ValueOf(params)
	if params == nil {
		arg = reflect.ValueOf(abi.Empty)
	}
	ret := meth.Call([]reflect.Value{reflect.ValueOf(rt), arg})
	rt.checkStateObjectsUnmodified()
	return ret[0].Interface()
}

//
// inspection
//

// AdtStore exposes the runtime's blocks as a collection store.
func (rt *Runtime) AdtStore() adt.Store {
	return adt.AsStore(rt)
}

func (rt *Runtime) StateRoot() cid.Cid {
	return rt.state
}

// GetState decodes the actor's current state into o.
func (rt *Runtime) GetState(o cbor.Unmarshaler) {
	data, found := rt.blockData(rt.state)
	if !found {
		rt.failTestNow("can't find state at root %v", rt.state)
	}
	if err := o.UnmarshalCBOR(bytes.NewReader(data)); err != nil {
		rt.failTestNow("failed to decode state at %v: %v", rt.state, err)
	}
}

func (rt *Runtime) Epoch() abi.ChainEpoch {
	return rt.epoch
}

func (rt *Runtime) Logs() []string {
	return rt.logs
}

//
// context setters
//

func (rt *Runtime) SetCaller(address addr.Address, actorType cid.Cid) {
	rt.caller = address
	rt.callerType = actorType
	rt.actorCodeCIDs[address] = actorType
}

func (rt *Runtime) SetAddressActorType(address addr.Address, actorType cid.Cid) {
	rt.actorCodeCIDs[address] = actorType
}

func (rt *Runtime) SetBalance(amt abi.TokenAmount) {
	rt.balance = amt
}

func (rt *Runtime) SetReceived(amt abi.TokenAmount) {
	rt.valueReceived = amt
}

func (rt *Runtime) SetEpoch(epoch abi.ChainEpoch) {
	rt.epoch = epoch
}

func (rt *Runtime) ReplaceState(o cbor.Marshaler) {
	rt.state = rt.StorePut(o)
}

func (rt *Runtime) AddIDAddress(src addr.Address, target addr.Address) {
	rt.require(target.Protocol() == addr.ID, "%v is not an ID address", target)
	rt.idAddresses[src] = target
}

func (rt *Runtime) SetNewActorAddress(actAddr addr.Address) {
	rt.require(actAddr.Protocol() == addr.Actor, "new actor address %v must use the actor protocol", actAddr)
	rt.newActorAddr = actAddr
}
