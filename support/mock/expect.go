package mock

import (
	"bytes"
	"fmt"
	"reflect"
	goruntime "runtime"
	"runtime/debug"
	"strings"

	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/cbor"
	"github.com/filecoin-project/go-state-types/exitcode"
	cid "github.com/ipfs/go-cid"

	"github.com/worlddbs/power-actor/actors/builtin"
	"github.com/worlddbs/power-actor/actors/builtin/exported"
	"github.com/worlddbs/power-actor/actors/runtime/proof"
)

// expectations are the calls the next method invocation must make. Verify checks and clears them.
type expectations struct {
	validateCallerAny  bool
	validateCallerAddr []addr.Address
	validateCallerType []cid.Cid
	sends              []*expectedMessage
	createActor        *expectCreateActor
	batchVerifySeals   *expectBatchVerifySeals
}

// expectedMessage is a scripted send and the reply the actor gets for it.
type expectedMessage struct {
	to     addr.Address
	method abi.MethodNum
	value  abi.TokenAmount
	params cbor.Marshaler

	reply    cbor.Er
	exitCode exitcode.ExitCode
}

// matches compares encodings so that nil and empty parameters are interchangeable.
func (m *expectedMessage) matches(to addr.Address, method abi.MethodNum, params cbor.Marshaler, value abi.TokenAmount) bool {
	return m.to == to && m.method == method && m.value.Equals(value) &&
		bytes.Equal(encode(m.params), encode(params))
}

func (m *expectedMessage) String() string {
	return fmt.Sprintf("{%v method %d value %v params %v -> %v exit %v}",
		m.to, m.method, m.value, m.params, m.reply, m.exitCode)
}

func encode(o cbor.Marshaler) []byte {
	if o == nil {
		return nil
	}
	var buf bytes.Buffer
	_ = o.MarshalCBOR(&buf)
	return buf.Bytes()
}

type expectCreateActor struct {
	codeID  cid.Cid
	address addr.Address
}

type expectBatchVerifySeals struct {
	in  map[addr.Address][]proof.SealVerifyInfo
	out map[addr.Address][]bool
	err error
}

// check compares the batch the actor submitted with the expected one, miner by miner and in order.
func (e *expectBatchVerifySeals) check(rt *Runtime, vis map[addr.Address][]proof.SealVerifyInfo) {
	for miner := range vis { //nolint:nomaprange
		if _, ok := e.in[miner]; !ok {
			rt.failTest("seals of %v verified but not expected", miner)
		}
	}
	for miner, want := range e.in { //nolint:nomaprange
		got, ok := vis[miner]
		switch {
		case !ok:
			rt.failTest("seals of %v expected but not verified", miner)
		case len(got) != len(want):
			rt.failTest("%d seals of %v verified, expected %d\n got:  %v\n want: %v", len(got), miner, len(want), got, want)
		default:
			for i, w := range want {
				if got[i].SectorID != w.SectorID || got[i].SealedCID != w.SealedCID || got[i].UnsealedCID != w.UnsealedCID {
					rt.failTest("seal %d of %v differs\n got:  %+v\n want: %+v", i, miner, got[i], w)
				}
			}
		}
	}
}

func (rt *Runtime) ExpectValidateCallerAny() {
	rt.expect.validateCallerAny = true
}

func (rt *Runtime) ExpectValidateCallerAddr(addrs ...addr.Address) {
	rt.require(len(addrs) > 0, "expected caller set is empty")
	rt.expect.validateCallerAddr = addrs
}

func (rt *Runtime) ExpectValidateCallerType(types ...cid.Cid) {
	rt.require(len(types) > 0, "expected caller code set is empty")
	rt.expect.validateCallerType = types
}

// ExpectSend queues a send the actor must make and the result it receives. A nil ret means abi.Empty.
func (rt *Runtime) ExpectSend(toAddr addr.Address, methodNum abi.MethodNum, params cbor.Marshaler, value abi.TokenAmount, ret cbor.Er, exitCode exitcode.ExitCode) {
	m := &expectedMessage{to: toAddr, method: methodNum, value: value, params: params, reply: ret, exitCode: exitCode}
	if m.reply == nil {
		m.reply = abi.Empty
	}
	rt.expect.sends = append(rt.expect.sends, m)
}

func (rt *Runtime) ExpectCreateActor(codeID cid.Cid, address addr.Address) {
	rt.expect.createActor = &expectCreateActor{codeID: codeID, address: address}
}

func (rt *Runtime) ExpectBatchVerifySeals(in map[addr.Address][]proof.SealVerifyInfo, out map[addr.Address][]bool, err error) {
	rt.expect.batchVerifySeals = &expectBatchVerifySeals{in: in, out: out, err: err}
}

// Verify fails the test for any expectation the last call did not meet, then clears them all.
func (rt *Runtime) Verify() {
	rt.t.Helper()
	var unmet []string
	e := rt.expect
	if e.validateCallerAny {
		unmet = append(unmet, "ValidateImmediateCallerAcceptAny")
	}
	if len(e.validateCallerAddr) > 0 {
		unmet = append(unmet, fmt.Sprintf("ValidateImmediateCallerIs %v", e.validateCallerAddr))
	}
	if len(e.validateCallerType) > 0 {
		unmet = append(unmet, fmt.Sprintf("ValidateImmediateCallerType %v", e.validateCallerType))
	}
	for _, m := range e.sends {
		unmet = append(unmet, "Send "+m.String())
	}
	if e.createActor != nil {
		unmet = append(unmet, fmt.Sprintf("CreateActor %v at %v", e.createActor.codeID, e.createActor.address))
	}
	if e.batchVerifySeals != nil {
		unmet = append(unmet, fmt.Sprintf("BatchVerifySeals %v", e.batchVerifySeals.in))
	}
	if len(unmet) > 0 {
		rt.failTest("expected calls not made:\n  %s", strings.Join(unmet, "\n  "))
	}
	rt.Reset()
}

// Reset clears expectations without checking them.
func (rt *Runtime) Reset() {
	rt.expect = expectations{}
}

// ExpectAbort calls f expecting it to abort with the given exit code.
func (rt *Runtime) ExpectAbort(expected exitcode.ExitCode, f func()) {
	rt.t.Helper()
	rt.ExpectAbortContainsMessage(expected, "", f)
}

// ExpectAbortContainsMessage calls f expecting it to abort with the given exit code and a message
// containing substr. State changes made by f are discarded.
func (rt *Runtime) ExpectAbortContainsMessage(expected exitcode.ExitCode, substr string, f func()) {
	rt.t.Helper()
	a, aborted := rt.catchAbort(f)
	switch {
	case !aborted:
		rt.failTest("call succeeded, expected abort with %v", expected)
	case a.code != expected:
		rt.failTest("call aborted with %v (%s), expected %v", a.code, a.msg, expected)
	case !strings.Contains(a.msg, substr):
		rt.failTest("abort message %q does not contain %q", a.msg, substr)
	}
}

// catchAbort runs f, recovering an actor abort and rolling back the state it left behind.
// Panics other than aborts propagate.
func (rt *Runtime) catchAbort(f func()) (a abort, aborted bool) {
	before := rt.state
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if a, aborted = r.(abort); !aborted {
			panic(r)
		}
		rt.state = before
		rt.inTransaction = false
	}()
	f()
	return abort{}, false
}

func (rt *Runtime) ExpectLogsContain(substr string) {
	rt.t.Helper()
	for _, msg := range rt.logs {
		if strings.Contains(msg, substr) {
			return
		}
	}
	rt.failTest("none of %d log messages contains %q", len(rt.logs), substr)
}

// ExpectGasCharged checks the total gas charged explicitly through ChargeGas.
func (rt *Runtime) ExpectGasCharged(gas int64) {
	rt.t.Helper()
	if gas != rt.gasCharged {
		rt.failTest("charged %d gas, expected %d", rt.gasCharged, gas)
	}
}

func (rt *Runtime) requireInCall() {
	rt.t.Helper()
	rt.require(rt.inCall, "runtime used outside of a method call")
}

func (rt *Runtime) require(predicate bool, msg string, args ...interface{}) {
	rt.t.Helper()
	if !predicate {
		rt.failTestNow(msg, args...)
	}
}

func (rt *Runtime) failTest(msg string, args ...interface{}) {
	rt.t.Helper()
	rt.report(msg, args...)
	rt.t.Fail()
}

func (rt *Runtime) failTestNow(msg string, args ...interface{}) {
	rt.t.Helper()
	rt.report(msg, args...)
	rt.t.FailNow()
}

// report logs a failure with the stack, which points into the actor code that caused it.
func (rt *Runtime) report(msg string, args ...interface{}) {
	rt.t.Helper()
	rt.t.Logf(msg+"\n%s", append(args, debug.Stack())...)
}

func (rt *Runtime) actorName(a addr.Address) string {
	if code, ok := rt.actorCodeCIDs[a]; ok && builtin.IsBuiltinActor(code) {
		return builtin.ActorNameByCode(code)
	}
	return "unknown"
}

// methodName resolves a method number to the Go method implementing it on the target's actor.
func (rt *Runtime) methodName(a addr.Address, num abi.MethodNum) string {
	code, ok := rt.actorCodeCIDs[a]
	if !ok {
		return "unknown"
	}
	for _, actor := range exported.BuiltinActors() {
		if !actor.Code().Equals(code) {
			continue
		}
		exports := actor.Exports()
		if int(num) >= len(exports) || exports[num] == nil {
			return fmt.Sprintf("<no method %d>", num)
		}
		fn := goruntime.FuncForPC(reflect.ValueOf(exports[num]).Pointer()).Name()
		fn = strings.TrimSuffix(fn, "-fm")
		return fn[strings.LastIndexByte(fn, '.')+1:]
	}
	return "<not builtin>"
}
