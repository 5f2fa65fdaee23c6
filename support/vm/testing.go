package vm

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/go-state-types/cbor"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/ipfs/go-cid"
	ipldcbor "github.com/ipfs/go-ipld-cbor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worlddbs/power-actor/actors/builtin"
	"github.com/worlddbs/power-actor/actors/builtin/account"
	"github.com/worlddbs/power-actor/actors/builtin/cron"
	"github.com/worlddbs/power-actor/actors/builtin/exported"
	initactor "github.com/worlddbs/power-actor/actors/builtin/init"
	"github.com/worlddbs/power-actor/actors/builtin/power"
	"github.com/worlddbs/power-actor/actors/builtin/system"
	"github.com/worlddbs/power-actor/actors/runtime/proof"
	"github.com/worlddbs/power-actor/actors/states"
	"github.com/worlddbs/power-actor/actors/util/adt"
	actor_testing "github.com/worlddbs/power-actor/support/testing"
)

var FIL = big.NewInt(1e18)

//
// Genesis like setup
//

// ActorImpls returns the actor implementations installed in a fresh VM: the builtin actors, with the power
// actor using the given threshold policy, and the miner stub.
func ActorImpls(policy power.ThresholdPolicy) ActorImplLookup {
	lookup := ActorImplLookup{}
	for _, ba := range exported.BuiltinActors() {
		lookup[ba.Code()] = ba
	}
	lookup[builtin.StoragePowerActorCodeID] = power.Actor{Policy: policy}
	lookup[builtin.StorageMinerActorCodeID] = MinerStub{}
	return lookup
}

// Creates a new VM and initializes all singleton actors.
func NewVMWithSingletons(ctx context.Context, t testing.TB, bs ipldcbor.IpldBlockstore) *VM {
	return NewVMWithPolicy(ctx, t, bs, nil)
}

// Creates a new VM whose power actor applies the given threshold policy. A nil policy is the default.
func NewVMWithPolicy(ctx context.Context, t testing.TB, bs ipldcbor.IpldBlockstore, policy power.ThresholdPolicy) *VM {
	v, err := NewGenesisVM(ctx, bs, policy)
	require.NoError(t, err)
	return v
}

// NewGenesisVM installs the singleton actors in an empty state tree.
func NewGenesisVM(ctx context.Context, bs ipldcbor.IpldBlockstore, policy power.ThresholdPolicy) (*VM, error) {
	store := adt.WrapStore(ctx, ipldcbor.NewCborStore(bs))
	vm := NewVM(ctx, ActorImpls(policy), store)

	if err := vm.initializeActor(ctx, &system.State{}, builtin.SystemActorCodeID, builtin.SystemActorAddr, big.Zero()); err != nil {
		return nil, err
	}

	initState, err := initactor.ConstructState(vm.store, "scenarios")
	if err != nil {
		return nil, err
	}
	if err := vm.initializeActor(ctx, initState, builtin.InitActorCodeID, builtin.InitActorAddr, big.Zero()); err != nil {
		return nil, err
	}

	cronState := cron.ConstructState(cron.BuiltInEntries())
	if err := vm.initializeActor(ctx, cronState, builtin.CronActorCodeID, builtin.CronActorAddr, big.Zero()); err != nil {
		return nil, err
	}

	powerState, err := power.ConstructState(vm.store)
	if err != nil {
		return nil, err
	}
	if err := vm.initializeActor(ctx, powerState, builtin.StoragePowerActorCodeID, builtin.StoragePowerActorAddr, big.Zero()); err != nil {
		return nil, err
	}

	if _, err := vm.checkpoint(); err != nil {
		return nil, err
	}
	return vm, nil
}

// Creates n account actors in the VM with the given balance
func CreateAccounts(ctx context.Context, t testing.TB, vm *VM, n int, balance abi.TokenAmount, seed int64) []address.Address {
	pubAddrs := make([]address.Address, n)
	for i := range pubAddrs {
		pubAddrs[i] = actor_testing.NewBLSAddr(t, seed+int64(i))
		_, err := vm.CreateAccount(ctx, pubAddrs[i], balance)
		require.NoError(t, err)
	}
	return pubAddrs
}

// CreateAccount registers a key address with the init actor and installs a funded account actor for it.
func (vm *VM) CreateAccount(ctx context.Context, pubAddr address.Address, balance abi.TokenAmount) (address.Address, error) {
	var initState initactor.State
	if err := vm.GetState(builtin.InitActorAddr, &initState); err != nil {
		return address.Undef, err
	}
	idAddr, err := initState.MapAddressToNewID(vm.store, pubAddr)
	if err != nil {
		return address.Undef, err
	}
	if err := vm.SetActorState(ctx, builtin.InitActorAddr, &initState); err != nil {
		return address.Undef, err
	}
	st := &account.State{Address: pubAddr}
	if err := vm.initializeActor(ctx, st, builtin.AccountActorCodeID, idAddr, balance); err != nil {
		return address.Undef, err
	}
	if _, err := vm.checkpoint(); err != nil {
		return address.Undef, err
	}
	return idAddr, nil
}

//
// Invocation expectations
//

// ExpectInvocation describes an invocation a message is expected to have made, together with the
// invocations it made in turn. To and Method are always compared. The other fields are compared
// only when set; Exitcode is always compared and defaults to exitcode.Ok.
type ExpectInvocation struct {
	To     address.Address
	Method abi.MethodNum

	Exitcode       exitcode.ExitCode
	From           address.Address
	Value          *abi.TokenAmount
	Params         *objectExpectation
	Ret            *objectExpectation
	SubInvocations []ExpectInvocation
}

// Matches fails t at the first invocation, depth first, whose target differs from the expectation
// and reports mismatches in the remaining fields.
func (ei ExpectInvocation) Matches(t *testing.T, inv *Invocation) {
	t.Helper()
	ei.check(t, "", inv)
}

func (ei ExpectInvocation) check(t *testing.T, path string, inv *Invocation) {
	t.Helper()
	path = fmt.Sprintf("%s/%s:%d", path, inv.Msg.to, inv.Msg.method)

	// A different target means invocations were skipped or reordered; nothing below is comparable.
	if ei.To != inv.Msg.to || ei.Method != inv.Msg.method {
		require.FailNowf(t, "wrong invocation", "%s: expected %s:%d", path, ei.To, ei.Method)
	}
	if ei.From != address.Undef {
		assert.Equal(t, ei.From, inv.Msg.from, "%s: sender", path)
	}
	if ei.Value != nil {
		assert.Equal(t, *ei.Value, inv.Msg.value, "%s: value", path)
	}
	if ei.Params != nil {
		assert.True(t, ei.Params.matches(inv.Msg.params), "%s: params %v, expected %v", path, inv.Msg.params, ei.Params.val)
	}
	if ei.SubInvocations != nil {
		if len(ei.SubInvocations) != len(inv.SubInvocations) {
			require.FailNowf(t, "wrong number of sub-invocations", "%s: got %d, expected %d\ngot:\n%s\nexpected:\n%s",
				path, len(inv.SubInvocations), len(ei.SubInvocations),
				describeInvocations(inv.SubInvocations), describeExpectations(ei.SubInvocations))
		}
		for i, sub := range inv.SubInvocations {
			ei.SubInvocations[i].check(t, path, sub)
		}
	}
	assert.Equal(t, ei.Exitcode, inv.Exitcode, "%s: exit code", path)
	if ei.Ret != nil {
		assert.True(t, ei.Ret.matches(inv.Ret), "%s: return %v, expected %v", path, inv.Ret, ei.Ret.val)
	}
}

func describeExpectations(list []ExpectInvocation) string {
	var b strings.Builder
	for i, e := range list {
		fmt.Fprintf(&b, "  %d. %s:%d\n", i, e.To, e.Method)
	}
	return b.String()
}

func describeInvocations(list []*Invocation) string {
	var b strings.Builder
	for i, inv := range list {
		fmt.Fprintf(&b, "  %d. %s:%d\n", i, inv.Msg.to, inv.Msg.method)
	}
	return b.String()
}

func ExpectAttoFil(amount big.Int) *big.Int   { return &amount }
func ExpectBytes(b []byte) *objectExpectation { return ExpectObject(builtin.CBORBytes(b)) }

// ExpectObject expects a value with the same CBOR encoding as v. ExpectObject(nil) expects no value.
func ExpectObject(v cbor.Marshaler) *objectExpectation {
	return &objectExpectation{val: v}
}

type objectExpectation struct {
	val cbor.Marshaler
}

// Comparing encodings treats values that differ only in internal representation as equal.
func (oe objectExpectation) matches(obj interface{}) bool {
	m, ok := obj.(cbor.Marshaler)
	if oe.val == nil || obj == nil || !ok {
		return oe.val == nil && obj == nil
	}
	var want, got bytes.Buffer
	if err := oe.val.MarshalCBOR(&want); err != nil {
		return false
	}
	if err := m.MarshalCBOR(&got); err != nil {
		return false
	}
	return bytes.Equal(want.Bytes(), got.Bytes())
}

//
// Advancing time
//

// TickCron runs the cron actor at the VM's current epoch, as the system actor does at the end of every epoch.
func TickCron(t testing.TB, v *VM) {
	_, code := v.ApplyMessage(builtin.SystemActorAddr, builtin.CronActorAddr, big.Zero(), builtin.MethodsCron.EpochTick, nil)
	require.Equal(t, exitcode.Ok, code)
}

// AdvanceTillEpoch runs cron for every epoch from the VM's current epoch up to but excluding e,
// returning a VM at epoch e.
func AdvanceTillEpoch(t testing.TB, v *VM, e abi.ChainEpoch) *VM {
	var err error
	for v.GetEpoch() < e {
		TickCron(t, v)
		v, err = v.WithEpoch(v.GetEpoch() + 1)
		require.NoError(t, err)
	}
	return v
}

//
// Miners
//

// CreateMiner has the owner account create a miner with the given proof type.
func CreateMiner(t testing.TB, v *VM, owner, worker address.Address, sealProof abi.RegisteredSealProof, value abi.TokenAmount) *power.CreateMinerReturn {
	params := power.CreateMinerParams{
		Owner:         owner,
		Worker:        worker,
		SealProofType: sealProof,
		Peer:          abi.PeerID("peer"),
	}
	ret := ApplyOk(t, v, owner, builtin.StoragePowerActorAddr, value, builtin.MethodsPower.CreateMiner, &params)
	minerAddrs, ok := ret.(*power.CreateMinerReturn)
	require.True(t, ok)
	return minerAddrs
}

// ClaimPower has a miner's controller add power to the miner's claim.
func ClaimPower(t testing.TB, v *VM, controller, miner address.Address, raw, qa abi.StoragePower) {
	ApplyOk(t, v, controller, miner, big.Zero(), MethodsMinerStub.UpdateClaimedPower, &power.UpdateClaimedPowerParams{
		RawByteDelta:         raw,
		QualityAdjustedDelta: qa,
	})
}

// SubmitProof has a miner's controller submit a seal proof for a sector.
func SubmitProof(t testing.TB, v *VM, controller, miner address.Address, sealProof abi.RegisteredSealProof, number abi.SectorNumber) {
	ApplyOk(t, v, controller, miner, big.Zero(), MethodsMinerStub.SubmitProof, &proof.SealVerifyInfo{
		SealProof:   sealProof,
		SectorID:    abi.SectorID{Number: number},
		SealedCID:   actor_testing.MakeCID(fmt.Sprintf("sealed-%d", number), &actor_testing.SealedCIDPrefix),
		UnsealedCID: actor_testing.MakeCID(fmt.Sprintf("unsealed-%d", number), &actor_testing.UnsealedCIDPrefix),
	})
}

func GetMinerState(t testing.TB, v *VM, miner address.Address) *MinerStubState {
	var st MinerStubState
	require.NoError(t, v.GetState(miner, &st))
	return &st
}

//
// Reading actor state
//

func MinerPower(t testing.TB, vm *VM, minerIdAddr address.Address) (abi.StoragePower, abi.StoragePower) {
	claim := MinerClaim(t, vm, minerIdAddr)
	return claim.RawBytePower, claim.QualityAdjPower
}

func MinerClaim(t testing.TB, vm *VM, minerIdAddr address.Address) *power.Claim {
	var state power.State
	err := vm.GetState(builtin.StoragePowerActorAddr, &state)
	require.NoError(t, err)

	claim, found, err := state.GetClaim(vm.store, minerIdAddr)
	require.NoError(t, err)
	require.True(t, found)
	return claim
}

type NetworkStats struct {
	TotalRawBytePower         abi.StoragePower
	TotalBytesCommitted       abi.StoragePower
	TotalQualityAdjPower      abi.StoragePower
	TotalQABytesCommitted     abi.StoragePower
	TotalPledgeCollateral     abi.TokenAmount
	ThisEpochRawBytePower     abi.StoragePower
	ThisEpochQualityAdjPower  abi.StoragePower
	ThisEpochPledgeCollateral abi.TokenAmount
	MinerCount                int64
	MinerAboveMinPowerCount   int64
	BelowMinimum              bool
}

func GetNetworkStats(t testing.TB, vm *VM) NetworkStats {
	stats, err := vm.NetworkStats()
	require.NoError(t, err)
	return stats
}

// NetworkStats summarizes the power actor's totals.
func (vm *VM) NetworkStats() (NetworkStats, error) {
	var powerState power.State
	if err := vm.GetState(builtin.StoragePowerActorAddr, &powerState); err != nil {
		return NetworkStats{}, err
	}

	return NetworkStats{
		TotalRawBytePower:         powerState.TotalRawBytePower,
		TotalBytesCommitted:       powerState.TotalBytesCommitted,
		TotalQualityAdjPower:      powerState.TotalQualityAdjPower,
		TotalQABytesCommitted:     powerState.TotalQABytesCommitted,
		TotalPledgeCollateral:     powerState.TotalPledgeCollateral,
		ThisEpochRawBytePower:     powerState.ThisEpochRawBytePower,
		ThisEpochQualityAdjPower:  powerState.ThisEpochQualityAdjPower,
		ThisEpochPledgeCollateral: powerState.ThisEpochPledgeCollateral,
		MinerCount:                powerState.MinerCount,
		MinerAboveMinPowerCount:   powerState.MinerAboveMinPowerCount,
		BelowMinimum:              powerState.BelowMinimum(),
	}, nil
}

// CheckStateInvariants checks every actor's state and the cross-actor invariants of the whole tree.
func CheckStateInvariants(t testing.TB, v *VM, policy power.ThresholdPolicy) {
	msgs, err := v.CheckStateInvariants(policy)
	require.NoError(t, err)
	assert.True(t, msgs.IsEmpty(), strings.Join(msgs.Messages(), "\n"))
}

func (vm *VM) CheckStateInvariants(policy power.ThresholdPolicy) (*builtin.MessageAccumulator, error) {
	tree, err := vm.GetStateTree()
	if err != nil {
		return nil, err
	}
	return states.CheckStateInvariants(tree, vm.issued, policy)
}

func ApplyOk(t testing.TB, v *VM, from, to address.Address, value abi.TokenAmount, method abi.MethodNum, params interface{}) cbor.Marshaler {
	ret, code := v.ApplyMessage(from, to, value, method, params)
	require.Equal(t, exitcode.Ok, code, "message to %v method %d failed: %s", to, method, strings.Join(v.GetLogs(), "\n"))
	return ret
}

func (vm *VM) initializeActor(ctx context.Context, state cbor.Marshaler, code cid.Cid, a address.Address, balance abi.TokenAmount) error {
	stateCID, err := vm.store.Put(ctx, state)
	if err != nil {
		return err
	}
	actor := &states.Actor{
		Head:    stateCID,
		Code:    code,
		Balance: balance,
	}
	if err := vm.setActor(a, actor); err != nil {
		return err
	}
	vm.issued = big.Add(vm.issued, balance)
	return nil
}
