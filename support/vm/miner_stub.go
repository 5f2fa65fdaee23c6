package vm

import (
	"fmt"

	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-bitfield"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/go-state-types/cbor"
	"github.com/filecoin-project/go-state-types/exitcode"
	rtt "github.com/filecoin-project/go-state-types/rt"
	"github.com/ipfs/go-cid"

	"github.com/worlddbs/power-actor/actors/builtin"
	"github.com/worlddbs/power-actor/actors/builtin/power"
	"github.com/worlddbs/power-actor/actors/runtime"
	"github.com/worlddbs/power-actor/actors/runtime/proof"
	actor_testing "github.com/worlddbs/power-actor/support/testing"
)

// MinerStub is a scriptable stand-in for a storage miner. It answers the power actor's callbacks
// and forwards power, pledge, cron and proof requests from its owner or worker to the power actor.
// Each newly confirmed sector adds one sector's worth of raw and quality-adjusted power to its claim.
type MinerStub struct{}

var MethodsMinerStub = struct {
	Constructor              abi.MethodNum
	OnDeferredCronEvent      abi.MethodNum
	ConfirmSectorProofsValid abi.MethodNum
	UpdateClaimedPower       abi.MethodNum
	EnrollCronEvent          abi.MethodNum
	SubmitProof              abi.MethodNum
	UpdatePledge             abi.MethodNum
	ReportConsensusFault     abi.MethodNum
	Script                   abi.MethodNum
}{
	builtin.MethodConstructor,
	builtin.MethodsMiner.OnDeferredCronEvent,
	builtin.MethodsMiner.ConfirmSectorProofsValid,
	4, 5, 6, 7, 8, 9,
}

type MinerStubState struct {
	Owner         addr.Address
	Worker        addr.Address
	SealProofType abi.RegisteredSealProof
	ProvenSectors bitfield.BitField
	CronCalls     uint64
	// Payload of the most recent deferred cron callback.
	LastCronPayload []byte
	// When positive, every cron callback re-enrolls this many epochs later.
	CronInterval abi.ChainEpoch
	FailCron     bool
	FailConfirm  bool
	// When set, every cron callback also submits a proof for a fresh sector.
	ProveOnCron bool
}

// ScriptParams sets how the stub answers subsequent callbacks.
type ScriptParams struct {
	FailCron     bool
	FailConfirm  bool
	ProveOnCron  bool
	CronInterval abi.ChainEpoch
}

func (a MinerStub) Exports() []interface{} {
	return []interface{}{
		builtin.MethodConstructor: a.Constructor,
		2:                         a.OnDeferredCronEvent,
		3:                         a.ConfirmSectorProofsValid,
		4:                         a.UpdateClaimedPower,
		5:                         a.EnrollCronEvent,
		6:                         a.SubmitProof,
		7:                         a.UpdatePledge,
		8:                         a.ReportConsensusFault,
		9:                         a.Script,
	}
}

func (a MinerStub) Code() cid.Cid {
	return builtin.StorageMinerActorCodeID
}

func (a MinerStub) IsSingleton() bool {
	return false
}

func (a MinerStub) State() cbor.Er {
	return new(MinerStubState)
}

var _ runtime.VMActor = MinerStub{}

func (a MinerStub) Constructor(rt runtime.Runtime, params *power.MinerConstructorParams) *abi.EmptyValue {
	rt.ValidateImmediateCallerIs(builtin.InitActorAddr)

	owner := resolveControl(rt, params.OwnerAddr)
	worker := resolveControl(rt, params.WorkerAddr)
	rt.StateCreate(&MinerStubState{
		Owner:         owner,
		Worker:        worker,
		SealProofType: params.SealProofType,
		ProvenSectors: bitfield.New(),
	})
	return nil
}

func (a MinerStub) OnDeferredCronEvent(rt runtime.Runtime, payload *builtin.CBORBytes) *abi.EmptyValue {
	rt.ValidateImmediateCallerIs(builtin.StoragePowerActorAddr)

	var st MinerStubState
	rt.StateTransaction(&st, func() {
		if st.FailCron {
			rt.Abortf(exitcode.ErrIllegalState, "scripted cron failure")
		}
		st.CronCalls++
		st.LastCronPayload = *payload
	})

	if st.CronInterval > 0 {
		code := rt.Send(builtin.StoragePowerActorAddr, builtin.MethodsPower.EnrollCronEvent, &power.EnrollCronEventParams{
			EventEpoch: rt.CurrEpoch() + st.CronInterval,
			Payload:    *payload,
		}, big.Zero(), &builtin.Discard{})
		builtin.RequireSuccess(rt, code, "failed to re-enroll cron event")
	}
	if st.ProveOnCron {
		number := cronSectorBase + st.CronCalls
		code := rt.Send(builtin.StoragePowerActorAddr, builtin.MethodsPower.SubmitPoRepForBulkVerify, &proof.SealVerifyInfo{
			SealProof:   st.SealProofType,
			SectorID:    abi.SectorID{Miner: abi.ActorID(mustID(rt, rt.Receiver())), Number: abi.SectorNumber(number)},
			SealedCID:   actor_testing.MakeCID(fmt.Sprintf("sealed-%d", number), &actor_testing.SealedCIDPrefix),
			UnsealedCID: actor_testing.MakeCID(fmt.Sprintf("unsealed-%d", number), &actor_testing.UnsealedCIDPrefix),
		}, big.Zero(), &builtin.Discard{})
		builtin.RequireSuccess(rt, code, "failed to submit proof from cron")
	}
	return nil
}

// Sectors proven from cron callbacks are numbered from here so they never collide with scripted ones.
const cronSectorBase = 1 << 20

func (a MinerStub) ConfirmSectorProofsValid(rt runtime.Runtime, params *builtin.ConfirmSectorProofsParams) *abi.EmptyValue {
	rt.ValidateImmediateCallerIs(builtin.StoragePowerActorAddr)

	var newCount uint64
	var st MinerStubState
	rt.StateTransaction(&st, func() {
		if st.FailConfirm {
			rt.Abortf(exitcode.ErrIllegalState, "scripted confirmation failure")
		}
		numbers := make([]uint64, len(params.Sectors))
		for i, n := range params.Sectors {
			numbers[i] = uint64(n)
		}
		confirmed := bitfield.NewFromSet(numbers)
		fresh, err := bitfield.SubtractBitField(confirmed, st.ProvenSectors)
		builtin.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to diff proven sectors")
		newCount, err = fresh.Count()
		builtin.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to count proven sectors")

		st.ProvenSectors, err = bitfield.MergeBitFields(st.ProvenSectors, confirmed)
		builtin.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to merge proven sectors")
	})
	if newCount == 0 {
		return nil
	}

	sectorSize, err := st.SealProofType.SectorSize()
	builtin.RequireNoErr(rt, err, exitcode.ErrIllegalState, "failed to get sector size")
	delta := big.Mul(big.NewIntUnsigned(uint64(sectorSize)), big.NewIntUnsigned(newCount))
	rt.Log(rtt.DEBUG, "miner %s activating %d sectors", rt.Receiver(), newCount)

	code := rt.Send(builtin.StoragePowerActorAddr, builtin.MethodsPower.UpdateClaimedPower, &power.UpdateClaimedPowerParams{
		RawByteDelta:         delta,
		QualityAdjustedDelta: delta,
	}, big.Zero(), &builtin.Discard{})
	builtin.RequireSuccess(rt, code, "failed to claim power for proven sectors")
	return nil
}

func (a MinerStub) UpdateClaimedPower(rt runtime.Runtime, params *power.UpdateClaimedPowerParams) *abi.EmptyValue {
	a.validateControl(rt)
	code := rt.Send(builtin.StoragePowerActorAddr, builtin.MethodsPower.UpdateClaimedPower, params, big.Zero(), &builtin.Discard{})
	builtin.RequireSuccess(rt, code, "failed to update claimed power")
	return nil
}

func (a MinerStub) EnrollCronEvent(rt runtime.Runtime, params *power.EnrollCronEventParams) *abi.EmptyValue {
	a.validateControl(rt)
	code := rt.Send(builtin.StoragePowerActorAddr, builtin.MethodsPower.EnrollCronEvent, params, big.Zero(), &builtin.Discard{})
	builtin.RequireSuccess(rt, code, "failed to enroll cron event")
	return nil
}

func (a MinerStub) SubmitProof(rt runtime.Runtime, info *proof.SealVerifyInfo) *abi.EmptyValue {
	a.validateControl(rt)
	info.SectorID.Miner = abi.ActorID(mustID(rt, rt.Receiver()))
	code := rt.Send(builtin.StoragePowerActorAddr, builtin.MethodsPower.SubmitPoRepForBulkVerify, info, big.Zero(), &builtin.Discard{})
	builtin.RequireSuccess(rt, code, "failed to submit proof")
	return nil
}

func (a MinerStub) UpdatePledge(rt runtime.Runtime, delta *abi.TokenAmount) *abi.EmptyValue {
	a.validateControl(rt)
	code := rt.Send(builtin.StoragePowerActorAddr, builtin.MethodsPower.UpdatePledgeTotal, delta, big.Zero(), &builtin.Discard{})
	builtin.RequireSuccess(rt, code, "failed to update pledge")
	return nil
}

// ReportConsensusFault has the miner report itself, as a real miner does after a verified fault report.
func (a MinerStub) ReportConsensusFault(rt runtime.Runtime, pledge *abi.TokenAmount) *abi.EmptyValue {
	rt.ValidateImmediateCallerAcceptAny()
	code := rt.Send(builtin.StoragePowerActorAddr, builtin.MethodsPower.OnConsensusFault, pledge, big.Zero(), &builtin.Discard{})
	builtin.RequireSuccess(rt, code, "failed to report consensus fault")
	return nil
}

func (a MinerStub) Script(rt runtime.Runtime, params *ScriptParams) *abi.EmptyValue {
	a.validateControl(rt)
	var st MinerStubState
	rt.StateTransaction(&st, func() {
		st.FailCron = params.FailCron
		st.FailConfirm = params.FailConfirm
		st.ProveOnCron = params.ProveOnCron
		st.CronInterval = params.CronInterval
	})
	return nil
}

func (a MinerStub) validateControl(rt runtime.Runtime) {
	var st MinerStubState
	rt.StateReadonly(&st)
	rt.ValidateImmediateCallerIs(st.Owner, st.Worker)
}

func resolveControl(rt runtime.Runtime, raw addr.Address) addr.Address {
	resolved, ok := rt.ResolveAddress(raw)
	if !ok {
		rt.Abortf(exitcode.ErrIllegalArgument, "unable to resolve address %v", raw)
	}
	return resolved
}

func mustID(rt runtime.Runtime, a addr.Address) uint64 {
	id, err := addr.IDFromAddress(a)
	builtin.RequireNoErr(rt, err, exitcode.ErrIllegalState, "receiver %v is not an ID address", a)
	return id
}
