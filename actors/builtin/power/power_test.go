package power_test

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"testing"

	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/go-state-types/exitcode"
	cid "github.com/ipfs/go-cid"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
	"github.com/xorcare/golden"

	"github.com/worlddbs/power-actor/actors/builtin"
	initact "github.com/worlddbs/power-actor/actors/builtin/init"
	"github.com/worlddbs/power-actor/actors/builtin/power"
	"github.com/worlddbs/power-actor/actors/runtime/proof"
	"github.com/worlddbs/power-actor/actors/util/adt"
	"github.com/worlddbs/power-actor/actors/util/smoothing"
	"github.com/worlddbs/power-actor/support/mock"
	tutil "github.com/worlddbs/power-actor/support/testing"
)

const mib = int64(1 << 20)

var (
	proof2KiB = abi.RegisteredSealProof_StackedDrg2KiBV1
	proof8MiB = abi.RegisteredSealProof_StackedDrg8MiBV1
)

func TestExports(t *testing.T) {
	mock.CheckActorExports(t, power.Actor{})
}

func TestConstruction(t *testing.T) {
	owner := tutil.NewIDAddr(t, 101)
	miner := tutil.NewIDAddr(t, 103)
	robust := tutil.NewActorAddr(t, "robust")

	builder := mock.NewBuilder(builtin.StoragePowerActorAddr).WithCaller(builtin.SystemActorAddr, builtin.SystemActorCodeID)

	t.Run("simple construction", func(t *testing.T) {
		rt := builder.Build(t)
		h := newHarness(t)
		h.constructAndVerify(rt)

		st := getState(rt)
		assert.Equal(t, smoothing.NewEstimate(power.InitialQAPowerEstimatePosition, power.InitialQAPowerEstimateVelocity), st.ThisEpochQAPowerSmoothed)
		assert.Nil(t, st.ProofValidationBatch)
		assert.Equal(t, int64(0), st.ProveCommitsThisEpoch)
		h.checkState(rt)
	})

	t.Run("only the system actor may construct", func(t *testing.T) {
		rt := builder.Build(t)
		h := newHarness(t)
		rt.SetCaller(owner, builtin.AccountActorCodeID)
		rt.ExpectValidateCallerAddr(builtin.SystemActorAddr)
		rt.ExpectAbort(exitcode.ErrForbidden, func() {
			rt.Call(h.Actor.Constructor, nil)
		})
		rt.Verify()
	})

	t.Run("create miner", func(t *testing.T) {
		rt := builder.Build(t)
		h := newHarness(t)
		h.constructAndVerify(rt)

		h.createMiner(rt, owner, owner, miner, robust, abi.PeerID("miner"), tutil.MakeMultiaddrs("/ip4/1.2.3.4/tcp/1"), proof2KiB, abi.NewTokenAmount(10))

		st := getState(rt)
		assert.Equal(t, int64(1), st.MinerCount)
		// The 2KiB floor is zero, so the new claim qualifies at once.
		assert.Equal(t, int64(1), st.MinerAboveMinPowerCount)
		assert.Equal(t, abi.NewStoragePower(0), st.TotalQualityAdjPower)
		assert.Equal(t, abi.NewStoragePower(0), st.TotalRawBytePower)
		assert.Equal(t, abi.NewTokenAmount(0), st.TotalPledgeCollateral)

		claim := h.getClaim(rt, miner)
		assert.Equal(t, proof2KiB, claim.SealProofType)
		assert.True(t, claim.AboveMinPower)

		keys, err := adt.AsMap(adt.AsStore(rt), st.Claims)
		require.NoError(t, err)
		claimKeys, err := keys.CollectKeys()
		require.NoError(t, err)
		assert.Equal(t, 1, len(claimKeys))

		verifyEmptyMap(t, rt, st.CronEventQueue)
		h.checkState(rt)
	})

	t.Run("new miner above an unmet floor does not qualify", func(t *testing.T) {
		rt := builder.Build(t)
		h := newHarness(t)
		h.constructAndVerify(rt)

		h.createMiner(rt, owner, owner, miner, robust, abi.PeerID("miner"), nil, proof8MiB, big.Zero())

		st := getState(rt)
		assert.Equal(t, int64(1), st.MinerCount)
		assert.Equal(t, int64(0), st.MinerAboveMinPowerCount)
		assert.False(t, h.getClaim(rt, miner).AboveMinPower)
		h.checkState(rt)
	})
}

func TestCreateMinerFailures(t *testing.T) {
	owner := tutil.NewIDAddr(t, 101)
	miner := tutil.NewIDAddr(t, 103)
	robust := tutil.NewActorAddr(t, "robust")

	t.Run("fails when caller is not a signable actor", func(t *testing.T) {
		rt, h := basicPowerSetup(t)

		rt.SetCaller(miner, builtin.StorageMinerActorCodeID)
		rt.ExpectValidateCallerType(builtin.CallerTypesSignable...)
		rt.ExpectAbort(exitcode.ErrForbidden, func() {
			rt.Call(h.CreateMiner, h.createMinerParams(owner, proof2KiB))
		})
		rt.Verify()
		h.checkState(rt)
	})

	t.Run("fails with unsupported seal proof", func(t *testing.T) {
		rt, h := basicPowerSetup(t)

		rt.SetCaller(owner, builtin.AccountActorCodeID)
		rt.ExpectValidateCallerType(builtin.CallerTypesSignable...)
		rt.ExpectAbortContainsMessage(exitcode.ErrIllegalArgument, "unsupported seal proof type", func() {
			rt.Call(h.CreateMiner, h.createMinerParams(owner, abi.RegisteredSealProof(1000)))
		})
		rt.Verify()
		assert.Equal(t, int64(0), getState(rt).MinerCount)
	})

	t.Run("fails and leaves no claim if init actor fails", func(t *testing.T) {
		rt, h := basicPowerSetup(t)

		rt.SetCaller(owner, builtin.AccountActorCodeID)
		rt.ExpectValidateCallerType(builtin.CallerTypesSignable...)
		rt.ExpectSend(builtin.InitActorAddr, builtin.MethodsInit.Exec, &initact.ExecParams{
			CodeCID:           builtin.StorageMinerActorCodeID,
			ConstructorParams: initCreateMinerBytes(t, owner, owner, abi.PeerID("miner"), nil, proof2KiB),
		}, big.Zero(), &initact.ExecReturn{IDAddress: miner, RobustAddress: robust}, exitcode.ErrInsufficientFunds)

		rt.ExpectAbortContainsMessage(exitcode.ErrInsufficientFunds, "failed to init new actor", func() {
			rt.Call(h.CreateMiner, h.createMinerParams(owner, proof2KiB))
		})
		rt.Verify()

		st := getState(rt)
		assert.Equal(t, int64(0), st.MinerCount)
		verifyEmptyMap(t, rt, st.Claims)
		h.checkState(rt)
	})

	t.Run("rejects a second claim for the same miner", func(t *testing.T) {
		rt, h := basicPowerSetup(t)
		h.createMinerBasic(rt, owner, owner, miner)

		rt.SetCaller(owner, builtin.AccountActorCodeID)
		rt.ExpectValidateCallerType(builtin.CallerTypesSignable...)
		rt.ExpectSend(builtin.InitActorAddr, builtin.MethodsInit.Exec, &initact.ExecParams{
			CodeCID:           builtin.StorageMinerActorCodeID,
			ConstructorParams: initCreateMinerBytes(t, owner, owner, abi.PeerID("miner"), nil, proof2KiB),
		}, big.Zero(), &initact.ExecReturn{IDAddress: miner, RobustAddress: robust}, exitcode.Ok)

		rt.ExpectAbortContainsMessage(exitcode.ErrIllegalArgument, "already has a claim", func() {
			rt.Call(h.CreateMiner, h.createMinerParams(owner, proof2KiB))
		})
		rt.Verify()

		assert.Equal(t, int64(1), getState(rt).MinerCount)
		h.checkState(rt)
	})
}

func TestUpdateClaimedPower(t *testing.T) {
	owner := tutil.NewIDAddr(t, 101)
	miner1 := tutil.NewIDAddr(t, 111)
	miner2 := tutil.NewIDAddr(t, 112)
	floor := abi.NewStoragePower(16 * mib)
	half := abi.NewStoragePower(8 * mib)

	t.Run("power counts towards totals once the miner meets the floor", func(t *testing.T) {
		rt, h := basicPowerSetup(t)
		h.createMinerWithProof(rt, owner, miner1, proof8MiB)

		h.updateClaimedPower(rt, miner1, half, half)
		st := getState(rt)
		assert.Equal(t, half, st.TotalBytesCommitted)
		assert.Equal(t, half, st.TotalQABytesCommitted)
		assert.Equal(t, big.Zero(), st.TotalRawBytePower)
		assert.Equal(t, big.Zero(), st.TotalQualityAdjPower)
		assert.Equal(t, int64(0), st.MinerAboveMinPowerCount)
		assert.False(t, h.getClaim(rt, miner1).AboveMinPower)

		h.updateClaimedPower(rt, miner1, half, half)
		st = getState(rt)
		assert.Equal(t, floor, st.TotalBytesCommitted)
		assert.Equal(t, floor, st.TotalRawBytePower)
		assert.Equal(t, floor, st.TotalQualityAdjPower)
		assert.Equal(t, int64(1), st.MinerAboveMinPowerCount)
		assert.True(t, h.getClaim(rt, miner1).AboveMinPower)

		// Dropping back below the floor removes the whole claim from the qualifying totals.
		h.updateClaimedPower(rt, miner1, half.Neg(), half.Neg())
		st = getState(rt)
		assert.Equal(t, half, st.TotalBytesCommitted)
		assert.Equal(t, big.Zero(), st.TotalRawBytePower)
		assert.Equal(t, big.Zero(), st.TotalQualityAdjPower)
		assert.Equal(t, int64(0), st.MinerAboveMinPowerCount)
		h.checkState(rt)
	})

	t.Run("quality adjusted power alone decides membership", func(t *testing.T) {
		rt, h := basicPowerSetup(t)
		h.createMinerWithProof(rt, owner, miner1, proof8MiB)

		h.updateClaimedPower(rt, miner1, half, floor)
		st := getState(rt)
		assert.Equal(t, int64(1), st.MinerAboveMinPowerCount)
		assert.Equal(t, half, st.TotalRawBytePower)
		assert.Equal(t, floor, st.TotalQualityAdjPower)
		h.checkState(rt)
	})

	t.Run("zero delta leaves state untouched", func(t *testing.T) {
		rt, h := basicPowerSetup(t)
		h.createMinerWithProof(rt, owner, miner1, proof8MiB)
		h.updateClaimedPower(rt, miner1, half, half)

		before := getState(rt)
		h.updateClaimedPower(rt, miner1, big.Zero(), big.Zero())
		assert.Equal(t, before, getState(rt))
		h.checkState(rt)
	})

	t.Run("fails when the claim would go negative", func(t *testing.T) {
		rt, h := basicPowerSetup(t)
		h.createMinerWithProof(rt, owner, miner1, proof8MiB)
		h.updateClaimedPower(rt, miner1, half, half)
		before := getState(rt)

		rt.SetCaller(miner1, builtin.StorageMinerActorCodeID)
		rt.ExpectValidateCallerType(builtin.StorageMinerActorCodeID)
		rt.ExpectAbortContainsMessage(exitcode.ErrIllegalArgument, "would become negative", func() {
			rt.Call(h.UpdateClaimedPower, &power.UpdateClaimedPowerParams{
				RawByteDelta:         floor.Neg(),
				QualityAdjustedDelta: big.Zero(),
			})
		})
		rt.Verify()

		assert.Equal(t, before, getState(rt))
		h.checkState(rt)
	})

	t.Run("fails for a miner with no claim", func(t *testing.T) {
		rt, h := basicPowerSetup(t)

		rt.SetCaller(miner2, builtin.StorageMinerActorCodeID)
		rt.ExpectValidateCallerType(builtin.StorageMinerActorCodeID)
		rt.ExpectAbortContainsMessage(exitcode.ErrNotFound, "no claim for actor", func() {
			rt.Call(h.UpdateClaimedPower, &power.UpdateClaimedPowerParams{
				RawByteDelta:         half,
				QualityAdjustedDelta: half,
			})
		})
		rt.Verify()
	})

	t.Run("fails when caller is not a miner", func(t *testing.T) {
		rt, h := basicPowerSetup(t)

		rt.SetCaller(owner, builtin.AccountActorCodeID)
		rt.ExpectValidateCallerType(builtin.StorageMinerActorCodeID)
		rt.ExpectAbort(exitcode.ErrForbidden, func() {
			rt.Call(h.UpdateClaimedPower, &power.UpdateClaimedPowerParams{
				RawByteDelta:         half,
				QualityAdjustedDelta: half,
			})
		})
		rt.Verify()
	})

	t.Run("termination removes power and is logged", func(t *testing.T) {
		rt, h := basicPowerSetup(t)
		h.createMinerWithProof(rt, owner, miner1, proof8MiB)
		h.updateClaimedPower(rt, miner1, floor, floor)

		rt.SetCaller(miner1, builtin.StorageMinerActorCodeID)
		rt.ExpectValidateCallerType(builtin.StorageMinerActorCodeID)
		rt.Call(h.UpdateClaimedPower, &power.UpdateClaimedPowerParams{
			RawByteDelta:         half.Neg(),
			QualityAdjustedDelta: half.Neg(),
			Termination:          power.SectorTerminationFaulty,
		})
		rt.Verify()
		rt.ExpectLogsContain("terminated sectors (faulty)")

		st := getState(rt)
		assert.Equal(t, half, st.TotalBytesCommitted)
		assert.Equal(t, int64(0), st.MinerAboveMinPowerCount)
		h.checkState(rt)
	})

	t.Run("termination may not add power", func(t *testing.T) {
		rt, h := basicPowerSetup(t)
		h.createMinerWithProof(rt, owner, miner1, proof8MiB)

		rt.SetCaller(miner1, builtin.StorageMinerActorCodeID)
		rt.ExpectValidateCallerType(builtin.StorageMinerActorCodeID)
		rt.ExpectAbortContainsMessage(exitcode.ErrIllegalArgument, "cannot add power", func() {
			rt.Call(h.UpdateClaimedPower, &power.UpdateClaimedPowerParams{
				RawByteDelta:         half,
				QualityAdjustedDelta: big.Zero(),
				Termination:          power.SectorTerminationExpired,
			})
		})
		rt.Verify()
	})

	t.Run("rejects an unknown termination reason", func(t *testing.T) {
		rt, h := basicPowerSetup(t)
		h.createMinerWithProof(rt, owner, miner1, proof8MiB)

		rt.SetCaller(miner1, builtin.StorageMinerActorCodeID)
		rt.ExpectValidateCallerType(builtin.StorageMinerActorCodeID)
		rt.ExpectAbortContainsMessage(exitcode.ErrIllegalArgument, "invalid termination reason", func() {
			rt.Call(h.UpdateClaimedPower, &power.UpdateClaimedPowerParams{
				RawByteDelta:         half.Neg(),
				QualityAdjustedDelta: half.Neg(),
				Termination:          power.SectorTermination(7),
			})
		})
		rt.Verify()
	})
}

func TestEnrollCronEpoch(t *testing.T) {
	owner := tutil.NewIDAddr(t, 101)
	miner := tutil.NewIDAddr(t, 103)

	t.Run("enroll multiple events", func(t *testing.T) {
		rt, h := basicPowerSetup(t)
		h.createMinerBasic(rt, owner, owner, miner)
		e1 := abi.ChainEpoch(1)

		// enroll event with miner 1
		p1 := []byte("hello")
		h.enrollCronEvent(rt, miner, e1, p1)

		events := h.getEnrolledCronTicks(rt, e1)

		evt := events[0]
		require.EqualValues(t, p1, evt.CallbackPayload)
		require.EqualValues(t, miner, evt.MinerAddr)

		// enroll another event with the same miner
		p2 := []byte("hello2")
		h.enrollCronEvent(rt, miner, e1, p2)
		events = h.getEnrolledCronTicks(rt, e1)
		require.Len(t, events, 2)
		require.EqualValues(t, p1, events[0].CallbackPayload)
		require.EqualValues(t, p2, events[1].CallbackPayload)

		// enroll another event with the same miner for a different epoch
		e2 := abi.ChainEpoch(2)
		p3 := []byte("test")
		h.enrollCronEvent(rt, miner, e2, p3)
		events = h.getEnrolledCronTicks(rt, e2)
		require.Len(t, events, 1)
		require.EqualValues(t, p3, events[0].CallbackPayload)
		h.checkState(rt)
	})

	t.Run("enroll for an epoch before first cron epoch", func(t *testing.T) {
		rt, h := basicPowerSetup(t)
		h.createMinerBasic(rt, owner, owner, miner)

		h.onEpochTickEnd(rt, 5, nil, nil)
		assert.Equal(t, abi.ChainEpoch(6), getState(rt).FirstCronEpoch)

		// the runtime epoch lags the last tick, as after a re-org
		rt.SetEpoch(2)
		h.enrollCronEvent(rt, miner, 3, []byte("late"))
		assert.Equal(t, abi.ChainEpoch(3), getState(rt).FirstCronEpoch)
		h.checkState(rt)
	})

	t.Run("fails if epoch is negative", func(t *testing.T) {
		rt, h := basicPowerSetup(t)
		h.createMinerBasic(rt, owner, owner, miner)

		rt.ExpectAbortContainsMessage(exitcode.ErrIllegalArgument, "epoch -2 cannot be less than zero", func() {
			h.enrollCronEvent(rt, miner, -2, []byte{0x1, 0x3})
		})
	})

	t.Run("fails if epoch is not in the future", func(t *testing.T) {
		rt, h := basicPowerSetup(t)
		h.createMinerBasic(rt, owner, owner, miner)

		rt.SetEpoch(10)
		rt.ExpectAbortContainsMessage(exitcode.ErrIllegalArgument, "must be after current epoch", func() {
			h.enrollCronEvent(rt, miner, 10, []byte{0x1})
		})
	})

	t.Run("fails for a miner with no claim", func(t *testing.T) {
		rt, h := basicPowerSetup(t)

		rt.ExpectAbortContainsMessage(exitcode.ErrNotFound, "has no claim", func() {
			h.enrollCronEvent(rt, miner, 3, []byte{0x1})
		})
		verifyEmptyMap(t, rt, getState(rt).CronEventQueue)
	})
}

func TestPowerAndPledgeAccounting(t *testing.T) {
	owner := tutil.NewIDAddr(t, 101)
	miner1 := tutil.NewIDAddr(t, 111)
	miner2 := tutil.NewIDAddr(t, 112)
	miner3 := tutil.NewIDAddr(t, 113)
	miner4 := tutil.NewIDAddr(t, 114)
	miner5 := tutil.NewIDAddr(t, 115)
	floor := abi.NewStoragePower(16 * mib)
	half := abi.NewStoragePower(8 * mib)

	t.Run("power accounting crossing threshold", func(t *testing.T) {
		rt, h := basicPowerSetup(t)
		for _, m := range []addr.Address{miner1, miner2, miner3, miner4, miner5} {
			h.createMinerWithProof(rt, owner, m, proof8MiB)
		}

		h.updateClaimedPower(rt, miner1, half, half)
		h.updateClaimedPower(rt, miner2, half, half)

		// Below the miner minimum, the committed totals are reported.
		h.expectTotalPowerEager(rt, floor, floor)
		ret := h.currentPowerTotal(rt)
		assert.True(t, ret.BelowMinimum)
		assert.Equal(t, floor, ret.QualityAdjPower)

		// Four miners reach the floor; the fifth stays below it.
		for _, m := range []addr.Address{miner1, miner2} {
			h.updateClaimedPower(rt, m, half, half)
		}
		for _, m := range []addr.Address{miner3, miner4} {
			h.updateClaimedPower(rt, m, floor, floor)
		}
		h.updateClaimedPower(rt, miner5, half, half)

		st := getState(rt)
		assert.Equal(t, int64(4), st.MinerAboveMinPowerCount)
		assert.Equal(t, big.Mul(big.NewInt(4), floor), st.TotalQualityAdjPower)
		assert.Equal(t, big.Add(big.Mul(big.NewInt(4), floor), half), st.TotalQABytesCommitted)

		ret = h.currentPowerTotal(rt)
		assert.False(t, ret.BelowMinimum)
		h.expectTotalPowerEager(rt, big.Mul(big.NewInt(4), floor), big.Mul(big.NewInt(4), floor))

		// One miner dropping out returns to committed totals.
		h.updateClaimedPower(rt, miner4, half.Neg(), half.Neg())
		st = getState(rt)
		assert.Equal(t, int64(3), st.MinerAboveMinPowerCount)
		h.expectTotalPowerEager(rt, st.TotalBytesCommitted, st.TotalQABytesCommitted)
		h.checkState(rt)
	})

	t.Run("pledge accounting", func(t *testing.T) {
		rt, h := basicPowerSetup(t)
		h.createMinerBasic(rt, owner, owner, miner1)
		h.createMinerBasic(rt, owner, owner, miner2)

		h.updatePledgeTotal(rt, miner1, abi.NewTokenAmount(1_000_000))
		h.expectTotalPledgeEager(rt, abi.NewTokenAmount(1_000_000))

		h.updatePledgeTotal(rt, miner2, abi.NewTokenAmount(500_000))
		h.expectTotalPledgeEager(rt, abi.NewTokenAmount(1_500_000))

		h.updatePledgeTotal(rt, miner1, abi.NewTokenAmount(-250_000))
		h.expectTotalPledgeEager(rt, abi.NewTokenAmount(1_250_000))
		h.checkState(rt)
	})

	t.Run("pledge total may not go negative", func(t *testing.T) {
		rt, h := basicPowerSetup(t)
		h.createMinerBasic(rt, owner, owner, miner1)
		h.updatePledgeTotal(rt, miner1, abi.NewTokenAmount(100))

		delta := abi.NewTokenAmount(-101)
		rt.SetCaller(miner1, builtin.StorageMinerActorCodeID)
		rt.ExpectValidateCallerType(builtin.StorageMinerActorCodeID)
		rt.ExpectAbortContainsMessage(exitcode.ErrIllegalState, "would go negative", func() {
			rt.Call(h.UpdatePledgeTotal, &delta)
		})
		rt.Verify()
		h.expectTotalPledgeEager(rt, abi.NewTokenAmount(100))
	})

	t.Run("pledge update requires a claim", func(t *testing.T) {
		rt, h := basicPowerSetup(t)

		delta := abi.NewTokenAmount(100)
		rt.SetCaller(miner1, builtin.StorageMinerActorCodeID)
		rt.ExpectValidateCallerType(builtin.StorageMinerActorCodeID)
		rt.ExpectAbortContainsMessage(exitcode.ErrNotFound, "has no claim", func() {
			rt.Call(h.UpdatePledgeTotal, &delta)
		})
		rt.Verify()
	})
}

func TestOnConsensusFault(t *testing.T) {
	owner := tutil.NewIDAddr(t, 101)
	miner1 := tutil.NewIDAddr(t, 111)
	miner2 := tutil.NewIDAddr(t, 112)
	floor := abi.NewStoragePower(16 * mib)

	t.Run("qualifying miner is removed with its power and pledge", func(t *testing.T) {
		rt, h := basicPowerSetup(t)
		h.createMinerWithProof(rt, owner, miner1, proof8MiB)
		h.createMinerWithProof(rt, owner, miner2, proof8MiB)
		h.updateClaimedPower(rt, miner1, floor, floor)
		h.updateClaimedPower(rt, miner2, floor, floor)
		h.updatePledgeTotal(rt, miner1, abi.NewTokenAmount(1000))

		slash := abi.NewTokenAmount(600)
		h.onConsensusFault(rt, miner1, &slash)

		st := getState(rt)
		assert.Equal(t, int64(1), st.MinerAboveMinPowerCount)
		assert.Equal(t, floor, st.TotalQualityAdjPower)
		assert.Equal(t, floor, st.TotalQABytesCommitted)
		assert.Equal(t, abi.NewTokenAmount(400), st.TotalPledgeCollateral)
		h.checkState(rt)
	})

	t.Run("miner below the floor only leaves committed totals", func(t *testing.T) {
		rt, h := basicPowerSetup(t)
		h.createMinerWithProof(rt, owner, miner1, proof8MiB)
		h.updateClaimedPower(rt, miner1, big.Div(floor, big.NewInt(2)), big.Div(floor, big.NewInt(2)))

		slash := big.Zero()
		h.onConsensusFault(rt, miner1, &slash)

		st := getState(rt)
		assert.Equal(t, big.Zero(), st.TotalQABytesCommitted)
		assert.Equal(t, big.Zero(), st.TotalBytesCommitted)
		assert.Equal(t, int64(0), st.MinerAboveMinPowerCount)
		h.checkState(rt)
	})

	t.Run("fails for a miner with no claim", func(t *testing.T) {
		rt, h := basicPowerSetup(t)

		slash := abi.NewTokenAmount(1)
		rt.SetCaller(miner1, builtin.StorageMinerActorCodeID)
		rt.ExpectValidateCallerType(builtin.StorageMinerActorCodeID)
		rt.ExpectAbortContainsMessage(exitcode.ErrNotFound, "no claim for actor", func() {
			rt.Call(h.OnConsensusFault, &slash)
		})
		rt.Verify()
	})

	t.Run("fails when slashing more than the pledge total", func(t *testing.T) {
		rt, h := basicPowerSetup(t)
		h.createMinerBasic(rt, owner, owner, miner1)
		h.updatePledgeTotal(rt, miner1, abi.NewTokenAmount(10))

		slash := abi.NewTokenAmount(11)
		rt.SetCaller(miner1, builtin.StorageMinerActorCodeID)
		rt.ExpectValidateCallerType(builtin.StorageMinerActorCodeID)
		rt.ExpectAbortContainsMessage(exitcode.ErrIllegalState, "would go negative", func() {
			rt.Call(h.OnConsensusFault, &slash)
		})
		rt.Verify()

		// the claim survives the aborted message
		h.getClaim(rt, miner1)
		h.checkState(rt)
	})
}

func TestCron(t *testing.T) {
	owner := tutil.NewIDAddr(t, 101)
	miner1 := tutil.NewIDAddr(t, 111)
	miner2 := tutil.NewIDAddr(t, 112)
	miner3 := tutil.NewIDAddr(t, 113)

	t.Run("only cron may tick", func(t *testing.T) {
		rt, h := basicPowerSetup(t)

		rt.SetCaller(owner, builtin.AccountActorCodeID)
		rt.ExpectValidateCallerAddr(builtin.CronActorAddr)
		rt.ExpectAbort(exitcode.ErrForbidden, func() {
			rt.Call(h.OnEpochTickEnd, nil)
		})
		rt.Verify()
	})

	t.Run("empty tick snapshots totals and updates the estimate", func(t *testing.T) {
		rt, h := basicPowerSetup(t)
		h.createMinerBasic(rt, owner, owner, miner1)
		pow := abi.NewStoragePower(2048)
		h.updateClaimedPower(rt, miner1, pow, pow)
		h.updatePledgeTotal(rt, miner1, abi.NewTokenAmount(7))

		before := getState(rt)
		h.onEpochTickEnd(rt, 1, nil, nil)

		st := getState(rt)
		assert.Equal(t, pow, st.ThisEpochRawBytePower)
		assert.Equal(t, pow, st.ThisEpochQualityAdjPower)
		assert.Equal(t, abi.NewTokenAmount(7), st.ThisEpochPledgeCollateral)
		assert.NotEqual(t, before.ThisEpochQAPowerSmoothed, st.ThisEpochQAPowerSmoothed)
		assert.Equal(t, abi.ChainEpoch(2), st.FirstCronEpoch)
		h.checkState(rt)
	})

	t.Run("events run in epoch then enrollment order", func(t *testing.T) {
		rt, h := basicPowerSetup(t)
		h.createMinerBasic(rt, owner, owner, miner1)
		h.createMinerBasic(rt, owner, owner, miner2)
		h.createMinerBasic(rt, owner, owner, miner3)

		rt.SetEpoch(1)
		h.enrollCronEvent(rt, miner1, 3, []byte("A"))
		h.enrollCronEvent(rt, miner2, 3, []byte("B"))
		h.enrollCronEvent(rt, miner3, 2, []byte("C"))

		rt.ExpectSend(miner3, builtin.MethodsMiner.OnDeferredCronEvent, builtin.CBORBytes("C"), big.Zero(), nil, exitcode.Ok)
		rt.ExpectSend(miner1, builtin.MethodsMiner.OnDeferredCronEvent, builtin.CBORBytes("A"), big.Zero(), nil, exitcode.Ok)
		rt.ExpectSend(miner2, builtin.MethodsMiner.OnDeferredCronEvent, builtin.CBORBytes("B"), big.Zero(), nil, exitcode.Ok)
		h.onEpochTickEnd(rt, 3, nil, nil)

		verifyEmptyMap(t, rt, getState(rt).CronEventQueue)
		h.checkState(rt)
	})

	t.Run("event scheduled in null round called next round", func(t *testing.T) {
		rt, h := basicPowerSetup(t)
		h.createMinerBasic(rt, owner, owner, miner1)
		h.createMinerBasic(rt, owner, owner, miner2)

		//  0 - genesis
		//  1 - block - registers events
		//  2 - null  - has event
		//  3 - null
		//  4 - block - has event

		rt.SetEpoch(1)
		h.enrollCronEvent(rt, miner1, 2, []byte{0x1, 0x3})
		h.enrollCronEvent(rt, miner2, 4, []byte{0x2, 0x3})

		rt.ExpectSend(miner1, builtin.MethodsMiner.OnDeferredCronEvent, builtin.CBORBytes([]byte{0x1, 0x3}), big.Zero(), nil, exitcode.Ok)
		rt.ExpectSend(miner2, builtin.MethodsMiner.OnDeferredCronEvent, builtin.CBORBytes([]byte{0x2, 0x3}), big.Zero(), nil, exitcode.Ok)
		h.onEpochTickEnd(rt, 4, nil, nil)

		assert.Equal(t, abi.ChainEpoch(5), getState(rt).FirstCronEpoch)
		h.checkState(rt)
	})

	t.Run("events for future epochs are kept", func(t *testing.T) {
		rt, h := basicPowerSetup(t)
		h.createMinerBasic(rt, owner, owner, miner1)

		rt.SetEpoch(1)
		h.enrollCronEvent(rt, miner1, 2, []byte{0x1})
		h.enrollCronEvent(rt, miner1, 5, []byte{0x5})

		rt.ExpectSend(miner1, builtin.MethodsMiner.OnDeferredCronEvent, builtin.CBORBytes([]byte{0x1}), big.Zero(), nil, exitcode.Ok)
		h.onEpochTickEnd(rt, 3, nil, nil)

		events := h.getEnrolledCronTicks(rt, 5)
		require.Len(t, events, 1)
		h.checkState(rt)
	})

	t.Run("handles failed call", func(t *testing.T) {
		rt, h := basicPowerSetup(t)
		h.createMinerBasic(rt, owner, owner, miner1)
		h.createMinerBasic(rt, owner, owner, miner2)

		rt.SetEpoch(1)
		h.enrollCronEvent(rt, miner1, 2, []byte{})
		h.enrollCronEvent(rt, miner2, 2, []byte{})

		pow := abi.NewStoragePower(4096)
		h.updateClaimedPower(rt, miner1, pow, pow)

		// First send fails
		rt.ExpectSend(miner1, builtin.MethodsMiner.OnDeferredCronEvent, builtin.CBORBytes(nil), big.Zero(), nil, exitcode.ErrIllegalState)
		// Subsequent one still invoked
		rt.ExpectSend(miner2, builtin.MethodsMiner.OnDeferredCronEvent, builtin.CBORBytes(nil), big.Zero(), nil, exitcode.Ok)
		h.onEpochTickEnd(rt, 2, nil, nil)

		// expect cron failure was logged
		rt.ExpectLogsContain("OnDeferredCronEvent failed for miner " + miner1.String())

		// the failing miner keeps its claim and power
		newPow := h.currentPowerTotal(rt)
		assert.Equal(t, pow, newPow.RawBytePower)
		assert.Equal(t, pow, newPow.QualityAdjPower)

		// Next epoch, nothing is sent
		h.onEpochTickEnd(rt, 3, nil, nil)
		h.checkState(rt)
	})

	t.Run("skips events for miners without a claim", func(t *testing.T) {
		rt, h := basicPowerSetup(t)
		h.createMinerBasic(rt, owner, owner, miner1)
		h.createMinerBasic(rt, owner, owner, miner2)

		rt.SetEpoch(1)
		h.enrollCronEvent(rt, miner1, 2, []byte{0x1})
		h.enrollCronEvent(rt, miner2, 2, []byte{0x2})

		slash := big.Zero()
		h.onConsensusFault(rt, miner1, &slash)

		rt.ExpectSend(miner2, builtin.MethodsMiner.OnDeferredCronEvent, builtin.CBORBytes([]byte{0x2}), big.Zero(), nil, exitcode.Ok)
		h.onEpochTickEnd(rt, 2, nil, nil)

		rt.ExpectLogsContain("skipping cron event for unknown miner " + miner1.String())
		verifyEmptyMap(t, rt, getState(rt).CronEventQueue)
		h.checkState(rt)
	})
}

func TestSubmitPoRepForBulkVerify(t *testing.T) {
	owner := tutil.NewIDAddr(t, 101)
	miner := tutil.NewIDAddr(t, 111)
	miner2 := tutil.NewIDAddr(t, 112)

	t.Run("registers porep and charges gas", func(t *testing.T) {
		rt, h := basicPowerSetup(t)
		h.createMinerBasic(rt, owner, owner, miner)

		sealInfo := makeSealInfo(0, proof2KiB)
		h.submitPoRepForBulkVerify(rt, miner, sealInfo)
		rt.ExpectGasCharged(power.GasOnSubmitVerifySeal)

		st := getState(rt)
		store := rt.AdtStore()
		require.NotNil(t, st.ProofValidationBatch)
		assert.Equal(t, int64(1), st.ProveCommitsThisEpoch)
		mmap, err := adt.AsMultimap(store, *st.ProofValidationBatch)
		require.NoError(t, err)
		arr, found, err := mmap.Get(abi.AddrKey(miner))
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, uint64(1), arr.Length())
		var storedSealInfo proof.SealVerifyInfo
		found, err = arr.Get(0, &storedSealInfo)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, sealInfo.SealedCID, storedSealInfo.SealedCID)
		h.checkState(rt)
	})

	t.Run("fails for a miner with no claim", func(t *testing.T) {
		rt, h := basicPowerSetup(t)

		rt.ExpectAbortContainsMessage(exitcode.ErrNotFound, "has no claim", func() {
			h.submitPoRepForBulkVerify(rt, miner, makeSealInfo(0, proof2KiB))
		})
		assert.Nil(t, getState(rt).ProofValidationBatch)
	})

	t.Run("fails when proof type differs from the claim", func(t *testing.T) {
		rt, h := basicPowerSetup(t)
		h.createMinerBasic(rt, owner, owner, miner)

		rt.ExpectAbortContainsMessage(exitcode.ErrIllegalArgument, "does not match", func() {
			h.submitPoRepForBulkVerify(rt, miner, makeSealInfo(0, proof8MiB))
		})
		assert.Equal(t, int64(0), getState(rt).ProveCommitsThisEpoch)
	})

	t.Run("aborts when the epoch allowance is spent and resets on tick", func(t *testing.T) {
		defer func(prev int64) { power.MaxMinerProveCommitsPerEpoch = prev }(power.MaxMinerProveCommitsPerEpoch)
		power.MaxMinerProveCommitsPerEpoch = 3

		rt, h := basicPowerSetup(t)
		h.createMinerBasic(rt, owner, owner, miner)
		h.createMinerBasic(rt, owner, owner, miner2)

		// The allowance is shared by all miners.
		h.submitPoRepForBulkVerify(rt, miner, makeSealInfo(0, proof2KiB))
		h.submitPoRepForBulkVerify(rt, miner2, makeSealInfo(1, proof2KiB))
		h.submitPoRepForBulkVerify(rt, miner, makeSealInfo(2, proof2KiB))

		rt.ExpectAbort(power.ErrTooManyProveCommits, func() {
			h.submitPoRepForBulkVerify(rt, miner2, makeSealInfo(3, proof2KiB))
		})

		// Gas only charged for successful submissions
		rt.ExpectGasCharged(power.GasOnSubmitVerifySeal * 3)

		infos := map[addr.Address][]proof.SealVerifyInfo{
			miner:  {*makeSealInfo(0, proof2KiB), *makeSealInfo(2, proof2KiB)},
			miner2: {*makeSealInfo(1, proof2KiB)},
		}
		cs := []confirmedSectorSend{
			{miner, []abi.SectorNumber{0, 2}},
			{miner2, []abi.SectorNumber{1}},
		}
		h.onEpochTickEnd(rt, 1, cs, infos)
		assert.Equal(t, int64(0), getState(rt).ProveCommitsThisEpoch)

		h.submitPoRepForBulkVerify(rt, miner2, makeSealInfo(3, proof2KiB))
		h.checkState(rt)
	})
}

func TestCronBatchProofVerifies(t *testing.T) {
	owner := tutil.NewIDAddr(t, 101)
	miner1 := tutil.NewIDAddr(t, 111)
	miner2 := tutil.NewIDAddr(t, 112)
	miner3 := tutil.NewIDAddr(t, 113)
	miner4 := tutil.NewIDAddr(t, 114)

	info := makeSealInfo(0, proof2KiB)
	info1 := makeSealInfo(1, proof2KiB)
	info2 := makeSealInfo(2, proof2KiB)
	info3 := makeSealInfo(3, proof2KiB)
	info4 := makeSealInfo(101, proof2KiB)
	info5 := makeSealInfo(200, proof2KiB)
	info6 := makeSealInfo(201, proof2KiB)
	info7 := makeSealInfo(300, proof2KiB)
	info8 := makeSealInfo(301, proof2KiB)

	setup := func(t *testing.T, miners ...addr.Address) (*mock.Runtime, *spActorHarness) {
		rt, h := basicPowerSetup(t)
		for _, m := range miners {
			h.createMinerBasic(rt, owner, owner, m)
		}
		return rt, h
	}

	t.Run("success with one miner and one confirmed sector", func(t *testing.T) {
		rt, h := setup(t, miner1)
		h.submitPoRepForBulkVerify(rt, miner1, info)

		infos := map[addr.Address][]proof.SealVerifyInfo{miner1: {*info}}
		cs := []confirmedSectorSend{{miner1, []abi.SectorNumber{info.SectorID.Number}}}

		h.onEpochTickEnd(rt, 0, cs, infos)
		h.checkState(rt)
	})

	t.Run("success with one miner and multiple confirmed sectors", func(t *testing.T) {
		rt, h := setup(t, miner1)

		h.submitPoRepForBulkVerify(rt, miner1, info1)
		h.submitPoRepForBulkVerify(rt, miner1, info2)
		h.submitPoRepForBulkVerify(rt, miner1, info3)

		infos := map[addr.Address][]proof.SealVerifyInfo{miner1: {*info1, *info2, *info3}}
		cs := []confirmedSectorSend{{miner1, []abi.SectorNumber{1, 2, 3}}}

		h.onEpochTickEnd(rt, 0, cs, infos)
	})

	t.Run("duplicate sector numbers are ignored for a miner", func(t *testing.T) {
		rt, h := setup(t, miner1)

		h.submitPoRepForBulkVerify(rt, miner1, info2)
		h.submitPoRepForBulkVerify(rt, miner1, info1)
		h.submitPoRepForBulkVerify(rt, miner1, info2)

		// duplicates will be sent to the batch verify call
		infos := map[addr.Address][]proof.SealVerifyInfo{miner1: {*info2, *info1, *info2}}

		// however, duplicates will not be sent to the miner as confirmed, and the rest are sorted
		cs := []confirmedSectorSend{{miner1, []abi.SectorNumber{1, 2}}}

		h.onEpochTickEnd(rt, 0, cs, infos)
	})

	t.Run("confirmations are sent in miner address order", func(t *testing.T) {
		rt, h := setup(t, miner1, miner2, miner3, miner4)

		h.submitPoRepForBulkVerify(rt, miner4, info7)
		h.submitPoRepForBulkVerify(rt, miner4, info8)

		h.submitPoRepForBulkVerify(rt, miner2, info3)
		h.submitPoRepForBulkVerify(rt, miner2, info4)

		h.submitPoRepForBulkVerify(rt, miner1, info1)
		h.submitPoRepForBulkVerify(rt, miner1, info2)

		h.submitPoRepForBulkVerify(rt, miner3, info5)
		h.submitPoRepForBulkVerify(rt, miner3, info6)

		cs := []confirmedSectorSend{
			{miner1, []abi.SectorNumber{1, 2}},
			{miner2, []abi.SectorNumber{3, 101}},
			{miner3, []abi.SectorNumber{200, 201}},
			{miner4, []abi.SectorNumber{300, 301}},
		}

		infos := map[addr.Address][]proof.SealVerifyInfo{
			miner1: {*info1, *info2},
			miner2: {*info3, *info4},
			miner3: {*info5, *info6},
			miner4: {*info7, *info8},
		}

		h.onEpochTickEnd(rt, 0, cs, infos)
		h.checkState(rt)
	})

	t.Run("no batch verify without submissions", func(t *testing.T) {
		rt, h := setup(t, miner1)
		h.onEpochTickEnd(rt, 0, nil, nil)
	})

	t.Run("verification for one sector fails but others succeed for a miner", func(t *testing.T) {
		rt, h := setup(t, miner1)

		h.submitPoRepForBulkVerify(rt, miner1, info1)
		h.submitPoRepForBulkVerify(rt, miner1, info2)
		h.submitPoRepForBulkVerify(rt, miner1, info3)

		infos := map[addr.Address][]proof.SealVerifyInfo{miner1: {*info1, *info2, *info3}}
		res := map[addr.Address][]bool{
			miner1: {true, false, true},
		}

		// send will only be for the first and third sector as the middle sector will fail verification
		rt.ExpectSend(miner1, builtin.MethodsMiner.ConfirmSectorProofsValid,
			&builtin.ConfirmSectorProofsParams{Sectors: []abi.SectorNumber{1, 3}}, abi.NewTokenAmount(0), nil, exitcode.Ok)
		rt.ExpectBatchVerifySeals(infos, res, nil)
		rt.ExpectValidateCallerAddr(builtin.CronActorAddr)

		rt.SetEpoch(0)
		rt.SetCaller(builtin.CronActorAddr, builtin.CronActorCodeID)
		rt.Call(h.OnEpochTickEnd, nil)
		rt.Verify()
	})

	t.Run("failed confirmation is logged and others still run", func(t *testing.T) {
		rt, h := setup(t, miner1, miner2)

		h.submitPoRepForBulkVerify(rt, miner1, info1)
		h.submitPoRepForBulkVerify(rt, miner2, info2)

		infos := map[addr.Address][]proof.SealVerifyInfo{miner1: {*info1}, miner2: {*info2}}
		rt.ExpectSend(miner1, builtin.MethodsMiner.ConfirmSectorProofsValid,
			&builtin.ConfirmSectorProofsParams{Sectors: []abi.SectorNumber{1}}, abi.NewTokenAmount(0), nil, exitcode.ErrIllegalArgument)
		rt.ExpectSend(miner2, builtin.MethodsMiner.ConfirmSectorProofsValid,
			&builtin.ConfirmSectorProofsParams{Sectors: []abi.SectorNumber{2}}, abi.NewTokenAmount(0), nil, exitcode.Ok)
		rt.ExpectBatchVerifySeals(infos, batchVerifyDefaultOutput(infos), nil)
		rt.ExpectValidateCallerAddr(builtin.CronActorAddr)

		rt.SetEpoch(0)
		rt.SetCaller(builtin.CronActorAddr, builtin.CronActorCodeID)
		rt.Call(h.OnEpochTickEnd, nil)
		rt.Verify()

		rt.ExpectLogsContain("ConfirmSectorProofsValid failed for miner " + miner1.String())
		assert.Nil(t, getState(rt).ProofValidationBatch)
		h.checkState(rt)
	})

	t.Run("skips proofs of a miner slashed since submitting", func(t *testing.T) {
		rt, h := setup(t, miner1, miner2)

		h.submitPoRepForBulkVerify(rt, miner1, info1)
		h.submitPoRepForBulkVerify(rt, miner2, info2)
		slash := big.Zero()
		h.onConsensusFault(rt, miner1, &slash)
		h.checkState(rt)

		infos := map[addr.Address][]proof.SealVerifyInfo{miner2: {*info2}}
		cs := []confirmedSectorSend{{miner2, []abi.SectorNumber{2}}}
		h.onEpochTickEnd(rt, 0, cs, infos)

		rt.ExpectLogsContain("skipping batch verifies for unknown miner " + miner1.String())
		h.checkState(rt)
	})

	t.Run("fails if batch verify seals fails", func(t *testing.T) {
		rt, h := setup(t, miner1)
		h.submitPoRepForBulkVerify(rt, miner1, info1)
		h.submitPoRepForBulkVerify(rt, miner1, info2)
		h.submitPoRepForBulkVerify(rt, miner1, info3)

		infos := map[addr.Address][]proof.SealVerifyInfo{miner1: {*info1, *info2, *info3}}

		rt.ExpectBatchVerifySeals(infos, batchVerifyDefaultOutput(infos), fmt.Errorf("fail"))
		rt.ExpectValidateCallerAddr(builtin.CronActorAddr)

		rt.SetEpoch(abi.ChainEpoch(0))
		rt.SetCaller(builtin.CronActorAddr, builtin.CronActorCodeID)

		rt.ExpectAbort(exitcode.ErrIllegalState, func() {
			rt.Call(h.Actor.OnEpochTickEnd, nil)
		})
		rt.Verify()
	})
}

func TestFractionOfTotalPolicy(t *testing.T) {
	owner := tutil.NewIDAddr(t, 101)
	miner1 := tutil.NewIDAddr(t, 111)
	miner2 := tutil.NewIDAddr(t, 112)
	policy := power.PolicyV2FractionOfTotal{Numerator: 1, Denominator: 4}

	rt := mock.NewBuilder(builtin.StoragePowerActorAddr).
		WithCaller(builtin.SystemActorAddr, builtin.SystemActorCodeID).
		Build(t)
	h := newHarness(t)
	h.Policy = policy
	h.constructAndVerify(rt)

	// An empty network has a zero threshold.
	h.createMinerBasic(rt, owner, owner, miner1)
	assert.True(t, h.getClaim(rt, miner1).AboveMinPower)

	h.updateClaimedPower(rt, miner1, big.NewInt(100), big.NewInt(100))
	h.createMinerBasic(rt, owner, owner, miner2)
	assert.False(t, h.getClaim(rt, miner2).AboveMinPower)

	// 1000 of 1100 committed is above a quarter.
	h.updateClaimedPower(rt, miner2, big.NewInt(1000), big.NewInt(1000))
	st := getState(rt)
	assert.Equal(t, int64(2), st.MinerAboveMinPowerCount)
	assert.Equal(t, big.NewInt(1100), st.TotalQualityAdjPower)

	// Membership is re-evaluated on the miner's own update only.
	h.updateClaimedPower(rt, miner1, big.NewInt(1), big.NewInt(1))
	st = getState(rt)
	assert.False(t, h.getClaim(rt, miner1).AboveMinPower)
	assert.Equal(t, int64(1), st.MinerAboveMinPowerCount)
	assert.Equal(t, big.NewInt(1000), st.TotalQualityAdjPower)
	assert.Equal(t, big.NewInt(1101), st.TotalQABytesCommitted)
	h.checkState(rt)
}

// Records committed and qualifying totals, in MiB, through a scripted sequence of claim updates.
func TestPowerTotalsTrajectory(t *testing.T) {
	owner := tutil.NewIDAddr(t, 101)
	miners := []addr.Address{
		tutil.NewIDAddr(t, 111),
		tutil.NewIDAddr(t, 112),
		tutil.NewIDAddr(t, 113),
		tutil.NewIDAddr(t, 114),
		tutil.NewIDAddr(t, 115),
	}
	unit := abi.NewStoragePower(8 * mib)
	units := func(n int64) abi.StoragePower { return big.Mul(big.NewInt(n), unit) }

	rt, h := basicPowerSetup(t)

	b := &bytes.Buffer{}
	b.WriteString("step,miners,above,committed_raw,committed_qa,raw,qa,current_raw,current_qa\n")
	inMiB := func(p abi.StoragePower) string { return big.Div(p, big.NewInt(mib)).String() }
	record := func(step int) {
		st := getState(rt)
		curRaw, curQA := power.CurrentTotalPower(st)
		fmt.Fprintf(b, "%d,%d,%d,%s,%s,%s,%s,%s,%s\n", step, st.MinerCount, st.MinerAboveMinPowerCount,
			inMiB(st.TotalBytesCommitted), inMiB(st.TotalQABytesCommitted),
			inMiB(st.TotalRawBytePower), inMiB(st.TotalQualityAdjPower),
			inMiB(curRaw), inMiB(curQA))
		h.checkState(rt)
	}

	for _, m := range miners {
		h.createMinerWithProof(rt, owner, m, proof8MiB)
	}
	record(0)

	h.updateClaimedPower(rt, miners[0], units(2), units(2))
	record(1)
	h.updateClaimedPower(rt, miners[1], units(1), units(2))
	record(2)
	h.updateClaimedPower(rt, miners[2], units(2), units(2))
	record(3)
	h.updateClaimedPower(rt, miners[3], units(1), units(1))
	record(4)
	h.updateClaimedPower(rt, miners[3], units(1), units(1))
	record(5)
	h.updateClaimedPower(rt, miners[4], units(1), units(1))
	record(6)
	h.updateClaimedPower(rt, miners[0], units(-1), units(-1))
	record(7)
	slash := big.Zero()
	h.onConsensusFault(rt, miners[1], &slash)
	record(8)

	golden.Assert(t, b.Bytes())
}

//
// Misc. Utility Functions
//

func makeSealInfo(i int, sealProof abi.RegisteredSealProof) *proof.SealVerifyInfo {
	return &proof.SealVerifyInfo{
		SealProof:   sealProof,
		SectorID:    abi.SectorID{Number: abi.SectorNumber(i)},
		SealedCID:   tutil.MakeCID(fmt.Sprintf("commR-%d", i), &tutil.SealedCIDPrefix),
		UnsealedCID: tutil.MakeCID(fmt.Sprintf("commD-%d", i), &tutil.UnsealedCIDPrefix),
	}
}

func verifyEmptyMap(t testing.TB, rt *mock.Runtime, cid cid.Cid) {
	mapChecked, err := adt.AsMap(adt.AsStore(rt), cid)
	assert.NoError(t, err)
	keys, err := mapChecked.CollectKeys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

type spActorHarness struct {
	power.Actor
	t        *testing.T
	minerSeq int
}

func newHarness(t *testing.T) *spActorHarness {
	return &spActorHarness{
		Actor: power.Actor{},
		t:     t,
	}
}

func (h *spActorHarness) constructAndVerify(rt *mock.Runtime) {
	rt.ExpectValidateCallerAddr(builtin.SystemActorAddr)
	ret := rt.Call(h.Actor.Constructor, nil)
	assert.Nil(h.t, ret)
	rt.Verify()

	var st power.State

	rt.GetState(&st)
	assert.Equal(h.t, abi.NewStoragePower(0), st.TotalRawBytePower)
	assert.Equal(h.t, abi.NewStoragePower(0), st.TotalBytesCommitted)
	assert.Equal(h.t, abi.NewStoragePower(0), st.TotalQualityAdjPower)
	assert.Equal(h.t, abi.NewStoragePower(0), st.TotalQABytesCommitted)
	assert.Equal(h.t, abi.NewTokenAmount(0), st.TotalPledgeCollateral)
	assert.Equal(h.t, abi.NewStoragePower(0), st.ThisEpochRawBytePower)
	assert.Equal(h.t, abi.NewStoragePower(0), st.ThisEpochQualityAdjPower)
	assert.Equal(h.t, abi.NewTokenAmount(0), st.ThisEpochPledgeCollateral)
	assert.Equal(h.t, abi.ChainEpoch(0), st.FirstCronEpoch)
	assert.Equal(h.t, int64(0), st.MinerCount)
	assert.Equal(h.t, int64(0), st.MinerAboveMinPowerCount)

	verifyEmptyMap(h.t, rt, st.Claims)
	verifyEmptyMap(h.t, rt, st.CronEventQueue)
}

func (h *spActorHarness) checkState(rt *mock.Runtime) {
	st := getState(rt)
	_, msgs := power.CheckStateInvariants(st, rt.AdtStore(), h.Policy)
	assert.True(h.t, msgs.IsEmpty(), strings.Join(msgs.Messages(), "\n"))
}

type confirmedSectorSend struct {
	miner      addr.Address
	sectorNums []abi.SectorNumber
}

// Ticks at currEpoch, expecting confirmations in the given order. The seal batch syscall is
// expected only when there are proofs to verify.
func (h *spActorHarness) onEpochTickEnd(rt *mock.Runtime, currEpoch abi.ChainEpoch,
	confirmedSectors []confirmedSectorSend, infos map[addr.Address][]proof.SealVerifyInfo) {

	for _, cs := range confirmedSectors {
		param := &builtin.ConfirmSectorProofsParams{Sectors: cs.sectorNums}
		rt.ExpectSend(cs.miner, builtin.MethodsMiner.ConfirmSectorProofsValid, param, abi.NewTokenAmount(0), nil, exitcode.Ok)
	}
	if len(infos) > 0 {
		rt.ExpectBatchVerifySeals(infos, batchVerifyDefaultOutput(infos), nil)
	}
	rt.ExpectValidateCallerAddr(builtin.CronActorAddr)

	rt.SetEpoch(currEpoch)
	rt.SetCaller(builtin.CronActorAddr, builtin.CronActorCodeID)

	rt.Call(h.Actor.OnEpochTickEnd, nil)
	rt.Verify()

	st := getState(rt)
	require.Nil(h.t, st.ProofValidationBatch)
	require.Equal(h.t, int64(0), st.ProveCommitsThisEpoch)
	require.Equal(h.t, currEpoch+1, st.FirstCronEpoch)
}

func (h *spActorHarness) createMinerParams(owner addr.Address, sealProof abi.RegisteredSealProof) *power.CreateMinerParams {
	return &power.CreateMinerParams{
		Owner:         owner,
		Worker:        owner,
		SealProofType: sealProof,
		Peer:          abi.PeerID("miner"),
	}
}

func (h *spActorHarness) createMiner(rt *mock.Runtime, owner, worker, miner, robust addr.Address, peer abi.PeerID,
	multiaddrs []abi.Multiaddrs, sealProofType abi.RegisteredSealProof, value abi.TokenAmount) {

	st := getState(rt)
	prevMinerCount := st.MinerCount

	createMinerParams := &power.CreateMinerParams{
		Owner:         owner,
		Worker:        worker,
		SealProofType: sealProofType,
		Peer:          peer,
		Multiaddrs:    multiaddrs,
	}

	// owner send CreateMiner to Actor
	rt.SetCaller(owner, builtin.AccountActorCodeID)
	rt.SetReceived(value)
	rt.SetBalance(value)
	rt.ExpectValidateCallerType(builtin.CallerTypesSignable...)

	createMinerRet := &initact.ExecReturn{
		IDAddress:     miner,  // miner actor id address
		RobustAddress: robust, // should be long miner actor address
	}

	msgParams := &initact.ExecParams{
		CodeCID:           builtin.StorageMinerActorCodeID,
		ConstructorParams: initCreateMinerBytes(h.t, owner, worker, peer, multiaddrs, sealProofType),
	}
	rt.ExpectSend(builtin.InitActorAddr, builtin.MethodsInit.Exec, msgParams, value, createMinerRet, exitcode.Ok)
	ret := rt.Call(h.Actor.CreateMiner, createMinerParams).(*power.CreateMinerReturn)
	rt.Verify()

	assert.Equal(h.t, miner, ret.IDAddress)
	assert.Equal(h.t, robust, ret.RobustAddress)

	cl := h.getClaim(rt, miner)
	require.True(h.t, cl.RawBytePower.IsZero())
	require.True(h.t, cl.QualityAdjPower.IsZero())
	require.EqualValues(h.t, prevMinerCount+1, getState(rt).MinerCount)
}

func (h *spActorHarness) getClaim(rt *mock.Runtime, a addr.Address) *power.Claim {
	st := getState(rt)
	claim, found, err := st.GetClaim(rt.AdtStore(), a)
	require.NoError(h.t, err)
	require.True(h.t, found)
	return claim
}

func (h *spActorHarness) getEnrolledCronTicks(rt *mock.Runtime, epoch abi.ChainEpoch) []power.CronEvent {
	st := getState(rt)

	events, err := adt.AsMultimap(adt.AsStore(rt), st.CronEventQueue)
	require.NoError(h.t, err)

	evts, found, err := events.Get(abi.IntKey(int64(epoch)))
	require.NoError(h.t, err)
	require.True(h.t, found)

	cronEvt := &power.CronEvent{}
	var cronEvents []power.CronEvent
	err = evts.ForEach(cronEvt, func(i int64) error {
		cronEvents = append(cronEvents, *cronEvt)
		return nil
	})
	require.NoError(h.t, err)

	return cronEvents
}

func basicPowerSetup(t *testing.T) (*mock.Runtime, *spActorHarness) {
	builder := mock.NewBuilder(builtin.StoragePowerActorAddr).WithCaller(builtin.SystemActorAddr, builtin.SystemActorCodeID)
	rt := builder.Build(t)
	h := newHarness(t)
	h.constructAndVerify(rt)

	return rt, h
}

func (h *spActorHarness) createMinerBasic(rt *mock.Runtime, owner, worker, miner addr.Address) {
	label := strconv.Itoa(h.minerSeq)
	actrAddr := tutil.NewActorAddr(h.t, label)
	h.minerSeq += 1
	h.createMiner(rt, owner, worker, miner, actrAddr, abi.PeerID(label), nil, proof2KiB, big.Zero())
}

func (h *spActorHarness) createMinerWithProof(rt *mock.Runtime, owner, miner addr.Address, sealProof abi.RegisteredSealProof) {
	label := strconv.Itoa(h.minerSeq)
	actrAddr := tutil.NewActorAddr(h.t, label)
	h.minerSeq += 1
	h.createMiner(rt, owner, owner, miner, actrAddr, abi.PeerID(label), nil, sealProof, big.Zero())
}

func (h *spActorHarness) updateClaimedPower(rt *mock.Runtime, miner addr.Address, rawDelta, qaDelta abi.StoragePower) {
	prevCl := h.getClaim(rt, miner)

	params := power.UpdateClaimedPowerParams{
		RawByteDelta:         rawDelta,
		QualityAdjustedDelta: qaDelta,
	}
	rt.SetCaller(miner, builtin.StorageMinerActorCodeID)
	rt.ExpectValidateCallerType(builtin.StorageMinerActorCodeID)
	rt.Call(h.UpdateClaimedPower, &params)
	rt.Verify()

	cl := h.getClaim(rt, miner)
	require.True(h.t, big.Add(prevCl.RawBytePower, rawDelta).Equals(cl.RawBytePower))
	require.True(h.t, big.Add(prevCl.QualityAdjPower, qaDelta).Equals(cl.QualityAdjPower))
}

func (h *spActorHarness) updatePledgeTotal(rt *mock.Runtime, miner addr.Address, delta abi.TokenAmount) {
	st := getState(rt)
	prev := st.TotalPledgeCollateral

	rt.SetCaller(miner, builtin.StorageMinerActorCodeID)
	rt.ExpectValidateCallerType(builtin.StorageMinerActorCodeID)
	rt.Call(h.UpdatePledgeTotal, &delta)
	rt.Verify()

	st = getState(rt)
	require.EqualValues(h.t, big.Add(prev, delta), st.TotalPledgeCollateral)
}

func (h *spActorHarness) currentPowerTotal(rt *mock.Runtime) *power.CurrentTotalPowerReturn {
	rt.ExpectValidateCallerAny()
	ret := rt.Call(h.CurrentTotalPower, nil).(*power.CurrentTotalPowerReturn)
	rt.Verify()
	return ret
}

func (h *spActorHarness) enrollCronEvent(rt *mock.Runtime, miner addr.Address, epoch abi.ChainEpoch, payload []byte) {
	rt.ExpectValidateCallerType(builtin.StorageMinerActorCodeID)
	rt.SetCaller(miner, builtin.StorageMinerActorCodeID)
	rt.Call(h.Actor.EnrollCronEvent, &power.EnrollCronEventParams{
		EventEpoch: epoch,
		Payload:    payload,
	})
	rt.Verify()
}

func (h *spActorHarness) onConsensusFault(rt *mock.Runtime, minerAddr addr.Address, pledgeAmount *abi.TokenAmount) {
	st := getState(rt)
	prevMinerCount := st.MinerCount
	prevPledged := st.TotalPledgeCollateral

	rt.ExpectValidateCallerType(builtin.StorageMinerActorCodeID)
	rt.SetCaller(minerAddr, builtin.StorageMinerActorCodeID)
	rt.Call(h.Actor.OnConsensusFault, pledgeAmount)
	rt.Verify()

	// verify that miner claim is erased from state, miner is removed and pledged amount is updated
	st = getState(rt)
	_, found, err := st.GetClaim(rt.AdtStore(), minerAddr)
	require.NoError(h.t, err)
	require.False(h.t, found)

	require.EqualValues(h.t, prevMinerCount-1, st.MinerCount)
	require.EqualValues(h.t, big.Sub(prevPledged, *pledgeAmount), st.TotalPledgeCollateral)
}

func (h *spActorHarness) submitPoRepForBulkVerify(rt *mock.Runtime, minerAddr addr.Address, sealInfo *proof.SealVerifyInfo) {
	rt.ExpectValidateCallerType(builtin.StorageMinerActorCodeID)
	rt.SetCaller(minerAddr, builtin.StorageMinerActorCodeID)
	rt.Call(h.Actor.SubmitPoRepForBulkVerify, sealInfo)
	rt.Verify()
}

func (h *spActorHarness) expectTotalPowerEager(rt *mock.Runtime, expectedRaw, expectedQA abi.StoragePower) {
	st := getState(rt)

	rawBytePower, qualityAdjPower := power.CurrentTotalPower(st)
	assert.Equal(h.t, expectedRaw, rawBytePower)
	assert.Equal(h.t, expectedQA, qualityAdjPower)
}

func (h *spActorHarness) expectTotalPledgeEager(rt *mock.Runtime, expectedPledge abi.TokenAmount) {
	st := getState(rt)
	assert.Equal(h.t, expectedPledge, st.TotalPledgeCollateral)
}

func initCreateMinerBytes(t testing.TB, owner, worker addr.Address, peer abi.PeerID, multiaddrs []abi.Multiaddrs, sealProofType abi.RegisteredSealProof) []byte {
	params := &power.MinerConstructorParams{
		OwnerAddr:     owner,
		WorkerAddr:    worker,
		SealProofType: sealProofType,
		PeerId:        peer,
		Multiaddrs:    multiaddrs,
	}

	buf := new(bytes.Buffer)
	require.NoError(t, params.MarshalCBOR(buf))
	return buf.Bytes()
}

func getState(rt *mock.Runtime) *power.State {
	var st power.State
	rt.GetState(&st)
	return &st
}

func batchVerifyDefaultOutput(vis map[addr.Address][]proof.SealVerifyInfo) map[addr.Address][]bool {
	out := make(map[addr.Address][]bool)
	for k, v := range vis { //nolint:nomaprange
		validations := make([]bool, len(v))
		for i := range validations {
			validations[i] = true
		}
		out[k] = validations
	}
	return out
}
