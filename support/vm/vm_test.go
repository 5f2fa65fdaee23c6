package vm_test

import (
	"context"
	"strings"
	"testing"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worlddbs/power-actor/actors/builtin"
	"github.com/worlddbs/power-actor/actors/builtin/power"
	"github.com/worlddbs/power-actor/actors/runtime/proof"
	"github.com/worlddbs/power-actor/support/ipld"
	tutil "github.com/worlddbs/power-actor/support/testing"
	vm "github.com/worlddbs/power-actor/support/vm"
)

const smallProof = abi.RegisteredSealProof_StackedDrg2KiBV1
const mediumProof = abi.RegisteredSealProof_StackedDrg8MiBV1

var mib = int64(1 << 20)

func TestCreateMinerAndClaimPower(t *testing.T) {
	ctx := context.Background()
	v := vm.NewVMWithSingletons(ctx, t, ipld.NewBlockStoreInMemory())
	addrs := vm.CreateAccounts(ctx, t, v, 2, big.Mul(big.NewInt(1000), vm.FIL), 93837778)
	owner, worker := addrs[0], addrs[1]

	value := big.Mul(big.NewInt(10), vm.FIL)
	ret := vm.CreateMiner(t, v, owner, worker, smallProof, value)
	minerID := ret.IDAddress
	assert.Equal(t, address.Actor, ret.RobustAddress.Protocol())

	vm.ExpectInvocation{
		To:     builtin.StoragePowerActorAddr,
		Method: builtin.MethodsPower.CreateMiner,
		SubInvocations: []vm.ExpectInvocation{{
			To:     builtin.InitActorAddr,
			Method: builtin.MethodsInit.Exec,
			SubInvocations: []vm.ExpectInvocation{{
				To:     minerID,
				Method: builtin.MethodConstructor,
				Value:  &value,
			}},
		}},
	}.Matches(t, v.LastInvocation())

	// the value travelled to the miner
	minerActor, found, err := v.GetActor(minerID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, value, minerActor.Balance)
	assert.Equal(t, builtin.StorageMinerActorCodeID, minerActor.Code)

	// the robust address resolves to the same actor
	resolved, ok := v.NormalizeAddress(ret.RobustAddress)
	require.True(t, ok)
	assert.Equal(t, minerID, resolved)

	// a 2KiB miner meets its zero floor as soon as it exists
	claim := vm.MinerClaim(t, v, minerID)
	assert.True(t, claim.AboveMinPower)
	assert.Equal(t, smallProof, claim.SealProofType)

	vm.ClaimPower(t, v, worker, minerID, abi.NewStoragePower(2048), abi.NewStoragePower(4096))
	raw, qa := vm.MinerPower(t, v, minerID)
	assert.Equal(t, abi.NewStoragePower(2048), raw)
	assert.Equal(t, abi.NewStoragePower(4096), qa)

	stats := vm.GetNetworkStats(t, v)
	assert.Equal(t, int64(1), stats.MinerCount)
	assert.Equal(t, int64(1), stats.MinerAboveMinPowerCount)
	assert.Equal(t, abi.NewStoragePower(4096), stats.TotalQualityAdjPower)
	assert.True(t, stats.BelowMinimum)

	vm.CheckStateInvariants(t, v, nil)
}

func TestOnlyControllersDriveMiner(t *testing.T) {
	ctx := context.Background()
	v := vm.NewVMWithSingletons(ctx, t, ipld.NewBlockStoreInMemory())
	addrs := vm.CreateAccounts(ctx, t, v, 3, big.Mul(big.NewInt(1000), vm.FIL), 93837778)
	owner, worker, stranger := addrs[0], addrs[1], addrs[2]
	minerID := vm.CreateMiner(t, v, owner, worker, smallProof, big.Zero()).IDAddress

	_, code := v.ApplyMessage(stranger, minerID, big.Zero(), vm.MethodsMinerStub.UpdateClaimedPower, &power.UpdateClaimedPowerParams{
		RawByteDelta:         abi.NewStoragePower(1),
		QualityAdjustedDelta: abi.NewStoragePower(1),
	})
	assert.Equal(t, exitcode.ErrForbidden, code)

	// accounts cannot call the power actor's miner-only methods directly
	_, code = v.ApplyMessage(owner, builtin.StoragePowerActorAddr, big.Zero(), builtin.MethodsPower.UpdateClaimedPower, &power.UpdateClaimedPowerParams{
		RawByteDelta:         abi.NewStoragePower(1),
		QualityAdjustedDelta: abi.NewStoragePower(1),
	})
	assert.Equal(t, exitcode.ErrForbidden, code)

	raw, _ := vm.MinerPower(t, v, minerID)
	assert.True(t, raw.IsZero())
	vm.CheckStateInvariants(t, v, nil)
}

func TestFailedMessageRollsBack(t *testing.T) {
	ctx := context.Background()
	v := vm.NewVMWithSingletons(ctx, t, ipld.NewBlockStoreInMemory())
	addrs := vm.CreateAccounts(ctx, t, v, 1, big.Mul(big.NewInt(1000), vm.FIL), 93837778)
	owner := addrs[0]
	minerID := vm.CreateMiner(t, v, owner, owner, smallProof, big.Zero()).IDAddress
	vm.ClaimPower(t, v, owner, minerID, abi.NewStoragePower(2048), abi.NewStoragePower(2048))

	var before power.State
	require.NoError(t, v.GetState(builtin.StoragePowerActorAddr, &before))

	// removing more power than was claimed fails inside the power actor
	_, code := v.ApplyMessage(owner, minerID, big.Zero(), vm.MethodsMinerStub.UpdateClaimedPower, &power.UpdateClaimedPowerParams{
		RawByteDelta:         abi.NewStoragePower(-4096),
		QualityAdjustedDelta: abi.NewStoragePower(-4096),
	})
	assert.Equal(t, exitcode.ErrIllegalArgument, code)

	var after power.State
	require.NoError(t, v.GetState(builtin.StoragePowerActorAddr, &after))
	assert.Equal(t, before, after)

	// the abort was recorded
	requireLogContains(t, v, "abort during actor execution")
	vm.CheckStateInvariants(t, v, nil)
}

func TestProveCommitThroughCron(t *testing.T) {
	ctx := context.Background()
	bs := ipld.NewMetricsBlockStore(ipld.NewBlockStoreInMemory())
	v := vm.NewVMWithSingletons(ctx, t, bs)
	v.SetStatsSource(bs)
	addrs := vm.CreateAccounts(ctx, t, v, 1, big.Mul(big.NewInt(1000), vm.FIL), 93837778)
	owner := addrs[0]
	minerID := vm.CreateMiner(t, v, owner, owner, smallProof, big.Zero()).IDAddress

	vm.SubmitProof(t, v, owner, minerID, smallProof, 2)
	vm.SubmitProof(t, v, owner, minerID, smallProof, 1)
	vm.SubmitProof(t, v, owner, minerID, smallProof, 2)

	var st power.State
	require.NoError(t, v.GetState(builtin.StoragePowerActorAddr, &st))
	assert.Equal(t, int64(3), st.ProveCommitsThisEpoch)

	vm.TickCron(t, v)

	vm.ExpectInvocation{
		To:     builtin.CronActorAddr,
		Method: builtin.MethodsCron.EpochTick,
		SubInvocations: []vm.ExpectInvocation{{
			To:     builtin.StoragePowerActorAddr,
			Method: builtin.MethodsPower.OnEpochTickEnd,
			SubInvocations: []vm.ExpectInvocation{{
				To:     minerID,
				Method: builtin.MethodsMiner.ConfirmSectorProofsValid,
				Params: vm.ExpectObject(&builtin.ConfirmSectorProofsParams{Sectors: []abi.SectorNumber{1, 2}}),
				SubInvocations: []vm.ExpectInvocation{{
					To:     builtin.StoragePowerActorAddr,
					Method: builtin.MethodsPower.UpdateClaimedPower,
				}},
			}},
		}},
	}.Matches(t, v.LastInvocation())

	// the duplicate confirmation activates two sectors, not three
	raw, qa := vm.MinerPower(t, v, minerID)
	assert.Equal(t, abi.NewStoragePower(2*2048), raw)
	assert.Equal(t, abi.NewStoragePower(2*2048), qa)
	proven, err := vm.GetMinerState(t, v, minerID).ProvenSectors.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), proven)

	stats := vm.GetNetworkStats(t, v)
	assert.Equal(t, abi.NewStoragePower(2*2048), stats.ThisEpochRawBytePower)

	require.NoError(t, v.GetState(builtin.StoragePowerActorAddr, &st))
	assert.Nil(t, st.ProofValidationBatch)
	assert.Equal(t, int64(0), st.ProveCommitsThisEpoch)

	// the store wrapper saw the work
	assert.Greater(t, v.StoreWrites(), uint64(0))
	callStats := v.GetCallStats()
	assert.Contains(t, callStats, vm.MethodKey{Code: builtin.CronActorCodeID, Method: builtin.MethodsCron.EpochTick})

	vm.CheckStateInvariants(t, v, nil)
}

func TestRejectedSealsAreNotConfirmed(t *testing.T) {
	ctx := context.Background()
	v := vm.NewVMWithSingletons(ctx, t, ipld.NewBlockStoreInMemory())
	addrs := vm.CreateAccounts(ctx, t, v, 1, big.Mul(big.NewInt(1000), vm.FIL), 93837778)
	owner := addrs[0]
	minerID := vm.CreateMiner(t, v, owner, owner, smallProof, big.Zero()).IDAddress

	v.SetSealVerifier(vm.RejectSectors(map[address.Address][]abi.SectorNumber{minerID: {2}}))
	vm.SubmitProof(t, v, owner, minerID, smallProof, 1)
	vm.SubmitProof(t, v, owner, minerID, smallProof, 2)
	vm.TickCron(t, v)

	raw, _ := vm.MinerPower(t, v, minerID)
	assert.Equal(t, abi.NewStoragePower(2048), raw)
	st := vm.GetMinerState(t, v, minerID)
	isSet, err := st.ProvenSectors.IsSet(2)
	require.NoError(t, err)
	assert.False(t, isSet)
	vm.CheckStateInvariants(t, v, nil)
}

func TestProveCommitRateLimit(t *testing.T) {
	defer func(prev int64) { power.MaxMinerProveCommitsPerEpoch = prev }(power.MaxMinerProveCommitsPerEpoch)
	power.MaxMinerProveCommitsPerEpoch = 2

	ctx := context.Background()
	v := vm.NewVMWithSingletons(ctx, t, ipld.NewBlockStoreInMemory())
	addrs := vm.CreateAccounts(ctx, t, v, 2, big.Mul(big.NewInt(1000), vm.FIL), 93837778)
	minerA := vm.CreateMiner(t, v, addrs[0], addrs[0], smallProof, big.Zero()).IDAddress
	minerB := vm.CreateMiner(t, v, addrs[1], addrs[1], smallProof, big.Zero()).IDAddress

	vm.SubmitProof(t, v, addrs[0], minerA, smallProof, 1)
	vm.SubmitProof(t, v, addrs[1], minerB, smallProof, 1)

	// the allowance is shared by all miners
	_, code := v.ApplyMessage(addrs[0], minerA, big.Zero(), vm.MethodsMinerStub.SubmitProof, &proof.SealVerifyInfo{
		SealProof:   smallProof,
		SectorID:    abi.SectorID{Number: 3},
		SealedCID:   tutil.MakeCID("sealed-3", &tutil.SealedCIDPrefix),
		UnsealedCID: tutil.MakeCID("unsealed-3", &tutil.UnsealedCIDPrefix),
	})
	assert.Equal(t, power.ErrTooManyProveCommits, code)

	// and is restored by the next tick
	vm.TickCron(t, v)
	v, err := v.WithEpoch(1)
	require.NoError(t, err)
	vm.SubmitProof(t, v, addrs[0], minerA, smallProof, 2)
	vm.CheckStateInvariants(t, v, nil)
}

func TestDeferredCronCallbacks(t *testing.T) {
	ctx := context.Background()
	v := vm.NewVMWithSingletons(ctx, t, ipld.NewBlockStoreInMemory())
	addrs := vm.CreateAccounts(ctx, t, v, 2, big.Mul(big.NewInt(1000), vm.FIL), 93837778)
	minerA := vm.CreateMiner(t, v, addrs[0], addrs[0], smallProof, big.Zero()).IDAddress
	minerB := vm.CreateMiner(t, v, addrs[1], addrs[1], smallProof, big.Zero()).IDAddress

	enroll(t, v, addrs[0], minerA, 5, []byte("a"))
	enroll(t, v, addrs[1], minerB, 5, []byte("b"))
	vm.ApplyOk(t, v, addrs[0], minerA, big.Zero(), vm.MethodsMinerStub.Script, &vm.ScriptParams{FailCron: true})

	v = vm.AdvanceTillEpoch(t, v, 5)
	assert.Equal(t, uint64(0), vm.GetMinerState(t, v, minerA).CronCalls)
	assert.Equal(t, uint64(0), vm.GetMinerState(t, v, minerB).CronCalls)

	vm.TickCron(t, v)

	// a failing callback neither stops the others nor costs the miner its claim
	requireLogContains(t, v, "OnDeferredCronEvent failed for miner "+minerA.String())
	assert.Equal(t, uint64(0), vm.GetMinerState(t, v, minerA).CronCalls)
	stB := vm.GetMinerState(t, v, minerB)
	assert.Equal(t, uint64(1), stB.CronCalls)
	assert.Equal(t, []byte("b"), stB.LastCronPayload)
	vm.MinerClaim(t, v, minerA)

	// the failed event was consumed
	v, err := v.WithEpoch(6)
	require.NoError(t, err)
	vm.ApplyOk(t, v, addrs[0], minerA, big.Zero(), vm.MethodsMinerStub.Script, &vm.ScriptParams{})
	vm.TickCron(t, v)
	assert.Equal(t, uint64(0), vm.GetMinerState(t, v, minerA).CronCalls)

	vm.CheckStateInvariants(t, v, nil)
}

func TestRecurringCron(t *testing.T) {
	ctx := context.Background()
	v := vm.NewVMWithSingletons(ctx, t, ipld.NewBlockStoreInMemory())
	addrs := vm.CreateAccounts(ctx, t, v, 1, big.Mul(big.NewInt(1000), vm.FIL), 93837778)
	minerID := vm.CreateMiner(t, v, addrs[0], addrs[0], smallProof, big.Zero()).IDAddress

	vm.ApplyOk(t, v, addrs[0], minerID, big.Zero(), vm.MethodsMinerStub.Script, &vm.ScriptParams{CronInterval: 2})
	enroll(t, v, addrs[0], minerID, 1, []byte("period"))

	// callbacks at 1, 3 and 5
	v = vm.AdvanceTillEpoch(t, v, 6)
	st := vm.GetMinerState(t, v, minerID)
	assert.Equal(t, uint64(3), st.CronCalls)
	assert.Equal(t, []byte("period"), st.LastCronPayload)

	var pst power.State
	require.NoError(t, v.GetState(builtin.StoragePowerActorAddr, &pst))
	assert.Equal(t, abi.ChainEpoch(6), pst.FirstCronEpoch)
	vm.CheckStateInvariants(t, v, nil)
}

func TestConsensusMinimumWithDefaultMinerCount(t *testing.T) {
	ctx := context.Background()
	v := vm.NewVMWithSingletons(ctx, t, ipld.NewBlockStoreInMemory())
	addrs := vm.CreateAccounts(ctx, t, v, 11, big.Mul(big.NewInt(1000), vm.FIL), 93837778)

	floor := abi.NewStoragePower(16 * mib)
	small := abi.NewStoragePower(8 * mib)
	miners := make([]address.Address, len(addrs))
	for i, a := range addrs {
		miners[i] = vm.CreateMiner(t, v, a, a, mediumProof, big.Zero()).IDAddress
	}

	// three miners at the floor, the rest below it
	for i, m := range miners {
		p := small
		if i < 3 {
			p = floor
		}
		vm.ClaimPower(t, v, addrs[i], m, p, p)
	}

	committed := big.Add(big.Mul(floor, big.NewInt(3)), big.Mul(small, big.NewInt(8)))
	total := currentTotalPower(t, v, addrs[0])
	assert.True(t, total.BelowMinimum)
	assert.Equal(t, committed, total.RawBytePower)
	assert.Equal(t, committed, total.QualityAdjPower)
	for _, m := range miners {
		eligible, err := minerMeetsMinimum(t, v, m)
		require.NoError(t, err)
		assert.True(t, eligible)
	}

	// a fourth qualifying miner switches to counting only qualifying power
	vm.ClaimPower(t, v, addrs[3], miners[3], small, small)
	total = currentTotalPower(t, v, addrs[0])
	assert.False(t, total.BelowMinimum)
	assert.Equal(t, big.Mul(floor, big.NewInt(4)), total.RawBytePower)
	eligible, err := minerMeetsMinimum(t, v, miners[10])
	require.NoError(t, err)
	assert.False(t, eligible)

	stats := vm.GetNetworkStats(t, v)
	assert.Equal(t, int64(11), stats.MinerCount)
	assert.Equal(t, int64(4), stats.MinerAboveMinPowerCount)
	assert.Equal(t, big.Add(committed, small), stats.TotalBytesCommitted)

	// losing a qualifying miner drops back below the minimum
	vm.ApplyOk(t, v, addrs[0], miners[0], big.Zero(), vm.MethodsMinerStub.ReportConsensusFault, &zero)
	total = currentTotalPower(t, v, addrs[1])
	assert.True(t, total.BelowMinimum)
	assert.Equal(t, big.Sub(big.Add(committed, small), floor), total.RawBytePower)

	vm.CheckStateInvariants(t, v, nil)
}

func TestBelowMinimumUntilEleventhMinerQualifies(t *testing.T) {
	defer func(prev int64) { power.ConsensusMinerMinMiners = prev }(power.ConsensusMinerMinMiners)
	power.ConsensusMinerMinMiners = 11

	ctx := context.Background()
	v := vm.NewVMWithSingletons(ctx, t, ipld.NewBlockStoreInMemory())
	addrs := vm.CreateAccounts(ctx, t, v, 11, big.Mul(big.NewInt(1000), vm.FIL), 93837778)
	miners := make([]address.Address, len(addrs))
	for i, a := range addrs {
		miners[i] = vm.CreateMiner(t, v, a, a, mediumProof, big.Zero()).IDAddress
	}

	justAbove := big.Add(abi.NewStoragePower(16*mib), big.NewInt(1))
	for i := 0; i < 10; i++ {
		vm.ClaimPower(t, v, addrs[i], miners[i], justAbove, justAbove)

		total := currentTotalPower(t, v, addrs[0])
		assert.True(t, total.BelowMinimum, "%d qualifying miners", i+1)
		assert.Equal(t, big.Mul(justAbove, big.NewInt(int64(i+1))), total.QualityAdjPower)
		assert.Equal(t, int64(i+1), vm.GetNetworkStats(t, v).MinerAboveMinPowerCount)
	}

	vm.ClaimPower(t, v, addrs[10], miners[10], justAbove, justAbove)
	total := currentTotalPower(t, v, addrs[0])
	assert.False(t, total.BelowMinimum)
	assert.Equal(t, big.Mul(justAbove, big.NewInt(11)), total.QualityAdjPower)
	assert.Equal(t, int64(11), vm.GetNetworkStats(t, v).MinerAboveMinPowerCount)

	vm.CheckStateInvariants(t, v, nil)
}

func TestProofsSubmittedDuringTickCountTowardsNextEpoch(t *testing.T) {
	defer func(prev int64) { power.MaxMinerProveCommitsPerEpoch = prev }(power.MaxMinerProveCommitsPerEpoch)
	power.MaxMinerProveCommitsPerEpoch = 2

	ctx := context.Background()
	v := vm.NewVMWithSingletons(ctx, t, ipld.NewBlockStoreInMemory())
	addrs := vm.CreateAccounts(ctx, t, v, 1, big.Mul(big.NewInt(1000), vm.FIL), 93837778)
	owner := addrs[0]
	minerID := vm.CreateMiner(t, v, owner, owner, smallProof, big.Zero()).IDAddress

	vm.ApplyOk(t, v, owner, minerID, big.Zero(), vm.MethodsMinerStub.Script, &vm.ScriptParams{ProveOnCron: true})
	enroll(t, v, owner, minerID, 1, []byte("prove"))
	vm.SubmitProof(t, v, owner, minerID, smallProof, 1)

	v, err := v.WithEpoch(1)
	require.NoError(t, err)
	vm.TickCron(t, v)

	// the callback's proof waits in a new batch and is charged to it
	var st power.State
	require.NoError(t, v.GetState(builtin.StoragePowerActorAddr, &st))
	assert.Equal(t, int64(1), st.ProveCommitsThisEpoch)
	assert.NotNil(t, st.ProofValidationBatch)
	raw, _ := vm.MinerPower(t, v, minerID)
	assert.Equal(t, abi.NewStoragePower(2048), raw)
	vm.CheckStateInvariants(t, v, nil)

	v, err = v.WithEpoch(2)
	require.NoError(t, err)
	vm.SubmitProof(t, v, owner, minerID, smallProof, 2)
	_, code := v.ApplyMessage(owner, minerID, big.Zero(), vm.MethodsMinerStub.SubmitProof, &proof.SealVerifyInfo{
		SealProof:   smallProof,
		SectorID:    abi.SectorID{Number: 3},
		SealedCID:   tutil.MakeCID("sealed-3", &tutil.SealedCIDPrefix),
		UnsealedCID: tutil.MakeCID("unsealed-3", &tutil.UnsealedCIDPrefix),
	})
	assert.Equal(t, power.ErrTooManyProveCommits, code)

	vm.TickCron(t, v)
	proven, err := vm.GetMinerState(t, v, minerID).ProvenSectors.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), proven)
	raw, _ = vm.MinerPower(t, v, minerID)
	assert.Equal(t, abi.NewStoragePower(3*2048), raw)
	vm.CheckStateInvariants(t, v, nil)
}

func TestConsensusFaultRemovesMiner(t *testing.T) {
	ctx := context.Background()
	v := vm.NewVMWithSingletons(ctx, t, ipld.NewBlockStoreInMemory())
	addrs := vm.CreateAccounts(ctx, t, v, 2, big.Mul(big.NewInt(1000), vm.FIL), 93837778)
	minerA := vm.CreateMiner(t, v, addrs[0], addrs[0], smallProof, big.Zero()).IDAddress
	minerB := vm.CreateMiner(t, v, addrs[1], addrs[1], smallProof, big.Zero()).IDAddress

	pledge := abi.NewTokenAmount(1000)
	vm.ApplyOk(t, v, addrs[0], minerA, big.Zero(), vm.MethodsMinerStub.UpdatePledge, &pledge)
	vm.ApplyOk(t, v, addrs[1], minerB, big.Zero(), vm.MethodsMinerStub.UpdatePledge, &pledge)
	vm.ClaimPower(t, v, addrs[0], minerA, abi.NewStoragePower(2048), abi.NewStoragePower(2048))
	enroll(t, v, addrs[0], minerA, 2, nil)
	vm.SubmitProof(t, v, addrs[0], minerA, smallProof, 7)

	vm.ApplyOk(t, v, addrs[0], minerA, big.Zero(), vm.MethodsMinerStub.ReportConsensusFault, &pledge)

	stats := vm.GetNetworkStats(t, v)
	assert.Equal(t, int64(1), stats.MinerCount)
	assert.Equal(t, pledge, stats.TotalPledgeCollateral)
	assert.True(t, stats.TotalBytesCommitted.IsZero())

	// the slashed miner can no longer act through the power actor
	_, code := v.ApplyMessage(addrs[0], minerA, big.Zero(), vm.MethodsMinerStub.UpdatePledge, &pledge)
	assert.Equal(t, exitcode.ErrNotFound, code)

	// its queued proof and cron event are skipped
	vm.TickCron(t, v)
	requireLogContains(t, v, "skipping batch verifies for unknown miner")
	v = vm.AdvanceTillEpoch(t, v, 3)
	assert.Equal(t, uint64(0), vm.GetMinerState(t, v, minerA).CronCalls)
	vm.CheckStateInvariants(t, v, nil)
}

func TestFractionOfTotalPolicyInVM(t *testing.T) {
	ctx := context.Background()
	policy := power.PolicyV2FractionOfTotal{Numerator: 1, Denominator: 4}
	v := vm.NewVMWithPolicy(ctx, t, ipld.NewBlockStoreInMemory(), policy)
	addrs := vm.CreateAccounts(ctx, t, v, 2, big.Mul(big.NewInt(1000), vm.FIL), 93837778)
	minerA := vm.CreateMiner(t, v, addrs[0], addrs[0], smallProof, big.Zero()).IDAddress
	minerB := vm.CreateMiner(t, v, addrs[1], addrs[1], smallProof, big.Zero()).IDAddress

	vm.ClaimPower(t, v, addrs[0], minerA, abi.NewStoragePower(100), abi.NewStoragePower(100))
	vm.ClaimPower(t, v, addrs[1], minerB, abi.NewStoragePower(1000), abi.NewStoragePower(1000))

	// B's update raised the bar to a quarter of 1100 but A is only re-evaluated on its own update
	assert.True(t, vm.MinerClaim(t, v, minerB).AboveMinPower)
	assert.True(t, vm.MinerClaim(t, v, minerA).AboveMinPower)

	vm.ClaimPower(t, v, addrs[0], minerA, abi.NewStoragePower(1), abi.NewStoragePower(1))
	assert.False(t, vm.MinerClaim(t, v, minerA).AboveMinPower)
	vm.CheckStateInvariants(t, v, policy)
}

func TestImplicitAccountCreation(t *testing.T) {
	ctx := context.Background()
	v := vm.NewVMWithSingletons(ctx, t, ipld.NewBlockStoreInMemory())
	addrs := vm.CreateAccounts(ctx, t, v, 1, big.Mul(big.NewInt(1000), vm.FIL), 93837778)

	// sending value to an unknown key address creates an account for it
	recipient := tutil.NewBLSAddr(t, 555)
	value := big.Mul(big.NewInt(3), vm.FIL)
	vm.ApplyOk(t, v, addrs[0], recipient, value, builtin.MethodSend, nil)

	act, found, err := v.GetActor(recipient)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, builtin.AccountActorCodeID, act.Code)
	assert.Equal(t, value, act.Balance)

	// and the new account can create a miner
	minerID := vm.CreateMiner(t, v, recipient, recipient, smallProof, big.Zero()).IDAddress
	vm.MinerClaim(t, v, minerID)
	vm.CheckStateInvariants(t, v, nil)
}

//
// helpers
//

var zero = big.Zero()

func enroll(t *testing.T, v *vm.VM, controller, miner address.Address, epoch abi.ChainEpoch, payload []byte) {
	vm.ApplyOk(t, v, controller, miner, big.Zero(), vm.MethodsMinerStub.EnrollCronEvent, &power.EnrollCronEventParams{
		EventEpoch: epoch,
		Payload:    payload,
	})
}

func currentTotalPower(t *testing.T, v *vm.VM, from address.Address) *power.CurrentTotalPowerReturn {
	ret := vm.ApplyOk(t, v, from, builtin.StoragePowerActorAddr, big.Zero(), builtin.MethodsPower.CurrentTotalPower, nil)
	total, ok := ret.(*power.CurrentTotalPowerReturn)
	require.True(t, ok)
	return total
}

func minerMeetsMinimum(t *testing.T, v *vm.VM, miner address.Address) (bool, error) {
	var st power.State
	require.NoError(t, v.GetState(builtin.StoragePowerActorAddr, &st))
	return st.MinerNominalPowerMeetsConsensusMinimum(v.Store(), miner)
}

func requireLogContains(t *testing.T, v *vm.VM, substr string) {
	for _, line := range v.GetLogs() {
		if strings.Contains(line, substr) {
			return
		}
	}
	require.Failf(t, "missing log", "no log line contains %q:\n%s", substr, strings.Join(v.GetLogs(), "\n"))
}
