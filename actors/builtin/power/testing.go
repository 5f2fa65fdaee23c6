package power

import (
	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"

	"github.com/worlddbs/power-actor/actors/builtin"
	"github.com/worlddbs/power-actor/actors/runtime/proof"
	"github.com/worlddbs/power-actor/actors/util/adt"
)

type MinerCronEvent struct {
	Epoch   abi.ChainEpoch
	Payload []byte
}

type StateSummary struct {
	Crons  map[address.Address][]MinerCronEvent
	Claims map[address.Address]Claim
	Proofs map[address.Address][]proof.SealVerifyInfo
}

// CheckStateInvariants validates the aggregates, the claims table, the cron queue and the pending
// proof batch against one another. A nil policy means DefaultThresholdPolicy.
func CheckStateInvariants(st *State, store adt.Store, policy ThresholdPolicy) (*StateSummary, *builtin.MessageAccumulator) {
	acc := &builtin.MessageAccumulator{}
	if policy == nil {
		policy = DefaultThresholdPolicy
	}
	summary := &StateSummary{}

	for name, v := range map[string]big.Int{ // nolint:nomaprange
		"qualifying raw power": st.TotalRawBytePower,
		"qualifying qa power":  st.TotalQualityAdjPower,
		"committed raw power":  st.TotalBytesCommitted,
		"committed qa power":   st.TotalQABytesCommitted,
		"pledge collateral":    st.TotalPledgeCollateral,
	} {
		acc.Require(!v.LessThan(big.Zero()), "%s is negative: %v", name, v)
	}
	acc.Require(st.TotalRawBytePower.LessThanEqual(st.TotalBytesCommitted),
		"qualifying raw power %v exceeds committed %v", st.TotalRawBytePower, st.TotalBytesCommitted)
	acc.Require(st.TotalQualityAdjPower.LessThanEqual(st.TotalQABytesCommitted),
		"qualifying qa power %v exceeds committed %v", st.TotalQualityAdjPower, st.TotalQABytesCommitted)
	acc.Require(0 <= st.MinerAboveMinPowerCount && st.MinerAboveMinPowerCount <= st.MinerCount,
		"qualifying miner count %d outside [0, %d]", st.MinerAboveMinPowerCount, st.MinerCount)
	acc.Require(0 <= st.ProveCommitsThisEpoch && st.ProveCommitsThisEpoch <= MaxMinerProveCommitsPerEpoch,
		"prove-commits this epoch %d outside [0, %d]", st.ProveCommitsThisEpoch, MaxMinerProveCommitsPerEpoch)

	summary.Crons = checkCronQueue(st, store, acc)
	summary.Claims = checkClaims(st, store, policy, acc)
	summary.Proofs = checkProofBatch(st, store, summary.Claims, acc)
	return summary, acc
}

func checkCronQueue(st *State, store adt.Store, acc *builtin.MessageAccumulator) map[address.Address][]MinerCronEvent {
	out := map[address.Address][]MinerCronEvent{}
	queue, err := adt.AsMultimap(store, st.CronEventQueue)
	if err != nil {
		acc.Addf("error loading cron event queue: %v", err)
		return out
	}

	err = queue.ForAll(func(key string, events *adt.Array) error {
		parsed, err := abi.ParseIntKey(key)
		if err != nil {
			acc.Addf("cron queue key %x is not an epoch: %v", key, err)
			return nil
		}
		epoch := abi.ChainEpoch(parsed)
		acc.Require(epoch >= st.FirstCronEpoch, "cron events at epoch %d precede FirstCronEpoch %d", epoch, st.FirstCronEpoch)
		acc.Require(events.Length() > 0, "empty cron event array retained at epoch %d", epoch)

		var ev CronEvent
		return events.ForEach(&ev, func(int64) error {
			out[ev.MinerAddr] = append(out[ev.MinerAddr], MinerCronEvent{Epoch: epoch, Payload: ev.CallbackPayload})
			return nil
		})
	})
	acc.RequireNoError(err, "error iterating cron event queue")
	return out
}

// claimTally accumulates the aggregates the state records, recomputed from individual claims.
type claimTally struct {
	count, qualifying           int64
	committedRaw, committedQA   abi.StoragePower
	qualifyingRaw, qualifyingQA abi.StoragePower
}

func (t *claimTally) add(c *Claim) {
	t.count++
	t.committedRaw = big.Add(t.committedRaw, c.RawBytePower)
	t.committedQA = big.Add(t.committedQA, c.QualityAdjPower)
	if c.AboveMinPower {
		t.qualifying++
		t.qualifyingRaw = big.Add(t.qualifyingRaw, c.RawBytePower)
		t.qualifyingQA = big.Add(t.qualifyingQA, c.QualityAdjPower)
	}
}

func (t *claimTally) compare(st *State, acc *builtin.MessageAccumulator) {
	acc.Require(t.count == st.MinerCount, "%d claims but MinerCount is %d", t.count, st.MinerCount)
	acc.Require(t.qualifying == st.MinerAboveMinPowerCount,
		"%d claims above minimum but MinerAboveMinPowerCount is %d", t.qualifying, st.MinerAboveMinPowerCount)
	acc.Require(t.committedRaw.Equals(st.TotalBytesCommitted),
		"claims commit %v raw bytes, state records %v", t.committedRaw, st.TotalBytesCommitted)
	acc.Require(t.committedQA.Equals(st.TotalQABytesCommitted),
		"claims commit %v qa bytes, state records %v", t.committedQA, st.TotalQABytesCommitted)
	acc.Require(t.qualifyingRaw.Equals(st.TotalRawBytePower),
		"qualifying claims hold %v raw bytes, state records %v", t.qualifyingRaw, st.TotalRawBytePower)
	acc.Require(t.qualifyingQA.Equals(st.TotalQualityAdjPower),
		"qualifying claims hold %v qa bytes, state records %v", t.qualifyingQA, st.TotalQualityAdjPower)
}

func checkClaims(st *State, store adt.Store, policy ThresholdPolicy, acc *builtin.MessageAccumulator) map[address.Address]Claim {
	out := map[address.Address]Claim{}
	claims, err := adt.AsMap(store, st.Claims)
	if err != nil {
		acc.Addf("error loading power claims: %v", err)
		return out
	}

	tally := claimTally{
		committedRaw: big.Zero(), committedQA: big.Zero(),
		qualifyingRaw: big.Zero(), qualifyingQA: big.Zero(),
	}
	var claim Claim
	err = claims.ForEach(&claim, func(key string) error {
		miner, err := address.NewFromBytes([]byte(key))
		if err != nil {
			return err
		}
		out[miner] = claim
		tally.add(&claim)
		acc.Require(!claim.RawBytePower.LessThan(big.Zero()) && !claim.QualityAdjPower.LessThan(big.Zero()),
			"miner %v has negative power: raw %v, qa %v", miner, claim.RawBytePower, claim.QualityAdjPower)

		// Flags under a totals-dependent policy may lag the totals, so only static floors are rechecked.
		if policy.DependsOnTotals() {
			return nil
		}
		minPower, err := policy.MinerMinPower(st.Totals(), claim.SealProofType)
		if err != nil {
			acc.Addf("no consensus minimum for miner %v: %v", miner, err)
			return nil
		}
		acc.Require(claim.AboveMinPower == claim.QualityAdjPower.GreaterThanEqual(minPower),
			"miner %v with qa power %v against minimum %v has AboveMinPower %t",
			miner, claim.QualityAdjPower, minPower, claim.AboveMinPower)
		return nil
	})
	acc.RequireNoError(err, "error iterating power claims")
	tally.compare(st, acc)
	return out
}

func checkProofBatch(st *State, store adt.Store, claims map[address.Address]Claim, acc *builtin.MessageAccumulator) map[address.Address][]proof.SealVerifyInfo {
	if st.ProofValidationBatch == nil {
		return nil
	}
	out := map[address.Address][]proof.SealVerifyInfo{}
	batch, err := adt.AsMultimap(store, *st.ProofValidationBatch)
	if err != nil {
		acc.Addf("error loading proof validation batch: %v", err)
		return out
	}

	var batched int64
	err = batch.ForAll(func(key string, infos *adt.Array) error {
		miner, err := address.NewFromBytes([]byte(key))
		if err != nil {
			return err
		}
		// Proofs of a miner slashed after submitting stay queued until the next tick.
		claim, claimed := claims[miner]
		var info proof.SealVerifyInfo
		return infos.ForEach(&info, func(int64) error {
			acc.Require(!claimed || claim.SealProofType == info.SealProof,
				"miner %v batched proof type %d but claims %d", miner, info.SealProof, claim.SealProofType)
			out[miner] = append(out[miner], info)
			batched++
			return nil
		})
	})
	acc.RequireNoError(err, "error iterating proof validation batch")
	acc.Require(batched == st.ProveCommitsThisEpoch,
		"%d batched proofs but %d prove-commits counted this epoch", batched, st.ProveCommitsThisEpoch)
	return out
}
