package power

import (
	"reflect"

	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/go-state-types/exitcode"
	cid "github.com/ipfs/go-cid"
	errors "github.com/pkg/errors"
	"golang.org/x/xerrors"

	"github.com/worlddbs/power-actor/actors/util/adt"
	"github.com/worlddbs/power-actor/actors/util/smoothing"
)

// Starting point of the smoothed QA power estimate: 750,000 GiB, growing by 3,840 GiB per epoch.
var (
	InitialQAPowerEstimatePosition = big.Mul(big.NewInt(750_000), big.NewInt(1<<30))
	InitialQAPowerEstimateVelocity = big.Mul(big.NewInt(3_840), big.NewInt(1<<30))
)

type State struct {
	// Qualifying totals: only claims flagged AboveMinPower contribute.
	TotalRawBytePower abi.StoragePower
	// Committed totals: every claim contributes.
	TotalBytesCommitted   abi.StoragePower
	TotalQualityAdjPower  abi.StoragePower
	TotalQABytesCommitted abi.StoragePower
	TotalPledgeCollateral abi.TokenAmount

	// Snapshot taken by the last cron tick, read for the whole of the following epoch.
	ThisEpochRawBytePower     abi.StoragePower
	ThisEpochQualityAdjPower  abi.StoragePower
	ThisEpochPledgeCollateral abi.TokenAmount
	ThisEpochQAPowerSmoothed  smoothing.FilterEstimate

	MinerCount              int64
	MinerAboveMinPowerCount int64

	// HAMT[ChainEpoch]AMT[CronEvent]
	CronEventQueue cid.Cid
	// Lowest epoch that may still hold queued events.
	FirstCronEpoch abi.ChainEpoch

	// Shared across all miners, reset by each cron tick.
	ProveCommitsThisEpoch int64

	// HAMT[address]Claim
	Claims cid.Cid

	// HAMT[address]AMT[SealVerifyInfo], nil when nothing is pending.
	ProofValidationBatch *cid.Cid
}

type Claim struct {
	// Selects the floor a threshold policy applies to this miner.
	SealProofType abi.RegisteredSealProof

	RawBytePower    abi.StoragePower
	QualityAdjPower abi.StoragePower

	// Set when the claim met the threshold at its last evaluation.
	AboveMinPower bool
}

type CronEvent struct {
	MinerAddr       addr.Address
	CallbackPayload []byte
}

func ConstructState(store adt.Store) (*State, error) {
	claimsRoot, err := adt.StoreEmptyMap(store)
	if err != nil {
		return nil, xerrors.Errorf("failed to create claims map: %w", err)
	}
	queueRoot, err := adt.StoreEmptyMultimap(store)
	if err != nil {
		return nil, xerrors.Errorf("failed to create cron queue: %w", err)
	}

	zero := abi.NewStoragePower(0)
	return &State{
		TotalRawBytePower:         zero,
		TotalBytesCommitted:       zero,
		TotalQualityAdjPower:      zero,
		TotalQABytesCommitted:     zero,
		TotalPledgeCollateral:     abi.NewTokenAmount(0),
		ThisEpochRawBytePower:     zero,
		ThisEpochQualityAdjPower:  zero,
		ThisEpochPledgeCollateral: abi.NewTokenAmount(0),
		ThisEpochQAPowerSmoothed:  smoothing.NewEstimate(InitialQAPowerEstimatePosition, InitialQAPowerEstimateVelocity),
		CronEventQueue:            queueRoot,
		Claims:                    claimsRoot,
	}, nil
}

// Totals returns the committed aggregates consulted by threshold policies.
func (st *State) Totals() PowerTotals {
	return PowerTotals{
		RawBytesCommitted: st.TotalBytesCommitted,
		QABytesCommitted:  st.TotalQABytesCommitted,
		MinerCount:        st.MinerCount,
	}
}

// BelowMinimum reports whether too few miners meet the consensus minimum for it to be enforced.
func (st *State) BelowMinimum() bool {
	return st.MinerAboveMinPowerCount < ConsensusMinerMinMiners
}

// CurrentTotalPower returns the totals that count for consensus: the qualifying totals once
// enough miners qualify, and the committed totals before that.
func CurrentTotalPower(st *State) (abi.StoragePower, abi.StoragePower) {
	if st.BelowMinimum() {
		return st.TotalBytesCommitted, st.TotalQABytesCommitted
	}
	return st.TotalRawBytePower, st.TotalQualityAdjPower
}

// MinerNominalPowerMeetsConsensusMinimum decides election eligibility from the stored flag.
// While the network is below the miner-count minimum any non-zero claim is eligible.
func (st *State) MinerNominalPowerMeetsConsensusMinimum(s adt.Store, miner addr.Address) (bool, error) {
	claim, ok, err := st.GetClaim(s, miner)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, errors.Errorf("no claim for actor %v", miner)
	}
	switch {
	case claim.AboveMinPower:
		return true, nil
	case st.BelowMinimum():
		return claim.QualityAdjPower.GreaterThan(big.Zero()), nil
	default:
		return false, nil
	}
}

func (st *State) GetClaim(s adt.Store, miner addr.Address) (*Claim, bool, error) {
	claims, err := adt.AsMap(s, st.Claims)
	if err != nil {
		return nil, false, xerrors.Errorf("failed to load claims: %w", err)
	}
	return getClaim(claims, miner)
}

// CreateClaim inserts a zero claim for a new miner. The claim qualifies at once when the
// policy's floor for its proof type is zero.
func (st *State) CreateClaim(s adt.Store, policy ThresholdPolicy, miner addr.Address, sealProof abi.RegisteredSealProof) error {
	return st.updateClaims(s, func(claims *adt.Map) error {
		if _, exists, err := getClaim(claims, miner); err != nil {
			return err
		} else if exists {
			return exitcode.ErrIllegalArgument.Wrapf("miner %v already has a claim", miner)
		}

		minPower, err := policy.MinerMinPower(st.Totals(), sealProof)
		if err != nil {
			return exitcode.ErrIllegalArgument.Wrapf("could not get consensus miner min power: %w", err)
		}
		created := Claim{
			SealProofType:   sealProof,
			RawBytePower:    big.Zero(),
			QualityAdjPower: big.Zero(),
			AboveMinPower:   minPower.LessThanEqual(big.Zero()),
		}
		st.MinerCount++
		st.account(nil, &created)
		return setClaim(claims, miner, &created)
	})
}

// AddToClaim applies signed deltas to a miner's claim and re-evaluates its qualification
// against the totals as they stand after the update.
func (st *State) AddToClaim(s adt.Store, policy ThresholdPolicy, miner addr.Address, power abi.StoragePower, qapower abi.StoragePower) error {
	return st.updateClaims(s, func(claims *adt.Map) error {
		prev, found, err := getClaim(claims, miner)
		if err != nil {
			return err
		}
		if !found {
			return exitcode.ErrNotFound.Wrapf("no claim for actor %v", miner)
		}
		if power.IsZero() && qapower.IsZero() {
			return nil
		}

		next := Claim{
			SealProofType:   prev.SealProofType,
			RawBytePower:    big.Add(prev.RawBytePower, power),
			QualityAdjPower: big.Add(prev.QualityAdjPower, qapower),
		}
		if next.RawBytePower.LessThan(big.Zero()) || next.QualityAdjPower.LessThan(big.Zero()) {
			return exitcode.ErrIllegalArgument.Wrapf("claim for %v would become negative: raw %v, qa %v",
				miner, next.RawBytePower, next.QualityAdjPower)
		}

		after := st.Totals()
		after.RawBytesCommitted = big.Add(after.RawBytesCommitted, power)
		after.QABytesCommitted = big.Add(after.QABytesCommitted, qapower)
		minPower, err := policy.MinerMinPower(after, prev.SealProofType)
		if err != nil {
			return xerrors.Errorf("could not get consensus miner min power: %w", err)
		}
		next.AboveMinPower = next.QualityAdjPower.GreaterThanEqual(minPower)

		st.account(prev, &next)
		return setClaim(claims, miner, &next)
	})
}

// DeleteClaim removes a miner's claim and withdraws all of its power from the totals.
func (st *State) DeleteClaim(s adt.Store, miner addr.Address) error {
	return st.updateClaims(s, func(claims *adt.Map) error {
		prev, found, err := getClaim(claims, miner)
		if err != nil {
			return err
		}
		if !found {
			return exitcode.ErrNotFound.Wrapf("no claim for actor %v", miner)
		}
		st.account(prev, nil)
		st.MinerCount--
		if err := claims.Delete(abi.AddrKey(miner)); err != nil {
			return xerrors.Errorf("failed to delete claim for %v: %w", miner, err)
		}
		return nil
	})
}

// updateClaims loads the claims table, applies fn and stores the new root if fn succeeds.
func (st *State) updateClaims(s adt.Store, fn func(claims *adt.Map) error) error {
	claims, err := adt.AsMap(s, st.Claims)
	if err != nil {
		return xerrors.Errorf("failed to load claims: %w", err)
	}
	if err := fn(claims); err != nil {
		return err
	}
	if st.Claims, err = claims.Root(); err != nil {
		return xerrors.Errorf("failed to flush claims: %w", err)
	}
	if st.MinerAboveMinPowerCount < 0 || st.MinerCount < 0 {
		return exitcode.ErrIllegalState.Wrapf("negative miner count: %d total, %d above minimum",
			st.MinerCount, st.MinerAboveMinPowerCount)
	}
	return nil
}

// account replaces prev's contribution to the aggregates with next's. Either may be nil.
func (st *State) account(prev, next *Claim) {
	for _, c := range []struct {
		claim *Claim
		sign  func(a, b big.Int) big.Int
		count int64
	}{{prev, big.Sub, -1}, {next, big.Add, 1}} {
		if c.claim == nil {
			continue
		}
		st.TotalBytesCommitted = c.sign(st.TotalBytesCommitted, c.claim.RawBytePower)
		st.TotalQABytesCommitted = c.sign(st.TotalQABytesCommitted, c.claim.QualityAdjPower)
		if c.claim.AboveMinPower {
			st.TotalRawBytePower = c.sign(st.TotalRawBytePower, c.claim.RawBytePower)
			st.TotalQualityAdjPower = c.sign(st.TotalQualityAdjPower, c.claim.QualityAdjPower)
			st.MinerAboveMinPowerCount += c.count
		}
	}
}

func getClaim(claims *adt.Map, miner addr.Address) (*Claim, bool, error) {
	var out Claim
	found, err := claims.Get(abi.AddrKey(miner), &out)
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to get claim for address %v", miner)
	}
	if !found {
		return nil, false, nil
	}
	return &out, true, nil
}

func setClaim(claims *adt.Map, miner addr.Address, claim *Claim) error {
	if claim.RawBytePower.LessThan(big.Zero()) || claim.QualityAdjPower.LessThan(big.Zero()) {
		return xerrors.Errorf("refusing to store negative claim %v for %v", claim, miner)
	}
	if err := claims.Put(abi.AddrKey(miner), claim); err != nil {
		return xerrors.Errorf("failed to put claim for %v: %w", miner, err)
	}
	return nil
}

func (st *State) addPledgeTotal(amount abi.TokenAmount) error {
	total := big.Add(st.TotalPledgeCollateral, amount)
	if total.LessThan(big.Zero()) {
		return exitcode.ErrIllegalState.Wrapf("pledge total %v would go negative by %v", st.TotalPledgeCollateral, amount)
	}
	st.TotalPledgeCollateral = total
	return nil
}

// registerProveCommit counts one prove-commit against the shared per-epoch allowance.
func (st *State) registerProveCommit() error {
	if st.ProveCommitsThisEpoch >= MaxMinerProveCommitsPerEpoch {
		return ErrTooManyProveCommits.Wrapf("%d prove-commits already accepted this epoch", st.ProveCommitsThisEpoch)
	}
	st.ProveCommitsThisEpoch++
	return nil
}

func (st *State) updateSmoothedEstimate(delta abi.ChainEpoch) {
	filter := smoothing.LoadFilter(st.ThisEpochQAPowerSmoothed, smoothing.DefaultAlpha, smoothing.DefaultBeta)
	st.ThisEpochQAPowerSmoothed = filter.NextEstimate(st.ThisEpochQualityAdjPower, delta)
}

func (st *State) appendCronEvent(events *adt.Multimap, epoch abi.ChainEpoch, event *CronEvent) error {
	// Events enrolled for a past epoch pull the scan start back so the next tick finds them.
	if epoch < st.FirstCronEpoch {
		st.FirstCronEpoch = epoch
	}
	if err := events.Add(epochKey(epoch), event); err != nil {
		return xerrors.Errorf("failed to enqueue cron event for %v at epoch %d: %w", event.MinerAddr, epoch, err)
	}
	return nil
}

func loadCronEvents(events *adt.Multimap, epoch abi.ChainEpoch) ([]CronEvent, error) {
	var out []CronEvent
	var ev CronEvent
	err := events.ForEach(epochKey(epoch), &ev, func(int64) error {
		out = append(out, ev)
		return nil
	})
	return out, err
}

func epochKey(e abi.ChainEpoch) abi.Keyer {
	return abi.IntKey(int64(e))
}

func init() {
	// epochKey relies on ChainEpoch being a signed 64-bit integer.
	if reflect.TypeOf(abi.ChainEpoch(0)).Kind() != reflect.Int64 {
		panic("incorrect chain epoch encoding")
	}
}
