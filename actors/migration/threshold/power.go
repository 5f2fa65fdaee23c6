package threshold

import (
	"context"

	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	cid "github.com/ipfs/go-cid"
	cbor "github.com/ipfs/go-ipld-cbor"
	"golang.org/x/xerrors"

	"github.com/worlddbs/power-actor/actors/builtin/power"
	"github.com/worlddbs/power-actor/actors/util/adt"
)

type claimsSummary struct {
	claims                         cid.Cid
	committedRawBytes              abi.StoragePower
	committedQABytes               abi.StoragePower
	rawPower                       abi.StoragePower
	qaPower                        abi.StoragePower
	claimsWithSufficientPowerCount int64
	minerCount                     int64
}

// PowerMigrator re-evaluates every claim against Policy.
type PowerMigrator struct {
	Policy power.ThresholdPolicy
}

func (m PowerMigrator) MigrateState(ctx context.Context, store cbor.IpldStore, head cid.Cid, _ MigrationInfo) (*StateMigrationResult, error) {
	var inState power.State
	if err := store.Get(ctx, head, &inState); err != nil {
		return nil, err
	}

	summary, err := m.RecomputeClaims(ctx, store, inState.Claims)
	if err != nil {
		return nil, err
	}
	if summary.minerCount != inState.MinerCount {
		return nil, xerrors.Errorf("found %d claims but state records %d miners", summary.minerCount, inState.MinerCount)
	}

	outState := inState
	outState.Claims = summary.claims
	outState.TotalRawBytePower = summary.rawPower
	outState.TotalBytesCommitted = summary.committedRawBytes
	outState.TotalQualityAdjPower = summary.qaPower
	outState.TotalQABytesCommitted = summary.committedQABytes
	outState.MinerAboveMinPowerCount = summary.claimsWithSufficientPowerCount

	newHead, err := store.Put(ctx, &outState)
	return &StateMigrationResult{
		NewHead:  newHead,
		Transfer: big.Zero(),
	}, err
}

// RecomputeClaims sets each claim's qualifying flag from the policy, consulting the committed totals
// of all claims, and sums the totals that follow from the new flags.
func (m PowerMigrator) RecomputeClaims(ctx context.Context, store cbor.IpldStore, claimsRoot cid.Cid) (*claimsSummary, error) {
	claims, err := adt.AsMap(adt.WrapStore(ctx, store), claimsRoot)
	if err != nil {
		return nil, err
	}

	summary := &claimsSummary{
		committedRawBytes: abi.NewStoragePower(0),
		committedQABytes:  abi.NewStoragePower(0),
		rawPower:          abi.NewStoragePower(0),
		qaPower:           abi.NewStoragePower(0),
	}

	// The committed totals are needed before any claim can be judged.
	var claim power.Claim
	if err := claims.ForEach(&claim, func(key string) error {
		summary.committedRawBytes = big.Add(summary.committedRawBytes, claim.RawBytePower)
		summary.committedQABytes = big.Add(summary.committedQABytes, claim.QualityAdjPower)
		summary.minerCount++
		return nil
	}); err != nil {
		return nil, err
	}
	totals := power.PowerTotals{
		RawBytesCommitted: summary.committedRawBytes,
		QABytesCommitted:  summary.committedQABytes,
		MinerCount:        summary.minerCount,
	}

	var changed []power.Claim
	var changedKeys []string
	if err := claims.ForEach(&claim, func(key string) error {
		minPower, err := m.Policy.MinerMinPower(totals, claim.SealProofType)
		if err != nil {
			return err
		}

		above := claim.QualityAdjPower.GreaterThanEqual(minPower)
		if above {
			summary.claimsWithSufficientPowerCount++
			summary.rawPower = big.Add(summary.rawPower, claim.RawBytePower)
			summary.qaPower = big.Add(summary.qaPower, claim.QualityAdjPower)
		}
		if above != claim.AboveMinPower {
			updated := claim
			updated.AboveMinPower = above
			changed = append(changed, updated)
			changedKeys = append(changedKeys, key)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	for i, key := range changedKeys {
		a, err := addr.NewFromBytes([]byte(key))
		if err != nil {
			return nil, err
		}
		if err := claims.Put(abi.AddrKey(a), &changed[i]); err != nil {
			return nil, xerrors.Errorf("failed to update claim for %s: %w", a, err)
		}
	}

	summary.claims, err = claims.Root()
	if err != nil {
		return nil, err
	}
	return summary, nil
}
