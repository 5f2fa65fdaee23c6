package threshold

import (
	"context"

	address "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/ipfs/go-cid"
	cbor "github.com/ipfs/go-ipld-cbor"
	"golang.org/x/xerrors"

	"github.com/worlddbs/power-actor/actors/builtin"
	"github.com/worlddbs/power-actor/actors/builtin/power"
	"github.com/worlddbs/power-actor/actors/states"
	"github.com/worlddbs/power-actor/actors/util/adt"
)

// Config parameterizes a state tree migration
type Config struct {
	// Policy the power actor runs under after the migration.
	Policy power.ThresholdPolicy
}

func DefaultConfig() Config {
	return Config{Policy: power.DefaultThresholdPolicy}
}

type MigrationInfo struct {
	address address.Address // actor's address
	balance abi.TokenAmount // actor's balance
}

type StateMigrationResult struct {
	NewHead  cid.Cid
	Transfer abi.TokenAmount
}

type StateMigration interface {
	// Loads an actor's state from an input store and writes new state to an output store.
	// Returns the new state head CID.
	MigrateState(ctx context.Context, store cbor.IpldStore, head cid.Cid, info MigrationInfo) (result *StateMigrationResult, err error)
}

// MigrateStateTree switches the state tree to a new threshold policy. Every claim's qualifying flag
// and the qualifying totals are recomputed so the power actor can run under the new policy at once.
func MigrateStateTree(ctx context.Context, store cbor.IpldStore, stateRootIn cid.Cid, cfg Config) (cid.Cid, error) {
	if cfg.Policy == nil {
		return cid.Undef, xerrors.Errorf("no threshold policy to migrate to")
	}

	adtStore := adt.WrapStore(ctx, store)
	actorsIn, err := states.LoadTree(adtStore, stateRootIn)
	if err != nil {
		return cid.Undef, err
	}

	powerActorIn, found, err := actorsIn.GetActor(builtin.StoragePowerActorAddr)
	if err != nil {
		return cid.Undef, err
	}
	if !found {
		return cid.Undef, xerrors.Errorf("could not find power actor in state")
	}
	var migration StateMigration = PowerMigrator{Policy: cfg.Policy}
	powerResult, err := migration.MigrateState(ctx, store, powerActorIn.Head, MigrationInfo{
		address: builtin.StoragePowerActorAddr,
		balance: powerActorIn.Balance,
	})
	if err != nil {
		return cid.Undef, xerrors.Errorf("power migration failed: %w", err)
	}
	powerActorOut := states.Actor{
		Code:       builtin.StoragePowerActorCodeID,
		Head:       powerResult.NewHead,
		CallSeqNum: powerActorIn.CallSeqNum,
		Balance:    big.Add(powerActorIn.Balance, powerResult.Transfer),
	}
	if err := actorsIn.SetActor(builtin.StoragePowerActorAddr, &powerActorOut); err != nil {
		return cid.Undef, err
	}

	return actorsIn.Flush()
}
