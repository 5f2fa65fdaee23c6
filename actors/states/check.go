package states

import (
	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"golang.org/x/xerrors"

	"github.com/worlddbs/power-actor/actors/builtin"
	"github.com/worlddbs/power-actor/actors/builtin/account"
	"github.com/worlddbs/power-actor/actors/builtin/cron"
	init_ "github.com/worlddbs/power-actor/actors/builtin/init"
	"github.com/worlddbs/power-actor/actors/builtin/power"
)

// CheckStateInvariants walks every actor in the tree, checks each builtin actor's own state and then
// the relations between them. Violations are collected as messages; an error is returned only when
// the tree itself cannot be read.
//
// Miner actor state is opaque here: miners are only checked against the power claims and the init
// actor's address table.
func CheckStateInvariants(tree *Tree, expectedBalanceTotal abi.TokenAmount, policy power.ThresholdPolicy) (*builtin.MessageAccumulator, error) {
	acc := &builtin.MessageAccumulator{}
	ts := treeSummary{
		balance:  big.Zero(),
		ids:      map[abi.ActorID]struct{}{},
		miners:   map[addr.Address]struct{}{},
		accounts: map[addr.Address]addr.Address{},
	}

	err := tree.ForEach(func(key addr.Address, actor *Actor) error {
		return ts.visit(tree, policy, acc.WithPrefix("%v ", key), key, actor)
	})
	if err != nil {
		return nil, err
	}

	acc.Require(ts.init != nil, "no init actor in state tree")
	acc.Require(ts.power != nil, "no power actor in state tree")
	acc.Require(ts.cron != nil && ts.cron.EntryCount > 0, "cron actor missing or has no entries")
	ts.crossCheck(acc)
	acc.Require(ts.balance.Equals(expectedBalanceTotal),
		"total token balance is %v, expected %v", ts.balance, expectedBalanceTotal)
	return acc, nil
}

type treeSummary struct {
	balance abi.TokenAmount
	ids     map[abi.ActorID]struct{}
	miners  map[addr.Address]struct{}
	// public key address -> ID address of the account holding it
	accounts map[addr.Address]addr.Address

	init  *init_.StateSummary
	cron  *cron.StateSummary
	power *power.StateSummary
}

func (ts *treeSummary) visit(tree *Tree, policy power.ThresholdPolicy, acc *builtin.MessageAccumulator, key addr.Address, actor *Actor) error {
	if id, err := addr.IDFromAddress(key); err != nil {
		acc.Addf("state tree key has protocol %d, expected ID", key.Protocol())
	} else {
		ts.ids[abi.ActorID(id)] = struct{}{}
	}
	ts.balance = big.Add(ts.balance, actor.Balance)

	load := func(out interface{}) error {
		return tree.Store.Get(tree.Store.Context(), actor.Head, out)
	}
	switch actor.Code {
	case builtin.SystemActorCodeID:
	case builtin.StorageMinerActorCodeID:
		ts.miners[key] = struct{}{}
	case builtin.InitActorCodeID:
		var st init_.State
		if err := load(&st); err != nil {
			return err
		}
		summary, msgs := init_.CheckStateInvariants(&st, tree.Store)
		acc.WithPrefix("init: ").AddAll(msgs)
		ts.init = summary
	case builtin.CronActorCodeID:
		var st cron.State
		if err := load(&st); err != nil {
			return err
		}
		summary, msgs := cron.CheckStateInvariants(&st)
		acc.WithPrefix("cron: ").AddAll(msgs)
		ts.cron = summary
	case builtin.AccountActorCodeID:
		var st account.State
		if err := load(&st); err != nil {
			return err
		}
		summary, msgs := account.CheckStateInvariants(&st, key)
		acc.WithPrefix("account: ").AddAll(msgs)
		if other, dup := ts.accounts[summary.PubKeyAddr]; dup {
			acc.Addf("account key %v also held by %v", summary.PubKeyAddr, other)
		}
		ts.accounts[summary.PubKeyAddr] = key
	case builtin.StoragePowerActorCodeID:
		var st power.State
		if err := load(&st); err != nil {
			return err
		}
		summary, msgs := power.CheckStateInvariants(&st, tree.Store, policy)
		acc.WithPrefix("power: ").AddAll(msgs)
		ts.power = summary
	default:
		return xerrors.Errorf("unexpected actor code CID %v for address %v", actor.Code, key)
	}
	return nil
}

func (ts *treeSummary) crossCheck(acc *builtin.MessageAccumulator) {
	if ts.power != nil {
		// A miner slashed for a consensus fault keeps its actor, so a miner without a claim is allowed.
		// The reverse is not.
		for maddr := range ts.power.Claims { // nolint:nomaprange
			_, ok := ts.miners[maddr]
			acc.Require(ok, "power claim for %v has no miner actor", maddr)
		}
		for maddr := range ts.power.Proofs { // nolint:nomaprange
			_, ok := ts.miners[maddr]
			acc.Require(ok, "batched proofs for %v have no miner actor", maddr)
		}
		for maddr := range ts.power.Crons { // nolint:nomaprange
			_, ok := ts.miners[maddr]
			acc.Require(ok, "cron events for %v have no miner actor", maddr)
		}
	}
	if ts.init != nil {
		for keyAddr, id := range ts.init.AddrIDs { // nolint:nomaprange
			_, ok := ts.ids[id]
			acc.Require(ok, "address %v maps to ID %d with no actor", keyAddr, id)
		}
		for keyAddr, idAddr := range ts.accounts { // nolint:nomaprange
			if !account.IsKeyAddress(keyAddr) {
				continue
			}
			id, _ := addr.IDFromAddress(idAddr)
			mapped, ok := ts.init.AddrIDs[keyAddr]
			acc.Require(ok && uint64(mapped) == id, "account %v key %v is mapped to ID %d (found %t)", idAddr, keyAddr, mapped, ok)
		}
	}
}
