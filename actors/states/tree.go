package states

import (
	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/ipfs/go-cid"
	"golang.org/x/xerrors"

	"github.com/worlddbs/power-actor/actors/util/adt"
)

// Actor is the state tree's record of one actor.
type Actor struct {
	Code       cid.Cid
	Head       cid.Cid // root of the actor's own state
	CallSeqNum uint64  // nonce of the next top-level message sent by the actor
	Balance    abi.TokenAmount
}

// Tree maps ID addresses to actor records.
type Tree struct {
	Map   *adt.Map
	Store adt.Store
}

func LoadTree(s adt.Store, r cid.Cid) (*Tree, error) {
	m, err := adt.AsMap(s, r)
	if err != nil {
		return nil, xerrors.Errorf("failed to load state tree %v: %w", r, err)
	}
	return &Tree{Map: m, Store: s}, nil
}

// Flush writes pending changes and returns the new root.
func (t *Tree) Flush() (cid.Cid, error) {
	return t.Map.Root()
}

func (t *Tree) GetActor(a address.Address) (*Actor, bool, error) {
	if err := requireID(a); err != nil {
		return nil, false, err
	}
	var actor Actor
	found, err := t.Map.Get(abi.AddrKey(a), &actor)
	return &actor, found, err
}

// SetActor inserts or replaces the record at a.
func (t *Tree) SetActor(a address.Address, actor *Actor) error {
	if err := requireID(a); err != nil {
		return err
	}
	return t.Map.Put(abi.AddrKey(a), actor)
}

// ForEach visits every actor in key order. The record passed to fn is reused between calls.
func (t *Tree) ForEach(fn func(a address.Address, actor *Actor) error) error {
	var actor Actor
	return t.Map.ForEach(&actor, func(key string) error {
		a, err := address.NewFromBytes([]byte(key))
		if err != nil {
			return err
		}
		return fn(a, &actor)
	})
}

func requireID(a address.Address) error {
	if a.Protocol() != address.ID {
		return xerrors.Errorf("state tree keys must be ID addresses, got %v", a)
	}
	return nil
}
