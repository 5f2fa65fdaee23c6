package init

import (
	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	cid "github.com/ipfs/go-cid"
	cbg "github.com/whyrusleeping/cbor-gen"
	xerrors "golang.org/x/xerrors"

	"github.com/worlddbs/power-actor/actors/builtin"
	"github.com/worlddbs/power-actor/actors/util/adt"
)

type State struct {
	// HAMT[addr.Address]abi.ActorID, for key and actor-protocol addresses only
	AddressMap  cid.Cid
	NextID      abi.ActorID
	NetworkName string
}

func ConstructState(store adt.Store, networkName string) (*State, error) {
	root, err := adt.StoreEmptyMap(store)
	if err != nil {
		return nil, xerrors.Errorf("failed to create address map: %w", err)
	}
	return &State{
		AddressMap:  root,
		NextID:      abi.ActorID(builtin.FirstNonSingletonActorId),
		NetworkName: networkName,
	}, nil
}

// ResolveAddress returns the ID address registered for a, or a itself if it already is one.
// The second result is false when a has no registration; an error means the table is unreadable.
func (s *State) ResolveAddress(store adt.Store, a addr.Address) (addr.Address, bool, error) {
	if a.Protocol() == addr.ID {
		return a, true, nil
	}
	table, err := adt.AsMap(store, s.AddressMap)
	if err != nil {
		return addr.Undef, false, xerrors.Errorf("failed to load address map: %w", err)
	}
	var id cbg.CborInt
	if found, err := table.Get(abi.AddrKey(a), &id); err != nil || !found {
		return addr.Undef, false, err
	}
	idAddr, err := addr.NewIDAddress(uint64(id))
	return idAddr, err == nil, err
}

// MapAddressToNewID assigns the next free actor ID to a and records the mapping.
func (s *State) MapAddressToNewID(store adt.Store, a addr.Address) (addr.Address, error) {
	table, err := adt.AsMap(store, s.AddressMap)
	if err != nil {
		return addr.Undef, xerrors.Errorf("failed to load address map: %w", err)
	}
	id := cbg.CborInt(s.NextID)
	if err := table.Put(abi.AddrKey(a), &id); err != nil {
		return addr.Undef, xerrors.Errorf("failed to register %v: %w", a, err)
	}
	if s.AddressMap, err = table.Root(); err != nil {
		return addr.Undef, xerrors.Errorf("failed to flush address map: %w", err)
	}
	s.NextID++
	return addr.NewIDAddress(uint64(id))
}
