package init

import (
	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	cbg "github.com/whyrusleeping/cbor-gen"

	"github.com/worlddbs/power-actor/actors/builtin"
	"github.com/worlddbs/power-actor/actors/util/adt"
)

type StateSummary struct {
	AddrIDs map[addr.Address]abi.ActorID
	NextID  abi.ActorID
}

// CheckStateInvariants requires the address table to be an injective map from non-ID addresses to
// IDs in [FirstNonSingletonActorId, NextID).
func CheckStateInvariants(st *State, store adt.Store) (*StateSummary, *builtin.MessageAccumulator) {
	acc := &builtin.MessageAccumulator{}
	summary := &StateSummary{AddrIDs: map[addr.Address]abi.ActorID{}, NextID: st.NextID}

	acc.Require(st.NetworkName != "", "network name is empty")
	acc.Require(st.NextID >= builtin.FirstNonSingletonActorId, "next id %d is in the singleton range", st.NextID)

	table, err := adt.AsMap(store, st.AddressMap)
	if err != nil {
		acc.Addf("error loading address map: %v", err)
		return summary, acc
	}

	owners := map[abi.ActorID]addr.Address{}
	var value cbg.CborInt
	err = table.ForEach(&value, func(key string) error {
		a, err := addr.NewFromBytes([]byte(key))
		if err != nil {
			return err
		}
		id := abi.ActorID(value)
		acc.Require(a.Protocol() != addr.ID, "ID address %v registered in address map", a)
		acc.Require(id >= builtin.FirstNonSingletonActorId && id < st.NextID,
			"%v maps to ID %d outside [%d, %d)", a, id, builtin.FirstNonSingletonActorId, st.NextID)
		if prev, dup := owners[id]; dup {
			acc.Addf("ID %d assigned to both %v and %v", id, prev, a)
		}
		owners[id] = a
		summary.AddrIDs[a] = id
		return nil
	})
	acc.RequireNoError(err, "error iterating address map")
	return summary, acc
}
