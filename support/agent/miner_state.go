package agent

import (
	"context"

	"github.com/filecoin-project/go-bitfield"
	"github.com/filecoin-project/go-state-types/abi"
	cid "github.com/ipfs/go-cid"

	"github.com/worlddbs/power-actor/actors/util/adt"
	"github.com/worlddbs/power-actor/support/vm"
)

// MinerView reads a miner actor's state lazily from its head CID.
type MinerView struct {
	Root cid.Cid
	Ctx  context.Context
	st   *vm.MinerStubState
}

func (m *MinerView) state(store adt.Store) (*vm.MinerStubState, error) {
	if m.st == nil {
		var st vm.MinerStubState
		if err := store.Get(m.Ctx, m.Root, &st); err != nil {
			return nil, err
		}
		m.st = &st
	}
	return m.st, nil
}

// ProvenSectors returns the numbers of every sector whose proof the power actor has confirmed.
func (m *MinerView) ProvenSectors(store adt.Store) (bitfield.BitField, error) {
	st, err := m.state(store)
	if err != nil {
		return bitfield.BitField{}, err
	}
	return st.ProvenSectors, nil
}

func (m *MinerView) HasSectorNo(store adt.Store, sectorNo abi.SectorNumber) (bool, error) {
	proven, err := m.ProvenSectors(store)
	if err != nil {
		return false, err
	}
	return proven.IsSet(uint64(sectorNo))
}

func (m *MinerView) CronCalls(store adt.Store) (uint64, error) {
	st, err := m.state(store)
	if err != nil {
		return 0, err
	}
	return st.CronCalls, nil
}

func (m *MinerView) SectorSize(store adt.Store) (abi.SectorSize, error) {
	st, err := m.state(store)
	if err != nil {
		return 0, err
	}
	return st.SealProofType.SectorSize()
}
