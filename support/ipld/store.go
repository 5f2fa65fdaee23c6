package ipld

import (
	"context"

	block "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	ipldcbor "github.com/ipfs/go-ipld-cbor"
	"golang.org/x/xerrors"

	"github.com/worlddbs/power-actor/actors/util/adt"
)

// NewADTStore returns an empty in-memory store for collections.
func NewADTStore(ctx context.Context) adt.Store {
	return adt.WrapBlockStore(ctx, NewBlockStoreInMemory())
}

// BlockStoreInMemory keeps blocks in a map. Not safe for concurrent use.
type BlockStoreInMemory struct {
	blocks map[cid.Cid]block.Block
}

var _ ipldcbor.IpldBlockstore = (*BlockStoreInMemory)(nil)

func NewBlockStoreInMemory() *BlockStoreInMemory {
	return &BlockStoreInMemory{blocks: map[cid.Cid]block.Block{}}
}

func (bs *BlockStoreInMemory) Get(c cid.Cid) (block.Block, error) {
	if blk, ok := bs.blocks[c]; ok {
		return blk, nil
	}
	return nil, xerrors.Errorf("block %s not found", c)
}

func (bs *BlockStoreInMemory) Put(b block.Block) error {
	bs.blocks[b.Cid()] = b
	return nil
}

// Len is the number of distinct blocks held.
func (bs *BlockStoreInMemory) Len() int {
	return len(bs.blocks)
}

// MetricsBlockStore counts the blocks and bytes passing through to another store.
// It satisfies vm.StatsSource.
type MetricsBlockStore struct {
	bs ipldcbor.IpldBlockstore

	Reads      uint64
	ReadBytes  uint64
	Writes     uint64
	WriteBytes uint64
}

var _ ipldcbor.IpldBlockstore = (*MetricsBlockStore)(nil)

func NewMetricsBlockStore(underlying ipldcbor.IpldBlockstore) *MetricsBlockStore {
	return &MetricsBlockStore{bs: underlying}
}

func (ms *MetricsBlockStore) Get(c cid.Cid) (block.Block, error) {
	ms.Reads++
	blk, err := ms.bs.Get(c)
	if err == nil {
		ms.ReadBytes += uint64(len(blk.RawData()))
	}
	return blk, err
}

func (ms *MetricsBlockStore) Put(b block.Block) error {
	ms.Writes++
	ms.WriteBytes += uint64(len(b.RawData()))
	return ms.bs.Put(b)
}

func (ms *MetricsBlockStore) ReadCount() uint64  { return ms.Reads }
func (ms *MetricsBlockStore) WriteCount() uint64 { return ms.Writes }
func (ms *MetricsBlockStore) ReadSize() uint64   { return ms.ReadBytes }
func (ms *MetricsBlockStore) WriteSize() uint64  { return ms.WriteBytes }
