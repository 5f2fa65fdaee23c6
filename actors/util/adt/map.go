package adt

import (
	"bytes"

	hamt "github.com/filecoin-project/go-hamt-ipld/v2"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/cbor"
	cid "github.com/ipfs/go-cid"
	sha256 "github.com/minio/sha256-simd"
	cbg "github.com/whyrusleeping/cbor-gen"
	"golang.org/x/xerrors"
)

// HamtOptions configures every HAMT in actor state: 32-way branching over SHA-256 key hashes.
var HamtOptions = []hamt.Option{
	hamt.UseTreeBitWidth(5),
	hamt.UseHashFunction(func(input []byte) []byte {
		sum := sha256.Sum256(input)
		return sum[:]
	}),
}

// Map is a HAMT of CBOR values keyed by abi.Keyer.
type Map struct {
	root  *hamt.Node
	store Store
	// root CID at load or last flush, for error messages
	lastCid cid.Cid
}

func AsMap(s Store, r cid.Cid) (*Map, error) {
	nd, err := hamt.LoadNode(s.Context(), s, r, HamtOptions...)
	if err != nil {
		return nil, xerrors.Errorf("failed to load hamt root %v: %w", r, err)
	}
	return &Map{root: nd, store: s, lastCid: r}, nil
}

func MakeEmptyMap(s Store) *Map {
	return &Map{root: hamt.NewNode(s, HamtOptions...), store: s}
}

// StoreEmptyMap writes an empty map and returns its root.
func StoreEmptyMap(s Store) (cid.Cid, error) {
	return MakeEmptyMap(s).Root()
}

// Root flushes pending changes and returns the new root CID.
func (m *Map) Root() (cid.Cid, error) {
	ctx := m.store.Context()
	if err := m.root.Flush(ctx); err != nil {
		return cid.Undef, xerrors.Errorf("failed to flush hamt: %w", err)
	}
	c, err := m.store.Put(ctx, m.root)
	if err != nil {
		return cid.Undef, xerrors.Errorf("failed to write hamt root: %w", err)
	}
	m.lastCid = c
	return c, nil
}

func (m *Map) Put(k abi.Keyer, v cbor.Marshaler) error {
	return m.wrap("put", k, m.root.Set(m.store.Context(), k.Key(), v))
}

// Get decodes the value at k into out and reports whether it was present.
func (m *Map) Get(k abi.Keyer, out cbor.Unmarshaler) (bool, error) {
	return m.present("get", k, m.root.Find(m.store.Context(), k.Key(), out))
}

// Has reports whether k is present without decoding its value.
func (m *Map) Has(k abi.Keyer) (bool, error) {
	_, err := m.root.FindRaw(m.store.Context(), k.Key())
	return m.present("has", k, err)
}

// TryDelete removes k if present and reports whether it was.
func (m *Map) TryDelete(k abi.Keyer) (bool, error) {
	return m.present("delete", k, m.root.Delete(m.store.Context(), k.Key()))
}

// Delete removes k, which must be present.
func (m *Map) Delete(k abi.Keyer) error {
	return m.wrap("delete", k, m.root.Delete(m.store.Context(), k.Key()))
}

// ForEach decodes each value into out, unless out is nil, and calls fn with its key.
// Iteration stops at the first error.
func (m *Map) ForEach(out cbor.Unmarshaler, fn func(key string) error) error {
	return m.root.ForEach(m.store.Context(), func(k string, val interface{}) error {
		if out != nil {
			if err := out.UnmarshalCBOR(bytes.NewReader(val.(*cbg.Deferred).Raw)); err != nil {
				return err
			}
		}
		return fn(k)
	})
}

func (m *Map) CollectKeys() ([]string, error) {
	var keys []string
	err := m.ForEach(nil, func(key string) error {
		keys = append(keys, key)
		return nil
	})
	return keys, err
}

// present maps the HAMT's not-found error to false.
func (m *Map) present(op string, k abi.Keyer, err error) (bool, error) {
	if err == hamt.ErrNotFound {
		return false, nil
	}
	return err == nil, m.wrap(op, k, err)
}

func (m *Map) wrap(op string, k abi.Keyer, err error) error {
	if err == nil {
		return nil
	}
	return xerrors.Errorf("map %s of key %x under root %v: %w", op, k.Key(), m.lastCid, err)
}
