package adt

import (
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/cbor"
	cid "github.com/ipfs/go-cid"
	cbg "github.com/whyrusleeping/cbor-gen"
	"golang.org/x/xerrors"
)

// Multimap keeps a list of values per key: a HAMT whose values are AMT roots. Each key's values
// stay in insertion order.
type Multimap struct {
	mp *Map
}

func AsMultimap(s Store, r cid.Cid) (*Multimap, error) {
	m, err := AsMap(s, r)
	if err != nil {
		return nil, err
	}
	return &Multimap{mp: m}, nil
}

func MakeEmptyMultimap(s Store) *Multimap {
	return &Multimap{mp: MakeEmptyMap(s)}
}

// StoreEmptyMultimap writes an empty multimap and returns its root.
func StoreEmptyMultimap(s Store) (cid.Cid, error) {
	return MakeEmptyMultimap(s).Root()
}

func (mm *Multimap) Root() (cid.Cid, error) {
	return mm.mp.Root()
}

// Add appends value to the list under key, creating the list if needed.
func (mm *Multimap) Add(key abi.Keyer, value cbor.Marshaler) error {
	values, found, err := mm.Get(key)
	if err != nil {
		return err
	}
	if !found {
		values = MakeEmptyArray(mm.mp.store)
	}
	if err := values.AppendContinuous(value); err != nil {
		return xerrors.Errorf("failed to append to multimap key %x: %w", key.Key(), err)
	}
	root, err := values.Root()
	if err != nil {
		return xerrors.Errorf("failed to flush values of multimap key %x: %w", key.Key(), err)
	}
	ref := cbg.CborCid(root)
	return mm.mp.Put(key, &ref)
}

// RemoveAll drops every value under key. Absent keys are ignored.
func (mm *Multimap) RemoveAll(key abi.Keyer) error {
	_, err := mm.mp.TryDelete(key)
	return err
}

// ForEach visits the values under key in insertion order; see Array.ForEach.
func (mm *Multimap) ForEach(key abi.Keyer, out cbor.Unmarshaler, fn func(i int64) error) error {
	values, found, err := mm.Get(key)
	if err != nil || !found {
		return err
	}
	return values.ForEach(out, fn)
}

// ForAll visits every key, in HAMT order rather than insertion order, with its list of values.
func (mm *Multimap) ForAll(fn func(k string, arr *Array) error) error {
	var ref cbg.CborCid
	return mm.mp.ForEach(&ref, func(k string) error {
		values, err := AsArray(mm.mp.store, cid.Cid(ref))
		if err != nil {
			return err
		}
		return fn(k, values)
	})
}

// Get loads the list of values under key, if present.
func (mm *Multimap) Get(key abi.Keyer) (*Array, bool, error) {
	var ref cbg.CborCid
	found, err := mm.mp.Get(key, &ref)
	if err != nil || !found {
		return nil, false, err
	}
	values, err := AsArray(mm.mp.store, cid.Cid(ref))
	if err != nil {
		return nil, false, xerrors.Errorf("failed to load values of multimap key %x: %w", key.Key(), err)
	}
	return values, true, nil
}
