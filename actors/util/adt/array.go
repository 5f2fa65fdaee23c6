package adt

import (
	"bytes"

	amt "github.com/filecoin-project/go-amt-ipld/v2"
	"github.com/filecoin-project/go-state-types/cbor"
	cid "github.com/ipfs/go-cid"
	cbg "github.com/whyrusleeping/cbor-gen"
	"golang.org/x/xerrors"
)

// Array is a sparse AMT of CBOR values indexed by uint64.
type Array struct {
	root  *amt.Root
	store Store
}

func AsArray(s Store, r cid.Cid) (*Array, error) {
	root, err := amt.LoadAMT(s.Context(), s, r)
	if err != nil {
		return nil, xerrors.Errorf("failed to load amt root %v: %w", r, err)
	}
	return &Array{root: root, store: s}, nil
}

func MakeEmptyArray(s Store) *Array {
	return &Array{root: amt.NewAMT(s), store: s}
}

// Root flushes pending changes and returns the new root CID.
func (a *Array) Root() (cid.Cid, error) {
	return a.root.Flush(a.store.Context())
}

// Length is the number of values present, not the highest index.
func (a *Array) Length() uint64 {
	return a.root.Count
}

// AppendContinuous sets the value at index Length(). Only meaningful while the array has no gaps.
func (a *Array) AppendContinuous(value cbor.Marshaler) error {
	i := a.root.Count
	if err := a.root.Set(a.store.Context(), i, value); err != nil {
		return xerrors.Errorf("failed to append at index %d: %w", i, err)
	}
	return nil
}

// Get decodes the value at i into out and reports whether it was present.
func (a *Array) Get(i uint64, out cbor.Unmarshaler) (bool, error) {
	err := a.root.Get(a.store.Context(), i, out)
	if _, missing := err.(*amt.ErrNotFound); missing {
		return false, nil
	}
	if err != nil {
		return false, xerrors.Errorf("failed to get index %d: %w", i, err)
	}
	return true, nil
}

func (a *Array) BatchDelete(ix []uint64) error {
	if err := a.root.BatchDelete(a.store.Context(), ix); err != nil {
		return xerrors.Errorf("failed to delete indices %v: %w", ix, err)
	}
	return nil
}

// ForEach visits values in ascending index order, decoding each into out unless out is nil.
// A *cbg.Deferred out receives the raw encoding. Iteration stops at the first error.
func (a *Array) ForEach(out cbor.Unmarshaler, fn func(i int64) error) error {
	return a.root.ForEach(a.store.Context(), func(i uint64, val *cbg.Deferred) error {
		switch o := out.(type) {
		case nil:
		case *cbg.Deferred:
			*o = *val
		default:
			if err := o.UnmarshalCBOR(bytes.NewReader(val.Raw)); err != nil {
				return err
			}
		}
		return fn(int64(i))
	})
}
