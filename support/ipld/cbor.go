package ipld

import (
	"bytes"

	"github.com/filecoin-project/go-state-types/cbor"
	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

// CidBuilder produces the dag-cbor/blake2b-256 CIDs that state objects are keyed by.
var CidBuilder cid.Builder = cid.V1Builder{Codec: cid.DagCBOR, MhType: mh.BLAKE2B_MIN + 31}

// Marshals an object to bytes for storing in state.
func MarshalCBOR(o cbor.Marshaler) (cid.Cid, []byte, error) {
	r := bytes.Buffer{}
	err := o.MarshalCBOR(&r)
	if err != nil {
		return cid.Undef, nil, err
	}
	data := r.Bytes()
	key, err := CidBuilder.Sum(data)
	if err != nil {
		return cid.Undef, nil, err
	}
	return key, data, nil
}
