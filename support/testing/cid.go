package testing

import (
	"github.com/ipfs/go-cid"
	"github.com/minio/sha256-simd"
	mh "github.com/multiformats/go-multihash"

	"github.com/worlddbs/power-actor/support/ipld"
)

// MakeCID hashes input into a CID. A nil prefix yields a state-object CID.
func MakeCID(input string, prefix *cid.Prefix) cid.Cid {
	data := []byte(input)
	if prefix == nil {
		c, err := ipld.CidBuilder.Sum(data)
		if err != nil {
			panic(err)
		}
		return c
	}
	c, err := prefix.Sum(data)
	switch err {
	case mh.ErrSumNotSupported:
		// Unsupported hash function; fake one from a sha256 digest.
	case nil:
		return c
	default:
		panic(err)
	}

	sum := sha256.Sum256(data)
	hash, err := mh.Encode(sum[:], prefix.MhType)
	if err != nil {
		panic(err)
	}
	return cid.NewCidV1(prefix.Codec, hash)
}

// Sealed and unsealed sector commitments use their own CID prefixes.
var (
	SealedCIDPrefix   = cid.Prefix{Version: 1, Codec: cid.FilCommitmentSealed, MhType: mh.SHA2_256, MhLength: 32}
	UnsealedCIDPrefix = cid.Prefix{Version: 1, Codec: cid.FilCommitmentUnsealed, MhType: mh.SHA2_256, MhLength: 32}
)
