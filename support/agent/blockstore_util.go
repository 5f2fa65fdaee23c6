package agent

import (
	"bytes"

	block "github.com/ipfs/go-block-format"
	cid "github.com/ipfs/go-cid"
	cbor "github.com/ipfs/go-ipld-cbor"
	mh "github.com/multiformats/go-multihash"
	cbg "github.com/whyrusleeping/cbor-gen"
	"golang.org/x/xerrors"
)

// BlockstoreCopy copies every block reachable from root into another store, children first.
// It returns the number of blocks and bytes copied.
func BlockstoreCopy(from, to cbor.IpldBlockstore, root cid.Cid) (blocks uint64, copySize uint64, err error) {
	seen := cid.NewSet()
	cp := func(blk block.Block) error {
		blocks++
		copySize += uint64(len(blk.RawData()))
		return to.Put(blk)
	}

	if err := copyRec(from, root, seen, cp); err != nil {
		return 0, 0, xerrors.Errorf("failed to copy state from %s: %w", root, err)
	}
	return blocks, copySize, nil
}

func copyRec(from cbor.IpldBlockstore, root cid.Cid, seen *cid.Set, cp func(block.Block) error) error {
	if root.Prefix().MhType == mh.IDENTITY {
		return nil
	}
	// shared subtrees (e.g. empty maps) are copied once
	if !seen.Visit(root) {
		return nil
	}

	blk, err := from.Get(root)
	if err != nil {
		return xerrors.Errorf("get %s failed: %w", root, err)
	}

	var links []cid.Cid
	if err := linksForObj(blk, func(link cid.Cid) {
		// sealed and unsealed commitments name sector data, not state blocks
		codec := link.Prefix().Codec
		if codec == cid.FilCommitmentSealed || codec == cid.FilCommitmentUnsealed {
			return
		}
		links = append(links, link)
	}); err != nil {
		return xerrors.Errorf("failed to scan links of %s: %w", root, err)
	}

	for _, link := range links {
		if err := copyRec(from, link, seen, cp); err != nil {
			return err
		}
	}
	return cp(blk)
}

func linksForObj(blk block.Block, cb func(cid.Cid)) error {
	switch blk.Cid().Prefix().Codec {
	case cid.DagCBOR:
		if err := cbg.ScanForLinks(bytes.NewReader(blk.RawData()), cb); err != nil {
			return xerrors.Errorf("cbg.ScanForLinks: %w", err)
		}
		return nil
	case cid.Raw:
		return nil
	default:
		return xerrors.Errorf("state copy only supports dag-cbor and raw blocks, got codec %d", blk.Cid().Prefix().Codec)
	}
}
