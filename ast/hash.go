package ast

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// hashLeaf computes the structural hash of a node with no children: its
// kind tag plus a distinguishing payload string (bit pattern, address, or
// name, depending on variant).
func hashLeaf(kind NodeKind, payload string) NodeHash {
	h, _ := blake2b.New256(nil)
	writeKind(h, kind)
	h.Write([]byte(payload))
	var out NodeHash
	copy(out[:], h.Sum(nil))
	return out
}

// hashNode computes the structural hash of an interior node: its kind tag,
// a payload string identifying the operator/function tag, and the hashes
// of its children in order.
func hashNode(kind NodeKind, payload string, children ...NodeHash) NodeHash {
	h, _ := blake2b.New256(nil)
	writeKind(h, kind)
	h.Write([]byte(payload))
	for _, c := range children {
		h.Write(c[:])
	}
	var out NodeHash
	copy(out[:], h.Sum(nil))
	return out
}

func writeKind(h interface{ Write([]byte) (int, error) }, kind NodeKind) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(kind))
	h.Write(buf[:])
}
