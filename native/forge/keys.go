package forge

import "encoding/binary"

var stakePrefix = []byte("forge/stake/")

func stakeKey(account [20]byte, index uint64) []byte {
	buf := make([]byte, 0, len(stakePrefix)+len(account)+1+8)
	buf = append(buf, stakePrefix...)
	buf = append(buf, account[:]...)
	buf = append(buf, '/')
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], index)
	return append(buf, idx[:]...)
}
