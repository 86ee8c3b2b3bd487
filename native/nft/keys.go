package nft

import "encoding/binary"

var (
	tokenPrefix     = []byte("nft/token/")
	nextIDPrefix    = []byte("nft/nextid/")
	generatorPrefix = []byte("nft/generator/")
)

func tokenKey(collection Collection, id uint64) []byte {
	buf := make([]byte, 0, len(tokenPrefix)+len(collection)+1+8)
	buf = append(buf, tokenPrefix...)
	buf = append(buf, collection...)
	buf = append(buf, '/')
	var idBytes [8]byte
	binary.BigEndian.PutUint64(idBytes[:], id)
	return append(buf, idBytes[:]...)
}

func nextIDKey(collection Collection) []byte {
	buf := make([]byte, 0, len(nextIDPrefix)+len(collection))
	buf = append(buf, nextIDPrefix...)
	return append(buf, collection...)
}

func generatorKey(collection Collection, account [20]byte) []byte {
	buf := make([]byte, 0, len(generatorPrefix)+len(collection)+1+len(account))
	buf = append(buf, generatorPrefix...)
	buf = append(buf, collection...)
	buf = append(buf, '/')
	return append(buf, account[:]...)
}
