package types

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
)

const addrVer = 0x01

// EncodeAddress renders a public-key payload as a check-encoded address
// with the "vl" prefix.
func EncodeAddress(payload []byte) string {
	return "vl" + base58.CheckEncode(payload, addrVer)
}

func DecodeAddress(addr string) ([]byte, error) {
	if !strings.HasPrefix(addr, "vl") {
		return nil, fmt.Errorf("wrong prefix: got(%s)", addr)
	}
	bz, ver, err := base58.CheckDecode(addr[2:])
	if err != nil {
		return nil, err
	}
	if ver != addrVer {
		return nil, fmt.Errorf("wrong version: expected(%d), got(%d)", addrVer, ver)
	}
	return bz, nil
}
