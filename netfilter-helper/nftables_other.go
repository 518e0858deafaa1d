//go:build !linux

package netfilterHelper

import "errors"

func newTableInspector() (TableInspector, error) {
	return nil, errors.New("nftables is only available on linux")
}
