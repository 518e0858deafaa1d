package netfilterHelper

import (
	"os"

	"github.com/enrell/alpine-wifi-bridge/constant"
	"github.com/enrell/alpine-wifi-bridge/internal/executor"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Backend is the firewall rule engine in use.
type Backend string

const (
	BackendIptables Backend = "iptables"
	BackendNftables Backend = "nftables"
)

// DetectFirewallBackend picks nftables when the nft binary is installed and
// the legacy ip_tables module has not registered any table.
func DetectFirewallBackend(runner executor.Runner, fs afero.Fs) Backend {
	_, hasNft := runner.LookPath("nft")
	legacy, err := afero.Exists(fs, constant.IPTablesNamesPath)
	if err != nil && !os.IsNotExist(err) {
		log.Debug().Err(err).Msg("failed to stat ip_tables_names")
	}

	if hasNft && !legacy {
		log.Info().Msg("detected nftables as primary firewall system")
		return BackendNftables
	}
	log.Info().Msg("using iptables for firewall configuration")
	return BackendIptables
}
