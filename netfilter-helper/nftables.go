package netfilterHelper

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"text/template"

	"github.com/enrell/alpine-wifi-bridge/constant"
	"github.com/enrell/alpine-wifi-bridge/internal/executor"
	"github.com/enrell/alpine-wifi-bridge/models"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// TableName is the nftables table owning every bridge rule.
const TableName = "wifibridge"

var tableChains = []string{"prerouting", "postrouting", "input", "forward", "output"}

// Declaring then deleting the table makes `nft -f` replace it atomically
// without touching tables owned by anything else.
var nftTemplate = template.Must(template.New("nft").Parse(`#!/usr/sbin/nft -f

table ip {{ .Table }}
delete table ip {{ .Table }}

table ip {{ .Table }} {
    chain prerouting {
        type nat hook prerouting priority -100; policy accept;
{{- if .PCIP }}
        iifname "{{ .WLAN }}" dnat to {{ .PCIP }}
{{- end }}
    }

    chain postrouting {
        type nat hook postrouting priority 100; policy accept;
        oifname "{{ .WLAN }}" masquerade
{{- if .PCIP }}
        oifname "{{ .ETH }}" masquerade
{{- end }}
    }

    chain input {
        type filter hook input priority 0; policy accept;
        iifname "{{ .ETH }}" accept
        ip protocol icmp accept
    }

    chain forward {
        type filter hook forward priority 0; policy accept;
        iifname "{{ .ETH }}" oifname "{{ .WLAN }}" ct state related,established accept
        iifname "{{ .WLAN }}" oifname "{{ .ETH }}" accept
        ct state related,established accept
        iifname "{{ .ETH }}" accept
        ip saddr {{ .Subnet }} ip daddr {{ .Subnet }} accept
        ip protocol icmp accept
    }

    chain output {
        type filter hook output priority 0; policy accept;
        oifname "{{ .WLAN }}" accept
        ip protocol icmp accept
    }
}
`))

type nftData struct {
	Table  string
	WLAN   string
	ETH    string
	Subnet string
	PCIP   string
}

// RenderNftables returns the ruleset file for the given settings.
func RenderNftables(s models.Settings) ([]byte, error) {
	data := nftData{
		Table:  TableName,
		WLAN:   s.WLANIface,
		ETH:    s.ETHIface,
		Subnet: s.LANSubnet(),
	}
	if s.PortForwarding() {
		data.PCIP = s.PCIP
	}

	var buf bytes.Buffer
	if err := nftTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render nftables ruleset: %w", err)
	}
	return buf.Bytes(), nil
}

// TableInspector reads and removes the bridge table over netlink.
// RuleCounts maps each chain of the table to its rule count and returns
// nil when the table does not exist.
type TableInspector interface {
	RuleCounts(table string) (map[string]int, error)
	DeleteTable(table string) error
}

// expectedRuleCounts mirrors the rendered ruleset, chain by chain.
func expectedRuleCounts(s models.Settings) map[string]int {
	counts := map[string]int{
		"prerouting":  0,
		"postrouting": 1,
		"input":       2,
		"forward":     6,
		"output":      2,
	}
	if s.PortForwarding() {
		counts["prerouting"]++
		counts["postrouting"]++
	}
	return counts
}

// nftablesStrategy writes the whole ruleset as one file and loads it with
// nft -f. It counts as applied only while every chain still holds its
// rules, so a chain flushed by someone else triggers a reload.
type nftablesStrategy struct {
	nh       *NetfilterHelper
	fallback *iptablesStrategy
}

func (st *nftablesStrategy) Backend() Backend {
	return BackendNftables
}

func (st *nftablesStrategy) applied(s models.Settings) bool {
	inspector := st.nh.tableInspector()
	if inspector == nil {
		return false
	}
	counts, err := inspector.RuleCounts(TableName)
	if err != nil {
		log.Debug().Err(err).Msg("failed to inspect nftables table")
		return false
	}
	if counts == nil {
		return false
	}
	for _, chain := range tableChains {
		got, ok := counts[chain]
		if !ok {
			return false
		}
		if want := expectedRuleCounts(s)[chain]; got < want {
			log.Info().Str("chain", chain).Int("rules", got).Int("expected", want).Msg("nftables chain is missing rules")
			return false
		}
	}
	return true
}

func (st *nftablesStrategy) Ensure(ctx context.Context, s models.Settings) (int, error) {
	if st.applied(s) {
		log.Trace().Str("table", TableName).Msg("nftables table already present")
		return 0, nil
	}

	log.Info().Msg("setting up NAT with nftables")
	if err := st.writeRuleset(s); err != nil {
		log.Warn().Err(err).Msg("failed to write nftables ruleset, falling back to iptables")
		return st.fallback.Ensure(ctx, s)
	}

	res := st.nh.run(ctx, executor.New("nft", "-f", constant.NftablesFile))
	if err := res.Err(); err != nil {
		log.Warn().Err(err).Msg("failed to apply nftables rules, falling back to iptables")
		return st.fallback.Ensure(ctx, s)
	}
	return len(BridgeRules(s)) + len(PortForwardRules(s)), nil
}

func (st *nftablesStrategy) writeRuleset(s models.Settings) error {
	content, err := RenderNftables(s)
	if err != nil {
		return err
	}
	if err := st.nh.fs.MkdirAll(filepath.Dir(constant.NftablesFile), 0755); err != nil {
		return fmt.Errorf("failed to create nftables directory: %w", err)
	}
	if err := afero.WriteFile(st.nh.fs, constant.NftablesFile, content, 0644); err != nil {
		return fmt.Errorf("failed to write nftables file: %w", err)
	}
	return nil
}

// Remove drops the bridge table, then runs the iptables deletions in case
// an earlier setup fell back to iptables.
func (st *nftablesStrategy) Remove(ctx context.Context, s models.Settings) error {
	deleted := false
	if inspector := st.nh.tableInspector(); inspector != nil {
		if err := inspector.DeleteTable(TableName); err != nil {
			log.Debug().Err(err).Msg("netlink table delete failed")
		} else {
			deleted = true
		}
	}
	if !deleted {
		st.nh.run(ctx, executor.New("nft", "delete", "table", "ip", TableName))
	}
	return st.fallback.Remove(ctx, s)
}

func (st *nftablesStrategy) Persist(ctx context.Context, s models.Settings) error {
	if err := st.writeRuleset(s); err != nil {
		return err
	}

	if exists, _ := afero.Exists(st.nh.fs, constant.NftablesService); exists {
		st.nh.run(ctx, executor.New("rc-update", "add", "nftables", "default"))
	}

	script := fmt.Sprintf("#!/bin/sh\n# Load nftables rules\n/usr/sbin/nft -f %s\nexit 0\n", constant.NftablesFile)
	return st.nh.writeBootScript(constant.NftablesScript, script)
}
