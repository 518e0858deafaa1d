package netfilterHelper

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/enrell/alpine-wifi-bridge/constant"
	"github.com/enrell/alpine-wifi-bridge/internal/executor"
	"github.com/enrell/alpine-wifi-bridge/models"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// iptablesStrategy reconciles every rule on its own with -C/-A.
type iptablesStrategy struct {
	nh *NetfilterHelper
}

func (st *iptablesStrategy) Backend() Backend {
	return BackendIptables
}

func (st *iptablesStrategy) Ensure(ctx context.Context, s models.Settings) (int, error) {
	applied := st.nh.reconciler.EnsureAll(ctx, Specs(BridgeRules(s)))
	applied += st.nh.reconciler.EnsureAll(ctx, Specs(PortForwardRules(s)))
	return applied, nil
}

// Remove deletes the port forwarding rules first, then the bridge rules,
// both in the order they were added.
func (st *iptablesStrategy) Remove(ctx context.Context, s models.Settings) error {
	st.nh.reconciler.RemoveAll(ctx, Specs(RemovalRules(s)))
	return nil
}

// Persist saves the live tables so they survive a reboot. With the
// iptables service installed its own save is used, otherwise a local.d
// boot script restores the dump.
func (st *iptablesStrategy) Persist(ctx context.Context, s models.Settings) error {
	nh := st.nh
	log.Info().Msg("saving iptables rules")

	if exists, _ := afero.Exists(nh.fs, constant.IPTablesService); exists {
		res := nh.run(ctx, executor.New(constant.IPTablesService, "save"))
		return res.Err()
	}

	res := nh.run(ctx, executor.New("iptables-save"))
	if err := res.Err(); err != nil {
		return fmt.Errorf("failed to dump iptables rules: %w", err)
	}
	if err := nh.fs.MkdirAll(filepath.Dir(s.IPTablesRules), 0755); err != nil {
		return fmt.Errorf("failed to create rules directory: %w", err)
	}
	if err := afero.WriteFile(nh.fs, s.IPTablesRules, []byte(res.Stdout), 0644); err != nil {
		return fmt.Errorf("failed to write rules file: %w", err)
	}

	script := fmt.Sprintf("#!/bin/sh\n# Load iptables rules\n/sbin/iptables-restore < %s\nexit 0\n", s.IPTablesRules)
	if err := nh.writeBootScript(s.IPTablesScript, script); err != nil {
		return err
	}
	if res := nh.run(ctx, executor.New("rc-update", "add", "local", "default")); !res.Success() {
		log.Warn().Err(res.Err()).Msg("failed to enable local service - skipping this step")
	}
	return nil
}

// RemovalRules lists every rule setup may have added, port forwarding
// first. Nothing is filtered on the current flags so that rules left by an
// earlier configuration are removed too.
func RemovalRules(s models.Settings) []Rule {
	var rules []Rule
	if s.WLANIface != "" && s.PCIP != "" {
		rules = append(rules, Rule{Kind: KindNAT, Table: "nat", Chain: "PREROUTING", Match: []string{"-i", s.WLANIface, "-j", "DNAT", "--to-destination", s.PCIP}})
	}
	if s.ETHIface != "" {
		rules = append(rules, Rule{Kind: KindNAT, Table: "nat", Chain: "POSTROUTING", Match: []string{"-o", s.ETHIface, "-j", "MASQUERADE"}})
	}
	for _, r := range BridgeRules(s) {
		// an unknown interface would turn into an empty -i/-o argument
		if mentions(r, "") {
			continue
		}
		rules = append(rules, r)
	}
	return rules
}

// mentions reports whether an interface argument of r equals name.
func mentions(r Rule, name string) bool {
	for i := 0; i+1 < len(r.Match); i++ {
		if (r.Match[i] == "-i" || r.Match[i] == "-o") && r.Match[i+1] == name {
			return true
		}
	}
	return false
}
