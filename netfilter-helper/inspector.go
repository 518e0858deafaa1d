package netfilterHelper

import (
	"fmt"

	"github.com/enrell/alpine-wifi-bridge/models"

	"github.com/coreos/go-iptables/iptables"
	"github.com/rs/zerolog/log"
)

// RuleChecker is the part of *iptables.IPTables used for drift reports.
type RuleChecker interface {
	Exists(table, chain string, rulespec ...string) (bool, error)
}

type RuleStatus struct {
	Kind    string `json:"kind"`
	Table   string `json:"table"`
	Chain   string `json:"chain"`
	Rule    string `json:"rule"`
	Present bool   `json:"present"`
	Error   string `json:"error,omitempty"`
}

// Inspector reports which bridge rules are currently loaded without
// changing anything.
type Inspector struct {
	checker RuleChecker
}

func NewInspector() (*Inspector, error) {
	ipt, err := iptables.New(iptables.IPFamily(iptables.ProtocolIPv4))
	if err != nil {
		return nil, fmt.Errorf("iptables init fail: %w", err)
	}
	major, minor, patch := ipt.GetIptablesVersion()
	log.Debug().Msgf("inspecting rules with iptables v%d.%d.%d", major, minor, patch)
	return &Inspector{checker: ipt}, nil
}

func NewInspectorWith(checker RuleChecker) *Inspector {
	return &Inspector{checker: checker}
}

func (in *Inspector) Status(s models.Settings) []RuleStatus {
	rules := append(BridgeRules(s), PortForwardRules(s)...)
	out := make([]RuleStatus, 0, len(rules))
	for _, r := range rules {
		table := r.Table
		if table == "" {
			table = "filter"
		}
		st := RuleStatus{
			Kind:  r.Kind.String(),
			Table: table,
			Chain: r.Chain,
			Rule:  r.String(),
		}
		ok, err := in.checker.Exists(table, r.Chain, r.Match...)
		if err != nil {
			st.Error = err.Error()
		}
		st.Present = ok
		out = append(out, st)
	}
	return out
}

// Missing counts rules that are not loaded.
func Missing(status []RuleStatus) int {
	n := 0
	for _, st := range status {
		if !st.Present {
			n++
		}
	}
	return n
}
