package netfilterHelper

import "github.com/enrell/alpine-wifi-bridge/models"

// BridgeRules is the ordered NAT and forwarding rule set between the Wi-Fi
// uplink and the wired LAN. It needs both interfaces.
func BridgeRules(s models.Settings) []Rule {
	wlan, eth, subnet := s.WLANIface, s.ETHIface, s.LANSubnet()
	return []Rule{
		{Kind: KindNAT, Table: "nat", Chain: "POSTROUTING", Match: []string{"-o", wlan, "-j", "MASQUERADE"}},
		{Kind: KindForward, Chain: "FORWARD", Match: []string{"-i", eth, "-o", wlan, "-m", "state", "--state", "RELATED,ESTABLISHED", "-j", "ACCEPT"}},
		{Kind: KindForward, Chain: "FORWARD", Match: []string{"-i", wlan, "-o", eth, "-j", "ACCEPT"}},
		{Kind: KindForward, Chain: "FORWARD", Match: []string{"-m", "state", "--state", "ESTABLISHED,RELATED", "-j", "ACCEPT"}},
		{Kind: KindForward, Chain: "FORWARD", Match: []string{"-i", eth, "-j", "ACCEPT"}},
		{Kind: KindForward, Chain: "FORWARD", Match: []string{"-s", subnet, "-d", subnet, "-j", "ACCEPT"}},
		{Kind: KindOther, Chain: "INPUT", Match: []string{"-i", eth, "-j", "ACCEPT"}},
		{Kind: KindOther, Chain: "OUTPUT", Match: []string{"-o", wlan, "-j", "ACCEPT"}},
		{Kind: KindOther, Chain: "INPUT", Match: []string{"-p", "icmp", "-j", "ACCEPT"}},
		{Kind: KindOther, Chain: "OUTPUT", Match: []string{"-p", "icmp", "-j", "ACCEPT"}},
		{Kind: KindOther, Chain: "FORWARD", Match: []string{"-p", "icmp", "-j", "ACCEPT"}},
	}
}

// PortForwardRules sends everything arriving on the Wi-Fi interface to the
// wired PC. Empty unless port forwarding is enabled and PC_IP is set.
func PortForwardRules(s models.Settings) []Rule {
	if !s.PortForwarding() {
		return nil
	}
	rules := []Rule{
		{Kind: KindNAT, Table: "nat", Chain: "PREROUTING", Match: []string{"-i", s.WLANIface, "-j", "DNAT", "--to-destination", s.PCIP}},
	}
	if s.ETHIface != "" {
		rules = append(rules, Rule{Kind: KindNAT, Table: "nat", Chain: "POSTROUTING", Match: []string{"-o", s.ETHIface, "-j", "MASQUERADE"}})
	}
	return rules
}

func Specs(rules []Rule) []RuleSpec {
	specs := make([]RuleSpec, len(rules))
	for i, r := range rules {
		specs[i] = NewRuleSpec(r)
	}
	return specs
}
