package netfilterHelper

import (
	"fmt"

	bridgeErrors "github.com/enrell/alpine-wifi-bridge/internal/errors"
	"github.com/enrell/alpine-wifi-bridge/internal/executor"
)

const iptablesBin = "iptables"

type RuleKind int

const (
	KindOther RuleKind = iota
	KindNAT
	KindForward
)

func (k RuleKind) String() string {
	switch k {
	case KindNAT:
		return "NAT"
	case KindForward:
		return "FORWARD"
	default:
		return "OTHER"
	}
}

// Verb is the iptables operation flag of a rule command.
type Verb string

const (
	VerbCheck  Verb = "-C"
	VerbAppend Verb = "-A"
	VerbDelete Verb = "-D"
)

var ErrVerbNotFound = bridgeErrors.New(bridgeErrors.KindDegraded, "verb not found in command")

// Rule is one iptables rule. An empty Table means the filter table, which
// is written without -t.
type Rule struct {
	Kind  RuleKind
	Table string
	Chain string
	Match []string
}

// Args returns the arguments of the rule for the given verb.
func (r Rule) Args(verb Verb) []string {
	args := make([]string, 0, len(r.Match)+4)
	if r.Table != "" && r.Table != "filter" {
		args = append(args, "-t", r.Table)
	}
	args = append(args, string(verb), r.Chain)
	return append(args, r.Match...)
}

func (r Rule) Command(verb Verb) executor.Command {
	return executor.New(iptablesBin, r.Args(verb)...)
}

func (r Rule) String() string {
	return r.Command(VerbAppend).String()
}

// RuleSpec pairs the command that tests for a rule with the one that adds
// it. Add is always Transform(Check, VerbCheck, VerbAppend).
type RuleSpec struct {
	Kind  RuleKind
	Check executor.Command
	Add   executor.Command
}

func NewRuleSpec(r Rule) RuleSpec {
	check := r.Command(VerbCheck)
	add, _ := DeriveAdd(check)
	return RuleSpec{Kind: r.Kind, Check: check, Add: add}
}

// Transform returns a copy of cmd with the single argument equal to from
// replaced by to. Every other argument is left untouched. It fails unless
// exactly one such argument is present.
func Transform(cmd executor.Command, from, to Verb) (executor.Command, error) {
	idx := -1
	for i, arg := range cmd.Args {
		if arg != string(from) {
			continue
		}
		if idx != -1 {
			return cmd, bridgeErrors.Errorf(bridgeErrors.KindDegraded, "verb %s appears more than once in %q", from, cmd.String())
		}
		idx = i
	}
	if idx == -1 {
		return cmd, bridgeErrors.Wrap(ErrVerbNotFound, bridgeErrors.KindDegraded, fmt.Sprintf("no %s in %q", from, cmd.String()))
	}

	out := cmd
	out.Args = append([]string(nil), cmd.Args...)
	out.Args[idx] = string(to)
	return out, nil
}

func DeriveAdd(check executor.Command) (executor.Command, error) {
	return Transform(check, VerbCheck, VerbAppend)
}

func DeriveDelete(check executor.Command) (executor.Command, error) {
	return Transform(check, VerbCheck, VerbDelete)
}
