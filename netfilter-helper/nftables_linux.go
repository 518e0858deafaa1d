//go:build linux

package netfilterHelper

import (
	"fmt"

	"github.com/google/nftables"
)

type netlinkTables struct {
	conn *nftables.Conn
}

func newTableInspector() (TableInspector, error) {
	conn, err := nftables.New()
	if err != nil {
		return nil, fmt.Errorf("failed to open nftables connection: %w", err)
	}
	return &netlinkTables{conn: conn}, nil
}

func (n *netlinkTables) RuleCounts(table string) (map[string]int, error) {
	tables, err := n.conn.ListTablesOfFamily(nftables.TableFamilyIPv4)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	found := false
	for _, t := range tables {
		if t.Name == table {
			found = true
			break
		}
	}
	if !found {
		return nil, nil
	}

	chains, err := n.conn.ListChainsOfTableFamily(nftables.TableFamilyIPv4)
	if err != nil {
		return nil, fmt.Errorf("failed to list chains: %w", err)
	}
	counts := make(map[string]int)
	for _, c := range chains {
		if c.Table == nil || c.Table.Name != table {
			continue
		}
		rules, err := n.conn.GetRules(c.Table, c)
		if err != nil {
			return nil, fmt.Errorf("failed to list rules of chain %s: %w", c.Name, err)
		}
		counts[c.Name] = len(rules)
	}
	return counts, nil
}

func (n *netlinkTables) DeleteTable(table string) error {
	n.conn.DelTable(&nftables.Table{Name: table, Family: nftables.TableFamilyIPv4})
	if err := n.conn.Flush(); err != nil {
		return fmt.Errorf("failed to delete table %s: %w", table, err)
	}
	return nil
}
