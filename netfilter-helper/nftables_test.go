package netfilterHelper

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/enrell/alpine-wifi-bridge/constant"
	"github.com/enrell/alpine-wifi-bridge/internal/executor"
	"github.com/enrell/alpine-wifi-bridge/models"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInspector struct {
	counts  map[string]int
	deleted []string
	err     error
}

func (f *fakeInspector) RuleCounts(table string) (map[string]int, error) {
	return f.counts, f.err
}

func (f *fakeInspector) DeleteTable(table string) error {
	f.deleted = append(f.deleted, table)
	f.counts = nil
	return f.err
}

// loadedCounts is what the kernel reports after the rendered file for
// testSettings was applied.
func loadedCounts() map[string]int {
	return map[string]int{"prerouting": 1, "postrouting": 2, "input": 2, "forward": 6, "output": 2}
}

func newNftHelper(runner *executor.Fake, fs afero.Fs, inspector *fakeInspector) *NetfilterHelper {
	runner.Paths["nft"] = true
	nh := New(runner, fs, 0)
	nh.NewTableInspector = func() (TableInspector, error) { return inspector, nil }
	return nh
}

func TestRenderNftables(t *testing.T) {
	content, err := RenderNftables(testSettings())
	require.NoError(t, err)

	text := string(content)
	assert.Contains(t, text, "delete table ip wifibridge")
	assert.Contains(t, text, `oifname "wlan0" masquerade`)
	assert.Contains(t, text, `iifname "wlan0" dnat to 10.42.0.2`)
	assert.Contains(t, text, "ip saddr 10.42.0.0/24 ip daddr 10.42.0.0/24 accept")

	s := testSettings()
	s.EnablePortForwarding = false
	content, err = RenderNftables(s)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "dnat")
}

func TestNftablesEnsureAppliesFileOnce(t *testing.T) {
	runner := executor.NewFake()
	fs := afero.NewMemMapFs()
	inspector := &fakeInspector{}
	nh := newNftHelper(runner, fs, inspector)

	applied, err := nh.Ensure(context.Background(), testSettings())
	require.NoError(t, err)
	assert.Equal(t, 13, applied)
	assert.Equal(t, BackendNftables, nh.Backend())
	assert.Equal(t, []string{"nft -f " + constant.NftablesFile}, runner.Commands())

	exists, err := afero.Exists(fs, constant.NftablesFile)
	require.NoError(t, err)
	assert.True(t, exists)

	inspector.counts = loadedCounts()
	runner.Reset()
	applied, err = nh.Ensure(context.Background(), testSettings())
	require.NoError(t, err)
	assert.Zero(t, applied)
	assert.Empty(t, runner.Commands())
}

func TestNftablesEnsureReloadsFlushedChain(t *testing.T) {
	runner := executor.NewFake()
	counts := loadedCounts()
	counts["forward"] = 0
	nh := newNftHelper(runner, afero.NewMemMapFs(), &fakeInspector{counts: counts})

	applied, err := nh.Ensure(context.Background(), testSettings())
	require.NoError(t, err)
	assert.Equal(t, 13, applied)
	assert.Equal(t, []string{"nft -f " + constant.NftablesFile}, runner.Commands())
}

func TestNftablesEnsureReloadsMissingChain(t *testing.T) {
	runner := executor.NewFake()
	counts := loadedCounts()
	delete(counts, "output")
	nh := newNftHelper(runner, afero.NewMemMapFs(), &fakeInspector{counts: counts})

	applied, err := nh.Ensure(context.Background(), testSettings())
	require.NoError(t, err)
	assert.Equal(t, 13, applied)
}

func TestExpectedRuleCountsMatchRenderedFile(t *testing.T) {
	for _, s := range []models.Settings{testSettings(), func() models.Settings {
		s := testSettings()
		s.EnablePortForwarding = false
		return s
	}()} {
		content, err := RenderNftables(s)
		require.NoError(t, err)

		got := map[string]int{}
		chain := ""
		for _, line := range strings.Split(string(content), "\n") {
			line = strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(line, "chain "):
				chain = strings.Fields(line)[1]
				got[chain] = 0
			case line == "}" || line == "" || strings.HasPrefix(line, "type "):
			case chain != "":
				got[chain]++
			}
		}
		assert.Equal(t, expectedRuleCounts(s), got)
	}
}

func TestNftablesFallsBackToIptables(t *testing.T) {
	runner := executor.NewFake()
	runner.On("nft -f "+constant.NftablesFile, executor.Result{ExitCode: 1, Stderr: "syntax error"})
	newFakeTables(runner)
	nh := newNftHelper(runner, afero.NewMemMapFs(), &fakeInspector{})

	applied, err := nh.Ensure(context.Background(), testSettings())
	require.NoError(t, err)
	assert.Equal(t, 13, applied)
	assert.Len(t, runner.CommandsWithPrefix("iptables -t nat -A"), 3)
}

func TestNftablesRemoveDeletesTable(t *testing.T) {
	runner := executor.NewFake()
	inspector := &fakeInspector{counts: loadedCounts()}
	nh := newNftHelper(runner, afero.NewMemMapFs(), inspector)

	require.NoError(t, nh.Remove(context.Background(), testSettings()))
	assert.Equal(t, []string{TableName}, inspector.deleted)
	assert.Empty(t, runner.CommandsWithPrefix("nft "))
	assert.NotEmpty(t, runner.CommandsWithPrefix("iptables -t nat -D"))

	runner.Reset()
	inspector.err = errors.New("netlink unavailable")
	nh = newNftHelper(runner, afero.NewMemMapFs(), inspector)
	require.NoError(t, nh.Remove(context.Background(), testSettings()))
	assert.Equal(t, []string{"nft delete table ip wifibridge"}, runner.CommandsWithPrefix("nft "))
}

func TestNftablesPersist(t *testing.T) {
	runner := executor.NewFake()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, constant.NftablesService, nil, 0755))
	nh := newNftHelper(runner, fs, &fakeInspector{})

	require.NoError(t, nh.Persist(context.Background(), testSettings()))
	script, err := afero.ReadFile(fs, constant.NftablesScript)
	require.NoError(t, err)
	assert.Contains(t, string(script), "/usr/sbin/nft -f "+constant.NftablesFile)
	assert.Equal(t, []string{"rc-update add nftables default"}, runner.Commands())
}
