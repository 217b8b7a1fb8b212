package firewall

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/better-ecosystem/better-tor/internal/privexec"
)

const loadedTable = `-P PREROUTING ACCEPT
-P INPUT ACCEPT
-P OUTPUT ACCEPT
-P POSTROUTING ACCEPT
-A OUTPUT -m owner --uid-owner 43 -j RETURN
-A OUTPUT -p udp -m udp --dport 53 -j REDIRECT --to-ports 53
-A OUTPUT -d 127.0.0.0/9 -j RETURN
-A OUTPUT -d 192.168.0.0/16 -j RETURN
-A OUTPUT -p tcp -m tcp --tcp-flags FIN,SYN,RST,ACK SYN -j REDIRECT --to-ports 9040
`

const emptyTable = `-P PREROUTING ACCEPT
-P INPUT ACCEPT
-P OUTPUT ACCEPT
-P POSTROUTING ACCEPT
`

type fakeProber struct {
	inv privexec.Invocation
	err error
}

func (f fakeProber) Probe(context.Context) (privexec.Invocation, error) {
	return f.inv, f.err
}

func TestParseRules(t *testing.T) {
	rules := ParseRules(loadedTable)
	require.Len(t, rules, 5)

	assert.Equal(t, "OUTPUT", rules[1].Chain)
	assert.Equal(t, "REDIRECT", rules[1].Target)
	assert.Equal(t, "udp", rules[1].Protocol)
	assert.Equal(t, "53", rules[1].ToPorts)

	last := rules[4]
	assert.Equal(t, "tcp", last.Protocol)
	assert.True(t, last.RedirectsTo(9040))
	assert.False(t, last.RedirectsTo(9041))
}

func TestRedirectsTo(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		want bool
	}{
		{"exact", Rule{Target: "REDIRECT", ToPorts: "9040"}, true},
		{"degenerate range", Rule{Target: "REDIRECT", ToPorts: "9040-9040"}, true},
		{"wider range", Rule{Target: "REDIRECT", ToPorts: "9040-9050"}, false},
		{"prefix port", Rule{Target: "REDIRECT", ToPorts: "90401"}, false},
		{"dns redirect", Rule{Target: "REDIRECT", ToPorts: "53"}, false},
		{"dnat target", Rule{Target: "DNAT", ToPorts: "9040"}, false},
		{"garbage", Rule{Target: "REDIRECT", ToPorts: "abc"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.RedirectsTo(9040))
		})
	}
}

func TestInspectorActive(t *testing.T) {
	ok := func(out string) privexec.Invocation {
		return privexec.Invocation{Directive: privexec.Probe, ExitSuccess: true, Stdout: out}
	}

	tests := []struct {
		name   string
		prober fakeProber
		want   bool
	}{
		{"rule present", fakeProber{inv: ok(loadedTable)}, true},
		{"no rule", fakeProber{inv: ok(emptyTable)}, false},
		{"empty output", fakeProber{inv: ok("")}, false},
		{"probe error", fakeProber{inv: ok(loadedTable), err: errors.New("pkexec dismissed")}, false},
		{"non-zero exit", fakeProber{inv: privexec.Invocation{ExitCode: 4, Stdout: loadedTable, Stderr: "Permission denied"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := NewInspector(tt.prober, 0)
			assert.Equal(t, tt.want, i.Active(context.Background()))
		})
	}
}

func TestInspectorCustomPort(t *testing.T) {
	table := "-A OUTPUT -p tcp --syn -j REDIRECT --to-ports 9140\n"
	prober := fakeProber{inv: privexec.Invocation{ExitSuccess: true, Stdout: table}}

	assert.False(t, NewInspector(prober, 0).Active(context.Background()))
	assert.True(t, NewInspector(prober, 9140).Active(context.Background()))
	assert.Equal(t, DefaultTransPort, NewInspector(prober, -1).Port())
}
