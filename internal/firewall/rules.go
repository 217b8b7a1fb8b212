// Package firewall reads the live NAT table and decides whether traffic is
// currently redirected into Tor's transparent proxy.
package firewall

import (
	"bufio"
	"strconv"
	"strings"
)

// DefaultTransPort is Tor's TransPort. It is a contract with the helper
// script (TRANS_PORT) and the torrc block it installs; changing one without
// the others makes every status reading wrong.
const DefaultTransPort = 9040

// Rule is one appended rule from `iptables -S` output.
type Rule struct {
	Chain    string
	Target   string
	Protocol string
	ToPorts  string
	Raw      string
}

// ParseRules extracts the -A lines of an `iptables -S` listing. Policy (-P)
// and chain (-N) lines are skipped.
func ParseRules(listing string) []Rule {
	var rules []Rule
	scanner := bufio.NewScanner(strings.NewReader(listing))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "-A" {
			continue
		}
		r := Rule{Chain: fields[1], Raw: line}
		for i := 2; i < len(fields)-1; i++ {
			switch fields[i] {
			case "-j", "--jump":
				r.Target = fields[i+1]
			case "-p", "--protocol":
				r.Protocol = fields[i+1]
			case "--to-ports", "--to-port":
				r.ToPorts = fields[i+1]
			}
		}
		rules = append(rules, r)
	}
	return rules
}

// RedirectsTo reports whether the rule REDIRECTs to exactly port, either as
// a single port or a degenerate range like 9040-9040.
func (r Rule) RedirectsTo(port int) bool {
	if r.Target != "REDIRECT" || r.ToPorts == "" {
		return false
	}
	lo, hi, found := strings.Cut(r.ToPorts, "-")
	if !found {
		hi = lo
	}
	from, err := strconv.Atoi(lo)
	if err != nil {
		return false
	}
	to, err := strconv.Atoi(hi)
	if err != nil {
		return false
	}
	return from == port && to == port
}

// HasRedirect reports whether listing contains a REDIRECT to port.
func HasRedirect(listing string, port int) bool {
	for _, r := range ParseRules(listing) {
		if r.RedirectsTo(port) {
			return true
		}
	}
	return false
}
