package vcd

import (
	"strings"
	"testing"
)

// The edge service checks run last, so a full pipeline against the fake
// Cloud Director with one service configuration swapped out exercises each
// rejection through the real request path.

func runWithEdgeConfig(t *testing.T, mutate func(*fakeVCD)) error {
	t.Helper()
	f := newFakeVCD(t)
	mutate(f)
	_, _, _, err := runPipeline(t, f)
	return err
}

func TestEdgeFirewallRejectsAnyPort(t *testing.T) {
	err := runWithEdgeConfig(t, func(f *fakeVCD) {
		f.firewallXML = `<firewallConfig><enabled>true</enabled><firewallRules>
			<firewallRule><id>131073</id><ruleType>user</ruleType><action>accept</action>
				<application><service><protocol>tcp</protocol><port>any</port></service></application>
			</firewallRule>
		</firewallRules></firewallConfig>`
	})
	if err == nil || !strings.Contains(err.Error(), "any as a TCP/UDP port") {
		t.Errorf("err = %v", err)
	}
}

func TestEdgeFirewallRejectsVnicGroup(t *testing.T) {
	err := runWithEdgeConfig(t, func(f *fakeVCD) {
		f.firewallXML = `<firewallConfig><enabled>true</enabled><firewallRules>
			<firewallRule><id>131073</id><ruleType>user</ruleType><action>accept</action>
				<source><vnicGroupId>vnic-group-0</vnicGroupId></source>
			</firewallRule>
		</firewallRules></firewallConfig>`
	})
	if err == nil || !strings.Contains(err.Error(), "vNIC group is present in firewall rule 131073") {
		t.Errorf("err = %v", err)
	}
}

func TestEdgeFirewallRejectsUnsupportedGroupingObject(t *testing.T) {
	err := runWithEdgeConfig(t, func(f *fakeVCD) {
		f.firewallXML = `<firewallConfig><enabled>true</enabled><firewallRules>
			<firewallRule><id>131073</id><ruleType>user</ruleType><action>accept</action>
				<destination><groupingObjectId>securitygroup-7</groupingObjectId></destination>
			</firewallRule>
		</firewallRules></firewallConfig>`
	})
	if err == nil || !strings.Contains(err.Error(), "object type in firewall rule 131073 is not supported") {
		t.Errorf("err = %v", err)
	}
}

func TestEdgeFirewallAcceptsIPSetGroupingObject(t *testing.T) {
	err := runWithEdgeConfig(t, func(f *fakeVCD) {
		f.firewallXML = `<firewallConfig><enabled>true</enabled><firewallRules>
			<firewallRule><id>131073</id><ruleType>user</ruleType><action>accept</action>
				<destination><groupingObjectId>ipset-3</groupingObjectId></destination>
			</firewallRule>
		</firewallRules></firewallConfig>`
	})
	if err != nil {
		t.Errorf("ipset grouping object rejected: %v", err)
	}
}

func TestEdgeFirewallRejectsDisabledFirewall(t *testing.T) {
	err := runWithEdgeConfig(t, func(f *fakeVCD) {
		f.firewallXML = `<firewallConfig><enabled>false</enabled></firewallConfig>`
	})
	if err == nil || !strings.Contains(err.Error(), "firewall is disabled") {
		t.Errorf("err = %v", err)
	}
}

func TestEdgeIPSecRejectsRouteBasedSession(t *testing.T) {
	err := runWithEdgeConfig(t, func(f *fakeVCD) {
		f.ipsecXML = `<ipsec><enabled>true</enabled><sites><site>
			<name>tunnel-1</name>
			<ipsecSessionType>routebasedsession</ipsecSessionType>
			<encryptionAlgorithm>aes256</encryptionAlgorithm>
			<authenticationMode>psk</authenticationMode>
			<digestAlgorithm>sha1</digestAlgorithm>
		</site></sites></ipsec>`
	})
	if err == nil || !strings.Contains(err.Error(), "routebased session type") {
		t.Errorf("err = %v", err)
	}
}

func TestEdgeIPSecRejectsCertificateAuthentication(t *testing.T) {
	err := runWithEdgeConfig(t, func(f *fakeVCD) {
		f.ipsecXML = `<ipsec><enabled>true</enabled><sites><site>
			<name>tunnel-1</name>
			<ipsecSessionType>policybasedsession</ipsecSessionType>
			<encryptionAlgorithm>aes256</encryptionAlgorithm>
			<authenticationMode>x.509</authenticationMode>
			<digestAlgorithm>sha1</digestAlgorithm>
		</site></sites></ipsec>`
	})
	if err == nil || !strings.Contains(err.Error(), "authentication mode as certificate") {
		t.Errorf("err = %v", err)
	}
}

func TestEdgeNAT64Rejected(t *testing.T) {
	err := runWithEdgeConfig(t, func(f *fakeVCD) {
		f.natXML = `<natConfig>
			<nat64Rules><nat64Rule><ruleId>1</ruleId></nat64Rule></nat64Rules>
			<natRules></natRules>
		</natConfig>`
	})
	if err == nil || !strings.Contains(err.Error(), "NAT64 rule is configured") {
		t.Errorf("err = %v", err)
	}
}
