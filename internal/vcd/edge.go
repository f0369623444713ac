package vcd

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
)

// dhcpConfig is the NSX proxy view of the edge gateway DHCP service.
type dhcpConfig struct {
	Enabled        bool `xml:"enabled" json:"enabled"`
	StaticBindings struct {
		StaticBinding []dhcpStaticBinding `xml:"staticBinding" json:"staticBinding"`
	} `xml:"staticBindings" json:"staticBindings"`
	IPPools struct {
		IPPool []dhcpPool `xml:"ipPool" json:"ipPool"`
	} `xml:"ipPools" json:"ipPools"`
}

type dhcpStaticBinding struct {
	MACAddress string `xml:"macAddress" json:"macAddress"`
	IPAddress  string `xml:"ipAddress" json:"ipAddress"`
}

type dhcpPool struct {
	IPRange        string `xml:"ipRange" json:"ipRange"`
	DefaultGateway string `xml:"defaultGateway" json:"defaultGateway"`
}

// dhcpRelay captures the relay sub-document; only its presence matters, so
// the body is kept raw.
type dhcpRelay struct {
	Inner string `xml:",innerxml"`
}

func (r dhcpRelay) configured() bool {
	return strings.TrimSpace(r.Inner) != ""
}

// firewallConfig is the NSX proxy view of the edge gateway firewall.
type firewallConfig struct {
	Enabled       bool `xml:"enabled" json:"enabled"`
	FirewallRules struct {
		FirewallRule []firewallRule `xml:"firewallRule" json:"firewallRule"`
	} `xml:"firewallRules" json:"firewallRules"`
}

type firewallRule struct {
	ID          string            `xml:"id" json:"id"`
	Name        string            `xml:"name" json:"name"`
	RuleType    string            `xml:"ruleType" json:"ruleType"`
	Action      string            `xml:"action" json:"action"`
	Source      *firewallEndpoint `xml:"source" json:"source,omitempty"`
	Destination *firewallEndpoint `xml:"destination" json:"destination,omitempty"`
	Application *struct {
		Service []firewallService `xml:"service" json:"service"`
	} `xml:"application" json:"application,omitempty"`
}

type firewallEndpoint struct {
	IPAddress        []string `xml:"ipAddress" json:"ipAddress,omitempty"`
	VnicGroupID      []string `xml:"vnicGroupId" json:"vnicGroupId,omitempty"`
	GroupingObjectID []string `xml:"groupingObjectId" json:"groupingObjectId,omitempty"`
}

type firewallService struct {
	Protocol string `xml:"protocol" json:"protocol"`
	Port     string `xml:"port" json:"port"`
}

// natConfig is the NSX proxy view of the edge gateway NAT service.
type natConfig struct {
	Nat64Rules struct {
		Inner string `xml:",innerxml" json:"-"`
	} `xml:"nat64Rules" json:"-"`
	NatRules struct {
		NatRule []natRule `xml:"natRule" json:"natRule"`
	} `xml:"natRules" json:"natRules"`
}

type natRule struct {
	RuleID            string `xml:"ruleId" json:"ruleId"`
	RuleType          string `xml:"ruleType" json:"ruleType"`
	Action            string `xml:"action" json:"action"`
	OriginalAddress   string `xml:"originalAddress" json:"originalAddress"`
	TranslatedAddress string `xml:"translatedAddress" json:"translatedAddress"`
}

// IPSecConfig is the edge gateway IPsec site-to-site VPN configuration; it is
// handed to the migration phase for recreation on the target gateway.
type IPSecConfig struct {
	Enabled bool `xml:"enabled" json:"enabled"`
	Sites   struct {
		Site []IPSecSite `xml:"site" json:"site"`
	} `xml:"sites" json:"sites"`
}

// IPSecSite is one site-to-site tunnel of the IPsec configuration.
type IPSecSite struct {
	Name                string `xml:"name" json:"name"`
	LocalIP             string `xml:"localIp" json:"localIp"`
	PeerIP              string `xml:"peerIp" json:"peerIp"`
	IpsecSessionType    string `xml:"ipsecSessionType" json:"ipsecSessionType"`
	EncryptionAlgorithm string `xml:"encryptionAlgorithm" json:"encryptionAlgorithm"`
	AuthenticationMode  string `xml:"authenticationMode" json:"authenticationMode"`
	DigestAlgorithm     string `xml:"digestAlgorithm" json:"digestAlgorithm"`
}

// BGPConfig is the edge gateway BGP configuration; it is handed to the
// migration phase for recreation on the target gateway.
type BGPConfig struct {
	Enabled bool   `xml:"enabled" json:"enabled"`
	LocalAS string `xml:"localAS" json:"localAS"`
}

// routingConfig is the NSX proxy view of the edge gateway routing service.
type routingConfig struct {
	Ospf struct {
		Enabled bool `xml:"enabled" json:"enabled"`
	} `xml:"ospf" json:"ospf"`
	StaticRouting struct {
		StaticRoutes struct {
			Route []staticRoute `xml:"route" json:"route"`
		} `xml:"staticRoutes" json:"staticRoutes"`
	} `xml:"staticRouting" json:"staticRouting"`
}

type staticRoute struct {
	Network string `xml:"network" json:"network"`
	NextHop string `xml:"nextHop" json:"nextHop"`
}

// serviceToggle covers the services whose only relevant property is the
// enabled flag: load balancer, L2 VPN and SSL VPN.
type serviceToggle struct {
	Enabled bool `xml:"enabled"`
}

// dnsForwarders is the forwarder list of the default DNS view.
type dnsForwarders struct {
	IPAddress []string `xml:"ipAddress" json:"ipAddress"`
}

type dnsConfig struct {
	DNSViews struct {
		DNSView struct {
			Forwarders dnsForwarders `xml:"forwarders"`
		} `xml:"dnsView"`
	} `xml:"dnsViews"`
}

// fetchEdgeGatewayServices walks every network service of the source edge
// gateway through the NSX proxy, rejects configurations that cannot be
// recreated on an NSX-T gateway, and stores the rest for the migration
// phase.
func (p *Pipeline) fetchEdgeGatewayServices(ctx context.Context) error {
	gatewayID := bareID(p.edgeGatewayID)
	if err := p.checkDHCP(ctx, gatewayID); err != nil {
		return err
	}
	if err := p.checkFirewall(ctx, gatewayID); err != nil {
		return err
	}
	if err := p.checkNAT(ctx, gatewayID); err != nil {
		return err
	}
	if err := p.checkIPSec(ctx, gatewayID); err != nil {
		return err
	}
	if err := p.checkBGP(ctx, gatewayID); err != nil {
		return err
	}
	if err := p.checkRouting(ctx, gatewayID); err != nil {
		return err
	}
	if err := p.checkLoadBalancer(ctx, gatewayID); err != nil {
		return err
	}
	if err := p.checkL2VPN(ctx, gatewayID); err != nil {
		return err
	}
	if err := p.checkSSLVPN(ctx, gatewayID); err != nil {
		return err
	}
	return p.checkDNS(ctx, gatewayID)
}

func (p *Pipeline) checkDHCP(ctx context.Context, gatewayID string) error {
	var relay dhcpRelay
	relayURL := p.client.nsxURL("/edges/" + gatewayID + "/dhcp/config/relay")
	if err := p.client.getXML(ctx, "get edge gateway DHCP relay", relayURL, &relay); err != nil {
		return err
	}
	if relay.configured() {
		return failf("relay is configured in DHCP of source edge gateway")
	}

	var dhcp dhcpConfig
	url := p.client.nsxURL("/edges/" + gatewayID + "/dhcp/config")
	if err := p.client.getXML(ctx, "get edge gateway DHCP configuration", url, &dhcp); err != nil {
		return err
	}
	if len(dhcp.StaticBindings.StaticBinding) > 0 {
		return failf("static binding is in DHCP configuration of source edge gateway")
	}
	return p.store.Write(keyEdgeGatewayDHCP, dhcp)
}

func (p *Pipeline) checkFirewall(ctx context.Context, gatewayID string) error {
	var firewall firewallConfig
	url := p.client.nsxURL("/edges/" + gatewayID + "/firewall/config")
	if err := p.client.getXML(ctx, "get edge gateway firewall configuration", url, &firewall); err != nil {
		return err
	}
	if !firewall.Enabled {
		return failf("firewall is disabled in source edge gateway")
	}

	// User rules plus any default policy the user flipped away from accept
	// are the ones that must be recreated on the target.
	var userRules []firewallRule
	for _, rule := range firewall.FirewallRules.FirewallRule {
		if rule.RuleType == "user" || (rule.RuleType == "default_policy" && rule.Action != "accept") {
			userRules = append(userRules, rule)
		}
	}
	for _, rule := range userRules {
		if rule.Application != nil {
			for _, service := range rule.Application.Service {
				if (service.Protocol == "tcp" || service.Protocol == "udp") && service.Port == "any" {
					return failf("any as a TCP/UDP port is not supported in target firewall")
				}
			}
		}
		for _, endpoint := range []*firewallEndpoint{rule.Source, rule.Destination} {
			if endpoint == nil {
				continue
			}
			if len(endpoint.VnicGroupID) > 0 {
				return failf("vNIC group is present in firewall rule %s", rule.ID)
			}
			for _, object := range endpoint.GroupingObjectID {
				if !strings.Contains(object, "ipset") && !strings.Contains(object, "network") {
					return failf("the object type in firewall rule %s is not supported", rule.ID)
				}
			}
		}
	}
	return p.store.Write(keyEdgeGatewayFirewall, userRules)
}

func (p *Pipeline) checkNAT(ctx context.Context, gatewayID string) error {
	var nat natConfig
	url := p.client.nsxURL("/edges/" + gatewayID + "/nat/config")
	if err := p.client.getXML(ctx, "get edge gateway NAT configuration", url, &nat); err != nil {
		return err
	}
	if strings.TrimSpace(nat.Nat64Rules.Inner) != "" {
		return failf("NAT64 rule is configured in source but not supported in target")
	}
	for _, rule := range nat.NatRules.NatRule {
		if rule.Action == "dnat" && (strings.Contains(rule.TranslatedAddress, "-") || strings.Contains(rule.TranslatedAddress, "/")) {
			return failf("range of IPs or network found in DNAT rule %s and range cannot be used in target edge gateway", rule.RuleID)
		}
	}
	return p.store.Write(keyEdgeGatewayNAT, nat)
}

func (p *Pipeline) checkIPSec(ctx context.Context, gatewayID string) error {
	var ipsec IPSecConfig
	url := p.client.nsxURL("/edges/" + gatewayID + "/ipsec/config")
	if err := p.client.getXML(ctx, "get edge gateway IPsec configuration", url, &ipsec); err != nil {
		return err
	}
	for _, site := range ipsec.Sites.Site {
		if site.IpsecSessionType != "policybasedsession" {
			return failf("source IPsec rule is having routebased session type which is not supported")
		}
		if site.EncryptionAlgorithm != "aes256" {
			return failf("source IPsec rule is configured with unsupported encryption algorithm %s", site.EncryptionAlgorithm)
		}
		if site.AuthenticationMode != "psk" {
			return failf("authentication mode as certificate is not supported in target edge gateway")
		}
		if site.DigestAlgorithm != "sha1" {
			return failf("the specified digest algorithm %s is not supported in target edge gateway", site.DigestAlgorithm)
		}
	}
	if len(ipsec.Sites.Site) > 0 {
		p.ipsecConfig = &ipsec
	}
	return nil
}

func (p *Pipeline) checkBGP(ctx context.Context, gatewayID string) error {
	url := p.client.nsxURL("/edges/" + gatewayID + "/routing/config/bgp")
	resp, err := p.client.do(ctx, http.MethodGet, url, acceptXML, nil, "")
	if err != nil {
		return fmt.Errorf("get edge gateway BGP configuration: %w", err)
	}
	if !resp.ok() {
		return remoteErr("get edge gateway BGP configuration", resp)
	}
	// An edge gateway without BGP returns an empty body.
	if len(resp.Body) == 0 {
		p.log.Debug().Msg("no BGP configuration on source edge gateway")
		return nil
	}
	var bgp BGPConfig
	if err := xml.Unmarshal(resp.Body, &bgp); err != nil {
		return fmt.Errorf("get edge gateway BGP configuration: decoding response: %w", err)
	}
	p.bgpConfig = &bgp
	return nil
}

func (p *Pipeline) checkRouting(ctx context.Context, gatewayID string) error {
	var routing routingConfig
	url := p.client.nsxURL("/edges/" + gatewayID + "/routing/config")
	if err := p.client.getXML(ctx, "get edge gateway routing configuration", url, &routing); err != nil {
		return err
	}
	if routing.Ospf.Enabled {
		return failf("OSPF routing protocol is configured in the source but not supported in the target")
	}
	return p.store.Write(keyEdgeGatewayRouting, routing)
}

func (p *Pipeline) checkLoadBalancer(ctx context.Context, gatewayID string) error {
	var lb serviceToggle
	url := p.client.nsxURL("/edges/" + gatewayID + "/loadbalancer/config")
	if err := p.client.getXML(ctx, "get edge gateway load balancer configuration", url, &lb); err != nil {
		return err
	}
	if lb.Enabled {
		return failf("load balancer service is configured in the source but not supported in the target")
	}
	return nil
}

func (p *Pipeline) checkL2VPN(ctx context.Context, gatewayID string) error {
	var l2vpn serviceToggle
	url := p.client.nsxURL("/edges/" + gatewayID + "/l2vpn/config")
	if err := p.client.getXML(ctx, "get edge gateway L2 VPN configuration", url, &l2vpn); err != nil {
		return err
	}
	if l2vpn.Enabled {
		return failf("L2 VPN service is configured in the source but not supported in the target")
	}
	return nil
}

func (p *Pipeline) checkSSLVPN(ctx context.Context, gatewayID string) error {
	var sslvpn serviceToggle
	url := p.client.nsxURL("/edges/" + gatewayID + "/sslvpn/config")
	if err := p.client.getXML(ctx, "get edge gateway SSL VPN configuration", url, &sslvpn); err != nil {
		return err
	}
	if sslvpn.Enabled {
		return failf("SSL VPN service is configured in the source but not supported in the target")
	}
	return nil
}

// checkDNS stores the DNS forwarders of the edge gateway, but only when the
// gateway relays DNS over its default route; otherwise there is nothing to
// carry to the target.
func (p *Pipeline) checkDNS(ctx context.Context, gatewayID string) error {
	var gateway edgeGatewayXML
	adminURL := p.client.apiURL("/admin/edgeGateway/" + gatewayID)
	if err := p.client.getXML(ctx, "get edge gateway details", adminURL, &gateway); err != nil {
		return err
	}
	if !gateway.Configuration.UseDefaultRouteForDNSRelay {
		p.log.Debug().Msg("DNS relay over the default route is not enabled on source edge gateway")
		return nil
	}
	var dns dnsConfig
	url := p.client.nsxURL("/edges/" + gatewayID + "/dns/config")
	if err := p.client.getXML(ctx, "get edge gateway DNS configuration", url, &dns); err != nil {
		return err
	}
	if len(dns.DNSViews.DNSView.Forwarders.IPAddress) == 0 {
		return failf("failed to retrieve DNS configuration of source edge gateway")
	}
	return p.store.Write(keyEdgeGatewayDNS, dns.DNSViews.DNSView.Forwarders)
}
