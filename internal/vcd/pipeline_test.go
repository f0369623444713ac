package vcd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hbcalsoft/nsx-v2t/internal/docstore"
)

const (
	fakeVAppXML = `<VApp name="app-1">
		<Children><Vm name="vm-1" status="4"/></Children>
		<NetworkConfigSection>
			<NetworkConfig networkName="net-1"><Configuration><ParentNetwork name="net-1" href=""/></Configuration></NetworkConfig>
		</NetworkConfigSection>
	</VApp>`

	fakeSuspendedVAppXML = `<VApp name="app-1">
		<Children><Vm name="vm-1" status="3"/></Children>
		<NetworkConfigSection>
			<NetworkConfig networkName="net-1"><Configuration><ParentNetwork name="net-1" href=""/></Configuration></NetworkConfig>
		</NetworkConfigSection>
	</VApp>`

	fakeNATXML = `<natConfig><natRules>
		<natRule><ruleId>196609</ruleId><ruleType>user</ruleType><action>snat</action><originalAddress>10.10.10.0/24</originalAddress><translatedAddress>203.0.113.5</translatedAddress></natRule>
	</natRules></natConfig>`

	fakeNATRangeXML = `<natConfig><natRules>
		<natRule><ruleId>196610</ruleId><ruleType>user</ruleType><action>dnat</action><originalAddress>203.0.113.10</originalAddress><translatedAddress>203.0.113.10-203.0.113.20</translatedAddress></natRule>
	</natRules></natConfig>`

	fakeFirewallXML = `<firewallConfig>
		<enabled>true</enabled>
		<firewallRules>
			<firewallRule><id>131073</id><ruleType>user</ruleType><action>accept</action>
				<source><ipAddress>10.10.10.5</ipAddress></source>
				<application><service><protocol>tcp</protocol><port>443</port></service></application>
			</firewallRule>
			<firewallRule><ruleType>default_policy</ruleType><action>accept</action></firewallRule>
		</firewallRules>
	</firewallConfig>`

	fakeIPSecXML = `<ipsec>
		<enabled>true</enabled>
		<sites><site>
			<name>tunnel-1</name><localIp>203.0.113.5</localIp><peerIp>198.51.100.7</peerIp>
			<ipsecSessionType>policybasedsession</ipsecSessionType>
			<encryptionAlgorithm>aes256</encryptionAlgorithm>
			<authenticationMode>psk</authenticationMode>
			<digestAlgorithm>sha1</digestAlgorithm>
		</site></sites>
	</ipsec>`

	fakeExternalNetworksJSON = `{"values": [
		{"id": "urn:vcloud:network:51", "name": "ext-v", "networkBackings": {"values": [{"backingType": "NSXV_NETWORK"}]}, "subnets": {"values": [{"gateway": "10.1.1.1", "prefixLength": 24}]}},
		{"id": "urn:vcloud:network:52", "name": "ext-t", "networkBackings": {"values": [{"backingType": "NSXT_TIER0"}]}, "subnets": {"values": [{"gateway": "10.1.1.254", "prefixLength": 24}]}},
		{"id": "urn:vcloud:network:53", "name": "ext-dummy", "networkBackings": {"values": [{"backingType": "NSXT_TIER0"}]}, "subnets": {"values": [{"gateway": "192.168.255.1", "prefixLength": 24}]}}
	]}`
)

// fakeVCD serves enough of the Cloud Director admin XML API, the open API
// and the NSX proxy for a full pipeline run against a one-vApp org VDC with
// one edge gateway and one affinity rule.
type fakeVCD struct {
	srv *httptest.Server

	edgeGatewayCount int
	vappXML          string
	natXML           string
	firewallXML      string
	ipsecXML         string
	extNetworksJSON  string

	disableCalls int
	enableCalls  int
	affinityPuts []string
}

func newFakeVCD(t *testing.T) *fakeVCD {
	t.Helper()
	f := &fakeVCD{
		edgeGatewayCount: 1,
		vappXML:          fakeVAppXML,
		natXML:           fakeNATXML,
		firewallXML:      fakeFirewallXML,
		ipsecXML:         fakeIPSecXML,
		extNetworksJSON:  fakeExternalNetworksJSON,
	}
	f.srv = httptest.NewTLSServer(f.handler())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeVCD) handler() http.Handler {
	mux := http.NewServeMux()
	xml := func(pattern, body string) {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, body)
		})
	}

	mux.HandleFunc("/api/sessions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-VMWARE-VCLOUD-ACCESS-TOKEN", "tok-test")
	})
	mux.HandleFunc("/api/session", func(w http.ResponseWriter, r *http.Request) {})

	mux.HandleFunc("/api/admin", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<VCloud><OrganizationReferences>
			<OrganizationReference name="acme" href="%s/api/admin/org/1"/>
		</OrganizationReferences></VCloud>`, f.srv.URL)
	})
	mux.HandleFunc("/api/admin/org/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<AdminOrg name="acme" id="urn:vcloud:org:1">
			<Vdcs><Vdc name="acme-vdc" href="%s/api/admin/vdc/11"/></Vdcs>
		</AdminOrg>`, f.srv.URL)
	})
	mux.HandleFunc("/api/admin/vdc/11", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<AdminVdc name="acme-vdc" id="urn:vcloud:vdc:11">
			<IsEnabled>true</IsEnabled>
			<UsesFastProvisioning>false</UsesFastProvisioning>
			<ProviderVdcReference name="pvdc-v" id="urn:vcloud:providervdc:21" href="%[1]s/api/admin/providervdc/21"/>
			<NetworkPoolReference name="pool-1" href="%[1]s/api/admin/extension/networkPool/31"/>
			<VdcStorageProfiles><VdcStorageProfile name="gold" href=""/></VdcStorageProfiles>
			<ResourceEntities>
				<ResourceEntity name="app-1" type="application/vnd.vmware.vcloud.vApp+xml" href="%[1]s/api/vApp/vapp-1"/>
			</ResourceEntities>
		</AdminVdc>`, f.srv.URL)
	})
	mux.HandleFunc("/api/vApp/vapp-1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, f.vappXML)
	})
	xml("/api/admin/extension/networkPool/31",
		`<VMWNetworkPool xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:type="vmext:VxlanPoolType" name="pool-1"/>`)
	xml("/api/admin/providervdc/21", `<ProviderVdc name="pvdc-v" id="urn:vcloud:providervdc:21">
		<IsEnabled>true</IsEnabled>
		<StorageProfiles><ProviderVdcStorageProfile name="gold" href=""/></StorageProfiles>
		<Capabilities><SupportedHardwareVersions>
			<SupportedHardwareVersion name="vmx-9"/><SupportedHardwareVersion name="vmx-14"/>
		</SupportedHardwareVersions></Capabilities>
	</ProviderVdc>`)
	xml("/api/admin/providervdc/22", `<ProviderVdc name="pvdc-t" id="urn:vcloud:providervdc:22">
		<IsEnabled>true</IsEnabled>
		<StorageProfiles><ProviderVdcStorageProfile name="gold" href=""/></StorageProfiles>
		<Capabilities><SupportedHardwareVersions>
			<SupportedHardwareVersion name="vmx-19"/>
		</SupportedHardwareVersions></Capabilities>
	</ProviderVdc>`)

	mux.HandleFunc("/api/admin/vdc/11/action/disable", func(w http.ResponseWriter, r *http.Request) {
		f.disableCalls++
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/admin/vdc/11/action/enable", func(w http.ResponseWriter, r *http.Request) {
		f.enableCalls++
		w.WriteHeader(http.StatusNoContent)
	})
	xml("/api/admin/vdc/11/computePolicyReferences", `<VdcComputePolicyReferences/>`)

	xml("/api/vdc/11/vmAffinityRules", `<VmAffinityRules>
		<VmAffinityRule id="rule-1">
			<Name>keep-apart</Name>
			<IsEnabled>true</IsEnabled>
			<IsMandatory>false</IsMandatory>
			<Polarity>Antiaffinity</Polarity>
			<VmReferences><VmReference name="vm-1" href=""/></VmReferences>
		</VmAffinityRule>
	</VmAffinityRules>`)
	mux.HandleFunc("/api/vmAffinityRule/rule-1", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.affinityPuts = append(f.affinityPuts, string(body))
		w.Header().Set("Location", f.srv.URL+"/api/task/1")
		w.WriteHeader(http.StatusAccepted)
	})
	xml("/api/task/1", `<Task operationName="affinityRuleUpdate" status="success"/>`)

	mux.HandleFunc("/cloudapi/1.0.0/externalNetworks", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, f.extNetworksJSON)
	})
	mux.HandleFunc("/cloudapi/1.0.0/providerVdcs", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"values": [
			{"id": "urn:vcloud:providervdc:21", "name": "pvdc-v"},
			{"id": "urn:vcloud:providervdc:22", "name": "pvdc-t", "nsxTManager": {"name": "nsxt-mgr", "href": ""}}
		]}`)
	})
	mux.HandleFunc("/cloudapi/1.0.0/vdcComputePolicies", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"resultTotal": 0, "values": []}`)
	})
	mux.HandleFunc("/cloudapi/1.0.0/edgeGateways", func(w http.ResponseWriter, r *http.Request) {
		gateway := `{"id": "urn:vcloud:gateway:41", "name": "edge-1", "edgeGatewayUplinks": [{"uplinkId": "urn:vcloud:network:52", "dedicated": false}]}`
		if strings.Contains(r.URL.Query().Get("filter"), "uplinkId") {
			fmt.Fprintf(w, `{"resultTotal": 1, "values": [%s]}`, gateway)
			return
		}
		values := make([]string, f.edgeGatewayCount)
		for i := range values {
			values[i] = gateway
		}
		fmt.Fprintf(w, `{"resultTotal": %d, "values": [%s]}`, f.edgeGatewayCount, strings.Join(values, ","))
	})
	mux.HandleFunc("/cloudapi/1.0.0/orgVdcNetworks", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"values": [
			{"id": "urn:vcloud:network:61", "name": "net-1", "networkType": "NAT_ROUTED", "shared": false, "orgVdc": {"name": "acme-vdc", "href": "", "id": "urn:vcloud:vdc:11"}}
		]}`)
	})

	xml("/network/edges/41/dhcp/config/relay", `<relay>
	</relay>`)
	xml("/network/edges/41/dhcp/config", `<dhcpConfig>
		<enabled>true</enabled>
		<staticBindings></staticBindings>
		<ipPools><ipPool><ipRange>10.10.10.2-10.10.10.20</ipRange><defaultGateway>10.10.10.1</defaultGateway></ipPool></ipPools>
	</dhcpConfig>`)
	mux.HandleFunc("/network/edges/41/firewall/config", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, f.firewallXML)
	})
	mux.HandleFunc("/network/edges/41/nat/config", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, f.natXML)
	})
	mux.HandleFunc("/network/edges/41/ipsec/config", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, f.ipsecXML)
	})
	xml("/network/edges/41/routing/config/bgp", `<bgp><enabled>true</enabled><localAS>65000</localAS></bgp>`)
	xml("/network/edges/41/routing/config", `<routing>
		<ospf><enabled>false</enabled></ospf>
		<staticRouting><staticRoutes></staticRoutes></staticRouting>
	</routing>`)
	xml("/network/edges/41/loadbalancer/config", `<loadBalancer><enabled>false</enabled></loadBalancer>`)
	xml("/network/edges/41/l2vpn/config", `<l2Vpn><enabled>false</enabled></l2Vpn>`)
	xml("/network/edges/41/sslvpn/config", `<sslvpnConfig><enabled>false</enabled></sslvpnConfig>`)
	xml("/api/admin/edgeGateway/41", `<EdgeGateway name="edge-1">
		<Configuration><UseDefaultRouteForDnsRelay>true</UseDefaultRouteForDnsRelay></Configuration>
	</EdgeGateway>`)
	xml("/network/edges/41/dns/config", `<dns><dnsViews><dnsView>
		<forwarders><ipAddress>10.0.0.53</ipAddress></forwarders>
	</dnsView></dnsViews></dns>`)

	return mux
}

func runPipeline(t *testing.T, f *fakeVCD) (*Pipeline, *docstore.Store, *Result, error) {
	t.Helper()
	client := NewClient(ClientOptions{
		Host:         strings.TrimPrefix(f.srv.URL, "https://"),
		Credentials:  Credentials{Username: "admin", Password: "secret"},
		Insecure:     true,
		TaskTimeout:  2 * time.Second,
		TaskInterval: 5 * time.Millisecond,
		Logger:       zerolog.Nop(),
	})
	store := docstore.New(filepath.Join(t.TempDir(), "discovery.json"))
	p := NewPipeline(client, store, PipelineConfig{
		Organization:          "acme",
		SourceOrgVDC:          "acme-vdc",
		SourceProviderVDC:     "pvdc-v",
		TargetProviderVDC:     "pvdc-t",
		SourceExternalNetwork: "ext-v",
		TargetExternalNetwork: "ext-t",
		DummyExternalNetwork:  "ext-dummy",
	}, zerolog.Nop())
	result, err := p.Run(context.Background())
	return p, store, result, err
}

func TestPipelineRunHappyPath(t *testing.T) {
	f := newFakeVCD(t)
	p, store, result, err := runPipeline(t, f)
	if err != nil {
		t.Fatal(err)
	}
	if status, _ := p.Status(); status != StatusCompleted {
		t.Errorf("status = %v, want completed", status)
	}
	if result.OrgVDCID != "urn:vcloud:vdc:11" {
		t.Errorf("org VDC id = %q", result.OrgVDCID)
	}
	if result.EdgeGatewayID != "urn:vcloud:gateway:41" {
		t.Errorf("edge gateway id = %q", result.EdgeGatewayID)
	}
	if len(result.Networks) != 1 || result.Networks[0].Name != "net-1" {
		t.Errorf("networks = %+v, want net-1", result.Networks)
	}
	if result.BGPConfig == nil || result.BGPConfig.LocalAS != "65000" {
		t.Errorf("BGP config = %+v, want local AS 65000", result.BGPConfig)
	}
	if result.IPSecConfig == nil || len(result.IPSecConfig.Sites.Site) != 1 {
		t.Errorf("IPsec config = %+v, want one site", result.IPSecConfig)
	}

	if f.disableCalls != 1 {
		t.Errorf("source org VDC disabled %d times, want 1", f.disableCalls)
	}
	if f.enableCalls != 0 {
		t.Errorf("source org VDC re-enabled %d times on success, want 0", f.enableCalls)
	}
	if len(f.affinityPuts) != 1 || !strings.Contains(f.affinityPuts[0], "<IsEnabled>false</IsEnabled>") {
		t.Errorf("affinity updates = %q, want one disabling PUT", f.affinityPuts)
	}

	var runID string
	if err := store.Get("runID", &runID); err != nil || runID == "" {
		t.Errorf("runID = %q, %v", runID, err)
	}
	var vdc AdminVdc
	if err := store.Get("sourceOrgVDC", &vdc); err != nil || vdc.Name != "acme-vdc" {
		t.Errorf("stored org VDC = %+v, %v", vdc, err)
	}
	var gateway EdgeGateway
	if err := store.Get("sourceEdgeGateway", &gateway); err != nil || gateway.ID != "urn:vcloud:gateway:41" {
		t.Errorf("stored edge gateway = %+v, %v", gateway, err)
	}
	var forwarders dnsForwarders
	if err := store.Get("sourceEdgeGatewayDNS", &forwarders); err != nil || len(forwarders.IPAddress) != 1 {
		t.Errorf("stored DNS forwarders = %+v, %v", forwarders, err)
	}
}

func TestPipelineFailsOnSecondEdgeGatewayAndCompensates(t *testing.T) {
	f := newFakeVCD(t)
	f.edgeGatewayCount = 2
	p, _, _, err := runPipeline(t, f)
	if err == nil {
		t.Fatal("want error with two edge gateways")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if !strings.Contains(err.Error(), "More than One Edge gateway") {
		t.Errorf("err = %v", err)
	}
	status, failedStep := p.Status()
	if status != StatusFailed {
		t.Errorf("status = %v, want failed", status)
	}
	if failedStep != "validate single edge gateway" {
		t.Errorf("failed step = %q", failedStep)
	}

	if f.enableCalls != 1 {
		t.Errorf("source org VDC re-enabled %d times, want 1", f.enableCalls)
	}
	if len(f.affinityPuts) != 2 {
		t.Fatalf("affinity updates = %d, want disable then restore", len(f.affinityPuts))
	}
	if !strings.Contains(f.affinityPuts[1], "<IsEnabled>true</IsEnabled>") {
		t.Errorf("restore update = %q, want re-enabling PUT", f.affinityPuts[1])
	}
}

func TestPipelineRejectsDNATRangeAndCompensates(t *testing.T) {
	f := newFakeVCD(t)
	f.natXML = fakeNATRangeXML
	p, _, _, err := runPipeline(t, f)
	if err == nil {
		t.Fatal("want error with ranged DNAT rule")
	}
	if !strings.Contains(err.Error(), "DNAT rule 196610") {
		t.Errorf("err = %v", err)
	}
	if _, failedStep := p.Status(); failedStep != "get edge gateway services" {
		t.Errorf("failed step = %q", failedStep)
	}
	if f.enableCalls != 1 {
		t.Errorf("source org VDC re-enabled %d times, want 1", f.enableCalls)
	}
	if len(f.affinityPuts) != 2 || !strings.Contains(f.affinityPuts[1], "<IsEnabled>true</IsEnabled>") {
		t.Errorf("affinity updates = %q, want disable then restore", f.affinityPuts)
	}
}

func TestPipelineRejectsSubnetMismatchAndReenablesVDC(t *testing.T) {
	f := newFakeVCD(t)
	f.extNetworksJSON = strings.Replace(fakeExternalNetworksJSON, `"gateway": "10.1.1.254"`, `"gateway": "10.2.1.254"`, 1)
	p, _, _, err := runPipeline(t, f)
	if err == nil {
		t.Fatal("want error with mismatched subnets")
	}
	if !strings.Contains(err.Error(), "different subnets") {
		t.Errorf("err = %v", err)
	}
	if _, failedStep := p.Status(); failedStep != "validate external network subnets" {
		t.Errorf("failed step = %q", failedStep)
	}
	// The org VDC disable had already run; affinity rules had not been
	// touched yet, so only the VDC is compensated.
	if f.disableCalls != 1 || f.enableCalls != 1 {
		t.Errorf("disable/enable = %d/%d, want 1/1", f.disableCalls, f.enableCalls)
	}
	if len(f.affinityPuts) != 0 {
		t.Errorf("affinity updates = %q, want none", f.affinityPuts)
	}
}

func TestPipelineStopsBeforeMutatingOnSuspendedVM(t *testing.T) {
	f := newFakeVCD(t)
	f.vappXML = fakeSuspendedVAppXML
	p, _, _, err := runPipeline(t, f)
	if err == nil {
		t.Fatal("want error with suspended VM")
	}
	if !strings.Contains(err.Error(), "suspended state") {
		t.Errorf("err = %v", err)
	}
	if _, failedStep := p.Status(); failedStep != "validate no suspended VMs exist" {
		t.Errorf("failed step = %q", failedStep)
	}
	// No mutation ran yet, so nothing may be compensated.
	if f.disableCalls != 0 || f.enableCalls != 0 || len(f.affinityPuts) != 0 {
		t.Errorf("mutations = disable %d, enable %d, affinity %d; want none",
			f.disableCalls, f.enableCalls, len(f.affinityPuts))
	}
}
