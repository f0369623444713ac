package vcd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
)

const (
	computePolicyPageSize = 25
	systemDefaultPolicy   = "System Default"
	affinityTaskName      = "affinityRuleUpdate"
	// vAppIsolatedGateway is the placeholder gateway Cloud Director assigns
	// to parentless vApp networks that are pure DHCP scopes.
	vAppIsolatedGateway = "196.254.254.254"
)

// fetchOrganization locates the configured organization on the admin API and
// stores its administrative view.
func (p *Pipeline) fetchOrganization(ctx context.Context) error {
	var listing organizationList
	if err := p.client.getXML(ctx, "get organizations", p.client.apiURL("/admin"), &listing); err != nil {
		return err
	}
	for _, ref := range listing.OrganizationReferences.OrganizationReference {
		if ref.Name == p.cfg.Organization {
			p.orgHref = ref.Href
			break
		}
	}
	if p.orgHref == "" {
		return failf("failed to retrieve organization %s", p.cfg.Organization)
	}
	var org AdminOrg
	if err := p.client.getXML(ctx, "get organization details", p.orgHref, &org); err != nil {
		return err
	}
	return p.store.Write(keyOrganization, org)
}

// fetchSourceOrgVDC resolves the source org VDC inside the stored
// organization and stores its administrative view.
func (p *Pipeline) fetchSourceOrgVDC(ctx context.Context) error {
	var org AdminOrg
	if err := p.store.Get(keyOrganization, &org); err != nil {
		return err
	}
	var href string
	for _, ref := range org.Vdcs.Vdc {
		if ref.Name == p.cfg.SourceOrgVDC {
			href = ref.Href
			break
		}
	}
	if href == "" {
		return failf("org VDC %s does not belong to organization %s", p.cfg.SourceOrgVDC, p.cfg.Organization)
	}
	var vdc AdminVdc
	if err := p.client.getXML(ctx, "get org VDC details", href, &vdc); err != nil {
		return err
	}
	p.sourceOrgVDCID = vdc.ID
	return p.store.Write(keySourceOrgVDC, vdc)
}

// validateNoTargetOrgVDCExists rejects organizations that already contain an
// org VDC named after the source with the migration suffix "-t".
func (p *Pipeline) validateNoTargetOrgVDCExists(ctx context.Context) error {
	var org AdminOrg
	if err := p.store.Get(keyOrganization, &org); err != nil {
		return err
	}
	target := p.cfg.SourceOrgVDC + "-t"
	for _, ref := range org.Vdcs.Vdc {
		if ref.Name == target {
			return failf("target org VDC '%s' already exists", target)
		}
	}
	return nil
}

// sourceVApps lists the vApp references owned by the source org VDC.
func (p *Pipeline) sourceVApps() ([]Reference, error) {
	var vdc AdminVdc
	if err := p.store.Get(keySourceOrgVDC, &vdc); err != nil {
		return nil, err
	}
	if vdc.ResourceEntities == nil {
		return nil, nil
	}
	var vapps []Reference
	for _, entity := range vdc.ResourceEntities.ResourceEntity {
		if entity.Type == typeVApp {
			vapps = append(vapps, entity)
		}
	}
	return vapps, nil
}

// validateNoEmptyVApps rejects vApps without VMs; they cannot be migrated
// with the move-vApp API.
func (p *Pipeline) validateNoEmptyVApps(ctx context.Context) error {
	vapps, err := p.sourceVApps()
	if err != nil {
		return err
	}
	for _, ref := range vapps {
		var vapp VApp
		if err := p.client.getXML(ctx, "get vApp details", ref.Href, &vapp); err != nil {
			return err
		}
		if vapp.Children == nil || len(vapp.Children.VM) == 0 {
			return failf("empty source vApp '%s' exists in source org VDC", ref.Name)
		}
	}
	return nil
}

// validateNoSuspendedVMs rejects source vApps holding suspended VMs.
func (p *Pipeline) validateNoSuspendedVMs(ctx context.Context) error {
	vapps, err := p.sourceVApps()
	if err != nil {
		return err
	}
	for _, ref := range vapps {
		var vapp VApp
		if err := p.client.getXML(ctx, "get vApp details", ref.Href, &vapp); err != nil {
			return err
		}
		if vapp.Children == nil {
			p.log.Debug().Str("vapp", ref.Name).Msg("vApp has no VMs")
			continue
		}
		for _, vm := range vapp.Children.VM {
			if vm.Status == vmStatusSuspended {
				return failf("VM %s in vApp %s is in suspended state, can't migrate", vm.Name, ref.Name)
			}
		}
	}
	return nil
}

// validateNoVAppNetworks rejects networks private to a vApp: a network whose
// name differs from its parent, or a parentless network that is not the
// placeholder DHCP scope.
func (p *Pipeline) validateNoVAppNetworks(ctx context.Context) error {
	vapps, err := p.sourceVApps()
	if err != nil {
		return err
	}
	for _, ref := range vapps {
		var vapp VApp
		if err := p.client.getXML(ctx, "get vApp details", ref.Href, &vapp); err != nil {
			return err
		}
		for _, network := range vapp.NetworkConfigSection.NetworkConfig {
			if parent := network.Configuration.ParentNetwork; parent != nil {
				if network.NetworkName != parent.Name {
					return failf("vApp network %s exists in vApp %s", network.NetworkName, ref.Name)
				}
			} else if network.Configuration.IPScopes.IPScope.Gateway != vAppIsolatedGateway {
				return failf("vApp network %s exists in vApp %s", network.NetworkName, ref.Name)
			}
		}
	}
	return nil
}

// validateNotFastProvisioned rejects fast-provisioned source org VDCs.
func (p *Pipeline) validateNotFastProvisioned(ctx context.Context) error {
	var vdc AdminVdc
	if err := p.store.Get(keySourceOrgVDC, &vdc); err != nil {
		return err
	}
	if vdc.UsesFastProvisioning {
		return failf("fast provisioning enabled on source org VDC %s; will not migrate a fast provisioned org VDC", vdc.Name)
	}
	return nil
}

// fetchExternalNetwork stores the named external network under the key that
// matches its backing: NSX-T tier-0 backings are the target side, anything
// else the source side, unless the network is the dummy placeholder.
func (p *Pipeline) fetchExternalNetwork(ctx context.Context, name string, dummy bool) error {
	var page struct {
		Values []ExternalNetwork `json:"values"`
	}
	if err := p.client.getJSON(ctx, "get external networks", p.client.cloudURL("/externalNetworks"), &page); err != nil {
		return err
	}
	for _, network := range page.Values {
		if network.Name != name {
			continue
		}
		key := keySourceExternalNetwork
		if len(network.NetworkBackings.Values) > 0 && network.NetworkBackings.Values[0].BackingType == backingNSXTTier0 {
			key = keyTargetExternalNetwork
		}
		if dummy {
			key = keyDummyExternalNetwork
		}
		return p.store.Write(key, network)
	}
	return failf("failed to get external network %s details", name)
}

// validateDedicatedExternalNetwork rejects target external networks already
// claimed exclusively by another edge gateway.
func (p *Pipeline) validateDedicatedExternalNetwork(ctx context.Context) error {
	var target ExternalNetwork
	if err := p.store.Get(keyTargetExternalNetwork, &target); err != nil {
		return err
	}
	filter := url.QueryEscape(fmt.Sprintf("(edgeGatewayUplinks.uplinkId==%s)", target.ID))
	var page struct {
		Values OneOrMany[EdgeGateway] `json:"values"`
	}
	if err := p.client.getJSON(ctx, "get edge gateway uplinks", p.client.cloudURL("/edgeGateways")+"?filter="+filter, &page); err != nil {
		return err
	}
	for _, gateway := range page.Values {
		if len(gateway.EdgeGatewayUplinks) > 0 && gateway.EdgeGatewayUplinks[0].Dedicated {
			return failf("edge gateway %s is using dedicated external network %s, new edge gateway cannot be created", gateway.Name, target.Name)
		}
	}
	return nil
}

// fetchProviderVDC resolves a provider VDC by name and stores its
// administrative view on the source or target side.
func (p *Pipeline) fetchProviderVDC(ctx context.Context, name string, target bool) error {
	var page struct {
		Values []providerVdcSummary `json:"values"`
	}
	if err := p.client.getJSON(ctx, "get provider VDCs", p.client.cloudURL("/providerVdcs"), &page); err != nil {
		return err
	}
	var summary *providerVdcSummary
	for i := range page.Values {
		if page.Values[i].Name == name {
			summary = &page.Values[i]
			break
		}
	}
	if summary == nil {
		return failf("failed to get provider VDC %s", name)
	}

	var pvdc ProviderVdc
	href := p.client.apiURL("/admin/providervdc/" + bareID(summary.ID))
	if err := p.client.getXML(ctx, "get provider VDC details", href, &pvdc); err != nil {
		return err
	}
	key := keySourceProviderVDC
	if target {
		key = keyTargetProviderVDC
		p.targetProviderVDCID = summary.ID
	} else {
		p.sourceProviderVDCID = summary.ID
		p.sourceIsNSXTBacked = summary.NSXTManager != nil
	}
	return p.store.Write(key, pvdc)
}

// validateSourceNetworkPool requires the source org VDC network pool to be
// VXLAN backed.
func (p *Pipeline) validateSourceNetworkPool(ctx context.Context) error {
	var vdc AdminVdc
	if err := p.store.Get(keySourceOrgVDC, &vdc); err != nil {
		return err
	}
	if vdc.NetworkPoolReference == nil {
		return failf("no network pool is associated with source org VDC %s", vdc.Name)
	}
	var pool networkPool
	if err := p.client.getXML(ctx, "get network pool details", vdc.NetworkPoolReference.Href, &pool); err != nil {
		return err
	}
	if pool.Type != vxlanNetworkPool {
		return failf("source org VDC network pool %s is not VXLAN backed", pool.Name)
	}
	return nil
}

// validateSourceNSXVBacked requires the source org VDC's provider VDC to be
// the configured NSX-V one.
func (p *Pipeline) validateSourceNSXVBacked(ctx context.Context) error {
	var vdc AdminVdc
	if err := p.store.Get(keySourceOrgVDC, &vdc); err != nil {
		return err
	}
	if vdc.ProviderVdcReference != nil &&
		vdc.ProviderVdcReference.ID == p.sourceProviderVDCID &&
		!p.sourceIsNSXTBacked {
		return nil
	}
	return failf("source org VDC %s is not NSX-V backed", vdc.Name)
}

// highestHardwareVersion returns the numerically highest supported hardware
// version of a provider VDC and its full name, e.g. (14, "vmx-14").
func highestHardwareVersion(pvdc ProviderVdc) (int, string, error) {
	highest := 0
	highestName := ""
	for _, version := range pvdc.Capabilities.SupportedHardwareVersions.SupportedHardwareVersion {
		name, numberText, found := strings.Cut(version.Name, "-")
		if !found {
			return 0, "", fmt.Errorf("malformed hardware version %q on provider VDC %s", version.Name, pvdc.Name)
		}
		number, err := strconv.Atoi(numberText)
		if err != nil {
			return 0, "", fmt.Errorf("malformed hardware version %q on provider VDC %s", version.Name, pvdc.Name)
		}
		if number > highest {
			highest = number
			highestName = name + "-" + numberText
		}
	}
	return highest, highestName, nil
}

// validateHardwareVersion requires the target provider VDC to support a
// hardware version at least as high as the source's.
func (p *Pipeline) validateHardwareVersion(ctx context.Context) error {
	var source, target ProviderVdc
	if err := p.store.Get(keySourceProviderVDC, &source); err != nil {
		return err
	}
	if err := p.store.Get(keyTargetProviderVDC, &target); err != nil {
		return err
	}
	sourceVersion, sourceName, err := highestHardwareVersion(source)
	if err != nil {
		return err
	}
	targetVersion, targetName, err := highestHardwareVersion(target)
	if err != nil {
		return err
	}
	if sourceVersion > targetVersion {
		return failf("hardware versions are not compatible: source provider VDC supports %s but target provider VDC only %s", sourceName, targetName)
	}
	return nil
}

// validateTargetProviderVDCEnabled requires the target provider VDC to be
// enabled.
func (p *Pipeline) validateTargetProviderVDCEnabled(ctx context.Context) error {
	var pvdc ProviderVdc
	if err := p.store.Get(keyTargetProviderVDC, &pvdc); err != nil {
		return err
	}
	if !pvdc.IsEnabled {
		return failf("target provider VDC %s is not enabled", pvdc.Name)
	}
	return nil
}

// disableSourceOrgVDC disables the source org VDC so no operations can run
// on it during migration. The mutation is recorded for rollback.
func (p *Pipeline) disableSourceOrgVDC(ctx context.Context) error {
	var vdc AdminVdc
	if err := p.store.Get(keySourceOrgVDC, &vdc); err != nil {
		return err
	}
	if !vdc.IsEnabled {
		p.log.Warn().Str("vdc", vdc.Name).Msg("source org VDC is already disabled")
		return nil
	}
	url := p.client.apiURL("/admin/vdc/" + bareID(vdc.ID) + "/action/disable")
	if err := p.client.postAction(ctx, "disable source org VDC", url); err != nil {
		return err
	}
	p.rollback.reenableSourceOrgVDC = true
	p.log.Debug().Str("vdc", vdc.Name).Msg("source org VDC disabled")
	return nil
}

// enableSourceOrgVDC is the compensation for disableSourceOrgVDC. It only
// re-enables the VDC when the stored view says it was enabled before.
func (p *Pipeline) enableSourceOrgVDC(ctx context.Context) error {
	var vdc AdminVdc
	if err := p.store.Get(keySourceOrgVDC, &vdc); err != nil {
		return err
	}
	if !vdc.IsEnabled {
		p.log.Debug().Str("vdc", vdc.Name).Msg("not enabling source org VDC, it was disabled before the run")
		return nil
	}
	url := p.client.apiURL("/admin/vdc/" + bareID(vdc.ID) + "/action/enable")
	return p.client.postAction(ctx, "enable source org VDC", url)
}

// allComputePolicies lists every VDC compute policy, walking the paged open
// API listing.
func (p *Pipeline) allComputePolicies(ctx context.Context) ([]ComputePolicy, error) {
	var first pagedResult
	if err := p.client.getJSON(ctx, "get compute policies", p.client.cloudURL("/vdcComputePolicies"), &first); err != nil {
		return nil, err
	}
	var policies []ComputePolicy
	for page := 1; len(policies) < first.ResultTotal; page++ {
		url := fmt.Sprintf("%s?page=%d&pageSize=%d", p.client.cloudURL("/vdcComputePolicies"), page, computePolicyPageSize)
		var result pagedResult
		if err := p.client.getJSON(ctx, "get compute policies", url, &result); err != nil {
			return nil, err
		}
		var values []ComputePolicy
		if err := json.Unmarshal(result.Values, &values); err != nil {
			return nil, fmt.Errorf("get compute policies: decoding response: %w", err)
		}
		if len(values) == 0 {
			break
		}
		policies = append(policies, values...)
	}
	return policies, nil
}

// validatePlacementPolicies requires every placement policy assigned to the
// source org VDC to also exist on the target provider VDC.
func (p *Pipeline) validatePlacementPolicies(ctx context.Context) error {
	refsURL := p.client.apiURL("/admin/vdc/" + bareID(p.sourceOrgVDCID) + "/computePolicyReferences")
	var refs computePolicyReferences
	if err := p.client.getXML(ctx, "get org VDC compute policies", refsURL, &refs); err != nil {
		return err
	}
	if err := p.store.Write(keyComputePolicyList, refs.VdcComputePolicyReference); err != nil {
		return err
	}

	var vdc AdminVdc
	if err := p.store.Get(keySourceOrgVDC, &vdc); err != nil {
		return err
	}
	var target ProviderVdc
	if err := p.store.Get(keyTargetProviderVDC, &target); err != nil {
		return err
	}

	all, err := p.allComputePolicies(ctx)
	if err != nil {
		return err
	}
	targetNames := map[string]bool{}
	for _, policy := range all {
		if policy.PvdcID != p.targetProviderVDCID {
			continue
		}
		for _, ref := range refs.VdcComputePolicyReference {
			if ref.Name == policy.Name {
				targetNames[policy.Name] = true
			}
		}
	}

	sourceNames := map[string]bool{}
	for _, ref := range refs.VdcComputePolicyReference {
		if ref.Name == systemDefaultPolicy {
			continue
		}
		var detail struct {
			IsSizingOnly bool `json:"isSizingOnly"`
		}
		if err := p.client.getJSON(ctx, "get compute policy details", ref.Href, &detail); err != nil {
			return err
		}
		if !detail.IsSizingOnly {
			sourceNames[ref.Name] = true
		}
	}

	if len(sourceNames) != len(targetNames) {
		return failf("target provider VDC %s does not have the placement policies of source org VDC %s", target.Name, vdc.Name)
	}
	return nil
}

// validateStorageProfiles requires the target provider VDC to offer every
// storage profile the source org VDC uses.
func (p *Pipeline) validateStorageProfiles(ctx context.Context) error {
	var vdc AdminVdc
	if err := p.store.Get(keySourceOrgVDC, &vdc); err != nil {
		return err
	}
	var target ProviderVdc
	if err := p.store.Get(keyTargetProviderVDC, &target); err != nil {
		return err
	}
	found := 0
	for _, sourceProfile := range vdc.VdcStorageProfiles.VdcStorageProfile {
		for _, targetProfile := range target.StorageProfiles.ProviderVdcStorageProfile {
			if sourceProfile.Name == targetProfile.Name {
				found++
				break
			}
		}
	}
	if found != len(vdc.VdcStorageProfiles.VdcStorageProfile) {
		return failf("storage profiles in target provider VDC %s are not the same as those in source org VDC %s", target.Name, vdc.Name)
	}
	return nil
}

// subnetOf returns the masked network prefix of an external network's first
// subnet.
func subnetOf(network ExternalNetwork) (netip.Prefix, error) {
	if len(network.Subnets.Values) == 0 {
		return netip.Prefix{}, fmt.Errorf("external network %s has no subnets", network.Name)
	}
	subnet := network.Subnets.Values[0]
	prefix, err := netip.ParsePrefix(fmt.Sprintf("%s/%d", subnet.Gateway, subnet.PrefixLength))
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("external network %s has a malformed subnet: %w", network.Name, err)
	}
	return prefix.Masked(), nil
}

// validateExternalNetworkSubnets requires the source and target external
// networks to cover the same subnet.
func (p *Pipeline) validateExternalNetworkSubnets(ctx context.Context) error {
	var source, target ExternalNetwork
	if err := p.store.Get(keySourceExternalNetwork, &source); err != nil {
		return err
	}
	if err := p.store.Get(keyTargetExternalNetwork, &target); err != nil {
		return err
	}
	sourceSubnet, err := subnetOf(source)
	if err != nil {
		return err
	}
	targetSubnet, err := subnetOf(target)
	if err != nil {
		return err
	}
	if sourceSubnet != targetSubnet {
		return failf("source and target external networks have different subnets")
	}
	return nil
}

// fetchAffinityRules stores the source org VDC's VM affinity rules.
func (p *Pipeline) fetchAffinityRules(ctx context.Context) error {
	url := p.client.apiURL("/vdc/" + bareID(p.sourceOrgVDCID) + "/vmAffinityRules")
	var rules vmAffinityRules
	if err := p.client.getXML(ctx, "get affinity rules", url, &rules); err != nil {
		return err
	}
	return p.store.Write(keyAffinityRules, rules.VMAffinityRule)
}

// putAffinityRule updates one affinity rule's enabled state and waits for
// the asynchronous update task.
func (p *Pipeline) putAffinityRule(ctx context.Context, rule VMAffinityRule, enabled bool) error {
	payload := affinityRulePayload{
		Xmlns:       "http://www.vmware.com/vcloud/v1.5",
		Name:        rule.Name,
		IsEnabled:   enabled,
		IsMandatory: rule.IsMandatory,
		Polarity:    rule.Polarity,
	}
	payload.VMReferences.VMReference = rule.VMReferences.VMReference
	url := p.client.apiURL("/vmAffinityRule/" + rule.ID)
	taskURL, err := p.client.putXMLTask(ctx, "update affinity rule "+rule.Name, url, payload)
	if err != nil {
		return err
	}
	_, err = p.client.AwaitTask(ctx, taskURL, affinityTaskName, false)
	return err
}

// disableAffinityRules disables every stored affinity rule so placement does
// not interfere with the migration. The pending mutation is recorded for
// rollback before the first update is issued.
func (p *Pipeline) disableAffinityRules(ctx context.Context) error {
	var rules []VMAffinityRule
	if err := p.store.Get(keyAffinityRules, &rules); err != nil {
		return err
	}
	if len(rules) == 0 {
		p.log.Debug().Msg("source org VDC has no affinity rules")
		return nil
	}
	p.rollback.reenableAffinityRules = true
	for _, rule := range rules {
		if err := p.putAffinityRule(ctx, rule, false); err != nil {
			return fmt.Errorf("failed to disable affinity rule %s: %w", rule.Name, err)
		}
		p.log.Debug().Str("rule", rule.Name).Msg("affinity rule disabled")
	}
	return nil
}

// restoreAffinityRules is the compensation for disableAffinityRules: each
// rule is put back to its original enabled state. Failures on one rule do
// not stop the others.
func (p *Pipeline) restoreAffinityRules(ctx context.Context) error {
	var rules []VMAffinityRule
	if err := p.store.Get(keyAffinityRules, &rules); err != nil {
		return err
	}
	var firstErr error
	for _, rule := range rules {
		if err := p.putAffinityRule(ctx, rule, rule.IsEnabled); err != nil {
			p.log.Error().Str("rule", rule.Name).Err(err).Msg("failed to restore affinity rule")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// validateSingleEdgeGateway requires exactly one edge gateway on the source
// org VDC and stores it.
func (p *Pipeline) validateSingleEdgeGateway(ctx context.Context) error {
	filter := url.QueryEscape(fmt.Sprintf("(orgVdc.id==%s)", p.sourceOrgVDCID))
	var page struct {
		ResultTotal int           `json:"resultTotal"`
		Values      []EdgeGateway `json:"values"`
	}
	if err := p.client.getJSON(ctx, "get edge gateways", p.client.cloudURL("/edgeGateways")+"?filter="+filter, &page); err != nil {
		return err
	}
	if page.ResultTotal > 1 {
		return failf("More than One Edge gateway exist for source org VDC")
	}
	if len(page.Values) == 0 {
		return failf("source edge gateway does not exist for org VDC %s", p.cfg.SourceOrgVDC)
	}
	if err := p.store.Write(keySourceEdgeGateway, page.Values[0]); err != nil {
		return err
	}
	p.edgeGatewayID = page.Values[0].ID
	return nil
}

// fetchOrgVDCNetworks stores the org VDC networks belonging to the source
// org VDC and keeps them for the network shape checks.
func (p *Pipeline) fetchOrgVDCNetworks(ctx context.Context) error {
	var page struct {
		Values []OrgVdcNetwork `json:"values"`
	}
	if err := p.client.getJSON(ctx, "get org VDC networks", p.client.cloudURL("/orgVdcNetworks"), &page); err != nil {
		return err
	}
	var networks []OrgVdcNetwork
	for _, network := range page.Values {
		if network.OrgVdc != nil && network.OrgVdc.ID == p.sourceOrgVDCID {
			networks = append(networks, network)
		}
	}
	p.networks = networks
	return p.store.Write(keySourceOrgVDCNetworks, networks)
}

// validateDHCPOnIsolatedNetworks rejects isolated networks with DHCP
// enabled.
func (p *Pipeline) validateDHCPOnIsolatedNetworks(ctx context.Context) error {
	for _, network := range p.networks {
		if network.NetworkType != "ISOLATED" {
			continue
		}
		var status dhcpStatus
		url := p.client.cloudURL("/orgVdcNetworks/" + network.ID + "/dhcp")
		if err := p.client.getJSON(ctx, "get network DHCP status", url, &status); err != nil {
			return err
		}
		if status.Enabled {
			return failf("DHCP is enabled on source isolated org VDC network %s", network.Name)
		}
	}
	return nil
}

// validateNoSharedNetworks rejects shared org VDC networks.
func (p *Pipeline) validateNoSharedNetworks(ctx context.Context) error {
	for _, network := range p.networks {
		if network.Shared {
			return failf("org VDC network %s is a shared network, no shared networks should exist", network.Name)
		}
	}
	return nil
}

// validateNoDirectNetworks rejects directly connected org VDC networks.
func (p *Pipeline) validateNoDirectNetworks(ctx context.Context) error {
	for _, network := range p.networks {
		if network.NetworkType == "DIRECT" {
			return failf("direct network %s exists in source org VDC, direct networks can't be migrated", network.Name)
		}
	}
	return nil
}

// validateNoIndependentDisks rejects source org VDCs holding independent
// disks. The VDC is re-fetched so disks created since discovery are seen.
func (p *Pipeline) validateNoIndependentDisks(ctx context.Context) error {
	var vdc AdminVdc
	url := p.client.apiURL("/admin/vdc/" + bareID(p.sourceOrgVDCID))
	if err := p.client.getXML(ctx, "get org VDC details", url, &vdc); err != nil {
		return err
	}
	if vdc.ResourceEntities == nil {
		p.log.Debug().Msg("no resource entities in source org VDC")
		return nil
	}
	for _, entity := range vdc.ResourceEntities.ResourceEntity {
		if entity.Type == typeIndependentDisk {
			return failf("independent disks exist in source org VDC")
		}
	}
	return nil
}
