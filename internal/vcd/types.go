package vcd

import (
	"bytes"
	"encoding/json"
)

// OneOrMany holds a collection that the Cloud Director API may encode either
// as a bare record or as a sequence of records. XML decoding appends repeated
// elements naturally; JSON decoding accepts both shapes and always yields a
// slice, so consumers never branch on the wire shape.
type OneOrMany[T any] []T

func (m *OneOrMany[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = nil
		return nil
	}
	if data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*m = items
		return nil
	}
	var single T
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*m = OneOrMany[T]{single}
	return nil
}

// Media types and backing types used by the checks.
const (
	typeVApp            = "application/vnd.vmware.vcloud.vApp+xml"
	typeIndependentDisk = "application/vnd.vmware.vcloud.disk+xml"
	vxlanNetworkPool    = "vmext:VxlanPoolType"
	backingNSXTTier0    = "NSXT_TIER0"
	vmStatusSuspended   = "3"
)

// Reference is a named href reference as it appears all over the admin XML API.
type Reference struct {
	Name string `xml:"name,attr" json:"name"`
	Href string `xml:"href,attr" json:"href"`
	ID   string `xml:"id,attr" json:"id,omitempty"`
	Type string `xml:"type,attr" json:"type,omitempty"`
}

// organizationList is the root of the admin API landing document.
type organizationList struct {
	OrganizationReferences struct {
		OrganizationReference OneOrMany[Reference] `xml:"OrganizationReference"`
	} `xml:"OrganizationReferences"`
}

// AdminOrg is the administrative view of an organization.
type AdminOrg struct {
	Name string `xml:"name,attr" json:"name"`
	ID   string `xml:"id,attr" json:"id"`
	Vdcs struct {
		Vdc OneOrMany[Reference] `xml:"Vdc" json:"Vdc"`
	} `xml:"Vdcs" json:"Vdcs"`
}

// AdminVdc is the administrative view of an organization VDC.
type AdminVdc struct {
	Name                 string `xml:"name,attr" json:"name"`
	ID                   string `xml:"id,attr" json:"id"`
	IsEnabled            bool   `xml:"IsEnabled" json:"IsEnabled"`
	UsesFastProvisioning bool   `xml:"UsesFastProvisioning" json:"UsesFastProvisioning"`
	ProviderVdcReference *Reference `xml:"ProviderVdcReference" json:"ProviderVdcReference,omitempty"`
	NetworkPoolReference *Reference `xml:"NetworkPoolReference" json:"NetworkPoolReference,omitempty"`
	VdcStorageProfiles   struct {
		VdcStorageProfile OneOrMany[Reference] `xml:"VdcStorageProfile" json:"VdcStorageProfile"`
	} `xml:"VdcStorageProfiles" json:"VdcStorageProfiles"`
	ResourceEntities *ResourceEntities `xml:"ResourceEntities" json:"ResourceEntities,omitempty"`
}

// ResourceEntities lists the vApps, templates and disks owned by a VDC.
type ResourceEntities struct {
	ResourceEntity OneOrMany[Reference] `xml:"ResourceEntity" json:"ResourceEntity"`
}

// ProviderVdc is the administrative view of a provider VDC.
type ProviderVdc struct {
	Name            string `xml:"name,attr" json:"name"`
	ID              string `xml:"id,attr" json:"id"`
	IsEnabled       bool   `xml:"IsEnabled" json:"IsEnabled"`
	StorageProfiles struct {
		ProviderVdcStorageProfile OneOrMany[Reference] `xml:"ProviderVdcStorageProfile" json:"ProviderVdcStorageProfile"`
	} `xml:"StorageProfiles" json:"StorageProfiles"`
	Capabilities struct {
		SupportedHardwareVersions struct {
			SupportedHardwareVersion OneOrMany[HardwareVersion] `xml:"SupportedHardwareVersion" json:"SupportedHardwareVersion"`
		} `xml:"SupportedHardwareVersions" json:"SupportedHardwareVersions"`
	} `xml:"Capabilities" json:"Capabilities"`
}

// HardwareVersion is a supported virtual hardware version, e.g. "vmx-14".
type HardwareVersion struct {
	Name string `xml:"name,attr" json:"name"`
}

// networkPool is the vmext network pool document; only the concrete type
// matters for validation.
type networkPool struct {
	Name string `xml:"name,attr"`
	Type string `xml:"type,attr"`
}

// VApp carries the parts of a vApp document the preflight checks read.
type VApp struct {
	Name     string `xml:"name,attr" json:"name"`
	Children *struct {
		VM OneOrMany[VAppVM] `xml:"Vm" json:"Vm"`
	} `xml:"Children" json:"Children,omitempty"`
	NetworkConfigSection struct {
		NetworkConfig OneOrMany[VAppNetworkConfig] `xml:"NetworkConfig" json:"NetworkConfig"`
	} `xml:"NetworkConfigSection" json:"NetworkConfigSection"`
}

// VAppVM is a VM entry inside a vApp; Status uses the numeric entity codes.
type VAppVM struct {
	Name   string `xml:"name,attr" json:"name"`
	Status string `xml:"status,attr" json:"status"`
}

// VAppNetworkConfig is one network section entry of a vApp.
type VAppNetworkConfig struct {
	NetworkName   string `xml:"networkName,attr" json:"networkName"`
	Configuration struct {
		ParentNetwork *Reference `xml:"ParentNetwork" json:"ParentNetwork,omitempty"`
		IPScopes      struct {
			IPScope struct {
				Gateway string `xml:"Gateway" json:"Gateway"`
			} `xml:"IpScope" json:"IpScope"`
		} `xml:"IpScopes" json:"IpScopes"`
	} `xml:"Configuration" json:"Configuration"`
}

// VMAffinityRule is an org VDC affinity rule; the full shape is kept because
// the disable/re-enable mutation round-trips it through a PUT.
type VMAffinityRule struct {
	ID           string `xml:"id,attr" json:"id"`
	Name         string `xml:"Name" json:"Name"`
	IsEnabled    bool   `xml:"IsEnabled" json:"IsEnabled"`
	IsMandatory  bool   `xml:"IsMandatory" json:"IsMandatory"`
	Polarity     string `xml:"Polarity" json:"Polarity"`
	VMReferences struct {
		VMReference OneOrMany[Reference] `xml:"VmReference" json:"VmReference"`
	} `xml:"VmReferences" json:"VmReferences"`
}

// vmAffinityRules is the GET envelope for affinity rules.
type vmAffinityRules struct {
	VMAffinityRule OneOrMany[VMAffinityRule] `xml:"VmAffinityRule"`
}

// affinityRulePayload is the PUT body for enabling or disabling a rule.
type affinityRulePayload struct {
	XMLName      struct{} `xml:"VmAffinityRule"`
	Xmlns        string   `xml:"xmlns,attr"`
	Name         string   `xml:"Name"`
	IsEnabled    bool     `xml:"IsEnabled"`
	IsMandatory  bool     `xml:"IsMandatory"`
	Polarity     string   `xml:"Polarity"`
	VMReferences struct {
		VMReference []Reference `xml:"VmReference"`
	} `xml:"VmReferences"`
}

// edgeGatewayXML carries the admin XML view of an edge gateway; only the DNS
// relay toggle is read from it.
type edgeGatewayXML struct {
	Configuration struct {
		UseDefaultRouteForDNSRelay bool `xml:"UseDefaultRouteForDnsRelay"`
	} `xml:"Configuration"`
}

// vcdError is the XML error envelope returned by the legacy API.
type vcdError struct {
	Message string `xml:"message,attr"`
}

// jsonError is the error envelope returned by the open API.
type jsonError struct {
	Message string `json:"message"`
}

// ExternalNetwork is the open API view of an external network.
type ExternalNetwork struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	NetworkBackings struct {
		Values []struct {
			BackingType string `json:"backingType"`
		} `json:"values"`
	} `json:"networkBackings"`
	Subnets struct {
		Values []Subnet `json:"values"`
	} `json:"subnets"`
}

// Subnet is one subnet of an external network.
type Subnet struct {
	Gateway      string `json:"gateway"`
	PrefixLength int    `json:"prefixLength"`
}

// providerVdcSummary is the open API listing entry for a provider VDC.
type providerVdcSummary struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	NSXTManager *Reference `json:"nsxTManager"`
}

// EdgeGateway is the open API view of an edge gateway.
type EdgeGateway struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	EdgeGatewayUplinks []EdgeGatewayUplink `json:"edgeGatewayUplinks"`
}

// EdgeGatewayUplink is one uplink of an edge gateway.
type EdgeGatewayUplink struct {
	UplinkID  string `json:"uplinkId"`
	Dedicated bool   `json:"dedicated"`
}

// OrgVdcNetwork is the open API view of an org VDC network.
type OrgVdcNetwork struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	NetworkType string     `json:"networkType"`
	Shared      bool       `json:"shared"`
	OrgVdc      *Reference `json:"orgVdc"`
}

// dhcpStatus is the open API DHCP toggle of an org VDC network.
type dhcpStatus struct {
	Enabled bool `json:"enabled"`
}

// pagedResult is the open API paging envelope; Values stays raw so each call
// site decodes into its own element type.
type pagedResult struct {
	ResultTotal int             `json:"resultTotal"`
	Values      json.RawMessage `json:"values"`
}

// ComputePolicy is the open API view of a VDC compute policy.
type ComputePolicy struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PvdcID       string `json:"pvdcId"`
	IsSizingOnly bool   `json:"isSizingOnly"`
}

// computePolicyReferences is the admin XML list of compute policies assigned
// to an org VDC.
type computePolicyReferences struct {
	VdcComputePolicyReference OneOrMany[Reference] `xml:"VdcComputePolicyReference"`
}
