package vcd

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hbcalsoft/nsx-v2t/internal/docstore"
)

// Discovery document keys. The key namespace is flat and pipeline-defined; a
// fact is written at most once per run.
const (
	keyRunID                 = "runID"
	keyOrganization          = "Organization"
	keySourceOrgVDC          = "sourceOrgVDC"
	keySourceProviderVDC     = "sourceProviderVDC"
	keyTargetProviderVDC     = "targetProviderVDC"
	keySourceExternalNetwork = "sourceExternalNetwork"
	keyTargetExternalNetwork = "targetExternalNetwork"
	keyDummyExternalNetwork  = "dummyExternalNetwork"
	keyComputePolicyList     = "sourceOrgVDCComputePolicyList"
	keyAffinityRules         = "sourceVMAffinityRules"
	keySourceEdgeGateway     = "sourceEdgeGateway"
	keySourceOrgVDCNetworks  = "sourceOrgVDCNetworks"
	keyEdgeGatewayDHCP       = "sourceEdgeGatewayDHCP"
	keyEdgeGatewayFirewall   = "sourceEdgeGatewayFirewall"
	keyEdgeGatewayNAT        = "sourceEdgeGatewayNAT"
	keyEdgeGatewayRouting    = "sourceEdgeGatewayRouting"
	keyEdgeGatewayDNS        = "sourceEdgeGatewayDNS"
)

// PipelineConfig names the entities the preflight validation operates on.
type PipelineConfig struct {
	Organization          string
	SourceOrgVDC          string
	SourceProviderVDC     string
	TargetProviderVDC     string
	SourceExternalNetwork string
	TargetExternalNetwork string
	DummyExternalNetwork  string
}

// Result carries the entry-point identifiers the migration phase needs.
type Result struct {
	OrgVDCID      string
	Networks      []OrgVdcNetwork
	EdgeGatewayID string
	BGPConfig     *BGPConfig
	IPSecConfig   *IPSecConfig
}

// RunStatus is the pipeline state machine.
type RunStatus int

const (
	StatusNotStarted RunStatus = iota
	StatusRunning
	StatusCompleted
	StatusFailed
)

// rollbackState records which irreversible actions must be undone on
// failure. Flags are write-once-true and read only by the failure handler.
type rollbackState struct {
	reenableSourceOrgVDC  bool
	reenableAffinityRules bool
}

// Pipeline runs the ordered preflight validation sequence against a source
// Cloud Director. It owns one session, one discovery document and the
// rollback flags for the duration of one run.
type Pipeline struct {
	client *Client
	store  *docstore.Store
	cfg    PipelineConfig
	log    zerolog.Logger

	status     RunStatus
	failedStep string
	rollback   rollbackState

	// Identifiers discovered by earlier steps and read by later ones.
	orgHref             string
	sourceOrgVDCID      string
	sourceProviderVDCID string
	sourceIsNSXTBacked  bool
	targetProviderVDCID string
	edgeGatewayID       string
	networks            []OrgVdcNetwork
	bgpConfig           *BGPConfig
	ipsecConfig         *IPSecConfig
}

// NewPipeline builds a pipeline run. The client and store must be dedicated
// to this run; concurrent runs against the same document are not supported.
func NewPipeline(client *Client, store *docstore.Store, cfg PipelineConfig, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		client: client,
		store:  store,
		cfg:    cfg,
		log:    log,
		status: StatusNotStarted,
	}
}

// Status reports the state machine position and, when failed, the step name.
func (p *Pipeline) Status() (RunStatus, string) {
	return p.status, p.failedStep
}

type step struct {
	name string
	run  func(context.Context) error
}

// steps returns the validation sequence in its mandatory order: identity and
// metadata discovery first, every non-mutating precondition next, and the
// source-disabling mutations as late as possible so their exposure window is
// minimal. Checks that read mutation-scoped data come last.
func (p *Pipeline) steps() []step {
	return []step{
		{"get organization details", p.fetchOrganization},
		{"get source org VDC details", p.fetchSourceOrgVDC},
		{"validate target org VDC does not exist", p.validateNoTargetOrgVDCExists},
		{"validate no empty vApps exist", p.validateNoEmptyVApps},
		{"validate no suspended VMs exist", p.validateNoSuspendedVMs},
		{"validate vApps have no vApp networks", p.validateNoVAppNetworks},
		{"validate source org VDC is not fast provisioned", p.validateNotFastProvisioned},
		{"get source external network details", func(ctx context.Context) error {
			return p.fetchExternalNetwork(ctx, p.cfg.SourceExternalNetwork, false)
		}},
		{"get target external network details", func(ctx context.Context) error {
			return p.fetchExternalNetwork(ctx, p.cfg.TargetExternalNetwork, false)
		}},
		{"get dummy external network details", func(ctx context.Context) error {
			return p.fetchExternalNetwork(ctx, p.cfg.DummyExternalNetwork, true)
		}},
		{"validate dedicated external network", p.validateDedicatedExternalNetwork},
		{"get source provider VDC details", func(ctx context.Context) error {
			return p.fetchProviderVDC(ctx, p.cfg.SourceProviderVDC, false)
		}},
		{"validate source network pool is VXLAN backed", p.validateSourceNetworkPool},
		{"validate source org VDC is NSX-V backed", p.validateSourceNSXVBacked},
		{"get target provider VDC details", func(ctx context.Context) error {
			return p.fetchProviderVDC(ctx, p.cfg.TargetProviderVDC, true)
		}},
		{"validate hardware version compatibility", p.validateHardwareVersion},
		{"validate target provider VDC is enabled", p.validateTargetProviderVDCEnabled},
		{"disable source org VDC", p.disableSourceOrgVDC},
		{"validate VM placement policies", p.validatePlacementPolicies},
		{"validate storage profiles", p.validateStorageProfiles},
		{"validate external network subnets", p.validateExternalNetworkSubnets},
		{"get source org VDC affinity rules", p.fetchAffinityRules},
		{"disable source affinity rules", p.disableAffinityRules},
		{"validate single edge gateway", p.validateSingleEdgeGateway},
		{"get source org VDC networks", p.fetchOrgVDCNetworks},
		{"validate DHCP on isolated networks", p.validateDHCPOnIsolatedNetworks},
		{"validate no shared networks", p.validateNoSharedNetworks},
		{"validate no direct networks", p.validateNoDirectNetworks},
		{"get edge gateway services", p.fetchEdgeGatewayServices},
		{"validate no independent disks", p.validateNoIndependentDisks},
	}
}

// Run executes the full preflight validation. On the first failing step it
// stops, compensates the mutations recorded in the rollback flags, and
// returns the original error annotated with the step name.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	p.status = StatusRunning
	if err := p.client.Login(ctx); err != nil {
		p.status = StatusFailed
		p.failedStep = "login"
		return nil, err
	}
	if err := p.store.Write(keyRunID, uuid.NewString()); err != nil {
		p.status = StatusFailed
		p.failedStep = "initialize discovery document"
		return nil, err
	}

	for _, st := range p.steps() {
		p.log.Info().Str("step", st.name).Msg("running validation step")
		if err := p.client.WithSession(ctx, st.run); err != nil {
			p.status = StatusFailed
			p.failedStep = st.name
			p.log.Error().Str("step", st.name).Err(err).Msg("validation failed")
			p.compensate(ctx)
			return nil, fmt.Errorf("step %q: %w", st.name, err)
		}
	}

	p.status = StatusCompleted
	return &Result{
		OrgVDCID:      p.sourceOrgVDCID,
		Networks:      p.networks,
		EdgeGatewayID: p.edgeGatewayID,
		BGPConfig:     p.bgpConfig,
		IPSecConfig:   p.ipsecConfig,
	}, nil
}

// compensate reverses the mutations whose flags are set, in the fixed order:
// source org VDC first, then affinity rules. Every compensation is attempted
// even when an earlier one fails; secondary failures are logged, never
// allowed to mask the triggering error.
func (p *Pipeline) compensate(ctx context.Context) {
	if p.rollback.reenableSourceOrgVDC {
		p.log.Info().Msg("rollback: re-enabling source org VDC")
		if err := p.enableSourceOrgVDC(ctx); err != nil {
			p.log.Error().Err(err).Msg("rollback: failed to re-enable source org VDC")
		}
	}
	if p.rollback.reenableAffinityRules {
		p.log.Info().Msg("rollback: re-enabling source affinity rules")
		if err := p.restoreAffinityRules(ctx); err != nil {
			p.log.Error().Err(err).Msg("rollback: failed to re-enable source affinity rules")
		}
	}
}

// bareID strips the urn prefix from a Cloud Director identifier, returning
// the trailing uuid the legacy XML API expects in paths.
func bareID(urn string) string {
	if i := strings.LastIndex(urn, ":"); i >= 0 {
		return urn[i+1:]
	}
	return urn
}
