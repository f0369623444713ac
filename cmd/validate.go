package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hbcalsoft/nsx-v2t/internal/config"
	"github.com/hbcalsoft/nsx-v2t/internal/docstore"
	"github.com/hbcalsoft/nsx-v2t/internal/vcd"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the preflight validation against the source org VDC",
	Long: `Validate runs every preflight check against the configured source org VDC,
in order, stopping at the first failure. The source org VDC is disabled and
its affinity rules are suspended while the later checks run; both are
restored if a check fails.`,
	Run: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("verbose", false, "Enable debug logging")
}

func runValidate(cmd *cobra.Command, args []string) {
	// Deferred cleanup (session logout) must run before the process exits.
	os.Exit(validate(cmd))
}

func validate(cmd *cobra.Command) int {
	verbose, _ := cmd.Flags().GetBool("verbose")
	log := newLogger(verbose)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("incomplete configuration")
	}
	creds, err := config.ResolveCredentials(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to resolve credentials")
	}

	client := vcd.NewClient(vcd.ClientOptions{
		Host: cfg.Host,
		Credentials: vcd.Credentials{
			Username: creds.Username,
			Password: creds.Password,
		},
		Insecure:     cfg.Insecure,
		TaskTimeout:  cfg.TaskTimeout(),
		TaskInterval: cfg.TaskInterval(),
		Logger:       log,
	})
	defer func() {
		if err := client.Logout(cmd.Context()); err != nil {
			log.Debug().Err(err).Msg("logout failed")
		}
	}()

	store := docstore.New(discoveryPath(cfg))
	pipeline := vcd.NewPipeline(client, store, vcd.PipelineConfig{
		Organization:          cfg.Organization,
		SourceOrgVDC:          cfg.SourceOrgVDC,
		SourceProviderVDC:     cfg.SourceProviderVDC,
		TargetProviderVDC:     cfg.TargetProviderVDC,
		SourceExternalNetwork: cfg.SourceExternalNetwork,
		TargetExternalNetwork: cfg.TargetExternalNetwork,
		DummyExternalNetwork:  cfg.DummyExternalNetwork,
	}, log)

	result, err := pipeline.Run(ctx)
	if err != nil {
		_, failedStep := pipeline.Status()
		var authErr *vcd.AuthError
		if errors.As(err, &authErr) {
			log.Error().Err(err).Msg("authentication failed")
		}
		fmt.Fprintf(os.Stderr, "\nValidation failed at %q:\n  %v\n", failedStep, err)
		return 1
	}

	fmt.Printf("Validation succeeded for org VDC %s.\n\n", cfg.SourceOrgVDC)
	fmt.Printf("  Org VDC:       %s\n", result.OrgVDCID)
	fmt.Printf("  Edge gateway:  %s\n", result.EdgeGatewayID)
	fmt.Printf("  Networks:      %d\n", len(result.Networks))
	fmt.Printf("  BGP:           %v\n", result.BGPConfig != nil)
	fmt.Printf("  IPsec:         %v\n", result.IPSecConfig != nil)
	fmt.Printf("\nDiscovery document: %s\n", store.Path())
	return 0
}

// newLogger builds the console logger every command shares.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

// discoveryPath resolves the discovery document location: an absolute path is
// used as-is, a relative one is anchored at the config file's directory.
func discoveryPath(cfg *config.Config) string {
	file := cfg.DiscoveryFile
	if file == "" {
		file = docstore.DefaultFile
	}
	if filepath.IsAbs(file) {
		return file
	}
	if dir := cfg.ConfigDir(); dir != "" {
		return filepath.Join(dir, file)
	}
	return file
}
