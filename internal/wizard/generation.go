package wizard

import (
	"fmt"
	"os"
	"strings"

	"github.com/hbcalsoft/nsx-v2t/internal/config"
	"github.com/hbcalsoft/nsx-v2t/internal/docstore"
)

// GenerateFiles creates nsx-v2t.toml, a credentials template and the
// .gitignore entries for both.
func GenerateFiles(input MigrationInput) (*InitResult, error) {
	result := &InitResult{}

	if err := generateConfigTOML(config.FileName, input); err != nil {
		return nil, fmt.Errorf("failed to generate %s: %w", config.FileName, err)
	}
	result.ConfigCreated = true
	result.ConfigPath = config.FileName

	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		if err := generateEnvFile(envPath); err != nil {
			return nil, fmt.Errorf("failed to generate %s: %w", envPath, err)
		}
		result.EnvFileCreated = true
		result.EnvFilePath = envPath
	}

	if err := updateGitignore(input.DiscoveryFile); err != nil {
		return nil, fmt.Errorf("failed to update .gitignore: %w", err)
	}
	result.GitignoreUpdated = true

	return result, nil
}

func generateConfigTOML(path string, input MigrationInput) error {
	discoveryFile := input.DiscoveryFile
	if discoveryFile == "" {
		discoveryFile = docstore.DefaultFile
	}

	var b strings.Builder
	b.WriteString("# NSX-V to NSX-T migration preflight configuration\n")
	b.WriteString("# Generated by: nsx-v2t init\n")
	b.WriteString("#\n")
	b.WriteString("# Credentials: stored in .env (never in this file)\n\n")
	b.WriteString(fmt.Sprintf("host = %q\n", input.Host))
	b.WriteString("insecure = false\n\n")
	b.WriteString(fmt.Sprintf("organization = %q\n", input.Organization))
	b.WriteString(fmt.Sprintf("source_org_vdc = %q\n", input.SourceOrgVDC))
	b.WriteString(fmt.Sprintf("source_provider_vdc = %q\n", input.SourceProviderVDC))
	b.WriteString(fmt.Sprintf("target_provider_vdc = %q\n", input.TargetProviderVDC))
	b.WriteString(fmt.Sprintf("source_external_network = %q\n", input.SourceExternalNetwork))
	b.WriteString(fmt.Sprintf("target_external_network = %q\n", input.TargetExternalNetwork))
	b.WriteString(fmt.Sprintf("dummy_external_network = %q\n\n", input.DummyExternalNetwork))
	b.WriteString(fmt.Sprintf("discovery_file = %q\n", discoveryFile))

	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func generateEnvFile(path string) error {
	var b strings.Builder
	b.WriteString("# Cloud Director system administrator credentials\n")
	b.WriteString("# Generated by: nsx-v2t init\n")
	b.WriteString("#\n")
	b.WriteString("# Do not commit this file!\n")
	b.WriteString("VCD_USERNAME=\n")
	b.WriteString("VCD_PASSWORD=\n")

	// Restrictive permissions, the file will hold credentials.
	return os.WriteFile(path, []byte(b.String()), 0o600)
}

func updateGitignore(discoveryFile string) error {
	gitignorePath := ".gitignore"

	content := ""
	if data, err := os.ReadFile(gitignorePath); err == nil {
		content = string(data)
	}

	if discoveryFile == "" {
		discoveryFile = docstore.DefaultFile
	}

	var missing []string
	if !strings.Contains(content, ".env") {
		missing = append(missing, ".env")
	}
	if !strings.Contains(content, discoveryFile) {
		missing = append(missing, discoveryFile)
	}
	if len(missing) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString(content)
	if content != "" && !strings.HasSuffix(content, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("\n# nsx-v2t files (added by nsx-v2t init)\n")
	b.WriteString("# DO NOT remove - .env contains credentials\n")
	for _, entry := range missing {
		b.WriteString(entry + "\n")
	}

	return os.WriteFile(gitignorePath, []byte(b.String()), 0o644)
}
