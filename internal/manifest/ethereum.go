package manifest

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kittynode/kittynode/internal/model"
	"github.com/kittynode/kittynode/internal/secret"
)

const (
	// EthereumName is the registry name of the Ethereum package.
	EthereumName = "Ethereum"

	// EthereumNetwork is the bridge network shared by the two clients.
	EthereumNetwork = "ethereum-network"

	// ConfigKeyNetwork selects the Ethereum chain the clients join.
	ConfigKeyNetwork = "network"

	rethName       = "reth-node"
	lighthouseName = "lighthouse-node"

	// authRPCPort is reth's engine API port. Lighthouse reaches it through
	// the shared network by container name.
	authRPCPort = "8551"
)

// checkpointSyncURLs lists the supported chains and the checkpoint sync
// endpoint Lighthouse bootstraps from on each.
var checkpointSyncURLs = map[string]string{
	"holesky": "https://checkpoint-sync.holesky.ethpandaops.io",
	"mainnet": "https://mainnet.checkpoint.sigp.io",
	"sepolia": "https://checkpoint-sync.sepolia.ethpandaops.io",
}

// EthereumChains returns the supported chain names, sorted.
func EthereumChains() []string {
	chains := make([]string, 0, len(checkpointSyncURLs))
	for c := range checkpointSyncURLs {
		chains = append(chains, c)
	}
	sort.Strings(chains)
	return chains
}

func ethereumDefaults() model.PackageConfig {
	return model.PackageConfig{Values: map[string]string{ConfigKeyNetwork: "holesky"}}
}

// ethereumPackage builds the Reth execution client followed by the
// Lighthouse consensus client. Lighthouse's command line points at
// reth-node by name, so reth must be started first.
func ethereumPackage(dataDir string, cfg model.PackageConfig) (model.Package, error) {
	chain := cfg.Get(ConfigKeyNetwork, "holesky")
	checkpointURL, ok := checkpointSyncURLs[chain]
	if !ok {
		return model.Package{}, model.NewError(model.KindInvalidConfig, "build package", EthereumName,
			fmt.Errorf("unsupported network %q (valid: %s)", chain, strings.Join(EthereumChains(), ", ")))
	}

	jwtPath := secret.Path(dataDir)
	rethDataDir := "/root/.local/share/reth/" + chain
	lighthouseDir := "/root/.lighthouse"

	reth := model.Container{
		Name:  rethName,
		Image: "ghcr.io/paradigmxyz/reth",
		Cmd: []string{
			"node",
			"--chain", chain,
			"--metrics", "0.0.0.0:9001",
			"--authrpc.addr", "0.0.0.0",
			"--authrpc.port", authRPCPort,
		},
		PortBindings: map[string][]model.PortBinding{
			"9001/tcp":  {{HostIP: "0.0.0.0", HostPort: "9001"}},
			"30303/tcp": {{HostIP: "0.0.0.0", HostPort: "30303"}},
			"30303/udp": {{HostIP: "0.0.0.0", HostPort: "30303"}},
		},
		VolumeBindings: []model.Binding{
			{Source: "rethdata", Destination: rethDataDir},
		},
		FileBindings: []model.Binding{
			{Source: jwtPath, Destination: rethDataDir + "/jwt.hex", Options: "ro"},
		},
	}

	lighthouse := model.Container{
		Name:  lighthouseName,
		Image: "sigp/lighthouse",
		Cmd: []string{
			"lighthouse",
			"--network", chain,
			"beacon",
			"--http",
			"--http-address", "0.0.0.0",
			"--checkpoint-sync-url", checkpointURL,
			"--execution-jwt", lighthouseDir + "/" + chain + "/jwt.hex",
			"--execution-endpoint", "http://" + rethName + ":" + authRPCPort,
		},
		PortBindings: map[string][]model.PortBinding{
			"9000/tcp": {{HostIP: "0.0.0.0", HostPort: "9000"}},
			"9000/udp": {{HostIP: "0.0.0.0", HostPort: "9000"}},
			"9001/udp": {{HostIP: "0.0.0.0", HostPort: "9001"}},
			"5052/tcp": {{HostIP: "127.0.0.1", HostPort: "5052"}},
		},
		FileBindings: []model.Binding{
			{Source: filepath.Join(dataDir, ".lighthouse"), Destination: lighthouseDir},
			{Source: jwtPath, Destination: lighthouseDir + "/" + chain + "/jwt.hex", Options: "ro"},
		},
	}

	return model.Package{
		Name: EthereumName,
		Description: fmt.Sprintf("This package installs a Reth execution client and a Lighthouse "+
			"consensus client on the %s network with Docker.", chain),
		NetworkName:   EthereumNetwork,
		Containers:    []model.Container{reth, lighthouse},
		DefaultConfig: ethereumDefaults(),
	}, nil
}
