// Package docker is the container runtime adapter for kittynode.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS, Windows) and a soft liveness probe (IsRunning)
//   - Network provisioning: create-or-recreate and removal
//   - Container provisioning: pull, create, start, connect, remove
//   - Image and volume removal, container log retrieval
//   - Container labels marking kittynode-managed resources
//
// Every failure is wrapped in a model.Error carrying the operation and
// resource name. Connection failures are classified as
// model.KindRuntimeUnavailable, everything else as
// model.KindOperationFailed.
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
package docker
