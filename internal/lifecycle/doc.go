// Package lifecycle turns package names into running containers and back.
//
// A Manager resolves packages from the manifest registry and drives a
// container Runtime through an ordered sequence of calls:
//
//   - Install provisions the shared secret, recreates the package network
//     and starts each container in manifest order.
//   - Delete removes containers, optionally their images, the bound host
//     files and directories, volumes and finally the network.
//
// Both stop at the first failure and leave already-applied steps in place.
// Once anything has changed, the failure is returned as a
// model.PartialStateError listing the completed steps.
package lifecycle
