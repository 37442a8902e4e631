// Package port checks whether the host ports a package publishes are free.
//
// Installing a package binds fixed host ports (for example 30303 for the
// execution client's peer-to-peer traffic). If another process already
// holds one, container start fails late, after the network and earlier
// containers were created. The Scanner probes each host binding with
// net.Listen / net.ListenPacket beforehand so the conflict can be reported
// up front, together with a nearby free port.
package port
