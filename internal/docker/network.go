package docker

import (
	"context"
	"time"

	"github.com/docker/docker/api/types/network"
	"go.uber.org/zap"
)

// CreateOrRecreateNetwork makes sure a fresh bridge network named name
// exists. A network with exactly that name is removed first, so any
// container still attached to it loses that attachment.
func (c *Client) CreateOrRecreateNetwork(ctx context.Context, name string) error {
	start := time.Now()
	networks, err := c.inner.NetworkList(ctx, network.ListOptions{})
	c.metrics.ObserveRuntime("list_networks", start, err)
	if err != nil {
		return classify("list networks", name, err)
	}

	for _, n := range networks {
		if n.Name != name {
			continue
		}
		start = time.Now()
		err := c.inner.NetworkRemove(ctx, n.ID)
		c.metrics.ObserveRuntime("remove_network", start, err)
		if err != nil && !isNotFound(err) {
			return classify("remove existing network", name, err)
		}
		c.log.Info("removed existing network", zap.String("network", name), zap.String("id", n.ID))
	}

	start = time.Now()
	created, err := c.inner.NetworkCreate(ctx, name, network.CreateOptions{Driver: "bridge"})
	c.metrics.ObserveRuntime("create_network", start, err)
	if err != nil {
		return classify("create network", name, err)
	}
	if created.Warning != "" {
		c.log.Warn("network create warning", zap.String("network", name), zap.String("warning", created.Warning))
	}
	c.log.Info("network created", zap.String("network", name), zap.String("id", created.ID))
	return nil
}

// RemoveNetwork removes the network name.
func (c *Client) RemoveNetwork(ctx context.Context, name string) error {
	start := time.Now()
	err := c.inner.NetworkRemove(ctx, name)
	c.metrics.ObserveRuntime("remove_network", start, err)
	if err != nil {
		return classify("remove network", name, err)
	}
	return nil
}
