// container.go implements container provisioning and teardown for kittynode
// packages: exact-name lookup, pull+create+start+connect, stop+remove,
// log retrieval, and discovery of kittynode-managed containers.
package docker

import (
	"bytes"
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	"go.uber.org/zap"

	"github.com/kittynode/kittynode/internal/model"
)

// FindContainers returns every container (running or not) whose name is
// exactly name. The daemon's name filter is a regular expression match, so
// name is quoted into an anchored pattern and the returned names are
// checked exactly as well.
func (c *Client) FindContainers(ctx context.Context, name string) ([]model.ContainerInfo, error) {
	start := time.Now()
	list, err := c.inner.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("name", "^/"+regexp.QuoteMeta(name)+"$")),
	})
	c.metrics.ObserveRuntime("list_containers", start, err)
	if err != nil {
		return nil, classify("list containers", name, err)
	}

	var result []model.ContainerInfo
	for _, s := range list {
		if hasName(s.Names, name) {
			result = append(result, containerToInfo(s))
		}
	}
	return result, nil
}

// hasName reports whether one of the daemon-reported names (each carrying
// a leading "/") is exactly name.
func hasName(names []string, name string) bool {
	for _, n := range names {
		if n == "/"+name {
			return true
		}
	}
	return false
}

// ListManagedContainers returns all containers labelled as managed by
// kittynode, including stopped ones.
func (c *Client) ListManagedContainers(ctx context.Context) ([]model.ContainerInfo, error) {
	args := filters.NewArgs()
	for _, l := range FilterLabels() {
		args.Add("label", l)
	}

	start := time.Now()
	list, err := c.inner.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: args,
	})
	c.metrics.ObserveRuntime("list_containers", start, err)
	if err != nil {
		return nil, classify("list managed containers", "", err)
	}

	result := make([]model.ContainerInfo, 0, len(list))
	for _, s := range list {
		result = append(result, containerToInfo(s))
	}
	return result, nil
}

// containerToInfo converts a Docker API container summary to the domain
// ContainerInfo. Docker returns names with a leading "/" which is stripped.
func containerToInfo(s container.Summary) model.ContainerInfo {
	name := ""
	if len(s.Names) > 0 {
		name = strings.TrimPrefix(s.Names[0], "/")
	}

	return model.ContainerInfo{
		ID:     s.ID,
		Name:   name,
		Image:  s.Image,
		State:  string(s.State),
		Labels: s.Labels,
	}
}

// PullAndStartContainer provisions one container of package pkg:
//
//  1. pull the image, draining every progress event. Pull problems are
//     logged and otherwise ignored; if the image really is unavailable the
//     create call fails instead.
//  2. create the container with the manifest's port and bind mounts
//  3. start it
//  4. connect it to network
//
// Failures in steps 2-4 are returned with the container name attached.
func (c *Client) PullAndStartContainer(ctx context.Context, pkg string, ctr model.Container, network string) error {
	log := c.log.With(zap.String("container", ctr.Name), zap.String("image", ctr.Image))

	c.pullLogged(ctx, log, ctr.Image)

	cfg, hostCfg, err := buildContainerConfig(pkg, ctr, network, time.Now())
	if err != nil {
		return model.NewError(model.KindOperationFailed, "create container", ctr.Name, err)
	}

	start := time.Now()
	created, err := c.inner.ContainerCreate(ctx, cfg, hostCfg, nil, nil, ctr.Name)
	c.metrics.ObserveRuntime("create_container", start, err)
	if err != nil {
		return classify("create container", ctr.Name, err)
	}
	for _, w := range created.Warnings {
		log.Warn("container create warning", zap.String("warning", w))
	}

	start = time.Now()
	err = c.inner.ContainerStart(ctx, created.ID, container.StartOptions{})
	c.metrics.ObserveRuntime("start_container", start, err)
	if err != nil {
		return classify("start container", ctr.Name, err)
	}

	start = time.Now()
	err = c.inner.NetworkConnect(ctx, network, created.ID, nil)
	c.metrics.ObserveRuntime("connect_network", start, err)
	if err != nil {
		return classify("connect container to network "+network, ctr.Name, err)
	}

	log.Info("container started", zap.String("id", created.ID), zap.String("network", network))
	return nil
}

// pullLogged pulls ref and drains its progress stream, logging rather than
// returning every problem.
func (c *Client) pullLogged(ctx context.Context, log *zap.Logger, ref string) {
	progress, err := c.PullImage(ctx, ref)
	if err != nil {
		log.Warn("image pull failed", zap.Error(err))
		return
	}
	for ev, evErr := range progress.Events() {
		if evErr != nil {
			c.metrics.IncPullEventError()
			log.Warn("image pull error", zap.Error(evErr))
			continue
		}
		log.Debug("image pull progress",
			zap.String("layer", ev.ID),
			zap.String("status", ev.Status),
			zap.Int64("current", ev.Current),
			zap.Int64("total", ev.Total),
		)
	}
}

// buildContainerConfig derives the Docker container and host configuration
// for ctr. Exposed ports mirror the port binding keys; binds are the volume
// bindings followed by the file bindings.
func buildContainerConfig(pkg string, ctr model.Container, network string, now time.Time) (*container.Config, *container.HostConfig, error) {
	exposed := make(nat.PortSet, len(ctr.PortBindings))
	portMap := make(nat.PortMap, len(ctr.PortBindings))

	for _, key := range ctr.PortKeys() {
		proto, port := nat.SplitProtoPort(key)
		p, err := nat.NewPort(proto, port)
		if err != nil {
			return nil, nil, err
		}
		exposed[p] = struct{}{}

		bindings := make([]nat.PortBinding, 0, len(ctr.PortBindings[key]))
		for _, b := range ctr.PortBindings[key] {
			bindings = append(bindings, nat.PortBinding{HostIP: b.HostIP, HostPort: b.HostPort})
		}
		portMap[p] = bindings
	}

	cfg := &container.Config{
		Image:        ctr.Image,
		Cmd:          ctr.Cmd,
		ExposedPorts: exposed,
		Labels:       BuildLabels(pkg, network, ctr, now),
	}
	hostCfg := &container.HostConfig{
		Binds:        ctr.Binds(),
		PortBindings: portMap,
	}
	return cfg, hostCfg, nil
}

// RemoveContainer stops and removes every container named exactly name.
// Stop failures (already stopped, never started) are logged and ignored;
// a remove failure is returned.
func (c *Client) RemoveContainer(ctx context.Context, name string) error {
	matches, err := c.FindContainers(ctx, name)
	if err != nil {
		return err
	}

	for _, m := range matches {
		start := time.Now()
		err := c.inner.ContainerStop(ctx, m.ID, container.StopOptions{})
		c.metrics.ObserveRuntime("stop_container", start, err)
		if err != nil {
			if errdefs.IsNotModified(err) {
				c.log.Debug("container already stopped", zap.String("container", name))
			} else {
				c.log.Warn("container stop failed", zap.String("container", name), zap.Error(err))
			}
		}

		start = time.Now()
		err = c.inner.ContainerRemove(ctx, m.ID, container.RemoveOptions{})
		c.metrics.ObserveRuntime("remove_container", start, err)
		if err != nil {
			return classify("remove container", name, err)
		}
		c.log.Info("container removed", zap.String("container", name), zap.String("id", m.ID))
	}
	return nil
}

// ContainerLogs returns the last tail lines of combined stdout and stderr
// of the container named exactly name. tail <= 0 returns everything.
// An unknown container yields a KindNotFound error.
func (c *Client) ContainerLogs(ctx context.Context, name string, tail int) ([]string, error) {
	matches, err := c.FindContainers(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, model.NotFoundError("container", name)
	}

	opts := container.LogsOptions{ShowStdout: true, ShowStderr: true, Tail: "all"}
	if tail > 0 {
		opts.Tail = strconv.Itoa(tail)
	}

	start := time.Now()
	rc, err := c.inner.ContainerLogs(ctx, matches[0].ID, opts)
	c.metrics.ObserveRuntime("container_logs", start, err)
	if err != nil {
		if isNotFound(err) {
			return nil, model.NotFoundError("container", name)
		}
		return nil, classify("read container logs", name, err)
	}
	defer rc.Close()

	// Containers are created without a TTY, so the stream is multiplexed.
	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, rc); err != nil {
		return nil, classify("read container logs", name, err)
	}

	text := strings.TrimRight(buf.String(), "\n")
	if text == "" {
		return []string{}, nil
	}
	return strings.Split(text, "\n"), nil
}
