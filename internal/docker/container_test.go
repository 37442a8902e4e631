package docker

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittynode/kittynode/internal/model"
)

// testContainer is a small manifest container with one volume, one
// read-only file binding and two ports.
func testContainer() model.Container {
	return model.Container{
		Name:  "reth-node",
		Image: "ghcr.io/paradigmxyz/reth",
		Cmd:   []string{"node", "--chain", "holesky"},
		PortBindings: map[string][]model.PortBinding{
			"30303/udp": {{HostIP: "0.0.0.0", HostPort: "30303"}},
			"9001/tcp":  {{HostIP: "0.0.0.0", HostPort: "9001"}},
		},
		VolumeBindings: []model.Binding{{Source: "rethdata", Destination: "/data"}},
		FileBindings:   []model.Binding{{Source: "/home/u/.kittynode/jwt.hex", Destination: "/jwt.hex", Options: "ro"}},
	}
}

// TestFindContainers_ExactMatch verifies a container whose name merely
// contains the requested name is not returned.
func TestFindContainers_ExactMatch(t *testing.T) {
	f := newFakeEngine()
	f.containers = []container.Summary{
		{ID: "a1", Names: []string{"/reth-node"}, Image: "reth", State: "running"},
		{ID: "b2", Names: []string{"/reth-node-old"}, Image: "reth", State: "exited"},
	}
	c, _ := newTestClient(f)

	found, err := c.FindContainers(context.Background(), "reth-node")

	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "a1", found[0].ID)
	assert.Equal(t, "reth-node", found[0].Name, "leading slash should be stripped")
	assert.True(t, found[0].IsRunning())
	assert.True(t, f.lastListOpts.All, "stopped containers must be included")
	assert.Equal(t, []string{"^/reth-node$"}, f.lastListOpts.Filters.Get("name"))
}

// TestFindContainers_QuotesName verifies regular-expression metacharacters
// in a name are matched literally by the daemon filter.
func TestFindContainers_QuotesName(t *testing.T) {
	f := newFakeEngine()
	f.containers = []container.Summary{
		{ID: "a1", Names: []string{"/a.b"}, State: "running"},
		{ID: "b2", Names: []string{"/aXb"}, State: "running"},
	}
	c, _ := newTestClient(f)

	found, err := c.FindContainers(context.Background(), "a.b")

	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "a1", found[0].ID)

	filter := f.lastListOpts.Filters.Get("name")
	require.Equal(t, []string{`^/a\.b$`}, filter)
	assert.False(t, regexp.MustCompile(filter[0]).MatchString("/aXb"))
}

func TestFindContainers_ListError(t *testing.T) {
	f := newFakeEngine()
	f.errs["ContainerList"] = errors.New("boom")
	c, _ := newTestClient(f)

	_, err := c.FindContainers(context.Background(), "reth-node")

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrOperationFailed)
	assert.Contains(t, err.Error(), "reth-node")
}

// TestPullAndStartContainer_Order verifies the runtime sees pull, create,
// start, then connect, with the manifest bindings on the host config.
func TestPullAndStartContainer_Order(t *testing.T) {
	f := newFakeEngine()
	f.pullStream = `{"status":"Pulling from paradigmxyz/reth","id":"latest"}
{"status":"Downloading","id":"abc","progressDetail":{"current":10,"total":100}}
{"status":"Download complete","id":"abc"}
`
	c, m := newTestClient(f)

	err := c.PullAndStartContainer(context.Background(), "Ethereum", testContainer(), "ethereum-network")

	require.NoError(t, err)
	assert.Equal(t, []string{
		"ImagePull ghcr.io/paradigmxyz/reth",
		"ContainerCreate reth-node",
		"ContainerStart id-reth-node",
		"NetworkConnect ethereum-network id-reth-node",
	}, f.Calls())

	require.NotNil(t, f.lastHostConfig)
	assert.Equal(t, []string{"rethdata:/data", "/home/u/.kittynode/jwt.hex:/jwt.hex:ro"}, f.lastHostConfig.Binds)
	assert.Equal(t, []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: "30303"}},
		f.lastHostConfig.PortBindings[nat.Port("30303/udp")])
	assert.Len(t, f.lastConfig.ExposedPorts, 2)
	assert.Contains(t, f.lastConfig.ExposedPorts, nat.Port("9001/tcp"))
	assert.Equal(t, []string{"node", "--chain", "holesky"}, []string(f.lastConfig.Cmd))
	assert.Equal(t, "Ethereum", f.lastConfig.Labels[LabelPackage])
	assert.Equal(t, 0.0, testutil.ToFloat64(m.PullEventErrors))
	assert.Equal(t, 1, f.pullClosed, "the pull stream is released once drained")
}

// TestPullAndStartContainer_PullErrorsIgnored verifies neither a failed
// pull request nor an errored progress event stops the container from
// being created.
func TestPullAndStartContainer_PullErrorsIgnored(t *testing.T) {
	t.Run("request fails", func(t *testing.T) {
		f := newFakeEngine()
		f.errs["ImagePull"] = errors.New("registry unreachable")
		c, _ := newTestClient(f)

		err := c.PullAndStartContainer(context.Background(), "Ethereum", testContainer(), "ethereum-network")

		require.NoError(t, err)
		assert.Contains(t, f.Calls(), "ContainerCreate reth-node")
	})

	t.Run("event reports error", func(t *testing.T) {
		f := newFakeEngine()
		f.pullStream = `{"status":"Pulling","id":"latest"}
{"errorDetail":{"message":"toomanyrequests"},"error":"toomanyrequests"}
{"status":"Done","id":"latest"}
`
		c, m := newTestClient(f)

		err := c.PullAndStartContainer(context.Background(), "Ethereum", testContainer(), "ethereum-network")

		require.NoError(t, err)
		assert.Contains(t, f.Calls(), "ContainerStart id-reth-node")
		assert.Equal(t, 1.0, testutil.ToFloat64(m.PullEventErrors))
	})
}

func TestPullAndStartContainer_FatalSteps(t *testing.T) {
	testCases := []struct {
		name     string
		method   string
		notAfter string
	}{
		{"create fails", "ContainerCreate", "ContainerStart id-reth-node"},
		{"start fails", "ContainerStart", "NetworkConnect ethereum-network id-reth-node"},
		{"connect fails", "NetworkConnect", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFakeEngine()
			f.errs[tc.method] = errors.New("conflict")
			c, _ := newTestClient(f)

			err := c.PullAndStartContainer(context.Background(), "Ethereum", testContainer(), "ethereum-network")

			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrOperationFailed)
			assert.Contains(t, err.Error(), "reth-node", "error must name the container")
			if tc.notAfter != "" {
				assert.NotContains(t, f.Calls(), tc.notAfter)
			}
		})
	}
}

func TestBuildContainerConfig_NoPorts(t *testing.T) {
	ctr := model.Container{Name: "solo", Image: "busybox"}

	cfg, hostCfg, err := buildContainerConfig("Test", ctr, "test-net", time.Unix(0, 0))

	require.NoError(t, err)
	assert.Empty(t, cfg.ExposedPorts)
	assert.Empty(t, hostCfg.PortBindings)
	assert.Empty(t, hostCfg.Binds)
	assert.Equal(t, "test-net", cfg.Labels[LabelNetwork])
}

// TestRemoveContainer verifies stop failures are ignored while the
// removal itself still happens for every exact match.
func TestRemoveContainer(t *testing.T) {
	f := newFakeEngine()
	f.containers = []container.Summary{{ID: "a1", Names: []string{"/reth-node"}}}
	f.errs["ContainerStop"] = errdefs.ErrNotModified
	c, _ := newTestClient(f)

	err := c.RemoveContainer(context.Background(), "reth-node")

	require.NoError(t, err)
	assert.Equal(t, []string{
		"ContainerList ",
		"ContainerStop a1",
		"ContainerRemove a1",
	}, f.Calls())
}

func TestRemoveContainer_NoMatch(t *testing.T) {
	f := newFakeEngine()
	c, _ := newTestClient(f)

	require.NoError(t, c.RemoveContainer(context.Background(), "reth-node"))
	assert.Equal(t, []string{"ContainerList "}, f.Calls())
}

func TestRemoveContainer_RemoveFails(t *testing.T) {
	f := newFakeEngine()
	f.containers = []container.Summary{{ID: "a1", Names: []string{"/reth-node"}}}
	f.errs["ContainerRemove"] = errors.New("in use")
	c, _ := newTestClient(f)

	err := c.RemoveContainer(context.Background(), "reth-node")

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrOperationFailed)
	assert.Contains(t, err.Error(), `remove container "reth-node"`)
}

func TestContainerLogs(t *testing.T) {
	var stream bytes.Buffer
	_, err := stdcopy.NewStdWriter(&stream, stdcopy.Stdout).Write([]byte("line one\nline two\n"))
	require.NoError(t, err)
	_, err = stdcopy.NewStdWriter(&stream, stdcopy.Stderr).Write([]byte("warn three\n"))
	require.NoError(t, err)

	f := newFakeEngine()
	f.containers = []container.Summary{{ID: "a1", Names: []string{"/lighthouse-node"}}}
	f.logStream = stream.Bytes()
	c, _ := newTestClient(f)

	lines, err := c.ContainerLogs(context.Background(), "lighthouse-node", 50)

	require.NoError(t, err)
	assert.Equal(t, []string{"line one", "line two", "warn three"}, lines)
	assert.Equal(t, "50", f.lastLogsOpts.Tail)
	assert.True(t, f.lastLogsOpts.ShowStderr)
}

func TestContainerLogs_NotFound(t *testing.T) {
	c, _ := newTestClient(newFakeEngine())

	_, err := c.ContainerLogs(context.Background(), "ghost", 0)

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestListManagedContainers(t *testing.T) {
	f := newFakeEngine()
	f.containers = []container.Summary{
		{ID: "a1", Names: []string{"/reth-node"}, Labels: map[string]string{LabelPackage: "Ethereum"}},
	}
	c, _ := newTestClient(f)

	list, err := c.ListManagedContainers(context.Background())

	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ethereum", list[0].Labels[LabelPackage])
	assert.Equal(t, []string{"kittynode.managed-by=kittynode"}, f.lastListOpts.Filters.Get("label"))
}
