package lifecycle

import (
	"context"

	"go.uber.org/zap"

	"github.com/kittynode/kittynode/internal/model"
	"github.com/kittynode/kittynode/internal/secret"
)

// Install provisions package name:
//
//  1. write a fresh shared secret (failure aborts before any runtime call)
//  2. resolve the package with its stored configuration
//  3. recreate the package network
//  4. pull and start each container, strictly in manifest order
//
// Later containers may address earlier ones by name, so containers are
// never started concurrently. The first failure stops the sequence and
// nothing already started is removed.
func (m *Manager) Install(ctx context.Context, name string) (err error) {
	defer func() { m.observe("install", name, err) }()

	secretPath := secret.Path(m.dataDir)
	if _, err := m.provision(m.dataDir); err != nil {
		return model.NewError(model.KindFilesystem, "provision secret", secretPath, err)
	}

	pkg, err := m.Resolve(name)
	if err != nil {
		return err
	}

	log := m.log.With(zap.String("package", pkg.Name))
	s := &steps{op: "install", pkg: pkg.Name}

	if err := m.runtime.CreateOrRecreateNetwork(ctx, pkg.NetworkName); err != nil {
		return err
	}
	s.add("network " + pkg.NetworkName)
	log.Info("network ready", zap.String("network", pkg.NetworkName))

	for _, c := range pkg.Containers {
		if err := ctx.Err(); err != nil {
			return s.fail(err)
		}
		if err := m.runtime.PullAndStartContainer(ctx, pkg.Name, c, pkg.NetworkName); err != nil {
			log.Error("container failed to start, leaving earlier steps in place",
				zap.String("container", c.Name), zap.Strings("completed", s.done), zap.Error(err))
			return s.fail(err)
		}
		s.add("container " + c.Name)
	}

	log.Info("package installed", zap.Strings("containers", pkg.ContainerNames()))
	return nil
}
