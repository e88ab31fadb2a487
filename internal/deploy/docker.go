package deploy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"

	"flagrange/internal/store"
)

const sshContainerPort = nat.Port("22/tcp")

// DockerDeployer provisions targets as Docker containers, one per team,
// with the container's SSH port published on the team's allocated host port.
type DockerDeployer struct {
	client *client.Client
	logger *slog.Logger
}

// NewDockerDeployer creates a deployer against the local Docker daemon.
func NewDockerDeployer(logger *slog.Logger) (*DockerDeployer, error) {
	// Initializes client from standard environment variables (DOCKER_HOST, etc.)
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &DockerDeployer{client: cli, logger: logger}, nil
}

// Deploy implements Deployer using Docker containers.
func (d *DockerDeployer) Deploy(ctx context.Context, game *store.Game, team *store.GameTeam) (Target, error) {
	if team.SSHPort == nil {
		return Target{}, fmt.Errorf("deploy team %s: no ssh port allocated", team.TeamID)
	}

	// Check if the image exists locally first to save time.
	if _, _, err := d.client.ImageInspectWithRaw(ctx, game.Image); err != nil {
		reader, err := d.client.ImagePull(ctx, game.Image, image.PullOptions{})
		if err != nil {
			return Target{}, fmt.Errorf("pull image %s: %w", game.Image, err)
		}
		defer reader.Close()
		io.Copy(io.Discard, reader)
	}

	containerConfig := &container.Config{
		Image: game.Image,
		ExposedPorts: nat.PortSet{
			sshContainerPort: struct{}{},
		},
		Labels: map[string]string{
			"flagrange.game": game.ID.String(),
			"flagrange.team": team.TeamID,
		},
	}
	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			sshContainerPort: []nat.PortBinding{
				{HostIP: "0.0.0.0", HostPort: strconv.Itoa(*team.SSHPort)},
			},
		},
	}

	name := fmt.Sprintf("flagrange-%s-%s", shortID(game.ID.String()), team.TeamID)
	created, err := d.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, name)
	if err != nil {
		return Target{}, fmt.Errorf("create container for team %s: %w", team.TeamID, err)
	}

	if err := d.client.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		d.remove(created.ID)
		return Target{}, fmt.Errorf("start container for team %s: %w", team.TeamID, err)
	}

	inspected, err := d.client.ContainerInspect(ctx, created.ID)
	if err != nil {
		d.remove(created.ID)
		return Target{}, fmt.Errorf("inspect container for team %s: %w", team.TeamID, err)
	}
	addr := inspected.NetworkSettings.IPAddress
	if addr == "" {
		for _, nw := range inspected.NetworkSettings.Networks {
			if nw.IPAddress != "" {
				addr = nw.IPAddress
				break
			}
		}
	}

	d.logger.Info("deployed target",
		"game_id", game.ID,
		"team_id", team.TeamID,
		"container_id", created.ID,
		"addr", addr,
		"ssh_port", *team.SSHPort,
	)
	return Target{Ref: created.ID, Addr: addr}, nil
}

// InjectFlag writes the flag into the running container via exec. The parent
// directory is created so the first tick works on a fresh image.
func (d *DockerDeployer) InjectFlag(ctx context.Context, ref, value, path string) error {
	cmd := fmt.Sprintf(`mkdir -p "$(dirname %q)" && printf '%%s\n' %q > %q && chmod 644 %q`, path, value, path, path)
	exec, err := d.client.ContainerExecCreate(ctx, ref, container.ExecOptions{
		Cmd:          []string{"sh", "-c", cmd},
		User:         "root",
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return fmt.Errorf("create flag exec in %s: %w", ref, err)
	}
	attach, err := d.client.ContainerExecAttach(ctx, exec.ID, container.ExecStartOptions{})
	if err != nil {
		return fmt.Errorf("start flag exec in %s: %w", ref, err)
	}
	io.Copy(io.Discard, attach.Reader)
	attach.Close()

	inspect, err := d.client.ContainerExecInspect(ctx, exec.ID)
	if err != nil {
		return fmt.Errorf("inspect flag exec in %s: %w", ref, err)
	}
	if inspect.ExitCode != 0 {
		return fmt.Errorf("write flag to %s in %s: exit code %d", path, ref, inspect.ExitCode)
	}
	return nil
}

// Stop stops and removes the container. A missing container counts as
// already stopped.
func (d *DockerDeployer) Stop(ctx context.Context, ref string) error {
	timeout := 5
	if err := d.client.ContainerStop(ctx, ref, container.StopOptions{Timeout: &timeout}); err != nil {
		if client.IsErrNotFound(err) {
			return nil
		}
		return fmt.Errorf("stop container %s: %w", ref, err)
	}
	if err := d.client.ContainerRemove(ctx, ref, container.RemoveOptions{Force: true}); err != nil {
		if client.IsErrNotFound(err) {
			return nil
		}
		return fmt.Errorf("remove container %s: %w", ref, err)
	}
	return nil
}

func (d *DockerDeployer) remove(id string) {
	err := d.client.ContainerRemove(context.Background(), id, container.RemoveOptions{Force: true})
	if err != nil && !client.IsErrNotFound(err) {
		d.logger.Warn("cleanup container failed", "container_id", id, "error", err)
	}
}

func shortID(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
