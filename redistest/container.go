// Package redistest starts a disposable Redis server in Docker for
// integration tests.
package redistest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisPort nat.Port = "6379/tcp"

// ErrNotReady is returned when the server does not answer PING in time.
var ErrNotReady = errors.New("redistest: redis did not become ready")

// Config describes the container to start.
type Config struct {
	Image        string        `yaml:"image"`
	NamePrefix   string        `yaml:"name_prefix"`
	StartTimeout time.Duration `yaml:"start_timeout"`
}

// DefaultConfig returns the configuration used by Run.
func DefaultConfig() Config {
	return Config{
		Image:        "redis:7-alpine",
		NamePrefix:   "redishandles-",
		StartTimeout: 60 * time.Second,
	}
}

// Container is a running Redis container published on a random loopback
// port.
type Container struct {
	client *client.Client
	id     string
	name   string
	addr   string
}

// Start pulls the image if needed, starts the container and waits until
// Redis answers PING.
func Start(ctx context.Context, cfg Config) (*Container, error) {
	if cfg.Image == "" {
		return nil, fmt.Errorf("redistest: image is required")
	}
	if cfg.StartTimeout == 0 {
		cfg.StartTimeout = DefaultConfig().StartTimeout
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("redistest: failed to create Docker client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.StartTimeout)
	defer cancel()

	if err := ensureImage(ctx, cli, cfg.Image); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("redistest: failed to pull image: %w", err)
	}

	name := containerName(cfg.NamePrefix)
	containerConfig, hostConfig := buildConfigs(cfg)
	resp, err := cli.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, name)
	if err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("redistest: failed to create container: %w", err)
	}

	c := &Container{client: cli, id: resp.ID, name: name}
	if err := c.start(ctx); err != nil {
		_ = c.Close(context.Background())
		return nil, err
	}
	return c, nil
}

func (c *Container) start(ctx context.Context) error {
	if err := c.client.ContainerStart(ctx, c.id, container.StartOptions{}); err != nil {
		return fmt.Errorf("redistest: failed to start container: %w", err)
	}

	info, err := c.client.ContainerInspect(ctx, c.id)
	if err != nil {
		return fmt.Errorf("redistest: failed to inspect container: %w", err)
	}
	bindings := info.NetworkSettings.Ports[redisPort]
	if len(bindings) == 0 {
		return fmt.Errorf("redistest: port %s is not published", redisPort)
	}
	c.addr = net.JoinHostPort("127.0.0.1", bindings[0].HostPort)

	return waitReady(ctx, c.addr)
}

func ensureImage(ctx context.Context, cli *client.Client, ref string) error {
	if _, _, err := cli.ImageInspectWithRaw(ctx, ref); err == nil {
		return nil
	}

	reader, err := cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return err
	}
	defer reader.Close()

	_, err = io.Copy(io.Discard, reader)
	return err
}

func containerName(prefix string) string {
	return prefix + uuid.NewString()[:8]
}

// buildConfigs publishes the Redis port on a random loopback port.
func buildConfigs(cfg Config) (*container.Config, *container.HostConfig) {
	cc := &container.Config{
		Image:        cfg.Image,
		ExposedPorts: nat.PortSet{redisPort: struct{}{}},
		Labels:       map[string]string{"org.redishandles.test": "true"},
	}
	hc := &container.HostConfig{
		PortBindings: nat.PortMap{
			redisPort: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: ""}},
		},
	}
	return cc, hc
}

func waitReady(ctx context.Context, addr string) error {
	rdb := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	defer rdb.Close()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var lastErr error
	for {
		if lastErr = rdb.Ping(ctx).Err(); lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w at %s: %w", ErrNotReady, addr, lastErr)
		case <-ticker.C:
		}
	}
}

// Addr is the host:port Redis listens on.
func (c *Container) Addr() string { return c.addr }

// Name is the container name.
func (c *Container) Name() string { return c.name }

// NewClient returns a go-redis client for the container. The caller closes
// it.
func (c *Container) NewClient() *redis.Client {
	return redis.NewClient(&redis.Options{Addr: c.addr})
}

// Close removes the container and releases the Docker client.
func (c *Container) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err := c.client.ContainerRemove(ctx, c.id, container.RemoveOptions{Force: true})
	return errors.Join(err, c.client.Close())
}

// Run starts a container with DefaultConfig for the duration of t. The test
// is skipped when Docker is unavailable.
func Run(t testing.TB) *Container {
	t.Helper()
	c, err := Start(context.Background(), DefaultConfig())
	if err != nil {
		t.Skipf("redistest: docker unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := c.Close(context.Background()); err != nil {
			t.Logf("redistest: failed to remove container %s: %v", c.name, err)
		}
	})
	return c
}
