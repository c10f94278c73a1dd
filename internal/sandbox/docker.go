package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/vk/nfconftest/internal/ctxlog"
	"github.com/vk/nfconftest/internal/testcase"
)

// Container-side mount points for the pipeline and the test case file. The
// entry binary inside the image resolves all config paths against these.
const (
	containerPipelineDir = "/pipeline"
	containerTestDir     = "/testcase"
)

// commandRunner abstracts process execution so tests can intercept the
// docker invocations. The returned output combines stdout and stderr; the
// contract parser discards everything before the sentinel line anyway.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// DockerEngine runs each test case in a one-shot container. One image exists
// per engine version, tagged repo:version; in dev mode the image is built
// from the local build context instead of pulled.
type DockerEngine struct {
	// Repo is the image repository; the engine version becomes the tag.
	Repo string
	// Dev selects building the image locally over pulling it.
	Dev bool
	// BuildContext is the directory holding the Dockerfile used in dev mode.
	BuildContext string

	run commandRunner
}

// NewDockerEngine returns a container-backed engine.
func NewDockerEngine(repo string, dev bool, buildContext string) *DockerEngine {
	return &DockerEngine{
		Repo:         repo,
		Dev:          dev,
		BuildContext: buildContext,
		run:          runCommand,
	}
}

func (e *DockerEngine) image(version string) string {
	return fmt.Sprintf("%s:%s", e.Repo, version)
}

// Provision pulls (or, in dev mode, builds) the image for one engine
// version.
func (e *DockerEngine) Provision(ctx context.Context, version string) error {
	logger := ctxlog.FromContext(ctx)
	image := e.image(version)

	var output []byte
	var err error
	if e.Dev {
		logger.Info("Building engine image.", "image", image)
		output, err = e.run(ctx, "docker",
			"build", "--tag", image, "--build-arg", "ENGINE_VERSION="+version, e.BuildContext)
	} else {
		logger.Info("Pulling engine image.", "image", image)
		output, err = e.run(ctx, "docker", "pull", image)
	}
	if err != nil {
		logger.Error("Engine image provisioning failed.", "image", image, "output", string(output))
		return &ProvisioningError{Version: version, Err: err}
	}
	logger.Debug("Engine image ready.", "image", image)
	return nil
}

// Run executes the entry binary inside a one-shot container. The pipeline,
// the test case, and any mapped files are mounted read-only; the container
// writes nothing back, candidates are the driver's job.
func (e *DockerEngine) Run(ctx context.Context, version, pipelineDir, testPath string) (*Result, error) {
	tc, err := testcase.Load(testPath)
	if err != nil {
		return nil, err
	}

	containerTest := containerTestDir + "/" + filepath.Base(testPath)
	args := []string{
		"run", "--rm",
		"--volume", pipelineDir + ":" + containerPipelineDir + ":ro",
		"--volume", filepath.Dir(testPath) + ":" + containerTestDir + ":ro",
	}
	for host, target := range tc.MappedFiles {
		args = append(args, "--volume", host+":"+target+":ro")
	}
	args = append(args, e.image(version), containerPipelineDir, containerTest)

	output, err := e.run(ctx, "docker", args...)
	if ctx.Err() != nil {
		// The exit code of a killed container means nothing.
		return nil, ctx.Err()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &Result{Output: string(output), ExitCode: exitErr.ExitCode()}, nil
		}
		return nil, fmt.Errorf("running container for %s: %w", testPath, err)
	}
	return &Result{Output: string(output), ExitCode: 0}, nil
}
