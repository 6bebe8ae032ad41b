package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"mixdown/internal/fileutil"
)

// Workspace is a per-job staging directory. All intermediate artifacts for a
// job live under its root so cleanup is a single RemoveAll.
type Workspace struct {
	root string
}

// Create makes a uniquely named staging directory under stagingDir.
func Create(stagingDir string) (*Workspace, error) {
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return nil, errors.New("staging directory required")
	}
	root := filepath.Join(stagingDir, "job-"+uuid.NewString())
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{root: root}, nil
}

// Root returns the workspace directory path.
func (w *Workspace) Root() string {
	return w.root
}

// Path joins name onto the workspace root.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.root, name)
}

// Cleanup removes the workspace and everything under it.
func (w *Workspace) Cleanup() error {
	if w == nil || w.root == "" {
		return nil
	}
	if err := os.RemoveAll(w.root); err != nil {
		return fmt.Errorf("remove workspace: %w", err)
	}
	return nil
}

// Publish moves a finished artifact out of the workspace into the output
// directory, creating it as needed. Returns the destination path.
func (w *Workspace) Publish(artifact, outputDir, name string) (string, error) {
	outputDir = strings.TrimSpace(outputDir)
	if outputDir == "" {
		return "", errors.New("output directory required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = filepath.Base(artifact)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	dest := filepath.Join(outputDir, name)
	if err := fileutil.MoveFileVerified(artifact, dest); err != nil {
		return "", fmt.Errorf("publish %s: %w", name, err)
	}
	return dest, nil
}
