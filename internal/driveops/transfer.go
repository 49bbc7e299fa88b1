package driveops

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/mtkoskinen/onedrive-batch/internal/batch"
	"github.com/mtkoskinen/onedrive-batch/internal/graph"
)

const localDirPerms = 0o755

// Upload transfers the given local files into remoteDir, named by their base
// name. The access token is snapshotted once before the first batch, so a
// concurrent refresh can never change credentials mid-transfer. A missing or
// unreadable local file is recorded like any other per-item failure.
func (c *Client) Upload(ctx context.Context, localPaths []string, remoteDir string) error {
	if err := c.guard.EnsureConnected(ctx); err != nil {
		return err
	}

	worker := c.graph.WithTokenSource(c.sess.Snapshot())

	tasks := make([]batch.Task, 0, len(localPaths))

	for _, localPath := range localPaths {
		localPath := localPath

		name := filepath.Base(localPath)
		tasks = append(tasks, batch.Task{
			Name: name,
			Run: func(ctx context.Context) error {
				return uploadOne(ctx, worker, localPath, remoteDir, name)
			},
		})
	}

	c.logger.Info("starting upload",
		slog.Int("files", len(tasks)),
		slog.String("remote_dir", remoteDir),
	)

	return c.engine.Run(ctx, tasks, "could not upload all files: ")
}

func uploadOne(ctx context.Context, worker *graph.Client, localPath, remoteDir, name string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("could not upload %s: %v", name, err)
	}
	defer f.Close()

	if _, err := worker.UploadContent(ctx, remoteDir, name, f); err != nil {
		return fmt.Errorf("could not upload %s: %v", name, err)
	}

	return nil
}

// Download transfers files from remoteDir into localDir. A non-empty only
// restricts the transfer to that single file. The local directory is created
// if needed; each file is written to a temporary name and renamed into place
// only after its content has fully arrived.
func (c *Client) Download(ctx context.Context, remoteDir, localDir, only string) error {
	if err := c.guard.EnsureConnected(ctx); err != nil {
		return err
	}

	files, _, err := c.listDir(ctx, remoteDir)
	if err != nil {
		return err
	}

	if only != "" {
		id, ok := files[only]
		if !ok {
			return fmt.Errorf("file %q not found in %q", only, remoteDir)
		}

		files = map[string]string{only: id}
	}

	if err := os.MkdirAll(localDir, localDirPerms); err != nil {
		return fmt.Errorf("creating local directory %q: %w", localDir, err)
	}

	worker := c.graph.WithTokenSource(c.sess.Snapshot())

	// Sorted so batch composition is reproducible run to run.
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}

	sort.Strings(names)

	tasks := make([]batch.Task, 0, len(names))

	for _, name := range names {
		name := name

		id := files[name]

		tasks = append(tasks, batch.Task{
			Name: name,
			Run: func(ctx context.Context) error {
				return downloadOne(ctx, worker, id, filepath.Join(localDir, name), name)
			},
		})
	}

	c.logger.Info("starting download",
		slog.Int("files", len(tasks)),
		slog.String("remote_dir", remoteDir),
		slog.String("local_dir", localDir),
	)

	return c.engine.Run(ctx, tasks, "could not download all files: ")
}

// downloadOne streams one item into a temp file next to its destination and
// renames it into place, so a failed transfer never leaves a truncated file
// under the final name.
func downloadOne(ctx context.Context, worker *graph.Client, itemID, localPath, name string) error {
	tmp, err := os.CreateTemp(filepath.Dir(localPath), "."+name+".*")
	if err != nil {
		return fmt.Errorf("could not download %s: %v", name, err)
	}

	if _, err := worker.DownloadContent(ctx, itemID, tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("could not download %s: %v", name, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("could not download %s: %v", name, err)
	}

	if err := os.Rename(tmp.Name(), localPath); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("could not download %s: %v", name, err)
	}

	return nil
}
