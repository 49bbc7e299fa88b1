package driveops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mtkoskinen/onedrive-batch/internal/graph"
)

// List returns the contents of the folder at remoteDir as two name-to-ID
// maps, files and folders. An empty remoteDir lists the drive root.
func (c *Client) List(ctx context.Context, remoteDir string) (map[string]string, map[string]string, error) {
	if err := c.guard.EnsureConnected(ctx); err != nil {
		return nil, nil, err
	}

	return c.listDir(ctx, remoteDir)
}

// listDir is List without the guard check, for reuse inside other guarded
// operations.
func (c *Client) listDir(ctx context.Context, remoteDir string) (map[string]string, map[string]string, error) {
	items, err := c.graph.ListChildren(ctx, remoteDir)
	if err != nil {
		return nil, nil, fmt.Errorf("listing %q: %w", remoteDir, err)
	}

	files := make(map[string]string)
	folders := make(map[string]string)

	for _, item := range items {
		if item.IsFolder {
			folders[item.Name] = item.ID
		} else {
			files[item.Name] = item.ID
		}
	}

	return files, folders, nil
}

// MakeDir creates a folder named name under remoteDir. Creating a folder
// that already exists returns graph.ErrConflict.
func (c *Client) MakeDir(ctx context.Context, remoteDir, name string) error {
	if err := c.guard.EnsureConnected(ctx); err != nil {
		return err
	}

	if _, err := c.graph.CreateFolder(ctx, remoteDir, name); err != nil {
		return fmt.Errorf("creating folder %q in %q: %w", name, remoteDir, err)
	}

	return nil
}

// MoveFile moves the file named filename from srcDir into destDir. A missing
// source file is not an error: the move is simply skipped.
func (c *Client) MoveFile(ctx context.Context, destDir, srcDir, filename string) error {
	if err := c.guard.EnsureConnected(ctx); err != nil {
		return err
	}

	srcPath := filename
	if srcDir != "" {
		srcPath = srcDir + "/" + filename
	}

	item, err := c.graph.ItemByPath(ctx, srcPath)
	if err != nil {
		if errors.Is(err, graph.ErrNotFound) {
			c.logger.Info("file not found, nothing to move",
				slog.String("dir", srcDir),
				slog.String("name", filename),
			)

			return nil
		}

		return fmt.Errorf("resolving %q: %w", srcPath, err)
	}

	destID, err := c.folderID(ctx, destDir)
	if err != nil {
		return err
	}

	if _, err := c.graph.MoveItem(ctx, item.ID, destID); err != nil {
		return fmt.Errorf("moving %q to %q: %w", srcPath, destDir, err)
	}

	return nil
}

// MoveAll moves the entire folder srcDir (the folder itself, with all of its
// contents) under destDir.
func (c *Client) MoveAll(ctx context.Context, destDir, srcDir string) error {
	if err := c.guard.EnsureConnected(ctx); err != nil {
		return err
	}

	srcID, err := c.folderID(ctx, srcDir)
	if err != nil {
		return err
	}

	destID, err := c.folderID(ctx, destDir)
	if err != nil {
		return err
	}

	if _, err := c.graph.MoveItem(ctx, srcID, destID); err != nil {
		return fmt.Errorf("moving folder %q to %q: %w", srcDir, destDir, err)
	}

	return nil
}
