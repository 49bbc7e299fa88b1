// Package driveops is the public operation facade of the client: listing,
// folder management, moves, and batched content transfer. Every exported
// operation first passes through the connection guard, so callers never have
// to reason about session state themselves.
package driveops

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mtkoskinen/onedrive-batch/internal/batch"
	"github.com/mtkoskinen/onedrive-batch/internal/graph"
	"github.com/mtkoskinen/onedrive-batch/internal/session"
)

// Client bundles the session guard, the Graph API client, and the batch
// engine behind the operations the CLI exposes.
type Client struct {
	graph  *graph.Client
	sess   *session.Session
	guard  *session.Guard
	engine *batch.Engine
	logger *slog.Logger
}

// New assembles the operation facade from its already-constructed parts.
func New(
	graphClient *graph.Client,
	sess *session.Session,
	guard *session.Guard,
	engine *batch.Engine,
	logger *slog.Logger,
) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		graph:  graphClient,
		sess:   sess,
		guard:  guard,
		engine: engine,
		logger: logger,
	}
}

// Whoami returns the authenticated user's default drive.
func (c *Client) Whoami(ctx context.Context) (*graph.Drive, error) {
	if err := c.guard.EnsureConnected(ctx); err != nil {
		return nil, err
	}

	return c.graph.DriveInfo(ctx)
}

// folderID resolves the item ID of the folder at remoteDir. An empty
// remoteDir resolves the drive root.
func (c *Client) folderID(ctx context.Context, remoteDir string) (string, error) {
	item, err := c.graph.ItemByPath(ctx, remoteDir)
	if err != nil {
		return "", fmt.Errorf("resolving folder %q: %w", remoteDir, err)
	}

	if !item.IsFolder {
		return "", fmt.Errorf("remote path %q is not a folder", remoteDir)
	}

	return item.ID, nil
}
