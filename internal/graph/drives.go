package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// driveResponse mirrors the Graph API drive JSON response.
// Unexported — callers use Drive via toDrive() normalization.
type driveResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	DriveType string      `json:"driveType"`
	Owner     *ownerFacet `json:"owner"`
	Quota     *quotaFacet `json:"quota"`
}

type ownerFacet struct {
	User struct {
		DisplayName string `json:"displayName"`
	} `json:"user"`
}

type quotaFacet struct {
	Used  int64 `json:"used"`
	Total int64 `json:"total"`
}

// Drive describes the authenticated user's default drive, as returned by
// the identity endpoint.
type Drive struct {
	ID         string
	Name       string
	DriveType  string
	OwnerName  string
	QuotaUsed  int64
	QuotaTotal int64
}

// toDrive normalizes a Graph API drive response. Nil-safe for the optional
// owner and quota facets.
func (d *driveResponse) toDrive() Drive {
	drive := Drive{
		ID:        d.ID,
		Name:      d.Name,
		DriveType: d.DriveType,
	}

	if d.Owner != nil {
		drive.OwnerName = d.Owner.User.DisplayName
	}

	if d.Quota != nil {
		drive.QuotaUsed = d.Quota.Used
		drive.QuotaTotal = d.Quota.Total
	}

	return drive
}

// DriveInfo returns the authenticated user's default drive.
func (c *Client) DriveInfo(ctx context.Context) (*Drive, error) {
	c.logger.Info("fetching default drive")

	resp, err := c.Do(ctx, http.MethodGet, "/me/drive", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var dr driveResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("graph: decoding drive response: %w", err)
	}

	drive := dr.toDrive()

	c.logger.Debug("fetched drive",
		slog.String("id", drive.ID),
		slog.String("drive_type", drive.DriveType),
	)

	return &drive, nil
}

// Probe checks reachability of the drive-identity endpoint with exactly one
// request — no transport retry. The connection guard owns the retry policy
// for connectivity, so retrying here as well would multiply its attempts.
func (c *Client) Probe(ctx context.Context) error {
	resp, err := c.doOnce(ctx, http.MethodGet, c.baseURL+"/me/drive", nil, "")
	if err != nil {
		return fmt.Errorf("graph: probe failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			body = []byte("(failed to read response body)")
		}

		return newAPIError(resp.StatusCode, body)
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}
