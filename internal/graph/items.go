package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// encodePathSegments URL-encodes each segment of a slash-separated path.
// Characters like #, ?, %, and spaces are encoded per-segment so the
// resulting path is safe for interpolation into Graph API URLs.
func encodePathSegments(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}

	return strings.Join(segments, "/")
}

// driveItemResponse mirrors the Graph API driveItem JSON.
// Unexported — callers use Item via toItem() normalization.
type driveItemResponse struct {
	ID     string           `json:"id"`
	Name   string           `json:"name"`
	Size   int64            `json:"size"`
	File   *json.RawMessage `json:"file"`
	Folder *folderFacet     `json:"folder"`
}

type folderFacet struct {
	ChildCount int `json:"childCount"`
}

type listChildrenResponse struct {
	Value    []driveItemResponse `json:"value"`
	NextLink string              `json:"@odata.nextLink"` //nolint:tagliatelle // OData annotation key
}

type createFolderRequest struct {
	Name             string      `json:"name"`
	Folder           folderFacet `json:"folder"`
	ConflictBehavior string      `json:"@microsoft.graph.conflictBehavior"` //nolint:tagliatelle // Graph API annotation key
}

type moveItemRequest struct {
	ParentReference moveParentRef `json:"parentReference"`
}

type moveParentRef struct {
	ID string `json:"id"`
}

// Item represents a OneDrive drive item, normalized from the Graph API
// response — callers never see raw API data.
type Item struct {
	ID       string
	Name     string
	Size     int64
	IsFolder bool
}

func (d *driveItemResponse) toItem() Item {
	return Item{
		ID:       d.ID,
		Name:     d.Name,
		Size:     d.Size,
		IsFolder: d.Folder != nil,
	}
}

// ItemByPath retrieves a drive item by its path relative to the drive root.
// The path must NOT have leading or trailing slashes (callers strip them).
// An empty path returns the drive root itself.
func (c *Client) ItemByPath(ctx context.Context, remotePath string) (*Item, error) {
	c.logger.Info("getting item by path", slog.String("path", remotePath))

	apiPath := "/me/drive/root"
	if remotePath != "" {
		apiPath = fmt.Sprintf("/me/drive/root:/%s:", encodePathSegments(remotePath))
	}

	resp, err := c.Do(ctx, http.MethodGet, apiPath, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var dir driveItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&dir); err != nil {
		return nil, fmt.Errorf("graph: decoding item response: %w", err)
	}

	item := dir.toItem()

	return &item, nil
}

// ListChildren returns all children of the folder at the given path,
// handling pagination automatically. An empty path lists the drive root.
func (c *Client) ListChildren(ctx context.Context, remotePath string) ([]Item, error) {
	c.logger.Info("listing children", slog.String("path", remotePath))

	apiPath := "/me/drive/root/children"
	if remotePath != "" {
		apiPath = fmt.Sprintf("/me/drive/root:/%s:/children", encodePathSegments(remotePath))
	}

	var items []Item

	page := 1

	for apiPath != "" {
		pageItems, nextPath, err := c.listChildrenPage(ctx, apiPath, page)
		if err != nil {
			return nil, err
		}

		items = append(items, pageItems...)
		apiPath = nextPath
		page++
	}

	c.logger.Info("listed children",
		slog.String("path", remotePath),
		slog.Int("total_items", len(items)),
	)

	return items, nil
}

// listChildrenPage fetches a single page of children and returns the items
// and the next page path (empty if no more pages).
func (c *Client) listChildrenPage(ctx context.Context, path string, page int) ([]Item, string, error) {
	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	var lcr listChildrenResponse
	if err := json.NewDecoder(resp.Body).Decode(&lcr); err != nil {
		return nil, "", fmt.Errorf("graph: decoding children response: %w", err)
	}

	items := make([]Item, 0, len(lcr.Value))
	for i := range lcr.Value {
		items = append(items, lcr.Value[i].toItem())
	}

	c.logger.Debug("fetched children page",
		slog.Int("page", page),
		slog.Int("count", len(items)),
	)

	var nextPath string
	if lcr.NextLink != "" {
		var stripErr error

		nextPath, stripErr = c.stripBaseURL(lcr.NextLink)
		if stripErr != nil {
			return nil, "", stripErr
		}
	}

	return items, nextPath, nil
}

// stripBaseURL removes the client's base URL prefix from a full URL,
// returning the path + query string for use with Do().
func (c *Client) stripBaseURL(fullURL string) (string, error) {
	if !strings.HasPrefix(fullURL, c.baseURL) {
		return "", fmt.Errorf("graph: nextLink URL %q does not match base URL %q", fullURL, c.baseURL)
	}

	return fullURL[len(c.baseURL):], nil
}

// CreateFolder creates a new folder under the folder at parentPath.
// Uses conflictBehavior "fail" — returns ErrConflict (409) on name collision.
func (c *Client) CreateFolder(ctx context.Context, parentPath, name string) (*Item, error) {
	c.logger.Info("creating folder",
		slog.String("parent", parentPath),
		slog.String("name", name),
	)

	apiPath := "/me/drive/root/children"
	if parentPath != "" {
		apiPath = fmt.Sprintf("/me/drive/root:/%s:/children", encodePathSegments(parentPath))
	}

	reqBody := createFolderRequest{
		Name:             name,
		Folder:           folderFacet{},
		ConflictBehavior: "fail",
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("graph: marshaling create folder request: %w", err)
	}

	resp, err := c.Do(ctx, http.MethodPost, apiPath, bodyBytes)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var dir driveItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&dir); err != nil {
		return nil, fmt.Errorf("graph: decoding create folder response: %w", err)
	}

	item := dir.toItem()

	return &item, nil
}

// MoveItem reparents the item with the given ID under newParentID.
func (c *Client) MoveItem(ctx context.Context, itemID, newParentID string) (*Item, error) {
	c.logger.Info("moving item",
		slog.String("item_id", itemID),
		slog.String("new_parent_id", newParentID),
	)

	apiPath := "/me/drive/items/" + url.PathEscape(itemID)

	req := moveItemRequest{ParentReference: moveParentRef{ID: newParentID}}

	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("graph: marshaling move request: %w", err)
	}

	resp, err := c.Do(ctx, http.MethodPatch, apiPath, bodyBytes)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var dir driveItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&dir); err != nil {
		return nil, fmt.Errorf("graph: decoding move response: %w", err)
	}

	item := dir.toItem()

	return &item, nil
}
