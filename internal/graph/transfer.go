package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// UploadContent uploads file content in a single PUT to
// <dir>/<name> under the drive root, replacing any existing item.
// Returns the created or updated item.
func (c *Client) UploadContent(
	ctx context.Context, remoteDir, name string, r io.Reader,
) (*Item, error) {
	c.logger.Info("uploading content",
		slog.String("dir", remoteDir),
		slog.String("name", name),
	)

	remotePath := name
	if remoteDir != "" {
		remotePath = remoteDir + "/" + name
	}

	apiPath := fmt.Sprintf("/me/drive/root:/%s:/content", encodePathSegments(remotePath))

	resp, err := c.doUpload(ctx, apiPath, r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var dir driveItemResponse
	if decErr := json.NewDecoder(resp.Body).Decode(&dir); decErr != nil {
		return nil, fmt.Errorf("graph: decoding upload response: %w", decErr)
	}

	item := dir.toItem()

	c.logger.Debug("upload complete",
		slog.String("name", name),
		slog.String("item_id", item.ID),
	)

	return &item, nil
}

// doUpload issues a single PUT with octet-stream content and classifies the
// response. Upload bodies are consumed readers, so no transport retry: a
// failed upload surfaces as one recorded error and the batch decides.
func (c *Client) doUpload(ctx context.Context, apiPath string, r io.Reader) (*http.Response, error) {
	resp, err := c.doOnce(ctx, http.MethodPut, c.baseURL+apiPath, r, "application/octet-stream")
	if err != nil {
		return nil, fmt.Errorf("graph: upload request: %w", err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return resp, nil
	}

	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()

	if readErr != nil {
		body = []byte("(failed to read response body)")
	}

	return nil, newAPIError(resp.StatusCode, body)
}

// DownloadContent streams the content of the item with the given ID to w.
// Returns the number of bytes written.
func (c *Client) DownloadContent(ctx context.Context, itemID string, w io.Writer) (int64, error) {
	c.logger.Info("downloading content", slog.String("item_id", itemID))

	apiPath := "/me/drive/items/" + url.PathEscape(itemID) + "/content"

	resp, err := c.Do(ctx, http.MethodGet, apiPath, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, copyErr := io.Copy(w, resp.Body)
	if copyErr != nil {
		c.logger.Error("streaming download content failed",
			slog.String("item_id", itemID),
			slog.String("error", copyErr.Error()),
			slog.Int64("bytes_before_error", n),
		)

		return n, fmt.Errorf("graph: streaming download content: %w", copyErr)
	}

	c.logger.Debug("download complete",
		slog.String("item_id", itemID),
		slog.Int64("bytes_written", n),
	)

	return n, nil
}
