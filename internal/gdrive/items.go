package gdrive

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ListPageSize is the pageSize for children listings, the maximum Drive allows.
const ListPageSize = 1000

// Field sets used by callers. Drive returns only the fields asked for.
const (
	FieldsDefault = "id,name,mimeType,size,modifiedTime,parents"
	fieldsListing = "nextPageToken,files(id,name,mimeType,size,modifiedTime,parents)"
)

type fileListResponse struct {
	NextPageToken string         `json:"nextPageToken"`
	Files         []fileResponse `json:"files"`
}

type copyRequest struct {
	Parents []string `json:"parents"`
}

type createFolderRequest struct {
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType"`
	Parents  []string `json:"parents"`
}

// filePath builds /files[/{id}[/{action}]] with the given query parameters.
// supportsAllDrives is always set so shared-drive items resolve.
func filePath(id, action string, q url.Values) string {
	if q == nil {
		q = url.Values{}
	}

	q.Set("supportsAllDrives", "true")

	p := "/files"
	if id != "" {
		p += "/" + url.PathEscape(id)
	}

	if action != "" {
		p += "/" + action
	}

	return p + "?" + q.Encode()
}

// quoteQueryValue escapes a value for use inside single quotes in a Drive query.
func quoteQueryValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// GetItem retrieves a single item's metadata. fields selects which fields
// Drive returns; with none given FieldsDefault is used.
func (c *Client) GetItem(ctx context.Context, itemID string, fields ...string) (*Item, error) {
	fieldList := FieldsDefault
	if len(fields) > 0 {
		fieldList = strings.Join(fields, ",")
	}

	c.logger.Debug("getting item",
		slog.String("item_id", itemID),
		slog.String("fields", fieldList),
	)

	var fr fileResponse
	if err := c.doJSON(ctx, http.MethodGet, filePath(itemID, "", url.Values{"fields": {fieldList}}), nil, &fr); err != nil {
		return nil, err
	}

	item := fr.toItem(c.logger)

	return &item, nil
}

// ListChildrenPage fetches one page of non-trashed direct children of a
// folder, folders first then by name. An empty pageToken requests the first
// page; the returned token is empty when there are no more pages.
func (c *Client) ListChildrenPage(ctx context.Context, folderID, pageToken string) ([]Item, string, error) {
	q := url.Values{
		"q":                         {fmt.Sprintf("'%s' in parents and trashed=false", quoteQueryValue(folderID))},
		"orderBy":                   {"folder,name"},
		"pageSize":                  {strconv.Itoa(ListPageSize)},
		"fields":                    {fieldsListing},
		"includeItemsFromAllDrives": {"true"},
	}

	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	var lr fileListResponse
	if err := c.doJSON(ctx, http.MethodGet, filePath("", "", q), nil, &lr); err != nil {
		return nil, "", err
	}

	items := make([]Item, 0, len(lr.Files))
	for i := range lr.Files {
		items = append(items, lr.Files[i].toItem(c.logger))
	}

	return items, lr.NextPageToken, nil
}

// ListChildren returns all children of a folder, following continuation
// tokens until the listing is exhausted.
func (c *Client) ListChildren(ctx context.Context, folderID string) ([]Item, error) {
	c.logger.Info("listing children", slog.String("folder_id", folderID))

	var (
		items     []Item
		pageToken string
		page      = 1
	)

	for {
		pageItems, next, err := c.ListChildrenPage(ctx, folderID, pageToken)
		if err != nil {
			return nil, err
		}

		c.logger.Debug("fetched children page",
			slog.String("folder_id", folderID),
			slog.Int("page", page),
			slog.Int("count", len(pageItems)),
		)

		items = append(items, pageItems...)

		if next == "" {
			break
		}

		pageToken = next
		page++
	}

	c.logger.Info("listed children complete",
		slog.String("folder_id", folderID),
		slog.Int("total_items", len(items)),
	)

	return items, nil
}

// CopyItem makes a server-side copy of a file into destParentID and returns
// the new item's ID. Derived metadata such as size may not be populated yet.
func (c *Client) CopyItem(ctx context.Context, itemID, destParentID string) (string, error) {
	c.logger.Info("copying item",
		slog.String("item_id", itemID),
		slog.String("dest_parent_id", destParentID),
	)

	var fr fileResponse
	err := c.doJSON(ctx, http.MethodPost,
		filePath(itemID, "copy", url.Values{"fields": {"id"}}),
		copyRequest{Parents: []string{destParentID}}, &fr)
	if err != nil {
		return "", err
	}

	if fr.ID == "" {
		return "", fmt.Errorf("gdrive: copy of %s returned no id", itemID)
	}

	return fr.ID, nil
}

// CreateFolder creates a folder named name under destParentID.
// Drive allows duplicate names, so no conflict handling is needed.
func (c *Client) CreateFolder(ctx context.Context, name, destParentID string) (*Item, error) {
	c.logger.Info("creating folder",
		slog.String("name", name),
		slog.String("dest_parent_id", destParentID),
	)

	var fr fileResponse
	err := c.doJSON(ctx, http.MethodPost,
		filePath("", "", url.Values{"fields": {"id,name,mimeType,parents"}}),
		createFolderRequest{Name: name, MimeType: FolderMimeType, Parents: []string{destParentID}}, &fr)
	if err != nil {
		return nil, err
	}

	if fr.ID == "" {
		return nil, fmt.Errorf("gdrive: create folder %q returned no id", name)
	}

	item := fr.toItem(c.logger)

	return &item, nil
}
