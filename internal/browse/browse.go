// Package browse builds folder listings with breadcrumb trails and direct
// download links for the gateway's JSON API.
package browse

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/tonimelisma/drivegate/internal/gdrive"
	"github.com/tonimelisma/drivegate/internal/sharelink"
)

// maxBreadcrumbHops caps the parent walk so a cycle or a very deep folder
// cannot stall a listing.
const maxBreadcrumbHops = 10

// HomeName labels the root breadcrumb.
const HomeName = "Home"

// Drive is the subset of the Drive client browsing needs.
// Satisfied by *gdrive.Client.
type Drive interface {
	GetItem(ctx context.Context, itemID string, fields ...string) (*gdrive.Item, error)
	ListChildren(ctx context.Context, folderID string) ([]gdrive.Item, error)
}

// Entry is one child in a listing.
type Entry struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	MimeType   string     `json:"mimeType"`
	IsFolder   bool       `json:"isFolder"`
	Size       *int64     `json:"size,omitempty"`
	ModifiedAt *time.Time `json:"modifiedTime,omitempty"`
}

// Crumb is one step of the path from the root to the listed folder.
type Crumb struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Listing is a folder's children plus the trail leading to it.
type Listing struct {
	Files       []Entry `json:"files"`
	Breadcrumbs []Crumb `json:"breadcrumbs"`
}

// DirectLink is a stable gateway URL for downloading a shared file.
type DirectLink struct {
	FileName  string `json:"fileName"`
	ProxyLink string `json:"proxyLink"`
}

// Browser serves listings and direct links.
type Browser struct {
	drive  Drive
	logger *slog.Logger
}

// NewBrowser creates a Browser.
func NewBrowser(drive Drive, logger *slog.Logger) *Browser {
	if logger == nil {
		logger = slog.Default()
	}

	return &Browser{drive: drive, logger: logger}
}

// List returns every child of folderID, folders first then by name, and the
// breadcrumbs from rootID down to folderID. An empty folderID lists the
// root.
func (b *Browser) List(ctx context.Context, folderID, rootID string) (*Listing, error) {
	if folderID == "" {
		folderID = rootID
	}

	items, err := b.drive.ListChildren(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("browse: listing %s: %w", folderID, err)
	}

	files := make([]Entry, 0, len(items))
	for i := range items {
		files = append(files, toEntry(&items[i]))
	}

	return &Listing{
		Files:       files,
		Breadcrumbs: b.breadcrumbs(ctx, folderID, rootID),
	}, nil
}

// breadcrumbs walks first parents upward from folderID until it reaches
// rootID, runs out of parents, fails, or hits the hop cap. Failures end the
// walk without an error; the trail is a convenience.
func (b *Browser) breadcrumbs(ctx context.Context, folderID, rootID string) []Crumb {
	home := Crumb{ID: rootID, Name: HomeName}
	if folderID == rootID {
		return []Crumb{home}
	}

	var trail []Crumb

	current := folderID
	for hops := 0; current != "" && current != rootID && hops < maxBreadcrumbHops; hops++ {
		item, err := b.drive.GetItem(ctx, current, "id", "name", "parents")
		if err != nil {
			b.logger.Debug("breadcrumb walk stopped",
				slog.String("item_id", current),
				slog.String("error", err.Error()),
			)

			break
		}

		trail = append(trail, Crumb{ID: item.ID, Name: item.Name})

		current = ""
		if len(item.ParentIDs) > 0 {
			current = item.ParentIDs[0]
		}
	}

	out := make([]Crumb, 0, len(trail)+1)
	out = append(out, home)

	for i := len(trail) - 1; i >= 0; i-- {
		out = append(out, trail[i])
	}

	return out
}

// DirectLink resolves a share link to a gateway download path carrying the
// file's name.
func (b *Browser) DirectLink(ctx context.Context, shareLink string) (*DirectLink, error) {
	id, err := sharelink.Extract(shareLink)
	if err != nil {
		return nil, err
	}

	item, err := b.drive.GetItem(ctx, id, "name")
	if err != nil {
		return nil, fmt.Errorf("browse: reading %s: %w", id, err)
	}

	name := item.Name
	if name == "" {
		name = "download"
	}

	return &DirectLink{
		FileName:  item.Name,
		ProxyLink: DownloadPath(id, name),
	}, nil
}

// DownloadPath is the gateway path that proxies id's content as name.
func DownloadPath(id, name string) string {
	return "/api/download/" + url.PathEscape(id) + "?name=" + url.QueryEscape(name)
}

func toEntry(it *gdrive.Item) Entry {
	e := Entry{
		ID:       it.ID,
		Name:     it.Name,
		MimeType: it.MimeType,
		IsFolder: it.IsFolder,
	}

	if it.HasSize {
		size := it.Size
		e.Size = &size
	}

	if !it.ModifiedAt.IsZero() {
		mod := it.ModifiedAt
		e.ModifiedAt = &mod
	}

	return e
}
