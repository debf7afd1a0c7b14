package gdrive

import (
	"log/slog"
	"strconv"
	"time"
)

// FolderMimeType marks an item as a folder in Drive.
const FolderMimeType = "application/vnd.google-apps.folder"

// Item represents a Drive file or folder.
// Fields are normalized from the API response; callers never see raw API data.
type Item struct {
	ID         string
	Name       string
	IsFolder   bool
	Size       int64
	HasSize    bool // false until Drive has computed the size of a fresh copy
	MimeType   string
	ModifiedAt time.Time // zero if not requested
	ParentIDs  []string
}

// fileResponse mirrors the Drive v3 File resource. Size is a decimal string
// in the API (int64 values are JSON-encoded as strings).
type fileResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	MimeType     string   `json:"mimeType"`
	Size         *string  `json:"size"`
	ModifiedTime string   `json:"modifiedTime"`
	Parents      []string `json:"parents"`
}

// toItem normalizes a Drive File resource into our Item type.
func (f *fileResponse) toItem(logger *slog.Logger) Item {
	item := Item{
		ID:        f.ID,
		Name:      f.Name,
		MimeType:  f.MimeType,
		IsFolder:  f.MimeType == FolderMimeType,
		ParentIDs: f.Parents,
	}

	if f.Size != nil && *f.Size != "" {
		n, err := strconv.ParseInt(*f.Size, 10, 64)
		if err != nil {
			logger.Warn("invalid size in file resource",
				slog.String("item_id", f.ID),
				slog.String("raw", *f.Size),
			)
		} else {
			item.Size = n
			item.HasSize = true
		}
	}

	if f.ModifiedTime != "" {
		t, err := time.Parse(time.RFC3339, f.ModifiedTime)
		if err != nil {
			logger.Warn("invalid modifiedTime in file resource",
				slog.String("item_id", f.ID),
				slog.String("raw", f.ModifiedTime),
			)
		} else {
			item.ModifiedAt = t
		}
	}

	return item
}
