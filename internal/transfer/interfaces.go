package transfer

import (
	"context"

	"github.com/tonimelisma/drivegate/internal/gdrive"
)

// ItemGetter fetches item metadata. Satisfied by *gdrive.Client.
type ItemGetter interface {
	GetItem(ctx context.Context, itemID string, fields ...string) (*gdrive.Item, error)
}

// TreeDrive is the subset of the Drive client a tree copy needs.
// Satisfied by *gdrive.Client.
type TreeDrive interface {
	ItemGetter
	ListChildrenPage(ctx context.Context, folderID, pageToken string) ([]gdrive.Item, string, error)
	CopyItem(ctx context.Context, itemID, destParentID string) (string, error)
	CreateFolder(ctx context.Context, name, destParentID string) (*gdrive.Item, error)
}
