package transfer

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/tonimelisma/drivegate/internal/gdrive"
)

// fakeDrive is an in-memory TreeDrive. Listings are paged with pageSize and
// ordered folders first then by name, like Drive.
type fakeDrive struct {
	mu       sync.Mutex
	items    map[string]*gdrive.Item
	nextID   int
	pageSize int

	calls map[string]int

	// failOn, if set, is consulted before every operation.
	failOn func(op, id string) error

	// sizeAfter makes copies report a size only after this many GetItem calls.
	sizeAfter int
	polls     map[string]int
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{
		items:    map[string]*gdrive.Item{},
		pageSize: gdrive.ListPageSize,
		calls:    map[string]int{},
		polls:    map[string]int{},
	}
}

func (d *fakeDrive) addFolder(id, name, parent string) {
	d.items[id] = &gdrive.Item{ID: id, Name: name, IsFolder: true, MimeType: gdrive.FolderMimeType, ParentIDs: parents(parent)}
}

func (d *fakeDrive) addFile(id, name, parent string, size int64) {
	d.items[id] = &gdrive.Item{ID: id, Name: name, Size: size, HasSize: true, MimeType: "text/plain", ParentIDs: parents(parent)}
}

func parents(p string) []string {
	if p == "" {
		return nil
	}

	return []string{p}
}

func (d *fakeDrive) check(op, id string) error {
	d.calls[op]++

	if d.failOn != nil {
		return d.failOn(op, id)
	}

	return nil
}

func (d *fakeDrive) children(parent string) []gdrive.Item {
	var out []gdrive.Item

	for _, it := range d.items {
		if len(it.ParentIDs) > 0 && it.ParentIDs[0] == parent {
			out = append(out, *it)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].IsFolder != out[j].IsFolder {
			return out[i].IsFolder
		}

		return out[i].Name < out[j].Name
	})

	return out
}

func (d *fakeDrive) newID() string {
	d.nextID++
	return fmt.Sprintf("new-%d", d.nextID)
}

func (d *fakeDrive) GetItem(_ context.Context, itemID string, _ ...string) (*gdrive.Item, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check("get", itemID); err != nil {
		return nil, err
	}

	it, ok := d.items[itemID]
	if !ok {
		return nil, &gdrive.UpstreamError{StatusCode: 404, Message: "File not found", Err: gdrive.ErrNotFound}
	}

	cp := *it

	if d.sizeAfter > 0 && !cp.IsFolder {
		d.polls[itemID]++
		cp.HasSize = d.polls[itemID] >= d.sizeAfter
	}

	return &cp, nil
}

func (d *fakeDrive) ListChildrenPage(_ context.Context, folderID, pageToken string) ([]gdrive.Item, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check("list", folderID); err != nil {
		return nil, "", err
	}

	all := d.children(folderID)

	offset := 0
	if pageToken != "" {
		offset, _ = strconv.Atoi(pageToken)
	}

	end := min(offset+d.pageSize, len(all))

	next := ""
	if end < len(all) {
		next = strconv.Itoa(end)
	}

	return all[offset:end], next, nil
}

func (d *fakeDrive) CopyItem(_ context.Context, itemID, destParentID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check("copy", itemID); err != nil {
		return "", err
	}

	src, ok := d.items[itemID]
	if !ok {
		return "", &gdrive.UpstreamError{StatusCode: 404, Message: "File not found", Err: gdrive.ErrNotFound}
	}

	id := d.newID()
	cp := *src
	cp.ID = id
	cp.ParentIDs = parents(destParentID)
	d.items[id] = &cp

	return id, nil
}

func (d *fakeDrive) CreateFolder(_ context.Context, name, destParentID string) (*gdrive.Item, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check("mkdir", name); err != nil {
		return nil, err
	}

	id := d.newID()
	d.addFolder(id, name, destParentID)

	cp := *d.items[id]

	return &cp, nil
}

// tree renders the subtree under id as sorted "path/" and "path" lines.
func (d *fakeDrive) tree(id string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []string

	var walk func(parent, prefix string)
	walk = func(parent, prefix string) {
		for _, c := range d.children(parent) {
			if c.IsFolder {
				out = append(out, prefix+c.Name+"/")
				walk(c.ID, prefix+c.Name+"/")

				continue
			}

			out = append(out, prefix+c.Name)
		}
	}

	walk(id, "")
	sort.Strings(out)

	return out
}

// childNamed returns the ID of parent's child with the given name.
func (d *fakeDrive) childNamed(parent, name string) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, c := range d.children(parent) {
		if c.Name == name {
			return c.ID
		}
	}

	return ""
}
