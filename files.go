package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/drivegate/internal/browse"
	"github.com/tonimelisma/drivegate/internal/config"
	"github.com/tonimelisma/drivegate/internal/proxy"
	"github.com/tonimelisma/drivegate/internal/sharelink"
	"github.com/tonimelisma/drivegate/internal/transfer"
)

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [folder-id]",
		Short: "List a folder (default: the configured root)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLs,
	}
}

func newLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <share-link>",
		Short: "Print the gateway download path for a shared file",
		Args:  cobra.ExactArgs(1),
		RunE:  runLink,
	}
}

func newCopyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "copy <share-link>",
		Short: "Copy a shared file or folder into the root folder",
		Long: `Copy a shared file or folder into the configured root folder.

Files are copied server-side and polled until Drive reports their size.
Folders are copied recursively and the command waits for the whole tree.`,
		Args: cobra.ExactArgs(1),
		RunE: runCopy,
	}

	cmd.Flags().String("root", "", "destination folder ID (overrides drive.root_folder_id)")

	return cmd
}

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <file-id|share-link> [local-path]",
		Short: "Download a file through the gateway's streaming path",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runGet,
	}

	cmd.Flags().String("range", "", "HTTP Range header value, e.g. bytes=0-1023")

	return cmd
}

// credentialedSession validates credentials and builds a session for a
// one-shot command.
func credentialedSession() (*session, error) {
	if err := config.ValidateCredentials(resolvedCfg); err != nil {
		return nil, err
	}

	return newSession(resolvedCfg, nil, buildLogger(resolvedCfg, os.Stderr)), nil
}

func runLs(cmd *cobra.Command, args []string) error {
	sess, err := credentialedSession()
	if err != nil {
		return err
	}

	folderID := ""
	if len(args) == 1 {
		folderID = args[0]
	}

	listing, err := browse.NewBrowser(sess.API, nil).List(commandContext(cmd), folderID, resolvedCfg.Drive.RootFolderID)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(cmd.OutOrStdout(), listing)
	}

	return printListing(cmd.OutOrStdout(), listing, time.Now())
}

func printListing(w io.Writer, l *browse.Listing, now time.Time) error {
	fmt.Fprintln(w, formatCrumbs(l.Breadcrumbs))

	rows := make([][]string, 0, len(l.Files))

	for _, e := range l.Files {
		size, modified, name := "-", "", e.Name

		if e.IsFolder {
			name += "/"
		} else if e.Size != nil {
			size = formatSize(*e.Size)
		}

		if e.ModifiedAt != nil {
			modified = formatTime(*e.ModifiedAt, now)
		}

		rows = append(rows, []string{size, modified, name, e.ID})
	}

	return printTable(w, []string{"SIZE", "MODIFIED", "NAME", "ID"}, rows)
}

func runLink(cmd *cobra.Command, args []string) error {
	sess, err := credentialedSession()
	if err != nil {
		return err
	}

	link, err := browse.NewBrowser(sess.API, nil).DirectLink(commandContext(cmd), args[0])
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(cmd.OutOrStdout(), link)
	}

	fmt.Fprintln(cmd.OutOrStdout(), link.ProxyLink)

	return nil
}

// copyOutput is the --json form of a copy.
type copyOutput struct {
	Message   string `json:"message"`
	SourceID  string `json:"sourceId"`
	Name      string `json:"name"`
	IsFolder  bool   `json:"isFolder"`
	NewID     string `json:"newId,omitempty"`
	Readiness string `json:"readiness,omitempty"`
	Folders   int    `json:"folders,omitempty"`
	Files     int    `json:"files,omitempty"`
}

func runCopy(cmd *cobra.Command, args []string) error {
	sess, err := credentialedSession()
	if err != nil {
		return err
	}

	svc := transfer.NewService(sess.API, transfer.Options{
		MaxDepth:     resolvedCfg.Copy.MaxDepth,
		PollAttempts: resolvedCfg.Copy.PollAttempts,
		PollInterval: resolvedCfg.Copy.PollIntervalDuration(),
		FolderBudget: resolvedCfg.Copy.FolderBudgetDuration(),
	}, buildLogger(resolvedCfg, os.Stderr))
	defer svc.Shutdown()

	res, err := svc.Transfer(commandContext(cmd), args[0], resolvedCfg.Drive.RootFolderID)
	if err != nil {
		return err
	}

	out := copyOutput{
		Message:  res.Message(),
		SourceID: res.SourceID,
		Name:     res.Name,
		IsFolder: res.IsFolder,
		NewID:    res.NewID,
	}

	if res.Folder == nil {
		out.Readiness = res.Readiness.State.String()
	} else {
		// Unlike the HTTP API, the CLI must outlive the copy it started.
		statusf(cmd.ErrOrStderr(), flagQuiet || flagJSON, "%s\n", res.Message())

		stats, err := res.Folder.Wait()
		if err != nil {
			return fmt.Errorf("folder copy failed after %d folders and %d files: %w", stats.Folders, stats.Files, err)
		}

		out.Folders, out.Files = stats.Folders, stats.Files
		out.Message = fmt.Sprintf("Copied %d folders and %d files.", stats.Folders, stats.Files)
	}

	if flagJSON {
		return printJSON(cmd.OutOrStdout(), out)
	}

	fmt.Fprintln(cmd.OutOrStdout(), out.Message)

	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	sess, err := credentialedSession()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)

	id, err := sharelink.Extract(args[0])
	if errors.Is(err, sharelink.ErrUnrecognizedLink) {
		// Not a link: treat the argument as a bare file ID.
		id, err = strings.TrimSpace(args[0]), nil
	}

	if err != nil {
		return err
	}

	item, err := sess.API.GetItem(ctx, id, "name")
	if err != nil {
		return err
	}

	dest := strings.ReplaceAll(item.Name, string(filepath.Separator), "_")
	if len(args) == 2 {
		dest = args[1]
	}

	if dest == "" || dest == "." || dest == string(filepath.Separator) {
		return fmt.Errorf("cannot derive a local file name for %s; pass a local path", id)
	}

	rangeHeader, _ := cmd.Flags().GetString("range")

	dl := proxy.NewDownloader(sess.Media, resolvedCfg.Proxy.BufferBytes(), nil, buildLogger(resolvedCfg, os.Stderr))

	resp, err := dl.Download(ctx, id, rangeHeader, "")
	if err != nil {
		return err
	}
	defer resp.Close()

	if rangeHeader != "" && !resp.Partial() {
		statusf(cmd.ErrOrStderr(), flagQuiet, "Range not honored; downloading the whole file\n")
	}

	n, err := writeFile(dest, resp.Body)
	if err != nil {
		return err
	}

	statusf(cmd.ErrOrStderr(), flagQuiet, "Downloaded %s (%s)\n", dest, formatSize(n))

	return nil
}

// writeFile streams r into path via a temporary file so an interrupted
// download never leaves a truncated file under the final name.
func writeFile(path string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".partial-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}

	n, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		os.Remove(tmp.Name())
		return n, fmt.Errorf("writing %s: %w", path, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return n, fmt.Errorf("renaming into place: %w", err)
	}

	return n, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
