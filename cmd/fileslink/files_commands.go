package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"fileslink/internal/linkcodec"
	"fileslink/internal/metadata"
)

const filesPageSize = 20

func newFilesCommand(ctx *commandContext) *cobra.Command {
	filesCmd := &cobra.Command{
		Use:   "files",
		Short: "Inspect and edit stored file mappings",
	}
	filesCmd.AddCommand(newFilesListCommand(ctx))
	filesCmd.AddCommand(newFilesFindCommand(ctx))
	filesCmd.AddCommand(newFilesRenameCommand(ctx))
	filesCmd.AddCommand(newFilesDeleteCommand(ctx))
	return filesCmd
}

type fileView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	MimeType   string `json:"mime_type,omitempty"`
	UploadedAt int64  `json:"uploaded_at"`
	Link       string `json:"link"`
	Proxyable  bool   `json:"proxyable"`
}

func (c *commandContext) fileViews(files []metadata.Artifact) []fileView {
	cfg := c.config
	views := make([]fileView, 0, len(files))
	for _, f := range files {
		views = append(views, fileView{
			ID:         f.UniqueID,
			Name:       f.FileName,
			Size:       f.FileSize,
			MimeType:   f.MimeType,
			UploadedAt: f.UploadedAt,
			Link:       cfg.LinkFor(linkcodec.Encode(f.UniqueID, f.FileName)),
			Proxyable:  f.HasProxyCoordinates(),
		})
	}
	return views
}

func renderFiles(views []fileView) string {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, []string{v.ID, v.Name, humanize.IBytes(uint64(max(v.Size, 0))), formatUnix(v.UploadedAt), v.Link})
	}
	return renderTable(
		[]string{"ID", "Name", "Size", "Uploaded", "Link"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
}

func newFilesListCommand(ctx *commandContext) *cobra.Command {
	var page int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored files, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openFiles()
			if err != nil {
				return err
			}
			result := store.Paginate(page, filesPageSize)
			views := ctx.fileViews(result.Items)
			if asJSON {
				return writeJSON(cmd, views)
			}
			out := cmd.OutOrStdout()
			if result.Total == 0 {
				fmt.Fprintln(out, "No files stored")
				return nil
			}
			fmt.Fprintln(out, renderFiles(views))
			fmt.Fprintf(out, "Page %d/%d (%d total)\n", result.Number, result.TotalPages, result.Total)
			return nil
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newFilesFindCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "find <query>",
		Short: "Search stored files by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openFiles()
			if err != nil {
				return err
			}
			matches := store.Search(strings.Join(args, " "), limit)
			views := ctx.fileViews(matches)
			if asJSON {
				return writeJSON(cmd, views)
			}
			if len(views) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matches found")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderFiles(views))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newFilesRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <new name>",
		Short: "Change the display name of a stored file",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			name := strings.Join(args[1:], " ")
			return ctx.withExclusiveFiles(func(store *metadata.Store) error {
				artifact, err := store.Rename(id, name)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Updated filename for %s\n", id)
				fmt.Fprintln(out, ctx.config.LinkFor(linkcodec.Encode(artifact.UniqueID, artifact.FileName)))
				return nil
			})
		},
	}
}

func newFilesDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a stored file mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withExclusiveFiles(func(store *metadata.Store) error {
				if err := store.Delete(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted mapping for id: %s\n", args[0])
				return nil
			})
		},
	}
}
