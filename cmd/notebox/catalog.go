package main

import (
	"fmt"
	"strings"

	"notebox/internal/nb"

	"github.com/spf13/cobra"
)

// folder command
var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage folders",
}

var folderListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the folder tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListFolders")
		if err != nil {
			return err
		}
		defer a.Close()

		folders, err := a.Folders(cmd.Context())
		if err != nil {
			return err
		}
		if len(folders) == 0 {
			fmt.Println("No folders.")
			return nil
		}

		fmt.Println(nb.AllFiles)
		printTree(folders, "", 1, map[string]bool{})
		return nil
	},
}

func printTree(folders []nb.Folder, parentID string, depth int, seen map[string]bool) {
	for _, f := range folders {
		if f.ParentID != parentID || seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		fmt.Printf("%s%s%s\n", strings.Repeat("  ", depth), f.Name, uploadsLabel(f.AllowUploads))
		printTree(folders, f.ID, depth+1, seen)
	}
}

func uploadsLabel(open bool) string {
	if open {
		return "  [open]"
	}
	return "  [locked]"
}

var folderAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a folder (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parent, _ := cmd.Flags().GetString("parent")
		open, _ := cmd.Flags().GetBool("open")

		a, err := newApp(cmd, "AddFolder")
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := a.AddFolder(cmd.Context(), args[0], parent, open)
		if err != nil {
			return fmt.Errorf("creating folder: %w", err)
		}
		fmt.Printf("Created folder %s%s\n", f.Name, uploadsLabel(f.AllowUploads))
		return nil
	},
}

var folderRenameCmd = &cobra.Command{
	Use:   "rename OLD NEW",
	Short: "Rename a folder and move its items (admin)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "RenameFolder")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RenameFolder(cmd.Context(), args[0], args[1]); err != nil {
			return fmt.Errorf("renaming folder: %w", err)
		}
		fmt.Printf("Renamed %s to %s\n", args[0], args[1])
		return nil
	},
}

var folderDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a folder and every item in it (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "DeleteFolder")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteFolder(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("deleting folder: %w", err)
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var folderLockCmd = &cobra.Command{
	Use:   "lock NAME",
	Short: "Disallow non-admin uploads (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setUploads(cmd, args[0], false)
	},
}

var folderUnlockCmd = &cobra.Command{
	Use:   "unlock NAME",
	Short: "Allow non-admin uploads (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setUploads(cmd, args[0], true)
	},
}

func setUploads(cmd *cobra.Command, name string, allow bool) error {
	a, err := newApp(cmd, "SetFolderUploads")
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.SetFolderUploads(cmd.Context(), name, allow); err != nil {
		return fmt.Errorf("updating folder: %w", err)
	}
	fmt.Printf("%s%s\n", name, uploadsLabel(allow))
	return nil
}

// item command
var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Browse and manage items",
}

var itemListCmd = &cobra.Command{
	Use:   "list [FOLDER]",
	Short: "List a folder's sub-folders and items",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("search")

		a, err := newApp(cmd, "ListItems")
		if err != nil {
			return err
		}
		defer a.Close()

		folder := nb.AllFiles
		if len(args) > 0 {
			folder = args[0]
		}

		view, err := a.Browse(cmd.Context(), folder, query)
		if err != nil {
			return err
		}

		fmt.Println(strings.Join(view.Breadcrumbs, " / "))
		for _, f := range view.Folders {
			fmt.Printf("  %s/%s\n", f.Name, uploadsLabel(f.AllowUploads))
		}
		for _, it := range view.Items {
			fmt.Printf("  %-36s  %-5s  %-30s  %-12s  %s\n", it.ID, it.Kind, it.Name, it.Owner, it.Link)
		}
		if len(view.Folders) == 0 && len(view.Items) == 0 {
			fmt.Println("  (empty)")
		}
		return nil
	},
}

var itemEditCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Edit an item (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var edit nb.ItemEdit
		edit.Name, _ = cmd.Flags().GetString("name")
		edit.Link, _ = cmd.Flags().GetString("link")
		edit.Description, _ = cmd.Flags().GetString("desc")
		edit.Folder, _ = cmd.Flags().GetString("folder")

		a, err := newApp(cmd, "EditItem")
		if err != nil {
			return err
		}
		defer a.Close()

		item, err := a.EditItem(cmd.Context(), args[0], edit)
		if err != nil {
			return fmt.Errorf("editing item: %w", err)
		}
		fmt.Printf("Updated %s: %s in %s\n", item.ID, item.Name, item.Folder)
		return nil
	},
}

var itemDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete an item (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "DeleteItem")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteItem(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("deleting item: %w", err)
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}
