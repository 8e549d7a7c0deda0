package nb

import "strings"

// FilterItems returns the items shown for a folder. At the All Files root a
// non-empty query searches every item; otherwise only items in the folder
// whose name contains the query (case-insensitive) are returned.
func FilterItems(snap Snapshot, folder, query string) []Item {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []Item
	for _, it := range snap.Items {
		if !strings.Contains(strings.ToLower(it.Name), q) {
			continue
		}
		if folder == AllFiles && q != "" {
			out = append(out, it)
			continue
		}
		if it.Folder == folder {
			out = append(out, it)
		}
	}
	return out
}

// SubFolders returns the folders shown under folder. At the root with an
// empty query those are the root folders; a non-empty query at the root
// searches every folder.
func SubFolders(snap Snapshot, folder, query string) []Folder {
	q := strings.ToLower(strings.TrimSpace(query))

	parentID := ""
	if folder != AllFiles {
		f := snap.FolderByName(folder)
		if f == nil {
			return nil
		}
		parentID = f.ID
	}

	var out []Folder
	for _, f := range snap.Folders {
		if !strings.Contains(strings.ToLower(f.Name), q) {
			continue
		}
		if folder == AllFiles && q != "" {
			out = append(out, f)
			continue
		}
		if f.ParentID == parentID {
			out = append(out, f)
		}
	}
	return out
}

// Breadcrumbs returns the folder names from All Files down to folder.
// A missing folder yields just the root.
func Breadcrumbs(snap Snapshot, folder string) []string {
	crumbs := []string{}
	seen := make(map[string]bool)
	for f := snap.FolderByName(folder); f != nil && !seen[f.ID]; f = snap.FolderByID(f.ParentID) {
		seen[f.ID] = true
		crumbs = append([]string{f.Name}, crumbs...)
	}
	return append([]string{AllFiles}, crumbs...)
}

// CanUpload reports whether the user may add to folder. The root never
// accepts uploads; admins may add anywhere else; everyone else only where
// the folder allows it.
func CanUpload(snap Snapshot, folder string, admin bool) bool {
	if folder == AllFiles {
		return false
	}
	f := snap.FolderByName(folder)
	if f == nil {
		return false
	}
	return admin || f.AllowUploads
}
