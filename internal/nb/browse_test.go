package nb

import (
	"reflect"
	"testing"
)

func browseSnapshot() Snapshot {
	return Snapshot{
		Folders: []Folder{
			{ID: "f1", Name: "Physics", AllowUploads: true},
			{ID: "f2", Name: "Math"},
			{ID: "f3", Name: "Labs", ParentID: "f1"},
			{ID: "f4", Name: "Lab Reports", ParentID: "f3"},
		},
		Items: []Item{
			{ID: "i1", Name: "Kinematics notes", Folder: "Physics"},
			{ID: "i2", Name: "Algebra sheet", Folder: "Math"},
			{ID: "i3", Name: "Lab safety", Folder: "Labs"},
			{ID: "i4", Name: "Momentum NOTES", Folder: "Physics"},
		},
	}
}

func itemIDs(items []Item) []string {
	ids := []string{}
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids
}

func folderNames(folders []Folder) []string {
	names := []string{}
	for _, f := range folders {
		names = append(names, f.Name)
	}
	return names
}

func TestFilterItems(t *testing.T) {
	snap := browseSnapshot()

	tests := []struct {
		name   string
		folder string
		query  string
		want   []string
	}{
		{name: "root without query shows nothing", folder: AllFiles, want: []string{}},
		{name: "root with query searches everything", folder: AllFiles, query: "notes", want: []string{"i1", "i4"}},
		{name: "folder contents", folder: "Physics", want: []string{"i1", "i4"}},
		{name: "folder with query", folder: "Physics", query: "momentum", want: []string{"i4"}},
		{name: "query does not leave folder", folder: "Math", query: "notes", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := itemIDs(FilterItems(snap, tt.folder, tt.query))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FilterItems() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSubFolders(t *testing.T) {
	snap := browseSnapshot()

	tests := []struct {
		name   string
		folder string
		query  string
		want   []string
	}{
		{name: "root folders", folder: AllFiles, want: []string{"Physics", "Math"}},
		{name: "root search", folder: AllFiles, query: "lab", want: []string{"Labs", "Lab Reports"}},
		{name: "children", folder: "Physics", want: []string{"Labs"}},
		{name: "grandchildren", folder: "Labs", want: []string{"Lab Reports"}},
		{name: "unknown folder", folder: "Chemistry", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := folderNames(SubFolders(snap, tt.folder, tt.query))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SubFolders() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBreadcrumbs(t *testing.T) {
	snap := browseSnapshot()

	if got, want := Breadcrumbs(snap, "Lab Reports"), []string{AllFiles, "Physics", "Labs", "Lab Reports"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Breadcrumbs() = %v, want %v", got, want)
	}
	if got, want := Breadcrumbs(snap, AllFiles), []string{AllFiles}; !reflect.DeepEqual(got, want) {
		t.Errorf("Breadcrumbs(root) = %v, want %v", got, want)
	}

	cyclic := Snapshot{Folders: []Folder{
		{ID: "a", Name: "A", ParentID: "b"},
		{ID: "b", Name: "B", ParentID: "a"},
	}}
	if got, want := Breadcrumbs(cyclic, "A"), []string{AllFiles, "B", "A"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Breadcrumbs(cyclic) = %v, want %v", got, want)
	}
}

func TestCanUpload(t *testing.T) {
	snap := browseSnapshot()

	tests := []struct {
		folder string
		admin  bool
		want   bool
	}{
		{folder: AllFiles, admin: true, want: false},
		{folder: "Physics", admin: false, want: true},
		{folder: "Math", admin: false, want: false},
		{folder: "Math", admin: true, want: true},
		{folder: "Chemistry", admin: true, want: false},
	}

	for _, tt := range tests {
		if got := CanUpload(snap, tt.folder, tt.admin); got != tt.want {
			t.Errorf("CanUpload(%q, admin=%v) = %v, want %v", tt.folder, tt.admin, got, tt.want)
		}
	}
}
