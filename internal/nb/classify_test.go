package nb

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		itemName string
		want     Kind
	}{
		{name: "pdf mime", mimeType: "application/pdf", itemName: "report.pdf", want: KindPDF},
		{name: "image mime", mimeType: "image/png", itemName: "diagram", want: KindImage},
		{name: "video mime", mimeType: "video/mp4", itemName: "lecture", want: KindVideo},
		{name: "spreadsheet mime", mimeType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", itemName: "grades", want: KindSheet},
		{name: "legacy excel mime", mimeType: "application/vnd.ms-excel", itemName: "grades", want: KindSheet},
		{name: "pptx mime", mimeType: "application/vnd.openxmlformats-officedocument.presentationml.presentation", itemName: "week 1", want: KindSlide},
		{name: "powerpoint mime", mimeType: "application/vnd.ms-powerpoint", itemName: "week 1", want: KindSlide},
		{name: "docx mime", mimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document", itemName: "essay", want: KindDoc},
		{name: "msword mime", mimeType: "application/msword", itemName: "essay", want: KindDoc},
		{name: "mime wins over extension", mimeType: "application/pdf", itemName: "slides.pptx", want: KindPDF},
		{name: "unknown mime falls back to extension", mimeType: "application/octet-stream", itemName: "Notes.DOCX", want: KindDoc},
		{name: "link with extension", mimeType: "", itemName: "handout.pdf", want: KindPDF},
		{name: "link with image extension", mimeType: "", itemName: "cover.webp", want: KindImage},
		{name: "plain link", mimeType: "", itemName: "Course website", want: KindLink},
		{name: "unknown extension", mimeType: "", itemName: "archive.zip", want: KindLink},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.mimeType, tt.itemName); got != tt.want {
				t.Errorf("Classify(%q, %q) = %q, want %q", tt.mimeType, tt.itemName, got, tt.want)
			}
		})
	}
}
