// Package preview derives thumbnail locations for catalog item links.
package preview

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// Kind identifies which rule produced a Preview.
type Kind string

const (
	KindYouTube Kind = "youtube"
	KindImage   Kind = "image"
	KindDrive   Kind = "drive"
)

// Preview is a displayable thumbnail for a link.
type Preview struct {
	Kind  Kind
	Image string // thumbnail URL
	Embed string // playable URL, YouTube only
}

var (
	imageExt = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp)$`)
	driveID  = regexp.MustCompile(`[-\w]{25,}`)
)

// Resolve returns a preview for link, or nil when no rule applies.
func Resolve(link string) *Preview {
	link = strings.TrimSpace(link)
	if link == "" {
		return nil
	}

	if strings.Contains(link, "youtube.com") || strings.Contains(link, "youtu.be") {
		if id := youTubeID(link); id != "" {
			return &Preview{
				Kind:  KindYouTube,
				Image: fmt.Sprintf("https://img.youtube.com/vi/%s/mqdefault.jpg", id),
				Embed: "https://www.youtube.com/embed/" + id,
			}
		}
	}

	if imageExt.MatchString(link) {
		return &Preview{Kind: KindImage, Image: link}
	}

	if strings.Contains(link, "drive.google.com") || strings.Contains(link, "docs.google.com") {
		if id := driveID.FindString(link); id != "" {
			return &Preview{
				Kind:  KindDrive,
				Image: fmt.Sprintf("https://drive.google.com/thumbnail?id=%s&sz=w500", id),
			}
		}
	}

	return nil
}

func youTubeID(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	if strings.Contains(u.Host, "youtu.be") {
		id := path.Base(u.Path)
		if id == "/" || id == "." {
			return ""
		}
		return id
	}
	return u.Query().Get("v")
}
