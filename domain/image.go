package domain

import (
	"io"
	"net/url"
	"path"
)

const (
	// OwnerTypePost expresses that an Image belongs to a Post.
	OwnerTypePost = "post"
	// ImagesURLPrefix is the url path under which stored images are served.
	ImagesURLPrefix = "/images"
	// MaxUploadSize determines the maximum filesize of an image to be uploaded.
	MaxUploadSize int64 = 5 << 20 // 5 Megabyte
)

// Image represents an uploaded image. Images are stored as files and have no
// table of their own. The owning record is resolved through the location of
// the file: an Image belonging to the Post with ID abc is stored at
// post/abc/<unique name>.png below the image root, and served from
// /images/post/abc/<unique name>.png.
type Image struct {
	URL         string        `json:"url"`
	OwnerType   string        `json:"-"`
	OwnerID     string        `json:"-"`
	File        io.ReadSeeker `json:"-"`
	Filename    string        `json:"-"`
	Extension   string        `json:"-"`
	ContentType string        `json:"-"`
	Size        int64         `json:"-"`
}

// ImageService is a set of methods to store and remove image files.
type ImageService interface {
	Create(image *Image) error
	ByOwner(ownerType string, ownerID string) ([]Image, error)
	Delete(image *Image) error
	DeleteAll(ownerType string, ownerID string) error
}

// Path returns the url path an image is served from.
func (i *Image) Path() string {
	u := url.URL{Path: path.Join(ImagesURLPrefix, i.RelativePath())}
	return u.String()
}

// RelativePath returns the location of an image relative to the image root.
func (i *Image) RelativePath() string {
	return path.Join(i.OwnerType, i.OwnerID, i.Filename)
}
