package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"postfeed/domain"
	"postfeed/errs"
)

// ImageService stores Images as files below a root directory.
// It implements the domain.ImageService interface.
type ImageService struct {
	imageValidator
}

// imageValidator runs validations on incoming Image data.
// On success, it passes the data on to imageFS.
// Otherwise, it returns the error of the validation that has failed.
type imageValidator struct {
	imageFS
}

// imageFS reads and writes image files. It assumes that data has been validated.
type imageFS struct {
	root string
}

// NewImageService returns an instance of ImageService storing files below root.
func NewImageService(root string) *ImageService {
	return &ImageService{
		imageValidator{
			imageFS{
				root: root,
			},
		},
	}
}

// Ensure the ImageService struct properly implements the domain.ImageService interface.
var _ domain.ImageService = &ImageService{}

// Create runs validations needed for storing uploaded images.
func (iv *imageValidator) Create(img *domain.Image) error {
	err := runImageValFns(img,
		iv.ownerValid,
		iv.extensionValid,
		iv.contentTypeValid,
		iv.contentTypeExtensionMatch,
		iv.belowMaxSize,
		iv.fileNameUnique,
	)
	if err != nil {
		return err
	}
	return iv.imageFS.Create(img)
}

// DeleteAll makes sure the owner is valid before removing its directory.
func (iv *imageValidator) DeleteAll(ownerType, ownerID string) error {
	img := domain.Image{OwnerType: ownerType, OwnerID: ownerID}
	if err := iv.ownerValid(&img); err != nil {
		return err
	}
	return iv.imageFS.DeleteAll(ownerType, ownerID)
}

// ByOwner makes sure the owner is valid before listing its images.
func (iv *imageValidator) ByOwner(ownerType, ownerID string) ([]domain.Image, error) {
	img := domain.Image{OwnerType: ownerType, OwnerID: ownerID}
	if err := iv.ownerValid(&img); err != nil {
		return nil, err
	}
	return iv.imageFS.ByOwner(ownerType, ownerID)
}

// Delete makes sure the owner is valid before removing the image.
func (iv *imageValidator) Delete(img *domain.Image) error {
	if err := iv.ownerValid(img); err != nil {
		return err
	}
	return iv.imageFS.Delete(img)
}

// runImageValFns runs any number of functions of type imageValFn on the passed in Image object.
func runImageValFns(img *domain.Image, fns ...imageValFn) error {
	for _, fn := range fns {
		if err := fn(img); err != nil {
			return err
		}
	}
	return nil
}

// A imageValFn is any function that takes in a pointer to a domain.Image object and returns an error.
type imageValFn func(img *domain.Image) error

// ownerValid keeps the owner from pointing anywhere outside of the image root.
func (iv *imageValidator) ownerValid(img *domain.Image) error {
	if img.OwnerType != domain.OwnerTypePost {
		return errs.Errorf(errs.EINVALID, "Invalid image owner type.")
	}
	if img.OwnerID == "" || strings.ContainsAny(img.OwnerID, `/\.`) {
		return errs.Errorf(errs.EINVALID, "Invalid image owner.")
	}
	return nil
}

// belowMaxSize makes sure that the image to be uploaded does not exceed MaxUploadSize.
func (iv *imageValidator) belowMaxSize(img *domain.Image) error {
	size, err := img.File.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if err = rewind(img); err != nil {
		return err
	}
	if size > domain.MaxUploadSize {
		return errs.Errorf(errs.EINVALID,
			"Image %s exceeds upload size limit of %dMB.", img.Filename, domain.MaxUploadSize>>20).
			Field("images", "Images can be at most 5MB each.")
	}
	img.Size = size
	return nil
}

// contentTypeValid makes sure that the image to be uploaded is a valid jpeg or png file.
func (iv *imageValidator) contentTypeValid(img *domain.Image) error {
	mtype, err := mimetype.DetectReader(img.File)
	if err != nil {
		return err
	}
	if err = rewind(img); err != nil {
		return err
	}
	if !mtype.Is("image/jpeg") && !mtype.Is("image/png") {
		return errs.Errorf(errs.EINVALID,
			"Image %s has an invalid content type, must be image/jpeg or image/png.", img.Filename).
			Field("images", "Only jpeg and png images are allowed.")
	}
	img.ContentType = mtype.String()
	return nil
}

// contentTypeExtensionMatch makes sure that the image's filename extension and content type match.
func (iv *imageValidator) contentTypeExtensionMatch(img *domain.Image) error {
	contentType := strings.TrimPrefix(img.ContentType, "image/")
	ext := strings.TrimPrefix(img.Extension, ".")
	if contentType != ext {
		return errs.Errorf(errs.EINVALID,
			"Image %s content type %s does not match extension %s.", img.Filename, img.ContentType, img.Extension)
	}
	return nil
}

// extensionValid makes sure that the image to be uploaded has the extension .jpeg,
// .jpg or .png. The extension .jpg is normalized to .jpeg.
func (iv *imageValidator) extensionValid(img *domain.Image) error {
	ext := strings.ToLower(filepath.Ext(img.Filename))
	if ext != ".png" && ext != ".jpg" && ext != ".jpeg" {
		return errs.Errorf(errs.EINVALID, "Image %s has an invalid extension, must be .jpeg or .png.", img.Filename).
			Field("images", "Only jpeg and png images are allowed.")
	}
	if ext == ".jpg" {
		ext = ".jpeg"
	}
	img.Extension = ext
	return nil
}

// fileNameUnique replaces the uploaded name with a random one.
func (iv *imageValidator) fileNameUnique(img *domain.Image) error {
	img.Filename = uuid.NewString() + img.Extension
	return nil
}

// rewind sets the read position back to the beginning of the file.
func rewind(img *domain.Image) error {
	_, err := img.File.Seek(0, io.SeekStart)
	return err
}

// Create copies the image into <root>/<owner type>/<owner id>/<filename>,
// creating the directory if needed, and sets the image's URL.
func (fs *imageFS) Create(img *domain.Image) error {
	dir, err := fs.mkOwnerDir(img.OwnerType, img.OwnerID)
	if err != nil {
		return err
	}
	dst, err := os.Create(filepath.Join(dir, img.Filename))
	if err != nil {
		return err
	}
	defer dst.Close()
	if _, err = io.Copy(dst, img.File); err != nil {
		return err
	}
	img.URL = img.Path()
	return dst.Close()
}

// ByOwner returns the images stored for an owner.
func (fs *imageFS) ByOwner(ownerType, ownerID string) ([]domain.Image, error) {
	entries, err := os.ReadDir(fs.ownerDir(ownerType, ownerID))
	if os.IsNotExist(err) {
		return []domain.Image{}, nil
	} else if err != nil {
		return nil, err
	}
	ret := make([]domain.Image, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		img := domain.Image{
			OwnerType: ownerType,
			OwnerID:   ownerID,
			Filename:  e.Name(),
			Extension: filepath.Ext(e.Name()),
		}
		img.URL = img.Path()
		ret = append(ret, img)
	}
	return ret, nil
}

// Delete removes a single image file.
func (fs *imageFS) Delete(img *domain.Image) error {
	if img.Filename == "" || strings.ContainsAny(img.Filename, `/\`) {
		return errs.Errorf(errs.EINVALID, "Invalid image filename.")
	}
	err := os.Remove(filepath.Join(fs.root, filepath.FromSlash(img.RelativePath())))
	if os.IsNotExist(err) {
		return errs.Errorf(errs.ENOTFOUND, "The image does not exist.")
	}
	return err
}

// DeleteAll removes the directory holding all images of an owner.
func (fs *imageFS) DeleteAll(ownerType, ownerID string) error {
	return os.RemoveAll(fs.ownerDir(ownerType, ownerID))
}

func (fs *imageFS) mkOwnerDir(ownerType, ownerID string) (string, error) {
	dir := fs.ownerDir(ownerType, ownerID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating image directory: %w", err)
	}
	return dir, nil
}

func (fs *imageFS) ownerDir(ownerType, ownerID string) string {
	return filepath.Join(fs.root, ownerType, ownerID)
}
