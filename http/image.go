package http

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/mux"

	"postfeed/auth"
	"postfeed/domain"
	"postfeed/errs"
)

// registerImageRoutes is a helper for registering the image upload procedure.
func (s *Server) registerImageRoutes(r *mux.Router) {
	r.HandleFunc("/post.uploadImages", s.requireAuth(s.handleUploadPostImages)).Methods("POST")
}

// registerImageFiles serves the stored images below /images/.
func (s *Server) registerImageFiles(r *mux.Router) {
	prefix := domain.ImagesURLPrefix + "/"
	files := http.FileServer(http.Dir(s.cfg.ImagesDir))
	r.PathPrefix(prefix).Handler(http.StripPrefix(prefix, noListing(files))).Methods("GET", "HEAD")
}

// noListing hides directory listings.
func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleUploadPostImages handles the procedure "post.uploadImages".
// It is a multipart request carrying the postId and up to 4 images. The
// images replace any the post had before, and the updated post is returned.
func (s *Server) handleUploadPostImages(w http.ResponseWriter, r *http.Request) {
	// Bound the whole request, the individual files are checked by the image service.
	r.Body = http.MaxBytesReader(w, r.Body, int64(domain.MaxPostImages)*domain.MaxUploadSize+maxBodySize)
	if err := r.ParseMultipartForm(domain.MaxUploadSize); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid upload, images can be at most 5 MB each."))
		return
	}
	defer r.MultipartForm.RemoveAll()

	// Only the author can change the images of a post.
	caller := auth.GetCaller(r.Context())
	post, err := s.ps.Owned(r.Context(), caller, r.FormValue("postId"))
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) > domain.MaxPostImages {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Too many images, not more than %d allowed.", domain.MaxPostImages).
			Field("images", "Too many images."))
		return
	}

	stored := make([]*domain.Image, 0, len(files))
	urls := make([]string, 0, len(files))
	for _, fileHeader := range files {
		file, err := fileHeader.Open()
		if err != nil {
			s.discardImages(r, stored)
			errs.ReturnError(w, r, err)
			return
		}
		img := &domain.Image{
			OwnerType: domain.OwnerTypePost,
			OwnerID:   post.ID,
			File:      file,
			Filename:  fileHeader.Filename,
		}
		err = s.is.Create(img)
		file.Close()
		if err != nil {
			s.discardImages(r, stored)
			errs.ReturnError(w, r, err)
			return
		}
		stored = append(stored, img)
		urls = append(urls, img.URL)
	}

	summary, err := s.ps.SetImages(r.Context(), caller, post.ID, urls)
	if err != nil {
		s.discardImages(r, stored)
		errs.ReturnError(w, r, err)
		return
	}
	s.pruneImages(r, post.ID, urls)
	respond(w, r, summary)
}

// discardImages removes the files of an upload that failed. The post still
// points at its previous images, which are left alone.
func (s *Server) discardImages(r *http.Request, imgs []*domain.Image) {
	for _, img := range imgs {
		if err := s.is.Delete(img); err != nil {
			errs.LogError(r, err)
		}
	}
}

// pruneImages removes the stored images of a post whose url isn't in keep.
func (s *Server) pruneImages(r *http.Request, postID string, keep []string) {
	imgs, err := s.is.ByOwner(domain.OwnerTypePost, postID)
	if err != nil {
		errs.LogError(r, err)
		return
	}
	for i := range imgs {
		if slices.Contains(keep, imgs[i].URL) {
			continue
		}
		if err := s.is.Delete(&imgs[i]); err != nil {
			errs.LogError(r, err)
		}
	}
}
