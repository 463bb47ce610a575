package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"postfeed/errs"
)

// maxBodySize bounds the json body of a procedure call. Image uploads are
// multipart and bounded separately.
const maxBodySize = 1 << 20

// decode parses the json body of a procedure call into dst. An empty body
// decodes into the zero value of dst.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errs.Errorf(errs.EINVALID, "Invalid json body.")
	}
	return nil
}

// respond writes v as the json result of a procedure call.
func respond(w http.ResponseWriter, r *http.Request, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		errs.LogError(r, err)
	}
}
