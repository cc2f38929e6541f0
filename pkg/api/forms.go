package api

import (
	"bytes"
	"errors"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	// Registered so image.DecodeConfig can sniff the formats posts
	// may attach.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gofrs/uuid"

	"yatube/pkg/storage"
)

// maxUploadSize caps post image attachments at 10 MB.
const maxUploadSize = 10 << 20

var (
	errNotAnImage  = errors.New("uploaded file is not a valid image")
	errImageTooBig = errors.New("uploaded file is too big")
)

// postForm carries user input for post creation and editing plus
// per-field validation errors. The record must not be persisted while
// Errors is non-empty.
type postForm struct {
	Text    string
	GroupID uuid.UUID
	Image   string
	Errors  map[string]string
}

func (f postForm) HasErrors() bool { return len(f.Errors) > 0 }

// parsePostForm maps the submitted form onto a postForm, validating
// the text, the group reference and the image payload. All validation
// problems land in Errors attached to their field.
func (api *API) parsePostForm(r *http.Request) postForm {
	form := postForm{Errors: make(map[string]string)}

	isMultipart := strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")

	var err error
	if isMultipart {
		err = r.ParseMultipartForm(maxUploadSize)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		form.Errors["form"] = "Unable to read the submitted form."
		return form
	}

	form.Text = r.FormValue("text")
	if strings.TrimSpace(form.Text) == "" {
		form.Errors["text"] = "Post text must not be empty."
	}

	if groupStr := r.FormValue("group"); groupStr != "" {
		groupID, err := uuid.FromString(groupStr)
		if err != nil {
			form.Errors["group"] = "Choose a valid group."
		} else if _, err := api.DB.GroupByID(r.Context(), groupID); err != nil {
			form.Errors["group"] = "Choose a valid group."
		} else {
			form.GroupID = groupID
		}
	}

	// Only a multipart submission can carry a file; FormFile on a plain
	// form would report ErrNotMultipart instead of ErrMissingFile.
	if !isMultipart {
		return form
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// No attachment, nothing to validate.
	case err != nil:
		form.Errors["image"] = "Unable to read the uploaded file."
	default:
		defer file.Close()
		data, err := readImage(file)
		if err != nil {
			form.Errors["image"] = "Upload a valid image file."
			break
		}
		// Nothing is written to disk unless every field validated.
		if form.HasErrors() {
			break
		}
		path, err := api.saveImage(data, header.Filename)
		if err != nil {
			form.Errors["image"] = "Unable to save the uploaded file."
			break
		}
		form.Image = path
	}

	return form
}

// readImage pulls the upload into memory and verifies it is genuine
// image data.
func readImage(file multipart.File) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxUploadSize {
		return nil, errImageTooBig
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, errNotAnImage
	}

	return data, nil
}

// saveImage stores validated image bytes under MediaRoot with a
// generated name.
func (api *API) saveImage(data []byte, filename string) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	name := id.String() + ext

	dir := filepath.Join(api.MediaRoot, "posts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", err
	}

	return "posts/" + name, nil
}

func formFromPost(post storage.Post) postForm {
	return postForm{
		Text:    post.Text,
		GroupID: post.GroupID,
		Errors:  make(map[string]string),
	}
}
