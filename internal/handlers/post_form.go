// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"sebencms/internal/imaging"
	"sebencms/internal/models"
	"sebencms/internal/slug"
)

// multipartMemory is how much of a multipart body is kept in memory
// before spilling to temporary files.
const multipartMemory = 8 << 20

// upload is a validated featured image waiting to be stored.
type upload struct {
	data []byte
	info *imaging.Info
}

// readPostForm decodes a post payload from either a multipart form
// (payload JSON field plus optional featured_image file) or a plain JSON
// body. requirePayload makes a missing multipart payload an error, as on
// create. It writes the error response itself and reports ok=false.
func (p *Posts) readPostForm(w http.ResponseWriter, r *http.Request, requirePayload bool) (*models.PostInput, *upload, bool) {
	in := &models.PostInput{}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if err := decodeJSON(w, r, in); err != nil {
			writeDecodeError(w, err, "Invalid JSON in payload")
			return nil, nil, false
		}
		return in, nil, true
	}

	r.Body = http.MaxBytesReader(w, r.Body, p.maxUpload+maxJSONBody)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeValidation(w, fieldErrors{"featured_image": {
				fmt.Sprintf("The featured image field must not be greater than %d kilobytes.", p.maxUpload>>10),
			}})
			return nil, nil, false
		}
		writeMessage(w, http.StatusUnprocessableEntity, "Invalid multipart form")
		return nil, nil, false
	}
	defer r.MultipartForm.RemoveAll()

	raw := r.FormValue("payload")
	if strings.TrimSpace(raw) == "" {
		if requirePayload {
			writeMessage(w, http.StatusUnprocessableEntity, "Missing payload")
			return nil, nil, false
		}
		raw = "{}"
	}
	if err := json.Unmarshal([]byte(raw), in); err != nil {
		writeDecodeError(w, err, "Invalid JSON in payload")
		return nil, nil, false
	}

	file, header, err := r.FormFile("featured_image")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil, true
	}
	if err != nil {
		writeValidation(w, fieldErrors{"featured_image": {"The featured image failed to upload."}})
		return nil, nil, false
	}
	defer file.Close()

	if header.Size > p.maxUpload {
		writeValidation(w, fieldErrors{"featured_image": {
			fmt.Sprintf("The featured image field must not be greater than %d kilobytes.", p.maxUpload>>10),
		}})
		return nil, nil, false
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeValidation(w, fieldErrors{"featured_image": {"The featured image failed to upload."}})
		return nil, nil, false
	}
	info, err := imaging.Inspect(data)
	if err != nil {
		slog.Info("rejected featured image", "filename", header.Filename, "error", err)
		writeValidation(w, fieldErrors{"featured_image": {
			"The featured image field must be a file of type: jpeg, png, gif, webp.",
		}})
		return nil, nil, false
	}
	return in, &upload{data: data, info: info}, true
}

// checkCreate applies the create rules on top of the struct tags: title
// and status are required and the slug must be derivable.
func checkCreate(in *models.PostInput) fieldErrors {
	fe := validateStruct(in)
	if fe == nil {
		fe = fieldErrors{}
	}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		fe.add("title", "The title field is required.")
	}
	if in.Status == nil || *in.Status == "" {
		fe.add("status", "The status field is required.")
	} else if !models.PostStatus(*in.Status).Valid() {
		fe.add("status", "The selected status is invalid.")
	}
	if len(fe["title"]) == 0 && blank(in.Slug) && slug.FromTitle(*in.Title) == "" {
		fe.add("slug", "The slug field is required.")
	}
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// checkUpdate validates an update payload, where every field is optional.
func checkUpdate(in *models.PostInput) fieldErrors {
	fe := validateStruct(in)
	if fe == nil {
		fe = fieldErrors{}
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		fe.add("title", "The title field must not be empty.")
	}
	if in.Status != nil && !models.PostStatus(*in.Status).Valid() {
		fe.add("status", "The selected status is invalid.")
	}
	if in.Title != nil && len(fe["title"]) == 0 && blank(in.Slug) && slug.Generate(*in.Title) == "" {
		fe.add("slug", "The slug field is required.")
	}
	if len(fe) == 0 {
		return nil
	}
	return fe
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
