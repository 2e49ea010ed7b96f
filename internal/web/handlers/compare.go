package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-compare/internal/compare"
	"github.com/kozaktomas/face-compare/internal/config"
	"github.com/kozaktomas/face-compare/internal/constants"
	"github.com/kozaktomas/face-compare/internal/facematch"
	"github.com/kozaktomas/face-compare/internal/imagefile"
)

// multipartMemory is how much of a multipart form is held in memory before spilling to disk.
const multipartMemory = 32 << 20

// CompareHandler handles face comparison endpoints.
type CompareHandler struct {
	config  *config.Config
	service *compare.Service
}

// NewCompareHandler creates a new compare handler.
func NewCompareHandler(cfg *config.Config, service *compare.Service) *CompareHandler {
	return &CompareHandler{
		config:  cfg,
		service: service,
	}
}

// Compare accepts two uploaded images (img1, img2) and an optional threshold
// and reports whether they show the same person.
func (h *CompareHandler) Compare(w http.ResponseWriter, r *http.Request) {
	id := uuid.New().String()
	w.Header().Set(constants.ComparisonIDHeader, id)

	if h.config.Web.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.config.Web.MaxUploadSize)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	threshold, err := h.parseThreshold(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	imgA, err := readFormImage(r, constants.FormImageA, facematch.SideA)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}
	imgB, err := readFormImage(r, constants.FormImageB, facematch.SideB)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	res, err := h.service.Compare(r.Context(), imgA, imgB, threshold)
	if err != nil {
		status := statusForError(err)
		if status >= http.StatusInternalServerError {
			log.Printf("Comparison %s failed: %s", id, sanitizeForLog(err.Error()))
		}
		respondError(w, status, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, compare.ToResponse(res))
}

// parseThreshold reads the optional threshold form field, falling back to the configured default.
func (h *CompareHandler) parseThreshold(r *http.Request) (float64, error) {
	raw := r.FormValue(constants.FormThreshold)
	if raw == "" {
		return h.config.Match.Threshold, nil
	}
	threshold, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", facematch.ErrInvalidThreshold, raw)
	}
	if err := facematch.ValidateThreshold(threshold); err != nil {
		return 0, err
	}
	return threshold, nil
}

// readFormImage reads one uploaded image and checks that it decodes.
func readFormImage(r *http.Request, field string, side facematch.Side) (imagefile.Image, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return imagefile.Image{}, facematch.NewImageError(side, field, facematch.ErrMissingInput,
			fmt.Errorf("form field %q: %w", field, err))
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return imagefile.Image{}, facematch.NewImageError(side, header.Filename, facematch.ErrMissingInput, err)
	}

	img, err := imagefile.FromBytes(header.Filename, data)
	if err != nil {
		return imagefile.Image{}, facematch.NewImageError(side, header.Filename, facematch.ErrMissingInput, err)
	}
	return img, nil
}
