package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/time-capsule/internal/model"
	"github.com/sakif/time-capsule/internal/service"
)

// CapsuleLifecycle is what CapsuleHandler needs from the service layer.
// *service.CapsuleService implements it.
type CapsuleLifecycle interface {
	Create(ctx context.Context, ownerID string, in service.CreateCapsuleInput) (*model.Capsule, error)
	ListUnlocked(ctx context.Context, ownerID string) (iter.Seq[model.CapsuleView], error)
	ListAll(ctx context.Context, ownerID string) (iter.Seq[model.CapsuleView], error)
	Delete(ctx context.Context, id, requesterID string) error
}

// Client-facing messages for the capsule routes.
const (
	msgCreateFailed   = "Server error while creating capsule"
	msgUnlockedFailed = "Server error while fetching unlocked capsules"
	msgListFailed     = "Server error while fetching capsules"
	msgDeleteFailed   = "Server error while deleting capsule"
	msgCapsuleDeleted = "Capsule deleted"
	msgTooLarge       = "Uploaded file is too large"
	msgBadBody        = "Invalid request body"
)

// imageField is the multipart field the client uploads the picture under.
const imageField = "image"

// multipartMemory is how much of a multipart body is buffered in memory
// before the rest spills to temporary files.
const multipartMemory = 1 << 20

// CapsuleHandler serves the /api/capsules routes. Every route sits behind the
// auth guard and acts on the current user's capsules only.
type CapsuleHandler struct {
	capsules       CapsuleLifecycle
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewCapsuleHandler creates a CapsuleHandler. maxUploadBytes caps the whole
// create request body, image included.
func NewCapsuleHandler(capsules CapsuleLifecycle, maxUploadBytes int64, logger *slog.Logger) *CapsuleHandler {
	return &CapsuleHandler{
		capsules:       capsules,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// createCapsuleRequest is the JSON form of a create request (no image).
type createCapsuleRequest struct {
	Message    string `json:"message"`
	UnlockDate string `json:"unlockDate"`
	LockedDate string `json:"lockedDate"`
}

// HandleCreate seals a new capsule.
//
// HTTP: POST /api/capsules
//
// ACCEPTED BODIES:
//   - multipart/form-data with fields message, unlockDate, lockedDate and an
//     optional file under "image" (what the browser client sends)
//   - application/x-www-form-urlencoded with the same text fields
//   - application/json {"message", "unlockDate", "lockedDate"}
//
// RESPONSE: 201 with the stored capsule as a CapsuleView.
func (h *CapsuleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	// A declared length over the limit can be refused without reading anything.
	if r.ContentLength > h.maxUploadBytes {
		writeMessage(w, http.StatusBadRequest, msgTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	in, err := h.parseCreate(r)
	if err != nil {
		if isTooLarge(err) {
			writeMessage(w, http.StatusBadRequest, msgTooLarge)
			return
		}
		h.logger.Warn("invalid capsule body", slog.String("error", err.Error()))
		writeMessage(w, http.StatusBadRequest, msgBadBody)
		return
	}

	capsule, err := h.capsules.Create(r.Context(), user.ID, in)
	if err != nil {
		writeError(w, h.logger, err, msgCreateFailed)
		return
	}

	writeJSON(w, http.StatusCreated, capsule.View())
}

func (h *CapsuleHandler) parseCreate(r *http.Request) (service.CreateCapsuleInput, error) {
	var in service.CreateCapsuleInput

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/json":
		var req createCapsuleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return in, err
		}
		in.Message = req.Message
		in.UnlockDate = req.UnlockDate
		in.LockedDate = req.LockedDate
		return in, nil

	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return in, err
		}
		img, err := readImage(r)
		if err != nil {
			return in, err
		}
		in.Image = img

	default:
		if err := r.ParseForm(); err != nil {
			return in, err
		}
	}

	in.Message = r.FormValue("message")
	in.UnlockDate = r.FormValue("unlockDate")
	in.LockedDate = r.FormValue("lockedDate")
	return in, nil
}

// readImage pulls the optional upload out of a parsed multipart form. The
// content type is the one the client declared for the part; the service
// decides whether it is acceptable.
func readImage(r *http.Request) (*model.Image, error) {
	file, header, err := r.FormFile(imageField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	return &model.Image{
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
	}, nil
}

// isTooLarge reports whether err came from the MaxBytesReader. The JSON
// decoder, ParseForm and ParseMultipartForm all return it either as-is or
// wrapped with %w.
func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// HandleListUnlocked returns the capsules that are open now and flags newly
// opened ones as notified.
//
// HTTP: GET /api/capsules/unlocked
func (h *CapsuleHandler) HandleListUnlocked(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	seq, err := h.capsules.ListUnlocked(r.Context(), user.ID)
	if err != nil {
		writeError(w, h.logger, err, msgUnlockedFailed)
		return
	}

	writeViews(w, seq)
}

// HandleListAll returns every capsule the user owns, locked or not.
//
// HTTP: GET /api/capsules/all and GET /api/capsules
func (h *CapsuleHandler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	seq, err := h.capsules.ListAll(r.Context(), user.ID)
	if err != nil {
		writeError(w, h.logger, err, msgListFailed)
		return
	}

	writeViews(w, seq)
}

// HandleDelete removes one of the user's capsules.
//
// HTTP: DELETE /api/capsules/{id}
//
// URL PARAMETERS:
// chi.URLParam(r, "id") returns the {id} segment of the matched route.
func (h *CapsuleHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.capsules.Delete(r.Context(), id, user.ID); err != nil {
		writeError(w, h.logger, err, msgDeleteFailed)
		return
	}

	writeMessage(w, http.StatusOK, msgCapsuleDeleted)
}

// writeViews drains the sequence into a JSON array. An empty sequence is
// rendered as [] rather than null.
func writeViews(w http.ResponseWriter, seq iter.Seq[model.CapsuleView]) {
	views := []model.CapsuleView{}
	for v := range seq {
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}
