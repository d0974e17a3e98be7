package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/nikhilbhutani/speakify/internal/converter"
	"github.com/nikhilbhutani/speakify/internal/models"
)

// StatePublisher pushes a fresh converter view to connected clients.
type StatePublisher interface {
	PublishState(v converter.View)
}

type ConverterHandler struct {
	conv      *converter.Converter
	publisher StatePublisher
}

func NewConverterHandler(conv *converter.Converter, publisher StatePublisher) *ConverterHandler {
	return &ConverterHandler{conv: conv, publisher: publisher}
}

func (h *ConverterHandler) publish() converter.View {
	v := h.conv.Snapshot()
	if h.publisher != nil {
		h.publisher.PublishState(v)
	}
	return v
}

// State returns the full converter view.
func (h *ConverterHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.conv.Snapshot())
}

func (h *ConverterHandler) SelectMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mode, err := converter.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.conv.SelectMode(mode); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.publish())
}

// UpdateTextToSpeech edits the TTS inputs. Omitted fields are left alone.
func (h *ConverterHandler) UpdateTextToSpeech(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text  *string  `json:"text"`
		Voice *string  `json:"voice"`
		Speed *float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Text != nil {
		h.conv.SetText(*req.Text)
	}
	if req.Voice != nil {
		h.conv.SetVoice(*req.Voice)
	}
	if req.Speed != nil {
		h.conv.SetSpeed(*req.Speed)
	}
	writeJSON(w, http.StatusOK, h.publish())
}

// SubmitTextToSpeech starts a conversion and answers 202 while it runs.
func (h *ConverterHandler) SubmitTextToSpeech(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, h.conv.StartTextToSpeech)
}

func (h *ConverterHandler) SubmitSpeechToText(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, h.conv.StartSpeechToText)
}

func (h *ConverterHandler) submit(w http.ResponseWriter, r *http.Request, start func(context.Context) (<-chan error, error)) {
	// The request context ends with this response; the conversion must not.
	ctx := context.WithoutCancel(r.Context())

	done, err := start(ctx)
	if err != nil {
		writeSubmitError(w, err)
		return
	}

	go func() {
		if err := <-done; err != nil && !errors.Is(err, converter.ErrResultDiscarded) {
			slog.Warn("conversion failed", "error", err)
		}
		h.publish()
	}()

	writeJSON(w, http.StatusAccepted, h.publish())
}

func writeSubmitError(w http.ResponseWriter, err error) {
	var verr *converter.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": verr.UserMessage(), "reason": verr.Reason})
	case errors.Is(err, converter.ErrSubmissionInFlight), errors.Is(err, converter.ErrModeInactive):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *ConverterHandler) Download(w http.ResponseWriter, r *http.Request) {
	if err := h.conv.DownloadResult(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SelectFile takes a multipart upload in field "audio". Size and format are
// checked on submission, not here; the body is only capped a little above the
// converter's upload limit so that submission can report the size.
func (h *ConverterHandler) SelectFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.conv.Limits().MaxUploadBytes+1<<20)

	f, hdr, err := r.FormFile("audio")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Please upload an audio file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	h.conv.SelectFile(r.Context(), models.AudioFile{
		Name:        hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Data:        data,
	})
	writeJSON(w, http.StatusOK, h.publish())
}

func (h *ConverterHandler) Copy(w http.ResponseWriter, r *http.Request) {
	if err := h.conv.CopyResult(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConverterHandler) Usage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.conv.Usage())
}

func (h *ConverterHandler) RefreshUsage(w http.ResponseWriter, r *http.Request) {
	h.conv.RefreshUsage(r.Context())
	h.publish()
	writeJSON(w, http.StatusOK, h.conv.Usage())
}

func (h *ConverterHandler) Voices(w http.ResponseWriter, r *http.Request) {
	voices := h.conv.Voices()
	if len(voices) == 0 || r.URL.Query().Get("refresh") == "true" {
		voices = h.conv.LoadVoices(r.Context())
	}
	if voices == nil {
		voices = []models.Voice{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"voices": voices})
}
