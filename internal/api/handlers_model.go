// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/marquee-rec/marquee/internal/models"
	"github.com/marquee-rec/marquee/internal/recommend/trainer"
)

// ModelStatus handles GET /api/v1/model/status.
func (h *Handler) ModelStatus(w http.ResponseWriter, r *http.Request) {
	status := h.trainer.Status()
	respondSuccess(w, r, http.StatusOK, status, models.Metadata{
		SnapshotVersion: status.SnapshotVersion,
	})
}

// TrainModel handles POST /api/v1/model/train. Training runs in the
// background; the response is 202 when a run starts and 409 when one is
// already in progress.
func (h *Handler) TrainModel(w http.ResponseWriter, r *http.Request) {
	if h.trainer.IsTraining() {
		respondError(w, r, http.StatusConflict, CodeTrainingInProgress, "Training is already in progress", nil)
		return
	}

	logger := h.logger.With().Str("request_id", requestIDOf(r)).Logger()

	h.trainWG.Add(1)
	go func() {
		defer h.trainWG.Done()
		if err := h.trainer.Train(h.trainCtx); err != nil {
			if errors.Is(err, trainer.ErrTrainingInProgress) {
				logger.Info().Msg("training request raced with a running cycle")
				return
			}
			logger.Error().Err(err).Msg("training triggered over HTTP failed")
		}
	}()

	respondSuccess(w, r, http.StatusAccepted, models.TrainingAccepted{
		Message:         "Training started",
		SnapshotVersion: h.service.Version(),
	}, models.Metadata{Timestamp: time.Now().UTC()})
}
