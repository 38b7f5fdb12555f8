package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"amazon-scraper/models"
	"amazon-scraper/storage"
)

type scheduleRequest struct {
	Frequency  models.Frequency  `json:"frequency"`
	Time       string            `json:"time"`
	Day        string            `json:"day"`
	Categories map[string]string `json:"categories"`
}

func (s *Server) createSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	sched := &models.Schedule{
		Frequency:  req.Frequency,
		TimeOfDay:  req.Time,
		DayOfWeek:  req.Day,
		Categories: req.Categories,
		Status:     models.StatusIdle,
	}
	if err := sched.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.store.Create(r.Context(), sched)
	if err != nil {
		s.logger.Error("[api] Can't create schedule: %v", err)
		writeError(w, http.StatusInternalServerError, "can't create schedule")
		return
	}

	s.logger.Info("[api] Created %s schedule %s", created.Frequency, created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) listSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Error("[api] Can't list schedules: %v", err)
		writeError(w, http.StatusInternalServerError, "can't list schedules")
		return
	}
	if schedules == nil {
		schedules = []*models.Schedule{}
	}
	writeJSON(w, http.StatusOK, schedules)
}

func (s *Server) getSchedule(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sched, err := s.store.Get(r.Context(), id)
	if errors.Is(err, storage.ErrScheduleNotFound) {
		writeError(w, http.StatusNotFound, "schedule "+id+" not found")
		return
	}
	if err != nil {
		s.logger.Error("[api] Can't get schedule %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "can't get schedule")
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

func (s *Server) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	err := s.store.Delete(r.Context(), id)
	if errors.Is(err, storage.ErrScheduleNotFound) {
		writeError(w, http.StatusNotFound, "schedule "+id+" not found")
		return
	}
	if err != nil {
		s.logger.Error("[api] Can't delete schedule %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "can't delete schedule")
		return
	}

	s.logger.Info("[api] Removed schedule %s", id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed", "id": id})
}
