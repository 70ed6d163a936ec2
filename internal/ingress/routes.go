package ingress

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/contentforge/orchestrator/internal/models"
)

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /jobs", s.handleCreateJob)
	mux.HandleFunc("POST /jobs/batch", s.handleCreateBatch)
	mux.HandleFunc("GET /jobs/{job_id}", s.handleGetJob)
	mux.HandleFunc("GET /jobs/batch/{batch_id}", s.handleGetBatch)
	// {action} instead of a literal download-archive segment: the literal form
	// conflicts with GET /jobs/batch/{batch_id} and ServeMux panics on it.
	mux.HandleFunc("GET /jobs/{job_id}/{action}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("action") != "download-archive" {
			writeError(w, http.StatusNotFound, models.ErrCodeNotFound, "unknown job sub-resource")
			return
		}
		s.handleDownloadArchive(w, r)
	})
}

type createJobRequest struct {
	JobType    string                 `json:"job_type"`
	JobName    string                 `json:"job_name,omitempty"`
	Parameters map[string]interface{} `json:"parameters"`
	UserID     string                 `json:"user_id,omitempty"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, models.ErrCodeValidation, "invalid request body")
		return
	}
	if req.JobType == "" {
		writeError(w, http.StatusBadRequest, models.ErrCodeValidation, "job_type is required")
		return
	}
	if _, err := s.registry.Get(req.JobType); err != nil {
		writeError(w, http.StatusBadRequest, models.ErrCodeUnknownJobType, err.Error())
		return
	}

	job := models.NewJob(models.JobSpec{
		JobType:    req.JobType,
		JobName:    req.JobName,
		Parameters: req.Parameters,
		UserID:     req.UserID,
	})
	if err := s.store.CreateJob(r.Context(), job); err != nil {
		writeError(w, http.StatusInternalServerError, "CreateJobFailed", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, job)
}

type createBatchRequest struct {
	JobType string                   `json:"job_type"`
	Jobs    []map[string]interface{} `json:"jobs"`
	UserID  string                   `json:"user_id,omitempty"`
}

func (s *Server) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, models.ErrCodeValidation, "invalid request body")
		return
	}
	if req.JobType == "" || len(req.Jobs) == 0 {
		writeError(w, http.StatusBadRequest, models.ErrCodeValidation, "job_type and a non-empty jobs array are required")
		return
	}
	if _, err := s.registry.Get(req.JobType); err != nil {
		writeError(w, http.StatusBadRequest, models.ErrCodeUnknownJobType, err.Error())
		return
	}

	jobIDs := make([]string, 0, len(req.Jobs))
	jobs := make([]*models.Job, 0, len(req.Jobs))
	for _, params := range req.Jobs {
		job := models.NewJob(models.JobSpec{JobType: req.JobType, Parameters: params, UserID: req.UserID})
		jobs = append(jobs, job)
		jobIDs = append(jobIDs, job.ID)
	}

	batch := models.NewBatch(req.JobType, jobIDs, req.UserID)
	if err := s.store.CreateBatch(r.Context(), batch); err != nil {
		writeError(w, http.StatusInternalServerError, "CreateBatchFailed", err.Error())
		return
	}
	for _, job := range jobs {
		job.BatchID = batch.ID
		if err := s.store.CreateJob(r.Context(), job); err != nil {
			writeError(w, http.StatusInternalServerError, "CreateJobFailed", err.Error())
			return
		}
	}

	writeJSON(w, http.StatusCreated, batch)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")

	job, err := s.waitForJob(r, jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, models.ErrCodeNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// waitForJob implements the optional long-poll contract: if wait_ms is
// supplied and the job is not yet terminal, it re-checks the job on a short
// interval until it reaches a terminal status or the wait elapses, matching
// secretary_job_routes.py's polling behavior.
func (s *Server) waitForJob(r *http.Request, jobID string) (*models.Job, error) {
	waitMs, _ := strconv.Atoi(r.URL.Query().Get("wait_ms"))
	deadline := time.Now().Add(time.Duration(waitMs) * time.Millisecond)

	job, err := s.store.GetJob(r.Context(), jobID)
	if err != nil {
		return nil, err
	}
	if waitMs <= 0 {
		return job, nil
	}

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for time.Now().Before(deadline) {
		if job.Status == models.JobStatusCompleted || job.Status == models.JobStatusFailed {
			return job, nil
		}
		select {
		case <-r.Context().Done():
			return job, nil
		case <-ticker.C:
			job, err = s.store.GetJob(r.Context(), jobID)
			if err != nil {
				return nil, err
			}
		}
	}
	return job, nil
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	batchID := r.PathValue("batch_id")
	batch, err := s.store.GetBatch(r.Context(), batchID)
	if err != nil {
		writeError(w, http.StatusNotFound, models.ErrCodeNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (s *Server) handleDownloadArchive(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	job, err := s.store.GetJob(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, models.ErrCodeNotFound, err.Error())
		return
	}
	if job.Status != models.JobStatusCompleted || job.Results == nil || job.Results.ArchiveFilename == "" {
		writeError(w, http.StatusNotFound, models.ErrCodeNoResults, "job has no archive to download")
		return
	}

	path := filepath.Join(job.Results.TargetDir, job.Results.ArchiveFilename)
	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusNotFound, models.ErrCodeNotFound, "archive file not found on disk")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+job.Results.ArchiveFilename+"\"")
	http.ServeContent(w, r, job.Results.ArchiveFilename, time.Time{}, f)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
