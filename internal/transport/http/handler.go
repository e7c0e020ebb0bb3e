package httptransport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"data-quality-service/internal/entity"
	"data-quality-service/internal/service"
	"data-quality-service/internal/table"
)

type Handler struct {
	jobSvc     *service.JobService
	datasetSvc *service.DatasetService
	maxUpload  int64
}

func NewHandler(jobSvc *service.JobService, datasetSvc *service.DatasetService, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = 100 << 20
	}
	return &Handler{jobSvc: jobSvc, datasetSvc: datasetSvc, maxUpload: maxUpload}
}

type createJobDTO struct {
	DatasetID string `json:"dataset_id"`
}

type datasetResp struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	FilePath   string `json:"file_path"`
	UploadedAt string `json:"uploaded_at"`
}

type logResp struct {
	Seq       int    `json:"seq"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

type reportResp struct {
	ID              string          `json:"id"`
	JobID           string          `json:"job_id"`
	InitialScore    int             `json:"initial_quality_score"`
	FinalScore      int             `json:"final_quality_score"`
	Issues          json.RawMessage `json:"issues_found" swaggertype:"object"`
	Actions         []string        `json:"actions_taken"`
	CleanedFilePath string          `json:"cleaned_file_path"`
	CreatedAt       string          `json:"created_at"`
}

type jobResp struct {
	ID        string           `json:"id"`
	DatasetID string           `json:"dataset_id"`
	Status    entity.JobStatus `json:"status"`
	Logs      []logResp        `json:"logs"`
	Report    *reportResp      `json:"report,omitempty"`
	CreatedAt string           `json:"created_at"`
	UpdatedAt string           `json:"updated_at"`
}

func toDatasetResp(d *entity.Dataset) datasetResp {
	return datasetResp{
		ID:         d.ID.String(),
		Name:       d.Name,
		FilePath:   d.FilePath,
		UploadedAt: d.UploadedAt.Format(time.RFC3339),
	}
}

func toReportResp(r *entity.Report) *reportResp {
	issues := r.Issues
	if len(issues) == 0 {
		issues = json.RawMessage(`{}`)
	}
	actions := r.Actions
	if actions == nil {
		actions = []string{}
	}
	return &reportResp{
		ID:              r.ID.String(),
		JobID:           r.JobID.String(),
		InitialScore:    r.InitialScore,
		FinalScore:      r.FinalScore,
		Issues:          issues,
		Actions:         actions,
		CleanedFilePath: r.CleanedFilePath,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
	}
}

func toJobResp(j *entity.Job) jobResp {
	resp := jobResp{
		ID:        j.ID.String(),
		DatasetID: j.DatasetID.String(),
		Status:    j.Status,
		Logs:      make([]logResp, len(j.Logs)),
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
		UpdatedAt: j.UpdatedAt.Format(time.RFC3339),
	}
	for i, l := range j.Logs {
		resp.Logs[i] = logResp{Seq: l.Seq, Message: l.Message, CreatedAt: l.CreatedAt.Format(time.RFC3339Nano)}
	}
	if j.Status == entity.StatusCompleted && j.Report != nil {
		resp.Report = toReportResp(j.Report)
	}
	return resp
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func parseLimit(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return n
}

// UploadDataset godoc
// @Summary Upload a dataset
// @Description Stores a .csv or .xlsx file and records it as a dataset.
// @Tags datasets
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "dataset file (.csv or .xlsx)"
// @Param name formData string false "display name (defaults to the file name)"
// @Success 201 {object} datasetResp
// @Failure 400 {object} apiError
// @Failure 413 {object} apiError
// @Router /datasets [post]
func (h *Handler) UploadDataset(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxUpload {
		writeErr(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeErr(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeErr(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	file, header, err := r.FormFile("file")
	if err != nil {
		writeErr(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	d, err := h.datasetSvc.Upload(r.Context(), r.FormValue("name"), header.Filename, file)
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDatasetResp(d))
}

// ListDatasets godoc
// @Summary List datasets
// @Tags datasets
// @Produce json
// @Param limit query int false "max items (default 50)"
// @Success 200 {array} datasetResp
// @Router /datasets [get]
func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	list, err := h.datasetSvc.ListDatasets(r.Context(), parseLimit(r))
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	resp := make([]datasetResp, len(list))
	for i := range list {
		resp[i] = toDatasetResp(&list[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetDataset godoc
// @Summary Get dataset by id
// @Tags datasets
// @Produce json
// @Param id path string true "dataset id (uuid)"
// @Success 200 {object} datasetResp
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Router /datasets/{id} [get]
func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	d, err := h.datasetSvc.GetDataset(r.Context(), id)
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDatasetResp(d))
}

// CreateJob godoc
// @Summary Start a cleaning job
// @Description Creates a PENDING job for the dataset and dispatches it for background processing.
// @Tags jobs
// @Accept json
// @Produce json
// @Param request body createJobDTO true "dataset to clean"
// @Success 201 {object} jobResp
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Failure 500 {object} apiError
// @Router /jobs [post]
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var dto createJobDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	datasetID, err := uuid.Parse(dto.DatasetID)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid dataset_id")
		return
	}

	j, err := h.jobSvc.CreateJob(r.Context(), datasetID)
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toJobResp(j))
}

// ListJobs godoc
// @Summary List jobs, newest first
// @Tags jobs
// @Produce json
// @Param limit query int false "max items (default 50)"
// @Success 200 {array} jobResp
// @Router /jobs [get]
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	list, err := h.jobSvc.ListJobs(r.Context(), parseLimit(r))
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	resp := make([]jobResp, len(list))
	for i := range list {
		resp[i] = toJobResp(&list[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetJob godoc
// @Summary Get job by id
// @Description Status, ordered log and, once completed, the report.
// @Tags jobs
// @Produce json
// @Param id path string true "job id (uuid)"
// @Success 200 {object} jobResp
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Router /jobs/{id} [get]
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	j, err := h.jobSvc.GetJob(r.Context(), id)
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResp(j))
}

// GetJobReport godoc
// @Summary Get the quality report of a completed job
// @Tags jobs
// @Produce json
// @Param id path string true "job id (uuid)"
// @Success 200 {object} reportResp
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Failure 409 {object} apiError
// @Router /jobs/{id}/report [get]
func (h *Handler) GetJobReport(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	rep, err := h.jobSvc.GetReport(r.Context(), id)
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportResp(rep))
}

// DownloadCleaned godoc
// @Summary Download the cleaned dataset of a completed job
// @Tags jobs
// @Produce octet-stream
// @Param id path string true "job id (uuid)"
// @Success 200 {file} file
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Failure 409 {object} apiError
// @Router /jobs/{id}/cleaned [get]
func (h *Handler) DownloadCleaned(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	name, f, err := h.jobSvc.OpenCleaned(r.Context(), id)
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", contentType(name))
	w.Header().Set("Content-Disposition", `attachment; filename="`+path.Base(name)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, f)
}

func contentType(name string) string {
	format, err := table.FormatFromPath(name)
	if err != nil {
		return "application/octet-stream"
	}
	if format == table.FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}
