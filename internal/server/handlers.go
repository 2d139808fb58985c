package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/boopesh07/VideoToShorts/internal/transcript"
	"github.com/boopesh07/VideoToShorts/internal/types"
	"github.com/boopesh07/VideoToShorts/internal/usecase"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": "VideoToShorts Backend API",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "Backend is running successfully",
	})
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Backend API is working correctly",
		"data": map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"service":   "VideoToShorts Backend",
		},
	})
}

type suggestRequest struct {
	TranscriptData json.RawMessage `json:"transcript_data"`
	TargetDuration float64         `json:"target_duration"`
	MaxSegments    int             `json:"max_segments"`
}

func (s *Server) handleSuggestSegments(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.suggestError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	tr, err := transcript.Decode(req.TranscriptData)
	if err != nil {
		s.suggestError(w, http.StatusBadRequest, err.Error())
		return
	}

	sug, err := s.svc.SuggestSegments(r.Context(), tr, req.TargetDuration, req.MaxSegments)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, usecase.ErrNoUtterances) {
			status = http.StatusBadRequest
		}
		s.suggestError(w, status, err.Error())
		return
	}

	segments := sug.Segments
	if segments == nil {
		segments = []types.ScoredSegment{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":            true,
		"suggested_segments": segments,
		"total_suggestions":  len(segments),
		"target_duration":    sug.TargetDuration,
		"analysis_method":    sug.AnalysisMethod,
	})
}

func (s *Server) suggestError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]any{
		"success":            false,
		"error":              msg,
		"suggested_segments": []types.ScoredSegment{},
		"total_suggestions":  0,
	})
}

type generateRequest struct {
	YoutubeURL     string                `json:"youtube_url"`
	TranscriptData json.RawMessage       `json:"transcript_data"`
	CustomSegments []types.CustomSegment `json:"custom_segments"`
	MaxShorts      int                   `json:"max_shorts"`
}

type failedShort struct {
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

func (s *Server) handleGenerateShorts(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jobError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.YoutubeURL == "" {
		s.jobError(w, http.StatusBadRequest, "youtube_url is required")
		return
	}

	in := usecase.GenerateInput{
		Source:    req.YoutubeURL,
		MaxShorts: req.MaxShorts,
		Custom:    req.CustomSegments,
	}
	// The transcript is optional when custom segments drive the job.
	if len(req.TranscriptData) > 0 {
		tr, err := transcript.Decode(req.TranscriptData)
		if err != nil && len(req.CustomSegments) == 0 {
			s.jobError(w, http.StatusBadRequest, err.Error())
			return
		}
		in.Transcript = tr
	} else if len(req.CustomSegments) == 0 {
		s.jobError(w, http.StatusBadRequest, "transcript_data or custom_segments is required")
		return
	}

	res, err := s.svc.GenerateShorts(r.Context(), in)
	if err != nil && !errors.Is(err, usecase.ErrAllShortsFailed) {
		status := http.StatusInternalServerError
		if errors.Is(err, usecase.ErrNoUtterances) {
			status = http.StatusBadRequest
		}
		s.jobError(w, status, err.Error())
		return
	}

	shorts := make([]types.GeneratedShort, 0, len(res.Results))
	failed := make([]failedShort, 0)
	for _, sr := range res.Results {
		if sr.Failed() {
			failed = append(failed, failedShort{Title: sr.Title, Reason: sr.Reason})
			continue
		}
		shorts = append(shorts, *sr.Short)
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":             len(shorts) > 0,
		"youtube_url":         req.YoutubeURL,
		"original_video_path": res.SourcePath,
		"shorts_generated":    len(shorts),
		"shorts":              shorts,
		"failed":              failed,
		"segments_analyzed":   res.SegmentsAnalyzed,
	})
}

func (s *Server) jobError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]any{
		"success": false,
		"error":   msg,
	})
}

type compileRequest struct {
	YoutubeURL string `json:"youtube_url"`
	Segments   []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments"`
	OutputName string `json:"output_name"`
}

func (s *Server) handleCompileSegments(w http.ResponseWriter, r *http.Request) {
	var req compileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jobError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.YoutubeURL == "" {
		s.jobError(w, http.StatusBadRequest, "youtube_url is required")
		return
	}

	ranges := make([]types.TimeRange, 0, len(req.Segments))
	for _, seg := range req.Segments {
		ranges = append(ranges, types.TimeRange{Start: seg.Start, End: seg.End})
	}

	res, err := s.svc.CompileSegments(r.Context(), usecase.CompileInput{
		Source:     req.YoutubeURL,
		Ranges:     ranges,
		OutputName: req.OutputName,
	})
	if err != nil {
		s.jobError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":             true,
		"output_file":         res.Short.Filename,
		"segments_downloaded": res.SegmentsDownloaded,
		"segment_files":       res.SegmentFiles,
		"file_size_bytes":     res.FileSizeBytes,
		"file_size_mb":        float64(res.FileSizeBytes) / (1024 * 1024),
		"temp_directory":      res.TempDir,
	})
}

func (s *Server) handleListShorts(w http.ResponseWriter, r *http.Request) {
	shorts, err := s.cat.List(r.Context())
	if err != nil {
		s.jobError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if shorts == nil {
		shorts = []types.GeneratedShort{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"shorts":  shorts,
		"total":   len(shorts),
	})
}

// handleStreamShort serves a short for preview. http.ServeContent honors
// byte-range requests so players can seek without a full download.
func (s *Server) handleStreamShort(w http.ResponseWriter, r *http.Request) {
	short, err := s.cat.Get(r.Context(), r.PathValue("filename"))
	if err != nil {
		s.notFound(w, err)
		return
	}
	f, err := os.Open(short.FilePath)
	if err != nil {
		s.notFound(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "video/mp4")
	http.ServeContent(w, r, short.Filename, short.CreatedAt, f)
}

func (s *Server) handleDownloadShort(w http.ResponseWriter, r *http.Request) {
	short, err := s.cat.Get(r.Context(), r.PathValue("filename"))
	if err != nil {
		s.notFound(w, err)
		return
	}
	f, err := os.Open(short.FilePath)
	if err != nil {
		s.notFound(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", short.Filename))
	http.ServeContent(w, r, short.Filename, short.CreatedAt, f)
}

func (s *Server) handleDeleteShort(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	if err := s.cat.Delete(r.Context(), filename); err != nil {
		s.notFound(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("deleted %s", filename),
	})
}
