package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kikiluvv/replaycoach/internal/profile"
	"github.com/kikiluvv/replaycoach/pkg/util"
)

const (
	videoField   = "video"
	profileField = "player_profile"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleAnalyze stores the uploaded video, computes its statistics and
// returns them. The stored copy never outlives the request.
func (s *Server) handleAnalyze(c *gin.Context) {
	defer s.releaseForm(c)

	header, ok := s.videoHeader(c)
	if !ok {
		return
	}

	path, err := s.storeUpload(header)
	if path != "" {
		defer s.cleanup(c, path)
	}
	if err != nil {
		s.fail(c, err)
		return
	}

	stats, err := s.svc.Analyze(c.Request.Context(), path)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// handleReport is handleAnalyze plus model feedback for the submitted
// player profile
func (s *Server) handleReport(c *gin.Context) {
	defer s.releaseForm(c)

	header, ok := s.videoHeader(c)
	if !ok {
		return
	}

	raw, ok := c.GetPostForm(profileField)
	if !ok {
		s.reject(c, http.StatusUnprocessableEntity, fmt.Sprintf("field '%s' is required", profileField))
		return
	}

	prof, err := profile.Parse([]byte(raw))
	if err != nil {
		s.fail(c, err)
		return
	}

	path, err := s.storeUpload(header)
	if path != "" {
		defer s.cleanup(c, path)
	}
	if err != nil {
		s.fail(c, err)
		return
	}

	result, err := s.svc.Run(c.Request.Context(), path, prof)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// videoHeader parses the multipart body under the upload cap and returns
// the video part
func (s *Server) videoHeader(c *gin.Context) (*multipart.FileHeader, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)

	header, err := c.FormFile(videoField)
	if err == nil {
		return header, true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.reject(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
		return nil, false
	}

	s.reject(c, http.StatusUnprocessableEntity, fmt.Sprintf("field '%s' is required", videoField))
	return nil, false
}

// storeUpload copies the upload into a fresh temp file. The returned path
// is set whenever a file was created, even on error.
func (s *Server) storeUpload(header *multipart.FileHeader) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	defer src.Close()

	dst, err := util.TempFile(s.tempDir, "replaycoach-"+uuid.NewString()+"-", header.Filename)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	path := dst.Name()

	n, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return path, fmt.Errorf("%w: %v", ErrUpload, err)
	}

	s.logger.Debug().
		Str("path", path).
		Int64("bytes", n).
		Msg("upload stored")

	return path, nil
}

func (s *Server) cleanup(c *gin.Context, path string) {
	if err := util.CleanupFiles(path); err != nil {
		s.logger.Warn().
			Err(err).
			Str("request_id", c.GetString(requestIDKey)).
			Str("path", path).
			Msg("failed to remove temp file")
		s.metrics.RecordCleanupFailure()
	}
}

func (s *Server) releaseForm(c *gin.Context) {
	if c.Request.MultipartForm != nil {
		_ = c.Request.MultipartForm.RemoveAll()
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	s.logger.Error().
		Err(err).
		Str("request_id", c.GetString(requestIDKey)).
		Str("path", c.Request.URL.Path).
		Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
}

func (s *Server) reject(c *gin.Context, status int, detail string) {
	c.JSON(status, gin.H{"detail": detail})
}
