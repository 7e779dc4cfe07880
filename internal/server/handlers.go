package server

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ytget/yt-web/internal/model"
)

// fetchRequest is the body of /download_wait and /download
type fetchRequest struct {
	URL     string               `json:"url"`
	Format  string               `json:"format"`
	Cookies model.CookieMaterial `json:"cookies"`
}

// taskResponse adds a display-ready elapsed time to a task
type taskResponse struct {
	*model.FetchTask
	Elapsed string `json:"elapsed"`
}

type saveCookiesRequest struct {
	Cookies string `json:"cookies"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

type deleteCookieRequest struct {
	Password string `json:"password"`
	Index    *int   `json:"index"`
}

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", nil)
}

func (s *Server) handleHealth(c *gin.Context) {
	stats := s.deps.Fetches.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"active":  stats.Active,
		"pending": stats.Pending,
	})
}

func (s *Server) handleFormats(c *gin.Context) {
	cookies, err := parseFormCookies(c.PostForm("cookies"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	result, err := s.deps.Prober.Probe(c.Request.Context(), c.PostForm("url"), cookies)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleDownloadWait(c *gin.Context) {
	var req fetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, badRequest("invalid request body: "+err.Error()))
		return
	}

	token, err := s.deps.Fetches.Fetch(c.Request.Context(), req.toModel())
	if err != nil {
		if ctxErr := c.Request.Context().Err(); ctxErr != nil {
			s.logger.Info("client went away before the fetch finished", "url", req.URL, "error", ctxErr)
			c.Abort()
			return
		}
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"video_id": token})
}

func (s *Server) handleDownload(c *gin.Context) {
	var req fetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, badRequest("invalid request body: "+err.Error()))
		return
	}

	task, err := s.deps.Fetches.Submit(req.toModel())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"task_id": task.ID,
		"status":  task.Status,
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	task, exists := s.deps.Fetches.GetTask(c.Param("id"))
	if !exists {
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: "task not found"})
		return
	}
	c.JSON(http.StatusOK, taskResponse{FetchTask: task, Elapsed: task.GetElapsedString(time.Now())})
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.deps.Fetches.RemoveTask(c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

func (s *Server) handleDownloadFile(c *gin.Context) {
	token, ok := model.ParseArtifactToken(c.Param("video_id"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: "file not found"})
		return
	}

	reader, err := s.deps.Artifacts.Open(token)
	if err != nil {
		s.writeError(c, err)
		return
	}
	defer func() {
		if err := reader.Close(); err != nil {
			s.logger.Warn("failed to close artifact", "video_id", token, "error", err)
		}
	}()

	c.DataFromReader(http.StatusOK, reader.Size(), s.deps.Artifacts.ContentType(), reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", reader.FileName()),
	})
}

func (s *Server) handlePlaylist(c *gin.Context) {
	playlist, err := s.deps.Playlists.ParsePlaylist(c.Request.Context(), strings.TrimSpace(c.PostForm("url")))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, playlist)
}

func (s *Server) handleSaveCookies(c *gin.Context) {
	var req saveCookiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, badRequest("invalid request body: "+err.Error()))
		return
	}
	if err := s.deps.Cookies.Append(req.Cookies); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

func (s *Server) handleListCookies(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, badRequest("invalid request body: "+err.Error()))
		return
	}
	if !s.authorized(req.Password) {
		s.writeError(c, errForbidden)
		return
	}

	records, err := s.deps.Cookies.List()
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cookies": records})
}

func (s *Server) handleCookiesAdmin(c *gin.Context) {
	password := c.Param("password")
	if !s.authorized(password) {
		c.String(http.StatusForbidden, "Forbidden")
		return
	}

	records, err := s.deps.Cookies.List()
	if err != nil {
		s.logger.Error("failed to list cookies", "error", err)
		c.String(http.StatusInternalServerError, internalErrorMessage)
		return
	}
	c.HTML(http.StatusOK, "cookies_admin.html", gin.H{
		"Cookies":  records,
		"Password": password,
	})
}

func (s *Server) handleDeleteCookie(c *gin.Context) {
	var req deleteCookieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, badRequest("invalid request body: "+err.Error()))
		return
	}
	if !s.authorized(req.Password) {
		s.writeError(c, errForbidden)
		return
	}
	if req.Index == nil {
		s.writeError(c, badRequest("index is required"))
		return
	}

	if err := s.deps.Cookies.Delete(*req.Index); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// authorized compares in constant time; an unset admin password rejects everyone
func (s *Server) authorized(password string) bool {
	if s.cfg.AdminPassword == "" || password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.AdminPassword)) == 1
}

func (r fetchRequest) toModel() model.FetchRequest {
	return model.FetchRequest{URL: r.URL, FormatID: r.Format, Cookies: r.Cookies}
}

// parseFormCookies reads the form field as a JSON object of pairs when it
// looks like one, and as a raw Cookie header otherwise
func parseFormCookies(value string) (model.CookieMaterial, error) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "{") {
		return model.CookiesFromHeader(value), nil
	}

	var cookies model.CookieMaterial
	if err := json.Unmarshal([]byte(value), &cookies); err != nil {
		return model.NoCookies(), badRequest("invalid cookies: " + err.Error())
	}
	return cookies, nil
}
