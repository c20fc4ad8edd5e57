package server

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/ArionMiles/smartspend/pkg/analytics"
	"github.com/ArionMiles/smartspend/pkg/api"
	"github.com/ArionMiles/smartspend/pkg/auth"
	"github.com/ArionMiles/smartspend/pkg/ingest"
	"github.com/ArionMiles/smartspend/pkg/service"
)

const (
	msgMissingEmail = "Missing user email"
	msgNotOwned     = "Expense not found or not owned by user"
	msgNoData       = "No valid data available."
)

// writeError maps service errors to a status and an {"error": ...} body.
func (s *Server) writeError(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, "internal server error"
	switch {
	case errors.Is(err, api.ErrMissingOwner):
		status, msg = http.StatusBadRequest, msgMissingEmail
	case errors.Is(err, api.ErrNotFound):
		status, msg = http.StatusNotFound, msgNotOwned
	case errors.Is(err, api.ErrUnsupportedFormat),
		errors.Is(err, ingest.ErrMissingColumns),
		errors.Is(err, api.ErrUndecodable):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, api.ErrInvalidRecord):
		status, msg = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, service.ErrNoRecognizer):
		status, msg = http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, api.ErrUserNotFound):
		status, msg = http.StatusBadRequest, "User not found"
	case errors.Is(err, api.ErrEmailExists):
		status, msg = http.StatusBadRequest, "Email already exists"
	case errors.Is(err, auth.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, auth.ErrInvalidInput):
		status, msg = http.StatusBadRequest, err.Error()
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// owner reads the email from the query string, then the form.
func owner(c *gin.Context) string {
	if e := c.Query("email"); e != "" {
		return strings.TrimSpace(e)
	}
	return strings.TrimSpace(c.PostForm("email"))
}

// upload returns the multipart "file" field.
func upload(c *gin.Context) (*multipart.FileHeader, multipart.File, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "missing file upload")
		return nil, nil, false
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "unreadable file upload")
		return nil, nil, false
	}
	return fh, f, true
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "SmartSpend backend is working!"})
}

func (s *Server) ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Server is up!"})
}

func (s *Server) health(c *gin.Context) {
	if err := s.svc.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if _, err := s.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User registered successfully!"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	u, err := s.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    gin.H{"id": u.ID, "name": u.Name, "email": u.Email},
	})
}

func (s *Server) uploadCSV(c *gin.Context) {
	email := owner(c)
	if email == "" {
		badRequest(c, msgMissingEmail)
		return
	}
	fh, f, ok := upload(c)
	if !ok {
		return
	}
	defer f.Close()

	res, err := s.svc.ImportSpreadsheet(c.Request.Context(), email, fh.Filename, f)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  fmt.Sprintf("%d entries uploaded and categorized successfully.", res.Inserted),
		"inserted": res.Inserted,
		"dropped":  res.Dropped,
	})
}

func (s *Server) uploadReceipt(c *gin.Context) {
	email := owner(c)
	if email == "" {
		badRequest(c, msgMissingEmail)
		return
	}
	_, f, ok := upload(c)
	if !ok {
		return
	}
	defer f.Close()

	res, err := s.svc.ProcessReceipt(c.Request.Context(), email, f)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Receipt processed successfully.",
		"date":    res.Date,
		"items":   res.Items,
	})
}

func (s *Server) syncCSV(c *gin.Context) {
	email := owner(c)
	if email == "" {
		badRequest(c, msgMissingEmail)
		return
	}
	_, f, ok := upload(c)
	if !ok {
		return
	}
	defer f.Close()

	res, err := s.svc.Sync(c.Request.Context(), email, f)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("%d records synced.", res.Synced),
		"synced":  res.Synced,
		"skipped": res.Skipped,
	})
}

type expenseRequest struct {
	Email       string          `json:"email"`
	Date        api.Date        `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
}

func (s *Server) addExpense(c *gin.Context) {
	var req expenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	e := api.Expense{
		OwnerID:     strings.TrimSpace(req.Email),
		Date:        req.Date,
		Description: req.Description,
		Amount:      req.Amount,
	}
	if strings.TrimSpace(req.Category) != "" {
		e.Category = api.ParseCategory(req.Category)
	}

	saved, err := s.svc.AddExpense(c.Request.Context(), e)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Added", "id": saved.ID, "expense": saved})
}

// parseDay reads an optional YYYY-MM-DD query parameter.
func parseDay(c *gin.Context, key string) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	d, err := api.ParseDate(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	t := d.Time()
	return &t, nil
}

func (s *Server) listExpenses(c *gin.Context) {
	from, err := parseDay(c, "from")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	to, err := parseDay(c, "to")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	records, err := s.svc.ListExpenses(c.Request.Context(), owner(c), from, to)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if records == nil {
		records = []api.Expense{}
	}
	c.JSON(http.StatusOK, records)
}

type updateRequest struct {
	Email string `json:"email"`
	api.ExpensePatch
}

func (s *Server) updateExpense(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = owner(c)
	}
	if req.Category != nil {
		cat := api.ParseCategory(string(*req.Category))
		req.Category = &cat
	}
	if err := s.svc.UpdateExpense(c.Request.Context(), c.Param("id"), email, req.ExpensePatch); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Updated"})
}

func (s *Server) deleteExpense(c *gin.Context) {
	if err := s.svc.DeleteExpense(c.Request.Context(), c.Param("id"), owner(c)); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted"})
}

func (s *Server) snapshot(c *gin.Context) (analytics.Snapshot, bool) {
	snap, err := s.svc.Analytics(c.Request.Context(), owner(c))
	if err != nil {
		s.writeError(c, err)
		return analytics.Snapshot{}, false
	}
	return snap, true
}

// view serves one field of the analytics snapshot.
func (s *Server) view(pick func(analytics.Snapshot) any) gin.HandlerFunc {
	return func(c *gin.Context) {
		if snap, ok := s.snapshot(c); ok {
			c.JSON(http.StatusOK, pick(snap))
		}
	}
}

func (s *Server) biggestCategory(c *gin.Context) {
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}
	if snap.Biggest == nil {
		c.JSON(http.StatusOK, gin.H{"message": msgNoData})
		return
	}
	c.JSON(http.StatusOK, snap.Biggest)
}

func (s *Server) spendingSpike(c *gin.Context) {
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}
	if snap.Spike == nil {
		c.JSON(http.StatusOK, gin.H{"message": msgNoData})
		return
	}
	c.JSON(http.StatusOK, snap.Spike)
}

func (s *Server) summary(c *gin.Context) {
	sum, err := s.svc.Summary(c.Request.Context(), owner(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) profileSummary(c *gin.Context) {
	p, err := s.svc.ProfileTips(c.Request.Context(), owner(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
