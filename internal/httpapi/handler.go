// Package httpapi exposes the roster and attendance endpoints over gin.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rollbook/internal/attendance"
	"rollbook/internal/roster"
)

// RosterService is the roster surface the handlers need.
type RosterService interface {
	CreateStudent(ctx context.Context, st roster.Student) (roster.Student, error)
	ListStudents(ctx context.Context) ([]roster.Student, error)
	DeleteStudent(ctx context.Context, id string) (int64, error)
}

// Engine ingests attendance batches.
type Engine interface {
	Ingest(ctx context.Context, items []attendance.Item, ref time.Time) (attendance.BatchResult, error)
}

// DayReader serves the per-day attendance view.
type DayReader interface {
	ListByDay(ctx context.Context, w attendance.DayWindow) ([]attendance.RecordWithStudent, error)
}

// ReportWriter renders the export.
type ReportWriter interface {
	WriteXLSX(ctx context.Context, w io.Writer) error
}

// Handler owns the HTTP surface.
type Handler struct {
	roster RosterService
	engine Engine
	days   DayReader
	report ReportWriter
	loc    *time.Location
}

// New creates a handler. loc fixes how date path parameters are bucketed.
func New(rs RosterService, engine Engine, days DayReader, report ReportWriter, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{roster: rs, engine: engine, days: days, report: report, loc: loc}
}

// Register mounts all routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/students", h.CreateStudent)
	r.GET("/students", h.ListStudents)
	r.DELETE("/students/:id", h.DeleteStudent)
	r.POST("/attendance", h.SubmitAttendance)
	r.GET("/attendance/:date", h.AttendanceByDate)
	r.GET("/export/excel", h.ExportExcel)
}

type createStudentRequest struct {
	Name          string `json:"name"`
	RollNo        string `json:"rollNo"`
	GuardianPhone string `json:"parentMobile"`
}

// CreateStudent adds a roster entry.
func (h *Handler) CreateStudent(c *gin.Context) {
	var req createStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := h.roster.CreateStudent(c.Request.Context(), roster.Student{
		Name:          req.Name,
		RollNo:        req.RollNo,
		GuardianPhone: req.GuardianPhone,
	})
	if err != nil {
		if errors.Is(err, roster.ErrRollTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, st)
}

// ListStudents returns the roster.
func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.roster.ListStudents(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if students == nil {
		students = []roster.Student{}
	}
	c.JSON(http.StatusOK, students)
}

// DeleteStudent removes a student and cascades their attendance records.
func (h *Handler) DeleteStudent(c *gin.Context) {
	removed, err := h.roster.DeleteStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, roster.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete student"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student and attendance deleted", "removed": removed})
}

type ingestItem struct {
	Student string `json:"student"`
	Status  string `json:"status"`
	// Upstream clients sometimes send name/phone alongside; decoding drops
	// them, the roster stays the source of truth for notification content.
}

// SubmitAttendance ingests a batch for today. The payload is either a bare
// JSON array or a {"records": [...]} envelope; anything else is a 400. A
// processed batch is always a 201, even when every item was skipped.
func (h *Handler) SubmitAttendance(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	var entries []ingestItem
	if err := json.Unmarshal(raw, &entries); err != nil {
		var envelope struct {
			Records []ingestItem `json:"records"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Records == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Expected a non-empty array of attendance records"})
			return
		}
		entries = envelope.Records
	}
	if len(entries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Expected a non-empty array of attendance records"})
		return
	}

	items := make([]attendance.Item, len(entries))
	for i, e := range entries {
		items[i] = attendance.Item{StudentID: e.Student, Status: e.Status}
	}

	result, err := h.engine.Ingest(c.Request.Context(), items, time.Time{})
	if err != nil {
		log.Printf("attendance ingest failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error saving attendance"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": result.Summary(), "result": result})
}

// AttendanceByDate lists records for one calendar day (YYYY-MM-DD).
func (h *Handler) AttendanceByDate(c *gin.Context) {
	day, err := time.ParseInLocation("2006-01-02", c.Param("date"), h.loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	records, err := h.days.ListByDay(c.Request.Context(), attendance.WindowFor(day, h.loc))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []attendance.RecordWithStudent{}
	}
	c.JSON(http.StatusOK, records)
}

// ExportExcel serves the attendance history workbook. The file is built in
// memory so a failure can still produce a clean error response.
func (h *Handler) ExportExcel(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.report.WriteXLSX(c.Request.Context(), &buf); err != nil {
		log.Printf("excel export failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export Excel"})
		return
	}
	c.Header("Content-Disposition", "attachment; filename=attendance_report.xlsx")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
