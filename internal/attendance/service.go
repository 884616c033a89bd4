package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"rollbook/internal/notify"
	"rollbook/internal/roster"
)

const dayLayout = "2006-01-02"

// Status is the recorded attendance state for one student and day.
type Status string

// Valid statuses.
const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
)

// ParseStatus validates a wire status value.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPresent, StatusAbsent:
		return Status(s), true
	}
	return "", false
}

// Record is one student's attendance for one calendar day. StudentID is a
// weak reference; rows are removed by the roster delete cascade rather than
// a foreign key.
type Record struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student"`
	Day        time.Time `json:"date"`
	Status     Status    `json:"status"`
	RecordedAt time.Time `json:"recordedAt"`
}

// RecordWithStudent is a record joined with roster details for read views.
type RecordWithStudent struct {
	Record
	StudentName string `json:"studentName"`
	RollNo      string `json:"rollNo"`
}

// DayWindow is the half-open interval [Start, End) covering one calendar day.
type DayWindow struct {
	Start time.Time
	End   time.Time
}

// WindowFor buckets t into its calendar day in loc.
func WindowFor(t time.Time, loc *time.Location) DayWindow {
	y, m, d := t.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return DayWindow{Start: start, End: start.AddDate(0, 0, 1)}
}

// DayString returns the window's day in YYYY-MM-DD form.
func (w DayWindow) DayString() string {
	return w.Start.Format(dayLayout)
}

// Item is one entry of a submitted batch. Upstream payloads may carry extra
// fields (name, phone); the engine ignores them and trusts the roster.
type Item struct {
	StudentID string `json:"student"`
	Status    string `json:"status"`
}

// Per-item outcomes.
const (
	OutcomeCreated   = "created"
	OutcomeDuplicate = "duplicate-skipped"
	OutcomeInvalid   = "invalid-skipped"
)

// Per-item notification outcomes.
const (
	NotifyNone      = ""
	NotifySent      = "sent"
	NotifyFailed    = "failed"
	NotifyNoContact = "skipped-no-contact"
)

// ItemResult reports what happened to one batch item.
type ItemResult struct {
	Index        int    `json:"index"`
	StudentID    string `json:"student"`
	Outcome      string `json:"outcome"`
	Notification string `json:"notification,omitempty"`
	Detail       string `json:"detail,omitempty"`
}

// BatchResult aggregates one ingestion call.
type BatchResult struct {
	Day        string       `json:"date"`
	Items      []ItemResult `json:"items"`
	Created    int          `json:"created"`
	Duplicates int          `json:"duplicates"`
	Invalid    int          `json:"invalid"`
	Sent       int          `json:"notificationsSent"`
	Failed     int          `json:"notificationsFailed"`
	NoContact  int          `json:"notificationsSkipped"`
}

// Summary is the human-readable line returned to the caller.
func (b BatchResult) Summary() string {
	return fmt.Sprintf("attendance saved: %d created, %d duplicate, %d invalid; sms sent to %d absentee(s)",
		b.Created, b.Duplicates, b.Invalid, b.Sent)
}

func (b *BatchResult) add(ir ItemResult) {
	b.Items = append(b.Items, ir)
	switch ir.Outcome {
	case OutcomeCreated:
		b.Created++
	case OutcomeDuplicate:
		b.Duplicates++
	case OutcomeInvalid:
		b.Invalid++
	}
	switch ir.Notification {
	case NotifySent:
		b.Sent++
	case NotifyFailed:
		b.Failed++
	case NotifyNoContact:
		b.NoContact++
	}
}

// RecordStore is the persistence contract the engine writes through. Insert
// must reject a racing duplicate with ErrDuplicateDay; the engine's own
// lookup is only an optimization.
type RecordStore interface {
	FindByStudentAndDay(ctx context.Context, studentID string, w DayWindow) (*Record, error)
	Insert(ctx context.Context, rec Record) (Record, error)
}

// Service is the batch ingestion engine.
type Service struct {
	store       RecordStore
	students    roster.Directory
	notifier    notify.Notifier
	countryCode string
	loc         *time.Location
}

// NewService creates an engine. countryCode is prepended to guardian numbers
// stored without an international prefix; loc fixes the day boundary.
func NewService(store RecordStore, students roster.Directory, notifier notify.Notifier, countryCode string, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, students: students, notifier: notifier, countryCode: countryCode, loc: loc}
}

// Ingest processes a batch of submissions for the day containing ref
// (time.Now when zero). Items are handled in order and isolated from each
// other: malformed items and duplicate days are skipped, a notification
// failure never unwinds the stored record or stops the batch. Only a store
// failure aborts the call.
func (s *Service) Ingest(ctx context.Context, items []Item, ref time.Time) (BatchResult, error) {
	if len(items) == 0 {
		return BatchResult{}, errors.New("empty batch")
	}
	if ref.IsZero() {
		ref = time.Now()
	}
	w := WindowFor(ref, s.loc)
	res := BatchResult{Day: w.DayString()}

	for i, item := range items {
		ir := ItemResult{Index: i, StudentID: item.StudentID}

		status, ok := ParseStatus(item.Status)
		if item.StudentID == "" || !ok {
			ir.Outcome = OutcomeInvalid
			ir.Detail = "student id and a status of Present or Absent required"
			invalidItems.Inc()
			res.add(ir)
			continue
		}

		existing, err := s.store.FindByStudentAndDay(ctx, item.StudentID, w)
		if err != nil {
			return res, fmt.Errorf("attendance lookup for %s: %w", item.StudentID, err)
		}
		if existing != nil {
			ir.Outcome = OutcomeDuplicate
			duplicateItems.Inc()
			res.add(ir)
			continue
		}

		_, err = s.store.Insert(ctx, Record{StudentID: item.StudentID, Day: w.Start, Status: status})
		if errors.Is(err, ErrDuplicateDay) {
			// Lost the race to a concurrent writer; same as finding the row.
			ir.Outcome = OutcomeDuplicate
			duplicateItems.Inc()
			res.add(ir)
			continue
		}
		if err != nil {
			return res, fmt.Errorf("attendance insert for %s: %w", item.StudentID, err)
		}
		recordsCreated.Inc()
		ir.Outcome = OutcomeCreated

		if status == StatusAbsent {
			ir.Notification = s.notifyAbsence(ctx, item.StudentID, w)
			notifications.WithLabelValues(ir.Notification).Inc()
		}
		res.add(ir)
	}
	return res, nil
}

// notifyAbsence attempts the guardian SMS for an absent student. The record
// is already persisted; whatever happens here only shows up in the item
// outcome.
func (s *Service) notifyAbsence(ctx context.Context, studentID string, w DayWindow) string {
	st, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		log.Printf("student lookup %s failed, sms not sent: %v", studentID, err)
		return NotifyFailed
	}
	if st == nil || st.GuardianPhone == "" {
		return NotifyNoContact
	}

	to := notify.FormatE164(st.GuardianPhone, s.countryCode)
	body := fmt.Sprintf("Your child %s was absent on %s.", st.Name, w.DayString())
	sid, err := s.notifier.Send(ctx, to, body)
	if err != nil {
		log.Printf("sms to %s failed: %v", to, err)
		return NotifyFailed
	}
	log.Printf("sms sent to %s (sid %s)", to, sid)
	return NotifySent
}
