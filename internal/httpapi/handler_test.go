package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollbook/internal/attendance"
	"rollbook/internal/httpapi"
	"rollbook/internal/roster"
)

type fakeRoster struct {
	students   []roster.Student
	deleteErr  error
	deletedIDs []string
	removed    int64
}

func (f *fakeRoster) CreateStudent(_ context.Context, st roster.Student) (roster.Student, error) {
	if st.Name == "" {
		return roster.Student{}, errors.New("name required")
	}
	st.ID = "id-" + st.RollNo
	f.students = append(f.students, st)
	return st, nil
}

func (f *fakeRoster) ListStudents(context.Context) ([]roster.Student, error) {
	return f.students, nil
}

func (f *fakeRoster) DeleteStudent(_ context.Context, id string) (int64, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, id)
	return f.removed, nil
}

type fakeEngine struct {
	gotItems []attendance.Item
	result   attendance.BatchResult
	err      error
}

func (f *fakeEngine) Ingest(_ context.Context, items []attendance.Item, _ time.Time) (attendance.BatchResult, error) {
	f.gotItems = items
	return f.result, f.err
}

type fakeDays struct {
	records []attendance.RecordWithStudent
	got     attendance.DayWindow
}

func (f *fakeDays) ListByDay(_ context.Context, w attendance.DayWindow) ([]attendance.RecordWithStudent, error) {
	f.got = w
	return f.records, nil
}

type fakeReport struct{ err error }

func (f *fakeReport) WriteXLSX(_ context.Context, w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	_, err := w.Write([]byte("xlsx-bytes"))
	return err
}

func newRouter(rs *fakeRoster, engine *fakeEngine, days *fakeDays, report *fakeReport) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	httpapi.New(rs, engine, days, report, time.UTC).Register(r)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubmitAttendanceBareArray(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{result: attendance.BatchResult{Created: 2}}
	r := newRouter(&fakeRoster{}, engine, &fakeDays{}, &fakeReport{})

	w := do(r, http.MethodPost, "/attendance",
		`[{"student":"S1","status":"Present"},{"student":"S2","status":"Absent","name":"extra ignored"}]`)

	assert.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, engine.gotItems, 2)
	assert.Equal(t, attendance.Item{StudentID: "S2", Status: "Absent"}, engine.gotItems[1])
}

func TestSubmitAttendanceEnvelope(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{result: attendance.BatchResult{Duplicates: 1}}
	r := newRouter(&fakeRoster{}, engine, &fakeDays{}, &fakeReport{})

	w := do(r, http.MethodPost, "/attendance", `{"records":[{"student":"S1","status":"Present"}]}`)

	assert.Equal(t, http.StatusCreated, w.Code, "a batch of only skips is still processed")
	require.Len(t, engine.gotItems, 1)
}

func TestSubmitAttendanceRejectsBadPayloads(t *testing.T) {
	t.Parallel()

	for _, body := range []string{`{}`, `[]`, `"nope"`, `{"records":null}`, ``} {
		engine := &fakeEngine{}
		r := newRouter(&fakeRoster{}, engine, &fakeDays{}, &fakeReport{})
		w := do(r, http.MethodPost, "/attendance", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "payload %q", body)
		assert.Nil(t, engine.gotItems)
	}
}

func TestSubmitAttendanceStoreOutageIs500(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{err: errors.New("store unreachable")}
	r := newRouter(&fakeRoster{}, engine, &fakeDays{}, &fakeReport{})

	w := do(r, http.MethodPost, "/attendance", `[{"student":"S1","status":"Present"}]`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestDeleteStudentNotFound(t *testing.T) {
	t.Parallel()

	r := newRouter(&fakeRoster{deleteErr: roster.ErrNotFound}, &fakeEngine{}, &fakeDays{}, &fakeReport{})
	w := do(r, http.MethodDelete, "/students/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteStudentReportsCascade(t *testing.T) {
	t.Parallel()

	rs := &fakeRoster{removed: 4}
	r := newRouter(rs, &fakeEngine{}, &fakeDays{}, &fakeReport{})

	w := do(r, http.MethodDelete, "/students/S1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"S1"}, rs.deletedIDs)

	var resp struct {
		Removed int64 `json:"removed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(4), resp.Removed)
}

func TestCreateAndListStudents(t *testing.T) {
	t.Parallel()

	rs := &fakeRoster{}
	r := newRouter(rs, &fakeEngine{}, &fakeDays{}, &fakeReport{})

	w := do(r, http.MethodPost, "/students", `{"name":"Anita","rollNo":"7","parentMobile":"9876543210"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodPost, "/students", `{"rollNo":"8"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/students", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var students []roster.Student
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &students))
	require.Len(t, students, 1)
	assert.Equal(t, "Anita", students[0].Name)
}

func TestAttendanceByDate(t *testing.T) {
	t.Parallel()

	days := &fakeDays{}
	r := newRouter(&fakeRoster{}, &fakeEngine{}, days, &fakeReport{})

	w := do(r, http.MethodGet, "/attendance/2024-05-01", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-05-01", days.got.DayString())

	w = do(r, http.MethodGet, "/attendance/not-a-date", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportExcel(t *testing.T) {
	t.Parallel()

	r := newRouter(&fakeRoster{}, &fakeEngine{}, &fakeDays{}, &fakeReport{})
	w := do(r, http.MethodGet, "/export/excel", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attendance_report.xlsx")
	assert.Equal(t, "xlsx-bytes", w.Body.String())

	r = newRouter(&fakeRoster{}, &fakeEngine{}, &fakeDays{}, &fakeReport{err: errors.New("db down")})
	w = do(r, http.MethodGet, "/export/excel", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
