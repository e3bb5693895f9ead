package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-reg-api/internal/dto"
	"github.com/noah-isme/course-reg-api/internal/models"
	appErrors "github.com/noah-isme/course-reg-api/pkg/errors"
	"github.com/noah-isme/course-reg-api/pkg/export"
)

type mockStudentRepo struct {
	students map[string]*models.Student
	byNISN   map[string]*models.Student
	byQR     map[string]*models.Student
	deleted  []string
}

func newMockStudentRepo(students ...*models.Student) *mockStudentRepo {
	m := &mockStudentRepo{
		students: make(map[string]*models.Student),
		byNISN:   make(map[string]*models.Student),
		byQR:     make(map[string]*models.Student),
	}
	for _, st := range students {
		m.students[st.ID] = st
		m.byNISN[st.NISN] = st
		m.byQR[st.QRCode] = st
	}
	return m
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = "student-new"
	}
	if student.QRCode == "" {
		student.QRCode = "qr-new"
	}
	m.students[student.ID] = student
	m.byNISN[student.NISN] = student
	m.byQR[student.QRCode] = student
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	m.students[student.ID] = student
	return nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.students, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if st, ok := m.students[id]; ok {
		return st, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) FindByNISN(ctx context.Context, nisn string) (*models.Student, error) {
	if st, ok := m.byNISN[nisn]; ok {
		return st, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) FindByQRCode(ctx context.Context, qrCode string) (*models.Student, error) {
	if st, ok := m.byQR[qrCode]; ok {
		return st, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) ExistsNISN(ctx context.Context, nisn string) (bool, error) {
	_, ok := m.byNISN[nisn]
	return ok, nil
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	var list []models.Student
	for _, st := range m.students {
		list = append(list, *st)
	}
	return list, len(list), nil
}

func (m *mockStudentRepo) ListAll(ctx context.Context) ([]models.Student, error) {
	var list []models.Student
	for _, st := range m.students {
		list = append(list, *st)
	}
	return list, nil
}

type mockStudentAudits struct {
	logs []models.AuditLog
}

func (m *mockStudentAudits) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

type mockCardRenderer struct {
	rendered []export.CardData
	err      error
}

func (m *mockCardRenderer) Render(card export.CardData) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.rendered = append(m.rendered, card)
	return []byte("%PDF-1.4 fake"), nil
}

type mockCardStorage struct {
	saved   map[string][]byte
	deleted []string
}

func (m *mockCardStorage) Save(filename string, data []byte) (string, error) {
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[filename] = data
	return "cards/" + filename, nil
}

func (m *mockCardStorage) Open(filename string) (*os.File, error) {
	return nil, os.ErrNotExist
}

func (m *mockCardStorage) Delete(filename string) error {
	m.deleted = append(m.deleted, filename)
	return nil
}

type mockCardSigner struct {
	parseErr error
}

func (m *mockCardSigner) Generate(recordID, relPath string) (string, time.Time, error) {
	return "signed-" + recordID, time.Now().UTC().Add(time.Hour), nil
}

func (m *mockCardSigner) Parse(token string, allowExpired bool) (string, string, time.Time, error) {
	if m.parseErr != nil {
		return "", "", time.Time{}, m.parseErr
	}
	recordID := strings.TrimPrefix(token, "signed-")
	return recordID, "cards/" + recordID + ".pdf", time.Now().UTC().Add(time.Hour), nil
}

func sampleStudent() *models.Student {
	return &models.Student{
		ID:             "student-1",
		NISN:           "0051234567",
		FullName:       "Budi Santoso",
		Gender:         models.GenderMale,
		BirthPlace:     "Bandung",
		BirthDate:      time.Date(2009, time.May, 2, 0, 0, 0, 0, time.UTC),
		Hamlet:         "Dusun 1",
		Village:        "Sukamaju",
		District:       "Cibiru",
		FullAddress:    "Jl. Kenanga 5",
		Phone:          "0812345678",
		Religion:       models.ReligionIslam,
		SiblingCount:   2,
		ChildOrder:     1,
		LivingStatus:   models.LivingWithParents,
		PreviousSchool: "SMP 1 Bandung",
		QRCode:         "qr-student-1",
		AdmissionType:  models.AdmissionNew,
	}
}

func createStudentPayload() dto.CreateStudentRequest {
	return dto.CreateStudentRequest{
		NISN:           "0059876543",
		FullName:       "Siti Rahma",
		Gender:         models.GenderFemale,
		BirthPlace:     "Garut",
		BirthDate:      time.Date(2009, time.August, 17, 0, 0, 0, 0, time.UTC),
		Hamlet:         "Dusun 2",
		Village:        "Mekarsari",
		District:       "Cibiru",
		FullAddress:    "Jl. Mawar 3",
		Phone:          "0812000111",
		Religion:       models.ReligionIslam,
		SiblingCount:   1,
		ChildOrder:     2,
		LivingStatus:   models.LivingWithParents,
		PreviousSchool: "SMP 2 Garut",
		AdmissionType:  models.AdmissionNew,
	}
}

func newStudentService(repo *mockStudentRepo, audits *mockStudentAudits, storage *mockCardStorage, signer *mockCardSigner) *StudentService {
	if audits == nil {
		audits = &mockStudentAudits{}
	}
	if storage == nil {
		storage = &mockCardStorage{}
	}
	if signer == nil {
		signer = &mockCardSigner{}
	}
	return NewStudentService(repo, audits, &mockCardRenderer{}, storage, signer, nil, zap.NewNop())
}

func TestStudentServiceCreateAssignsQRCode(t *testing.T) {
	repo := newMockStudentRepo()
	svc := newStudentService(repo, nil, nil, nil)

	student, err := svc.Create(context.Background(), createStudentPayload())
	require.NoError(t, err)
	assert.NotEmpty(t, student.QRCode)
	assert.Equal(t, "0059876543", student.NISN)
}

func TestStudentServiceCreateDuplicateNISN(t *testing.T) {
	repo := newMockStudentRepo(sampleStudent())
	svc := newStudentService(repo, nil, nil, nil)

	req := createStudentPayload()
	req.NISN = "0051234567"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict))
}

func TestStudentServiceCreateRejectsShortNISN(t *testing.T) {
	svc := newStudentService(newMockStudentRepo(), nil, nil, nil)

	req := createStudentPayload()
	req.NISN = "123"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestStudentServiceUpdatePartial(t *testing.T) {
	repo := newMockStudentRepo(sampleStudent())
	svc := newStudentService(repo, nil, nil, nil)

	name := "Budi S. Santoso"
	student, err := svc.Update(context.Background(), "student-1", dto.UpdateStudentRequest{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Budi S. Santoso", student.FullName)
	assert.Equal(t, "0051234567", student.NISN)
}

func TestStudentServiceUpdateNISNConflict(t *testing.T) {
	other := sampleStudent()
	other.ID = "student-2"
	other.NISN = "0059999999"
	other.QRCode = "qr-student-2"
	repo := newMockStudentRepo(sampleStudent(), other)
	svc := newStudentService(repo, nil, nil, nil)

	nisn := "0059999999"
	_, err := svc.Update(context.Background(), "student-1", dto.UpdateStudentRequest{NISN: &nisn})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict))
}

func TestStudentServiceDeleteRemovesCard(t *testing.T) {
	repo := newMockStudentRepo(sampleStudent())
	storage := &mockCardStorage{}
	svc := newStudentService(repo, nil, storage, nil)

	require.NoError(t, svc.Delete(context.Background(), "student-1"))
	assert.Equal(t, []string{"student-1"}, repo.deleted)
	assert.Equal(t, []string{"student-1.pdf"}, storage.deleted)
}

func TestStudentServiceDeleteNotFound(t *testing.T) {
	svc := newStudentService(newMockStudentRepo(), nil, nil, nil)

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestStudentServiceIssueCard(t *testing.T) {
	repo := newMockStudentRepo(sampleStudent())
	audits := &mockStudentAudits{}
	storage := &mockCardStorage{}
	svc := newStudentService(repo, audits, storage, nil)

	admin := "admin-1"
	card, err := svc.IssueCard(context.Background(), "student-1", &admin)
	require.NoError(t, err)
	assert.Equal(t, "qr-student-1", card.QRCode)
	assert.Equal(t, "/api/v1/students/cards/download?token=signed-student-1", card.DownloadURL)
	assert.Contains(t, storage.saved, "student-1.pdf")
	require.Len(t, audits.logs, 1)
	assert.Equal(t, models.AuditActionCardIssue, audits.logs[0].Action)
}

func TestStudentServiceIssueCardUnknownStudent(t *testing.T) {
	svc := newStudentService(newMockStudentRepo(), nil, nil, nil)

	_, err := svc.IssueCard(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestStudentServiceOpenCardBadToken(t *testing.T) {
	signer := &mockCardSigner{parseErr: errors.New("token expired")}
	svc := newStudentService(newMockStudentRepo(), nil, nil, signer)

	_, _, err := svc.OpenCard(context.Background(), "whatever")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
}

func TestStudentServiceVerifyQR(t *testing.T) {
	repo := newMockStudentRepo(sampleStudent())
	svc := newStudentService(repo, nil, nil, nil)

	student, err := svc.VerifyQR(context.Background(), "qr-student-1")
	require.NoError(t, err)
	assert.Equal(t, "0051234567", student.NISN)
}

func TestStudentServiceVerifyQRUnknown(t *testing.T) {
	svc := newStudentService(newMockStudentRepo(), nil, nil, nil)

	_, err := svc.VerifyQR(context.Background(), "unknown")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestStudentServiceVerifyQREmpty(t *testing.T) {
	svc := newStudentService(newMockStudentRepo(), nil, nil, nil)

	_, err := svc.VerifyQR(context.Background(), "")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestStudentServiceExportCSV(t *testing.T) {
	repo := newMockStudentRepo(sampleStudent())
	svc := newStudentService(repo, nil, nil, nil)

	payload, filename, err := svc.ExportCSV(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filename, "students-"))
	assert.True(t, strings.HasSuffix(filename, ".csv"))

	body := string(payload)
	assert.Contains(t, body, "nisn,full_name,gender")
	assert.Contains(t, body, "0051234567")
	assert.Contains(t, body, "Budi Santoso")
}
