package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-reg-api/internal/dto"
	"github.com/noah-isme/course-reg-api/internal/models"
	appErrors "github.com/noah-isme/course-reg-api/pkg/errors"
	"github.com/noah-isme/course-reg-api/pkg/export"
)

type studentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByNISN(ctx context.Context, nisn string) (*models.Student, error)
	FindByQRCode(ctx context.Context, qrCode string) (*models.Student, error)
	ExistsNISN(ctx context.Context, nisn string) (bool, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	ListAll(ctx context.Context) ([]models.Student, error)
}

type studentAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type cardRenderer interface {
	Render(card export.CardData) ([]byte, error)
}

type cardStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type cardURLSigner interface {
	Generate(recordID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (recordID, relPath string, expiresAt time.Time, err error)
}

// StudentService manages the NISN-keyed admission records, issues printable
// identity cards and resolves the QR code printed on them. Cards are
// rendered on demand, stored on disk and handed out through signed,
// expiring download tokens.
type StudentService struct {
	repo      studentRepository
	audits    studentAuditRepository
	cards     cardRenderer
	storage   cardStorage
	signer    cardURLSigner
	exporter  *export.CSVExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService instance.
func NewStudentService(repo studentRepository, audits studentAuditRepository, cards cardRenderer, storage cardStorage, signer cardURLSigner, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{
		repo:      repo,
		audits:    audits,
		cards:     cards,
		storage:   storage,
		signer:    signer,
		exporter:  export.NewCSVExporter(),
		validator: validate,
		logger:    logger,
	}
}

// Create registers a new student record. The QR identifier is assigned by
// the repository and never accepted from the payload.
func (s *StudentService) Create(ctx context.Context, req dto.CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	taken, err := s.repo.ExistsNISN(ctx, req.NISN)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check nisn")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "nisn is already registered")
	}

	student := &models.Student{
		NISN:           req.NISN,
		FullName:       req.FullName,
		Gender:         req.Gender,
		BirthPlace:     req.BirthPlace,
		BirthDate:      req.BirthDate,
		Hamlet:         req.Hamlet,
		Village:        req.Village,
		District:       req.District,
		FullAddress:    req.FullAddress,
		Phone:          req.Phone,
		Religion:       req.Religion,
		SiblingCount:   req.SiblingCount,
		ChildOrder:     req.ChildOrder,
		LivingStatus:   req.LivingStatus,
		PreviousSchool: req.PreviousSchool,
		AdmissionType:  req.AdmissionType,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	s.logger.Info("student record created", zap.String("student_id", student.ID), zap.String("nisn", student.NISN))
	return student, nil
}

// Update applies a partial edit. A NISN change is checked for uniqueness.
func (s *StudentService) Update(ctx context.Context, id string, req dto.UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.NISN != nil && *req.NISN != student.NISN {
		taken, err := s.repo.ExistsNISN(ctx, *req.NISN)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check nisn")
		}
		if taken {
			return nil, appErrors.Clone(appErrors.ErrConflict, "nisn is already registered")
		}
		student.NISN = *req.NISN
	}
	if req.FullName != nil {
		student.FullName = *req.FullName
	}
	if req.Gender != nil {
		student.Gender = *req.Gender
	}
	if req.BirthPlace != nil {
		student.BirthPlace = *req.BirthPlace
	}
	if req.BirthDate != nil {
		student.BirthDate = *req.BirthDate
	}
	if req.Hamlet != nil {
		student.Hamlet = *req.Hamlet
	}
	if req.Village != nil {
		student.Village = *req.Village
	}
	if req.District != nil {
		student.District = *req.District
	}
	if req.FullAddress != nil {
		student.FullAddress = *req.FullAddress
	}
	if req.Phone != nil {
		student.Phone = *req.Phone
	}
	if req.Religion != nil {
		student.Religion = *req.Religion
	}
	if req.SiblingCount != nil {
		student.SiblingCount = *req.SiblingCount
	}
	if req.ChildOrder != nil {
		student.ChildOrder = *req.ChildOrder
	}
	if req.LivingStatus != nil {
		student.LivingStatus = *req.LivingStatus
	}
	if req.PreviousSchool != nil {
		student.PreviousSchool = *req.PreviousSchool
	}
	if req.AdmissionType != nil {
		student.AdmissionType = *req.AdmissionType
	}

	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Delete removes a student record and its stored card file.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	if err := s.storage.Delete(cardFilename(id)); err != nil {
		s.logger.Warn("failed to delete stored card", zap.String("student_id", id), zap.Error(err))
	}
	return nil
}

// Get returns a student by ID.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// GetByNISN returns a student by national student number.
func (s *StudentService) GetByNISN(ctx context.Context, nisn string) (*models.Student, error) {
	student, err := s.repo.FindByNISN(ctx, nisn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// List returns students matching the filter with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// IssueCard renders the student's identity card, stores the PDF and returns
// the card payload with a signed download link.
func (s *StudentService) IssueCard(ctx context.Context, id string, issuedBy *string) (*dto.StudentCardResponse, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	pdfBytes, err := s.cards.Render(export.CardData{
		NISN:           student.NISN,
		FullName:       student.FullName,
		BirthPlace:     student.BirthPlace,
		BirthDate:      student.BirthDate,
		FullAddress:    student.FullAddress,
		QRCode:         student.QRCode,
		PreviousSchool: student.PreviousSchool,
		IssuedAt:       time.Now().UTC(),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render card")
	}

	relPath, err := s.storage.Save(cardFilename(student.ID), pdfBytes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store card")
	}

	token, expiresAt, err := s.signer.Generate(student.ID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign card url")
	}

	if err := s.audits.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     issuedBy,
		Action:     models.AuditActionCardIssue,
		Resource:   "student_card",
		ResourceID: &student.ID,
		NewValues:  []byte(fmt.Sprintf(`{"nisn":%q}`, student.NISN)),
	}); err != nil {
		s.logger.Warn("failed to record card issue audit log", zap.Error(err))
	}

	return &dto.StudentCardResponse{
		StudentID:   student.ID,
		NISN:        student.NISN,
		FullName:    student.FullName,
		BirthPlace:  student.BirthPlace,
		BirthDate:   student.BirthDate,
		FullAddress: student.FullAddress,
		QRCode:      student.QRCode,
		DownloadURL: fmt.Sprintf("/api/v1/students/cards/download?token=%s", token),
		ExpiresAt:   expiresAt,
	}, nil
}

// OpenCard validates a signed download token and opens the stored PDF.
func (s *StudentService) OpenCard(ctx context.Context, token string) (*os.File, string, error) {
	recordID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download token")
	}

	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "card file not found")
	}
	return file, fmt.Sprintf("student-card-%s.pdf", recordID), nil
}

// VerifyQR resolves the QR identifier printed on a card back to its student.
func (s *StudentService) VerifyQR(ctx context.Context, qrCode string) (*models.Student, error) {
	if qrCode == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "qr code is required")
	}
	student, err := s.repo.FindByQRCode(ctx, qrCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "card is not recognised")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify card")
	}
	return student, nil
}

// ExportCSV renders the whole student roster as CSV.
func (s *StudentService) ExportCSV(ctx context.Context) ([]byte, string, error) {
	students, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}

	headers := []string{"nisn", "full_name", "gender", "birth_place", "birth_date", "village", "district", "full_address", "phone", "religion", "living_status", "previous_school", "admission_type"}
	rows := make([]map[string]string, 0, len(students))
	for _, st := range students {
		rows = append(rows, map[string]string{
			"nisn":            st.NISN,
			"full_name":       st.FullName,
			"gender":          string(st.Gender),
			"birth_place":     st.BirthPlace,
			"birth_date":      st.BirthDate.Format("2006-01-02"),
			"village":         st.Village,
			"district":        st.District,
			"full_address":    st.FullAddress,
			"phone":           st.Phone,
			"religion":        string(st.Religion),
			"living_status":   string(st.LivingStatus),
			"previous_school": st.PreviousSchool,
			"admission_type":  string(st.AdmissionType),
		})
	}

	payload, err := s.exporter.Render(export.Dataset{Headers: headers, Rows: rows})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	filename := fmt.Sprintf("students-%s.csv", time.Now().UTC().Format("20060102-150405"))
	return payload, filename, nil
}

func cardFilename(studentID string) string {
	return fmt.Sprintf("%s.pdf", studentID)
}
