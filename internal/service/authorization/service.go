package authorization

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/medhq/hms-core/internal/model"
	"github.com/medhq/hms-core/internal/repository"
	apperrors "github.com/medhq/hms-core/pkg/errors"
)

const (
	codePrefix       = "AUTH"
	codeSuffixLen    = 6
	codeCharset      = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts  = 10
	defaultExpiryDay = 30
)

// patientPortionRate is the fraction of a prescription total an NHIA
// patient pays out of pocket; the authorization covers the remainder,
// but the default code amount records the patient portion.
var patientPortionRate = decimal.NewFromFloat(0.10)

// referralBaseRate backs specialties without an explicit rate.
var referralBaseRate = decimal.NewFromInt(500)

var referralSpecialtyRates = map[string]decimal.Decimal{
	"cardiology":  decimal.NewFromInt(2000),
	"oncology":    decimal.NewFromInt(2500),
	"neurology":   decimal.NewFromInt(2000),
	"orthopedics": decimal.NewFromInt(1500),
	"ophthalmic":  decimal.NewFromInt(1000),
	"dental":      decimal.NewFromInt(800),
	"ent":         decimal.NewFromInt(800),
}

// record is the normalized view of any authorizable clinical record.
type record struct {
	info           RecordInfo
	id             uuid.UUID
	patientID      uuid.UUID
	consultationID *uuid.UUID
	requiresAuth   bool
	authStatus     string
	codeID         *uuid.UUID
	defaultAmount  decimal.Decimal
	description    string
}

type Service struct {
	codes         repository.AuthorizationRepository
	clinical      repository.ClinicalRepository
	patients      repository.PatientRepository
	prescriptions repository.PrescriptionRepository
	pharmacy      repository.PharmacyRepository
	logger        zerolog.Logger
	now           func() time.Time
	randIntn      func(int) int
}

func NewService(
	codes repository.AuthorizationRepository,
	clinical repository.ClinicalRepository,
	patients repository.PatientRepository,
	prescriptions repository.PrescriptionRepository,
	pharmacy repository.PharmacyRepository,
	logger zerolog.Logger,
) *Service {
	return &Service{
		codes:         codes,
		clinical:      clinical,
		patients:      patients,
		prescriptions: prescriptions,
		pharmacy:      pharmacy,
		logger:        logger,
		now:           time.Now,
		randIntn:      cryptoIntn,
	}
}

// cryptoIntn draws a uniform int in [0, n) from crypto/rand.
func cryptoIntn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic(err)
	}
	return int(v.Int64())
}

// GenerateRequest carries the desk office input for issuing a code.
type GenerateRequest struct {
	RecordKind string          `json:"record_kind" binding:"required"`
	RecordID   uuid.UUID       `json:"record_id" binding:"required"`
	Amount     decimal.Decimal `json:"amount"`
	ExpiryDays int             `json:"expiry_days"`
	Notes      string          `json:"notes"`
	ManualCode string          `json:"manual_code"`
	IssuedBy   uuid.UUID       `json:"-"`
}

// GenerateCode issues an authorization code against a clinical record
// and stamps the record authorized. A zero amount falls back to the
// service-specific default; a manual code must be unique.
func (s *Service) GenerateCode(ctx context.Context, req *GenerateRequest) (*model.AuthorizationCode, error) {
	rec, err := s.fetchRecord(ctx, req.RecordKind, req.RecordID)
	if err != nil {
		return nil, err
	}

	patient, err := s.patients.Get(ctx, rec.patientID)
	if err != nil {
		return nil, err
	}
	if !patient.IsNHIA() {
		return nil, apperrors.BadRequest("authorization codes apply to NHIA patients only")
	}
	if !rec.requiresAuth {
		return nil, apperrors.BadRequest("record does not require authorization")
	}
	if rec.authStatus == model.RecordAuthAuthorized && rec.codeID != nil {
		existing, err := s.codes.GetCode(ctx, *rec.codeID)
		if err == nil && existing.IsValid(s.now()) {
			return nil, apperrors.NewConflict("record already has a valid authorization code")
		}
	}

	amount := req.Amount
	if amount.IsZero() {
		amount = rec.defaultAmount
	}
	expiryDays := req.ExpiryDays
	if expiryDays <= 0 {
		expiryDays = defaultExpiryDay
	}

	value, err := s.resolveCodeValue(ctx, req.ManualCode)
	if err != nil {
		return nil, err
	}

	code := &model.AuthorizationCode{
		Code:        value,
		PatientID:   rec.patientID,
		RecordKind:  rec.info.Kind,
		RecordID:    rec.id,
		ServiceType: rec.info.ServiceType,
		Amount:      amount,
		Status:      model.AuthCodeStatusActive,
		IssuedBy:    req.IssuedBy,
		ExpiresAt:   s.now().AddDate(0, 0, expiryDays),
		Notes:       req.Notes,
	}
	if err := s.codes.CreateCode(ctx, code); err != nil {
		return nil, err
	}

	if err := s.clinical.SetAuthorization(ctx, rec.info.Table, rec.id, model.RecordAuthAuthorized, &code.ID); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("code", code.Code).
		Str("record_kind", rec.info.Kind).
		Str("record_id", rec.id.String()).
		Str("amount", amount.String()).
		Msg("authorization code issued")
	return code, nil
}

// resolveCodeValue returns the manual code after a uniqueness check,
// or generates AUTH-YYYYMMDD-XXXXXX retrying on collision.
func (s *Service) resolveCodeValue(ctx context.Context, manual string) (string, error) {
	if manual != "" {
		exists, err := s.codes.CodeExists(ctx, manual)
		if err != nil {
			return "", err
		}
		if exists {
			return "", &apperrors.DuplicateCodeError{Code: manual}
		}
		return manual, nil
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		value := s.buildCodeValue()
		exists, err := s.codes.CodeExists(ctx, value)
		if err != nil {
			return "", err
		}
		if !exists {
			return value, nil
		}
	}
	return "", &apperrors.CodeGenerationError{Attempts: maxCodeAttempts}
}

func (s *Service) buildCodeValue() string {
	var sb strings.Builder
	sb.WriteString(codePrefix)
	sb.WriteByte('-')
	sb.WriteString(s.now().Format("20060102"))
	sb.WriteByte('-')
	for i := 0; i < codeSuffixLen; i++ {
		sb.WriteByte(codeCharset[s.randIntn(len(codeCharset))])
	}
	return sb.String()
}

// CancelCode voids an active code and resets the record to required.
func (s *Service) CancelCode(ctx context.Context, codeID uuid.UUID) error {
	code, err := s.codes.GetCode(ctx, codeID)
	if err != nil {
		return err
	}
	if code.Status != model.AuthCodeStatusActive {
		return apperrors.BadRequest("only active codes can be cancelled")
	}
	if err := s.codes.UpdateCodeStatus(ctx, codeID, model.AuthCodeStatusCancelled, nil); err != nil {
		return err
	}

	if info, ok := RecordInfoFor(code.RecordKind); ok {
		if err := s.clinical.SetAuthorization(ctx, info.Table, code.RecordID, model.RecordAuthRequired, nil); err != nil {
			s.logger.Error().Err(err).Str("code", code.Code).Msg("failed to reset record after code cancellation")
		}
	}
	return nil
}

// UseCode marks a code consumed by a claim. A non-zero claim amount
// must match the amount the code was issued for.
func (s *Service) UseCode(ctx context.Context, value string, claimAmount decimal.Decimal) (*model.AuthorizationCode, error) {
	code, err := s.codes.GetCodeByValue(ctx, value)
	if err != nil {
		return nil, err
	}
	if !code.IsValid(s.now()) {
		return nil, apperrors.BadRequest("authorization code is not active")
	}
	if !claimAmount.IsZero() && !claimAmount.Equal(code.Amount) {
		return nil, &apperrors.AmountMismatchError{Expected: code.Amount, Got: claimAmount}
	}
	usedAt := s.now()
	if err := s.codes.UpdateCodeStatus(ctx, code.ID, model.AuthCodeStatusUsed, &usedAt); err != nil {
		return nil, err
	}
	code.Status = model.AuthCodeStatusUsed
	code.UsedAt = &usedAt
	return code, nil
}

// ValidateCode checks a code value without consuming it.
func (s *Service) ValidateCode(ctx context.Context, value string) (*model.AuthorizationCode, error) {
	code, err := s.codes.GetCodeByValue(ctx, value)
	if err != nil {
		return nil, err
	}
	if !code.IsValid(s.now()) {
		return nil, apperrors.BadRequest("authorization code is expired, used or cancelled")
	}
	return code, nil
}

// ListPending returns the desk office dashboard of records waiting
// for authorization.
func (s *Service) ListPending(ctx context.Context) ([]*model.PendingAuthorization, error) {
	return s.clinical.ListPendingAuthorizations(ctx)
}

// ListCodes filters issued codes by patient and status.
func (s *Service) ListCodes(ctx context.Context, patientID uuid.UUID, status string) ([]*model.AuthorizationCode, error) {
	return s.codes.ListCodes(ctx, patientID, status)
}

// fetchRecord loads any supported record kind into the normalized
// view, computing the service-specific default amount.
func (s *Service) fetchRecord(ctx context.Context, kind string, id uuid.UUID) (*record, error) {
	info, ok := RecordInfoFor(kind)
	if !ok {
		return nil, &apperrors.UnsupportedRecordError{Kind: kind}
	}

	switch kind {
	case "consultation":
		c, err := s.clinical.GetConsultation(ctx, id)
		if err != nil {
			return nil, err
		}
		return &record{
			info: info, id: c.ID, patientID: c.PatientID,
			requiresAuth: c.RequiresAuthorization, authStatus: c.AuthorizationStatus,
			codeID: c.AuthorizationCodeID, description: c.ChiefComplaint,
		}, nil
	case "referral":
		ref, err := s.clinical.GetReferral(ctx, id)
		if err != nil {
			return nil, err
		}
		return &record{
			info: info, id: ref.ID, patientID: ref.PatientID, consultationID: ref.ConsultationID,
			requiresAuth: ref.RequiresAuthorization, authStatus: ref.AuthorizationStatus,
			codeID: ref.AuthorizationCodeID, description: ref.Reason,
			defaultAmount: referralRate(ref.Specialty),
		}, nil
	case "prescription":
		p, err := s.prescriptions.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		amount, err := s.prescriptionPatientPortion(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		return &record{
			info: info, id: p.ID, patientID: p.PatientID,
			requiresAuth: p.RequiresAuthorization, authStatus: p.AuthorizationStatus,
			codeID: p.AuthorizationCodeID, description: p.Notes,
			defaultAmount: amount,
		}, nil
	case "test_request":
		tr, err := s.clinical.GetTestRequest(ctx, id)
		if err != nil {
			return nil, err
		}
		return &record{
			info: info, id: tr.ID, patientID: tr.PatientID, consultationID: tr.ConsultationID,
			requiresAuth: tr.RequiresAuthorization, authStatus: tr.AuthorizationStatus,
			codeID: tr.AuthorizationCodeID, defaultAmount: tr.TotalPrice,
		}, nil
	case "radiology_order":
		ro, err := s.clinical.GetRadiologyOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		return &record{
			info: info, id: ro.ID, patientID: ro.PatientID, consultationID: ro.ConsultationID,
			requiresAuth: ro.RequiresAuthorization, authStatus: ro.AuthorizationStatus,
			codeID: ro.AuthorizationCodeID, description: ro.StudyType,
			defaultAmount: ro.Price,
		}, nil
	case "surgery":
		sg, err := s.clinical.GetSurgery(ctx, id)
		if err != nil {
			return nil, err
		}
		return &record{
			info: info, id: sg.ID, patientID: sg.PatientID,
			requiresAuth: sg.RequiresAuthorization, authStatus: sg.AuthorizationStatus,
			codeID: sg.AuthorizationCodeID, description: sg.ProcedureName,
			defaultAmount: sg.Fee,
		}, nil
	default:
		sr, err := s.clinical.GetSpecialtyRecord(ctx, kind, id)
		if err != nil {
			return nil, err
		}
		return &record{
			info: info, id: sr.ID, patientID: sr.PatientID, consultationID: sr.ConsultationID,
			requiresAuth: sr.RequiresAuthorization, authStatus: sr.AuthorizationStatus,
			codeID: sr.AuthorizationCodeID, description: sr.Summary,
			defaultAmount: sr.Fee,
		}, nil
	}
}

// prescriptionPatientPortion computes the ten percent patient share of
// the prescription's medication cost.
func (s *Service) prescriptionPatientPortion(ctx context.Context, prescriptionID uuid.UUID) (decimal.Decimal, error) {
	items, err := s.prescriptions.GetItems(ctx, prescriptionID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, item := range items {
		med, err := s.pharmacy.GetMedication(ctx, item.MedicationID)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(med.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total.Mul(patientPortionRate).Round(2), nil
}

func referralRate(specialty string) decimal.Decimal {
	if rate, ok := referralSpecialtyRates[strings.ToLower(specialty)]; ok {
		return rate
	}
	return referralBaseRate
}

// ExpireStale marks active codes past their expiry date as expired.
// Intended for the background worker.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	codes, err := s.codes.ListCodes(ctx, uuid.Nil, model.AuthCodeStatusActive)
	if err != nil {
		return 0, err
	}
	expired := 0
	now := s.now()
	for _, code := range codes {
		if now.After(code.ExpiresAt) {
			if err := s.codes.UpdateCodeStatus(ctx, code.ID, model.AuthCodeStatusExpired, nil); err != nil {
				return expired, err
			}
			expired++
		}
	}
	return expired, nil
}

