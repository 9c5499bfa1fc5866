package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/medhq/hms-core/internal/repository"
)

type rbacRepository struct {
	BaseRepository
}

type userRepository struct {
	BaseRepository
}

type patientRepository struct {
	BaseRepository
}

type pharmacyRepository struct {
	BaseRepository
}

type assignmentRepository struct {
	BaseRepository
}

type inventoryRepository struct {
	BaseRepository
}

type transferRepository struct {
	BaseRepository
}

type prescriptionRepository struct {
	BaseRepository
}

type packRepository struct {
	BaseRepository
}

type authorizationRepository struct {
	BaseRepository
}

type clinicalRepository struct {
	BaseRepository
}

func NewRBACRepository(db *sqlx.DB) repository.RBACRepository {
	return &rbacRepository{NewBaseRepository(db)}
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{NewBaseRepository(db)}
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{NewBaseRepository(db)}
}

func NewPharmacyRepository(db *sqlx.DB) repository.PharmacyRepository {
	return &pharmacyRepository{NewBaseRepository(db)}
}

func NewAssignmentRepository(db *sqlx.DB) repository.AssignmentRepository {
	return &assignmentRepository{NewBaseRepository(db)}
}

func NewInventoryRepository(db *sqlx.DB) repository.InventoryRepository {
	return &inventoryRepository{NewBaseRepository(db)}
}

func NewTransferRepository(db *sqlx.DB) repository.TransferRepository {
	return &transferRepository{NewBaseRepository(db)}
}

func NewPrescriptionRepository(db *sqlx.DB) repository.PrescriptionRepository {
	return &prescriptionRepository{NewBaseRepository(db)}
}

func NewPackRepository(db *sqlx.DB) repository.PackRepository {
	return &packRepository{NewBaseRepository(db)}
}

func NewAuthorizationRepository(db *sqlx.DB) repository.AuthorizationRepository {
	return &authorizationRepository{NewBaseRepository(db)}
}

func NewClinicalRepository(db *sqlx.DB) repository.ClinicalRepository {
	return &clinicalRepository{NewBaseRepository(db)}
}
