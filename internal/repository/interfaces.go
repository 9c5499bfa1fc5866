package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medhq/hms-core/internal/model"
)

// All repository interfaces in one file
type (
	// RBACRepository handles roles, permissions and their assignments.
	RBACRepository interface {
		CreateRole(ctx context.Context, role *model.Role) error
		GetRole(ctx context.Context, id uuid.UUID) (*model.Role, error)
		GetRoleByName(ctx context.Context, name string) (*model.Role, error)
		UpdateRole(ctx context.Context, role *model.Role) error
		DeleteRole(ctx context.Context, id uuid.UUID) error
		ListRoles(ctx context.Context) ([]*model.Role, error)

		CreatePermission(ctx context.Context, perm *model.Permission) error
		GetPermissionByCodename(ctx context.Context, codename string) (*model.Permission, error)
		ListPermissions(ctx context.Context) ([]*model.Permission, error)

		AssignPermissionToRole(ctx context.Context, roleID, permissionID uuid.UUID) error
		RevokePermissionFromRole(ctx context.Context, roleID, permissionID uuid.UUID) error
		GetRolePermissions(ctx context.Context, roleID uuid.UUID) ([]*model.Permission, error)

		AssignRoleToUser(ctx context.Context, userRole *model.UserRole) error
		RevokeRoleFromUser(ctx context.Context, userID, roleID uuid.UUID) error
		GetUserRoles(ctx context.Context, userID uuid.UUID) ([]*model.Role, error)
		GetUserPermissions(ctx context.Context, userID uuid.UUID) ([]*model.UserPermission, error)
		CountRoleUsers(ctx context.Context, roleID uuid.UUID) (int, error)
		CountRoleChildren(ctx context.Context, roleID uuid.UUID) (int, error)
	}

	// UserRepository handles staff accounts.
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByUsername(ctx context.Context, username string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
		List(ctx context.Context, filter *model.UserFilter) ([]*model.User, error)
		ListWithoutRoles(ctx context.Context) ([]*model.User, error)
		ListWithLegacyRole(ctx context.Context) ([]*model.User, error)
		ClearLegacyRole(ctx context.Context, userID uuid.UUID) error
	}

	// PatientRepository handles patient records.
	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		List(ctx context.Context, filter *model.BaseFilter) ([]*model.Patient, error)
	}

	// PharmacyRepository handles medications and storage locations.
	PharmacyRepository interface {
		CreateMedication(ctx context.Context, med *model.Medication) error
		GetMedication(ctx context.Context, id uuid.UUID) (*model.Medication, error)
		ListMedications(ctx context.Context, activeOnly bool) ([]*model.Medication, error)

		CreateBulkStore(ctx context.Context, store *model.BulkStore) error
		GetBulkStore(ctx context.Context, id uuid.UUID) (*model.BulkStore, error)
		ListBulkStores(ctx context.Context) ([]*model.BulkStore, error)

		CreateDispensary(ctx context.Context, d *model.Dispensary) error
		GetDispensary(ctx context.Context, id uuid.UUID) (*model.Dispensary, error)
		UpdateDispensary(ctx context.Context, d *model.Dispensary) error
		ListDispensaries(ctx context.Context, activeOnly bool) ([]*model.Dispensary, error)

		CreateActiveStore(ctx context.Context, s *model.ActiveStore) error
		GetActiveStore(ctx context.Context, id uuid.UUID) (*model.ActiveStore, error)
		GetActiveStoreByDispensary(ctx context.Context, dispensaryID uuid.UUID) (*model.ActiveStore, error)
	}

	// AssignmentRepository scopes pharmacists to dispensaries. A user
	// holds at most one active assignment: Create deactivates prior
	// active rows for the user when the new one is active, and
	// ListForUser returns newest first.
	AssignmentRepository interface {
		Create(ctx context.Context, a *model.PharmacistAssignment) error
		Deactivate(ctx context.Context, id uuid.UUID) error
		GetActive(ctx context.Context, userID, dispensaryID uuid.UUID) (*model.PharmacistAssignment, error)
		ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.PharmacistAssignment, error)
		ListForDispensary(ctx context.Context, dispensaryID uuid.UUID) ([]*model.PharmacistAssignment, error)
	}

	// InventoryRepository handles stock lots across the three tiers.
	// WithTx opens a transaction that lot mutations, transfer updates
	// and prescription writes can share.
	InventoryRepository interface {
		WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error

		// Bulk store tier. Lot reads take an optional transaction so
		// cascaded moves see writes from earlier steps of the same
		// transaction.
		UpsertBulkLot(ctx context.Context, tx *sqlx.Tx, lot *model.BulkStoreInventory) error
		GetBulkLots(ctx context.Context, tx *sqlx.Tx, bulkStoreID, medicationID uuid.UUID) ([]*model.BulkStoreInventory, error)
		AdjustBulkLot(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, delta int) error
		DeleteBulkLot(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error

		// Active store tier
		UpsertActiveLot(ctx context.Context, tx *sqlx.Tx, lot *model.ActiveStoreInventory) error
		GetActiveLots(ctx context.Context, tx *sqlx.Tx, activeStoreID, medicationID uuid.UUID) ([]*model.ActiveStoreInventory, error)
		ListActiveLots(ctx context.Context, activeStoreID uuid.UUID) ([]*model.ActiveStoreInventory, error)
		AdjustActiveLot(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, delta int) error
		DeleteActiveLot(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error
		FindDuplicateActiveLots(ctx context.Context) (map[string][]*model.ActiveStoreInventory, error)

		// Dispensary tier, including legacy unbatched rows
		UpsertDispensaryLot(ctx context.Context, tx *sqlx.Tx, lot *model.MedicationInventory) error
		GetDispensaryLots(ctx context.Context, tx *sqlx.Tx, dispensaryID, medicationID uuid.UUID) ([]*model.MedicationInventory, error)
		AdjustDispensaryLot(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, delta int) error
		DeleteDispensaryLot(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error

		// Aggregates
		GetStockLevel(ctx context.Context, tx *sqlx.Tx, tier string, locationID, medicationID uuid.UUID) (int, error)
		ListStockLevels(ctx context.Context, tier string, locationID uuid.UUID) ([]*model.StockLevel, error)
		ListLowStock(ctx context.Context, tier string, locationID uuid.UUID) ([]*model.StockLevel, error)
		ListExpiringLots(ctx context.Context, within time.Duration) ([]*model.ExpiringLot, error)
		LocationStockTotal(ctx context.Context, tier string, locationID uuid.UUID) (int, error)
		SearchStock(ctx context.Context, term string) ([]*model.StockSearchRow, error)

		CreatePurchaseReceipt(ctx context.Context, tx *sqlx.Tx, r *model.PurchaseReceipt) error
	}

	// TransferRepository persists the three transfer kinds.
	TransferRepository interface {
		Create(ctx context.Context, tx *sqlx.Tx, t *model.Transfer) error
		Get(ctx context.Context, kind model.TransferKind, id uuid.UUID) (*model.Transfer, error)
		UpdateStatus(ctx context.Context, tx *sqlx.Tx, t *model.Transfer) error
		List(ctx context.Context, filter *model.TransferFilter) ([]*model.Transfer, error)
		ListByStatus(ctx context.Context, kind model.TransferKind, status string) ([]*model.Transfer, error)
		Stats(ctx context.Context, kind model.TransferKind) (*model.TransferStats, error)
	}

	// PrescriptionRepository handles prescriptions and dispensing logs.
	PrescriptionRepository interface {
		Create(ctx context.Context, tx *sqlx.Tx, p *model.Prescription, items []*model.PrescriptionItem) error
		Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error)
		GetItems(ctx context.Context, prescriptionID uuid.UUID) ([]*model.PrescriptionItem, error)
		UpdateStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status string) error
		RecordDispense(ctx context.Context, tx *sqlx.Tx, itemID uuid.UUID, quantity int, log *model.DispensingLog) error
		ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Prescription, error)
	}

	// PackRepository handles medical packs and pack orders.
	PackRepository interface {
		CreatePack(ctx context.Context, pack *model.MedicalPack, items []*model.PackItem) error
		GetPack(ctx context.Context, id uuid.UUID) (*model.MedicalPack, error)
		GetPackItems(ctx context.Context, packID uuid.UUID) ([]*model.PackItem, error)
		ListPacks(ctx context.Context, packType string) ([]*model.MedicalPack, error)

		CreateOrder(ctx context.Context, order *model.PackOrder) error
		GetOrder(ctx context.Context, id uuid.UUID) (*model.PackOrder, error)
		UpdateOrder(ctx context.Context, tx *sqlx.Tx, order *model.PackOrder) error
		ListOrders(ctx context.Context, status string, dispensaryID uuid.UUID) ([]*model.PackOrder, error)
	}

	// AuthorizationRepository handles NHIA authorization codes and the
	// clinical records they attach to.
	AuthorizationRepository interface {
		CreateCode(ctx context.Context, code *model.AuthorizationCode) error
		GetCode(ctx context.Context, id uuid.UUID) (*model.AuthorizationCode, error)
		GetCodeByValue(ctx context.Context, code string) (*model.AuthorizationCode, error)
		UpdateCodeStatus(ctx context.Context, id uuid.UUID, status string, usedAt *time.Time) error
		ListCodes(ctx context.Context, patientID uuid.UUID, status string) ([]*model.AuthorizationCode, error)
		CodeExists(ctx context.Context, code string) (bool, error)
	}

	// ClinicalRepository reads and stamps the record kinds that can
	// require authorization.
	ClinicalRepository interface {
		GetConsultation(ctx context.Context, id uuid.UUID) (*model.Consultation, error)
		GetReferral(ctx context.Context, id uuid.UUID) (*model.Referral, error)
		GetTestRequest(ctx context.Context, id uuid.UUID) (*model.TestRequest, error)
		GetRadiologyOrder(ctx context.Context, id uuid.UUID) (*model.RadiologyOrder, error)
		GetSurgery(ctx context.Context, id uuid.UUID) (*model.Surgery, error)
		GetSpecialtyRecord(ctx context.Context, kind string, id uuid.UUID) (*model.SpecialtyRecord, error)

		SetAuthorization(ctx context.Context, table string, recordID uuid.UUID, status string, codeID *uuid.UUID) error
		AppendAuthorizationNote(ctx context.Context, table string, recordID uuid.UUID, note string) error
		ListPendingAuthorizations(ctx context.Context) ([]*model.PendingAuthorization, error)
	}
)
