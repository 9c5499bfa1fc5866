package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/medhq/hms-core/internal/config"
	"github.com/medhq/hms-core/internal/model"
	"github.com/medhq/hms-core/internal/repository"
	"github.com/medhq/hms-core/internal/repository/postgres"
	inventoryService "github.com/medhq/hms-core/internal/service/inventory"
	syncService "github.com/medhq/hms-core/internal/service/sync"
	transferService "github.com/medhq/hms-core/internal/service/transfer"
	"github.com/medhq/hms-core/pkg/logger"
	"github.com/medhq/hms-core/pkg/messaging"
)

const usage = `hmsctl runs the maintenance commands operators would otherwise
hand-run in SQL. Commands:

  create-missing-permissions   create permission rows missing from the database
  populate-roles               create well-known roles and grant their permissions
  sync-role-permissions        reconcile role grants against the code catalog
  validate-permissions         audit the permission system for drift and damage
  assign-pharmacist            assign a pharmacist to a dispensary
  merge-duplicate-lots         merge duplicate active store inventory rows
  deliver-transfers            complete all in-transit transfers of a kind
  check-inventory              report low stock and expiring lots
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	appLogger := logger.NewLogger(&logger.Config{
		Level:   logger.ParseLevel(cfg.Logger.Level),
		Console: true,
	})
	zl := *appLogger.Zerolog()

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	rbacRepo := postgres.NewRBACRepository(db)
	userRepo := postgres.NewUserRepository(db)
	pharmacyRepo := postgres.NewPharmacyRepository(db)
	assignmentRepo := postgres.NewAssignmentRepository(db)
	inventoryRepo := postgres.NewInventoryRepository(db)
	transferRepo := postgres.NewTransferRepository(db)

	syncSvc := syncService.NewService(rbacRepo, userRepo, inventoryRepo, zl)
	inventorySvc := inventoryService.NewService(inventoryRepo, pharmacyRepo, zl)
	transferSvc := transferService.NewService(transferRepo, inventoryRepo, inventorySvc, pharmacyRepo, messaging.NopBroker{}, nil, zl)

	ctx := context.Background()

	var runErr error
	switch os.Args[1] {
	case "create-missing-permissions":
		runErr = runCreateMissingPermissions(ctx, syncSvc, os.Args[2:])
	case "populate-roles":
		runErr = runPopulateRoles(ctx, syncSvc, os.Args[2:])
	case "sync-role-permissions":
		runErr = runSyncRolePermissions(ctx, syncSvc, os.Args[2:])
	case "validate-permissions":
		runErr = runValidatePermissions(ctx, syncSvc, os.Args[2:])
	case "assign-pharmacist":
		runErr = runAssignPharmacist(ctx, assignmentRepo, userRepo, pharmacyRepo, zl, os.Args[2:])
	case "merge-duplicate-lots":
		runErr = runMergeDuplicateLots(ctx, syncSvc, os.Args[2:])
	case "deliver-transfers":
		runErr = runDeliverTransfers(ctx, transferSvc, os.Args[2:])
	case "check-inventory":
		runErr = runCheckInventory(ctx, inventorySvc, pharmacyRepo, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if runErr != nil {
		zl.Fatal().Err(runErr).Str("command", os.Args[1]).Msg("command failed")
	}
}

func runCreateMissingPermissions(ctx context.Context, svc *syncService.Service, args []string) error {
	fs := flag.NewFlagSet("create-missing-permissions", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "report without writing")
	onlyCustom := fs.Bool("only-custom", false, "only create custom permissions")
	if err := fs.Parse(args); err != nil {
		return err
	}

	report, err := svc.CreateMissingPermissions(ctx, *dryRun, *onlyCustom)
	if err != nil {
		return err
	}
	for _, cn := range report.Created {
		fmt.Printf("created %s\n", cn)
	}
	fmt.Printf("%d created, %d already present\n", len(report.Created), report.Existing)
	for _, e := range report.Errors {
		fmt.Printf("error: %s\n", e)
	}
	return nil
}

func runPopulateRoles(ctx context.Context, svc *syncService.Service, args []string) error {
	fs := flag.NewFlagSet("populate-roles", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "report without writing")
	skipPermissions := fs.Bool("skip-permissions", false, "create roles without granting permissions")
	if err := fs.Parse(args); err != nil {
		return err
	}

	report, err := svc.PopulateRoles(ctx, *dryRun, *skipPermissions)
	if err != nil {
		return err
	}
	printRoleSync(report)
	return nil
}

func runSyncRolePermissions(ctx context.Context, svc *syncService.Service, args []string) error {
	fs := flag.NewFlagSet("sync-role-permissions", flag.ExitOnError)
	fix := fs.Bool("fix", false, "apply the missing and extra grants")
	dryRun := fs.Bool("dry-run", false, "report without writing")
	roles := fs.String("role", "", "comma-separated role names to sync (default all)")
	createMissing := fs.Bool("create-missing-permissions", false, "create permission rows missing from the database first")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *createMissing {
		created, err := svc.CreateMissingPermissions(ctx, *dryRun, false)
		if err != nil {
			return err
		}
		fmt.Printf("%d permissions created, %d already present\n", len(created.Created), created.Existing)
	}

	report, err := svc.SyncRolePermissions(ctx, *fix, *dryRun, splitRoleFilter(*roles, fs.Args()))
	if err != nil {
		return err
	}
	printRoleSync(report)
	return nil
}

// splitRoleFilter merges the -role CSV with bare positional role names.
func splitRoleFilter(csv string, rest []string) []string {
	var out []string
	for _, name := range strings.Split(csv, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return append(out, rest...)
}

func printRoleSync(report *syncService.RoleSyncReport) {
	if len(report.Entries) == 0 {
		fmt.Println("all roles in sync")
		return
	}
	for _, e := range report.Entries {
		fmt.Printf("%s: %d missing, %d extra", e.Role, len(e.Missing), len(e.Extra))
		if e.Fixed {
			fmt.Print(" (fixed)")
		}
		fmt.Println()
		for _, cn := range e.Missing {
			fmt.Printf("  missing %s\n", cn)
		}
		for _, cn := range e.Extra {
			fmt.Printf("  extra %s\n", cn)
		}
	}
}

func runValidatePermissions(ctx context.Context, svc *syncService.Service, args []string) error {
	fs := flag.NewFlagSet("validate-permissions", flag.ExitOnError)
	fix := fs.Bool("fix", false, "repair what can be repaired")
	if err := fs.Parse(args); err != nil {
		return err
	}

	report, err := svc.ValidateSystem(ctx, *fix)
	if err != nil {
		return err
	}
	if len(report.Issues) == 0 {
		fmt.Println("no issues found")
		return nil
	}
	for _, issue := range report.Issues {
		status := ""
		if issue.Fixed {
			status = " (fixed)"
		}
		fmt.Printf("[%s] %s: %s%s\n", issue.Check, issue.Subject, issue.Detail, status)
	}
	return nil
}

func runAssignPharmacist(ctx context.Context, assignments repository.AssignmentRepository, users repository.UserRepository, pharmacy repository.PharmacyRepository, zl zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("assign-pharmacist", flag.ExitOnError)
	username := fs.String("user", "", "pharmacist username")
	dispensary := fs.String("dispensary", "", "dispensary id")
	role := fs.String("role", "pharmacist", "assignment role")
	remove := fs.Bool("remove", false, "deactivate the user's assignment to the dispensary")
	clearAll := fs.Bool("clear-all", false, "deactivate every active assignment of the user")
	list := fs.Bool("list", false, "print the user's active assignments and exit")
	startDate := fs.String("start-date", "", "assignment start date (YYYY-MM-DD)")
	endDate := fs.String("end-date", "", "assignment end date (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return fmt.Errorf("-user is required")
	}

	user, err := users.GetByUsername(ctx, *username)
	if err != nil {
		return fmt.Errorf("failed to look up user %q: %w", *username, err)
	}

	if *list {
		active, err := assignments.ListForUser(ctx, user.ID)
		if err != nil {
			return err
		}
		if len(active) == 0 {
			fmt.Printf("%s has no active assignments\n", user.Username)
			return nil
		}
		for _, a := range active {
			d, err := pharmacy.GetDispensary(ctx, a.DispensaryID)
			name := a.DispensaryID.String()
			if err == nil {
				name = d.Name
			}
			fmt.Printf("%-30s role %-12s since %s\n", name, a.Role, a.CreatedAt.Format("2006-01-02"))
		}
		return nil
	}

	if *clearAll {
		active, err := assignments.ListForUser(ctx, user.ID)
		if err != nil {
			return err
		}
		for _, a := range active {
			if err := assignments.Deactivate(ctx, a.ID); err != nil {
				return err
			}
		}
		fmt.Printf("%d assignments cleared for %s\n", len(active), user.Username)
		return nil
	}

	if *dispensary == "" {
		return fmt.Errorf("-dispensary is required")
	}
	dispensaryID, err := uuid.Parse(*dispensary)
	if err != nil {
		return fmt.Errorf("invalid dispensary id: %w", err)
	}
	d, err := pharmacy.GetDispensary(ctx, dispensaryID)
	if err != nil {
		return fmt.Errorf("failed to look up dispensary: %w", err)
	}

	if *remove {
		existing, err := assignments.GetActive(ctx, user.ID, dispensaryID)
		if err != nil {
			return fmt.Errorf("%s has no active assignment to %s", user.Username, d.Name)
		}
		if err := assignments.Deactivate(ctx, existing.ID); err != nil {
			return err
		}
		zl.Info().Str("user", user.Username).Str("dispensary", d.Name).Msg("pharmacist assignment removed")
		return nil
	}

	if existing, err := assignments.GetActive(ctx, user.ID, dispensaryID); err == nil && existing != nil {
		fmt.Printf("%s is already assigned to %s\n", user.Username, d.Name)
		return nil
	}

	a := &model.PharmacistAssignment{
		UserID:       user.ID,
		DispensaryID: dispensaryID,
		Role:         *role,
		IsActive:     true,
	}
	if a.StartDate, err = parseDateFlag(*startDate); err != nil {
		return fmt.Errorf("invalid -start-date: %w", err)
	}
	if a.EndDate, err = parseDateFlag(*endDate); err != nil {
		return fmt.Errorf("invalid -end-date: %w", err)
	}
	if a.StartDate != nil && a.EndDate != nil && a.EndDate.Before(*a.StartDate) {
		return fmt.Errorf("-end-date is before -start-date")
	}
	if err := assignments.Create(ctx, a); err != nil {
		return err
	}
	zl.Info().Str("user", user.Username).Str("dispensary", d.Name).Msg("pharmacist assigned")
	return nil
}

func parseDateFlag(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func runMergeDuplicateLots(ctx context.Context, svc *syncService.Service, args []string) error {
	fs := flag.NewFlagSet("merge-duplicate-lots", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "report without deleting")
	if err := fs.Parse(args); err != nil {
		return err
	}

	report, err := svc.MergeDuplicateActiveLots(ctx, *dryRun)
	if err != nil {
		return err
	}
	fmt.Printf("%d duplicate groups, %d rows removed\n", report.Groups, len(report.Removed))
	return nil
}

func runDeliverTransfers(ctx context.Context, svc *transferService.Service, args []string) error {
	fs := flag.NewFlagSet("deliver-transfers", flag.ExitOnError)
	kind := fs.String("kind", string(model.TransferActiveToDisp), "transfer kind")
	executor := fs.String("executed-by", "", "user id recorded as executor")
	if err := fs.Parse(args); err != nil {
		return err
	}

	executorID := uuid.Nil
	if *executor != "" {
		id, err := uuid.Parse(*executor)
		if err != nil {
			return fmt.Errorf("invalid executor id: %w", err)
		}
		executorID = id
	}

	delivered, err := svc.DeliverInTransit(ctx, model.TransferKind(*kind), executorID)
	if err != nil {
		return err
	}
	fmt.Printf("%d transfers delivered\n", delivered)
	return nil
}

func runCheckInventory(ctx context.Context, svc *inventoryService.Service, pharmacy repository.PharmacyRepository, args []string) error {
	fs := flag.NewFlagSet("check-inventory", flag.ExitOnError)
	expiryDays := fs.Int("expiry-days", 90, "flag lots expiring within this many days")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dispensaries, err := pharmacy.ListDispensaries(ctx, true)
	if err != nil {
		return err
	}
	for _, d := range dispensaries {
		low, err := svc.LowStock(ctx, model.TierDispensary, d.ID)
		if err != nil {
			return err
		}
		for _, level := range low {
			fmt.Printf("LOW  %-30s %-30s qty %d (reorder at %d)\n", d.Name, level.MedicationName, level.Quantity, level.ReorderLevel)
		}
	}

	expiring, err := svc.ExpiringLots(ctx, time.Duration(*expiryDays)*24*time.Hour)
	if err != nil {
		return err
	}
	for _, lot := range expiring {
		fmt.Printf("EXP  %-30s batch %-15s qty %d expires %s (%d days)\n",
			lot.MedicationName, lot.BatchNumber, lot.Quantity, lot.ExpiryDate.Format("2006-01-02"), lot.DaysLeft)
	}
	return nil
}
