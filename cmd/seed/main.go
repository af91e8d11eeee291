// seed inserts development sample data for local testing: go run ./cmd/seed.
// Idempotent: skips inserts if the first fixture user already exists. Set SEED_FILE to use another fixture.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"attendance-tracker/backend/internal/audit"
	"attendance-tracker/backend/internal/config"
	"attendance-tracker/backend/internal/db"
	"attendance-tracker/backend/internal/geo"
	identityrepo "attendance-tracker/backend/internal/identity/repository"
	identityservice "attendance-tracker/backend/internal/identity/service"
	policydomain "attendance-tracker/backend/internal/policy/domain"
	"attendance-tracker/backend/internal/policy/engine"
	policyrepo "attendance-tracker/backend/internal/policy/repository"
	roledomain "attendance-tracker/backend/internal/role/domain"
	rolerepo "attendance-tracker/backend/internal/role/repository"
	"attendance-tracker/backend/internal/security"
	storedomain "attendance-tracker/backend/internal/store/domain"
	storerepo "attendance-tracker/backend/internal/store/repository"
	storeservice "attendance-tracker/backend/internal/store/service"
	userrepo "attendance-tracker/backend/internal/user/repository"
	userservice "attendance-tracker/backend/internal/user/service"
)

// seedActor is recorded as the actor of seeded changes in the audit log.
const seedActor = "seed"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	fx, err := loadFixture(cfg.SeedFile)
	if err != nil {
		log.Fatalf("fixture: %v", err)
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	users := userrepo.NewPostgresRepository(conn)
	roles := rolerepo.NewPostgresRepository(conn)
	stores := storerepo.NewPostgresRepository(conn)

	roleIDs, err := ensureRoles(ctx, roles)
	if err != nil {
		log.Fatalf("roles: %v", err)
	}

	if err := upsertPolicies(ctx, policyrepo.NewPostgresRepository(conn), fx.Policies); err != nil {
		log.Fatalf("policies: %v", err)
	}

	if len(fx.Users) > 0 {
		existing, err := users.GetByEmail(ctx, fx.Users[0].Email)
		if err != nil {
			log.Fatalf("seed check: %v", err)
		}
		if existing != nil {
			log.Printf("Seed already applied (%s exists). Skipping.", fx.Users[0].Email)
			os.Exit(0)
		}
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	authSvc := identityservice.NewAuthService(users, roles, identityrepo.NewPostgresRepository(conn), hasher, nil, audit.Nop{})
	assigner := userservice.NewAdminStoreAssigner(users, roles, stores)
	userSvc := userservice.NewService(users, roles, authSvc, assigner, audit.Nop{})
	storeSvc := storeservice.NewService(stores, assigner, audit.Nop{})

	for _, b := range fx.Brands {
		if err := stores.CreateBrand(ctx, &storedomain.Brand{
			ID: seedID("brand", b.Key), Name: b.Name, Description: b.Description, Logo: b.Logo,
		}); err != nil {
			log.Fatalf("create brand %s: %v", b.Key, err)
		}
	}
	for _, l := range fx.Locations {
		if err := stores.CreateLocation(ctx, &storedomain.Location{
			ID: seedID("location", l.Key), Name: l.Name, Address: l.Address, City: l.City,
			State: l.State, Country: l.Country, PostalCode: l.PostalCode,
		}); err != nil {
			log.Fatalf("create location %s: %v", l.Key, err)
		}
	}
	for _, s := range fx.Stores {
		if _, err := storeSvc.Create(ctx, &storedomain.Store{
			ID:             seedID("store", s.Key),
			BrandID:        seedID("brand", s.Brand),
			LocationID:     seedID("location", s.Location),
			Coordinate:     geo.Coordinate{Latitude: s.Latitude, Longitude: s.Longitude},
			GeofenceRadius: s.GeofenceRadius,
			IsActive:       !s.Inactive,
		}); err != nil {
			log.Fatalf("create store %s: %v", s.Key, err)
		}
	}
	for _, u := range fx.Users {
		storeIDs := make([]string, 0, len(u.Stores))
		for _, key := range u.Stores {
			storeIDs = append(storeIDs, seedID("store", key))
		}
		if _, err := userSvc.Create(ctx, seedActor, userservice.CreateInput{
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Email:     u.Email,
			RoleID:    roleIDs[u.Role],
			StoreIDs:  storeIDs,
			PIN:       u.PIN,
		}); err != nil {
			log.Fatalf("create user %s: %v", u.Email, err)
		}
	}

	log.Println("Seed completed successfully.")
	for _, u := range fx.Users {
		fmt.Printf("%s login: %s / PIN %s\n", u.Role, u.Email, u.PIN)
	}
}

// ensureRoles creates the built-in Admin and Staff roles when missing and returns their ids by name.
func ensureRoles(ctx context.Context, roles *rolerepo.PostgresRepository) (map[string]string, error) {
	builtin := []*roledomain.Role{
		{Name: roledomain.RoleAdmin, Permissions: roledomain.AdminPermissions()},
		{Name: roledomain.RoleStaff, Permissions: roledomain.StaffPermissions()},
	}
	ids := make(map[string]string, len(builtin))
	now := time.Now().UTC()
	for _, r := range builtin {
		existing, err := roles.GetByName(ctx, r.Name)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			ids[r.Name] = existing.ID
			continue
		}
		r.ID = seedID("role", r.Name)
		r.CreatedAt, r.UpdatedAt = now, now
		if err := roles.Create(ctx, r); err != nil {
			return nil, fmt.Errorf("create role %s: %w", r.Name, err)
		}
		ids[r.Name] = r.ID
	}
	return ids, nil
}

// upsertPolicies stores the fixture policies. Enabled ones replace the built-in clock-in policy.
func upsertPolicies(ctx context.Context, repo policyrepo.Repository, policies []policyFixture) error {
	now := time.Now().UTC()
	for _, pf := range policies {
		p := &policydomain.Policy{
			ID:        seedID("policy", pf.Name),
			Name:      pf.Name,
			Rules:     pf.Rules,
			Enabled:   pf.Enabled,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if p.Rules == "" {
			p.Rules = engine.DefaultRegoPolicy
		}
		if err := p.Validate(); err != nil {
			return err
		}
		if err := repo.Upsert(ctx, p); err != nil {
			return fmt.Errorf("upsert policy %s: %w", p.Name, err)
		}
	}
	return nil
}
