package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/xelth-com/protocolos/internal/config"
	"github.com/xelth-com/protocolos/internal/database"
	"github.com/xelth-com/protocolos/internal/importer"
	"github.com/xelth-com/protocolos/internal/logging"
	"github.com/xelth-com/protocolos/internal/models"
	"github.com/xelth-com/protocolos/internal/store"
	"github.com/xelth-com/protocolos/internal/utils"
)

const demoUnit = "CD01"

var demoPdvs = []importer.Record{
	{importer.FieldCode: "1001", importer.FieldLabel: "Mercado São João", importer.FieldDistrict: "Centro", importer.FieldCity: "Campinas"},
	{importer.FieldCode: "1002", importer.FieldLabel: "Supermercado Boa Vista", importer.FieldDistrict: "Taquaral", importer.FieldCity: "Campinas"},
	{importer.FieldCode: "1003", importer.FieldLabel: "Padaria Estrela", importer.FieldDistrict: "Cambuí", importer.FieldCity: "Campinas"},
}

var demoProducts = []importer.Record{
	{importer.FieldCode: "7891000100103", importer.FieldLabel: "Leite UHT Integral 1L", importer.FieldCategory: "Laticínios"},
	{importer.FieldCode: "7891000053508", importer.FieldLabel: "Iogurte Morango 170g", importer.FieldCategory: "Laticínios"},
	{importer.FieldCode: "7896004000015", importer.FieldLabel: "Biscoito Recheado 140g", importer.FieldCategory: "Mercearia"},
}

type demoUser struct {
	username, name, role, unit string
}

var demoUsers = []demoUser{
	{"admin", "Administrador", models.RoleAdmin, ""},
	{"conferente", "Carla Conferente", models.RoleStaff, demoUnit},
	{"motorista", "Marcos Motorista", models.RoleDriver, demoUnit},
}

func main() {
	fmt.Println("🌱 Protocolos Demo Data Seeder")
	fmt.Println(strings.Repeat("=", 60))

	// Load config
	cfg, err := config.LoadTools()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.NodeEnv, "warn")
	if err != nil {
		log.Fatalf("❌ Failed to build logger: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg.Database, logger)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("✅ Connected to database")

	fmt.Println("🔨 Running database migrations...")
	if err := db.AutoMigrate(&models.UserAuth{}, &models.Protocol{}, &models.Pdv{}, &models.Product{}, &models.ImportRun{}); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	fmt.Println("✅ Migrations complete")
	fmt.Println()

	ctx := context.Background()
	users := store.NewUserStore(db.DB)
	protocols := store.NewProtocolStore(db.DB)

	count, err := users.Count(ctx)
	if err != nil {
		log.Fatalf("❌ Failed to count users: %v", err)
	}
	if count > 0 {
		fmt.Printf("⚠️  Database already has %d users. Nothing to do.\n", count)
		return
	}

	// 1. Catalogs go through the same commit path as spreadsheet imports
	fmt.Println("📍 Loading PDVs and products...")
	committer := importer.NewCommitter(0, logger)
	if res := committer.Commit(ctx, store.NewPdvStore(db.DB), importer.PdvJob, demoUnit, demoPdvs); !res.Success {
		log.Fatalf("❌ PDVs: %s", res.Error)
	}
	if res := committer.Commit(ctx, store.NewProductStore(db.DB), importer.ProductJob, "", demoProducts); !res.Success {
		log.Fatalf("❌ Products: %s", res.Error)
	}
	fmt.Printf("   ✓ %d PDVs in unit %s, %d products\n", len(demoPdvs), demoUnit, len(demoProducts))

	// 2. Users, all with password "demo1234"
	fmt.Println("👤 Creating users...")
	hash, err := utils.HashPassword("demo1234")
	if err != nil {
		log.Fatalf("❌ Failed to hash password: %v", err)
	}
	var driver, staff *models.UserAuth
	for _, u := range demoUsers {
		user := &models.UserAuth{Username: u.username, Password: hash, Name: u.name, Role: u.role, UnitCode: u.unit, IsActive: true}
		if err := users.Create(ctx, user); err != nil {
			log.Fatalf("❌ Failed to create %s: %v", u.username, err)
		}
		switch u.role {
		case models.RoleDriver:
			driver = user
		case models.RoleStaff:
			staff = user
		}
		fmt.Printf("   ✓ %s (%s)\n", u.username, u.role)
	}

	// 3. One protocol per status
	fmt.Println("📋 Creating protocols...")
	now := time.Now().UTC()
	reasons := []string{models.ReasonDamage, models.ReasonShortage, models.ReasonExpired}
	for i, pdv := range demoPdvs {
		p := &models.Protocol{
			UnitCode:    demoUnit,
			PdvCode:     pdv[importer.FieldCode],
			PdvName:     pdv[importer.FieldLabel],
			DriverID:    driver.ID,
			DriverName:  driver.Name,
			Reason:      reasons[i],
			ProductCode: demoProducts[i][importer.FieldCode],
			ProductName: demoProducts[i][importer.FieldLabel],
			Quantity:    float64(i + 1),
			CreatedAt:   now.Add(-time.Duration(24*(i+1)) * time.Hour),
		}
		if err := protocols.Create(ctx, p); err != nil {
			log.Fatalf("❌ Failed to create protocol: %v", err)
		}
		steps := []string{models.StatusInProgress, models.StatusClosed}[:i]
		for _, to := range steps {
			if _, err := protocols.Update(ctx, p.ID, func(p *models.Protocol) error {
				return p.Transition(to, staff.Name, now)
			}); err != nil {
				log.Fatalf("❌ Failed to move %s to %s: %v", p.Number, to, err)
			}
		}
		fmt.Printf("   ✓ %s %s\n", p.Number, p.PdvName)
	}

	fmt.Println()
	fmt.Println("✅ Demo data ready. Log in as admin / conferente / motorista with password demo1234")
}
