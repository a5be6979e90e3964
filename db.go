package main

import (
	"log"
	"os"
	"strings"

	"github.com/Psynosaur/read-receipt/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var db *gorm.DB

func initDB() {
	var err error
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN is not set. This project requires a Postgres DSN in DB_DSN.")
	}
	db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect postgres database:", err)
	}
	// Control schema migrations with env DB_AUTO_MIGRATE (default true). Any permission errors will be logged and ignored.
	shouldMigrate := true
	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		lv := strings.ToLower(v)
		if lv == "false" || lv == "0" || lv == "no" {
			shouldMigrate = false
		}
	}
	// Ensure the roles master table exists first and seed it so users FK can be applied safely.
	if shouldMigrate {
		if err := db.AutoMigrate(&models.Role{}); err != nil {
			log.Printf("migration warning (roles): %v", err)
		}
	}
	seedRoles()

	// Now migrate the rest (users will get FK to roles)
	if shouldMigrate {
		// Migrate models individually so a failure on one doesn't block others
		if err := db.AutoMigrate(&models.User{}); err != nil {
			log.Printf("migration warning (users): %v", err)
		}
		if err := db.AutoMigrate(&models.Receipt{}); err != nil {
			log.Printf("migration warning (receipts): %v", err)
		}
		if err := db.AutoMigrate(&models.Transcript{}); err != nil {
			log.Printf("migration warning (transcripts): %v", err)
		}
		if err := db.AutoMigrate(&models.ScanMetric{}); err != nil {
			log.Printf("migration warning (scan_metrics): %v", err)
		}
		if err := db.AutoMigrate(&models.RefreshToken{}); err != nil {
			log.Printf("migration warning (refresh_tokens): %v", err)
		}
	}

	// Ensure transcripts -> receipts FK exists (in case table existed before adding ReceiptID)
	if shouldMigrate {
		if err := ensureTranscriptReceiptFK(); err != nil {
			log.Printf("warning: ensuring transcripts->receipts FK failed: %v", err)
		}
	}
	seedDB()
}

// ensureTranscriptReceiptFK adds the receipt_id column and FK constraint if they are missing.
func ensureTranscriptReceiptFK() error {
	// 1. Ensure receipt_id column exists
	if err := db.Exec(`ALTER TABLE transcripts ADD COLUMN IF NOT EXISTS receipt_id BIGINT`).Error; err != nil {
		return err
	}
	// 2. Create index (idempotent)
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_transcripts_receipt_id ON transcripts(receipt_id)`).Error; err != nil {
		return err
	}
	// 3. Check if FK already present
	type cnt struct{ N int }
	var c cnt
	fkCheckSQL := `SELECT count(*) AS n
		FROM pg_constraint ct
		JOIN pg_class rel ON rel.oid = ct.conrelid
		WHERE rel.relname = 'transcripts' AND ct.contype = 'f'
		  AND pg_get_constraintdef(ct.oid) ILIKE '%receipt_id%' AND pg_get_constraintdef(ct.oid) ILIKE '%receipts%'`
	if err := db.Raw(fkCheckSQL).Scan(&c).Error; err != nil {
		return err
	}
	if c.N == 0 {
		// 4. Add FK (leave NOT NULL to AutoMigrate)
		if err := db.Exec(`ALTER TABLE transcripts
			ADD CONSTRAINT fk_transcripts_receipts
			FOREIGN KEY (receipt_id) REFERENCES receipts(id)
			ON UPDATE CASCADE ON DELETE CASCADE`).Error; err != nil {
			return err
		}
	}
	return nil
}

func seedRoles() {
	roles := []models.Role{{Name: "administrator", Description: "full access"}, {Name: "user", Description: "regular user"}}
	for _, r := range roles {
		var cnt int64
		db.Model(&models.Role{}).Where("name = ?", r.Name).Count(&cnt)
		if cnt == 0 {
			db.Create(&r)
		}
	}
}

func seedDB() {
	seedRoles()

	// Check if admin user exists
	var count int64
	db.Model(&models.User{}).Where("username = ?", "admin").Count(&count)
	if count == 0 {
		// find administrator role id
		var role models.Role
		if err := db.Where("name = ?", "administrator").First(&role).Error; err != nil {
			log.Printf("failed to find administrator role: %v", err)
		}
		// Seed admin user
		rid := role.ID
		admin := models.User{
			Username: "admin",
			RoleID:   &rid,
		}
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
		admin.HashedPassword = hashedPassword
		db.Create(&admin)
		log.Println("Seeded admin user: username=admin, password=admin123")
	}
	// Ensure upload directory exists
	ensureUploadBase()
}

// ensureUploadBase creates the base uploads directory.
func ensureUploadBase() {
	base := uploadBaseDir()
	if err := os.MkdirAll(base, 0755); err != nil {
		log.Printf("failed to create upload base dir %s: %v", base, err)
	}
}

// uploadBaseDir returns the base directory for stored receipt images (configurable via UPLOAD_BASE env)
func uploadBaseDir() string {
	if v := os.Getenv("UPLOAD_BASE"); v != "" {
		return v
	}
	return "uploads"
}
