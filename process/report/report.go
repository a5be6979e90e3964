package report

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Psynosaur/read-receipt/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func mustDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set in env")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	return gdb
}

// RunReport prints a month-bounded scan report for username (month in YYYY-MM)
// and optionally lists matching receipts.
func RunReport(username, month string, list bool) {
	gdb := mustDBFromEnv()

	var user models.User
	if err := gdb.Where("username = ?", username).First(&user).Error; err != nil {
		log.Fatalf("user not found: %v", err)
	}

	t, err := time.Parse("2006-01", month)
	if err != nil {
		log.Fatalf("invalid month format, expected YYYY-MM: %v", err)
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var cnt int64
	var tokens sql.NullInt64
	var avgOcr, avgPre sql.NullFloat64
	query := `SELECT COUNT(*) AS cnt,
		COALESCE(SUM(t.total_tokens),0) AS tokens,
		AVG(t.ocr_millis) AS avg_ocr,
		AVG(m.preprocess_millis) AS avg_pre
	FROM receipts r
	JOIN transcripts t ON t.receipt_id = r.id
	LEFT JOIN scan_metrics m ON m.receipt_id = r.id
	WHERE r.user_id = ? AND r.created_at >= ? AND r.created_at < ?`
	if err := gdb.Raw(query, user.ID, start, end).Row().Scan(&cnt, &tokens, &avgOcr, &avgPre); err != nil {
		log.Fatalf("query failed: %v", err)
	}

	fmt.Printf("Report for user=%s month=%s (UTC):\n", user.Username, month)
	fmt.Printf("  receipts=%d total_tokens=%d avg_ocr_ms=%.0f avg_preprocess_ms=%.0f\n",
		cnt, tokens.Int64, avgOcr.Float64, avgPre.Float64)

	if list {
		var rows []models.Receipt
		if err := gdb.Where("user_id = ? AND created_at >= ? AND created_at < ?", user.ID, start, end).Order("id").Find(&rows).Error; err != nil {
			log.Fatalf("fetch rows failed: %v", err)
		}
		for _, r := range rows {
			fmt.Printf("%d|%s|%s|%s\n", r.ID, r.FileName, r.Status, r.CreatedAt.Format(time.RFC3339))
		}
	}
}
