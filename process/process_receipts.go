package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Psynosaur/read-receipt/models"
	"github.com/Psynosaur/read-receipt/pkg/scan"
	"github.com/Psynosaur/read-receipt/pkg/vision"
)

// Global DB handle for helper funcs
var db *gorm.DB

// global flags (parsed in main)
var (
	verbose bool
	dryRun  bool
)

var engine vision.Engine

var scanCfg = scan.DefaultConfig()

// MIME mapping to avoid opening files repeatedly
var extMime = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// preload caches
type preloadState struct {
	receiptsByFile map[string]*models.Receipt // fileName -> receipt
	mu             sync.RWMutex
}

func newPreloadState() *preloadState {
	return &preloadState{receiptsByFile: make(map[string]*models.Receipt, 1024)}
}

func (ps *preloadState) getReceipt(name string) (*models.Receipt, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	r, ok := ps.receiptsByFile[name]
	return r, ok
}
func (ps *preloadState) putReceipt(r *models.Receipt) {
	ps.mu.Lock()
	ps.receiptsByFile[r.FileName] = r
	ps.mu.Unlock()
}

func mustInitDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatalf("DB_DSN must be set in environment to run this tool")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return gdb
}

// Main: scans a directory of receipt photos, creates Receipt rows, runs border
// removal plus transcription, optional watch mode.
func main() {
	dirFlag := flag.String("dir", "uploads/inbox", "directory to scan for receipt images")
	userID := flag.Uint("user-id", 0, "User ID to assign receipts to (if omitted attempts admin user)")
	watch := flag.Bool("watch", false, "Watch directory for new files")
	workers := flag.Int("workers", 0, "Worker pool size (default NumCPU)")
	flag.BoolVar(&dryRun, "dry-run", false, "Skip all DB writes; just preprocess and print what would happen")
	flag.BoolVar(&verbose, "verbose", false, "Verbose per-file logging")
	flag.Parse()

	var err error
	engine, err = scan.EngineFromEnv()
	if err != nil {
		log.Fatalf("vision engine: %v", err)
	}

	if dryRun {
		log.Printf("Dry-run: scanning %s (no DB interaction)", *dirFlag)
		files := listImageFiles(*dirFlag)
		log.Printf("Found %d candidate files", len(files))
		for _, f := range files {
			out, err := scan.ProcessFile(context.Background(), filepath.Join(*dirFlag, f), scanCfg, engine)
			if err != nil {
				log.Printf("FAIL %s: %v", f, err)
				continue
			}
			log.Printf("OK %s crop=%dx%d rot=%.1f chunks=%d chars=%d",
				f, out.Border.CropWidth, out.Border.CropHeight,
				out.Border.Rotation.Angle, out.Transcript.Chunks, len(out.Transcript.Text))
		}
		return
	}

	db = mustInitDBFromEnv()
	user := resolveUser(*userID)
	ps := preloadAll(user)
	log.Printf("Preloaded: receipts=%d", len(ps.receiptsByFile))

	files := listImageFiles(*dirFlag)
	log.Printf("Scanning %d files (workers=%d)", len(files), effectiveWorkers(*workers))
	runWorkerPool(*dirFlag, user, ps, files, effectiveWorkers(*workers))

	if *watch {
		if err := watchDirectory(*dirFlag, user, ps, effectiveWorkers(*workers)); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	}
}

func effectiveWorkers(w int) int {
	if w <= 0 {
		return runtime.NumCPU()
	}
	return w
}

func logV(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

// preloadAll fetches existing receipts to minimize per-file queries.
func preloadAll(user models.User) *preloadState {
	ps := newPreloadState()
	var recs []models.Receipt
	if err := db.Where("user_id = ?", user.ID).Find(&recs).Error; err == nil {
		for i := range recs {
			r := recs[i]
			ps.receiptsByFile[r.FileName] = &r
		}
	}
	return ps
}

// resolveUser finds the user either by explicit id or by admin username.
func resolveUser(id uint) models.User {
	var u models.User
	if id != 0 {
		if err := db.First(&u, id).Error; err != nil {
			log.Fatalf("failed to find user id %d: %v", id, err)
		}
		return u
	}
	if err := db.Where("username = ?", "admin").First(&u).Error; err != nil {
		log.Fatalf("no --user-id provided and admin user not found: %v", err)
	}
	return u
}

func listImageFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !isSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func watchDirectory(dir string, user models.User, ps *preloadState, workers int) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Printf("Watching %s (debounced) ...", dir)

	fileCh := make(chan string, 256)
	go func() {
		// simple debounce map of pending files
		pending := map[string]time.Time{}
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					close(fileCh)
					return
				}
				if ev.Op&fsnotify.Create == fsnotify.Create {
					name := filepath.Base(ev.Name)
					if !isSupportedExt(name) {
						continue
					}
					pending[name] = time.Now()
				}
			case <-ticker.C:
				now := time.Now()
				for name, t := range pending {
					if now.Sub(t) > 300*time.Millisecond { // stable
						fileCh <- name
						delete(pending, name)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					close(fileCh)
					return
				}
				log.Printf("watch error: %v", err)
			}
		}
	}()

	// Use worker pool for watch events too
	go runWorkerPool(dir, user, ps, nil, workers, fileCh)
	// block forever (Ctrl+C to exit)
	select {}
}

func isSupportedExt(name string) bool {
	// ignore our own outputs to avoid recursive processing
	if strings.Contains(name, ".processed.") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	_, ok := extMime[ext]
	return ok
}

// worker pool orchestrator
func runWorkerPool(dir string, user models.User, ps *preloadState, initial []string, workers int, extraCh ...<-chan string) {
	fileCh := make(chan string, 1024)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range fileCh {
				processSingleFile(dir, name, user, ps)
			}
		}()
	}
	// feed initial
	go func() {
		for _, f := range initial {
			fileCh <- f
		}
		// also relay from extra channels if provided
		for _, ch := range extraCh {
			go func(c <-chan string) {
				for n := range c {
					fileCh <- n
				}
			}(ch)
		}
		// if no extraCh (scan only) close when done
		if len(extraCh) == 0 {
			close(fileCh)
		}
	}()
	if len(extraCh) == 0 {
		wg.Wait()
	}
}

// processSingleFile processes a single filename using the preloaded map and
// minimal queries. Idempotent: processed receipts are skipped, failed ones
// are retried.
func processSingleFile(dir, name string, user models.User, ps *preloadState) {
	filePath := filepath.Join(dir, name)
	relPath := filepath.ToSlash(filepath.Join(filepath.Base(dir), name))

	rec, exists := ps.getReceipt(name)
	if exists && rec.Status == models.ReceiptProcessed {
		logV("SKIP already processed %s", name)
		return
	}

	if !exists {
		newRec := models.Receipt{UserID: user.ID, FileName: name, StorePath: relPath, ContentType: mimeFromExt(name), Status: models.ReceiptPending}
		if err := db.Create(&newRec).Error; err != nil {
			if isUniqueConstraintError(err) { // race: someone else created
				if err2 := db.Where("user_id = ? AND file_name = ?", user.ID, name).First(&newRec).Error; err2 != nil {
					log.Printf("WARN fetch after race failed %s: %v", name, err2)
					return
				}
			} else {
				log.Printf("ERROR create receipt %s: %v", name, err)
				return
			}
		}
		ps.putReceipt(&newRec)
		rec = &newRec
		log.Printf("NEW receipt id=%d file=%s", newRec.ID, name)
	}

	out, err := scan.ProcessFile(context.Background(), filePath, scanCfg, engine)
	if err != nil {
		rec.Status = models.ReceiptFailed
		rec.FailedReason = err.Error()
		_ = db.Save(rec).Error
		log.Printf("FAIL %s: %v", name, err)
		return
	}
	if dest, err := scan.SaveProcessed(filePath, out.Border.JPEG); err != nil {
		log.Printf("WARN save processed %s: %v", name, err)
	} else {
		rec.ProcessedPath = dest
	}

	// replace any stale transcript/metric rows from an earlier failed attempt
	db.Where("receipt_id = ?", rec.ID).Delete(&models.Transcript{})
	db.Where("receipt_id = ?", rec.ID).Delete(&models.ScanMetric{})
	tr := models.Transcript{
		ReceiptID:        rec.ID,
		Text:             out.Transcript.Text,
		Model:            out.Transcript.Model,
		Chunks:           out.Transcript.Chunks,
		PromptTokens:     out.Transcript.Usage.PromptTokens,
		CompletionTokens: out.Transcript.Usage.CompletionTokens,
		TotalTokens:      out.Transcript.Usage.TotalTokens,
		OcrMillis:        out.Transcript.Elapsed.Milliseconds(),
	}
	if err := db.Create(&tr).Error; err != nil {
		log.Printf("ERROR create transcript %s: %v", name, err)
		return
	}
	b := out.Border
	metric := models.ScanMetric{
		ReceiptID:          rec.ID,
		OriginalWidth:      b.OriginalWidth,
		OriginalHeight:     b.OriginalHeight,
		RotatedWidth:       b.RotatedWidth,
		RotatedHeight:      b.RotatedHeight,
		CropWidth:          b.CropWidth,
		CropHeight:         b.CropHeight,
		RotationAngle:      b.Rotation.Angle,
		RotationConfidence: b.Rotation.Confidence,
		RotationApplied:    b.Rotation.Accepted,
		WhitePixels:        b.WhitePixels,
		RetainedPercent:    b.RetainedPercent,
		PreprocessMillis:   out.PreprocessTime.Milliseconds(),
	}
	if err := db.Create(&metric).Error; err != nil {
		log.Printf("ERROR create scan metric %s: %v", name, err)
	}
	rec.Status = models.ReceiptProcessed
	rec.FailedReason = ""
	_ = db.Save(rec).Error
	log.Printf("PROCESSED %s crop=%dx%d rot=%.1f tokens=%d", name, b.CropWidth, b.CropHeight, b.Rotation.Angle, tr.TotalTokens)

	// Move the original out of the inbox so new images are processed only once
	if err := moveToDone(filePath, name); err != nil {
		log.Printf("WARN failed to move processed file %s: %v", name, err)
	} else {
		logV("moved %s to done/", name)
	}
}

func mimeFromExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if m, ok := extMime[ext]; ok {
		return m
	}
	return ""
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "already exists")
}

// moveToDone moves a file from the inbox into a sibling done/ directory.
// It attempts an atomic rename and falls back to copy+remove when necessary.
func moveToDone(srcFullPath, name string) error {
	doneDir := filepath.Join(filepath.Dir(srcFullPath), "done")
	if err := os.MkdirAll(doneDir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(doneDir, name)
	if err := os.Rename(srcFullPath, dst); err == nil {
		return nil
	}
	return copyRemove(srcFullPath, dst)
}

func copyRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	_ = out.Close()
	if err := os.Remove(src); err != nil {
		return err
	}
	return nil
}
