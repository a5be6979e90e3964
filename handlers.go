package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/Psynosaur/read-receipt/models"
	"github.com/Psynosaur/read-receipt/pkg/border"
	"github.com/Psynosaur/read-receipt/pkg/scan"
	"github.com/Psynosaur/read-receipt/pkg/vision"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// visionEngine and scanCfg are wired once at startup by main.
var (
	visionEngine vision.Engine
	scanCfg      = scan.DefaultConfig()
)

func setupRoutes(r *gin.Engine) {
	r.POST("/register", registerHandler)
	r.POST("/login", loginHandler)
	r.POST("/refresh", refreshHandler)
	r.POST("/revoke_refresh", revokeRefreshHandler)
	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.GET("/me", meHandler)
	authGroup.POST("/receipts", uploadReceiptHandler)
	authGroup.GET("/receipts", listReceiptsHandler)
	authGroup.GET("/receipts/:id", getReceiptHandler)
	authGroup.GET("/receipts/:id/transcript", getTranscriptHandler)
	authGroup.GET("/metrics/summary", metricsSummaryHandler)
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		username, _ := claims["username"].(string)
		role, _ := claims["role"].(string)
		c.Set("username", username)
		if role != "" {
			c.Set("role", role)
		}
		c.Next()
	}
}

func meHandler(c *gin.Context) {
	usernameVal, _ := c.Get("username")
	if usernameVal == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "context missing username"})
		return
	}
	username := usernameVal.(string)
	c.JSON(http.StatusOK, gin.H{"username": username})
}

// getUserFromContext fetches the currently authenticated user using the username set by jwtAuthMiddleware
func getUserFromContext(c *gin.Context) (*models.User, bool) {
	unameVal, _ := c.Get("username")
	if unameVal == nil {
		return nil, false
	}
	uname := unameVal.(string)
	var user models.User
	if err := db.Where("username = ?", uname).First(&user).Error; err != nil {
		return nil, false
	}
	return &user, true
}

func registerHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := RegisterUser(req.Username, req.Password); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user registered successfully"})
}

func loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	// Generate JWT token. Resolve role name from RoleID (we only store role_id).
	roleName := ""
	if user.RoleID != nil {
		var r models.Role
		if err := db.First(&r, *user.RoleID).Error; err == nil {
			roleName = r.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     roleName,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	refreshToken, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString, "refresh_token": refreshToken})
}

// createAndStoreRefreshToken generates a random refresh token, stores its hash with expiry and returns the raw token string
func createAndStoreRefreshToken(userID uint) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	// hash for storage
	h := sha256.Sum256([]byte(token))
	th := hex.EncodeToString(h[:])
	rt := models.RefreshToken{UserID: userID, TokenHash: th, ExpiresAt: time.Now().Add(30 * 24 * time.Hour)}
	if err := db.Create(&rt).Error; err != nil {
		return "", err
	}
	return token, nil
}

// helper to find refresh token record by raw token string
func findRefreshTokenByRaw(token string) (*models.RefreshToken, error) {
	h := sha256.Sum256([]byte(token))
	th := hex.EncodeToString(h[:])
	var rt models.RefreshToken
	if err := db.Where("token_hash = ?", th).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

// refreshHandler exchanges a refresh token for a new access token and rotates the refresh token
func refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil || rt.Revoked || time.Now().After(rt.ExpiresAt) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	var user models.User
	if err := db.First(&user, rt.UserID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	roleName := ""
	if user.RoleID != nil {
		var r models.Role
		if err := db.First(&r, *user.RoleID).Error; err == nil {
			roleName = r.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     roleName,
		"exp":      time.Now().Add(15 * time.Minute).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	// rotate refresh token: revoke existing and create new one
	db.Model(&models.RefreshToken{}).Where("id = ?", rt.ID).Update("revoked", true)
	newRT, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenString, "refresh_token": newRT})
}

// revokeRefreshHandler revokes a given refresh token (useful on logout)
func revokeRefreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "refresh token not found"})
		return
	}
	rt.Revoked = true
	if err := db.Save(rt).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "refresh token revoked"})
}

// uploadReceiptHandler accepts a multipart receipt image, stores it, removes the
// photo border, transcribes the crop and records transcript plus scan metrics.
func uploadReceiptHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	folder := c.PostForm("folder")
	if folder == "" {
		folder = "default"
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	if file.Size > 10*1024*1024 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large (max 10MB)"})
		return
	}
	// simple content type sniff via header
	ct := file.Header.Get("Content-Type")

	// duplicate filename per user returns the existing record
	var existing models.Receipt
	if err := db.Where("user_id = ? AND file_name = ?", user.ID, file.Filename).First(&existing).Error; err == nil {
		c.JSON(http.StatusOK, gin.H{"id": existing.ID, "status": existing.Status, "store_path": existing.StorePath})
		return
	}

	baseDir := uploadBaseDir()
	relPath := folder + "/" + file.Filename
	fullPath := baseDir + "/" + relPath
	if err := os.MkdirAll(baseDir+"/"+folder, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mkdir failed"})
		return
	}
	if err := c.SaveUploadedFile(file, fullPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	rec := models.Receipt{UserID: user.ID, FileName: file.Filename, StorePath: relPath, ContentType: ct, Status: models.ReceiptPending}
	if err := db.Create(&rec).Error; err != nil {
		if isUniqueConstraintError(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "file already recorded"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db save failed"})
		return
	}

	out, err := scan.ProcessFile(c.Request.Context(), fullPath, scanCfg, visionEngine)
	if err != nil {
		markReceiptFailed(&rec, err)
		status := http.StatusInternalServerError
		if errors.Is(err, border.ErrInvalidInput) || errors.Is(err, border.ErrNoContent) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"id": rec.ID, "status": rec.Status, "error": err.Error()})
		return
	}
	processedPath, err := scan.SaveProcessed(fullPath, out.Border.JPEG)
	if err != nil {
		log.Printf("save processed image for receipt %d: %v", rec.ID, err)
	} else {
		rec.ProcessedPath = processedPath
	}
	rec.Status = models.ReceiptProcessed
	if err := db.Save(&rec).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db save failed"})
		return
	}
	if err := recordOutcome(rec.ID, out); err != nil {
		log.Printf("record outcome for receipt %d: %v", rec.ID, err)
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         rec.ID,
		"status":     rec.Status,
		"store_path": rec.StorePath,
		"crop":       gin.H{"width": out.Border.CropWidth, "height": out.Border.CropHeight},
		"rotation":   out.Border.Rotation.Angle,
		"text":       out.Transcript.Text,
	})
}

func markReceiptFailed(rec *models.Receipt, cause error) {
	rec.Status = models.ReceiptFailed
	rec.FailedReason = cause.Error()
	if err := db.Save(rec).Error; err != nil {
		log.Printf("mark receipt %d failed: %v", rec.ID, err)
	}
}

// recordOutcome persists the transcript and scan metric rows for one receipt.
func recordOutcome(receiptID uint, out *scan.Outcome) error {
	tr := models.Transcript{
		ReceiptID:        receiptID,
		Text:             out.Transcript.Text,
		Model:            out.Transcript.Model,
		Chunks:           out.Transcript.Chunks,
		PromptTokens:     out.Transcript.Usage.PromptTokens,
		CompletionTokens: out.Transcript.Usage.CompletionTokens,
		TotalTokens:      out.Transcript.Usage.TotalTokens,
		OcrMillis:        out.Transcript.Elapsed.Milliseconds(),
	}
	if err := db.Create(&tr).Error; err != nil {
		return err
	}
	b := out.Border
	m := models.ScanMetric{
		ReceiptID:          receiptID,
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
	return db.Create(&m).Error
}

// listReceiptsHandler returns receipts; admin sees all, user only their own.
func listReceiptsHandler(c *gin.Context) {
	role, _ := c.Get("role")
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var receipts []models.Receipt
	q := db.Model(&models.Receipt{})
	if role != "administrator" {
		q = q.Where("user_id = ?", user.ID)
	}
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Order("id desc").Limit(100).Find(&receipts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, receipts)
}

// getReceiptHandler returns a single receipt if admin or owner.
func getReceiptHandler(c *gin.Context) {
	rec, ok := loadOwnedReceipt(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rec)
}

// getTranscriptHandler returns the transcript for a receipt if admin or owner.
func getTranscriptHandler(c *gin.Context) {
	rec, ok := loadOwnedReceipt(c)
	if !ok {
		return
	}
	var tr models.Transcript
	if err := db.Where("receipt_id = ?", rec.ID).First(&tr).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "transcript not found"})
		return
	}
	c.JSON(http.StatusOK, tr)
}

// loadOwnedReceipt resolves :id and enforces ownership. On failure it writes
// the response itself and returns ok=false.
func loadOwnedReceipt(c *gin.Context) (*models.Receipt, bool) {
	role, _ := c.Get("role")
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return nil, false
	}
	id := c.Param("id")
	var rec models.Receipt
	if err := db.First(&rec, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return nil, false
	}
	if role != "administrator" && rec.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return nil, false
	}
	return &rec, true
}

// metricsSummaryHandler returns monthly OCR volume, token spend and latency.
func metricsSummaryHandler(c *gin.Context) {
	role, _ := c.Get("role")
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	type Result struct {
		Month       string
		Receipts    int64
		TotalTokens int64
		AvgOcrMs    float64
	}
	var results []Result
	q := db.Model(&models.Transcript{}).
		Joins("JOIN receipts ON receipts.id = transcripts.receipt_id")
	if role != "administrator" {
		q = q.Where("receipts.user_id = ?", user.ID)
	}
	// to_char groups by YYYY-MM on Postgres
	rows, err := q.Select("to_char(transcripts.created_at, 'YYYY-MM') as month, count(*) as receipts, sum(transcripts.total_tokens) as total_tokens, avg(transcripts.ocr_millis) as avg_ocr_ms").
		Group("month").Order("month").Rows()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	defer rows.Close()
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Month, &r.Receipts, &r.TotalTokens, &r.AvgOcrMs); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "scan failed"})
			return
		}
		results = append(results, r)
	}
	c.JSON(http.StatusOK, results)
}
