package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/salonpos/backend/internal/config"
	"github.com/salonpos/backend/internal/logger"
	"github.com/salonpos/backend/internal/models"
)

const settingsCacheKey = "salon:settings"

// SettingsService reads and writes the single salon_settings row, caching it
// in Redis when a client is available.
type SettingsService struct {
	db        *sql.DB
	redis     *redis.Client
	ttl       time.Duration
	defaults  config.BillingConfig
	audit     *AuditRecorder
	validator *ValidationHelper
	log       zerolog.Logger
	now       func() time.Time
}

func NewSettingsService(db *sql.DB, redisClient *redis.Client, cfg *config.Config, audit *AuditRecorder) *SettingsService {
	return &SettingsService{
		db:        db,
		redis:     redisClient,
		ttl:       cfg.Redis.SettingsTTL,
		defaults:  cfg.Billing,
		audit:     audit,
		validator: NewValidationHelper(),
		log:       logger.WithComponent("settings"),
		now:       time.Now,
	}
}

type UpdateSettingsRequest struct {
	Name          string `json:"name" validate:"required,max=120"`
	Address       string `json:"address" validate:"max=500"`
	Phone         string `json:"phone" validate:"omitempty,phone"`
	GSTIN         string `json:"gstin" validate:"omitempty,len=15,alphanum"`
	LogoURL       string `json:"logo_url" validate:"omitempty,url"`
	ReceiptHeader string `json:"receipt_header" validate:"max=500"`
	ReceiptFooter string `json:"receipt_footer" validate:"max=500"`
	InvoicePrefix string `json:"invoice_prefix" validate:"required,alphanum,max=8"`
	TaxRateBps    int    `json:"tax_rate_bps" validate:"gte=0,lte=10000"`
	UPIVPA        string `json:"upi_vpa" validate:"omitempty,max=100,contains=@"`
}

// Get returns the salon settings. When no row exists yet the configured
// billing defaults are returned.
func (s *SettingsService) Get(ctx context.Context) (*models.SalonSettings, error) {
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, settingsCacheKey).Result()
		if err == nil {
			var settings models.SalonSettings
			if err := json.Unmarshal([]byte(cached), &settings); err == nil {
				return &settings, nil
			}
			s.log.Warn().Msg("discarding unreadable cached settings")
		} else if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Msg("settings cache unavailable")
		}
	}

	settings, err := s.load(ctx, s.db, false)
	if errors.Is(err, sql.ErrNoRows) {
		return s.fallback(), nil
	}
	if err != nil {
		return nil, wrap("GetSettings", err)
	}

	s.cache(ctx, settings)
	return settings, nil
}

// Update replaces the settings row and invalidates the cache.
func (s *SettingsService) Update(ctx context.Context, req UpdateSettingsRequest, actor string) (*models.SalonSettings, error) {
	if err := s.validator.ValidateStruct(&req); err != nil {
		return nil, invalid("UpdateSettings", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap("UpdateSettings", err)
	}
	defer tx.Rollback()

	before, err := s.load(ctx, tx, true)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, wrap("UpdateSettings", err)
	}

	after := &models.SalonSettings{
		Name:          req.Name,
		Address:       req.Address,
		Phone:         req.Phone,
		GSTIN:         req.GSTIN,
		LogoURL:       req.LogoURL,
		ReceiptHeader: req.ReceiptHeader,
		ReceiptFooter: req.ReceiptFooter,
		InvoicePrefix: req.InvoicePrefix,
		TaxRateBps:    req.TaxRateBps,
		UPIVPA:        req.UPIVPA,
		UpdatedAt:     s.now(),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO salon_settings
			(id, name, address, phone, gstin, logo_url, receipt_header, receipt_footer,
			 invoice_prefix, tax_rate_bps, upi_vpa, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, address = EXCLUDED.address, phone = EXCLUDED.phone,
			gstin = EXCLUDED.gstin, logo_url = EXCLUDED.logo_url,
			receipt_header = EXCLUDED.receipt_header, receipt_footer = EXCLUDED.receipt_footer,
			invoice_prefix = EXCLUDED.invoice_prefix, tax_rate_bps = EXCLUDED.tax_rate_bps,
			upi_vpa = EXCLUDED.upi_vpa, updated_at = EXCLUDED.updated_at`,
		after.Name, after.Address, after.Phone, after.GSTIN, after.LogoURL, after.ReceiptHeader,
		after.ReceiptFooter, after.InvoicePrefix, after.TaxRateBps, after.UPIVPA, after.UpdatedAt)
	if err != nil {
		return nil, wrap("UpdateSettings", err)
	}

	var beforeState any
	if before != nil {
		beforeState = before
	}
	if err := s.audit.RecordAction(ctx, tx, actor, "settings.update", "salon_settings", "1", beforeState, after); err != nil {
		return nil, wrap("UpdateSettings", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, wrap("UpdateSettings", err)
	}

	if s.redis != nil {
		if err := s.redis.Del(ctx, settingsCacheKey).Err(); err != nil {
			s.log.Warn().Err(err).Msg("failed to invalidate settings cache")
		}
	}
	s.log.Info().Str("actor", actor).Msg("salon settings updated")
	return after, nil
}

func (s *SettingsService) load(ctx context.Context, q DBTX, lock bool) (*models.SalonSettings, error) {
	query := `
		SELECT name, address, phone, gstin, logo_url, receipt_header, receipt_footer,
			invoice_prefix, tax_rate_bps, upi_vpa, updated_at
		FROM salon_settings WHERE id = 1`
	if lock {
		query += " FOR UPDATE"
	}
	var st models.SalonSettings
	err := q.QueryRowContext(ctx, query).Scan(&st.Name, &st.Address, &st.Phone, &st.GSTIN,
		&st.LogoURL, &st.ReceiptHeader, &st.ReceiptFooter, &st.InvoicePrefix, &st.TaxRateBps,
		&st.UPIVPA, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *SettingsService) fallback() *models.SalonSettings {
	return &models.SalonSettings{
		InvoicePrefix: s.defaults.InvoicePrefix,
		TaxRateBps:    s.defaults.TaxRateBps,
	}
}

func (s *SettingsService) cache(ctx context.Context, settings *models.SalonSettings) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, settingsCacheKey, string(data), s.ttl).Err(); err != nil {
		s.log.Warn().Err(err).Msg("failed to cache settings")
	}
}
