package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/iliyamo/expo-access/internal/config"
	"github.com/iliyamo/expo-access/internal/metrics"
	"github.com/iliyamo/expo-access/internal/model"
	"github.com/iliyamo/expo-access/internal/queue"
	"github.com/iliyamo/expo-access/internal/repository"
	"github.com/iliyamo/expo-access/internal/utils"
)

// CodePrefix starts every generated access code.
const CodePrefix = "QR_"

// QRService issues and redeems event access codes.
type QRService struct {
	codes      *repository.QRCodeRepo
	exhibitors *repository.ExhibitorRepo
	pub        queue.Publisher
	cfg        config.QRConfig
	log        *zap.Logger
	now        func() time.Time
	randHex    func(n int) (string, error)
}

func NewQRService(codes *repository.QRCodeRepo, exhibitors *repository.ExhibitorRepo, pub queue.Publisher,
	cfg config.QRConfig, log *zap.Logger) *QRService {
	return &QRService{codes: codes, exhibitors: exhibitors, pub: pub, cfg: cfg, log: log, now: time.Now, randHex: utils.RandomHex}
}

// IssueInput describes one code to issue.
type IssueInput struct {
	SubjectType model.SubjectType
	Email       string
	Name        string
	Company     *string
}

// BulkEntry is one line of a bulk issuance.  An empty Name defaults to
// "Usuario <local part of the email>".
type BulkEntry struct {
	Email   string
	Name    string
	Company *string
}

// Issue creates one unused code.  A candidate that collides with an
// existing code is discarded and a fresh one tried, up to MaxAttempts.
func (s *QRService) Issue(ctx context.Context, in IssueInput) (*model.QRCode, error) {
	q, err := s.prepare(in.SubjectType, in.Email, in.Name, in.Company)
	if err != nil {
		return nil, err
	}
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if q.Code, err = s.newCode(); err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		err = s.codes.Create(ctx, q)
		if errors.Is(err, repository.ErrConflict) {
			metrics.QRIssueRetries.Inc()
			s.log.Debug("qr: duplicate candidate, retrying", zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("insert code: %w", err)
		}
		metrics.QRIssued.WithLabelValues(string(q.SubjectType)).Inc()
		return q, nil
	}
	return nil, fmt.Errorf("no unique code after %d attempts: %w", s.cfg.MaxAttempts, ErrConflict)
}

// IssueBulk issues one code per entry in a single transaction.  Either
// every code is stored or none is.
func (s *QRService) IssueBulk(ctx context.Context, subject model.SubjectType, entries []BulkEntry) ([]model.QRCode, error) {
	if len(entries) == 0 {
		return nil, invalid("entries", "at least one email is required")
	}
	batch := make([]model.QRCode, 0, len(entries))
	for i, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			local, _, _ := strings.Cut(strings.TrimSpace(e.Email), "@")
			name = "Usuario " + local
		}
		q, err := s.prepare(subject, e.Email, name, e.Company)
		if err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				ve.Field = fmt.Sprintf("entries[%d].%s", i, ve.Field)
			}
			return nil, err
		}
		batch = append(batch, *q)
	}
	if err := s.insertBatch(ctx, batch); err != nil {
		return nil, err
	}
	metrics.QRIssued.WithLabelValues(string(subject)).Add(float64(len(batch)))
	return batch, nil
}

// IssueForExhibitors issues an exhibitor code for every active exhibitor,
// addressed to its contact email.
func (s *QRService) IssueForExhibitors(ctx context.Context) ([]model.QRCode, error) {
	list, err := s.exhibitors.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list exhibitors: %w", err)
	}
	if len(list) == 0 {
		return []model.QRCode{}, nil
	}
	entries := make([]BulkEntry, 0, len(list))
	for _, e := range list {
		company := e.CompanyName
		entries = append(entries, BulkEntry{Email: e.ContactEmail, Name: e.CompanyName, Company: &company})
	}
	return s.IssueBulk(ctx, model.SubjectExhibitor, entries)
}

// insertBatch assigns fresh codes to every item and inserts them in one
// statement, regenerating the whole batch when the statement hits a
// duplicate.
func (s *QRService) insertBatch(ctx context.Context, batch []model.QRCode) error {
	db := s.codes.DB()
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		seen := make(map[string]struct{}, len(batch))
		for i := range batch {
			for {
				c, err := s.newCode()
				if err != nil {
					return fmt.Errorf("generate code: %w", err)
				}
				if _, dup := seen[c]; !dup {
					seen[c] = struct{}{}
					batch[i].Code = c
					break
				}
			}
		}

		err := s.insertBatchOnce(ctx, db, batch)
		if errors.Is(err, repository.ErrConflict) {
			metrics.QRIssueRetries.Inc()
			s.log.Debug("qr: duplicate in batch, regenerating", zap.Int("attempt", attempt), zap.Int("size", len(batch)))
			continue
		}
		return err
	}
	return fmt.Errorf("no unique batch after %d attempts: %w", s.cfg.MaxAttempts, ErrConflict)
}

func (s *QRService) insertBatchOnce(ctx context.Context, db *sql.DB, batch []model.QRCode) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := s.codes.CreateBulkTx(ctx, tx, batch); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// Redeem marks a code used.  Only the first successful call flips the
// flag; later calls get the stored record together with ErrAlreadyUsed.
func (s *QRService) Redeem(ctx context.Context, code string) (*model.QRCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, invalid("code", "required")
	}
	q, err := s.codes.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.QRRedemptions.WithLabelValues("not_found").Inc()
		}
		return nil, err
	}
	if q.IsUsed {
		metrics.QRRedemptions.WithLabelValues("already_used").Inc()
		return q, ErrAlreadyUsed
	}

	at := s.now().UTC()
	first, err := s.codes.MarkUsed(ctx, q.ID, at)
	if err != nil {
		return nil, fmt.Errorf("mark used: %w", err)
	}
	if !first {
		// Lost the race against a concurrent scan; report what the winner stored.
		stored, err := s.codes.GetByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		metrics.QRRedemptions.WithLabelValues("already_used").Inc()
		return stored, ErrAlreadyUsed
	}

	q.IsUsed = true
	q.UsedAt = &at
	metrics.QRRedemptions.WithLabelValues("redeemed").Inc()
	if err := s.pub.Publish(ctx, queue.QRRedeemed(*q)); err != nil {
		s.log.Warn("qr: publish redeemed event failed", zap.String("code", q.Code), zap.Error(err))
	}
	return q, nil
}

// Lookup returns a code without changing it.
func (s *QRService) Lookup(ctx context.Context, code string) (*model.QRCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, invalid("code", "required")
	}
	return s.codes.GetByCode(ctx, code)
}

// List returns issued codes, newest first.
func (s *QRService) List(ctx context.Context, f repository.QRFilter) ([]model.QRCode, error) {
	if f.SubjectType != "" && !f.SubjectType.Valid() {
		return nil, invalid("user_type", "must be visitor or exhibitor")
	}
	return s.codes.List(ctx, f)
}

// Delete removes a code.
func (s *QRService) Delete(ctx context.Context, id uint64) error {
	return s.codes.Purge(ctx, id)
}

// RenderPNG encodes an existing code as a PNG image.  size <= 0 uses the
// configured default; the result is clamped to [64, 1024] pixels.
func (s *QRService) RenderPNG(ctx context.Context, code string, size int) ([]byte, error) {
	q, err := s.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = s.cfg.PNGSize
	}
	size = max(64, min(size, 1024))
	png, err := qrcode.Encode(q.Code, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return png, nil
}

func (s *QRService) prepare(subject model.SubjectType, email, name string, company *string) (*model.QRCode, error) {
	if !subject.Valid() {
		return nil, invalid("user_type", "must be visitor or exhibitor")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, invalid("user_email", "required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalid("user_email", "invalid email")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("user_name", "required")
	}
	if company != nil {
		c := strings.TrimSpace(*company)
		if c == "" {
			company = nil
		} else {
			company = &c
		}
	}
	return &model.QRCode{SubjectType: subject, SubjectEmail: email, SubjectName: name, CompanyName: company}, nil
}

func (s *QRService) newCode() (string, error) {
	h, err := s.randHex(s.cfg.TokenBytes)
	if err != nil {
		return "", err
	}
	return CodePrefix + h, nil
}
