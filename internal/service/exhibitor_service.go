package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/expo-access/internal/model"
	"github.com/iliyamo/expo-access/internal/repository"
)

// ExhibitorService manages the exhibitor directory.
type ExhibitorService struct {
	repo *repository.ExhibitorRepo
	log  *zap.Logger
}

func NewExhibitorService(repo *repository.ExhibitorRepo, log *zap.Logger) *ExhibitorService {
	return &ExhibitorService{repo: repo, log: log}
}

// Create validates and stores an exhibitor.
func (s *ExhibitorService) Create(ctx context.Context, e *model.Exhibitor) error {
	if err := normalizeExhibitor(e); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, e); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return fmt.Errorf("exhibitor %q: %w", e.CompanyName, ErrConflict)
		}
		return err
	}
	return nil
}

// Get returns one exhibitor.
func (s *ExhibitorService) Get(ctx context.Context, id uint64) (*model.Exhibitor, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns exhibitors ordered by company name.
func (s *ExhibitorService) List(ctx context.Context, activeOnly bool) ([]model.Exhibitor, error) {
	return s.repo.List(ctx, activeOnly)
}

// SetActive toggles whether an exhibitor is shown and can receive leads.
func (s *ExhibitorService) SetActive(ctx context.Context, id uint64, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

// ExportCSV writes every exhibitor in the fixed column layout.
func (s *ExhibitorService) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	list, err := s.repo.List(ctx, false)
	if err != nil {
		return 0, err
	}
	if err := WriteExhibitorsCSV(w, list); err != nil {
		return 0, err
	}
	return len(list), nil
}

// ImportCSV parses r and inserts every row in one transaction.  Any bad
// row rejects the whole file.
func (s *ExhibitorService) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	list, err := ParseExhibitorsCSV(r)
	if err != nil {
		return 0, err
	}
	for i := range list {
		if err := normalizeExhibitor(&list[i]); err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				ve.Field = fmt.Sprintf("row %d: %s", i+2, ve.Field)
			}
			return 0, err
		}
	}
	if len(list) == 0 {
		return 0, nil
	}

	tx, err := s.repo.DB().BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := s.repo.CreateBulkTx(ctx, tx, list); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return 0, fmt.Errorf("import: %w", ErrConflict)
		}
		return 0, fmt.Errorf("import: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	committed = true
	s.log.Info("exhibitors imported", zap.Int("count", len(list)))
	return len(list), nil
}

// normalizeExhibitor trims every text field the way the CSV reader does,
// so stored rows survive an export and re-import unchanged.
func normalizeExhibitor(e *model.Exhibitor) error {
	for _, f := range []*string{
		&e.CompanyName, &e.CompanyDescription, &e.ContactPhone, &e.WebsiteURL, &e.BoothNumber,
		&e.BenefitTitle, &e.BenefitDescription, &e.BenefitPercentage, &e.AdvisorName, &e.AdvisorPhone,
	} {
		*f = strings.TrimSpace(*f)
	}
	e.ContactEmail = strings.ToLower(strings.TrimSpace(e.ContactEmail))
	e.AdvisorEmail = strings.ToLower(strings.TrimSpace(e.AdvisorEmail))
	if e.CompanyName == "" {
		return invalid("company_name", "required")
	}
	if _, err := mail.ParseAddress(e.ContactEmail); err != nil {
		return invalid("contact_email", "invalid email")
	}
	if e.ContactPhone == "" {
		return invalid("contact_phone", "required")
	}
	if e.AdvisorEmail != "" {
		if _, err := mail.ParseAddress(e.AdvisorEmail); err != nil {
			return invalid("advisor_email", "invalid email")
		}
	}
	return nil
}
