package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/expo-access/internal/model"
	"github.com/iliyamo/expo-access/internal/repository"
)

// DashboardStats is the admin dashboard summary.
type DashboardStats struct {
	TotalExhibitors        int            `json:"total_exhibitors"`
	ActiveExhibitors       int            `json:"active_exhibitors"`
	TotalLeads             int            `json:"total_leads"`
	LeadsByType            map[string]int `json:"leads_by_type"`
	LeadsByStatus          map[string]int `json:"leads_by_status"`
	TotalQRCodes           int            `json:"total_qr_codes"`
	UsedQRCodes            int            `json:"used_qr_codes"`
	QRCodesBySubject       map[string]int `json:"qr_codes_by_user_type"`
	TodayLeads             int            `json:"today_leads"`
	TodayScans             int            `json:"today_scans"`
	ConfirmedPresentations int            `json:"confirmed_presentations"`
	PendingPresentations   int            `json:"pending_presentations"`
	AssignmentsByStatus    map[string]int `json:"booth_assignments_by_status"`
	GeneratedAt            time.Time      `json:"generated_at"`
}

// ReportService aggregates read-only statistics.
type ReportService struct {
	reports *repository.ReportRepo
	leads   *repository.LeadRepo
	now     func() time.Time
}

func NewReportService(reports *repository.ReportRepo, leads *repository.LeadRepo) *ReportService {
	return &ReportService{reports: reports, leads: leads, now: time.Now}
}

// Dashboard runs the independent count queries concurrently and returns
// once all of them finished.  The first failure cancels the rest.
func (s *ReportService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	st := &DashboardStats{GeneratedAt: now}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.TotalExhibitors, st.ActiveExhibitors, err = s.reports.ExhibitorCounts(gctx)
		return wrap("exhibitor counts", err)
	})
	g.Go(func() (err error) {
		st.LeadsByType, err = s.reports.LeadsByType(gctx)
		return wrap("leads by type", err)
	})
	g.Go(func() (err error) {
		st.LeadsByStatus, err = s.reports.LeadsByStatus(gctx)
		return wrap("leads by status", err)
	})
	g.Go(func() (err error) {
		st.QRCodesBySubject, err = s.reports.QRBySubject(gctx)
		return wrap("qr by subject", err)
	})
	g.Go(func() (err error) {
		st.UsedQRCodes, err = s.reports.QRUsed(gctx)
		return wrap("qr used", err)
	})
	g.Go(func() (err error) {
		st.TodayLeads, err = s.reports.LeadsSince(gctx, today)
		return wrap("today leads", err)
	})
	g.Go(func() (err error) {
		st.TodayScans, err = s.reports.ScansSince(gctx, today)
		return wrap("today scans", err)
	})
	g.Go(func() (err error) {
		st.ConfirmedPresentations, st.PendingPresentations, err = s.reports.PresentationCounts(gctx)
		return wrap("presentations", err)
	})
	g.Go(func() (err error) {
		st.AssignmentsByStatus, err = s.reports.AssignmentsByStatus(gctx)
		return wrap("assignments", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, n := range st.LeadsByType {
		st.TotalLeads += n
	}
	for _, n := range st.QRCodesBySubject {
		st.TotalQRCodes += n
	}
	return st, nil
}

var leadSheetHeader = []interface{}{
	"ID", "Expositor", "Visitante", "Email", "Teléfono", "Tipo", "Estado", "Notas", "Creado",
}

// ExportLeadsXLSX writes the leads matching f as an Excel workbook.
func (s *ReportService) ExportLeadsXLSX(ctx context.Context, f repository.LeadFilter, w io.Writer) (int, error) {
	leads, err := s.leads.List(ctx, f)
	if err != nil {
		return 0, err
	}

	xf := excelize.NewFile()
	defer func() { _ = xf.Close() }()
	const sheet = "Leads"
	if err := xf.SetSheetName("Sheet1", sheet); err != nil {
		return 0, err
	}
	if err := xf.SetSheetRow(sheet, "A1", &leadSheetHeader); err != nil {
		return 0, err
	}
	for i, l := range leads {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, err
		}
		row := leadRow(l)
		if err := xf.SetSheetRow(sheet, cell, &row); err != nil {
			return 0, err
		}
	}
	if _, err := xf.WriteTo(w); err != nil {
		return 0, fmt.Errorf("write xlsx: %w", err)
	}
	return len(leads), nil
}

func leadRow(l model.Lead) []interface{} {
	notes := ""
	if l.Notes != nil {
		notes = *l.Notes
	}
	return []interface{}{
		l.ID, l.CompanyName, l.VisitorName, l.VisitorEmail, l.VisitorPhone,
		string(l.LeadType), string(l.Status), notes, l.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func wrap(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", what, err)
}
