package service

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/iliyamo/expo-access/internal/model"
	"github.com/iliyamo/expo-access/internal/repository"
)

// ExhibitorCSVHeader is the column layout of exhibitor exports.
var ExhibitorCSVHeader = []string{
	"company_name",
	"company_description",
	"contact_email",
	"contact_phone",
	"website_url",
	"booth_number",
	"benefit_title",
	"benefit_description",
	"benefit_percentage",
	"advisor_name",
	"advisor_email",
	"advisor_phone",
	"is_active",
}

var requiredCSVColumns = []string{"company_name", "contact_email", "contact_phone"}

func exhibitorField(e *model.Exhibitor, col string) string {
	switch col {
	case "company_name":
		return e.CompanyName
	case "company_description":
		return e.CompanyDescription
	case "contact_email":
		return e.ContactEmail
	case "contact_phone":
		return e.ContactPhone
	case "website_url":
		return e.WebsiteURL
	case "booth_number":
		return e.BoothNumber
	case "benefit_title":
		return e.BenefitTitle
	case "benefit_description":
		return e.BenefitDescription
	case "benefit_percentage":
		return e.BenefitPercentage
	case "advisor_name":
		return e.AdvisorName
	case "advisor_email":
		return e.AdvisorEmail
	case "advisor_phone":
		return e.AdvisorPhone
	case "is_active":
		return strconv.FormatBool(e.IsActive)
	}
	return ""
}

func setExhibitorField(e *model.Exhibitor, col, v string) {
	switch col {
	case "company_name":
		e.CompanyName = v
	case "company_description":
		e.CompanyDescription = v
	case "contact_email":
		e.ContactEmail = v
	case "contact_phone":
		e.ContactPhone = v
	case "website_url":
		e.WebsiteURL = v
	case "booth_number":
		e.BoothNumber = v
	case "benefit_title":
		e.BenefitTitle = v
	case "benefit_description":
		e.BenefitDescription = v
	case "benefit_percentage":
		e.BenefitPercentage = v
	case "advisor_name":
		e.AdvisorName = v
	case "advisor_email":
		e.AdvisorEmail = v
	case "advisor_phone":
		e.AdvisorPhone = v
	}
}

// WriteExhibitorsCSV writes the header line and one line per exhibitor.
// Every data field is double-quoted, with embedded quotes doubled.
// encoding/csv only quotes when needed, so lines are assembled here.
func WriteExhibitorsCSV(w io.Writer, list []model.Exhibitor) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(ExhibitorCSVHeader, ",") + "\n"); err != nil {
		return err
	}
	for i := range list {
		for j, col := range ExhibitorCSVHeader {
			if j > 0 {
				_ = bw.WriteByte(',')
			}
			_ = bw.WriteByte('"')
			_, _ = bw.WriteString(strings.ReplaceAll(exhibitorField(&list[i], col), `"`, `""`))
			_ = bw.WriteByte('"')
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ParseExhibitorsCSV reads an exhibitor sheet.  Columns may appear in any
// order; company_name, contact_email and contact_phone must be present.
// A blank booth_number becomes B001, B002... by data row, and is_active
// is true unless the cell holds something other than true/1.
func ParseExhibitorsCSV(r io.Reader) ([]model.Exhibitor, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, invalid("csv", "empty file")
	}
	if err != nil {
		return nil, invalid("csv", err.Error())
	}
	cols := make([]string, len(header))
	present := map[string]bool{}
	for i, h := range header {
		cols[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		present[cols[i]] = true
	}
	var missing []string
	for _, req := range requiredCSVColumns {
		if !present[req] {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return nil, invalid("csv", "missing required columns: "+strings.Join(missing, ", "))
	}

	out := []model.Exhibitor{}
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, invalid("csv", err.Error())
		}
		if blankRecord(rec) {
			row--
			continue
		}
		e := model.Exhibitor{IsActive: true}
		active := ""
		for i, col := range cols {
			if i >= len(rec) {
				break
			}
			v := strings.TrimSpace(rec[i])
			if col == "is_active" {
				active = v
				continue
			}
			setExhibitorField(&e, col, v)
		}
		if active != "" {
			e.IsActive = parseActive(active)
		}
		if e.BoothNumber == "" {
			e.BoothNumber = repository.DefaultBoothNumber(uint64(row))
		}
		out = append(out, e)
	}
	return out, nil
}

func parseActive(v string) bool {
	v = strings.ToLower(v)
	return v == "true" || v == "1"
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
