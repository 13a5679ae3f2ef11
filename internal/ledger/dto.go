package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/austral-erp/austral-erp/internal/ledger/entry"
)

// saveDraftRequest mirrors the editing grid. Structural validity is checked
// by the Entry Validator so the grid gets issues with cell locators back
// instead of a bare 400.
type saveDraftRequest struct {
	ID           string          `json:"id"`
	EntryDate    string          `json:"entry_date"`
	Description  string          `json:"description"`
	Reference    string          `json:"reference"`
	CurrencyCode string          `json:"currency_code" validate:"omitempty,len=3"`
	SeriesCode   string          `json:"series_code" validate:"required"`
	Lines        []saveDraftLine `json:"lines"`
}

type saveDraftLine struct {
	Key                    string          `json:"key"`
	AccountCode            string          `json:"account_code"`
	Debit                  decimal.Decimal `json:"debit"`
	Credit                 decimal.Decimal `json:"credit"`
	Description            string          `json:"description"`
	Reference              string          `json:"reference"`
	CounterpartyIdentifier string          `json:"counterparty_identifier"`
	CostCenterCode         string          `json:"cost_center_code"`
	BusinessLineCode       string          `json:"business_line_code"`
	BranchCode             string          `json:"branch_code"`
	ItemCode               string          `json:"item_code"`
	TaxCode                string          `json:"tax_code"`
	TaxRate                string          `json:"tax_rate"`
}

func (r saveDraftRequest) toDomain(companyID int64) (entry.Header, []entry.Line, error) {
	header := entry.Header{
		CompanyID:    companyID,
		Description:  r.Description,
		Reference:    r.Reference,
		CurrencyCode: r.CurrencyCode,
		SeriesCode:   r.SeriesCode,
	}
	if r.ID != "" {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return entry.Header{}, nil, err
		}
		header.ID = id
	}
	if r.EntryDate != "" {
		date, err := time.Parse("2006-01-02", r.EntryDate)
		if err == nil {
			header.EntryDate = date
		}
	}
	lines := make([]entry.Line, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, entry.Line{
			Key:                    l.Key,
			AccountCode:            l.AccountCode,
			Debit:                  l.Debit,
			Credit:                 l.Credit,
			Description:            l.Description,
			Reference:              l.Reference,
			CounterpartyIdentifier: l.CounterpartyIdentifier,
			CostCenterCode:         l.CostCenterCode,
			BusinessLineCode:       l.BusinessLineCode,
			BranchCode:             l.BranchCode,
			ItemCode:               l.ItemCode,
			TaxCode:                l.TaxCode,
			TaxRate:                l.TaxRate,
		})
	}
	return header, lines, nil
}

type draftResponse struct {
	ID          uuid.UUID       `json:"id"`
	EntryDate   string          `json:"entry_date"`
	Description string          `json:"description"`
	Reference   string          `json:"reference,omitempty"`
	Currency    string          `json:"currency_code"`
	Series      string          `json:"series_code"`
	Status      entry.Status    `json:"status"`
	Correlative *int64          `json:"correlative,omitempty"`
	PostedAt    *time.Time      `json:"posted_at,omitempty"`
	Lines       []saveDraftLine `json:"lines,omitempty"`
	Issues      []entry.Issue   `json:"issues,omitempty"`
}

func toDraftResponse(h entry.Header, lines []entry.Line, issues []entry.Issue) draftResponse {
	resp := draftResponse{
		ID:          h.ID,
		Description: h.Description,
		Reference:   h.Reference,
		Currency:    h.CurrencyCode,
		Series:      h.SeriesCode,
		Status:      h.Status,
		Correlative: h.Correlative,
		PostedAt:    h.PostedAt,
		Issues:      issues,
	}
	if !h.EntryDate.IsZero() {
		resp.EntryDate = h.EntryDate.Format("2006-01-02")
	}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, saveDraftLine{
			Key:                    l.Key,
			AccountCode:            l.AccountCode,
			Debit:                  l.Debit,
			Credit:                 l.Credit,
			Description:            l.Description,
			Reference:              l.Reference,
			CounterpartyIdentifier: l.CounterpartyIdentifier,
			CostCenterCode:         l.CostCenterCode,
			BusinessLineCode:       l.BusinessLineCode,
			BranchCode:             l.BranchCode,
			ItemCode:               l.ItemCode,
			TaxCode:                l.TaxCode,
			TaxRate:                l.TaxRate,
		})
	}
	return resp
}

type postBatchRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,uuid4"`
}

type createCounterpartyRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Type       string `json:"type" validate:"required,oneof=SUPPLIER CUSTOMER EMPLOYEE OTHER"`
	Email      string `json:"email" validate:"omitempty,email"`
}
