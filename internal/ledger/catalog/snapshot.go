package catalog

import "strings"

// Snapshot is an immutable view over the company catalogs, indexed by
// human-facing code. It is built once per refresh and replaced wholesale,
// never patched.
type Snapshot struct {
	CompanyID      int64                      `json:"company_id"`
	Accounts       []Account                  `json:"accounts"`
	CostCenters    []CostCenter               `json:"cost_centers"`
	BusinessLines  []BusinessLine             `json:"business_lines"`
	Branches       []Branch                   `json:"branches"`
	Items          []Item                     `json:"items"`
	Taxes          []Tax                      `json:"taxes"`
	Counterparties []Counterparty             `json:"counterparties"`
	Policies       map[int64]ImputationPolicy `json:"policies"`
	Settings       Settings                   `json:"settings"`

	accountsByCode        map[string]*Account
	costCentersByCode     map[string]*CostCenter
	businessLinesByCode   map[string]*BusinessLine
	branchesByCode        map[string]*Branch
	itemsBySKU            map[string]*Item
	taxesByCode           map[string]*Tax
	counterpartiesByIdent map[string]*Counterparty
}

// BuildIndexes derives the code lookup maps from the catalog slices.
// Codes are matched after trimming surrounding whitespace, case-sensitive.
func (s *Snapshot) BuildIndexes() {
	s.accountsByCode = make(map[string]*Account, len(s.Accounts))
	for i := range s.Accounts {
		s.accountsByCode[strings.TrimSpace(s.Accounts[i].Code)] = &s.Accounts[i]
	}
	s.costCentersByCode = make(map[string]*CostCenter, len(s.CostCenters))
	for i := range s.CostCenters {
		s.costCentersByCode[strings.TrimSpace(s.CostCenters[i].Code)] = &s.CostCenters[i]
	}
	s.businessLinesByCode = make(map[string]*BusinessLine, len(s.BusinessLines))
	for i := range s.BusinessLines {
		s.businessLinesByCode[strings.TrimSpace(s.BusinessLines[i].Code)] = &s.BusinessLines[i]
	}
	s.branchesByCode = make(map[string]*Branch, len(s.Branches))
	for i := range s.Branches {
		s.branchesByCode[strings.TrimSpace(s.Branches[i].Code)] = &s.Branches[i]
	}
	s.itemsBySKU = make(map[string]*Item, len(s.Items))
	for i := range s.Items {
		s.itemsBySKU[strings.TrimSpace(s.Items[i].SKU)] = &s.Items[i]
	}
	s.taxesByCode = make(map[string]*Tax, len(s.Taxes))
	for i := range s.Taxes {
		s.taxesByCode[strings.TrimSpace(s.Taxes[i].Code)] = &s.Taxes[i]
	}
	s.counterpartiesByIdent = make(map[string]*Counterparty, len(s.Counterparties))
	for i := range s.Counterparties {
		s.counterpartiesByIdent[strings.TrimSpace(s.Counterparties[i].Identifier)] = &s.Counterparties[i]
	}
}

// Account resolves an account code. Returns nil when unknown.
func (s *Snapshot) Account(code string) *Account {
	return s.accountsByCode[strings.TrimSpace(code)]
}

// CostCenter resolves a cost-center code.
func (s *Snapshot) CostCenter(code string) *CostCenter {
	return s.costCentersByCode[strings.TrimSpace(code)]
}

// BusinessLine resolves a business-line code.
func (s *Snapshot) BusinessLine(code string) *BusinessLine {
	return s.businessLinesByCode[strings.TrimSpace(code)]
}

// Branch resolves a branch code.
func (s *Snapshot) Branch(code string) *Branch {
	return s.branchesByCode[strings.TrimSpace(code)]
}

// Item resolves an item SKU.
func (s *Snapshot) Item(sku string) *Item {
	return s.itemsBySKU[strings.TrimSpace(sku)]
}

// Tax resolves a tax code.
func (s *Snapshot) Tax(code string) *Tax {
	return s.taxesByCode[strings.TrimSpace(code)]
}

// Counterparty resolves a counterparty identifier.
func (s *Snapshot) Counterparty(identifier string) *Counterparty {
	return s.counterpartiesByIdent[strings.TrimSpace(identifier)]
}

// ResolveID resolves any dimension kind to its internal id.
// It is a pure lookup and never errors; unknown codes report ok=false.
func (s *Snapshot) ResolveID(kind DimensionKind, code string) (int64, bool) {
	switch kind {
	case KindAccount:
		if a := s.Account(code); a != nil {
			return a.ID, true
		}
	case KindCostCenter:
		if c := s.CostCenter(code); c != nil {
			return c.ID, true
		}
	case KindBusinessLine:
		if b := s.BusinessLine(code); b != nil {
			return b.ID, true
		}
	case KindBranch:
		if b := s.Branch(code); b != nil {
			return b.ID, true
		}
	case KindItem:
		if it := s.Item(code); it != nil {
			return it.ID, true
		}
	case KindTax:
		if t := s.Tax(code); t != nil {
			return t.ID, true
		}
	case KindCounterparty:
		if cp := s.Counterparty(code); cp != nil {
			return cp.ID, true
		}
	}
	return 0, false
}

// CodeForID is the reverse lookup used when rehydrating a stored draft back
// into human-facing codes. Unknown ids report ok=false so the editor can
// show the raw id instead of dropping the cell.
func (s *Snapshot) CodeForID(kind DimensionKind, id int64) (string, bool) {
	switch kind {
	case KindAccount:
		for i := range s.Accounts {
			if s.Accounts[i].ID == id {
				return s.Accounts[i].Code, true
			}
		}
	case KindCostCenter:
		for i := range s.CostCenters {
			if s.CostCenters[i].ID == id {
				return s.CostCenters[i].Code, true
			}
		}
	case KindBusinessLine:
		for i := range s.BusinessLines {
			if s.BusinessLines[i].ID == id {
				return s.BusinessLines[i].Code, true
			}
		}
	case KindBranch:
		for i := range s.Branches {
			if s.Branches[i].ID == id {
				return s.Branches[i].Code, true
			}
		}
	case KindItem:
		for i := range s.Items {
			if s.Items[i].ID == id {
				return s.Items[i].SKU, true
			}
		}
	case KindTax:
		for i := range s.Taxes {
			if s.Taxes[i].ID == id {
				return s.Taxes[i].Code, true
			}
		}
	case KindCounterparty:
		for i := range s.Counterparties {
			if s.Counterparties[i].ID == id {
				return s.Counterparties[i].Identifier, true
			}
		}
	}
	return "", false
}

// PolicyFor returns the imputation policy for an account. A missing policy
// record means no extra dimension is required.
func (s *Snapshot) PolicyFor(accountID int64) ImputationPolicy {
	if s.Policies == nil {
		return ImputationPolicy{}
	}
	return s.Policies[accountID]
}
