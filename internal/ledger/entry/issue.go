package entry

import "github.com/shopspring/decimal"

// Level tags an issue as blocking or advisory.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// IssueCode is a stable machine-readable identifier for a validation finding.
type IssueCode string

const (
	CodeDateRequired        IssueCode = "DATE_REQUIRED"
	CodeDescriptionRequired IssueCode = "DESCRIPTION_REQUIRED"
	CodeMinLines            IssueCode = "MIN_LINES"
	CodeNotBalanced         IssueCode = "NOT_BALANCED"
	CodeAccountRequired     IssueCode = "ACCOUNT_REQUIRED"
	CodeAccountNotFound     IssueCode = "ACCOUNT_NOT_FOUND"
	CodeBothSides           IssueCode = "BOTH_SIDES"
	CodeAmountRequired      IssueCode = "AMOUNT_REQUIRED"
	CodeTooManyDecimals     IssueCode = "TOO_MANY_DECIMALS"

	CodeCCRequired           IssueCode = "CC_REQUIRED"
	CodeCCNotFound           IssueCode = "CC_NOT_FOUND"
	CodeCURequired           IssueCode = "CU_REQUIRED"
	CodeCUNotFound           IssueCode = "CU_NOT_FOUND"
	CodeBranchRequired       IssueCode = "BRANCH_REQUIRED"
	CodeBranchNotFound       IssueCode = "BRANCH_NOT_FOUND"
	CodeItemRequired         IssueCode = "ITEM_REQUIRED"
	CodeItemNotFound         IssueCode = "ITEM_NOT_FOUND"
	CodeCounterpartyRequired IssueCode = "COUNTERPARTY_REQUIRED"
	CodeCounterpartyNotFound IssueCode = "COUNTERPARTY_NOT_FOUND"

	CodeTaxNotFound     IssueCode = "TAX_NOT_FOUND"
	CodeTaxRateNotFound IssueCode = "TAX_RATE_NOT_FOUND"
)

// Issue is one validation finding. LineNo 0 means header level. Field names
// the originating grid column so the UI can highlight the cell.
type Issue struct {
	Level   Level            `json:"level"`
	Code    IssueCode        `json:"code"`
	Message string           `json:"message"`
	LineNo  int              `json:"line_no,omitempty"`
	Field   string           `json:"field,omitempty"`
	Diff    *decimal.Decimal `json:"diff,omitempty"`
}

// HasErrors reports whether any issue is error level.
func HasErrors(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Level == LevelError {
			return true
		}
	}
	return false
}

// Errors returns only the error-level issues.
func Errors(issues []Issue) []Issue {
	var out []Issue
	for _, issue := range issues {
		if issue.Level == LevelError {
			out = append(out, issue)
		}
	}
	return out
}
