package entry

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/austral-erp/austral-erp/internal/ledger/catalog"
)

// Validator applies the structural, numeric and dimensional-policy rules to
// a header plus ordered line set. It is deterministic and does no I/O; every
// code lookup goes through the snapshot it was built with.
type Validator struct {
	snap *catalog.Snapshot
}

func NewValidator(snap *catalog.Snapshot) *Validator {
	return &Validator{snap: snap}
}

// dimension drives the per-line mandatory-dimension loop so the importer and
// the editor share identical resolution semantics.
type dimension struct {
	field        string
	kind         catalog.DimensionKind
	requiredCode IssueCode
	notFoundCode IssueCode
	code         func(Line) string
	required     func(catalog.ImputationPolicy) bool
}

var dimensions = []dimension{
	{
		field:        "cost_center_code",
		kind:         catalog.KindCostCenter,
		requiredCode: CodeCCRequired,
		notFoundCode: CodeCCNotFound,
		code:         func(l Line) string { return l.CostCenterCode },
		required:     func(p catalog.ImputationPolicy) bool { return p.RequireCC },
	},
	{
		field:        "business_line_code",
		kind:         catalog.KindBusinessLine,
		requiredCode: CodeCURequired,
		notFoundCode: CodeCUNotFound,
		code:         func(l Line) string { return l.BusinessLineCode },
		required:     func(p catalog.ImputationPolicy) bool { return p.RequireCU },
	},
	{
		field:        "branch_code",
		kind:         catalog.KindBranch,
		requiredCode: CodeBranchRequired,
		notFoundCode: CodeBranchNotFound,
		code:         func(l Line) string { return l.BranchCode },
		required:     func(p catalog.ImputationPolicy) bool { return p.RequireBranch },
	},
	{
		field:        "item_code",
		kind:         catalog.KindItem,
		requiredCode: CodeItemRequired,
		notFoundCode: CodeItemNotFound,
		code:         func(l Line) string { return l.ItemCode },
		required:     func(p catalog.ImputationPolicy) bool { return p.RequireItem },
	},
	{
		field:        "counterparty_identifier",
		kind:         catalog.KindCounterparty,
		requiredCode: CodeCounterpartyRequired,
		notFoundCode: CodeCounterpartyNotFound,
		code:         func(l Line) string { return l.CounterpartyIdentifier },
		required:     func(p catalog.ImputationPolicy) bool { return p.RequireCounterparty },
	},
}

// Validate collects every finding instead of stopping at the first, so the
// user fixes the whole entry in one pass. StrictBalance is only set on the
// posting path; draft saves tolerate an unbalanced entry.
func (v *Validator) Validate(header Header, lines []Line, strictBalance bool) []Issue {
	var issues []Issue

	if header.EntryDate.IsZero() {
		issues = append(issues, Issue{Level: LevelError, Code: CodeDateRequired, Field: "entry_date", Message: "entry date is required"})
	}
	if strings.TrimSpace(header.Description) == "" {
		issues = append(issues, Issue{Level: LevelError, Code: CodeDescriptionRequired, Field: "description", Message: "description is required"})
	}

	usable := UsableLines(lines)
	if len(usable) < 2 {
		issues = append(issues, Issue{Level: LevelError, Code: CodeMinLines, Message: "a journal entry needs at least two lines"})
	}

	if strictBalance {
		diff := BalanceDiff(usable)
		if diff.Abs().GreaterThan(v.snap.Settings.PostingTolerance) {
			d := diff
			issues = append(issues, Issue{
				Level:   LevelError,
				Code:    CodeNotBalanced,
				Message: fmt.Sprintf("debits and credits differ by %s", diff.String()),
				Diff:    &d,
			})
		}
	}

	for idx, line := range usable {
		lineNo := line.LineNo
		if lineNo == 0 {
			lineNo = idx + 1
		}
		issues = append(issues, v.validateLine(line, lineNo)...)
	}
	return issues
}

func (v *Validator) validateLine(line Line, lineNo int) []Issue {
	var issues []Issue
	add := func(level Level, code IssueCode, field, msg string) {
		issues = append(issues, Issue{Level: level, Code: code, Message: msg, LineNo: lineNo, Field: field})
	}

	var account *catalog.Account
	if strings.TrimSpace(line.AccountCode) == "" {
		add(LevelError, CodeAccountRequired, "account_code", "account code is required")
	} else if account = v.snap.Account(line.AccountCode); account == nil {
		add(LevelError, CodeAccountNotFound, "account_code", fmt.Sprintf("account %q does not exist", strings.TrimSpace(line.AccountCode)))
	}

	switch {
	case line.Debit.IsPositive() && line.Credit.IsPositive():
		add(LevelError, CodeBothSides, "debit", "a line cannot carry both debit and credit")
	case !line.Debit.IsPositive() && !line.Credit.IsPositive():
		add(LevelError, CodeAmountRequired, "debit", "a debit or credit amount is required")
	default:
		field, amount := "debit", line.Debit
		if line.Credit.IsPositive() {
			field, amount = "credit", line.Credit
		}
		if !amount.Equal(amount.Round(v.snap.Settings.MoneyDecimals)) {
			add(LevelError, CodeTooManyDecimals, field,
				fmt.Sprintf("amount %s has more than %d decimals", amount.String(), v.snap.Settings.MoneyDecimals))
		}
	}

	var policy catalog.ImputationPolicy
	if account != nil {
		policy = v.snap.PolicyFor(account.ID)
	}
	for _, dim := range dimensions {
		code := strings.TrimSpace(dim.code(line))
		required := dim.required(policy)
		if code == "" {
			if required {
				add(LevelError, dim.requiredCode, dim.field, fmt.Sprintf("%s is required for account %s", dim.field, strings.TrimSpace(line.AccountCode)))
			}
			continue
		}
		if _, ok := v.snap.ResolveID(dim.kind, code); !ok {
			level := LevelWarning
			if required {
				level = LevelError
			}
			add(level, dim.notFoundCode, dim.field, fmt.Sprintf("%s %q does not exist", dim.field, code))
		}
	}

	if taxCode := strings.TrimSpace(line.TaxCode); taxCode != "" {
		tax := v.snap.Tax(taxCode)
		if tax == nil {
			add(LevelError, CodeTaxNotFound, "tax_code", fmt.Sprintf("tax %q does not exist", taxCode))
		} else if !taxRateMatches(line.TaxRate, tax.Rates) {
			add(LevelError, CodeTaxRateNotFound, "tax_rate",
				fmt.Sprintf("rate %q is not an active rate of tax %s", strings.TrimSpace(line.TaxRate), taxCode))
		}
	}
	return issues
}

// taxRateMatches compares the typed rate against the tax's active rates by
// numeric equality, accepting comma as the decimal separator.
func taxRateMatches(raw string, rates []decimal.Decimal) bool {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if raw == "" {
		return false
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return false
	}
	for _, r := range rates {
		if r.Equal(rate) {
			return true
		}
	}
	return false
}
