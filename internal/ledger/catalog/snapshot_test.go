package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
)

func buildSnapshot() *Snapshot {
	snap := &Snapshot{
		CompanyID: 1,
		Accounts: []Account{
			{ID: 10, Code: "1101", Name: "Caja", Level: 4},
			{ID: 30, Code: "5101", Name: "Gastos generales", Level: 4},
		},
		CostCenters:   []CostCenter{{ID: 40, Code: "CC-01", Name: "Administracion"}},
		BusinessLines: []BusinessLine{{ID: 50, Code: "BL-01", Name: "Retail"}},
		Branches:      []Branch{{ID: 60, Code: "SCL", Name: "Santiago"}},
		Items:         []Item{{ID: 70, SKU: "SKU-100", Name: "Servicio"}},
		Taxes:         []Tax{{ID: 80, Code: "IVA", Name: "IVA", Rates: []decimal.Decimal{decimal.RequireFromString("19")}}},
		Counterparties: []Counterparty{
			{ID: 90, Identifier: "76543210-K", Name: "Proveedor Uno", Type: "SUPPLIER"},
		},
		Policies: map[int64]ImputationPolicy{30: {RequireCC: true}},
		Settings: Settings{MoneyDecimals: 2},
	}
	snap.BuildIndexes()
	return snap
}

func TestSnapshotResolvesTrimmedCodes(t *testing.T) {
	snap := buildSnapshot()

	if a := snap.Account(" 1101 "); a == nil || a.ID != 10 {
		t.Fatalf("expected account 1101 to resolve, got %+v", a)
	}
	if a := snap.Account("1102"); a != nil {
		t.Fatalf("expected unknown code to return nil, got %+v", a)
	}
	// Case-sensitive on purpose.
	if cc := snap.CostCenter("cc-01"); cc != nil {
		t.Fatalf("expected lower-case code to miss, got %+v", cc)
	}
}

func TestSnapshotResolveID(t *testing.T) {
	snap := buildSnapshot()

	cases := []struct {
		kind DimensionKind
		code string
		want int64
	}{
		{KindAccount, "5101", 30},
		{KindCostCenter, "CC-01", 40},
		{KindBusinessLine, "BL-01", 50},
		{KindBranch, "SCL", 60},
		{KindItem, "SKU-100", 70},
		{KindTax, "IVA", 80},
		{KindCounterparty, "76543210-K", 90},
	}
	for _, tc := range cases {
		id, ok := snap.ResolveID(tc.kind, tc.code)
		if !ok || id != tc.want {
			t.Fatalf("ResolveID(%s, %q) = %d, %v; want %d", tc.kind, tc.code, id, ok, tc.want)
		}
	}

	if _, ok := snap.ResolveID(KindAccount, "9999"); ok {
		t.Fatal("expected unknown account code to report ok=false")
	}
}

func TestSnapshotCodeForIDRoundTrip(t *testing.T) {
	snap := buildSnapshot()

	for _, kind := range []DimensionKind{KindAccount, KindCostCenter, KindBusinessLine, KindBranch, KindItem, KindTax, KindCounterparty} {
		var code string
		switch kind {
		case KindAccount:
			code = "1101"
		case KindCostCenter:
			code = "CC-01"
		case KindBusinessLine:
			code = "BL-01"
		case KindBranch:
			code = "SCL"
		case KindItem:
			code = "SKU-100"
		case KindTax:
			code = "IVA"
		case KindCounterparty:
			code = "76543210-K"
		}
		id, ok := snap.ResolveID(kind, code)
		if !ok {
			t.Fatalf("ResolveID(%s, %q) missed", kind, code)
		}
		back, ok := snap.CodeForID(kind, id)
		if !ok || back != code {
			t.Fatalf("CodeForID(%s, %d) = %q, %v; want %q", kind, id, back, ok, code)
		}
	}

	if _, ok := snap.CodeForID(KindBranch, 999); ok {
		t.Fatal("expected unknown id to report ok=false")
	}
}

func TestPolicyForMissingAccountIsZero(t *testing.T) {
	snap := buildSnapshot()

	if p := snap.PolicyFor(30); !p.RequireCC {
		t.Fatalf("expected policy for account 30 to require cost center, got %+v", p)
	}
	if p := snap.PolicyFor(10); p != (ImputationPolicy{}) {
		t.Fatalf("expected zero policy for unconfigured account, got %+v", p)
	}

	var empty Snapshot
	if p := empty.PolicyFor(1); p != (ImputationPolicy{}) {
		t.Fatalf("expected zero policy on nil map, got %+v", p)
	}
}
