package bankcsv

// amountMode determines how amounts are extracted from a row.
type amountMode int

const (
	// amountSingle means one signed column (e.g. "Amount" with value "-10.00").
	amountSingle amountMode = iota
	// amountSplit means separate debit and credit columns.
	amountSplit
)

// Profile describes a bank statement column layout. Column entries are
// aliases: the first one found in the header is used. Supporting a new bank
// export is adding a Profile (or an alias) here.
type Profile struct {
	Name       string
	DateCols   []string
	DescCols   []string
	AmountMode amountMode
	AmountCols []string // used when AmountMode == amountSingle
	DebitCols  []string // used when AmountMode == amountSplit
	CreditCols []string // used when AmountMode == amountSplit
}

// profiles is the ordered list of layouts to try during auto-detection.
// Split debit/credit comes first: such exports often also carry a running
// balance column that would false-match the single-amount profile.
var profiles = []Profile{
	{
		Name:       "debit-credit",
		DateCols:   []string{"Date", "Data mov.", "Transaction Date"},
		DescCols:   []string{"Description", "Descrição", "Memo"},
		AmountMode: amountSplit,
		DebitCols:  []string{"Debit", "Débito"},
		CreditCols: []string{"Credit", "Crédito"},
	},
	{
		Name:       "signed-amount",
		DateCols:   []string{"Date", "Data mov.", "Transaction Date"},
		DescCols:   []string{"Description", "Descrição", "Memo"},
		AmountMode: amountSingle,
		AmountCols: []string{"Amount", "Montante", "Value"},
	},
}

// dateLayouts are tried in order when parsing row dates.
var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
}
