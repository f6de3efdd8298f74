package statement

// amountMode determines how amounts are extracted from a row.
type amountMode int

const (
	// amountSingle means one signed column, e.g. "Valor" with "-42,90".
	amountSingle amountMode = iota
	// amountSplit means separate debit and credit columns.
	amountSplit
)

// Profile describes the column layout of a bank statement export.
type Profile struct {
	Name            string
	Comma           rune
	DateCol         string
	DateLayout      string
	DescCol         string
	AmountMode      amountMode
	AmountCol       string // amountSingle
	DebitCol        string // amountSplit
	CreditCol       string // amountSplit
	DecimalComma    bool   // "1.234,56" instead of "1234.56"
	ChargesPositive bool   // card exports list purchases as positive amounts
}

func (p Profile) requiredCols() []string {
	cols := []string{p.DateCol, p.DescCol}

	switch p.AmountMode {
	case amountSingle:
		cols = append(cols, p.AmountCol)
	case amountSplit:
		cols = append(cols, p.DebitCol, p.CreditCol)
	}

	return cols
}

// profiles is tried in order; more specific layouts come first.
var profiles = []Profile{
	{
		Name:         "debito-credito",
		Comma:        ';',
		DateCol:      "data",
		DateLayout:   "02/01/2006",
		DescCol:      "histórico",
		AmountMode:   amountSplit,
		DebitCol:     "débito",
		CreditCol:    "crédito",
		DecimalComma: true,
	},
	{
		Name:         "extrato",
		Comma:        ';',
		DateCol:      "data",
		DateLayout:   "02/01/2006",
		DescCol:      "lançamento",
		AmountMode:   amountSingle,
		AmountCol:    "valor",
		DecimalComma: true,
	},
	{
		Name:       "conta-digital",
		Comma:      ',',
		DateCol:    "data",
		DateLayout: "02/01/2006",
		DescCol:    "descrição",
		AmountMode: amountSingle,
		AmountCol:  "valor",
	},
	{
		Name:            "fatura-cartao",
		Comma:           ',',
		DateCol:         "date",
		DateLayout:      "2006-01-02",
		DescCol:         "title",
		AmountMode:      amountSingle,
		AmountCol:       "amount",
		ChargesPositive: true,
	},
}
