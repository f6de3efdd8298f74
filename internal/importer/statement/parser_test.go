package statement_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/importer/statement"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

type row struct {
	date   time.Time
	desc   string
	amount string
	typ    transaction.Type
}

func assertRows(t *testing.T, want []row, got []transaction.CreateParams) {
	t.Helper()

	require.Len(t, got, len(want))

	for i, w := range want {
		assert.Equal(t, w.date, got[i].Date, "row %d date", i)
		assert.Equal(t, w.desc, got[i].Description, "row %d description", i)
		assert.True(t, decimal.RequireFromString(w.amount).Equal(got[i].Amount), "row %d amount: got %s", i, got[i].Amount)
		assert.Equal(t, w.typ, got[i].Type, "row %d type", i)
		assert.Equal(t, transaction.StatusPaid, got[i].Status)
		require.NotNil(t, got[i].PaymentDate)
		assert.Equal(t, w.date, *got[i].PaymentDate)
	}
}

func TestParser_Parse(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		want []row
	}{
		{
			name: "extrato with preamble",
			csv: `Extrato de conta corrente
Agência;0001
Conta;12345-6
Período;01/05/2024 a 31/05/2024

Data;Lançamento;Valor;Saldo
30/05/2024;PIX ENVIADO MERCADO CENTRAL;-1.234,56;8.765,44
10/05/2024;SALARIO EMPRESA X;5.000,00;10.000,00
;SALDO DO DIA;;10.000,00
`,
			want: []row{
				{date(2024, 5, 30), "PIX ENVIADO MERCADO CENTRAL", "1234.56", transaction.TypeExpense},
				{date(2024, 5, 10), "SALARIO EMPRESA X", "5000", transaction.TypeIncome},
			},
		},
		{
			name: "debit and credit columns",
			csv: `Data ;Histórico ;Débito ;Crédito ;
03/06/2024 ;TARIFA PACOTE SERVICOS ;R$ 29,90 ; ;
04/06/2024 ;TED RECEBIDA ; ;R$ 1.500,00 ;
 ; ; ;Página 1/1 ;
`,
			want: []row{
				{date(2024, 6, 3), "TARIFA PACOTE SERVICOS", "29.90", transaction.TypeExpense},
				{date(2024, 6, 4), "TED RECEBIDA", "1500", transaction.TypeIncome},
			},
		},
		{
			name: "digital account with point decimals",
			csv: `Data,Valor,Identificador,Descrição
01/06/2024,-42.90,6650e6a1,Compra no débito - Padaria
02/06/2024,150.00,6650e6a2,Transferência recebida pelo Pix
`,
			want: []row{
				{date(2024, 6, 1), "Compra no débito - Padaria", "42.90", transaction.TypeExpense},
				{date(2024, 6, 2), "Transferência recebida pelo Pix", "150", transaction.TypeIncome},
			},
		},
		{
			name: "card statement lists charges as positive",
			csv: `date,title,amount
2024-06-05,Uber *Trip,23.45
2024-06-07,Estorno de compra,-10.00
`,
			want: []row{
				{date(2024, 6, 5), "Uber *Trip", "23.45", transaction.TypeExpense},
				{date(2024, 6, 7), "Estorno de compra", "10", transaction.TypeIncome},
			},
		},
		{
			name: "zero amounts skipped",
			csv: `Data;Lançamento;Valor
01/06/2024;SALDO ANTERIOR;0,00
02/06/2024;PADARIA;-8,50
`,
			want: []row{
				{date(2024, 6, 2), "PADARIA", "8.50", transaction.TypeExpense},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs, err := statement.NewParser().Parse(strings.NewReader(tt.csv))
			require.NoError(t, err)
			assertRows(t, tt.want, txs)
		})
	}
}

func TestParser_Latin1(t *testing.T) {
	utf8CSV := "Data;Lançamento;Valor\n15/06/2024;DEPÓSITO EM ESPÉCIE;250,00\n"

	latin1, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(utf8CSV))
	require.NoError(t, err)

	txs, err := statement.NewParser().Parse(bytes.NewReader(latin1))
	require.NoError(t, err)
	assertRows(t, []row{
		{date(2024, 6, 15), "DEPÓSITO EM ESPÉCIE", "250", transaction.TypeIncome},
	}, txs)
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		wantErr string
	}{
		{
			name:    "unknown layout",
			csv:     "Foo;Bar\n1;2\n",
			wantErr: "no matching statement format",
		},
		{
			name:    "missing description",
			csv:     "Data;Lançamento;Valor\n01/06/2024;;-5,00\n",
			wantErr: "row 2: missing description",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := statement.NewParser().Parse(strings.NewReader(tt.csv))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
