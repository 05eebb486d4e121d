package report

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MonthlyTotal aggregates one contract's money flow for one month.
type MonthlyTotal struct {
	ContractID     string  `json:"contractId"`
	Month          string  `json:"month"`
	PaymentCount   int     `json:"paymentCount"`
	PaymentTotal   float64 `json:"paymentTotal"`
	DeductionTotal float64 `json:"deductionTotal"`
}

// Service runs reporting aggregates straight against Postgres. The
// document rows keep their payload as JSON text, so the queries cast to
// jsonb and group on extracted fields. Only available when the server
// runs on Postgres.
type Service struct {
	pool *pgxpool.Pool
}

func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

const monthlyTotalsSQL = `
SELECT
    p.data::jsonb ->> 'contractId'          AS contract_id,
    substr(p.data::jsonb ->> 'date', 1, 7)  AS month,
    count(*)                                AS payment_count,
    sum((p.data::jsonb ->> 'totalAmount')::numeric) AS payment_total
FROM documents p
WHERE p.collection = 'progress_payments'
  AND p.data::jsonb ->> 'ownerId' = $1
  AND p.data::jsonb ->> 'projectId' = $2
GROUP BY 1, 2
ORDER BY 2, 1`

const monthlyDeductionsSQL = `
SELECT
    d.data::jsonb ->> 'contractId'          AS contract_id,
    substr(d.data::jsonb ->> 'date', 1, 7)  AS month,
    sum((d.data::jsonb ->> 'amount')::numeric) AS deduction_total
FROM documents d
WHERE d.collection = 'deductions'
  AND d.data::jsonb ->> 'ownerId' = $1
  AND d.data::jsonb ->> 'projectId' = $2
GROUP BY 1, 2`

// MonthlyTotals returns per-contract, per-month payment and deduction
// sums for a project.
func (s *Service) MonthlyTotals(ctx context.Context, ownerID, projectID string) ([]MonthlyTotal, error) {
	rows, err := s.pool.Query(ctx, monthlyTotalsSQL, ownerID, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make([]MonthlyTotal, 0)
	index := make(map[string]int)
	for rows.Next() {
		var t MonthlyTotal
		if err := rows.Scan(&t.ContractID, &t.Month, &t.PaymentCount, &t.PaymentTotal); err != nil {
			return nil, err
		}
		index[t.ContractID+"|"+t.Month] = len(totals)
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	dRows, err := s.pool.Query(ctx, monthlyDeductionsSQL, ownerID, projectID)
	if err != nil {
		return nil, err
	}
	defer dRows.Close()

	for dRows.Next() {
		var contractID, month string
		var sum float64
		if err := dRows.Scan(&contractID, &month, &sum); err != nil {
			return nil, err
		}
		if i, ok := index[contractID+"|"+month]; ok {
			totals[i].DeductionTotal = sum
		} else {
			totals = append(totals, MonthlyTotal{ContractID: contractID, Month: month, DeductionTotal: sum})
		}
	}
	if err := dRows.Err(); err != nil {
		return nil, err
	}

	return totals, nil
}
