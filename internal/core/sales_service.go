package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type salesService struct {
	pool      *pgxpool.Pool
	publisher EventPublisher
	now       func() time.Time
}

// NewSalesService constructs a SalesService backed by PostgreSQL.
func NewSalesService(pool *pgxpool.Pool, publisher EventPublisher) SalesService {
	return &salesService{pool: pool, publisher: publisher, now: time.Now}
}

// pricedDocument is the result of pricing a DocumentInput inside a transaction.
type pricedDocument struct {
	date   string
	year   int
	lines  []Line
	totals Totals
}

// priceDocument resolves the client, prices every line and computes totals at
// the tax rate current in tx.
func (s *salesService) priceDocument(ctx context.Context, tx pgx.Tx, input DocumentInput) (*pricedDocument, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if _, err := getClient(ctx, tx, input.ClientID); err != nil {
		return nil, err
	}

	engine := NewPricingEngine(NewPricingStore(tx))
	doc := &pricedDocument{}
	doc.date, doc.year = input.documentDate(s.now())

	totalsLines := make([]TotalsLine, 0, len(input.Lines))
	for i, in := range input.Lines {
		p, err := getProduct(ctx, tx, in.ProductID)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		line := Line{
			ProductID:   p.ID,
			ProductCode: p.Code,
			ProductName: p.Name,
		}
		if in.UnitPrice != nil && in.UnitPrice.IsPositive() {
			line.UnitPrice = *in.UnitPrice
			line.PriceSource = PriceManual
		} else {
			b, err := engine.PriceLine(ctx, PriceRequest{
				ProductID: in.ProductID,
				ClientID:  input.ClientID,
				Quantity:  in.Quantity,
			})
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			line.UnitPrice = b.UnitPrice
			line.PriceSource = b.Source
		}
		line.LineNumber = i + 1
		line.Quantity = in.Quantity
		line.LineTotal = Round2(in.Quantity.Mul(line.UnitPrice))

		doc.lines = append(doc.lines, line)
		totalsLines = append(totalsLines, TotalsLine{Quantity: line.Quantity, UnitPrice: line.UnitPrice})
	}

	rate, err := taxRate(ctx, tx)
	if err != nil {
		return nil, err
	}
	doc.totals = ComputeTotals(totalsLines, rate)
	return doc, nil
}

func insertLines(ctx context.Context, tx pgx.Tx, table, parentColumn string, parentID int, lines []Line) error {
	for _, l := range lines {
		_, err := tx.Exec(ctx, `
			INSERT INTO `+table+` (`+parentColumn+`, line_number, product_id, quantity, unit_price, line_total, price_source)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			parentID, l.LineNumber, l.ProductID, l.Quantity, l.UnitPrice, l.LineTotal, string(l.PriceSource),
		)
		if err != nil {
			return translateDBError(err, fmt.Sprintf("line %d", l.LineNumber))
		}
	}
	return nil
}

// ── Quotes ───────────────────────────────────────────────────────────────────

func (s *salesService) CreateQuote(ctx context.Context, input DocumentInput) (*Quote, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to begin transaction: %v", ErrInternal, err)
	}
	defer tx.Rollback(ctx)

	doc, err := s.priceDocument(ctx, tx, input)
	if err != nil {
		return nil, err
	}

	number, err := nextNumber(ctx, tx, sequenceQuote, doc.year)
	if err != nil {
		return nil, err
	}

	var id int
	err = tx.QueryRow(ctx, `
		INSERT INTO quotes (number, client_id, status, quote_date, tax_rate, subtotal, tax, total, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		number, input.ClientID, QuoteDraft, doc.date, doc.totals.TaxRate,
		doc.totals.Subtotal, doc.totals.Tax, doc.totals.Total, input.Notes,
	).Scan(&id)
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("quote %s", number))
	}
	if err := insertLines(ctx, tx, "quote_lines", "quote_id", id, doc.lines); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: failed to commit quote: %v", ErrInternal, err)
	}

	q, err := s.GetQuote(ctx, id)
	if err != nil {
		return nil, err
	}
	log.Info().Str("number", q.Number).Int("client_id", q.ClientID).Str("total", q.Total.String()).Msg("quote created")
	publishAfterCommit(ctx, s.publisher, Event{Type: EventQuoteCreated, Key: q.Number, Payload: q})
	return q, nil
}

const quoteSelect = `
	SELECT q.id, q.number, q.client_id, c.code, c.name, q.status, q.quote_date::text,
	       q.tax_rate, q.subtotal, q.tax, q.total, q.notes, q.created_at
	FROM quotes q
	JOIN clients c ON c.id = q.client_id`

func scanQuote(row pgx.Row) (*Quote, error) {
	var q Quote
	err := row.Scan(&q.ID, &q.Number, &q.ClientID, &q.ClientCode, &q.ClientName, &q.Status,
		&q.QuoteDate, &q.TaxRate, &q.Subtotal, &q.Tax, &q.Total, &q.Notes, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *salesService) GetQuote(ctx context.Context, id int) (*Quote, error) {
	q, err := scanQuote(s.pool.QueryRow(ctx, quoteSelect+` WHERE q.id = $1`, id))
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("quote %d", id))
	}
	q.Lines, err = fetchLines(ctx, s.pool, "quote_lines", "quote_id", q.ID)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (s *salesService) GetQuoteByNumber(ctx context.Context, number string) (*Quote, error) {
	var id int
	err := s.pool.QueryRow(ctx, `SELECT id FROM quotes WHERE number = $1`, number).Scan(&id)
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("quote %s", number))
	}
	return s.GetQuote(ctx, id)
}

func (s *salesService) ListQuotes(ctx context.Context, status *string) ([]Quote, error) {
	query := quoteSelect
	args := []any{}
	if status != nil {
		query += ` WHERE q.status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY q.id DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translateDBError(err, "quotes")
	}
	defer rows.Close()

	quotes := []Quote{}
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan quote: %v", ErrInternal, err)
		}
		quotes = append(quotes, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, translateDBError(err, "quotes")
	}
	return quotes, nil
}

// lockStatus reads and row-locks the status of one document.
func lockStatus(ctx context.Context, tx pgx.Tx, table string, id int) (string, error) {
	var status string
	err := tx.QueryRow(ctx, `SELECT status FROM `+table+` WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if err != nil {
		return "", err
	}
	return status, nil
}

func (s *salesService) SetQuoteStatus(ctx context.Context, id int, status string) (*Quote, error) {
	if !isStatus(status, QuoteDraft, QuoteSent, QuoteAccepted, QuoteRejected, QuoteConverted) {
		return nil, unknownStatus(status)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to begin transaction: %v", ErrInternal, err)
	}
	defer tx.Rollback(ctx)

	current, err := lockStatus(ctx, tx, "quotes", id)
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("quote %d", id))
	}
	if current == status {
		return s.GetQuote(ctx, id)
	}
	if !canTransition(quoteTransitions, current, status) {
		return nil, invalidTransition("quote", id, current, status)
	}

	if _, err := tx.Exec(ctx, `UPDATE quotes SET status = $2 WHERE id = $1`, id, status); err != nil {
		return nil, translateDBError(err, fmt.Sprintf("quote %d", id))
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: failed to commit quote status: %v", ErrInternal, err)
	}
	return s.GetQuote(ctx, id)
}

func (s *salesService) DeleteQuote(ctx context.Context, id int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", ErrInternal, err)
	}
	defer tx.Rollback(ctx)

	status, err := lockStatus(ctx, tx, "quotes", id)
	if err != nil {
		return translateDBError(err, fmt.Sprintf("quote %d", id))
	}
	if status != QuoteDraft {
		return conflictf("quote %d is %s, only DRAFT quotes can be deleted", id, status)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM quotes WHERE id = $1`, id); err != nil {
		return translateDBError(err, fmt.Sprintf("quote %d", id))
	}
	return tx.Commit(ctx)
}

func (s *salesService) ConvertQuote(ctx context.Context, id int) (*Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to begin transaction: %v", ErrInternal, err)
	}
	defer tx.Rollback(ctx)

	status, err := lockStatus(ctx, tx, "quotes", id)
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("quote %d", id))
	}
	if status != QuoteDraft && status != QuoteSent && status != QuoteAccepted {
		return nil, invalidTransition("quote", id, status, QuoteConverted)
	}

	year := s.now().Year()
	number, err := nextNumber(ctx, tx, sequenceOrder, year)
	if err != nil {
		return nil, err
	}

	var orderID int
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (number, client_id, quote_id, status, order_date, tax_rate, subtotal, tax, total, notes)
		SELECT $1, client_id, id, $2, $3, tax_rate, subtotal, tax, total, notes
		FROM quotes WHERE id = $4
		RETURNING id`,
		number, OrderPending, s.now().Format("2006-01-02"), id,
	).Scan(&orderID)
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("order %s", number))
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO order_lines (order_id, line_number, product_id, quantity, unit_price, line_total, price_source)
		SELECT $1, line_number, product_id, quantity, unit_price, line_total, price_source
		FROM quote_lines WHERE quote_id = $2`,
		orderID, id,
	)
	if err != nil {
		return nil, translateDBError(err, "order lines")
	}

	if _, err := tx.Exec(ctx, `UPDATE quotes SET status = $2 WHERE id = $1`, id, QuoteConverted); err != nil {
		return nil, translateDBError(err, fmt.Sprintf("quote %d", id))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: failed to commit quote conversion: %v", ErrInternal, err)
	}

	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	log.Info().Int("quote_id", id).Str("order", o.Number).Msg("quote converted")
	publishAfterCommit(ctx, s.publisher, Event{Type: EventQuoteConverted, Key: o.Number, Payload: o})
	return o, nil
}

// ── Orders ───────────────────────────────────────────────────────────────────

func (s *salesService) CreateOrder(ctx context.Context, input DocumentInput) (*Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to begin transaction: %v", ErrInternal, err)
	}
	defer tx.Rollback(ctx)

	doc, err := s.priceDocument(ctx, tx, input)
	if err != nil {
		return nil, err
	}

	number, err := nextNumber(ctx, tx, sequenceOrder, doc.year)
	if err != nil {
		return nil, err
	}

	var id int
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (number, client_id, status, order_date, tax_rate, subtotal, tax, total, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		number, input.ClientID, OrderPending, doc.date, doc.totals.TaxRate,
		doc.totals.Subtotal, doc.totals.Tax, doc.totals.Total, input.Notes,
	).Scan(&id)
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("order %s", number))
	}
	if err := insertLines(ctx, tx, "order_lines", "order_id", id, doc.lines); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: failed to commit order: %v", ErrInternal, err)
	}

	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	log.Info().Str("number", o.Number).Int("client_id", o.ClientID).Str("total", o.Total.String()).Msg("order created")
	publishAfterCommit(ctx, s.publisher, Event{Type: EventOrderCreated, Key: o.Number, Payload: o})
	return o, nil
}

const orderSelect = `
	SELECT o.id, o.number, o.client_id, c.code, c.name, o.quote_id, o.status, o.order_date::text,
	       o.tax_rate, o.subtotal, o.tax, o.total, o.notes, o.created_at
	FROM orders o
	JOIN clients c ON c.id = o.client_id`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.Number, &o.ClientID, &o.ClientCode, &o.ClientName, &o.QuoteID,
		&o.Status, &o.OrderDate, &o.TaxRate, &o.Subtotal, &o.Tax, &o.Total, &o.Notes, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *salesService) GetOrder(ctx context.Context, id int) (*Order, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx, orderSelect+` WHERE o.id = $1`, id))
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("order %d", id))
	}
	o.Lines, err = fetchLines(ctx, s.pool, "order_lines", "order_id", o.ID)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *salesService) GetOrderByNumber(ctx context.Context, number string) (*Order, error) {
	var id int
	err := s.pool.QueryRow(ctx, `SELECT id FROM orders WHERE number = $1`, number).Scan(&id)
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("order %s", number))
	}
	return s.GetOrder(ctx, id)
}

func (s *salesService) ListOrders(ctx context.Context, status *string) ([]Order, error) {
	query := orderSelect
	args := []any{}
	if status != nil {
		query += ` WHERE o.status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY o.id DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translateDBError(err, "orders")
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan order: %v", ErrInternal, err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, translateDBError(err, "orders")
	}
	return orders, nil
}

func (s *salesService) SetOrderStatus(ctx context.Context, id int, status string) (*Order, error) {
	if !isStatus(status, OrderPending, OrderConfirmed, OrderInProduction, OrderDelivered, OrderCancelled) {
		return nil, unknownStatus(status)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to begin transaction: %v", ErrInternal, err)
	}
	defer tx.Rollback(ctx)

	current, err := lockStatus(ctx, tx, "orders", id)
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("order %d", id))
	}
	if current == status {
		return s.GetOrder(ctx, id)
	}
	if !canTransition(orderTransitions, current, status) {
		return nil, invalidTransition("order", id, current, status)
	}

	if _, err := tx.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, status); err != nil {
		return nil, translateDBError(err, fmt.Sprintf("order %d", id))
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: failed to commit order status: %v", ErrInternal, err)
	}
	return s.GetOrder(ctx, id)
}

// fetchLines loads the lines of one quote or order in line order.
func fetchLines(ctx context.Context, q Querier, table, parentColumn string, parentID int) ([]Line, error) {
	rows, err := q.Query(ctx, `
		SELECT l.id, l.line_number, p.id, p.code, p.name,
		       l.quantity, l.unit_price, l.line_total, l.price_source
		FROM `+table+` l
		JOIN products p ON p.id = l.product_id
		WHERE l.`+parentColumn+` = $1
		ORDER BY l.line_number`,
		parentID,
	)
	if err != nil {
		return nil, translateDBError(err, "lines")
	}
	defer rows.Close()

	lines := []Line{}
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.LineNumber, &l.ProductID, &l.ProductCode, &l.ProductName,
			&l.Quantity, &l.UnitPrice, &l.LineTotal, &l.PriceSource); err != nil {
			return nil, fmt.Errorf("%w: failed to scan line: %v", ErrInternal, err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, translateDBError(err, "lines")
	}
	return lines, nil
}

// isStatus reports whether status is one of the known values for a document kind.
func isStatus(status string, known ...string) bool {
	for _, k := range known {
		if k == status {
			return true
		}
	}
	return false
}

func unknownStatus(status string) error {
	return &ValidationError{
		Message: fmt.Sprintf("unknown status %q", status),
		Fields:  FieldErrors{"status": "unknown status"},
	}
}
